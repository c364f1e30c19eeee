package exe

import (
	"encoding/binary"
	"unicode/utf16"
)

// readUTF16 decodes a NUL terminated UTF-16LE string from the start of data.
// It returns the string and the number of bytes consumed including the
// terminator. An unterminated string runs to the end of data.
func readUTF16(data []byte) (string, int) {
	var codeUnits []uint16
	i := 0
	for ; i+1 < len(data); i += 2 {
		codeUnit := binary.LittleEndian.Uint16(data[i:])
		if codeUnit == 0 {
			return string(utf16.Decode(codeUnits)), i + 2
		}
		codeUnits = append(codeUnits, codeUnit)
	}
	return string(utf16.Decode(codeUnits)), i
}
