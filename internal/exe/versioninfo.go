package exe

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/jchantrell/wadinfo/internal/utils"
)

const (
	fixedFileInfoSignature = 0xfeef04bd
	fixedFileInfoLen       = 52
	blockHeaderLen         = 6
	maxBlockDepth          = 4
)

type versionInfo struct {
	fileVersion    utils.Version
	productVersion utils.Version
	// strings from the string table of the first translation
	strings map[string]string
}

// block is one node of the VS_VERSIONINFO tree.
type block struct {
	key      string
	text     bool
	value    []byte
	children []block
}

func align4(n int) int {
	return (n + 3) &^ 3
}

// parseBlock reads the block at the start of data. Offsets are aligned
// relative to data, which always starts on a 4-byte boundary.
func parseBlock(data []byte, depth int) (block, error) {
	if depth > maxBlockDepth {
		return block{}, errors.New("version block nested too deep")
	}
	if len(data) < blockHeaderLen {
		return block{}, fmt.Errorf("version block header needs %d bytes, have %d", blockHeaderLen, len(data))
	}
	length := int(binary.LittleEndian.Uint16(data))
	valueLen := int(binary.LittleEndian.Uint16(data[2:]))
	typ := binary.LittleEndian.Uint16(data[4:])
	if length < blockHeaderLen || length > len(data) {
		return block{}, fmt.Errorf("version block length %d out of bounds (%d available)", length, len(data))
	}
	data = data[:length]

	key, n := readUTF16(data[blockHeaderLen:])
	b := block{key: key, text: typ == 1}

	valueStart := min(align4(blockHeaderLen+n), length)
	valueBytes := valueLen
	if b.text {
		valueBytes *= 2
	}
	valueEnd := min(valueStart+valueBytes, length)
	b.value = data[valueStart:valueEnd]

	for off := align4(valueEnd); off+blockHeaderLen <= length; {
		childLen := int(binary.LittleEndian.Uint16(data[off:]))
		if childLen == 0 {
			break
		}
		child, err := parseBlock(data[off:], depth+1)
		if err != nil {
			return block{}, fmt.Errorf("%s: %w", key, err)
		}
		b.children = append(b.children, child)
		off = align4(off + childLen)
	}
	return b, nil
}

func (b block) child(key string) (block, bool) {
	for _, c := range b.children {
		if strings.EqualFold(c.key, key) {
			return c, true
		}
	}
	return block{}, false
}

// stringValue decodes the UTF-16 value of a string block. Some linkers
// store the value length in bytes rather than characters, so the value runs
// to the first NUL.
func (b block) stringValue() string {
	s, _ := readUTF16(b.value)
	return strings.TrimSpace(s)
}

// parseVersionInfo decodes a VS_VERSIONINFO resource.
func parseVersionInfo(data []byte) (*versionInfo, error) {
	root, err := parseBlock(data, 0)
	if err != nil {
		return nil, err
	}
	if root.key != "VS_VERSION_INFO" {
		return nil, fmt.Errorf("unexpected version block key %q", root.key)
	}

	info := &versionInfo{strings: map[string]string{}}
	if len(root.value) >= fixedFileInfoLen && binary.LittleEndian.Uint32(root.value) == fixedFileInfoSignature {
		info.fileVersion = versionFromWords(binary.LittleEndian.Uint32(root.value[8:]), binary.LittleEndian.Uint32(root.value[12:]))
		info.productVersion = versionFromWords(binary.LittleEndian.Uint32(root.value[16:]), binary.LittleEndian.Uint32(root.value[20:]))
	}

	if sfi, ok := root.child("StringFileInfo"); ok && len(sfi.children) > 0 {
		table := sfi.children[0]
		if lang, ok := translation(root); ok {
			if t, ok := sfi.child(lang); ok {
				table = t
			}
		}
		for _, s := range table.children {
			info.strings[s.key] = s.stringValue()
		}
	}
	return info, nil
}

// translation returns the string table name of the first VarFileInfo
// translation, e.g. "040904b0".
func translation(root block) (string, bool) {
	vfi, ok := root.child("VarFileInfo")
	if !ok {
		return "", false
	}
	t, ok := vfi.child("Translation")
	if !ok || len(t.value) < 4 {
		return "", false
	}
	lang := binary.LittleEndian.Uint16(t.value)
	codePage := binary.LittleEndian.Uint16(t.value[2:])
	return fmt.Sprintf("%04x%04x", lang, codePage), true
}

func versionFromWords(ms, ls uint32) utils.Version {
	return utils.Version{
		Major: int(ms >> 16),
		Minor: int(ms & 0xffff),
		Patch: int(ls >> 16),
		Build: int(ls & 0xffff),
	}
}
