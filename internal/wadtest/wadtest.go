// Package wadtest builds base archives and bundles for tests.
package wadtest

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
)

// Lump is a named payload.
type Lump struct {
	Name string
	Data []byte
}

// Marker returns a zero-size lump.
func Marker(name string) Lump {
	return Lump{Name: name}
}

// MapLumps returns a marker followed by the classic binary map lumps.
func MapLumps(name string) []Lump {
	lumps := []Lump{Marker(name)}
	for _, n := range []string{"THINGS", "LINEDEFS", "SIDEDEFS", "VERTEXES", "SEGS", "SSECTORS", "NODES", "SECTORS", "REJECT", "BLOCKMAP"} {
		lumps = append(lumps, Lump{Name: n, Data: []byte{1, 2, 3, 4}})
	}
	return lumps
}

// Build lays out a header, the lump payloads and the directory at the end,
// the layout produced by most editors.
func Build(magic string, lumps ...Lump) []byte {
	var data bytes.Buffer
	offsets := make([]int, len(lumps))
	for i, l := range lumps {
		offsets[i] = 12 + data.Len()
		data.Write(l.Data)
	}

	out := make([]byte, 12, 12+data.Len()+16*len(lumps))
	copy(out, magic)
	binary.LittleEndian.PutUint32(out[4:], uint32(len(lumps)))
	binary.LittleEndian.PutUint32(out[8:], uint32(12+data.Len()))
	out = append(out, data.Bytes()...)

	for i, l := range lumps {
		out = binary.LittleEndian.AppendUint32(out, uint32(offsets[i]))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(l.Data)))
		var name [8]byte
		copy(name[:], l.Name)
		out = append(out, name[:]...)
	}
	return out
}

// File is a bundle member.
type File struct {
	Name   string
	Data   []byte
	Stored bool
}

// Zip writes files into a ZIP archive in order, deflated unless Stored.
func Zip(files ...File) ([]byte, error) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		method := zip.Deflate
		if f.Stored {
			method = zip.Store
		}
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.Name, Method: method})
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, err
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
