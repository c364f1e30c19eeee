package exe

import (
	"debug/pe"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
)

const (
	dosHeaderLen     = 0x40
	peOffsetField    = 0x3c
	resourceDirIndex = 2
	rtVersion        = 16

	resDirHeaderLen = 16
	resDirEntryLen  = 8
	resDataEntryLen = 16
	resSubdirFlag   = 0x80000000
	resNameFlag     = 0x80000000
)

type peImage struct {
	src      source.ByteSource
	file     *pe.File
	resource pe.DataDirectory
}

// openPE parses the PE headers behind an MZ stub. It returns nil without an
// error for plain DOS executables.
func openPE(src source.ByteSource) (*peImage, error) {
	size := src.Size()
	if size < dosHeaderLen {
		return nil, fmt.Errorf("%w: DOS header needs %d bytes, file has %d", metadata.ErrTruncated, dosHeaderLen, size)
	}
	hdr, err := src.Bytes(0, dosHeaderLen)
	if err != nil {
		return nil, fmt.Errorf("reading DOS header: %w", err)
	}
	lfanew := int64(binary.LittleEndian.Uint32(hdr[peOffsetField:]))
	sig, err := src.Bytes(lfanew, 4)
	if err != nil || string(sig) != "PE\x00\x00" {
		return nil, nil
	}

	f, err := pe.NewFile(io.NewSectionReader(src, 0, size))
	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%w: PE headers: %v", metadata.ErrTruncated, err)
		}
		return nil, fmt.Errorf("%w: PE headers: %v", metadata.ErrCorruptEntry, err)
	}

	img := &peImage{src: src, file: f}
	switch oh := f.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		if oh.NumberOfRvaAndSizes > resourceDirIndex {
			img.resource = oh.DataDirectory[resourceDirIndex]
		}
	case *pe.OptionalHeader64:
		if oh.NumberOfRvaAndSizes > resourceDirIndex {
			img.resource = oh.DataDirectory[resourceDirIndex]
		}
	}
	return img, nil
}

// rvaToOffset maps a relative virtual address to a file offset.
func (img *peImage) rvaToOffset(rva uint32) (int64, *pe.Section, bool) {
	for _, s := range img.file.Sections {
		span := max(s.VirtualSize, s.Size)
		if rva >= s.VirtualAddress && rva-s.VirtualAddress < span {
			delta := rva - s.VirtualAddress
			if delta >= s.Size {
				return 0, nil, false
			}
			return int64(s.Offset) + int64(delta), s, true
		}
	}
	return 0, nil, false
}

// versionResource walks the resource tree to the first RT_VERSION data
// entry and returns its bytes, or nil when there is none.
func (img *peImage) versionResource() ([]byte, error) {
	if img.resource.VirtualAddress == 0 || img.resource.Size == 0 {
		return nil, nil
	}
	off, sec, ok := img.rvaToOffset(img.resource.VirtualAddress)
	if !ok {
		return nil, fmt.Errorf("resource directory rva %#x outside sections", img.resource.VirtualAddress)
	}
	// the tree may extend anywhere within the section raw data
	secEnd := int64(sec.Offset) + int64(sec.Size)
	tree, err := img.src.Bytes(off, min(secEnd, img.src.Size())-off)
	if err != nil {
		return nil, err
	}

	typeDir, ok, err := findEntry(tree, 0, rtVersion)
	if err != nil || !ok {
		return nil, err
	}
	nameDir, ok, err := findEntry(tree, typeDir.offset, -1)
	if err != nil || !ok {
		return nil, err
	}
	lang, ok, err := findEntry(tree, nameDir.offset, -1)
	if err != nil || !ok {
		return nil, err
	}
	if !typeDir.dir || !nameDir.dir || lang.dir {
		return nil, errors.New("unexpected version resource layout")
	}

	if int64(lang.offset)+resDataEntryLen > int64(len(tree)) {
		return nil, fmt.Errorf("resource data entry at %#x out of bounds", lang.offset)
	}
	dataRVA := binary.LittleEndian.Uint32(tree[lang.offset:])
	dataSize := binary.LittleEndian.Uint32(tree[lang.offset+4:])
	dataOff, _, ok := img.rvaToOffset(dataRVA)
	if !ok {
		return nil, fmt.Errorf("version data rva %#x outside sections", dataRVA)
	}
	return img.src.Bytes(dataOff, int64(dataSize))
}

type resEntry struct {
	offset uint32
	dir    bool
}

// findEntry scans the resource directory at dirOff for the entry with the
// given numeric id, or the first entry when id is negative.
func findEntry(tree []byte, dirOff uint32, id int) (resEntry, bool, error) {
	if int64(dirOff)+resDirHeaderLen > int64(len(tree)) {
		return resEntry{}, false, fmt.Errorf("resource directory at %#x out of bounds", dirOff)
	}
	named := int(binary.LittleEndian.Uint16(tree[dirOff+12:]))
	ids := int(binary.LittleEndian.Uint16(tree[dirOff+14:]))
	count := named + ids
	entries := int64(dirOff) + resDirHeaderLen
	if entries+int64(count)*resDirEntryLen > int64(len(tree)) {
		return resEntry{}, false, fmt.Errorf("resource directory at %#x has %d entries out of bounds", dirOff, count)
	}

	for i := range count {
		e := tree[entries+int64(i)*resDirEntryLen:]
		name := binary.LittleEndian.Uint32(e)
		target := binary.LittleEndian.Uint32(e[4:])
		if id >= 0 && (name&resNameFlag != 0 || name != uint32(id)) {
			continue
		}
		r := resEntry{offset: target &^ resSubdirFlag, dir: target&resSubdirFlag != 0}
		if r.dir && r.offset <= dirOff {
			return resEntry{}, false, fmt.Errorf("resource directory loop at %#x", r.offset)
		}
		return r, true, nil
	}
	return resEntry{}, false, nil
}
