package pkzip_test

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"hash/crc32"
	"strings"
	"testing"

	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/pkzip"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type zipFile struct {
	name   string
	body   []byte
	method uint16
}

func buildZip(t *testing.T, comment string, files ...zipFile) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		fw, err := w.CreateHeader(&zip.FileHeader{Name: f.name, Method: f.method})
		require.NoError(t, err)
		_, err = fw.Write(f.body)
		require.NoError(t, err)
	}
	if comment != "" {
		require.NoError(t, w.SetComment(comment))
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// buildRawZip writes stored entries with sizes in the local header.
func buildRawZip(t *testing.T, headers ...*zip.FileHeader) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, h := range headers {
		body := []byte("content of " + h.Name)
		if h.Method == pkzip.Deflate {
			var c bytes.Buffer
			fw, err := flate.NewWriter(&c, flate.DefaultCompression)
			require.NoError(t, err)
			_, err = fw.Write(body)
			require.NoError(t, err)
			require.NoError(t, fw.Close())
			h.CompressedSize64 = uint64(c.Len())
			h.UncompressedSize64 = uint64(len(body))
			h.CRC32 = crc32.ChecksumIEEE(body)
			body = c.Bytes()
		} else {
			h.CompressedSize64 = uint64(len(body))
			h.UncompressedSize64 = uint64(len(body))
			h.CRC32 = crc32.ChecksumIEEE(body)
		}
		fw, err := w.CreateRaw(h)
		require.NoError(t, err)
		_, err = fw.Write(body)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func openZip(t *testing.T, data []byte) *pkzip.Reader {
	t.Helper()
	r, err := pkzip.Open(source.NewMemory(data))
	require.NoError(t, err)
	return r
}

func TestRoundTrip(t *testing.T) {
	large := bytes.Repeat([]byte("doom "), 10000)
	files := []zipFile{
		{name: "readme.txt", body: []byte("hello"), method: zip.Store},
		{name: "maps/map01.wad", body: large, method: zip.Deflate},
		{name: "empty.txt", body: nil, method: zip.Deflate},
		{name: "sprites/", method: zip.Store},
	}
	r := openZip(t, buildZip(t, "", files...))

	entries := r.Entries()
	require.Len(t, entries, len(files))
	assert.Empty(t, r.Warnings())

	for i, f := range files {
		e := entries[i]
		assert.Equal(t, f.name, e.Name)
		assert.Equal(t, f.method, e.Method)
		assert.Equal(t, uint64(len(f.body)), e.UncompressedSize)

		src, err := r.OpenEntry(e)
		require.NoError(t, err, f.name)
		b, err := src.Bytes(0, src.Size())
		require.NoError(t, err)
		assert.Equal(t, len(f.body), len(b))
		if len(f.body) > 0 {
			assert.Equal(t, f.body, b)
		}
	}
	assert.True(t, entries[3].IsDir())
	assert.Equal(t, "map01.wad", entries[1].Base())
	assert.Equal(t, "maps", entries[1].Dir())
	assert.Equal(t, "", entries[0].Dir())
}

func TestLongComment(t *testing.T) {
	comment := strings.Repeat("x", 65000)
	data := buildZip(t, comment, zipFile{name: "a.txt", body: []byte("a"), method: zip.Store})

	r := openZip(t, data)
	assert.Equal(t, comment, r.Comment())
	require.Len(t, r.Entries(), 1)
}

func TestUnsupportedMethodIsSkipped(t *testing.T) {
	data := buildRawZip(t,
		&zip.FileHeader{Name: "lzma.bin", Method: 14},
		&zip.FileHeader{Name: "ok.txt", Method: zip.Store},
		&zip.FileHeader{Name: "secret.txt", Method: zip.Store, Flags: 0x1},
	)
	r := openZip(t, data)

	entries := r.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "ok.txt", entries[0].Name)

	warnings := r.Warnings()
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "unsupported compression method 14")
	assert.Contains(t, warnings[1], "encrypted")

	src, err := r.OpenEntry(entries[0])
	require.NoError(t, err)
	b, _ := src.Bytes(0, src.Size())
	assert.Equal(t, "content of ok.txt", string(b))
}

func TestNamesAreNormalized(t *testing.T) {
	data := buildRawZip(t,
		&zip.FileHeader{Name: `maps\MAP01.wad`, Method: zip.Store},
		&zip.FileHeader{Name: "\x80a.txt", Method: zip.Store, NonUTF8: true},
	)
	r := openZip(t, data)

	entries := r.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "maps/MAP01.wad", entries[0].Name)
	assert.Equal(t, "Ça.txt", entries[1].Name)

	e, ok := r.Lookup(`MAPS\map01.WAD`)
	require.True(t, ok)
	assert.Equal(t, entries[0], e)
	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestTraversalIsRejected(t *testing.T) {
	for _, name := range []string{"../evil.txt", "maps/../../evil.txt", "/etc/passwd", `..\evil.txt`} {
		t.Run(name, func(t *testing.T) {
			r := openZip(t, buildRawZip(t, &zip.FileHeader{Name: name, Method: zip.Store}))
			entries := r.Entries()
			require.Len(t, entries, 1)

			_, err := r.OpenEntry(entries[0])
			assert.ErrorIs(t, err, metadata.ErrCorruptEntry)
		})
	}
}

func TestChecksumMismatch(t *testing.T) {
	data := buildRawZip(t, &zip.FileHeader{Name: "a.txt", Method: zip.Store})
	data[30+len("a.txt")] ^= 0xff

	r := openZip(t, data)
	_, err := r.OpenEntry(r.Entries()[0])
	assert.ErrorIs(t, err, metadata.ErrCorruptEntry)
	assert.Contains(t, err.Error(), "checksum")
}

func TestCorruptDeflateStream(t *testing.T) {
	data := buildRawZip(t, &zip.FileHeader{Name: "a.txt", Method: zip.Deflate})
	for i := 30 + len("a.txt"); i < 30+len("a.txt")+4; i++ {
		data[i] = 0xff
	}

	r := openZip(t, data)
	_, err := r.OpenEntry(r.Entries()[0])
	assert.ErrorIs(t, err, metadata.ErrCorruptEntry)
}

func TestLocalHeaderMismatch(t *testing.T) {
	t.Run("method", func(t *testing.T) {
		data := buildZip(t, "", zipFile{name: "a.txt", body: []byte("aaaa"), method: zip.Deflate})
		binary.LittleEndian.PutUint16(data[8:], zip.Store)

		r := openZip(t, data)
		_, err := r.OpenEntry(r.Entries()[0])
		assert.ErrorIs(t, err, metadata.ErrCorruptEntry)
	})

	t.Run("size", func(t *testing.T) {
		data := buildRawZip(t, &zip.FileHeader{Name: "a.txt", Method: zip.Store})
		binary.LittleEndian.PutUint32(data[22:], 3)

		r := openZip(t, data)
		_, err := r.OpenEntry(r.Entries()[0])
		assert.ErrorIs(t, err, metadata.ErrCorruptEntry)
	})

	t.Run("signature", func(t *testing.T) {
		data := buildRawZip(t, &zip.FileHeader{Name: "a.txt", Method: zip.Store})
		data[0] = 'X'

		r := openZip(t, data)
		_, err := r.OpenEntry(r.Entries()[0])
		assert.ErrorIs(t, err, metadata.ErrCorruptEntry)
	})
}

func TestDeclaredSizeMismatch(t *testing.T) {
	data := buildZip(t, "", zipFile{name: "a.txt", body: []byte("some text"), method: zip.Deflate})
	r := openZip(t, data)

	e := r.Entries()[0]
	e.UncompressedSize += 100
	_, err := r.OpenEntry(e)
	assert.ErrorIs(t, err, metadata.ErrCorruptEntry)

	e = r.Entries()[0]
	e.CompressedSize = 1 << 40
	_, err = r.OpenEntry(e)
	assert.ErrorIs(t, err, metadata.ErrTruncated)

	e = r.Entries()[0]
	e.HeaderOffset = uint64(len(data)) + 10
	_, err = r.OpenEntry(e)
	assert.ErrorIs(t, err, metadata.ErrTruncated)
}

func TestMaxEntrySize(t *testing.T) {
	data := buildZip(t, "", zipFile{name: "big.bin", body: make([]byte, 4096), method: zip.Deflate})
	r, err := pkzip.Open(source.NewMemory(data), pkzip.WithMaxEntrySize(1024))
	require.NoError(t, err)

	_, err = r.OpenEntry(r.Entries()[0])
	assert.ErrorIs(t, err, pkzip.ErrEntryTooLarge)
}

func TestNotAZip(t *testing.T) {
	for name, data := range map[string][]byte{
		"empty":   nil,
		"tiny":    []byte("PK"),
		"garbage": bytes.Repeat([]byte{0x42}, 4096),
		"wad":     append([]byte("IWAD"), make([]byte, 60)...),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := pkzip.Open(source.NewMemory(data))
			assert.ErrorIs(t, err, metadata.ErrUnsupportedFormat)
		})
	}
}

func TestDirectoryPastEnd(t *testing.T) {
	data := buildZip(t, "", zipFile{name: "a.txt", body: []byte("a"), method: zip.Store})
	eocd := len(data) - 22
	binary.LittleEndian.PutUint32(data[eocd+16:], uint32(len(data)))

	_, err := pkzip.Open(source.NewMemory(data))
	assert.ErrorIs(t, err, metadata.ErrTruncated)
}

func TestMultiDisk(t *testing.T) {
	data := buildZip(t, "", zipFile{name: "a.txt", body: []byte("a"), method: zip.Store})
	eocd := len(data) - 22
	binary.LittleEndian.PutUint16(data[eocd+4:], 1)

	_, err := pkzip.Open(source.NewMemory(data))
	assert.ErrorIs(t, err, metadata.ErrUnsupportedFormat)
}

func TestZip64DirectoryEnd(t *testing.T) {
	data := buildZip(t, "", zipFile{name: "a.txt", body: []byte("zip64"), method: zip.Store})
	eocd := len(data) - 22
	records := uint64(binary.LittleEndian.Uint16(data[eocd+10:]))
	dirSize := uint64(binary.LittleEndian.Uint32(data[eocd+12:]))
	dirOffset := uint64(binary.LittleEndian.Uint32(data[eocd+16:]))

	out := append([]byte(nil), data[:eocd]...)
	z64 := uint64(len(out))

	le := binary.LittleEndian
	out = le.AppendUint32(out, 0x06064b50)
	out = le.AppendUint64(out, 44)
	out = le.AppendUint16(out, 45)
	out = le.AppendUint16(out, 45)
	out = le.AppendUint32(out, 0)
	out = le.AppendUint32(out, 0)
	out = le.AppendUint64(out, records)
	out = le.AppendUint64(out, records)
	out = le.AppendUint64(out, dirSize)
	out = le.AppendUint64(out, dirOffset)

	out = le.AppendUint32(out, 0x07064b50)
	out = le.AppendUint32(out, 0)
	out = le.AppendUint64(out, z64)
	out = le.AppendUint32(out, 1)

	out = le.AppendUint32(out, 0x06054b50)
	out = le.AppendUint16(out, 0)
	out = le.AppendUint16(out, 0)
	out = le.AppendUint16(out, 0xffff)
	out = le.AppendUint16(out, 0xffff)
	out = le.AppendUint32(out, 0xffffffff)
	out = le.AppendUint32(out, 0xffffffff)
	out = le.AppendUint16(out, 0)

	r := openZip(t, out)
	require.Len(t, r.Entries(), 1)
	src, err := r.OpenEntry(r.Entries()[0])
	require.NoError(t, err)
	b, _ := src.Bytes(0, src.Size())
	assert.Equal(t, "zip64", string(b))
}
