package bundle_test

import (
	"strings"
	"testing"

	"github.com/jchantrell/wadinfo/internal/bundle"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/jchantrell/wadinfo/internal/source"
	"github.com/jchantrell/wadinfo/internal/wadtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readBundle(t *testing.T, opts []bundle.Option, files ...wadtest.File) *metadata.Record {
	t.Helper()
	data, err := wadtest.Zip(files...)
	require.NoError(t, err)
	rec, err := bundle.Read(source.NewMemory(data), opts...)
	require.NoError(t, err)
	return rec
}

func hasWarning(rec *metadata.Record, substr string) bool {
	for _, w := range rec.Warnings() {
		if strings.Contains(w, substr) {
			return true
		}
	}
	return false
}

func TestEmbeddedArchive(t *testing.T) {
	pwad := wadtest.Build("PWAD", append(wadtest.MapLumps("MAP01"), wadtest.MapLumps("MAP02")...)...)
	rec := readBundle(t, nil,
		wadtest.File{Name: "readme.txt", Data: []byte("hello")},
		wadtest.File{Name: "mymod.wad", Data: pwad},
	)

	assert.Equal(t, metadata.KindBundle, rec.Kind())
	assert.Equal(t, []string{"MAP01", "MAP02"}, rec.MapNames())
	require.Equal(t, 22, rec.EntryCount())
	for _, e := range rec.Entries() {
		assert.Equal(t, "mymod.wad", e.Container)
	}
	assert.Empty(t, rec.Warnings())
}

func TestStoredArchive(t *testing.T) {
	pwad := wadtest.Build("PWAD", wadtest.MapLumps("E1M1")...)
	rec := readBundle(t, nil, wadtest.File{Name: "sub/dir/episode.PWAD", Data: pwad, Stored: true})
	assert.Equal(t, []string{"E1M1"}, rec.MapNames())
}

func TestMapsDirectoryNaming(t *testing.T) {
	inner := wadtest.Build("PWAD", wadtest.MapLumps("MAP01")...)
	rec := readBundle(t, nil,
		wadtest.File{Name: "maps/e1m1.wad", Data: inner},
		wadtest.File{Name: "maps/averylongmapname.wad", Data: inner},
	)

	assert.Equal(t, []string{"E1M1", "AVERYLON"}, rec.MapNames())
	assert.True(t, hasWarning(rec, "entry name exceeds format limit, truncated"))
	assert.False(t, rec.HasMap("MAP01"))
}

func TestNoPayload(t *testing.T) {
	rec := readBundle(t, nil,
		wadtest.File{Name: "sprites/TROOA1.png", Data: []byte{0x89, 'P', 'N', 'G'}},
		wadtest.File{Name: "decorate.txt", Data: []byte("actor Foo {}")},
	)

	assert.Zero(t, rec.EntryCount())
	assert.Empty(t, rec.MapNames())
	assert.Contains(t, rec.Warnings(), "no base-archive payload found")
}

func TestDescriptorAugmentsTitles(t *testing.T) {
	pwad := wadtest.Build("PWAD", append(wadtest.MapLumps("MAP01"), wadtest.MapLumps("MAP02")...)...)
	rec := readBundle(t, nil,
		wadtest.File{Name: "mod.wad", Data: pwad},
		wadtest.File{Name: "MAPINFO.txt", Data: []byte(`map MAP01 "Wrong Source"`)},
		wadtest.File{Name: "zmapinfo.lmp", Data: []byte("map MAP01 \"Entryway\"\n{\n}\nmap MAP07 \"Dead Simple\" { }\n")},
	)

	assert.Equal(t, "Entryway", rec.MapTitle("MAP01"))
	// a directory map the descriptor omits keeps its raw identifier
	assert.Equal(t, "MAP02", rec.MapTitle("MAP02"))
	assert.True(t, rec.HasMap("MAP07"))
	assert.Equal(t, []string{"MAP01", "MAP02", "MAP07"}, rec.MapNames())
}

func TestNestedDescriptorIgnored(t *testing.T) {
	rec := readBundle(t, nil,
		wadtest.File{Name: "filter/doom2/mapinfo.txt", Data: []byte(`map MAP01 "Filtered"`)},
	)
	assert.Empty(t, rec.MapNames())
}

func TestDescriptorSizeLimit(t *testing.T) {
	big := "map MAP01 \"Big\"\n" + strings.Repeat("// padding\n", 100)
	rec := readBundle(t, []bundle.Option{bundle.WithMaxDescriptorSize(64)},
		wadtest.File{Name: "ZMAPINFO", Data: []byte(big)},
		wadtest.File{Name: "MAPINFO", Data: []byte(`map MAP05 "Small"`)},
	)

	assert.True(t, hasWarning(rec, "larger than 64"))
	assert.Equal(t, []string{"MAP05"}, rec.MapNames())
	assert.Equal(t, "Small", rec.MapTitle("MAP05"))
}

func TestGameInfo(t *testing.T) {
	rec := readBundle(t, nil,
		wadtest.File{Name: "GAMEINFO.txt", Data: []byte("IWAD = doom2.wad\nLOAD = extras.pk3, music.pk3\n")},
	)

	id, ok := rec.GameID()
	require.True(t, ok)
	assert.Equal(t, "doom.id.doom2.commercial", id)
	v, ok := rec.Hint("LOAD")
	require.True(t, ok)
	assert.Equal(t, "extras.pk3,music.pk3", v)
}

func TestEmbeddedIWADIdentifiesGame(t *testing.T) {
	var lumps []wadtest.Lump
	for _, n := range []string{"PLAYPAL", "COLORMAP", "TITLEPIC", "MAP01", "MAP02"} {
		lumps = append(lumps, wadtest.Lump{Name: n, Data: []byte{0}})
	}
	rec := readBundle(t, nil,
		wadtest.File{Name: "base.iwad", Data: wadtest.Build("IWAD", lumps...)},
		wadtest.File{Name: "GAMEINFO", Data: []byte("IWAD = heretic.wad\n")},
	)

	id, ok := rec.GameID()
	require.True(t, ok)
	assert.Equal(t, "doom.id.doom2.commercial", id)
}

func TestBrokenPayload(t *testing.T) {
	good := wadtest.Build("PWAD", wadtest.MapLumps("MAP03")...)
	truncated := wadtest.Build("PWAD", wadtest.MapLumps("MAP04")...)
	truncated = truncated[:len(truncated)-5]

	rec := readBundle(t, nil,
		wadtest.File{Name: "broken.wad", Data: truncated},
		wadtest.File{Name: "notawad.wad", Data: []byte("just text")},
		wadtest.File{Name: "good.wad", Data: good},
	)

	assert.Equal(t, []string{"MAP03"}, rec.MapNames())
	assert.True(t, hasWarning(rec, "payload broken.wad"))
	assert.True(t, hasWarning(rec, "payload notawad.wad"))
}

func TestPayloadWarningsPrefixed(t *testing.T) {
	pwad := wadtest.Build("PWAD", wadtest.Marker("MAP01"), wadtest.Lump{Name: "PLAYPAL", Data: []byte{1}})
	rec := readBundle(t, nil, wadtest.File{Name: "odd.wad", Data: pwad})

	assert.Contains(t, rec.Warnings(), "odd.wad: map marker MAP01 has no map data")
}

func TestPayloadSizeLimit(t *testing.T) {
	pwad := wadtest.Build("PWAD", wadtest.MapLumps("MAP01")...)
	rec := readBundle(t, []bundle.Option{bundle.WithMaxPayloadSize(32)},
		wadtest.File{Name: "mod.wad", Data: pwad},
	)

	assert.Empty(t, rec.MapNames())
	assert.True(t, hasWarning(rec, "larger than 32"))
}

func TestNotABundle(t *testing.T) {
	_, err := bundle.Read(source.NewMemory([]byte("PWAD\x00\x00\x00\x00\x0c\x00\x00\x00")))
	require.ErrorIs(t, err, metadata.ErrUnsupportedFormat)
	assert.Equal(t, metadata.FailureUnsupportedFormat, metadata.KindOf(err))
}

func TestTruncatedBundle(t *testing.T) {
	data, err := wadtest.Zip(wadtest.File{Name: "mod.wad", Data: wadtest.Build("PWAD", wadtest.MapLumps("MAP01")...)})
	require.NoError(t, err)

	_, err = bundle.Read(source.NewMemory(data[:len(data)-10]))
	require.ErrorIs(t, err, metadata.ErrUnsupportedFormat)
}
