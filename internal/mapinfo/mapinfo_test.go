package mapinfo_test

import (
	"testing"

	"github.com/jchantrell/wadinfo/internal/mapinfo"
	"github.com/jchantrell/wadinfo/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOldSyntax(t *testing.T) {
	text := `
// old ZDoom MAPINFO
map MAP01 "Entryway"
levelnum 1
next MAP02
sky1 SKY1 0
music $MUSIC_RUNNIN ; trailing comment

map map02 "Underhalls"
next MAP03

map MAP03 lookup "HUSTR_3"
clusterdef 1
`
	d := mapinfo.Parse([]byte(text))

	require.Len(t, d.Maps, 3)
	assert.Equal(t, mapinfo.Map{ID: "MAP01", Title: "Entryway"}, d.Maps[0])
	assert.Equal(t, mapinfo.Map{ID: "MAP02", Title: "Underhalls"}, d.Maps[1])
	assert.Equal(t, mapinfo.Map{ID: "MAP03"}, d.Maps[2])
}

func TestParseNewSyntax(t *testing.T) {
	text := `
gameinfo
{
	titlepage = "TITLEPIC"
	infopage = "HELP1", "CREDIT"
}

/* the episode block
   also has map keys */
episode MAP01
{
	name = "Knee Deep"
}

map E1M1 "Hangar"
{
	next = "E1M2"
	sky1 = "SKY1", 0
	{ nested = "ignored" }
}

map E1M2 lookup "HUSTR_E1M2" { next = "E1M3" }
`
	d := mapinfo.Parse([]byte(text))

	require.Len(t, d.Maps, 2)
	assert.Equal(t, "Hangar", d.Title("e1m1"))
	assert.Equal(t, "", d.Title("E1M2"))
	assert.Equal(t, "TITLEPIC", d.Hints["titlepage"])
	assert.Equal(t, "HELP1,CREDIT", d.Hints["infopage"])
}

func TestParseUMAPINFO(t *testing.T) {
	text := `
MAP MAP01
{
	levelname = "Hell \"Gate\""
	label = "E1"
	next = "MAP02"
}
MAP MAP02 { levelname = "Second" }
`
	d := mapinfo.Parse([]byte(text))

	require.Len(t, d.Maps, 2)
	assert.Equal(t, `Hell "Gate"`, d.Maps[0].Title)
	assert.Equal(t, "Second", d.Maps[1].Title)
}

func TestParseIgnoresMalformed(t *testing.T) {
	for name, text := range map[string]string{
		"empty":               "",
		"dangling map":        "map",
		"id on next line":     "map\nMAP01",
		"bad id":              `map MAP-01 "x"`,
		"unterminated string": `map MAP01 "never closed`,
		"unterminated block":  "map MAP01 { levelname = ",
		"unterminated remark": "/* map MAP01",
		"stray braces":        "}}} map MAP09 {{{",
	} {
		t.Run(name, func(t *testing.T) {
			assert.NotPanics(t, func() { mapinfo.Parse([]byte(text)) })
		})
	}

	assert.Empty(t, mapinfo.Parse([]byte("/* map MAP01")).Maps)
	assert.Empty(t, mapinfo.Parse([]byte(`map MAP-01 "x"`)).Maps)
	d := mapinfo.Parse([]byte(`map MAP01 "never closed`))
	require.Len(t, d.Maps, 1)
	assert.Equal(t, "never closed", d.Maps[0].Title)
}

func TestParseMapKeywordMustStartLine(t *testing.T) {
	d := mapinfo.Parse([]byte("next map MAP05\nmap MAP06"))
	require.Len(t, d.Maps, 1)
	assert.Equal(t, "MAP06", d.Maps[0].ID)
}

func TestLaterDefinitionUpdatesTitle(t *testing.T) {
	d := mapinfo.Parse([]byte("map MAP01 \"First\"\nmap MAP01 \"Second\"\nmap MAP01"))
	require.Len(t, d.Maps, 1)
	assert.Equal(t, "Second", d.Maps[0].Title)
}

func TestParseGameInfo(t *testing.T) {
	text := `
// GAMEINFO
IWAD = "doom2.wad"
LOAD = "extras.pk3", "music.wad"
STARTUPTITLE = "My Mod"
garbage line without equals
`
	props := mapinfo.ParseGameInfo([]byte(text))
	assert.Equal(t, map[string]string{
		"iwad":         "doom2.wad",
		"load":         "extras.pk3,music.wad",
		"startuptitle": "My Mod",
	}, props)
}

func TestApply(t *testing.T) {
	b := metadata.NewBuilder(metadata.KindBundle)
	b.AddMap("MAP01").AddMap("MAP02")

	d := mapinfo.Parse([]byte("map MAP01 \"Entryway\"\nmap MAP30 \"Icon\"\ngameinfo { titlemusic = \"D_DM2TTL\" }"))
	d.Apply(b)
	r := b.Build()

	assert.ElementsMatch(t, []string{"MAP01", "MAP02", "MAP30"}, r.MapNames())
	assert.Equal(t, "Entryway", r.MapTitle("MAP01"))
	assert.Equal(t, "MAP02", r.MapTitle("MAP02"))
	v, ok := r.Hint("titlemusic")
	assert.True(t, ok)
	assert.Equal(t, "D_DM2TTL", v)
}
