// Package mapinfo extracts map titles and game hints from the textual map
// descriptors found in archives: MAPINFO in its old and new ZDoom syntax,
// ZMAPINFO, UMAPINFO, and the GAMEINFO key/value lump.
package mapinfo

import (
	"strings"

	"github.com/jchantrell/wadinfo/internal/metadata"
)

// DefaultMaxSize is the largest descriptor text readers will parse.
const DefaultMaxSize = 10 << 20

// Map is a map definition from a descriptor.
type Map struct {
	ID    string
	Title string
}

// Descriptor is the parsed content of a map descriptor lump.
type Descriptor struct {
	Maps  []Map
	Hints map[string]string
}

// Title returns the title defined for a map, if any.
func (d *Descriptor) Title(id string) string {
	for _, m := range d.Maps {
		if strings.EqualFold(m.ID, id) {
			return m.Title
		}
	}
	return ""
}

// Parse reads a MAPINFO, ZMAPINFO or UMAPINFO text. Unknown constructs are
// skipped.
func Parse(text []byte) *Descriptor {
	d := &Descriptor{Hints: map[string]string{}}
	toks := tokenize(string(text))

	depth := 0
	for i := 0; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.punct('{'):
			depth++
		case t.punct('}'):
			if depth > 0 {
				depth--
			}
		case depth == 0 && t.lineStart && t.keyword("map"):
			i = d.parseMap(toks, i+1)
		case depth == 0 && t.keyword("gameinfo"):
			i = d.parseGameInfo(toks, i+1)
		}
	}
	return d
}

// parseMap reads a map header starting at toks[i] and returns the index of
// the last token it consumed.
func (d *Descriptor) parseMap(toks []token, i int) int {
	if i >= len(toks) || !toks[i].value() || toks[i].lineStart {
		return i - 1
	}
	id := strings.ToUpper(toks[i].text)
	i++

	var title string
	if i < len(toks) && !toks[i].lineStart {
		switch {
		case toks[i].kind == tokString:
			title = toks[i].text
			i++
		case toks[i].keyword("lookup") && i+1 < len(toks) && toks[i+1].kind == tokString:
			// language lookups cannot be resolved without the engine's string tables
			i += 2
		}
	}

	last := i - 1
	if i < len(toks) && toks[i].punct('{') {
		var props map[string]string
		props, last = parseBlock(toks, i)
		if v, ok := props["levelname"]; ok {
			title = v
		}
	}

	if validMapID(id) {
		d.addMap(id, title)
	}
	return last
}

func (d *Descriptor) parseGameInfo(toks []token, i int) int {
	if i >= len(toks) || !toks[i].punct('{') {
		return i - 1
	}
	props, last := parseBlock(toks, i)
	for k, v := range props {
		d.Hints[k] = v
	}
	return last
}

func (d *Descriptor) addMap(id, title string) {
	for n := range d.Maps {
		if d.Maps[n].ID == id {
			if title != "" {
				d.Maps[n].Title = title
			}
			return
		}
	}
	d.Maps = append(d.Maps, Map{ID: id, Title: title})
}

// parseBlock reads `key = value[, value]` pairs of a brace block opened at
// toks[open]. Nested blocks are skipped. It returns the properties with
// lower-cased keys and the index of the closing brace.
func parseBlock(toks []token, open int) (map[string]string, int) {
	props := map[string]string{}
	depth := 0
	for i := open; i < len(toks); i++ {
		t := toks[i]
		switch {
		case t.punct('{'):
			depth++
		case t.punct('}'):
			depth--
			if depth == 0 {
				return props, i
			}
		case depth == 1 && t.kind == tokWord && i+2 < len(toks) && toks[i+1].punct('='):
			values, next := readValues(toks, i+2)
			props[strings.ToLower(t.text)] = strings.Join(values, ",")
			i = next - 1
		}
	}
	return props, len(toks) - 1
}

// readValues collects a comma separated value list starting at toks[i] and
// returns it with the index of the first token after it.
func readValues(toks []token, i int) ([]string, int) {
	var values []string
	for i < len(toks) && toks[i].value() {
		values = append(values, toks[i].text)
		i++
		if i < len(toks) && toks[i].punct(',') {
			i++
			continue
		}
		break
	}
	return values, i
}

func validMapID(id string) bool {
	if id == "" {
		return false
	}
	for _, c := range id {
		if !(c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_') {
			return false
		}
	}
	return true
}

// ParseGameInfo reads a GAMEINFO lump, one `KEY = value[, value]` per line.
// Keys are lower-cased.
func ParseGameInfo(text []byte) map[string]string {
	props := map[string]string{}
	toks := tokenize(string(text))
	for i := 0; i+2 < len(toks); i++ {
		t := toks[i]
		if !t.lineStart || t.kind != tokWord || !toks[i+1].punct('=') {
			continue
		}
		values, next := readValues(toks, i+2)
		if len(values) > 0 {
			props[strings.ToLower(t.text)] = strings.Join(values, ",")
		}
		i = next - 1
	}
	return props
}

// Apply merges the descriptor into b. Maps are added to the existing set and
// titles are set only where the descriptor defines one.
func (d *Descriptor) Apply(b *metadata.Builder) {
	for _, m := range d.Maps {
		b.AddMap(m.ID)
		b.SetMapTitle(m.ID, m.Title)
	}
	for k, v := range d.Hints {
		b.SetHint(k, v)
	}
}
