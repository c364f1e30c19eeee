package utils

import (
	"bytes"
	"path"
	"strings"
)

// LumpName decodes a fixed-size, NUL padded lump name. It reports false when
// the name holds bytes outside printable ASCII.
func LumpName(raw []byte) (string, bool) {
	if i := bytes.IndexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	for _, c := range raw {
		if c < 0x20 || c > 0x7e {
			return "", false
		}
	}
	return string(raw), true
}

// LumpNameFromPath derives a lump name from a file path: the upper-cased base
// name without extension, cut to limit characters. The second result reports
// whether it was cut.
func LumpNameFromPath(p string, limit int) (string, bool) {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	name := strings.ToUpper(base)
	if len(name) > limit {
		return name[:limit], true
	}
	return name, false
}

// Ext returns the lower-cased file extension including the dot.
func Ext(p string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(p, "\\", "/")))
}
