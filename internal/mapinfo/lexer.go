package mapinfo

import "strings"

type tokenKind int

const (
	tokWord tokenKind = iota
	tokString
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	// lineStart is set for the first token on a line.
	lineStart bool
}

func (t token) punct(c byte) bool {
	return t.kind == tokPunct && t.text[0] == c
}

func (t token) keyword(name string) bool {
	return t.kind == tokWord && strings.EqualFold(t.text, name)
}

func (t token) value() bool {
	return t.kind == tokWord || t.kind == tokString
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\f' || c == '\v'
}

func isPunct(c byte) bool {
	return c == '{' || c == '}' || c == '=' || c == ','
}

// tokenize splits descriptor text. It understands //, /* */ and ; comments
// and quoted strings with backslash escapes. Malformed input never fails,
// an unterminated string or comment runs to the end of the text.
func tokenize(text string) []token {
	var toks []token
	lineStart := true

	for i := 0; i < len(text); {
		c := text[i]
		switch {
		case c == '\n':
			lineStart = true
			i++
		case isSpace(c):
			i++
		case c == ';' || (c == '/' && i+1 < len(text) && text[i+1] == '/'):
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(text) && text[i+1] == '*':
			end := strings.Index(text[i+2:], "*/")
			if end < 0 {
				i = len(text)
				break
			}
			if strings.Contains(text[i:i+2+end], "\n") {
				lineStart = true
			}
			i += end + 4
		case c == '"':
			var sb strings.Builder
			i++
			for i < len(text) && text[i] != '"' {
				if text[i] == '\\' && i+1 < len(text) {
					i++
					switch text[i] {
					case 'n':
						sb.WriteByte('\n')
					case 't':
						sb.WriteByte('\t')
					default:
						sb.WriteByte(text[i])
					}
				} else {
					sb.WriteByte(text[i])
				}
				i++
			}
			i++
			toks = append(toks, token{kind: tokString, text: sb.String(), lineStart: lineStart})
			lineStart = false
		case isPunct(c):
			toks = append(toks, token{kind: tokPunct, text: text[i : i+1], lineStart: lineStart})
			lineStart = false
			i++
		default:
			start := i
			for i < len(text) {
				c := text[i]
				if c == '\n' || c == '"' || c == ';' || isSpace(c) || isPunct(c) {
					break
				}
				if c == '/' && i+1 < len(text) && (text[i+1] == '/' || text[i+1] == '*') {
					break
				}
				i++
			}
			toks = append(toks, token{kind: tokWord, text: text[start:i], lineStart: lineStart})
			lineStart = false
		}
	}
	return toks
}
