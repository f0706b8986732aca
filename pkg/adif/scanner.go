package adif

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokenEnd tokenKind = iota
	tokenField
	tokenEOR
	tokenEOH
)

type token struct {
	kind  tokenKind
	tag   string
	value string
}

// span is one physical line of the input: text[start:end], terminator
// excluded.
type span struct {
	start, end int
}

// splitLines splits text on \r\n, \r and \n. A trailing terminator yields a
// final empty line.
func splitLines(text string) []span {
	var lines []span
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, span{start, i})
			start = i + 1
		case '\r':
			lines = append(lines, span{start, i})
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	return append(lines, span{start, len(text)})
}

// scanner reads tokens from text within the current line text[pos:end].
// Every token starts on the line; only a field value may run past end, when
// the value itself holds line breaks.
type scanner struct {
	text string
	pos  int
	end  int
}

// next returns the next token, or tokenEnd at the end of the line. When the
// rest of the line cannot be read it returns a description of the problem.
func (s *scanner) next() (token, string) {
	// Whitespace between tokens is insignificant.
	for s.pos < s.end {
		r, size := utf8.DecodeRuneInString(s.text[s.pos:s.end])
		if !unicode.IsSpace(r) {
			break
		}
		s.pos += size
	}
	if s.pos >= s.end {
		return token{kind: tokenEnd}, ""
	}

	rest := s.text[s.pos:s.end]
	if rest[0] != '<' {
		return token{}, fmt.Sprintf("Unparseable content: %q", clip(strings.TrimRightFunc(rest, unicode.IsSpace)))
	}
	closeIdx := strings.IndexByte(rest, '>')
	if closeIdx < 0 {
		return token{}, fmt.Sprintf("Unterminated field tag: %q", clip(rest))
	}
	inner := rest[1:closeIdx]

	switch inner {
	case "eor":
		s.pos += closeIdx + 1
		return token{kind: tokenEOR}, ""
	case "EOH":
		s.pos += closeIdx + 1
		return token{kind: tokenEOH}, ""
	}

	colon := strings.IndexByte(inner, ':')
	if colon <= 0 {
		return token{}, fmt.Sprintf("Unrecognized field: %q", clip(rest[:closeIdx+1]))
	}
	tag, lenText := inner[:colon], inner[colon+1:]
	if !isDigits(lenText) {
		return token{}, fmt.Sprintf("Invalid length in field %s: %q", tag, lenText)
	}
	n, err := strconv.Atoi(lenText)
	if err != nil {
		return token{}, fmt.Sprintf("Invalid length in field %s: %q", tag, lenText)
	}

	valueStart := s.pos + closeIdx + 1
	onLine := s.text[valueStart:s.end]
	value, ok := takeRunes(onLine, n)
	if !ok {
		// A longer value continues onto the following lines, provided it
		// ends where another token or a line break can begin.
		value, ok = takeRunes(s.text[valueStart:], n)
		if !ok || !atTokenBoundary(s.text[valueStart+len(value):]) {
			return token{}, fmt.Sprintf("Field %s declares %d characters but only %d remain",
				tag, n, utf8.RuneCountInString(onLine))
		}
	}
	s.pos = valueStart + len(value)
	return token{kind: tokenField, tag: strings.ToUpper(tag), value: value}, ""
}

// follow moves the scanner onto the line holding pos after a value that ran
// past the end of line i, and returns that line's index.
func (s *scanner) follow(lines []span, i int) int {
	for i < len(lines)-1 && lines[i].end < s.pos {
		i++
	}
	if s.pos < lines[i].start {
		// The value ended inside a \r\n terminator.
		s.pos = lines[i].start
	}
	s.end = lines[i].end
	return i
}

func atTokenBoundary(s string) bool {
	s = strings.TrimLeft(s, " \t")
	return s == "" || s[0] == '<' || s[0] == '\r' || s[0] == '\n'
}

// takeRunes returns the first n runes of s.
func takeRunes(s string, n int) (string, bool) {
	i := 0
	for count := 0; count < n; count++ {
		if i >= len(s) {
			return "", false
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i], true
}

func clip(s string) string {
	const limit = 40
	if head, ok := takeRunes(s, limit); ok && len(head) < len(s) {
		return head + "..."
	}
	return s
}
