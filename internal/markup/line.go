// internal/markup/line.go
package markup

import (
	"regexp"
	"strings"
)

// LineKind identifies the syntactic role of a single line of producer text.
type LineKind string

const (
	// HeaderLine is a level-2 or level-3 markdown header ("## Title", "### Title").
	HeaderLine LineKind = "header"
	// BoldKeyLine is a bold key/value pair ("**Key:** value").
	BoldKeyLine LineKind = "bold_key"
	// BulletLine is a list item introduced by "-", "•" or "*".
	BulletLine LineKind = "bullet"
	// PlainLine is anything else, including blank lines.
	PlainLine LineKind = "plain"
)

var (
	// headerRegex matches level-2/3 headers. Four or more hashes fail the
	// whitespace requirement after backtracking, so "#### X" stays plain.
	headerRegex = regexp.MustCompile(`^(#{2,3})\s+(.+)$`)

	// boldKeyRegex matches the producer's "**Key:** value" convention. The
	// colon must sit inside the bold markers.
	boldKeyRegex = regexp.MustCompile(`^\*\*([^*]+):\*\*\s*(.*)$`)

	// bulletRegex matches list markers followed by at least one space, which
	// keeps bold text ("**x**") and horizontal rules ("---") out.
	bulletRegex = regexp.MustCompile(`^[-•*]\s+(.+)$`)
)

// Line is one classified line of input. Raw always holds the original text;
// the remaining fields are populated according to Kind.
type Line struct {
	Kind LineKind
	Raw  string

	// HeaderLine fields.
	Level int
	Title string

	// BoldKeyLine fields.
	Key   string
	Value string

	// BulletLine field.
	Text string
}

// Classify tags a single line. Classification works on the
// whitespace-trimmed text, so indented bullets and headers still match, but
// Raw preserves the line exactly as supplied.
func Classify(raw string) Line {
	line := Line{Kind: PlainLine, Raw: raw}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return line
	}

	if m := headerRegex.FindStringSubmatch(trimmed); m != nil {
		line.Kind = HeaderLine
		line.Level = len(m[1])
		line.Title = strings.TrimSpace(m[2])
		return line
	}
	if m := boldKeyRegex.FindStringSubmatch(trimmed); m != nil {
		line.Kind = BoldKeyLine
		line.Key = strings.TrimSpace(m[1])
		line.Value = strings.TrimSpace(m[2])
		return line
	}
	if m := bulletRegex.FindStringSubmatch(trimmed); m != nil {
		line.Kind = BulletLine
		line.Text = strings.TrimSpace(m[1])
		return line
	}
	return line
}

// ClassifyAll splits a document into lines and classifies each one. Carriage
// returns from CRLF input are stripped before classification.
func ClassifyAll(text string) []Line {
	rawLines := strings.Split(text, "\n")
	lines := make([]Line, 0, len(rawLines))
	for _, raw := range rawLines {
		lines = append(lines, Classify(strings.TrimSuffix(raw, "\r")))
	}
	return lines
}

// Blank reports whether the line contains no visible text.
func (l Line) Blank() bool {
	return strings.TrimSpace(l.Raw) == ""
}

// stripMarkup removes inline emphasis and code markers from a value.
func stripMarkup(s string) string {
	s = strings.ReplaceAll(s, "*", "")
	s = strings.ReplaceAll(s, "`", "")
	return strings.TrimSpace(s)
}
