// Package render binds report data into placeholder-based text templates.
//
// A placeholder is "{" identifier "}" where the identifier matches
// [A-Za-z_][A-Za-z0-9_]*. "{{" and "}}" produce literal braces, and any other
// brace is copied through unchanged. The escapes apply everywhere, so a closing
// "}}" in prose such as nested JSON also collapses to a single "}".
package render

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/naka-gawa/weekly-report/internal/domain"
)

//go:embed default_template.md
var defaultTemplate string

type segment struct {
	text        string
	placeholder string
}

// Template is a parsed template document: literal text interleaved with named placeholders.
type Template struct {
	segments []segment
}

// Parse splits text into literal segments and placeholders.
func Parse(text string) *Template {
	t := &Template{}
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(text); {
		switch c := text[i]; {
		case c == '{' && i+1 < len(text) && text[i+1] == '{':
			lit.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(text) && text[i+1] == '}':
			lit.WriteByte('}')
			i += 2
		case c == '{':
			if name, n := scanPlaceholder(text[i:]); n > 0 {
				flush()
				t.segments = append(t.segments, segment{placeholder: name})
				i += n
				continue
			}
			lit.WriteByte(c)
			i++
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return t
}

// Default returns the template shipped with the binary.
func Default() *Template {
	return Parse(defaultTemplate)
}

// Load reads and parses a template file. An empty path yields the default template.
func Load(path string) (*Template, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read template %s: %w", path, err)
	}
	return Parse(string(data)), nil
}

// scanPlaceholder returns the placeholder name at the start of s and the
// number of bytes it spans, or 0 if s does not start with a placeholder.
func scanPlaceholder(s string) (string, int) {
	end := strings.IndexByte(s, '}')
	if end < 2 {
		return "", 0
	}
	name := s[1:end]
	if !isIdentifier(name) {
		return "", 0
	}
	return name, end + 1
}

func isIdentifier(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '_', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9' && i > 0:
		default:
			return false
		}
	}
	return s != ""
}

// Placeholders returns the distinct placeholder names in order of first use.
func (t *Template) Placeholders() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.placeholder != "" && !slices.Contains(names, seg.placeholder) {
			names = append(names, seg.placeholder)
		}
	}
	return names
}

// Validate checks every placeholder against a closed set of known field names.
func (t *Template) Validate(known []string) error {
	for _, name := range t.Placeholders() {
		if !slices.Contains(known, name) {
			return &domain.MissingPlaceholderError{Name: name}
		}
	}
	return nil
}

// Render substitutes every placeholder with its value from data.
// It fails on the first placeholder that has no value and never returns partial output.
func Render(t *Template, data domain.ReportData) (string, error) {
	var sb strings.Builder
	for _, seg := range t.segments {
		if seg.placeholder == "" {
			sb.WriteString(seg.text)
			continue
		}
		v, ok := data.Get(seg.placeholder)
		if !ok {
			return "", &domain.MissingPlaceholderError{Name: seg.placeholder}
		}
		sb.WriteString(v)
	}
	return sb.String(), nil
}

// String renders text with values directly. It is a convenience for short
// templates such as email bodies.
func String(text string, values map[string]string) (string, error) {
	return Render(Parse(text), domain.NewReportData(values))
}
