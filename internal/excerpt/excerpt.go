// Package excerpt cuts markdown memory files into sections and fits them into byte budgets.
package excerpt

import (
	"strings"
	"unicode/utf8"
)

// Section is a run of lines delimited by headings or blank-line pairs.
type Section struct {
	Text      string `json:"text" yaml:"text" toml:"text"`
	StartLine int    `json:"start_line" yaml:"start_line" toml:"start_line"`
	EndLine   int    `json:"end_line" yaml:"end_line" toml:"end_line"`
}

// Sections splits text before every heading line and between two consecutive blank
// lines. Joining the Text of all sections with "\n" gives back the input.
func Sections(text string) []Section {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	var sections []Section
	start := 0

	flush := func(end int) {
		if end <= start {
			return
		}
		sections = append(sections, Section{
			Text:      strings.Join(lines[start:end], "\n"),
			StartLine: start + 1,
			EndLine:   end,
		})
		start = end
	}

	prevBlank := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			flush(i)
		case trimmed == "" && prevBlank:
			flush(i)
		}
		prevBlank = trimmed == ""
	}
	flush(len(lines))
	return sections
}

// Fit returns the longest prefix of text that fits in max bytes, cut at a section
// boundary when one fits, otherwise at a line boundary, otherwise at a rune boundary.
// The bool reports whether anything was cut.
func Fit(text string, max int) (string, bool) {
	if len(text) <= max {
		return text, false
	}
	if max <= 0 {
		return "", true
	}

	n := 0
	for i, s := range Sections(text) {
		size := len(s.Text)
		if i > 0 {
			size++ // separating newline
		}
		if n+size > max {
			break
		}
		n += size
	}
	if n > 0 {
		return text[:n], true
	}

	for {
		i := strings.IndexByte(text[n:], '\n')
		if i < 0 || n+i > max {
			break
		}
		n += i + 1
	}
	if n > 0 {
		return strings.TrimSuffix(text[:n], "\n"), true
	}

	cut := max
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut], true
}

// Find returns the first section containing query, compared case-insensitively.
func Find(text, query string) (Section, bool) {
	q := strings.ToLower(query)
	if q == "" {
		return Section{}, false
	}
	for _, s := range Sections(text) {
		if strings.Contains(strings.ToLower(s.Text), q) {
			return s, true
		}
	}
	return Section{}, false
}
