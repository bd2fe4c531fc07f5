// Package highlight finds query matches in text while ignoring Vietnamese and
// other Latin diacritics.
package highlight

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// variants maps a base letter to the character class matching it and its accented forms.
var variants = map[rune]string{
	'a': "[aàáạảãâầấậẩẫăằắặẳẵ]",
	'e': "[eèéẹẻẽêềếệểễ]",
	'i': "[iìíịỉĩ]",
	'o': "[oòóọỏõôồốộổỗơờớợởỡ]",
	'u': "[uùúụủũưừứựửữ]",
	'y': "[yỳýỵỷỹ]",
	'd': "[dđ]",
}

// Segment is a run of text that either matches the query or does not.
type Segment struct {
	Text  string
	Match bool
}

// Pattern compiles query into a case-insensitive, accent-tolerant expression.
// A blank query yields a nil pattern.
func Pattern(query string) (*regexp.Regexp, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	var b strings.Builder
	b.WriteString("(?i)")
	for _, r := range strings.ToLower(query) {
		if class, ok := variants[r]; ok {
			b.WriteString(class)
			continue
		}
		b.WriteString(regexp.QuoteMeta(string(r)))
	}
	return regexp.Compile(b.String())
}

// Segments splits text into matching and non-matching runs. Text is returned
// as a single plain segment when the query is blank or cannot be compiled.
func Segments(text, query string) []Segment {
	re, err := Pattern(query)
	if err != nil || re == nil {
		return plain(text)
	}
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return plain(text)
	}
	out := make([]Segment, 0, len(locs)*2+1)
	last := 0
	for _, loc := range locs {
		if loc[0] == loc[1] {
			continue
		}
		if loc[0] > last {
			out = append(out, Segment{Text: text[last:loc[0]]})
		}
		out = append(out, Segment{Text: text[loc[0]:loc[1]], Match: true})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	return out
}

// Apply renders text with every match passed through mark.
func Apply(text, query string, mark func(string) string) string {
	segs := Segments(text, query)
	var b strings.Builder
	for _, s := range segs {
		if s.Match && mark != nil {
			b.WriteString(mark(s.Text))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

func plain(text string) []Segment {
	if text == "" {
		return nil
	}
	return []Segment{{Text: text}}
}

// Fold lowercases s and strips combining marks so "Đà Nẵng" compares equal to "da nang".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.Map(func(r rune) rune {
		switch r {
		case 'đ', 'Đ':
			return 'd'
		}
		return r
	}, out)
	return strings.ToLower(out)
}

// Contains reports whether needle occurs in haystack after folding both.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
