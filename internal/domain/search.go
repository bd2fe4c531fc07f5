package domain

import (
	"math"
	"strings"
)

// SuggestionType is the closed set of suggestion categories.
type SuggestionType string

const (
	SuggestionSender  SuggestionType = "sender"
	SuggestionKeyword SuggestionType = "keyword"
	SuggestionSubject SuggestionType = "subject"
)

// ParseSuggestionType normalizes a wire suggestion type; unknown values are keywords.
func ParseSuggestionType(raw string) SuggestionType {
	switch SuggestionType(strings.ToLower(strings.TrimSpace(raw))) {
	case SuggestionSender:
		return SuggestionSender
	case SuggestionSubject:
		return SuggestionSubject
	default:
		return SuggestionKeyword
	}
}

// Glyph returns the marker shown before a suggestion.
func (t SuggestionType) Glyph() string {
	switch t {
	case SuggestionSender:
		return "@"
	case SuggestionSubject:
		return "≡"
	case SuggestionKeyword:
		return "#"
	default:
		return "#"
	}
}

// Suggestion is one autocomplete entry.
type Suggestion struct {
	Text string
	Type SuggestionType
}

// MinSuggestionChars is the trimmed query length below which no suggestions are requested.
const MinSuggestionChars = 2

// ShouldSuggest reports whether q is long enough to request suggestions.
func ShouldSuggest(q string, minChars int) bool {
	if minChars <= 0 {
		minChars = MinSuggestionChars
	}
	return len([]rune(strings.TrimSpace(q))) >= minChars
}

// SemanticResult is one scored semantic search hit.
type SemanticResult struct {
	Email Email
	Score float64
}

// ScorePercent renders the similarity score as a whole percentage.
func (r SemanticResult) ScorePercent() int {
	s := math.Max(0, math.Min(1, r.Score))
	return int(math.Round(s * 100))
}

// SemanticPage is the response of a semantic search.
type SemanticPage struct {
	Query   string
	Total   int
	Results []SemanticResult
}

// KeywordPage is one page of token-paginated keyword results.
type KeywordPage struct {
	Emails        []Email
	NextPageToken string
	TotalEstimate int
}

// HasMore reports whether another page can be requested.
func (p KeywordPage) HasMore() bool {
	return strings.TrimSpace(p.NextPageToken) != ""
}

// EmbeddingReport is the outcome of an embedding generation run.
type EmbeddingReport struct {
	Processed int
	Failed    int
}
