package mockapi

import (
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/evanschultz/mailkan/internal/highlight"
	"github.com/gin-gonic/gin"
)

const keywordPageSize = 10

type semanticRequest struct {
	Query string `json:"query" binding:"required"`
	Limit int    `json:"limit"`
}

type embeddingsRequest struct {
	Limit int `json:"limit"`
}

// levenshtein is the edit distance between two already folded strings.
func levenshtein(a, b string) int {
	r1, r2 := []rune(a), []rune(b)
	if len(r1) == 0 {
		return len(r2)
	}
	if len(r2) == 0 {
		return len(r1)
	}
	prev := make([]int, len(r2)+1)
	cur := make([]int, len(r2)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(r1); i++ {
		cur[0] = i
		for j := 1; j <= len(r2); j++ {
			cost := 1
			if r1[i-1] == r2[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(r2)]
}

// typoThreshold scales edit tolerance with query length.
func typoThreshold(query string) int {
	n := len([]rune(query))
	switch {
	case n <= 3:
		return 1
	case n >= 8:
		return 3
	default:
		return 2
	}
}

func fuzzyMatch(query, text string, threshold int) bool {
	if strings.Contains(text, query) {
		return true
	}
	for _, word := range strings.Fields(text) {
		if strings.HasPrefix(word, query) || levenshtein(query, word) <= threshold {
			return true
		}
	}
	return false
}

func matchesMessage(query string, m *message) bool {
	q := highlight.Fold(query)
	if q == "" {
		return false
	}
	threshold := typoThreshold(q)
	body := []rune(m.Body)
	if len(body) > 500 {
		body = body[:500]
	}
	for _, field := range []string{m.Subject, m.From.Name, m.From.Email, string(body)} {
		if fuzzyMatch(q, highlight.Fold(field), threshold) {
			return true
		}
	}
	return false
}

// relevance weighs subject hits above sender name hits above address hits.
func relevance(query string, m *message) float64 {
	q := highlight.Fold(query)
	score := 0.0

	subject := highlight.Fold(m.Subject)
	if strings.Contains(subject, q) {
		score += 100
		if slices.Contains(strings.Fields(subject), q) {
			score += 50
		}
	} else {
		for _, word := range strings.Fields(subject) {
			if d := levenshtein(q, word); d <= 2 {
				score += 50 - float64(d)*15
			}
			if strings.HasPrefix(word, q) {
				score += 40
			}
		}
	}

	name := highlight.Fold(m.From.Name)
	if strings.Contains(name, q) {
		score += 80
		if slices.Contains(strings.Fields(name), q) {
			score += 30
		}
	} else {
		for _, word := range strings.Fields(name) {
			if d := levenshtein(q, word); d <= 2 {
				score += 40 - float64(d)*12
			}
			if strings.HasPrefix(word, q) {
				score += 35
			}
		}
	}

	addr := highlight.Fold(m.From.Email)
	if strings.Contains(addr, q) {
		score += 60
	} else if local, _, _ := strings.Cut(addr, "@"); strings.HasPrefix(local, q) {
		score += 30
	}
	return score
}

func (s *Server) keywordSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameter q is required"})
		return
	}
	offset := 0
	if tok := c.Query("pageToken"); tok != "" {
		v, err := strconv.Atoi(tok)
		if err != nil || v < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pageToken"})
			return
		}
		offset = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	type hit struct {
		m     *message
		score float64
	}
	var hits []hit
	for _, m := range s.messages {
		if m.Trashed || !matchesMessage(query, m) {
			continue
		}
		hits = append(hits, hit{m: m, score: relevance(query, m)})
	}
	slices.SortStableFunc(hits, func(a, b hit) int {
		if a.score != b.score {
			if a.score > b.score {
				return -1
			}
			return 1
		}
		return b.m.ReceivedAt.Compare(a.m.ReceivedAt)
	})

	start := min(offset, len(hits))
	end := min(start+keywordPageSize, len(hits))
	emails := make([]emailJSON, 0, end-start)
	for _, h := range hits[start:end] {
		emails = append(emails, h.m.json())
	}
	next := ""
	if end < len(hits) {
		next = strconv.Itoa(end)
	}
	c.JSON(http.StatusOK, gin.H{"emails": emails, "nextPageToken": next, "totalEstimate": len(hits)})
}

// terms folds text into a bag of words.
func terms(text string) map[string]float64 {
	out := map[string]float64{}
	for _, w := range strings.FieldsFunc(highlight.Fold(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(w)) > 1 {
			out[w]++
		}
	}
	return out
}

// cosine compares two term bags; the result is in [0,1].
func cosine(a, b map[string]float64) float64 {
	var dot, na, nb float64
	for w, x := range a {
		na += x * x
		dot += x * b[w]
	}
	for _, y := range b {
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func (s *Server) semanticSearch(c *gin.Context) {
	var req semanticRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}
	limit := req.Limit
	if limit <= 0 {
		limit = 10
	}
	q := terms(req.Query)

	s.mu.Lock()
	defer s.mu.Unlock()
	type result struct {
		Email emailJSON `json:"email"`
		Score float64   `json:"score"`
	}
	var results []result
	for _, m := range s.messages {
		if m.Trashed {
			continue
		}
		score := cosine(q, terms(m.Subject+" "+m.From.Name+" "+m.Body))
		if score <= 0 {
			continue
		}
		results = append(results, result{Email: m.json(), Score: math.Round(score*1000) / 1000})
	}
	slices.SortStableFunc(results, func(a, b result) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []result{}
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "query": req.Query, "total": len(results)})
}

func (s *Server) suggestions(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	out := []gin.H{}
	if len([]rune(query)) < 2 {
		c.JSON(http.StatusOK, gin.H{"suggestions": out})
		return
	}
	q := highlight.Fold(query)

	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	add := func(text, kind string) {
		key := kind + "\x00" + strings.ToLower(text)
		if len(out) >= 8 || seen[key] {
			return
		}
		seen[key] = true
		out = append(out, gin.H{"text": text, "type": kind})
	}
	for _, m := range s.messages {
		if m.Trashed {
			continue
		}
		if highlight.Contains(m.From.Name, query) {
			add(m.From.Name, "sender")
		}
		if highlight.Contains(m.Subject, query) {
			add(m.Subject, "subject")
		}
	}
	for _, m := range s.messages {
		if m.Trashed {
			continue
		}
		for _, w := range strings.Fields(m.Subject) {
			w = strings.Trim(w, ".,:;!?[]()\"'")
			if strings.HasPrefix(highlight.Fold(w), q) {
				add(w, "keyword")
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"suggestions": out})
}

func (s *Server) generateEmbeddings(c *gin.Context) {
	var req embeddingsRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	processed := 0
	for _, m := range s.messages {
		if req.Limit > 0 && processed >= req.Limit {
			break
		}
		if s.embedded[m.ID] {
			continue
		}
		s.embedded[m.ID] = true
		processed++
	}
	c.JSON(http.StatusOK, gin.H{"processed": processed, "failed": 0})
}
