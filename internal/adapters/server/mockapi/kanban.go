package mockapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/gin-gonic/gin"
)

type moveRequest struct {
	EmailID  string `json:"email_id" binding:"required"`
	ToStatus string `json:"to_status" binding:"required"`
}

type snoozeRequest struct {
	EmailID string `json:"email_id" binding:"required"`
	Until   string `json:"until" binding:"required"`
}

type summarizeRequest struct {
	EmailID string `json:"email_id" binding:"required"`
}

type columnRequest struct {
	Label      string `json:"label"`
	GmailLabel string `json:"gmailLabel"`
	Color      string `json:"color"`
	Order      *int   `json:"order"`
}

type reorderRequest struct {
	ColumnIDs []string `json:"columnIds" binding:"required"`
}

func (s *Server) board(c *gin.Context) {
	unread := c.Query("unread") == "true"
	withAttachments := c.Query("hasAttachments") == "true"
	sortBy := c.DefaultQuery("sortBy", "received_at")
	sortOrder := c.DefaultQuery("sortOrder", "desc")

	s.mu.Lock()
	defer s.mu.Unlock()
	s.wakeLocked(s.opts.Now())

	var picked []*message
	for _, m := range s.messages {
		if !m.onBoard() {
			continue
		}
		if unread && m.IsRead {
			continue
		}
		if withAttachments && len(m.Attachments) == 0 {
			continue
		}
		picked = append(picked, m)
	}
	slices.SortStableFunc(picked, func(a, b *message) int {
		var cmp int
		if sortBy == "sender" {
			cmp = strings.Compare(strings.ToLower(a.card().Sender), strings.ToLower(b.card().Sender))
		} else {
			cmp = a.ReceivedAt.Compare(b.ReceivedAt)
		}
		if sortOrder == "desc" {
			return -cmp
		}
		return cmp
	})

	columns := map[string][]cardJSON{}
	for _, col := range s.columns {
		columns[col.Key] = []cardJSON{}
	}
	for _, m := range picked {
		columns[m.Status] = append(columns[m.Status], m.card())
	}
	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

func (s *Server) boardMeta(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meta := make([]gin.H, 0, len(s.columns))
	for _, col := range s.sortedColumnsLocked() {
		meta = append(meta, gin.H{"key": col.Key, "label": col.Label, "color": col.Color})
	}
	c.JSON(http.StatusOK, gin.H{"columns": meta})
}

func (s *Server) moveCard(c *gin.Context) {
	var req moveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_id and to_status are required"})
		return
	}
	if s.failMoves.Load() {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "move failed"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(req.EmailID)
	if m == nil || !m.onBoard() {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	col := s.columnByKeyLocked(req.ToStatus)
	if col == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown column"})
		return
	}
	if prev := s.columnByKeyLocked(m.Status); prev != nil && prev.GmailLabel != "" {
		delete(m.Labels, prev.GmailLabel)
	}
	if col.GmailLabel != "" {
		m.Labels[col.GmailLabel] = true
	}
	m.Status = col.Key
	if col.Key != statusSnoozed {
		m.SnoozedUntil = nil
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "card": m.card()})
}

func (s *Server) snoozeCard(c *gin.Context) {
	var req snoozeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_id and until are required"})
		return
	}
	until, err := time.Parse(time.RFC3339, req.Until)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "until must be an RFC3339 timestamp"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(req.EmailID)
	if m == nil || !m.onBoard() {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	if !until.After(s.opts.Now()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "until must be in the future"})
		return
	}
	until = until.UTC()
	m.SnoozedUntil = &until
	m.Status = statusSnoozed
	c.JSON(http.StatusOK, gin.H{"ok": true, "card": m.card()})
}

func (s *Server) summarizeCard(c *gin.Context) {
	var req summarizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email_id is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(req.EmailID)
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	m.Summary = summarize(m)
	c.JSON(http.StatusOK, gin.H{"ok": true, "summary": m.Summary})
}

// summarize keeps the first two sentences of the plain-text body.
func summarize(m *message) string {
	var lines []string
	for _, line := range strings.Split(m.Body, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#-*|0123456789. "))
		line = strings.ReplaceAll(line, "**", "")
		if line != "" {
			lines = append(lines, line)
		}
	}
	text := strings.Join(lines, " ")
	var b strings.Builder
	sentences := 0
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			sentences++
			if sentences == 2 {
				break
			}
		}
	}
	out := strings.TrimSpace(b.String())
	if runes := []rune(out); len(runes) > 200 {
		out = strings.TrimSpace(string(runes[:199])) + "…"
	}
	if out == "" {
		out = m.Subject
	}
	return out
}

func (s *Server) listColumns(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"columns": s.sortedColumnsLocked()})
}

func (s *Server) createColumn(c *gin.Context) {
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Label) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "label is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col := &column{
		ID:         newID("col-"),
		UserID:     currentUser(c).ID,
		Key:        s.uniqueKeyLocked(req.Label),
		Label:      strings.TrimSpace(req.Label),
		Order:      len(s.columns),
		GmailLabel: strings.TrimSpace(req.GmailLabel),
		Color:      strings.TrimSpace(req.Color),
	}
	s.columns = append(s.columns, col)
	c.JSON(http.StatusCreated, col)
}

func (s *Server) uniqueKeyLocked(label string) string {
	base := strings.Join(strings.FieldsFunc(strings.ToLower(label), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}), "_")
	if base == "" {
		base = "custom"
	}
	key := base
	for i := 2; s.columnByKeyLocked(key) != nil; i++ {
		key = base + "_" + strconv.Itoa(i)
	}
	return key
}

func (s *Server) updateColumn(c *gin.Context) {
	var req columnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	col, _ := s.columnLocked(c.Param("id"))
	if col == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "column not found"})
		return
	}
	if label := strings.TrimSpace(req.Label); label != "" {
		col.Label = label
	}
	col.GmailLabel = strings.TrimSpace(req.GmailLabel)
	col.Color = strings.TrimSpace(req.Color)
	if req.Order != nil && *req.Order >= 0 {
		col.Order = *req.Order
	}
	c.JSON(http.StatusOK, col)
}

func (s *Server) deleteColumn(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	col, idx := s.columnLocked(c.Param("id"))
	if col == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "column not found"})
		return
	}
	if col.IsDefault {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot delete default column"})
		return
	}
	s.columns = slices.Delete(s.columns, idx, idx+1)
	for _, m := range s.messages {
		if m.Status == col.Key {
			m.Status = statusInbox
		}
	}
	s.renumberLocked()
	c.JSON(http.StatusOK, gin.H{"columns": s.sortedColumnsLocked()})
}

func (s *Server) reorderColumns(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "columnIds is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	ordered := make([]*column, 0, len(s.columns))
	for _, id := range req.ColumnIDs {
		col, _ := s.columnLocked(id)
		if col == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown column id " + id})
			return
		}
		if !slices.Contains(ordered, col) {
			ordered = append(ordered, col)
		}
	}
	for _, col := range s.sortedColumnsLocked() {
		if !slices.ContainsFunc(ordered, func(o *column) bool { return o.ID == col.ID }) {
			ptr, _ := s.columnLocked(col.ID)
			ordered = append(ordered, ptr)
		}
	}
	for i, col := range ordered {
		col.Order = i
	}
	s.columns = ordered
	c.JSON(http.StatusOK, gin.H{"columns": s.sortedColumnsLocked()})
}

func (s *Server) renumberLocked() {
	slices.SortStableFunc(s.columns, func(a, b *column) int { return a.Order - b.Order })
	for i, col := range s.columns {
		col.Order = i
	}
}

func (s *Server) listLabels(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"labels": slices.Clone(s.labels)})
}
