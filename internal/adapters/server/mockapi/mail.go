package mockapi

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type modifyRequest struct {
	AddLabels    []string `json:"addLabels"`
	RemoveLabels []string `json:"removeLabels"`
}

type sendRequest struct {
	To       []string `json:"to"`
	CC       []string `json:"cc"`
	BCC      []string `json:"bcc"`
	Subject  string   `json:"subject"`
	Body     string   `json:"body"`
	ThreadID string   `json:"threadId"`
}

type replyRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *Server) listMailboxes(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]gin.H, 0, len(mailboxDefs))
	for _, def := range mailboxDefs {
		unread := 0
		if def.ID == "inbox" || def.ID == "drafts" {
			for _, m := range s.messages {
				if m.inMailbox(def.ID) && (!m.IsRead || def.ID == "drafts") {
					unread++
				}
			}
		}
		out = append(out, gin.H{
			"id":          def.ID,
			"name":        def.Name,
			"icon":        def.Icon,
			"unreadCount": unread,
			"type":        "system",
		})
	}
	c.JSON(http.StatusOK, gin.H{"mailboxes": out})
}

func (s *Server) listMailboxEmails(c *gin.Context) {
	mailboxID := c.Param("id")
	if !knownMailbox(mailboxID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "mailbox not found"})
		return
	}
	page := positiveQuery(c, "page", 1)
	perPage := positiveQuery(c, "perPage", 20)

	s.mu.Lock()
	defer s.mu.Unlock()
	var matched []*message
	for _, m := range s.messages {
		if m.inMailbox(mailboxID) {
			matched = append(matched, m)
		}
	}
	slices.SortStableFunc(matched, func(a, b *message) int { return b.ReceivedAt.Compare(a.ReceivedAt) })

	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	emails := make([]emailJSON, 0, end-start)
	for _, m := range matched[start:end] {
		emails = append(emails, m.json())
	}
	c.JSON(http.StatusOK, gin.H{
		"emails":      emails,
		"total":       len(matched),
		"page":        page,
		"perPage":     perPage,
		"hasNextPage": end < len(matched),
	})
}

func positiveQuery(c *gin.Context, key string, fallback int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return fallback
}

func (s *Server) getEmail(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(c.Param("id"))
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	c.JSON(http.StatusOK, m.json())
}

func (s *Server) modifyEmail(c *gin.Context) {
	var req modifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.messageLocked(c.Param("id"))
	if m == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	for _, l := range req.AddLabels {
		switch strings.ToUpper(l) {
		case "UNREAD":
			m.IsRead = false
		case "STARRED":
			m.IsStarred = true
		case "TRASH":
			m.Trashed = true
		case "INBOX":
			if m.MailboxID == "archive" {
				m.MailboxID = "inbox"
			}
		default:
			m.Labels[l] = true
		}
	}
	for _, l := range req.RemoveLabels {
		switch strings.ToUpper(l) {
		case "UNREAD":
			m.IsRead = true
		case "STARRED":
			m.IsStarred = false
		case "TRASH":
			m.Trashed = false
		case "INBOX":
			if m.MailboxID == "inbox" {
				m.MailboxID = "archive"
			}
		default:
			delete(m.Labels, l)
		}
	}
	c.JSON(http.StatusOK, m.json())
}

func (s *Server) sendEmail(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	to := addresses(req.To)
	if len(to) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one recipient is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.storeSentLocked(currentUser(c), to, req.Subject, req.Body)
	m.CC = addresses(req.CC)
	m.BCC = addresses(req.BCC)
	c.JSON(http.StatusOK, gin.H{"message": "Email sent successfully", "id": m.ID})
}

func (s *Server) replyEmail(c *gin.Context) {
	var req replyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	orig := s.messageLocked(c.Param("id"))
	if orig == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	to := addresses([]string{req.To})
	if len(to) == 0 {
		to = []address{orig.From}
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		subject = "Re: " + orig.Subject
	}
	m := s.storeSentLocked(currentUser(c), to, subject, req.Body)
	c.JSON(http.StatusOK, gin.H{"message": "Reply sent successfully", "id": m.ID})
}

func (s *Server) storeSentLocked(from *account, to []address, subject, body string) *message {
	preview := []rune(strings.TrimSpace(body))
	if len(preview) > 80 {
		preview = append(preview[:80], []rune("...")...)
	}
	m := &message{
		ID:         newID("msg-"),
		MailboxID:  "sent",
		From:       address{Name: from.Name, Email: from.Email},
		To:         to,
		Subject:    subject,
		Preview:    string(preview),
		Body:       body,
		IsRead:     true,
		Labels:     map[string]bool{"SENT": true},
		ReceivedAt: s.opts.Now().UTC(),
	}
	s.messages = append(s.messages, m)
	return m
}

func addresses(raw []string) []address {
	var out []address
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, address{Email: r})
		}
	}
	return out
}
