package domain

import (
	"strings"
	"time"
)

// Card is the board projection of one backend email message.
type Card struct {
	ID             string
	Sender         string
	Subject        string
	Summary        string
	Preview        string
	GmailURL       string
	ReceivedAt     time.Time
	IsRead         bool
	HasAttachments bool
	SnoozedUntil   *time.Time
}

// DisplayText returns the summary when present and the preview otherwise.
func (c Card) DisplayText() string {
	if s := strings.TrimSpace(c.Summary); s != "" {
		return s
	}
	return strings.TrimSpace(c.Preview)
}

// IsSnoozed reports whether the card is hidden until a future time.
func (c Card) IsSnoozed(now time.Time) bool {
	return c.SnoozedUntil != nil && c.SnoozedUntil.After(now)
}

// MarkRead sets the read flag and reports whether it changed.
func (c *Card) MarkRead() bool {
	if c.IsRead {
		return false
	}
	c.IsRead = true
	return true
}

// SetSummary stores a trimmed AI summary.
func (c *Card) SetSummary(summary string) {
	c.Summary = strings.TrimSpace(summary)
}

// Snooze records the snooze deadline.
func (c *Card) Snooze(until time.Time) {
	ts := until.UTC()
	c.SnoozedUntil = &ts
}
