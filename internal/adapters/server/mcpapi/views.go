package mcpapi

import (
	"time"

	"github.com/evanschultz/mailkan/internal/domain"
)

// cardView is the tool-facing card shape.
type cardView struct {
	ID             string     `json:"id"`
	Sender         string     `json:"sender"`
	Subject        string     `json:"subject"`
	Summary        string     `json:"summary,omitempty"`
	Preview        string     `json:"preview,omitempty"`
	GmailURL       string     `json:"gmail_url,omitempty"`
	ReceivedAt     time.Time  `json:"received_at"`
	IsRead         bool       `json:"is_read"`
	HasAttachments bool       `json:"has_attachments"`
	SnoozedUntil   *time.Time `json:"snoozed_until,omitempty"`
}

// boardColumnView is one board column with its cards in display order.
type boardColumnView struct {
	Key   string     `json:"key"`
	Label string     `json:"label"`
	Color string     `json:"color,omitempty"`
	Cards []cardView `json:"cards"`
}

type boardResult struct {
	Columns   []boardColumnView `json:"columns"`
	CardCount int               `json:"card_count"`
}

type moveView struct {
	EmailID   string `json:"email_id"`
	ColumnKey string `json:"column_key"`
}

type snoozeView struct {
	EmailID      string    `json:"email_id"`
	SnoozedUntil time.Time `json:"snoozed_until"`
}

type columnView struct {
	ID         string `json:"id"`
	Key        string `json:"key"`
	Label      string `json:"label"`
	Order      int    `json:"order"`
	GmailLabel string `json:"gmail_label,omitempty"`
	Color      string `json:"color,omitempty"`
	IsDefault  bool   `json:"is_default"`
}

type labelView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

type columnsView struct {
	Columns []columnView `json:"columns"`
	Labels  []labelView  `json:"labels,omitempty"`
}

type searchHitView struct {
	EmailID    string    `json:"email_id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Preview    string    `json:"preview,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Score      float64   `json:"score"`
	Percent    int       `json:"percent"`
}

type searchView struct {
	Query   string          `json:"query"`
	Total   int             `json:"total"`
	Results []searchHitView `json:"results"`
}

type countView struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type senderView struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Count int    `json:"count"`
}

type statisticsView struct {
	Period       string       `json:"period"`
	TotalEmails  int          `json:"total_emails"`
	UnreadCount  int          `json:"unread_count"`
	ReadCount    int          `json:"read_count"`
	StarredCount int          `json:"starred_count"`
	Statuses     []countView  `json:"statuses"`
	Trend        []countView  `json:"trend"`
	TopSenders   []senderView `json:"top_senders"`
	PeakHour     *peakView    `json:"peak_hour,omitempty"`
}

// peakView is the busiest day-of-week and hour bucket.
type peakView struct {
	DayOfWeek int `json:"day_of_week"`
	Hour      int `json:"hour"`
	Count     int `json:"count"`
}

// boardView flattens a board into key-ordered columns.
func boardView(b domain.Board) boardResult {
	out := boardResult{Columns: make([]boardColumnView, 0, len(b.Cards))}
	for _, key := range b.Keys() {
		meta := b.MetaFor(key)
		col := boardColumnView{
			Key:   key,
			Label: meta.Label,
			Color: string(meta.Color),
			Cards: make([]cardView, 0, len(b.Cards[key])),
		}
		for _, c := range b.Cards[key] {
			col.Cards = append(col.Cards, cardView{
				ID:             c.ID,
				Sender:         c.Sender,
				Subject:        c.Subject,
				Summary:        c.Summary,
				Preview:        c.Preview,
				GmailURL:       c.GmailURL,
				ReceivedAt:     c.ReceivedAt.UTC(),
				IsRead:         c.IsRead,
				HasAttachments: c.HasAttachments,
				SnoozedUntil:   c.SnoozedUntil,
			})
		}
		out.Columns = append(out.Columns, col)
	}
	out.CardCount = b.CardCount()
	return out
}

func statisticsViewFrom(s domain.Statistics) statisticsView {
	out := statisticsView{
		Period:       string(s.Period),
		TotalEmails:  s.TotalEmails,
		UnreadCount:  s.UnreadCount,
		ReadCount:    s.ReadCount(),
		StarredCount: s.StarredCount,
		Statuses:     make([]countView, 0, len(s.StatusStats)),
		Trend:        make([]countView, 0, len(s.EmailTrend)),
		TopSenders:   make([]senderView, 0, len(s.TopSenders)),
	}
	for _, st := range s.StatusStats {
		out.Statuses = append(out.Statuses, countView{Label: st.Status, Count: st.Count})
	}
	for _, p := range s.EmailTrend {
		out.Trend = append(out.Trend, countView{Label: p.Date, Count: p.Count})
	}
	for _, ts := range s.TopSenders {
		out.TopSenders = append(out.TopSenders, senderView{Name: ts.Name, Email: ts.Email, Count: ts.Count})
	}
	for _, c := range s.DailyActivity {
		if out.PeakHour == nil || c.Count > out.PeakHour.Count {
			out.PeakHour = &peakView{DayOfWeek: c.DayOfWeek, Hour: c.Hour, Count: c.Count}
		}
	}
	return out
}
