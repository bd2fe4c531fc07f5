package api

import (
	"strings"
	"time"

	"github.com/evanschultz/mailkan/internal/domain"
)

type tokenPairDTO struct {
	AccessToken       string   `json:"accessToken"`
	RefreshToken      string   `json:"refreshToken"`
	AccessTokenSnake  string   `json:"access_token"`
	RefreshTokenSnake string   `json:"refresh_token"`
	User              *userDTO `json:"user,omitempty"`
}

func (p tokenPairDTO) tokens() (string, string) {
	return firstNonEmpty(p.AccessToken, p.AccessTokenSnake), firstNonEmpty(p.RefreshToken, p.RefreshTokenSnake)
}

type userDTO struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
}

func (u userDTO) toDomain() domain.User {
	return domain.User{ID: u.ID, Email: u.Email, Name: u.Name, Picture: u.Picture, Provider: u.Provider}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}

type googleRequest struct {
	Token string `json:"token"`
}

type cardDTO struct {
	ID             string  `json:"id"`
	Sender         string  `json:"sender"`
	Subject        string  `json:"subject"`
	Summary        string  `json:"summary"`
	Preview        string  `json:"preview"`
	GmailURL       string  `json:"gmail_url"`
	SnoozedUntil   *string `json:"snoozed_until,omitempty"`
	ReceivedAt     string  `json:"received_at"`
	IsRead         bool    `json:"is_read"`
	HasAttachments bool    `json:"has_attachments"`
}

func (c cardDTO) toDomain() domain.Card {
	out := domain.Card{
		ID:             c.ID,
		Sender:         c.Sender,
		Subject:        c.Subject,
		Summary:        c.Summary,
		Preview:        c.Preview,
		GmailURL:       c.GmailURL,
		ReceivedAt:     parseTime(c.ReceivedAt),
		IsRead:         c.IsRead,
		HasAttachments: c.HasAttachments,
	}
	if c.SnoozedUntil != nil {
		if ts := parseTime(*c.SnoozedUntil); !ts.IsZero() {
			out.SnoozedUntil = &ts
		}
	}
	return out
}

type boardDTO struct {
	Columns map[string][]cardDTO `json:"columns"`
}

type columnMetaDTO struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

type boardMetaDTO struct {
	Columns []columnMetaDTO `json:"columns"`
}

type moveRequest struct {
	EmailID  string `json:"email_id"`
	ToStatus string `json:"to_status"`
}

type snoozeRequest struct {
	EmailID string `json:"email_id"`
	Until   string `json:"until"`
}

type summarizeRequest struct {
	EmailID string `json:"email_id"`
}

type summarizeResponse struct {
	OK      bool   `json:"ok"`
	Summary string `json:"summary"`
}

type columnDTO struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Key        string `json:"key"`
	Label      string `json:"label"`
	Order      int    `json:"order"`
	GmailLabel string `json:"gmailLabel"`
	Color      string `json:"color,omitempty"`
	IsDefault  bool   `json:"isDefault"`
}

func (c columnDTO) toDomain() domain.Column {
	return domain.Column{
		ID:         c.ID,
		UserID:     c.UserID,
		Key:        c.Key,
		Label:      c.Label,
		Order:      c.Order,
		GmailLabel: c.GmailLabel,
		Color:      domain.ParseColumnColor(c.Color),
		IsDefault:  c.IsDefault,
	}
}

func columnsToDomain(in []columnDTO) []domain.Column {
	out := make([]domain.Column, 0, len(in))
	for _, c := range in {
		out = append(out, c.toDomain())
	}
	return out
}

type columnsResponse struct {
	Columns []columnDTO `json:"columns"`
}

type columnRequest struct {
	Label      string `json:"label"`
	GmailLabel string `json:"gmailLabel"`
	Color      string `json:"color,omitempty"`
}

func columnRequestFrom(in domain.ColumnInput) columnRequest {
	return columnRequest{Label: in.Label, GmailLabel: in.GmailLabel, Color: string(in.Color)}
}

type reorderRequest struct {
	ColumnIDs []string `json:"columnIds"`
}

type gmailLabelDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

type labelsResponse struct {
	Labels []gmailLabelDTO `json:"labels"`
}

type addressDTO struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func addressesToDomain(in []addressDTO) []domain.EmailAddress {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.EmailAddress, 0, len(in))
	for _, a := range in {
		out = append(out, domain.EmailAddress{Name: a.Name, Email: a.Email})
	}
	return out
}

type attachmentDTO struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url"`
}

// emailDTO accepts both camelCase and snake_case field spellings.
type emailDTO struct {
	ID                  string          `json:"id"`
	MailboxID           string          `json:"mailboxId"`
	From                *addressDTO     `json:"from,omitempty"`
	FromName            string          `json:"fromName"`
	FromEmail           string          `json:"fromEmail"`
	To                  []addressDTO    `json:"to"`
	CC                  []addressDTO    `json:"cc"`
	BCC                 []addressDTO    `json:"bcc"`
	Subject             string          `json:"subject"`
	Preview             string          `json:"preview"`
	Body                string          `json:"body"`
	Summary             string          `json:"summary"`
	IsRead              *bool           `json:"isRead"`
	IsReadSnake         *bool           `json:"is_read"`
	IsStarred           *bool           `json:"isStarred"`
	IsStarredSnake      *bool           `json:"is_starred"`
	HasAttachments      *bool           `json:"hasAttachments"`
	HasAttachmentsSnake *bool           `json:"has_attachments"`
	Attachments         []attachmentDTO `json:"attachments"`
	ReceivedAt          string          `json:"receivedAt"`
	ReceivedAtSnake     string          `json:"received_at"`
	CreatedAt           string          `json:"createdAt"`
	CreatedAtSnake      string          `json:"created_at"`
}

func (e emailDTO) toDomain() domain.Email {
	from := domain.EmailAddress{Name: e.FromName, Email: e.FromEmail}
	if e.From != nil {
		from.Name = firstNonEmpty(from.Name, e.From.Name)
		from.Email = firstNonEmpty(from.Email, e.From.Email)
	}
	out := domain.Email{
		ID:             e.ID,
		MailboxID:      firstNonEmpty(e.MailboxID, "INBOX"),
		From:           from,
		To:             addressesToDomain(e.To),
		CC:             addressesToDomain(e.CC),
		BCC:            addressesToDomain(e.BCC),
		Subject:        e.Subject,
		Preview:        e.Preview,
		Body:           e.Body,
		Summary:        e.Summary,
		IsRead:         firstBool(e.IsRead, e.IsReadSnake),
		IsStarred:      firstBool(e.IsStarred, e.IsStarredSnake),
		HasAttachments: firstBool(e.HasAttachments, e.HasAttachmentsSnake),
		ReceivedAt:     parseTime(firstNonEmpty(e.ReceivedAt, e.ReceivedAtSnake)),
		CreatedAt:      parseTime(firstNonEmpty(e.CreatedAt, e.CreatedAtSnake)),
	}
	for _, a := range e.Attachments {
		out.Attachments = append(out.Attachments, domain.Attachment{
			ID:       a.ID,
			Filename: a.Filename,
			Size:     a.Size,
			MimeType: a.MimeType,
			URL:      a.URL,
		})
	}
	return out
}

func emailsToDomain(in []emailDTO) []domain.Email {
	out := make([]domain.Email, 0, len(in))
	for _, e := range in {
		out = append(out, e.toDomain())
	}
	return out
}

type mailboxDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	UnreadCount int    `json:"unreadCount"`
	Type        string `json:"type"`
}

type mailboxesResponse struct {
	Mailboxes []mailboxDTO `json:"mailboxes"`
}

type emailListResponse struct {
	Emails      []emailDTO `json:"emails"`
	Total       int        `json:"total"`
	Page        int        `json:"page"`
	PerPage     int        `json:"perPage"`
	HasNextPage bool       `json:"hasNextPage"`
}

type keywordResponse struct {
	Emails        []emailDTO `json:"emails"`
	NextPageToken string     `json:"nextPageToken"`
	TotalEstimate int        `json:"totalEstimate"`
}

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
	ThreadID string   `json:"threadId,omitempty"`
}

type replyRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type semanticRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type semanticResultDTO struct {
	Email emailDTO `json:"email"`
	Score float64  `json:"score"`
}

type semanticResponse struct {
	Results []semanticResultDTO `json:"results"`
	Query   string              `json:"query"`
	Total   int                 `json:"total"`
}

type suggestionDTO struct {
	Text string `json:"text"`
	Type string `json:"type"`
}

type suggestionsResponse struct {
	Suggestions []suggestionDTO `json:"suggestions"`
}

type embeddingsRequest struct {
	Limit int `json:"limit"`
}

type embeddingsResponse struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
}

type statisticsDTO struct {
	StatusStats []struct {
		Status string `json:"status"`
		Count  int    `json:"count"`
	} `json:"statusStats"`
	EmailTrend []struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	} `json:"emailTrend"`
	TopSenders []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Count int    `json:"count"`
	} `json:"topSenders"`
	DailyActivity []struct {
		DayOfWeek int `json:"dayOfWeek"`
		Hour      int `json:"hour"`
		Count     int `json:"count"`
	} `json:"dailyActivity"`
	TotalEmails  int    `json:"totalEmails"`
	UnreadCount  int    `json:"unreadCount"`
	StarredCount int    `json:"starredCount"`
	Period       string `json:"period"`
}

func (s statisticsDTO) toDomain() domain.Statistics {
	out := domain.Statistics{
		Period:       domain.Period(s.Period),
		TotalEmails:  s.TotalEmails,
		UnreadCount:  s.UnreadCount,
		StarredCount: s.StarredCount,
	}
	for _, v := range s.StatusStats {
		out.StatusStats = append(out.StatusStats, domain.StatusCount{Status: v.Status, Count: v.Count})
	}
	for _, v := range s.EmailTrend {
		out.EmailTrend = append(out.EmailTrend, domain.TrendPoint{Date: v.Date, Count: v.Count})
	}
	for _, v := range s.TopSenders {
		out.TopSenders = append(out.TopSenders, domain.TopSender{Name: v.Name, Email: v.Email, Count: v.Count})
	}
	for _, v := range s.DailyActivity {
		out.DailyActivity = append(out.DailyActivity, domain.ActivityCell{DayOfWeek: v.DayOfWeek, Hour: v.Hour, Count: v.Count})
	}
	return out
}

func parseTime(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}
