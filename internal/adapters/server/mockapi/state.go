package mockapi

import (
	"slices"
	"strings"
	"time"
)

const demoUserID = "user-1"

type account struct {
	ID       string
	Email    string
	Name     string
	Password string
	Provider string
}

type userJSON struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Provider string `json:"provider,omitempty"`
}

func (a *account) json() userJSON {
	return userJSON{ID: a.ID, Email: a.Email, Name: a.Name, Provider: a.Provider}
}

type address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	MimeType string `json:"mimeType"`
	URL      string `json:"url"`
}

// message is one stored email plus its board placement.
type message struct {
	ID           string
	MailboxID    string
	From         address
	To           []address
	CC           []address
	BCC          []address
	Subject      string
	Preview      string
	Body         string
	Summary      string
	IsRead       bool
	IsStarred    bool
	Trashed      bool
	Attachments  []attachment
	Labels       map[string]bool
	Status       string
	SnoozedUntil *time.Time
	ReceivedAt   time.Time
}

type emailJSON struct {
	ID             string       `json:"id"`
	MailboxID      string       `json:"mailboxId"`
	From           address      `json:"from"`
	To             []address    `json:"to"`
	CC             []address    `json:"cc,omitempty"`
	BCC            []address    `json:"bcc,omitempty"`
	Subject        string       `json:"subject"`
	Preview        string       `json:"preview"`
	Body           string       `json:"body"`
	Summary        string       `json:"summary,omitempty"`
	IsRead         bool         `json:"isRead"`
	IsStarred      bool         `json:"isStarred"`
	HasAttachments bool         `json:"hasAttachments"`
	Attachments    []attachment `json:"attachments,omitempty"`
	ReceivedAt     string       `json:"receivedAt"`
	CreatedAt      string       `json:"createdAt"`
}

func (m *message) json() emailJSON {
	to := m.To
	if to == nil {
		to = []address{}
	}
	return emailJSON{
		ID:             m.ID,
		MailboxID:      m.MailboxID,
		From:           m.From,
		To:             to,
		CC:             m.CC,
		BCC:            m.BCC,
		Subject:        m.Subject,
		Preview:        m.Preview,
		Body:           m.Body,
		Summary:        m.Summary,
		IsRead:         m.IsRead,
		IsStarred:      m.IsStarred,
		HasAttachments: len(m.Attachments) > 0,
		Attachments:    m.Attachments,
		ReceivedAt:     m.ReceivedAt.UTC().Format(time.RFC3339),
		CreatedAt:      m.ReceivedAt.UTC().Format(time.RFC3339),
	}
}

type cardJSON struct {
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

func (m *message) card() cardJSON {
	sender := strings.TrimSpace(m.From.Name)
	if sender == "" {
		sender = m.From.Email
	}
	out := cardJSON{
		ID:             m.ID,
		Sender:         sender,
		Subject:        m.Subject,
		Summary:        m.Summary,
		Preview:        m.Preview,
		GmailURL:       "https://mail.google.com/mail/u/0/#inbox/" + m.ID,
		ReceivedAt:     m.ReceivedAt.UTC().Format(time.RFC3339),
		IsRead:         m.IsRead,
		HasAttachments: len(m.Attachments) > 0,
	}
	if m.SnoozedUntil != nil {
		ts := m.SnoozedUntil.UTC().Format(time.RFC3339)
		out.SnoozedUntil = &ts
	}
	return out
}

// onBoard reports whether the message is triaged on the kanban board.
func (m *message) onBoard() bool {
	return m.Status != "" && !m.Trashed
}

type column struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	Key        string `json:"key"`
	Label      string `json:"label"`
	Order      int    `json:"order"`
	GmailLabel string `json:"gmailLabel"`
	Color      string `json:"color,omitempty"`
	IsDefault  bool   `json:"isDefault"`
}

type label struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"`
}

const (
	statusInbox   = "inbox"
	statusSnoozed = "snoozed"
)

func defaultColumns() []*column {
	return []*column{
		{ID: "col-inbox", UserID: demoUserID, Key: statusInbox, Label: "Inbox", Order: 0, GmailLabel: "INBOX", Color: "#1890ff", IsDefault: true},
		{ID: "col-todo", UserID: demoUserID, Key: "todo", Label: "To Do", Order: 1, GmailLabel: "STARRED", Color: "#faad14"},
		{ID: "col-in-progress", UserID: demoUserID, Key: "in_progress", Label: "In Progress", Order: 2, GmailLabel: "IMPORTANT", Color: "#722ed1"},
		{ID: "col-done", UserID: demoUserID, Key: "done", Label: "Done", Order: 3, Color: "#52c41a"},
		{ID: "col-snoozed", UserID: demoUserID, Key: statusSnoozed, Label: "Snoozed", Order: 4, Color: "#8c8c8c", IsDefault: true},
	}
}

func defaultLabels() []label {
	return []label{
		{ID: "INBOX", Name: "INBOX", Type: "system"},
		{ID: "STARRED", Name: "STARRED", Type: "system"},
		{ID: "IMPORTANT", Name: "IMPORTANT", Type: "system"},
		{ID: "SENT", Name: "SENT", Type: "system"},
		{ID: "DRAFT", Name: "DRAFT", Type: "system"},
		{ID: "TRASH", Name: "TRASH", Type: "system"},
		{ID: "UNREAD", Name: "UNREAD", Type: "system"},
		{ID: "Label_1", Name: "Work", Type: "user"},
		{ID: "Label_2", Name: "Personal", Type: "user"},
	}
}

type mailboxDef struct {
	ID   string
	Name string
	Icon string
}

var mailboxDefs = []mailboxDef{
	{ID: "inbox", Name: "Inbox", Icon: "InboxOutlined"},
	{ID: "starred", Name: "Starred", Icon: "StarOutlined"},
	{ID: "sent", Name: "Sent", Icon: "SendOutlined"},
	{ID: "drafts", Name: "Drafts", Icon: "EditOutlined"},
	{ID: "archive", Name: "Archive", Icon: "InboxOutlined"},
	{ID: "trash", Name: "Trash", Icon: "DeleteOutlined"},
}

func knownMailbox(id string) bool {
	return slices.ContainsFunc(mailboxDefs, func(d mailboxDef) bool { return d.ID == id })
}

// inMailbox applies the virtual mailbox rules: starred and trash are views over flags.
func (m *message) inMailbox(id string) bool {
	switch id {
	case "starred":
		return m.IsStarred && !m.Trashed
	case "trash":
		return m.Trashed
	default:
		return m.MailboxID == id && !m.Trashed
	}
}

func (s *Server) addAccountLocked(email, password, name, provider string) *account {
	email = strings.ToLower(strings.TrimSpace(email))
	if a, ok := s.accounts[email]; ok {
		return a
	}
	id := demoUserID
	if len(s.accounts) > 0 {
		id = newID("user-")
	}
	if strings.TrimSpace(name) == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	a := &account{ID: id, Email: email, Name: strings.TrimSpace(name), Password: password, Provider: provider}
	s.accounts[email] = a
	return a
}

func (s *Server) accountByID(id string) *account {
	for _, a := range s.accounts {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (s *Server) messageLocked(id string) *message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Server) columnLocked(id string) (*column, int) {
	for i, c := range s.columns {
		if c.ID == id {
			return c, i
		}
	}
	return nil, -1
}

func (s *Server) columnByKeyLocked(key string) *column {
	for _, c := range s.columns {
		if c.Key == key {
			return c
		}
	}
	return nil
}

func (s *Server) sortedColumnsLocked() []column {
	out := make([]column, 0, len(s.columns))
	for _, c := range s.columns {
		out = append(out, *c)
	}
	slices.SortStableFunc(out, func(a, b column) int { return a.Order - b.Order })
	return out
}

// wakeLocked returns expired snoozes to the inbox column.
func (s *Server) wakeLocked(now time.Time) {
	for _, m := range s.messages {
		if m.Status == statusSnoozed && m.SnoozedUntil != nil && !m.SnoozedUntil.After(now) {
			m.Status = statusInbox
			m.SnoozedUntil = nil
		}
	}
}

func (s *Server) seed(now time.Time) {
	s.addAccountLocked("demo@mailkan.dev", "password123", "Demo User", "password")

	me := address{Name: "Me", Email: "demo@mailkan.dev"}
	ago := func(d time.Duration) time.Time { return now.Add(-d).UTC().Truncate(time.Second) }
	s.messages = []*message{
		{
			ID: "1", MailboxID: "inbox", Status: statusInbox,
			From:    address{Name: "John Doe", Email: "john.doe@example.com"},
			To:      []address{me},
			Subject: "Welcome to AI Email Box!",
			Preview: "Thank you for signing up. We are excited to have you on board...",
			Body: "## Welcome to AI Email Box!\n\nThank you for signing up. We are excited to have you on board.\n\n" +
				"Here are some features you can explore:\n\n- Smart email organization\n- AI-powered summaries\n- Offline support\n\nBest regards,\nThe AI Email Box Team",
			IsStarred:  true,
			ReceivedAt: ago(30 * time.Minute),
		},
		{
			ID: "2", MailboxID: "inbox", Status: "todo",
			From:    address{Name: "GitHub", Email: "noreply@github.com"},
			To:      []address{me},
			Subject: "[GitHub] New pull request in your repository",
			Preview: "A new pull request has been opened in react-email-app by contributor-123...",
			Body: "A new pull request has been opened in **react-email-app**.\n\n" +
				"**#42: Add dark mode support** by contributor-123.\n\nReview the changes and leave comments before merging.",
			ReceivedAt: ago(2 * time.Hour),
		},
		{
			ID: "3", MailboxID: "inbox", Status: "done",
			From:    address{Name: "LinkedIn", Email: "messages-noreply@linkedin.com"},
			To:      []address{me},
			Subject: "You have 3 new connection requests",
			Preview: "Sarah Johnson, Michael Chen, and Emma Wilson want to connect with you...",
			Body: "You have 3 new connection requests.\n\n- Sarah Johnson, Senior Developer at Tech Corp\n" +
				"- Michael Chen, Product Manager at StartupXYZ\n- Emma Wilson, UX Designer at Design Studio",
			IsRead:     true,
			ReceivedAt: ago(5 * time.Hour),
		},
		{
			ID: "4", MailboxID: "inbox", Status: "in_progress",
			From:    address{Name: "AWS Notifications", Email: "no-reply@aws.amazon.com"},
			To:      []address{me},
			CC:      []address{{Name: "DevOps Team", Email: "devops@company.com"}},
			Subject: "AWS Bill Statement for November 2025",
			Preview: "Your AWS usage charges for November 2025 are now available...",
			Body: "## AWS Bill Statement\n\nYour AWS usage charges for November 2025 are now available.\n\n" +
				"| Service | Cost |\n| --- | --- |\n| EC2 | $45.20 |\n| S3 | $12.50 |\n| RDS | $78.30 |\n| **Total** | **$136.00** |\n\n" +
				"Payment will be processed automatically on December 1st.",
			IsStarred: true,
			Attachments: []attachment{
				{ID: "att1", Filename: "aws-bill-november-2025.pdf", Size: 245678, MimeType: "application/pdf", URL: "#"},
			},
			ReceivedAt: ago(24 * time.Hour),
		},
		{
			ID: "5", MailboxID: "inbox", Status: "todo",
			From:    address{Name: "Team Lead", Email: "team.lead@company.com"},
			To:      []address{{Name: "Development Team", Email: "dev-team@company.com"}},
			Subject: "Sprint Planning Meeting - Tomorrow 10 AM",
			Preview: "Hi team, We will have our sprint planning meeting tomorrow at 10 AM...",
			Body: "Hi team,\n\nWe will have our sprint planning meeting tomorrow at 10 AM in Conference Room A.\n\n" +
				"Agenda:\n\n1. Review last sprint\n2. Plan upcoming features\n3. Assign tasks\n\nPlease come prepared with your updates.",
			ReceivedAt: ago(48 * time.Hour),
		},
		{
			ID: "6", MailboxID: "sent",
			From:       me,
			To:         []address{{Name: "Client", Email: "client@example.com"}},
			Subject:    "Project Update - Week 45",
			Preview:    "Dear Client, I wanted to share the progress we made this week...",
			Body:       "Dear Client,\n\nI wanted to share the progress we made this week:\n\n- Completed user authentication module\n- Implemented email dashboard\n- Added responsive design\n\nNext week we will focus on testing and bug fixes.",
			IsRead:     true,
			ReceivedAt: ago(72 * time.Hour),
		},
		{
			ID: "7", MailboxID: "drafts",
			From:       me,
			To:         []address{{Name: "HR", Email: "hr@company.com"}},
			Subject:    "Vacation Request",
			Preview:    "[Draft] I would like to request vacation days from...",
			Body:       "I would like to request vacation days from...",
			IsRead:     true,
			ReceivedAt: ago(24 * time.Hour),
		},
		{
			ID: "8", MailboxID: "inbox", Status: "done",
			From:    address{Name: "Product Manager", Email: "pm@company.com"},
			To:      []address{me},
			Subject: "Q4 Goals & OKRs",
			Preview: "Here are the Q4 goals we discussed in the planning meeting...",
			Body: "### Q4 Goals & OKRs\n\nHere are the Q4 goals we discussed:\n\n1. Launch new authentication system\n" +
				"2. Improve email dashboard performance by 50%\n3. Implement offline support\n4. Reach 10,000 active users\n\nLet's make this quarter count!",
			IsRead:     true,
			IsStarred:  true,
			ReceivedAt: ago(7 * 24 * time.Hour),
		},
		{
			ID: "9", MailboxID: "inbox", Status: statusInbox,
			From:    address{Name: "Nguyễn Văn An", Email: "an.nguyen@example.vn"},
			To:      []address{me},
			Subject: "Báo cáo tuần và lịch họp ở Đà Nẵng",
			Preview: "Gửi anh báo cáo tuần này cùng lịch họp với đối tác tại Đà Nẵng...",
			Body:    "Chào anh,\n\nEm gửi anh báo cáo tuần này cùng lịch họp với đối tác tại **Đà Nẵng** vào thứ Năm.\n\nCảm ơn anh!",
			ReceivedAt: ago(3 * time.Hour),
		},
		{
			ID: "10", MailboxID: "inbox", Status: statusInbox,
			From:    address{Name: "Billing", Email: "billing@saas.example.com"},
			To:      []address{me},
			Subject: "Your invoice is ready",
			Preview: "Invoice INV-2025-1142 for your team plan is attached...",
			Body:    "Invoice **INV-2025-1142** for your team plan is attached.\n\nAmount due: $49.00. The card on file will be charged in 3 days.",
			Attachments: []attachment{
				{ID: "att2", Filename: "INV-2025-1142.pdf", Size: 81234, MimeType: "application/pdf", URL: "#"},
			},
			ReceivedAt: ago(26 * time.Hour),
		},
	}
	for _, m := range s.messages {
		m.Labels = map[string]bool{}
	}
}
