package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// EmailAddress is a display name plus mailbox address.
type EmailAddress struct {
	Name  string
	Email string
}

// String renders the address in "Name <email>" form.
func (a EmailAddress) String() string {
	name := strings.TrimSpace(a.Name)
	if name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", name, a.Email)
}

// Attachment describes one file attached to a message.
type Attachment struct {
	ID       string
	Filename string
	Size     int64
	MimeType string
	URL      string
}

// Email is the full message record behind the inbox and detail views.
type Email struct {
	ID             string
	MailboxID      string
	From           EmailAddress
	To             []EmailAddress
	CC             []EmailAddress
	BCC            []EmailAddress
	Subject        string
	Preview        string
	Body           string
	Summary        string
	IsRead         bool
	IsStarred      bool
	HasAttachments bool
	Attachments    []Attachment
	ReceivedAt     time.Time
	CreatedAt      time.Time
}

// EmailPage is one page of a mailbox listing.
type EmailPage struct {
	Emails      []Email
	Total       int
	Page        int
	PerPage     int
	HasNextPage bool
}

// Label ids understood by the modify endpoint.
const (
	LabelUnread  = "UNREAD"
	LabelStarred = "STARRED"
	LabelTrash   = "TRASH"
)

// LabelChange is an add/remove label request for one message.
type LabelChange struct {
	Add    []string
	Remove []string
}

// MarkReadChange removes the unread label.
func MarkReadChange() LabelChange {
	return LabelChange{Remove: []string{LabelUnread}}
}

// StarChange adds or removes the starred label.
func StarChange(starred bool) LabelChange {
	if starred {
		return LabelChange{Add: []string{LabelStarred}}
	}
	return LabelChange{Remove: []string{LabelStarred}}
}

// TrashChange moves a message to trash.
func TrashChange() LabelChange {
	return LabelChange{Add: []string{LabelTrash}}
}

// Draft is an outgoing message before it is sent.
type Draft struct {
	To       []string
	CC       []string
	BCC      []string
	Subject  string
	Body     string
	ThreadID string
}

// ParseRecipients splits a comma or semicolon separated recipient field.
func ParseRecipients(raw string) ([]string, error) {
	parts := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		addr, err := mail.ParseAddress(p)
		if err != nil {
			return nil, fmt.Errorf("recipient %q: %w", p, err)
		}
		out = append(out, addr.Address)
	}
	return out, nil
}

// Validate checks a draft before sending.
func (d Draft) Validate() error {
	if len(d.To) == 0 {
		return ErrNoRecipients
	}
	return nil
}

// ReplySubject prefixes subject with "Re: " unless already present.
func ReplySubject(subject string) string {
	subject = strings.TrimSpace(subject)
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// MailboxType distinguishes built-in and user mailboxes.
type MailboxType string

const (
	MailboxSystem MailboxType = "system"
	MailboxCustom MailboxType = "custom"
)

// MailboxIcon is the closed set of mailbox icons.
type MailboxIcon string

const (
	MailboxIconInbox  MailboxIcon = "inbox"
	MailboxIconStar   MailboxIcon = "star"
	MailboxIconSend   MailboxIcon = "send"
	MailboxIconDraft  MailboxIcon = "draft"
	MailboxIconTrash  MailboxIcon = "trash"
	MailboxIconFolder MailboxIcon = "folder"
)

// ParseMailboxIcon maps wire icon names onto the closed enum.
// Unknown names fall back to the folder icon.
func ParseMailboxIcon(raw string) MailboxIcon {
	switch strings.TrimSpace(raw) {
	case "InboxOutlined", "inbox":
		return MailboxIconInbox
	case "StarOutlined", "star":
		return MailboxIconStar
	case "SendOutlined", "send":
		return MailboxIconSend
	case "FileOutlined", "EditOutlined", "draft":
		return MailboxIconDraft
	case "DeleteOutlined", "trash":
		return MailboxIconTrash
	default:
		return MailboxIconFolder
	}
}

// Glyph returns the terminal glyph for the icon.
func (i MailboxIcon) Glyph() string {
	switch i {
	case MailboxIconInbox:
		return "▣"
	case MailboxIconStar:
		return "★"
	case MailboxIconSend:
		return "➤"
	case MailboxIconDraft:
		return "✎"
	case MailboxIconTrash:
		return "✗"
	case MailboxIconFolder:
		return "▤"
	default:
		return "▤"
	}
}

// Mailbox is one entry in the mailbox sidebar.
type Mailbox struct {
	ID          string
	Name        string
	Icon        MailboxIcon
	UnreadCount int
	Type        MailboxType
}

// GmailLabel is an upstream label a column may be mapped to.
type GmailLabel struct {
	ID   string
	Name string
	Type string
}
