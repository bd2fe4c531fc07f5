package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"
	"github.com/evanschultz/mailkan/internal/domain"
)

// detailState holds the open message.
type detailState struct {
	email domain.Email
	// card is set when the message was opened from the board.
	card *domain.Card
	back screen

	scroll      int
	showSummary bool

	replying bool
	reply    textinput.Model
	sending  bool
}

func newDetailState() detailState {
	in := textinput.New()
	in.Prompt = "reply: "
	in.Placeholder = "type a reply and press enter"
	in.CharLimit = 4000
	return detailState{back: screenBoard, reply: in}
}

// emailOpenedMsg carries a loaded message.
type emailOpenedMsg struct {
	email domain.Email
	card  *domain.Card
	back  screen
	err   error
}

// replySentMsg reports a sent reply.
type replySentMsg struct {
	err error
}

// applyEmailOpened shows the loaded message.
func (m Model) applyEmailOpened(msg emailOpenedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("open message", msg.err)
		return m, nil
	}
	back := msg.back
	d := newDetailState()
	d.email = msg.email
	d.card = msg.card
	d.back = back
	d.showSummary = strings.TrimSpace(msg.email.Summary) != ""
	m.detail = d
	m.screen = screenDetail
	m.status = "ready"
	if back == screenInbox {
		m.inbox.markRead(msg.email.ID)
	}
	return m, nil
}

// applyReplySent closes the reply field.
func (m Model) applyReplySent(msg replySentMsg) (tea.Model, tea.Cmd) {
	m.detail.sending = false
	if msg.err != nil {
		m.failed("reply", msg.err)
		return m, nil
	}
	m.detail.replying = false
	m.detail.reply.Reset()
	m.detail.reply.Blur()
	m.status = "reply sent"
	return m, nil
}

// handleDetailKey scrolls the message and runs message actions.
func (m Model) handleDetailKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.detail.replying {
		return m.handleReplyKey(msg)
	}
	switch {
	case key.Matches(msg, m.keys.back):
		m.screen = m.detail.back
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.detail.scroll++
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.detail.scroll = max(0, m.detail.scroll-1)
		return m, nil
	case key.Matches(msg, m.keys.pageDown):
		m.detail.scroll += max(1, m.bodyHeight()-2)
		return m, nil
	case key.Matches(msg, m.keys.pageUp):
		m.detail.scroll = max(0, m.detail.scroll-max(1, m.bodyHeight()-2))
		return m, nil
	case key.Matches(msg, m.keys.reply):
		if strings.TrimSpace(m.detail.email.From.Email) == "" {
			m.status = "no sender to reply to"
			return m, nil
		}
		m.detail.replying = true
		return m, m.detail.reply.Focus()
	case key.Matches(msg, m.keys.summarize):
		if strings.TrimSpace(m.detail.email.Summary) == "" {
			m.status = "summarizing..."
			return m, m.summarizeCmd(m.detail.email.ID)
		}
		m.detail.showSummary = !m.detail.showSummary
		return m, nil
	case key.Matches(msg, m.keys.star):
		email := m.detail.email
		svc := m.svc
		return m, func() tea.Msg {
			starred, err := svc.ToggleStar(context.Background(), email)
			return starToggledMsg{id: email.ID, starred: starred, err: err}
		}
	case key.Matches(msg, m.keys.trash):
		id := m.detail.email.ID
		svc := m.svc
		m.status = "moving to trash..."
		return m, func() tea.Msg {
			return trashedMsg{id: id, err: svc.Trash(context.Background(), id)}
		}
	case key.Matches(msg, m.keys.copyLink):
		url := ""
		if m.detail.card != nil {
			url = m.detail.card.GmailURL
		}
		m.copyLink(url)
		return m, nil
	}
	if model, cmd, ok := m.handleGlobalKey(msg); ok {
		return model, cmd
	}
	return m, nil
}

// handleReplyKey edits and sends the inline reply.
func (m Model) handleReplyKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.detail.sending {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.detail.replying = false
		m.detail.reply.Blur()
		return m, nil
	case "enter":
		body := strings.TrimSpace(m.detail.reply.Value())
		if body == "" {
			m.status = "reply is empty"
			return m, nil
		}
		m.detail.sending = true
		m.status = "sending reply..."
		email := m.detail.email
		svc := m.svc
		return m, func() tea.Msg {
			return replySentMsg{err: svc.Reply(context.Background(), email, body)}
		}
	}
	var cmd tea.Cmd
	m.detail.reply, cmd = m.detail.reply.Update(msg)
	return m, cmd
}

// detailLines renders the full message as scrollable rows.
func (m Model) detailLines(width int) []string {
	e := m.detail.email
	label := lipgloss.NewStyle().Foreground(mutedColor)
	section := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	subject := strings.TrimSpace(e.Subject)
	if subject == "" {
		subject = "(no subject)"
	}
	if e.IsStarred {
		subject = "★ " + subject
	}

	lines := []string{
		lipgloss.NewStyle().Bold(true).Foreground(titleColor).Render(truncate(subject, width)),
		label.Render("from: ") + truncate(e.From.String(), max(1, width-6)),
	}
	if to := joinAddresses(e.To); to != "" {
		lines = append(lines, label.Render("to:   ")+truncate(to, max(1, width-6)))
	}
	if cc := joinAddresses(e.CC); cc != "" {
		lines = append(lines, label.Render("cc:   ")+truncate(cc, max(1, width-6)))
	}
	lines = append(lines, label.Render("date: ")+formatStamp(e.ReceivedAt)+label.Render(" ("+relTime(e.ReceivedAt, m.now())+")"))
	if len(e.Attachments) > 0 {
		lines = append(lines, "", section.Render(fmt.Sprintf("Attachments (%d)", len(e.Attachments))))
		for _, a := range e.Attachments {
			name := a.Filename
			if name == "" {
				name = a.ID
			}
			lines = append(lines, "  📎 "+truncate(name, max(1, width-16))+label.Render("  "+humanize.Bytes(uint64(max(a.Size, 0)))))
		}
	}
	if m.detail.showSummary && strings.TrimSpace(e.Summary) != "" {
		lines = append(lines, "", section.Render("AI summary"))
		lines = append(lines, m.md.lines(e.Summary, width)...)
	}
	lines = append(lines, "", section.Render("Message"))
	body := e.Body
	if strings.TrimSpace(body) == "" {
		body = e.Preview
	}
	if bodyLines := m.md.lines(body, width); len(bodyLines) > 0 {
		lines = append(lines, bodyLines...)
	} else {
		lines = append(lines, label.Render("(empty message)"))
	}
	return lines
}

// renderDetail renders the visible window of the message.
func (m Model) renderDetail() string {
	width := max(minMarkdownWidth, m.width-4)
	lines := m.detailLines(width)
	height := m.bodyHeight()
	if m.detail.replying {
		height = max(1, height-2)
	}
	scroll := clamp(m.detail.scroll, 0, max(0, len(lines)-height))
	end := min(len(lines), scroll+height)
	out := strings.Join(lines[scroll:end], "\n")
	if len(lines) > height {
		out = fitLines(out, height) + "\n" + lipgloss.NewStyle().Foreground(dimColor).
			Render(fmt.Sprintf("lines %d-%d of %d", scroll+1, end, len(lines)))
	}
	if m.detail.replying {
		reply := m.detail.reply
		reply.SetWidth(max(10, width-8))
		out += "\n\n" + reply.View()
	}
	return out
}

// joinAddresses formats a recipient list.
func joinAddresses(list []domain.EmailAddress) string {
	parts := make([]string, 0, len(list))
	for _, a := range list {
		if s := strings.TrimSpace(a.String()); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
