package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/mailkan/internal/domain"
)

// inboxFocus names the focused inbox pane.
type inboxFocus int

// focusMailboxes and related constants define package defaults.
const (
	focusMailboxes inboxFocus = iota
	focusEmails
)

// compose form field indexes.
const (
	composeTo = iota
	composeSubject
	composeBody
	composeFieldCount
)

// inboxState holds the mailbox sidebar, the message list, and the compose form.
type inboxState struct {
	mailboxes []domain.Mailbox
	boxIdx    int
	loaded    bool

	page    domain.EmailPage
	pageNum int
	row     int
	focus   inboxFocus

	composing    bool
	sending      bool
	composeField int
	compose      [composeFieldCount]textinput.Model
}

func newInboxState() inboxState {
	s := inboxState{pageNum: 1, focus: focusEmails}
	prompts := [composeFieldCount]string{"to: ", "subject: ", "body: "}
	limits := [composeFieldCount]int{1000, 250, 20000}
	for i := range s.compose {
		in := textinput.New()
		in.Prompt = prompts[i]
		in.CharLimit = limits[i]
		s.compose[i] = in
	}
	s.compose[composeTo].Placeholder = "a@example.com, b@example.com"
	return s
}

// moveSelection moves the cursor in the focused pane.
func (s *inboxState) moveSelection(delta int) {
	if s.focus == focusMailboxes {
		s.boxIdx = clamp(s.boxIdx+delta, 0, len(s.mailboxes)-1)
		return
	}
	s.row = clamp(s.row+delta, 0, len(s.page.Emails)-1)
}

// selectedMailbox returns the mailbox under the sidebar cursor.
func (s inboxState) selectedMailbox() (domain.Mailbox, bool) {
	if s.boxIdx < 0 || s.boxIdx >= len(s.mailboxes) {
		return domain.Mailbox{}, false
	}
	return s.mailboxes[s.boxIdx], true
}

// selectedEmail returns the message under the list cursor.
func (s inboxState) selectedEmail() (domain.Email, bool) {
	if s.row < 0 || s.row >= len(s.page.Emails) {
		return domain.Email{}, false
	}
	return s.page.Emails[s.row], true
}

// markRead clears the unread flag of a listed message.
func (s *inboxState) markRead(id string) {
	for i := range s.page.Emails {
		if s.page.Emails[i].ID == id {
			s.page.Emails[i].IsRead = true
		}
	}
}

// focusCompose focuses the active compose field.
func (s *inboxState) focusCompose() tea.Cmd {
	var cmd tea.Cmd
	for i := range s.compose {
		if i == s.composeField {
			cmd = s.compose[i].Focus()
			continue
		}
		s.compose[i].Blur()
	}
	return cmd
}

// draft reads the compose form.
func (s inboxState) draft() (domain.Draft, error) {
	to, err := domain.ParseRecipients(s.compose[composeTo].Value())
	if err != nil {
		return domain.Draft{}, err
	}
	d := domain.Draft{
		To:      to,
		Subject: strings.TrimSpace(s.compose[composeSubject].Value()),
		Body:    s.compose[composeBody].Value(),
	}
	return d, d.Validate()
}

// mailboxesLoadedMsg carries the sidebar entries.
type mailboxesLoadedMsg struct {
	boxes []domain.Mailbox
	err   error
}

// emailsLoadedMsg carries one page of a mailbox.
type emailsLoadedMsg struct {
	mailboxID string
	page      domain.EmailPage
	err       error
}

// starToggledMsg reports the new starred state of a message.
type starToggledMsg struct {
	id      string
	starred bool
	err     error
}

// trashedMsg reports a message moved to trash.
type trashedMsg struct {
	id  string
	err error
}

// draftSentMsg reports a sent message.
type draftSentMsg struct {
	err error
}

// openInbox shows the inbox and loads mailboxes on first use.
func (m Model) openInbox() (tea.Model, tea.Cmd) {
	m.screen = screenInbox
	if m.inbox.loaded {
		m.status = "ready"
		return m, m.loadEmailsCmd()
	}
	m.status = "loading mailboxes..."
	svc := m.svc
	return m, func() tea.Msg {
		boxes, err := svc.ListMailboxes(context.Background())
		return mailboxesLoadedMsg{boxes: boxes, err: err}
	}
}

// loadEmailsCmd fetches the current page of the selected mailbox.
func (m Model) loadEmailsCmd() tea.Cmd {
	box, ok := m.inbox.selectedMailbox()
	if !ok {
		return nil
	}
	page := max(1, m.inbox.pageNum)
	svc := m.svc
	return func() tea.Msg {
		out, err := svc.ListEmails(context.Background(), box.ID, page)
		return emailsLoadedMsg{mailboxID: box.ID, page: out, err: err}
	}
}

// applyMailboxesLoaded fills the sidebar and loads the first mailbox.
func (m Model) applyMailboxesLoaded(msg mailboxesLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("load mailboxes", msg.err)
		return m, nil
	}
	m.inbox.mailboxes = msg.boxes
	m.inbox.loaded = true
	m.inbox.boxIdx = clamp(m.inbox.boxIdx, 0, len(msg.boxes)-1)
	if len(msg.boxes) == 0 {
		m.status = "no mailboxes"
		return m, nil
	}
	m.status = "loading messages..."
	return m, m.loadEmailsCmd()
}

// applyEmailsLoaded shows a page when it still belongs to the selected mailbox.
func (m Model) applyEmailsLoaded(msg emailsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("load messages", msg.err)
		return m, nil
	}
	if box, ok := m.inbox.selectedMailbox(); !ok || box.ID != msg.mailboxID {
		return m, nil
	}
	m.inbox.page = msg.page
	if msg.page.Page > 0 {
		m.inbox.pageNum = msg.page.Page
	}
	m.inbox.row = clamp(m.inbox.row, 0, len(msg.page.Emails)-1)
	m.status = "ready"
	return m, nil
}

// applyStarToggled updates every open copy of the message.
func (m Model) applyStarToggled(msg starToggledMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("star", msg.err)
		return m, nil
	}
	if m.detail.email.ID == msg.id {
		m.detail.email.IsStarred = msg.starred
	}
	for i := range m.inbox.page.Emails {
		if m.inbox.page.Emails[i].ID == msg.id {
			m.inbox.page.Emails[i].IsStarred = msg.starred
		}
	}
	if msg.starred {
		m.status = "starred"
	} else {
		m.status = "unstarred"
	}
	return m, nil
}

// applyTrashed drops the message from every view that lists it.
func (m Model) applyTrashed(msg trashedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("trash", msg.err)
		return m, nil
	}
	emails := m.inbox.page.Emails[:0:0]
	for _, e := range m.inbox.page.Emails {
		if e.ID != msg.id {
			emails = append(emails, e)
		}
	}
	m.inbox.page.Emails = emails
	m.inbox.row = clamp(m.inbox.row, 0, len(emails)-1)
	for _, k := range m.board.data.Keys() {
		cards := m.board.data.Cards[k]
		kept := make([]domain.Card, 0, len(cards))
		for _, c := range cards {
			if c.ID != msg.id {
				kept = append(kept, c)
			}
		}
		m.board.data.Cards[k] = kept
	}
	m.clampBoardSelection()
	if m.screen == screenDetail && m.detail.email.ID == msg.id {
		m.screen = m.detail.back
	}
	m.status = "moved to trash"
	return m, nil
}

// applyDraftSent closes the compose form.
func (m Model) applyDraftSent(msg draftSentMsg) (tea.Model, tea.Cmd) {
	m.inbox.sending = false
	if msg.err != nil {
		m.failed("send", msg.err)
		return m, nil
	}
	fresh := newInboxState()
	m.inbox.compose = fresh.compose
	m.inbox.composeField = 0
	m.inbox.composing = false
	m.status = "message sent"
	return m, nil
}

// handleInboxKey handles the mailbox sidebar and message list.
func (m Model) handleInboxKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.inbox.composing {
		return m.handleComposeKey(msg)
	}
	switch {
	case msg.String() == "tab":
		if m.inbox.focus == focusMailboxes {
			m.inbox.focus = focusEmails
		} else {
			m.inbox.focus = focusMailboxes
		}
		return m, nil
	case key.Matches(msg, m.keys.back):
		m.screen = screenBoard
		m.status = "ready"
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.inbox.moveSelection(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.inbox.moveSelection(1)
		return m, nil
	case key.Matches(msg, m.keys.moveLeft):
		m.inbox.focus = focusMailboxes
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		m.inbox.focus = focusEmails
		return m, nil
	case key.Matches(msg, m.keys.open):
		if m.inbox.focus == focusMailboxes {
			m.inbox.pageNum = 1
			m.inbox.row = 0
			m.inbox.page = domain.EmailPage{}
			m.inbox.focus = focusEmails
			m.status = "loading messages..."
			return m, m.loadEmailsCmd()
		}
		email, ok := m.inbox.selectedEmail()
		if !ok {
			return m, nil
		}
		m.status = "opening..."
		svc := m.svc
		return m, func() tea.Msg {
			full, err := svc.OpenEmail(context.Background(), email.ID)
			return emailOpenedMsg{email: full, back: screenInbox, err: err}
		}
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadEmailsCmd()
	case key.Matches(msg, m.keys.nextPage):
		if !m.inbox.page.HasNextPage {
			m.status = "last page"
			return m, nil
		}
		m.inbox.pageNum++
		m.inbox.row = 0
		return m, m.loadEmailsCmd()
	case key.Matches(msg, m.keys.prevPage):
		if m.inbox.pageNum <= 1 {
			m.status = "first page"
			return m, nil
		}
		m.inbox.pageNum--
		m.inbox.row = 0
		return m, m.loadEmailsCmd()
	case key.Matches(msg, m.keys.star):
		email, ok := m.inbox.selectedEmail()
		if !ok {
			return m, nil
		}
		svc := m.svc
		return m, func() tea.Msg {
			starred, err := svc.ToggleStar(context.Background(), email)
			return starToggledMsg{id: email.ID, starred: starred, err: err}
		}
	case key.Matches(msg, m.keys.trash):
		email, ok := m.inbox.selectedEmail()
		if !ok {
			return m, nil
		}
		m.status = "moving to trash..."
		svc := m.svc
		return m, func() tea.Msg {
			return trashedMsg{id: email.ID, err: svc.Trash(context.Background(), email.ID)}
		}
	case key.Matches(msg, m.keys.compose):
		m.inbox.composing = true
		m.inbox.composeField = composeTo
		return m, m.inbox.focusCompose()
	}
	if model, cmd, ok := m.handleGlobalKey(msg); ok {
		return model, cmd
	}
	return m, nil
}

// handleComposeKey edits and sends a new message.
func (m Model) handleComposeKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.inbox.sending {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.inbox.composing = false
		for i := range m.inbox.compose {
			m.inbox.compose[i].Blur()
		}
		m.status = "draft kept"
		return m, nil
	case "tab", "down":
		m.inbox.composeField = wrapIndex(m.inbox.composeField, 1, composeFieldCount)
		return m, m.inbox.focusCompose()
	case "shift+tab", "up":
		m.inbox.composeField = wrapIndex(m.inbox.composeField, -1, composeFieldCount)
		return m, m.inbox.focusCompose()
	case "enter":
		if m.inbox.composeField < composeBody {
			m.inbox.composeField++
			return m, m.inbox.focusCompose()
		}
		return m.sendDraft()
	case "ctrl+s":
		return m.sendDraft()
	}
	var cmd tea.Cmd
	field := m.inbox.composeField
	m.inbox.compose[field], cmd = m.inbox.compose[field].Update(msg)
	return m, cmd
}

// sendDraft validates the form and sends it.
func (m Model) sendDraft() (tea.Model, tea.Cmd) {
	draft, err := m.inbox.draft()
	if err != nil {
		m.status = "cannot send: " + err.Error()
		return m, nil
	}
	m.inbox.sending = true
	m.status = "sending..."
	svc := m.svc
	return m, func() tea.Msg {
		return draftSentMsg{err: svc.Send(context.Background(), draft)}
	}
}

// renderInbox renders the sidebar, the list, and the compose form.
func (m Model) renderInbox() string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	if !m.inbox.loaded {
		return hint.Render("loading mailboxes...")
	}
	height := m.bodyHeight()
	sideWidth := 24
	listWidth := max(30, m.width-sideWidth-8)
	if m.inbox.composing {
		height = max(4, height-5)
	}

	sel := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	boxLines := make([]string, 0, len(m.inbox.mailboxes))
	for i, b := range m.inbox.mailboxes {
		line := b.Icon.Glyph() + " " + b.Name
		if b.UnreadCount > 0 {
			line += fmt.Sprintf(" (%d)", b.UnreadCount)
		}
		line = truncate(line, sideWidth-2)
		if i == m.inbox.boxIdx {
			if m.inbox.focus == focusMailboxes {
				line = sel.Render("› " + line)
			} else {
				line = "› " + line
			}
		} else {
			line = "  " + line
		}
		boxLines = append(boxLines, line)
	}

	listLines := m.inboxListLines(listWidth, height-2)
	sideBorder, listBorder := dimColor, dimColor
	if m.inbox.focus == focusMailboxes {
		sideBorder = accentColor
	} else {
		listBorder = accentColor
	}
	side := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(sideBorder).
		Padding(0, 1).Width(sideWidth).Render(fitLines(strings.Join(boxLines, "\n"), height-2))
	list := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(listBorder).
		Padding(0, 1).Width(listWidth).Render(fitLines(strings.Join(listLines, "\n"), height-2))
	body := lipgloss.JoinHorizontal(lipgloss.Top, side, " ", list)

	if m.inbox.composing {
		fields := make([]string, 0, composeFieldCount+1)
		fields = append(fields, lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("New message"))
		for _, in := range m.inbox.compose {
			in.SetWidth(max(10, m.width-16))
			fields = append(fields, in.View())
		}
		body += "\n" + strings.Join(fields, "\n")
	}
	return body
}

// inboxListLines renders the visible window of the message list.
func (m Model) inboxListLines(width, height int) []string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	emails := m.inbox.page.Emails
	header := hint.Render(fmt.Sprintf("page %d • %s", max(1, m.inbox.pageNum), plural(m.inbox.page.Total, "message")))
	if len(emails) == 0 {
		return []string{header, "", hint.Render("(no messages)")}
	}
	sel := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	unread := lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	now := m.now()
	start, end := windowBounds(len(emails), m.inbox.row, max(1, height-2))
	lines := []string{header, ""}
	for i := start; i < end; i++ {
		e := emails[i]
		mark := " "
		if !e.IsRead {
			mark = "●"
		}
		if e.IsStarred {
			mark += "★"
		} else {
			mark += " "
		}
		if e.HasAttachments {
			mark += "📎"
		} else {
			mark += "  "
		}
		when := relTime(e.ReceivedAt, now)
		sender := e.From.Name
		if strings.TrimSpace(sender) == "" {
			sender = e.From.Email
		}
		text := fmt.Sprintf("%s %-18s %s", mark, truncate(sender, 18), e.Subject)
		text = truncate(text, max(1, width-len(when)-3)) + "  " + hint.Render(when)
		switch {
		case i == m.inbox.row && m.inbox.focus == focusEmails:
			text = sel.Render(text)
		case !e.IsRead:
			text = unread.Render(text)
		}
		lines = append(lines, text)
	}
	return lines
}
