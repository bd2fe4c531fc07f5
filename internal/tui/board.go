package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
)

// pickerKind names the board overlay menu that is open.
type pickerKind int

// pickerNone and related constants define package defaults.
const (
	pickerNone pickerKind = iota
	pickerMove
	pickerSnooze
)

// boardState holds the kanban board and its selection.
type boardState struct {
	data   domain.Board
	loaded bool
	err    error

	col int
	row int

	// original lists cards toggled back from the AI summary to the preview.
	original map[string]bool

	picker  pickerKind
	pickIdx int
	pending int
}

func newBoardState() boardState {
	return boardState{original: map[string]bool{}}
}

// boardLoadedMsg carries a freshly merged board.
type boardLoadedMsg struct {
	board domain.Board
	err   error
}

// moveCommittedMsg carries the settled outcome of an optimistic move.
type moveCommittedMsg struct {
	outcome app.MoveOutcome
}

// snoozedMsg reports a snooze request.
type snoozedMsg struct {
	id    string
	until time.Time
	err   error
}

// summarizedMsg carries an on-demand AI summary.
type summarizedMsg struct {
	id      string
	summary string
	err     error
}

// loadBoardCmd fetches the board with the service's current filter.
func (m Model) loadBoardCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		board, err := svc.LoadBoard(context.Background())
		return boardLoadedMsg{board: board, err: err}
	}
}

// applyBoardLoaded replaces the board. A failed fetch keeps the previous board.
func (m Model) applyBoardLoaded(msg boardLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		if m.authLost(msg.err) {
			return m, nil
		}
		m.board.err = msg.err
		m.status = "load board failed: " + msg.err.Error()
		return m, nil
	}
	selectedID := ""
	if card, ok := m.selectedCard(); ok {
		selectedID = card.ID
	}
	m.board.err = nil
	m.board.loaded = true
	m.board.data = msg.board
	if selectedID == "" || !m.focusCard(selectedID) {
		m.clampBoardSelection()
	}
	if m.status == "loading..." {
		m.status = "ready"
	}
	return m, nil
}

// applyMoveCommitted reconciles the board with the backend's answer.
func (m Model) applyMoveCommitted(msg moveCommittedMsg) (tea.Model, tea.Cmd) {
	m.board.pending = max(0, m.board.pending-1)
	out := msg.outcome
	if !out.Failed() {
		m.status = "moved to " + m.board.data.MetaFor(out.Snapshot.To).Label
		return m, nil
	}
	out.Apply(&m.board.data)
	if m.authLost(out.Err) {
		return m, nil
	}
	m.focusCard(out.Snapshot.CardID)
	if out.Refetched != nil {
		m.status = "move failed, board reloaded: " + out.Err.Error()
	} else {
		m.status = "move failed, reverted: " + out.Err.Error()
	}
	return m, nil
}

// applySnoozed marks the card and refreshes the board so the backend decides where it lands.
func (m Model) applySnoozed(msg snoozedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("snooze", msg.err)
		return m, nil
	}
	m.board.data.UpdateCard(msg.id, func(c *domain.Card) { c.Snooze(msg.until) })
	m.status = "snoozed until " + msg.until.Local().Format("Mon 15:04")
	return m, m.loadBoardCmd()
}

// applySummarized stores a summary and shows it on the card.
func (m Model) applySummarized(msg summarizedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.failed("summarize", msg.err)
		return m, nil
	}
	m.board.data.UpdateCard(msg.id, func(c *domain.Card) { c.SetSummary(msg.summary) })
	delete(m.board.original, msg.id)
	if m.screen == screenDetail && m.detail.email.ID == msg.id {
		m.detail.email.Summary = msg.summary
		m.detail.showSummary = true
	}
	m.status = "summary ready"
	return m, nil
}

// handleBoardKey handles board navigation and card actions.
func (m Model) handleBoardKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if m.board.picker != pickerNone {
		return m.handleBoardPickerKey(msg)
	}
	if model, cmd, ok := m.handleGlobalKey(msg); ok {
		return model, cmd
	}
	keys := m.board.data.Keys()
	switch {
	case key.Matches(msg, m.keys.reload):
		m.status = "reloading..."
		return m, m.loadBoardCmd()
	case key.Matches(msg, m.keys.moveLeft):
		if m.board.col > 0 {
			m.board.col--
			m.clampBoardSelection()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveRight):
		if m.board.col < len(keys)-1 {
			m.board.col++
			m.clampBoardSelection()
		}
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		if m.board.row > 0 {
			m.board.row--
		}
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.board.row++
		m.clampBoardSelection()
		return m, nil
	case key.Matches(msg, m.keys.cardLeft):
		return m.moveSelectedCard(-1)
	case key.Matches(msg, m.keys.cardRight):
		return m.moveSelectedCard(1)
	case key.Matches(msg, m.keys.moveTo):
		if _, ok := m.selectedCard(); !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.board.picker = pickerMove
		m.board.pickIdx = m.board.col
		return m, nil
	case key.Matches(msg, m.keys.snooze):
		if _, ok := m.selectedCard(); !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.board.picker = pickerSnooze
		m.board.pickIdx = 0
		return m, nil
	case key.Matches(msg, m.keys.summarize):
		return m.toggleSummary()
	case key.Matches(msg, m.keys.copyLink):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		m.copyLink(card.GmailURL)
		return m, nil
	case key.Matches(msg, m.keys.open):
		card, ok := m.selectedCard()
		if !ok {
			m.status = "no card selected"
			return m, nil
		}
		return m.openCard(card)
	case key.Matches(msg, m.keys.unreadOnly):
		return m.updateFilter(func(f *domain.BoardFilter) { f.UnreadOnly = !f.UnreadOnly })
	case key.Matches(msg, m.keys.attachments):
		return m.updateFilter(func(f *domain.BoardFilter) { f.AttachmentsOnly = !f.AttachmentsOnly })
	case key.Matches(msg, m.keys.sortField):
		return m.updateFilter(func(f *domain.BoardFilter) {
			if f.SortBy == domain.SortSender {
				f.SortBy = domain.SortReceivedAt
			} else {
				f.SortBy = domain.SortSender
			}
		})
	case key.Matches(msg, m.keys.sortOrder):
		return m.updateFilter(func(f *domain.BoardFilter) {
			if f.SortOrder == domain.SortAsc {
				f.SortOrder = domain.SortDesc
			} else {
				f.SortOrder = domain.SortAsc
			}
		})
	}
	return m, nil
}

// handleBoardPickerKey drives the move and snooze menus.
func (m Model) handleBoardPickerKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	total := m.pickerLen()
	switch {
	case key.Matches(msg, m.keys.back):
		m.board.picker = pickerNone
		return m, nil
	case key.Matches(msg, m.keys.moveUp):
		m.board.pickIdx = wrapIndex(m.board.pickIdx, -1, total)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.board.pickIdx = wrapIndex(m.board.pickIdx, 1, total)
		return m, nil
	case key.Matches(msg, m.keys.open):
		kind := m.board.picker
		idx := m.board.pickIdx
		m.board.picker = pickerNone
		switch kind {
		case pickerMove:
			keys := m.board.data.Keys()
			if idx < 0 || idx >= len(keys) {
				return m, nil
			}
			return m.moveSelectedCardTo(keys[idx])
		case pickerSnooze:
			presets := domain.SnoozePresets()
			if idx < 0 || idx >= len(presets) {
				return m, nil
			}
			return m.snoozeSelectedCard(presets[idx])
		}
	}
	return m, nil
}

// pickerLen returns the number of rows in the open picker.
func (m Model) pickerLen() int {
	switch m.board.picker {
	case pickerMove:
		return len(m.board.data.Keys())
	case pickerSnooze:
		return len(domain.SnoozePresets())
	default:
		return 0
	}
}

// moveSelectedCard moves the selected card delta columns across the board.
func (m Model) moveSelectedCard(delta int) (tea.Model, tea.Cmd) {
	keys := m.board.data.Keys()
	dest := m.board.col + delta
	if dest < 0 || dest >= len(keys) {
		m.status = "no column in that direction"
		return m, nil
	}
	return m.moveSelectedCardTo(keys[dest])
}

// moveSelectedCardTo applies the move locally, then commits it in the background.
func (m Model) moveSelectedCardTo(destKey string) (tea.Model, tea.Cmd) {
	card, ok := m.selectedCard()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	snap, moved, err := m.board.data.Move(card.ID, destKey)
	if err != nil {
		m.status = "move failed: " + err.Error()
		return m, nil
	}
	if !moved {
		m.status = app.ErrMoveUnchanged.Error()
		return m, nil
	}
	m.focusCard(card.ID)
	m.board.pending++
	m.status = "moving to " + m.board.data.MetaFor(destKey).Label + "..."
	svc := m.svc
	return m, func() tea.Msg {
		return moveCommittedMsg{outcome: svc.CommitMove(context.Background(), snap)}
	}
}

// snoozeSelectedCard requests a snooze with one preset.
func (m Model) snoozeSelectedCard(preset domain.SnoozePreset) (tea.Model, tea.Cmd) {
	card, ok := m.selectedCard()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	m.status = "snoozing..."
	svc := m.svc
	return m, func() tea.Msg {
		until, err := svc.SnoozeCard(context.Background(), card.ID, string(preset))
		return snoozedMsg{id: card.ID, until: until, err: err}
	}
}

// toggleSummary flips between summary and preview, requesting a summary the first time.
func (m Model) toggleSummary() (tea.Model, tea.Cmd) {
	card, ok := m.selectedCard()
	if !ok {
		m.status = "no card selected"
		return m, nil
	}
	if strings.TrimSpace(card.Summary) != "" {
		if m.board.original[card.ID] {
			delete(m.board.original, card.ID)
			m.status = "showing summary"
		} else {
			m.board.original[card.ID] = true
			m.status = "showing original"
		}
		return m, nil
	}
	m.status = "summarizing..."
	return m, m.summarizeCmd(card.ID)
}

// summarizeCmd requests an AI summary for one message.
func (m Model) summarizeCmd(id string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		summary, err := svc.SummarizeCard(context.Background(), id)
		return summarizedMsg{id: id, summary: summary, err: err}
	}
}

// openCard marks the card read locally and loads the full message.
func (m Model) openCard(card domain.Card) (tea.Model, tea.Cmd) {
	m.board.data.UpdateCard(card.ID, func(c *domain.Card) { c.MarkRead() })
	m.status = "opening..."
	svc := m.svc
	return m, func() tea.Msg {
		email, err := svc.OpenCard(context.Background(), card)
		return emailOpenedMsg{email: email, card: &card, back: screenBoard, err: err}
	}
}

// updateFilter changes the server-side filter and reloads the board.
func (m Model) updateFilter(fn func(*domain.BoardFilter)) (tea.Model, tea.Cmd) {
	f := m.svc.Config().Filter
	fn(&f)
	m.svc.SetFilter(f)
	m.status = "reloading..."
	if summary := filterSummary(f); summary != "" {
		m.status = summary
	}
	return m, m.loadBoardCmd()
}

// copyLink writes url to the clipboard.
func (m *Model) copyLink(url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		m.status = "no gmail link for this message"
		return
	}
	if err := m.copyText(url); err != nil {
		m.status = "copy failed: " + err.Error()
		return
	}
	m.status = "copied gmail link"
}

// selectedKey returns the column key under the cursor.
func (m Model) selectedKey() (string, bool) {
	keys := m.board.data.Keys()
	if len(keys) == 0 {
		return "", false
	}
	return keys[clamp(m.board.col, 0, len(keys)-1)], true
}

// selectedCard returns the card under the cursor.
func (m Model) selectedCard() (domain.Card, bool) {
	k, ok := m.selectedKey()
	if !ok {
		return domain.Card{}, false
	}
	cards := m.board.data.Cards[k]
	if m.board.row < 0 || m.board.row >= len(cards) {
		return domain.Card{}, false
	}
	return cards[m.board.row], true
}

// focusCard moves the cursor onto the card with id.
func (m *Model) focusCard(id string) bool {
	for colIdx, k := range m.board.data.Keys() {
		for rowIdx, c := range m.board.data.Cards[k] {
			if c.ID == id {
				m.board.col = colIdx
				m.board.row = rowIdx
				return true
			}
		}
	}
	return false
}

// clampBoardSelection keeps the cursor inside the board.
func (m *Model) clampBoardSelection() {
	keys := m.board.data.Keys()
	if len(keys) == 0 {
		m.board.col, m.board.row = 0, 0
		return
	}
	m.board.col = clamp(m.board.col, 0, len(keys)-1)
	m.board.row = clamp(m.board.row, 0, len(m.board.data.Cards[keys[m.board.col]])-1)
}

// columnWidthFor returns the card column width for the visible column count.
func columnWidthFor(boardWidth, columns int) int {
	if columns == 0 {
		return 24
	}
	w := 28
	if boardWidth > 0 {
		// Per-column overhead: left/right border (2), horizontal padding (4), margin-right (1)
		const colOverhead = 7
		candidate := (boardWidth - columns*colOverhead) / columns
		if candidate > 0 {
			w = candidate
		}
	}
	return clamp(w, 24, 42)
}

// visibleColumns returns how many columns fit across width.
func visibleColumns(width, total int) int {
	if width <= 0 {
		return total
	}
	return clamp(width/(24+7), 1, max(1, total))
}

// renderBoard renders the board body.
func (m Model) renderBoard() string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	if m.board.err != nil && !m.board.loaded {
		return "error: " + m.board.err.Error() + "\n\n" + hint.Render("press r to retry • q quit")
	}
	if !m.board.loaded {
		return hint.Render("loading board...")
	}
	keys := m.board.data.Keys()
	if len(keys) == 0 {
		return hint.Render("no columns configured • press S to add one")
	}

	start, end := windowBounds(len(keys), m.board.col, visibleColumns(m.width, len(keys)))
	colWidth := columnWidthFor(m.width, end-start)
	colHeight := max(8, m.bodyHeight())
	now := m.now()

	views := make([]string, 0, end-start)
	for colIdx := start; colIdx < end; colIdx++ {
		k := keys[colIdx]
		meta := m.board.data.MetaFor(k)
		accent := lipgloss.Color(meta.Color.TerminalColor())
		border := dimColor
		if colIdx == m.board.col {
			border = accent
		}
		style := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1).
			MarginRight(1).
			Width(colWidth)

		cards := m.board.data.Cards[k]
		title := lipgloss.NewStyle().Bold(true).Foreground(accent).
			Render(truncate(fmt.Sprintf("%s (%d)", meta.Label, len(cards)), colWidth-4))
		lines, selStart, selEnd := m.cardLines(cards, colIdx == m.board.col, colWidth-4, now)

		innerHeight := max(1, colHeight-2)
		window := max(1, innerHeight-2)
		top := 0
		if selStart >= 0 {
			if selEnd >= top+window {
				top = selEnd - window + 1
			}
			if selStart < top {
				top = selStart
			}
		}
		top = clamp(top, 0, max(0, len(lines)-window))
		if len(lines) > window {
			lines = lines[top : top+window]
		}
		content := fitLines(strings.Join(append([]string{title, ""}, lines...), "\n"), innerHeight)
		views = append(views, style.Render(content))
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, views...)
	if start > 0 || end < len(keys) {
		body += "\n" + hint.Render(fmt.Sprintf("columns %d-%d of %d", start+1, end, len(keys)))
	}
	if m.board.pending > 0 {
		body += "\n" + hint.Render(fmt.Sprintf("%s syncing", plural(m.board.pending, "move")))
	}
	return body
}

// cardLines renders one column's cards and reports the selected card's row span.
func (m Model) cardLines(cards []domain.Card, activeColumn bool, width int, now time.Time) ([]string, int, int) {
	empty := lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	if len(cards) == 0 {
		return []string{empty.Render("(empty)")}, -1, -1
	}
	selStyle := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	unreadStyle := lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	subStyle := lipgloss.NewStyle().Foreground(mutedColor)
	summaryStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("109"))

	lines := make([]string, 0, len(cards)*4)
	selStart, selEnd := -1, -1
	for idx, card := range cards {
		selected := activeColumn && idx == m.board.row
		prefix := "  "
		if selected {
			prefix = "│ "
		}
		marker := " "
		if !card.IsRead {
			marker = "●"
		}
		badges := ""
		if card.HasAttachments {
			badges += " 📎"
		}
		if card.IsSnoozed(now) {
			badges += " ⏾"
		}
		head := truncate(marker+" "+card.Sender, max(1, width-2-lipglossWidth(badges))) + badges
		switch {
		case selected:
			head = selStyle.Render(head)
		case !card.IsRead:
			head = unreadStyle.Render(head)
		}

		start := len(lines)
		lines = append(lines, prefix+head)
		lines = append(lines, prefix+truncate(card.Subject, max(1, width-2)))
		text := card.DisplayText()
		textStyle := subStyle
		if strings.TrimSpace(card.Summary) != "" && !m.board.original[card.ID] {
			textStyle = summaryStyle
		} else if m.board.original[card.ID] {
			text = strings.TrimSpace(card.Preview)
		}
		if text != "" {
			lines = append(lines, prefix+textStyle.Render(truncate(text, max(1, width-2))))
		}
		meta := relTime(card.ReceivedAt, now)
		if card.IsSnoozed(now) {
			meta = "snoozed until " + card.SnoozedUntil.Local().Format("Mon 15:04")
		}
		lines = append(lines, prefix+subStyle.Render(truncate(meta, max(1, width-2))))
		if selected {
			selStart, selEnd = start, len(lines)-1
		}
		if idx < len(cards)-1 {
			lines = append(lines, "")
		}
	}
	return lines, selStart, selEnd
}

// renderBoardPicker renders the open move or snooze menu.
func (m Model) renderBoardPicker() string {
	switch m.board.picker {
	case pickerMove:
		keys := m.board.data.Keys()
		items := make([]string, 0, len(keys))
		for _, k := range keys {
			items = append(items, m.board.data.MetaFor(k).Label)
		}
		return renderPicker("Move to column", items, m.board.pickIdx, accentColor)
	case pickerSnooze:
		now := m.now()
		items := make([]string, 0, 4)
		for _, p := range domain.SnoozePresets() {
			until, err := p.Until(now)
			if err != nil {
				continue
			}
			items = append(items, fmt.Sprintf("%-18s %s", p.Label(), until.Local().Format("Mon 15:04")))
		}
		return renderPicker("Snooze until", items, m.board.pickIdx, accentColor)
	default:
		return ""
	}
}

// lipglossWidth returns the printable width of s.
func lipglossWidth(s string) int {
	return lipgloss.Width(s)
}
