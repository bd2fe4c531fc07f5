package tui

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"strings"
	"time"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/mattn/go-runewidth"
)

// Service represents the application operations the TUI drives.
type Service interface {
	Config() app.ServiceConfig
	SetFilter(domain.BoardFilter)
	LoggedIn() bool
	Offline() bool

	Login(context.Context, domain.Credentials) (domain.User, error)
	Signup(context.Context, domain.Credentials) (domain.User, error)
	CurrentUser(context.Context) (domain.User, error)
	Logout(context.Context) error

	LoadBoard(context.Context) (domain.Board, error)
	CommitMove(context.Context, domain.MoveSnapshot) app.MoveOutcome
	SnoozeCard(ctx context.Context, emailID, when string) (time.Time, error)
	SummarizeCard(ctx context.Context, emailID string) (string, error)
	OpenCard(context.Context, domain.Card) (domain.Email, error)

	NewColumnEditor(context.Context) (*app.ColumnEditor, error)
	CommitColumnOp(context.Context, app.ColumnOp) app.ColumnResult
	ListGmailLabels(context.Context) ([]domain.GmailLabel, error)

	Suggest(ctx context.Context, query string) ([]domain.Suggestion, error)
	SemanticSearch(ctx context.Context, query string, limit int) (domain.SemanticPage, error)
	KeywordSearch(ctx context.Context, query, pageToken string) (domain.KeywordPage, error)
	LoadMore(ctx context.Context, query string, prev domain.KeywordPage) (domain.KeywordPage, error)

	ListMailboxes(context.Context) ([]domain.Mailbox, error)
	ListEmails(ctx context.Context, mailboxID string, page int) (domain.EmailPage, error)
	OpenEmail(ctx context.Context, id string) (domain.Email, error)
	ToggleStar(context.Context, domain.Email) (bool, error)
	Trash(ctx context.Context, id string) error
	Send(context.Context, domain.Draft) error
	Reply(ctx context.Context, original domain.Email, body string) error

	Statistics(context.Context, domain.Period) (domain.Statistics, error)
}

// screen identifies the active full-screen view.
type screen int

// screenLogin and related constants define package defaults.
const (
	screenLogin screen = iota
	screenBoard
	screenDetail
	screenInbox
	screenSearch
	screenSettings
	screenStats
)

// label returns the header tag for the screen.
func (s screen) label() string {
	switch s {
	case screenLogin:
		return "login"
	case screenBoard:
		return "board"
	case screenDetail:
		return "message"
	case screenInbox:
		return "inbox"
	case screenSearch:
		return "search"
	case screenSettings:
		return "columns"
	case screenStats:
		return "statistics"
	default:
		return "board"
	}
}

// Shared palette.
var (
	accentColor   = lipgloss.Color("62")
	mutedColor    = lipgloss.Color("241")
	dimColor      = lipgloss.Color("239")
	titleColor    = lipgloss.Color("252")
	selectedColor = lipgloss.Color("212")
	warningColor  = lipgloss.Color("203")
)

// Model is the bubbletea model for every mailkan screen.
type Model struct {
	svc Service

	ready  bool
	width  int
	height int

	status   string
	userName string
	offline  bool

	help help.Model
	keys keyMap

	now      func() time.Time
	copyText ClipboardFunc
	debounce time.Duration
	md       *markdownRenderer

	screen screen

	login    loginState
	board    boardState
	detail   detailState
	inbox    inboxState
	search   searchState
	settings settingsState
	stats    statsState
}

// userLoadedMsg carries the signed-in account.
type userLoadedMsg struct {
	user domain.User
	err  error
}

// loggedOutMsg reports the end of a session.
type loggedOutMsg struct {
	err error
}

// NewModel constructs a new value for this package.
func NewModel(svc Service, opts ...Option) Model {
	h := help.New()
	h.ShowAll = false
	m := Model{
		svc:      svc,
		status:   "loading...",
		help:     h,
		keys:     newKeyMap(),
		now:      time.Now,
		copyText: systemClipboard,
		debounce: defaultSearchDebounce,
		md:       &markdownRenderer{},
		screen:   screenBoard,
		login:    newLoginState(),
		board:    newBoardState(),
		detail:   newDetailState(),
		inbox:    newInboxState(),
		search:   newSearchState(),
		settings: newSettingsState(),
		stats:    statsState{period: domain.DefaultPeriod},
	}
	m.search.semantic = svc.Config().SearchMode != app.SearchModeKeyword
	for _, opt := range opts {
		if opt != nil {
			opt(&m)
		}
	}
	if !svc.LoggedIn() {
		m.screen = screenLogin
		m.status = "log in to continue"
		m.login.focus()
	}
	return m
}

// Init loads the account and board when a session already exists.
func (m Model) Init() tea.Cmd {
	if m.screen == screenLogin {
		return nil
	}
	return tea.Batch(m.loadUserCmd(), m.loadBoardCmd())
}

// Update updates state for the requested operation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyPressMsg:
		return m.handleKey(msg)
	case tea.MouseWheelMsg:
		return m.handleMouseWheel(msg)
	}

	m.offline = m.svc.Offline()
	switch msg := msg.(type) {
	case userLoadedMsg:
		if msg.err != nil {
			m.authLost(msg.err)
			return m, nil
		}
		m.userName = msg.user.DisplayName()
		return m, nil
	case loggedInMsg:
		return m.applyLoggedIn(msg)
	case loggedOutMsg:
		m.resetToLogin("logged out")
		if msg.err != nil {
			m.status = "logged out locally: " + msg.err.Error()
		}
		return m, nil
	case boardLoadedMsg:
		return m.applyBoardLoaded(msg)
	case moveCommittedMsg:
		return m.applyMoveCommitted(msg)
	case snoozedMsg:
		return m.applySnoozed(msg)
	case summarizedMsg:
		return m.applySummarized(msg)
	case emailOpenedMsg:
		return m.applyEmailOpened(msg)
	case replySentMsg:
		return m.applyReplySent(msg)
	case mailboxesLoadedMsg:
		return m.applyMailboxesLoaded(msg)
	case emailsLoadedMsg:
		return m.applyEmailsLoaded(msg)
	case starToggledMsg:
		return m.applyStarToggled(msg)
	case trashedMsg:
		return m.applyTrashed(msg)
	case draftSentMsg:
		return m.applyDraftSent(msg)
	case suggestTickMsg:
		return m.applySuggestTick(msg)
	case suggestionsMsg:
		return m.applySuggestions(msg)
	case searchResultsMsg:
		return m.applySearchResults(msg)
	case columnsLoadedMsg:
		return m.applyColumnsLoaded(msg)
	case columnOpDoneMsg:
		return m.applyColumnOpDone(msg)
	case statsLoadedMsg:
		return m.applyStatsLoaded(msg)
	default:
		return m, nil
	}
}

// handleKey routes key presses to the help overlay or the active screen.
func (m Model) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	if m.help.ShowAll {
		if key.Matches(msg, m.keys.toggleHelp, m.keys.back) {
			m.help.ShowAll = false
		}
		return m, nil
	}
	switch m.screen {
	case screenLogin:
		return m.handleLoginKey(msg)
	case screenDetail:
		return m.handleDetailKey(msg)
	case screenInbox:
		return m.handleInboxKey(msg)
	case screenSearch:
		return m.handleSearchKey(msg)
	case screenSettings:
		return m.handleSettingsKey(msg)
	case screenStats:
		return m.handleStatsKey(msg)
	default:
		return m.handleBoardKey(msg)
	}
}

// handleGlobalKey handles navigation shared by every screen without a focused input.
func (m Model) handleGlobalKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit, true
	case key.Matches(msg, m.keys.toggleHelp):
		m.help.ShowAll = true
		return m, nil, true
	case key.Matches(msg, m.keys.search) && m.screen != screenSearch:
		cmd := m.openSearch()
		return m, cmd, true
	case key.Matches(msg, m.keys.settings) && m.screen != screenSettings:
		model, cmd := m.openSettings()
		return model, cmd, true
	case key.Matches(msg, m.keys.stats) && m.screen != screenStats:
		model, cmd := m.openStats()
		return model, cmd, true
	case key.Matches(msg, m.keys.inbox) && m.screen != screenInbox:
		model, cmd := m.openInbox()
		return model, cmd, true
	case key.Matches(msg, m.keys.board) && m.screen != screenBoard:
		m.screen = screenBoard
		return m, m.loadBoardCmd(), true
	case key.Matches(msg, m.keys.logout):
		m.status = "logging out..."
		return m, m.logoutCmd(), true
	}
	return m, nil, false
}

// handleMouseWheel scrolls the message view and moves list selections.
func (m Model) handleMouseWheel(msg tea.MouseWheelMsg) (tea.Model, tea.Cmd) {
	if m.help.ShowAll {
		return m, nil
	}
	delta := 0
	switch msg.Button {
	case tea.MouseWheelUp:
		delta = -1
	case tea.MouseWheelDown:
		delta = 1
	default:
		return m, nil
	}
	switch m.screen {
	case screenDetail:
		m.detail.scroll = max(0, m.detail.scroll+delta*3)
	case screenBoard:
		m.board.row = max(0, m.board.row+delta)
		m.clampBoardSelection()
	case screenInbox:
		m.inbox.moveSelection(delta)
	case screenSearch:
		m.search.moveResult(delta)
	}
	return m, nil
}

// loadUserCmd fetches the signed-in account for the header.
func (m Model) loadUserCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		user, err := svc.CurrentUser(context.Background())
		return userLoadedMsg{user: user, err: err}
	}
}

// logoutCmd ends the session.
func (m Model) logoutCmd() tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		return loggedOutMsg{err: svc.Logout(context.Background())}
	}
}

// authLost switches to the login screen when err means the session is gone.
func (m *Model) authLost(err error) bool {
	if err == nil {
		return false
	}
	if !errors.Is(err, app.ErrNotLoggedIn) && m.svc.LoggedIn() {
		return false
	}
	m.resetToLogin("session expired, log in again")
	return true
}

// resetToLogin drops per-session state and shows the login form.
func (m *Model) resetToLogin(status string) {
	m.screen = screenLogin
	m.userName = ""
	m.board = newBoardState()
	m.detail = newDetailState()
	m.inbox = newInboxState()
	m.settings = newSettingsState()
	m.stats = statsState{period: domain.DefaultPeriod}
	semantic := m.search.semantic
	m.search = newSearchState()
	m.search.semantic = semantic
	m.login = newLoginState()
	m.login.focus()
	m.status = status
}

// failed records err in the status line unless it ended the session.
func (m *Model) failed(action string, err error) {
	if m.authLost(err) {
		return
	}
	m.status = action + " failed: " + err.Error()
}

// View handles view.
func (m Model) View() tea.View {
	v := tea.NewView(m.content())
	v.MouseMode = tea.MouseModeCellMotion
	v.AltScreen = true
	return v
}

// content renders the active screen with its overlays.
func (m Model) content() string {
	if !m.ready {
		return "loading..."
	}

	var body, overlay string
	switch m.screen {
	case screenLogin:
		body = m.renderLogin()
	case screenDetail:
		body = m.renderDetail()
	case screenInbox:
		body = m.renderInbox()
	case screenSearch:
		body = m.renderSearch()
	case screenSettings:
		body = m.renderSettings()
	case screenStats:
		body = m.renderStats()
	default:
		body = m.renderBoard()
		overlay = m.renderBoardPicker()
	}
	if m.help.ShowAll {
		overlay = m.renderHelpOverlay(m.width - 8)
	}
	return m.frame(body, overlay)
}

// frame stacks header, body, status, and help line, then centers overlay on top.
func (m Model) frame(body, overlay string) string {
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)
	sections := []string{m.renderHeader(), "", body}
	if status := strings.TrimSpace(m.status); status != "" && status != "ready" {
		sections = append(sections, statusStyle.Render(truncate(status, max(1, m.width-1))))
	}
	content := strings.Join(sections, "\n")

	helpBubble := m.help
	helpBubble.ShowAll = false
	helpBubble.SetWidth(max(0, m.width-2))
	helpLine := lipgloss.NewStyle().
		Foreground(mutedColor).
		BorderTop(true).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(max(0, m.width)).
		Render(helpBubble.View(m.helpKeys()))

	if m.height > 0 {
		content = fitLines(content, max(0, m.height-lipgloss.Height(helpLine)))
	}
	full := content + "\n" + helpLine
	if overlay != "" {
		overlayHeight := lipgloss.Height(full)
		if m.height > 0 {
			overlayHeight = m.height
		}
		full = overlayOnContent(full, overlay, max(1, m.width), max(1, overlayHeight))
	}
	return full
}

// renderHeader renders the title bar with account, filter, and connectivity state.
func (m Model) renderHeader() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(titleColor)
	statusStyle := lipgloss.NewStyle().Foreground(dimColor)
	header := titleStyle.Render("mailkan")
	if m.userName != "" {
		header += "  " + m.userName
	}
	header += statusStyle.Render("  [" + m.screen.label() + "]")
	if m.screen == screenBoard {
		if summary := filterSummary(m.svc.Config().Filter); summary != "" {
			header += statusStyle.Render("  " + summary)
		}
	}
	if m.offline {
		header += "  " + lipgloss.NewStyle().Bold(true).Foreground(warningColor).Render("OFFLINE · cached data")
	}
	return header
}

// bodyHeight returns the rows left for a screen body between header and footer.
func (m Model) bodyHeight() int {
	if m.height <= 0 {
		return 20
	}
	return max(8, m.height-6)
}

// helpKeys returns the bindings shown in the footer for the active screen.
func (m Model) helpKeys() help.KeyMap {
	k := m.keys
	switch m.screen {
	case screenLogin:
		return screenKeys{short: []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("ctrl+n", "login/signup")),
			key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		}}
	case screenDetail:
		return screenKeys{short: []key.Binding{k.back, k.moveDown, k.moveUp, k.pageDown, k.reply, k.star, k.trash, k.copyLink, k.summarize}}
	case screenInbox:
		return screenKeys{short: []key.Binding{
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
			k.open, k.star, k.trash, k.compose, k.nextPage, k.prevPage, k.board, k.quit,
		}}
	case screenSearch:
		return screenKeys{short: []key.Binding{
			key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "search/open")),
			key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "accept suggestion")),
			key.NewBinding(key.WithKeys("ctrl+t"), key.WithHelp("ctrl+t", "semantic/keyword")),
			key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("ctrl+l", "load more")),
			k.back,
		}}
	case screenSettings:
		return screenKeys{short: []key.Binding{
			key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
			key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
			key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
			key.NewBinding(key.WithKeys("J", "K"), key.WithHelp("J/K", "reorder")),
			k.back, k.quit,
		}}
	case screenStats:
		return screenKeys{short: []key.Binding{
			key.NewBinding(key.WithKeys("p", "tab"), key.WithHelp("p", "period")),
			k.reload, k.back, k.quit,
		}}
	default:
		return k
	}
}

// screenKeys adapts a fixed binding list to help.KeyMap.
type screenKeys struct {
	short []key.Binding
}

// ShortHelp handles short help.
func (s screenKeys) ShortHelp() []key.Binding { return s.short }

// FullHelp handles full help.
func (s screenKeys) FullHelp() [][]key.Binding { return [][]key.Binding{s.short} }

// renderHelpOverlay renders the full key reference.
func (m Model) renderHelpOverlay(maxWidth int) string {
	width := clamp(maxWidth, 56, 100)
	hb := m.help
	hb.ShowAll = true
	hb.SetWidth(width - 4)

	title := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("mailkan help")
	workflow := []string{
		lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Workflows"),
		"1. h/l pick a column  •  j/k pick a card  •  enter read it",
		"2. [ ] move the card left/right  •  m choose a column",
		"3. z snooze  •  s AI summary  •  y copy the Gmail link",
		"4. u unread only  •  a attachments only  •  o/O sort",
		"5. / search  •  I inbox  •  S columns  •  g statistics  •  b board",
	}
	lines := []string{
		title,
		"",
		hb.View(m.keys),
		"",
		lipgloss.NewStyle().Foreground(mutedColor).Render(strings.Join(workflow, "\n")),
		lipgloss.NewStyle().Foreground(mutedColor).Render("press ? or esc to close"),
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(dimColor).
		Padding(0, 1).
		Width(width).
		Render(strings.Join(lines, "\n"))
}

// renderPicker renders a small bordered menu with one highlighted row.
func renderPicker(title string, items []string, selected int, accent color.Color) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(accent)
	selStyle := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	lines := []string{titleStyle.Render(title), ""}
	for i, item := range items {
		if i == selected {
			lines = append(lines, selStyle.Render("› "+item))
			continue
		}
		lines = append(lines, "  "+item)
	}
	lines = append(lines, "", hint.Render("enter choose • esc cancel"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accent).
		Padding(0, 2).
		Render(strings.Join(lines, "\n"))
}

// filterSummary describes the active server-side board filter.
func filterSummary(f domain.BoardFilter) string {
	parts := make([]string, 0, 3)
	if f.UnreadOnly {
		parts = append(parts, "unread")
	}
	if f.AttachmentsOnly {
		parts = append(parts, "attachments")
	}
	if f.SortBy != "" {
		sort := "sort " + string(f.SortBy)
		if f.SortOrder != "" {
			sort += " " + string(f.SortOrder)
		}
		parts = append(parts, sort)
	}
	if len(parts) == 0 {
		return ""
	}
	return "filter: " + strings.Join(parts, " • ")
}

// relTime renders t relative to now, e.g. "3 hours ago".
func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// formatStamp formats a timestamp for message headers.
func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("Mon 2006-01-02 15:04")
}

// fitLines fits lines.
func fitLines(content string, maxLines int) string {
	if maxLines <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	switch {
	case len(lines) > maxLines:
		if maxLines == 1 {
			lines = []string{"…"}
		} else {
			lines = append(lines[:maxLines-1], "…")
		}
	case len(lines) < maxLines:
		padding := make([]string, maxLines-len(lines))
		lines = append(lines, padding...)
	}
	return strings.Join(lines, "\n")
}

// overlayOnContent overlays on content.
func overlayOnContent(base, overlay string, width, height int) string {
	if width <= 0 || height <= 0 {
		if strings.TrimSpace(overlay) == "" {
			return base
		}
		return overlay + "\n\n" + base
	}

	base = fitLines(base, height)
	canvas := lipgloss.NewCanvas(width, height)
	baseLayer := lipgloss.NewLayer(base).X(0).Y(0).Z(0)
	centeredOverlay := lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, overlay)
	overlayLayer := lipgloss.NewLayer(centeredOverlay).X(0).Y(0).Z(10)

	canvas.Compose(baseLayer)
	canvas.Compose(overlayLayer)
	return canvas.Render()
}

// truncate shortens s to width terminal cells, marking the cut with an ellipsis.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return runewidth.Truncate(s, width, "…")
}

// clamp clamps the requested operation.
func clamp(v, minV, maxV int) int {
	if maxV < minV {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// wrapIndex wraps an index by delta for a bounded collection.
func wrapIndex(current int, delta int, total int) int {
	if total <= 0 {
		return 0
	}
	next := current + delta
	for next < 0 {
		next += total
	}
	for next >= total {
		next -= total
	}
	return next
}

// windowBounds returns an inclusive-exclusive list window that keeps selected visible.
func windowBounds(total, selected, windowSize int) (int, int) {
	if total <= 0 || windowSize <= 0 {
		return 0, 0
	}
	if total <= windowSize {
		return 0, total
	}
	selected = clamp(selected, 0, total-1)
	start := max(0, selected-windowSize/2)
	end := start + windowSize
	if end > total {
		end = total
		start = max(0, end-windowSize)
	}
	return start, end
}

// plural formats n with a noun.
func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
