package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/evanschultz/mailkan/internal/highlight"
)

// searchState holds the query box, suggestions, and results.
type searchState struct {
	input textinput.Model
	// seq increases on every edit and search so stale responses can be dropped.
	seq int

	suggestions []domain.Suggestion
	sugIdx      int

	semantic bool
	query    string
	ran      bool
	loading  bool

	semanticPage domain.SemanticPage
	keywordPage  domain.KeywordPage
	resultIdx    int
	inResults    bool
}

func newSearchState() searchState {
	in := textinput.New()
	in.Prompt = "search: "
	in.Placeholder = "sender, subject, or a question"
	in.CharLimit = 200
	return searchState{input: in, sugIdx: -1, semantic: true}
}

// resultCount returns the number of listed results.
func (s searchState) resultCount() int {
	if s.semantic {
		return len(s.semanticPage.Results)
	}
	return len(s.keywordPage.Emails)
}

// resultEmail returns the message at idx.
func (s searchState) resultEmail(idx int) (domain.Email, bool) {
	if idx < 0 || idx >= s.resultCount() {
		return domain.Email{}, false
	}
	if s.semantic {
		return s.semanticPage.Results[idx].Email, true
	}
	return s.keywordPage.Emails[idx], true
}

// moveResult moves the result cursor.
func (s *searchState) moveResult(delta int) {
	s.resultIdx = clamp(s.resultIdx+delta, 0, s.resultCount()-1)
}

// clearResults drops results from a previous query.
func (s *searchState) clearResults() {
	s.semanticPage = domain.SemanticPage{}
	s.keywordPage = domain.KeywordPage{}
	s.resultIdx = 0
	s.ran = false
}

// suggestTickMsg fires when the debounce window for seq elapses.
type suggestTickMsg struct {
	seq   int
	query string
}

// suggestionsMsg carries autocomplete entries for seq.
type suggestionsMsg struct {
	seq   int
	items []domain.Suggestion
	err   error
}

// searchResultsMsg carries one search response for seq.
type searchResultsMsg struct {
	seq      int
	query    string
	semantic bool
	sem      domain.SemanticPage
	keyword  domain.KeywordPage
	appended bool
	err      error
}

// openSearch shows the search screen with the query box focused.
func (m *Model) openSearch() tea.Cmd {
	m.screen = screenSearch
	m.search.inResults = false
	m.status = "ready"
	return m.search.input.Focus()
}

// handleSearchKey edits the query or walks the results.
func (m Model) handleSearchKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+t":
		m.search.semantic = !m.search.semantic
		m.search.clearResults()
		if m.search.semantic {
			m.status = "semantic search"
		} else {
			m.status = "keyword search"
		}
		if strings.TrimSpace(m.search.query) == "" {
			return m, nil
		}
		return m.runSearch(m.search.query)
	case "ctrl+l":
		return m.loadMoreResults()
	}
	if m.search.inResults {
		return m.handleSearchResultsKey(msg)
	}

	switch msg.String() {
	case "esc":
		if len(m.search.suggestions) > 0 {
			m.search.suggestions = nil
			m.search.sugIdx = -1
			return m, nil
		}
		m.search.input.Blur()
		m.screen = screenBoard
		m.status = "ready"
		return m, nil
	case "down":
		if len(m.search.suggestions) > 0 {
			m.search.sugIdx = wrapIndex(m.search.sugIdx, 1, len(m.search.suggestions))
			return m, nil
		}
		if m.search.resultCount() > 0 {
			m.search.inResults = true
			m.search.input.Blur()
		}
		return m, nil
	case "up":
		if len(m.search.suggestions) > 0 {
			m.search.sugIdx = wrapIndex(max(m.search.sugIdx, 0), -1, len(m.search.suggestions))
		}
		return m, nil
	case "tab":
		if s, ok := m.selectedSuggestion(); ok {
			m.search.input.SetValue(s.Text)
			m.search.input.CursorEnd()
			m.search.suggestions = nil
			m.search.sugIdx = -1
			m.search.seq++
		}
		return m, nil
	case "enter":
		query := m.search.input.Value()
		if s, ok := m.selectedSuggestion(); ok && m.search.sugIdx >= 0 {
			query = s.Text
			m.search.input.SetValue(query)
			m.search.input.CursorEnd()
		}
		return m.runSearch(query)
	}

	before := m.search.input.Value()
	var cmd tea.Cmd
	m.search.input, cmd = m.search.input.Update(msg)
	after := m.search.input.Value()
	if after == before {
		return m, cmd
	}
	m.search.seq++
	m.search.sugIdx = -1
	if !domain.ShouldSuggest(after, m.svc.Config().SuggestMinChars) {
		m.search.suggestions = nil
		return m, cmd
	}
	return m, tea.Batch(cmd, m.suggestTickCmd(m.search.seq, after))
}

// handleSearchResultsKey walks results and opens one.
func (m Model) handleSearchResultsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.search.inResults = false
		return m, m.search.input.Focus()
	case key.Matches(msg, m.keys.moveUp):
		if m.search.resultIdx == 0 {
			m.search.inResults = false
			return m, m.search.input.Focus()
		}
		m.search.moveResult(-1)
		return m, nil
	case key.Matches(msg, m.keys.moveDown):
		m.search.moveResult(1)
		return m, nil
	case key.Matches(msg, m.keys.open):
		email, ok := m.search.resultEmail(m.search.resultIdx)
		if !ok {
			return m, nil
		}
		m.status = "opening..."
		svc := m.svc
		return m, func() tea.Msg {
			full, err := svc.OpenEmail(context.Background(), email.ID)
			return emailOpenedMsg{email: full, back: screenSearch, err: err}
		}
	}
	if model, cmd, ok := m.handleGlobalKey(msg); ok {
		return model, cmd
	}
	return m, nil
}

// selectedSuggestion returns the highlighted suggestion, or the first one when none is highlighted.
func (m Model) selectedSuggestion() (domain.Suggestion, bool) {
	if len(m.search.suggestions) == 0 {
		return domain.Suggestion{}, false
	}
	return m.search.suggestions[clamp(m.search.sugIdx, 0, len(m.search.suggestions)-1)], true
}

// suggestTickCmd waits out the debounce window for one edit.
func (m Model) suggestTickCmd(seq int, query string) tea.Cmd {
	if m.debounce <= 0 {
		return func() tea.Msg { return suggestTickMsg{seq: seq, query: query} }
	}
	return tea.Tick(m.debounce, func(time.Time) tea.Msg {
		return suggestTickMsg{seq: seq, query: query}
	})
}

// applySuggestTick requests suggestions when no newer edit happened.
func (m Model) applySuggestTick(msg suggestTickMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.search.seq || m.screen != screenSearch {
		return m, nil
	}
	svc := m.svc
	return m, func() tea.Msg {
		items, err := svc.Suggest(context.Background(), msg.query)
		return suggestionsMsg{seq: msg.seq, items: items, err: err}
	}
}

// applySuggestions shows suggestions for the latest query only.
func (m Model) applySuggestions(msg suggestionsMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.search.seq {
		return m, nil
	}
	if msg.err != nil {
		m.search.suggestions = nil
		m.failed("suggestions", msg.err)
		return m, nil
	}
	m.search.suggestions = msg.items
	m.search.sugIdx = -1
	return m, nil
}

// runSearch starts a search in the active mode.
func (m Model) runSearch(query string) (tea.Model, tea.Cmd) {
	query = strings.TrimSpace(query)
	if query == "" {
		m.status = "type a query first"
		return m, nil
	}
	m.search.seq++
	m.search.suggestions = nil
	m.search.sugIdx = -1
	m.search.query = query
	m.search.loading = true
	m.search.clearResults()
	m.status = "searching..."
	seq := m.search.seq
	semantic := m.search.semantic
	svc := m.svc
	return m, func() tea.Msg {
		out := searchResultsMsg{seq: seq, query: query, semantic: semantic}
		if semantic {
			out.sem, out.err = svc.SemanticSearch(context.Background(), query, 0)
		} else {
			out.keyword, out.err = svc.KeywordSearch(context.Background(), query, "")
		}
		return out
	}
}

// loadMoreResults fetches the next keyword page.
func (m Model) loadMoreResults() (tea.Model, tea.Cmd) {
	if m.search.semantic || m.search.loading {
		return m, nil
	}
	if !m.search.keywordPage.HasMore() {
		m.status = "no more results"
		return m, nil
	}
	m.search.loading = true
	m.status = "loading more..."
	seq := m.search.seq
	query := m.search.query
	prev := m.search.keywordPage
	svc := m.svc
	return m, func() tea.Msg {
		page, err := svc.LoadMore(context.Background(), query, prev)
		return searchResultsMsg{seq: seq, query: query, keyword: page, appended: true, err: err}
	}
}

// applySearchResults shows results for the latest search only.
func (m Model) applySearchResults(msg searchResultsMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.search.seq || msg.semantic != m.search.semantic {
		return m, nil
	}
	m.search.loading = false
	if msg.err != nil {
		m.failed("search", msg.err)
		return m, nil
	}
	m.search.ran = true
	if msg.semantic {
		m.search.semanticPage = msg.sem
	} else {
		m.search.keywordPage = msg.keyword
	}
	if !msg.appended {
		m.search.resultIdx = 0
	}
	m.search.moveResult(0)
	m.status = plural(m.search.resultCount(), "result")
	return m, nil
}

// renderSearch renders the query box, suggestions, and results.
func (m Model) renderSearch() string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	mark := lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("220"))
	markFn := func(s string) string { return mark.Render(s) }
	sel := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	width := max(30, m.width-4)

	mode := "keyword"
	if m.search.semantic {
		mode = "semantic"
	}
	in := m.search.input
	in.SetWidth(max(10, width-20))
	lines := []string{in.View() + hint.Render("  ["+mode+"]")}

	if len(m.search.suggestions) > 0 {
		typed := m.search.input.Value()
		for i, s := range m.search.suggestions {
			text := s.Type.Glyph() + " " + highlight.Apply(truncate(s.Text, width-4), typed, markFn)
			if i == m.search.sugIdx {
				lines = append(lines, sel.Render("› ")+text)
			} else {
				lines = append(lines, "  "+text)
			}
		}
	}
	lines = append(lines, "")

	switch {
	case m.search.loading && m.search.resultCount() == 0:
		lines = append(lines, hint.Render("searching..."))
	case !m.search.ran:
		lines = append(lines, hint.Render("enter to search • ctrl+t switch semantic/keyword"))
	case m.search.resultCount() == 0:
		lines = append(lines, hint.Render("no results for "+fmt.Sprintf("%q", m.search.query)))
	default:
		lines = append(lines, m.searchResultLines(width, markFn)...)
	}
	return strings.Join(lines, "\n")
}

// searchResultLines renders the visible window of results with matches marked.
func (m Model) searchResultLines(width int, markFn func(string) string) []string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	sel := lipgloss.NewStyle().Foreground(selectedColor).Bold(true)
	badge := lipgloss.NewStyle().Foreground(lipgloss.Color("70")).Bold(true)
	total := m.search.resultCount()
	window := max(1, (m.bodyHeight()-6)/2)
	start, end := windowBounds(total, m.search.resultIdx, window)
	now := m.now()
	q := m.search.query

	lines := make([]string, 0, (end-start)*2+1)
	for i := start; i < end; i++ {
		email, _ := m.search.resultEmail(i)
		prefix := "  "
		if m.search.inResults && i == m.search.resultIdx {
			prefix = sel.Render("› ")
		}
		head := ""
		if m.search.semantic {
			head = badge.Render(fmt.Sprintf("%3d%% ", m.search.semanticPage.Results[i].ScorePercent()))
		}
		sender := email.From.Name
		if strings.TrimSpace(sender) == "" {
			sender = email.From.Email
		}
		head += highlight.Apply(truncate(sender, 24), q, markFn) + "  " +
			highlight.Apply(truncate(email.Subject, max(1, width-36)), q, markFn)
		lines = append(lines, prefix+head)
		preview := strings.TrimSpace(email.Preview)
		lines = append(lines, "    "+hint.Render(relTime(email.ReceivedAt, now)+"  ")+
			highlight.Apply(truncate(preview, max(1, width-24)), q, markFn))
	}
	footer := plural(total, "result")
	switch {
	case m.search.semantic && m.search.semanticPage.Total > total:
		footer += fmt.Sprintf(" of %d", m.search.semanticPage.Total)
	case !m.search.semantic && m.search.keywordPage.HasMore():
		footer += " • ctrl+l load more"
	}
	if m.search.loading {
		footer += " • loading..."
	}
	return append(lines, "", hint.Render(footer))
}
