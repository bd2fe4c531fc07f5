package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/x/ansi"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
)

type fakeService struct {
	cfg      app.ServiceConfig
	loggedIn bool
	offline  bool

	board   domain.Board
	loadErr error
	moveErr error
	emails  map[string]domain.Email

	columns   []domain.Column
	labels    []domain.GmailLabel
	columnErr error

	suggestions []domain.Suggestion
	semantic    domain.SemanticPage
	keyword     []domain.KeywordPage

	mailboxes []domain.Mailbox
	pages     map[string]domain.EmailPage
	stats     map[domain.Period]domain.Statistics

	loginCreds     []domain.Credentials
	snoozed        map[string]string
	summarized     []string
	columnOps      []app.ColumnOp
	sent           []domain.Draft
	replies        []string
	trashed        []string
	suggestQueries []string
	loggedOut      bool
}

func newFakeService(board domain.Board) *fakeService {
	return &fakeService{
		cfg:      app.ServiceConfig{SearchMode: app.SearchModeSemantic, SuggestMinChars: 2},
		loggedIn: true,
		board:    board,
		emails:   map[string]domain.Email{},
		pages:    map[string]domain.EmailPage{},
		stats:    map[domain.Period]domain.Statistics{},
		snoozed:  map[string]string{},
	}
}

func (f *fakeService) Config() app.ServiceConfig { return f.cfg }

func (f *fakeService) SetFilter(filter domain.BoardFilter) { f.cfg.Filter = filter }

func (f *fakeService) LoggedIn() bool { return f.loggedIn }

func (f *fakeService) Offline() bool { return f.offline }

func (f *fakeService) Login(_ context.Context, creds domain.Credentials) (domain.User, error) {
	f.loginCreds = append(f.loginCreds, creds)
	if creds.Password != "secret" {
		return domain.User{}, errors.New("invalid credentials")
	}
	f.loggedIn = true
	return domain.User{ID: "u1", Email: creds.Email, Name: "Ada"}, nil
}

func (f *fakeService) Signup(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	return f.Login(ctx, creds)
}

func (f *fakeService) CurrentUser(context.Context) (domain.User, error) {
	if !f.loggedIn {
		return domain.User{}, app.ErrNotLoggedIn
	}
	return domain.User{ID: "u1", Email: "ada@example.com", Name: "Ada"}, nil
}

func (f *fakeService) Logout(context.Context) error {
	f.loggedIn = false
	f.loggedOut = true
	return nil
}

func (f *fakeService) LoadBoard(context.Context) (domain.Board, error) {
	if f.loadErr != nil {
		return domain.Board{}, f.loadErr
	}
	return f.board.Clone(), nil
}

func (f *fakeService) CommitMove(_ context.Context, snap domain.MoveSnapshot) app.MoveOutcome {
	if f.moveErr != nil {
		return app.MoveOutcome{Snapshot: snap, Err: f.moveErr}
	}
	_, _, _ = f.board.Move(snap.CardID, snap.To)
	return app.MoveOutcome{Snapshot: snap}
}

func (f *fakeService) SnoozeCard(_ context.Context, emailID, when string) (time.Time, error) {
	f.snoozed[emailID] = when
	return time.Date(2026, 2, 21, 16, 0, 0, 0, time.UTC), nil
}

func (f *fakeService) SummarizeCard(_ context.Context, emailID string) (string, error) {
	f.summarized = append(f.summarized, emailID)
	return "Invoice due Friday", nil
}

func (f *fakeService) OpenCard(ctx context.Context, card domain.Card) (domain.Email, error) {
	return f.OpenEmail(ctx, card.ID)
}

func (f *fakeService) NewColumnEditor(context.Context) (*app.ColumnEditor, error) {
	if f.columnErr != nil {
		return nil, f.columnErr
	}
	return app.NewColumnEditor(f.columns, func() string { return "1" }), nil
}

func (f *fakeService) CommitColumnOp(_ context.Context, op app.ColumnOp) app.ColumnResult {
	f.columnOps = append(f.columnOps, op)
	if f.columnErr != nil {
		return app.ColumnResult{Err: f.columnErr}
	}
	switch op.Kind {
	case app.ColumnOpCreate:
		col := domain.Column{
			ID:         "col-new",
			Key:        domain.ColumnKeyFromLabel(op.Input.Label),
			Label:      op.Input.Label,
			GmailLabel: op.Input.GmailLabel,
			Color:      op.Input.Color,
			Order:      len(f.columns),
		}
		f.columns = append(f.columns, col)
		return app.ColumnResult{Column: col}
	default:
		return app.ColumnResult{Columns: f.columns}
	}
}

func (f *fakeService) ListGmailLabels(context.Context) ([]domain.GmailLabel, error) {
	return f.labels, nil
}

func (f *fakeService) Suggest(_ context.Context, query string) ([]domain.Suggestion, error) {
	f.suggestQueries = append(f.suggestQueries, query)
	return f.suggestions, nil
}

func (f *fakeService) SemanticSearch(_ context.Context, query string, _ int) (domain.SemanticPage, error) {
	page := f.semantic
	page.Query = query
	return page, nil
}

func (f *fakeService) KeywordSearch(_ context.Context, _ string, pageToken string) (domain.KeywordPage, error) {
	if len(f.keyword) == 0 {
		return domain.KeywordPage{}, nil
	}
	if pageToken == "" {
		return f.keyword[0], nil
	}
	for i, p := range f.keyword {
		if p.NextPageToken == pageToken && i+1 < len(f.keyword) {
			return f.keyword[i+1], nil
		}
	}
	return domain.KeywordPage{}, nil
}

func (f *fakeService) LoadMore(ctx context.Context, query string, prev domain.KeywordPage) (domain.KeywordPage, error) {
	next, err := f.KeywordSearch(ctx, query, prev.NextPageToken)
	if err != nil {
		return prev, err
	}
	return domain.KeywordPage{
		Emails:        append(append([]domain.Email(nil), prev.Emails...), next.Emails...),
		NextPageToken: next.NextPageToken,
	}, nil
}

func (f *fakeService) ListMailboxes(context.Context) ([]domain.Mailbox, error) {
	return f.mailboxes, nil
}

func (f *fakeService) ListEmails(_ context.Context, mailboxID string, page int) (domain.EmailPage, error) {
	out := f.pages[fmt.Sprintf("%s/%d", mailboxID, page)]
	out.Page = page
	return out, nil
}

func (f *fakeService) OpenEmail(_ context.Context, id string) (domain.Email, error) {
	email, ok := f.emails[id]
	if !ok {
		return domain.Email{}, app.ErrNotFound
	}
	email.IsRead = true
	return email, nil
}

func (f *fakeService) ToggleStar(_ context.Context, email domain.Email) (bool, error) {
	return !email.IsStarred, nil
}

func (f *fakeService) Trash(_ context.Context, id string) error {
	f.trashed = append(f.trashed, id)
	return nil
}

func (f *fakeService) Send(_ context.Context, draft domain.Draft) error {
	f.sent = append(f.sent, draft)
	return nil
}

func (f *fakeService) Reply(_ context.Context, original domain.Email, body string) error {
	f.replies = append(f.replies, original.ID+":"+body)
	return nil
}

func (f *fakeService) Statistics(_ context.Context, period domain.Period) (domain.Statistics, error) {
	s := f.stats[period]
	s.Period = period
	return s, nil
}

var testNow = time.Date(2026, 2, 21, 12, 0, 0, 0, time.UTC)

func sampleBoard() domain.Board {
	meta := []domain.ColumnMeta{
		{Key: "inbox", Label: "Inbox", Color: domain.ColumnColorBlue},
		{Key: "todo", Label: "To Do", Color: domain.ColumnColorGold},
		{Key: "done", Label: "Done", Color: domain.ColumnColorGreen},
	}
	return domain.MergeBoard(meta, map[string][]domain.Card{
		"inbox": {
			{ID: "e1", Sender: "Billing Team", Subject: "Invoice #42", Preview: "Your invoice is ready", ReceivedAt: testNow.Add(-2 * time.Hour), HasAttachments: true},
			{ID: "e2", Sender: "Grace", Subject: "Lunch?", Preview: "Noon works", ReceivedAt: testNow.Add(-time.Hour), IsRead: true},
		},
		"todo": {
			{ID: "e3", Sender: "Linus", Subject: "Review patch", Summary: "Needs review by Monday", Preview: "Please look", ReceivedAt: testNow.Add(-24 * time.Hour)},
		},
	})
}

func newTestModel(t *testing.T, svc *fakeService, opts ...Option) Model {
	t.Helper()
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithSearchDebounce(0),
		WithClipboard(func(string) error { return nil }),
	}
	m := NewModel(svc, append(base, opts...)...)
	m = applyMsg(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	return applyCmd(t, m, m.Init())
}

func TestModelLoadAndNavigation(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	if !m.board.loaded || m.board.data.CardCount() != 3 {
		t.Fatalf("expected loaded board with 3 cards, got loaded=%t count=%d", m.board.loaded, m.board.data.CardCount())
	}
	if m.userName != "Ada" {
		t.Fatalf("expected user name Ada, got %q", m.userName)
	}
	m = applyMsg(t, m, keyRune('j'))
	if card, ok := m.selectedCard(); !ok || card.ID != "e2" {
		t.Fatalf("expected e2 selected, got %#v", card)
	}
	m = applyMsg(t, m, keyRune('j'))
	if m.board.row != 1 {
		t.Fatalf("expected selection clamped to last card, got row %d", m.board.row)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	if card, ok := m.selectedCard(); !ok || card.ID != "e3" {
		t.Fatalf("expected e3 selected after moving right, got %#v", card)
	}
	m = applyMsg(t, m, keyRune('l'))
	if _, ok := m.selectedCard(); ok || m.board.col != 2 {
		t.Fatalf("expected empty done column selected, got col %d", m.board.col)
	}

	out := viewString(m)
	for _, want := range []string{"Inbox (2)", "To Do (1)", "Billing Team", "Needs review by Monday", "(empty)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected view to contain %q\n%s", want, out)
		}
	}
}

func TestModelOptimisticMoveCommits(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	updated, cmd := m.Update(keyRune(']'))
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("expected commit command")
	}
	if key, _ := m.board.data.FindContainer("e1"); key != "todo" {
		t.Fatalf("expected optimistic move to todo, got %q", key)
	}
	if card, ok := m.selectedCard(); !ok || card.ID != "e1" {
		t.Fatalf("expected cursor to follow moved card, got %#v", card)
	}
	m = applyCmd(t, m, cmd)
	if key, _ := m.board.data.FindContainer("e1"); key != "todo" {
		t.Fatalf("expected e1 to stay in todo, got %q", key)
	}
	if key, _ := svc.board.FindContainer("e1"); key != "todo" {
		t.Fatalf("expected backend move to todo, got %q", key)
	}
	if !strings.Contains(m.status, "moved to To Do") {
		t.Fatalf("unexpected status %q", m.status)
	}
}

func TestModelOptimisticMoveRollsBack(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.moveErr = errors.New("backend unavailable")
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune(']'))
	if key, _ := m.board.data.FindContainer("e1"); key != "inbox" {
		t.Fatalf("expected rollback to inbox, got %q", key)
	}
	if cards := m.board.data.Cards["inbox"]; len(cards) != 2 || cards[0].ID != "e1" {
		t.Fatalf("expected e1 restored at its original index, got %#v", cards)
	}
	if !strings.Contains(m.status, "reverted") {
		t.Fatalf("expected revert status, got %q", m.status)
	}

	m = applyMsg(t, m, keyRune('['))
	if !strings.Contains(m.status, "no column") {
		t.Fatalf("expected edge status, got %q", m.status)
	}
}

func TestModelFailedMoveKeepsLaterMove(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	updated, commitFirst := m.Update(keyRune(']'))
	m = updated.(Model)
	if commitFirst == nil {
		t.Fatal("expected commit command")
	}
	snapSecond, moved, err := m.board.data.Move("e2", "done")
	if err != nil || !moved {
		t.Fatalf("Move(e2) = %v,%v", moved, err)
	}
	m.board.pending++

	svc.moveErr = errors.New("backend unavailable")
	m = applyMsg(t, m, commitFirst())
	m = applyMsg(t, m, moveCommittedMsg{outcome: app.MoveOutcome{Snapshot: snapSecond}})

	want := map[string][]string{"inbox": {"e1"}, "todo": {"e3"}, "done": {"e2"}}
	for key, ids := range want {
		list := m.board.data.Cards[key]
		if len(list) != len(ids) {
			t.Fatalf("column %s = %#v, want %v", key, list, ids)
		}
		for i, id := range ids {
			if list[i].ID != id {
				t.Fatalf("column %s = %#v, want %v", key, list, ids)
			}
		}
	}
	if m.board.pending != 0 {
		t.Fatalf("expected no pending moves, got %d", m.board.pending)
	}
}

func TestModelMovePicker(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('m'))
	if m.board.picker != pickerMove {
		t.Fatalf("expected move picker, got %v", m.board.picker)
	}
	if !strings.Contains(viewString(m), "Move to column") {
		t.Fatal("expected move picker overlay in view")
	}
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, keyRune('j'))
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if key, _ := m.board.data.FindContainer("e1"); key != "done" {
		t.Fatalf("expected e1 in done, got %q", key)
	}
	if m.board.picker != pickerNone {
		t.Fatal("expected picker closed")
	}
}

func TestModelSnoozeAndSummary(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('z'))
	if m.board.picker != pickerSnooze {
		t.Fatal("expected snooze picker")
	}
	if out := viewString(m); !strings.Contains(out, "Later today") || !strings.Contains(out, "Tomorrow morning") {
		t.Fatalf("expected snooze preset labels\n%s", out)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if svc.snoozed["e1"] != string(domain.SnoozeLaterToday) {
		t.Fatalf("expected later_today snooze, got %#v", svc.snoozed)
	}

	m = applyMsg(t, m, keyRune('s'))
	if len(svc.summarized) != 1 || svc.summarized[0] != "e1" {
		t.Fatalf("expected summary request for e1, got %#v", svc.summarized)
	}
	card, _, _ := m.board.data.CardByID("e1")
	if card.Summary != "Invoice due Friday" {
		t.Fatalf("expected summary stored, got %q", card.Summary)
	}
	m = applyMsg(t, m, keyRune('s'))
	if !m.board.original["e1"] {
		t.Fatal("expected second s to show the original preview")
	}
	if len(svc.summarized) != 1 {
		t.Fatalf("expected no second summary request, got %d", len(svc.summarized))
	}
}

func TestModelFilterKeysReload(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('u'))
	if !svc.cfg.Filter.UnreadOnly {
		t.Fatal("expected unread filter enabled")
	}
	m = applyMsg(t, m, keyRune('o'))
	m = applyMsg(t, m, keyRune('O'))
	if svc.cfg.Filter.SortBy != domain.SortSender || svc.cfg.Filter.SortOrder != domain.SortAsc {
		t.Fatalf("unexpected sort filter %#v", svc.cfg.Filter)
	}
	if !strings.Contains(viewString(m), "filter: unread") {
		t.Fatal("expected filter summary in header")
	}
}

func TestModelOpenCardMarksRead(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.emails["e1"] = domain.Email{
		ID:      "e1",
		From:    domain.EmailAddress{Name: "Billing Team", Email: "billing@example.com"},
		Subject: "Invoice #42",
		Body:    "Your **invoice** is ready.",
		Attachments: []domain.Attachment{
			{ID: "a1", Filename: "invoice.pdf", Size: 2048},
		},
	}
	m := newTestModel(t, svc)

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.screen != screenDetail || m.detail.email.ID != "e1" {
		t.Fatalf("expected detail view for e1, got screen %v", m.screen)
	}
	if card, _, _ := m.board.data.CardByID("e1"); !card.IsRead {
		t.Fatal("expected card marked read")
	}
	out := viewString(m)
	for _, want := range []string{"Invoice #42", "invoice.pdf", "2.0 kB"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected detail view to contain %q\n%s", want, out)
		}
	}

	m = applyMsg(t, m, keyRune('R'))
	if !m.detail.replying {
		t.Fatal("expected reply field open")
	}
	for _, r := range "thanks" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if len(svc.replies) != 1 || svc.replies[0] != "e1:thanks" {
		t.Fatalf("unexpected replies %#v", svc.replies)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.screen != screenBoard {
		t.Fatalf("expected back to board, got %v", m.screen)
	}
}

func TestModelOfflineBadge(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.offline = true
	m := newTestModel(t, svc)
	if !m.offline {
		t.Fatal("expected offline flag")
	}
	if !strings.Contains(viewString(m), "OFFLINE") {
		t.Fatal("expected offline badge in header")
	}
}

func TestModelLoadErrorKeepsRetryHint(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.loadErr = errors.New("connection refused")
	m := newTestModel(t, svc)
	if m.board.loaded {
		t.Fatal("expected board not loaded")
	}
	if out := viewString(m); !strings.Contains(out, "press r to retry") {
		t.Fatalf("expected retry hint\n%s", out)
	}
	svc.loadErr = nil
	m = applyMsg(t, m, keyRune('r'))
	if !m.board.loaded {
		t.Fatal("expected board loaded after retry")
	}
}

func TestModelSessionExpiryShowsLogin(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	svc.loggedIn = false
	svc.loadErr = fmt.Errorf("load board: %w", app.ErrNotLoggedIn)
	m = applyMsg(t, m, keyRune('r'))
	if m.screen != screenLogin {
		t.Fatalf("expected login screen, got %v", m.screen)
	}
	if m.board.loaded {
		t.Fatal("expected board state dropped")
	}
}

func TestModelLoginFlow(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.loggedIn = false
	m := newTestModel(t, svc)
	if m.screen != screenLogin {
		t.Fatalf("expected login screen, got %v", m.screen)
	}

	for _, r := range "ada@example.com" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	for _, r := range "wrong" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.screen != screenLogin || !strings.Contains(m.status, "login failed") {
		t.Fatalf("expected failed login, screen=%v status=%q", m.screen, m.status)
	}

	m.login.password.SetValue("secret")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.screen != screenBoard || !m.board.loaded {
		t.Fatalf("expected loaded board after login, screen=%v", m.screen)
	}
	if got := svc.loginCreds[len(svc.loginCreds)-1].Email; got != "ada@example.com" {
		t.Fatalf("unexpected login email %q", got)
	}
	if m.userName != "Ada" {
		t.Fatalf("expected user name, got %q", m.userName)
	}

	m = applyMsg(t, m, keyRune('L'))
	if !svc.loggedOut || m.screen != screenLogin {
		t.Fatalf("expected logout to show login, screen=%v", m.screen)
	}
}

func TestModelSearchSuggestionsAndResults(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.suggestions = []domain.Suggestion{{Text: "invoice", Type: domain.SuggestionKeyword}}
	svc.semantic = domain.SemanticPage{Total: 1, Results: []domain.SemanticResult{{
		Email: domain.Email{ID: "e1", Subject: "Invoice #42", From: domain.EmailAddress{Name: "Billing Team"}},
		Score: 0.873,
	}}}
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('/'))
	if m.screen != screenSearch {
		t.Fatalf("expected search screen, got %v", m.screen)
	}
	m = applyMsg(t, m, keyRune('i'))
	if len(svc.suggestQueries) != 0 {
		t.Fatalf("expected no suggestion request below minimum, got %#v", svc.suggestQueries)
	}
	m = applyMsg(t, m, keyRune('n'))
	if len(svc.suggestQueries) != 1 || svc.suggestQueries[0] != "in" {
		t.Fatalf("expected one suggestion request for 'in', got %#v", svc.suggestQueries)
	}
	if len(m.search.suggestions) != 1 {
		t.Fatalf("expected suggestion shown, got %#v", m.search.suggestions)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	if got := m.search.input.Value(); got != "invoice" {
		t.Fatalf("expected suggestion accepted, got %q", got)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.search.resultCount() != 1 {
		t.Fatalf("expected 1 result, got %d", m.search.resultCount())
	}
	if out := viewString(m); !strings.Contains(out, "87%") {
		t.Fatalf("expected score badge\n%s", out)
	}
}

func TestModelSearchDropsStaleResponses(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)
	m.screen = screenSearch
	m.search.seq = 3

	m = applyMsg(t, m, suggestionsMsg{seq: 2, items: []domain.Suggestion{{Text: "old"}}})
	if len(m.search.suggestions) != 0 {
		t.Fatalf("expected stale suggestions dropped, got %#v", m.search.suggestions)
	}
	m = applyMsg(t, m, suggestionsMsg{seq: 3, items: []domain.Suggestion{{Text: "new"}}})
	if len(m.search.suggestions) != 1 || m.search.suggestions[0].Text != "new" {
		t.Fatalf("expected latest suggestions, got %#v", m.search.suggestions)
	}
	m = applyMsg(t, m, suggestTickMsg{seq: 1, query: "stale"})
	if len(svc.suggestQueries) != 0 {
		t.Fatalf("expected stale tick ignored, got %#v", svc.suggestQueries)
	}
}

func TestModelKeywordSearchLoadMore(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.keyword = []domain.KeywordPage{
		{Emails: []domain.Email{{ID: "k1", Subject: "Invoice one"}}, NextPageToken: "t2"},
		{Emails: []domain.Email{{ID: "k2", Subject: "Invoice two"}}},
	}
	m := newTestModel(t, svc, WithSemanticSearch(false))

	m = applyMsg(t, m, keyRune('/'))
	m.search.input.SetValue("invoice")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.search.resultCount() != 1 || !m.search.keywordPage.HasMore() {
		t.Fatalf("expected first keyword page with more, got %#v", m.search.keywordPage)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 'l', Mod: tea.ModCtrl})
	if m.search.resultCount() != 2 || m.search.keywordPage.HasMore() {
		t.Fatalf("expected merged pages, got %#v", m.search.keywordPage)
	}
}

func TestModelSettingsColumns(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.columns = []domain.Column{
		{ID: "c1", Key: "inbox", Label: "Inbox", Order: 0, IsDefault: true},
		{ID: "c2", Key: "todo", Label: "To Do", Order: 1, GmailLabel: "Label_1"},
	}
	svc.labels = []domain.GmailLabel{{ID: "Label_1", Name: "Work"}, {ID: "Label_2", Name: "Home"}}
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('S'))
	if m.screen != screenSettings || m.settings.editor == nil {
		t.Fatalf("expected settings loaded, screen=%v", m.screen)
	}
	m = applyMsg(t, m, keyRune('d'))
	if !strings.Contains(m.status, "default columns cannot be deleted") {
		t.Fatalf("expected default delete rejection, got %q", m.status)
	}
	if len(svc.columnOps) != 0 {
		t.Fatalf("expected no backend call, got %#v", svc.columnOps)
	}

	m = applyMsg(t, m, keyRune('n'))
	for _, r := range "Later" {
		m = applyMsg(t, m, keyRune(r))
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyTab})
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyRight})
	if !strings.Contains(m.settings.warning, "To Do") {
		t.Fatalf("expected duplicate label warning, got %q", m.settings.warning)
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	cols := m.settings.columns()
	if len(cols) != 3 || cols[2].ID != "col-new" || cols[2].Label != "Later" {
		t.Fatalf("expected created column, got %#v", cols)
	}

	svc.columnErr = errors.New("boom")
	m = applyMsg(t, m, keyRune('K'))
	if got := m.settings.columns(); got[2].ID != "col-new" || got[1].ID != "c2" {
		t.Fatalf("expected reorder rolled back, got %#v", got)
	}
	if !strings.Contains(m.status, "failed") {
		t.Fatalf("expected failure status, got %q", m.status)
	}
}

func TestModelSettingsWaitsForPendingCreate(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.columns = []domain.Column{
		{ID: "c1", Key: "inbox", Label: "Inbox", Order: 0, IsDefault: true},
		{ID: "c2", Key: "todo", Label: "To Do", Order: 1},
	}
	m := newTestModel(t, svc)
	m = applyMsg(t, m, keyRune('S'))
	m = applyMsg(t, m, keyRune('n'))
	for _, r := range "Later" {
		m = applyMsg(t, m, keyRune(r))
	}
	updated, saveCmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	m = updated.(Model)
	if saveCmd == nil {
		t.Fatal("expected save command")
	}

	m = applyMsg(t, m, keyRune('K'))
	if !strings.Contains(m.status, "still saving") {
		t.Fatalf("expected reorder refused while saving, got %q", m.status)
	}
	m = applyMsg(t, m, keyRune('d'))
	if !strings.Contains(m.status, "still saving") {
		t.Fatalf("expected delete refused while saving, got %q", m.status)
	}
	if len(svc.columnOps) != 0 {
		t.Fatalf("expected no backend call before the create lands, got %#v", svc.columnOps)
	}

	m = applyCmd(t, m, saveCmd)
	m = applyMsg(t, m, keyRune('K'))
	last := svc.columnOps[len(svc.columnOps)-1]
	if last.Kind != app.ColumnOpReorder || last.IDs[1] != "col-new" {
		t.Fatalf("expected reorder with server id, got %#v", last)
	}
}

func TestModelInboxAndCompose(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.mailboxes = []domain.Mailbox{
		{ID: "inbox", Name: "Inbox", Icon: domain.MailboxIconInbox, UnreadCount: 1},
		{ID: "starred", Name: "Starred", Icon: domain.MailboxIconStar},
	}
	svc.pages["inbox/1"] = domain.EmailPage{Total: 2, HasNextPage: true, Emails: []domain.Email{
		{ID: "m1", Subject: "Welcome", From: domain.EmailAddress{Name: "Team"}},
		{ID: "m2", Subject: "Receipt", From: domain.EmailAddress{Email: "shop@example.com"}, IsRead: true},
	}}
	svc.pages["inbox/2"] = domain.EmailPage{Total: 3, Emails: []domain.Email{{ID: "m3", Subject: "Older"}}}
	svc.emails["m1"] = domain.Email{ID: "m1", Subject: "Welcome", Body: "hello"}
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('I'))
	if m.screen != screenInbox || len(m.inbox.page.Emails) != 2 {
		t.Fatalf("expected inbox with 2 messages, got %d", len(m.inbox.page.Emails))
	}
	if out := viewString(m); !strings.Contains(out, "Inbox (1)") || !strings.Contains(out, "Welcome") {
		t.Fatalf("expected mailbox and message in view\n%s", out)
	}

	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEnter})
	if m.screen != screenDetail || m.detail.back != screenInbox {
		t.Fatalf("expected detail opened from inbox, screen=%v", m.screen)
	}
	if !m.inbox.page.Emails[0].IsRead {
		t.Fatal("expected listed message marked read")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.screen != screenInbox {
		t.Fatalf("expected back to inbox, got %v", m.screen)
	}

	m = applyMsg(t, m, keyRune('n'))
	if m.inbox.pageNum != 2 || len(m.inbox.page.Emails) != 1 {
		t.Fatalf("expected page 2, got page %d with %d", m.inbox.pageNum, len(m.inbox.page.Emails))
	}
	m = applyMsg(t, m, keyRune('d'))
	if len(svc.trashed) != 1 || svc.trashed[0] != "m3" || len(m.inbox.page.Emails) != 0 {
		t.Fatalf("expected m3 trashed and removed, got %#v", svc.trashed)
	}

	m = applyMsg(t, m, keyRune('c'))
	if !m.inbox.composing {
		t.Fatal("expected compose form")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if !strings.Contains(m.status, "recipient") || len(svc.sent) != 0 {
		t.Fatalf("expected missing recipient error, got %q", m.status)
	}
	m.inbox.compose[composeTo].SetValue("bob@example.com, Carol <carol@example.com>")
	m.inbox.compose[composeSubject].SetValue("Hi")
	m = applyMsg(t, m, tea.KeyPressMsg{Code: 's', Mod: tea.ModCtrl})
	if len(svc.sent) != 1 || len(svc.sent[0].To) != 2 || svc.sent[0].To[1] != "carol@example.com" {
		t.Fatalf("unexpected sent drafts %#v", svc.sent)
	}
	if m.inbox.composing {
		t.Fatal("expected compose form closed")
	}
}

func TestModelStatistics(t *testing.T) {
	svc := newFakeService(sampleBoard())
	svc.stats[domain.Period30Days] = domain.Statistics{
		TotalEmails: 1200,
		UnreadCount: 200,
		StatusStats: []domain.StatusCount{{Status: "inbox", Count: 10}, {Status: "todo", Count: 5}},
		EmailTrend:  []domain.TrendPoint{{Date: "2026-02-01", Count: 1}, {Date: "2026-02-02", Count: 8}},
		TopSenders:  []domain.TopSender{{Name: "Billing Team", Count: 9}},
		DailyActivity: []domain.ActivityCell{
			{DayOfWeek: 1, Hour: 9, Count: 4},
		},
	}
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('g'))
	if m.screen != screenStats || !m.stats.loaded {
		t.Fatalf("expected statistics loaded, screen=%v", m.screen)
	}
	out := viewString(m)
	for _, want := range []string{"total 1,200", "read 1,000", "Billing Team", "Mon", "[30d]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected stats view to contain %q\n%s", want, out)
		}
	}
	m = applyMsg(t, m, keyRune('p'))
	if m.stats.period != domain.Period90Days || m.stats.data.Period != domain.Period90Days {
		t.Fatalf("expected 90d period, got %q", m.stats.period)
	}
}

func TestModelHelpOverlayAndQuit(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)

	m = applyMsg(t, m, keyRune('?'))
	if !m.help.ShowAll || !strings.Contains(viewString(m), "mailkan help") {
		t.Fatal("expected help overlay")
	}
	m = applyMsg(t, m, keyRune('j'))
	if m.board.row != 0 {
		t.Fatal("expected keys swallowed while help is open")
	}
	m = applyMsg(t, m, tea.KeyPressMsg{Code: tea.KeyEscape})
	if m.help.ShowAll {
		t.Fatal("expected help closed")
	}
	_, cmd := m.Update(keyRune('q'))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatal("expected tea.QuitMsg")
	}
}

func TestModelMouseWheel(t *testing.T) {
	svc := newFakeService(sampleBoard())
	m := newTestModel(t, svc)
	m = applyMsg(t, m, tea.MouseWheelMsg{Button: tea.MouseWheelDown})
	if m.board.row != 1 {
		t.Fatalf("expected wheel down to select next card, got %d", m.board.row)
	}
	m = applyMsg(t, m, tea.MouseWheelMsg{Button: tea.MouseWheelUp})
	if m.board.row != 0 {
		t.Fatalf("expected wheel up to select first card, got %d", m.board.row)
	}
}

func TestHelpers(t *testing.T) {
	if got := truncate("abcdef", 4); got != "abc…" {
		t.Fatalf("unexpected truncate %q", got)
	}
	if got := wrapIndex(0, -1, 3); got != 2 {
		t.Fatalf("unexpected wrapIndex %d", got)
	}
	if got := cycleOptional(-1, -1, 2); got != 1 {
		t.Fatalf("unexpected cycleOptional %d", got)
	}
	if got := cycleOptional(1, 1, 2); got != -1 {
		t.Fatalf("expected cycle back to none, got %d", got)
	}
	if start, end := windowBounds(10, 9, 4); start != 6 || end != 10 {
		t.Fatalf("unexpected window %d-%d", start, end)
	}
	if got := columnWidthFor(0, 3); got != 28 {
		t.Fatalf("unexpected default column width %d", got)
	}
	if got := sparkline([]int{0, 4, 8}, 10); got != "▁▄█" {
		t.Fatalf("unexpected sparkline %q", got)
	}
	if got := filterSummary(domain.BoardFilter{AttachmentsOnly: true}); got != "filter: attachments" {
		t.Fatalf("unexpected filter summary %q", got)
	}
}

func viewString(m Model) string {
	return ansi.Strip(m.content())
}

func applyMsg(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	out, ok := updated.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", updated)
	}
	return applyCmd(t, out, cmd)
}

// applyCmd runs cmd and the commands it produces, expanding batches.
// Commands that block (cursor blink timers) are dropped.
func applyCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	out := m
	queue := []tea.Cmd{cmd}
	for i := 0; i < 32 && len(queue) > 0; i++ {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}
		msg, ok := runCmd(current)
		if !ok {
			continue
		}
		if batch, isBatch := msg.(tea.BatchMsg); isBatch {
			queue = append(queue, batch...)
			continue
		}
		updated, next := out.Update(msg)
		casted, isModel := updated.(Model)
		if !isModel {
			t.Fatalf("expected Model, got %T", updated)
		}
		out = casted
		queue = append(queue, next)
	}
	return out
}

func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()
	select {
	case msg := <-done:
		return msg, true
	case <-time.After(100 * time.Millisecond):
		return nil, false
	}
}

func keyRune(r rune) tea.KeyPressMsg {
	return tea.KeyPressMsg{Code: r, Text: string(r)}
}
