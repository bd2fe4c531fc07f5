package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryTokenStore struct {
	mu      sync.Mutex
	token   string
	cleared int
}

func (s *memoryTokenStore) LoadRefreshToken(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *memoryTokenStore) SaveRefreshToken(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	return nil
}

func (s *memoryTokenStore) ClearRefreshToken(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.cleared++
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler, store TokenStore, opts ...SessionOption) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(NewSession(srv.URL+"/api", srv.Client(), store, opts...))
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": "u1", "exp": exp.Unix()})
	raw, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestLoginStoresTokensAndSendsBearer(t *testing.T) {
	store := &memoryTokenStore{}
	var gotAuth, gotQuery string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ada@example.com", req.Email)
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  "acc1",
			"refreshToken": "ref1",
			"user":         map[string]any{"id": "u1", "email": "ada@example.com", "name": "Ada"},
		})
	})
	mux.HandleFunc("GET /api/kanban", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		writeJSON(w, http.StatusOK, map[string]any{
			"columns": map[string]any{
				"inbox": []map[string]any{{
					"id":              "m1",
					"sender":          "Grace",
					"subject":         "Hello",
					"gmail_url":       "https://mail.google.com/mail/u/0/#inbox/m1",
					"received_at":     "2026-03-04T10:00:00Z",
					"snoozed_until":   "2026-03-05T09:00:00Z",
					"is_read":         true,
					"has_attachments": true,
				}},
			},
		})
	})
	client := newTestClient(t, mux, store)

	user, err := client.Login(context.Background(), domain.Credentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ref1", store.token)
	assert.True(t, client.LoggedIn())

	board, err := client.Board(context.Background(), domain.BoardFilter{UnreadOnly: true, SortBy: domain.SortSender, SortOrder: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, "Bearer acc1", gotAuth)
	assert.Equal(t, "sortBy=sender&sortOrder=asc&unread=true", gotQuery)
	require.Len(t, board["inbox"], 1)
	card := board["inbox"][0]
	assert.Equal(t, "m1", card.ID)
	assert.True(t, card.IsRead)
	assert.True(t, card.HasAttachments)
	assert.Equal(t, "https://mail.google.com/mail/u/0/#inbox/m1", card.GmailURL)
	require.NotNil(t, card.SnoozedUntil)
	assert.Equal(t, 5, card.SnoozedUntil.Day())
}

func TestUnauthorizedTriggersSingleSharedRefresh(t *testing.T) {
	store := &memoryTokenStore{}
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		var req refreshRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "ref-old", req.RefreshToken)
		time.Sleep(50 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "acc-new", "refresh_token": "ref-new"})
	})
	mux.HandleFunc("GET /api/kanban/meta", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"columns": []map[string]string{{"key": "inbox", "label": "Inbox", "color": "#1890ff"}}})
	})
	client := newTestClient(t, mux, store)
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc-old", "ref-old"))

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			meta, err := client.BoardMeta(context.Background())
			if err == nil && (len(meta) != 1 || meta[0].Color != domain.ColumnColorBlue) {
				err = errors.New("unexpected meta")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "acc-new", client.Session().AccessToken())
	assert.Equal(t, "ref-new", store.token)
}

func TestCanceledCallerDoesNotFailSharedRefresh(t *testing.T) {
	store := &memoryTokenStore{}
	var refreshes atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		if refreshes.Add(1) == 1 {
			close(started)
		}
		<-release
		writeJSON(w, http.StatusOK, map[string]string{"access_token": "acc-new", "refresh_token": "ref-new"})
	})
	mux.HandleFunc("GET /api/kanban/meta", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer acc-new" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"columns": []map[string]string{{"key": "inbox", "label": "Inbox"}}})
	})
	client := newTestClient(t, mux, store)
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc-old", "ref-old"))

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := client.BoardMeta(ctx)
		firstErr <- err
	}()
	<-started

	secondErr := make(chan error, 1)
	go func() {
		_, err := client.BoardMeta(context.Background())
		secondErr <- err
	}()
	time.Sleep(50 * time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)
	close(release)

	require.NoError(t, <-secondErr)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "acc-new", client.Session().AccessToken())
	assert.Equal(t, "ref-new", store.token)
}

func TestRefreshFailureExpiresSession(t *testing.T) {
	store := &memoryTokenStore{}
	var expired atomic.Bool
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid refresh token"})
	})
	mux.HandleFunc("GET /api/auth/me", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	})
	client := newTestClient(t, mux, store, WithExpireHook(func() { expired.Store(true) }))
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc", "ref"))

	_, err := client.Me(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.True(t, expired.Load())
	assert.False(t, client.LoggedIn())
	assert.Equal(t, 1, store.cleared)
}

func TestMissingRefreshTokenExpiresWithoutRequest(t *testing.T) {
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
	})
	mux.HandleFunc("GET /api/mailboxes", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
	})
	client := newTestClient(t, mux, &memoryTokenStore{})

	_, err := client.ListMailboxes(context.Background())
	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Zero(t, refreshes.Load())
}

func TestProactiveRefreshNearExpiry(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	store := &memoryTokenStore{}
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "fresh"})
	})
	var gotAuth string
	mux.HandleFunc("GET /api/statistics", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"totalEmails": 3, "period": "7d"})
	})
	client := newTestClient(t, mux, store, WithClock(func() time.Time { return now }))
	require.NoError(t, client.Session().SetTokens(context.Background(), signedToken(t, now.Add(10*time.Second)), "ref"))

	stats, err := client.Statistics(context.Background(), domain.Period7Days)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEmails)
	assert.Equal(t, int32(1), refreshes.Load())
	assert.Equal(t, "Bearer fresh", gotAuth)
	assert.Equal(t, "ref", store.token, "refresh token kept when the response omits it")
}

func TestFreshTokenIsNotRefreshed(t *testing.T) {
	now := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	var refreshes atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		refreshes.Add(1)
	})
	mux.HandleFunc("GET /api/gmail/labels", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"labels": []map[string]string{{"id": "Label_1", "name": "Work", "type": "user"}}})
	})
	client := newTestClient(t, mux, &memoryTokenStore{}, WithClock(func() time.Time { return now }))
	require.NoError(t, client.Session().SetTokens(context.Background(), signedToken(t, now.Add(time.Hour)), "ref"))

	labels, err := client.ListGmailLabels(context.Background())
	require.NoError(t, err)
	require.Len(t, labels, 1)
	assert.Equal(t, "Work", labels[0].Name)
	assert.Zero(t, refreshes.Load())
}

func TestRetryReplaysRequestBody(t *testing.T) {
	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"accessToken": "acc2", "refreshToken": "ref2"})
	})
	mux.HandleFunc("POST /api/kanban/move", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		var req moveRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, moveRequest{EmailID: "m1", ToStatus: "done"}, req)
		if r.Header.Get("Authorization") != "Bearer acc2" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	client := newTestClient(t, mux, &memoryTokenStore{})
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc1", "ref1"))

	require.NoError(t, client.MoveCard(context.Background(), "m1", "done"))
	assert.Equal(t, int32(2), attempts.Load())
}

func TestStatusErrorsMapToSentinels(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/emails/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "email not found"})
	})
	mux.HandleFunc("POST /api/kanban/columns", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "label is required"})
	})
	client := newTestClient(t, mux, &memoryTokenStore{})
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc", "ref"))

	_, err := client.GetEmail(context.Background(), "missing")
	assert.ErrorIs(t, err, app.ErrNotFound)

	_, err = client.CreateColumn(context.Background(), domain.ColumnInput{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadRequest, statusErr.Status)
	assert.Contains(t, err.Error(), "label is required")
}

func TestCachedResponseFlagsOffline(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/mailboxes", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(FromCacheHeader, "true")
		writeJSON(w, http.StatusOK, map[string]any{"mailboxes": []map[string]any{
			{"id": "INBOX", "name": "Inbox", "icon": "InboxOutlined", "unreadCount": 4, "type": "system"},
			{"id": "Label_9", "name": "Receipts", "icon": "FolderOutlined", "type": "custom"},
		}})
	})
	mux.HandleFunc("GET /api/emails/search", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"error": "Offline", "message": "You are currently offline.", "cached": false})
	})
	client := newTestClient(t, mux, &memoryTokenStore{})
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc", "ref"))

	boxes, err := client.ListMailboxes(context.Background())
	require.NoError(t, err)
	assert.True(t, client.Offline())
	require.Len(t, boxes, 2)
	assert.Equal(t, domain.MailboxIconInbox, boxes[0].Icon)
	assert.Equal(t, domain.MailboxCustom, boxes[1].Type)

	_, err = client.KeywordSearch(context.Background(), "invoice", "")
	assert.ErrorIs(t, err, ErrOffline)
	assert.True(t, client.Offline())
}

func TestEmailDecodingToleratesBothCasings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/mailboxes/{id}/emails", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "INBOX", r.PathValue("id"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "20", r.URL.Query().Get("perPage"))
		writeJSON(w, http.StatusOK, map[string]any{
			"emails": []map[string]any{
				{"id": "a", "fromName": "Ada", "fromEmail": "ada@example.com", "isRead": true, "receivedAt": "2026-03-01T08:00:00Z"},
				{"id": "b", "from": map[string]string{"name": "Bob", "email": "bob@example.com"}, "is_starred": true, "has_attachments": true, "received_at": "2026-03-02T08:00:00Z"},
			},
			"total":       22,
			"page":        2,
			"perPage":     20,
			"hasNextPage": false,
		})
	})
	client := newTestClient(t, mux, &memoryTokenStore{})
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc", "ref"))

	page, err := client.ListEmails(context.Background(), "INBOX", 2, 20)
	require.NoError(t, err)
	require.Len(t, page.Emails, 2)
	assert.Equal(t, "Ada", page.Emails[0].From.Name)
	assert.True(t, page.Emails[0].IsRead)
	assert.Equal(t, "INBOX", page.Emails[0].MailboxID)
	assert.Equal(t, "bob@example.com", page.Emails[1].From.Email)
	assert.True(t, page.Emails[1].IsStarred)
	assert.True(t, page.Emails[1].HasAttachments)
	assert.Equal(t, 2, page.Emails[1].ReceivedAt.Day())
	assert.Equal(t, 22, page.Total)
}

func TestLogoutClearsTokensEvenOnFailure(t *testing.T) {
	store := &memoryTokenStore{}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/logout", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "boom"})
	})
	client := newTestClient(t, mux, store)
	require.NoError(t, client.Session().SetTokens(context.Background(), "acc", "ref"))

	err := client.Logout(context.Background())
	require.Error(t, err)
	assert.False(t, client.LoggedIn())
	assert.Empty(t, store.token)
}

func TestSessionLoadsPersistedRefreshToken(t *testing.T) {
	store := &memoryTokenStore{token: "persisted"}
	session := NewSession("http://example.invalid/api", nil, store)
	assert.True(t, session.LoggedIn())
	assert.Empty(t, session.AccessToken())
}
