package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/domain"
)

// FromCacheHeader marks responses replayed from the offline cache.
const FromCacheHeader = "X-From-Cache"

// Client implements app.Backend against the REST API.
type Client struct {
	session *Session
	offline atomic.Bool
}

// NewClient constructs a client bound to session.
func NewClient(session *Session) *Client {
	return &Client{session: session}
}

// Session returns the auth session the client sends requests through.
func (c *Client) Session() *Session {
	return c.session
}

// Offline reports whether the most recent response was served from the offline cache.
func (c *Client) Offline() bool {
	return c.offline.Load()
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	out    any
	anon   bool
}

func (c *Client) do(ctx context.Context, in call) error {
	target := c.session.BaseURL() + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}
	var body io.Reader
	if in.body != nil {
		raw, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", in.method, in.path, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", in.method, in.path, err)
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	var resp *http.Response
	if in.anon {
		resp, err = c.session.HTTPClient().Do(req)
	} else {
		resp, err = c.session.Do(req)
	}
	if err != nil {
		return fmt.Errorf("%s %s: %w", in.method, in.path, err)
	}
	defer resp.Body.Close()

	cached := strings.EqualFold(resp.Header.Get(FromCacheHeader), "true")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := statusErrorFrom(resp)
		c.offline.Store(cached || errors.Is(apiErr, ErrOffline))
		return fmt.Errorf("%s %s: %w", in.method, in.path, apiErr)
	}
	c.offline.Store(cached)
	if in.out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(in.out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s %s: %w", in.method, in.path, err)
	}
	return nil
}

// Board fetches the grouped board.
func (c *Client) Board(ctx context.Context, filter domain.BoardFilter) (map[string][]domain.Card, error) {
	q := url.Values{}
	if filter.UnreadOnly {
		q.Set("unread", "true")
	}
	if filter.AttachmentsOnly {
		q.Set("hasAttachments", "true")
	}
	if filter.SortBy != "" {
		q.Set("sortBy", string(filter.SortBy))
	}
	if filter.SortOrder != "" {
		q.Set("sortOrder", string(filter.SortOrder))
	}
	var out boardDTO
	if err := c.do(ctx, call{method: http.MethodGet, path: "/kanban", query: q, out: &out}); err != nil {
		return nil, err
	}
	columns := make(map[string][]domain.Card, len(out.Columns))
	for key, list := range out.Columns {
		cards := make([]domain.Card, 0, len(list))
		for _, card := range list {
			cards = append(cards, card.toDomain())
		}
		columns[key] = cards
	}
	return columns, nil
}

// BoardMeta fetches the column metadata that drives rendering.
func (c *Client) BoardMeta(ctx context.Context) ([]domain.ColumnMeta, error) {
	var out boardMetaDTO
	if err := c.do(ctx, call{method: http.MethodGet, path: "/kanban/meta", out: &out}); err != nil {
		return nil, err
	}
	meta := make([]domain.ColumnMeta, 0, len(out.Columns))
	for _, m := range out.Columns {
		meta = append(meta, domain.ColumnMeta{Key: m.Key, Label: m.Label, Color: domain.ParseColumnColor(m.Color)})
	}
	return meta, nil
}

// MoveCard moves a message to a status column.
func (c *Client) MoveCard(ctx context.Context, emailID, toStatus string) error {
	return c.do(ctx, call{method: http.MethodPost, path: "/kanban/move", body: moveRequest{EmailID: emailID, ToStatus: toStatus}})
}

// SnoozeCard hides a message until the given time.
func (c *Client) SnoozeCard(ctx context.Context, emailID string, until time.Time) error {
	return c.do(ctx, call{
		method: http.MethodPost,
		path:   "/kanban/snooze",
		body:   snoozeRequest{EmailID: emailID, Until: until.UTC().Format(time.RFC3339)},
	})
}

// SummarizeCard requests an AI summary.
func (c *Client) SummarizeCard(ctx context.Context, emailID string) (string, error) {
	var out summarizeResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/kanban/summarize", body: summarizeRequest{EmailID: emailID}, out: &out}); err != nil {
		return "", err
	}
	return out.Summary, nil
}

// ListColumns returns configured columns.
func (c *Client) ListColumns(ctx context.Context) ([]domain.Column, error) {
	var out columnsResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/kanban/columns", out: &out}); err != nil {
		return nil, err
	}
	return columnsToDomain(out.Columns), nil
}

// CreateColumn adds a column.
func (c *Client) CreateColumn(ctx context.Context, in domain.ColumnInput) (domain.Column, error) {
	var out columnDTO
	if err := c.do(ctx, call{method: http.MethodPost, path: "/kanban/columns", body: columnRequestFrom(in), out: &out}); err != nil {
		return domain.Column{}, err
	}
	return out.toDomain(), nil
}

// UpdateColumn edits a column.
func (c *Client) UpdateColumn(ctx context.Context, id string, in domain.ColumnInput) (domain.Column, error) {
	var out columnDTO
	if err := c.do(ctx, call{method: http.MethodPut, path: "/kanban/columns/" + url.PathEscape(id), body: columnRequestFrom(in), out: &out}); err != nil {
		return domain.Column{}, err
	}
	return out.toDomain(), nil
}

// DeleteColumn removes a column and returns the remaining list.
func (c *Client) DeleteColumn(ctx context.Context, id string) ([]domain.Column, error) {
	var out columnsResponse
	if err := c.do(ctx, call{method: http.MethodDelete, path: "/kanban/columns/" + url.PathEscape(id), out: &out}); err != nil {
		return nil, err
	}
	return columnsToDomain(out.Columns), nil
}

// ReorderColumns persists a new column order.
func (c *Client) ReorderColumns(ctx context.Context, ids []string) ([]domain.Column, error) {
	var out columnsResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/kanban/columns/reorder", body: reorderRequest{ColumnIDs: ids}, out: &out}); err != nil {
		return nil, err
	}
	return columnsToDomain(out.Columns), nil
}

// ListGmailLabels returns labels a column can map to.
func (c *Client) ListGmailLabels(ctx context.Context) ([]domain.GmailLabel, error) {
	var out labelsResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/gmail/labels", out: &out}); err != nil {
		return nil, err
	}
	labels := make([]domain.GmailLabel, 0, len(out.Labels))
	for _, l := range out.Labels {
		labels = append(labels, domain.GmailLabel{ID: l.ID, Name: l.Name, Type: l.Type})
	}
	return labels, nil
}

// Suggestions returns autocomplete entries for query.
func (c *Client) Suggestions(ctx context.Context, query string) ([]domain.Suggestion, error) {
	var out suggestionsResponse
	q := url.Values{"q": []string{query}}
	if err := c.do(ctx, call{method: http.MethodGet, path: "/search/suggestions", query: q, out: &out}); err != nil {
		return nil, err
	}
	suggestions := make([]domain.Suggestion, 0, len(out.Suggestions))
	for _, s := range out.Suggestions {
		suggestions = append(suggestions, domain.Suggestion{Text: s.Text, Type: domain.ParseSuggestionType(s.Type)})
	}
	return suggestions, nil
}

// SemanticSearch runs a vector search.
func (c *Client) SemanticSearch(ctx context.Context, query string, limit int) (domain.SemanticPage, error) {
	var out semanticResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/search/semantic", body: semanticRequest{Query: query, Limit: limit}, out: &out}); err != nil {
		return domain.SemanticPage{}, err
	}
	page := domain.SemanticPage{Query: out.Query, Total: out.Total}
	for _, r := range out.Results {
		page.Results = append(page.Results, domain.SemanticResult{Email: r.Email.toDomain(), Score: r.Score})
	}
	if page.Query == "" {
		page.Query = query
	}
	return page, nil
}

// KeywordSearch runs a token-paginated text search.
func (c *Client) KeywordSearch(ctx context.Context, query, pageToken string) (domain.KeywordPage, error) {
	q := url.Values{"q": []string{query}}
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}
	var out keywordResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/emails/search", query: q, out: &out}); err != nil {
		return domain.KeywordPage{}, err
	}
	return domain.KeywordPage{
		Emails:        emailsToDomain(out.Emails),
		NextPageToken: out.NextPageToken,
		TotalEstimate: out.TotalEstimate,
	}, nil
}

// GenerateEmbeddings asks the backend to embed up to limit messages.
func (c *Client) GenerateEmbeddings(ctx context.Context, limit int) (domain.EmbeddingReport, error) {
	var out embeddingsResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: "/search/generate-embeddings", body: embeddingsRequest{Limit: limit}, out: &out}); err != nil {
		return domain.EmbeddingReport{}, err
	}
	return domain.EmbeddingReport{Processed: out.Processed, Failed: out.Failed}, nil
}

// ListMailboxes returns the mailbox sidebar.
func (c *Client) ListMailboxes(ctx context.Context) ([]domain.Mailbox, error) {
	var out mailboxesResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/mailboxes", out: &out}); err != nil {
		return nil, err
	}
	boxes := make([]domain.Mailbox, 0, len(out.Mailboxes))
	for _, m := range out.Mailboxes {
		kind := domain.MailboxSystem
		if strings.EqualFold(m.Type, string(domain.MailboxCustom)) {
			kind = domain.MailboxCustom
		}
		boxes = append(boxes, domain.Mailbox{
			ID:          m.ID,
			Name:        m.Name,
			Icon:        domain.ParseMailboxIcon(m.Icon),
			UnreadCount: m.UnreadCount,
			Type:        kind,
		})
	}
	return boxes, nil
}

// ListEmails returns one page of a mailbox.
func (c *Client) ListEmails(ctx context.Context, mailboxID string, page, perPage int) (domain.EmailPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("perPage", strconv.Itoa(perPage))
	var out emailListResponse
	path := "/mailboxes/" + url.PathEscape(mailboxID) + "/emails"
	if err := c.do(ctx, call{method: http.MethodGet, path: path, query: q, out: &out}); err != nil {
		return domain.EmailPage{}, err
	}
	return domain.EmailPage{
		Emails:      emailsToDomain(out.Emails),
		Total:       out.Total,
		Page:        out.Page,
		PerPage:     out.PerPage,
		HasNextPage: out.HasNextPage,
	}, nil
}

// GetEmail returns one full message.
func (c *Client) GetEmail(ctx context.Context, id string) (domain.Email, error) {
	var out emailDTO
	if err := c.do(ctx, call{method: http.MethodGet, path: "/emails/" + url.PathEscape(id), out: &out}); err != nil {
		return domain.Email{}, err
	}
	return out.toDomain(), nil
}

// ModifyEmail adds and removes labels on a message.
func (c *Client) ModifyEmail(ctx context.Context, id string, change domain.LabelChange) error {
	body := modifyRequest{AddLabels: nonNil(change.Add), RemoveLabels: nonNil(change.Remove)}
	return c.do(ctx, call{method: http.MethodPost, path: "/emails/" + url.PathEscape(id) + "/modify", body: body})
}

// SendEmail sends a new message.
func (c *Client) SendEmail(ctx context.Context, draft domain.Draft) error {
	body := sendRequest{
		To:       nonNil(draft.To),
		CC:       nonNil(draft.CC),
		BCC:      nonNil(draft.BCC),
		Subject:  draft.Subject,
		Body:     draft.Body,
		ThreadID: draft.ThreadID,
	}
	return c.do(ctx, call{method: http.MethodPost, path: "/emails/send", body: body})
}

// ReplyEmail replies to an existing message.
func (c *Client) ReplyEmail(ctx context.Context, id string, reply domain.Reply) error {
	body := replyRequest{To: reply.To, Subject: reply.Subject, Body: reply.Body}
	return c.do(ctx, call{method: http.MethodPost, path: "/emails/" + url.PathEscape(id) + "/reply", body: body})
}

// Statistics returns dashboard aggregates for period.
func (c *Client) Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error) {
	q := url.Values{"period": []string{string(period)}}
	var out statisticsDTO
	if err := c.do(ctx, call{method: http.MethodGet, path: "/statistics", query: q, out: &out}); err != nil {
		return domain.Statistics{}, err
	}
	stats := out.toDomain()
	if stats.Period == "" {
		stats.Period = period
	}
	return stats, nil
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	return c.authenticate(ctx, "/auth/login", loginRequest{Email: creds.Email, Password: creds.Password})
}

// Signup creates an account and signs in.
func (c *Client) Signup(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	return c.authenticate(ctx, "/auth/signup", loginRequest{Email: creds.Email, Password: creds.Password, Name: creds.Name})
}

// GoogleLogin exchanges a Google authorization code for a session.
func (c *Client) GoogleLogin(ctx context.Context, code string) (domain.User, error) {
	return c.authenticate(ctx, "/auth/google", googleRequest{Token: code})
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (domain.User, error) {
	var out tokenPairDTO
	if err := c.do(ctx, call{method: http.MethodPost, path: path, body: body, out: &out, anon: true}); err != nil {
		return domain.User{}, err
	}
	access, refresh := out.tokens()
	if access == "" {
		return domain.User{}, fmt.Errorf("POST %s: response carried no access token", path)
	}
	if err := c.session.SetTokens(ctx, access, refresh); err != nil {
		log.Warn("persist session failed", "err", err)
	}
	if out.User == nil {
		return domain.User{}, nil
	}
	return out.User.toDomain(), nil
}

type meResponse struct {
	userDTO
	User *userDTO `json:"user,omitempty"`
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (domain.User, error) {
	var out meResponse
	if err := c.do(ctx, call{method: http.MethodGet, path: "/auth/me", out: &out}); err != nil {
		return domain.User{}, err
	}
	if out.User != nil {
		return out.User.toDomain(), nil
	}
	return out.userDTO.toDomain(), nil
}

// Logout ends the session. Local tokens are cleared regardless of the backend answer.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, call{method: http.MethodPost, path: "/auth/logout"})
	if clearErr := c.session.Clear(ctx); clearErr != nil {
		log.Warn("clear session failed", "err", clearErr)
	}
	if err != nil && !errors.Is(err, ErrSessionExpired) && !errors.Is(err, ErrUnauthorized) {
		return err
	}
	return nil
}

// LoggedIn reports whether a session token is available.
func (c *Client) LoggedIn() bool {
	return c.session.LoggedIn()
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}

var _ app.Backend = (*Client)(nil)
