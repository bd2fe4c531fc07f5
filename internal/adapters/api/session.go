package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// refreshSkew is how close to expiry an access token may get before it is refreshed proactively.
const refreshSkew = 30 * time.Second

// TokenStore persists the refresh token between runs.
type TokenStore interface {
	LoadRefreshToken(context.Context) (string, error)
	SaveRefreshToken(context.Context, string) error
	ClearRefreshToken(context.Context) error
}

// Session owns the access token in memory and the refresh token in a TokenStore.
type Session struct {
	baseURL string
	http    *http.Client
	store   TokenStore
	clock   func() time.Time

	mu      sync.RWMutex
	access  string
	refresh string
	loaded  bool

	group    singleflight.Group
	onExpire func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithClock overrides the time source used for expiry checks.
func WithClock(clock func() time.Time) SessionOption {
	return func(s *Session) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithExpireHook registers a callback invoked after the session is cleared by a failed refresh.
func WithExpireHook(fn func()) SessionOption {
	return func(s *Session) {
		s.onExpire = fn
	}
}

// NewSession constructs a session against baseURL.
func NewSession(baseURL string, httpClient *http.Client, store TokenStore, opts ...SessionOption) *Session {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	s := &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		store:   store,
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HTTPClient returns the underlying transport client.
func (s *Session) HTTPClient() *http.Client {
	return s.http
}

// BaseURL returns the API root without a trailing slash.
func (s *Session) BaseURL() string {
	return s.baseURL
}

// SetTokens installs a freshly issued token pair.
func (s *Session) SetTokens(ctx context.Context, access, refresh string) error {
	s.mu.Lock()
	s.access = access
	s.refresh = refresh
	s.loaded = true
	s.mu.Unlock()
	if s.store == nil || refresh == "" {
		return nil
	}
	if err := s.store.SaveRefreshToken(ctx, refresh); err != nil {
		return fmt.Errorf("persist refresh token: %w", err)
	}
	return nil
}

// Clear drops both tokens.
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.access = ""
	s.refresh = ""
	s.loaded = true
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	if err := s.store.ClearRefreshToken(ctx); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// LoggedIn reports whether any token is available.
func (s *Session) LoggedIn() bool {
	s.ensureLoaded(context.Background())
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access != "" || s.refresh != ""
}

// AccessToken returns the current in-memory access token.
func (s *Session) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.access
}

func (s *Session) refreshToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refresh
}

func (s *Session) ensureLoaded(ctx context.Context) {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return
	}
	var token string
	if s.store != nil {
		var err error
		token, err = s.store.LoadRefreshToken(ctx)
		if err != nil {
			log.Warn("load refresh token failed", "err", err)
		}
	}
	s.mu.Lock()
	if !s.loaded {
		s.refresh = token
		s.loaded = true
	}
	s.mu.Unlock()
}

// Do sends req with the bearer token. A 401 triggers one shared refresh and a
// single retry. Request bodies must be replayable through GetBody.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	s.ensureLoaded(ctx)

	token := s.AccessToken()
	if s.needsRefresh(token) && s.refreshToken() != "" {
		if fresh, err := s.refreshShared(ctx, token); err == nil {
			token = fresh
		} else if errors.Is(err, ErrSessionExpired) {
			return nil, err
		}
	}

	resp, err := s.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	fresh, err := s.refreshShared(ctx, token)
	if err != nil {
		return nil, err
	}
	retry, err := rewind(req)
	if err != nil {
		return nil, err
	}
	return s.send(retry, fresh)
}

func (s *Session) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	}
	return s.http.Do(out)
}

// needsRefresh reports whether token is missing or about to expire.
func (s *Session) needsRefresh(token string) bool {
	if token == "" {
		return true
	}
	exp, ok := tokenExpiry(token)
	if !ok {
		return false
	}
	return exp.Sub(s.clock()) <= refreshSkew
}

// tokenExpiry reads the exp claim without verifying the signature.
func tokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// refreshShared runs at most one refresh at a time. A caller whose stale
// token was already replaced reuses the new token without another request.
// The refresh ignores the starting caller's cancellation; a caller that
// gives up returns ctx.Err() while the refresh completes for the rest.
func (s *Session) refreshShared(ctx context.Context, stale string) (string, error) {
	if current := s.AccessToken(); current != "" && current != stale && !s.needsRefresh(current) {
		return current, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan("refresh", func() (any, error) {
		if current := s.AccessToken(); current != "" && current != stale && !s.needsRefresh(current) {
			return current, nil
		}
		return s.doRefresh(shared)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Session) doRefresh(ctx context.Context) (string, error) {
	refresh := s.refreshToken()
	if refresh == "" {
		s.expire(ctx)
		return "", ErrSessionExpired
	}
	body, err := json.Marshal(refreshRequest{RefreshToken: refresh})
	if err != nil {
		return "", fmt.Errorf("encode refresh request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/refresh", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		apiErr := statusErrorFrom(resp)
		log.Warn("token refresh rejected", "status", resp.StatusCode)
		s.expire(ctx)
		return "", fmt.Errorf("%w: %v", ErrSessionExpired, apiErr)
	}
	var pair tokenPairDTO
	if err := json.NewDecoder(resp.Body).Decode(&pair); err != nil {
		s.expire(ctx)
		return "", fmt.Errorf("%w: decode refresh response: %v", ErrSessionExpired, err)
	}
	access, next := pair.tokens()
	if access == "" {
		s.expire(ctx)
		return "", fmt.Errorf("%w: refresh response carried no access token", ErrSessionExpired)
	}
	if next == "" {
		next = refresh
	}
	if err := s.SetTokens(ctx, access, next); err != nil {
		log.Warn("persist rotated refresh token failed", "err", err)
	}
	log.Debug("access token refreshed")
	return access, nil
}

func (s *Session) expire(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		log.Warn("clear session failed", "err", err)
	}
	if s.onExpire != nil {
		s.onExpire()
	}
}

func rewind(req *http.Request) (*http.Request, error) {
	out := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return out, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed after token refresh")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("rewind request body: %w", err)
	}
	out.Body = body
	return out, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
