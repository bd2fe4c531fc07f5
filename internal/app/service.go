package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/evanschultz/mailkan/internal/domain"
)

// SearchMode selects the default search strategy.
type SearchMode string

// SearchModeSemantic and related constants define package defaults.
const (
	SearchModeSemantic SearchMode = "semantic"
	SearchModeKeyword  SearchMode = "keyword"
)

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Filter               domain.BoardFilter
	// RefetchOnMoveFailure replaces the board with a fresh fetch after a rejected
	// move; when false only the moved card is put back.
	RefetchOnMoveFailure bool
	SearchMode           SearchMode
	SearchLimit          int
	SuggestMinChars      int
	InboxPageSize        int
}

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service coordinates the remote backend with client-side board state.
type Service struct {
	backend Backend
	idGen   IDGenerator
	clock   Clock

	mu  sync.RWMutex
	cfg ServiceConfig
}

// NewService constructs a new value for this package.
func NewService(backend Backend, idGen IDGenerator, clock Clock, cfg ServiceConfig) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.SearchMode == "" {
		cfg.SearchMode = SearchModeSemantic
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = 10
	}
	if cfg.SuggestMinChars <= 0 {
		cfg.SuggestMinChars = domain.MinSuggestionChars
	}
	if cfg.InboxPageSize <= 0 {
		cfg.InboxPageSize = 20
	}
	return &Service{
		backend: backend,
		idGen:   idGen,
		clock:   clock,
		cfg:     cfg,
	}
}

// Config returns the effective service configuration.
func (s *Service) Config() ServiceConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// SetFilter replaces the board filter used by LoadBoard.
func (s *Service) SetFilter(filter domain.BoardFilter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Filter = filter
}

// Login authenticates with email and password.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	if err := creds.Validate(); err != nil {
		return domain.User{}, err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	user, err := s.backend.Login(ctx, creds)
	if err != nil {
		return domain.User{}, fmt.Errorf("login: %w", err)
	}
	log.Info("login succeeded", "user", user.Email)
	return user, nil
}

// Signup registers a new account and signs it in.
func (s *Service) Signup(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	if err := creds.Validate(); err != nil {
		return domain.User{}, err
	}
	creds.Email = strings.TrimSpace(creds.Email)
	creds.Name = strings.TrimSpace(creds.Name)
	user, err := s.backend.Signup(ctx, creds)
	if err != nil {
		return domain.User{}, fmt.Errorf("signup: %w", err)
	}
	return user, nil
}

// GoogleLogin exchanges a Google authorization code for a backend session.
func (s *Service) GoogleLogin(ctx context.Context, code string) (domain.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.User{}, domain.ErrInvalidCredentials
	}
	user, err := s.backend.GoogleLogin(ctx, code)
	if err != nil {
		return domain.User{}, fmt.Errorf("google login: %w", err)
	}
	return user, nil
}

// CurrentUser returns the signed-in account.
func (s *Service) CurrentUser(ctx context.Context) (domain.User, error) {
	if !s.backend.LoggedIn() {
		return domain.User{}, ErrNotLoggedIn
	}
	user, err := s.backend.Me(ctx)
	if err != nil {
		return domain.User{}, fmt.Errorf("current user: %w", err)
	}
	return user, nil
}

// LoggedIn reports whether a session is available.
func (s *Service) LoggedIn() bool {
	return s.backend.LoggedIn()
}

// Logout ends the session. Local tokens are cleared even when the call fails.
func (s *Service) Logout(ctx context.Context) error {
	if err := s.backend.Logout(ctx); err != nil {
		log.Warn("logout request failed", "err", err)
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// Offline reports whether the last backend response came from the offline cache.
func (s *Service) Offline() bool {
	r, ok := s.backend.(ConnectivityReporter)
	return ok && r.Offline()
}
