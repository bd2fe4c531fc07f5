package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evanschultz/mailkan/internal/adapters/api"
	"github.com/evanschultz/mailkan/internal/adapters/offline"
	"github.com/evanschultz/mailkan/internal/adapters/storage/sqlite"
	"github.com/evanschultz/mailkan/internal/app"
	"github.com/evanschultz/mailkan/internal/config"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/evanschultz/mailkan/internal/platform"
	"github.com/google/uuid"
)

// baseTransport is the network round tripper under the offline cache.
var baseTransport http.RoundTripper = http.DefaultTransport

// runtimeEnv is the wired client stack for one command.
type runtimeEnv struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
	logger     *runtimeLogger
	repo       *sqlite.Repository
	cache      *offline.Transport
	session    *api.Session
	client     *api.Client
	svc        *app.Service
}

// loadConfig resolves paths, .env files, the TOML config, and env overrides.
func (c *cli) loadConfig() (platform.Paths, string, config.Config, error) {
	paths, err := c.paths()
	if err != nil {
		return platform.Paths{}, "", config.Config{}, err
	}
	if err := config.LoadDotEnv(".env", paths.EnvPath); err != nil {
		return platform.Paths{}, "", config.Config{}, fmt.Errorf("load .env: %w", err)
	}
	configPath := c.configPath(paths)
	dbPath, dbOverridden := c.dbPath(paths)

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return platform.Paths{}, "", config.Config{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	cfg = config.ApplyEnv(cfg, c.lookup)
	if u := strings.TrimSpace(c.opts.apiURL); u != "" {
		cfg.API.BaseURL = u
	}
	if err := cfg.Validate(); err != nil {
		return platform.Paths{}, "", config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return paths, configPath, cfg, nil
}

// open wires logger, storage, offline cache, session, client, and service.
// Console logging is muted when the TUI will own the terminal.
func (c *cli) open(ctx context.Context, command string, tui bool) (*runtimeEnv, error) {
	paths, configPath, cfg, err := c.loadConfig()
	if err != nil {
		return nil, err
	}
	logger, err := newRuntimeLogger(c.stderr, c.opts.appName, c.opts.devMode, cfg.Logging, time.Now)
	if err != nil {
		return nil, fmt.Errorf("configure runtime logger: %w", err)
	}
	logger.SetConsoleEnabled(!tui)

	env := &runtimeEnv{paths: paths, configPath: configPath, cfg: cfg, logger: logger}
	logger.Info("startup configuration resolved", "app", c.opts.appName, "dev_mode", c.opts.devMode, "command", command)
	logger.Debug("runtime paths resolved", "config_path", configPath, "data_dir", paths.DataDir, "db_path", cfg.Database.Path)
	if p := logger.DevLogPath(); p != "" {
		logger.Info("dev file logging enabled", "path", p)
	}

	repo, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", cfg.Database.Path, "err", err)
		env.Close()
		return nil, fmt.Errorf("open sqlite repository: %w", err)
	}
	env.repo = repo

	rt := baseTransport
	if cfg.Cache.Enabled {
		env.cache = offline.New(baseTransport, repo, offline.Options{
			Version:    cfg.Cache.Version,
			OfflineURL: strings.TrimRight(cfg.API.BaseURL, "/") + "/offline",
		})
		purged, err := env.cache.Activate(ctx)
		if err != nil {
			logger.Warn("cache activation failed", "err", err)
		} else if len(purged) > 0 {
			logger.Info("purged stale cache buckets", "count", len(purged))
		}
		rt = env.cache
	}
	timeout, err := cfg.API.TimeoutDuration()
	if err != nil {
		env.Close()
		return nil, err
	}

	env.session = api.NewSession(cfg.API.BaseURL, &http.Client{Transport: rt, Timeout: timeout}, repo,
		api.WithExpireHook(func() {
			logger.Warn("session expired, log in again")
		}),
	)
	env.client = api.NewClient(env.session)
	env.svc = app.NewService(env.client, uuid.NewString, nil, serviceConfig(cfg))
	logger.Debug("application service initialized", "api", cfg.API.BaseURL, "cache", cfg.Cache.Enabled)
	return env, nil
}

// Close releases the database and the dev log file.
func (e *runtimeEnv) Close() {
	if e == nil {
		return
	}
	if e.repo != nil {
		if err := e.repo.Close(); err != nil {
			e.logger.Warn("sqlite close failed", "err", err)
		}
	}
	_ = e.logger.Close()
}

// requireLogin fails fast when no session is stored.
func (e *runtimeEnv) requireLogin() error {
	if !e.svc.LoggedIn() {
		return fmt.Errorf("%w: run `mailkan login` first", app.ErrNotLoggedIn)
	}
	return nil
}

// serviceConfig maps file configuration into service defaults.
func serviceConfig(cfg config.Config) app.ServiceConfig {
	sortBy, _ := domain.ParseSortField(cfg.Board.SortBy)
	sortOrder, _ := domain.ParseSortOrder(cfg.Board.SortOrder)
	mode := app.SearchModeSemantic
	if strings.EqualFold(strings.TrimSpace(cfg.Search.Mode), string(app.SearchModeKeyword)) {
		mode = app.SearchModeKeyword
	}
	return app.ServiceConfig{
		Filter: domain.BoardFilter{
			UnreadOnly:      cfg.Board.UnreadOnly,
			AttachmentsOnly: cfg.Board.AttachmentsOnly,
			SortBy:          sortBy,
			SortOrder:       sortOrder,
		},
		RefetchOnMoveFailure: cfg.Board.RefetchOnMoveFailure,
		SearchMode:           mode,
		SearchLimit:          cfg.Search.Limit,
		SuggestMinChars:      cfg.Search.MinChars,
	}
}
