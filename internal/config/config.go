package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// DefaultAPIBaseURL is the backend root used when none is configured.
const DefaultAPIBaseURL = "http://localhost:8080/api"

type Config struct {
	API      APIConfig      `toml:"api"`
	Database DatabaseConfig `toml:"database"`
	Cache    CacheConfig    `toml:"cache"`
	Board    BoardConfig    `toml:"board"`
	Search   SearchConfig   `toml:"search"`
	Logging  LoggingConfig  `toml:"logging"`
	Keys     KeyConfig      `toml:"keys"`
}

type APIConfig struct {
	BaseURL            string `toml:"base_url"`
	Timeout            string `toml:"timeout"`
	GoogleClientID     string `toml:"google_client_id"`
	GoogleClientSecret string `toml:"google_client_secret"`
}

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type CacheConfig struct {
	Enabled  bool     `toml:"enabled"`
	Version  string   `toml:"version"`
	Precache []string `toml:"precache"`
}

type BoardConfig struct {
	UnreadOnly           bool   `toml:"unread_only"`
	AttachmentsOnly      bool   `toml:"attachments_only"`
	SortBy               string `toml:"sort_by"`    // received_at | sender
	SortOrder            string `toml:"sort_order"` // asc | desc
	RefetchOnMoveFailure bool   `toml:"refetch_on_move_failure"`
}

type SearchConfig struct {
	Mode       string `toml:"mode"` // semantic | keyword
	Limit      int    `toml:"limit"`
	DebounceMS int    `toml:"debounce_ms"`
	MinChars   int    `toml:"min_chars"`
}

type LoggingConfig struct {
	Level   string        `toml:"level"`
	DevFile DevFileConfig `toml:"dev_file"`
}

type DevFileConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type KeyConfig struct {
	Search    string `toml:"search"`
	Snooze    string `toml:"snooze"`
	Summarize string `toml:"summarize"`
	Settings  string `toml:"settings"`
	Stats     string `toml:"stats"`
	Inbox     string `toml:"inbox"`
	CopyLink  string `toml:"copy_link"`
}

func Default(dbPath string) Config {
	return Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: "15s",
		},
		Database: DatabaseConfig{
			Path: dbPath,
		},
		Cache: CacheConfig{
			Enabled:  true,
			Version:  "v1",
			Precache: []string{"/offline"},
		},
		Board: BoardConfig{
			SortBy:               "received_at",
			SortOrder:            "desc",
			RefetchOnMoveFailure: true,
		},
		Search: SearchConfig{
			Mode:       "semantic",
			Limit:      10,
			DebounceMS: 300,
			MinChars:   2,
		},
		Logging: LoggingConfig{
			Level: "info",
			DevFile: DevFileConfig{
				Enabled: true,
				Dir:     ".mailkan/log",
			},
		},
		Keys: KeyConfig{
			Search:    "/",
			Snooze:    "z",
			Summarize: "s",
			Settings:  "S",
			Stats:     "g",
			Inbox:     "I",
			CopyLink:  "y",
		},
	}
}

func Load(path string, defaults Config) (Config, error) {
	cfg := defaults
	if strings.TrimSpace(path) == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if len(content) == 0 {
		return cfg, nil
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode toml: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped and existing variables win.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if strings.TrimSpace(path) == "" {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// ApplyEnv overlays MAILKAN_* variables read through lookup.
func ApplyEnv(cfg Config, lookup func(string) (string, bool)) Config {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if v, ok := lookup("MAILKAN_API_URL"); ok && strings.TrimSpace(v) != "" {
		cfg.API.BaseURL = strings.TrimSpace(v)
	}
	if v, ok := lookup("MAILKAN_GOOGLE_CLIENT_ID"); ok && strings.TrimSpace(v) != "" {
		cfg.API.GoogleClientID = strings.TrimSpace(v)
	}
	if v, ok := lookup("MAILKAN_GOOGLE_CLIENT_SECRET"); ok && strings.TrimSpace(v) != "" {
		cfg.API.GoogleClientSecret = strings.TrimSpace(v)
	}
	return cfg
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return errors.New("database path is required")
	}

	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(base)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api.base_url: %q", c.API.BaseURL)
	}
	if _, err := c.API.TimeoutDuration(); err != nil {
		return err
	}

	if c.Cache.Enabled && strings.TrimSpace(c.Cache.Version) == "" {
		return errors.New("cache.version is required when the cache is enabled")
	}

	switch strings.TrimSpace(strings.ToLower(c.Board.SortBy)) {
	case "", "received_at", "date", "sender":
	default:
		return fmt.Errorf("invalid board.sort_by: %q", c.Board.SortBy)
	}
	switch strings.TrimSpace(strings.ToLower(c.Board.SortOrder)) {
	case "", "asc", "desc":
	default:
		return fmt.Errorf("invalid board.sort_order: %q", c.Board.SortOrder)
	}

	switch strings.TrimSpace(strings.ToLower(c.Search.Mode)) {
	case "", "semantic", "keyword":
	default:
		return fmt.Errorf("invalid search.mode: %q", c.Search.Mode)
	}
	if c.Search.Limit < 0 {
		return errors.New("search.limit must be >= 0")
	}
	if c.Search.DebounceMS < 0 {
		return errors.New("search.debounce_ms must be >= 0")
	}
	if c.Search.MinChars < 0 {
		return errors.New("search.min_chars must be >= 0")
	}

	switch strings.TrimSpace(strings.ToLower(c.Logging.Level)) {
	case "", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("invalid logging.level: %q", c.Logging.Level)
	}

	seen := map[string]string{}
	for name, binding := range c.Keys.bindings() {
		binding = strings.TrimSpace(binding)
		if binding == "" {
			continue
		}
		if other, ok := seen[binding]; ok {
			return fmt.Errorf("keys.%s and keys.%s both use %q", other, name, binding)
		}
		seen[binding] = name
	}

	return nil
}

// TimeoutDuration parses api.timeout; blank means no client timeout.
func (a APIConfig) TimeoutDuration() (time.Duration, error) {
	raw := strings.TrimSpace(a.Timeout)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid api.timeout: %q", a.Timeout)
	}
	return d, nil
}

// PrecacheURLs resolves cache.precache entries against the API base URL.
func (c Config) PrecacheURLs() []string {
	base := strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	out := make([]string, 0, len(c.Cache.Precache))
	for _, p := range c.Cache.Precache {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
		case strings.HasPrefix(p, "http://"), strings.HasPrefix(p, "https://"):
			out = append(out, p)
		default:
			out = append(out, base+"/"+strings.TrimLeft(p, "/"))
		}
	}
	return out
}

func (k KeyConfig) bindings() map[string]string {
	return map[string]string{
		"search":    k.Search,
		"snooze":    k.Snooze,
		"summarize": k.Summarize,
		"settings":  k.Settings,
		"stats":     k.Stats,
		"inbox":     k.Inbox,
		"copy_link": k.CopyLink,
	}
}

func EnsureConfigDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteDefault writes cfg to path unless a file already exists there.
func WriteDefault(path string, cfg Config) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := EnsureConfigDir(path); err != nil {
		return false, fmt.Errorf("create config dir: %w", err)
	}
	content, err := toml.Marshal(cfg)
	if err != nil {
		return false, fmt.Errorf("encode toml: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return false, fmt.Errorf("write config: %w", err)
	}
	return true, nil
}
