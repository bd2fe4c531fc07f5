package tui

import (
	"time"

	"github.com/atotto/clipboard"
)

// Option configures a Model.
type Option func(*Model)

// ClipboardFunc writes text to the system clipboard.
type ClipboardFunc func(string) error

// defaultSearchDebounce is the suggestion debounce window.
const defaultSearchDebounce = 300 * time.Millisecond

// WithKeyConfig applies key overrides.
func WithKeyConfig(cfg KeyConfig) Option {
	return func(m *Model) {
		m.keys.applyConfig(cfg)
	}
}

// WithSearchDebounce sets the pause before suggestions are requested. Zero requests immediately.
func WithSearchDebounce(d time.Duration) Option {
	return func(m *Model) {
		if d >= 0 {
			m.debounce = d
		}
	}
}

// WithSemanticSearch selects semantic (true) or keyword (false) search by default.
func WithSemanticSearch(enabled bool) Option {
	return func(m *Model) {
		m.search.semantic = enabled
	}
}

// WithClipboard replaces the clipboard writer.
func WithClipboard(fn ClipboardFunc) Option {
	return func(m *Model) {
		if fn != nil {
			m.copyText = fn
		}
	}
}

// WithClock replaces the time source used for snooze labels and relative times.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		if now != nil {
			m.now = now
		}
	}
}

// WithUser seeds the signed-in account shown in the header.
func WithUser(name string) Option {
	return func(m *Model) {
		m.userName = name
	}
}

// systemClipboard writes through atotto/clipboard.
func systemClipboard(text string) error {
	return clipboard.WriteAll(text)
}
