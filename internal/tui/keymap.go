package tui

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"charm.land/bubbles/v2/key"
)

// KeyConfig holds user overrides for the rebindable actions. Blank fields keep defaults.
type KeyConfig struct {
	Search    string
	Snooze    string
	Summarize string
	Settings  string
	Stats     string
	Inbox     string
	CopyLink  string
}

// keyMap represents key map data used by this package.
type keyMap struct {
	quit        key.Binding
	reload      key.Binding
	toggleHelp  key.Binding
	back        key.Binding
	moveLeft    key.Binding
	moveRight   key.Binding
	moveUp      key.Binding
	moveDown    key.Binding
	open        key.Binding
	cardLeft    key.Binding
	cardRight   key.Binding
	moveTo      key.Binding
	snooze      key.Binding
	summarize   key.Binding
	copyLink    key.Binding
	unreadOnly  key.Binding
	attachments key.Binding
	sortField   key.Binding
	sortOrder   key.Binding
	search      key.Binding
	settings    key.Binding
	stats       key.Binding
	inbox       key.Binding
	board       key.Binding
	logout      key.Binding
	star        key.Binding
	trash       key.Binding
	compose     key.Binding
	reply       key.Binding
	nextPage    key.Binding
	prevPage    key.Binding
	pageUp      key.Binding
	pageDown    key.Binding
}

// newKeyMap constructs key map.
func newKeyMap() keyMap {
	return keyMap{
		quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		toggleHelp:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		back:        key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		moveLeft:    key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "column left")),
		moveRight:   key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "column right")),
		moveUp:      key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		moveDown:    key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		open:        key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		cardLeft:    key.NewBinding(key.WithKeys("["), key.WithHelp("[", "move card left")),
		cardRight:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "move card right")),
		moveTo:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move to column")),
		snooze:      key.NewBinding(key.WithKeys("z"), key.WithHelp("z", "snooze")),
		summarize:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "summary")),
		copyLink:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy gmail link")),
		unreadOnly:  key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unread only")),
		attachments: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "with attachments")),
		sortField:   key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "sort by")),
		sortOrder:   key.NewBinding(key.WithKeys("O", "shift+o"), key.WithHelp("O", "sort order")),
		search:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		settings:    key.NewBinding(key.WithKeys("S", "shift+s"), key.WithHelp("S", "columns")),
		stats:       key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "statistics")),
		inbox:       key.NewBinding(key.WithKeys("I", "shift+i"), key.WithHelp("I", "inbox")),
		board:       key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "board")),
		logout:      key.NewBinding(key.WithKeys("L", "shift+l"), key.WithHelp("L", "log out")),
		star:        key.NewBinding(key.WithKeys("*"), key.WithHelp("*", "star")),
		trash:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "trash")),
		compose:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "compose")),
		reply:       key.NewBinding(key.WithKeys("R", "shift+r"), key.WithHelp("R", "reply")),
		nextPage:    key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
		prevPage:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous page")),
		pageUp:      key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
		pageDown:    key.NewBinding(key.WithKeys("pgdown", " "), key.WithHelp("pgdn", "scroll down")),
	}
}

// applyConfig rebinds configurable actions from cfg.
func (k *keyMap) applyConfig(cfg KeyConfig) {
	configureBinding(&k.search, cfg.Search, "/", "search")
	configureBinding(&k.snooze, cfg.Snooze, "z", "snooze")
	configureBinding(&k.summarize, cfg.Summarize, "s", "summary")
	configureBinding(&k.settings, cfg.Settings, "S", "columns")
	configureBinding(&k.stats, cfg.Stats, "g", "statistics")
	configureBinding(&k.inbox, cfg.Inbox, "I", "inbox")
	configureBinding(&k.copyLink, cfg.CopyLink, "y", "copy gmail link")
}

// configureBinding replaces the keys and help text of b.
func configureBinding(b *key.Binding, raw, fallback, desc string) {
	keys, help := parseBindingKeys(raw, fallback)
	b.SetKeys(keys...)
	b.SetHelp(help, desc)
}

// parseBindingKeys turns one configured key into matcher keys plus its help label.
// Single uppercase runes also match their shift+ form.
func parseBindingKeys(raw, fallback string) ([]string, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = fallback
	}
	if strings.EqualFold(raw, "space") {
		return []string{" ", "space"}, "space"
	}
	if utf8.RuneCountInString(raw) == 1 {
		r, _ := utf8.DecodeRuneInString(raw)
		if unicode.IsUpper(r) {
			return []string{raw, "shift+" + string(unicode.ToLower(r))}, raw
		}
		return []string{raw}, raw
	}
	return []string{strings.ToLower(raw)}, raw
}

// ShortHelp handles short help.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.open, k.cardLeft, k.cardRight, k.snooze, k.summarize, k.search, k.inbox, k.toggleHelp, k.quit,
	}
}

// FullHelp handles full help.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.moveLeft, k.moveRight, k.moveUp, k.moveDown, k.open, k.back, k.pageUp, k.pageDown},
		{k.cardLeft, k.cardRight, k.moveTo, k.snooze, k.summarize, k.copyLink},
		{k.unreadOnly, k.attachments, k.sortField, k.sortOrder, k.reload},
		{k.search, k.settings, k.stats, k.inbox, k.board, k.logout, k.toggleHelp, k.quit},
		{k.star, k.trash, k.compose, k.reply, k.nextPage, k.prevPage},
	}
}
