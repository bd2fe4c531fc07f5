package domain

import (
	"slices"
	"strings"
	"unicode"
)

// Column is one user-configured triage bucket on the board.
type Column struct {
	ID         string
	UserID     string
	Key        string
	Label      string
	Order      int
	GmailLabel string
	Color      ColumnColor
	IsDefault  bool
}

// ColumnMeta carries the display metadata the board needs for one column.
type ColumnMeta struct {
	Key   string
	Label string
	Color ColumnColor
}

// Meta projects a configured column into board metadata.
func (c Column) Meta() ColumnMeta {
	return ColumnMeta{Key: c.Key, Label: c.Label, Color: c.Color}
}

// NewColumn validates a locally drafted column before it is sent to the backend.
func NewColumn(id, label, gmailLabel string, color ColumnColor, order int) (Column, error) {
	id = strings.TrimSpace(id)
	label = strings.TrimSpace(label)
	if id == "" {
		return Column{}, ErrInvalidID
	}
	if label == "" {
		return Column{}, ErrInvalidLabel
	}
	if order < 0 {
		return Column{}, ErrInvalidPosition
	}
	return Column{
		ID:         id,
		Key:        ColumnKeyFromLabel(label),
		Label:      label,
		Order:      order,
		GmailLabel: strings.TrimSpace(gmailLabel),
		Color:      color,
	}, nil
}

// ColumnKeyFromLabel derives the slug key the backend assigns to new columns.
func ColumnKeyFromLabel(label string) string {
	fields := strings.FieldsFunc(strings.ToLower(strings.TrimSpace(label)), unicode.IsSpace)
	return strings.Join(fields, "_")
}

// SortColumns returns a copy ordered by display order, keeping ties stable.
func SortColumns(cols []Column) []Column {
	out := append([]Column(nil), cols...)
	slices.SortStableFunc(out, func(a, b Column) int {
		return a.Order - b.Order
	})
	return out
}

// MoveColumn removes the column at from and inserts it at to.
func MoveColumn(cols []Column, from, to int) ([]Column, error) {
	if from < 0 || from >= len(cols) || to < 0 || to >= len(cols) {
		return nil, ErrInvalidPosition
	}
	out := append([]Column(nil), cols...)
	moved := out[from]
	out = slices.Delete(out, from, from+1)
	out = slices.Insert(out, to, moved)
	return out, nil
}

// ColumnIndex returns the index of the column with id, or -1.
func ColumnIndex(cols []Column, id string) int {
	return slices.IndexFunc(cols, func(c Column) bool { return c.ID == id })
}

// ColumnIDs returns column ids in slice order.
func ColumnIDs(cols []Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.ID)
	}
	return out
}

// DuplicateLabelColumn returns the first other column already mapped to gmailLabel.
func DuplicateLabelColumn(cols []Column, gmailLabel, excludeID string) (Column, bool) {
	gmailLabel = strings.TrimSpace(gmailLabel)
	if gmailLabel == "" {
		return Column{}, false
	}
	for _, c := range cols {
		if c.ID != excludeID && c.GmailLabel == gmailLabel {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnColor is the closed set of accent colors a column may carry.
type ColumnColor string

const (
	ColumnColorDefault ColumnColor = ""
	ColumnColorBlue    ColumnColor = "blue"
	ColumnColorGreen   ColumnColor = "green"
	ColumnColorRed     ColumnColor = "red"
	ColumnColorOrange  ColumnColor = "orange"
	ColumnColorGold    ColumnColor = "gold"
	ColumnColorPurple  ColumnColor = "purple"
	ColumnColorCyan    ColumnColor = "cyan"
	ColumnColorMagenta ColumnColor = "magenta"
	ColumnColorGray    ColumnColor = "gray"
)

var columnColors = []ColumnColor{
	ColumnColorBlue,
	ColumnColorGreen,
	ColumnColorRed,
	ColumnColorOrange,
	ColumnColorGold,
	ColumnColorPurple,
	ColumnColorCyan,
	ColumnColorMagenta,
	ColumnColorGray,
}

// ColumnColors lists every non-default color in picker order.
func ColumnColors() []ColumnColor {
	return append([]ColumnColor(nil), columnColors...)
}

// hexColorNames folds the hex values the web client stored into named colors.
var hexColorNames = map[string]ColumnColor{
	"#1677ff": ColumnColorBlue,
	"#1890ff": ColumnColorBlue,
	"#52c41a": ColumnColorGreen,
	"#ff4d4f": ColumnColorRed,
	"#f5222d": ColumnColorRed,
	"#fa8c16": ColumnColorOrange,
	"#faad14": ColumnColorGold,
	"#722ed1": ColumnColorPurple,
	"#13c2c2": ColumnColorCyan,
	"#eb2f96": ColumnColorMagenta,
	"#8c8c8c": ColumnColorGray,
}

// ParseColumnColor normalizes a wire color; unknown values become the default color.
func ParseColumnColor(raw string) ColumnColor {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return ColumnColorDefault
	}
	if c, ok := hexColorNames[raw]; ok {
		return c
	}
	if raw == "grey" {
		return ColumnColorGray
	}
	c := ColumnColor(raw)
	if slices.Contains(columnColors, c) {
		return c
	}
	return ColumnColorDefault
}

// TerminalColor maps the color to an ANSI-256 palette index.
func (c ColumnColor) TerminalColor() string {
	switch c {
	case ColumnColorBlue:
		return "33"
	case ColumnColorGreen:
		return "70"
	case ColumnColorRed:
		return "203"
	case ColumnColorOrange:
		return "208"
	case ColumnColorGold:
		return "220"
	case ColumnColorPurple:
		return "98"
	case ColumnColorCyan:
		return "37"
	case ColumnColorMagenta:
		return "170"
	case ColumnColorGray:
		return "245"
	case ColumnColorDefault:
		return "62"
	default:
		return "62"
	}
}
