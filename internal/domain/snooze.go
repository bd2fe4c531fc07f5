package domain

import (
	"strings"
	"time"
)

// SnoozePreset names a relative snooze choice.
type SnoozePreset string

const (
	SnoozeLaterToday SnoozePreset = "later_today"
	SnoozeTomorrow   SnoozePreset = "tomorrow"
	SnoozeNextWeek   SnoozePreset = "next_week"
	SnoozeOneMinute  SnoozePreset = "1_min"
)

// SnoozePresets lists presets in menu order.
func SnoozePresets() []SnoozePreset {
	return []SnoozePreset{SnoozeLaterToday, SnoozeTomorrow, SnoozeNextWeek, SnoozeOneMinute}
}

// Label returns a human label for the preset.
func (p SnoozePreset) Label() string {
	switch p {
	case SnoozeLaterToday:
		return "Later today"
	case SnoozeTomorrow:
		return "Tomorrow morning"
	case SnoozeNextWeek:
		return "Next week"
	case SnoozeOneMinute:
		return "In 1 minute"
	default:
		return string(p)
	}
}

// Until resolves the preset against now in now's location.
func (p SnoozePreset) Until(now time.Time) (time.Time, error) {
	switch p {
	case SnoozeLaterToday:
		return now.Add(4 * time.Hour), nil
	case SnoozeTomorrow:
		d := now.AddDate(0, 0, 1)
		return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, now.Location()), nil
	case SnoozeNextWeek:
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		d := now.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), 9, 0, 0, 0, now.Location()), nil
	case SnoozeOneMinute:
		return now.Add(time.Minute), nil
	default:
		return time.Time{}, ErrInvalidSnooze
	}
}

// ResolveSnooze accepts a preset name or an RFC3339 timestamp that must be in the future.
func ResolveSnooze(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if until, err := SnoozePreset(raw).Until(now); err == nil {
		return until, nil
	}
	until, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, ErrInvalidSnooze
	}
	if !until.After(now) {
		return time.Time{}, ErrInvalidSnooze
	}
	return until, nil
}
