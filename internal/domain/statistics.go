package domain

import "strings"

// Period is the statistics window.
type Period string

const (
	Period7Days  Period = "7d"
	Period30Days Period = "30d"
	Period90Days Period = "90d"
)

// DefaultPeriod is used when no window is requested.
const DefaultPeriod = Period30Days

// Periods lists every supported window in ascending order.
func Periods() []Period {
	return []Period{Period7Days, Period30Days, Period90Days}
}

// ParsePeriod validates a window name. An empty value yields the default.
func ParsePeriod(raw string) (Period, error) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return DefaultPeriod, nil
	}
	for _, p := range Periods() {
		if string(p) == raw {
			return p, nil
		}
	}
	return "", ErrInvalidPeriod
}

// Next cycles to the following window.
func (p Period) Next() Period {
	switch p {
	case Period7Days:
		return Period30Days
	case Period30Days:
		return Period90Days
	default:
		return Period7Days
	}
}

// StatusCount is one slice of the status distribution.
type StatusCount struct {
	Status string
	Count  int
}

// TrendPoint is a per-day message count.
type TrendPoint struct {
	Date  string
	Count int
}

// TopSender is a sender ranked by message volume.
type TopSender struct {
	Name  string
	Email string
	Count int
}

// ActivityCell is one day-of-week by hour bucket; DayOfWeek 0 is Sunday.
type ActivityCell struct {
	DayOfWeek int
	Hour      int
	Count     int
}

// Statistics is the dashboard payload.
type Statistics struct {
	Period        Period
	TotalEmails   int
	UnreadCount   int
	StarredCount  int
	StatusStats   []StatusCount
	EmailTrend    []TrendPoint
	TopSenders    []TopSender
	DailyActivity []ActivityCell
}

// ReadCount is the number of messages that are not unread.
func (s Statistics) ReadCount() int {
	return max(0, s.TotalEmails-s.UnreadCount)
}

// Heatmap folds daily activity into a 7x24 grid and returns the peak count.
func (s Statistics) Heatmap() ([7][24]int, int) {
	var grid [7][24]int
	peak := 0
	for _, c := range s.DailyActivity {
		if c.DayOfWeek < 0 || c.DayOfWeek > 6 || c.Hour < 0 || c.Hour > 23 {
			continue
		}
		grid[c.DayOfWeek][c.Hour] += c.Count
		peak = max(peak, grid[c.DayOfWeek][c.Hour])
	}
	return grid, peak
}
