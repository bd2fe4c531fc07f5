package tui

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/key"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"
	"github.com/evanschultz/mailkan/internal/domain"
)

// statsState holds the dashboard payload.
type statsState struct {
	period  domain.Period
	data    domain.Statistics
	loaded  bool
	loading bool
}

// statsLoadedMsg carries dashboard data for one period.
type statsLoadedMsg struct {
	period domain.Period
	data   domain.Statistics
	err    error
}

// sparkRunes are the eight sparkline levels.
var sparkRunes = []rune("▁▂▃▄▅▆▇█")

// heatRunes shade heatmap cells from empty to peak.
var heatRunes = []string{"·", "░", "▒", "▓", "█"}

// openStats shows the dashboard and loads the current period.
func (m Model) openStats() (tea.Model, tea.Cmd) {
	m.screen = screenStats
	cmd := m.loadStatsCmd()
	return m, cmd
}

// loadStatsCmd fetches statistics for the selected period.
func (m *Model) loadStatsCmd() tea.Cmd {
	m.stats.loading = true
	m.status = "loading statistics..."
	period := m.stats.period
	svc := m.svc
	return func() tea.Msg {
		data, err := svc.Statistics(context.Background(), period)
		return statsLoadedMsg{period: period, data: data, err: err}
	}
}

// applyStatsLoaded stores data for the selected period only.
func (m Model) applyStatsLoaded(msg statsLoadedMsg) (tea.Model, tea.Cmd) {
	if msg.period != m.stats.period {
		return m, nil
	}
	m.stats.loading = false
	if msg.err != nil {
		m.failed("load statistics", msg.err)
		return m, nil
	}
	m.stats.data = msg.data
	m.stats.loaded = true
	m.status = "ready"
	return m, nil
}

// handleStatsKey cycles the period and reloads.
func (m Model) handleStatsKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "p" || msg.String() == "tab":
		m.stats.period = m.stats.period.Next()
		cmd := m.loadStatsCmd()
		return m, cmd
	case key.Matches(msg, m.keys.reload):
		cmd := m.loadStatsCmd()
		return m, cmd
	case key.Matches(msg, m.keys.back):
		m.screen = screenBoard
		m.status = "ready"
		return m, nil
	}
	if model, cmd, ok := m.handleGlobalKey(msg); ok {
		return model, cmd
	}
	return m, nil
}

// renderStats renders totals, distribution, trend, senders, and the activity heatmap.
func (m Model) renderStats() string {
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	section := lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	periods := make([]string, 0, 3)
	for _, p := range domain.Periods() {
		label := string(p)
		if p == m.stats.period {
			label = lipgloss.NewStyle().Foreground(selectedColor).Bold(true).Render("[" + label + "]")
		}
		periods = append(periods, label)
	}
	lines := []string{hint.Render("period: ") + strings.Join(periods, " ")}
	if !m.stats.loaded {
		if m.stats.loading {
			return strings.Join(append(lines, "", hint.Render("loading statistics...")), "\n")
		}
		return strings.Join(append(lines, "", hint.Render("no data • press r to reload")), "\n")
	}
	s := m.stats.data
	width := max(40, m.width-4)
	barWidth := clamp(width/3, 10, 40)

	lines = append(lines, "",
		fmt.Sprintf("total %s  •  unread %s  •  read %s  •  starred %s",
			humanize.Comma(int64(s.TotalEmails)),
			humanize.Comma(int64(s.UnreadCount)),
			humanize.Comma(int64(s.ReadCount())),
			humanize.Comma(int64(s.StarredCount))),
	)

	if len(s.StatusStats) > 0 {
		lines = append(lines, "", section.Render("By status"))
		peak := 0
		for _, sc := range s.StatusStats {
			peak = max(peak, sc.Count)
		}
		for _, sc := range s.StatusStats {
			lines = append(lines, fmt.Sprintf("  %-14s %s %d", truncate(sc.Status, 14), bar(sc.Count, peak, barWidth), sc.Count))
		}
	}

	if len(s.EmailTrend) > 0 {
		counts := make([]int, 0, len(s.EmailTrend))
		for _, p := range s.EmailTrend {
			counts = append(counts, p.Count)
		}
		first, last := s.EmailTrend[0].Date, s.EmailTrend[len(s.EmailTrend)-1].Date
		lines = append(lines, "", section.Render("Daily volume"),
			"  "+sparkline(counts, width-4),
			"  "+hint.Render(first+" → "+last))
	}

	if len(s.TopSenders) > 0 {
		lines = append(lines, "", section.Render("Top senders"))
		peak := 0
		for _, ts := range s.TopSenders {
			peak = max(peak, ts.Count)
		}
		for _, ts := range s.TopSenders {
			name := ts.Name
			if strings.TrimSpace(name) == "" {
				name = ts.Email
			}
			lines = append(lines, fmt.Sprintf("  %-24s %s %d", truncate(name, 24), bar(ts.Count, peak, barWidth), ts.Count))
		}
	}

	if len(s.DailyActivity) > 0 {
		lines = append(lines, "", section.Render("Activity by hour"))
		lines = append(lines, heatmapLines(s)...)
	}
	return strings.Join(lines, "\n")
}

// bar renders count as a horizontal bar scaled to peak.
func bar(count, peak, width int) string {
	if peak <= 0 || width <= 0 {
		return ""
	}
	n := count * width / peak
	if count > 0 && n == 0 {
		n = 1
	}
	return lipgloss.NewStyle().Foreground(accentColor).Render(strings.Repeat("█", n)) +
		lipgloss.NewStyle().Foreground(dimColor).Render(strings.Repeat("·", width-n))
}

// sparkline renders counts as one row of block levels, keeping the latest width values.
func sparkline(counts []int, width int) string {
	if len(counts) > width && width > 0 {
		counts = counts[len(counts)-width:]
	}
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}
	var b strings.Builder
	for _, c := range counts {
		if peak == 0 {
			b.WriteRune(sparkRunes[0])
			continue
		}
		b.WriteRune(sparkRunes[clamp(c*(len(sparkRunes)-1)/peak, 0, len(sparkRunes)-1)])
	}
	return b.String()
}

// heatmapLines renders the weekday by hour grid.
func heatmapLines(s domain.Statistics) []string {
	grid, peak := s.Heatmap()
	days := [7]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	hint := lipgloss.NewStyle().Foreground(mutedColor)
	lines := []string{"      " + hint.Render("0     6     12    18   23")}
	for d := range grid {
		var b strings.Builder
		for h := range grid[d] {
			b.WriteString(heatCell(grid[d][h], peak))
		}
		lines = append(lines, "  "+days[d]+" "+b.String())
	}
	return lines
}

// heatCell shades one heatmap cell.
func heatCell(count, peak int) string {
	if count <= 0 || peak <= 0 {
		return heatRunes[0]
	}
	idx := 1 + (count*(len(heatRunes)-2))/peak
	return heatRunes[clamp(idx, 1, len(heatRunes)-1)]
}
