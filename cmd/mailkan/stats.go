package main

import (
	"fmt"
	"io"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/dustin/go-humanize"
	"github.com/evanschultz/mailkan/internal/domain"
	"github.com/spf13/cobra"
)

func newStatsCmd(c *cli) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print mailbox statistics for a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := domain.ParsePeriod(period)
			if err != nil {
				return fmt.Errorf("%w: %q (want 7d, 30d, or 90d)", err, period)
			}
			env, err := c.open(cmd.Context(), "stats", false)
			if err != nil {
				return err
			}
			defer env.Close()
			if err := env.requireLogin(); err != nil {
				return err
			}
			s, err := env.svc.Statistics(cmd.Context(), p)
			if err != nil {
				return err
			}
			writeStatistics(cmd.OutOrStdout(), p, s)
			return nil
		},
	}
	cmd.Flags().StringVar(&period, "period", string(domain.DefaultPeriod), "7d, 30d, or 90d")
	return cmd
}

func writeStatistics(w io.Writer, p domain.Period, s domain.Statistics) {
	_, _ = fmt.Fprintf(w, "period %s: %s emails, %s unread, %s read, %s starred\n", p,
		humanize.Comma(int64(s.TotalEmails)),
		humanize.Comma(int64(s.UnreadCount)),
		humanize.Comma(int64(s.ReadCount())),
		humanize.Comma(int64(s.StarredCount)))

	if len(s.StatusStats) > 0 {
		rows := make([][]string, 0, len(s.StatusStats))
		for _, sc := range s.StatusStats {
			rows = append(rows, []string{sc.Status, humanize.Comma(int64(sc.Count))})
		}
		_, _ = fmt.Fprintln(w, table.New().Border(lipgloss.RoundedBorder()).Headers("STATUS", "COUNT").Rows(rows...).String())
	}
	if len(s.TopSenders) > 0 {
		rows := make([][]string, 0, len(s.TopSenders))
		for _, ts := range s.TopSenders {
			rows = append(rows, []string{oneLine(ts.Name, 28), ts.Email, humanize.Comma(int64(ts.Count))})
		}
		_, _ = fmt.Fprintln(w, table.New().Border(lipgloss.RoundedBorder()).Headers("SENDER", "EMAIL", "COUNT").Rows(rows...).String())
	}
	if len(s.EmailTrend) > 0 {
		parts := make([]string, 0, len(s.EmailTrend))
		for _, tp := range s.EmailTrend {
			parts = append(parts, fmt.Sprintf("%s:%d", tp.Date, tp.Count))
		}
		_, _ = fmt.Fprintln(w, "trend", strings.Join(parts, " "))
	}
	if grid, peak := s.Heatmap(); peak > 0 {
		day, hour := 0, 0
		for d := range grid {
			for h := range grid[d] {
				if grid[d][h] > grid[day][hour] {
					day, hour = d, h
				}
			}
		}
		days := [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}
		_, _ = fmt.Fprintf(w, "busiest hour: %s %02d:00 (%d emails)\n", days[day], hour, peak)
	}
}
