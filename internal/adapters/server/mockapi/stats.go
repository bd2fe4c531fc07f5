package mockapi

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var periodDays = map[string]int{"7d": 7, "30d": 30, "90d": 90}

type statusStat struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type trendPoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type topSender struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Count int    `json:"count"`
}

type activityCell struct {
	DayOfWeek int `json:"dayOfWeek"`
	Hour      int `json:"hour"`
	Count     int `json:"count"`
}

func (s *Server) statistics(c *gin.Context) {
	period := c.DefaultQuery("period", "30d")
	days, ok := periodDays[period]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "period must be one of 7d, 30d, 90d"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.opts.Now().UTC()
	s.wakeLocked(now)
	firstDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(days - 1))

	trend := make([]trendPoint, days)
	for i := range trend {
		trend[i].Date = firstDay.AddDate(0, 0, i).Format("2006-01-02")
	}
	statusCounts := map[string]int{}
	senders := map[string]*topSender{}
	cells := map[[2]int]int{}
	total, unread, starred := 0, 0, 0

	for _, m := range s.messages {
		if m.Trashed || m.MailboxID == "sent" || m.MailboxID == "drafts" {
			continue
		}
		at := m.ReceivedAt.UTC()
		if at.Before(firstDay) || at.After(now) {
			continue
		}
		total++
		if !m.IsRead {
			unread++
		}
		if m.IsStarred {
			starred++
		}
		if m.Status != "" {
			statusCounts[m.Status]++
		}
		if idx := int(at.Sub(firstDay).Hours() / 24); idx >= 0 && idx < days {
			trend[idx].Count++
		}
		key := strings.ToLower(m.From.Email)
		if senders[key] == nil {
			senders[key] = &topSender{Name: m.From.Name, Email: m.From.Email}
		}
		senders[key].Count++
		cells[[2]int{int(at.Weekday()), at.Hour()}]++
	}

	stats := []statusStat{}
	for _, col := range s.sortedColumnsLocked() {
		if n := statusCounts[col.Key]; n > 0 {
			stats = append(stats, statusStat{Status: col.Key, Count: n})
		}
	}

	top := make([]topSender, 0, len(senders))
	for _, ts := range senders {
		top = append(top, *ts)
	}
	slices.SortFunc(top, func(a, b topSender) int {
		if a.Count != b.Count {
			return b.Count - a.Count
		}
		return strings.Compare(a.Email, b.Email)
	})
	if len(top) > 5 {
		top = top[:5]
	}

	activity := make([]activityCell, 0, len(cells))
	for k, n := range cells {
		activity = append(activity, activityCell{DayOfWeek: k[0], Hour: k[1], Count: n})
	}
	slices.SortFunc(activity, func(a, b activityCell) int {
		if a.DayOfWeek != b.DayOfWeek {
			return a.DayOfWeek - b.DayOfWeek
		}
		return a.Hour - b.Hour
	})

	c.JSON(http.StatusOK, gin.H{
		"statusStats":   stats,
		"emailTrend":    trend,
		"topSenders":    top,
		"dailyActivity": activity,
		"totalEmails":   total,
		"unreadCount":   unread,
		"starredCount":  starred,
		"period":        period,
	})
}
