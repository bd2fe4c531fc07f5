package app

import (
	"context"
	"fmt"

	"github.com/evanschultz/mailkan/internal/domain"
)

// Statistics loads the dashboard for period.
func (s *Service) Statistics(ctx context.Context, period domain.Period) (domain.Statistics, error) {
	if period == "" {
		period = domain.DefaultPeriod
	}
	stats, err := s.backend.Statistics(ctx, period)
	if err != nil {
		return domain.Statistics{}, fmt.Errorf("statistics %s: %w", period, err)
	}
	if stats.Period == "" {
		stats.Period = period
	}
	return stats, nil
}
