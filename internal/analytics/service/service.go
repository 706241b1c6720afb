// Package service records lifecycle analytics events and builds the
// human versus AI agreement report from them.
package service

import (
	"context"
	"time"

	"leadintake_backend/internal/analytics/report"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/logger"
)

// EventsRepository is the persistence surface the service needs.
type EventsRepository interface {
	Append(ctx context.Context, event ports.AnalyticsEvent) error
	ListComparisons(ctx context.Context, since time.Time) ([]report.Comparison, error)
	CountByType(ctx context.Context, since time.Time) (map[string]int, error)
}

type Service struct {
	repo EventsRepository
	log  *logger.Logger
}

var _ ports.AnalyticsSink = (*Service)(nil)

func New(repo EventsRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Append records an analytics event. Failures are logged and swallowed;
// analytics must never break the lifecycle operation that produced the
// event.
func (s *Service) Append(ctx context.Context, event ports.AnalyticsEvent) {
	if err := s.repo.Append(ctx, event); err != nil {
		s.log.Error("failed to record analytics event",
			"eventType", event.Type,
			"leadId", event.LeadID,
			"error", err,
		)
	}
}

// AgreementReport builds the agreement report over comparisons recorded
// since the given time. A zero time covers all history.
func (s *Service) AgreementReport(ctx context.Context, since time.Time) (report.Report, error) {
	comparisons, err := s.repo.ListComparisons(ctx, since)
	if err != nil {
		return report.Report{}, err
	}
	return report.Build(comparisons), nil
}

// EventCounts returns per-type event volumes since the given time.
func (s *Service) EventCounts(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.repo.CountByType(ctx, since)
}
