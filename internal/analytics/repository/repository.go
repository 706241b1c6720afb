package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"leadintake_backend/internal/analytics/report"
	"leadintake_backend/internal/leads/ports"

	"github.com/jackc/pgx/v5/pgxpool"
)

const comparisonEventType = "human_ai_comparison"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Append inserts one analytics event. The log is append-only; nothing
// ever updates or deletes rows.
func (r *Repository) Append(ctx context.Context, event ports.AnalyticsEvent) error {
	if event.Payload == nil {
		event.Payload = map[string]any{}
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal analytics payload: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO analytics_events (lead_id, event_type, payload)
		VALUES ($1, $2, $3)
	`, event.LeadID, event.Type, payload)
	return err
}

// ListComparisons loads the human/AI comparison events recorded since the
// given time. A zero time loads everything.
func (r *Repository) ListComparisons(ctx context.Context, since time.Time) ([]report.Comparison, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT payload, recorded_at
		FROM analytics_events
		WHERE event_type = $1 AND recorded_at >= $2
		ORDER BY recorded_at ASC
	`, comparisonEventType, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comparisons := make([]report.Comparison, 0)
	for rows.Next() {
		var (
			payload    []byte
			recordedAt time.Time
		)
		if err := rows.Scan(&payload, &recordedAt); err != nil {
			return nil, err
		}
		var c report.Comparison
		if err := json.Unmarshal(payload, &c); err != nil {
			// Skip malformed historical rows rather than failing the
			// whole report.
			continue
		}
		c.RecordedAt = recordedAt
		comparisons = append(comparisons, c)
	}
	return comparisons, rows.Err()
}

// CountByType returns event counts per type since the given time.
func (r *Repository) CountByType(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT event_type, count(*)
		FROM analytics_events
		WHERE recorded_at >= $1
		GROUP BY event_type
	`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			eventType string
			count     int
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, err
		}
		counts[eventType] = count
	}
	return counts, rows.Err()
}
