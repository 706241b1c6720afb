package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Configuration is one immutable version of the routing thresholds and
// email templates. Exactly one version is active at a time.
type Configuration struct {
	ID         uuid.UUID            `json:"id"`
	Version    int                  `json:"version"`
	Active     bool                 `json:"active"`
	Thresholds domain.Thresholds    `json:"thresholds"`
	Templates  ports.EmailTemplates `json:"templates"`
	CreatedBy  string               `json:"createdBy"`
	CreatedAt  time.Time            `json:"createdAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetActive(ctx context.Context) (Configuration, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, version, active, thresholds, templates, created_by, created_at
		FROM configurations
		WHERE active
	`)
	cfg, err := scanConfiguration(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Configuration{}, apperr.NotFound("no active configuration")
	}
	return cfg, err
}

func (r *Repository) List(ctx context.Context) ([]Configuration, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, version, active, thresholds, templates, created_by, created_at
		FROM configurations
		ORDER BY version DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]Configuration, 0)
	for rows.Next() {
		cfg, err := scanConfiguration(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, cfg)
	}
	return items, rows.Err()
}

// CreateVersion inserts the next configuration version and makes it the
// active one in a single transaction. The partial unique index on active
// makes a racing second writer fail instead of leaving two active rows.
func (r *Repository) CreateVersion(ctx context.Context, thresholds domain.Thresholds, templates ports.EmailTemplates, createdBy string) (Configuration, error) {
	thresholdsJSON, err := json.Marshal(thresholds)
	if err != nil {
		return Configuration{}, fmt.Errorf("marshal thresholds: %w", err)
	}
	templatesJSON, err := json.Marshal(templates)
	if err != nil {
		return Configuration{}, fmt.Errorf("marshal templates: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return Configuration{}, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE configurations SET active = false WHERE active`); err != nil {
		return Configuration{}, err
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO configurations (id, version, active, thresholds, templates, created_by)
		VALUES ($1, (SELECT COALESCE(MAX(version), 0) + 1 FROM configurations), true, $2, $3, $4)
		RETURNING id, version, active, thresholds, templates, created_by, created_at
	`, uuid.New(), thresholdsJSON, templatesJSON, createdBy)

	cfg, err := scanConfiguration(row)
	if err != nil {
		return Configuration{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Configuration{}, err
	}
	return cfg, nil
}

// SeedIfEmpty installs version 1 when no configuration exists yet.
func (r *Repository) SeedIfEmpty(ctx context.Context, thresholds domain.Thresholds, templates ports.EmailTemplates) error {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM configurations`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := r.CreateVersion(ctx, thresholds, templates, "system")
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfiguration(row rowScanner) (Configuration, error) {
	var (
		cfg            Configuration
		thresholdsJSON []byte
		templatesJSON  []byte
	)
	err := row.Scan(&cfg.ID, &cfg.Version, &cfg.Active, &thresholdsJSON, &templatesJSON, &cfg.CreatedBy, &cfg.CreatedAt)
	if err != nil {
		return Configuration{}, err
	}
	if err := json.Unmarshal(thresholdsJSON, &cfg.Thresholds); err != nil {
		return Configuration{}, fmt.Errorf("unmarshal thresholds: %w", err)
	}
	if err := json.Unmarshal(templatesJSON, &cfg.Templates); err != nil {
		return Configuration{}, fmt.Errorf("unmarshal templates: %w", err)
	}
	return cfg, nil
}
