package repository

import (
	"context"
	"errors"
	"time"

	"leadintake_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CaseStudy is a published reference project used to enrich outreach to
// promising leads.
type CaseStudy struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Summary   string    `json:"summary"`
	Industry  string    `json:"industry,omitempty"`
	AssetKey  *string   `json:"assetKey,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const columns = `id, title, summary, industry, asset_key, created_at, updated_at`

func (r *Repository) Create(ctx context.Context, cs *CaseStudy) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO case_studies (id, title, summary, industry)
		VALUES ($1, $2, $3, $4)
	`, cs.ID, cs.Title, cs.Summary, cs.Industry)
	return err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*CaseStudy, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+columns+` FROM case_studies WHERE id = $1`, id)
	cs, err := scanCaseStudy(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("case study not found")
	}
	if err != nil {
		return nil, err
	}
	return cs, nil
}

func (r *Repository) List(ctx context.Context) ([]CaseStudy, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+columns+` FROM case_studies ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]CaseStudy, 0)
	for rows.Next() {
		cs, err := scanCaseStudy(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *cs)
	}
	return items, rows.Err()
}

func (r *Repository) Update(ctx context.Context, cs *CaseStudy) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE case_studies
		SET title = $2, summary = $3, industry = $4, updated_at = now()
		WHERE id = $1
	`, cs.ID, cs.Title, cs.Summary, cs.Industry)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("case study not found")
	}
	return nil
}

func (r *Repository) SetAssetKey(ctx context.Context, id uuid.UUID, assetKey string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE case_studies SET asset_key = $2, updated_at = now() WHERE id = $1
	`, id, assetKey)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("case study not found")
	}
	return nil
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM case_studies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("case study not found")
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCaseStudy(row rowScanner) (*CaseStudy, error) {
	var cs CaseStudy
	err := row.Scan(&cs.ID, &cs.Title, &cs.Summary, &cs.Industry, &cs.AssetKey, &cs.CreatedAt, &cs.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &cs, nil
}
