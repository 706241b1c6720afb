// Package service manages the case study library and matches case
// studies to incoming leads by vector similarity.
package service

import (
	"context"
	"fmt"
	"io"

	"leadintake_backend/internal/casestudies/repository"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/qdrant"
	"leadintake_backend/platform/storage"

	"github.com/google/uuid"
)

// CaseStudiesRepository is the persistence surface the service needs.
type CaseStudiesRepository interface {
	Create(ctx context.Context, cs *repository.CaseStudy) error
	GetByID(ctx context.Context, id uuid.UUID) (*repository.CaseStudy, error)
	List(ctx context.Context) ([]repository.CaseStudy, error)
	Update(ctx context.Context, cs *repository.CaseStudy) error
	SetAssetKey(ctx context.Context, id uuid.UUID, assetKey string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the similarity index holding one point per case study.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int) ([]qdrant.SearchResult, error)
	Upsert(ctx context.Context, points []qdrant.Point) error
	Delete(ctx context.Context, ids []string) error
}

type Options struct {
	Repo     CaseStudiesRepository
	Embedder Embedder // nil when the embedding API is not configured
	Index    VectorIndex
	Storage  storage.Service // nil when MinIO is not configured
	Bucket   string
	Logger   *logger.Logger
}

type Service struct {
	repo     CaseStudiesRepository
	embedder Embedder
	index    VectorIndex
	storage  storage.Service
	bucket   string
	log      *logger.Logger
}

var _ ports.CaseStudyMatcher = (*Service)(nil)

func New(opts Options) *Service {
	return &Service{
		repo:     opts.Repo,
		embedder: opts.Embedder,
		index:    opts.Index,
		storage:  opts.Storage,
		bucket:   opts.Bucket,
		log:      opts.Logger,
	}
}

func (s *Service) matchingEnabled() bool {
	return s.embedder != nil && s.index != nil
}

// Match finds the case studies most similar to an inquiry message. When
// vector matching is not configured it returns an empty result so lead
// processing continues without attachments.
func (s *Service) Match(ctx context.Context, message string, limit int) ([]domain.CaseStudyRef, error) {
	if !s.matchingEnabled() {
		return nil, nil
	}

	vector, err := s.embedder.Embed(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("embed inquiry: %w", err)
	}

	results, err := s.index.Search(ctx, vector, limit)
	if err != nil {
		return nil, fmt.Errorf("search case studies: %w", err)
	}

	refs := make([]domain.CaseStudyRef, 0, len(results))
	for i, result := range results {
		id, err := uuid.Parse(fmt.Sprint(result.ID))
		if err != nil {
			s.log.Warn("skipping vector point with malformed case study id", "pointId", result.ID)
			continue
		}
		title, _ := result.Payload["title"].(string)
		refs = append(refs, domain.CaseStudyRef{
			CaseStudyID: id,
			Title:       title,
			SortOrder:   i,
		})
	}
	return refs, nil
}

// Create stores a case study and indexes it for matching.
func (s *Service) Create(ctx context.Context, title, summary, industry string) (*repository.CaseStudy, error) {
	cs := &repository.CaseStudy{
		ID:       uuid.New(),
		Title:    title,
		Summary:  summary,
		Industry: industry,
	}
	if err := s.repo.Create(ctx, cs); err != nil {
		return nil, err
	}
	s.indexCaseStudy(ctx, cs)
	return s.repo.GetByID(ctx, cs.ID)
}

// Update rewrites a case study and refreshes its index point.
func (s *Service) Update(ctx context.Context, id uuid.UUID, title, summary, industry string) (*repository.CaseStudy, error) {
	cs := &repository.CaseStudy{ID: id, Title: title, Summary: summary, Industry: industry}
	if err := s.repo.Update(ctx, cs); err != nil {
		return nil, err
	}
	s.indexCaseStudy(ctx, cs)
	return s.repo.GetByID(ctx, id)
}

// Delete removes a case study and its index point.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.Delete(ctx, []string{id.String()}); err != nil {
			s.log.Warn("failed to remove case study from vector index", "caseStudyId", id, "error", err)
		}
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*repository.CaseStudy, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]repository.CaseStudy, error) {
	return s.repo.List(ctx)
}

// UploadAsset stores a downloadable asset (a PDF one-pager, usually) and
// records its key on the case study.
func (s *Service) UploadAsset(ctx context.Context, id uuid.UUID, fileName, contentType string, reader io.Reader, size int64) (*repository.CaseStudy, error) {
	if s.storage == nil {
		return nil, fmt.Errorf("asset storage is not configured")
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	fileKey, err := s.storage.UploadFile(ctx, s.bucket, id.String(), fileName, contentType, reader, size)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetAssetKey(ctx, id, fileKey); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// AssetURL returns a short-lived download URL for a case study's asset.
func (s *Service) AssetURL(ctx context.Context, id uuid.UUID) (string, error) {
	if s.storage == nil {
		return "", fmt.Errorf("asset storage is not configured")
	}
	cs, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if cs.AssetKey == nil {
		return "", fmt.Errorf("case study has no asset")
	}
	return s.storage.PresignedGetURL(ctx, s.bucket, *cs.AssetKey)
}

// indexCaseStudy upserts the vector point for a case study. Index
// failures are logged, not returned; the record of truth is Postgres and
// a missed upsert only degrades matching.
func (s *Service) indexCaseStudy(ctx context.Context, cs *repository.CaseStudy) {
	if !s.matchingEnabled() {
		return
	}

	vector, err := s.embedder.Embed(ctx, cs.Title+"\n\n"+cs.Summary)
	if err != nil {
		s.log.Warn("failed to embed case study", "caseStudyId", cs.ID, "error", err)
		return
	}
	err = s.index.Upsert(ctx, []qdrant.Point{{
		ID:     cs.ID.String(),
		Vector: vector,
		Payload: map[string]any{
			"title":    cs.Title,
			"industry": cs.Industry,
		},
	}})
	if err != nil {
		s.log.Warn("failed to index case study", "caseStudyId", cs.ID, "error", err)
	}
}
