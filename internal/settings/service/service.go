// Package service manages the versioned routing configuration: confidence
// thresholds per classification and the outbound email templates.
package service

import (
	"context"
	_ "embed"
	"fmt"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/settings/repository"
	"leadintake_backend/platform/apperr"
	"leadintake_backend/platform/logger"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultsFile struct {
	Thresholds domain.Thresholds    `yaml:"thresholds"`
	Templates  ports.EmailTemplates `yaml:"templates"`
}

// ConfigurationsRepository is the persistence surface the service needs.
type ConfigurationsRepository interface {
	GetActive(ctx context.Context) (repository.Configuration, error)
	List(ctx context.Context) ([]repository.Configuration, error)
	CreateVersion(ctx context.Context, thresholds domain.Thresholds, templates ports.EmailTemplates, createdBy string) (repository.Configuration, error)
	SeedIfEmpty(ctx context.Context, thresholds domain.Thresholds, templates ports.EmailTemplates) error
}

type Service struct {
	repo ConfigurationsRepository
	log  *logger.Logger
}

var _ ports.ConfigProvider = (*Service)(nil)

func New(repo ConfigurationsRepository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// Seed installs the built-in defaults as version 1 when the database has
// no configuration yet. Called once at startup.
func (s *Service) Seed(ctx context.Context) error {
	defaults, err := parseDefaults()
	if err != nil {
		return err
	}
	if err := s.repo.SeedIfEmpty(ctx, defaults.Thresholds, defaults.Templates); err != nil {
		return fmt.Errorf("seed configuration: %w", err)
	}
	return nil
}

// GetActive returns the currently active configuration.
func (s *Service) GetActive(ctx context.Context) (ports.ActiveConfiguration, error) {
	cfg, err := s.repo.GetActive(ctx)
	if err != nil {
		return ports.ActiveConfiguration{}, err
	}
	return ports.ActiveConfiguration{
		Version:    cfg.Version,
		Thresholds: cfg.Thresholds,
		Templates:  cfg.Templates,
	}, nil
}

// ActiveConfiguration returns the full active version record.
func (s *Service) ActiveConfiguration(ctx context.Context) (repository.Configuration, error) {
	return s.repo.GetActive(ctx)
}

// ListVersions returns all versions, newest first.
func (s *Service) ListVersions(ctx context.Context) ([]repository.Configuration, error) {
	return s.repo.List(ctx)
}

// UpdateConfiguration validates and installs a new active version.
func (s *Service) UpdateConfiguration(ctx context.Context, thresholds domain.Thresholds, templates ports.EmailTemplates, updatedBy string) (repository.Configuration, error) {
	if err := validateThresholds(thresholds); err != nil {
		return repository.Configuration{}, err
	}
	if err := validateTemplates(templates); err != nil {
		return repository.Configuration{}, err
	}

	cfg, err := s.repo.CreateVersion(ctx, thresholds, templates, updatedBy)
	if err != nil {
		return repository.Configuration{}, err
	}

	s.log.Info("configuration version activated",
		"version", cfg.Version,
		"updatedBy", updatedBy,
	)
	return cfg, nil
}

func parseDefaults() (defaultsFile, error) {
	var defaults defaultsFile
	if err := yaml.Unmarshal(defaultsYAML, &defaults); err != nil {
		return defaultsFile{}, fmt.Errorf("parse default configuration: %w", err)
	}
	return defaults, nil
}

func validateThresholds(t domain.Thresholds) error {
	for _, entry := range []struct {
		name  string
		value float64
	}{
		{"high_quality", t.HighQuality},
		{"low_quality", t.LowQuality},
		{"support", t.Support},
		{"existing", t.Existing},
		{"irrelevant", t.Irrelevant},
	} {
		if entry.value < 0 || entry.value > 1 {
			return apperr.Validation(fmt.Sprintf("threshold %s must be between 0 and 1", entry.name))
		}
	}
	return nil
}

func validateTemplates(t ports.EmailTemplates) error {
	for _, entry := range []struct {
		name  string
		value string
	}{
		{"subject_meeting_offer", t.SubjectMeetingOffer},
		{"subject_generic", t.SubjectGeneric},
		{"greeting", t.Greeting},
		{"generic_body", t.GenericBody},
		{"call_to_action", t.CallToAction},
		{"signature", t.Signature},
	} {
		if entry.value == "" {
			return apperr.Validation(fmt.Sprintf("template %s must not be empty", entry.name))
		}
	}
	return nil
}
