package agent

import (
	"context"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/apperr"
)

// Disabled stands in for the classifier and generator when no API key is
// configured. Every call fails upstream, which leaves leads in the
// classify phase with a stored error until a reviewer handles them.
type Disabled struct{}

var (
	_ ports.Classifier    = Disabled{}
	_ ports.BodyGenerator = Disabled{}
)

func (Disabled) Classify(ctx context.Context, submission domain.Submission) (ports.ClassificationResult, error) {
	return ports.ClassificationResult{}, apperr.Upstream("AI classification is not configured", nil)
}

func (Disabled) GenerateBody(ctx context.Context, submission domain.Submission, caseStudies []domain.CaseStudyRef) (string, error) {
	return "", apperr.Upstream("AI draft generation is not configured", nil)
}
