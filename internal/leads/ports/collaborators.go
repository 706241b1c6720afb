// Package ports defines the narrow interfaces the lead lifecycle consumes
// from its collaborators. Implementations live in their own modules; the
// lifecycle service only sees these contracts.
package ports

import (
	"context"

	"leadintake_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ClassificationResult is what the automated classifier returns for a
// submission. A failed classification surfaces as an error, never as a
// default-valued result.
type ClassificationResult struct {
	Classification   domain.Classification
	Confidence       float64
	Reasoning        string
	ExistingCustomer bool
	CRMRef           *string
}

// Classifier is the asynchronous AI classification service.
type Classifier interface {
	Classify(ctx context.Context, submission domain.Submission) (ClassificationResult, error)
}

// BodyGenerator produces a personalized draft email body. Output is
// freeform and not deterministic; callers only rely on success/failure.
type BodyGenerator interface {
	GenerateBody(ctx context.Context, submission domain.Submission, caseStudies []domain.CaseStudyRef) (string, error)
}

// CaseStudyMatcher finds auxiliary content relevant to an inquiry.
type CaseStudyMatcher interface {
	Match(ctx context.Context, message string, limit int) ([]domain.CaseStudyRef, error)
}

// ClassifyDispatcher enqueues an asynchronous classification job for a
// newly submitted or reopened lead.
type ClassifyDispatcher interface {
	DispatchClassification(ctx context.Context, leadID uuid.UUID) error
}

// Attachment is a file attached to an outbound email.
type Attachment struct {
	FileName string
	Content  []byte
}

// OutboundMessage is a fully assembled email ready for delivery.
type OutboundMessage struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// EmailSender is the delivery service. Send returns an error on anything
// short of confirmed delivery; Enabled reports whether delivery is
// globally enabled; when it is not, terminal transitions proceed without
// sending.
type EmailSender interface {
	Enabled() bool
	Send(ctx context.Context, msg OutboundMessage) error
}

// EmailTemplates are the active configuration's outbound email parts. The
// editable draft holds only the body; greeting, call-to-action, and
// signature are applied at send time.
type EmailTemplates struct {
	SubjectMeetingOffer string `json:"subjectMeetingOffer" yaml:"subject_meeting_offer"`
	SubjectGeneric      string `json:"subjectGeneric" yaml:"subject_generic"`
	Greeting            string `json:"greeting" yaml:"greeting"`
	GenericBody         string `json:"genericBody" yaml:"generic_body"`
	CallToAction        string `json:"callToAction" yaml:"call_to_action"`
	Signature           string `json:"signature" yaml:"signature"`
}

// ActiveConfiguration is the subset of the versioned configuration the
// lifecycle needs: routing thresholds and email templates.
type ActiveConfiguration struct {
	Version    int
	Thresholds domain.Thresholds
	Templates  EmailTemplates
}

// ConfigProvider exposes the single active configuration.
type ConfigProvider interface {
	GetActive(ctx context.Context) (ActiveConfiguration, error)
}

// AnalyticsEvent is one append-only analytics log entry.
type AnalyticsEvent struct {
	LeadID  uuid.UUID
	Type    string
	Payload map[string]any
}

// AnalyticsSink records analytics events. Appends are fire-and-forget
// from the controller's perspective; failures must never affect the
// lifecycle operation that produced the event.
type AnalyticsSink interface {
	Append(ctx context.Context, event AnalyticsEvent)
}
