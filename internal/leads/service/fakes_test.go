package service

import (
	"context"
	"time"

	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/platform/apperr"

	"github.com/google/uuid"
)

// fakeRepo is an in-memory LeadsRepository that enforces the same
// conditional-write semantics as the database implementation.
type fakeRepo struct {
	leads  map[uuid.UUID]*domain.Lead
	claims map[uuid.UUID]bool
	notes  map[uuid.UUID][]string
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		leads:  make(map[uuid.UUID]*domain.Lead),
		claims: make(map[uuid.UUID]bool),
		notes:  make(map[uuid.UUID][]string),
	}
}

var _ repository.LeadsRepository = (*fakeRepo)(nil)

func (f *fakeRepo) Create(_ context.Context, lead *domain.Lead) error {
	clone := *lead
	f.leads[lead.ID] = &clone
	return nil
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Lead, error) {
	lead, ok := f.leads[id]
	if !ok {
		return nil, apperr.NotFound("lead not found")
	}
	clone := *lead
	clone.Classifications = append(domain.History{}, lead.Classifications...)
	return &clone, nil
}

func (f *fakeRepo) List(_ context.Context, params repository.ListParams) (repository.ListResult, error) {
	items := make([]domain.Lead, 0, len(f.leads))
	for _, lead := range f.leads {
		if params.Phase != nil && lead.Status.Phase != *params.Phase {
			continue
		}
		items = append(items, *lead)
	}
	return repository.ListResult{Items: items, Total: len(items), Page: 1, PageSize: 20, TotalPages: 1}, nil
}

func (f *fakeRepo) AppendClassification(_ context.Context, leadID uuid.UUID, expectedLen int, entry domain.ClassificationEntry, phase domain.Phase) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if len(lead.Classifications) != expectedLen {
		return apperr.Conflict("lead was modified concurrently")
	}
	lead.Classifications = lead.Classifications.Prepend(entry)
	lead.Status.Phase = phase
	return nil
}

func (f *fakeRepo) SetBotResearch(_ context.Context, leadID uuid.UUID, research domain.BotResearch) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.BotResearch = &research
	return nil
}

func (f *fakeRepo) PutDraft(_ context.Context, leadID uuid.UUID, draft domain.Draft) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.Draft = &draft
	return nil
}

func (f *fakeRepo) UpdateDraftBody(_ context.Context, leadID uuid.UUID, body string, editedAt time.Time) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.Draft == nil {
		return apperr.Validation("lead has no draft to edit")
	}
	lead.Draft.Body = body
	lead.Draft.EditedAt = &editedAt
	return nil
}

func (f *fakeRepo) ClaimDelivery(_ context.Context, leadID uuid.UUID) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.Status.Phase == domain.PhaseDone {
		return apperr.Validation("lead is already closed")
	}
	if f.claims[leadID] {
		return apperr.Conflict("a delivery for this lead is already in progress")
	}
	f.claims[leadID] = true
	return nil
}

func (f *fakeRepo) ReleaseDelivery(_ context.Context, leadID uuid.UUID, errMsg string) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	f.claims[leadID] = false
	lead.LastError = &errMsg
	return nil
}

func (f *fakeRepo) CompleteDelivery(_ context.Context, leadID uuid.UUID, sentBy string, at time.Time) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.Status.Phase == domain.PhaseDone || !f.claims[leadID] {
		return apperr.Conflict("delivery completion lost its claim")
	}
	lead.Status.Phase = domain.PhaseDone
	lead.Status.SentAt = &at
	lead.Status.SentBy = &sentBy
	lead.LastError = nil
	f.claims[leadID] = false
	return nil
}

func (f *fakeRepo) MarkDone(_ context.Context, leadID uuid.UUID) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.Status.Phase == domain.PhaseDone {
		return apperr.Validation("lead is already closed")
	}
	lead.Status.Phase = domain.PhaseDone
	return nil
}

func (f *fakeRepo) ApplyReroute(_ context.Context, leadID uuid.UUID, record domain.RerouteRecord, phase domain.Phase) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	if lead.Status.Phase != domain.PhaseDone || lead.Reroute != nil {
		return apperr.Conflict("lead is no longer in a reroutable state")
	}
	lead.Status.Phase = phase
	lead.Status.SentAt = nil
	lead.Status.SentBy = nil
	lead.Reroute = &record
	return nil
}

func (f *fakeRepo) MarkMeetingBooked(_ context.Context, leadID uuid.UUID, at time.Time) (bool, error) {
	lead, ok := f.leads[leadID]
	if !ok {
		return false, apperr.NotFound("lead not found")
	}
	if lead.MeetingBookedAt != nil {
		return false, nil
	}
	if lead.Status.Phase != domain.PhaseDone || lead.Status.SentAt == nil {
		return false, apperr.Validation("meeting can only be booked on a lead with a delivered meeting offer")
	}
	lead.MeetingBookedAt = &at
	return true, nil
}

func (f *fakeRepo) SetSupportFeedback(_ context.Context, leadID uuid.UUID, feedback domain.SupportFeedback) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.SupportFeedback = &feedback
	return nil
}

func (f *fakeRepo) ReplaceCaseStudies(_ context.Context, leadID uuid.UUID, refs []domain.CaseStudyRef) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.MatchedCaseStudies = refs
	return nil
}

func (f *fakeRepo) AddNote(_ context.Context, leadID uuid.UUID, author, body string) error {
	f.notes[leadID] = append(f.notes[leadID], author+": "+body)
	return nil
}

func (f *fakeRepo) SetLastError(_ context.Context, leadID uuid.UUID, msg string) error {
	lead, ok := f.leads[leadID]
	if !ok {
		return apperr.NotFound("lead not found")
	}
	lead.LastError = &msg
	return nil
}

type fakeClassifier struct {
	result ports.ClassificationResult
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(context.Context, domain.Submission) (ports.ClassificationResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeGenerator struct {
	body  string
	err   error
	calls int
}

func (f *fakeGenerator) GenerateBody(context.Context, domain.Submission, []domain.CaseStudyRef) (string, error) {
	f.calls++
	return f.body, f.err
}

type fakeMatcher struct {
	refs []domain.CaseStudyRef
	err  error
}

func (f *fakeMatcher) Match(context.Context, string, int) ([]domain.CaseStudyRef, error) {
	return f.refs, f.err
}

type fakeDispatcher struct {
	dispatched []uuid.UUID
	err        error
}

func (f *fakeDispatcher) DispatchClassification(_ context.Context, leadID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.dispatched = append(f.dispatched, leadID)
	return nil
}

type fakeSender struct {
	enabled bool
	sent    []ports.OutboundMessage
	err     error
}

func (f *fakeSender) Enabled() bool { return f.enabled }

func (f *fakeSender) Send(_ context.Context, msg ports.OutboundMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeComposer struct{}

func (fakeComposer) MeetingOffer(lead *domain.Lead, tmpl ports.EmailTemplates) (ports.OutboundMessage, error) {
	body := ""
	if lead.Draft != nil {
		body = lead.Draft.Body
	}
	return ports.OutboundMessage{To: lead.Submission.Email, Subject: tmpl.SubjectMeetingOffer, HTML: body}, nil
}

func (fakeComposer) Generic(lead *domain.Lead, tmpl ports.EmailTemplates) (ports.OutboundMessage, error) {
	return ports.OutboundMessage{To: lead.Submission.Email, Subject: tmpl.SubjectGeneric, HTML: tmpl.GenericBody}, nil
}

func (fakeComposer) SupportForward(lead *domain.Lead) (ports.OutboundMessage, error) {
	return ports.OutboundMessage{To: "support@example.com", Subject: "forwarded inquiry", HTML: lead.Submission.Message}, nil
}

func (fakeComposer) AccountTeamForward(lead *domain.Lead) (ports.OutboundMessage, error) {
	return ports.OutboundMessage{To: "accounts@example.com", Subject: "forwarded inquiry", HTML: lead.Submission.Message}, nil
}

type fakeConfig struct {
	cfg ports.ActiveConfiguration
	err error
}

func (f *fakeConfig) GetActive(context.Context) (ports.ActiveConfiguration, error) {
	return f.cfg, f.err
}

type fakeSink struct {
	events []ports.AnalyticsEvent
}

func (f *fakeSink) Append(_ context.Context, event ports.AnalyticsEvent) {
	f.events = append(f.events, event)
}

func (f *fakeSink) ofType(eventType string) []ports.AnalyticsEvent {
	var out []ports.AnalyticsEvent
	for _, e := range f.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
