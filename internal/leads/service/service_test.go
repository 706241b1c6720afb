package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadintake_backend/internal/events"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/platform/apperr"
	"leadintake_backend/platform/logger"

	"github.com/google/uuid"
)

type testEnv struct {
	repo       *fakeRepo
	classifier *fakeClassifier
	generator  *fakeGenerator
	matcher    *fakeMatcher
	dispatcher *fakeDispatcher
	sender     *fakeSender
	config     *fakeConfig
	sink       *fakeSink
	svc        *Service
}

func newTestEnv() *testEnv {
	env := &testEnv{
		repo:       newFakeRepo(),
		classifier: &fakeClassifier{},
		generator:  &fakeGenerator{body: "Hello, thanks for reaching out."},
		matcher:    &fakeMatcher{},
		dispatcher: &fakeDispatcher{},
		sender:     &fakeSender{enabled: true},
		config: &fakeConfig{cfg: ports.ActiveConfiguration{
			Version: 1,
			Thresholds: domain.Thresholds{
				HighQuality: 0.8,
				LowQuality:  0.9,
				Support:     0.85,
				Existing:    0.85,
				Irrelevant:  0.95,
			},
			Templates: ports.EmailTemplates{
				SubjectMeetingOffer: "Let's talk",
				SubjectGeneric:      "Thanks for your inquiry",
				GenericBody:         "We will keep your details on file.",
			},
		}},
		sink: &fakeSink{},
	}
	env.svc = New(Options{
		Repo:       env.repo,
		Classifier: env.classifier,
		Generator:  env.generator,
		Matcher:    env.matcher,
		Dispatcher: env.dispatcher,
		Sender:     env.sender,
		Composer:   fakeComposer{},
		Config:     env.config,
		Analytics:  env.sink,
		Bus:        events.NewInMemoryBus(logger.New("development")),
		Logger:     logger.New("development"),
	})
	return env
}

func (e *testEnv) seedLead(phase domain.Phase, history domain.History) *domain.Lead {
	lead := &domain.Lead{
		ID: uuid.New(),
		Submission: domain.Submission{
			Name:    "Dana",
			Email:   "dana@example.com",
			Company: "Example BV",
			Message: "We need help migrating our data pipeline.",
		},
		Status: domain.Status{
			Phase:      phase,
			ReceivedAt: time.Now().UTC().Add(-time.Hour),
		},
		Classifications: history,
	}
	if phase == domain.PhaseDone {
		at := time.Now().UTC().Add(-30 * time.Minute)
		by := "reviewer@example.com"
		lead.Status.SentAt = &at
		lead.Status.SentBy = &by
	}
	e.repo.leads[lead.ID] = lead
	return lead
}

func botEntry(c domain.Classification) domain.ClassificationEntry {
	return domain.ClassificationEntry{Author: domain.AuthorBot, Classification: c, Timestamp: time.Now().UTC()}
}

func humanEntry(c domain.Classification) domain.ClassificationEntry {
	return domain.ClassificationEntry{Author: domain.AuthorHuman, Classification: c, Timestamp: time.Now().UTC()}
}

func TestSubmit(t *testing.T) {
	env := newTestEnv()

	lead, err := env.svc.Submit(context.Background(), SubmitInput{
		Name:    "Dana",
		Email:   "dana@example.com",
		Message: "We need <b>help</b> with our pipeline.",
		Source:  "web_form",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if lead.Status.Phase != domain.PhaseClassify {
		t.Errorf("phase = %q, want %q", lead.Status.Phase, domain.PhaseClassify)
	}
	if lead.Submission.Message != "We need help with our pipeline." {
		t.Errorf("message not sanitized: %q", lead.Submission.Message)
	}
	if len(env.dispatcher.dispatched) != 1 || env.dispatcher.dispatched[0] != lead.ID {
		t.Errorf("expected one classification dispatch for %s, got %v", lead.ID, env.dispatcher.dispatched)
	}
	if lead.Metadata["source"] != "web_form" {
		t.Errorf("source metadata missing: %v", lead.Metadata)
	}
}

func TestSubmitSurvivesDispatchFailure(t *testing.T) {
	env := newTestEnv()
	env.dispatcher.err = errors.New("queue unavailable")

	lead, err := env.svc.Submit(context.Background(), SubmitInput{
		Name: "Dana", Email: "dana@example.com", Message: "hello",
	})
	if err != nil {
		t.Fatalf("Submit must not fail on dispatch error, got %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if stored.LastError == nil {
		t.Error("dispatch failure should be recorded on the lead")
	}
	if stored.Status.Phase != domain.PhaseClassify {
		t.Errorf("phase = %q, want %q", stored.Status.Phase, domain.PhaseClassify)
	}
}

func TestAutoClassifyAutoSendsAboveThreshold(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)
	env.classifier.result = ports.ClassificationResult{
		Classification: domain.ClassificationSupport,
		Confidence:     0.95,
		Reasoning:      "mentions a broken integration",
	}

	if err := env.svc.AutoClassify(context.Background(), lead.ID); err != nil {
		t.Fatalf("AutoClassify: %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if stored.Status.Phase != domain.PhaseDone {
		t.Fatalf("phase = %q, want %q", stored.Status.Phase, domain.PhaseDone)
	}
	if stored.Status.SentBy == nil || *stored.Status.SentBy != actorAuto {
		t.Errorf("sent_by = %v, want %q", stored.Status.SentBy, actorAuto)
	}
	if state, ok := stored.TerminalState(); !ok || state != domain.TerminalForwardedSupport {
		t.Errorf("terminal state = %v/%v, want %q", state, ok, domain.TerminalForwardedSupport)
	}
	if len(env.sender.sent) != 1 || env.sender.sent[0].To != "support@example.com" {
		t.Errorf("expected one forward to support, got %v", env.sender.sent)
	}
	if len(env.sink.ofType("lead_forwarded")) != 1 {
		t.Error("expected a lead_forwarded analytics event")
	}
	if stored.BotResearch == nil || stored.BotResearch.Confidence != 0.95 {
		t.Errorf("bot research not stored: %+v", stored.BotResearch)
	}
}

func TestAutoClassifyBelowThresholdWaitsForReview(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)
	env.classifier.result = ports.ClassificationResult{
		Classification: domain.ClassificationSupport,
		Confidence:     0.5,
	}

	if err := env.svc.AutoClassify(context.Background(), lead.ID); err != nil {
		t.Fatalf("AutoClassify: %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if stored.Status.Phase != domain.PhaseReview {
		t.Errorf("phase = %q, want %q", stored.Status.Phase, domain.PhaseReview)
	}
	if len(env.sender.sent) != 0 {
		t.Errorf("nothing should be sent below threshold, got %v", env.sender.sent)
	}
	current, _ := stored.Classifications.Current()
	if !current.NeedsReview {
		t.Error("entry should be flagged for review")
	}
	if current.AppliedThreshold == nil || *current.AppliedThreshold != 0.85 {
		t.Errorf("applied threshold = %v, want 0.85", current.AppliedThreshold)
	}
}

func TestAutoClassifyHighQualityNeverAutoSends(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)
	env.matcher.refs = []domain.CaseStudyRef{{CaseStudyID: uuid.New(), Title: "Pipeline migration at Acme", SortOrder: 1}}
	env.classifier.result = ports.ClassificationResult{
		Classification: domain.ClassificationHighQuality,
		Confidence:     0.99,
	}

	if err := env.svc.AutoClassify(context.Background(), lead.ID); err != nil {
		t.Fatalf("AutoClassify: %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if stored.Status.Phase != domain.PhaseReview {
		t.Errorf("phase = %q, want %q even at 0.99 confidence", stored.Status.Phase, domain.PhaseReview)
	}
	if len(env.sender.sent) != 0 {
		t.Error("meeting offers must never auto-send")
	}
	if stored.Draft == nil || stored.Draft.Body == "" {
		t.Error("expected a generated draft")
	}
	if len(stored.MatchedCaseStudies) != 1 {
		t.Errorf("expected matched case studies, got %v", stored.MatchedCaseStudies)
	}
	if len(env.sink.ofType("email_generation")) != 1 {
		t.Error("expected an email_generation analytics event")
	}
}

func TestAutoClassifySkipsClosedLead(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{humanEntry(domain.ClassificationSupport)})

	if err := env.svc.AutoClassify(context.Background(), lead.ID); err != nil {
		t.Fatalf("AutoClassify: %v", err)
	}
	if env.classifier.calls != 0 {
		t.Error("classifier must not run for a closed lead")
	}
}

func TestAutoClassifyAfterHumanDecisionIsBlindComparisonOnly(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{humanEntry(domain.ClassificationSupport)})
	env.classifier.result = ports.ClassificationResult{
		Classification: domain.ClassificationSupport,
		Confidence:     0.9,
	}

	if err := env.svc.AutoClassify(context.Background(), lead.ID); err != nil {
		t.Fatalf("AutoClassify: %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if len(stored.Classifications) != 1 {
		t.Errorf("history length = %d, bot result must not override a human decision", len(stored.Classifications))
	}
	if stored.BotResearch == nil {
		t.Error("research should still be recorded")
	}

	comparisons := env.sink.ofType("human_ai_comparison")
	if len(comparisons) != 1 {
		t.Fatalf("expected one comparison event, got %d", len(comparisons))
	}
	if comparisons[0].Payload["mode"] != "blind" {
		t.Errorf("mode = %v, want blind", comparisons[0].Payload["mode"])
	}
	if comparisons[0].Payload["agreement"] != true {
		t.Errorf("agreement = %v, want true", comparisons[0].Payload["agreement"])
	}
}

func TestAutoClassifySendFailureDegradesToReview(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)
	env.sender.err = errors.New("smtp timeout")
	env.classifier.result = ports.ClassificationResult{
		Classification: domain.ClassificationLowQuality,
		Confidence:     0.95,
	}

	if err := env.svc.AutoClassify(context.Background(), lead.ID); err != nil {
		t.Fatalf("a failed auto-send must not fail the classification job, got %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if stored.Status.Phase != domain.PhaseReview {
		t.Errorf("phase = %q, want %q after failed auto-send", stored.Status.Phase, domain.PhaseReview)
	}
	if stored.LastError == nil {
		t.Error("failure should be recorded on the lead")
	}
	if env.repo.claims[lead.ID] {
		t.Error("delivery claim must be released after a failed send")
	}
}

func TestAutoClassifyClassifierFailure(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)
	env.classifier.err = errors.New("model overloaded")

	err := env.svc.AutoClassify(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if env.repo.leads[lead.ID].LastError == nil {
		t.Error("classifier failure should be recorded on the lead")
	}
}

func TestReclassifyOverrideRecordsComparison(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationSupport)})
	env.repo.leads[lead.ID].BotResearch = &domain.BotResearch{Confidence: 0.7}

	updated, err := env.svc.Reclassify(context.Background(), lead.ID, "reviewer@example.com", "low_quality")
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}

	if updated.Status.Phase != domain.PhaseDone {
		t.Errorf("phase = %q, want %q", updated.Status.Phase, domain.PhaseDone)
	}
	if state, _ := updated.TerminalState(); state != domain.TerminalSentGeneric {
		t.Errorf("terminal state = %q, want %q", state, domain.TerminalSentGeneric)
	}
	if len(updated.Classifications) != 2 {
		t.Errorf("history length = %d, want 2", len(updated.Classifications))
	}

	comparisons := env.sink.ofType("human_ai_comparison")
	if len(comparisons) != 1 {
		t.Fatalf("expected one comparison event, got %d", len(comparisons))
	}
	payload := comparisons[0].Payload
	if payload["mode"] != "override" || payload["agreement"] != false {
		t.Errorf("payload = %v, want override disagreement", payload)
	}
	if payload["aiConfidence"] != 0.7 {
		t.Errorf("aiConfidence = %v, want 0.7", payload["aiConfidence"])
	}
}

func TestReclassifyClosedLeadRejected(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{humanEntry(domain.ClassificationSupport)})

	_, err := env.svc.Reclassify(context.Background(), lead.ID, "reviewer@example.com", "existing")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReclassifyUnknownClassification(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationSupport)})

	_, err := env.svc.Reclassify(context.Background(), lead.ID, "reviewer@example.com", "meeting")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReclassifyIrrelevantClosesWithoutSending(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationSupport)})

	updated, err := env.svc.Reclassify(context.Background(), lead.ID, "reviewer@example.com", "irrelevant")
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}

	if updated.Status.Phase != domain.PhaseDone {
		t.Errorf("phase = %q, want %q", updated.Status.Phase, domain.PhaseDone)
	}
	if updated.Status.SentAt != nil {
		t.Error("dead leads must not record a delivery")
	}
	if state, _ := updated.TerminalState(); state != domain.TerminalDead {
		t.Errorf("terminal state = %q, want %q", state, domain.TerminalDead)
	}
	if len(env.sender.sent) != 0 {
		t.Errorf("nothing should be sent for an irrelevant lead, got %v", env.sender.sent)
	}
}

func TestReclassifyHighQualityStaysInReview(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationLowQuality)})

	updated, err := env.svc.Reclassify(context.Background(), lead.ID, "reviewer@example.com", "high_quality")
	if err != nil {
		t.Fatalf("Reclassify: %v", err)
	}

	if updated.Status.Phase != domain.PhaseReview {
		t.Errorf("phase = %q, want %q", updated.Status.Phase, domain.PhaseReview)
	}
	if updated.Draft == nil {
		t.Error("expected a regenerated draft for the meeting offer")
	}
	if len(env.sender.sent) != 0 {
		t.Error("reclassifying to high_quality must not send anything")
	}
}

func TestApproveMeetingOffer(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationHighQuality)})
	env.repo.leads[lead.ID].Draft = &domain.Draft{Body: "Personalized offer", CreatedAt: time.Now().UTC()}

	updated, err := env.svc.Approve(context.Background(), lead.ID, "reviewer@example.com")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}

	if updated.Status.Phase != domain.PhaseDone {
		t.Errorf("phase = %q, want %q", updated.Status.Phase, domain.PhaseDone)
	}
	if updated.Status.SentBy == nil || *updated.Status.SentBy != "reviewer@example.com" {
		t.Errorf("sent_by = %v, want the approver", updated.Status.SentBy)
	}
	if len(env.sender.sent) != 1 {
		t.Fatalf("expected one sent message, got %d", len(env.sender.sent))
	}
	msg := env.sender.sent[0]
	if msg.To != "dana@example.com" || msg.Subject != "Let's talk" || msg.HTML != "Personalized offer" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestApproveWithoutDraftRejected(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationHighQuality)})

	_, err := env.svc.Approve(context.Background(), lead.ID, "reviewer@example.com")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApproveRequiresReviewPhase(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)

	_, err := env.svc.Approve(context.Background(), lead.ID, "reviewer@example.com")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestApproveDeliveryFailure(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationSupport)})
	env.sender.err = errors.New("smtp timeout")

	_, err := env.svc.Approve(context.Background(), lead.ID, "reviewer@example.com")
	if apperr.GetKind(err) != apperr.KindUpstream {
		t.Fatalf("expected upstream error, got %v", err)
	}

	stored := env.repo.leads[lead.ID]
	if stored.Status.Phase != domain.PhaseReview {
		t.Errorf("phase = %q, failed delivery must not close the lead", stored.Status.Phase)
	}
	if env.repo.claims[lead.ID] {
		t.Error("claim must be released so the approval can be retried")
	}
}

func TestSenderDisabledStillCompletes(t *testing.T) {
	env := newTestEnv()
	env.sender.enabled = false
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationSupport)})

	updated, err := env.svc.Approve(context.Background(), lead.ID, "reviewer@example.com")
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if updated.Status.Phase != domain.PhaseDone {
		t.Errorf("phase = %q, want %q with delivery disabled", updated.Status.Phase, domain.PhaseDone)
	}
	if len(env.sender.sent) != 0 {
		t.Error("disabled sender must not send")
	}
}

func TestEditDraft(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationHighQuality)})
	env.repo.leads[lead.ID].Draft = &domain.Draft{Body: "original", CreatedAt: time.Now().UTC()}

	updated, err := env.svc.EditDraft(context.Background(), lead.ID, "edited body")
	if err != nil {
		t.Fatalf("EditDraft: %v", err)
	}
	if updated.Draft.Body != "edited body" {
		t.Errorf("draft body = %q, want %q", updated.Draft.Body, "edited body")
	}
	if updated.Draft.EditedAt == nil {
		t.Error("edit timestamp should be set")
	}
}

func TestEditDraftOutsideReviewRejected(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{humanEntry(domain.ClassificationHighQuality)})
	env.repo.leads[lead.ID].Draft = &domain.Draft{Body: "original", CreatedAt: time.Now().UTC()}

	_, err := env.svc.EditDraft(context.Background(), lead.ID, "edited")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRerouteCustomerDispute(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{botEntry(domain.ClassificationSupport)})

	updated, err := env.svc.RerouteLead(context.Background(), lead.ID, "customer", "I am a paying customer, this went to the wrong desk")
	if err != nil {
		t.Fatalf("RerouteLead: %v", err)
	}

	if updated.Status.Phase != domain.PhaseReview {
		t.Errorf("phase = %q, customer disputes reopen into review", updated.Status.Phase)
	}
	if updated.Status.SentAt != nil || updated.Status.SentBy != nil {
		t.Error("delivery markers must be cleared on reroute")
	}
	if updated.Reroute == nil {
		t.Fatal("reroute record missing")
	}
	if updated.Reroute.PreviousTerminalState != domain.TerminalForwardedSupport {
		t.Errorf("previous terminal state = %q, want %q", updated.Reroute.PreviousTerminalState, domain.TerminalForwardedSupport)
	}
	if len(env.dispatcher.dispatched) != 0 {
		t.Error("customer disputes skip reclassification")
	}
	if len(env.sink.ofType("lead_rerouted")) != 1 {
		t.Error("expected a lead_rerouted analytics event")
	}
}

func TestRerouteInternalDisputeReclassifies(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{botEntry(domain.ClassificationExisting)})

	updated, err := env.svc.RerouteLead(context.Background(), lead.ID, "support", "not our customer")
	if err != nil {
		t.Fatalf("RerouteLead: %v", err)
	}

	if updated.Status.Phase != domain.PhaseClassify {
		t.Errorf("phase = %q, internal disputes go back through classification", updated.Status.Phase)
	}
	if len(env.dispatcher.dispatched) != 1 {
		t.Errorf("expected one classification dispatch, got %d", len(env.dispatcher.dispatched))
	}
}

func TestRerouteRejections(t *testing.T) {
	env := newTestEnv()

	open := env.seedLead(domain.PhaseReview, domain.History{botEntry(domain.ClassificationSupport)})
	if _, err := env.svc.RerouteLead(context.Background(), open.ID, "customer", "x"); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("open lead: expected validation error, got %v", err)
	}

	generic := env.seedLead(domain.PhaseDone, domain.History{botEntry(domain.ClassificationLowQuality)})
	if _, err := env.svc.RerouteLead(context.Background(), generic.ID, "customer", "x"); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("generic lead: expected validation error, got %v", err)
	}

	lead := env.seedLead(domain.PhaseDone, domain.History{botEntry(domain.ClassificationSupport)})
	if _, err := env.svc.RerouteLead(context.Background(), lead.ID, "customer", "first"); err != nil {
		t.Fatalf("first reroute: %v", err)
	}
	env.repo.leads[lead.ID].Status.Phase = domain.PhaseDone
	if _, err := env.svc.RerouteLead(context.Background(), lead.ID, "support", "second"); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("second reroute: expected validation error, got %v", err)
	}

	if _, err := env.svc.RerouteLead(context.Background(), open.ID, "unknown", "x"); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("unknown source: expected validation error, got %v", err)
	}
}

func TestBookMeeting(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{humanEntry(domain.ClassificationHighQuality)})

	first, err := env.svc.BookMeeting(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("BookMeeting: %v", err)
	}
	if first.AlreadyBooked {
		t.Error("first booking should not report already booked")
	}
	if len(env.sink.ofType("meeting_booked")) != 1 {
		t.Error("expected a meeting_booked analytics event")
	}

	second, err := env.svc.BookMeeting(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("second BookMeeting: %v", err)
	}
	if !second.AlreadyBooked {
		t.Error("second booking should report already booked")
	}
	if !second.BookedAt.Equal(first.BookedAt) {
		t.Errorf("booking time changed: %v vs %v", second.BookedAt, first.BookedAt)
	}
	if len(env.sink.ofType("meeting_booked")) != 1 {
		t.Error("second booking must not emit another analytics event")
	}
}

func TestBookMeetingOnDeadLeadRejected(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{humanEntry(domain.ClassificationIrrelevant)})
	// Dead leads close without a delivery.
	env.repo.leads[lead.ID].Status.SentAt = nil
	env.repo.leads[lead.ID].Status.SentBy = nil

	_, err := env.svc.BookMeeting(context.Background(), lead.ID)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMarkSelfService(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseDone, domain.History{botEntry(domain.ClassificationSupport)})

	updated, err := env.svc.MarkSelfService(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("MarkSelfService: %v", err)
	}
	if updated.SupportFeedback == nil || !updated.SupportFeedback.MarkedSelfService {
		t.Error("self-service feedback not recorded")
	}
	if updated.Status.Phase != domain.PhaseDone {
		t.Error("feedback must not transition the lead")
	}

	wrong := env.seedLead(domain.PhaseDone, domain.History{botEntry(domain.ClassificationLowQuality)})
	if _, err := env.svc.MarkSelfService(context.Background(), wrong.ID); apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("expected validation error for non-support lead, got %v", err)
	}
}

func TestConcurrentClassificationConflicts(t *testing.T) {
	env := newTestEnv()
	lead := env.seedLead(domain.PhaseClassify, nil)
	env.classifier.result = ports.ClassificationResult{
		Classification: domain.ClassificationSupport,
		Confidence:     0.5,
	}

	// A human decision lands between the read and the append.
	env.repo.leads[lead.ID].Classifications = domain.History{humanEntry(domain.ClassificationExisting)}

	// The service read an empty history before the human entry appeared,
	// so the guarded append must lose.
	stale, _ := env.repo.GetByID(context.Background(), lead.ID)
	stale.Classifications = nil
	err := env.repo.AppendClassification(context.Background(), lead.ID, 0, botEntry(domain.ClassificationSupport), domain.PhaseReview)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(env.repo.leads[lead.ID].Classifications) != 1 {
		t.Error("losing append must not modify the history")
	}
}
