// Package service implements the lead lifecycle controller: every
// transition from submission through classification, review, terminal
// delivery, reroute, and meeting booking goes through here.
package service

import (
	"context"
	"fmt"
	"time"

	"leadintake_backend/internal/events"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/internal/leads/ports"
	"leadintake_backend/internal/leads/repository"
	"leadintake_backend/platform/apperr"
	"leadintake_backend/platform/logger"
	"leadintake_backend/platform/phone"
	"leadintake_backend/platform/sanitize"

	"github.com/google/uuid"
)

// caseStudyLimit is how many matched case studies a meeting offer carries.
const caseStudyLimit = 3

// actorAuto is the sent_by marker for deliveries performed without a human.
const actorAuto = "auto"

type Service struct {
	repo       repository.LeadsRepository
	classifier ports.Classifier
	generator  ports.BodyGenerator
	matcher    ports.CaseStudyMatcher
	dispatcher ports.ClassifyDispatcher
	sender     ports.EmailSender
	composer   ports.MessageComposer
	config     ports.ConfigProvider
	analytics  ports.AnalyticsSink
	bus        events.Bus
	logger     *logger.Logger

	defaultPhoneRegion string
}

type Options struct {
	Repo               repository.LeadsRepository
	Classifier         ports.Classifier
	Generator          ports.BodyGenerator
	Matcher            ports.CaseStudyMatcher
	Dispatcher         ports.ClassifyDispatcher
	Sender             ports.EmailSender
	Composer           ports.MessageComposer
	Config             ports.ConfigProvider
	Analytics          ports.AnalyticsSink
	Bus                events.Bus
	Logger             *logger.Logger
	DefaultPhoneRegion string
}

func New(opts Options) *Service {
	return &Service{
		repo:               opts.Repo,
		classifier:         opts.Classifier,
		generator:          opts.Generator,
		matcher:            opts.Matcher,
		dispatcher:         opts.Dispatcher,
		sender:             opts.Sender,
		composer:           opts.Composer,
		config:             opts.Config,
		analytics:          opts.Analytics,
		bus:                opts.Bus,
		logger:             opts.Logger,
		defaultPhoneRegion: opts.DefaultPhoneRegion,
	}
}

// SubmitInput is the raw inquiry as received from the public form or the
// inbox poller.
type SubmitInput struct {
	Name    string
	Email   string
	Company string
	Message string
	Phone   string
	Source  string
}

// Submit records a new inquiry and queues it for automated classification.
// A dispatch failure never rejects the submission; the lead stays in the
// classify phase with the failure recorded.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*domain.Lead, error) {
	lead := &domain.Lead{
		ID: uuid.New(),
		Submission: domain.Submission{
			Name:    sanitize.Text(input.Name),
			Email:   sanitize.Text(input.Email),
			Company: sanitize.Text(input.Company),
			Message: sanitize.Text(input.Message),
			Phone:   phone.Normalize(input.Phone, s.defaultPhoneRegion),
		},
		Status: domain.Status{
			Phase:      domain.PhaseClassify,
			ReceivedAt: time.Now().UTC(),
		},
	}
	if input.Source != "" {
		lead.Metadata = map[string]string{"source": input.Source}
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		s.logger.DatabaseError("leads.create", err)
		return nil, err
	}

	if err := s.dispatcher.DispatchClassification(ctx, lead.ID); err != nil {
		s.logger.UpstreamError("scheduler", "dispatch_classification", err)
		if storeErr := s.repo.SetLastError(ctx, lead.ID, "classification dispatch failed: "+err.Error()); storeErr != nil {
			s.logger.DatabaseError("leads.set_last_error", storeErr)
		}
	}

	s.bus.Publish(ctx, events.LeadSubmitted{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Email:     lead.Submission.Email,
		Company:   lead.Submission.Company,
		Source:    input.Source,
	})

	s.logger.LeadTransition(lead.ID.String(), "submit", "", string(domain.PhaseClassify))
	return lead, nil
}

// AutoClassify runs the automated classifier against a lead and applies
// the routing policy. It re-validates state at apply time: results for
// closed leads are discarded, and a result that arrives after a human has
// already decided is recorded for agreement analytics only, never applied
// over the human decision.
func (s *Service) AutoClassify(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return err
	}
	if lead.Status.Phase == domain.PhaseDone {
		s.logger.Info("classification skipped, lead already closed", "lead_id", leadID)
		return nil
	}

	result, err := s.classifier.Classify(ctx, lead.Submission)
	if err != nil {
		s.logger.UpstreamError("classifier", "classify", err)
		if storeErr := s.repo.SetLastError(ctx, leadID, "classification failed: "+err.Error()); storeErr != nil {
			s.logger.DatabaseError("leads.set_last_error", storeErr)
		}
		return apperr.Upstream("classification service failed", err)
	}

	research := domain.BotResearch{
		Confidence:       result.Confidence,
		Reasoning:        result.Reasoning,
		ExistingCustomer: result.ExistingCustomer,
		CRMRef:           result.CRMRef,
	}
	if err := s.repo.SetBotResearch(ctx, leadID, research); err != nil {
		return err
	}

	// A human decision is authoritative. When the bot result arrives
	// late, keep it as research plus a blind agreement sample.
	if current, ok := lead.Classifications.Current(); ok && current.Author == domain.AuthorHuman {
		s.recordComparison(ctx, leadID, result.Classification, result.Confidence, current.Classification, "blind")
		return nil
	}

	cfg, err := s.config.GetActive(ctx)
	if err != nil {
		return apperr.Upstream("active configuration unavailable", err)
	}

	decision := domain.Decide(result.Classification, result.Confidence, cfg.Thresholds)
	entry := domain.ClassificationEntry{
		Author:           domain.AuthorBot,
		Classification:   result.Classification,
		Timestamp:        time.Now().UTC(),
		NeedsReview:      decision.NeedsReview,
		AppliedThreshold: &decision.AppliedThreshold,
	}

	if err := s.repo.AppendClassification(ctx, leadID, len(lead.Classifications), entry, domain.PhaseReview); err != nil {
		return err
	}
	lead.Classifications = lead.Classifications.Prepend(entry)
	lead.Status.Phase = domain.PhaseReview

	s.logger.LeadTransition(leadID.String(), "auto_classify", string(domain.PhaseClassify), string(domain.PhaseReview))
	s.analytics.Append(ctx, ports.AnalyticsEvent{
		LeadID: leadID,
		Type:   "classification",
		Payload: map[string]any{
			"author":         string(domain.AuthorBot),
			"classification": string(result.Classification),
			"confidence":     result.Confidence,
			"action":         string(decision.Action),
		},
	})
	s.bus.Publish(ctx, events.LeadClassified{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		Author:         domain.AuthorBot,
		Classification: result.Classification,
		NeedsReview:    decision.NeedsReview,
	})

	if result.Classification == domain.ClassificationHighQuality {
		s.prepareMeetingOffer(ctx, lead)
		return nil
	}

	if decision.Action == domain.ActionAutoSend {
		// An auto-send failure degrades to human review instead of
		// retrying: re-running the whole classification would stack a
		// second history entry.
		if err := s.executeTerminal(ctx, lead, result.Classification, actorAuto); err != nil {
			s.logger.UpstreamError("delivery", "auto_send", err)
			if storeErr := s.repo.SetLastError(ctx, leadID, "auto-send failed: "+err.Error()); storeErr != nil {
				s.logger.DatabaseError("leads.set_last_error", storeErr)
			}
		}
	}
	return nil
}

// Reclassify applies a human classification decision. When it overrides a
// bot decision, the agreement sample is recorded before the new entry is
// appended. Terminal categories resolve immediately; a meeting offer stays
// in review for explicit approval.
func (s *Service) Reclassify(ctx context.Context, leadID uuid.UUID, actor string, rawClassification string) (*domain.Lead, error) {
	classification, err := domain.ParseClassification(rawClassification)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.Phase == domain.PhaseDone {
		return nil, apperr.Validation("closed leads cannot be reclassified; use reroute")
	}

	if current, ok := lead.Classifications.Current(); ok && current.Author == domain.AuthorBot {
		confidence := 0.0
		if lead.BotResearch != nil {
			confidence = lead.BotResearch.Confidence
		}
		s.recordComparison(ctx, leadID, current.Classification, confidence, classification, "override")
	}

	fromPhase := lead.Status.Phase
	entry := domain.ClassificationEntry{
		Author:         domain.AuthorHuman,
		Classification: classification,
		Timestamp:      time.Now().UTC(),
	}
	if err := s.repo.AppendClassification(ctx, leadID, len(lead.Classifications), entry, domain.PhaseReview); err != nil {
		return nil, err
	}
	lead.Classifications = lead.Classifications.Prepend(entry)
	lead.Status.Phase = domain.PhaseReview

	s.logger.LeadTransition(leadID.String(), "reclassify", string(fromPhase), string(domain.PhaseReview))
	s.bus.Publish(ctx, events.LeadClassified{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		Author:         domain.AuthorHuman,
		Classification: classification,
	})

	if classification == domain.ClassificationHighQuality {
		s.prepareMeetingOffer(ctx, lead)
		return s.repo.GetByID(ctx, leadID)
	}

	if err := s.executeTerminal(ctx, lead, classification, actor); err != nil {
		if storeErr := s.repo.SetLastError(ctx, leadID, "delivery failed: "+err.Error()); storeErr != nil {
			s.logger.DatabaseError("leads.set_last_error", storeErr)
		}
		return nil, err
	}

	return s.repo.GetByID(ctx, leadID)
}

// Approve executes the terminal action for a lead waiting in review.
func (s *Service) Approve(ctx context.Context, leadID uuid.UUID, actor string) (*domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.Phase != domain.PhaseReview {
		return nil, apperr.Validation("only leads in review can be approved")
	}
	current, ok := lead.Classifications.Current()
	if !ok {
		return nil, apperr.Validation("lead has no classification to approve")
	}

	if current.Classification == domain.ClassificationHighQuality && lead.Draft == nil {
		return nil, apperr.Validation("meeting offer has no draft; reclassify to regenerate")
	}

	if err := s.executeTerminal(ctx, lead, current.Classification, actor); err != nil {
		if storeErr := s.repo.SetLastError(ctx, leadID, "delivery failed: "+err.Error()); storeErr != nil {
			s.logger.DatabaseError("leads.set_last_error", storeErr)
		}
		return nil, err
	}

	return s.repo.GetByID(ctx, leadID)
}

// EditDraft replaces the draft body of a lead awaiting approval.
func (s *Service) EditDraft(ctx context.Context, leadID uuid.UUID, body string) (*domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.Phase != domain.PhaseReview {
		return nil, apperr.Validation("only drafts of leads in review can be edited")
	}

	if err := s.repo.UpdateDraftBody(ctx, leadID, body, time.Now().UTC()); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, leadID)
}

// RerouteLead reopens a closed support or existing-customer lead whose
// routing is disputed. Customer disputes reopen straight into review;
// internal disputes go back through classification.
func (s *Service) RerouteLead(ctx context.Context, leadID uuid.UUID, rawSource, reason string) (*domain.Lead, error) {
	source, ok := domain.ParseRerouteSource(rawSource)
	if !ok {
		return nil, apperr.Validation("unknown reroute source")
	}

	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if rejection := lead.ValidateReroute(); rejection != "" {
		return nil, apperr.Validation(rejection)
	}

	current, _ := lead.Classifications.Current()
	previousState, _ := lead.TerminalState()
	record := domain.RerouteRecord{
		Source:                 source,
		Reason:                 sanitize.Text(reason),
		OriginalClassification: current.Classification,
		PreviousTerminalState:  previousState,
		Timestamp:              time.Now().UTC(),
	}

	targetPhase := domain.ReroutePhase(source)
	if err := s.repo.ApplyReroute(ctx, leadID, record, targetPhase); err != nil {
		return nil, err
	}

	s.logger.LeadTransition(leadID.String(), "reroute", string(domain.PhaseDone), string(targetPhase))
	s.analytics.Append(ctx, ports.AnalyticsEvent{
		LeadID: leadID,
		Type:   "lead_rerouted",
		Payload: map[string]any{
			"source":                 string(source),
			"originalClassification": string(current.Classification),
			"previousTerminalState":  string(previousState),
		},
	})
	s.bus.Publish(ctx, events.LeadReopened{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		Source:        source,
		PreviousState: previousState,
	})

	if targetPhase == domain.PhaseClassify {
		if err := s.dispatcher.DispatchClassification(ctx, leadID); err != nil {
			s.logger.UpstreamError("scheduler", "dispatch_classification", err)
			if storeErr := s.repo.SetLastError(ctx, leadID, "classification dispatch failed: "+err.Error()); storeErr != nil {
				s.logger.DatabaseError("leads.set_last_error", storeErr)
			}
		}
	}

	return s.repo.GetByID(ctx, leadID)
}

// BookMeetingResult reports whether the call changed state.
type BookMeetingResult struct {
	AlreadyBooked bool
	BookedAt      time.Time
}

// BookMeeting records a meeting booking on a delivered meeting offer.
// Booking twice is not an error; the first booking time stands.
func (s *Service) BookMeeting(ctx context.Context, leadID uuid.UUID) (BookMeetingResult, error) {
	now := time.Now().UTC()
	booked, err := s.repo.MarkMeetingBooked(ctx, leadID, now)
	if err != nil {
		return BookMeetingResult{}, err
	}
	if !booked {
		lead, err := s.repo.GetByID(ctx, leadID)
		if err != nil {
			return BookMeetingResult{}, err
		}
		result := BookMeetingResult{AlreadyBooked: true}
		if lead.MeetingBookedAt != nil {
			result.BookedAt = *lead.MeetingBookedAt
		}
		return result, nil
	}

	s.analytics.Append(ctx, ports.AnalyticsEvent{LeadID: leadID, Type: "meeting_booked", Payload: map[string]any{}})
	s.bus.Publish(ctx, events.MeetingBooked{BaseEvent: events.NewBaseEvent(), LeadID: leadID})
	return BookMeetingResult{BookedAt: now}, nil
}

// MarkSelfService records support-desk feedback that a forwarded inquiry
// was resolved by pointing the requester at self-service material. It
// annotates the lead without transitioning it.
func (s *Service) MarkSelfService(ctx context.Context, leadID uuid.UUID) (*domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	current, ok := lead.Classifications.Current()
	if lead.Status.Phase != domain.PhaseDone || !ok || current.Classification != domain.ClassificationSupport {
		return nil, apperr.Validation("self-service feedback applies only to forwarded support leads")
	}

	feedback := domain.SupportFeedback{MarkedSelfService: true, Timestamp: time.Now().UTC()}
	if err := s.repo.SetSupportFeedback(ctx, leadID, feedback); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, leadID)
}

// AttachCaseStudies replaces the case studies attached to a lead and
// leaves an edit note naming who changed the selection.
func (s *Service) AttachCaseStudies(ctx context.Context, leadID uuid.UUID, actor string, refs []domain.CaseStudyRef) (*domain.Lead, error) {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status.Phase != domain.PhaseReview {
		return nil, apperr.Validation("case studies can only be changed while the lead is in review")
	}
	if err := s.repo.ReplaceCaseStudies(ctx, leadID, refs); err != nil {
		return nil, err
	}
	note := fmt.Sprintf("case study selection updated (%d attached)", len(refs))
	if err := s.repo.AddNote(ctx, leadID, actor, note); err != nil {
		s.logger.DatabaseError("add_case_study_note", err)
	}
	return s.repo.GetByID(ctx, leadID)
}

// AddNote appends a free-form internal note.
func (s *Service) AddNote(ctx context.Context, leadID uuid.UUID, author, body string) error {
	if _, err := s.repo.GetByID(ctx, leadID); err != nil {
		return err
	}
	return s.repo.AddNote(ctx, leadID, author, sanitize.Text(body))
}

// GetLead returns one lead with its full history.
func (s *Service) GetLead(ctx context.Context, leadID uuid.UUID) (*domain.Lead, error) {
	return s.repo.GetByID(ctx, leadID)
}

// ListLeads returns a page of leads.
func (s *Service) ListLeads(ctx context.Context, params repository.ListParams) (repository.ListResult, error) {
	return s.repo.List(ctx, params)
}

// prepareMeetingOffer matches case studies and generates the draft body
// for a high-quality lead. Failures leave the lead in review without a
// draft; the reviewer can reclassify to regenerate.
func (s *Service) prepareMeetingOffer(ctx context.Context, lead *domain.Lead) {
	refs, err := s.matcher.Match(ctx, lead.Submission.Message, caseStudyLimit)
	if err != nil {
		s.logger.UpstreamError("casestudies", "match", err)
		refs = nil
	}
	if len(refs) > 0 {
		if err := s.repo.ReplaceCaseStudies(ctx, lead.ID, refs); err != nil {
			s.logger.DatabaseError("leads.replace_case_studies", err)
		}
	}

	body, err := s.generator.GenerateBody(ctx, lead.Submission, refs)
	if err != nil {
		s.logger.UpstreamError("generator", "generate_body", err)
		if storeErr := s.repo.SetLastError(ctx, lead.ID, "draft generation failed: "+err.Error()); storeErr != nil {
			s.logger.DatabaseError("leads.set_last_error", storeErr)
		}
		return
	}

	draft := domain.Draft{Body: body, CreatedAt: time.Now().UTC()}
	if err := s.repo.PutDraft(ctx, lead.ID, draft); err != nil {
		s.logger.DatabaseError("leads.put_draft", err)
		return
	}

	s.analytics.Append(ctx, ports.AnalyticsEvent{
		LeadID: lead.ID,
		Type:   "email_generation",
		Payload: map[string]any{
			"caseStudies": len(refs),
		},
	})
}

// executeTerminal performs the terminal action for a classification: the
// delivery side effect first, the phase transition only after confirmed
// delivery. The delivery claim makes a concurrent duplicate attempt fail
// instead of double-sending.
func (s *Service) executeTerminal(ctx context.Context, lead *domain.Lead, classification domain.Classification, actor string) error {
	if classification == domain.ClassificationIrrelevant {
		if err := s.repo.MarkDone(ctx, lead.ID); err != nil {
			return err
		}
		s.logger.LeadTransition(lead.ID.String(), "close", string(lead.Status.Phase), string(domain.PhaseDone))
		s.publishResolved(ctx, lead.ID, domain.TerminalDead, actor)
		return nil
	}

	cfg, err := s.config.GetActive(ctx)
	if err != nil {
		return apperr.Upstream("active configuration unavailable", err)
	}

	var (
		msg           ports.OutboundMessage
		terminalState domain.TerminalState
		forwarded     bool
	)
	switch classification {
	case domain.ClassificationHighQuality:
		msg, err = s.composer.MeetingOffer(lead, cfg.Templates)
		terminalState = domain.TerminalSentMeetingOffer
	case domain.ClassificationLowQuality:
		msg, err = s.composer.Generic(lead, cfg.Templates)
		terminalState = domain.TerminalSentGeneric
	case domain.ClassificationSupport:
		msg, err = s.composer.SupportForward(lead)
		terminalState = domain.TerminalForwardedSupport
		forwarded = true
	case domain.ClassificationExisting:
		msg, err = s.composer.AccountTeamForward(lead)
		terminalState = domain.TerminalForwardedAccountTeam
		forwarded = true
	default:
		return apperr.Validation("classification has no terminal action")
	}
	if err != nil {
		return apperr.Upstream("message assembly failed", err)
	}

	if err := s.repo.ClaimDelivery(ctx, lead.ID); err != nil {
		return err
	}

	if s.sender.Enabled() {
		if err := s.sender.Send(ctx, msg); err != nil {
			if releaseErr := s.repo.ReleaseDelivery(ctx, lead.ID, err.Error()); releaseErr != nil {
				s.logger.DatabaseError("leads.release_delivery", releaseErr)
			}
			return apperr.Upstream("email delivery failed", err)
		}
		s.analytics.Append(ctx, ports.AnalyticsEvent{
			LeadID:  lead.ID,
			Type:    "email_sent",
			Payload: map[string]any{"to": msg.To, "terminalState": string(terminalState)},
		})
	}

	if err := s.repo.CompleteDelivery(ctx, lead.ID, actor, time.Now().UTC()); err != nil {
		return err
	}

	s.logger.LeadTransition(lead.ID.String(), "deliver", string(lead.Status.Phase), string(domain.PhaseDone))
	if forwarded {
		s.analytics.Append(ctx, ports.AnalyticsEvent{
			LeadID:  lead.ID,
			Type:    "lead_forwarded",
			Payload: map[string]any{"terminalState": string(terminalState)},
		})
	}
	s.publishResolved(ctx, lead.ID, terminalState, actor)
	return nil
}

func (s *Service) publishResolved(ctx context.Context, leadID uuid.UUID, state domain.TerminalState, actor string) {
	s.bus.Publish(ctx, events.LeadResolved{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		TerminalState: state,
		ResolvedBy:    actor,
	})
}

// recordComparison emits one human/AI agreement sample. Mode is
// "override" when a human replaces a live bot decision, "blind" when the
// bot result arrived after the human had already decided.
func (s *Service) recordComparison(ctx context.Context, leadID uuid.UUID, aiClassification domain.Classification, aiConfidence float64, humanClassification domain.Classification, mode string) {
	s.analytics.Append(ctx, ports.AnalyticsEvent{
		LeadID: leadID,
		Type:   "human_ai_comparison",
		Payload: map[string]any{
			"aiClassification":    string(aiClassification),
			"aiConfidence":        aiConfidence,
			"humanClassification": string(humanClassification),
			"agreement":           aiClassification == humanClassification,
			"mode":                mode,
		},
	})
}
