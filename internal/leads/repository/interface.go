package repository

import (
	"context"
	"time"

	"leadintake_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// ListParams contains parameters for listing leads.
type ListParams struct {
	Phase    *domain.Phase
	Search   string
	Page     int
	PageSize int
}

// ListResult contains the paginated result of listing leads.
type ListResult struct {
	Items      []domain.Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// LeadsRepository is the persistence contract for the lead lifecycle.
// Every multi-writer mutation is a conditional store operation; the
// lifecycle service never does read-modify-write on shared state.
type LeadsRepository interface {
	Create(ctx context.Context, lead *domain.Lead) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Lead, error)
	List(ctx context.Context, params ListParams) (ListResult, error)

	// AppendClassification atomically appends an entry to the lead's
	// classification history and moves the lead to the given phase.
	// expectedLen is the caller's view of the history length; a mismatch
	// means a concurrent append won the race and yields a conflict error.
	AppendClassification(ctx context.Context, leadID uuid.UUID, expectedLen int, entry domain.ClassificationEntry, phase domain.Phase) error

	SetBotResearch(ctx context.Context, leadID uuid.UUID, research domain.BotResearch) error

	PutDraft(ctx context.Context, leadID uuid.UUID, draft domain.Draft) error
	UpdateDraftBody(ctx context.Context, leadID uuid.UUID, body string, editedAt time.Time) error

	// ClaimDelivery reserves the right to perform the delivery side
	// effect. A second claim while one is in flight conflicts, so a retry
	// of a partially completed operation cannot double-send.
	ClaimDelivery(ctx context.Context, leadID uuid.UUID) error
	// ReleaseDelivery frees the claim after a failed send and records the
	// failure on the lead.
	ReleaseDelivery(ctx context.Context, leadID uuid.UUID, errMsg string) error
	// CompleteDelivery commits the terminal transition after confirmed
	// delivery: phase done, sent_at/sent_by set, claim cleared.
	CompleteDelivery(ctx context.Context, leadID uuid.UUID, sentBy string, at time.Time) error
	// MarkDone closes a lead without a delivery side effect (dead leads).
	MarkDone(ctx context.Context, leadID uuid.UUID) error

	// ApplyReroute reopens a closed lead: clears sent_at/sent_by, stores
	// the dispute record, and sets the target phase. Conditional on the
	// lead being done and not already rerouted.
	ApplyReroute(ctx context.Context, leadID uuid.UUID, record domain.RerouteRecord, phase domain.Phase) error

	// MarkMeetingBooked is idempotent; returns false when the meeting was
	// already booked and no state changed.
	MarkMeetingBooked(ctx context.Context, leadID uuid.UUID, at time.Time) (bool, error)

	SetSupportFeedback(ctx context.Context, leadID uuid.UUID, feedback domain.SupportFeedback) error

	ReplaceCaseStudies(ctx context.Context, leadID uuid.UUID, refs []domain.CaseStudyRef) error
	AddNote(ctx context.Context, leadID uuid.UUID, author, body string) error

	SetLastError(ctx context.Context, leadID uuid.UUID, msg string) error
}
