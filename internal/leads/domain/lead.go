package domain

import (
	"time"

	"github.com/google/uuid"
)

// Phase is the coarse lifecycle position of a lead.
type Phase string

const (
	// PhaseClassify means the lead awaits an automated classification.
	PhaseClassify Phase = "classify"
	// PhaseReview means the lead awaits a human decision.
	PhaseReview Phase = "review"
	// PhaseDone means a terminal action has completed.
	PhaseDone Phase = "done"
)

// Status tracks where a lead is in its lifecycle. SentAt/SentBy are
// populated only when a terminal action occurs, and cleared on reroute.
type Status struct {
	Phase      Phase      `json:"phase"`
	ReceivedAt time.Time  `json:"receivedAt"`
	SentAt     *time.Time `json:"sentAt,omitempty"`
	SentBy     *string    `json:"sentBy,omitempty"`
}

// Submission is the immutable record of what the requester typed.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Message string `json:"message"`
	Phone   string `json:"phone,omitempty"`
}

// BotResearch is the result of automated research on a lead.
type BotResearch struct {
	Confidence       float64 `json:"confidence"`
	Reasoning        string  `json:"reasoning"`
	ExistingCustomer bool    `json:"existingCustomer"`
	CRMRef           *string `json:"crmRef,omitempty"`
}

// Draft holds the editable outbound email body awaiting approval. The
// fully assembled email (greeting, body, call-to-action, signature) is
// built only at send time from the active configuration's templates.
type Draft struct {
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"createdAt"`
	EditedAt  *time.Time `json:"editedAt,omitempty"`
}

// RerouteSource identifies who disputed a closed lead.
type RerouteSource string

const (
	RerouteSourceCustomer RerouteSource = "customer"
	RerouteSourceSupport  RerouteSource = "support"
	RerouteSourceSales    RerouteSource = "sales"
)

// ParseRerouteSource validates a raw reroute source string.
func ParseRerouteSource(raw string) (RerouteSource, bool) {
	switch RerouteSource(raw) {
	case RerouteSourceCustomer, RerouteSourceSupport, RerouteSourceSales:
		return RerouteSource(raw), true
	}
	return "", false
}

// RerouteRecord is the dispute entry appended when a closed lead is
// reopened. At most one exists per lead.
type RerouteRecord struct {
	Source                 RerouteSource  `json:"source"`
	Reason                 string         `json:"reason"`
	OriginalClassification Classification `json:"originalClassification"`
	PreviousTerminalState  TerminalState  `json:"previousTerminalState"`
	Timestamp              time.Time      `json:"timestamp"`
}

// SupportFeedback is a terminal annotation from the support team. It does
// not transition the lead.
type SupportFeedback struct {
	MarkedSelfService bool      `json:"markedSelfService"`
	Timestamp         time.Time `json:"timestamp"`
}

// CaseStudyRef is an auxiliary content reference attached for outbound
// messaging.
type CaseStudyRef struct {
	CaseStudyID uuid.UUID `json:"caseStudyId"`
	Title       string    `json:"title"`
	SortOrder   int       `json:"sortOrder"`
}

// Lead is the central aggregate: one inbound inquiry and its full
// processing history.
type Lead struct {
	ID                 uuid.UUID
	Submission         Submission
	Status             Status
	Classifications    History
	BotResearch        *BotResearch
	Draft              *Draft
	MatchedCaseStudies []CaseStudyRef
	SupportFeedback    *SupportFeedback
	Reroute            *RerouteRecord
	MeetingBookedAt    *time.Time
	LastError          *string
	Metadata           map[string]string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TerminalState derives the lead's terminal outcome, if any.
func (l *Lead) TerminalState() (TerminalState, bool) {
	return DeriveTerminalState(l.Status, l.Classifications)
}

// rerouteableClassifications are the two "might be wrong" categories whose
// terminal routing can be disputed.
var rerouteableClassifications = map[Classification]bool{
	ClassificationSupport:  true,
	ClassificationExisting: true,
}

// ValidateReroute checks whether the lead can be reopened. Returns a
// non-empty reason when the reroute must be rejected.
func (l *Lead) ValidateReroute() string {
	if l.Reroute != nil {
		return "lead has already been rerouted"
	}
	if l.Status.Phase != PhaseDone {
		return "only closed leads can be rerouted"
	}
	current, ok := l.Classifications.Current()
	if !ok {
		return "lead has no classification"
	}
	if !rerouteableClassifications[current.Classification] {
		return "only support and existing-customer leads can be rerouted"
	}
	return ""
}

// ReroutePhase returns the phase a rerouted lead reopens into: review when
// the original requester disputed, classify when an internal team did.
func ReroutePhase(source RerouteSource) Phase {
	if source == RerouteSourceCustomer {
		return PhaseReview
	}
	return PhaseClassify
}
