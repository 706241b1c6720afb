// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// NewInMemoryBus creates a new in-memory event bus.
var NewInMemoryBus = events.NewInMemoryBus

// =============================================================================
// Leads Domain Events
// =============================================================================

// LeadSubmitted is published when a new inquiry enters the system.
type LeadSubmitted struct {
	BaseEvent
	LeadID  uuid.UUID `json:"leadId"`
	Email   string    `json:"email"`
	Company string    `json:"company,omitempty"`
	Source  string    `json:"source,omitempty"`
}

func (e LeadSubmitted) EventName() string { return "leads.lead.submitted" }

// LeadClassified is published whenever a classification entry is appended.
type LeadClassified struct {
	BaseEvent
	LeadID         uuid.UUID             `json:"leadId"`
	Author         domain.Author         `json:"author"`
	Classification domain.Classification `json:"classification"`
	NeedsReview    bool                  `json:"needsReview"`
}

func (e LeadClassified) EventName() string { return "leads.lead.classified" }

// LeadResolved is published when a lead reaches a terminal outcome.
type LeadResolved struct {
	BaseEvent
	LeadID        uuid.UUID            `json:"leadId"`
	TerminalState domain.TerminalState `json:"terminalState"`
	ResolvedBy    string               `json:"resolvedBy"`
}

func (e LeadResolved) EventName() string { return "leads.lead.resolved" }

// LeadReopened is published when a closed lead is rerouted.
type LeadReopened struct {
	BaseEvent
	LeadID        uuid.UUID            `json:"leadId"`
	Source        domain.RerouteSource `json:"source"`
	PreviousState domain.TerminalState `json:"previousState"`
}

func (e LeadReopened) EventName() string { return "leads.lead.reopened" }

// MeetingBooked is published the first time a meeting is booked on a lead.
type MeetingBooked struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
}

func (e MeetingBooked) EventName() string { return "leads.meeting.booked" }
