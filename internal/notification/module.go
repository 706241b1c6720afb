// Package notification provides event handlers that react to lead
// lifecycle events. This module subscribes to the bus and inverts the
// dependency: the lifecycle service publishes events without knowing who
// records or announces them.
package notification

import (
	"context"
	"fmt"

	"leadintake_backend/internal/events"
	"leadintake_backend/platform/logger"

	"github.com/google/uuid"
)

// noteAuthor marks audit notes written by event handlers.
const noteAuthor = "system"

// NoteWriter persists audit notes on a lead.
type NoteWriter interface {
	AddNote(ctx context.Context, leadID uuid.UUID, author, body string) error
}

type Module struct {
	notes NoteWriter
	log   *logger.Logger
}

func New(notes NoteWriter, log *logger.Logger) *Module {
	return &Module{notes: notes, log: log}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadSubmitted{}.EventName(), m)
	bus.Subscribe(events.LeadClassified{}.EventName(), m)
	bus.Subscribe(events.LeadResolved{}.EventName(), m)
	bus.Subscribe(events.LeadReopened{}.EventName(), m)
	bus.Subscribe(events.MeetingBooked{}.EventName(), m)
}

// Handle dispatches one event to its audit-note writer. Unknown events
// are ignored so new publishers never break this module.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadSubmitted:
		return m.writeNote(ctx, e.LeadID, noteForSubmitted(e))
	case events.LeadClassified:
		return m.writeNote(ctx, e.LeadID, noteForClassified(e))
	case events.LeadResolved:
		return m.writeNote(ctx, e.LeadID, fmt.Sprintf("resolved as %s by %s", e.TerminalState, e.ResolvedBy))
	case events.LeadReopened:
		return m.writeNote(ctx, e.LeadID, fmt.Sprintf("reopened after %s dispute (was %s)", e.Source, e.PreviousState))
	case events.MeetingBooked:
		return m.writeNote(ctx, e.LeadID, "meeting booked via the public booking page")
	default:
		return nil
	}
}

func (m *Module) writeNote(ctx context.Context, leadID uuid.UUID, body string) error {
	if err := m.notes.AddNote(ctx, leadID, noteAuthor, body); err != nil {
		m.log.Error("failed to write audit note", "leadId", leadID, "error", err)
		return err
	}
	return nil
}

func noteForSubmitted(e events.LeadSubmitted) string {
	source := e.Source
	if source == "" {
		source = "unknown source"
	}
	return fmt.Sprintf("inquiry received via %s", source)
}

func noteForClassified(e events.LeadClassified) string {
	if e.NeedsReview {
		return fmt.Sprintf("classified as %s by %s, awaiting review", e.Classification, e.Author)
	}
	return fmt.Sprintf("classified as %s by %s", e.Classification, e.Author)
}
