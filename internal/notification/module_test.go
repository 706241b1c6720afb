package notification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"leadintake_backend/internal/events"
	"leadintake_backend/internal/leads/domain"
	"leadintake_backend/platform/logger"

	"github.com/google/uuid"
)

type recordedNote struct {
	leadID uuid.UUID
	author string
	body   string
}

type fakeNoteWriter struct {
	notes []recordedNote
	err   error
}

func (f *fakeNoteWriter) AddNote(ctx context.Context, leadID uuid.UUID, author, body string) error {
	if f.err != nil {
		return f.err
	}
	f.notes = append(f.notes, recordedNote{leadID: leadID, author: author, body: body})
	return nil
}

func newModule(notes *fakeNoteWriter) (*Module, events.Bus) {
	log := logger.New("development")
	m := New(notes, log)
	bus := events.NewInMemoryBus(log)
	m.RegisterHandlers(bus)
	return m, bus
}

func TestLifecycleEventsWriteAuditNotes(t *testing.T) {
	notes := &fakeNoteWriter{}
	_, bus := newModule(notes)
	leadID := uuid.New()

	published := []events.Event{
		events.LeadSubmitted{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Source: "web_form"},
		events.LeadClassified{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Author: domain.AuthorBot, Classification: domain.ClassificationSupport, NeedsReview: true},
		events.LeadResolved{BaseEvent: events.NewBaseEvent(), LeadID: leadID, TerminalState: domain.TerminalForwardedSupport, ResolvedBy: "auto"},
		events.LeadReopened{BaseEvent: events.NewBaseEvent(), LeadID: leadID, Source: domain.RerouteSourceCustomer, PreviousState: domain.TerminalForwardedSupport},
		events.MeetingBooked{BaseEvent: events.NewBaseEvent(), LeadID: leadID},
	}
	for _, event := range published {
		if err := bus.PublishSync(context.Background(), event); err != nil {
			t.Fatalf("PublishSync(%s): %v", event.EventName(), err)
		}
	}

	if len(notes.notes) != len(published) {
		t.Fatalf("notes written = %d, want %d", len(notes.notes), len(published))
	}
	for i, note := range notes.notes {
		if note.leadID != leadID {
			t.Errorf("note %d leadID = %s, want %s", i, note.leadID, leadID)
		}
		if note.author != "system" {
			t.Errorf("note %d author = %q, want system", i, note.author)
		}
	}

	wantFragments := []string{
		"inquiry received via web_form",
		"classified as support by bot, awaiting review",
		"resolved as forwarded_support by auto",
		"reopened after customer dispute (was forwarded_support)",
		"meeting booked",
	}
	for i, want := range wantFragments {
		if !strings.Contains(notes.notes[i].body, want) {
			t.Errorf("note %d = %q, want it to contain %q", i, notes.notes[i].body, want)
		}
	}
}

func TestClassifiedNoteOmitsReviewMarkerWhenAutoRouted(t *testing.T) {
	notes := &fakeNoteWriter{}
	m, _ := newModule(notes)

	err := m.Handle(context.Background(), events.LeadClassified{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         uuid.New(),
		Author:         domain.AuthorBot,
		Classification: domain.ClassificationIrrelevant,
	})
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if got := notes.notes[0].body; strings.Contains(got, "awaiting review") {
		t.Errorf("note = %q, want no review marker", got)
	}
}

type unrelatedEvent struct{ events.BaseEvent }

func (unrelatedEvent) EventName() string { return "test.unrelated" }

func TestUnknownEventIgnored(t *testing.T) {
	notes := &fakeNoteWriter{}
	m, _ := newModule(notes)

	if err := m.Handle(context.Background(), unrelatedEvent{BaseEvent: events.NewBaseEvent()}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(notes.notes) != 0 {
		t.Errorf("unknown event wrote %d notes, want 0", len(notes.notes))
	}
}

func TestWriteFailureSurfacesToBus(t *testing.T) {
	notes := &fakeNoteWriter{err: errors.New("db down")}
	_, bus := newModule(notes)

	err := bus.PublishSync(context.Background(), events.MeetingBooked{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    uuid.New(),
	})
	if err == nil {
		t.Fatal("expected PublishSync to surface the handler error")
	}
}
