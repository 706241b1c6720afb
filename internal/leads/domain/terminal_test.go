package domain

import (
	"testing"
	"time"
)

func historyOf(classifications ...Classification) History {
	h := History{}
	ts := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	for i, c := range classifications {
		h = append(h, ClassificationEntry{
			Author:         AuthorBot,
			Classification: c,
			Timestamp:      ts.Add(-time.Duration(i) * time.Minute),
		})
	}
	return h
}

func TestDeriveTerminalState(t *testing.T) {
	tests := []struct {
		name    string
		phase   Phase
		history History
		want    TerminalState
		wantOK  bool
	}{
		{"high quality done", PhaseDone, historyOf(ClassificationHighQuality), TerminalSentMeetingOffer, true},
		{"low quality done", PhaseDone, historyOf(ClassificationLowQuality), TerminalSentGeneric, true},
		{"support done", PhaseDone, historyOf(ClassificationSupport), TerminalForwardedSupport, true},
		{"existing done", PhaseDone, historyOf(ClassificationExisting), TerminalForwardedAccountTeam, true},
		{"irrelevant done", PhaseDone, historyOf(ClassificationIrrelevant), TerminalDead, true},
		{"classify phase is never terminal", PhaseClassify, historyOf(ClassificationLowQuality), "", false},
		{"review phase is never terminal", PhaseReview, historyOf(ClassificationHighQuality), "", false},
		{"done without history", PhaseDone, History{}, "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := DeriveTerminalState(Status{Phase: tc.phase}, tc.history)
			if ok != tc.wantOK {
				t.Fatalf("DeriveTerminalState ok = %v, want %v", ok, tc.wantOK)
			}
			if got != tc.want {
				t.Errorf("DeriveTerminalState = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveTerminalStateUsesNewestEntry(t *testing.T) {
	// A human override prepends; only classifications[0] drives the outcome.
	h := historyOf(ClassificationExisting, ClassificationSupport)

	got, ok := DeriveTerminalState(Status{Phase: PhaseDone}, h)
	if !ok {
		t.Fatal("expected a terminal state")
	}
	if got != TerminalForwardedAccountTeam {
		t.Errorf("DeriveTerminalState = %q, want %q", got, TerminalForwardedAccountTeam)
	}
}
