package domain

import "time"

// ClassificationEntry is one immutable decision in a lead's classification
// history. Corrections are modeled by prepending a new entry, never by
// editing an existing one, so the full decision trail survives for audit
// and agreement analytics.
type ClassificationEntry struct {
	Author           Author         `json:"author"`
	Classification   Classification `json:"classification"`
	Timestamp        time.Time      `json:"timestamp"`
	NeedsReview      bool           `json:"needsReview,omitempty"`
	AppliedThreshold *float64       `json:"appliedThreshold,omitempty"`
}

// History is the ordered classification log, newest first. Entry 0, when
// present, is the authoritative current classification.
type History []ClassificationEntry

// Prepend returns a new history with entry at the front. The receiver is
// not mutated; persistence appends through an atomic store primitive and
// this type only mirrors what the store holds.
func (h History) Prepend(entry ClassificationEntry) History {
	out := make(History, 0, len(h)+1)
	out = append(out, entry)
	out = append(out, h...)
	return out
}

// Current returns the authoritative current classification entry.
func (h History) Current() (ClassificationEntry, bool) {
	if len(h) == 0 {
		return ClassificationEntry{}, false
	}
	return h[0], true
}

// PreviousAuthor reports who made the decision the current entry replaced.
// Used to distinguish a human override of a bot classification from a
// freestanding human classification.
func (h History) PreviousAuthor() (Author, bool) {
	if len(h) < 2 {
		return "", false
	}
	return h[1].Author, true
}
