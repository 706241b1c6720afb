package domain

import "testing"

var testThresholds = Thresholds{
	HighQuality: 0.8,
	LowQuality:  0.9,
	Support:     0.85,
	Existing:    0.85,
	Irrelevant:  0.95,
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name           string
		classification Classification
		confidence     float64
		wantAction     Action
		wantThreshold  float64
	}{
		{"low quality above threshold auto-sends", ClassificationLowQuality, 0.95, ActionAutoSend, 0.9},
		{"low quality at threshold auto-sends", ClassificationLowQuality, 0.9, ActionAutoSend, 0.9},
		{"low quality below threshold waits", ClassificationLowQuality, 0.89, ActionRequireReview, 0.9},
		{"support above threshold auto-forwards", ClassificationSupport, 0.9, ActionAutoSend, 0.85},
		{"existing above threshold auto-forwards", ClassificationExisting, 0.99, ActionAutoSend, 0.85},
		{"irrelevant below threshold waits", ClassificationIrrelevant, 0.9, ActionRequireReview, 0.95},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Decide(tc.classification, tc.confidence, testThresholds)
			if got.Action != tc.wantAction {
				t.Errorf("Decide action = %q, want %q", got.Action, tc.wantAction)
			}
			if got.AppliedThreshold != tc.wantThreshold {
				t.Errorf("Decide threshold = %v, want %v", got.AppliedThreshold, tc.wantThreshold)
			}
			if got.NeedsReview != (tc.wantAction == ActionRequireReview) {
				t.Errorf("Decide needsReview = %v inconsistent with action %q", got.NeedsReview, got.Action)
			}
		})
	}
}

func TestDecideHighQualityNeverAutoSends(t *testing.T) {
	// Hard invariant: meeting offers always require human approval,
	// even at maximum confidence.
	for _, confidence := range []float64{0.0, 0.8, 0.99, 1.0} {
		got := Decide(ClassificationHighQuality, confidence, testThresholds)
		if got.Action != ActionRequireReview {
			t.Errorf("confidence %v: action = %q, want %q", confidence, got.Action, ActionRequireReview)
		}
		if !got.NeedsReview {
			t.Errorf("confidence %v: needsReview = false, want true", confidence)
		}
	}
}
