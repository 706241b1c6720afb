package domain

// Action is the auto-routing policy's verdict for a classification result.
type Action string

const (
	// ActionAutoSend allows the category's terminal action to proceed
	// without a human gate.
	ActionAutoSend Action = "auto_send"
	// ActionRequireReview queues the lead for human review.
	ActionRequireReview Action = "require_review"
)

// Thresholds holds the per-category confidence thresholds from the active
// configuration. A bot classification at or above its category threshold
// may resolve the lead without human intervention.
type Thresholds struct {
	HighQuality float64 `json:"highQuality" yaml:"high_quality"`
	LowQuality  float64 `json:"lowQuality" yaml:"low_quality"`
	Support     float64 `json:"support" yaml:"support"`
	Existing    float64 `json:"existing" yaml:"existing"`
	Irrelevant  float64 `json:"irrelevant" yaml:"irrelevant"`
}

// For returns the threshold configured for the given classification.
func (t Thresholds) For(c Classification) float64 {
	switch c {
	case ClassificationHighQuality:
		return t.HighQuality
	case ClassificationLowQuality:
		return t.LowQuality
	case ClassificationSupport:
		return t.Support
	case ClassificationExisting:
		return t.Existing
	case ClassificationIrrelevant:
		return t.Irrelevant
	}
	return 1.0
}

// Decision is the outcome of the auto-routing policy.
type Decision struct {
	Action           Action
	NeedsReview      bool
	AppliedThreshold float64
}

// Decide applies the auto-routing policy to a bot classification result.
// Meeting offers are the deliberate exception: a high_quality classification
// never auto-sends, even at maximum confidence; a human must approve the
// generated email before it leaves the system.
func Decide(c Classification, confidence float64, thresholds Thresholds) Decision {
	applied := thresholds.For(c)

	if c == ClassificationHighQuality {
		return Decision{Action: ActionRequireReview, NeedsReview: true, AppliedThreshold: applied}
	}

	if confidence >= applied {
		return Decision{Action: ActionAutoSend, NeedsReview: false, AppliedThreshold: applied}
	}

	return Decision{Action: ActionRequireReview, NeedsReview: true, AppliedThreshold: applied}
}
