// Package report computes human versus AI agreement statistics from the
// recorded comparison events.
package report

import "time"

// Comparison is one recorded human/AI comparison. Mode is "override" when
// a reviewer overruled the bot's pending classification, "blind" when the
// bot finished after the human had already decided.
type Comparison struct {
	AIClassification    string    `json:"aiClassification"`
	AIConfidence        float64   `json:"aiConfidence"`
	HumanClassification string    `json:"humanClassification"`
	Agreement           bool      `json:"agreement"`
	Mode                string    `json:"mode"`
	RecordedAt          time.Time `json:"recordedAt"`
}

// ModeStats is the agreement breakdown for one comparison mode. Rates
// are percentages in [0,100].
type ModeStats struct {
	Total         int     `json:"total"`
	Agreements    int     `json:"agreements"`
	AgreementRate float64 `json:"agreementRate"`
}

// ConfidenceBucket groups comparisons by the AI's reported confidence.
type ConfidenceBucket struct {
	Label         string  `json:"label"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Total         int     `json:"total"`
	Agreements    int     `json:"agreements"`
	AgreementRate float64 `json:"agreementRate"`
}

// Report is the full agreement report. AgreementRate is a percentage;
// 70 agreements out of 100 comparisons reports as 70.
type Report struct {
	Total             int                       `json:"total"`
	Agreements        int                       `json:"agreements"`
	AgreementRate     float64                   `json:"agreementRate"`
	ByMode            map[string]ModeStats      `json:"byMode"`
	ConfidenceBuckets []ConfidenceBucket        `json:"confidenceBuckets"`
	ConfusionMatrix   map[string]map[string]int `json:"confusionMatrix"`
}

func newBuckets() []ConfidenceBucket {
	return []ConfidenceBucket{
		{Label: "low", Min: 0, Max: 0.5},
		{Label: "medium", Min: 0.5, Max: 0.7},
		{Label: "high", Min: 0.7, Max: 0.9},
		{Label: "very_high", Min: 0.9, Max: 1.0},
	}
}

// bucketIndex places a confidence value in its half-open bucket; 1.0
// belongs to the top bucket.
func bucketIndex(buckets []ConfidenceBucket, confidence float64) int {
	for i, b := range buckets {
		if confidence >= b.Min && confidence < b.Max {
			return i
		}
	}
	if confidence >= buckets[len(buckets)-1].Max {
		return len(buckets) - 1
	}
	return 0
}

// Build folds the comparisons into a report. Input order does not matter
// and no fields are assumed to be pre-validated beyond the type.
func Build(comparisons []Comparison) Report {
	r := Report{
		ByMode:            make(map[string]ModeStats),
		ConfidenceBuckets: newBuckets(),
		ConfusionMatrix:   make(map[string]map[string]int),
	}

	for _, c := range comparisons {
		r.Total++
		if c.Agreement {
			r.Agreements++
		}

		mode := r.ByMode[c.Mode]
		mode.Total++
		if c.Agreement {
			mode.Agreements++
		}
		r.ByMode[c.Mode] = mode

		i := bucketIndex(r.ConfidenceBuckets, c.AIConfidence)
		r.ConfidenceBuckets[i].Total++
		if c.Agreement {
			r.ConfidenceBuckets[i].Agreements++
		}

		row := r.ConfusionMatrix[c.AIClassification]
		if row == nil {
			row = make(map[string]int)
			r.ConfusionMatrix[c.AIClassification] = row
		}
		row[c.HumanClassification]++
	}

	r.AgreementRate = rate(r.Agreements, r.Total)
	for mode, stats := range r.ByMode {
		stats.AgreementRate = rate(stats.Agreements, stats.Total)
		r.ByMode[mode] = stats
	}
	for i := range r.ConfidenceBuckets {
		b := &r.ConfidenceBuckets[i]
		b.AgreementRate = rate(b.Agreements, b.Total)
	}
	return r
}

func rate(agreements, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(agreements) / float64(total) * 100
}
