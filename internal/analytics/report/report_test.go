package report

import (
	"math"
	"testing"
)

func comparison(ai, human, mode string, confidence float64) Comparison {
	return Comparison{
		AIClassification:    ai,
		HumanClassification: human,
		Agreement:           ai == human,
		Mode:                mode,
		AIConfidence:        confidence,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil)
	if r.Total != 0 || r.AgreementRate != 0 {
		t.Errorf("empty report: total=%d rate=%v, want zeros", r.Total, r.AgreementRate)
	}
	if len(r.ConfidenceBuckets) != 4 {
		t.Fatalf("buckets = %d, want 4", len(r.ConfidenceBuckets))
	}
	for _, b := range r.ConfidenceBuckets {
		if b.Total != 0 || b.AgreementRate != 0 {
			t.Errorf("bucket %s not empty: %+v", b.Label, b)
		}
	}
}

func TestBuildAgreementRates(t *testing.T) {
	r := Build([]Comparison{
		comparison("support", "support", "override", 0.92),
		comparison("support", "existing", "override", 0.55),
		comparison("high_quality", "high_quality", "blind", 0.80),
		comparison("irrelevant", "irrelevant", "blind", 0.97),
	})

	if r.Total != 4 || r.Agreements != 3 {
		t.Fatalf("total=%d agreements=%d, want 4/3", r.Total, r.Agreements)
	}
	if !almostEqual(r.AgreementRate, 75) {
		t.Errorf("rate = %v, want 75", r.AgreementRate)
	}

	override := r.ByMode["override"]
	if override.Total != 2 || override.Agreements != 1 || !almostEqual(override.AgreementRate, 50) {
		t.Errorf("override stats = %+v", override)
	}
	blind := r.ByMode["blind"]
	if blind.Total != 2 || blind.Agreements != 2 || !almostEqual(blind.AgreementRate, 100) {
		t.Errorf("blind stats = %+v", blind)
	}
}

func TestAgreementRateIsPercentage(t *testing.T) {
	var comparisons []Comparison
	for i := 0; i < 100; i++ {
		human := "support"
		if i >= 70 {
			human = "existing"
		}
		comparisons = append(comparisons, comparison("support", human, "blind", 0.8))
	}

	r := Build(comparisons)
	if !almostEqual(r.AgreementRate, 70) {
		t.Errorf("rate for 70 of 100 agreements = %v, want 70", r.AgreementRate)
	}
}

func TestBuildConfidenceBuckets(t *testing.T) {
	r := Build([]Comparison{
		comparison("support", "support", "override", 0.1),  // low
		comparison("support", "support", "override", 0.5),  // medium, boundary
		comparison("support", "existing", "override", 0.7), // high, boundary
		comparison("support", "support", "override", 0.89), // high
		comparison("support", "support", "override", 0.9),  // very_high, boundary
		comparison("support", "support", "override", 1.0),  // very_high, top edge
	})

	byLabel := map[string]ConfidenceBucket{}
	for _, b := range r.ConfidenceBuckets {
		byLabel[b.Label] = b
	}
	if byLabel["low"].Total != 1 {
		t.Errorf("low total = %d, want 1", byLabel["low"].Total)
	}
	if byLabel["medium"].Total != 1 {
		t.Errorf("medium total = %d, want 1", byLabel["medium"].Total)
	}
	if byLabel["high"].Total != 2 || byLabel["high"].Agreements != 1 {
		t.Errorf("high bucket = %+v", byLabel["high"])
	}
	if byLabel["very_high"].Total != 2 || !almostEqual(byLabel["very_high"].AgreementRate, 100) {
		t.Errorf("very_high bucket = %+v", byLabel["very_high"])
	}
}

func TestBuildConfusionMatrix(t *testing.T) {
	r := Build([]Comparison{
		comparison("support", "support", "override", 0.9),
		comparison("support", "existing", "override", 0.9),
		comparison("support", "existing", "blind", 0.6),
		comparison("low_quality", "irrelevant", "override", 0.4),
	})

	if got := r.ConfusionMatrix["support"]["support"]; got != 1 {
		t.Errorf("support/support = %d, want 1", got)
	}
	if got := r.ConfusionMatrix["support"]["existing"]; got != 2 {
		t.Errorf("support/existing = %d, want 2", got)
	}
	if got := r.ConfusionMatrix["low_quality"]["irrelevant"]; got != 1 {
		t.Errorf("low_quality/irrelevant = %d, want 1", got)
	}
	if _, ok := r.ConfusionMatrix["irrelevant"]; ok {
		t.Error("unexpected row for classification the AI never produced")
	}
}
