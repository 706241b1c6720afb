// Package domain provides core business rules for the leads bounded context:
// the classification enum, the append-only classification history, terminal
// state derivation, and the auto-routing policy. Everything here is pure:
// no I/O, no clocks beyond timestamps passed in.
package domain

import "fmt"

// Classification is the category assigned to a lead. It is a closed enum;
// routing, terminal outcomes, and thresholds are all keyed off it.
type Classification string

const (
	// ClassificationHighQuality is a promising sales inquiry that should
	// receive a personalized meeting offer.
	ClassificationHighQuality Classification = "high_quality"
	// ClassificationLowQuality is a low-value inquiry that receives a
	// generic reply.
	ClassificationLowQuality Classification = "low_quality"
	// ClassificationSupport is a support request that is forwarded to the
	// support team.
	ClassificationSupport Classification = "support"
	// ClassificationExisting is an inquiry from an existing customer (or a
	// duplicate), forwarded to the account team.
	ClassificationExisting Classification = "existing"
	// ClassificationIrrelevant is spam or an otherwise dead inquiry.
	ClassificationIrrelevant Classification = "irrelevant"
)

// Classifications lists every valid classification.
var Classifications = []Classification{
	ClassificationHighQuality,
	ClassificationLowQuality,
	ClassificationSupport,
	ClassificationExisting,
	ClassificationIrrelevant,
}

// classificationAliases maps the legacy category names that appeared in
// earlier iterations of the product onto the canonical enum.
var classificationAliases = map[string]Classification{
	"high-quality": ClassificationHighQuality,
	"quality":      ClassificationHighQuality,
	"low-quality":  ClassificationLowQuality,
	"low-value":    ClassificationLowQuality,
	"existing":     ClassificationExisting,
	"duplicate":    ClassificationExisting,
	"dead":         ClassificationIrrelevant,
	"spam":         ClassificationIrrelevant,
}

// ParseClassification normalizes a raw category string to the canonical
// enum, accepting legacy aliases. Returns an error for unknown categories;
// callers must never fall back to a default classification.
func ParseClassification(raw string) (Classification, error) {
	c := Classification(raw)
	for _, known := range Classifications {
		if c == known {
			return known, nil
		}
	}
	if alias, ok := classificationAliases[raw]; ok {
		return alias, nil
	}
	return "", fmt.Errorf("unknown classification %q", raw)
}

// IsValid reports whether c is one of the five canonical categories.
func (c Classification) IsValid() bool {
	for _, known := range Classifications {
		if c == known {
			return true
		}
	}
	return false
}

// Author identifies who made a classification decision.
type Author string

const (
	// AuthorBot marks an entry produced by the automated classifier.
	AuthorBot Author = "bot"
	// AuthorHuman marks an entry produced by a reviewer.
	AuthorHuman Author = "human"
)
