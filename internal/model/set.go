package model

import "time"

// Feedback messages shown with a card set
const (
	FeedbackComplete  = "Search complete."
	FeedbackNoResults = "No results found. Please try again."
	FeedbackTruncated = "Too many results found. Showing first section only."
)

// CurationNone is the strategy reported when no homogeneity filter accepted
const CurationNone = "none"

// Card is one curated entity with its resolved image
type Card struct {
	Entity Entity       `json:"entity" yaml:"entity"`
	Image  *ImageResult `json:"image,omitempty" yaml:"image,omitempty"`
	// GlyphLabels is set when no image was found; the presentation layer matches it against its icon table
	GlyphLabels []string `json:"glyph_labels,omitempty" yaml:"glyph_labels,omitempty"`
}

// CardSet is the result of one pipeline run
type CardSet struct {
	RunID          string    `json:"run_id" yaml:"run_id"`
	Query          string    `json:"query" yaml:"query"`
	Category       string    `json:"category" yaml:"category"`
	Feedback       string    `json:"feedback" yaml:"feedback"`
	Truncated      bool      `json:"truncated" yaml:"truncated"`
	MemberCount    int       `json:"member_count" yaml:"member_count"`         // Members listed in the category
	PreFilterCount int       `json:"pre_filter_count" yaml:"pre_filter_count"` // Entities fetched from Wikidata
	CompleteCount  int       `json:"complete_count" yaml:"complete_count"`     // Entities surviving the completeness filter
	Strategy       string    `json:"strategy" yaml:"strategy"`                 // Curation strategy, or "none"
	Cards          []Card    `json:"cards" yaml:"cards"`
	BuiltAt        time.Time `json:"built_at" yaml:"built_at"`
}

// ImagesFound counts cards with an image
func (s *CardSet) ImagesFound() int {
	n := 0
	for _, c := range s.Cards {
		if c.Image != nil {
			n++
		}
	}
	return n
}
