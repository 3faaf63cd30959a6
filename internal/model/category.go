package model

// CategoryCandidate is one result of a category search, in server rank order
type CategoryCandidate struct {
	Title                  string `json:"title" yaml:"title"`                                                           // Without "Category:"
	MatchedFromExactQuery  bool   `json:"matched_from_exact_query" yaml:"matched_from_exact_query"`                     // Title equals the query verbatim
	FromSpellingSuggestion bool   `json:"from_spelling_suggestion,omitempty" yaml:"from_spelling_suggestion,omitempty"` // Substituted by the search's "did you mean"
}

// SuggestionSource records which query produced a suggestion
type SuggestionSource string

const (
	SourceSubcategories           SuggestionSource = "subcategories"             // Subcategories of the query
	SourceCategoriesWithPrefix    SuggestionSource = "categories-with-prefix"    // Parents of "Category:<query>"
	SourceCategoriesWithoutPrefix SuggestionSource = "categories-without-prefix" // Parents of the page "<query>"
	SourceSearch                  SuggestionSource = "search"                    // Free-text category search
)

// Suggestion is a related category offered after a search
type Suggestion struct {
	Name   string           `json:"name" yaml:"name"`
	Source SuggestionSource `json:"source" yaml:"source"`
}
