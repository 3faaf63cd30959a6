package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/cardset/internal/model"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Renderer writes card sets, single cards and suggestions in one format
type Renderer struct {
	format  string
	verbose bool
}

// NewRenderer creates a renderer. verbose adds diagnostics and claims to text output.
func NewRenderer(format string, verbose bool) (*Renderer, error) {
	switch format {
	case "", FormatText:
		format = FormatText
	case FormatJSON, FormatYAML:
	default:
		return nil, fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
	}
	return &Renderer{format: format, verbose: verbose}, nil
}

// RenderSet writes a card set
func (r *Renderer) RenderSet(w io.Writer, set *model.CardSet) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(w, set)
	case FormatYAML:
		return writeYAML(w, set)
	}

	fmt.Fprintf(w, "%s\n", set.Feedback)
	if set.Category == "" {
		return nil
	}
	fmt.Fprintf(w, "Category: %s (%d cards)\n", set.Category, len(set.Cards))
	if r.verbose {
		fmt.Fprintf(w, "  members: %d, fetched: %d, complete: %d, strategy: %s, images: %d/%d\n",
			set.MemberCount, set.PreFilterCount, set.CompleteCount, set.Strategy, set.ImagesFound(), len(set.Cards))
	}
	fmt.Fprintln(w)

	for _, card := range set.Cards {
		r.writeCard(w, card)
	}
	return nil
}

// RenderCard writes one card with all displayable claims
func (r *Renderer) RenderCard(w io.Writer, card *model.Card) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(w, card)
	case FormatYAML:
		return writeYAML(w, card)
	}

	verbose := r.verbose
	r.verbose = true
	r.writeCard(w, *card)
	r.verbose = verbose
	return nil
}

// RenderSuggestions writes related categories
func (r *Renderer) RenderSuggestions(w io.Writer, suggestions []model.Suggestion) error {
	switch r.format {
	case FormatJSON:
		return writeJSON(w, suggestions)
	case FormatYAML:
		return writeYAML(w, suggestions)
	}

	if len(suggestions) == 0 {
		return nil
	}
	fmt.Fprintln(w, "You could try:")
	for _, s := range suggestions {
		if r.verbose {
			fmt.Fprintf(w, "  - %s (%s)\n", s.Name, s.Source)
		} else {
			fmt.Fprintf(w, "  - %s\n", s.Name)
		}
	}
	return nil
}

// groupOrder is the order claim groups are printed in
var groupOrder = []model.DisplayGroup{
	model.GroupFacts,
	model.GroupDates,
	model.GroupMeasure,
	model.GroupPlace,
	model.GroupMedia,
	model.GroupLinks,
}

func (r *Renderer) writeCard(w io.Writer, card model.Card) {
	e := card.Entity
	label := e.Labels
	if label == "" {
		label = e.ID
	}

	if e.Descriptions != "" {
		fmt.Fprintf(w, "● %s: %s\n", label, e.Descriptions)
	} else {
		fmt.Fprintf(w, "● %s\n", label)
	}

	if card.Image != nil {
		fmt.Fprintf(w, "    image: %s [%s]\n", card.Image.SourceURL, card.Image.Caption)
		if r.verbose && (card.Image.Credit != "" || card.Image.License != "") {
			fmt.Fprintf(w, "    credit: %s\n", strings.TrimSpace(card.Image.Credit+" "+card.Image.License))
		}
	} else if r.verbose && len(card.GlyphLabels) > 0 {
		fmt.Fprintf(w, "    glyph: %s\n", strings.Join(card.GlyphLabels, ", "))
	}

	if !r.verbose {
		return
	}

	groups := e.DisplayClaims()
	for _, g := range groupOrder {
		claims := groups[g]
		sort.SliceStable(claims, func(i, j int) bool { return claims[i].Label < claims[j].Label })
		for _, c := range claims {
			fmt.Fprintf(w, "    %s: %s\n", c.Label, c.Value)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
