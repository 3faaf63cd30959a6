package cli

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/pipeline"
)

var (
	showStats bool
	noSuggest bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <topic>",
	Short: "Build the card set for a topic",
	Long: `Search resolves a topic to a Wikipedia category and builds its card set:
- Find the best matching category (exact title wins, then search rank)
- Fetch the Wikidata entities of its members
- Keep the homogeneous subset via the curation cascade
- Pick one Commons image per card

Example:
  cardset search "Planets of the solar system"
  cardset search carnivorous plants -v
  cardset search presidents -o json --stats`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().Duration("timeout", 2*time.Minute, "overall timeout")
	searchCmd.Flags().BoolVar(&showStats, "stats", false, "print request, cache and strategy counters to stderr")
	searchCmd.Flags().BoolVar(&noSuggest, "no-suggest", false, "skip related category suggestions")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	ctx, cancel := withTimeout(cmd)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "Searching: %s\n", query)
	}

	set, err := a.pipeline.Build(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var suggest func(ctx context.Context, query string) []model.Suggestion
	if !noSuggest {
		suggest = a.pipeline.Suggest
	}
	if err := writeSearchResult(ctx, cmd.OutOrStdout(), a.renderer, a.config.Output.Format, set, suggest); err != nil {
		return err
	}

	if showStats {
		return writeStats(cmd.ErrOrStderr(), a.pipeline.Metrics())
	}
	return nil
}

// writeSearchResult renders set followed by related categories for its query.
// Suggestions are offered whether or not a category matched; a nil suggest skips them.
func writeSearchResult(ctx context.Context, w io.Writer, renderer *pipeline.Renderer, format string, set *model.CardSet, suggest func(ctx context.Context, query string) []model.Suggestion) error {
	if err := renderer.RenderSet(w, set); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	if suggest == nil || set.Query == "" || !isText(format) {
		return nil
	}
	suggestions := suggest(ctx, set.Query)
	if len(suggestions) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	if err := renderer.RenderSuggestions(w, suggestions); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

// isText reports whether format renders as plain text, which can mix sets and suggestions
func isText(format string) bool {
	return format == "" || format == pipeline.FormatText
}

// writeStats prints every non-zero counter, one per line
func writeStats(w io.Writer, m *metrics.Metrics) error {
	samples, err := m.Snapshot()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}

	fmt.Fprintf(w, "\n")
	for _, s := range samples {
		fmt.Fprintf(w, "  %s%s %g\n", s.Name, formatLabels(s.Labels), s.Value)
	}
	return nil
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%q", k, labels[k])
	}
	return "{" + strings.Join(parts, ",") + "}"
}
