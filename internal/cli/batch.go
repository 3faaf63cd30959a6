package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/cardset/internal/pipeline"
	"github.com/ppiankov/cardset/internal/worker"
)

var (
	concurrency int
	outputDir   string
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Build card sets for many topics from a file",
	Long: `Batch builds card sets for a list of topics concurrently:
- Read topics from the input file (one per line, # comments allowed)
- Build sets in parallel with a configurable worker count
- All builds share one set of request caches
- Write one output file per topic

Example:
  cardset batch topics.txt
  cardset batch topics.txt --concurrency 4 --output-dir ./sets -o json
  cardset batch topics.txt --timeout 20m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of topics built at once (default: concurrency.workers)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./cardset-sets", "output directory for card sets")
	batchCmd.Flags().Duration("timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := withTimeout(cmd)
	defer cancel()

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	workers := concurrency
	if workers <= 0 {
		workers = a.config.Concurrency.Workers
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Cardset Batch Processing\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(a.pipeline, workers)
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount, failureCount := writeBatchResults(stderr, a.renderer, a.config.Output.Format, outputDir, results)

	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  Batch Complete\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Total:     %d topics\n", len(results))
	fmt.Fprintf(stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if failureCount > 0 && successCount == 0 {
		return fmt.Errorf("all %d topics failed", failureCount)
	}
	return nil
}

// writeBatchResults writes one file per built set and reports progress to log
func writeBatchResults(log io.Writer, renderer *pipeline.Renderer, format, dir string, results []*worker.BuildResult) (success, failure int) {
	for _, result := range results {
		if result.Error != nil {
			failure++
			fmt.Fprintf(log, "✗ %s: %v\n", result.Query, result.Error)
			continue
		}

		path := filepath.Join(dir, sanitizeFilename(result.Query)+fileExtension(format))
		if err := writeSetFile(renderer, path, result); err != nil {
			failure++
			fmt.Fprintf(log, "✗ %s: %v\n", result.Query, err)
			continue
		}

		success++
		set := result.Set
		if set.Category == "" {
			fmt.Fprintf(log, "✓ %s (no results)\n", result.Query)
			continue
		}
		fmt.Fprintf(log, "✓ %s -> %s (%d cards, %s)\n", result.Query, set.Category, len(set.Cards), set.Strategy)
	}
	return success, failure
}

func writeSetFile(renderer *pipeline.Renderer, path string, result *worker.BuildResult) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, closeErr)
		}
	}()
	return renderer.RenderSet(f, result.Set)
}

func fileExtension(format string) string {
	switch format {
	case pipeline.FormatJSON:
		return ".json"
	case pipeline.FormatYAML:
		return ".yaml"
	default:
		return ".txt"
	}
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a topic into a safe file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".")
	if s == "" {
		s = "topic"
	}

	// Limit length
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}
