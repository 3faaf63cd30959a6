package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/cardset/internal/model"
)

// Builder builds the card set for one topic
type Builder interface {
	Build(ctx context.Context, query string) (*model.CardSet, error)
}

// BuildJob builds one topic
type BuildJob struct {
	Query   string
	Builder Builder
}

// Execute runs the build
func (j *BuildJob) Execute(ctx context.Context) Result {
	set, err := j.Builder.Build(ctx, j.Query)
	return &BuildResult{Query: j.Query, Set: set, Error: err}
}

// BuildResult is the outcome of one BuildJob
type BuildResult struct {
	Query string
	Set   *model.CardSet
	Error error
}

// GetError returns the build error
func (r *BuildResult) GetError() error {
	return r.Error
}

// BatchProcessor builds many topics concurrently
type BatchProcessor struct {
	builder     Builder
	concurrency int
}

// NewBatchProcessor creates a batch processor running concurrency builds at once
func NewBatchProcessor(builder Builder, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		builder:     builder,
		concurrency: concurrency,
	}
}

// ProcessTopics builds every topic and returns results in input order
func (b *BatchProcessor) ProcessTopics(ctx context.Context, topics []string) []*BuildResult {
	if len(topics) == 0 {
		return []*BuildResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, topic := range topics {
		pool.Submit(&BuildJob{Query: topic, Builder: b.builder})
	}

	results := pool.Wait()

	out := make([]*BuildResult, len(topics))
	for i, topic := range topics {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*BuildResult)
			continue
		}
		// Never ran: the context ended before a worker picked it up
		err := ctx.Err()
		if err == nil {
			err = context.Canceled
		}
		out[i] = &BuildResult{Query: topic, Error: err}
	}
	return out
}

// ProcessFile reads topics from a file and builds them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*BuildResult, error) {
	topics, err := ReadTopicsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}

	return b.ProcessTopics(ctx, topics), nil
}

// ReadTopicsFromFile reads one topic per line, skipping blanks, # comments and duplicates
func ReadTopicsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var topics []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			topics = append(topics, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return topics, nil
}
