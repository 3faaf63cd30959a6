package category

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/wiki"
)

// Resolver turns free text into a canonical category and proposes related ones
type Resolver struct {
	svc       wiki.Service
	displayed *Displayed
	logger    *zap.Logger
}

// NewResolver creates a Resolver. displayed may be nil.
func NewResolver(svc wiki.Service, displayed *Displayed, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{svc: svc, displayed: displayed, logger: logger}
}

// ResolveBestCategory returns the best category title for query, or "" when
// nothing usable matches. An exact (case-sensitive) title match beats rank.
// A failed search returns "" with the error.
func (r *Resolver) ResolveBestCategory(ctx context.Context, query string) (string, error) {
	if query == "" {
		return "", nil
	}

	candidates, err := r.svc.SearchCategories(ctx, query)
	if err != nil {
		return "", fmt.Errorf("search categories: %w", err)
	}

	var usable []model.CategoryCandidate
	for _, c := range candidates {
		if IsCardSet(c.Title) {
			usable = append(usable, c)
		}
	}

	for _, c := range usable {
		if c.Title == query {
			r.logger.Debug("exact category match", zap.String("query", query))
			return c.Title, nil
		}
	}

	if len(usable) == 0 {
		r.logger.Debug("no usable category",
			zap.String("query", query),
			zap.Int("candidates", len(candidates)))
		return "", nil
	}

	r.logger.Debug("best category",
		zap.String("query", query),
		zap.String("category", usable[0].Title),
		zap.Bool("spelling_suggestion", usable[0].FromSpellingSuggestion))
	return usable[0].Title, nil
}

// ListSuggestions proposes categories related to previousQuery. The four
// lookups run concurrently and any failure fails the whole call; callers
// show nothing in that case.
func (r *Resolver) ListSuggestions(ctx context.Context, previousQuery string) ([]model.Suggestion, error) {
	if previousQuery == "" {
		return []model.Suggestion{}, nil
	}

	var results [4][]string
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		subcats, err := r.svc.ListSubcategories(gctx, previousQuery)
		results[0] = subcats
		return err
	})
	g.Go(func() error {
		cats, err := r.svc.ListPageCategories(gctx, model.CategoryPrefix+previousQuery)
		results[1] = cats
		return err
	})
	g.Go(func() error {
		cats, err := r.svc.ListPageCategories(gctx, previousQuery)
		results[2] = cats
		return err
	})
	g.Go(func() error {
		candidates, err := r.svc.SearchCategories(gctx, previousQuery)
		titles := make([]string, 0, len(candidates))
		for _, c := range candidates {
			titles = append(titles, c.Title)
		}
		results[3] = titles
		return err
	})

	if err := g.Wait(); err != nil {
		r.logger.Warn("suggestions failed", zap.String("query", previousQuery), zap.Error(err))
		return nil, fmt.Errorf("list suggestions: %w", err)
	}

	sources := [4]model.SuggestionSource{
		model.SourceSubcategories,
		model.SourceCategoriesWithPrefix,
		model.SourceCategoriesWithoutPrefix,
		model.SourceSearch,
	}

	displayed := r.displayed.Get()
	seen := make(map[string]bool)
	out := []model.Suggestion{}
	for i, names := range results {
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true

			if name == previousQuery || name == displayed || !IsCardSet(name) {
				continue
			}
			out = append(out, model.Suggestion{Name: name, Source: sources[i]})
		}
	}
	return out, nil
}
