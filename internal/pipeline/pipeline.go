package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/category"
	"github.com/ppiankov/cardset/internal/curate"
	"github.com/ppiankov/cardset/internal/image"
	"github.com/ppiankov/cardset/internal/logger"
	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/wiki"
	"github.com/ppiankov/cardset/internal/worker"
)

// Pipeline orchestrates query -> category -> members -> entities -> curated set -> images.
// Each Pipeline owns its caches and metrics.
type Pipeline struct {
	svc        wiki.Service
	categories *category.Resolver
	curator    *curate.Curator
	images     *image.Resolver
	displayed  *category.Displayed
	metrics    *metrics.Metrics
	config     *model.Config
	logger     *zap.Logger
	now        func() time.Time
}

// NewPipeline wires the live wiki APIs behind request caches.
// A nil reg gets a private prometheus registry.
func NewPipeline(cfg *model.Config, log *zap.Logger, reg *prometheus.Registry) (*Pipeline, error) {
	log = logger.OrNop(log)
	m := metrics.New(reg)

	client := wiki.NewClient(cfg, m, log)
	remote := wiki.NewRemote(client, cfg.Endpoints, cfg.Concurrency.EntityBatches, log)

	caches, err := wiki.NewCaches(cfg.Cache, m, log)
	if err != nil {
		return nil, fmt.Errorf("create caches: %w", err)
	}

	return NewWithService(cfg, wiki.NewCachedService(remote, caches), m, log), nil
}

// NewWithService builds a pipeline over any wiki.Service. m and log may be nil.
func NewWithService(cfg *model.Config, svc wiki.Service, m *metrics.Metrics, log *zap.Logger) *Pipeline {
	log = logger.OrNop(log)
	if m == nil {
		m = metrics.New(nil)
	}
	displayed := &category.Displayed{}

	return &Pipeline{
		svc:        svc,
		categories: category.NewResolver(svc, displayed, log),
		curator:    curate.NewCurator(m, log),
		images:     image.NewResolver(svc, m, log),
		displayed:  displayed,
		metrics:    m,
		config:     cfg,
		logger:     log,
		now:        time.Now,
	}
}

// Metrics returns the pipeline's counters
func (p *Pipeline) Metrics() *metrics.Metrics {
	return p.metrics
}

// Build turns a free-text query into a curated card set. Empty and unmatched
// queries produce a set with the no-results feedback, not an error. Transport
// failures while resolving the category, listing members or fetching
// entities are returned as errors.
func (p *Pipeline) Build(ctx context.Context, query string) (*model.CardSet, error) {
	set := &model.CardSet{
		RunID:    uuid.NewString(),
		Query:    query,
		Strategy: model.CurationNone,
		Cards:    []model.Card{},
	}
	log := p.logger.With(zap.String("run_id", set.RunID), zap.String("query", query))
	ctx = logger.ContextWithLogger(ctx, log)

	cat, err := p.categories.ResolveBestCategory(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("resolve category: %w", err)
	}
	p.displayed.Set(cat)
	if cat == "" {
		log.Debug("no category")
		return p.finish(set, model.FeedbackNoResults), nil
	}
	set.Category = cat

	members, err := p.svc.ListCategoryMembers(ctx, cat)
	if err != nil {
		return nil, fmt.Errorf("list members of %q: %w", cat, err)
	}
	set.MemberCount = len(members)
	if len(members) == 0 {
		p.displayed.Set("")
		return p.finish(set, model.FeedbackNoResults), nil
	}

	feedback := model.FeedbackComplete
	if len(members) > p.config.Curation.MaxMembers {
		members = members[:min(p.config.Curation.TruncateTo, len(members))]
		set.Truncated = true
		feedback = model.FeedbackTruncated
		log.Debug("category truncated", zap.Int("members", set.MemberCount), zap.Int("kept", len(members)))
	}

	entities, err := p.svc.FetchEntities(ctx, members)
	if err != nil {
		return nil, fmt.Errorf("fetch entities: %w", err)
	}
	set.PreFilterCount = len(entities)

	curated := p.curator.Curate(entities)
	set.CompleteCount = curated.Complete
	set.Strategy = curated.Strategy
	if len(curated.Entities) == 0 {
		return p.finish(set, model.FeedbackNoResults), nil
	}

	cards, err := p.resolveImages(ctx, curated.Entities)
	if err != nil {
		return nil, err
	}
	set.Cards = cards

	log.Info("card set built",
		zap.String("category", cat),
		zap.String("strategy", set.Strategy),
		zap.Int("cards", len(cards)),
		zap.Int("images", set.ImagesFound()))
	return p.finish(set, feedback), nil
}

func (p *Pipeline) finish(set *model.CardSet, feedback string) *model.CardSet {
	set.Feedback = feedback
	set.BuiltAt = p.now().UTC()
	return set
}

// Card looks up a single entity by Wikipedia title or Wikidata id and resolves its image.
// Unknown titles return wiki.ErrNotFound.
func (p *Pipeline) Card(ctx context.Context, titleOrID string) (*model.Card, error) {
	if titleOrID == "" {
		return nil, fmt.Errorf("card: %w", wiki.ErrNotFound)
	}

	entities, err := p.svc.FetchEntities(ctx, []string{titleOrID})
	if err != nil {
		return nil, fmt.Errorf("fetch entity: %w", err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("card %q: %w", titleOrID, wiki.ErrNotFound)
	}

	cards, err := p.resolveImages(ctx, entities[:1])
	if err != nil {
		return nil, err
	}
	return &cards[0], nil
}

// Suggest lists related categories for a query. Failures are logged and
// yield no suggestions.
func (p *Pipeline) Suggest(ctx context.Context, query string) []model.Suggestion {
	suggestions, err := p.categories.ListSuggestions(ctx, query)
	if err != nil {
		p.logger.Warn("suggestions unavailable", zap.String("query", query), zap.Error(err))
		return []model.Suggestion{}
	}
	return suggestions
}

// resolveImages fans image resolution out over the worker pool, keeping entity order
func (p *Pipeline) resolveImages(ctx context.Context, entities []model.Entity) ([]model.Card, error) {
	pool := worker.NewPool(ctx, p.config.Concurrency.ImageWorkers)
	pool.Start()
	for _, e := range entities {
		pool.Submit(&imageJob{entity: e, resolver: p.images})
	}
	results := pool.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cards := make([]model.Card, len(entities))
	for i, e := range entities {
		cards[i] = model.Card{Entity: e}
		if i >= len(results) || results[i] == nil {
			cards[i].GlyphLabels = image.GlyphLabels(e)
			continue
		}

		res := results[i].(*imageResult)
		var noImage *image.NoImageError
		switch {
		case res.err == nil:
			img := res.image
			cards[i].Image = &img
		case errors.As(res.err, &noImage):
			cards[i].GlyphLabels = noImage.Labels
		default:
			return nil, fmt.Errorf("resolve image for %s: %w", e.ID, res.err)
		}
	}
	return cards, nil
}

// imageJob resolves the image of one entity on the worker pool
type imageJob struct {
	entity   model.Entity
	resolver *image.Resolver
}

func (j *imageJob) Execute(ctx context.Context) worker.Result {
	img, err := j.resolver.Resolve(ctx, j.entity)
	return &imageResult{image: img, err: err}
}

type imageResult struct {
	image model.ImageResult
	err   error
}

func (r *imageResult) GetError() error {
	return r.err
}
