package image

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/wiki"
)

// Source is the part of the remote service images are fetched from
type Source interface {
	FetchImageByFile(ctx context.Context, fileName string) (model.CommonsImage, error)
	FetchImageByTitle(ctx context.Context, pageTitle string) (model.CommonsImage, error)
	FetchImageByCategory(ctx context.Context, category string) (model.CommonsImage, error)
}

// Resolver picks one representative image per entity
type Resolver struct {
	src     Source
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewResolver creates a Resolver. m and logger may be nil.
func NewResolver(src Source, m *metrics.Metrics, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{src: src, metrics: m, logger: logger}
}

// Resolve tries, in order: the P18 image file, the P935 gallery, the Commons
// sitelink and the P373 category. A transport failure on one strategy moves on
// to the next. When all fail the error is a *NoImageError.
func (r *Resolver) Resolve(ctx context.Context, entity model.Entity) (model.ImageResult, error) {
	strategies := []Strategy[model.ImageResult]{
		{Name: string(model.StrategyDirectFile), Run: r.fromClaim(entity, model.PropImage, model.StrategyDirectFile, r.src.FetchImageByFile)},
		{Name: string(model.StrategyGalleryTitle), Run: r.fromClaim(entity, model.PropCommonsGallery, model.StrategyGalleryTitle, r.src.FetchImageByTitle)},
		{Name: "sitelink-commons", Run: r.fromSitelink(entity)},
		{Name: string(model.StrategyCategory), Run: r.fromClaim(entity, model.PropCommonsCategory, model.StrategyCategory, r.src.FetchImageByCategory)},
	}

	res, err := TryInOrder(ctx, strategies)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return model.ImageResult{}, ctxErr
		}
		r.logger.Debug("no image", zap.String("entity", entity.ID), zap.Error(err))
		return model.ImageResult{}, &NoImageError{
			EntityID: entity.ID,
			Labels:   GlyphLabels(entity),
			Attempts: err,
		}
	}

	r.logger.Debug("image resolved",
		zap.String("entity", entity.ID),
		zap.String("strategy", string(res.Strategy)),
		zap.String("url", res.SourceURL))
	return res, nil
}

type fetchFunc func(ctx context.Context, name string) (model.CommonsImage, error)

// fromClaim builds a strategy that feeds the first value of prop to fetch
func (r *Resolver) fromClaim(entity model.Entity, prop model.PropertyID, strategy model.ImageStrategy, fetch fetchFunc) func(context.Context) (model.ImageResult, error) {
	return func(ctx context.Context) (model.ImageResult, error) {
		c, ok := entity.Claim(prop)
		if !ok || c.First() == "" {
			r.record(string(strategy), nil, true)
			return model.ImageResult{}, ErrDeclined
		}
		return r.fetch(ctx, strategy, c.First(), fetch)
	}
}

// fromSitelink follows the entity's Commons sitelink to a category or gallery page
func (r *Resolver) fromSitelink(entity model.Entity) func(context.Context) (model.ImageResult, error) {
	return func(ctx context.Context) (model.ImageResult, error) {
		title, ok := entity.CommonsTitle()
		if !ok || title == "" {
			r.record(string(model.StrategySitelinkCommonsPage), nil, true)
			return model.ImageResult{}, ErrDeclined
		}
		if strings.HasPrefix(title, model.CategoryPrefix) {
			return r.fetch(ctx, model.StrategySitelinkCommonsCategory, title, r.src.FetchImageByCategory)
		}
		return r.fetch(ctx, model.StrategySitelinkCommonsPage, title, r.src.FetchImageByTitle)
	}
}

func (r *Resolver) fetch(ctx context.Context, strategy model.ImageStrategy, input string, fetch fetchFunc) (model.ImageResult, error) {
	img, err := fetch(ctx, input)
	r.record(string(strategy), err, false)
	if err != nil {
		if wiki.IsTransport(err) {
			r.logger.Debug("image strategy failed",
				zap.String("strategy", string(strategy)),
				zap.String("input", input),
				zap.Error(err))
		}
		return model.ImageResult{}, err
	}

	return model.ImageResult{
		SourceURL: img.URL,
		Strategy:  strategy,
		Caption:   strategy.Caption(),
		FileTitle: img.Title,
		Credit:    img.Credit,
		License:   img.License,
	}, nil
}

func (r *Resolver) record(strategy string, err error, declined bool) {
	if r.metrics == nil {
		return
	}

	outcome := metrics.StatusOK
	switch {
	case declined:
		outcome = metrics.StatusDeclined
	case errors.Is(err, wiki.ErrNotFound), errors.Is(err, wiki.ErrNoAcceptableResult):
		outcome = metrics.StatusNotFound
	case err != nil:
		outcome = metrics.StatusError
	}
	r.metrics.ImageStrategyTotal.WithLabelValues(strategy, outcome).Inc()
}

// GlyphLabels returns the instance-of, subclass-of and part-of values of an
// entity, de-duplicated in that order, followed by its label.
func GlyphLabels(entity model.Entity) []string {
	var out []string
	seen := make(map[string]bool)
	for _, prop := range []model.PropertyID{model.PropInstanceOf, model.PropSubclassOf, model.PropPartOf} {
		for _, v := range entity.ClaimValues(prop) {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	if entity.Labels != "" {
		out = append(out, entity.Labels)
	}
	return out
}
