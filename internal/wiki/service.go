package wiki

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/cache"
	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
)

// Service is the remote knowledge contract the pipeline consumes:
// Wikipedia categories, Wikidata entities and Commons images.
type Service interface {
	SearchCategories(ctx context.Context, term string) ([]model.CategoryCandidate, error)
	ListCategoryMembers(ctx context.Context, category string) ([]string, error)
	ListSubcategories(ctx context.Context, category string) ([]string, error)
	ListPageCategories(ctx context.Context, page string) ([]string, error)
	FetchEntities(ctx context.Context, titlesOrIDs []string) ([]model.Entity, error)
	FetchImageByFile(ctx context.Context, fileName string) (model.CommonsImage, error)
	FetchImageByTitle(ctx context.Context, pageTitle string) (model.CommonsImage, error)
	FetchImageByCategory(ctx context.Context, category string) (model.CommonsImage, error)
}

// Remote implements Service against the live MediaWiki APIs
type Remote struct {
	client        *Client
	endpoints     model.EndpointsConfig
	entityBatches int
	logger        *zap.Logger
}

// NewRemote creates a Remote. entityBatches bounds concurrent wbgetentities requests.
func NewRemote(client *Client, endpoints model.EndpointsConfig, entityBatches int, logger *zap.Logger) *Remote {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Remote{
		client:        client,
		endpoints:     endpoints,
		entityBatches: entityBatches,
		logger:        logger,
	}
}

// Caches are the independent request caches of a CachedService.
// Cached slices are shared between callers and must not be modified.
type Caches struct {
	Search          *cache.RequestCache[[]model.CategoryCandidate]
	PageCategories  *cache.RequestCache[[]string]
	ImageByFile     *cache.RequestCache[model.CommonsImage]
	ImageByTitle    *cache.RequestCache[model.CommonsImage]
	ImageByCategory *cache.RequestCache[model.CommonsImage]
}

// cacheable memoizes results and failures, except an open circuit and cancellation
func cacheable(err error) bool {
	return !errors.Is(err, ErrCircuitOpen) && cache.DefaultErrorPolicy(err)
}

// cacheableCategoryLookup also leaves transport failures uncached, so a
// category query that hit a failing host is asked again next time
func cacheableCategoryLookup(err error) bool {
	return cacheable(err) && !IsTransport(err)
}

// NewCaches builds one request cache per memoized operation, each on its own store
func NewCaches(cfg model.CacheConfig, m *metrics.Metrics, logger *zap.Logger) (*Caches, error) {
	search, err := newRequestCache[[]model.CategoryCandidate]("search_categories", cfg, m, logger,
		cache.WithErrorPolicy[[]model.CategoryCandidate](cacheableCategoryLookup))
	if err != nil {
		return nil, err
	}
	pageCats, err := newRequestCache[[]string]("page_categories", cfg, m, logger,
		cache.WithErrorPolicy[[]string](cacheableCategoryLookup))
	if err != nil {
		return nil, err
	}
	byFile, err := newRequestCache[model.CommonsImage]("image_by_file", cfg, m, logger)
	if err != nil {
		return nil, err
	}
	byTitle, err := newRequestCache[model.CommonsImage]("image_by_title", cfg, m, logger)
	if err != nil {
		return nil, err
	}
	byCategory, err := newRequestCache[model.CommonsImage]("image_by_category", cfg, m, logger,
		cache.WithNormalizer[model.CommonsImage](model.StripCategoryPrefix))
	if err != nil {
		return nil, err
	}

	return &Caches{
		Search:          search,
		PageCategories:  pageCats,
		ImageByFile:     byFile,
		ImageByTitle:    byTitle,
		ImageByCategory: byCategory,
	}, nil
}

func newRequestCache[V any](name string, cfg model.CacheConfig, m *metrics.Metrics, logger *zap.Logger, extra ...cache.Option[V]) (*cache.RequestCache[V], error) {
	store, err := cache.NewStore[V](cfg)
	if err != nil {
		return nil, err
	}
	opts := []cache.Option[V]{
		cache.WithErrorPolicy[V](cacheable),
		cache.WithMetrics[V](m),
		cache.WithLogger[V](logger),
	}
	return cache.New[V](name, store, append(opts, extra...)...), nil
}

// CachedService memoizes category search, page categories and the three image
// lookups of an inner Service. Membership and entity fetches pass through.
type CachedService struct {
	Service
	caches *Caches
}

// NewCachedService decorates inner with caches
func NewCachedService(inner Service, caches *Caches) *CachedService {
	return &CachedService{Service: inner, caches: caches}
}

// SearchCategories memoizes Service.SearchCategories
func (s *CachedService) SearchCategories(ctx context.Context, term string) ([]model.CategoryCandidate, error) {
	return s.caches.Search.Do(ctx, term, func(ctx context.Context) ([]model.CategoryCandidate, error) {
		return s.Service.SearchCategories(ctx, term)
	})
}

// ListPageCategories memoizes Service.ListPageCategories
func (s *CachedService) ListPageCategories(ctx context.Context, page string) ([]string, error) {
	return s.caches.PageCategories.Do(ctx, page, func(ctx context.Context) ([]string, error) {
		return s.Service.ListPageCategories(ctx, page)
	})
}

// FetchImageByFile memoizes Service.FetchImageByFile
func (s *CachedService) FetchImageByFile(ctx context.Context, fileName string) (model.CommonsImage, error) {
	return s.caches.ImageByFile.Do(ctx, fileName, func(ctx context.Context) (model.CommonsImage, error) {
		return s.Service.FetchImageByFile(ctx, fileName)
	})
}

// FetchImageByTitle memoizes Service.FetchImageByTitle
func (s *CachedService) FetchImageByTitle(ctx context.Context, pageTitle string) (model.CommonsImage, error) {
	return s.caches.ImageByTitle.Do(ctx, pageTitle, func(ctx context.Context) (model.CommonsImage, error) {
		return s.Service.FetchImageByTitle(ctx, pageTitle)
	})
}

// FetchImageByCategory memoizes Service.FetchImageByCategory; "Venus" and "Category:Venus" share an entry
func (s *CachedService) FetchImageByCategory(ctx context.Context, category string) (model.CommonsImage, error) {
	return s.caches.ImageByCategory.Do(ctx, category, func(ctx context.Context) (model.CommonsImage, error) {
		return s.Service.FetchImageByCategory(ctx, category)
	})
}

var (
	_ Service = (*Remote)(nil)
	_ Service = (*CachedService)(nil)
)
