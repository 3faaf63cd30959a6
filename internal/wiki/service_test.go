package wiki

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/model"
)

func newTestCachedService(t *testing.T, remote Service) *CachedService {
	t.Helper()
	caches, err := NewCaches(model.DefaultConfig().Cache, nil, zap.NewNop())
	require.NoError(t, err)
	return NewCachedService(remote, caches)
}

func TestCachedService_ConcurrentCallsShareOneRequest(t *testing.T) {
	var hits atomic.Int32
	release := make(chan struct{})
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		<-release
		writeJSON(w, `{"query":{"pages":[{"pageid":1,"title":"File:Mars.jpg","thumbnail":{"source":"https://upload.wikimedia.org/300px-Mars.jpg"}}]}}`)
	})
	svc := newTestCachedService(t, remote)

	var wg sync.WaitGroup
	results := make([]model.CommonsImage, 5)
	errs := make([]error, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.FetchImageByTitle(context.Background(), "Mars")
		}(i)
	}
	// Give every caller time to join the flight before the server answers
	require.Eventually(t, func() bool { return hits.Load() == 1 }, timeout, tick)
	close(release)
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, "https://upload.wikimedia.org/300px-Mars.jpg", results[i].URL)
	}

	img, err := svc.FetchImageByTitle(context.Background(), "Mars")
	require.NoError(t, err)
	assert.Equal(t, "File:Mars.jpg", img.Title)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCachedService_CategoryPrefixSharesEntry(t *testing.T) {
	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, `{"query":{"pages":[{"pageid":1,"title":"File:Venus.jpg","imageinfo":[{"thumburl":"https://upload.wikimedia.org/300px-Venus.jpg"}]}]}}`)
	})
	svc := newTestCachedService(t, remote)

	a, err := svc.FetchImageByCategory(context.Background(), "Venus")
	require.NoError(t, err)
	b, err := svc.FetchImageByCategory(context.Background(), "Category:Venus")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCachedService_MemoizesNotFound(t *testing.T) {
	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, `{"batchcomplete":true}`)
	})
	svc := newTestCachedService(t, remote)

	for i := 0; i < 3; i++ {
		_, err := svc.FetchImageByFile(context.Background(), "Missing.jpg")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, int32(1), hits.Load())
}

func TestCachedService_OpenCircuitIsNotCached(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	var healthy atomic.Bool
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, `{"query":{"pages":[{"pageid":1,"title":"File:Io.jpg","thumbnail":{"source":"https://upload.wikimedia.org/300px-Io.jpg"}}]}}`)
	}, func(cfg *model.Config) {
		cfg.HTTP.MaxRetries = 0
		cfg.Breaker.MaxFailures = 1
		cfg.Breaker.Timeout = 50 * time.Millisecond
	})
	svc := newTestCachedService(t, remote)
	ctx := context.Background()

	// Trips the breaker; a transport failure on another key
	_, err := svc.FetchImageByTitle(ctx, "Europa")
	require.Error(t, err)

	_, err = svc.FetchImageByTitle(ctx, "Io")
	require.ErrorIs(t, err, ErrCircuitOpen)
	_, ok := svc.caches.ImageByTitle.Peek("Io")
	assert.False(t, ok)

	healthy.Store(true)
	require.Eventually(t, func() bool {
		img, err := svc.FetchImageByTitle(ctx, "Io")
		return err == nil && img.Title == "File:Io.jpg"
	}, timeout, tick)
}

func TestCachedService_CategoryTransportFailureIsNotCached(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	var healthy atomic.Bool
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if !healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, `{"query":{"pages":[{"title":"Mars","categories":[{"title":"Category:Planets of the Solar System"}]}]}}`)
	}, func(cfg *model.Config) {
		cfg.HTTP.MaxRetries = 0
	})
	svc := newTestCachedService(t, remote)
	ctx := context.Background()

	_, err := svc.ListPageCategories(ctx, "Mars")
	require.Error(t, err)
	assert.True(t, IsTransport(err))
	_, ok := svc.caches.PageCategories.Peek("Mars")
	assert.False(t, ok)

	_, err = svc.SearchCategories(ctx, "planets")
	require.Error(t, err)
	_, ok = svc.caches.Search.Peek("planets")
	assert.False(t, ok)

	healthy.Store(true)
	cats, err := svc.ListPageCategories(ctx, "Mars")
	require.NoError(t, err)
	assert.Equal(t, []string{"Planets of the Solar System"}, cats)
	assert.Equal(t, int32(3), hits.Load())
}

func TestCachedService_PassesThroughMembership(t *testing.T) {
	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, `{"query":{"categorymembers":[{"ns":0,"title":"Mars"}]}}`)
	})
	svc := newTestCachedService(t, remote)

	for i := 0; i < 2; i++ {
		members, err := svc.ListCategoryMembers(context.Background(), "Planets")
		require.NoError(t, err)
		assert.Equal(t, []string{"Mars"}, members)
	}
	assert.Equal(t, int32(2), hits.Load())
}
