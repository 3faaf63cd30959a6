package wiki

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
)

func queryRequest(remote *Remote) request {
	return request{
		service:   "wikipedia",
		operation: "test",
		endpoint:  remote.endpoints.Wikipedia,
		params:    url.Values{"action": {"query"}},
	}
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "2", r.URL.Query().Get("formatversion"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, `{"ok":true}`)
	})

	var out struct {
		OK bool `json:"ok"`
	}
	err := remote.client.getJSON(context.Background(), queryRequest(remote), &out)
	require.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetJSON_GivesUpAfterMaxRetries(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}, func(cfg *model.Config) {
		cfg.HTTP.MaxRetries = 1
	})

	err := remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{})
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "wikipedia test:")
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetJSON_NotFoundIsNotRetried(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	err := remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetJSON_TooManyRequestsIsRetried(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, `{}`)
	})

	require.NoError(t, remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{}))
	assert.Equal(t, int32(2), hits.Load())
}

func TestGetJSON_APIError(t *testing.T) {
	noSleep(t)

	tests := []struct {
		code     string
		wantHits int32
	}{
		{"badvalue", 1},
		{"maxlag", 3}, // Retried up to MaxRetries
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			var hits atomic.Int32
			remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
				hits.Add(1)
				writeJSON(w, fmt.Sprintf(`{"error":{"code":%q,"info":"something went wrong"}}`, tt.code))
			})

			err := remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{})
			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "something went wrong", apiErr.Info)
			assert.Equal(t, tt.wantHits, hits.Load())
		})
	}
}

func TestGetJSON_MalformedBody(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, `<html>not json</html>`)
	})

	err := remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{})
	assert.ErrorIs(t, err, errDecode)
	assert.True(t, IsTransport(err))
	assert.Equal(t, int32(1), hits.Load())
}

func TestGetJSON_CircuitBreakerOpens(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, func(cfg *model.Config) {
		cfg.HTTP.MaxRetries = 0
		cfg.Breaker.MaxFailures = 2
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		err := remote.client.getJSON(ctx, queryRequest(remote), &struct{}{})
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
	}

	err := remote.client.getJSON(ctx, queryRequest(remote), &struct{}{})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsTransport(err))
	assert.Equal(t, int32(2), hits.Load())

	u, _ := url.Parse(remote.endpoints.Wikipedia)
	assert.Equal(t, "open", remote.client.BreakerState(u.Host))
	assert.Equal(t, "closed", remote.client.BreakerState("unused.example.org"))
}

func TestGetJSON_ClientErrorsDoNotTripBreaker(t *testing.T) {
	noSleep(t)

	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}, func(cfg *model.Config) {
		cfg.Breaker.MaxFailures = 1
	})

	for i := 0; i < 3; i++ {
		err := remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{})
		assert.NotErrorIs(t, err, ErrCircuitOpen)
	}
	assert.Equal(t, int32(3), hits.Load())
}

func TestGetJSON_CancelledContext(t *testing.T) {
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := remote.client.getJSON(ctx, queryRequest(remote), &struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGetJSON_CancelledDuringBackoff(t *testing.T) {
	var hits atomic.Int32
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	orig := fetchSleepFunc
	fetchSleepFunc = func(ctx context.Context, d time.Duration) error {
		cancel()
		return sleepContext(ctx, time.Minute)
	}
	t.Cleanup(func() { fetchSleepFunc = orig })

	start := time.Now()
	err := remote.client.getJSON(ctx, queryRequest(remote), &struct{}{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), timeout)
	assert.Equal(t, int32(1), hits.Load())
}

func TestSleepContext(t *testing.T) {
	require.NoError(t, sleepContext(context.Background(), time.Millisecond))

	ctx, cancel := context.WithTimeout(context.Background(), tick)
	defer cancel()
	assert.ErrorIs(t, sleepContext(ctx, time.Minute), context.DeadlineExceeded)
}

func TestGetJSON_RecordsMetrics(t *testing.T) {
	m := metrics.New(nil)
	remote := newTestRemote(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{}`)
	})
	remote.client.metrics = m

	require.NoError(t, remote.client.getJSON(context.Background(), queryRequest(remote), &struct{}{}))

	samples, err := m.Snapshot()
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, "cardset_remote_requests_total", samples[0].Name)
	assert.Equal(t, map[string]string{"service": "wikipedia", "operation": "test", "status": "ok"}, samples[0].Labels)
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("fetch: %w", context.DeadlineExceeded), false},
		{"circuit open", ErrCircuitOpen, false},
		{"decode", fmt.Errorf("%w: eof", errDecode), false},
		{"server error", &StatusError{StatusCode: 503}, true},
		{"rate limited", &StatusError{StatusCode: 429}, true},
		{"client error", &StatusError{StatusCode: 404}, false},
		{"maxlag", &APIError{Code: "maxlag"}, true},
		{"ratelimited", &APIError{Code: "ratelimited"}, true},
		{"bad param", &APIError{Code: "badvalue"}, false},
		{"network", errors.New("connection reset by peer"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryable(tt.err))
		})
	}
}

func TestIsTransport(t *testing.T) {
	assert.False(t, IsTransport(nil))
	assert.False(t, IsTransport(fmt.Errorf("%q: %w", "Mars", ErrNotFound)))
	assert.False(t, IsTransport(fmt.Errorf("x: %w", ErrNoAcceptableResult)))
	assert.True(t, IsTransport(&StatusError{StatusCode: 500}))
	assert.True(t, IsTransport(ErrCircuitOpen))
}
