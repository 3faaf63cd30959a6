package wiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/model"
)

// newTestRemote serves all three APIs from one httptest server under /wikipedia, /wikidata and /commons
func newTestRemote(t *testing.T, handler http.HandlerFunc, tweak ...func(*model.Config)) *Remote {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := model.DefaultConfig()
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.RateLimiting.RequestsPerSecond = 1000
	cfg.RateLimiting.BurstSize = 1000
	cfg.Endpoints = model.EndpointsConfig{
		Wikipedia: server.URL + "/wikipedia",
		Wikidata:  server.URL + "/wikidata",
		Commons:   server.URL + "/commons",
	}
	for _, fn := range tweak {
		fn(cfg)
	}

	client := NewClient(cfg, nil, zap.NewNop())
	return NewRemote(client, cfg.Endpoints, 2, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, body)
}

// noSleep disables retry backoff for the duration of a test
func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(ctx context.Context, d time.Duration) error { return nil }
	t.Cleanup(func() { fetchSleepFunc = orig })
}

const (
	timeout = 2 * time.Second
	tick    = 10 * time.Millisecond
)
