package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/logger"
	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
	"github.com/ppiankov/cardset/internal/util"
	"github.com/ppiankov/cardset/internal/worker"
)

// fetchSleepFunc is the wait used between retries; tests replace it
var fetchSleepFunc = sleepContext

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Client performs MediaWiki API GET requests with rate limiting, retries and
// a circuit breaker per API host.
type Client struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	maxRetries int
	limiter    *worker.Limiter
	breakerCfg model.BreakerConfig
	metrics    *metrics.Metrics
	logger     *zap.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewClient creates a Client from configuration. m and logger may be nil.
func NewClient(cfg *model.Config, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxBytes := cfg.HTTP.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = model.DefaultConfig().HTTP.MaxBodyBytes
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(cfg.HTTP.HTTPProxy, cfg.HTTP.HTTPSProxy, cfg.HTTP.NoProxy)

	return &Client{
		httpClient: &http.Client{
			Timeout:   cfg.HTTP.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:  cfg.HTTP.UserAgent,
		maxBytes:   maxBytes,
		maxRetries: cfg.HTTP.MaxRetries,
		limiter:    worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize),
		breakerCfg: cfg.Breaker,
		metrics:    m,
		logger:     logger,
		breakers:   make(map[string]*Breaker),
	}
}

// request describes one API call
type request struct {
	service   string // wikipedia, wikidata, commons
	operation string
	endpoint  string
	params    url.Values
}

// getJSON performs the request, retrying transient failures, and decodes the body into out
func (c *Client) getJSON(ctx context.Context, r request, out any) error {
	params := url.Values{}
	for k, v := range r.params {
		params[k] = v
	}
	params.Set("format", "json")
	params.Set("formatversion", "2")
	rawURL := r.endpoint + "?" + params.Encode()

	log := logger.FromContext(ctx, c.logger)
	log.Debug("wiki request",
		zap.String("service", r.service),
		zap.String("operation", r.operation),
		zap.String("url", rawURL))

	var err error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<uint(attempt-1)) * 500 * time.Millisecond
			log.Debug("retrying wiki request",
				zap.String("operation", r.operation),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
				zap.Error(err))
			if sleepErr := fetchSleepFunc(ctx, backoff); sleepErr != nil {
				err = fmt.Errorf("retry backoff: %w", sleepErr)
				break
			}
		}

		err = c.do(ctx, rawURL, out)
		if err == nil || !isRetryable(err) {
			break
		}
	}

	c.record(r, err)
	if err != nil {
		return fmt.Errorf("%s %s: %w", r.service, r.operation, err)
	}
	return nil
}

// do performs a single attempt
func (c *Client) do(ctx context.Context, rawURL string, out any) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse url: %w", err)
	}

	if err := c.limiter.Wait(ctx, rawURL); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}

	var body []byte
	err = c.breaker(parsed.Host).Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fetch: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, c.maxBytes))
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var envelope struct {
		Error *APIError `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	if envelope.Error != nil {
		return envelope.Error
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %v", errDecode, err)
	}
	return nil
}

// breaker returns the circuit breaker for a host
func (c *Client) breaker(host string) *Breaker {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, ok := c.breakers[host]
	if !ok {
		b = NewBreaker(host, c.breakerCfg, c.logger)
		c.breakers[host] = b
	}
	return b
}

// BreakerState returns the breaker state for a host ("closed" if never used)
func (c *Client) BreakerState(host string) string {
	c.mu.Lock()
	b, ok := c.breakers[host]
	c.mu.Unlock()

	if !ok {
		return "closed"
	}
	return b.State()
}

func (c *Client) record(r request, err error) {
	if c.metrics == nil {
		return
	}

	status := metrics.StatusOK
	if err != nil {
		status = metrics.StatusError
	}
	c.metrics.RemoteRequestsTotal.WithLabelValues(r.service, r.operation, status).Inc()
}
