package wiki

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/model"
)

// Breaker wraps gobreaker to stop hammering an API host that keeps failing.
//
// When closed, requests pass through. After MaxFailures consecutive transport
// failures the circuit opens and requests fail fast with ErrCircuitOpen. After
// Timeout it half-opens and lets HalfOpenMax trial requests through.
type Breaker struct {
	breaker *gobreaker.CircuitBreaker
}

// NewBreaker creates a breaker for one host
func NewBreaker(name string, cfg model.BreakerConfig, logger *zap.Logger) *Breaker {
	if cfg.MaxFailures == 0 {
		cfg.MaxFailures = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.HalfOpenMax == 0 {
		cfg.HalfOpenMax = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.HalfOpenMax,
		Interval:    0, // Don't clear counts periodically
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return !countsAgainstBreaker(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("host", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &Breaker{breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Execute runs fn through the breaker.
// If the circuit is open, it returns ErrCircuitOpen without calling fn.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrCircuitOpen
	}
	return err
}

// State returns "closed", "open" or "half-open"
func (b *Breaker) State() string {
	return b.breaker.State().String()
}
