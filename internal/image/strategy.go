package image

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// ErrDeclined means a strategy had no input to work with
var ErrDeclined = errors.New("strategy declined")

// Strategy is one named way of producing a T
type Strategy[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// TryInOrder runs strategies one after another and returns the first success.
// If every strategy fails, the error combines each failure, prefixed with the
// strategy name. A cancelled ctx stops the chain early.
func TryInOrder[T any](ctx context.Context, strategies []Strategy[T]) (T, error) {
	var zero T
	var errs error

	for _, s := range strategies {
		if err := ctx.Err(); err != nil {
			return zero, multierr.Append(errs, err)
		}

		v, err := s.Run(ctx)
		if err == nil {
			return v, nil
		}
		errs = multierr.Append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}

	if errs == nil {
		errs = ErrDeclined
	}
	return zero, errs
}
