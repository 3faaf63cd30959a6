package curate

import (
	"go.uber.org/zap"

	"github.com/ppiankov/cardset/internal/metrics"
	"github.com/ppiankov/cardset/internal/model"
)

// Result is a curated set and how it was chosen
type Result struct {
	Entities []model.Entity
	Strategy string // A Strategy* name or model.CurationNone
	Complete int    // Entities that passed the completeness filter
}

// Curator narrows the entities of one category to a homogeneous subset
type Curator struct {
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCurator creates a Curator. m and logger may be nil.
func NewCurator(m *metrics.Metrics, logger *zap.Logger) *Curator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Curator{metrics: m, logger: logger}
}

// Curate drops incomplete entities, then applies the first homogeneity filter
// that accepts. When none accepts the complete entities are returned as they are.
// The result is always an order-preserving subset of the input.
func (c *Curator) Curate(entities []model.Entity) Result {
	complete := make([]model.Entity, 0, len(entities))
	for _, e := range entities {
		if isComplete(e) {
			complete = append(complete, e)
		}
	}

	res := Result{Entities: complete, Strategy: model.CurationNone, Complete: len(complete)}
	if len(complete) == 0 {
		return res
	}

	for _, f := range cascade {
		d := f.apply(complete)
		c.logger.Debug("curation filter",
			zap.String("strategy", f.name),
			zap.Float64("presence", d.presence),
			zap.String("modal", d.modal),
			zap.Int("kept", len(d.kept)),
			zap.Int("total", len(complete)),
			zap.Bool("accepted", d.accepted))

		if d.accepted {
			res.Entities = d.kept
			res.Strategy = f.name
			break
		}
	}

	if c.metrics != nil {
		c.metrics.CurationStrategyTotal.WithLabelValues(res.Strategy).Inc()
	}
	return res
}
