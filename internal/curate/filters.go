package curate

import (
	"sort"
	"strings"

	"github.com/ppiankov/cardset/internal/model"
)

// Strategy names reported with a curated set
const (
	StrategyPartOfSeries     = "part-of-series"
	StrategyInstanceOfStrict = "instance-of-strict"
	StrategyPartOf           = "part-of"
	StrategyInstanceOfLoose  = "instance-of-loose"
	StrategySubclassOf       = "subclass-of"
)

// filter narrows a set to the entities sharing a dominant property value
type filter struct {
	name     string
	property model.PropertyID
	// minPresence is the fraction of entities that must carry the property; 0 means no gate
	minPresence float64
	// minKept is the fraction of entities the narrowed set must keep; 0 means always accept
	minKept float64
}

// cascade is tried in order; the first filter to accept wins
var cascade = []filter{
	{name: StrategyPartOfSeries, property: model.PropPartOfSeries, minPresence: 0.69},
	{name: StrategyInstanceOfStrict, property: model.PropInstanceOf, minKept: 0.9},
	{name: StrategyPartOf, property: model.PropPartOf, minPresence: 0.55},
	{name: StrategyInstanceOfLoose, property: model.PropInstanceOf, minKept: 0.5},
	{name: StrategySubclassOf, property: model.PropSubclassOf, minPresence: 0.5, minKept: 0.3},
}

// decision is what a filter concluded about a set
type decision struct {
	modal    string
	presence float64
	kept     []model.Entity
	accepted bool
}

// apply runs the filter. It never reorders entities.
func (f filter) apply(entities []model.Entity) decision {
	var d decision
	total := len(entities)
	if total == 0 {
		return d
	}

	var values []string
	present := 0
	for _, e := range entities {
		vs := e.ClaimValues(f.property)
		if len(vs) > 0 {
			present++
		}
		values = append(values, vs...)
	}
	d.presence = float64(present) / float64(total)

	if f.minPresence > 0 && d.presence <= f.minPresence {
		return d
	}

	sort.Strings(values)
	modal, ok := Mode(values)
	if !ok {
		return d
	}
	d.modal = modal

	for _, e := range entities {
		if strings.Contains(e.ClaimValue(f.property), modal) {
			d.kept = append(d.kept, e)
		}
	}

	if f.minKept > 0 && float64(len(d.kept))/float64(total) <= f.minKept {
		return d
	}
	d.accepted = true
	return d
}

// isComplete reports whether an entity carries enough content to be a card
func isComplete(e model.Entity) bool {
	if e.IsDisambiguation() {
		return false
	}
	if e.Descriptions != "" {
		return true
	}

	switch len(e.Claims) {
	case 0:
		return false
	case 1:
		for prop, c := range e.Claims {
			if prop == model.PropFreebaseID || c.Datatype == model.DatatypeExternalID {
				return false
			}
		}
	}
	return true
}
