// Package stage resolves which configuration epoch governs a given day.
//
// A revnet's lifetime is a piecewise timeline of stages, each defining split
// percentages, an optional issuance-cut schedule, and a cash-out tax rate.
// Exactly one stage is active on any day; the last stage is open-ended
// regardless of its configured duration.
package stage

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mejango/rev-sim/internal/curve"
	"github.com/mejango/rev-sim/internal/model"
)

var (
	// ErrNoStages is returned when a timeline is built without any stage.
	ErrNoStages = errors.New("stage: no stage configured")

	// ErrSplitsExceedWhole is returned when a stage's splits sum past 100%.
	ErrSplitsExceedWhole = errors.New("stage: splits exceed 100%")

	// ErrInvalidCutPeriod is returned when cuts are enabled with a
	// non-positive period.
	ErrInvalidCutPeriod = errors.New("stage: cut period must be positive")
)

var one = decimal.NewFromInt(1)

// Timeline is an immutable, validated sequence of stage definitions.
type Timeline struct {
	defs []model.StageDefinition
}

// NewTimeline validates the definitions and builds a timeline. A timeline
// must hold at least one stage, every stage's splits must sum to at most 1,
// and cut-enabled stages need a positive cut period.
func NewTimeline(defs []model.StageDefinition) (*Timeline, error) {
	if len(defs) == 0 {
		return nil, ErrNoStages
	}

	for i, def := range defs {
		total := decimal.Zero
		for _, frac := range def.Splits {
			total = total.Add(frac)
		}
		if total.GreaterThan(one) {
			return nil, fmt.Errorf("%w: stage %d allocates %s", ErrSplitsExceedWhole, i+1, total)
		}
		if def.HasCuts && def.CutPeriod < 1 {
			return nil, fmt.Errorf("%w: stage %d", ErrInvalidCutPeriod, i+1)
		}
	}

	return &Timeline{defs: append([]model.StageDefinition(nil), defs...)}, nil
}

// Len returns the number of stages.
func (t *Timeline) Len() int {
	return len(t.defs)
}

// Definitions returns a copy of the source definitions.
func (t *Timeline) Definitions() []model.StageDefinition {
	return append([]model.StageDefinition(nil), t.defs...)
}

// AtDay returns the resolved stage configuration active on the given day.
// Durations accumulate in order; a non-last stage with zero duration
// expires immediately, and the last stage matches every remaining day.
func (t *Timeline) AtDay(day int) model.StageConfig {
	cumulative := 0
	for i, def := range t.defs {
		last := i == len(t.defs)-1
		if last || (def.DurationDays > 0 && day < cumulative+def.DurationDays) {
			return resolve(def, i, cumulative, last)
		}
		cumulative += def.DurationDays
	}
	// Unreachable: the last stage always matches and NewTimeline rejects
	// empty timelines.
	return model.StageConfig{}
}

// IssuancePriceAt returns the dollars per token minted on the given day
// under the active stage's cut schedule; 1 when the stage has no cuts.
func (t *Timeline) IssuancePriceAt(day int) decimal.Decimal {
	cfg := t.AtDay(day)
	if !cfg.HasCuts {
		return one
	}
	return curve.IssuancePrice(day, cfg.IssuanceCut, cfg.CutPeriod)
}

func resolve(def model.StageDefinition, index, startDay int, last bool) model.StageConfig {
	splits := make(map[string]decimal.Decimal, len(def.Splits))
	total := decimal.Zero
	for label, frac := range def.Splits {
		if label == "" || !frac.IsPositive() {
			continue
		}
		splits[label] = frac
		total = total.Add(frac)
	}

	investorSplit := one.Sub(total)
	if investorSplit.IsNegative() {
		investorSplit = decimal.Zero
	}

	cfg := model.StageConfig{
		Splits:        splits,
		InvestorSplit: investorSplit,
		HasCuts:       def.HasCuts,
		CashOutTax:    def.CashOutTax,
		StageIndex:    index,
		StageStartDay: startDay,
		OpenEnded:     last,
		DurationDays:  def.DurationDays,
	}
	if def.HasCuts {
		cfg.IssuanceCut = def.IssuanceCut
		cfg.CutPeriod = def.CutPeriod
	}
	return cfg
}
