// Package validation implements the eager admission checks that run before
// an event enters a scenario's log.
//
// The ledger fold itself degrades gracefully on economically invalid input
// (it clamps loan collateral and lets over-cashouts go negative); this
// package is the uniform reject-with-typed-error discipline applied at the
// boundary, so invalid events never reach the log in the first place.
// Checks evaluate against the state at the end of the day before the event.
package validation

import (
	"errors"
	"fmt"

	"github.com/mejango/rev-sim/internal/ledger"
	"github.com/mejango/rev-sim/internal/model"
)

var (
	// ErrNonPositiveAmount is returned for zero or negative amounts.
	ErrNonPositiveAmount = errors.New("validation: event amount must be positive")

	// ErrNegativeDay is returned for events dated before day 0.
	ErrNegativeDay = errors.New("validation: event day must be >= 0")

	// ErrInsufficientTokens is returned when a loan or cash-out asks for
	// more tokens than the entity has available.
	ErrInsufficientTokens = errors.New("validation: insufficient available tokens")

	// ErrNoOutstandingLoans is returned when a repayment targets an entity
	// with no open loans.
	ErrNoOutstandingLoans = errors.New("validation: no outstanding loans to repay")

	// ErrExceedsCollateral is returned when a repayment would uncollateralize
	// more tokens than are locked.
	ErrExceedsCollateral = errors.New("validation: repayment exceeds collateralized tokens")
)

// CheckEvent validates one candidate event against the engine's state as of
// the day before it. A nil error means the event is safe to admit.
func CheckEvent(eng *ledger.Engine, ev model.Event) error {
	if ev.Day < 0 {
		return fmt.Errorf("%w: day %d", ErrNegativeDay, ev.Day)
	}
	if !ev.Amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrNonPositiveAmount, ev.Amount)
	}

	switch ev.Kind {
	case model.KindInvestment, model.KindRevenue:
		return nil

	case model.KindLoan, model.KindCashout:
		available := eng.AvailableTokens(ev.Label, ev.Day-1)
		if ev.Amount.GreaterThan(available) {
			return fmt.Errorf("%w: %s requested %s, has %s available",
				ErrInsufficientTokens, ev.Entity(), ev.Amount, available)
		}
		return nil

	case model.KindRepay:
		collateralized := eng.CollateralizedTokens(ev.Label, ev.Day-1)
		if collateralized.IsZero() {
			return fmt.Errorf("%w: %s", ErrNoOutstandingLoans, ev.Entity())
		}
		if ev.Amount.GreaterThan(collateralized) {
			return fmt.Errorf("%w: %s requested %s, has %s collateralized",
				ErrExceedsCollateral, ev.Entity(), ev.Amount, collateralized)
		}
		return nil

	default:
		return fmt.Errorf("%w: %q", model.ErrInvalidEventType, ev.Kind)
	}
}
