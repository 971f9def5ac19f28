package validation

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mejango/rev-sim/internal/ledger"
	"github.com/mejango/rev-sim/internal/model"
	"github.com/mejango/rev-sim/internal/stage"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// seededEngine holds a $10 day-0 investment by "Angel investor" under a 50%
// Team split, leaving the investor 5 tokens.
func seededEngine(t *testing.T, extra ...model.Event) *ledger.Engine {
	t.Helper()

	tl, err := stage.NewTimeline([]model.StageDefinition{{
		Splits:     map[string]decimal.Decimal{"Team": d(0.5)},
		CashOutTax: d(0.1),
	}})
	if err != nil {
		t.Fatalf("timeline: %v", err)
	}

	events := append([]model.Event{
		{Day: 0, Kind: model.KindInvestment, Amount: d(10), Label: "Angel investor"},
	}, extra...)

	eng, err := ledger.NewEngine(model.NewEventLog(events), tl)
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng
}

func TestCheckEvent_NegativeDay(t *testing.T) {
	eng := seededEngine(t)
	err := CheckEvent(eng, model.Event{Day: -1, Kind: model.KindInvestment, Amount: d(1)})
	if !errors.Is(err, ErrNegativeDay) {
		t.Errorf("expected ErrNegativeDay, got %v", err)
	}
}

func TestCheckEvent_NonPositiveAmount(t *testing.T) {
	eng := seededEngine(t)
	for _, amount := range []float64{0, -5} {
		err := CheckEvent(eng, model.Event{Day: 1, Kind: model.KindRevenue, Amount: d(amount)})
		if !errors.Is(err, ErrNonPositiveAmount) {
			t.Errorf("amount %v: expected ErrNonPositiveAmount, got %v", amount, err)
		}
	}
}

func TestCheckEvent_IssuanceAlwaysValid(t *testing.T) {
	eng := seededEngine(t)
	for _, kind := range []model.EventKind{model.KindInvestment, model.KindRevenue} {
		err := CheckEvent(eng, model.Event{Day: 1, Kind: kind, Amount: d(1000000), Label: "x"})
		if err != nil {
			t.Errorf("%s: unexpected error: %v", kind, err)
		}
	}
}

func TestCheckEvent_LoanWithinAvailable(t *testing.T) {
	eng := seededEngine(t)
	err := CheckEvent(eng, model.Event{Day: 1, Kind: model.KindLoan, Amount: d(5), Label: "Angel investor"})
	if err != nil {
		t.Errorf("loan of full balance should pass, got %v", err)
	}
}

func TestCheckEvent_LoanExceedsAvailable(t *testing.T) {
	eng := seededEngine(t)
	err := CheckEvent(eng, model.Event{Day: 1, Kind: model.KindLoan, Amount: d(5.1), Label: "Angel investor"})
	if !errors.Is(err, ErrInsufficientTokens) {
		t.Errorf("expected ErrInsufficientTokens, got %v", err)
	}
}

func TestCheckEvent_CashoutExceedsAvailable(t *testing.T) {
	// One token already locked as collateral, so only 4 are available.
	eng := seededEngine(t, model.Event{Day: 1, Kind: model.KindLoan, Amount: d(1), Label: "Angel investor"})

	err := CheckEvent(eng, model.Event{Day: 2, Kind: model.KindCashout, Amount: d(4.5), Label: "Angel investor"})
	if !errors.Is(err, ErrInsufficientTokens) {
		t.Errorf("expected ErrInsufficientTokens against encumbered balance, got %v", err)
	}

	err = CheckEvent(eng, model.Event{Day: 2, Kind: model.KindCashout, Amount: d(4), Label: "Angel investor"})
	if err != nil {
		t.Errorf("cash-out of available balance should pass, got %v", err)
	}
}

func TestCheckEvent_RepayWithoutLoans(t *testing.T) {
	eng := seededEngine(t)
	err := CheckEvent(eng, model.Event{Day: 1, Kind: model.KindRepay, Amount: d(1), Label: "Angel investor"})
	if !errors.Is(err, ErrNoOutstandingLoans) {
		t.Errorf("expected ErrNoOutstandingLoans, got %v", err)
	}
}

func TestCheckEvent_RepayExceedsCollateral(t *testing.T) {
	eng := seededEngine(t, model.Event{Day: 1, Kind: model.KindLoan, Amount: d(1), Label: "Angel investor"})

	err := CheckEvent(eng, model.Event{Day: 2, Kind: model.KindRepay, Amount: d(2), Label: "Angel investor"})
	if !errors.Is(err, ErrExceedsCollateral) {
		t.Errorf("expected ErrExceedsCollateral, got %v", err)
	}

	err = CheckEvent(eng, model.Event{Day: 2, Kind: model.KindRepay, Amount: d(1), Label: "Angel investor"})
	if err != nil {
		t.Errorf("repay of full collateral should pass, got %v", err)
	}
}

func TestCheckEvent_UnknownKind(t *testing.T) {
	eng := seededEngine(t)
	err := CheckEvent(eng, model.Event{Day: 1, Kind: "borrow", Amount: d(1)})
	if !errors.Is(err, model.ErrInvalidEventType) {
		t.Errorf("expected ErrInvalidEventType, got %v", err)
	}
}
