package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/mejango/rev-sim/internal/curve"
	"github.com/mejango/rev-sim/internal/model"
)

// CollateralizedTokens returns the tokens an entity holds that are
// encumbered by open loans as of the given day.
func (e *Engine) CollateralizedTokens(label string, day int) decimal.Decimal {
	st := e.StateAt(day)
	return collateralized(st, model.NormalizeLabel(label))
}

// AvailableTokens returns the entity's unencumbered balance: total tokens
// minus collateralized tokens, floored at zero.
func (e *Engine) AvailableTokens(label string, day int) decimal.Decimal {
	st := e.StateAt(day)
	key := model.NormalizeLabel(label)

	available := st.TokensByLabel[key].Sub(collateralized(st, key))
	if available.IsNegative() {
		return decimal.Zero
	}
	return available
}

// OutstandingLiability sums, over the entity's open loans, the curve-marked
// principal and the interest accrued past the grace period. Read-only
// projection; nothing is repaid.
func (e *Engine) OutstandingLiability(label string, day int) model.Liability {
	st := e.StateAt(day)

	liability := model.Liability{
		Principal: decimal.Zero,
		Interest:  decimal.Zero,
		Total:     decimal.Zero,
	}
	for _, loan := range st.LoanHistory[model.NormalizeLabel(label)] {
		if !loan.Outstanding() {
			continue
		}
		liability.Principal = liability.Principal.Add(loan.Amount)
		liability.Interest = liability.Interest.Add(loan.Amount.Mul(curve.InterestRate(day - loan.Day)))
	}
	liability.Total = liability.Principal.Add(liability.Interest)
	return liability
}

// LoanPotential returns the curve value of the entity's available tokens
// against a "full" system view: treasury inflated by every outstanding loan
// amount and supply inflated by every locked token. This answers what the
// entity could borrow right now at current system health, as if all other
// encumbrances were unwound. Zero when the entity has nothing available or
// the supply is degenerate.
func (e *Engine) LoanPotential(label string, day int) decimal.Decimal {
	st := e.StateAt(day)
	key := model.NormalizeLabel(label)

	available := st.TokensByLabel[key].Sub(collateralized(st, key))
	if available.Sign() <= 0 || st.TotalSupply.Sign() <= 0 {
		return decimal.Zero
	}

	fullTreasury := st.Backing
	for _, amount := range st.OutstandingLoans {
		fullTreasury = fullTreasury.Add(amount)
	}

	fullSupply := st.TotalSupply
	for _, loans := range st.LoanHistory {
		for _, loan := range loans {
			fullSupply = fullSupply.Add(loan.RemainingTokens)
		}
	}

	cfg := e.stages.AtDay(day)
	return curve.CashOutValue(available, fullSupply, fullTreasury, cfg.CashOutTax)
}

// CashOutPotential returns the curve value of the entity's available tokens
// at the actual (non-inflated) supply and backing of the given day.
func (e *Engine) CashOutPotential(label string, day int) decimal.Decimal {
	st := e.StateAt(day)
	key := model.NormalizeLabel(label)

	available := st.TokensByLabel[key].Sub(collateralized(st, key))
	if available.Sign() <= 0 {
		return decimal.Zero
	}

	cfg := e.stages.AtDay(day)
	return curve.CashOutValue(available, st.TotalSupply, st.Backing, cfg.CashOutTax)
}

// TotalFeesForDay re-derives the internal and external fees generated by
// the events dated exactly day, replaying state as of day-1 and applying
// the same formulas the fold uses. Pure recomputation, no cached
// side-channel.
func (e *Engine) TotalFeesForDay(day int) model.DayFees {
	fees := model.DayFees{Internal: decimal.Zero, External: decimal.Zero}

	events := e.log.ForDay(day)
	if len(events) == 0 {
		return fees
	}

	prior := e.StateAt(day - 1)
	cfg := e.stages.AtDay(day)

	for _, ev := range events {
		switch ev.Kind {
		case model.KindLoan:
			loanAmount := curve.CashOutValue(ev.Amount, prior.TotalSupply, prior.Backing, cfg.CashOutTax)
			loanFees := curve.FeesForLoan(loanAmount)
			fees.Internal = fees.Internal.Add(loanFees.Internal)
			fees.External = fees.External.Add(loanFees.Protocol)

		case model.KindRepay:
			for _, loan := range prior.LoanHistory[ev.Entity()] {
				if !loan.Outstanding() {
					continue
				}
				fees.Internal = fees.Internal.Add(loan.Amount.Mul(curve.InterestRate(day - loan.Day)))
			}

		case model.KindCashout:
			value := curve.CashOutValue(ev.Amount, prior.TotalSupply, prior.Backing, cfg.CashOutTax)
			fees.External = fees.External.Add(value.Mul(curve.CashOutProtocolFeeRate))
		}
	}
	return fees
}

// TotalInvested sums the investment and revenue dollars attributed to the
// label up to and including the given day.
func (e *Engine) TotalInvested(label string, day int) decimal.Decimal {
	key := model.NormalizeLabel(label)

	total := decimal.Zero
	for _, ev := range e.log.UpTo(day) {
		if ev.Kind != model.KindInvestment && ev.Kind != model.KindRevenue {
			continue
		}
		if ev.Entity() == key {
			total = total.Add(ev.Amount)
		}
	}
	return total
}

// Timeseries replays every day from 0 through the last event day and
// collects the per-day results consumed by charts and results tables.
// Returns nil for an empty log.
func (e *Engine) Timeseries() []model.DayResult {
	maxDay := e.log.MaxDay()
	if maxDay < 0 {
		return nil
	}

	results := make([]model.DayResult, 0, maxDay+1)
	for day := 0; day <= maxDay; day++ {
		st := e.StateAt(day)
		results = append(results, model.DayResult{
			Day:              day,
			Backing:          st.Backing,
			TotalSupply:      st.TotalSupply,
			TokensByLabel:    st.TokensByLabel,
			OutstandingLoans: st.OutstandingLoans,
			Events:           e.log.ForDay(day),
		})
	}
	return results
}

func collateralized(st *model.LedgerState, key string) decimal.Decimal {
	total := decimal.Zero
	for _, loan := range st.LoanHistory[key] {
		total = total.Add(loan.RemainingTokens)
	}
	return total
}
