// Package ledger implements the revnet state machine: a pure, deterministic
// replay of the event log that produces treasury backing, token supply,
// per-entity balances, and the outstanding loan book as of any day.
//
// "State machine" here means a fold, not a long-lived process: every query
// recomputes from scratch over the day-ordered event prefix, so concurrent
// queries for different days are trivially safe. Per-day results are
// memoized inside the engine as a pure optimization — engine inputs are
// immutable, so the cache never needs invalidation.
package ledger

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mejango/rev-sim/internal/curve"
	"github.com/mejango/rev-sim/internal/metrics"
	"github.com/mejango/rev-sim/internal/model"
	"github.com/mejango/rev-sim/internal/stage"
)

// Engine replays a fixed event log against a fixed stage timeline.
// A changed scenario gets a new engine; an engine never mutates its inputs.
type Engine struct {
	log    model.EventLog
	stages *stage.Timeline

	mu   sync.Mutex
	memo map[int]*model.LedgerState
}

// NewEngine builds an engine over an event log and a validated timeline.
func NewEngine(log model.EventLog, stages *stage.Timeline) (*Engine, error) {
	if stages == nil {
		return nil, stage.ErrNoStages
	}
	return &Engine{
		log:    log,
		stages: stages,
		memo:   make(map[int]*model.LedgerState),
	}, nil
}

// Log returns the engine's event log.
func (e *Engine) Log() model.EventLog {
	return e.log
}

// Stages returns the engine's stage timeline.
func (e *Engine) Stages() *stage.Timeline {
	return e.stages
}

// MaxDay returns the last event day, or -1 for an empty log.
func (e *Engine) MaxDay() int {
	return e.log.MaxDay()
}

// StateAt returns the complete ledger state as of the end of targetDay.
// Days before the first event (including negative days) yield the empty
// state. The returned value is a private copy.
func (e *Engine) StateAt(targetDay int) *model.LedgerState {
	e.mu.Lock()
	defer e.mu.Unlock()

	if st, ok := e.memo[targetDay]; ok {
		return st.Clone()
	}

	start := time.Now()
	st := e.replay(targetDay)
	metrics.ReplayDuration.Observe(time.Since(start).Seconds())

	e.memo[targetDay] = st
	return st.Clone()
}

// replay folds the event prefix day ≤ targetDay into a fresh state.
func (e *Engine) replay(targetDay int) *model.LedgerState {
	st := model.NewLedgerState(targetDay)

	for _, ev := range e.log.UpTo(targetDay) {
		switch ev.Kind {
		case model.KindInvestment, model.KindRevenue:
			e.applyIssuance(st, ev)
		case model.KindCashout:
			e.applyCashout(st, ev)
		case model.KindLoan:
			e.applyLoan(st, ev)
		case model.KindRepay:
			e.applyRepay(st, ev)
		}
	}
	return st
}

// applyIssuance handles investment and revenue: dollars enter the treasury
// and tokens are minted at the stage's issuance price, then distributed.
func (e *Engine) applyIssuance(st *model.LedgerState, ev model.Event) {
	st.Backing = st.Backing.Add(ev.Amount)

	price := e.stages.IssuancePriceAt(ev.Day)
	minted := ev.Amount.Div(price)
	st.TotalSupply = st.TotalSupply.Add(minted)

	e.distribute(st, minted, ev.Day, ev.Entity())
}

// distribute credits each stage split its rounded share of the minted
// tokens and the exact remainder (minted − Σ rounded shares) to the payer,
// so no tokens vanish to rounding.
func (e *Engine) distribute(st *model.LedgerState, minted decimal.Decimal, day int, payer string) {
	cfg := e.stages.AtDay(day)

	distributed := decimal.Zero
	for _, label := range sortedSplitLabels(cfg.Splits) {
		share := minted.Mul(cfg.Splits[label]).Round(0)
		key := model.NormalizeLabel(label)
		st.TokensByLabel[key] = st.TokensByLabel[key].Add(share)
		distributed = distributed.Add(share)
	}

	if payer != "" {
		st.TokensByLabel[payer] = st.TokensByLabel[payer].Add(minted.Sub(distributed))
	}
}

// applyCashout burns tokens and pays out their curve value. Balances are
// deliberately not clamped here — over-cashout is a caller-validation
// concern (see internal/validation) and produces a negative balance.
func (e *Engine) applyCashout(st *model.LedgerState, ev model.Event) {
	cfg := e.stages.AtDay(ev.Day)
	value := curve.CashOutValue(ev.Amount, st.TotalSupply, st.Backing, cfg.CashOutTax)

	st.Backing = st.Backing.Sub(value)
	st.TotalSupply = st.TotalSupply.Sub(ev.Amount)

	entity := ev.Entity()
	st.TokensByLabel[entity] = st.TokensByLabel[entity].Sub(ev.Amount)
}

// applyLoan locks collateral (clamped to the entity's balance), values it
// on the curve at pre-loan supply and backing, and nets the loan minus the
// internal fee out of the treasury. Collateralized tokens stay in
// TokensByLabel; only the loan record marks them as encumbered.
func (e *Engine) applyLoan(st *model.LedgerState, ev model.Event) {
	entity := ev.Entity()

	locked := ev.Amount
	balance := st.TokensByLabel[entity]
	if locked.GreaterThan(balance) {
		slog.Warn("loan collateral clamped to balance",
			"entity", entity,
			"requested", locked.String(),
			"balance", balance.String(),
		)
		locked = balance
	}

	cfg := e.stages.AtDay(ev.Day)
	loanAmount := curve.CashOutValue(locked, st.TotalSupply, st.Backing, cfg.CashOutTax)
	fees := curve.FeesForLoan(loanAmount)

	// The protocol fee leaves the system entirely; only the internal fee
	// returns to the treasury.
	st.OutstandingLoans[entity] = st.OutstandingLoans[entity].Add(loanAmount)
	st.Backing = st.Backing.Sub(loanAmount).Add(fees.Internal)

	st.LoanHistory[entity] = append(st.LoanHistory[entity], model.LoanRecord{
		Day:             ev.Day,
		Amount:          loanAmount,
		TokensLocked:    locked,
		RemainingTokens: locked,
	})
}

// applyRepay amortizes the oldest outstanding loan FIFO: the repaid tokens
// are uncollateralized, the record is re-marked to the curve value of the
// remaining collateral, and the recovered principal plus accrued interest
// flows back into the treasury. Interest mints new tokens through the same
// issuance path as revenue, with the remainder going to the repayer.
func (e *Engine) applyRepay(st *model.LedgerState, ev model.Event) {
	entity := ev.Entity()

	loans := st.LoanHistory[entity]
	idx := -1
	for i, ln := range loans {
		if ln.Outstanding() {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	oldest := loans[idx]

	toUncollateralize := decimal.Min(ev.Amount, oldest.RemainingTokens)
	remainingCollateral := oldest.RemainingTokens.Sub(toUncollateralize)

	cfg := e.stages.AtDay(ev.Day)
	newAmount := curve.CashOutValue(remainingCollateral, st.TotalSupply, st.Backing, cfg.CashOutTax)

	returned := oldest.Amount.Sub(newAmount)
	interest := returned.Mul(curve.InterestRate(ev.Day - oldest.Day))

	st.Backing = st.Backing.Add(returned).Add(interest)

	loans[idx] = model.LoanRecord{
		Day:             oldest.Day,
		Amount:          newAmount,
		TokensLocked:    oldest.TokensLocked,
		RemainingTokens: remainingCollateral,
	}
	st.LoanHistory[entity] = loans

	// The aggregate tracks the single active loan line per entity: the new
	// curve value replaces the old amount outright.
	st.OutstandingLoans[entity] = newAmount

	if interest.IsPositive() {
		price := e.stages.IssuancePriceAt(ev.Day)
		minted := interest.Div(price)
		st.TotalSupply = st.TotalSupply.Add(minted)
		e.distribute(st, minted, ev.Day, entity)
	}
}

// sortedSplitLabels gives split iteration a deterministic order so replays
// are bit-identical across runs.
func sortedSplitLabels(splits map[string]decimal.Decimal) []string {
	labels := make([]string, 0, len(splits))
	for label := range splits {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}
