// Package model defines the core domain types shared across the revnet
// simulation engine. All monetary and token values use shopspring/decimal —
// never float64 for money.
package model

import (
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// NormalizeLabel converts an entity display name to its storage key:
// lowercase with all whitespace stripped. This is the join key between
// UI-entered display names and engine-internal balances, so "Angel investor"
// and "angelinvestor" address the same entity.
func NormalizeLabel(label string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, label)
}

// StageDefinition is the caller-supplied configuration for one contiguous
// span of a revnet's lifetime. Splits are fractions of 1 keyed by recipient
// display label; their sum must not exceed 1. DurationDays of 0 means the
// stage lasts forever, which is only meaningful for the last stage — the
// timeline treats the last stage as open-ended regardless.
type StageDefinition struct {
	Splits       map[string]decimal.Decimal `json:"splits"`
	HasCuts      bool                       `json:"has_cuts"`
	IssuanceCut  decimal.Decimal            `json:"issuance_cut"`
	CutPeriod    int                        `json:"cut_period"`
	CashOutTax   decimal.Decimal            `json:"cash_out_tax"`
	DurationDays int                        `json:"duration_days"`
}

// StageConfig is a resolved stage snapshot for a specific day, as returned
// by the stage resolver. InvestorSplit is the remainder fraction after all
// configured splits, floored at zero.
type StageConfig struct {
	Splits        map[string]decimal.Decimal `json:"splits"`
	InvestorSplit decimal.Decimal            `json:"investor_split"`
	HasCuts       bool                       `json:"has_cuts"`
	IssuanceCut   decimal.Decimal            `json:"issuance_cut"`
	CutPeriod     int                        `json:"cut_period"`
	CashOutTax    decimal.Decimal            `json:"cash_out_tax"`
	StageIndex    int                        `json:"stage_index"`
	StageStartDay int                        `json:"stage_start_day"`
	OpenEnded     bool                       `json:"open_ended"`
	DurationDays  int                        `json:"duration_days"`
}

// LoanRecord tracks one loan origination against token collateral.
// Amount is the dollar value of the outstanding principal; on partial
// repayment it is re-marked to the curve value of the remaining collateral.
// RemainingTokens is monotonically non-increasing and never exceeds
// TokensLocked.
type LoanRecord struct {
	Day             int             `json:"day"`
	Amount          decimal.Decimal `json:"amount"`
	TokensLocked    decimal.Decimal `json:"tokens_locked"`
	RemainingTokens decimal.Decimal `json:"remaining_tokens"`
}

// Outstanding reports whether the loan still holds collateral.
func (r LoanRecord) Outstanding() bool {
	return r.RemainingTokens.IsPositive()
}

// LedgerState is the complete system state as of one day, produced fresh by
// each replay. Maps are keyed by normalized entity label.
type LedgerState struct {
	Day              int                        `json:"day"`
	TotalSupply      decimal.Decimal            `json:"total_supply"`
	Backing          decimal.Decimal            `json:"backing"`
	TokensByLabel    map[string]decimal.Decimal `json:"tokens_by_label"`
	OutstandingLoans map[string]decimal.Decimal `json:"outstanding_loans"`
	LoanHistory      map[string][]LoanRecord    `json:"loan_history"`
}

// NewLedgerState returns the empty state for a day.
func NewLedgerState(day int) *LedgerState {
	return &LedgerState{
		Day:              day,
		TotalSupply:      decimal.Zero,
		Backing:          decimal.Zero,
		TokensByLabel:    make(map[string]decimal.Decimal),
		OutstandingLoans: make(map[string]decimal.Decimal),
		LoanHistory:      make(map[string][]LoanRecord),
	}
}

// Clone returns a deep copy, so memoized states can be handed out without
// exposing shared maps to callers.
func (s *LedgerState) Clone() *LedgerState {
	c := &LedgerState{
		Day:              s.Day,
		TotalSupply:      s.TotalSupply,
		Backing:          s.Backing,
		TokensByLabel:    make(map[string]decimal.Decimal, len(s.TokensByLabel)),
		OutstandingLoans: make(map[string]decimal.Decimal, len(s.OutstandingLoans)),
		LoanHistory:      make(map[string][]LoanRecord, len(s.LoanHistory)),
	}
	for k, v := range s.TokensByLabel {
		c.TokensByLabel[k] = v
	}
	for k, v := range s.OutstandingLoans {
		c.OutstandingLoans[k] = v
	}
	for k, loans := range s.LoanHistory {
		c.LoanHistory[k] = append([]LoanRecord(nil), loans...)
	}
	return c
}

// Liability is the outstanding obligation of one entity: curve-marked
// principal plus interest accrued past the grace period.
type Liability struct {
	Principal decimal.Decimal `json:"principal"`
	Interest  decimal.Decimal `json:"interest"`
	Total     decimal.Decimal `json:"total"`
}

// DayFees aggregates the fees generated by all events on a single day.
// Internal fees flow back into the revnet treasury; external (protocol)
// fees leave the system entirely.
type DayFees struct {
	Internal decimal.Decimal `json:"internal"`
	External decimal.Decimal `json:"external"`
}

// DayResult is one point of the replay timeseries consumed by charts and
// results tables.
type DayResult struct {
	Day              int                        `json:"day"`
	Backing          decimal.Decimal            `json:"backing"`
	TotalSupply      decimal.Decimal            `json:"total_supply"`
	TokensByLabel    map[string]decimal.Decimal `json:"tokens_by_label"`
	OutstandingLoans map[string]decimal.Decimal `json:"outstanding_loans"`
	Events           []Event                    `json:"events"`
}

// Scenario bundles an event log with a stage timeline under a name. It is
// the unit of persistence and of JSON import/export.
type Scenario struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description,omitempty"`
	Narrative   string            `json:"narrative,omitempty"`
	Events      []Event           `json:"events"`
	Stages      []StageDefinition `json:"stages"`
	CreatedAt   time.Time         `json:"created_at"`
}
