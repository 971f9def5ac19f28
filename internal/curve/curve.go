// Package curve implements the revnet bonding curve and its fee schedule.
//
// The curve is the system's sole pricing primitive: the same formula values
// cash-outs, loan originations, and loan potential. The cash-out tax rate
// interpolates the payout between a linear pro-rata share (tax = 0) and a
// quadratic exit-penalizing share (tax = 1):
//
//	value = (treasury * x / supply) * ((1 - tax) + (x * tax / supply))
//
// All monetary values use shopspring/decimal — never float64 for money.
// Transcendental math (the interest exponential, the issuance-cut power)
// runs through float64 and is immediately converted back to decimal.
package curve

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	// InternalLoanFeeRate is charged on loan origination and returned to
	// the revnet treasury.
	InternalLoanFeeRate = decimal.NewFromFloat(0.025)

	// ProtocolLoanFeeRate is charged on loan origination and leaves the
	// system entirely.
	ProtocolLoanFeeRate = decimal.NewFromFloat(0.035)

	// CashOutProtocolFeeRate is the external fee charged on cash-out value.
	CashOutProtocolFeeRate = decimal.NewFromFloat(0.05)
)

const (
	// GracePeriodDays is how long a loan accrues no interest at all.
	GracePeriodDays = 180

	// AnnualInterestRate is the continuous compounding rate applied after
	// the grace period.
	AnnualInterestRate = 0.05

	daysPerYear = 365
)

var one = decimal.NewFromInt(1)

// CashOutValue returns the dollar value of cashing out `tokens` against the
// given supply and treasury at the stage's cash-out tax rate. Returns zero
// for a non-positive supply (degenerate system).
//
// Monotonically increasing in tokens on (0, supply].
func CashOutValue(tokens, supply, treasury, taxRate decimal.Decimal) decimal.Decimal {
	if supply.Sign() <= 0 {
		return decimal.Zero
	}

	proRata := treasury.Mul(tokens).Div(supply)
	weight := one.Sub(taxRate).Add(tokens.Mul(taxRate).Div(supply))
	return proRata.Mul(weight)
}

// IssuancePrice returns the dollars required to mint one token on `day`
// under a cut schedule: (1 + cut)^floor(day/period). This is a discrete
// step function recomputed per event day, not continuous compounding — the
// price holds flat within each period and jumps at the boundary.
func IssuancePrice(day int, issuanceCut decimal.Decimal, cutPeriod int) decimal.Decimal {
	if cutPeriod <= 0 || day < 0 {
		return one
	}

	numCuts := day / cutPeriod
	if numCuts == 0 {
		return one
	}

	base := one.Add(issuanceCut).InexactFloat64()
	return decimal.NewFromFloat(math.Pow(base, float64(numCuts)))
}

// InterestRate returns the accrued interest fraction for a loan of the
// given age: zero inside the 180-day grace window, then
// exp(0.05 * years) - 1 with years counted from the end of the window.
func InterestRate(daysElapsed int) decimal.Decimal {
	years := (float64(daysElapsed) - GracePeriodDays) / daysPerYear
	if years <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(math.Exp(AnnualInterestRate*years) - 1)
}

// LoanFees is the fee pair generated by a loan event.
type LoanFees struct {
	Internal decimal.Decimal `json:"internal"`
	Protocol decimal.Decimal `json:"protocol"`
}

// FeesForLoan returns the origination fees on a loan amount: 2.5% internal
// (back to the treasury) and 3.5% protocol (leaves the system).
func FeesForLoan(amount decimal.Decimal) LoanFees {
	abs := amount.Abs()
	return LoanFees{
		Internal: abs.Mul(InternalLoanFeeRate),
		Protocol: abs.Mul(ProtocolLoanFeeRate),
	}
}

// FeesForRepayment returns the interest charged when repaying a loan of the
// given age. Repayments carry no protocol fee.
func FeesForRepayment(amount decimal.Decimal, loanAgeDays int) LoanFees {
	return LoanFees{
		Internal: amount.Abs().Mul(InterestRate(loanAgeDays)),
		Protocol: decimal.Zero,
	}
}
