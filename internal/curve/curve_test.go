package curve

import (
	"testing"

	"github.com/shopspring/decimal"
)

// d is a test helper for creating decimals from float64.
func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

var tolerance = d(0.0000001)

func approxEqual(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThan(tolerance)
}

// --- Cash-out value tests ---

func TestCashOutValue_ZeroSupply(t *testing.T) {
	v := CashOutValue(d(10), d(0), d(100), d(0.1))
	if !v.IsZero() {
		t.Errorf("expected zero value for zero supply, got %s", v)
	}
}

func TestCashOutValue_NegativeSupply(t *testing.T) {
	v := CashOutValue(d(10), d(-5), d(100), d(0.1))
	if !v.IsZero() {
		t.Errorf("expected zero value for negative supply, got %s", v)
	}
}

func TestCashOutValue_ZeroTaxIsLinear(t *testing.T) {
	// At tax 0 the payout is the exact pro-rata share.
	v := CashOutValue(d(25), d(100), d(1000), d(0))
	if !v.Equal(d(250)) {
		t.Errorf("expected linear payout 250, got %s", v)
	}
}

func TestCashOutValue_FullTaxIsQuadratic(t *testing.T) {
	// At tax 1 the payout is treasury * (x/supply)^2.
	v := CashOutValue(d(50), d(100), d(1000), d(1))
	if !v.Equal(d(250)) {
		t.Errorf("expected quadratic payout 250, got %s", v)
	}
}

func TestCashOutValue_FullSupplyDrainsTreasury(t *testing.T) {
	// Cashing out the entire supply pays the whole treasury at any tax rate.
	for _, tax := range []float64{0, 0.1, 0.5, 1} {
		v := CashOutValue(d(100), d(100), d(1000), d(tax))
		if !v.Equal(d(1000)) {
			t.Errorf("tax=%v: expected full treasury 1000, got %s", tax, v)
		}
	}
}

func TestCashOutValue_WalkthroughExample(t *testing.T) {
	// 1 of 10 tokens against a 10-dollar treasury at 10% tax:
	// (10 * 1/10) * (0.9 + 1*0.1/10) = 0.91
	v := CashOutValue(d(1), d(10), d(10), d(0.1))
	if !v.Equal(d(0.91)) {
		t.Errorf("expected 0.91, got %s", v)
	}
}

func TestCashOutValue_MonotonicInTokens(t *testing.T) {
	prev := decimal.Zero
	for x := 1; x <= 100; x += 10 {
		v := CashOutValue(decimal.NewFromInt(int64(x)), d(100), d(1000), d(0.3))
		if v.LessThanOrEqual(prev) {
			t.Fatalf("value not increasing at x=%d: %s <= %s", x, v, prev)
		}
		prev = v
	}
}

// --- Issuance price tests ---

func TestIssuancePrice_NoCutsYet(t *testing.T) {
	for day := 0; day < 10; day++ {
		p := IssuancePrice(day, d(1), 10)
		if !p.Equal(d(1)) {
			t.Errorf("day %d: expected price 1 before first cut, got %s", day, p)
		}
	}
}

func TestIssuancePrice_StepsAtPeriodBoundary(t *testing.T) {
	// cut=1 doubles the price every 10 days.
	cases := []struct {
		day  int
		want float64
	}{
		{9, 1},
		{10, 2},
		{19, 2},
		{20, 4},
		{30, 8},
	}
	for _, tc := range cases {
		p := IssuancePrice(tc.day, d(1), 10)
		if !p.Equal(d(tc.want)) {
			t.Errorf("day %d: expected price %v, got %s", tc.day, tc.want, p)
		}
	}
}

func TestIssuancePrice_InvalidInputs(t *testing.T) {
	if p := IssuancePrice(100, d(0.5), 0); !p.Equal(d(1)) {
		t.Errorf("zero period: expected 1, got %s", p)
	}
	if p := IssuancePrice(-1, d(0.5), 10); !p.Equal(d(1)) {
		t.Errorf("negative day: expected 1, got %s", p)
	}
}

// --- Interest rate tests ---

func TestInterestRate_ZeroInsideGracePeriod(t *testing.T) {
	for _, days := range []int{0, 1, 90, 179, 180} {
		r := InterestRate(days)
		if !r.IsZero() {
			t.Errorf("day %d: expected zero interest inside grace period, got %s", days, r)
		}
	}
}

func TestInterestRate_PositiveAfterGracePeriod(t *testing.T) {
	r := InterestRate(181)
	if !r.IsPositive() {
		t.Errorf("expected positive interest one day past grace, got %s", r)
	}
}

func TestInterestRate_OneYearPastGrace(t *testing.T) {
	// exp(0.05) - 1 after a full year of accrual.
	r := InterestRate(GracePeriodDays + 365)
	want := d(0.0512710963760240)
	if !approxEqual(r, want) {
		t.Errorf("expected ~%s, got %s", want, r)
	}
}

func TestInterestRate_Monotonic(t *testing.T) {
	prev := decimal.Zero
	for days := 181; days <= 181+730; days += 90 {
		r := InterestRate(days)
		if r.LessThanOrEqual(prev) {
			t.Fatalf("interest not increasing at %d days: %s <= %s", days, r, prev)
		}
		prev = r
	}
}

// --- Fee tests ---

func TestFeesForLoan(t *testing.T) {
	fees := FeesForLoan(d(100))
	if !fees.Internal.Equal(d(2.5)) {
		t.Errorf("expected internal fee 2.5, got %s", fees.Internal)
	}
	if !fees.Protocol.Equal(d(3.5)) {
		t.Errorf("expected protocol fee 3.5, got %s", fees.Protocol)
	}
}

func TestFeesForLoan_NegativeAmountUsesAbs(t *testing.T) {
	fees := FeesForLoan(d(-100))
	if !fees.Internal.Equal(d(2.5)) || !fees.Protocol.Equal(d(3.5)) {
		t.Errorf("expected fees on absolute value, got %s/%s", fees.Internal, fees.Protocol)
	}
}

func TestFeesForRepayment_InsideGrace(t *testing.T) {
	fees := FeesForRepayment(d(100), 90)
	if !fees.Internal.IsZero() {
		t.Errorf("expected zero interest inside grace period, got %s", fees.Internal)
	}
	if !fees.Protocol.IsZero() {
		t.Errorf("repayments carry no protocol fee, got %s", fees.Protocol)
	}
}

func TestFeesForRepayment_PastGrace(t *testing.T) {
	fees := FeesForRepayment(d(100), 279)
	if !fees.Internal.IsPositive() {
		t.Errorf("expected positive interest past grace period, got %s", fees.Internal)
	}
	if !fees.Protocol.IsZero() {
		t.Errorf("repayments carry no protocol fee, got %s", fees.Protocol)
	}
}
