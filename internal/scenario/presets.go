// Package scenario provides the shipped preset scenarios and JSON
// import/export of the scenario wire format.
package scenario

import (
	"github.com/shopspring/decimal"

	"github.com/mejango/rev-sim/internal/model"
)

// DefaultStages is the single-stage configuration scenarios start from:
// a 50% Team split, no issuance cuts, 10% cash-out tax, open-ended.
func DefaultStages() []model.StageDefinition {
	return []model.StageDefinition{
		{
			Splits: map[string]decimal.Decimal{
				"Team": decimal.NewFromFloat(0.5),
			},
			HasCuts:      false,
			CashOutTax:   decimal.NewFromFloat(0.1),
			DurationDays: 0,
		},
	}
}

// Presets returns the built-in sample scenarios. IDs are stable slugs so
// the UI can deep-link them; CreatedAt is zero for presets.
func Presets() []model.Scenario {
	return []model.Scenario{
		{
			ID:          "default-sample",
			Name:        "Default Sample",
			Description: "The walkthrough scenario: one investment, a small loan, a partial repayment past the grace period, and a cash-out.",
			Events: []model.Event{
				ev(0, model.KindInvestment, 10, "Angel investor"),
				ev(1, model.KindLoan, 1, "Angel investor"),
				ev(280, model.KindRepay, 0.5, "Angel investor"),
				ev(281, model.KindCashout, 0.5, "Angel investor"),
			},
			Stages: DefaultStages(),
		},
		{
			ID:          "conservative-growth",
			Name:        "Conservative Growth",
			Description: "A steady, sustainable revnet with consistent 10% annual revenue growth.",
			Narrative:   "Starting with a $10M investment, revenue grows by 10% annually, showing how organic growth creates value for all participants.",
			Events: []model.Event{
				ev(0, model.KindInvestment, 10_000_000, "Angel Investor"),
				ev(90, model.KindRevenue, 2_000_000, "Q1 Revenue"),
				ev(180, model.KindRevenue, 2_200_000, "Q2 Revenue"),
				ev(270, model.KindRevenue, 2_420_000, "Q3 Revenue"),
				ev(360, model.KindRevenue, 2_660_000, "Q4 Revenue"),
				ev(450, model.KindRevenue, 2_930_000, "Q1 Revenue"),
				ev(540, model.KindRevenue, 3_220_000, "Q2 Revenue"),
			},
			Stages: DefaultStages(),
		},
		{
			ID:          "hypergrowth",
			Name:        "Hypergrowth",
			Description: "A high-risk, high-reward scenario with explosive exponential revenue growth.",
			Narrative:   "Revenue doubles every quarter, growing from $1M to $32M, demonstrating exponential scaling.",
			Events: []model.Event{
				ev(0, model.KindInvestment, 5_000_000, "Seed Investor"),
				ev(90, model.KindRevenue, 1_000_000, "Q1 Revenue"),
				ev(180, model.KindRevenue, 2_000_000, "Q2 Revenue"),
				ev(270, model.KindRevenue, 4_000_000, "Q3 Revenue"),
				ev(360, model.KindRevenue, 8_000_000, "Q4 Revenue"),
				ev(450, model.KindRevenue, 16_000_000, "Q5 Revenue"),
				ev(540, model.KindRevenue, 32_000_000, "Q6 Revenue"),
			},
			Stages: DefaultStages(),
		},
		{
			ID:          "bootstrap-scale",
			Name:        "Bootstrap to Scale",
			Description: "A bootstrapped revnet that starts small and grows organically through revenue generation.",
			Events: []model.Event{
				ev(0, model.KindInvestment, 1_000_000, "Founder Investment"),
				ev(60, model.KindRevenue, 500_000, "First Revenue"),
				ev(180, model.KindRevenue, 1_000_000, "Growing Revenue"),
				ev(300, model.KindRevenue, 2_000_000, "Scaling Revenue"),
				ev(420, model.KindRevenue, 4_000_000, "Expanding Revenue"),
				ev(540, model.KindRevenue, 8_000_000, "Mature Revenue"),
			},
			Stages: DefaultStages(),
		},
		{
			ID:          "vc-fueled",
			Name:        "VC-Fueled Growth",
			Description: "A traditional startup trajectory with multiple funding rounds.",
			Events: []model.Event{
				ev(0, model.KindInvestment, 2_000_000, "Angel Investor"),
				ev(90, model.KindInvestment, 10_000_000, "Series A"),
				ev(180, model.KindRevenue, 3_000_000, "Product Revenue"),
				ev(270, model.KindInvestment, 25_000_000, "Series B"),
				ev(360, model.KindRevenue, 8_000_000, "Scaling Revenue"),
				ev(450, model.KindRevenue, 15_000_000, "Mature Revenue"),
				ev(540, model.KindInvestment, 50_000_000, "Series C"),
			},
			Stages: DefaultStages(),
		},
	}
}

// PresetByID returns the preset with the given ID, if any.
func PresetByID(id string) (model.Scenario, bool) {
	for _, s := range Presets() {
		if s.ID == id {
			return s, true
		}
	}
	return model.Scenario{}, false
}

func ev(day int, kind model.EventKind, amount float64, label string) model.Event {
	return model.Event{
		Day:    day,
		Kind:   kind,
		Amount: decimal.NewFromFloat(amount),
		Label:  label,
	}
}
