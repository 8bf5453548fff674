package wizard

import "github.com/shopspring/decimal"

// Figures shown next to a draft. They are illustrative and do not read pool state.
var (
	baseHealthFactor = decimal.RequireFromString("1.45")
	minHealthFactor  = decimal.RequireFromString("0.1")
	healthImpact     = decimal.RequireFromString("0.1")
	healthScale      = decimal.NewFromInt(10_000)
)

// MaxAmount is the amount the MAX shortcut fills in.
func MaxAmount(kind Kind) decimal.Decimal {
	switch kind {
	case KindSupply:
		return decimal.NewFromInt(10_000)
	case KindBorrow:
		return decimal.NewFromInt(5_000)
	default:
		return decimal.NewFromInt(7_500)
	}
}

// Rate is the annual rate applied to a draft: 5% for supply, 8% otherwise.
func Rate(kind Kind) decimal.Decimal {
	if kind == KindSupply {
		return decimal.RequireFromString("0.05")
	}
	return decimal.RequireFromString("0.08")
}

// AnnualInterest is amount × Rate(kind), rounded to cents.
func AnnualInterest(amount decimal.Decimal, kind Kind) decimal.Decimal {
	return amount.Mul(Rate(kind)).Round(2)
}

// HealthFactor estimates the position health after the draft: borrowing
// lowers it, everything else raises it, by 0.1 per 10,000 units. It never
// drops below 0.1.
func HealthFactor(amount decimal.Decimal, kind Kind) decimal.Decimal {
	impact := healthImpact
	if kind == KindBorrow {
		impact = impact.Neg()
	}
	hf := baseHealthFactor.Add(amount.Div(healthScale).Mul(impact))
	return decimal.Max(minHealthFactor, hf).Round(2)
}

// Title is the modal heading for kind.
func Title(kind Kind) string {
	switch kind {
	case KindSupply:
		return "Supply Assets"
	case KindWithdraw:
		return "Withdraw Assets"
	case KindBorrow:
		return "Borrow Assets"
	case KindRepay:
		return "Repay Loan"
	default:
		return "Transaction"
	}
}

// Notice is the informational line shown on the entry step.
func Notice(kind Kind) string {
	switch kind {
	case KindSupply:
		return "Your supplied assets will earn interest immediately."
	case KindBorrow:
		return "Make sure to maintain adequate collateral to avoid liquidation."
	case KindWithdraw:
		return "You can withdraw your supplied assets anytime."
	case KindRepay:
		return "Repaying reduces your loan balance and interest payments."
	default:
		return ""
	}
}

// ConfirmWarning is shown on the Confirm step.
const ConfirmWarning = "Please review all details carefully. This transaction cannot be reversed."
