package calculator

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimal places amounts are rounded to.
const CurrencyPlaces = 2

// PerPersonAmount computes each participant's equal share of an expense.
// Division is exact decimal arithmetic; the result is rounded half away from
// zero to CurrencyPlaces (67.89 / 2 = 33.945 -> 33.95).
func PerPersonAmount(amount decimal.Decimal, participants int) (decimal.Decimal, error) {
	if participants < 1 {
		return decimal.Zero, fmt.Errorf("must have at least one participant")
	}
	return amount.Div(decimal.NewFromInt(int64(participants))).Round(CurrencyPlaces), nil
}
