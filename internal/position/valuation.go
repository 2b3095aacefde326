package position

import (
	"github.com/shopspring/decimal"

	"github.com/quantary/cryptobot/internal/types"
)

// proportionPlaces is the rounding granularity for the owned fraction. Two
// places is allocation granularity, not full precision.
const proportionPlaces = 2

// CycleValueUSD computes the quote-currency value still held for one matched
// trading cycle: the fraction of the original purchase cost not yet sold off.
//
// Buys accumulate totalBought (base amount) and totalCost (quote spent);
// sells reduce the net amount owned. The outstanding value is
// totalCost * round(amountOwned/totalBought, 2). A cycle with no buys values
// to zero.
func CycleValueUSD(fills []types.Fill) decimal.Decimal {
	totalBought := decimal.Zero
	totalCost := decimal.Zero
	amountOwned := decimal.Zero

	for _, f := range fills {
		if f.Side == types.SideBuy {
			totalBought = totalBought.Add(f.Amount)
			totalCost = totalCost.Add(f.Cost)
			amountOwned = amountOwned.Add(f.Amount)
		} else {
			amountOwned = amountOwned.Sub(f.Amount)
		}
	}

	if totalBought.IsZero() {
		return decimal.Zero
	}

	proportionOwned := amountOwned.Div(totalBought).Round(proportionPlaces)

	return totalCost.Mul(proportionOwned)
}
