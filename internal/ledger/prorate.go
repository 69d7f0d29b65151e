package ledger

import (
	"errors"
	"sort"

	"github.com/shopspring/decimal"
)

var (
	// ErrProrateEmptySplit indicates there is no allocation to scale.
	ErrProrateEmptySplit = errors.New("ledger: prorate: empty split")
	// ErrProrateFullTotal indicates the full total is not positive.
	ErrProrateFullTotal = errors.New("ledger: prorate: full total must be positive")
)

// Prorate scales a full-movement split down to an item-level sub-total. Each
// allocation is rounded to currency precision and the rounding residual is
// assigned to the method with the largest scaled amount (first in sorted
// order on ties), so the result sums to subTotal exactly and no allocation
// goes negative.
func Prorate(fullSplit map[string]decimal.Decimal, subTotal, fullTotal decimal.Decimal) (map[string]decimal.Decimal, error) {
	if len(fullSplit) == 0 {
		return nil, ErrProrateEmptySplit
	}
	if fullTotal.Sign() <= 0 {
		return nil, ErrProrateFullTotal
	}

	methods := make([]string, 0, len(fullSplit))
	for method := range fullSplit {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	scaled := make(map[string]decimal.Decimal, len(fullSplit))
	sum := decimal.Zero
	largest := methods[0]
	for _, method := range methods {
		amount := round2(fullSplit[method].Mul(subTotal).Div(fullTotal))
		scaled[method] = amount
		sum = sum.Add(amount)
		if amount.GreaterThan(scaled[largest]) {
			largest = method
		}
	}

	if residual := subTotal.Sub(sum); residual.Sign() != 0 {
		scaled[largest] = scaled[largest].Add(residual)
		if scaled[largest].Sign() < 0 {
			// Many tiny allocations can round up past the sub-total in
			// aggregate. Take the excess back a cent at a time across the
			// split instead of overdrawing a single method.
			deficit := scaled[largest].Neg()
			scaled[largest] = decimal.Zero
			cent := decimal.New(1, -2)
			for deficit.Sign() > 0 {
				progressed := false
				for _, method := range methods {
					if deficit.Sign() <= 0 {
						break
					}
					avail := scaled[method]
					if avail.Sign() <= 0 {
						continue
					}
					step := cent
					if step.GreaterThan(avail) {
						step = avail
					}
					if step.GreaterThan(deficit) {
						step = deficit
					}
					scaled[method] = avail.Sub(step)
					deficit = deficit.Sub(step)
					progressed = true
				}
				if !progressed {
					break
				}
			}
		}
	}
	return scaled, nil
}
