package ledger

import "github.com/shopspring/decimal"

// amountTolerance is the deviation, in currency units, below which a stored
// split and its declared total are considered consistent.
var amountTolerance = decimal.New(1, -2)

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// MethodAmount returns the amount of m attributable to one payment method,
// reconciling the declared total against a possibly inconsistent split. When
// the split disagrees with the declared total beyond tolerance, the declared
// total is authoritative and the allocations act as proportions; the silent
// rescale is reflected only in the numeric result, never reported as an error.
func MethodAmount(m Movement, method string) decimal.Decimal {
	if m.Total.Sign() <= 0 {
		// Negative or zero declared totals are garbage legacy rows.
		return decimal.Zero
	}
	if m.Payment.Kind == PaymentSplit {
		raw := m.Payment.Allocations[method]
		sum := m.Payment.AllocationSum()
		if sum.Sign() == 0 {
			if m.Payment.Method == method {
				return m.Total
			}
			return decimal.Zero
		}
		if sum.Sub(m.Total).Abs().GreaterThan(amountTolerance) {
			return round2(raw.Mul(m.Total).Div(sum))
		}
		return raw
	}
	if m.Payment.Method == method {
		return m.Total
	}
	return decimal.Zero
}

// TotalAmount returns the movement's effective total: the split sum when it
// agrees with the declared total, the declared total otherwise.
func TotalAmount(m Movement) decimal.Decimal {
	if m.Payment.Kind == PaymentSplit {
		sum := m.Payment.AllocationSum()
		if sum.Sub(m.Total).Abs().GreaterThan(amountTolerance) {
			return m.Total
		}
		return sum
	}
	return m.Total
}
