package ledger

import "github.com/shopspring/decimal"

// Impact computes the per-method balance change that would result from
// removing the count-1 extra copies of each duplicate group. Removing extra
// inflow duplicates lowers the balance; removing extra outflow duplicates
// raises it.
func Impact(groups []DuplicateGroup) map[string]decimal.Decimal {
	impact := make(map[string]decimal.Decimal)
	for _, group := range groups {
		extra := int64(group.Count - 1)
		if extra <= 0 {
			continue
		}
		rep := group.Representative
		sign := rep.Type.Sign()
		if sign == 0 {
			continue
		}
		for _, method := range rep.Payment.Methods() {
			amount := MethodAmount(rep, method)
			if amount.Sign() == 0 {
				continue
			}
			delta := amount.Mul(decimal.NewFromInt(extra))
			if sign > 0 {
				delta = delta.Neg()
			}
			impact[method] = impact[method].Add(delta)
		}
	}
	return impact
}
