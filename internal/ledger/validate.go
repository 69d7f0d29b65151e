package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ReasonCode identifies why a proposed payment split was rejected.
type ReasonCode string

const (
	ReasonTotalNotPositive   ReasonCode = "total_not_positive"
	ReasonNegativeAllocation ReasonCode = "negative_allocation"
	ReasonSumMismatch        ReasonCode = "sum_mismatch"
	ReasonNoActiveMethod     ReasonCode = "no_active_method"
	ReasonUnknownType        ReasonCode = "unknown_type"
	ReasonMissingMethod      ReasonCode = "missing_method"
)

// ValidationError is a fatal, structured rejection of a proposed movement.
// It blocks persistence; nothing is written when one is returned.
type ValidationError struct {
	Code   ReasonCode
	Method string
	Detail string
}

func (e *ValidationError) Error() string {
	if e.Method != "" {
		return fmt.Sprintf("ledger: %s (%s): %s", e.Code, e.Method, e.Detail)
	}
	return fmt.Sprintf("ledger: %s: %s", e.Code, e.Detail)
}

// ValidateSplit checks a proposed allocation map against a declared total
// before the movement is ever handed to the aggregator.
func ValidateSplit(total decimal.Decimal, allocations map[string]decimal.Decimal) error {
	if total.Sign() <= 0 {
		return &ValidationError{
			Code:   ReasonTotalNotPositive,
			Detail: fmt.Sprintf("declared total %s must be positive", total),
		}
	}
	sum := decimal.Zero
	active := 0
	for method, amount := range allocations {
		if amount.Sign() < 0 {
			return &ValidationError{
				Code:   ReasonNegativeAllocation,
				Method: method,
				Detail: fmt.Sprintf("allocation %s is negative", amount),
			}
		}
		if amount.Sign() > 0 {
			active++
		}
		sum = sum.Add(amount)
	}
	if sum.Sub(total).Abs().GreaterThan(amountTolerance) {
		return &ValidationError{
			Code:   ReasonSumMismatch,
			Detail: fmt.Sprintf("allocations sum to %s, declared total is %s", sum, total),
		}
	}
	if active == 0 {
		return &ValidationError{
			Code:   ReasonNoActiveMethod,
			Detail: "at least one method must carry a positive amount",
		}
	}
	return nil
}
