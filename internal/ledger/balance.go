package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Balance holds per-method running balances and their combined total.
type Balance struct {
	ByMethod map[string]decimal.Decimal
	Total    decimal.Decimal
}

// Granularity selects the calendar window for period balances.
type Granularity string

const (
	GranularityDay   Granularity = "day"
	GranularityMonth Granularity = "month"
	GranularityYear  Granularity = "year"
)

// ErrUnknownGranularity indicates an unsupported period granularity.
var ErrUnknownGranularity = errors.New("ledger: unknown granularity")

// ParseGranularity converts user input into a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularityDay, GranularityMonth, GranularityYear:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownGranularity, s)
	}
}

// dedupeByID drops movements whose ID was already seen, keeping the first
// occurrence. This guards against duplicate delivery from the snapshot source
// and is distinct from the heuristic duplicate detection in this package.
func dedupeByID(movements []Movement) []Movement {
	seen := make(map[uuid.UUID]struct{}, len(movements))
	out := movements[:0:0]
	for _, m := range movements {
		if m.ID != uuid.Nil {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

// BalanceByMethod folds movements into signed per-method balances. Movements
// with unrecognized types are ignored.
func BalanceByMethod(movements []Movement) Balance {
	balance := Balance{ByMethod: make(map[string]decimal.Decimal)}
	for _, m := range dedupeByID(movements) {
		sign := m.Type.Sign()
		if sign == 0 {
			continue
		}
		for _, method := range m.Payment.Methods() {
			amount := MethodAmount(m, method)
			if amount.Sign() == 0 {
				continue
			}
			signed := amount
			if sign < 0 {
				signed = amount.Neg()
			}
			balance.ByMethod[method] = balance.ByMethod[method].Add(signed)
			balance.Total = balance.Total.Add(signed)
		}
	}
	return balance
}

// samePeriod reports whether t falls in the same calendar period as ref,
// compared in ref's location.
func samePeriod(t, ref time.Time, granularity Granularity) bool {
	t = t.In(ref.Location())
	switch granularity {
	case GranularityDay:
		ty, tm, td := t.Date()
		ry, rm, rd := ref.Date()
		return ty == ry && tm == rm && td == rd
	case GranularityMonth:
		return t.Year() == ref.Year() && t.Month() == ref.Month()
	case GranularityYear:
		return t.Year() == ref.Year()
	default:
		return false
	}
}

// PeriodBalance filters movements to the calendar period containing ref at the
// given granularity, then computes per-method balances.
func PeriodBalance(movements []Movement, granularity Granularity, ref time.Time) Balance {
	filtered := make([]Movement, 0, len(movements))
	for _, m := range movements {
		if samePeriod(m.OccurredAt, ref, granularity) {
			filtered = append(filtered, m)
		}
	}
	return BalanceByMethod(filtered)
}

// Breakdown is the per-type, per-method view of a movement set.
type Breakdown struct {
	// Cells holds unsigned totals keyed by movement type then method.
	Cells map[MovementType]map[string]decimal.Decimal
	// NetByMethod is income + sale - purchase - expense - cost per method.
	NetByMethod map[string]decimal.Decimal
	GrandTotal  decimal.Decimal
}

// DetailedTotals computes the type-by-method breakdown plus net balances.
func DetailedTotals(movements []Movement) Breakdown {
	b := Breakdown{
		Cells:       make(map[MovementType]map[string]decimal.Decimal),
		NetByMethod: make(map[string]decimal.Decimal),
	}
	for _, m := range dedupeByID(movements) {
		sign := m.Type.Sign()
		if sign == 0 {
			continue
		}
		for _, method := range m.Payment.Methods() {
			amount := MethodAmount(m, method)
			if amount.Sign() == 0 {
				continue
			}
			cell := b.Cells[m.Type]
			if cell == nil {
				cell = make(map[string]decimal.Decimal)
				b.Cells[m.Type] = cell
			}
			cell[method] = cell[method].Add(amount)
			signed := amount
			if sign < 0 {
				signed = amount.Neg()
			}
			b.NetByMethod[method] = b.NetByMethod[method].Add(signed)
			b.GrandTotal = b.GrandTotal.Add(signed)
		}
	}
	return b
}
