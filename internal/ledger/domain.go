// Package ledger implements the mixed-payment balance engine: it reconciles
// heterogeneous movement records into per-payment-method balances, validates
// and prorates payment splits, and heuristically flags duplicate entries.
// Everything in this package is pure computation over in-memory snapshots.
package ledger

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MovementType enumerates recorded financial events.
type MovementType string

const (
	TypeSale     MovementType = "sale"
	TypePurchase MovementType = "purchase"
	TypeIncome   MovementType = "income"
	TypeExpense  MovementType = "expense"
	TypeCost     MovementType = "cost"
)

// Sign returns +1 for inflow types, -1 for outflow types, and 0 for
// unrecognized types, which aggregation ignores.
func (t MovementType) Sign() int {
	switch t {
	case TypeSale, TypeIncome:
		return 1
	case TypePurchase, TypeExpense, TypeCost:
		return -1
	default:
		return 0
	}
}

// Known reports whether t is one of the five movement types.
func (t MovementType) Known() bool {
	return t.Sign() != 0
}

// PaymentKind discriminates the two historical payment record shapes.
type PaymentKind string

const (
	// PaymentLegacy marks rows that carry a single payment-method code.
	PaymentLegacy PaymentKind = "legacy"
	// PaymentSplit marks rows whose total is divided across several methods.
	PaymentSplit PaymentKind = "split"
)

// Payment is a movement's payment shape, resolved once at ingestion instead of
// probing optional fields at every call site. Historical rows may carry both a
// legacy method and a split; the legacy method is kept alongside the split as
// a fallback for splits whose allocations sum to zero.
type Payment struct {
	Kind        PaymentKind
	Method      string
	Allocations map[string]decimal.Decimal
}

// LegacyPayment builds the single-method shape.
func LegacyPayment(method string) Payment {
	return Payment{Kind: PaymentLegacy, Method: method}
}

// SplitPayment builds the multi-method shape. The allocation map is copied.
func SplitPayment(allocations map[string]decimal.Decimal) Payment {
	return NewPayment("", allocations)
}

// NewPayment resolves the historical duck-typed shape into the tagged union:
// a non-empty allocation map wins over the legacy method, which is retained
// as fallback.
func NewPayment(legacyMethod string, allocations map[string]decimal.Decimal) Payment {
	if len(allocations) == 0 {
		return Payment{Kind: PaymentLegacy, Method: legacyMethod}
	}
	copied := make(map[string]decimal.Decimal, len(allocations))
	for method, amount := range allocations {
		copied[method] = amount
	}
	return Payment{Kind: PaymentSplit, Method: legacyMethod, Allocations: copied}
}

// AllocationSum returns the sum over all split allocations.
func (p Payment) AllocationSum() decimal.Decimal {
	sum := decimal.Zero
	for _, amount := range p.Allocations {
		sum = sum.Add(amount)
	}
	return sum
}

// Methods lists every method code that could carry part of this payment, in
// deterministic order. For splits the legacy fallback method is included.
func (p Payment) Methods() []string {
	if p.Kind == PaymentLegacy {
		if p.Method == "" {
			return nil
		}
		return []string{p.Method}
	}
	methods := make([]string, 0, len(p.Allocations)+1)
	for method := range p.Allocations {
		methods = append(methods, method)
	}
	if p.Method != "" {
		if _, ok := p.Allocations[p.Method]; !ok {
			methods = append(methods, p.Method)
		}
	}
	sort.Strings(methods)
	return methods
}

// Movement is one immutable financial event. Movements are created once by a
// validated workflow and never modified afterwards; corrections produce
// inverse entries, not edits.
type Movement struct {
	ID          uuid.UUID
	SessionID   uuid.UUID
	Type        MovementType
	OccurredAt  time.Time
	Total       decimal.Decimal
	Payment     Payment
	Description string
	ReferenceID *uuid.UUID
}
