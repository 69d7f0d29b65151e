package ledger

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Default duplicate-detection tolerances. These are policy knobs, not a
// correctness proof: the heuristic has no stable external identity to lean on,
// so it can both miss real duplicates and flag coincidental matches.
const DefaultTimeTolerance = 60 * time.Second

// Detector flags near-duplicate movements by amount, time, and payment shape.
type Detector struct {
	TimeTolerance   time.Duration
	AmountTolerance decimal.Decimal
}

// NewDetector returns a Detector with the default tolerances.
func NewDetector() Detector {
	return Detector{
		TimeTolerance:   DefaultTimeTolerance,
		AmountTolerance: amountTolerance,
	}
}

// Match scans existing movements for a heuristic duplicate of candidate and
// returns the first match found.
func (d Detector) Match(candidate Movement, existing []Movement) (Movement, bool) {
	for _, m := range existing {
		if d.matches(candidate, m) {
			return m, true
		}
	}
	return Movement{}, false
}

func (d Detector) matches(a, b Movement) bool {
	if a.Type != b.Type {
		return false
	}
	delta := a.OccurredAt.Sub(b.OccurredAt)
	if delta < 0 {
		delta = -delta
	}
	if delta > d.TimeTolerance {
		return false
	}
	if TotalAmount(a).Sub(TotalAmount(b)).Abs().GreaterThan(d.AmountTolerance) {
		return false
	}
	switch {
	case a.Payment.Kind == PaymentSplit && b.Payment.Kind == PaymentSplit:
		return SplitSignature(a) == SplitSignature(b)
	case a.Payment.Kind == PaymentLegacy && b.Payment.Kind == PaymentLegacy:
		return a.Payment.Method == b.Payment.Method
	default:
		// Mixed shapes: amount and time agreement is all we can check.
		return true
	}
}

// SplitSignature derives the canonical payment-shape key for a movement:
// sorted method codes with their rounded allocations, or the legacy method.
func SplitSignature(m Movement) string {
	if m.Payment.Kind == PaymentLegacy {
		return "legacy=" + m.Payment.Method
	}
	parts := make([]string, 0, len(m.Payment.Allocations))
	for method, amount := range m.Payment.Allocations {
		parts = append(parts, method+":"+round2(amount).StringFixed(2))
	}
	sort.Strings(parts)
	return strings.Join(parts, "|")
}

// DuplicateGroup is a set of movements sharing an identical heuristic
// signature key.
type DuplicateGroup struct {
	Key            string
	Count          int
	Representative Movement
	Movements      []Movement
}

func groupKey(m Movement) string {
	return string(m.Type) + "|" + TotalAmount(m).StringFixed(2) + "|" + SplitSignature(m)
}

// GroupDuplicates buckets movements by (type, resolved total, split
// signature) and returns every bucket with more than one member, ordered by
// key for deterministic output.
func GroupDuplicates(movements []Movement) []DuplicateGroup {
	buckets := make(map[string][]Movement)
	for _, m := range movements {
		key := groupKey(m)
		buckets[key] = append(buckets[key], m)
	}

	keys := make([]string, 0, len(buckets))
	for key, members := range buckets {
		if len(members) > 1 {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	groups := make([]DuplicateGroup, 0, len(keys))
	for _, key := range keys {
		members := buckets[key]
		groups = append(groups, DuplicateGroup{
			Key:            key,
			Count:          len(members),
			Representative: members[0],
			Movements:      members,
		})
	}
	return groups
}
