// Package till manages cash-register sessions: an opening float, the
// movements recorded while the drawer is open, and the declared-vs-expected
// reconciliation on close.
package till

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionStatus enumerates session lifecycle values.
type SessionStatus string

const (
	SessionOpen   SessionStatus = "open"
	SessionClosed SessionStatus = "closed"
)

// DeviationClass grades the declared-vs-expected gap on close.
type DeviationClass string

const (
	DeviationNormal   DeviationClass = "normal"
	DeviationWarning  DeviationClass = "warning"
	DeviationCritical DeviationClass = "critical"
)

var (
	warningThreshold  = decimal.NewFromInt(2)
	criticalThreshold = decimal.NewFromInt(5)
)

// ClassifyDeviation grades a deviation percentage: within 2% is normal,
// within 5% a warning, beyond that critical.
func ClassifyDeviation(pct decimal.Decimal) DeviationClass {
	abs := pct.Abs()
	switch {
	case abs.LessThanOrEqual(warningThreshold):
		return DeviationNormal
	case abs.LessThanOrEqual(criticalThreshold):
		return DeviationWarning
	default:
		return DeviationCritical
	}
}

// Session models one cash-register shift. Expected, declared, and deviation
// fields are set on close.
type Session struct {
	ID             uuid.UUID
	Register       int
	OpeningFloat   decimal.Decimal
	ExpectedAmount *decimal.Decimal
	DeclaredAmount *decimal.Decimal
	Deviation      *decimal.Decimal
	DeviationPct   *decimal.Decimal
	Status         SessionStatus
	DeviationClass *DeviationClass
	Notes          string
	OpenedAt       time.Time
	ClosedAt       *time.Time
}

var (
	// ErrSessionNotFound indicates a missing session.
	ErrSessionNotFound = errors.New("till: session not found")
	// ErrRegisterBusy indicates the register already has an open session.
	ErrRegisterBusy = errors.New("till: register already has an open session")
	// ErrSessionClosed indicates the session was closed before.
	ErrSessionClosed = errors.New("till: session already closed")
	// ErrNegativeFloat indicates a negative opening float.
	ErrNegativeFloat = errors.New("till: opening float must not be negative")
	// ErrNegativeDeclared indicates a negative declared amount.
	ErrNegativeDeclared = errors.New("till: declared amount must not be negative")
)
