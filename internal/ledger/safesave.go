package ledger

import (
	"context"
	"fmt"
	"time"
)

// SaveState tracks the safe-save workflow for one movement.
type SaveState string

const (
	StateIdle              SaveState = "idle"
	StateValidating        SaveState = "validating"
	StateInvalid           SaveState = "invalid"
	StateNeedsConfirmation SaveState = "needs_confirmation"
	StateSaved             SaveState = "saved"
	StateCancelled         SaveState = "cancelled"
)

// Store persists one validated movement. It is the coordinator's single side
// effect; failures are forwarded unmodified and never retried here.
type Store interface {
	Insert(ctx context.Context, m Movement) error
}

// DuplicateWarning describes a heuristic match that deferred an unforced save.
type DuplicateWarning struct {
	Match   Movement
	Message string
}

// SaveResult reports where the workflow stopped. Invalid carries the
// validation error; NeedsConfirmation carries the warning and matched record
// and guarantees no persistence side effect has occurred. A caller may
// abandon a NeedsConfirmation result at any time: no partial write precedes
// Saved.
type SaveResult struct {
	State   SaveState
	Err     *ValidationError
	Warning *DuplicateWarning
}

// Coordinator drives validate, duplicate-check, and save for new movements
// against a caller-supplied snapshot of existing ones. The duplicate check
// happens strictly before the saved transition, so concurrent writers can
// race through the window; callers that need stronger guarantees must hold a
// lock spanning the whole transition.
type Coordinator struct {
	store    Store
	detector Detector
	now      func() time.Time
}

// NewCoordinator constructs the safe-save coordinator.
func NewCoordinator(store Store, detector Detector) *Coordinator {
	return &Coordinator{store: store, detector: detector, now: time.Now}
}

// WithNow overrides the clock for testing.
func (c *Coordinator) WithNow(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

func (c *Coordinator) validate(m Movement) *ValidationError {
	if !m.Type.Known() {
		return &ValidationError{Code: ReasonUnknownType, Detail: fmt.Sprintf("movement type %q", m.Type)}
	}
	if m.Payment.Kind == PaymentSplit {
		if err := ValidateSplit(m.Total, m.Payment.Allocations); err != nil {
			return err.(*ValidationError)
		}
		return nil
	}
	if m.Total.Sign() <= 0 {
		return &ValidationError{Code: ReasonTotalNotPositive, Detail: fmt.Sprintf("declared total %s must be positive", m.Total)}
	}
	if m.Payment.Method == "" {
		return &ValidationError{Code: ReasonMissingMethod, Detail: "movement requires a payment method"}
	}
	return nil
}

// Save runs one movement through the workflow. A structural failure returns
// the Invalid state with the validation error; a heuristic duplicate match
// without force returns NeedsConfirmation without touching the store; force
// or no match delegates the write to the store. Store errors are returned
// unmodified alongside a zero result.
func (c *Coordinator) Save(ctx context.Context, m Movement, existing []Movement, force bool) (SaveResult, error) {
	if m.OccurredAt.IsZero() {
		m.OccurredAt = c.now()
	}
	if verr := c.validate(m); verr != nil {
		return SaveResult{State: StateInvalid, Err: verr}, verr
	}

	if !force {
		if match, found := c.detector.Match(m, existing); found {
			return SaveResult{
				State: StateNeedsConfirmation,
				Warning: &DuplicateWarning{
					Match: match,
					Message: fmt.Sprintf("possible duplicate of %s movement %s for %s",
						match.Type, match.ID, TotalAmount(match).StringFixed(2)),
				},
			}, nil
		}
	}

	if err := c.store.Insert(ctx, m); err != nil {
		return SaveResult{}, err
	}
	return SaveResult{State: StateSaved}, nil
}
