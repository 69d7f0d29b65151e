package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type recordingStore struct {
	inserted []Movement
	err      error
}

func (s *recordingStore) Insert(ctx context.Context, m Movement) error {
	if s.err != nil {
		return s.err
	}
	s.inserted = append(s.inserted, m)
	return nil
}

func TestSaveCleanMovement(t *testing.T) {
	store := &recordingStore{}
	coordinator := NewCoordinator(store, NewDetector())

	result, err := coordinator.Save(context.Background(), legacyMovement(TypeSale, "100", "cash"), nil, false)
	require.NoError(t, err)
	require.Equal(t, StateSaved, result.State)
	require.Len(t, store.inserted, 1)
}

func TestSaveInvalidMovementBlocksPersistence(t *testing.T) {
	store := &recordingStore{}
	coordinator := NewCoordinator(store, NewDetector())

	m := splitMovement(TypeSale, "100", map[string]string{"cash": "60", "electronic-wallet": "30"})
	result, err := coordinator.Save(context.Background(), m, nil, false)

	require.Error(t, err)
	require.Equal(t, StateInvalid, result.State)
	require.NotNil(t, result.Err)
	require.Equal(t, ReasonSumMismatch, result.Err.Code)
	require.Empty(t, store.inserted)
}

func TestSaveRejectsUnknownType(t *testing.T) {
	store := &recordingStore{}
	coordinator := NewCoordinator(store, NewDetector())

	result, _ := coordinator.Save(context.Background(), legacyMovement(MovementType("transfer"), "10", "cash"), nil, false)
	require.Equal(t, StateInvalid, result.State)
	require.Equal(t, ReasonUnknownType, result.Err.Code)
	require.Empty(t, store.inserted)
}

func TestSaveDuplicateNeedsConfirmation(t *testing.T) {
	store := &recordingStore{}
	coordinator := NewCoordinator(store, NewDetector())

	existing := legacyMovement(TypeSale, "500", "cash")
	candidate := legacyMovement(TypeSale, "500", "cash")
	candidate.OccurredAt = existing.OccurredAt.Add(10 * time.Second)

	result, err := coordinator.Save(context.Background(), candidate, []Movement{existing}, false)
	require.NoError(t, err)
	require.Equal(t, StateNeedsConfirmation, result.State)
	require.NotNil(t, result.Warning)
	require.Equal(t, existing.ID, result.Warning.Match.ID)
	require.Empty(t, store.inserted, "needs-confirmation must not touch the store")
}

func TestSaveDuplicateForced(t *testing.T) {
	store := &recordingStore{}
	coordinator := NewCoordinator(store, NewDetector())

	existing := legacyMovement(TypeSale, "500", "cash")
	candidate := legacyMovement(TypeSale, "500", "cash")
	candidate.OccurredAt = existing.OccurredAt.Add(10 * time.Second)

	result, err := coordinator.Save(context.Background(), candidate, []Movement{existing}, true)
	require.NoError(t, err)
	require.Equal(t, StateSaved, result.State)
	require.Len(t, store.inserted, 1)
}

func TestSaveForwardsStoreErrors(t *testing.T) {
	storeErr := errors.New("connection reset")
	coordinator := NewCoordinator(&recordingStore{err: storeErr}, NewDetector())

	_, err := coordinator.Save(context.Background(), legacyMovement(TypeSale, "10", "cash"), nil, false)
	require.ErrorIs(t, err, storeErr)
}

func TestSaveDefaultsTimestamp(t *testing.T) {
	store := &recordingStore{}
	coordinator := NewCoordinator(store, NewDetector())
	fixed := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	coordinator.WithNow(func() time.Time { return fixed })

	m := legacyMovement(TypeSale, "10", "cash")
	m.OccurredAt = time.Time{}

	_, err := coordinator.Save(context.Background(), m, nil, false)
	require.NoError(t, err)
	require.Equal(t, fixed, store.inserted[0].OccurredAt)
}
