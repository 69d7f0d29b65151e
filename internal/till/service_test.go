package till

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/movements"
)

type stubRepo struct {
	sessions map[uuid.UUID]Session
	busy     bool
}

func newStubRepo() *stubRepo {
	return &stubRepo{sessions: make(map[uuid.UUID]Session)}
}

func (r *stubRepo) Insert(ctx context.Context, s Session) error {
	if r.busy {
		return ErrRegisterBusy
	}
	r.sessions[s.ID] = s
	return nil
}

func (r *stubRepo) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return s, nil
}

func (r *stubRepo) Update(ctx context.Context, s Session) error {
	if _, ok := r.sessions[s.ID]; !ok {
		return ErrSessionNotFound
	}
	r.sessions[s.ID] = s
	return nil
}

type stubSource struct {
	movements []ledger.Movement
}

func (s *stubSource) List(ctx context.Context, filter movements.ListFilter) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, m := range s.movements {
		if filter.SessionID == uuid.Nil || m.SessionID == filter.SessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func sessionMovement(session uuid.UUID, mtype ledger.MovementType, total, method string) ledger.Movement {
	return ledger.Movement{
		ID:         uuid.New(),
		SessionID:  session,
		Type:       mtype,
		OccurredAt: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC),
		Total:      dec(total),
		Payment:    ledger.LegacyPayment(method),
	}
}

func TestOpenRejectsNegativeFloat(t *testing.T) {
	service := NewService(newStubRepo(), &stubSource{}, nil, ServiceConfig{}, nil)
	_, err := service.Open(context.Background(), 1, dec("-1"))
	require.ErrorIs(t, err, ErrNegativeFloat)
}

func TestCloseComputesExpectedFromCashMovements(t *testing.T) {
	repo := newStubRepo()
	source := &stubSource{}
	service := NewService(repo, source, nil, ServiceConfig{}, nil)

	session, err := service.Open(context.Background(), 1, dec("50"))
	require.NoError(t, err)

	source.movements = []ledger.Movement{
		sessionMovement(session.ID, ledger.TypeSale, "200", "cash"),
		sessionMovement(session.ID, ledger.TypeExpense, "30", "cash"),
		// Card sales do not change the drawer count.
		sessionMovement(session.ID, ledger.TypeSale, "500", "card"),
	}

	closed, err := service.Close(context.Background(), session.ID, dec("220"), "end of shift")
	require.NoError(t, err)

	require.NotNil(t, closed.ExpectedAmount)
	assert.True(t, closed.ExpectedAmount.Equal(dec("220")), "expected %s", closed.ExpectedAmount)
	assert.True(t, closed.Deviation.Equal(dec("0")))
	assert.Equal(t, DeviationNormal, *closed.DeviationClass)
	assert.Equal(t, SessionClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)
}

func TestCloseClassifiesDeviation(t *testing.T) {
	cases := []struct {
		name     string
		declared string
		class    DeviationClass
	}{
		{"exact", "100", DeviationNormal},
		{"within two percent", "98.50", DeviationNormal},
		{"warning band", "96", DeviationWarning},
		{"critical shortfall", "80", DeviationCritical},
		{"critical overage", "130", DeviationCritical},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newStubRepo()
			source := &stubSource{}
			service := NewService(repo, source, nil, ServiceConfig{}, nil)

			session, err := service.Open(context.Background(), 1, dec("100"))
			require.NoError(t, err)

			closed, err := service.Close(context.Background(), session.ID, dec(tc.declared), "")
			require.NoError(t, err)
			assert.Equal(t, tc.class, *closed.DeviationClass)
		})
	}
}

func TestCloseTwiceFails(t *testing.T) {
	repo := newStubRepo()
	service := NewService(repo, &stubSource{}, nil, ServiceConfig{}, nil)

	session, err := service.Open(context.Background(), 1, dec("100"))
	require.NoError(t, err)

	_, err = service.Close(context.Background(), session.ID, dec("100"), "")
	require.NoError(t, err)

	_, err = service.Close(context.Background(), session.ID, dec("100"), "")
	require.ErrorIs(t, err, ErrSessionClosed)
}

func TestCloseUnknownSession(t *testing.T) {
	service := NewService(newStubRepo(), &stubSource{}, nil, ServiceConfig{}, nil)
	_, err := service.Close(context.Background(), uuid.New(), dec("100"), "")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestClassifyDeviationBoundaries(t *testing.T) {
	assert.Equal(t, DeviationNormal, ClassifyDeviation(dec("2")))
	assert.Equal(t, DeviationWarning, ClassifyDeviation(dec("-2.01")))
	assert.Equal(t, DeviationWarning, ClassifyDeviation(dec("5")))
	assert.Equal(t, DeviationCritical, ClassifyDeviation(dec("5.01")))
}
