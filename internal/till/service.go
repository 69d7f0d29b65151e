package till

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/movements"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort abstracts session persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, s Session) error
	Get(ctx context.Context, id uuid.UUID) (Session, error)
	Update(ctx context.Context, s Session) error
}

// MovementSource lists the movements recorded against a session.
type MovementSource interface {
	List(ctx context.Context, filter movements.ListFilter) ([]ledger.Movement, error)
}

// AuditPort records session lifecycle events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// ServiceConfig tunes the service. CashMethod is the payment-method code
// counted in the physical drawer.
type ServiceConfig struct {
	CashMethod string
}

// Service opens and closes register sessions.
type Service struct {
	repo      RepositoryPort
	source    MovementSource
	audit     AuditPort
	cashCode  string
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs the till service.
func NewService(repo RepositoryPort, source MovementSource, audit AuditPort, cfg ServiceConfig, logger *slog.Logger) *Service {
	if cfg.CashMethod == "" {
		cfg.CashMethod = "cash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		source:   source,
		audit:    audit,
		cashCode: cfg.CashMethod,
		logger:   logger,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Open starts a new session for a register. At most one session per register
// may be open; the repository enforces this with a partial unique index.
func (s *Service) Open(ctx context.Context, register int, openingFloat decimal.Decimal) (Session, error) {
	if openingFloat.Sign() < 0 {
		return Session{}, ErrNegativeFloat
	}
	session := Session{
		ID:           uuid.New(),
		Register:     register,
		OpeningFloat: openingFloat,
		Status:       SessionOpen,
		OpenedAt:     s.now(),
	}
	if err := s.repo.Insert(ctx, session); err != nil {
		return Session{}, err
	}
	return session, nil
}

// Get loads one session.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	return s.repo.Get(ctx, id)
}

// Close reconciles and closes a session. The expected amount is the opening
// float plus the cash-method balance of the session's movements, computed by
// the ledger engine over the stored snapshot.
func (s *Service) Close(ctx context.Context, id uuid.UUID, declared decimal.Decimal, notes string) (Session, error) {
	if declared.Sign() < 0 {
		return Session{}, ErrNegativeDeclared
	}
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if session.Status != SessionOpen {
		return Session{}, ErrSessionClosed
	}

	recorded, err := s.source.List(ctx, movements.ListFilter{SessionID: id})
	if err != nil {
		return Session{}, fmt.Errorf("till: load session movements: %w", err)
	}
	cashBalance := ledger.BalanceByMethod(recorded).ByMethod[s.cashCode]

	expected := session.OpeningFloat.Add(cashBalance)
	deviation := declared.Sub(expected)
	pct := deviationPercent(deviation, expected)
	class := ClassifyDeviation(pct)
	closedAt := s.now()

	session.ExpectedAmount = &expected
	session.DeclaredAmount = &declared
	session.Deviation = &deviation
	session.DeviationPct = &pct
	session.DeviationClass = &class
	session.Status = SessionClosed
	session.Notes = notes
	session.ClosedAt = &closedAt

	if err := s.repo.Update(ctx, session); err != nil {
		return Session{}, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    "api",
			Action:   "session.close",
			Entity:   "till_session",
			EntityID: session.ID.String(),
			Meta: map[string]any{
				"expected":  expected.StringFixed(2),
				"declared":  declared.StringFixed(2),
				"deviation": deviation.StringFixed(2),
				"class":     string(class),
			},
			At: closedAt,
		}); err != nil {
			s.logger.Warn("till: audit record", slog.Any("error", err))
		}
	}
	return session, nil
}

func deviationPercent(deviation, expected decimal.Decimal) decimal.Decimal {
	if expected.Sign() == 0 {
		if deviation.Sign() == 0 {
			return decimal.Zero
		}
		return decimal.NewFromInt(100)
	}
	return deviation.Div(expected.Abs()).Mul(decimal.NewFromInt(100)).Round(2)
}
