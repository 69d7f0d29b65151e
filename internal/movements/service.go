package movements

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// RepositoryPort abstracts movement persistence.
type RepositoryPort interface {
	Insert(ctx context.Context, m ledger.Movement) error
	List(ctx context.Context, filter ListFilter) ([]ledger.Movement, error)
	ListWindow(ctx context.Context, around time.Time, window time.Duration) ([]ledger.Movement, error)
}

// RegistryPort resolves payment-method display labels.
type RegistryPort interface {
	DisplayName(ctx context.Context, code string) string
}

// AuditPort records saved movements for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Enqueuer schedules background work after a save. Optional.
type Enqueuer interface {
	EnqueueDuplicateScan(ctx context.Context) error
}

// SaveInput describes a proposed movement before validation.
type SaveInput struct {
	SessionID    uuid.UUID
	Type         string
	Total        decimal.Decimal
	LegacyMethod string
	Split        map[string]decimal.Decimal
	Description  string
	ReferenceID  *uuid.UUID
	OccurredAt   time.Time
	Force        bool
}

// SaveOutcome pairs the workflow result with the movement it applies to.
type SaveOutcome struct {
	Result   ledger.SaveResult
	Movement ledger.Movement
}

// MethodBalance is one row of a balance report, labelled for display.
type MethodBalance struct {
	Code    string          `json:"code"`
	Label   string          `json:"label"`
	Balance decimal.Decimal `json:"balance"`
}

// BalanceReport is the aggregation output served over HTTP.
type BalanceReport struct {
	Methods    []MethodBalance `json:"methods"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// DuplicateReport describes one heuristic duplicate group and the balance
// skew removing its extra copies would cause.
type DuplicateReport struct {
	SignatureKey       string                     `json:"signature_key"`
	OccurrenceCount    int                        `json:"occurrence_count"`
	RepresentativeID   uuid.UUID                  `json:"representative_id"`
	RepresentativeSpec map[string]decimal.Decimal `json:"representative_split,omitempty"`
	ImpactByMethod     map[string]decimal.Decimal `json:"impact_by_method"`
}

// Service coordinates safe saves and balance reads over the movement store.
type Service struct {
	repo     RepositoryPort
	registry RegistryPort
	audit    AuditPort
	enqueuer Enqueuer
	detector ledger.Detector
	logger   *slog.Logger

	// saveLocks serialises the validate -> saved transition per register
	// session, closing the duplicate check-then-act window for writers that
	// go through this service.
	saveLocksMu sync.Mutex
	saveLocks   map[uuid.UUID]*sync.Mutex

	coordinator *ledger.Coordinator
	reads       singleflight.Group
	now         func() time.Time
}

// NewService constructs the movements service.
func NewService(repo RepositoryPort, registry RegistryPort, audit AuditPort, enqueuer Enqueuer, detector ledger.Detector, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:        repo,
		registry:    registry,
		audit:       audit,
		enqueuer:    enqueuer,
		detector:    detector,
		logger:      logger,
		saveLocks:   make(map[uuid.UUID]*sync.Mutex),
		coordinator: ledger.NewCoordinator(storeFunc(repo.Insert), detector),
		now:         time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

func (s *Service) sessionLock(session uuid.UUID) *sync.Mutex {
	s.saveLocksMu.Lock()
	defer s.saveLocksMu.Unlock()
	lock, ok := s.saveLocks[session]
	if !ok {
		lock = &sync.Mutex{}
		s.saveLocks[session] = lock
	}
	return lock
}

// Save validates the proposed movement, checks it against the recent window
// for heuristic duplicates, and persists it unless confirmation is required.
func (s *Service) Save(ctx context.Context, input SaveInput) (SaveOutcome, error) {
	occurredAt := input.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = s.now()
	}
	movement := ledger.Movement{
		ID:          uuid.New(),
		SessionID:   input.SessionID,
		Type:        ledger.MovementType(input.Type),
		OccurredAt:  occurredAt,
		Total:       input.Total,
		Payment:     ledger.NewPayment(input.LegacyMethod, input.Split),
		Description: input.Description,
		ReferenceID: input.ReferenceID,
	}

	lock := s.sessionLock(input.SessionID)
	lock.Lock()
	defer lock.Unlock()

	window := s.detector.TimeTolerance
	if window <= 0 {
		window = ledger.DefaultTimeTolerance
	}
	existing, err := s.repo.ListWindow(ctx, occurredAt, window)
	if err != nil {
		return SaveOutcome{}, fmt.Errorf("movements: load duplicate window: %w", err)
	}

	result, err := s.coordinator.Save(ctx, movement, existing, input.Force)
	outcome := SaveOutcome{Result: result, Movement: movement}
	if err != nil || result.State != ledger.StateSaved {
		return outcome, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, shared.AuditLog{
			Actor:    "api",
			Action:   "movement.save",
			Entity:   "movement",
			EntityID: movement.ID.String(),
			Meta: map[string]any{
				"type":   string(movement.Type),
				"total":  movement.Total.StringFixed(2),
				"forced": input.Force,
			},
			At: s.now(),
		}); err != nil {
			s.logger.Warn("movements: audit record", slog.Any("error", err))
		}
	}
	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueDuplicateScan(ctx); err != nil {
			s.logger.Warn("movements: enqueue duplicate scan", slog.Any("error", err))
		}
	}
	return outcome, nil
}

type storeFunc func(ctx context.Context, m ledger.Movement) error

func (f storeFunc) Insert(ctx context.Context, m ledger.Movement) error {
	return f(ctx, m)
}

// Balances aggregates every movement into per-method balances, optionally
// restricted to the calendar period containing ref. Concurrent identical
// reads share one computation.
func (s *Service) Balances(ctx context.Context, granularity ledger.Granularity, ref time.Time) (BalanceReport, error) {
	key := fmt.Sprintf("balances|%s|%s", granularity, ref.Format("2006-01-02"))
	v, err, _ := s.reads.Do(key, func() (any, error) {
		all, err := s.repo.List(ctx, ListFilter{})
		if err != nil {
			return BalanceReport{}, fmt.Errorf("movements: list: %w", err)
		}
		var balance ledger.Balance
		if granularity == "" {
			balance = ledger.BalanceByMethod(all)
		} else {
			balance = ledger.PeriodBalance(all, granularity, ref)
		}
		return s.labelBalance(ctx, balance), nil
	})
	if err != nil {
		return BalanceReport{}, err
	}
	return v.(BalanceReport), nil
}

func (s *Service) labelBalance(ctx context.Context, balance ledger.Balance) BalanceReport {
	report := BalanceReport{GrandTotal: balance.Total}
	codes := make([]string, 0, len(balance.ByMethod))
	for code := range balance.ByMethod {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		label := code
		if s.registry != nil {
			label = s.registry.DisplayName(ctx, code)
		}
		report.Methods = append(report.Methods, MethodBalance{
			Code:    code,
			Label:   label,
			Balance: balance.ByMethod[code],
		})
	}
	return report
}

// DetailedTotals returns the full type-by-method breakdown.
func (s *Service) DetailedTotals(ctx context.Context) (ledger.Breakdown, error) {
	all, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return ledger.Breakdown{}, fmt.Errorf("movements: list: %w", err)
	}
	return ledger.DetailedTotals(all), nil
}

// Duplicates reports every heuristic duplicate group with its balance impact.
func (s *Service) Duplicates(ctx context.Context) ([]DuplicateReport, error) {
	all, err := s.repo.List(ctx, ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("movements: list: %w", err)
	}
	groups := ledger.GroupDuplicates(all)
	reports := make([]DuplicateReport, 0, len(groups))
	for _, group := range groups {
		reports = append(reports, DuplicateReport{
			SignatureKey:       group.Key,
			OccurrenceCount:    group.Count,
			RepresentativeID:   group.Representative.ID,
			RepresentativeSpec: group.Representative.Payment.Allocations,
			ImpactByMethod:     ledger.Impact([]ledger.DuplicateGroup{group}),
		})
	}
	return reports, nil
}
