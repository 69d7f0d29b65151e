package till

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists till sessions.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, register, opening_float::text, expected_amount::text, declared_amount::text, deviation::text, deviation_pct::text, status, deviation_class, notes, opened_at, closed_at`

// Insert stores a newly opened session. The uq_till_sessions_open partial
// index rejects a second open session on the same register.
func (r *Repository) Insert(ctx context.Context, s Session) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO till_sessions (id, register, opening_float, status, opened_at) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Register, s.OpeningFloat.StringFixed(2), string(s.Status), s.OpenedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrRegisterBusy
		}
		return fmt.Errorf("till: insert session: %w", err)
	}
	return nil
}

// Get loads one session by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (Session, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM till_sessions WHERE id = $1`, id)
	session, err := scanSession(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrSessionNotFound
	}
	return session, err
}

// Update stores the close-time reconciliation fields.
func (r *Repository) Update(ctx context.Context, s Session) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE till_sessions SET expected_amount = $2, declared_amount = $3, deviation = $4, deviation_pct = $5,
		 status = $6, deviation_class = $7, notes = $8, closed_at = $9 WHERE id = $1`,
		s.ID, decimalText(s.ExpectedAmount), decimalText(s.DeclaredAmount), decimalText(s.Deviation),
		decimalText(s.DeviationPct), string(s.Status), classText(s.DeviationClass), s.Notes, s.ClosedAt)
	if err != nil {
		return fmt.Errorf("till: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func classText(c *DeviationClass) *string {
	if c == nil {
		return nil
	}
	s := string(*c)
	return &s
}

func scanSession(row pgx.Row) (Session, error) {
	var (
		s         Session
		status    string
		opening   string
		expected  *string
		declared  *string
		deviation *string
		pct       *string
		class     *string
	)
	if err := row.Scan(&s.ID, &s.Register, &opening, &expected, &declared, &deviation, &pct, &status, &class, &s.Notes, &s.OpenedAt, &s.ClosedAt); err != nil {
		return Session{}, err
	}
	s.Status = SessionStatus(status)

	parsed, err := decimal.NewFromString(opening)
	if err != nil {
		return Session{}, fmt.Errorf("till: parse opening float %q: %w", opening, err)
	}
	s.OpeningFloat = parsed

	if s.ExpectedAmount, err = parseOptional(expected); err != nil {
		return Session{}, err
	}
	if s.DeclaredAmount, err = parseOptional(declared); err != nil {
		return Session{}, err
	}
	if s.Deviation, err = parseOptional(deviation); err != nil {
		return Session{}, err
	}
	if s.DeviationPct, err = parseOptional(pct); err != nil {
		return Session{}, err
	}
	if class != nil {
		c := DeviationClass(*class)
		s.DeviationClass = &c
	}
	return s, nil
}

func parseOptional(raw *string) (*decimal.Decimal, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(*raw)
	if err != nil {
		return nil, fmt.Errorf("till: parse amount %q: %w", *raw, err)
	}
	return &parsed, nil
}
