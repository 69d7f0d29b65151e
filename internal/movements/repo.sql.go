// Package movements persists ledger movements and exposes the HTTP surface
// for saving them and reading balances.
package movements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/tillpoint/tillpoint/internal/ledger"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Repository persists movements.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListFilter narrows List results. Zero values mean no filtering.
type ListFilter struct {
	SessionID uuid.UUID
	Since     time.Time
	Until     time.Time
}

const movementColumns = `id, session_id, type, occurred_at, total::text, legacy_method, split, description, reference_id`

// Insert stores one immutable movement row.
func (r *Repository) Insert(ctx context.Context, m ledger.Movement) error {
	var split []byte
	if m.Payment.Kind == ledger.PaymentSplit {
		encoded, err := json.Marshal(m.Payment.Allocations)
		if err != nil {
			return fmt.Errorf("movements: encode split: %w", err)
		}
		split = encoded
	}
	var sessionID *uuid.UUID
	if m.SessionID != uuid.Nil {
		sessionID = &m.SessionID
	}
	var legacy *string
	if m.Payment.Method != "" {
		legacy = &m.Payment.Method
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO movements (id, session_id, type, occurred_at, total, legacy_method, split, description, reference_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		m.ID, sessionID, string(m.Type), m.OccurredAt, m.Total.StringFixed(2), legacy, split, m.Description, m.ReferenceID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("movements: %w: id %s", shared.ErrConflict, m.ID)
		}
		return fmt.Errorf("movements: insert: %w", err)
	}
	return nil
}

// List returns movements matching the filter, oldest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]ledger.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements WHERE 1=1`
	args := []any{}
	if filter.SessionID != uuid.Nil {
		args = append(args, filter.SessionID)
		query += fmt.Sprintf(" AND session_id = $%d", len(args))
	}
	if !filter.Since.IsZero() {
		args = append(args, filter.Since)
		query += fmt.Sprintf(" AND occurred_at >= $%d", len(args))
	}
	if !filter.Until.IsZero() {
		args = append(args, filter.Until)
		query += fmt.Sprintf(" AND occurred_at <= $%d", len(args))
	}
	query += " ORDER BY occurred_at, id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("movements: list: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// ListWindow returns movements whose timestamp falls within the duplicate
// detection window around the given instant.
func (r *Repository) ListWindow(ctx context.Context, around time.Time, window time.Duration) ([]ledger.Movement, error) {
	return r.List(ctx, ListFilter{Since: around.Add(-window), Until: around.Add(window)})
}

func scanMovements(rows pgx.Rows) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for rows.Next() {
		var (
			m         ledger.Movement
			sessionID *uuid.UUID
			mtype     string
			total     string
			legacy    *string
			split     []byte
		)
		if err := rows.Scan(&m.ID, &sessionID, &mtype, &m.OccurredAt, &total, &legacy, &split, &m.Description, &m.ReferenceID); err != nil {
			return nil, fmt.Errorf("movements: scan: %w", err)
		}
		if sessionID != nil {
			m.SessionID = *sessionID
		}
		m.Type = ledger.MovementType(mtype)
		parsed, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("movements: parse total %q: %w", total, err)
		}
		m.Total = parsed

		var allocations map[string]decimal.Decimal
		if len(split) > 0 {
			if err := json.Unmarshal(split, &allocations); err != nil {
				return nil, fmt.Errorf("movements: decode split: %w", err)
			}
		}
		legacyMethod := ""
		if legacy != nil {
			legacyMethod = *legacy
		}
		m.Payment = ledger.NewPayment(legacyMethod, allocations)
		out = append(out, m)
	}
	return out, rows.Err()
}
