package methods

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads payment methods from Postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListActive returns active methods ordered by position.
func (r *Repository) ListActive(ctx context.Context) ([]Method, error) {
	rows, err := r.pool.Query(ctx, `SELECT code, name, is_active, position FROM payment_methods WHERE is_active ORDER BY position, code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Method
	for rows.Next() {
		var m Method
		if err := rows.Scan(&m.Code, &m.Name, &m.Active, &m.Position); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
