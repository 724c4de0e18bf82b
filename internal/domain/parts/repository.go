// Package parts reads the reference parts database. The auditor never writes
// parts; maintenance happens elsewhere.
package parts

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/internal/domain/invoice"
	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/db"
)

// Repository looks parts up in Postgres.
type Repository struct {
	db db.Querier
}

// NewRepository creates a new parts repository
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// LookupPart returns the part, or nil when no row exists. Inactive parts are
// returned as stored; callers decide what inactive means.
func (r *Repository) LookupPart(ctx context.Context, partNumber string) (*invoice.Part, error) {
	query := `
		SELECT part_number, authorized_price::text, description, category, is_active
		FROM parts
		WHERE part_number = $1
	`

	var (
		p     invoice.Part
		price string
	)
	err := r.db.QueryRow(ctx, query, partNumber).Scan(
		&p.PartNumber,
		&price,
		&p.Description,
		&p.Category,
		&p.IsActive,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query part %s: %w", partNumber, err)
	}

	if p.AuthorizedPrice, err = decimal.NewFromString(price); err != nil {
		return nil, fmt.Errorf("part %s authorized_price %q: %w", partNumber, price, err)
	}

	return &p, nil
}

// ListPartNumbers returns active part numbers in order.
func (r *Repository) ListPartNumbers(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT part_number FROM parts WHERE is_active ORDER BY part_number`)
	if err != nil {
		return nil, fmt.Errorf("list part numbers: %w", err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}

	return numbers, rows.Err()
}
