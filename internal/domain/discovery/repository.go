package discovery

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Nuosis/invoice-line-cost-detection-sub000/pkg/db"
)

// Repository stores the discovery log in Postgres.
type Repository struct {
	db db.Querier
}

// NewRepository creates a new discovery log repository
func NewRepository(q db.Querier) *Repository {
	return &Repository{db: q}
}

// Append inserts one entry. Prices are sent as decimal text so they never
// pass through a float.
func (r *Repository) Append(ctx context.Context, e Entry) error {
	query := `
		INSERT INTO discovery_log (
			id, part_number, invoice_number, invoice_date, discovered_price,
			authorized_price, action_taken, user_decision, discovery_date,
			processing_session_id, notes, line_number
		) VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.Exec(ctx, query,
		e.ID,
		e.PartNumber,
		e.InvoiceNumber,
		e.InvoiceDate,
		decimalText(e.DiscoveredPrice),
		decimalText(e.AuthorizedPrice),
		string(e.ActionTaken),
		e.UserDecision,
		e.DiscoveryDate,
		e.ProcessingSessionID,
		e.Notes,
		int64(e.LineNumber),
	)
	if err != nil {
		return fmt.Errorf("insert discovery entry %s: %w", e.ID, err)
	}
	return nil
}

// ListBySession returns a session's entries oldest first.
func (r *Repository) ListBySession(ctx context.Context, sessionID string) ([]Entry, error) {
	query := `
		SELECT id, part_number, invoice_number, invoice_date, discovered_price::text,
			authorized_price::text, action_taken, user_decision, discovery_date,
			processing_session_id, notes, line_number
		FROM discovery_log
		WHERE processing_session_id = $1
		ORDER BY discovery_date, id
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list discovery entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			discovered *string
			authorized *string
			action     string
			line       int64
		)
		if err := rows.Scan(
			&e.ID,
			&e.PartNumber,
			&e.InvoiceNumber,
			&e.InvoiceDate,
			&discovered,
			&authorized,
			&action,
			&e.UserDecision,
			&e.DiscoveryDate,
			&e.ProcessingSessionID,
			&e.Notes,
			&line,
		); err != nil {
			return nil, fmt.Errorf("scan discovery entry: %w", err)
		}

		if e.DiscoveredPrice, err = parseDecimalText(discovered); err != nil {
			return nil, fmt.Errorf("entry %s discovered_price: %w", e.ID, err)
		}
		if e.AuthorizedPrice, err = parseDecimalText(authorized); err != nil {
			return nil, fmt.Errorf("entry %s authorized_price: %w", e.ID, err)
		}
		if e.ActionTaken, err = ParseAction(action); err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.ID, err)
		}
		e.LineNumber = uint(line)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// DeleteOlderThan removes entries discovered before cutoff. It is the only
// delete path and is meant for retention jobs.
func (r *Repository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM discovery_log WHERE discovery_date < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete discovery entries before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}

func decimalText(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func parseDecimalText(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
