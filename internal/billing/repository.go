package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-clinic/meridian/internal/platform/db"
)

// ErrNotFound indicates invoice not found.
var ErrNotFound = errors.New("billing: invoice not found")

// ErrDuplicateNumber indicates the unique index on an invoice or job
// order number was violated. The allocator makes this structurally
// impossible; if it surfaces anyway the creation must fail hard instead
// of overwriting the colliding invoice.
var ErrDuplicateNumber = errors.New("billing: duplicate invoice number")

// Repository provides PostgreSQL backed persistence for billing.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateInvoice persists the invoice and its items in one transaction.
// The caller has already assigned numbers and totals; a failed insert
// leaves no partial invoice behind.
func (r *Repository) CreateInvoice(ctx context.Context, inv *Invoice) error {
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO invoices (
				invoice_number, job_order_number, patient_id, patient_name,
				invoice_date, date_key, total_amount, notes, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
			RETURNING id, created_at, updated_at`,
			inv.InvoiceNumber,
			inv.JobOrderNumber,
			inv.PatientID,
			inv.PatientName,
			inv.InvoiceDate,
			inv.DateKey,
			inv.TotalAmount,
			inv.Notes,
		).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
		if err != nil {
			return err
		}

		for i := range inv.Items {
			item := &inv.Items[i]
			item.InvoiceID = inv.ID
			err := tx.QueryRow(ctx, `
				INSERT INTO invoice_items (
					invoice_id, description, quantity, unit_price, discount, line_total
				) VALUES ($1, $2, $3, $4, $5, $6)
				RETURNING id`,
				inv.ID,
				item.Description,
				item.Quantity,
				item.UnitPrice,
				item.Discount,
				item.LineTotal,
			).Scan(&item.ID)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, inv.InvoiceNumber)
		}
		return fmt.Errorf("billing: create invoice: %w", err)
	}
	return nil
}

// GetInvoice loads one invoice with its items.
func (r *Repository) GetInvoice(ctx context.Context, id int64) (*Invoice, error) {
	var inv Invoice
	err := r.pool.QueryRow(ctx, `
		SELECT id, invoice_number, job_order_number, patient_id, patient_name,
		       invoice_date, date_key, total_amount, notes, created_at, updated_at
		FROM invoices WHERE id = $1`, id).Scan(
		&inv.ID, &inv.InvoiceNumber, &inv.JobOrderNumber, &inv.PatientID, &inv.PatientName,
		&inv.InvoiceDate, &inv.DateKey, &inv.TotalAmount, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("billing: get invoice: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, invoice_id, description, quantity, unit_price, discount, line_total
		FROM invoice_items WHERE invoice_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("billing: list invoice items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item InvoiceItem
		if err := rows.Scan(&item.ID, &item.InvoiceID, &item.Description,
			&item.Quantity, &item.UnitPrice, &item.Discount, &item.LineTotal); err != nil {
			return nil, fmt.Errorf("billing: scan invoice item: %w", err)
		}
		inv.Items = append(inv.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate invoice items: %w", err)
	}

	return &inv, nil
}

// ListInvoices returns invoices matching the filter, newest first.
func (r *Repository) ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error) {
	limit := req.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT id, invoice_number, job_order_number, patient_id, patient_name,
		       invoice_date, date_key, total_amount, notes, created_at, updated_at
		FROM invoices
		WHERE ($1 = 0 OR patient_id = $1)
		  AND ($2 = '' OR date_key = $2)
		ORDER BY id DESC
		LIMIT $3 OFFSET $4`

	rows, err := r.pool.Query(ctx, query, req.PatientID, req.DateKey, limit, req.Offset)
	if err != nil {
		return nil, fmt.Errorf("billing: list invoices: %w", err)
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.JobOrderNumber, &inv.PatientID,
			&inv.PatientName, &inv.InvoiceDate, &inv.DateKey, &inv.TotalAmount, &inv.Notes,
			&inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("billing: scan invoice: %w", err)
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate invoices: %w", err)
	}
	return out, nil
}

// CountInvoicesForDay counts persisted invoices allocated under the
// given date key. The stored date_key column is authoritative; deriving
// the day from invoice_date in SQL would use the session timezone and
// disagree with the allocator around midnight. Used by the nightly
// numbering audit to report burned sequence numbers.
func (r *Repository) CountInvoicesForDay(ctx context.Context, dateKey string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM invoices WHERE date_key = $1`,
		dateKey).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("billing: count invoices for %s: %w", dateKey, err)
	}
	return count, nil
}
