package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-billing/internal/model"
)

// InvoiceRepo persists finalized bills. An invoice row and its line
// items are always written inside one transaction, and the repository
// exposes a compensating delete so the billing service can unwind the
// row when the companion blob upload fails. Invoices are immutable: no
// update statement exists in this file on purpose.
type InvoiceRepo struct {
	db *sql.DB
}

// NewInvoiceRepo returns a new InvoiceRepo bound to the given database.
func NewInvoiceRepo(db *sql.DB) *InvoiceRepo { return &InvoiceRepo{db: db} }

// Create inserts the invoice row and all of its items in a single
// transaction and populates CreatedAt from the stored row. The caller
// supplies the complete, already-rounded monetary breakdown; nothing is
// recomputed here. A duplicate invoice number surfaces as a conflict
// through the driver-error classification.
func (r *InvoiceRepo) Create(ctx context.Context, inv *model.Invoice) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin invoice tx", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	const q = `INSERT INTO invoices
	           (id, hotel_id, invoice_number, table_number, subtotal,
	            gst_percentage, gst_amount, service_charge_percentage, service_charge_amount,
	            discount_amount, grand_total, invoice_json, pdf_key)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, q,
		inv.ID, inv.HotelID, inv.InvoiceNumber, inv.TableNumber, inv.Subtotal,
		inv.GSTPercentage, inv.GSTAmount, inv.ServiceChargePercentage, inv.ServiceChargeAmount,
		inv.DiscountAmount, inv.GrandTotal, inv.InvoiceJSON, inv.PDFKey,
	); err != nil {
		return classify("insert invoice", err)
	}

	if len(inv.Items) > 0 {
		query := `INSERT INTO invoice_items (invoice_id, dish_name, price, quantity, total) VALUES `
		args := make([]any, 0, len(inv.Items)*5)
		for i, it := range inv.Items {
			if i > 0 {
				query += ","
			}
			query += "(?, ?, ?, ?, ?)"
			args = append(args, inv.ID, it.DishName, it.Price, it.Quantity, it.Total)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return classify("insert invoice items", err)
		}
	}

	const sel = `SELECT created_at FROM invoices WHERE id = ?`
	if err := tx.QueryRowContext(ctx, sel, inv.ID).Scan(&inv.CreatedAt); err != nil {
		return classify("read invoice timestamps", err)
	}

	if err := tx.Commit(); err != nil {
		return classify("commit invoice", err)
	}
	committed = true
	return nil
}

// DeleteByID removes the invoice row and its items. This is the
// compensation step of the dual-write protocol; deleting an invoice
// that was already rolled back is a no-op so retries stay safe.
func (r *InvoiceRepo) DeleteByID(ctx context.Context, invoiceID string) error {
	// invoice_items cascades on the invoices FK
	const q = `DELETE FROM invoices WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, invoiceID); err != nil {
		return classify("delete invoice", err)
	}
	return nil
}

// GetByIDForHotel returns a single invoice scoped to its tenant,
// including line items in their original insertion order. An invoice
// that is absent and one owned by a different hotel both read as
// not-found so existence never leaks across tenants.
func (r *InvoiceRepo) GetByIDForHotel(ctx context.Context, invoiceID string, hotelID uint64) (*model.Invoice, error) {
	const q = `SELECT id, hotel_id, invoice_number, table_number, subtotal,
	                  gst_percentage, gst_amount, service_charge_percentage, service_charge_amount,
	                  discount_amount, grand_total, invoice_json, pdf_key, created_at
	           FROM invoices
	           WHERE id = ? AND hotel_id = ?`
	var inv model.Invoice
	err := r.db.QueryRowContext(ctx, q, invoiceID, hotelID).Scan(
		&inv.ID, &inv.HotelID, &inv.InvoiceNumber, &inv.TableNumber, &inv.Subtotal,
		&inv.GSTPercentage, &inv.GSTAmount, &inv.ServiceChargePercentage, &inv.ServiceChargeAmount,
		&inv.DiscountAmount, &inv.GrandTotal, &inv.InvoiceJSON, &inv.PDFKey, &inv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, NotFound("invoice not found")
	}
	if err != nil {
		return nil, classify("read invoice", err)
	}

	const itemQ = `SELECT id, dish_name, price, quantity, total
	               FROM invoice_items
	               WHERE invoice_id = ?
	               ORDER BY id`
	rows, err := r.db.QueryContext(ctx, itemQ, invoiceID)
	if err != nil {
		return nil, classify("read invoice items", err)
	}
	defer rows.Close()
	inv.Items = make([]model.InvoiceItem, 0)
	for rows.Next() {
		var it model.InvoiceItem
		if err := rows.Scan(&it.ID, &it.DishName, &it.Price, &it.Quantity, &it.Total); err != nil {
			return nil, classify("read invoice items", err)
		}
		inv.Items = append(inv.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("read invoice items", err)
	}
	return &inv, nil
}

// ListByHotel returns invoice summaries for a tenant, newest first,
// without line items. Used by the portal's invoice history screen.
func (r *InvoiceRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Invoice, error) {
	const q = `SELECT id, hotel_id, invoice_number, table_number, subtotal,
	                  gst_percentage, gst_amount, service_charge_percentage, service_charge_amount,
	                  discount_amount, grand_total, invoice_json, pdf_key, created_at
	           FROM invoices
	           WHERE hotel_id = ?
	           ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, classify("list invoices", err)
	}
	defer rows.Close()
	invoices := make([]model.Invoice, 0)
	for rows.Next() {
		var inv model.Invoice
		if err := rows.Scan(
			&inv.ID, &inv.HotelID, &inv.InvoiceNumber, &inv.TableNumber, &inv.Subtotal,
			&inv.GSTPercentage, &inv.GSTAmount, &inv.ServiceChargePercentage, &inv.ServiceChargeAmount,
			&inv.DiscountAmount, &inv.GrandTotal, &inv.InvoiceJSON, &inv.PDFKey, &inv.CreatedAt,
		); err != nil {
			return nil, classify("list invoices", err)
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list invoices", err)
	}
	return invoices, nil
}
