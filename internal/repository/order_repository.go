package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-billing/internal/model"
)

// OrderRepo provides persistence for orders. Correctness under
// concurrent access rests entirely on the database evaluating each
// conditional statement atomically: creation inserts only while no OPEN
// order holds the table, and every mutation carries the version the
// caller last observed. The repository holds no cross-call state; every
// operation re-reads current rows, which is what makes the optimistic
// scheme sound.
type OrderRepo struct {
	db *sql.DB
}

// NewOrderRepo returns a new OrderRepo bound to the given database.
func NewOrderRepo(db *sql.DB) *OrderRepo { return &OrderRepo{db: db} }

// DB exposes the underlying pool for health checks.
func (r *OrderRepo) DB() *sql.DB { return r.db }

const orderColumns = `order_id, hotel_id, table_number, items, notes, status,
       invoice_id, version, locked_by, lock_expires_at, created_at, updated_at`

// scanOrder reads one row laid out as orderColumns.
func scanOrder(row interface{ Scan(...any) error }) (*model.Order, error) {
	var o model.Order
	var itemsRaw []byte
	var notes, invoiceID, lockedBy sql.NullString
	var lockExpires sql.NullTime
	err := row.Scan(
		&o.OrderID, &o.HotelID, &o.TableNumber, &itemsRaw, &notes, &o.Status,
		&invoiceID, &o.Version, &lockedBy, &lockExpires, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(itemsRaw) > 0 {
		if err := json.Unmarshal(itemsRaw, &o.Items); err != nil {
			return nil, err
		}
	}
	if notes.Valid {
		n := notes.String
		o.Notes = &n
	}
	if invoiceID.Valid {
		id := invoiceID.String
		o.InvoiceID = &id
	}
	if lockedBy.Valid {
		lb := lockedBy.String
		o.LockedBy = &lb
	}
	if lockExpires.Valid {
		t := lockExpires.Time
		o.LockExpiresAt = &t
	}
	return &o, nil
}

// Create inserts a new OPEN order at version 1 as a single conditional
// write: the INSERT..SELECT only produces a row while no OPEN order
// exists for the same (hotel, table). Zero affected rows means another
// open order holds the table and is reported as a conflict, never as
// silently returning the existing order. The unique index over
// (hotel_id, table_number, open_marker) backstops the same rule, so a
// racing duplicate insert degrades to the same conflict via the
// duplicate-key classification.
func (r *OrderRepo) Create(ctx context.Context, hotelID uint64, tableNumber uint32, items []model.OrderItem, notes *string) (*model.Order, error) {
	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return nil, Validation("items are not serializable")
	}
	orderID := uuid.NewString()
	const q = `INSERT INTO orders (order_id, hotel_id, table_number, items, notes, status, version)
	           SELECT ?, ?, ?, ?, ?, 'OPEN', 1
	           FROM DUAL
	           WHERE NOT EXISTS (
	               SELECT 1 FROM orders
	               WHERE hotel_id = ? AND table_number = ? AND status = 'OPEN'
	           )`
	res, err := r.db.ExecContext(ctx, q,
		orderID, hotelID, tableNumber, itemsJSON, notes,
		hotelID, tableNumber,
	)
	if err != nil {
		return nil, classify("create order", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, classify("create order", err)
	}
	if affected == 0 {
		return nil, Conflict("table already has an active order")
	}
	return r.getByID(ctx, orderID, hotelID)
}

// UpdateParams carries the mutable fields of an update together with
// the version the caller last observed. Nil fields are left untouched.
type UpdateParams struct {
	Items   []model.OrderItem
	Notes   *string
	Version uint64
}

// Update applies items/notes changes under the optimistic discipline:
// a single conditional UPDATE guarded by the submitted version and the
// OPEN status, evaluated atomically by the database so two racing
// writers can never both succeed against the same version. On success
// the version advances by exactly one and updated_at is refreshed. Zero
// affected rows is diagnosed with one follow-up read into not-found,
// invalid-operation (order already billed) or conflict (stale version).
func (r *OrderRepo) Update(ctx context.Context, orderID string, hotelID uint64, p UpdateParams) (*model.Order, error) {
	sets := make([]string, 0, 2)
	args := make([]any, 0, 6)
	if p.Items != nil {
		itemsJSON, err := json.Marshal(p.Items)
		if err != nil {
			return nil, Validation("items are not serializable")
		}
		sets = append(sets, "items = ?")
		args = append(args, itemsJSON)
	}
	if p.Notes != nil {
		sets = append(sets, "notes = ?")
		args = append(args, *p.Notes)
	}
	if len(sets) == 0 {
		return nil, Validation("nothing to update")
	}
	q := `UPDATE orders SET ` + strings.Join(sets, ", ") +
		`, version = version + 1, updated_at = UTC_TIMESTAMP()
	      WHERE order_id = ? AND hotel_id = ? AND version = ? AND status = 'OPEN'`
	args = append(args, orderID, hotelID, p.Version)

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, classify("update order", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, classify("update order", err)
	}
	if affected == 0 {
		return nil, r.diagnoseStaleWrite(ctx, orderID, hotelID)
	}
	return r.getByID(ctx, orderID, hotelID)
}

// MarkBilled terminates an order: same version guard as Update plus the
// status gate enforcing that only OPEN orders transition, and only to
// BILLED. The invoice reference is stamped in the same statement.
func (r *OrderRepo) MarkBilled(ctx context.Context, orderID string, hotelID uint64, invoiceID string, version uint64) (*model.Order, error) {
	const q = `UPDATE orders
	           SET status = 'BILLED', invoice_id = ?, version = version + 1, updated_at = UTC_TIMESTAMP()
	           WHERE order_id = ? AND hotel_id = ? AND version = ? AND status = 'OPEN'`
	res, err := r.db.ExecContext(ctx, q, invoiceID, orderID, hotelID, version)
	if err != nil {
		return nil, classify("mark billed", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, classify("mark billed", err)
	}
	if affected == 0 {
		return nil, r.diagnoseStaleWrite(ctx, orderID, hotelID)
	}
	return r.getByID(ctx, orderID, hotelID)
}

// diagnoseStaleWrite explains a conditional write that matched no rows.
// The row is re-read once: absence (or foreign tenant) is not-found, a
// terminal status is invalid-operation and anything else is the classic
// stale-version conflict.
func (r *OrderRepo) diagnoseStaleWrite(ctx context.Context, orderID string, hotelID uint64) error {
	const q = `SELECT status FROM orders WHERE order_id = ? AND hotel_id = ?`
	var status string
	err := r.db.QueryRowContext(ctx, q, orderID, hotelID).Scan(&status)
	if err == sql.ErrNoRows {
		return NotFound("order not found")
	}
	if err != nil {
		return classify("read order status", err)
	}
	if status != model.OrderStatusOpen {
		return InvalidOperation("order is already billed")
	}
	return Conflict("order was modified by another user")
}

// GetActiveOrder returns the OPEN order for a table, or nil when the
// table is free. Absence is a normal answer here, not an error: the UI
// uses this lookup to render table-busy indicators.
func (r *OrderRepo) GetActiveOrder(ctx context.Context, hotelID uint64, tableNumber uint32) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders
	      WHERE hotel_id = ? AND table_number = ? AND status = 'OPEN'`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, hotelID, tableNumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, classify("read active order", err)
	}
	return o, nil
}

// ListByHotel returns every order of a tenant, newest first. The
// ordering is stable for the duration of one call only.
func (r *OrderRepo) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE hotel_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, hotelID)
	if err != nil {
		return nil, classify("list orders", err)
	}
	defer rows.Close()
	orders := make([]model.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, classify("list orders", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list orders", err)
	}
	return orders, nil
}

// GetByID returns a single order scoped to its tenant.
func (r *OrderRepo) GetByID(ctx context.Context, orderID string, hotelID uint64) (*model.Order, error) {
	return r.getByID(ctx, orderID, hotelID)
}

func (r *OrderRepo) getByID(ctx context.Context, orderID string, hotelID uint64) (*model.Order, error) {
	q := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = ? AND hotel_id = ?`
	o, err := scanOrder(r.db.QueryRowContext(ctx, q, orderID, hotelID))
	if err == sql.ErrNoRows {
		return nil, NotFound("order not found")
	}
	if err != nil {
		return nil, classify("read order", err)
	}
	return o, nil
}
