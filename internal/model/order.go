package model

import "time"

// Order statuses. An order is created OPEN and transitions exactly once
// to BILLED when an invoice is generated for it. There are no other
// legal transitions; a BILLED order is terminal and immutable.
const (
	OrderStatusOpen   = "OPEN"
	OrderStatusBilled = "BILLED"
)

// OrderItem is one line on an open tab: a menu item reference and a
// quantity. Items are stored as a JSON array on the orders row and keep
// their insertion order.
type OrderItem struct {
	MenuItemID string `json:"menu_item_id"`
	Quantity   uint32 `json:"quantity"`
}

// Order records one open tab for one physical table at one hotel.
// Concurrent edits are detected through the Version counter: every
// successful mutation increments it by exactly one and a write carrying
// a stale version is rejected by the repository.
//
// Fields:
//  OrderID       – primary key, assigned at creation, immutable.
//  HotelID       – owning tenant, immutable.
//  TableNumber   – physical table, 1..hotel.table_count.
//  Items         – ordered line items, mutable while OPEN.
//  Notes         – optional free text, mutable while OPEN.
//  Status        – OPEN or BILLED (terminal).
//  InvoiceID     – set by the billing transition, nil before.
//  Version       – optimistic concurrency counter, starts at 1.
//  LockedBy      – advisory lock holder, reserved for a pessimistic
//                  extension; never consulted by the write paths.
//  LockExpiresAt – advisory lock expiry, same status as LockedBy.
//  CreatedAt     – creation timestamp.
//  UpdatedAt     – refreshed on every successful mutation.
type Order struct {
	OrderID       string      `json:"order_id"`        // orders.order_id
	HotelID       uint64      `json:"hotel_id"`        // orders.hotel_id
	TableNumber   uint32      `json:"table_number"`    // orders.table_number
	Items         []OrderItem `json:"items"`           // orders.items (JSON)
	Notes         *string     `json:"notes,omitempty"` // orders.notes (nullable)
	Status        string      `json:"status"`          // orders.status
	InvoiceID     *string     `json:"invoice_id,omitempty"`
	Version       uint64      `json:"version"` // orders.version
	LockedBy      *string     `json:"-"`       // orders.locked_by (nullable)
	LockExpiresAt *time.Time  `json:"-"`       // orders.lock_expires_at (nullable)
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Open reports whether the order can still be mutated.
func (o *Order) Open() bool { return o.Status == OrderStatusOpen }
