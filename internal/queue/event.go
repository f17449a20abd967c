// Package queue defines message payloads exchanged over the message broker.
package queue

// InvoiceGeneratedEvent is published after an invoice row and its
// document blob have both been persisted. It carries enough for
// downstream consumers to log, notify, or feed reporting without
// querying the primary database.
type InvoiceGeneratedEvent struct {
	InvoiceID     string  `json:"invoice_id"`
	InvoiceNumber string  `json:"invoice_number"`
	HotelID       uint64  `json:"hotel_id"`
	TableNumber   uint32  `json:"table_number"`
	GrandTotal    float64 `json:"grand_total"`
	PDFKey        string  `json:"pdf_key"`
	GeneratedAt   string  `json:"generated_at"`
}

// OrderBilledEvent is published when an open order transitions to
// BILLED and its invoice reference is stamped.
type OrderBilledEvent struct {
	OrderID     string `json:"order_id"`
	HotelID     uint64 `json:"hotel_id"`
	TableNumber uint32 `json:"table_number"`
	InvoiceID   string `json:"invoice_id"`
	Version     uint64 `json:"version"`
	BilledAt    string `json:"billed_at"`
}
