package model

import "time"

// InvoiceItem is one finalized line on a bill. Unlike OrderItem the
// price is resolved and the line total precomputed; all monetary values
// are rounded to the cent before persistence.
type InvoiceItem struct {
	ID       uint64  `json:"-"`         // invoice_items.id
	DishName string  `json:"dish_name"` // invoice_items.dish_name
	Price    float64 `json:"price"`     // invoice_items.price
	Quantity uint32  `json:"quantity"`  // invoice_items.quantity
	Total    float64 `json:"total"`     // invoice_items.total
}

// Invoice is a finalized, immutable bill. The row and its rendered
// document blob are written as a unit: one never exists without the
// other, including on failure paths. There is no update operation.
//
// Fields:
//  ID                      – primary key, opaque UUID.
//  HotelID                 – owning tenant.
//  InvoiceNumber           – human-facing, unique per tenant.
//  TableNumber             – table the bill was raised for.
//  Items                   – finalized line items in insertion order.
//  Subtotal                – sum of line totals.
//  GSTPercentage/Amount    – tax rate and derived amount.
//  ServiceChargePercentage/Amount – service charge rate and amount.
//  DiscountAmount          – flat discount applied after charges.
//  GrandTotal              – final payable amount.
//  InvoiceJSON             – verbatim structured snapshot used to render
//                            the document, kept for replay and audit.
//  PDFKey                  – object-store key of the rendered blob.
//  CreatedAt               – set once, immutable.
type Invoice struct {
	ID                      string        `json:"id"`
	HotelID                 uint64        `json:"hotel_id"`
	InvoiceNumber           string        `json:"invoice_number"`
	TableNumber             uint32        `json:"table_number"`
	Items                   []InvoiceItem `json:"items"`
	Subtotal                float64       `json:"subtotal"`
	GSTPercentage           float64       `json:"gst_percentage"`
	GSTAmount               float64       `json:"gst_amount"`
	ServiceChargePercentage float64       `json:"service_charge_percentage"`
	ServiceChargeAmount     float64       `json:"service_charge_amount"`
	DiscountAmount          float64       `json:"discount_amount"`
	GrandTotal              float64       `json:"grand_total"`
	InvoiceJSON             string        `json:"-"`
	PDFKey                  string        `json:"pdf_key"`
	CreatedAt               time.Time     `json:"created_at"`
}
