package model

import "time"

// Hotel is the owning tenant. Its identifier scopes every order and
// invoice and is the authorization boundary for all reads and writes.
// TableCount bounds the table_number accepted on order creation;
// the percentage fields supply defaults when a billing request omits
// its own rates.
type Hotel struct {
	ID                      uint64    `json:"id"`          // hotels.id
	Name                    string    `json:"name"`        // hotels.name
	TableCount              uint32    `json:"table_count"` // hotels.table_count
	GSTPercentage           float64   `json:"gst_percentage"`
	ServiceChargePercentage float64   `json:"service_charge_percentage"`
	CreatedAt               time.Time `json:"created_at"`
}
