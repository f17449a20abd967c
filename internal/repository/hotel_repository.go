package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/hotel-billing/internal/model"
)

// HotelRepo reads tenant configuration: the table count that bounds
// order creation and the default tax/service rates applied when a
// billing request does not carry its own.
type HotelRepo struct {
	db *sql.DB
}

// NewHotelRepo returns a new HotelRepo bound to the given database.
func NewHotelRepo(db *sql.DB) *HotelRepo { return &HotelRepo{db: db} }

// GetByID returns the hotel profile for the given tenant.
func (r *HotelRepo) GetByID(ctx context.Context, hotelID uint64) (*model.Hotel, error) {
	const q = `SELECT id, name, table_count, gst_percentage, service_charge_percentage, created_at
	           FROM hotels WHERE id = ?`
	var h model.Hotel
	err := r.db.QueryRowContext(ctx, q, hotelID).Scan(
		&h.ID, &h.Name, &h.TableCount, &h.GSTPercentage, &h.ServiceChargePercentage, &h.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, NotFound("hotel not found")
	}
	if err != nil {
		return nil, classify("read hotel", err)
	}
	return &h, nil
}
