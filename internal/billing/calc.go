// Package billing computes the monetary breakdown of a bill. All
// derived amounts use two-decimal fixed-point semantics: every
// intermediate result is rounded to the cent before the next step, so a
// breakdown recomputed from stored values always matches the stored
// totals within floating-point tolerance.
package billing

import (
	"math"

	"github.com/iliyamo/hotel-billing/internal/model"
	"github.com/iliyamo/hotel-billing/internal/repository"
)

// LineInput is one requested bill line before totalling.
type LineInput struct {
	DishName string  `json:"dish_name"`
	Price    float64 `json:"price"`
	Quantity uint32  `json:"quantity"`
}

// Breakdown is the computed content of a bill: finalized lines plus the
// aggregate amounts, all rounded to the cent.
type Breakdown struct {
	Items                   []model.InvoiceItem
	Subtotal                float64
	GSTPercentage           float64
	GSTAmount               float64
	ServiceChargePercentage float64
	ServiceChargeAmount     float64
	DiscountAmount          float64
	GrandTotal              float64
}

// Round2 rounds v to two decimal places, half away from zero.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Compute totals the lines and applies GST, service charge and discount
// in that order. Rounding happens at every step: per line, after the
// subtotal, after each percentage amount and after the grand total.
// Validation failures (no lines, non-positive price or quantity,
// negative rates or discount) are reported through the store taxonomy
// so handlers map them to 400 without translation.
func Compute(lines []LineInput, gstPct, servicePct, discount float64) (*Breakdown, error) {
	if len(lines) == 0 {
		return nil, repository.Validation("items must not be empty")
	}
	if gstPct < 0 || servicePct < 0 {
		return nil, repository.Validation("percentages must not be negative")
	}
	if discount < 0 {
		return nil, repository.Validation("discount must not be negative")
	}

	items := make([]model.InvoiceItem, 0, len(lines))
	subtotal := 0.0
	for _, l := range lines {
		if l.DishName == "" {
			return nil, repository.Validation("dish name must not be empty")
		}
		if l.Quantity == 0 {
			return nil, repository.Validation("quantity must be positive")
		}
		if l.Price < 0 {
			return nil, repository.Validation("price must not be negative")
		}
		lineTotal := Round2(l.Price * float64(l.Quantity))
		items = append(items, model.InvoiceItem{
			DishName: l.DishName,
			Price:    Round2(l.Price),
			Quantity: l.Quantity,
			Total:    lineTotal,
		})
		subtotal = Round2(subtotal + lineTotal)
	}

	gstAmount := Round2(subtotal * gstPct / 100)
	serviceAmount := Round2(subtotal * servicePct / 100)
	grand := Round2(subtotal + gstAmount + serviceAmount - discount)
	if grand < 0 {
		return nil, repository.Validation("discount exceeds billable amount")
	}

	return &Breakdown{
		Items:                   items,
		Subtotal:                subtotal,
		GSTPercentage:           gstPct,
		GSTAmount:               gstAmount,
		ServiceChargePercentage: servicePct,
		ServiceChargeAmount:     serviceAmount,
		DiscountAmount:          Round2(discount),
		GrandTotal:              grand,
	}, nil
}
