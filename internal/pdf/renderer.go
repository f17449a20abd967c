// Package pdf defines the document-rendering boundary. Real rendering
// lives outside this service; the core only needs "invoice data in,
// byte blob out". TextRenderer is the deterministic fallback used when
// no external renderer is wired, which keeps the dual-write protocol
// and its tests independent of any rendering engine.
package pdf

import (
	"fmt"
	"strings"

	"github.com/iliyamo/hotel-billing/internal/billing"
)

// Renderer renders a computed bill into the document blob persisted
// next to the invoice row. Implementations must be pure with respect to
// their input: the same breakdown always yields the same blob.
type Renderer interface {
	Render(invoiceNumber string, tableNumber uint32, b *billing.Breakdown) ([]byte, error)
}

// TextRenderer renders a plain-text statement. It exists so the billing
// flow works end to end without an external PDF engine; swapping in a
// real renderer is a one-line change at wiring time.
type TextRenderer struct{}

// Render produces a deterministic line-per-item statement.
func (TextRenderer) Render(invoiceNumber string, tableNumber uint32, b *billing.Breakdown) ([]byte, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "INVOICE %s\n", invoiceNumber)
	fmt.Fprintf(&sb, "TABLE %d\n\n", tableNumber)
	for _, it := range b.Items {
		fmt.Fprintf(&sb, "%-30s %3d x %8.2f = %10.2f\n", it.DishName, it.Quantity, it.Price, it.Total)
	}
	fmt.Fprintf(&sb, "\nSUBTOTAL       %10.2f\n", b.Subtotal)
	fmt.Fprintf(&sb, "GST %5.2f%%     %10.2f\n", b.GSTPercentage, b.GSTAmount)
	fmt.Fprintf(&sb, "SERVICE %5.2f%% %10.2f\n", b.ServiceChargePercentage, b.ServiceChargeAmount)
	fmt.Fprintf(&sb, "DISCOUNT       %10.2f\n", b.DiscountAmount)
	fmt.Fprintf(&sb, "GRAND TOTAL    %10.2f\n", b.GrandTotal)
	return []byte(sb.String()), nil
}
