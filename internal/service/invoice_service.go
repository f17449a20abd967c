package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hotel-billing/internal/billing"
	"github.com/iliyamo/hotel-billing/internal/metrics"
	"github.com/iliyamo/hotel-billing/internal/model"
	"github.com/iliyamo/hotel-billing/internal/pdf"
	"github.com/iliyamo/hotel-billing/internal/repository"
	"github.com/iliyamo/hotel-billing/internal/retry"
)

// InvoiceStore is the relational half of the dual write. The production
// implementation is repository.InvoiceRepo.
type InvoiceStore interface {
	Create(ctx context.Context, inv *model.Invoice) error
	DeleteByID(ctx context.Context, invoiceID string) error
	GetByIDForHotel(ctx context.Context, invoiceID string, hotelID uint64) (*model.Invoice, error)
	ListByHotel(ctx context.Context, hotelID uint64) ([]model.Invoice, error)
}

// BlobStore is the object-store half of the dual write.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Remove(ctx context.Context, key string) error
}

// GenerateParams is the input to StoreInvoice. Nil rate pointers fall
// back to the hotel's configured defaults; MaxRetries of zero selects
// the service default.
type GenerateParams struct {
	TableNumber             uint32
	Lines                   []billing.LineInput
	GSTPercentage           *float64
	ServiceChargePercentage *float64
	DiscountAmount          float64
	MaxRetries              int
}

// InvoiceService enforces the all-or-nothing guarantee between the
// invoices row and the rendered document blob. Each attempt runs the
// whole protocol from a clean state: compute, render, insert the row
// (pdf_key already set), upload the blob, and on upload failure delete
// the row so it never outlives the blob. Transient faults re-run the
// protocol under exponential backoff bounded by MaxRetries.
type InvoiceService struct {
	invoices InvoiceStore
	blobs    BlobStore
	hotels   TenantStore
	renderer pdf.Renderer

	defaultRetries int
	baseDelay      time.Duration
}

// NewInvoiceService constructs an InvoiceService with the
// storage-atomicity retry policy: three attempts, exponential backoff.
func NewInvoiceService(invoices InvoiceStore, blobs BlobStore, hotels TenantStore, renderer pdf.Renderer) *InvoiceService {
	if invoices == nil || blobs == nil || hotels == nil || renderer == nil {
		panic("nil dependency passed to NewInvoiceService")
	}
	return &InvoiceService{
		invoices:       invoices,
		blobs:          blobs,
		hotels:         hotels,
		renderer:       renderer,
		defaultRetries: 3,
		baseDelay:      200 * time.Millisecond,
	}
}

// invoiceSnapshot is the structured document stored verbatim in
// invoice_json for replay and audit. It mirrors what the renderer saw.
type invoiceSnapshot struct {
	InvoiceNumber           string              `json:"invoice_number"`
	HotelID                 uint64              `json:"hotel_id"`
	TableNumber             uint32              `json:"table_number"`
	Items                   []model.InvoiceItem `json:"items"`
	Subtotal                float64             `json:"subtotal"`
	GSTPercentage           float64             `json:"gst_percentage"`
	GSTAmount               float64             `json:"gst_amount"`
	ServiceChargePercentage float64             `json:"service_charge_percentage"`
	ServiceChargeAmount     float64             `json:"service_charge_amount"`
	DiscountAmount          float64             `json:"discount_amount"`
	GrandTotal              float64             `json:"grand_total"`
	GeneratedAt             string              `json:"generated_at"`
}

// StoreInvoice runs the two-phase protocol and returns the persisted
// invoice. After a success both stores reflect the invoice; after an
// error neither does, so callers may safely retry the whole call.
func (s *InvoiceService) StoreInvoice(ctx context.Context, hotelID uint64, p GenerateParams) (*model.Invoice, error) {
	if p.TableNumber == 0 {
		return nil, repository.Validation("table number must be positive")
	}
	hotel, err := s.hotels.GetByID(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	gstPct := hotel.GSTPercentage
	if p.GSTPercentage != nil {
		gstPct = *p.GSTPercentage
	}
	servicePct := hotel.ServiceChargePercentage
	if p.ServiceChargePercentage != nil {
		servicePct = *p.ServiceChargePercentage
	}
	breakdown, err := billing.Compute(p.Lines, gstPct, servicePct, p.DiscountAmount)
	if err != nil {
		return nil, err
	}

	maxRetries := p.MaxRetries
	if maxRetries <= 0 {
		maxRetries = s.defaultRetries
	}

	inv, err := retry.Do(ctx, "invoice.store", retry.Config{
		MaxAttempts: maxRetries,
		BaseDelay:   s.baseDelay,
		Backoff:     retry.Exponential(s.baseDelay),
		Retryable:   repository.IsTransient,
	}, func(ctx context.Context) (*model.Invoice, error) {
		return s.storeOnce(ctx, hotelID, p.TableNumber, breakdown)
	})
	result := "ok"
	if err != nil {
		result = repository.KindOf(err).String()
	}
	metrics.InvoiceWritesTotal.WithLabelValues(result).Inc()
	return inv, err
}

// storeOnce is one clean-slate pass of the protocol. Identifiers and
// the blob key are freshly generated per attempt so a half-failed
// earlier attempt can never collide with this one.
func (s *InvoiceService) storeOnce(ctx context.Context, hotelID uint64, tableNumber uint32, b *billing.Breakdown) (*model.Invoice, error) {
	now := time.Now().UTC()
	id := uuid.NewString()
	number := newInvoiceNumber(now)
	key := fmt.Sprintf("invoices/%d/%s.pdf", hotelID, id)

	blob, err := s.renderer.Render(number, tableNumber, b)
	if err != nil {
		return nil, repository.Transient("document rendering failed", err)
	}

	snapshot, err := json.Marshal(invoiceSnapshot{
		InvoiceNumber:           number,
		HotelID:                 hotelID,
		TableNumber:             tableNumber,
		Items:                   b.Items,
		Subtotal:                b.Subtotal,
		GSTPercentage:           b.GSTPercentage,
		GSTAmount:               b.GSTAmount,
		ServiceChargePercentage: b.ServiceChargePercentage,
		ServiceChargeAmount:     b.ServiceChargeAmount,
		DiscountAmount:          b.DiscountAmount,
		GrandTotal:              b.GrandTotal,
		GeneratedAt:             now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, repository.Validation("invoice snapshot is not serializable")
	}

	inv := &model.Invoice{
		ID:                      id,
		HotelID:                 hotelID,
		InvoiceNumber:           number,
		TableNumber:             tableNumber,
		Items:                   b.Items,
		Subtotal:                b.Subtotal,
		GSTPercentage:           b.GSTPercentage,
		GSTAmount:               b.GSTAmount,
		ServiceChargePercentage: b.ServiceChargePercentage,
		ServiceChargeAmount:     b.ServiceChargeAmount,
		DiscountAmount:          b.DiscountAmount,
		GrandTotal:              b.GrandTotal,
		InvoiceJSON:             string(snapshot),
		PDFKey:                  key,
	}

	// Phase one: relational row (with items and pdf_key) in one tx.
	// A failure here leaves nothing persisted; no blob was written yet.
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, err
	}

	// Phase two: blob upload. If it fails the row must not outlive the
	// blob, so compensate before reporting the failure.
	if err := s.blobs.Put(ctx, key, blob, "application/pdf"); err != nil {
		s.compensate(inv.ID, key)
		return nil, err
	}
	return inv, nil
}

// compensate deletes the invoice row after a failed blob upload. It
// runs on a fresh context so a cancelled request cannot strand the row,
// and retries the delete itself a few times before giving up loudly.
func (s *InvoiceService) compensate(invoiceID, key string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	_, err := retry.Do(ctx, "invoice.rollback", retry.Config{
		MaxAttempts: 3,
		BaseDelay:   100 * time.Millisecond,
		Backoff:     retry.Exponential(100 * time.Millisecond),
	}, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.invoices.DeleteByID(ctx, invoiceID)
	})
	if err != nil {
		slog.Error("invoice rollback failed; row may be orphaned",
			"invoice_id", invoiceID,
			"pdf_key", key,
			"error", err,
		)
		return
	}
	metrics.InvoiceRollbacksTotal.Inc()
}

// RetrieveInvoice returns a stored invoice scoped to its tenant. It is
// never retried: a failure is either genuine absence or an
// authorization boundary, not a transient fault.
func (s *InvoiceService) RetrieveInvoice(ctx context.Context, invoiceID string, hotelID uint64) (*model.Invoice, error) {
	if invoiceID == "" {
		return nil, repository.Validation("invoice id is required")
	}
	return s.invoices.GetByIDForHotel(ctx, invoiceID, hotelID)
}

// ListInvoices returns invoice summaries for the tenant.
func (s *InvoiceService) ListInvoices(ctx context.Context, hotelID uint64) ([]model.Invoice, error) {
	return s.invoices.ListByHotel(ctx, hotelID)
}

// newInvoiceNumber builds the human-facing identifier: date plus a
// short random suffix, unique per tenant via the database index.
func newInvoiceNumber(now time.Time) string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("INV-%s-%s", now.Format("20060102"), hex.EncodeToString(buf))
}
