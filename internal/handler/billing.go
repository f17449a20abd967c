package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-billing/internal/billing"
	"github.com/iliyamo/hotel-billing/internal/queue"
	"github.com/iliyamo/hotel-billing/internal/service"
)

// URLSigner mints time-limited download links for stored documents.
// Presigning is an external concern; handlers only consume the URL.
type URLSigner interface {
	PresignedGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// BillingHandler exposes invoice generation and retrieval. Generation
// runs the atomic dual-write protocol in the service layer; by the time
// a 201 leaves this handler both the row and the document blob exist.
type BillingHandler struct {
	Invoices *service.InvoiceService
	Signer   URLSigner
}

// NewBillingHandler constructs a BillingHandler. The signer may be nil,
// in which case responses omit the pdf_url field.
func NewBillingHandler(invoices *service.InvoiceService, signer URLSigner) *BillingHandler {
	if invoices == nil {
		panic("nil service passed to NewBillingHandler")
	}
	return &BillingHandler{Invoices: invoices, Signer: signer}
}

// Generate handles POST /v1/billing/generate. It computes the monetary
// breakdown, persists the invoice row and document blob as a unit and
// returns 201 with the invoice and a presigned download link.
func (h *BillingHandler) Generate(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TableNumber             uint32              `json:"table_number"`
		Items                   []billing.LineInput `json:"items"`
		GSTPercentage           *float64            `json:"gst_percentage"`
		ServiceChargePercentage *float64            `json:"service_charge_percentage"`
		DiscountAmount          float64             `json:"discount_amount"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	inv, err := h.Invoices.StoreInvoice(c.Request().Context(), hotelID, service.GenerateParams{
		TableNumber:             body.TableNumber,
		Lines:                   body.Items,
		GSTPercentage:           body.GSTPercentage,
		ServiceChargePercentage: body.ServiceChargePercentage,
		DiscountAmount:          body.DiscountAmount,
	})
	if err != nil {
		return writeStoreError(c, "invoice.generate", err)
	}

	_ = service.PublishInvoiceGenerated(c.Request().Context(), queue.InvoiceGeneratedEvent{
		InvoiceID:     inv.ID,
		InvoiceNumber: inv.InvoiceNumber,
		HotelID:       inv.HotelID,
		TableNumber:   inv.TableNumber,
		GrandTotal:    inv.GrandTotal,
		PDFKey:        inv.PDFKey,
		GeneratedAt:   inv.CreatedAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"invoice": inv,
		"pdf_url": h.signedURL(c, inv.PDFKey),
	})
}

// GetInvoice handles GET /v1/billing/invoice/:id. Retrieval is
// tenant-scoped: an invoice that does not exist and one owned by a
// different hotel are both a 404.
func (h *BillingHandler) GetInvoice(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	inv, err := h.Invoices.RetrieveInvoice(c.Request().Context(), c.Param("id"), hotelID)
	if err != nil {
		return writeStoreError(c, "invoice.get", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"invoice": inv,
		"pdf_url": h.signedURL(c, inv.PDFKey),
	})
}

// ListInvoices handles GET /v1/billing/invoices: the tenant's invoice
// history, newest first, without line items.
func (h *BillingHandler) ListInvoices(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	invoices, err := h.Invoices.ListInvoices(c.Request().Context(), hotelID)
	if err != nil {
		return writeStoreError(c, "invoice.list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"invoices": invoices})
}

// signedURL best-effort presigns a download link; an empty string means
// the link is unavailable, never that the document is missing.
func (h *BillingHandler) signedURL(c echo.Context, key string) string {
	if h.Signer == nil {
		return ""
	}
	u, err := h.Signer.PresignedGet(c.Request().Context(), key, 15*time.Minute)
	if err != nil {
		return ""
	}
	return u
}
