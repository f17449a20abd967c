package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/hotel-billing/internal/model"
	"github.com/iliyamo/hotel-billing/internal/queue"
	"github.com/iliyamo/hotel-billing/internal/repository"
	"github.com/iliyamo/hotel-billing/internal/service"
)

// OrderHandler exposes the order lifecycle over HTTP. All methods
// assume JWT authentication has already run, so a tenant identifier is
// always available on the context. Conflicts and stale versions come
// back as 409 with a message the UI shows verbatim; the caller is
// expected to re-fetch and resubmit.
type OrderHandler struct {
	Orders *service.OrderService
}

// NewOrderHandler constructs an OrderHandler. The service must be non-nil.
func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	if orders == nil {
		panic("nil service passed to NewOrderHandler")
	}
	return &OrderHandler{Orders: orders}
}

// Create handles POST /v1/orders. It opens a tab for a table and
// returns 201 with the new order, 409 when the table already has an
// active order, and 400 on missing or invalid fields.
func (h *OrderHandler) Create(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body struct {
		TableNumber uint32            `json:"table_number"`
		Items       []model.OrderItem `json:"items"`
		Notes       *string           `json:"notes"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	order, err := h.Orders.CreateOrder(c.Request().Context(), hotelID, body.TableNumber, body.Items, body.Notes)
	if err != nil {
		return writeStoreError(c, "order.create", err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"order_id":   order.OrderID,
		"status":     order.Status,
		"version":    order.Version,
		"created_at": order.CreatedAt.Format(time.RFC3339),
	})
}

// List handles GET /v1/orders. With a ?table=N query it returns the
// active order for that table (or an explicit null when the table is
// free, which the UI reads as "not busy"); without it, every order of
// the tenant.
func (h *OrderHandler) List(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx := c.Request().Context()

	if tableStr := c.QueryParam("table"); tableStr != "" {
		table, err := strconv.ParseUint(tableStr, 10, 32)
		if err != nil || table == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid table number"})
		}
		order, err := h.Orders.GetActiveOrder(ctx, hotelID, uint32(table))
		if err != nil {
			return writeStoreError(c, "order.active", err)
		}
		// order may be nil; JSON null means the table is free
		return c.JSON(http.StatusOK, echo.Map{"order": order})
	}

	orders, err := h.Orders.ListOrders(ctx, hotelID)
	if err != nil {
		return writeStoreError(c, "order.list", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"orders": orders})
}

// Update handles PUT /v1/orders/:id. The body must carry the version
// the caller last observed; a stale version yields 409 and no write.
func (h *OrderHandler) Update(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var body struct {
		Items   []model.OrderItem `json:"items"`
		Notes   *string           `json:"notes"`
		Version uint64            `json:"version"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	order, err := h.Orders.UpdateOrder(c.Request().Context(), orderID, hotelID, repository.UpdateParams{
		Items:   body.Items,
		Notes:   body.Notes,
		Version: body.Version,
	})
	if err != nil {
		return writeStoreError(c, "order.update", err)
	}
	return c.JSON(http.StatusOK, order)
}

// UpdateStatus handles PATCH /v1/orders/:id. The only accepted status
// value is BILLED; anything else is a 400. On success the order is
// terminal and an order.billed event is published fire-and-forget.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	hotelID, err := getHotelID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	var body struct {
		Status    string `json:"status"`
		InvoiceID string `json:"invoice_id"`
		Version   uint64 `json:"version"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if body.Status != model.OrderStatusBilled {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be BILLED"})
	}
	order, err := h.Orders.MarkBilled(c.Request().Context(), orderID, hotelID, body.InvoiceID, body.Version)
	if err != nil {
		return writeStoreError(c, "order.bill", err)
	}

	_ = service.PublishOrderBilled(c.Request().Context(), queue.OrderBilledEvent{
		OrderID:     order.OrderID,
		HotelID:     order.HotelID,
		TableNumber: order.TableNumber,
		InvoiceID:   body.InvoiceID,
		Version:     order.Version,
		BilledAt:    order.UpdatedAt.Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, echo.Map{
		"order_id": order.OrderID,
		"status":   order.Status,
		"version":  order.Version,
	})
}
