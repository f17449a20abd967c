package service

import (
	"context"
	"time"

	"github.com/iliyamo/hotel-billing/internal/metrics"
	"github.com/iliyamo/hotel-billing/internal/model"
	"github.com/iliyamo/hotel-billing/internal/repository"
	"github.com/iliyamo/hotel-billing/internal/retry"
)

// OrderStore is the persistence surface OrderService depends on. The
// production implementation is repository.OrderRepo; tests substitute a
// semantic in-memory double that honors the same conditional-write
// contract.
type OrderStore interface {
	Create(ctx context.Context, hotelID uint64, tableNumber uint32, items []model.OrderItem, notes *string) (*model.Order, error)
	Update(ctx context.Context, orderID string, hotelID uint64, p repository.UpdateParams) (*model.Order, error)
	MarkBilled(ctx context.Context, orderID string, hotelID uint64, invoiceID string, version uint64) (*model.Order, error)
	GetActiveOrder(ctx context.Context, hotelID uint64, tableNumber uint32) (*model.Order, error)
	ListByHotel(ctx context.Context, hotelID uint64) ([]model.Order, error)
	GetByID(ctx context.Context, orderID string, hotelID uint64) (*model.Order, error)
}

// TenantStore resolves hotel configuration for validation.
type TenantStore interface {
	GetByID(ctx context.Context, hotelID uint64) (*model.Hotel, error)
}

// OrderService validates inputs, wraps transient store faults in a
// small bounded retry and leaves conflicts untouched for the caller to
// resolve. It never caches orders: every call goes back to the store of
// record, which is what keeps optimistic concurrency honest.
type OrderService struct {
	orders OrderStore
	hotels TenantStore

	maxAttempts int
	baseDelay   time.Duration
}

// NewOrderService constructs an OrderService with the request-path
// retry policy: three attempts, linear backoff.
func NewOrderService(orders OrderStore, hotels TenantStore) *OrderService {
	if orders == nil || hotels == nil {
		panic("nil store passed to NewOrderService")
	}
	return &OrderService{
		orders:      orders,
		hotels:      hotels,
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
	}
}

// withRetry runs fn under the request-path policy. Only transient
// infrastructure faults are re-attempted; conflicts, validation errors
// and invalid transitions stop the loop on the first occurrence so a
// genuine conflict is never mistaken for a flaky connection.
func (s *OrderService) withRetry(ctx context.Context, label string, fn func(context.Context) (*model.Order, error)) (*model.Order, error) {
	calls := 0
	o, err := retry.Do(ctx, label, retry.Config{
		MaxAttempts: s.maxAttempts,
		BaseDelay:   s.baseDelay,
		Backoff:     retry.Linear(s.baseDelay),
		Retryable:   repository.IsTransient,
	}, func(ctx context.Context) (*model.Order, error) {
		calls++
		if calls > 1 {
			metrics.RetryAttemptsTotal.WithLabelValues(label).Inc()
		}
		return fn(ctx)
	})
	result := "ok"
	if err != nil {
		result = repository.KindOf(err).String()
		if repository.IsKind(err, repository.KindConflict) {
			metrics.OrderConflictsTotal.WithLabelValues(label).Inc()
		}
	}
	metrics.OrderWritesTotal.WithLabelValues(label, result).Inc()
	return o, err
}

// CreateOrder opens a new tab after validating the table number against
// the tenant's configured table count and the item list for shape. The
// one-open-order-per-table rule itself is enforced by the store's
// conditional write, not here.
func (s *OrderService) CreateOrder(ctx context.Context, hotelID uint64, tableNumber uint32, items []model.OrderItem, notes *string) (*model.Order, error) {
	if tableNumber == 0 {
		return nil, repository.Validation("table number must be positive")
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	hotel, err := s.hotels.GetByID(ctx, hotelID)
	if err != nil {
		return nil, err
	}
	if tableNumber > hotel.TableCount {
		return nil, repository.Validation("table number exceeds hotel table count")
	}
	return s.withRetry(ctx, "order.create", func(ctx context.Context) (*model.Order, error) {
		return s.orders.Create(ctx, hotelID, tableNumber, items, notes)
	})
}

// UpdateOrder applies an items/notes change under the version the
// caller last observed. A stale version surfaces as a conflict and is
// never retried; the caller must re-fetch and resubmit.
func (s *OrderService) UpdateOrder(ctx context.Context, orderID string, hotelID uint64, p repository.UpdateParams) (*model.Order, error) {
	if orderID == "" {
		return nil, repository.Validation("order id is required")
	}
	if p.Items != nil {
		if err := validateItems(p.Items); err != nil {
			return nil, err
		}
	}
	if p.Version == 0 {
		return nil, repository.Validation("version is required")
	}
	return s.withRetry(ctx, "order.update", func(ctx context.Context) (*model.Order, error) {
		return s.orders.Update(ctx, orderID, hotelID, p)
	})
}

// MarkBilled transitions an order to its terminal BILLED state and
// stamps the invoice reference, under the same optimistic discipline.
func (s *OrderService) MarkBilled(ctx context.Context, orderID string, hotelID uint64, invoiceID string, version uint64) (*model.Order, error) {
	if orderID == "" || invoiceID == "" {
		return nil, repository.Validation("order id and invoice id are required")
	}
	if version == 0 {
		return nil, repository.Validation("version is required")
	}
	return s.withRetry(ctx, "order.bill", func(ctx context.Context) (*model.Order, error) {
		return s.orders.MarkBilled(ctx, orderID, hotelID, invoiceID, version)
	})
}

// GetActiveOrder returns the OPEN order for a table or nil when free.
func (s *OrderService) GetActiveOrder(ctx context.Context, hotelID uint64, tableNumber uint32) (*model.Order, error) {
	if tableNumber == 0 {
		return nil, repository.Validation("table number must be positive")
	}
	return s.orders.GetActiveOrder(ctx, hotelID, tableNumber)
}

// ListOrders returns every order of the tenant.
func (s *OrderService) ListOrders(ctx context.Context, hotelID uint64) ([]model.Order, error) {
	return s.orders.ListByHotel(ctx, hotelID)
}

// validateItems rejects empty lists and zero quantities.
func validateItems(items []model.OrderItem) error {
	if len(items) == 0 {
		return repository.Validation("items must not be empty")
	}
	for _, it := range items {
		if it.MenuItemID == "" {
			return repository.Validation("menu item id must not be empty")
		}
		if it.Quantity == 0 {
			return repository.Validation("quantity must be positive")
		}
	}
	return nil
}
