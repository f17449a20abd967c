package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-billing/internal/model"
	"github.com/iliyamo/hotel-billing/internal/repository"
)

// memOrderStore is a semantic double for OrderStore: it enforces the
// same conditional-write contract as the MySQL repository (one OPEN
// order per table, version-guarded mutations) under a mutex, so the
// service can be tested against real concurrency semantics without a
// database.
type memOrderStore struct {
	mu     sync.Mutex
	orders map[string]*model.Order
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[string]*model.Order{}}
}

func copyOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	return &c
}

func (s *memOrderStore) Create(ctx context.Context, hotelID uint64, tableNumber uint32, items []model.OrderItem, notes *string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.HotelID == hotelID && o.TableNumber == tableNumber && o.Status == model.OrderStatusOpen {
			return nil, repository.Conflict("table already has an active order")
		}
	}
	now := time.Now().UTC()
	o := &model.Order{
		OrderID:     uuid.NewString(),
		HotelID:     hotelID,
		TableNumber: tableNumber,
		Items:       append([]model.OrderItem(nil), items...),
		Notes:       notes,
		Status:      model.OrderStatusOpen,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.orders[o.OrderID] = o
	return copyOrder(o), nil
}

// mutate applies fn under the version/status guard shared by Update and
// MarkBilled, mirroring the diagnosis order of the SQL repository.
func (s *memOrderStore) mutate(orderID string, hotelID, version uint64, fn func(*model.Order)) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.HotelID != hotelID {
		return nil, repository.NotFound("order not found")
	}
	if o.Status != model.OrderStatusOpen {
		return nil, repository.InvalidOperation("order is already billed")
	}
	if o.Version != version {
		return nil, repository.Conflict("order was modified by another user")
	}
	fn(o)
	o.Version++
	o.UpdatedAt = time.Now().UTC()
	return copyOrder(o), nil
}

func (s *memOrderStore) Update(ctx context.Context, orderID string, hotelID uint64, p repository.UpdateParams) (*model.Order, error) {
	return s.mutate(orderID, hotelID, p.Version, func(o *model.Order) {
		if p.Items != nil {
			o.Items = append([]model.OrderItem(nil), p.Items...)
		}
		if p.Notes != nil {
			o.Notes = p.Notes
		}
	})
}

func (s *memOrderStore) MarkBilled(ctx context.Context, orderID string, hotelID uint64, invoiceID string, version uint64) (*model.Order, error) {
	return s.mutate(orderID, hotelID, version, func(o *model.Order) {
		o.Status = model.OrderStatusBilled
		o.InvoiceID = &invoiceID
	})
}

func (s *memOrderStore) GetActiveOrder(ctx context.Context, hotelID uint64, tableNumber uint32) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.HotelID == hotelID && o.TableNumber == tableNumber && o.Status == model.OrderStatusOpen {
			return copyOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memOrderStore) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.orders {
		if o.HotelID == hotelID {
			out = append(out, *copyOrder(o))
		}
	}
	return out, nil
}

func (s *memOrderStore) GetByID(ctx context.Context, orderID string, hotelID uint64) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok || o.HotelID != hotelID {
		return nil, repository.NotFound("order not found")
	}
	return copyOrder(o), nil
}

// instrumentedOrderStore counts calls and injects a configurable number
// of transient faults ahead of the real store.
type instrumentedOrderStore struct {
	*memOrderStore
	transientLeft int
	createCalls   int
	updateCalls   int
}

var errConnReset = errors.New("read tcp: connection reset by peer")

func (s *instrumentedOrderStore) Create(ctx context.Context, hotelID uint64, tableNumber uint32, items []model.OrderItem, notes *string) (*model.Order, error) {
	s.createCalls++
	if s.transientLeft > 0 {
		s.transientLeft--
		return nil, repository.Transient("insert order failed", errConnReset)
	}
	return s.memOrderStore.Create(ctx, hotelID, tableNumber, items, notes)
}

func (s *instrumentedOrderStore) Update(ctx context.Context, orderID string, hotelID uint64, p repository.UpdateParams) (*model.Order, error) {
	s.updateCalls++
	return s.memOrderStore.Update(ctx, orderID, hotelID, p)
}

type stubHotels struct{ hotel model.Hotel }

func (s *stubHotels) GetByID(ctx context.Context, hotelID uint64) (*model.Hotel, error) {
	if hotelID != s.hotel.ID {
		return nil, repository.NotFound("hotel not found")
	}
	h := s.hotel
	return &h, nil
}

func testHotels() *stubHotels {
	return &stubHotels{hotel: model.Hotel{
		ID:                      1,
		Name:                    "Test Hotel",
		TableCount:              20,
		GSTPercentage:           5,
		ServiceChargePercentage: 10,
	}}
}

func someItems() []model.OrderItem {
	return []model.OrderItem{{MenuItemID: "dish-1", Quantity: 2}}
}

func TestCreateOrderValidation(t *testing.T) {
	svc := NewOrderService(newMemOrderStore(), testHotels())
	ctx := context.Background()

	cases := []struct {
		name  string
		table uint32
		items []model.OrderItem
	}{
		{"zero table", 0, someItems()},
		{"table beyond count", 21, someItems()},
		{"no items", 5, nil},
		{"zero quantity", 5, []model.OrderItem{{MenuItemID: "dish-1", Quantity: 0}}},
		{"empty menu item id", 5, []model.OrderItem{{Quantity: 1}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateOrder(ctx, 1, tc.table, tc.items, nil)
			require.Error(t, err)
			assert.True(t, repository.IsKind(err, repository.KindValidation))
		})
	}
}

func TestCreateOrderSecondOpenOrderConflicts(t *testing.T) {
	svc := NewOrderService(newMemOrderStore(), testHotels())
	ctx := context.Background()

	first, err := svc.CreateOrder(ctx, 1, 7, someItems(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusOpen, first.Status)
	assert.Equal(t, uint64(1), first.Version)

	_, err = svc.CreateOrder(ctx, 1, 7, someItems(), nil)
	require.Error(t, err)
	assert.True(t, repository.IsKind(err, repository.KindConflict))

	// a different table is unaffected
	_, err = svc.CreateOrder(ctx, 1, 8, someItems(), nil)
	assert.NoError(t, err)
}

func TestUpdateOrderIncrementsVersionByOne(t *testing.T) {
	svc := NewOrderService(newMemOrderStore(), testHotels())
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, 1, 3, someItems(), nil)
	require.NoError(t, err)

	newItems := []model.OrderItem{{MenuItemID: "dish-9", Quantity: 1}}
	updated, err := svc.UpdateOrder(ctx, o.OrderID, 1, repository.UpdateParams{
		Items:   newItems,
		Version: o.Version,
	})
	require.NoError(t, err)
	assert.Equal(t, o.Version+1, updated.Version)
	assert.Equal(t, newItems, updated.Items)
}

func TestUpdateOrderStaleVersionConflictsWithoutMutating(t *testing.T) {
	store := newMemOrderStore()
	svc := NewOrderService(store, testHotels())
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, 1, 3, someItems(), nil)
	require.NoError(t, err)

	winning := []model.OrderItem{{MenuItemID: "dish-2", Quantity: 4}}
	_, err = svc.UpdateOrder(ctx, o.OrderID, 1, repository.UpdateParams{Items: winning, Version: 1})
	require.NoError(t, err)

	// a second writer still holding version 1 loses
	_, err = svc.UpdateOrder(ctx, o.OrderID, 1, repository.UpdateParams{
		Items:   []model.OrderItem{{MenuItemID: "dish-3", Quantity: 1}},
		Version: 1,
	})
	require.Error(t, err)
	assert.True(t, repository.IsKind(err, repository.KindConflict))

	current, err := store.GetByID(ctx, o.OrderID, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), current.Version, "loser must not advance the version")
	assert.Equal(t, winning, current.Items, "loser must not overwrite the winner")
}

func TestConcurrentUpdatesExactlyOneWins(t *testing.T) {
	store := newMemOrderStore()
	svc := NewOrderService(store, testHotels())
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, 1, 3, someItems(), nil)
	require.NoError(t, err)

	const writers = 8
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.UpdateOrder(ctx, o.OrderID, 1, repository.UpdateParams{
				Items:   []model.OrderItem{{MenuItemID: "dish-1", Quantity: uint32(i + 1)}},
				Version: 1,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, repository.IsKind(err, repository.KindConflict))
		}
	}
	assert.Equal(t, 1, wins, "exactly one writer per version")

	current, err := store.GetByID(ctx, o.OrderID, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), current.Version)
}

func TestMarkBilledIsTerminal(t *testing.T) {
	svc := NewOrderService(newMemOrderStore(), testHotels())
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, 1, 3, someItems(), nil)
	require.NoError(t, err)

	billed, err := svc.MarkBilled(ctx, o.OrderID, 1, "inv-123", o.Version)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusBilled, billed.Status)
	assert.Equal(t, o.Version+1, billed.Version)
	require.NotNil(t, billed.InvoiceID)
	assert.Equal(t, "inv-123", *billed.InvoiceID)

	// no further edits of any sort
	_, err = svc.UpdateOrder(ctx, o.OrderID, 1, repository.UpdateParams{Items: someItems(), Version: billed.Version})
	assert.True(t, repository.IsKind(err, repository.KindInvalidOperation))

	_, err = svc.MarkBilled(ctx, o.OrderID, 1, "inv-456", billed.Version)
	assert.True(t, repository.IsKind(err, repository.KindInvalidOperation))

	// the table is free for a new order again
	active, err := svc.GetActiveOrder(ctx, 1, 3)
	require.NoError(t, err)
	assert.Nil(t, active)
	_, err = svc.CreateOrder(ctx, 1, 3, someItems(), nil)
	assert.NoError(t, err)
}

func TestMarkBilledUnknownOrderNotFound(t *testing.T) {
	svc := NewOrderService(newMemOrderStore(), testHotels())
	_, err := svc.MarkBilled(context.Background(), uuid.NewString(), 1, "inv-1", 1)
	assert.True(t, repository.IsKind(err, repository.KindNotFound))
}

func TestTransientFaultsAreRetried(t *testing.T) {
	store := &instrumentedOrderStore{memOrderStore: newMemOrderStore(), transientLeft: 2}
	svc := NewOrderService(store, testHotels())

	o, err := svc.CreateOrder(context.Background(), 1, 5, someItems(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, store.createCalls)
	assert.Equal(t, uint64(1), o.Version)
}

func TestTransientFaultsExhaustAttempts(t *testing.T) {
	store := &instrumentedOrderStore{memOrderStore: newMemOrderStore(), transientLeft: 10}
	svc := NewOrderService(store, testHotels())

	_, err := svc.CreateOrder(context.Background(), 1, 5, someItems(), nil)
	require.Error(t, err)
	assert.True(t, repository.IsKind(err, repository.KindTransient))
	assert.Equal(t, 3, store.createCalls, "bounded by the request-path policy")
}

func TestConflictsAreNotRetried(t *testing.T) {
	store := &instrumentedOrderStore{memOrderStore: newMemOrderStore()}
	svc := NewOrderService(store, testHotels())
	ctx := context.Background()

	o, err := svc.CreateOrder(ctx, 1, 5, someItems(), nil)
	require.NoError(t, err)

	_, err = svc.UpdateOrder(ctx, o.OrderID, 1, repository.UpdateParams{Items: someItems(), Version: 99})
	require.Error(t, err)
	assert.True(t, repository.IsKind(err, repository.KindConflict))
	assert.Equal(t, 1, store.updateCalls, "a stale version must surface immediately")
}
