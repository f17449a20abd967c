package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/hotel-billing/internal/billing"
	"github.com/iliyamo/hotel-billing/internal/model"
	"github.com/iliyamo/hotel-billing/internal/pdf"
	"github.com/iliyamo/hotel-billing/internal/repository"
)

// memInvoiceStore keeps invoice rows in a map and can fail a number of
// creates with transient faults first.
type memInvoiceStore struct {
	mu          sync.Mutex
	rows        map[string]*model.Invoice
	failCreates int
	createCalls int
}

func newMemInvoiceStore() *memInvoiceStore {
	return &memInvoiceStore{rows: map[string]*model.Invoice{}}
}

func (s *memInvoiceStore) Create(ctx context.Context, inv *model.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.failCreates > 0 {
		s.failCreates--
		return repository.Transient("insert invoice failed", errConnReset)
	}
	c := *inv
	s.rows[inv.ID] = &c
	return nil
}

func (s *memInvoiceStore) DeleteByID(ctx context.Context, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, invoiceID)
	return nil
}

func (s *memInvoiceStore) GetByIDForHotel(ctx context.Context, invoiceID string, hotelID uint64) (*model.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.rows[invoiceID]
	if !ok || inv.HotelID != hotelID {
		return nil, repository.NotFound("invoice not found")
	}
	c := *inv
	return &c, nil
}

func (s *memInvoiceStore) ListByHotel(ctx context.Context, hotelID uint64) ([]model.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Invoice
	for _, inv := range s.rows {
		if inv.HotelID == hotelID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *memInvoiceStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// memBlobStore keeps uploaded objects in a map and can fail a number of
// puts with transient faults first.
type memBlobStore struct {
	mu       sync.Mutex
	objects  map[string][]byte
	failPuts int
	putCalls int
}

func newMemBlobStore() *memBlobStore {
	return &memBlobStore{objects: map[string][]byte{}}
}

func (s *memBlobStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPuts > 0 {
		s.failPuts--
		return repository.Transient("object upload failed", errConnReset)
	}
	s.objects[key] = append([]byte(nil), data...)
	return nil
}

func (s *memBlobStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memBlobStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}

func someLines() []billing.LineInput {
	return []billing.LineInput{
		{DishName: "Dal Makhani", Price: 12.50, Quantity: 2},
		{DishName: "Naan", Price: 2.25, Quantity: 4},
	}
}

func TestStoreInvoicePersistsRowAndBlobTogether(t *testing.T) {
	rows := newMemInvoiceStore()
	blobs := newMemBlobStore()
	svc := NewInvoiceService(rows, blobs, testHotels(), pdf.TextRenderer{})

	inv, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber: 4,
		Lines:       someLines(),
	})
	require.NoError(t, err)
	require.NotEmpty(t, inv.ID)
	assert.NotEmpty(t, inv.InvoiceNumber)
	assert.Equal(t, 1, rows.count())
	assert.Equal(t, 1, blobs.count())

	stored, err := rows.GetByIDForHotel(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, inv.PDFKey, stored.PDFKey)
	blobs.mu.Lock()
	_, blobExists := blobs.objects[inv.PDFKey]
	blobs.mu.Unlock()
	assert.True(t, blobExists, "blob key must match the persisted row")
}

func TestStoreInvoiceUsesHotelDefaultRates(t *testing.T) {
	rows := newMemInvoiceStore()
	svc := NewInvoiceService(rows, newMemBlobStore(), testHotels(), pdf.TextRenderer{})

	// testHotels configures 5% GST and 10% service charge
	inv, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber: 4,
		Lines:       someLines(),
	})
	require.NoError(t, err)
	assert.InDelta(t, 5, inv.GSTPercentage, 0.001)
	assert.InDelta(t, 10, inv.ServiceChargePercentage, 0.001)

	gst, service := 12.0, 0.0
	override, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber:             5,
		Lines:                   someLines(),
		GSTPercentage:           &gst,
		ServiceChargePercentage: &service,
	})
	require.NoError(t, err)
	assert.InDelta(t, 12, override.GSTPercentage, 0.001)
	assert.InDelta(t, 0, override.ServiceChargePercentage, 0.001)
}

func TestStoreInvoiceUploadFailureDeletesRow(t *testing.T) {
	rows := newMemInvoiceStore()
	blobs := newMemBlobStore()
	blobs.failPuts = 100 // every attempt fails
	svc := NewInvoiceService(rows, blobs, testHotels(), pdf.TextRenderer{})

	_, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber: 4,
		Lines:       someLines(),
		MaxRetries:  2,
	})
	require.Error(t, err)
	assert.True(t, repository.IsKind(err, repository.KindTransient))
	assert.Equal(t, 0, rows.count(), "no row may outlive a failed upload")
	assert.Equal(t, 0, blobs.count())
	assert.Equal(t, 2, blobs.putCalls, "bounded by MaxRetries")
}

func TestStoreInvoiceRowFailureWritesNoBlob(t *testing.T) {
	rows := newMemInvoiceStore()
	rows.failCreates = 100
	blobs := newMemBlobStore()
	svc := NewInvoiceService(rows, blobs, testHotels(), pdf.TextRenderer{})

	_, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber: 4,
		Lines:       someLines(),
		MaxRetries:  2,
	})
	require.Error(t, err)
	assert.Equal(t, 0, blobs.putCalls, "upload must not start before the row exists")
	assert.Equal(t, 0, rows.count())
}

func TestStoreInvoiceRetriesFromCleanSlate(t *testing.T) {
	rows := newMemInvoiceStore()
	blobs := newMemBlobStore()
	blobs.failPuts = 1 // first attempt loses its upload, second succeeds
	svc := NewInvoiceService(rows, blobs, testHotels(), pdf.TextRenderer{})

	inv, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber: 4,
		Lines:       someLines(),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rows.count(), "the failed attempt's row was compensated away")
	assert.Equal(t, 1, blobs.count())
	assert.Equal(t, 2, rows.createCalls, "each attempt inserts a fresh row")

	stored, err := rows.GetByIDForHotel(context.Background(), inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, inv.PDFKey, stored.PDFKey)
}

func TestStoreInvoiceValidation(t *testing.T) {
	svc := NewInvoiceService(newMemInvoiceStore(), newMemBlobStore(), testHotels(), pdf.TextRenderer{})
	ctx := context.Background()

	_, err := svc.StoreInvoice(ctx, 1, GenerateParams{TableNumber: 0, Lines: someLines()})
	assert.True(t, repository.IsKind(err, repository.KindValidation))

	_, err = svc.StoreInvoice(ctx, 1, GenerateParams{TableNumber: 4})
	assert.True(t, repository.IsKind(err, repository.KindValidation))

	_, err = svc.StoreInvoice(ctx, 1, GenerateParams{TableNumber: 4, Lines: someLines(), DiscountAmount: -1})
	assert.True(t, repository.IsKind(err, repository.KindValidation))
}

func TestRetrieveInvoiceScopedToTenant(t *testing.T) {
	rows := newMemInvoiceStore()
	svc := NewInvoiceService(rows, newMemBlobStore(), testHotels(), pdf.TextRenderer{})
	ctx := context.Background()

	inv, err := svc.StoreInvoice(ctx, 1, GenerateParams{TableNumber: 4, Lines: someLines()})
	require.NoError(t, err)

	got, err := svc.RetrieveInvoice(ctx, inv.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, inv.InvoiceNumber, got.InvoiceNumber)
	assert.InDelta(t, inv.GrandTotal, got.GrandTotal, 0.001)

	// another tenant sees the same merged not-found as a missing id
	_, err = svc.RetrieveInvoice(ctx, inv.ID, 2)
	assert.True(t, repository.IsKind(err, repository.KindNotFound))

	_, err = svc.RetrieveInvoice(ctx, "no-such-id", 1)
	assert.True(t, repository.IsKind(err, repository.KindNotFound))
}

func TestStoreInvoiceTotalsMatchComputation(t *testing.T) {
	rows := newMemInvoiceStore()
	svc := NewInvoiceService(rows, newMemBlobStore(), testHotels(), pdf.TextRenderer{})

	gst, service := 18.0, 10.0
	inv, err := svc.StoreInvoice(context.Background(), 1, GenerateParams{
		TableNumber:             4,
		Lines:                   someLines(), // 25.00 + 9.00 = 34.00
		GSTPercentage:           &gst,
		ServiceChargePercentage: &service,
		DiscountAmount:          4,
	})
	require.NoError(t, err)
	assert.InDelta(t, 34.00, inv.Subtotal, 0.001)
	assert.InDelta(t, 6.12, inv.GSTAmount, 0.001)
	assert.InDelta(t, 3.40, inv.ServiceChargeAmount, 0.001)
	assert.InDelta(t, 39.52, inv.GrandTotal, 0.001)
	assert.Len(t, inv.Items, 2)
	assert.NotEmpty(t, inv.InvoiceJSON)
}
