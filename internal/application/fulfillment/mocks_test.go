package fulfillment

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
)

// MockFulfillmentProvider is a mock implementation of provider.FulfillmentProvider
type MockFulfillmentProvider struct {
	mock.Mock
}

func (m *MockFulfillmentProvider) CreateOrder(ctx context.Context, creds provider.Credentials, req provider.CreateOrderRequest) (*provider.Order, error) {
	args := m.Called(ctx, creds, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Order), args.Error(1)
}

func (m *MockFulfillmentProvider) GetOrder(ctx context.Context, creds provider.Credentials, providerOrderID string) (*provider.Order, error) {
	args := m.Called(ctx, creds, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Order), args.Error(1)
}

func (m *MockFulfillmentProvider) CancelOrder(ctx context.Context, creds provider.Credentials, providerOrderID string) (*provider.Order, error) {
	args := m.Called(ctx, creds, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*provider.Order), args.Error(1)
}

func (m *MockFulfillmentProvider) GetShipments(ctx context.Context, creds provider.Credentials, providerOrderID string) ([]provider.Shipment, error) {
	args := m.Called(ctx, creds, providerOrderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]provider.Shipment), args.Error(1)
}

// MockCredentialsSource is a mock implementation of provider.CredentialsSource
type MockCredentialsSource struct {
	mock.Mock
}

func (m *MockCredentialsSource) Credentials(ctx context.Context) (provider.Credentials, error) {
	args := m.Called(ctx)
	return args.Get(0).(provider.Credentials), args.Error(1)
}

// staticSecret is a WebhookSecretSource returning a fixed value
type staticSecret string

func (s staticSecret) WebhookSecret(_ context.Context) (string, error) {
	return string(s), nil
}

var testCreds = provider.Credentials{APIKey: "test-key", ShopID: "12345"}

// memoryOrderRepo keeps orders in memory with the same compare-and-set
// semantics as the SQL repository.
type memoryOrderRepo struct {
	mu     sync.Mutex
	orders map[uuid.UUID]fulfillment.Order
}

func newMemoryOrderRepo() *memoryOrderRepo {
	return &memoryOrderRepo{orders: make(map[uuid.UUID]fulfillment.Order)}
}

func (r *memoryOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*fulfillment.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return nil, fulfillment.ErrOrderNotFound
	}
	return &o, nil
}

func (r *memoryOrderRepo) FindByExternalFulfillmentID(_ context.Context, externalID string) (*fulfillment.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.ExternalFulfillmentID == externalID {
			found := o
			return &found, nil
		}
	}
	return nil, fulfillment.ErrOrderNotFound
}

func (r *memoryOrderRepo) Save(_ context.Context, order *fulfillment.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = *order
	return nil
}

func (r *memoryOrderRepo) AssignExternalFulfillmentID(_ context.Context, id uuid.UUID, externalID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.ExternalFulfillmentID != "" {
		return false, nil
	}
	o.ExternalFulfillmentID = externalID
	r.orders[id] = o
	return true, nil
}

func (r *memoryOrderRepo) TransitionStatus(_ context.Context, id uuid.UUID, to fulfillment.LocalStatus, from []fulfillment.LocalStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || !slices.Contains(from, o.Status) {
		return false, nil
	}
	o.Status = to
	r.orders[id] = o
	return true, nil
}

func (r *memoryOrderRepo) status(id uuid.UUID) fulfillment.LocalStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].Status
}

func (r *memoryOrderRepo) externalID(id uuid.UUID) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.orders[id].ExternalFulfillmentID
}

// memoryShippingRepo enforces uniqueness on (order id, tracking number)
type memoryShippingRepo struct {
	mu      sync.Mutex
	records []fulfillment.ShippingRecord
}

func (r *memoryShippingRepo) FindByOrderAndTracking(_ context.Context, orderID uuid.UUID, trackingNumber string) (*fulfillment.ShippingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.OrderID == orderID && rec.TrackingNumber == trackingNumber {
			found := rec
			return &found, nil
		}
	}
	return nil, fulfillment.ErrShippingRecordNotFound
}

func (r *memoryShippingRepo) InsertIfAbsent(_ context.Context, record *fulfillment.ShippingRecord) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.OrderID == record.OrderID && rec.TrackingNumber == record.TrackingNumber {
			return false, nil
		}
	}
	r.records = append(r.records, *record)
	return true, nil
}

func (r *memoryShippingRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]fulfillment.ShippingRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []fulfillment.ShippingRecord
	for _, rec := range r.records {
		if rec.OrderID == orderID {
			out = append(out, rec)
		}
	}
	return out, nil
}

type memoryRecordRepo struct {
	mu      sync.Mutex
	records map[uuid.UUID]fulfillment.FulfillmentRecord
}

func newMemoryRecordRepo() *memoryRecordRepo {
	return &memoryRecordRepo{records: make(map[uuid.UUID]fulfillment.FulfillmentRecord)}
}

func (r *memoryRecordRepo) Save(_ context.Context, record *fulfillment.FulfillmentRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.OrderID] = *record
	return nil
}

func (r *memoryRecordRepo) FindByOrderID(_ context.Context, orderID uuid.UUID) (*fulfillment.FulfillmentRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[orderID]
	if !ok {
		return nil, fulfillment.ErrRecordNotFound
	}
	return &rec, nil
}

func (r *memoryRecordRepo) UpdateProviderStatus(_ context.Context, providerOrderID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rec := range r.records {
		if rec.ProviderOrderID == providerOrderID {
			rec.ProviderStatus = status
			r.records[id] = rec
			return nil
		}
	}
	return fulfillment.ErrRecordNotFound
}

// testEnv wires every service over in-memory storage.
type testEnv struct {
	orders   *memoryOrderRepo
	shipping *memoryShippingRepo
	records  *memoryRecordRepo
	provider *MockFulfillmentProvider
	creds    *MockCredentialsSource
	updater  *StatusUpdater
	store    *ShippingRecordStore
}

func newTestEnv() *testEnv {
	env := &testEnv{
		orders:   newMemoryOrderRepo(),
		shipping: &memoryShippingRepo{},
		records:  newMemoryRecordRepo(),
		provider: new(MockFulfillmentProvider),
		creds:    new(MockCredentialsSource),
	}
	env.store = NewShippingRecordStore(env.shipping, nil)
	env.updater = NewStatusUpdater(StatusUpdaterConfig{
		Orders:   env.orders,
		Records:  env.records,
		Shipping: env.store,
	})
	return env
}

func (e *testEnv) paidOrder() *fulfillment.Order {
	order, err := fulfillment.NewPaidOrder([]fulfillment.LineItem{{
		ProductID:         uuid.New(),
		ProviderProductID: "5d39b159e7c48c000728c89f",
		ProviderVariantID: 33719,
		Quantity:          2,
		UnitPrice:         decimal.RequireFromString("18.00"),
	}})
	if err != nil {
		panic(err)
	}
	_ = e.orders.Save(context.Background(), order)
	return order
}

func (e *testEnv) submittedOrder(externalID string, status fulfillment.LocalStatus) *fulfillment.Order {
	order := e.paidOrder()
	order.ExternalFulfillmentID = externalID
	order.Status = status
	_ = e.orders.Save(context.Background(), order)
	return order
}

func validAddress() fulfillment.ShippingAddress {
	return fulfillment.ShippingAddress{
		FirstName: "Ada",
		LastName:  "Byron",
		Email:     "ada@example.com",
		Country:   "US",
		Region:    "NY",
		Address1:  "1 Main St",
		City:      "Brooklyn",
		Zip:       "11201",
	}
}
