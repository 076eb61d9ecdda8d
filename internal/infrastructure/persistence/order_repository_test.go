package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

func newPaidOrder(t *testing.T) *fulfillment.Order {
	t.Helper()
	order, err := fulfillment.NewPaidOrder([]fulfillment.LineItem{
		{ProductID: uuid.New(), ProviderProductID: "pp-mug", ProviderVariantID: 101, Quantity: 2, UnitPrice: decimal.RequireFromString("12.50")},
		{ProductID: uuid.New(), ProviderProductID: "pp-tee", ProviderVariantID: 202, Quantity: 1, UnitPrice: decimal.RequireFromString("24.00")},
	})
	require.NoError(t, err)
	return order
}

func TestGormOrderRepository_SaveAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	order := newPaidOrder(t)

	require.NoError(t, repo.Save(ctx, order))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.StatusPaid, found.Status)
	assert.Equal(t, "49.00", found.Total.StringFixed(2))
	assert.False(t, found.IsSubmitted())
	require.Len(t, found.LineItems, 2)
	assert.Equal(t, "pp-mug", found.LineItems[0].ProviderProductID)
	assert.Equal(t, int64(202), found.LineItems[1].ProviderVariantID)
	assert.Equal(t, "12.50", found.LineItems[0].UnitPrice.StringFixed(2))

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, fulfillment.ErrOrderNotFound)
}

func TestGormOrderRepository_AssignExternalFulfillmentID(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	order := newPaidOrder(t)
	require.NoError(t, repo.Save(ctx, order))

	ok, err := repo.AssignExternalFulfillmentID(ctx, order.ID, "prov-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.AssignExternalFulfillmentID(ctx, order.ID, "prov-2")
	require.NoError(t, err)
	assert.False(t, ok, "external id must never be overwritten")

	found, err := repo.FindByExternalFulfillmentID(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)

	_, err = repo.FindByExternalFulfillmentID(ctx, "prov-2")
	assert.ErrorIs(t, err, fulfillment.ErrOrderNotFound)
	_, err = repo.FindByExternalFulfillmentID(ctx, "")
	assert.ErrorIs(t, err, fulfillment.ErrOrderNotFound)
}

func TestGormOrderRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	order := newPaidOrder(t)
	require.NoError(t, repo.Save(ctx, order))

	ok, err := repo.TransitionStatus(ctx, order.ID, fulfillment.StatusShipped,
		[]fulfillment.LocalStatus{fulfillment.StatusPaid, fulfillment.StatusProcessing})
	require.NoError(t, err)
	assert.True(t, ok)

	// a late processing update finds the order already shipped
	ok, err = repo.TransitionStatus(ctx, order.ID, fulfillment.StatusProcessing,
		[]fulfillment.LocalStatus{fulfillment.StatusPaid})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.TransitionStatus(ctx, order.ID, fulfillment.StatusDelivered, nil)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, fulfillment.StatusShipped, found.Status)
}

func TestGormOrderRepository_ConcurrentAssignHasOneWinner(t *testing.T) {
	ctx := context.Background()
	repo := NewGormOrderRepository(newTestDB(t))
	order := newPaidOrder(t)
	require.NoError(t, repo.Save(ctx, order))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.AssignExternalFulfillmentID(ctx, order.ID, uuid.NewString())
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestGormOrderRepository_TransitionStatusSQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	repo := NewGormOrderRepository(gormDB)
	id := uuid.New()

	mock.ExpectExec(`UPDATE "orders" SET "status"=\$1,"updated_at"=\$2 WHERE id = \$3 AND status IN \(\$4,\$5\)`).
		WithArgs(fulfillment.StatusShipped, sqlmock.AnyArg(), id, fulfillment.StatusPaid, fulfillment.StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.TransitionStatus(context.Background(), id, fulfillment.StatusShipped,
		[]fulfillment.LocalStatus{fulfillment.StatusPaid, fulfillment.StatusProcessing})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
