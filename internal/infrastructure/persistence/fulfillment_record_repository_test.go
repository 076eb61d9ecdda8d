package persistence

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastery/backend/internal/domain/fulfillment"
)

func TestGormFulfillmentRecordRepository(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	orders := NewGormOrderRepository(db)
	repo := NewGormFulfillmentRecordRepository(db)

	order := newPaidOrder(t)
	require.NoError(t, orders.Save(ctx, order))

	record := fulfillment.NewFulfillmentRecord(order.ID, "prov-1", "pending",
		json.RawMessage(`{"external_id":"`+order.ID.String()+`"}`),
		json.RawMessage(`{"id":"prov-1"}`))
	require.NoError(t, repo.Save(ctx, record))

	// a second save for the same order is ignored
	require.NoError(t, repo.Save(ctx, fulfillment.NewFulfillmentRecord(order.ID, "prov-2", "pending", nil, nil)))

	found, err := repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "prov-1", found.ProviderOrderID)
	assert.JSONEq(t, `{"id":"prov-1"}`, string(found.ResponsePayload))

	require.NoError(t, repo.UpdateProviderStatus(ctx, "prov-1", "shipped"))
	found, err = repo.FindByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "shipped", found.ProviderStatus)

	assert.ErrorIs(t, repo.UpdateProviderStatus(ctx, "unknown", "shipped"), fulfillment.ErrRecordNotFound)
	_, err = repo.FindByOrderID(ctx, uuid.New())
	assert.ErrorIs(t, err, fulfillment.ErrRecordNotFound)
}
