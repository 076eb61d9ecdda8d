package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/infrastructure/cache"
	"github.com/roastery/backend/internal/infrastructure/printify"
)

const testWebhookSecret = "whsec-test"

func newTestIngester(t *testing.T, env *testEnv, secret string, allowUnsigned bool, withDedup bool) (*WebhookIngester, *cache.InMemoryIdempotencyStore) {
	t.Helper()
	cfg := WebhookIngesterConfig{
		Orders:        env.orders,
		Updater:       env.updater,
		Verifier:      printify.NewSignatureVerifier(),
		Secrets:       staticSecret(secret),
		AllowUnsigned: allowUnsigned,
	}
	var store *cache.InMemoryIdempotencyStore
	if withDedup {
		store = cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		cfg.Dedup = store
	}
	return NewWebhookIngester(cfg), store
}

func shippedEvent(eventID, providerOrderID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"type": "order:updated",
		"created_at": "2024-05-01 12:00:00+00:00",
		"data": {
			"id": %q,
			"status": "shipped",
			"shipments": [{"carrier": "usps", "number": "9400111", "url": "https://track.example/9400111"}]
		}
	}`, eventID, providerOrderID))
}

func TestWebhookIngester_AppliesSignedEvent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)
	order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)

	payload := shippedEvent("evt-1", "prov-1")
	result, err := ingester.Ingest(ctx, payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.True(t, result.Processed)
	assert.Equal(t, fulfillment.StatusShipped, result.Status)
	assert.Equal(t, fulfillment.StatusShipped, env.orders.status(order.ID))

	shipments, err := env.store.List(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, shipments, 1)
	assert.Equal(t, "9400111", shipments[0].TrackingNumber)
	assert.Equal(t, "https://track.example/9400111", shipments[0].TrackingURL)
}

func TestWebhookIngester_ReplayIsIdempotent(t *testing.T) {
	ctx := context.Background()

	t.Run("deduplicated by event id", func(t *testing.T) {
		env := newTestEnv()
		ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)
		order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)

		payload := shippedEvent("evt-1", "prov-1")
		sig := printify.Sign(testWebhookSecret, payload)
		_, err := ingester.Ingest(ctx, payload, sig)
		require.NoError(t, err)

		again, err := ingester.Ingest(ctx, payload, sig)
		require.NoError(t, err)
		assert.True(t, again.Duplicate)

		shipments, _ := env.store.List(ctx, order.ID)
		assert.Len(t, shipments, 1)
	})

	t.Run("without dedup store", func(t *testing.T) {
		env := newTestEnv()
		ingester, _ := newTestIngester(t, env, testWebhookSecret, false, false)
		order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)

		payload := shippedEvent("evt-1", "prov-1")
		sig := printify.Sign(testWebhookSecret, payload)
		first, err := ingester.Ingest(ctx, payload, sig)
		require.NoError(t, err)
		second, err := ingester.Ingest(ctx, payload, sig)
		require.NoError(t, err)

		assert.True(t, second.Processed)
		assert.Equal(t, first.Status, second.Status)
		shipments, _ := env.store.List(ctx, order.ID)
		assert.Len(t, shipments, 1)
	})
}

func TestWebhookIngester_StalePendingAfterPoll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)
	order := env.submittedOrder("prov-1", fulfillment.StatusPaid)

	// polling observes in-production first
	env.creds.On("Credentials", mock.Anything).Return(testCreds, nil)
	env.provider.On("GetOrder", mock.Anything, testCreds, "prov-1").
		Return(&provider.Order{ID: "prov-1", Status: "in-production"}, nil)
	_, err := newTestReconciler(env).SyncOne(ctx, order.ID)
	require.NoError(t, err)

	// then a delayed webhook still says pending
	payload := []byte(`{"id":"evt-late","type":"order:updated","data":{"id":"prov-1","status":"pending"}}`)
	result, err := ingester.Ingest(ctx, payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.True(t, result.Processed)
	assert.Equal(t, fulfillment.StatusProcessing, result.Status)
	assert.Equal(t, fulfillment.StatusProcessing, env.orders.status(order.ID))
}

func TestWebhookIngester_ResolvesByExternalID(t *testing.T) {
	env := newTestEnv()
	ingester, _ := newTestIngester(t, env, testWebhookSecret, false, false)
	order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)

	payload := []byte(fmt.Sprintf(`{"id":"evt-2","type":"order:canceled","data":{"external_id":%q}}`, order.ID))
	result, err := ingester.Ingest(context.Background(), payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.True(t, result.Processed)
	assert.Equal(t, fulfillment.StatusCanceled, env.orders.status(order.ID))
}

func TestWebhookIngester_OrphanProviderOrderIsDiscarded(t *testing.T) {
	// A duplicate provider order canceled after losing the submit race
	// echoes the same external_id as the live one.
	ctx := context.Background()
	env := newTestEnv()
	ingester, store := newTestIngester(t, env, testWebhookSecret, false, true)
	order := env.submittedOrder("prov-real", fulfillment.StatusProcessing)

	payload := []byte(fmt.Sprintf(
		`{"id":"evt-orphan","type":"order:canceled","data":{"id":"prov-orphan","external_id":%q,"status":"canceled"}}`,
		order.ID))
	result, err := ingester.Ingest(ctx, payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.True(t, result.Discarded)
	assert.False(t, result.Processed)
	assert.Equal(t, "event is for another provider order", result.Message)
	assert.Equal(t, fulfillment.StatusProcessing, env.orders.status(order.ID))
	assert.Equal(t, "prov-real", env.orders.externalID(order.ID))

	held, err := store.IsProcessed(ctx, webhookEventPrefix+"evt-orphan")
	require.NoError(t, err)
	assert.True(t, held)
}

func TestWebhookIngester_UnknownOrderIsDiscarded(t *testing.T) {
	env := newTestEnv()
	ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)
	unsubmitted := env.paidOrder()

	payload := []byte(fmt.Sprintf(`{"id":"evt-3","type":"order:updated","data":{"id":"prov-x","external_id":%q,"status":"shipped"}}`, unsubmitted.ID))
	result, err := ingester.Ingest(context.Background(), payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.True(t, result.Discarded)
	assert.False(t, result.Processed)
	assert.Equal(t, "no matching order", result.Message)
	assert.Equal(t, fulfillment.StatusPaid, env.orders.status(unsubmitted.ID))
}

func TestWebhookIngester_UnknownTypeIsAcknowledged(t *testing.T) {
	env := newTestEnv()
	ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)

	payload := []byte(`{"id":"evt-4","type":"product:publish:started","data":{"id":"abc"}}`)
	result, err := ingester.Ingest(context.Background(), payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)

	assert.False(t, result.Processed)
	assert.Equal(t, "event type ignored", result.Message)
}

func TestWebhookIngester_Signature(t *testing.T) {
	ctx := context.Background()
	payload := shippedEvent("evt-5", "prov-1")

	t.Run("bad signature", func(t *testing.T) {
		env := newTestEnv()
		ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)
		order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)

		_, err := ingester.Ingest(ctx, payload, printify.Sign("other-secret", payload))
		assert.ErrorIs(t, err, fulfillment.ErrInvalidWebhookSignature)
		assert.Equal(t, fulfillment.KindAuth, fulfillment.Classify(err))
		assert.Equal(t, fulfillment.StatusProcessing, env.orders.status(order.ID))
	})

	t.Run("no secret configured", func(t *testing.T) {
		env := newTestEnv()
		ingester, _ := newTestIngester(t, env, "", false, true)
		env.submittedOrder("prov-1", fulfillment.StatusProcessing)

		_, err := ingester.Ingest(ctx, payload, "")
		assert.ErrorIs(t, err, fulfillment.ErrWebhookSecretMissing)
		assert.Equal(t, fulfillment.KindConfig, fulfillment.Classify(err))
	})

	t.Run("unsigned allowed in development", func(t *testing.T) {
		env := newTestEnv()
		ingester, _ := newTestIngester(t, env, "", true, true)
		order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)

		result, err := ingester.Ingest(ctx, payload, "")
		require.NoError(t, err)
		assert.True(t, result.Processed)
		assert.Equal(t, fulfillment.StatusShipped, env.orders.status(order.ID))
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv()
		ingester, _ := newTestIngester(t, env, testWebhookSecret, false, true)
		body := []byte(`{"type":`)

		_, err := ingester.Ingest(ctx, body, printify.Sign(testWebhookSecret, body))
		assert.ErrorIs(t, err, fulfillment.ErrInvalidWebhookPayload)
	})
}

// failingOrderRepo fails provider id lookups
type failingOrderRepo struct {
	*memoryOrderRepo
}

func (r failingOrderRepo) FindByExternalFulfillmentID(context.Context, string) (*fulfillment.Order, error) {
	return nil, errors.New("connection reset")
}

func TestWebhookIngester_FailedDeliveryStaysRetryable(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	ingester := NewWebhookIngester(WebhookIngesterConfig{
		Orders:   failingOrderRepo{env.orders},
		Updater:  env.updater,
		Verifier: printify.NewSignatureVerifier(),
		Secrets:  staticSecret(testWebhookSecret),
		Dedup:    store,
	})

	payload := shippedEvent("evt-6", "prov-1")
	_, err := ingester.Ingest(ctx, payload, printify.Sign(testWebhookSecret, payload))
	require.Error(t, err)

	held, err := store.IsProcessed(ctx, webhookEventPrefix+"evt-6")
	require.NoError(t, err)
	assert.False(t, held, "failed delivery must be retryable")
}

// recordingStore fails the test if an event id is recorded before the
// order update is visible.
type recordingStore struct {
	*cache.InMemoryIdempotencyStore
	t       *testing.T
	orders  *memoryOrderRepo
	orderID uuid.UUID
	marked  bool
}

func (s *recordingStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	assert.Equal(s.t, fulfillment.StatusShipped, s.orders.status(s.orderID), "event recorded before it was applied")
	s.marked = true
	return s.InMemoryIdempotencyStore.MarkProcessed(ctx, key, ttl)
}

func TestWebhookIngester_RecordsEventAfterApply(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	order := env.submittedOrder("prov-1", fulfillment.StatusProcessing)
	inner := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = inner.Close() })
	store := &recordingStore{InMemoryIdempotencyStore: inner, t: t, orders: env.orders, orderID: order.ID}

	ingester := NewWebhookIngester(WebhookIngesterConfig{
		Orders:   env.orders,
		Updater:  env.updater,
		Verifier: printify.NewSignatureVerifier(),
		Secrets:  staticSecret(testWebhookSecret),
		Dedup:    store,
	})

	payload := shippedEvent("evt-7", "prov-1")
	result, err := ingester.Ingest(ctx, payload, printify.Sign(testWebhookSecret, payload))
	require.NoError(t, err)
	assert.True(t, result.Processed)
	assert.True(t, store.marked)
}
