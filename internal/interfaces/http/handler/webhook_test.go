package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	appfulfillment "github.com/roastery/backend/internal/application/fulfillment"
	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/interfaces/http/dto"
)

type MockWebhookIngester struct {
	mock.Mock
}

func (m *MockWebhookIngester) Ingest(ctx context.Context, payload []byte, signature string) (*appfulfillment.IngestResult, error) {
	args := m.Called(ctx, payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*appfulfillment.IngestResult), args.Error(1)
}

func newWebhookRouter(ingester *MockWebhookIngester, maxBody int64) *gin.Engine {
	router := gin.New()
	NewWebhookHandler(ingester, "X-Pfy-Signature", maxBody).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestWebhookHandler_Receive(t *testing.T) {
	body := `{"id":"evt-1","type":"order:shipment:created","resource":{"id":"abc"}}`

	t.Run("passes raw body and signature", func(t *testing.T) {
		ingester := new(MockWebhookIngester)
		ingester.On("Ingest", mock.Anything, []byte(body), "sha256=deadbeef").
			Return(&appfulfillment.IngestResult{
				EventID:   "evt-1",
				EventType: "order:shipment:created",
				Processed: true,
				Status:    fulfillment.StatusShipped,
			}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(body))
		req.Header.Set("X-Pfy-Signature", "sha256=deadbeef")
		w := httptest.NewRecorder()
		newWebhookRouter(ingester, 0).ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		data := decode(t, w).Data.(map[string]any)
		assert.Equal(t, true, data["processed"])
		assert.Equal(t, "shipped", data["status"])
		ingester.AssertExpectations(t)
	})

	t.Run("invalid signature", func(t *testing.T) {
		ingester := new(MockWebhookIngester)
		ingester.On("Ingest", mock.Anything, mock.Anything, "").Return(nil, fulfillment.ErrInvalidWebhookSignature)

		w := httptest.NewRecorder()
		newWebhookRouter(ingester, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(body)))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, dto.ErrCodeInvalidSignature, decode(t, w).Error.Code)
	})

	t.Run("secret not configured", func(t *testing.T) {
		ingester := new(MockWebhookIngester)
		ingester.On("Ingest", mock.Anything, mock.Anything, mock.Anything).Return(nil, fulfillment.ErrWebhookSecretMissing)

		w := httptest.NewRecorder()
		newWebhookRouter(ingester, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(body)))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("malformed payload", func(t *testing.T) {
		ingester := new(MockWebhookIngester)
		ingester.On("Ingest", mock.Anything, mock.Anything, mock.Anything).Return(nil, fulfillment.ErrInvalidWebhookPayload)

		w := httptest.NewRecorder()
		newWebhookRouter(ingester, 0).ServeHTTP(w,
			httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader("{")))

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("body too large", func(t *testing.T) {
		ingester := new(MockWebhookIngester)

		w := httptest.NewRecorder()
		newWebhookRouter(ingester, 16).ServeHTTP(w,
			httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/fulfillment", strings.NewReader(body)))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Equal(t, dto.ErrCodeTooLarge, decode(t, w).Error.Code)
		ingester.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
	})
}
