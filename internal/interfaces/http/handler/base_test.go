package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/domain/provider"
	"github.com/roastery/backend/internal/domain/shared"
	"github.com/roastery/backend/internal/interfaces/http/dto"
	"github.com/roastery/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// decode reads a dto.Response from a recorder
func decode(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not configured", provider.ErrCredentialsMissing, http.StatusServiceUnavailable, dto.ErrCodeFulfillmentNotConfigured},
		{"provider unavailable", fmt.Errorf("%w: 503", provider.ErrProviderUnavailable), http.StatusBadGateway, dto.ErrCodeProviderUnavailable},
		{"bad data", fulfillment.ErrLineItemNotFulfillable, http.StatusUnprocessableEntity, dto.ErrCodeInvalidFulfillmentData},
		{"duplicate", fulfillment.ErrAlreadySubmitted, http.StatusConflict, dto.ErrCodeAlreadySubmitted},
		{"in progress", fulfillment.ErrSubmissionInProgress, http.StatusConflict, dto.ErrCodeConflict},
		{"not found", fulfillment.ErrOrderNotFound, http.StatusNotFound, dto.ErrCodeNotFound},
		{"bad signature", fulfillment.ErrInvalidWebhookSignature, http.StatusUnauthorized, dto.ErrCodeInvalidSignature},
		{"domain error", shared.NewDomainError("INVALID_SETTINGS", "shop_id must be numeric"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"unmapped domain error", shared.NewDomainError("SOMETHING_ELSE", "nope"), http.StatusBadRequest, "SOMETHING_ELSE"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			c.Request.Header.Set(middleware.RequestIDHeader, "req-1")

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestBaseHandler_HandleErrorHidesInternalDetails(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, errors.New("pq: password authentication failed for user roastery"))

	assert.NotContains(t, w.Body.String(), "password")
	assert.Len(t, c.Errors, 1)
}

func TestBaseHandler_HandleErrorNil(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	h.HandleError(c, nil)
	assert.Empty(t, w.Body.String())
}

func TestBaseHandler_ParseOrderID(t *testing.T) {
	h := &BaseHandler{}

	router := gin.New()
	router.GET("/orders/:id", func(c *gin.Context) {
		id, ok := h.parseOrderID(c)
		if !ok {
			return
		}
		h.Success(c, id.String())
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidInput, decode(t, w).Error.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/orders/6f1c2a58-8f7e-4d8a-9a55-1c7c1f0f3b11", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "6f1c2a58-8f7e-4d8a-9a55-1c7c1f0f3b11", decode(t, w).Data)
}
