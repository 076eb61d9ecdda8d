package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	appfulfillment "github.com/roastery/backend/internal/application/fulfillment"
	"github.com/roastery/backend/internal/interfaces/http/dto"
)

// DefaultMaxWebhookBody is used when no limit is configured
const DefaultMaxWebhookBody int64 = 256 << 10

// WebhookIngestService applies provider push notifications
type WebhookIngestService interface {
	Ingest(ctx context.Context, payload []byte, signature string) (*appfulfillment.IngestResult, error)
}

// WebhookHandler receives provider webhooks. It is mounted without JWT; the
// ingester checks the body signature instead.
type WebhookHandler struct {
	BaseHandler
	ingester        WebhookIngestService
	signatureHeader string
	maxBody         int64
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(ingester WebhookIngestService, signatureHeader string, maxBody int64) *WebhookHandler {
	if maxBody <= 0 {
		maxBody = DefaultMaxWebhookBody
	}
	return &WebhookHandler{
		ingester:        ingester,
		signatureHeader: signatureHeader,
		maxBody:         maxBody,
	}
}

// Receive handles one delivery. Any non-2xx answer makes the provider retry.
// POST /webhooks/fulfillment
func (h *WebhookHandler) Receive(c *gin.Context) {
	// the signature covers the exact bytes, so the body is read raw
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, h.maxBody+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "webhook body too large")
			return
		}
		h.BadRequest(c, "failed to read webhook body")
		return
	}
	if int64(len(payload)) > h.maxBody {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeTooLarge, "webhook body too large")
		return
	}

	result, err := h.ingester.Ingest(c.Request.Context(), payload, c.GetHeader(h.signatureHeader))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// RegisterRoutes mounts the webhook route on rg
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/fulfillment", h.Receive)
}
