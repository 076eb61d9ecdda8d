package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appfulfillment "github.com/roastery/backend/internal/application/fulfillment"
	"github.com/roastery/backend/internal/domain/fulfillment"
	"github.com/roastery/backend/internal/interfaces/http/dto"
)

// OrderSubmitService submits paid orders to the provider
type OrderSubmitService interface {
	Submit(ctx context.Context, orderID uuid.UUID, address fulfillment.ShippingAddress) (*appfulfillment.SubmitResult, error)
}

// OrderSyncService reconciles one order with the provider
type OrderSyncService interface {
	SyncOne(ctx context.Context, orderID uuid.UUID) (*appfulfillment.SyncResult, error)
}

// OrderCancelService cancels a submitted order
type OrderCancelService interface {
	Cancel(ctx context.Context, orderID uuid.UUID) (*appfulfillment.CancelResult, error)
}

// FulfillmentQueryService reads local fulfillment state
type FulfillmentQueryService interface {
	Get(ctx context.Context, orderID uuid.UUID) (*appfulfillment.FulfillmentView, error)
	Shipments(ctx context.Context, orderID uuid.UUID) ([]fulfillment.ShippingRecord, error)
}

// FulfillmentHandler exposes order fulfillment operations
type FulfillmentHandler struct {
	BaseHandler
	submitter  OrderSubmitService
	reconciler OrderSyncService
	canceler   OrderCancelService
	query      FulfillmentQueryService
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(submitter OrderSubmitService, reconciler OrderSyncService, canceler OrderCancelService, query FulfillmentQueryService) *FulfillmentHandler {
	return &FulfillmentHandler{
		submitter:  submitter,
		reconciler: reconciler,
		canceler:   canceler,
		query:      query,
	}
}

// Submit sends a paid order to the provider.
// POST /fulfillment/orders/:id/submit
func (h *FulfillmentHandler) Submit(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	var req dto.ShippingAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.submitter.Submit(c.Request.Context(), orderID, req.ToDomain())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, result)
}

// Sync pulls the provider status and shipments for an order.
// POST /fulfillment/orders/:id/sync
func (h *FulfillmentHandler) Sync(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.reconciler.SyncOne(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Cancel cancels the provider order.
// POST /fulfillment/orders/:id/cancel
func (h *FulfillmentHandler) Cancel(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.canceler.Cancel(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Get returns the local fulfillment state of an order.
// GET /fulfillment/orders/:id
func (h *FulfillmentHandler) Get(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	view, err := h.query.Get(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Shipments lists recorded shipments.
// GET /fulfillment/orders/:id/shipments
func (h *FulfillmentHandler) Shipments(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	shipments, err := h.query.Shipments(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if shipments == nil {
		shipments = []fulfillment.ShippingRecord{}
	}
	h.Success(c, shipments)
}

// RegisterRoutes mounts the fulfillment routes on rg
func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/fulfillment/orders")
	orders.GET("/:id", h.Get)
	orders.GET("/:id/shipments", h.Shipments)
	orders.POST("/:id/submit", h.Submit)
	orders.POST("/:id/sync", h.Sync)
	orders.POST("/:id/cancel", h.Cancel)
}
