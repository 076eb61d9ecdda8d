package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/roastery/backend/internal/application/settings"
)

// FulfillmentSettingsService reads and rotates provider settings
type FulfillmentSettingsService interface {
	Get(ctx context.Context) (*settings.FulfillmentSettingsView, error)
	Update(ctx context.Context, input settings.UpdateFulfillmentSettingsInput) (*settings.FulfillmentSettingsView, error)
}

// SettingsHandler exposes provider settings to admins
type SettingsHandler struct {
	BaseHandler
	settings FulfillmentSettingsService
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(svc FulfillmentSettingsService) *SettingsHandler {
	return &SettingsHandler{settings: svc}
}

// Get returns the masked settings.
// GET /admin/settings/fulfillment
func (h *SettingsHandler) Get(c *gin.Context) {
	view, err := h.settings.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Update stores new settings; omitted fields keep their value.
// PUT /admin/settings/fulfillment
func (h *SettingsHandler) Update(c *gin.Context) {
	var input settings.UpdateFulfillmentSettingsInput
	if err := c.ShouldBindJSON(&input); err != nil {
		h.ValidationError(c, err)
		return
	}

	view, err := h.settings.Update(c.Request.Context(), input)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// RegisterRoutes mounts the settings routes on an admin group
func (h *SettingsHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings/fulfillment", h.Get)
	rg.PUT("/settings/fulfillment", h.Update)
}
