package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	appcatalog "github.com/roastery/backend/internal/application/catalog"
	"github.com/roastery/backend/internal/domain/catalog"
	"github.com/roastery/backend/internal/interfaces/http/dto"
)

// CatalogSyncService imports provider products
type CatalogSyncService interface {
	SyncAll(ctx context.Context) (*appcatalog.SyncAllResult, error)
	SyncOne(ctx context.Context, externalProductID string) (*appcatalog.SyncOneResult, error)
	ListRuns(ctx context.Context, limit int) ([]catalog.SyncRun, error)
}

// CatalogHandler exposes catalog import operations to admins
type CatalogHandler struct {
	BaseHandler
	sync CatalogSyncService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(sync CatalogSyncService) *CatalogHandler {
	return &CatalogHandler{sync: sync}
}

// SyncAll imports every provider product.
// POST /admin/catalog/sync
func (h *CatalogHandler) SyncAll(c *gin.Context) {
	result, err := h.sync.SyncAll(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncOne refreshes a single provider product.
// POST /admin/catalog/sync/:externalId
func (h *CatalogHandler) SyncOne(c *gin.Context) {
	var req dto.ExternalProductRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	result, err := h.sync.SyncOne(c.Request.Context(), req.ExternalID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListRuns returns recent sync runs, newest first.
// GET /admin/catalog/sync-runs
func (h *CatalogHandler) ListRuns(c *gin.Context) {
	var req dto.ListSyncRunsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	runs, err := h.sync.ListRuns(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if runs == nil {
		runs = []catalog.SyncRun{}
	}
	h.Success(c, runs)
}

// RegisterRoutes mounts the catalog routes on an admin group
func (h *CatalogHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/catalog/sync", h.SyncAll)
	rg.POST("/catalog/sync/:externalId", h.SyncOne)
	rg.GET("/catalog/sync-runs", h.ListRuns)
}
