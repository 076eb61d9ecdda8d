package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roastery/backend/internal/domain/shared"
	"github.com/roastery/backend/internal/infrastructure/logger"
	"github.com/roastery/backend/internal/interfaces/http/dto"
	"github.com/roastery/backend/internal/interfaces/http/middleware"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// ValidationError sends a 400 response listing the invalid fields
func (h *BaseHandler) ValidationError(c *gin.Context, err error) {
	middleware.HandleValidationError(c, err)
}

// HandleError maps service errors to HTTP responses. Domain errors carry
// their own code; everything else goes through dto.ErrorCodeFor.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		h.Error(c, status, code, domainErr.Message)
		return
	}

	code := dto.ErrorCodeFor(err)
	status := dto.GetHTTPStatus(code)
	_ = c.Error(err)

	log := logger.GetGinLogger(c)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("code", code), zap.Error(err))
	} else {
		log.Info("Request rejected", zap.String("code", code), zap.Error(err))
	}

	message := err.Error()
	if code == dto.ErrCodeInternal {
		message = "An unexpected error occurred"
	}
	h.Error(c, status, code, message)
}

// parseOrderID reads the :id path parameter. It writes the error response
// and returns false when the id is not a UUID.
func (h *BaseHandler) parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "order id must be a UUID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "order id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}
