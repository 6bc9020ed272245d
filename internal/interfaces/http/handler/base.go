// Package handler adapts HTTP requests to the portal services.
package handler

import (
	"errors"
	"net/http"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/logger"
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessWithMessage sends a 200 response with a user-facing message
func (h *BaseHandler) SuccessWithMessage(c *gin.Context, message string, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMessage(message, data))
}

// Created sends a 201 response with a user-facing message
func (h *BaseHandler) Created(c *gin.Context, message string, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponseWithMessage(message, data))
}

// Error sends an error response, deriving the status from the code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(dto.NormalizeErrorCode(code)),
		dto.NewErrorResponseWithRequestID(code, message, middleware.GetRequestID(c)))
}

// BindJSON binds the request body and writes a validation response on failure.
// An empty body binds to the zero value.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError converts service errors to HTTP responses.
// Domain errors keep their message; anything else becomes a generic 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		if errors.Is(err, shared.ErrStorageFailure) {
			logger.GetGinLogger(c).Error("Request failed on record store", zap.Error(err))
			h.Error(c, domainErr.Code, "The request could not be completed, please retry")
			return
		}
		h.Error(c, domainErr.Code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.Error(c, dto.ErrCodeInternal, "An unexpected error occurred")
}

// orEmpty keeps list responses as [] instead of null
func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
