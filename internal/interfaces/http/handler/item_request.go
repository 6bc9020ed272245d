package handler

import (
	"strings"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/catalog"
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// ItemRequestHandler serves requests for new catalog items
type ItemRequestHandler struct {
	BaseHandler
	requests ItemRequestService
}

// NewItemRequestHandler creates a new ItemRequestHandler
func NewItemRequestHandler(requests ItemRequestService) *ItemRequestHandler {
	return &ItemRequestHandler{requests: requests}
}

// Create handles POST /item-requests
func (h *ItemRequestHandler) Create(c *gin.Context) {
	var req dto.CreateItemRequestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	request, err := h.requests.CreateItemRequest(c.Request.Context(), middleware.GetPrincipal(c), req.ToInput())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, "Item request submitted successfully", request)
}

// List handles GET /item-requests?status= (admin)
func (h *ItemRequestHandler) List(c *gin.Context) {
	var query dto.ItemRequestListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	requests, err := h.requests.ListItemRequests(c.Request.Context(), query.Status)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orEmpty(requests))
}

// ListMine handles GET /my-item-requests
func (h *ItemRequestHandler) ListMine(c *gin.Context) {
	requests, err := h.requests.ListMyItemRequests(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orEmpty(requests))
}

// UpdateStatus handles PATCH /item-requests/:id/status (admin)
func (h *ItemRequestHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateItemRequestStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	result, err := h.requests.UpdateItemRequestStatus(c.Request.Context(), portal.UpdateItemRequestStatusInput{
		RequestID:       c.Param("id"),
		Status:          catalog.ItemRequestStatus(req.Status),
		RejectionReason: req.RejectionReason,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, "Request "+strings.ToLower(req.Status)+" successfully", result.Request)
}
