package handler

import (
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// QuoteHandler serves quote requests and decisions
type QuoteHandler struct {
	BaseHandler
	quotes QuoteService
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(quotes QuoteService) *QuoteHandler {
	return &QuoteHandler{quotes: quotes}
}

// Create handles POST /request
func (h *QuoteHandler) Create(c *gin.Context) {
	var req dto.CreateQuoteRequest
	if !h.BindJSON(c, &req) {
		return
	}

	quote, err := h.quotes.CreateQuote(c.Request.Context(), middleware.GetPrincipal(c), req.ToLines())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, "Request received successfully.", quote)
}

// List handles GET /quotes
func (h *QuoteHandler) List(c *gin.Context) {
	quotes, err := h.quotes.ListQuotes(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orEmpty(quotes))
}

// Approve handles POST /quotes/:id/approve
func (h *QuoteHandler) Approve(c *gin.Context) {
	quote, err := h.quotes.Approve(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, "Quote approved successfully", quote)
}

// Reject handles POST /quotes/:id/reject
func (h *QuoteHandler) Reject(c *gin.Context) {
	quote, err := h.quotes.Reject(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, "Quote scrapped", quote)
}

// Scrap handles POST /quotes/:id/scrap (admin)
func (h *QuoteHandler) Scrap(c *gin.Context) {
	quote, err := h.quotes.AdminScrap(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMessage(c, "Quote marked as scrapped", quote)
}
