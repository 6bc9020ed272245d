package handler

import (
	"strings"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/interfaces/http/dto"
	"github.com/erp/portal/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// IdempotentReplayHeader marks a response that repeats an earlier payment
const IdempotentReplayHeader = "Idempotent-Replayed"

// maxIdempotencyKeyLength bounds the Idempotency-Key header
const maxIdempotencyKeyLength = 255

// InvoiceHandler serves invoices, receipts and payments
type InvoiceHandler struct {
	BaseHandler
	invoices InvoiceService
	payments PaymentService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(invoices InvoiceService, payments PaymentService) *InvoiceHandler {
	return &InvoiceHandler{invoices: invoices, payments: payments}
}

// List handles GET /invoices
func (h *InvoiceHandler) List(c *gin.Context) {
	invoices, err := h.invoices.ListInvoices(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orEmpty(invoices))
}

// Get handles GET /invoices/:id
func (h *InvoiceHandler) Get(c *gin.Context) {
	invoice, err := h.invoices.GetInvoice(c.Request.Context(), middleware.GetPrincipal(c), c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, invoice)
}

// Receipts handles GET /receipts
func (h *InvoiceHandler) Receipts(c *gin.Context) {
	receipts, err := h.invoices.ListReceipts(c.Request.Context(), middleware.GetPrincipal(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, orEmpty(receipts))
}

// Pay handles POST /invoices/:id/pay.
// Authentication is optional; an Idempotency-Key header makes retries safe.
func (h *InvoiceHandler) Pay(c *gin.Context) {
	var req dto.PayInvoiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	key := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.Error(c, dto.ErrCodeValidation, "Idempotency-Key is too long")
		return
	}

	result, err := h.payments.RecordPayment(c.Request.Context(), middleware.GetPrincipal(c), portal.RecordPaymentInput{
		InvoiceID:      c.Param("id"),
		Amount:         req.Amount.Decimal(),
		IdempotencyKey: key,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Replayed {
		c.Header(IdempotentReplayHeader, "true")
	}
	h.SuccessWithMessage(c, "Payment recorded successfully and is awaiting verification.", result.Payment)
}
