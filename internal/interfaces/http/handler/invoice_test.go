package handler

import (
	"net/http"
	"strings"
	"testing"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newInvoiceEngine(invoices InvoiceService, payments PaymentService) http.Handler {
	h := NewInvoiceHandler(invoices, payments)
	r := newTestEngine(testPrincipal)
	r.GET("/invoices", h.List)
	r.GET("/invoices/:id", h.Get)
	r.GET("/receipts", h.Receipts)
	r.POST("/invoices/:id/pay", h.Pay)
	return r
}

func TestInvoiceHandler_List(t *testing.T) {
	invoices := new(MockInvoiceService)
	r := newInvoiceEngine(invoices, new(MockPaymentService))

	invoices.On("ListInvoices", mock.Anything, testPrincipal).
		Return([]*trade.Invoice{{ID: "5", InvoiceNumber: "INV-000005", CustomerID: "1"}}, nil).Once()

	w := performRequest(r, http.MethodGet, "/invoices", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(decodeEnvelope(t, w).Data), `"INV-000005"`)
}

func TestInvoiceHandler_GetForbidden(t *testing.T) {
	invoices := new(MockInvoiceService)
	r := newInvoiceEngine(invoices, new(MockPaymentService))

	invoices.On("GetInvoice", mock.Anything, testPrincipal, "5").
		Return(nil, shared.NewForbiddenError("Access denied")).Once()

	w := performRequest(r, http.MethodGet, "/invoices/5", "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Access denied", decodeEnvelope(t, w).Error.Message)
}

func TestInvoiceHandler_ReceiptsEmpty(t *testing.T) {
	invoices := new(MockInvoiceService)
	r := newInvoiceEngine(invoices, new(MockPaymentService))

	invoices.On("ListReceipts", mock.Anything, testPrincipal).Return([]*trade.PaymentReceived{}, nil).Once()

	w := performRequest(r, http.MethodGet, "/receipts", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(decodeEnvelope(t, w).Data))
}

func TestInvoiceHandler_Pay(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantAmount *decimal.Decimal
	}{
		{"numeric amount", `{"amount":250.5}`, decPtr("250.5")},
		{"string amount", `{"amount":"100"}`, decPtr("100")},
		{"unusable amount pays balance", `{"amount":"a lot"}`, nil},
		{"no body pays balance", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentService)
			r := newInvoiceEngine(new(MockInvoiceService), payments)

			var got portal.RecordPaymentInput
			payments.On("RecordPayment", mock.Anything, testPrincipal, mock.AnythingOfType("portal.RecordPaymentInput")).
				Run(func(args mock.Arguments) { got = args.Get(2).(portal.RecordPaymentInput) }).
				Return(&portal.RecordPaymentResult{Payment: &trade.PaymentReceived{ID: "1001", Status: trade.PaymentStatusPendingVerification}}, nil).Once()

			w := performRequest(r, http.MethodPost, "/invoices/5/pay", tt.body)

			assert.Equal(t, http.StatusOK, w.Code)
			env := decodeEnvelope(t, w)
			assert.Equal(t, "Payment recorded successfully and is awaiting verification.", env.Message)
			assert.Equal(t, `"1001"`, jsonField(t, env.Data, "id"))
			assert.Empty(t, w.Header().Get(IdempotentReplayHeader))

			assert.Equal(t, "5", got.InvoiceID)
			if tt.wantAmount == nil {
				assert.Nil(t, got.Amount)
			} else {
				require.NotNil(t, got.Amount)
				assert.True(t, tt.wantAmount.Equal(*got.Amount))
			}
		})
	}
}

func TestInvoiceHandler_PayReplay(t *testing.T) {
	payments := new(MockPaymentService)
	r := newInvoiceEngine(new(MockInvoiceService), payments)

	payments.On("RecordPayment", mock.Anything, testPrincipal, portal.RecordPaymentInput{
		InvoiceID:      "5",
		IdempotencyKey: "retry-1",
	}).Return(&portal.RecordPaymentResult{Payment: &trade.PaymentReceived{ID: "1001"}, Replayed: true}, nil).Once()

	w := performRequest(r, http.MethodPost, "/invoices/5/pay", "", "Idempotency-Key", "  retry-1 ")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "true", w.Header().Get(IdempotentReplayHeader))
	payments.AssertExpectations(t)
}

func TestInvoiceHandler_PayKeyTooLong(t *testing.T) {
	payments := new(MockPaymentService)
	r := newInvoiceEngine(new(MockInvoiceService), payments)

	w := performRequest(r, http.MethodPost, "/invoices/5/pay", "", "Idempotency-Key", strings.Repeat("k", 256))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ERR_VALIDATION", decodeEnvelope(t, w).Error.Code)
	payments.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything, mock.Anything)
}

func TestInvoiceHandler_PayErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"unknown invoice", shared.NewNotFoundError("Invoice"), http.StatusNotFound},
		{"nothing due", shared.NewValidationError("Invoice has no balance due"), http.StatusBadRequest},
		{"store down", shared.NewStorageError("write", shared.CollectionPaymentsReceived, assert.AnError), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payments := new(MockPaymentService)
			r := newInvoiceEngine(new(MockInvoiceService), payments)
			payments.On("RecordPayment", mock.Anything, testPrincipal, mock.Anything).Return(nil, tt.err).Once()

			w := performRequest(r, http.MethodPost, "/invoices/5/pay", `{"amount":10}`)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.False(t, decodeEnvelope(t, w).Success)
		})
	}
}

func decPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
