package portal

import (
	"github.com/erp/portal/internal/domain/catalog"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// RecordPaymentInput is a request to record a payment against an invoice
type RecordPaymentInput struct {
	InvoiceID string
	// Amount is nil when the caller sent no usable amount
	Amount         *decimal.Decimal
	IdempotencyKey string
}

// RecordPaymentResult is the outcome of RecordPayment
type RecordPaymentResult struct {
	Payment *trade.PaymentReceived
	// Activity is nil when the payment was replayed
	Activity *trade.ActivityEntry
	Replayed bool
}

// UpdateItemRequestStatusInput is an admin's triage decision
type UpdateItemRequestStatusInput struct {
	RequestID       string
	Status          catalog.ItemRequestStatus
	RejectionReason string
}

// UpdateItemRequestStatusResult is the outcome of UpdateItemRequestStatus
type UpdateItemRequestStatusResult struct {
	Request *catalog.ItemRequest
	// Item is the catalog entry created by this call, if any
	Item *catalog.Item
}
