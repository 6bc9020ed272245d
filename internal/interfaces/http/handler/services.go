package handler

import (
	"context"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/catalog"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/trade"
)

// ProfileService is the profile part of the portal
type ProfileService interface {
	GetProfile(ctx context.Context, p *identity.Principal) (*partner.Customer, error)
	UpsertProfile(ctx context.Context, p *identity.Principal, in partner.ProfileInput) (*partner.Customer, error)
}

// QuoteService is the quote lifecycle
type QuoteService interface {
	CreateQuote(ctx context.Context, p *identity.Principal, lines []trade.QuoteLineInput) (*trade.Quote, error)
	ListQuotes(ctx context.Context, p *identity.Principal) ([]*trade.Quote, error)
	Approve(ctx context.Context, p *identity.Principal, quoteID string) (*trade.Quote, error)
	Reject(ctx context.Context, p *identity.Principal, quoteID string) (*trade.Quote, error)
	AdminScrap(ctx context.Context, quoteID string) (*trade.Quote, error)
}

// InvoiceService lists invoices and receipts
type InvoiceService interface {
	ListInvoices(ctx context.Context, p *identity.Principal) ([]*trade.Invoice, error)
	GetInvoice(ctx context.Context, p *identity.Principal, invoiceID string) (*trade.Invoice, error)
	ListReceipts(ctx context.Context, p *identity.Principal) ([]*trade.PaymentReceived, error)
}

// PaymentService records customer payments
type PaymentService interface {
	RecordPayment(ctx context.Context, p *identity.Principal, in portal.RecordPaymentInput) (*portal.RecordPaymentResult, error)
}

// ItemRequestService is the item-request lifecycle
type ItemRequestService interface {
	CreateItemRequest(ctx context.Context, p *identity.Principal, in catalog.ItemRequestInput) (*catalog.ItemRequest, error)
	ListItemRequests(ctx context.Context, status string) ([]*catalog.ItemRequest, error)
	ListMyItemRequests(ctx context.Context, p *identity.Principal) ([]*catalog.ItemRequest, error)
	UpdateItemRequestStatus(ctx context.Context, in portal.UpdateItemRequestStatusInput) (*portal.UpdateItemRequestStatusResult, error)
}

var (
	_ ProfileService     = (*portal.ProfileService)(nil)
	_ QuoteService       = (*portal.QuoteService)(nil)
	_ InvoiceService     = (*portal.InvoiceService)(nil)
	_ PaymentService     = (*portal.PaymentService)(nil)
	_ ItemRequestService = (*portal.ItemRequestService)(nil)
)
