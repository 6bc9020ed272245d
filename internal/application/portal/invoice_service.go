package portal

import (
	"context"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
)

// InvoiceService exposes a customer's invoices and payment receipts
type InvoiceService struct {
	core
}

// NewInvoiceService creates a new InvoiceService
func NewInvoiceService(opts Options) *InvoiceService {
	return &InvoiceService{core: newCore(opts)}
}

// ListInvoices returns the invoices of every customer matching the principal
func (s *InvoiceService) ListInvoices(ctx context.Context, p *identity.Principal) ([]*trade.Invoice, error) {
	ctx, span := s.startSpan(ctx, "list_invoices")
	defer span.End()

	result := []*trade.Invoice{}
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers, shared.CollectionInvoices}, func(ctx context.Context, tx Tx) error {
		owned, err := ownedCustomerIDs(tx, p)
		if err != nil || len(owned) == 0 {
			return err
		}
		invoices, err := loadRecords[trade.Invoice](tx, shared.CollectionInvoices)
		if err != nil {
			return err
		}
		result = invoices.filter(func(inv *trade.Invoice) bool { return inv.IsOwnedBy(owned) })
		return nil
	})
	if err != nil {
		return nil, s.finish(span, "list_invoices", err)
	}
	return result, s.finish(span, "list_invoices", nil)
}

// GetInvoice returns one invoice if it belongs to the principal
func (s *InvoiceService) GetInvoice(ctx context.Context, p *identity.Principal, invoiceID string) (*trade.Invoice, error) {
	ctx, span := s.startSpan(ctx, "get_invoice")
	defer span.End()

	var invoice *trade.Invoice
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers, shared.CollectionInvoices}, func(ctx context.Context, tx Tx) error {
		owned, err := ownedCustomerIDs(tx, p)
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			return shared.ErrIncompleteProfile
		}
		invoices, err := loadRecords[trade.Invoice](tx, shared.CollectionInvoices)
		if err != nil {
			return err
		}
		invoice = invoices.find(func(inv *trade.Invoice) bool { return inv.ID.String() == invoiceID })
		if invoice == nil {
			return shared.NewNotFoundError("Invoice")
		}
		if !invoice.IsOwnedBy(owned) {
			return shared.NewForbiddenError("This invoice belongs to another customer")
		}
		return nil
	})
	if err != nil {
		return nil, s.finish(span, "get_invoice", err)
	}
	return invoice, s.finish(span, "get_invoice", nil)
}

// ListReceipts returns the payments recorded for every customer matching the principal
func (s *InvoiceService) ListReceipts(ctx context.Context, p *identity.Principal) ([]*trade.PaymentReceived, error) {
	ctx, span := s.startSpan(ctx, "list_receipts")
	defer span.End()

	result := []*trade.PaymentReceived{}
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers, shared.CollectionPaymentsReceived}, func(ctx context.Context, tx Tx) error {
		owned, err := ownedCustomerIDs(tx, p)
		if err != nil || len(owned) == 0 {
			return err
		}
		payments, err := loadRecords[trade.PaymentReceived](tx, shared.CollectionPaymentsReceived)
		if err != nil {
			return err
		}
		result = payments.filter(func(pr *trade.PaymentReceived) bool { return owned[pr.CustomerID] })
		return nil
	})
	if err != nil {
		return nil, s.finish(span, "list_receipts", err)
	}
	return result, s.finish(span, "list_receipts", nil)
}
