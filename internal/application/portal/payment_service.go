package portal

import (
	"context"
	"fmt"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var paymentCollections = []shared.Collection{shared.CollectionInvoices, shared.CollectionPaymentsReceived}

// PaymentService records customer payments against invoices.
// Payments start out Pending Verification; verifying them happens elsewhere.
type PaymentService struct {
	core
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(opts Options) *PaymentService {
	return &PaymentService{core: newCore(opts)}
}

// RecordPayment creates a pending payment against the invoice and appends a
// payment_recorded entry to the invoice's activity log, both in one unit of work.
// The principal may be nil; the activity is then attributed to "Customer".
// A repeated IdempotencyKey for the same invoice returns the original payment.
func (s *PaymentService) RecordPayment(ctx context.Context, p *identity.Principal, in RecordPaymentInput) (*RecordPaymentResult, error) {
	ctx, span := s.startSpan(ctx, "record_payment",
		telemetry.WithAttribute("invoice_id", in.InvoiceID),
		telemetry.WithAttribute("anonymous", p.IsAnonymous()))
	defer span.End()

	claimKey := ""
	if in.IdempotencyKey != "" && s.idempotency != nil {
		claimKey = fmt.Sprintf("payment:%s:%s", in.InvoiceID, in.IdempotencyKey)
		claimed, err := s.idempotency.Claim(ctx, claimKey, s.ttl)
		if err != nil {
			return nil, s.finish(span, "record_payment", shared.NewStorageError("claim idempotency key for", shared.CollectionPaymentsReceived, err))
		}
		if !claimed {
			result, err := s.replay(ctx, in)
			return result, s.finish(span, "record_payment", err)
		}
	}

	result, err := s.record(ctx, p, in)
	if err != nil {
		if claimKey != "" {
			if relErr := s.idempotency.Release(ctx, claimKey); relErr != nil {
				s.logger.Warn("Failed to release idempotency key",
					zap.String("key", claimKey),
					zap.Error(relErr))
			}
		}
		return nil, s.finish(span, "record_payment", err)
	}

	if !result.Replayed {
		s.metrics.RecordPayment(ctx, result.Payment.Amount)
		s.logger.Info("Payment recorded",
			zap.String("payment_id", result.Payment.ID.String()),
			zap.String("invoice_id", in.InvoiceID),
			zap.String("amount", result.Payment.Amount.String()),
			zap.String("actor", result.Activity.User))
	}
	return result, s.finish(span, "record_payment", nil)
}

func (s *PaymentService) record(ctx context.Context, p *identity.Principal, in RecordPaymentInput) (*RecordPaymentResult, error) {
	var result *RecordPaymentResult
	err := s.uow.Execute(ctx, paymentCollections, func(ctx context.Context, tx Tx) error {
		invoices, err := loadRecords[trade.Invoice](tx, shared.CollectionInvoices)
		if err != nil {
			return err
		}
		invoice := invoices.find(func(inv *trade.Invoice) bool { return inv.ID.String() == in.InvoiceID })
		if invoice == nil {
			return shared.NewNotFoundError("Invoice")
		}
		amount, err := trade.ResolvePaymentAmount(in.Amount, invoice)
		if err != nil {
			return err
		}

		payments, err := loadRecords[trade.PaymentReceived](tx, shared.CollectionPaymentsReceived)
		if err != nil {
			return err
		}
		if existing := findByIdempotencyKey(payments, invoice.ID, in.IdempotencyKey); existing != nil {
			result = &RecordPaymentResult{Payment: existing, Replayed: true}
			return nil
		}

		id, err := payments.allocate(ctx, tx)
		if err != nil {
			return err
		}
		now := s.now()
		payment, err := trade.NewPendingPayment(id, invoice, amount, now)
		if err != nil {
			return err
		}
		payment.IdempotencyKey = in.IdempotencyKey
		payments.add(payment)

		entry, err := invoice.AppendActivity(trade.ActivityPaymentRecorded,
			s.amounts.PaymentRecordedDescription(amount), p.ActorName(), now)
		if err != nil {
			return shared.NewStorageError("encode", shared.CollectionInvoices, err)
		}
		invoices.touch(invoice, "activityLogs")

		if err := payments.flush(tx); err != nil {
			return err
		}
		if err := invoices.flush(tx); err != nil {
			return err
		}
		result = &RecordPaymentResult{Payment: payment, Activity: &entry}
		return nil
	})
	return result, err
}

// replay answers a request whose idempotency key is already claimed
func (s *PaymentService) replay(ctx context.Context, in RecordPaymentInput) (*RecordPaymentResult, error) {
	var existing *trade.PaymentReceived
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionPaymentsReceived}, func(ctx context.Context, tx Tx) error {
		payments, err := loadRecords[trade.PaymentReceived](tx, shared.CollectionPaymentsReceived)
		if err != nil {
			return err
		}
		existing = findByIdempotencyKey(payments, shared.RecordID(in.InvoiceID), in.IdempotencyKey)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, shared.NewDomainError(shared.CodeConcurrencyConflict,
			"A payment with this idempotency key is already being processed")
	}
	s.logger.Info("Payment replayed for idempotency key",
		zap.String("payment_id", existing.ID.String()),
		zap.String("invoice_id", in.InvoiceID))
	return &RecordPaymentResult{Payment: existing, Replayed: true}, nil
}

func findByIdempotencyKey(payments *records[trade.PaymentReceived], invoiceID shared.RecordID, key string) *trade.PaymentReceived {
	if key == "" {
		return nil
	}
	return payments.find(func(pr *trade.PaymentReceived) bool {
		return pr.IdempotencyKey == key && pr.AppliesTo(invoiceID)
	})
}
