package portal

import (
	"context"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

var quoteCollections = []shared.Collection{shared.CollectionCustomers, shared.CollectionQuotes}

// QuoteService creates quotes for customers and moves them through their lifecycle
type QuoteService struct {
	core
}

// NewQuoteService creates a new QuoteService
func NewQuoteService(opts Options) *QuoteService {
	return &QuoteService{core: newCore(opts)}
}

// CreateQuote records a draft quote for the principal's primary customer
func (s *QuoteService) CreateQuote(ctx context.Context, p *identity.Principal, lines []trade.QuoteLineInput) (*trade.Quote, error) {
	ctx, span := s.startSpan(ctx, "create_quote", telemetry.WithAttribute("items_count", len(lines)))
	defer span.End()

	var quote *trade.Quote
	err := s.uow.Execute(ctx, quoteCollections, func(ctx context.Context, tx Tx) error {
		customer, err := primaryCustomer(tx, p)
		if err != nil {
			return err
		}
		if customer == nil {
			return shared.ErrIncompleteProfile
		}

		quotes, err := loadRecords[trade.Quote](tx, shared.CollectionQuotes)
		if err != nil {
			return err
		}
		id, err := quotes.allocate(ctx, tx)
		if err != nil {
			return err
		}
		if quote, err = trade.NewQuote(id, customer, lines, s.orgID, s.now()); err != nil {
			return err
		}
		quotes.add(quote)
		return quotes.flush(tx)
	})
	if err != nil {
		return nil, s.finish(span, "create_quote", err)
	}

	s.metrics.RecordQuoteCreated(ctx)
	s.logger.Info("Quote created",
		zap.String("quote_id", quote.ID.String()),
		zap.String("quote_number", quote.QuoteNumber),
		zap.String("customer_id", quote.CustomerID.String()),
		zap.String("total", quote.Total.String()))
	return quote, s.finish(span, "create_quote", nil)
}

// ListQuotes returns the quotes of every customer matching the principal
func (s *QuoteService) ListQuotes(ctx context.Context, p *identity.Principal) ([]*trade.Quote, error) {
	ctx, span := s.startSpan(ctx, "list_quotes")
	defer span.End()

	result := []*trade.Quote{}
	err := s.uow.Execute(ctx, quoteCollections, func(ctx context.Context, tx Tx) error {
		owned, err := ownedCustomerIDs(tx, p)
		if err != nil || len(owned) == 0 {
			return err
		}
		quotes, err := loadRecords[trade.Quote](tx, shared.CollectionQuotes)
		if err != nil {
			return err
		}
		result = quotes.filter(func(q *trade.Quote) bool { return q.IsOwnedBy(owned) })
		return nil
	})
	if err != nil {
		return nil, s.finish(span, "list_quotes", err)
	}
	return result, s.finish(span, "list_quotes", nil)
}

// Approve accepts a quote owned by the principal
func (s *QuoteService) Approve(ctx context.Context, p *identity.Principal, quoteID string) (*trade.Quote, error) {
	return s.transition(ctx, p, quoteID, trade.QuoteStatusApproved)
}

// Reject scraps a quote owned by the principal
func (s *QuoteService) Reject(ctx context.Context, p *identity.Principal, quoteID string) (*trade.Quote, error) {
	return s.transition(ctx, p, quoteID, trade.QuoteStatusScrapped)
}

func (s *QuoteService) transition(ctx context.Context, p *identity.Principal, quoteID string, target trade.QuoteStatus) (*trade.Quote, error) {
	ctx, span := s.startSpan(ctx, "transition_quote",
		telemetry.WithAttribute("quote_id", quoteID),
		telemetry.WithAttribute("status", target.String()))
	defer span.End()

	var quote *trade.Quote
	err := s.uow.Execute(ctx, quoteCollections, func(ctx context.Context, tx Tx) error {
		owned, err := ownedCustomerIDs(tx, p)
		if err != nil {
			return err
		}
		if len(owned) == 0 {
			return shared.ErrIncompleteProfile
		}
		quotes, err := loadRecords[trade.Quote](tx, shared.CollectionQuotes)
		if err != nil {
			return err
		}
		quote = quotes.find(func(q *trade.Quote) bool { return q.ID.String() == quoteID })
		if quote == nil {
			return shared.NewNotFoundError("Quote")
		}
		if !quote.IsOwnedBy(owned) {
			return shared.NewForbiddenError("This quote belongs to another customer")
		}
		if err := quote.TransitionTo(target, s.strict); err != nil {
			return err
		}
		quotes.touch(quote, "status")
		return quotes.flush(tx)
	})
	if err != nil {
		return nil, s.finish(span, "transition_quote", err)
	}

	s.metrics.RecordQuoteTransition(ctx, target.String())
	s.logger.Info("Quote status changed",
		zap.String("quote_id", quote.ID.String()),
		zap.String("status", target.String()),
		zap.String("user_id", p.ID))
	return quote, s.finish(span, "transition_quote", nil)
}

// AdminScrap marks any quote as scrapped, without an ownership check
func (s *QuoteService) AdminScrap(ctx context.Context, quoteID string) (*trade.Quote, error) {
	ctx, span := s.startSpan(ctx, "admin_scrap_quote", telemetry.WithAttribute("quote_id", quoteID))
	defer span.End()

	var quote *trade.Quote
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionQuotes}, func(ctx context.Context, tx Tx) error {
		quotes, err := loadRecords[trade.Quote](tx, shared.CollectionQuotes)
		if err != nil {
			return err
		}
		quote = quotes.find(func(q *trade.Quote) bool { return q.ID.String() == quoteID })
		if quote == nil {
			return shared.NewNotFoundError("Quote")
		}
		// admins may scrap from any status
		if err := quote.Scrap(false); err != nil {
			return err
		}
		quotes.touch(quote, "status")
		return quotes.flush(tx)
	})
	if err != nil {
		return nil, s.finish(span, "admin_scrap_quote", err)
	}

	s.metrics.RecordQuoteTransition(ctx, trade.QuoteStatusScrapped.String())
	s.logger.Info("Quote scrapped by admin", zap.String("quote_id", quote.ID.String()))
	return quote, s.finish(span, "admin_scrap_quote", nil)
}
