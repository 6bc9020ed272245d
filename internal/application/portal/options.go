// Package portal implements the customer portal: identity resolution, id
// allocation and the quote, item-request and payment lifecycles over a
// RecordStore-backed unit of work.
package portal

import (
	"context"
	"errors"
	"time"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// DefaultOrganizationID is stamped on documents when none is configured
	DefaultOrganizationID = "1"

	spanService = "portal"
)

// Options configures the portal services
type Options struct {
	UnitOfWork UnitOfWork
	// Idempotency deduplicates retried payments; nil disables Idempotency-Key handling
	Idempotency    shared.IdempotencyStore
	IdempotencyTTL time.Duration
	Metrics        *telemetry.PortalMetrics
	Logger         *zap.Logger

	// StrictTransitions rejects transitions out of terminal states
	StrictTransitions bool
	OrganizationID    string
	CurrencySymbol    string
	Locale            string

	// Now overrides the clock in tests
	Now func() time.Time
}

// core carries what every portal service needs
type core struct {
	uow         UnitOfWork
	idempotency shared.IdempotencyStore
	ttl         time.Duration
	metrics     *telemetry.PortalMetrics
	logger      *zap.Logger
	strict      bool
	orgID       string
	amounts     *trade.AmountFormatter
	now         func() time.Time
}

func newCore(opts Options) core {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	orgID := opts.OrganizationID
	if orgID == "" {
		orgID = DefaultOrganizationID
	}
	ttl := opts.IdempotencyTTL
	if ttl <= 0 {
		ttl = shared.DefaultIdempotencyConfig().TTL
	}
	return core{
		uow:         opts.UnitOfWork,
		idempotency: opts.Idempotency,
		ttl:         ttl,
		metrics:     opts.Metrics,
		logger:      logger,
		strict:      opts.StrictTransitions,
		orgID:       orgID,
		amounts:     trade.NewAmountFormatter(opts.CurrencySymbol, opts.Locale),
		now:         now,
	}
}

// startSpan opens a span named portal.<method>
func (c *core) startSpan(ctx context.Context, method string, opts ...telemetry.SpanOption) (context.Context, trace.Span) {
	return telemetry.StartServiceSpan(ctx, spanService, method, opts...)
}

// finish records the outcome on the span and logs storage failures
func (c *core) finish(span trace.Span, op string, err error) error {
	if err == nil {
		telemetry.SetOK(span)
		return nil
	}
	telemetry.RecordError(span, err)
	if errors.Is(err, shared.ErrStorageFailure) {
		c.logger.Error("Record store failure",
			zap.String("operation", op),
			zap.Error(err))
	}
	return err
}
