package telemetry

import (
	"context"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// PortalMetrics counts customer portal activity.
// A nil *PortalMetrics is valid and records nothing.
type PortalMetrics struct {
	logger *zap.Logger

	quotesCreated       *Counter
	quoteTransitions    *Counter
	paymentsRecorded    *Counter
	paymentAmount       *Counter
	itemRequests        *Counter
	catalogItemsCreated *Counter
}

// PortalMetricsConfig holds configuration for portal metrics.
type PortalMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewPortalMetrics creates the portal counters on the given meter.
func NewPortalMetrics(cfg PortalMetricsConfig) (*PortalMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pm := &PortalMetrics{logger: logger}
	counters := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&pm.quotesCreated, "portal_quotes_created_total", "Total number of quotes requested", "{quotes}"},
		{&pm.quoteTransitions, "portal_quote_transitions_total", "Total number of quote status changes", "{transitions}"},
		{&pm.paymentsRecorded, "portal_payments_recorded_total", "Total number of payments recorded for verification", "{payments}"},
		{&pm.paymentAmount, "portal_payment_amount_total", "Total recorded payment amount in paise", "{paise}"},
		{&pm.itemRequests, "portal_item_requests_total", "Total number of item request submissions and decisions", "{requests}"},
		{&pm.catalogItemsCreated, "portal_catalog_items_created_total", "Total number of catalog items created from requests", "{items}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.description, c.unit)
		if err != nil {
			return nil, err
		}
		*c.target = counter
	}
	return pm, nil
}

// RecordQuoteCreated records a new draft quote.
func (pm *PortalMetrics) RecordQuoteCreated(ctx context.Context) {
	if pm == nil {
		return
	}
	pm.quotesCreated.Inc(ctx)
}

// RecordQuoteTransition records a quote moving to status.
func (pm *PortalMetrics) RecordQuoteTransition(ctx context.Context, status string) {
	if pm == nil {
		return
	}
	pm.quoteTransitions.Inc(ctx, AttrStatus.String(status))
}

// RecordPayment records a payment and its amount.
// The amount is counted in the smallest currency unit (paise).
func (pm *PortalMetrics) RecordPayment(ctx context.Context, amount decimal.Decimal) {
	if pm == nil {
		return
	}
	pm.paymentsRecorded.Inc(ctx)
	pm.paymentAmount.Add(ctx, amount.Mul(decimal.NewFromInt(100)).IntPart())
}

// RecordItemRequest records an item request entering status.
func (pm *PortalMetrics) RecordItemRequest(ctx context.Context, status string) {
	if pm == nil {
		return
	}
	pm.itemRequests.Inc(ctx, AttrStatus.String(status))
}

// RecordCatalogItemCreated records a catalog item created by an approval.
func (pm *PortalMetrics) RecordCatalogItemCreated(ctx context.Context) {
	if pm == nil {
		return
	}
	pm.catalogItemsCreated.Inc(ctx)
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewPortalMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
