package trade

import (
	"fmt"
	"strconv"
	"time"

	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// QuoteStatus represents the status of a quote
type QuoteStatus string

const (
	QuoteStatusDraft    QuoteStatus = "Draft"
	QuoteStatusApproved QuoteStatus = "Approved"
	QuoteStatusScrapped QuoteStatus = "Scrapped"
)

// DefaultLineUnit is the unit recorded when a quote line does not name one
const DefaultLineUnit = "pcs"

// IsValid checks if the status is a valid QuoteStatus
func (s QuoteStatus) IsValid() bool {
	switch s {
	case QuoteStatusDraft, QuoteStatusApproved, QuoteStatusScrapped:
		return true
	}
	return false
}

// String returns the string representation of QuoteStatus
func (s QuoteStatus) String() string {
	return string(s)
}

// IsTerminal returns true if no transition leaves the status
func (s QuoteStatus) IsTerminal() bool {
	return s == QuoteStatusApproved || s == QuoteStatusScrapped
}

// CanTransitionTo checks if the status can transition to the target status
func (s QuoteStatus) CanTransitionTo(target QuoteStatus) bool {
	switch s {
	case QuoteStatusDraft:
		return target == QuoteStatusApproved || target == QuoteStatusScrapped
	case QuoteStatusApproved, QuoteStatusScrapped:
		return false
	}
	return false
}

// QuoteLine is a line item of a quote
type QuoteLine struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	Rate        decimal.Decimal `json:"rate"`
	Amount      decimal.Decimal `json:"amount"` // Quantity * Rate
	Unit        string          `json:"unit"`
}

// QuoteLineInput is a requested line before validation.
// A nil quantity means 1 and a nil rate means 0.
type QuoteLineInput struct {
	Name        string
	Description string
	Quantity    *decimal.Decimal
	Rate        *decimal.Decimal
	Unit        string
}

// Quote is a customer's request for pricing.
// Only Status changes after creation.
type Quote struct {
	ID              shared.RecordID `json:"id"`
	QuoteNumber     string          `json:"quoteNumber"`
	CustomerID      shared.RecordID `json:"customerId"`
	CustomerName    string          `json:"customerName"`
	BillingAddress  partner.Address `json:"billingAddress"`
	ShippingAddress partner.Address `json:"shippingAddress"`
	OrganizationID  string          `json:"organizationId"`
	Date            time.Time       `json:"date"`
	Status          QuoteStatus     `json:"status"`
	Items           []QuoteLine     `json:"items"`
	SubTotal        decimal.Decimal `json:"subTotal"`
	Total           decimal.Decimal `json:"total"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// QuoteNumber formats the display reference for a quote id
func QuoteNumber(id int64) string {
	return fmt.Sprintf("QT-%06d", id)
}

// NewQuote creates a draft quote for the customer.
// Name, addresses and display name are copied from the customer at this point.
func NewQuote(id int64, customer *partner.Customer, lines []QuoteLineInput, organizationID string, now time.Time) (*Quote, error) {
	if customer == nil {
		return nil, shared.ErrIncompleteProfile
	}
	if len(lines) == 0 {
		return nil, shared.NewValidationError("At least one item is required")
	}

	items := make([]QuoteLine, 0, len(lines))
	total := decimal.Zero
	for i, in := range lines {
		line, err := newQuoteLine(i+1, in)
		if err != nil {
			return nil, err
		}
		total = total.Add(line.Amount)
		items = append(items, line)
	}

	return &Quote{
		ID:              shared.NewRecordID(id),
		QuoteNumber:     QuoteNumber(id),
		CustomerID:      customer.ID,
		CustomerName:    customer.QuoteName(),
		BillingAddress:  customer.BillingSnapshot(),
		ShippingAddress: customer.ShippingSnapshot(),
		OrganizationID:  organizationID,
		Date:            now,
		Status:          QuoteStatusDraft,
		Items:           items,
		SubTotal:        total,
		Total:           total,
		CreatedAt:       now,
	}, nil
}

func newQuoteLine(position int, in QuoteLineInput) (QuoteLine, error) {
	if in.Name == "" {
		return QuoteLine{}, shared.NewValidationError(fmt.Sprintf("Item %d: name is required", position))
	}
	quantity := decimal.NewFromInt(1)
	if in.Quantity != nil && !in.Quantity.IsZero() {
		quantity = *in.Quantity
	}
	if !quantity.IsPositive() {
		return QuoteLine{}, shared.NewValidationError(fmt.Sprintf("Item %d: quantity must be positive", position))
	}
	rate := decimal.Zero
	if in.Rate != nil {
		rate = *in.Rate
	}
	if rate.IsNegative() {
		return QuoteLine{}, shared.NewValidationError(fmt.Sprintf("Item %d: rate cannot be negative", position))
	}
	unit := in.Unit
	if unit == "" {
		unit = DefaultLineUnit
	}
	return QuoteLine{
		ID:          strconv.Itoa(position),
		Name:        in.Name,
		Description: in.Description,
		Quantity:    quantity,
		Rate:        rate,
		Amount:      quantity.Mul(rate),
		Unit:        unit,
	}, nil
}

// IsOwnedBy reports whether one of the given customers owns the quote
func (q *Quote) IsOwnedBy(customerIDs map[shared.RecordID]bool) bool {
	return customerIDs[q.CustomerID]
}

// TransitionTo moves the quote to target.
// Without strict checking any status may be rewritten, including a terminal one.
func (q *Quote) TransitionTo(target QuoteStatus, strict bool) error {
	if !target.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("Invalid quote status: %s", target))
	}
	if strict && !q.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot change quote from %s to %s", q.Status, target))
	}
	q.Status = target
	return nil
}

// Approve accepts the quote
func (q *Quote) Approve(strict bool) error {
	return q.TransitionTo(QuoteStatusApproved, strict)
}

// Scrap rejects the quote
func (q *Quote) Scrap(strict bool) error {
	return q.TransitionTo(QuoteStatusScrapped, strict)
}
