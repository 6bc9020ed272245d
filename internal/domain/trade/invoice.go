package trade

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Invoice activity actions recorded by the portal
const (
	ActivityPaymentRecorded = "payment_recorded"
)

// ActivityEntry is one line of an invoice's audit trail
type ActivityEntry struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	User        string    `json:"user"`
}

// Invoice is the portal's view of a billing invoice.
// Invoices are issued elsewhere; the portal only appends to ActivityLogs,
// whose entries are kept exactly as stored.
// Optional fields use pointers so that rewriting the record leaves
// absent fields absent.
type Invoice struct {
	ID            shared.RecordID   `json:"id"`
	InvoiceNumber string            `json:"invoiceNumber"`
	CustomerID    shared.RecordID   `json:"customerId"`
	CustomerName  string            `json:"customerName,omitempty"`
	CustomerEmail string            `json:"customerEmail,omitempty"`
	Status        string            `json:"status,omitempty"`
	Total         *decimal.Decimal  `json:"total,omitempty"`
	BalanceDue    *decimal.Decimal  `json:"balanceDue,omitempty"`
	PlaceOfSupply string            `json:"placeOfSupply,omitempty"`
	ActivityLogs  []json.RawMessage `json:"activityLogs"`
}

// IsOwnedBy reports whether one of the given customers owns the invoice
func (inv *Invoice) IsOwnedBy(customerIDs map[shared.RecordID]bool) bool {
	return customerIDs[inv.CustomerID]
}

// AppendActivity adds an entry to the end of the audit trail.
// Entry ids count up from 1 within each invoice.
func (inv *Invoice) AppendActivity(action, description, actor string, now time.Time) (ActivityEntry, error) {
	entry := ActivityEntry{
		ID:          strconv.Itoa(len(inv.ActivityLogs) + 1),
		Timestamp:   now,
		Action:      action,
		Description: description,
		User:        actor,
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return ActivityEntry{}, err
	}
	inv.ActivityLogs = append(inv.ActivityLogs, raw)
	return entry, nil
}

// ResolvePaymentAmount picks the amount a payment is recorded for.
// A positive requested amount wins; otherwise the outstanding balance when
// it is non-zero, otherwise the invoice total. Whatever is picked must be
// positive, so a credit balance rejects the payment.
func ResolvePaymentAmount(requested *decimal.Decimal, inv *Invoice) (decimal.Decimal, error) {
	if requested != nil && requested.IsPositive() {
		return *requested, nil
	}
	for _, candidate := range []*decimal.Decimal{inv.BalanceDue, inv.Total} {
		if candidate == nil || candidate.IsZero() {
			continue
		}
		if !candidate.IsPositive() {
			break
		}
		return *candidate, nil
	}
	return decimal.Zero, shared.NewValidationError("Invalid payment amount")
}
