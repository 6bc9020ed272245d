package trade

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// PaymentStatus represents the verification status of a received payment
type PaymentStatus string

const (
	PaymentStatusPendingVerification PaymentStatus = "Pending Verification"
	PaymentStatusVerified            PaymentStatus = "Verified"
	PaymentStatusRejected            PaymentStatus = "Rejected"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPendingVerification, PaymentStatusVerified, PaymentStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// Fixed attributes of payments recorded through the portal
const (
	PaymentModeOnline      = "Online"
	PaymentDepositTo       = "Undeposited Funds"
	PaymentTypeCustomer    = "Customer Payment"
	PaymentTaxNone         = "None"
	PaymentNumberPrefix    = "PAY-"
	PaymentReferencePrefix = "INV-PAY-"
	DefaultCurrencySymbol  = "₹"
	DefaultAmountLocale    = "en-IN"
)

// AppliedInvoice is the share of a payment applied to one invoice
type AppliedInvoice struct {
	ID            shared.RecordID `json:"id"`
	InvoiceNumber string          `json:"invoiceNumber"`
	AmountApplied decimal.Decimal `json:"amountApplied"`
}

// PaymentReceived is a customer payment awaiting or past verification
type PaymentReceived struct {
	ID                  shared.RecordID   `json:"id"`
	PaymentNumber       string            `json:"paymentNumber"`
	Date                time.Time         `json:"date"`
	ReferenceNumber     string            `json:"referenceNumber"`
	CustomerID          shared.RecordID   `json:"customerId"`
	CustomerName        string            `json:"customerName"`
	CustomerEmail       string            `json:"customerEmail"`
	Invoices            []AppliedInvoice  `json:"invoices"`
	Mode                string            `json:"mode"`
	DepositTo           string            `json:"depositTo"`
	Amount              decimal.Decimal   `json:"amount"`
	UnusedAmount        decimal.Decimal   `json:"unusedAmount"`
	BankCharges         decimal.Decimal   `json:"bankCharges"`
	Tax                 string            `json:"tax"`
	TaxAmount           decimal.Decimal   `json:"taxAmount"`
	Notes               string            `json:"notes"`
	Attachments         []json.RawMessage `json:"attachments"`
	SendThankYou        bool              `json:"sendThankYou"`
	Status              PaymentStatus     `json:"status"`
	PaymentType         string            `json:"paymentType"`
	PlaceOfSupply       string            `json:"placeOfSupply"`
	DescriptionOfSupply string            `json:"descriptionOfSupply"`
	AmountInWords       string            `json:"amountInWords"`
	JournalEntries      []json.RawMessage `json:"journalEntries"`
	IdempotencyKey      string            `json:"idempotencyKey,omitempty"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// NewPendingPayment records a payment of amount against the invoice.
// The customer snapshot is taken from the invoice, not from the caller.
func NewPendingPayment(id int64, inv *Invoice, amount decimal.Decimal, now time.Time) (*PaymentReceived, error) {
	if inv == nil {
		return nil, shared.NewNotFoundError("Invoice")
	}
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("Invalid payment amount")
	}
	return &PaymentReceived{
		ID:              shared.NewRecordID(id),
		PaymentNumber:   fmt.Sprintf("%s%d", PaymentNumberPrefix, id),
		Date:            now,
		ReferenceNumber: PaymentReferencePrefix + inv.InvoiceNumber,
		CustomerID:      inv.CustomerID,
		CustomerName:    inv.CustomerName,
		CustomerEmail:   inv.CustomerEmail,
		Invoices: []AppliedInvoice{{
			ID:            inv.ID,
			InvoiceNumber: inv.InvoiceNumber,
			AmountApplied: amount,
		}},
		Mode:           PaymentModeOnline,
		DepositTo:      PaymentDepositTo,
		Amount:         amount,
		UnusedAmount:   decimal.Zero,
		BankCharges:    decimal.Zero,
		Tax:            PaymentTaxNone,
		TaxAmount:      decimal.Zero,
		Notes:          "Online payment recorded by customer for invoice " + inv.InvoiceNumber,
		Attachments:    []json.RawMessage{},
		SendThankYou:   true,
		Status:         PaymentStatusPendingVerification,
		PaymentType:    PaymentTypeCustomer,
		PlaceOfSupply:  inv.PlaceOfSupply,
		JournalEntries: []json.RawMessage{},
		CreatedAt:      now,
	}, nil
}

// AppliesTo reports whether the payment was recorded against the invoice
func (p *PaymentReceived) AppliesTo(invoiceID shared.RecordID) bool {
	for _, applied := range p.Invoices {
		if applied.ID == invoiceID {
			return true
		}
	}
	return false
}

// AmountFormatter renders amounts for audit descriptions
type AmountFormatter struct {
	symbol  string
	printer *message.Printer
}

// NewAmountFormatter creates a formatter for the given currency symbol and locale.
// An unparseable locale falls back to en-IN.
func NewAmountFormatter(symbol, locale string) *AmountFormatter {
	if symbol == "" {
		symbol = DefaultCurrencySymbol
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Make(DefaultAmountLocale)
	}
	return &AmountFormatter{symbol: symbol, printer: message.NewPrinter(tag)}
}

// Format renders the amount with locale digit grouping and at most two decimals
func (f *AmountFormatter) Format(amount decimal.Decimal) string {
	return f.symbol + f.printer.Sprint(number.Decimal(amount.InexactFloat64(), number.MaxFractionDigits(2)))
}

// PaymentRecordedDescription is the audit text for a newly recorded payment
func (f *AmountFormatter) PaymentRecordedDescription(amount decimal.Decimal) string {
	return fmt.Sprintf("Payment of %s recorded and awaiting verification", f.Format(amount))
}
