package dto

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/erp/portal/internal/domain/catalog"
	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// FlexDecimal accepts a JSON number or a numeric string.
// Anything else (null, booleans, "₹1,000", "") decodes to no value rather than an error,
// so callers can fall back to their defaults.
type FlexDecimal struct {
	Value *decimal.Decimal
}

// UnmarshalJSON implements json.Unmarshaler
func (f *FlexDecimal) UnmarshalJSON(data []byte) error {
	f.Value = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}
	if d, err := decimal.NewFromString(raw); err == nil {
		f.Value = &d
	}
	return nil
}

// MarshalJSON implements json.Marshaler
func (f FlexDecimal) MarshalJSON() ([]byte, error) {
	if f.Value == nil {
		return []byte("null"), nil
	}
	return []byte(f.Value.String()), nil
}

// Decimal returns the parsed value, nil when absent or unparseable
func (f FlexDecimal) Decimal() *decimal.Decimal {
	return f.Value
}

// ProfileRequest is the body of POST /profile
type ProfileRequest struct {
	Name            string           `json:"name" binding:"max=200"`
	Phone           string           `json:"phone" binding:"max=32"`
	Address         string           `json:"address" binding:"max=500"`
	CompanyName     string           `json:"companyName" binding:"max=200"`
	BillingAddress  *partner.Address `json:"billingAddress"`
	ShippingAddress *partner.Address `json:"shippingAddress"`
	GSTIN           string           `json:"gstin" binding:"max=15"`
	PlaceOfSupply   string           `json:"placeOfSupply"`
	CustomerType    string           `json:"customerType"`
}

// ToInput converts the request into a profile input
func (r ProfileRequest) ToInput() partner.ProfileInput {
	return partner.ProfileInput{
		Name:            r.Name,
		Phone:           r.Phone,
		Address:         r.Address,
		CompanyName:     r.CompanyName,
		BillingAddress:  r.BillingAddress,
		ShippingAddress: r.ShippingAddress,
		GSTIN:           r.GSTIN,
		PlaceOfSupply:   r.PlaceOfSupply,
		CustomerType:    r.CustomerType,
	}
}

// QuoteLineRequest is one requested line of a quote
type QuoteLineRequest struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Quantity    FlexDecimal `json:"quantity"`
	Rate        FlexDecimal `json:"rate"`
	Unit        string      `json:"unit" binding:"max=20"`
}

// CreateQuoteRequest is the body of POST /request
type CreateQuoteRequest struct {
	Items []QuoteLineRequest `json:"items" binding:"dive"`
}

// ToLines converts the request into quote line inputs
func (r CreateQuoteRequest) ToLines() []trade.QuoteLineInput {
	lines := make([]trade.QuoteLineInput, 0, len(r.Items))
	for _, item := range r.Items {
		lines = append(lines, trade.QuoteLineInput{
			Name:        item.Name,
			Description: item.Description,
			Quantity:    item.Quantity.Decimal(),
			Rate:        item.Rate.Decimal(),
			Unit:        item.Unit,
		})
	}
	return lines
}

// PayInvoiceRequest is the body of POST /invoices/:id/pay.
// A missing or unusable amount pays the balance due.
type PayInvoiceRequest struct {
	Amount FlexDecimal `json:"amount"`
}

// CreateItemRequestRequest is the body of POST /item-requests
type CreateItemRequestRequest struct {
	ItemName    string      `json:"itemName" binding:"required,max=200"`
	Description string      `json:"description" binding:"max=2000"`
	Quantity    FlexDecimal `json:"quantity"`
}

// ToInput converts the request into an item request input
func (r CreateItemRequestRequest) ToInput() catalog.ItemRequestInput {
	return catalog.ItemRequestInput{
		ItemName:    r.ItemName,
		Description: r.Description,
		Quantity:    r.Quantity.Decimal(),
	}
}

// UpdateItemRequestStatusRequest is the body of PATCH /item-requests/:id/status
type UpdateItemRequestStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	RejectionReason string `json:"rejectionReason" binding:"max=1000"`
}

// ItemRequestListQuery filters GET /item-requests
type ItemRequestListQuery struct {
	Status string `form:"status"`
}
