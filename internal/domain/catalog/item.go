package catalog

import (
	"time"

	"github.com/erp/portal/internal/domain/shared"
)

// Defaults for catalog items created from approved requests
const (
	DefaultItemType      = "goods"
	DefaultUsageUnit     = "pcs"
	DefaultItemRate      = "0"
	DefaultTaxPreference = "taxable"
	DefaultIntraStateTax = "GST18"
	DefaultInterStateTax = "IGST18"
)

// Item is a catalog entry.
// Rates are kept as strings to match how the catalog stores them.
type Item struct {
	ID              shared.RecordID `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Type            string          `json:"type"`
	UsageUnit       string          `json:"usageUnit"`
	Rate            string          `json:"rate"`
	PurchaseRate    string          `json:"purchaseRate"`
	TaxPreference   string          `json:"taxPreference"`
	IntraStateTax   string          `json:"intraStateTax"`
	InterStateTax   string          `json:"interStateTax"`
	IsActive        bool            `json:"isActive"`
	OrganizationID  string          `json:"organizationId"`
	SourceRequestID shared.RecordID `json:"sourceRequestId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewItemFromRequest creates the catalog entry for an approved request
func NewItemFromRequest(id int64, req *ItemRequest, organizationID string, now time.Time) *Item {
	return &Item{
		ID:              shared.NewRecordID(id),
		Name:            req.ItemName,
		Description:     req.Description,
		Type:            DefaultItemType,
		UsageUnit:       DefaultUsageUnit,
		Rate:            DefaultItemRate,
		PurchaseRate:    DefaultItemRate,
		TaxPreference:   DefaultTaxPreference,
		IntraStateTax:   DefaultIntraStateTax,
		InterStateTax:   DefaultInterStateTax,
		IsActive:        true,
		OrganizationID:  organizationID,
		SourceRequestID: req.ID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// FindBySourceRequest returns the item created for the request, or nil
func FindBySourceRequest(items []*Item, requestID shared.RecordID) *Item {
	if requestID.IsEmpty() {
		return nil
	}
	for _, it := range items {
		if it.SourceRequestID == requestID {
			return it
		}
	}
	return nil
}
