package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ItemRequestStatus represents the triage status of an item request
type ItemRequestStatus string

const (
	ItemRequestStatusPending  ItemRequestStatus = "Pending"
	ItemRequestStatusApproved ItemRequestStatus = "Approved"
	ItemRequestStatusRejected ItemRequestStatus = "Rejected"
)

// IsValid checks if the status is a valid ItemRequestStatus
func (s ItemRequestStatus) IsValid() bool {
	switch s {
	case ItemRequestStatusPending, ItemRequestStatusApproved, ItemRequestStatusRejected:
		return true
	}
	return false
}

// String returns the string representation of ItemRequestStatus
func (s ItemRequestStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s ItemRequestStatus) CanTransitionTo(target ItemRequestStatus) bool {
	if s != ItemRequestStatusPending {
		return false
	}
	return target == ItemRequestStatusApproved || target == ItemRequestStatusRejected
}

// ItemRequest is a customer's request to add an item to the catalog.
// Contact fields are a snapshot taken at submission.
type ItemRequest struct {
	ID              shared.RecordID   `json:"id"`
	CustomerID      shared.RecordID   `json:"customerId"`
	CustomerName    string            `json:"customerName"`
	CustomerEmail   string            `json:"customerEmail"`
	CompanyName     string            `json:"companyName"`
	ContactNumber   string            `json:"contactNumber"`
	ItemName        string            `json:"itemName"`
	Description     string            `json:"description"`
	Quantity        decimal.Decimal   `json:"quantity"`
	Status          ItemRequestStatus `json:"status"`
	RejectionReason string            `json:"rejectionReason"`
	CreatedAt       time.Time         `json:"createdAt"`
}

// ItemRequestInput is what a customer submits
type ItemRequestInput struct {
	ItemName    string
	Description string
	Quantity    *decimal.Decimal
}

// NewItemRequest creates a pending request on behalf of the customer
func NewItemRequest(id int64, customer *partner.Customer, p *identity.Principal, in ItemRequestInput, now time.Time) (*ItemRequest, error) {
	if customer == nil {
		return nil, shared.ErrIncompleteProfile
	}
	name := strings.TrimSpace(in.ItemName)
	if name == "" {
		return nil, shared.NewValidationError("Item name is required")
	}
	quantity := decimal.NewFromInt(1)
	if in.Quantity != nil && !in.Quantity.IsZero() {
		quantity = *in.Quantity
	}
	if !quantity.IsPositive() {
		return nil, shared.NewValidationError("Quantity must be positive")
	}

	email := customer.Email
	if p != nil && p.Email != "" {
		email = p.Email
	}

	return &ItemRequest{
		ID:            shared.NewRecordID(id),
		CustomerID:    customer.ID,
		CustomerName:  customer.Name,
		CustomerEmail: email,
		CompanyName:   customer.CompanyName,
		ContactNumber: customer.Phone,
		ItemName:      name,
		Description:   in.Description,
		Quantity:      quantity,
		Status:        ItemRequestStatusPending,
		CreatedAt:     now,
	}, nil
}

// BelongsTo reports whether the request was filed by one of the customers,
// or under the given email when one is supplied.
func (r *ItemRequest) BelongsTo(customerIDs map[shared.RecordID]bool, email string) bool {
	if customerIDs[r.CustomerID] {
		return true
	}
	return email != "" && strings.EqualFold(strings.TrimSpace(r.CustomerEmail), email)
}

// MatchesStatusFilter applies a case-insensitive status filter; "all" or empty matches everything
func (r *ItemRequest) MatchesStatusFilter(filter string) bool {
	if filter == "" || strings.EqualFold(filter, "all") {
		return true
	}
	return strings.EqualFold(string(r.Status), filter)
}

// UpdateStatus sets the triage status.
// A rejection stores the reason verbatim, even when empty. Otherwise a
// non-empty reason is kept as a note. In strict mode only Pending requests
// may move, and only to Approved or Rejected.
func (r *ItemRequest) UpdateStatus(target ItemRequestStatus, reason string, strict bool) error {
	if target == "" {
		return shared.NewValidationError("Status is required")
	}
	if strict {
		if !target.IsValid() || target == ItemRequestStatusPending {
			return shared.NewValidationError(fmt.Sprintf("Invalid item request status: %s", target))
		}
		if !r.Status.CanTransitionTo(target) {
			return shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Cannot change item request from %s to %s", r.Status, target))
		}
	}
	r.Status = target
	if target == ItemRequestStatusRejected || reason != "" {
		r.RejectionReason = reason
	}
	return nil
}
