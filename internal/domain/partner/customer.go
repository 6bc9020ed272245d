package partner

import (
	"strings"
	"time"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
)

// Defaults applied when a profile submission leaves fields blank
const (
	DefaultCustomerName   = "Unknown"
	DefaultCustomerType   = "business"
	DefaultBillingCountry = "India"
)

// Address is a postal address as stored on customers and quotes
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Pincode string `json:"pincode"`
}

// Clone returns a copy of the address, or nil
func (a *Address) Clone() *Address {
	if a == nil {
		return nil
	}
	c := *a
	return &c
}

// Customer is the business-facing profile of a portal user.
// Records are matched to a principal by linked user id or by email.
type Customer struct {
	ID              shared.RecordID `json:"id"`
	UserID          shared.RecordID `json:"userId,omitempty"`
	Name            string          `json:"name"`
	DisplayName     string          `json:"displayName,omitempty"`
	CompanyName     string          `json:"companyName"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	Address         string          `json:"address"`
	BillingAddress  *Address        `json:"billingAddress,omitempty"`
	ShippingAddress *Address        `json:"shippingAddress,omitempty"`
	GSTIN           string          `json:"gstin"`
	PlaceOfSupply   string          `json:"placeOfSupply"`
	CustomerType    string          `json:"customerType"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// MatchesPrincipal reports whether the customer belongs to the principal.
// A record matches on its linked user id, or on its own id when it predates
// user linking, or on a case-insensitive email match.
func (c *Customer) MatchesPrincipal(p *identity.Principal) bool {
	if c == nil || p.IsAnonymous() {
		return false
	}
	if p.ID != "" {
		if !c.UserID.IsEmpty() {
			if c.UserID.String() == p.ID {
				return true
			}
		} else if c.ID.String() == p.ID {
			return true
		}
	}
	email := p.MatchEmail()
	return email != "" && strings.ToLower(strings.TrimSpace(c.Email)) == email
}

// ResolveCustomers returns every customer matching the principal, in collection order
func ResolveCustomers(customers []*Customer, p *identity.Principal) []*Customer {
	var matches []*Customer
	for _, c := range customers {
		if c.MatchesPrincipal(p) {
			matches = append(matches, c)
		}
	}
	return matches
}

// PrimaryCustomer returns the first matching customer, or nil.
// With duplicate profiles the earliest record wins.
func PrimaryCustomer(customers []*Customer, p *identity.Principal) *Customer {
	for _, c := range customers {
		if c.MatchesPrincipal(p) {
			return c
		}
	}
	return nil
}

// CustomerIDs collects the ids of the given customers
func CustomerIDs(customers []*Customer) map[shared.RecordID]bool {
	ids := make(map[shared.RecordID]bool, len(customers))
	for _, c := range customers {
		ids[c.ID] = true
	}
	return ids
}

// ProfileInput carries the fields a customer submits for their profile
type ProfileInput struct {
	Name            string
	Phone           string
	Address         string
	CompanyName     string
	BillingAddress  *Address
	ShippingAddress *Address
	GSTIN           string
	PlaceOfSupply   string
	CustomerType    string
}

// NewCustomer creates a profile for the principal from a first submission
func NewCustomer(id shared.RecordID, p *identity.Principal, in ProfileInput, now time.Time) *Customer {
	c := &Customer{ID: id, CreatedAt: now}
	c.ApplyProfile(p, in, now)
	return c
}

// ApplyProfile overwrites the profile fields from a submission, filling defaults.
// Fields the submission does not cover are left untouched.
func (c *Customer) ApplyProfile(p *identity.Principal, in ProfileInput, now time.Time) {
	c.Name = firstNonEmpty(in.Name, principalName(p), DefaultCustomerName)
	if p != nil {
		c.Email = p.Email
		c.UserID = shared.RecordID(p.ID)
	}
	c.Phone = in.Phone
	c.CompanyName = in.CompanyName
	c.GSTIN = in.GSTIN
	c.PlaceOfSupply = in.PlaceOfSupply
	c.CustomerType = firstNonEmpty(in.CustomerType, DefaultCustomerType)

	c.Address = in.Address
	if c.Address == "" && in.BillingAddress != nil && in.BillingAddress.Street != "" {
		c.Address = in.BillingAddress.Street
		if in.BillingAddress.City != "" {
			c.Address += ", " + in.BillingAddress.City
		}
	}

	billing := in.BillingAddress.Clone()
	if billing == nil {
		billing = &Address{Street: in.Address, Country: DefaultBillingCountry}
	}
	shipping := in.ShippingAddress.Clone()
	if shipping == nil {
		shipping = billing.Clone()
	}
	c.BillingAddress = billing
	c.ShippingAddress = shipping
	c.UpdatedAt = now
}

// QuoteName is the name snapshotted onto quotes
func (c *Customer) QuoteName() string {
	return firstNonEmpty(c.DisplayName, c.Name, DefaultCustomerName)
}

// BillingSnapshot returns a copy of the billing address for a new document.
// Legacy profiles without a structured address fall back to the free-text one.
func (c *Customer) BillingSnapshot() Address {
	if c.BillingAddress != nil {
		return *c.BillingAddress
	}
	return Address{Street: c.Address}
}

// ShippingSnapshot returns a copy of the shipping address, falling back to billing
func (c *Customer) ShippingSnapshot() Address {
	if c.ShippingAddress != nil {
		return *c.ShippingAddress
	}
	return c.BillingSnapshot()
}

func principalName(p *identity.Principal) string {
	if p == nil {
		return ""
	}
	return p.Name
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
