package portal

import (
	"context"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/shared"
)

// IdentityResolver maps a principal to the customer profiles it owns
type IdentityResolver struct {
	core
}

// NewIdentityResolver creates a new IdentityResolver
func NewIdentityResolver(opts Options) *IdentityResolver {
	return &IdentityResolver{core: newCore(opts)}
}

// ResolveCustomers returns every customer matching the principal.
// An absent principal or a principal without a profile yields an empty set.
func (r *IdentityResolver) ResolveCustomers(ctx context.Context, p *identity.Principal) ([]*partner.Customer, error) {
	ctx, span := r.startSpan(ctx, "resolve_customers")
	defer span.End()

	matches := []*partner.Customer{}
	if p.IsAnonymous() {
		return matches, nil
	}
	err := r.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers}, func(ctx context.Context, tx Tx) error {
		resolved, err := resolveCustomers(tx, p)
		matches = append(matches, resolved...)
		return err
	})
	if err != nil {
		return nil, r.finish(span, "resolve_customers", err)
	}
	return matches, r.finish(span, "resolve_customers", nil)
}

// ResolvePrimaryCustomer returns the first matching customer in collection
// order, or nil when the principal has no profile.
func (r *IdentityResolver) ResolvePrimaryCustomer(ctx context.Context, p *identity.Principal) (*partner.Customer, error) {
	matches, err := r.ResolveCustomers(ctx, p)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

// resolveCustomers resolves the principal against the customers collection
// locked by tx. Services that act on a customer's documents resolve inside
// their own unit of work so ownership cannot change underneath them.
func resolveCustomers(tx Tx, p *identity.Principal) ([]*partner.Customer, error) {
	customers, err := loadRecords[partner.Customer](tx, shared.CollectionCustomers)
	if err != nil {
		return nil, err
	}
	return partner.ResolveCustomers(customers.all(), p), nil
}

// primaryCustomer is resolveCustomers narrowed to the first match
func primaryCustomer(tx Tx, p *identity.Principal) (*partner.Customer, error) {
	matches, err := resolveCustomers(tx, p)
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

func ownedCustomerIDs(tx Tx, p *identity.Principal) (map[shared.RecordID]bool, error) {
	matches, err := resolveCustomers(tx, p)
	if err != nil {
		return nil, err
	}
	return partner.CustomerIDs(matches), nil
}
