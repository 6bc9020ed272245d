package portal

import (
	"context"

	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/partner"
	"github.com/erp/portal/internal/domain/shared"
	"go.uber.org/zap"
)

// ProfileService reads and maintains a principal's customer profile
type ProfileService struct {
	core
	resolver *IdentityResolver
}

// NewProfileService creates a new ProfileService
func NewProfileService(opts Options) *ProfileService {
	return &ProfileService{core: newCore(opts), resolver: NewIdentityResolver(opts)}
}

// GetProfile returns the principal's primary customer profile
func (s *ProfileService) GetProfile(ctx context.Context, p *identity.Principal) (*partner.Customer, error) {
	ctx, span := s.startSpan(ctx, "get_profile")
	defer span.End()

	customer, err := s.resolver.ResolvePrimaryCustomer(ctx, p)
	if err == nil && customer == nil {
		err = shared.NewNotFoundError("Profile")
	}
	if err != nil {
		return nil, s.finish(span, "get_profile", err)
	}
	return customer, s.finish(span, "get_profile", nil)
}

// UpsertProfile creates the principal's profile on first submission and
// updates the primary match in place afterwards.
func (s *ProfileService) UpsertProfile(ctx context.Context, p *identity.Principal, in partner.ProfileInput) (*partner.Customer, error) {
	if p.IsAnonymous() {
		return nil, shared.ErrUnauthorized
	}
	ctx, span := s.startSpan(ctx, "upsert_profile")
	defer span.End()

	var (
		customer *partner.Customer
		created  bool
	)
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers}, func(ctx context.Context, tx Tx) error {
		customers, err := loadRecords[partner.Customer](tx, shared.CollectionCustomers)
		if err != nil {
			return err
		}
		now := s.now()
		if customer = partner.PrimaryCustomer(customers.all(), p); customer != nil {
			customer.ApplyProfile(p, in, now)
			customers.touch(customer)
			return customers.flush(tx)
		}
		id, err := customers.allocate(ctx, tx)
		if err != nil {
			return err
		}
		customer = partner.NewCustomer(shared.NewRecordID(id), p, in, now)
		customers.add(customer)
		created = true
		return customers.flush(tx)
	})
	if err != nil {
		return nil, s.finish(span, "upsert_profile", err)
	}

	s.logger.Info("Customer profile saved",
		zap.String("customer_id", customer.ID.String()),
		zap.String("user_id", p.ID),
		zap.Bool("created", created))
	return customer, s.finish(span, "upsert_profile", nil)
}
