package portal

import (
	"context"

	"github.com/erp/portal/internal/domain/catalog"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ItemRequestService handles customer requests for new catalog items
type ItemRequestService struct {
	core
}

// NewItemRequestService creates a new ItemRequestService
func NewItemRequestService(opts Options) *ItemRequestService {
	return &ItemRequestService{core: newCore(opts)}
}

// CreateItemRequest files a pending request for the principal's primary customer
func (s *ItemRequestService) CreateItemRequest(ctx context.Context, p *identity.Principal, in catalog.ItemRequestInput) (*catalog.ItemRequest, error) {
	ctx, span := s.startSpan(ctx, "create_item_request")
	defer span.End()

	var request *catalog.ItemRequest
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers, shared.CollectionItemRequests}, func(ctx context.Context, tx Tx) error {
		customer, err := primaryCustomer(tx, p)
		if err != nil {
			return err
		}
		if customer == nil {
			return shared.ErrIncompleteProfile
		}
		requests, err := loadRecords[catalog.ItemRequest](tx, shared.CollectionItemRequests)
		if err != nil {
			return err
		}
		id, err := requests.allocate(ctx, tx)
		if err != nil {
			return err
		}
		if request, err = catalog.NewItemRequest(id, customer, p, in, s.now()); err != nil {
			return err
		}
		requests.add(request)
		return requests.flush(tx)
	})
	if err != nil {
		return nil, s.finish(span, "create_item_request", err)
	}

	s.metrics.RecordItemRequest(ctx, request.Status.String())
	s.logger.Info("Item request submitted",
		zap.String("request_id", request.ID.String()),
		zap.String("item_name", request.ItemName),
		zap.String("customer_id", request.CustomerID.String()))
	return request, s.finish(span, "create_item_request", nil)
}

// ListItemRequests returns all requests, optionally filtered by status.
// The filter is case-insensitive; "all" and "" disable it.
func (s *ItemRequestService) ListItemRequests(ctx context.Context, status string) ([]*catalog.ItemRequest, error) {
	ctx, span := s.startSpan(ctx, "list_item_requests", telemetry.WithAttribute("status", status))
	defer span.End()

	result := []*catalog.ItemRequest{}
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionItemRequests}, func(ctx context.Context, tx Tx) error {
		requests, err := loadRecords[catalog.ItemRequest](tx, shared.CollectionItemRequests)
		if err != nil {
			return err
		}
		result = requests.filter(func(r *catalog.ItemRequest) bool { return r.MatchesStatusFilter(status) })
		return nil
	})
	if err != nil {
		return nil, s.finish(span, "list_item_requests", err)
	}
	return result, s.finish(span, "list_item_requests", nil)
}

// ListMyItemRequests returns the requests filed by the principal's customers
// or under the principal's email. Without a profile only the email is used.
func (s *ItemRequestService) ListMyItemRequests(ctx context.Context, p *identity.Principal) ([]*catalog.ItemRequest, error) {
	ctx, span := s.startSpan(ctx, "list_my_item_requests")
	defer span.End()

	result := []*catalog.ItemRequest{}
	if p.IsAnonymous() {
		return result, nil
	}
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionCustomers, shared.CollectionItemRequests}, func(ctx context.Context, tx Tx) error {
		owned, err := ownedCustomerIDs(tx, p)
		if err != nil {
			return err
		}
		email := p.MatchEmail()
		requests, err := loadRecords[catalog.ItemRequest](tx, shared.CollectionItemRequests)
		if err != nil {
			return err
		}
		result = requests.filter(func(r *catalog.ItemRequest) bool { return r.BelongsTo(owned, email) })
		return nil
	})
	if err != nil {
		return nil, s.finish(span, "list_my_item_requests", err)
	}
	return result, s.finish(span, "list_my_item_requests", nil)
}

// UpdateItemRequestStatus triages a request. Approval creates the catalog
// item in the same unit of work as the status change, at most once per request.
func (s *ItemRequestService) UpdateItemRequestStatus(ctx context.Context, in UpdateItemRequestStatusInput) (*UpdateItemRequestStatusResult, error) {
	ctx, span := s.startSpan(ctx, "update_item_request_status",
		telemetry.WithAttribute("request_id", in.RequestID),
		telemetry.WithAttribute("status", in.Status.String()))
	defer span.End()

	result := &UpdateItemRequestStatusResult{}
	err := s.uow.Execute(ctx, []shared.Collection{shared.CollectionItemRequests, shared.CollectionItems}, func(ctx context.Context, tx Tx) error {
		requests, err := loadRecords[catalog.ItemRequest](tx, shared.CollectionItemRequests)
		if err != nil {
			return err
		}
		request := requests.find(func(r *catalog.ItemRequest) bool { return r.ID.String() == in.RequestID })
		if request == nil {
			return shared.NewNotFoundError("Request")
		}
		reason := request.RejectionReason
		if err := request.UpdateStatus(in.Status, in.RejectionReason, s.strict); err != nil {
			return err
		}
		if request.RejectionReason != reason || in.Status == catalog.ItemRequestStatusRejected {
			requests.touch(request, "status", "rejectionReason")
		} else {
			requests.touch(request, "status")
		}
		result.Request = request

		if in.Status == catalog.ItemRequestStatusApproved {
			items, err := loadRecords[catalog.Item](tx, shared.CollectionItems)
			if err != nil {
				return err
			}
			if catalog.FindBySourceRequest(items.all(), request.ID) == nil {
				id, err := items.allocate(ctx, tx)
				if err != nil {
					return err
				}
				result.Item = catalog.NewItemFromRequest(id, request, s.orgID, s.now())
				items.add(result.Item)
				if err := items.flush(tx); err != nil {
					return err
				}
			}
		}
		return requests.flush(tx)
	})
	if err != nil {
		return nil, s.finish(span, "update_item_request_status", err)
	}

	s.metrics.RecordItemRequest(ctx, in.Status.String())
	if result.Item != nil {
		s.metrics.RecordCatalogItemCreated(ctx)
	}
	s.logger.Info("Item request status changed",
		zap.String("request_id", in.RequestID),
		zap.String("status", in.Status.String()),
		zap.Bool("item_created", result.Item != nil))
	return result, s.finish(span, "update_item_request_status", nil)
}
