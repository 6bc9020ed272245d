package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/portal/internal/domain/shared"
)

// Allocator hands out document ids.
// Ids for a collection are unique across concurrent callers and increase
// monotonically, since each allocation holds the collection lock while it
// advances and persists the counter.
type Allocator struct {
	core
}

// NewAllocator creates a new Allocator
func NewAllocator(opts Options) *Allocator {
	return &Allocator{core: newCore(opts)}
}

// NextID allocates the next id for the given document collection
func (a *Allocator) NextID(ctx context.Context, c shared.Collection) (int64, error) {
	if !c.IsValid() {
		return 0, shared.NewValidationError(fmt.Sprintf("Unknown document type: %s", c))
	}
	ctx, span := a.startSpan(ctx, "next_id")
	defer span.End()

	var id int64
	err := a.uow.Execute(ctx, []shared.Collection{c}, func(ctx context.Context, tx Tx) error {
		recs, err := loadRecords[json.RawMessage](tx, c)
		if err != nil {
			return err
		}
		if id, err = recs.allocate(ctx, tx); err != nil {
			return err
		}
		return recs.flush(tx)
	})
	if err != nil {
		return 0, a.finish(span, "next_id", err)
	}
	return id, a.finish(span, "next_id", nil)
}
