package portal_test

import (
	"context"
	"sync"
	"testing"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_NextID(t *testing.T) {
	f := newFixture(t)
	allocator := portal.NewAllocator(f.opts)
	ctx := context.Background()

	tests := []struct {
		collection shared.Collection
		want       []int64
	}{
		{shared.CollectionQuotes, []int64{1, 2, 3}},
		{shared.CollectionPaymentsReceived, []int64{1001, 1002}},
		{shared.CollectionCustomers, []int64{3}},
	}

	for _, tt := range tests {
		t.Run(tt.collection.String(), func(t *testing.T) {
			for _, want := range tt.want {
				id, err := allocator.NextID(ctx, tt.collection)
				require.NoError(t, err)
				assert.Equal(t, want, id)
			}
		})
	}

	customers, next := f.stored(t, shared.CollectionCustomers)
	assert.Len(t, customers, 2, "allocation leaves records untouched")
	assert.Equal(t, int64(4), next)
}

func TestAllocator_UnknownCollection(t *testing.T) {
	f := newFixture(t)
	allocator := portal.NewAllocator(f.opts)

	_, err := allocator.NextID(context.Background(), shared.Collection("orders"))
	assert.ErrorIs(t, err, shared.ErrValidation)
}

func TestAllocator_ConcurrentCallersGetDistinctIDs(t *testing.T) {
	f := newFixture(t)
	allocator := portal.NewAllocator(f.opts)
	ctx := context.Background()

	const callers = 64
	ids := make(chan int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := allocator.NextID(ctx, shared.CollectionInvoices)
			assert.NoError(t, err)
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, callers)
	for id := range ids {
		assert.False(t, seen[id], "id %d handed out twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, callers)
	for id := int64(1); id <= callers; id++ {
		assert.True(t, seen[id], "id %d missing", id)
	}

	_, next := f.stored(t, shared.CollectionInvoices)
	assert.Equal(t, int64(callers+1), next)
}

func TestAllocator_StorageFailureKeepsCounter(t *testing.T) {
	f := newFixture(t)
	allocator := portal.NewAllocator(f.opts)
	ctx := context.Background()

	f.store.failWrites.Store(true)
	_, err := allocator.NextID(ctx, shared.CollectionQuotes)
	require.ErrorIs(t, err, shared.ErrStorageFailure)

	f.store.failWrites.Store(false)
	id, err := allocator.NextID(ctx, shared.CollectionQuotes)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}
