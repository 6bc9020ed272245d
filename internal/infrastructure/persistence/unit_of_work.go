package persistence

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/shared"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

var errNotLocked = errors.New("collection is not locked by this unit of work")

// LockingUnitOfWork implements portal.UnitOfWork over a RecordStore.
//
// Collections are guarded by one in-process lock each, always taken in name
// order. Stores implementing shared.TransactionalRecordStore commit every
// staged collection in one transaction. Other stores are written collection by
// collection; when a write fails the collections already written are restored
// to the snapshots read at the start.
type LockingUnitOfWork struct {
	store  shared.RecordStore
	seq    shared.Sequence
	logger *zap.Logger

	mu    sync.Mutex
	locks map[shared.Collection]*semaphore.Weighted
}

// NewUnitOfWork creates a LockingUnitOfWork. seq may be nil.
func NewUnitOfWork(store shared.RecordStore, seq shared.Sequence, logger *zap.Logger) *LockingUnitOfWork {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LockingUnitOfWork{
		store:  store,
		seq:    seq,
		logger: logger,
		locks:  make(map[shared.Collection]*semaphore.Weighted),
	}
}

// Execute implements portal.UnitOfWork
func (u *LockingUnitOfWork) Execute(ctx context.Context, collections []shared.Collection, fn func(ctx context.Context, tx portal.Tx) error) error {
	ordered, err := orderCollections(collections)
	if err != nil {
		return err
	}

	release, err := u.acquire(ctx, ordered)
	if err != nil {
		return err
	}
	defer release()

	if ts, ok := u.store.(shared.TransactionalRecordStore); ok {
		return ts.InTransaction(ctx, ordered, func(ctx context.Context, store shared.RecordStore) error {
			tx, err := u.begin(ctx, store, ordered)
			if err != nil {
				return err
			}
			if err := fn(ctx, tx); err != nil {
				return err
			}
			for _, c := range tx.order {
				if err := store.Write(ctx, c, tx.staged[c]); err != nil {
					return asStorageError("write", c, err)
				}
			}
			return nil
		})
	}

	tx, err := u.begin(ctx, u.store, ordered)
	if err != nil {
		return err
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return u.commitWithCompensation(ctx, tx)
}

func (u *LockingUnitOfWork) begin(ctx context.Context, store shared.RecordStore, collections []shared.Collection) (*unitTx, error) {
	tx := &unitTx{
		seq:    u.seq,
		loaded: make(map[shared.Collection]shared.Snapshot, len(collections)),
		staged: make(map[shared.Collection]shared.Snapshot, len(collections)),
	}
	for _, c := range collections {
		snap, err := store.Read(ctx, c)
		if err != nil {
			return nil, asStorageError("read", c, err)
		}
		tx.loaded[c] = snap.Normalize(c)
	}
	return tx, nil
}

func (u *LockingUnitOfWork) commitWithCompensation(ctx context.Context, tx *unitTx) error {
	for i, c := range tx.order {
		err := u.store.Write(ctx, c, tx.staged[c])
		if err == nil {
			continue
		}
		for j := i - 1; j >= 0; j-- {
			prior := tx.order[j]
			if rerr := u.store.Write(context.WithoutCancel(ctx), prior, tx.loaded[prior]); rerr != nil {
				u.logger.Error("Failed to restore collection after partial write",
					zap.String("collection", prior.String()),
					zap.Error(rerr))
			}
		}
		return asStorageError("write", c, err)
	}
	return nil
}

func (u *LockingUnitOfWork) acquire(ctx context.Context, collections []shared.Collection) (func(), error) {
	held := make([]*semaphore.Weighted, 0, len(collections))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}
	for _, c := range collections {
		lock := u.lockFor(c)
		if err := lock.Acquire(ctx, 1); err != nil {
			release()
			return nil, shared.NewStorageError("lock", c, err)
		}
		held = append(held, lock)
	}
	return release, nil
}

func (u *LockingUnitOfWork) lockFor(c shared.Collection) *semaphore.Weighted {
	u.mu.Lock()
	defer u.mu.Unlock()
	lock, ok := u.locks[c]
	if !ok {
		lock = semaphore.NewWeighted(1)
		u.locks[c] = lock
	}
	return lock
}

// orderCollections validates, de-duplicates and sorts the lock set
func orderCollections(collections []shared.Collection) ([]shared.Collection, error) {
	seen := make(map[shared.Collection]bool, len(collections))
	ordered := make([]shared.Collection, 0, len(collections))
	for _, c := range collections {
		if !c.IsValid() {
			return nil, shared.NewValidationError(fmt.Sprintf("Unknown collection: %s", c))
		}
		if !seen[c] {
			seen[c] = true
			ordered = append(ordered, c)
		}
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i] < ordered[j] })
	return ordered, nil
}

func asStorageError(op string, c shared.Collection, err error) error {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return shared.NewStorageError(op, c, err)
}

// unitTx is the portal.Tx handed to a unit of work
type unitTx struct {
	seq    shared.Sequence
	loaded map[shared.Collection]shared.Snapshot
	staged map[shared.Collection]shared.Snapshot
	order  []shared.Collection
}

func (t *unitTx) Read(c shared.Collection) (shared.Snapshot, error) {
	if snap, ok := t.staged[c]; ok {
		return snap.Clone(), nil
	}
	snap, ok := t.loaded[c]
	if !ok {
		return shared.Snapshot{}, shared.NewStorageError("read", c, errNotLocked)
	}
	return snap.Clone(), nil
}

func (t *unitTx) Write(c shared.Collection, snap shared.Snapshot) error {
	if _, ok := t.loaded[c]; !ok {
		return shared.NewStorageError("write", c, errNotLocked)
	}
	if _, ok := t.staged[c]; !ok {
		t.order = append(t.order, c)
	}
	t.staged[c] = snap.Normalize(c).Clone()
	return nil
}

func (t *unitTx) Sequence() shared.Sequence {
	return t.seq
}

var _ portal.UnitOfWork = (*LockingUnitOfWork)(nil)
