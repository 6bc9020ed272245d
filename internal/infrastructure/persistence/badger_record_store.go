package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/erp/portal/internal/domain/shared"
	"go.uber.org/zap"
)

const badgerKeyPrefix = "portal/collections/"

// BadgerRecordStore keeps each collection under one key of an embedded badger database.
// Multi-collection writes commit in a single badger transaction.
type BadgerRecordStore struct {
	db *badger.DB
}

// OpenBadgerRecordStore opens the store at dir; an empty dir runs in memory
func OpenBadgerRecordStore(dir string, logger *zap.Logger) (*BadgerRecordStore, error) {
	opts := badger.DefaultOptions(dir)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = opts.WithLogger(badgerLogger{logger.Named("badger").Sugar()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}
	return &BadgerRecordStore{db: db}, nil
}

// Read returns the snapshot of c
func (s *BadgerRecordStore) Read(ctx context.Context, c shared.Collection) (shared.Snapshot, error) {
	var snap shared.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		snap, err = badgerTxStore{txn: txn}.Read(ctx, c)
		return err
	})
	return snap, err
}

// Write replaces the snapshot of c
func (s *BadgerRecordStore) Write(ctx context.Context, c shared.Collection, snap shared.Snapshot) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return badgerTxStore{txn: txn}.Write(ctx, c, snap)
	})
	return badgerCommitError(err, c)
}

// InTransaction runs fn inside one read-write badger transaction
func (s *BadgerRecordStore) InTransaction(ctx context.Context, collections []shared.Collection, fn func(ctx context.Context, tx shared.RecordStore) error) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return fn(ctx, badgerTxStore{txn: txn})
	})
	return badgerCommitError(err, joinCollections(collections))
}

// Close closes the underlying database
func (s *BadgerRecordStore) Close() error {
	return s.db.Close()
}

func badgerCommitError(err error, c shared.Collection) error {
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	if errors.Is(err, badger.ErrConflict) {
		return shared.ErrConcurrencyConflict
	}
	return shared.NewStorageError("commit", c, err)
}

type badgerTxStore struct {
	txn *badger.Txn
}

func (t badgerTxStore) Read(_ context.Context, c shared.Collection) (shared.Snapshot, error) {
	item, err := t.txn.Get(badgerKey(c))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return shared.EmptySnapshot(c), nil
	}
	if err != nil {
		return shared.Snapshot{}, shared.NewStorageError("read", c, err)
	}
	raw, err := item.ValueCopy(nil)
	if err != nil {
		return shared.Snapshot{}, shared.NewStorageError("read", c, err)
	}
	var snap shared.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return shared.Snapshot{}, shared.NewStorageError("decode", c, err)
	}
	return snap.Normalize(c), nil
}

func (t badgerTxStore) Write(_ context.Context, c shared.Collection, snap shared.Snapshot) error {
	raw, err := json.Marshal(snap.Normalize(c))
	if err != nil {
		return shared.NewStorageError("encode", c, err)
	}
	if err := t.txn.Set(badgerKey(c), raw); err != nil {
		return shared.NewStorageError("write", c, err)
	}
	return nil
}

func badgerKey(c shared.Collection) []byte {
	return []byte(badgerKeyPrefix + c.String())
}

// badgerLogger routes badger's logging through zap
type badgerLogger struct {
	*zap.SugaredLogger
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Warnf(format, args...)
}

var _ shared.TransactionalRecordStore = (*BadgerRecordStore)(nil)
