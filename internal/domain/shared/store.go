package shared

import (
	"context"
	"encoding/json"
)

// Collection names a record collection held by a RecordStore
type Collection string

const (
	CollectionCustomers        Collection = "customers"
	CollectionQuotes           Collection = "quotes"
	CollectionInvoices         Collection = "invoices"
	CollectionPaymentsReceived Collection = "paymentsReceived"
	CollectionItemRequests     Collection = "itemRequests"
	CollectionItems            Collection = "items"
)

// AllCollections lists every collection the portal reads or writes
var AllCollections = []Collection{
	CollectionCustomers,
	CollectionQuotes,
	CollectionInvoices,
	CollectionPaymentsReceived,
	CollectionItemRequests,
	CollectionItems,
}

// IsValid checks if the collection is one of the known collections
func (c Collection) IsValid() bool {
	for _, known := range AllCollections {
		if c == known {
			return true
		}
	}
	return false
}

// String returns the string representation of the collection
func (c Collection) String() string {
	return string(c)
}

// FirstID returns the identifier handed out for the first record of a collection.
// Payment reference numbers start at 1001, everything else at 1.
func (c Collection) FirstID() int64 {
	if c == CollectionPaymentsReceived {
		return 1001
	}
	return 1
}

// Snapshot is the full persisted state of one collection.
// Records holds a JSON array; NextID is the next identifier to allocate.
type Snapshot struct {
	Records json.RawMessage `json:"records"`
	NextID  int64           `json:"nextId"`
}

// EmptySnapshot returns the state of a collection that has never been written
func EmptySnapshot(c Collection) Snapshot {
	return Snapshot{Records: json.RawMessage("[]"), NextID: c.FirstID()}
}

// Normalize fills in defaults for a snapshot read from an empty or legacy backend
func (s Snapshot) Normalize(c Collection) Snapshot {
	if len(s.Records) == 0 || string(s.Records) == "null" {
		s.Records = json.RawMessage("[]")
	}
	if s.NextID < c.FirstID() {
		s.NextID = c.FirstID()
	}
	return s
}

// Clone returns a deep copy of the snapshot
func (s Snapshot) Clone() Snapshot {
	records := make(json.RawMessage, len(s.Records))
	copy(records, s.Records)
	return Snapshot{Records: records, NextID: s.NextID}
}

// RecordStore reads and fully replaces whole collections.
// Each Write is atomic for a single collection only.
type RecordStore interface {
	Read(ctx context.Context, c Collection) (Snapshot, error)
	Write(ctx context.Context, c Collection, s Snapshot) error
}

// TransactionalRecordStore is a RecordStore that can commit writes to several
// collections atomically. fn receives a store scoped to the transaction; if fn
// returns an error nothing it wrote becomes visible.
type TransactionalRecordStore interface {
	RecordStore
	InTransaction(ctx context.Context, collections []Collection, fn func(ctx context.Context, tx RecordStore) error) error
}

// Sequence is an external identifier allocator shared across processes.
// Next returns a value never lower than floor and never returned before for c.
type Sequence interface {
	Next(ctx context.Context, c Collection, floor int64) (int64, error)
}
