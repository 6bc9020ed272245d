package portal_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

const seedCustomers = `[
	{"id":"1","userId":"u-1","name":"Asha","email":"asha@example.com","companyName":"Asha Traders","phone":"9800000001","billingAddress":{"street":"12 MG Road","city":"Pune","state":"MH","country":"India","pincode":"411001"}},
	{"id":"2","userId":"u-2","name":"Ravi","email":"ravi@example.com","companyName":"Ravi & Sons","phone":"9800000002"}
]`

var (
	asha     = &identity.Principal{ID: "u-1", Email: "Asha@Example.com", Name: "Asha"}
	ravi     = &identity.Principal{ID: "u-2", Email: "ravi@example.com", Name: "Ravi"}
	stranger = &identity.Principal{ID: "u-404", Email: "nobody@example.com"}
)

// failingStore fails every write once armed
type failingStore struct {
	*persistence.MemoryRecordStore
	failWrites atomic.Bool
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) Write(ctx context.Context, c shared.Collection, snap shared.Snapshot) error {
	if s.failWrites.Load() {
		return errDiskFull
	}
	return s.MemoryRecordStore.Write(ctx, c, snap)
}

type fixture struct {
	store *failingStore
	opts  portal.Options
}

func newFixture(t *testing.T, configure ...func(*portal.Options)) *fixture {
	t.Helper()
	store := &failingStore{MemoryRecordStore: persistence.NewMemoryRecordStore()}
	logger := zaptest.NewLogger(t)
	opts := portal.Options{
		UnitOfWork: persistence.NewUnitOfWork(store, nil, logger),
		Logger:     logger,
		Now:        func() time.Time { return fixedNow },
	}
	for _, c := range configure {
		c(&opts)
	}
	f := &fixture{store: store, opts: opts}
	f.seed(t, shared.CollectionCustomers, seedCustomers, 3)
	return f
}

func strict(opts *portal.Options) {
	opts.StrictTransitions = true
}

func (f *fixture) seed(t *testing.T, c shared.Collection, records string, nextID int64) {
	t.Helper()
	require.NoError(t, f.store.MemoryRecordStore.Write(context.Background(), c,
		shared.Snapshot{Records: json.RawMessage(records), NextID: nextID}))
}

// stored returns the records of c decoded as generic maps
func (f *fixture) stored(t *testing.T, c shared.Collection) ([]map[string]any, int64) {
	t.Helper()
	snap, err := f.store.Read(context.Background(), c)
	require.NoError(t, err)
	var out []map[string]any
	require.NoError(t, json.Unmarshal(snap.Records, &out))
	return out, snap.NextID
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
