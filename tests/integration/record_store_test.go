package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/identity"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/erp/portal/internal/infrastructure/cache"
	"github.com/erp/portal/internal/infrastructure/migration"
	"github.com/erp/portal/internal/infrastructure/persistence"
	"github.com/erp/portal/migrations"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const (
	integrationCustomers = `[{"id":"1","userId":"u-1","name":"Asha","email":"asha@example.com","companyName":"Asha Traders","phone":"9800000001"}]`
	integrationInvoices  = `[{"id":"1","invoiceNumber":"INV-001","customerId":"1","customerName":"Asha Traders","status":"Sent","total":1000,"balanceDue":1000,"activityLogs":[]}]`
)

func seed(t *testing.T, store shared.RecordStore, c shared.Collection, records string, nextID int64) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), c,
		shared.Snapshot{Records: json.RawMessage(records), NextID: nextID}))
}

func TestGormRecordStore_Integration(t *testing.T) {
	tdb := NewTestDB(t)
	store := persistence.NewGormRecordStore(tdb.DB)
	ctx := context.Background()

	t.Run("missing collection reads empty", func(t *testing.T) {
		snap, err := store.Read(ctx, shared.CollectionPaymentsReceived)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(snap.Records))
		assert.Equal(t, int64(1001), snap.NextID)
	})

	t.Run("write replaces the row", func(t *testing.T) {
		seed(t, store, shared.CollectionItems, `[{"id":"1","name":"Bolt"}]`, 2)
		seed(t, store, shared.CollectionItems, `[{"id":"1","name":"Bolt"},{"id":"2","name":"Nut"}]`, 3)

		snap, err := store.Read(ctx, shared.CollectionItems)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"1","name":"Bolt"},{"id":"2","name":"Nut"}]`, string(snap.Records))
		assert.Equal(t, int64(3), snap.NextID)

		var rows int64
		require.NoError(t, tdb.DB.Table("record_collections").Where("collection = ?", "items").Count(&rows).Error)
		assert.Equal(t, int64(1), rows)
	})
}

func TestGormSequence_Integration(t *testing.T) {
	tdb := NewTestDB(t)
	seq := persistence.NewGormSequence(tdb.DB)
	ctx := context.Background()

	first, err := seq.Next(ctx, shared.CollectionQuotes, 1)
	require.NoError(t, err)
	second, err := seq.Next(ctx, shared.CollectionQuotes, 1)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	raised, err := seq.Next(ctx, shared.CollectionQuotes, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(50), raised, "floor wins over a lower counter")
}

// Two portal instances share one database; payments recorded through both
// must get distinct ids and all land in the collection.
func TestConcurrentPayments_Integration(t *testing.T) {
	tdb := NewTestDB(t)
	log := zaptest.NewLogger(t)
	store := persistence.NewGormRecordStore(tdb.DB)
	seed(t, store, shared.CollectionCustomers, integrationCustomers, 2)
	seed(t, store, shared.CollectionInvoices, integrationInvoices, 2)

	newInstance := func() *portal.PaymentService {
		return portal.NewPaymentService(portal.Options{
			UnitOfWork:  persistence.NewUnitOfWork(persistence.NewGormRecordStore(tdb.DB), persistence.NewGormSequence(tdb.DB), log),
			Idempotency: cache.NewInMemoryIdempotencyStore(),
			Logger:      log,
		})
	}
	instances := []*portal.PaymentService{newInstance(), newInstance()}
	customer := &identity.Principal{ID: "u-1", Email: "asha@example.com", Name: "Asha"}

	const perInstance = 5
	var wg sync.WaitGroup
	ids := make(chan shared.RecordID, perInstance*len(instances))
	errs := make(chan error, perInstance*len(instances))
	for i, svc := range instances {
		for j := 0; j < perInstance; j++ {
			wg.Add(1)
			go func(svc *portal.PaymentService, key string) {
				defer wg.Done()
				amount := decimal.NewFromInt(10)
				res, err := svc.RecordPayment(context.Background(), customer, portal.RecordPaymentInput{
					InvoiceID:      "1",
					Amount:         &amount,
					IdempotencyKey: key,
				})
				if err != nil {
					errs <- err
					return
				}
				ids <- res.Payment.ID
			}(svc, fmt.Sprintf("key-%d-%d", i, j))
		}
	}
	wg.Wait()
	close(ids)
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	seen := make(map[shared.RecordID]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate payment id %s", id)
		seen[id] = true
	}
	assert.Len(t, seen, perInstance*len(instances))

	snap, err := store.Read(context.Background(), shared.CollectionPaymentsReceived)
	require.NoError(t, err)
	var payments []trade.PaymentReceived
	require.NoError(t, json.Unmarshal(snap.Records, &payments))
	assert.Len(t, payments, perInstance*len(instances))
	for _, p := range payments {
		assert.Equal(t, trade.PaymentStatusPendingVerification, p.Status)
	}

	invoices, err := store.Read(context.Background(), shared.CollectionInvoices)
	require.NoError(t, err)
	var inv []struct {
		ActivityLogs []trade.ActivityEntry `json:"activityLogs"`
	}
	require.NoError(t, json.Unmarshal(invoices.Records, &inv))
	require.Len(t, inv, 1)
	assert.Len(t, inv[0].ActivityLogs, perInstance*len(instances))
}

func TestMigrator_Integration(t *testing.T) {
	tdb := NewTestDB(t)

	m, err := migration.New(tdb.SqlDB, migrations.FS, zaptest.NewLogger(t))
	require.NoError(t, err)

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)

	require.NoError(t, m.Up(), "re-running up is a no-op")

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)
	assert.False(t, tdb.DB.Migrator().HasTable("record_collections"))
}
