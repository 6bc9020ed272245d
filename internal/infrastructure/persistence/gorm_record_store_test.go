package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormRecordStore_ReadWrite(t *testing.T) {
	ctx := context.Background()
	store := NewGormRecordStore(newSQLiteDB(t))

	t.Run("missing collection reads as empty", func(t *testing.T) {
		snap, err := store.Read(ctx, shared.CollectionPaymentsReceived)
		require.NoError(t, err)
		assert.JSONEq(t, "[]", string(snap.Records))
		assert.Equal(t, int64(1001), snap.NextID)
	})

	t.Run("write replaces the whole collection", func(t *testing.T) {
		require.NoError(t, store.Write(ctx, shared.CollectionQuotes, shared.Snapshot{
			Records: json.RawMessage(`[{"id":"1","status":"Draft"}]`),
			NextID:  2,
		}))
		require.NoError(t, store.Write(ctx, shared.CollectionQuotes, shared.Snapshot{
			Records: json.RawMessage(`[{"id":"1","status":"Approved"}]`),
			NextID:  2,
		}))

		snap, err := store.Read(ctx, shared.CollectionQuotes)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"1","status":"Approved"}]`, string(snap.Records))
		assert.Equal(t, int64(2), snap.NextID)
	})
}

func TestGormRecordStore_InTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := NewGormRecordStore(newSQLiteDB(t))
	boom := shared.NewForbiddenError("Not allowed")

	err := store.InTransaction(ctx, []shared.Collection{shared.CollectionItemRequests, shared.CollectionItems},
		func(ctx context.Context, tx shared.RecordStore) error {
			require.NoError(t, tx.Write(ctx, shared.CollectionItems, shared.Snapshot{
				Records: json.RawMessage(`[{"id":"1"}]`), NextID: 2,
			}))
			return boom
		})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	snap, err := store.Read(ctx, shared.CollectionItems)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", string(snap.Records))
}

func TestGormRecordStore_PostgresLocksRows(t *testing.T) {
	db, mock, _ := newMockPostgres(t)
	store := NewGormRecordStore(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "record_collections"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "record_collections" WHERE collection = \$1 LIMIT \$2 FOR UPDATE`).
		WithArgs("quotes", 1).
		WillReturnRows(sqlmock.NewRows([]string{"collection", "records", "next_id", "updated_at"}).
			AddRow("quotes", "[]", 1, time.Now()))
	mock.ExpectRollback()

	called := false
	err := store.InTransaction(context.Background(), []shared.Collection{shared.CollectionQuotes},
		func(ctx context.Context, tx shared.RecordStore) error {
			called = true
			return shared.NewValidationError("At least one item is required")
		})

	assert.True(t, called)
	assert.ErrorIs(t, err, shared.ErrValidation)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRecordStore_DriverErrorsAreStorageFailures(t *testing.T) {
	db, mock, _ := newMockPostgres(t)
	store := NewGormRecordStore(db)

	mock.ExpectQuery(`SELECT \* FROM "record_collections"`).
		WillReturnError(errors.New("connection reset by peer"))

	_, err := store.Read(context.Background(), shared.CollectionInvoices)
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrStorageFailure)
	assert.Contains(t, err.Error(), "failed to read invoices")

	mock.ExpectExec(`INSERT INTO "record_collections"`).
		WillReturnError(errors.New("disk full"))
	err = store.Write(context.Background(), shared.CollectionInvoices, shared.EmptySnapshot(shared.CollectionInvoices))
	assert.ErrorIs(t, err, shared.ErrStorageFailure)
	assert.NoError(t, mock.ExpectationsWereMet())
}
