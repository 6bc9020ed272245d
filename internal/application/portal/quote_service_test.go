package portal_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/erp/portal/internal/application/portal"
	"github.com/erp/portal/internal/domain/shared"
	"github.com/erp/portal/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteService_CreateQuote(t *testing.T) {
	f := newFixture(t)
	svc := portal.NewQuoteService(f.opts)
	ctx := context.Background()

	quote, err := svc.CreateQuote(ctx, asha, []trade.QuoteLineInput{
		{Name: "Hex bolt", Quantity: dec("2"), Rate: dec("12.5")},
		{Name: "Washer", Unit: "box"},
	})
	require.NoError(t, err)

	assert.Equal(t, "1", quote.ID.String())
	assert.Equal(t, "QT-000001", quote.QuoteNumber)
	assert.Equal(t, "1", quote.CustomerID.String())
	assert.Equal(t, "Asha", quote.CustomerName)
	assert.Equal(t, "12 MG Road", quote.BillingAddress.Street)
	assert.Equal(t, "12 MG Road", quote.ShippingAddress.Street, "shipping falls back to billing")
	assert.Equal(t, portal.DefaultOrganizationID, quote.OrganizationID)
	assert.Equal(t, trade.QuoteStatusDraft, quote.Status)
	assert.Equal(t, fixedNow, quote.CreatedAt)
	require.Len(t, quote.Items, 2)
	assert.True(t, quote.Items[0].Amount.Equal(decimal.NewFromInt(25)))
	assert.True(t, quote.Items[1].Quantity.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "box", quote.Items[1].Unit)
	assert.True(t, quote.Total.Equal(decimal.NewFromInt(25)))

	stored, next := f.stored(t, shared.CollectionQuotes)
	require.Len(t, stored, 1)
	assert.Equal(t, "QT-000001", stored[0]["quoteNumber"])
	assert.Equal(t, int64(2), next)

	second, err := svc.CreateQuote(ctx, asha, []trade.QuoteLineInput{{Name: "Nut"}})
	require.NoError(t, err)
	assert.Equal(t, "QT-000002", second.QuoteNumber)
}

func TestQuoteService_CreateQuoteErrors(t *testing.T) {
	tests := []struct {
		name      string
		principal bool
		lines     []trade.QuoteLineInput
		wantErr   error
	}{
		{"no profile", false, []trade.QuoteLineInput{{Name: "Bolt"}}, shared.ErrIncompleteProfile},
		{"no lines", true, nil, shared.ErrValidation},
		{"unnamed line", true, []trade.QuoteLineInput{{Rate: dec("1")}}, shared.ErrValidation},
		{"negative rate", true, []trade.QuoteLineInput{{Name: "Bolt", Rate: dec("-1")}}, shared.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := portal.NewQuoteService(f.opts)
			p := stranger
			if tt.principal {
				p = asha
			}

			_, err := svc.CreateQuote(context.Background(), p, tt.lines)
			assert.ErrorIs(t, err, tt.wantErr)

			stored, next := f.stored(t, shared.CollectionQuotes)
			assert.Empty(t, stored)
			assert.Equal(t, int64(1), next, "failed creation must not consume an id")
		})
	}
}

func TestQuoteService_ListQuotes(t *testing.T) {
	f := newFixture(t)
	f.seed(t, shared.CollectionQuotes, `[
		{"id":"1","quoteNumber":"QT-000001","customerId":"1","status":"Draft"},
		{"id":"2","quoteNumber":"QT-000002","customerId":"2","status":"Draft"},
		{"id":"3","quoteNumber":"QT-000003","customerId":1,"status":"Approved"}
	]`, 4)
	svc := portal.NewQuoteService(f.opts)
	ctx := context.Background()

	quotes, err := svc.ListQuotes(ctx, asha)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	assert.Equal(t, "QT-000001", quotes[0].QuoteNumber)
	assert.Equal(t, "QT-000003", quotes[1].QuoteNumber)

	quotes, err = svc.ListQuotes(ctx, stranger)
	require.NoError(t, err)
	assert.Empty(t, quotes)

	quotes, err = svc.ListQuotes(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, quotes)
}

func TestQuoteService_ApproveAndReject(t *testing.T) {
	const quotes = `[
		{"id":"1","quoteNumber":"QT-000001","customerId":"1","status":"Draft","notes":"call before delivery"},
		{"id":"2","quoteNumber":"QT-000002","customerId":"2","status":"Draft"}
	]`
	ctx := context.Background()

	t.Run("owner approves", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		quote, err := svc.Approve(ctx, asha, "1")
		require.NoError(t, err)
		assert.Equal(t, trade.QuoteStatusApproved, quote.Status)

		stored, _ := f.stored(t, shared.CollectionQuotes)
		assert.Equal(t, "Approved", stored[0]["status"])
		assert.Equal(t, "call before delivery", stored[0]["notes"], "unknown fields survive the rewrite")
		assert.Equal(t, "Draft", stored[1]["status"])
	})

	t.Run("owner rejects", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		quote, err := svc.Reject(ctx, ravi, "2")
		require.NoError(t, err)
		assert.Equal(t, trade.QuoteStatusScrapped, quote.Status)
	})

	t.Run("other customer is forbidden", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		_, err := svc.Approve(ctx, ravi, "1")
		assert.ErrorIs(t, err, shared.ErrForbidden)

		stored, _ := f.stored(t, shared.CollectionQuotes)
		assert.Equal(t, "Draft", stored[0]["status"])
	})

	t.Run("unknown quote", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		_, err := svc.Approve(ctx, asha, "99")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("principal without profile", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		_, err := svc.Reject(ctx, stranger, "1")
		assert.ErrorIs(t, err, shared.ErrIncompleteProfile)
	})

	t.Run("terminal status is rewritable by default", func(t *testing.T) {
		f := newFixture(t)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		_, err := svc.Approve(ctx, asha, "1")
		require.NoError(t, err)
		quote, err := svc.Reject(ctx, asha, "1")
		require.NoError(t, err)
		assert.Equal(t, trade.QuoteStatusScrapped, quote.Status)
	})

	t.Run("strict mode refuses leaving a terminal status", func(t *testing.T) {
		f := newFixture(t, strict)
		f.seed(t, shared.CollectionQuotes, quotes, 3)
		svc := portal.NewQuoteService(f.opts)

		_, err := svc.Approve(ctx, asha, "1")
		require.NoError(t, err)
		_, err = svc.Reject(ctx, asha, "1")
		assert.ErrorIs(t, err, shared.ErrInvalidState)

		stored, _ := f.stored(t, shared.CollectionQuotes)
		assert.Equal(t, "Approved", stored[0]["status"])
	})
}

func TestQuoteService_AdminScrap(t *testing.T) {
	f := newFixture(t)
	f.seed(t, shared.CollectionQuotes, `[{"id":"5","quoteNumber":"QT-000005","customerId":"2","status":"Draft"}]`, 6)
	svc := portal.NewQuoteService(f.opts)
	ctx := context.Background()

	quote, err := svc.AdminScrap(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, trade.QuoteStatusScrapped, quote.Status)

	_, err = svc.AdminScrap(ctx, "6")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	t.Run("forces scrapped from a terminal status in strict mode", func(t *testing.T) {
		f := newFixture(t, strict)
		f.seed(t, shared.CollectionQuotes, `[{"id":"5","quoteNumber":"QT-000005","customerId":"2","status":"Approved"}]`, 6)
		svc := portal.NewQuoteService(f.opts)

		quote, err := svc.AdminScrap(ctx, "5")
		require.NoError(t, err)
		assert.Equal(t, trade.QuoteStatusScrapped, quote.Status)

		stored, _ := f.stored(t, shared.CollectionQuotes)
		assert.Equal(t, "Scrapped", stored[0]["status"])
	})
}

func TestQuoteService_TransitionsWriteOnlyStatus(t *testing.T) {
	const seeded = `{"id":"1","quoteNumber":"QT-000001","customerId":"1","status":"Draft",` +
		`"items":[{"id":"1","name":"Bolt","quantity":2,"rate":5,"amount":10,"taxId":"GST18"}],"total":10}`
	ctx := context.Background()

	var want map[string]any
	require.NoError(t, json.Unmarshal([]byte(seeded), &want))
	want["status"] = "Approved"

	f := newFixture(t)
	f.seed(t, shared.CollectionQuotes, "["+seeded+"]", 2)
	svc := portal.NewQuoteService(f.opts)

	_, err := svc.Approve(ctx, asha, "1")
	require.NoError(t, err)
	stored, _ := f.stored(t, shared.CollectionQuotes)
	assert.Equal(t, want, stored[0])

	_, err = svc.AdminScrap(ctx, "1")
	require.NoError(t, err)
	want["status"] = "Scrapped"
	stored, _ = f.stored(t, shared.CollectionQuotes)
	assert.Equal(t, want, stored[0])
}

func TestQuoteService_StorageFailureLeavesQuoteUnchanged(t *testing.T) {
	f := newFixture(t)
	f.seed(t, shared.CollectionQuotes, `[{"id":"1","quoteNumber":"QT-000001","customerId":"1","status":"Draft"}]`, 2)
	svc := portal.NewQuoteService(f.opts)

	f.store.failWrites.Store(true)
	_, err := svc.Approve(context.Background(), asha, "1")
	require.ErrorIs(t, err, shared.ErrStorageFailure)
	assert.ErrorIs(t, err, errDiskFull)

	stored, _ := f.stored(t, shared.CollectionQuotes)
	assert.Equal(t, "Draft", stored[0]["status"])
}
