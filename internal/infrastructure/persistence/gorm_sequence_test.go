package persistence

import (
	"context"
	"testing"

	"github.com/erp/portal/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormSequence_Next(t *testing.T) {
	ctx := context.Background()
	seq := NewGormSequence(newSQLiteDB(t))

	tests := []struct {
		name       string
		collection shared.Collection
		floor      int64
		want       int64
	}{
		{"first payment starts at floor", shared.CollectionPaymentsReceived, 1001, 1001},
		{"second payment increments", shared.CollectionPaymentsReceived, 1001, 1002},
		{"floor above counter wins", shared.CollectionPaymentsReceived, 2000, 2000},
		{"lower floor keeps counting", shared.CollectionPaymentsReceived, 1001, 2001},
		{"collections are independent", shared.CollectionQuotes, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := seq.Next(ctx, tt.collection, tt.floor)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
