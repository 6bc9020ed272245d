package shared

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordID_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  RecordID
	}{
		{"string", `{"id":"42"}`, "42"},
		{"number", `{"id":17}`, "17"},
		{"null", `{"id":null}`, ""},
		{"missing", `{}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v struct {
				ID RecordID `json:"id"`
			}
			require.NoError(t, json.Unmarshal([]byte(tt.input), &v))
			assert.Equal(t, tt.want, v.ID)
		})
	}
}

func TestRecordID_MarshalsAsString(t *testing.T) {
	out, err := json.Marshal(struct {
		ID RecordID `json:"id"`
	}{ID: NewRecordID(1001)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1001"}`, string(out))
}

func TestRecordID_RejectsObjects(t *testing.T) {
	var id RecordID
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
}
