package shared

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// RecordID identifies a record inside a collection.
// Older documents stored numeric ids, so both JSON numbers and strings decode.
type RecordID string

// NewRecordID formats an allocated counter value as a record id
func NewRecordID(n int64) RecordID {
	return RecordID(strconv.FormatInt(n, 10))
}

// String returns the string representation of the id
func (id RecordID) String() string {
	return string(id)
}

// IsEmpty reports whether the id is unset
func (id RecordID) IsEmpty() bool {
	return id == ""
}

// UnmarshalJSON accepts a JSON string, number or null
func (id *RecordID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = RecordID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = RecordID(n.String())
	return nil
}
