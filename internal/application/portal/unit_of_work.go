package portal

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/erp/portal/internal/domain/shared"
)

// UnitOfWork runs a read-modify-write over several collections as one unit.
// Collections named in Execute are locked against other units of work for the
// duration of fn. Writes staged through the Tx become visible only when fn
// returns nil, and then all together or not at all.
type UnitOfWork interface {
	Execute(ctx context.Context, collections []shared.Collection, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the view of the locked collections inside a unit of work
type Tx interface {
	// Read returns the staged snapshot, or the one loaded when the lock was taken.
	// Reading a collection that was not locked is an error.
	Read(c shared.Collection) (shared.Snapshot, error)
	// Write stages a full replacement of the collection
	Write(c shared.Collection, s shared.Snapshot) error
	// Sequence is the external id allocator, or nil when ids come from the collection counter
	Sequence() shared.Sequence
}

// records is a typed, lazily re-encoded view of one collection.
// Records that were not modified are written back byte for byte, and
// modified ones are merged over their stored JSON so unknown fields survive.
type records[T any] struct {
	collection shared.Collection
	items      []*T
	raw        []json.RawMessage
	dirty      []bool
	fields     [][]string // top-level keys a touch limited the write to
	nextID     int64
	changed    bool
}

func loadRecords[T any](tx Tx, c shared.Collection) (*records[T], error) {
	snap, err := tx.Read(c)
	if err != nil {
		return nil, err
	}
	snap = snap.Normalize(c)

	var raws []json.RawMessage
	if err := json.Unmarshal(snap.Records, &raws); err != nil {
		return nil, shared.NewStorageError("decode", c, err)
	}
	r := &records[T]{
		collection: c,
		items:      make([]*T, len(raws)),
		raw:        raws,
		dirty:      make([]bool, len(raws)),
		fields:     make([][]string, len(raws)),
		nextID:     snap.NextID,
	}
	for i, raw := range raws {
		item := new(T)
		if err := json.Unmarshal(raw, item); err != nil {
			return nil, shared.NewStorageError("decode", c, fmt.Errorf("record %d: %w", i, err))
		}
		r.items[i] = item
	}
	return r, nil
}

func (r *records[T]) all() []*T {
	return r.items
}

func (r *records[T]) find(match func(*T) bool) *T {
	for _, item := range r.items {
		if match(item) {
			return item
		}
	}
	return nil
}

func (r *records[T]) filter(match func(*T) bool) []*T {
	out := make([]*T, 0)
	for _, item := range r.items {
		if match(item) {
			out = append(out, item)
		}
	}
	return out
}

// touch marks an existing record as modified. When fields are named only
// those top-level keys are written over the stored document; otherwise every
// key the type knows is.
func (r *records[T]) touch(item *T, fields ...string) {
	for i, it := range r.items {
		if it == item {
			if !r.dirty[i] || r.fields[i] != nil {
				if len(fields) > 0 {
					r.fields[i] = append(r.fields[i], fields...)
				} else {
					r.fields[i] = nil
				}
			}
			r.dirty[i] = true
			r.changed = true
			return
		}
	}
}

func (r *records[T]) add(item *T) {
	r.items = append(r.items, item)
	r.raw = append(r.raw, nil)
	r.dirty = append(r.dirty, true)
	r.fields = append(r.fields, nil)
	r.changed = true
}

// allocate hands out the next id of the collection.
// With an external sequence the counter is only a floor and is moved past
// whatever the sequence returns.
func (r *records[T]) allocate(ctx context.Context, tx Tx) (int64, error) {
	id := r.nextID
	if seq := tx.Sequence(); seq != nil {
		next, err := seq.Next(ctx, r.collection, r.nextID)
		if err != nil {
			return 0, shared.NewStorageError("allocate id for", r.collection, err)
		}
		id = next
	}
	r.nextID = id + 1
	r.changed = true
	return id, nil
}

// flush stages the collection if anything changed
func (r *records[T]) flush(tx Tx) error {
	if !r.changed {
		return nil
	}
	out := make([]json.RawMessage, len(r.items))
	for i, item := range r.items {
		if !r.dirty[i] {
			out[i] = r.raw[i]
			continue
		}
		encoded, err := json.Marshal(item)
		if err != nil {
			return shared.NewStorageError("encode", r.collection, err)
		}
		if r.raw[i] != nil {
			if encoded, err = mergeRecord(r.raw[i], encoded, r.fields[i]); err != nil {
				return shared.NewStorageError("encode", r.collection, err)
			}
		}
		out[i] = encoded
	}
	data, err := json.Marshal(out)
	if err != nil {
		return shared.NewStorageError("encode", r.collection, err)
	}
	return tx.Write(r.collection, shared.Snapshot{Records: data, NextID: r.nextID})
}

// mergeRecord overlays the fields of updated onto stored. A non-empty only
// restricts the overlay to those keys.
func mergeRecord(stored, updated json.RawMessage, only []string) (json.RawMessage, error) {
	var base map[string]json.RawMessage
	if err := json.Unmarshal(stored, &base); err != nil {
		return nil, err
	}
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(updated, &patch); err != nil {
		return nil, err
	}
	if base == nil {
		base = make(map[string]json.RawMessage, len(patch))
	}
	if len(only) > 0 {
		for _, k := range only {
			if v, ok := patch[k]; ok {
				base[k] = v
			}
		}
		return json.Marshal(base)
	}
	for k, v := range patch {
		base[k] = v
	}
	return json.Marshal(base)
}
