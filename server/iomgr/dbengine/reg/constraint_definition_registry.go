package reg

import (
	"sort"
)

// ConstraintDefinitionRegistry keeps constraint definition records indexed
// by id and by content hash. The hash index is non-unique: two rows may
// share a hash, so content lookups take the equal range and verify byte
// equality.
type ConstraintDefinitionRegistry struct {
	byID   map[uint64]*ConstraintDefinitionRecord
	byHash map[uint64][]*ConstraintDefinitionRecord
}

// NewConstraintDefinitionRegistry creates an empty registry.
func NewConstraintDefinitionRegistry() *ConstraintDefinitionRegistry {
	return &ConstraintDefinitionRegistry{
		byID:   make(map[uint64]*ConstraintDefinitionRecord),
		byHash: make(map[uint64][]*ConstraintDefinitionRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *ConstraintDefinitionRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *ConstraintDefinitionRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id.
func (r *ConstraintDefinitionRegistry) Insert(record ConstraintDefinitionRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	stored := record
	r.byID[record.ID] = &stored
	r.byHash[record.Hash] = append(r.byHash[record.Hash], &stored)
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *ConstraintDefinitionRegistry) FindByID(id uint64) (ConstraintDefinitionRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		return *rec, true
	}
	return ConstraintDefinitionRecord{}, false
}

// EqualRangeByHash returns snapshots of all records sharing the given
// content hash, ordered by id.
func (r *ConstraintDefinitionRegistry) EqualRangeByHash(hash uint64) []ConstraintDefinitionRecord {
	rows := r.byHash[hash]
	out := make([]ConstraintDefinitionRecord, 0, len(rows))
	for _, rec := range rows {
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Replace updates the record with record.ID in place, refreshing the hash
// index when the content changed.
func (r *ConstraintDefinitionRegistry) Replace(record ConstraintDefinitionRecord) error {
	old, ok := r.byID[record.ID]
	if !ok {
		return ErrNotFound
	}
	record.Hash = ComputeConstraintDefinitionHash(record.Type, record.Expression)
	if record.Hash != old.Hash {
		rows := r.byHash[old.Hash]
		for i, rec := range rows {
			if rec == old {
				r.byHash[old.Hash] = append(rows[:i], rows[i+1:]...)
				break
			}
		}
		if len(r.byHash[old.Hash]) == 0 {
			delete(r.byHash, old.Hash)
		}
		r.byHash[record.Hash] = append(r.byHash[record.Hash], old)
	}
	*old = record
	return nil
}

// All returns all records ordered by id.
func (r *ConstraintDefinitionRegistry) All() []ConstraintDefinitionRecord {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ConstraintDefinitionRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.byID[id])
	}
	return out
}
