package reg

import (
	"sort"
)

// ColumnDefinitionRegistry keeps column definition records indexed by id
// and ordered by the composite key (columnId, id). The composite ordering
// resolves the "latest definition of a column" query with a single
// lower-bound probe.
type ColumnDefinitionRegistry struct {
	byID map[uint64]*ColumnDefinitionRecord

	// ordered holds the records sorted by (ColumnID, ID).
	ordered []*ColumnDefinitionRecord
}

// NewColumnDefinitionRegistry creates an empty column definition registry.
func NewColumnDefinitionRegistry() *ColumnDefinitionRegistry {
	return &ColumnDefinitionRegistry{
		byID: make(map[uint64]*ColumnDefinitionRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *ColumnDefinitionRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *ColumnDefinitionRegistry) Len() int {
	return len(r.byID)
}

// lowerBound returns the first position whose record orders at or after
// (columnID, id).
func (r *ColumnDefinitionRegistry) lowerBound(columnID, id uint64) int {
	return sort.Search(len(r.ordered), func(i int) bool {
		rec := r.ordered[i]
		if rec.ColumnID != columnID {
			return rec.ColumnID > columnID
		}
		return rec.ID >= id
	})
}

// Insert adds a record, failing on a duplicate id.
func (r *ColumnDefinitionRegistry) Insert(record ColumnDefinitionRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	stored := record
	pos := r.lowerBound(record.ColumnID, record.ID)
	r.ordered = append(r.ordered, nil)
	copy(r.ordered[pos+1:], r.ordered[pos:])
	r.ordered[pos] = &stored
	r.byID[record.ID] = &stored
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *ColumnDefinitionRegistry) FindByID(id uint64) (ColumnDefinitionRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		return *rec, true
	}
	return ColumnDefinitionRecord{}, false
}

// LastDefinitionIDForColumn returns the greatest definition id whose
// column id equals columnID: lower-bound on (columnID+1, 0), then one step
// back.
func (r *ColumnDefinitionRegistry) LastDefinitionIDForColumn(columnID uint64) (uint64, bool) {
	if len(r.ordered) == 0 {
		return 0, false
	}
	pos := r.lowerBound(columnID+1, 0)
	if pos == 0 {
		return 0, false
	}
	rec := r.ordered[pos-1]
	if rec.ColumnID != columnID {
		return 0, false
	}
	return rec.ID, true
}

// Replace updates the record with record.ID in place, refreshing the
// composite index when the column id changes.
func (r *ColumnDefinitionRegistry) Replace(record ColumnDefinitionRecord) error {
	old, ok := r.byID[record.ID]
	if !ok {
		return ErrNotFound
	}
	if old.ColumnID != record.ColumnID {
		oldPos := r.lowerBound(old.ColumnID, old.ID)
		r.ordered = append(r.ordered[:oldPos], r.ordered[oldPos+1:]...)
		newPos := r.lowerBound(record.ColumnID, record.ID)
		r.ordered = append(r.ordered, nil)
		copy(r.ordered[newPos+1:], r.ordered[newPos:])
		r.ordered[newPos] = old
	}
	*old = record
	return nil
}

// All returns all records ordered by id.
func (r *ColumnDefinitionRegistry) All() []ColumnDefinitionRecord {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ColumnDefinitionRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.byID[id])
	}
	return out
}
