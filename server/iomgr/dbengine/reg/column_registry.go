package reg

import (
	"sort"
)

// ColumnRegistry keeps column records indexed by id and by (table, name).
type ColumnRegistry struct {
	byID           map[uint64]*ColumnRecord
	byTableAndName map[columnNameKey]*ColumnRecord
}

type columnNameKey struct {
	tableID uint32
	name    string
}

// NewColumnRegistry creates an empty column registry.
func NewColumnRegistry() *ColumnRegistry {
	return &ColumnRegistry{
		byID:           make(map[uint64]*ColumnRecord),
		byTableAndName: make(map[columnNameKey]*ColumnRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *ColumnRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *ColumnRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id or duplicate column name
// within the same table.
func (r *ColumnRegistry) Insert(record ColumnRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	key := columnNameKey{tableID: record.TableID, name: record.Name}
	if _, ok := r.byTableAndName[key]; ok {
		return ErrDuplicateName
	}
	stored := record
	r.byID[record.ID] = &stored
	r.byTableAndName[key] = &stored
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *ColumnRegistry) FindByID(id uint64) (ColumnRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		return *rec, true
	}
	return ColumnRecord{}, false
}

// FindByTableAndName returns a snapshot of the named column of a table.
func (r *ColumnRegistry) FindByTableAndName(tableID uint32, name string) (ColumnRecord, bool) {
	if rec, ok := r.byTableAndName[columnNameKey{tableID: tableID, name: name}]; ok {
		return *rec, true
	}
	return ColumnRecord{}, false
}

// Replace updates the record with record.ID in place, refreshing the name
// index.
func (r *ColumnRegistry) Replace(record ColumnRecord) error {
	old, ok := r.byID[record.ID]
	if !ok {
		return ErrNotFound
	}
	oldKey := columnNameKey{tableID: old.TableID, name: old.Name}
	newKey := columnNameKey{tableID: record.TableID, name: record.Name}
	if oldKey != newKey {
		if _, taken := r.byTableAndName[newKey]; taken {
			return ErrDuplicateName
		}
		delete(r.byTableAndName, oldKey)
		r.byTableAndName[newKey] = old
	}
	*old = record
	return nil
}

// All returns all records ordered by id.
func (r *ColumnRegistry) All() []ColumnRecord {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ColumnRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.byID[id])
	}
	return out
}
