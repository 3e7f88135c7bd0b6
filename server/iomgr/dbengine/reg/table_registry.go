package reg

import (
	"sort"
)

// TableRegistry keeps table records indexed by id and by name.
type TableRegistry struct {
	byID   map[uint32]*TableRecord
	byName map[string]*TableRecord
}

// NewTableRegistry creates an empty table registry.
func NewTableRegistry() *TableRegistry {
	return &TableRegistry{
		byID:   make(map[uint32]*TableRecord),
		byName: make(map[string]*TableRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *TableRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *TableRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id or name.
func (r *TableRegistry) Insert(record TableRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := r.byName[record.Name]; ok {
		return ErrDuplicateName
	}
	stored := record
	r.byID[record.ID] = &stored
	r.byName[record.Name] = &stored
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *TableRegistry) FindByID(id uint32) (TableRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		return *rec, true
	}
	return TableRecord{}, false
}

// FindByName returns a snapshot of the record with the given name.
func (r *TableRegistry) FindByName(name string) (TableRecord, bool) {
	if rec, ok := r.byName[name]; ok {
		return *rec, true
	}
	return TableRecord{}, false
}

// ContainsName reports whether a record with the given name exists.
func (r *TableRegistry) ContainsName(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Replace updates the record with record.ID in place, refreshing the name
// index. The id must already be registered.
func (r *TableRegistry) Replace(record TableRecord) error {
	old, ok := r.byID[record.ID]
	if !ok {
		return ErrNotFound
	}
	if record.Name != old.Name {
		if _, taken := r.byName[record.Name]; taken {
			return ErrDuplicateName
		}
		delete(r.byName, old.Name)
		r.byName[record.Name] = old
	}
	*old = record
	return nil
}

// All returns all records ordered by id.
func (r *TableRegistry) All() []TableRecord {
	ids := make([]uint32, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]TableRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.byID[id])
	}
	return out
}
