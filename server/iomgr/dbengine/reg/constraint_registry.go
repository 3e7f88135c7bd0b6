package reg

import (
	"sort"
)

// ConstraintRegistry keeps constraint records indexed by id and by name.
// Constraint names are unique per database.
type ConstraintRegistry struct {
	byID   map[uint64]*ConstraintRecord
	byName map[string]*ConstraintRecord
}

// NewConstraintRegistry creates an empty constraint registry.
func NewConstraintRegistry() *ConstraintRegistry {
	return &ConstraintRegistry{
		byID:   make(map[uint64]*ConstraintRecord),
		byName: make(map[string]*ConstraintRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *ConstraintRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *ConstraintRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id or name.
func (r *ConstraintRegistry) Insert(record ConstraintRecord) error {
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
func (r *ConstraintRegistry) FindByID(id uint64) (ConstraintRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		return *rec, true
	}
	return ConstraintRecord{}, false
}

// FindByName returns a snapshot of the record with the given name.
func (r *ConstraintRegistry) FindByName(name string) (ConstraintRecord, bool) {
	if rec, ok := r.byName[name]; ok {
		return *rec, true
	}
	return ConstraintRecord{}, false
}

// ContainsName reports whether a record with the given name exists.
func (r *ConstraintRegistry) ContainsName(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// Replace updates the record with record.ID in place, refreshing the name
// index.
func (r *ConstraintRegistry) Replace(record ConstraintRecord) error {
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
func (r *ConstraintRegistry) All() []ConstraintRecord {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ConstraintRecord, 0, len(ids))
	for _, id := range ids {
		out = append(out, *r.byID[id])
	}
	return out
}
