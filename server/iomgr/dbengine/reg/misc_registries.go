package reg

import (
	"sort"

	"github.com/google/uuid"
)

// ColumnSetRegistry keeps column set records indexed by id.
type ColumnSetRegistry struct {
	byID map[uint64]*ColumnSetRecord
}

// NewColumnSetRegistry creates an empty column set registry.
func NewColumnSetRegistry() *ColumnSetRegistry {
	return &ColumnSetRegistry{byID: make(map[uint64]*ColumnSetRecord)}
}

// Empty reports whether the registry has no records.
func (r *ColumnSetRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *ColumnSetRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id.
func (r *ColumnSetRegistry) Insert(record ColumnSetRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	stored := record
	stored.Columns = append([]ColumnSetColumnRecord(nil), record.Columns...)
	r.byID[record.ID] = &stored
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *ColumnSetRegistry) FindByID(id uint64) (ColumnSetRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		out := *rec
		out.Columns = append([]ColumnSetColumnRecord(nil), rec.Columns...)
		return out, true
	}
	return ColumnSetRecord{}, false
}

// Replace updates the record with record.ID in place.
func (r *ColumnSetRegistry) Replace(record ColumnSetRecord) error {
	old, ok := r.byID[record.ID]
	if !ok {
		return ErrNotFound
	}
	*old = record
	old.Columns = append([]ColumnSetColumnRecord(nil), record.Columns...)
	return nil
}

// All returns all records ordered by id.
func (r *ColumnSetRegistry) All() []ColumnSetRecord {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]ColumnSetRecord, 0, len(ids))
	for _, id := range ids {
		rec, _ := r.FindByID(id)
		out = append(out, rec)
	}
	return out
}

// IndexRegistry keeps index records indexed by id and by name.
type IndexRegistry struct {
	byID   map[uint64]*IndexRecord
	byName map[string]*IndexRecord
}

// NewIndexRegistry creates an empty index registry.
func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{
		byID:   make(map[uint64]*IndexRecord),
		byName: make(map[string]*IndexRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *IndexRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *IndexRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id or name.
func (r *IndexRegistry) Insert(record IndexRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := r.byName[record.Name]; ok {
		return ErrDuplicateName
	}
	stored := record
	stored.Columns = append([]IndexColumnRecord(nil), record.Columns...)
	r.byID[record.ID] = &stored
	r.byName[record.Name] = &stored
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *IndexRegistry) FindByID(id uint64) (IndexRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		out := *rec
		out.Columns = append([]IndexColumnRecord(nil), rec.Columns...)
		return out, true
	}
	return IndexRecord{}, false
}

// All returns all records ordered by id.
func (r *IndexRegistry) All() []IndexRecord {
	ids := make([]uint64, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]IndexRecord, 0, len(ids))
	for _, id := range ids {
		rec, _ := r.FindByID(id)
		out = append(out, rec)
	}
	return out
}

// DatabaseRegistry keeps database records indexed by id, name and UUID.
type DatabaseRegistry struct {
	byID   map[uint32]*DatabaseRecord
	byName map[string]*DatabaseRecord
	byUUID map[uuid.UUID]*DatabaseRecord
}

// NewDatabaseRegistry creates an empty database registry.
func NewDatabaseRegistry() *DatabaseRegistry {
	return &DatabaseRegistry{
		byID:   make(map[uint32]*DatabaseRecord),
		byName: make(map[string]*DatabaseRecord),
		byUUID: make(map[uuid.UUID]*DatabaseRecord),
	}
}

// Empty reports whether the registry has no records.
func (r *DatabaseRegistry) Empty() bool {
	return len(r.byID) == 0
}

// Len returns the number of records.
func (r *DatabaseRegistry) Len() int {
	return len(r.byID)
}

// Insert adds a record, failing on a duplicate id or name.
func (r *DatabaseRegistry) Insert(record DatabaseRecord) error {
	if _, ok := r.byID[record.ID]; ok {
		return ErrDuplicateID
	}
	if _, ok := r.byName[record.Name]; ok {
		return ErrDuplicateName
	}
	stored := record
	r.byID[record.ID] = &stored
	r.byName[record.Name] = &stored
	r.byUUID[record.UUID] = &stored
	return nil
}

// FindByID returns a snapshot of the record with the given id.
func (r *DatabaseRegistry) FindByID(id uint32) (DatabaseRecord, bool) {
	if rec, ok := r.byID[id]; ok {
		return *rec, true
	}
	return DatabaseRecord{}, false
}

// FindByName returns a snapshot of the record with the given name.
func (r *DatabaseRegistry) FindByName(name string) (DatabaseRecord, bool) {
	if rec, ok := r.byName[name]; ok {
		return *rec, true
	}
	return DatabaseRecord{}, false
}

// ContainsName reports whether a record with the given name exists.
func (r *DatabaseRegistry) ContainsName(name string) bool {
	_, ok := r.byName[name]
	return ok
}

// AllOrderedByName returns all records ordered by name.
func (r *DatabaseRegistry) AllOrderedByName() []DatabaseRecord {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]DatabaseRecord, 0, len(names))
	for _, name := range names {
		out = append(out, *r.byName[name])
	}
	return out
}
