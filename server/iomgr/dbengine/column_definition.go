package dbengine

import (
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
)

// ColumnDefinition is one versioned descriptor of a column. Every schema
// mutation touching a column appends a new definition; the one with the
// greatest id is the column's latest.
type ColumnDefinition struct {
	column      *Column
	id          uint64
	columnSetID uint64
	constraints []reg.ColumnDefinitionConstraintRecord
}

// ID returns the column definition id.
func (cd *ColumnDefinition) ID() uint64 {
	return cd.id
}

// Column returns the described column.
func (cd *ColumnDefinition) Column() *Column {
	return cd.column
}

// ColumnSetID returns the column set this definition was introduced in.
func (cd *ColumnDefinition) ColumnSetID() uint64 {
	return cd.columnSetID
}

// addConstraint ties a constraint to this definition.
func (cd *ColumnDefinition) addConstraint(id uint64, constraint Constraint) {
	cd.constraints = append(cd.constraints, reg.ColumnDefinitionConstraintRecord{
		ID:                 id,
		ColumnDefinitionID: cd.id,
		ConstraintID:       constraint.ID(),
	})
}

// Record returns the registry row of the column definition.
func (cd *ColumnDefinition) Record() reg.ColumnDefinitionRecord {
	return reg.ColumnDefinitionRecord{
		ID:          cd.id,
		ColumnID:    cd.column.ID(),
		ColumnSetID: cd.columnSetID,
		Constraints: append([]reg.ColumnDefinitionConstraintRecord(nil), cd.constraints...),
	}
}
