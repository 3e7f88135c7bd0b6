package dbengine

import (
	"fmt"
	"strings"

	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	"github.com/govindnetworks/siodb/server/iomgr/expr"
)

// systemTableNamePrefix marks the catalog's own tables.
const systemTableNamePrefix = "SYS_"

func isSystemTableName(name string) bool {
	return strings.HasPrefix(name, systemTableNamePrefix)
}

// Table is a disk table of a database. A table owns its master column,
// the current column set, and the TRID sequences that system tables use
// to issue object ids.
//
// All mutating methods assume the owning database's mutex is held.
type Table struct {
	database         *Database
	id               uint32
	tableType        reg.TableType
	name             string
	system           bool
	firstUserTrid    uint64
	lastSystemTrid   uint64
	lastUserTrid     uint64
	masterColumn     *Column
	columns          []*Column
	currentColumnSet *ColumnSet
}

// newTable constructs a table with its master column and an open column
// set, and registers the column-level rows. The table row itself is
// registered by the caller.
func newTable(database *Database, tableType reg.TableType, name string, firstUserTrid uint64) (*Table, error) {
	system := isSystemTableName(name)
	id, err := database.generateNextTableID(system)
	if err != nil {
		return nil, err
	}
	if firstUserTrid == 0 {
		firstUserTrid = FirstUserObjectID
	}
	t := &Table{
		database:      database,
		id:            id,
		tableType:     tableType,
		name:          name,
		system:        system,
		firstUserTrid: firstUserTrid,
		lastUserTrid:  firstUserTrid - 1,
	}
	t.currentColumnSet = &ColumnSet{
		table: t,
		id:    database.generateNextColumnSetID(system),
		open:  true,
	}
	if err := database.registerColumnSet(t.currentColumnSet); err != nil {
		return nil, err
	}
	t.masterColumn, err = t.createColumn(ColumnSpecification{
		Name:     MasterColumnName,
		DataType: reg.ColumnDataTypeUInt64,
		Constraints: []ColumnConstraintSpecification{{
			Type:       reg.ConstraintTypeNotNull,
			Expression: expr.NewConstant(expr.Bool(true)),
		}},
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ID returns the table id.
func (t *Table) ID() uint32 {
	return t.id
}

// Name returns the table name, unique within its database.
func (t *Table) Name() string {
	return t.name
}

// Type returns the table storage kind.
func (t *Table) Type() reg.TableType {
	return t.tableType
}

// Database returns the owning database.
func (t *Table) Database() *Database {
	return t.database
}

// DatabaseName returns the owning database's name.
func (t *Table) DatabaseName() string {
	return t.database.Name()
}

// IsSystemTable reports whether this is one of the catalog's own tables.
func (t *Table) IsSystemTable() bool {
	return t.system
}

// DisplayName returns the quoted table name for diagnostics.
func (t *Table) DisplayName() string {
	return fmt.Sprintf("'%s'.'%s'", t.database.Name(), t.name)
}

// MasterColumn returns the implicit primary-identifier column.
func (t *Table) MasterColumn() *Column {
	return t.masterColumn
}

// Columns returns the table's columns in declaration order, master column
// first.
func (t *Table) Columns() []*Column {
	return t.columns
}

// FindColumn returns the named column.
func (t *Table) FindColumn(name string) (*Column, bool) {
	for _, c := range t.columns {
		if c.name == name {
			return c, true
		}
	}
	return nil, false
}

// CurrentColumnSet returns the table's current column set.
func (t *Table) CurrentColumnSet() *ColumnSet {
	return t.currentColumnSet
}

// FirstUserTrid returns the first row id of the user TRID sequence.
func (t *Table) FirstUserTrid() uint64 {
	return t.firstUserTrid
}

// GenerateNextSystemTrid issues the next row id of the system sequence.
func (t *Table) GenerateNextSystemTrid() uint64 {
	t.lastSystemTrid++
	return t.lastSystemTrid
}

// GenerateNextUserTrid issues the next row id of the user sequence.
func (t *Table) GenerateNextUserTrid() uint64 {
	t.lastUserTrid++
	return t.lastUserTrid
}

// setTridCounters positions both TRID sequences, typically after loading
// existing catalog state.
func (t *Table) setTridCounters(lastSystemTrid, lastUserTrid uint64) {
	if lastSystemTrid > t.lastSystemTrid {
		t.lastSystemTrid = lastSystemTrid
	}
	if lastUserTrid > t.lastUserTrid {
		t.lastUserTrid = lastUserTrid
	}
}

// checkColumnBelongsToTable guards operations binding a column to this
// table.
func (t *Table) checkColumnBelongsToTable(column *Column, operationName string) error {
	if column.table != t {
		return newError(ErrorCodeColumnDoesNotExist,
			"%s: column '%s' does not belong to table %s",
			operationName, column.Name(), t.DisplayName())
	}
	return nil
}

// createColumn materializes one column with its first column definition and
// the constraints requested for it, appending it to the open column set and
// registering every created row.
func (t *Table) createColumn(spec ColumnSpecification) (*Column, error) {
	column := &Column{
		table:    t,
		id:       t.database.generateNextColumnID(t.system),
		name:     spec.Name,
		dataType: spec.DataType,
	}
	if err := t.database.registerColumn(column); err != nil {
		return nil, err
	}

	columnDefinition := &ColumnDefinition{
		column:      column,
		id:          t.database.generateNextColumnDefinitionID(t.system),
		columnSetID: t.currentColumnSet.ID(),
	}

	if err := t.database.registerColumnDefinition(columnDefinition); err != nil {
		return nil, err
	}

	for _, constraintSpec := range spec.Constraints {
		name := constraintSpec.Name
		if name == "" {
			name = t.database.generateConstraintName(t, column, constraintSpec.Type)
		}
		definition, _, err := t.database.findOrCreateConstraintDefinition(
			t.system, constraintSpec.Type, constraintSpec.Expression)
		if err != nil {
			return nil, err
		}
		constraint, err := t.database.createConstraint(t, column, name, definition)
		if err != nil {
			return nil, err
		}
		columnDefinition.addConstraint(
			t.database.generateNextColumnDefinitionConstraintID(t.system), constraint)
	}
	if len(spec.Constraints) > 0 {
		if err := t.database.updateColumnDefinitionRegistration(columnDefinition); err != nil {
			return nil, err
		}
	}
	column.currentColumnDefinition = columnDefinition

	t.currentColumnSet.addColumn(
		t.database.generateNextColumnSetColumnID(t.system), columnDefinition)
	t.columns = append(t.columns, column)
	return column, nil
}

// closeCurrentColumnSet freezes the current schema version and refreshes
// its registered row with the final column list.
func (t *Table) closeCurrentColumnSet() error {
	t.currentColumnSet.close()
	return t.database.updateColumnSetRegistration(t.currentColumnSet)
}

// openNewColumnSet starts the next schema version, carrying over the
// current column memberships under fresh column set column ids.
func (t *Table) openNewColumnSet() (*ColumnSet, error) {
	cs := &ColumnSet{
		table: t,
		id:    t.database.generateNextColumnSetID(t.system),
		open:  true,
	}
	for _, c := range t.currentColumnSet.columns {
		cs.columns = append(cs.columns, reg.ColumnSetColumnRecord{
			ID:                 t.database.generateNextColumnSetColumnID(t.system),
			ColumnSetID:        cs.id,
			ColumnDefinitionID: c.ColumnDefinitionID,
			ColumnID:           c.ColumnID,
		})
	}
	if err := t.database.registerColumnSet(cs); err != nil {
		return nil, err
	}
	t.currentColumnSet = cs
	return cs, nil
}

// Record returns the registry row of the table.
func (t *Table) Record() reg.TableRecord {
	return reg.TableRecord{
		ID:                 t.id,
		Type:               t.tableType,
		Name:               t.name,
		FirstUserTrid:      t.firstUserTrid,
		CurrentColumnSetID: t.currentColumnSet.ID(),
	}
}
