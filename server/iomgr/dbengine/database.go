package dbengine

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/govindnetworks/siodb/logger"
	"github.com/govindnetworks/siodb/server/iomgr/crypto"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/cache"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	"github.com/govindnetworks/siodb/server/iomgr/expr"
)

// databaseState tracks the database lifecycle.
type databaseState int

const (
	databaseStateFresh databaseState = iota
	databaseStateInitialized
	databaseStateClosed
)

// Database owns the per-database catalog: registries, object caches, the
// mutex guarding them, the data directory, the encryption contexts and the
// system table handles.
//
// Exported methods take the database mutex; unexported ones assume it is
// held. The use count is an atomic updated by CAS and is not covered by
// the mutex.
type Database struct {
	instance        *Instance
	id              uint32
	uuid            uuid.UUID
	name            string
	dataDir         string
	createTimestamp int64

	cipher            crypto.Cipher
	cipherKey         []byte
	encryptionContext crypto.CipherContext
	decryptionContext crypto.CipherContext

	mutex    sync.Mutex
	useCount atomic.Uint64
	state    databaseState

	sysObjects                *reg.SystemObjects
	tableCache                *cache.LRU
	constraintDefinitionCache *cache.LRU
	tmpTridCounters           tmpTridCounters
	metadata                  *DatabaseMetadata

	sysTablesTable               *Table
	sysDummyTable                *Table
	sysColumnSetsTable           *Table
	sysColumnsTable              *Table
	sysColumnDefsTable           *Table
	sysColumnSetColumnsTable     *Table
	sysConstraintDefsTable       *Table
	sysConstraintsTable          *Table
	sysColumnDefConstraintsTable *Table
	sysIndicesTable              *Table
	sysIndexColumnsTable         *Table
}

// ID returns the database id.
func (db *Database) ID() uint32 {
	return db.id
}

// UUID returns the database UUID.
func (db *Database) UUID() uuid.UUID {
	return db.uuid
}

// Name returns the database name.
func (db *Database) Name() string {
	return db.name
}

// DataDir returns the database data directory path.
func (db *Database) DataDir() string {
	return db.dataDir
}

// DisplayName returns the quoted database name for diagnostics.
func (db *Database) DisplayName() string {
	return fmt.Sprintf("'%s'", db.name)
}

// IsSystemDatabase reports whether this is the instance's system database.
func (db *Database) IsSystemDatabase() bool {
	return db.name == SystemDatabaseName
}

// Record returns the registry row of the database.
func (db *Database) Record() reg.DatabaseRecord {
	return reg.DatabaseRecord{
		ID:        db.id,
		UUID:      db.uuid,
		Name:      db.name,
		CipherID:  db.cipherID(),
		CipherKey: db.cipherKey,
	}
}

func (db *Database) cipherID() string {
	if db.cipher == nil {
		return crypto.NoCipherID
	}
	return db.cipher.CipherID()
}

// Use takes a handle on the database, incrementing the use count.
func (db *Database) Use() {
	db.useCount.Add(1)
}

// UseCount returns the current use count.
func (db *Database) UseCount() uint64 {
	return db.useCount.Load()
}

// Release drops one handle. Releasing an unused database is a caller error
// and is reported, never silently accepted.
func (db *Database) Release() error {
	for {
		useCount := db.useCount.Load()
		if useCount == 0 {
			return newError(ErrorCodeCannotReleaseUnusedDatabase,
				"cannot release unused database %s (%s)", db.DisplayName(), db.uuid)
		}
		if db.useCount.CompareAndSwap(useCount, useCount-1) {
			return nil
		}
	}
}

// --- table access ---

// GetTableChecked returns the named table or fails when it does not exist.
func (db *Database) GetTableChecked(tableName string) (*Table, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if table := db.getTable(tableName); table != nil {
		return table, nil
	}
	return nil, newError(ErrorCodeTableDoesNotExist,
		"table '%s'.'%s' does not exist", db.name, tableName)
}

// GetTableCheckedByID returns the table with the given id or fails when it
// does not exist.
func (db *Database) GetTableCheckedByID(tableID uint32) (*Table, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if table := db.getTableByID(tableID); table != nil {
		return table, nil
	}
	return nil, newError(ErrorCodeTableDoesNotExist,
		"table #%d of database '%s' does not exist", tableID, db.name)
}

func (db *Database) getTable(tableName string) *Table {
	record, ok := db.sysObjects.Tables.FindByName(tableName)
	if !ok {
		return nil
	}
	return db.materializeTable(record)
}

func (db *Database) getTableByID(tableID uint32) *Table {
	record, ok := db.sysObjects.Tables.FindByID(tableID)
	if !ok {
		return nil
	}
	return db.materializeTable(record)
}

func (db *Database) materializeTable(record reg.TableRecord) *Table {
	if cached, ok := db.tableCache.Get(uint64(record.ID)); ok {
		return cached.(*Table)
	}
	table, err := db.loadTable(record)
	if err != nil {
		logger.Errorf("Database %s: cannot load table '%s': %v", db.DisplayName(), record.Name, err)
		return nil
	}
	db.tableCache.Emplace(uint64(table.ID()), table)
	return table
}

// --- constraint definitions ---

// CreateConstraintDefinition returns a definition for (type, expression),
// reusing an existing content-identical definition in the matching id
// partition. The second result reports whether an existing definition was
// reused.
func (db *Database) CreateConstraintDefinition(system bool,
	constraintType reg.ConstraintType, expression expr.Expression) (*ConstraintDefinition, bool, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.createConstraintDefinition(system, constraintType, expression)
}

// FindOrCreateConstraintDefinition resolves a definition from its
// serialized expression bytes, creating it when no content-identical
// definition exists in the matching id partition.
func (db *Database) FindOrCreateConstraintDefinition(system bool,
	constraintType reg.ConstraintType, serializedExpression []byte) (*ConstraintDefinition, bool, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	expression, err := expr.Deserialize(serializedExpression)
	if err != nil {
		return nil, false, err
	}
	return db.findOrCreateConstraintDefinition(system, constraintType, expression)
}

// GetConstraintDefinitionChecked returns the definition with the given id
// or fails when it does not exist.
func (db *Database) GetConstraintDefinitionChecked(constraintDefinitionID uint64) (*ConstraintDefinition, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if cd := db.getConstraintDefinition(constraintDefinitionID); cd != nil {
		return cd, nil
	}
	return nil, newError(ErrorCodeConstraintDefinitionDoesNotExist,
		"constraint definition #%d does not exist in database %s",
		constraintDefinitionID, db.DisplayName())
}

func (db *Database) getConstraintDefinition(constraintDefinitionID uint64) *ConstraintDefinition {
	record, ok := db.sysObjects.ConstraintDefinitions.FindByID(constraintDefinitionID)
	if !ok {
		return nil
	}
	if cached, ok := db.constraintDefinitionCache.Get(record.ID); ok {
		return cached.(*ConstraintDefinition)
	}
	cd, err := loadConstraintDefinition(db, record)
	if err != nil {
		logger.Errorf("Database %s: cannot load constraint definition #%d: %v",
			db.DisplayName(), record.ID, err)
		return nil
	}
	db.constraintDefinitionCache.Emplace(cd.ID(), cd)
	return cd
}

// createConstraintDefinition deduplicates by content against the matching
// partition, creating and registering a fresh definition on miss.
func (db *Database) createConstraintDefinition(system bool,
	constraintType reg.ConstraintType, expression expr.Expression) (*ConstraintDefinition, bool, error) {
	return db.findOrCreateConstraintDefinition(system, constraintType, expression)
}

func (db *Database) findOrCreateConstraintDefinition(system bool,
	constraintType reg.ConstraintType, expression expr.Expression) (*ConstraintDefinition, bool, error) {
	serialized := expr.Serialize(expression)
	hash := reg.ComputeConstraintDefinitionHash(constraintType, serialized)
	probe := reg.ConstraintDefinitionRecord{Type: constraintType, Expression: serialized, Hash: hash}
	for _, row := range db.sysObjects.ConstraintDefinitions.EqualRangeByHash(hash) {
		row := row
		if IsSystemObjectID(row.ID) != system {
			continue
		}
		if !row.IsEqualDefinition(&probe) {
			continue
		}
		// Matching definition found.
		if cached, ok := db.constraintDefinitionCache.Get(row.ID); ok {
			return cached.(*ConstraintDefinition), true, nil
		}
		cd, err := loadConstraintDefinition(db, row)
		if err != nil {
			return nil, false, err
		}
		db.constraintDefinitionCache.Emplace(cd.ID(), cd)
		return cd, true, nil
	}

	// No matching definition, create a new one.
	cd := newConstraintDefinition(system, db, constraintType, expression)
	if err := db.sysObjects.ConstraintDefinitions.Insert(cd.Record()); err != nil {
		return nil, false, err
	}
	db.constraintDefinitionCache.Emplace(cd.ID(), cd)
	return cd, false, nil
}

// --- constraints ---

// CreateConstraint builds a typed constraint bound to column (nil for a
// table-level constraint) and registers it under the given name.
func (db *Database) CreateConstraint(table *Table, column *Column, name string,
	definition *ConstraintDefinition) (Constraint, error) {
	if err := db.checkTableBelongsToThisDatabase(table, "CreateConstraint"); err != nil {
		return nil, err
	}
	if column != nil {
		if err := table.checkColumnBelongsToTable(column, "CreateConstraint"); err != nil {
			return nil, err
		}
	}
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.createConstraint(table, column, name, definition)
}

func (db *Database) createConstraint(table *Table, column *Column, name string,
	definition *ConstraintDefinition) (Constraint, error) {
	if db.sysObjects.Constraints.ContainsName(name) {
		return nil, newError(ErrorCodeConstraintAlreadyExists,
			"constraint '%s' already exists in database %s", name, db.DisplayName())
	}

	var constraint Constraint
	base := newConstraintBase(table, column, name, definition, table.system)
	switch definition.Type() {
	case reg.ConstraintTypeNotNull:
		constraint = &NotNullConstraint{constraintBase: base}
	case reg.ConstraintTypeDefaultValue:
		constraint = &DefaultValueConstraint{constraintBase: base}
	default:
		return nil, newError(ErrorCodeConstraintNotSupported,
			"constraint definition #%d of database %s (%s) has unsupported type %d",
			definition.ID(), db.DisplayName(), db.uuid, definition.Type())
	}

	if err := db.sysObjects.Constraints.Insert(constraint.Record()); err != nil {
		return nil, err
	}
	return constraint, nil
}

// CheckConstraintType verifies that a registered constraint has the
// expected kind before it is bound to a column or table operation.
func (db *Database) CheckConstraintType(table *Table, column *Column,
	constraintRecord reg.ConstraintRecord, expectedType reg.ConstraintType) error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	definition, ok := db.sysObjects.ConstraintDefinitions.FindByID(
		constraintRecord.ConstraintDefinitionID)
	if !ok {
		return newError(ErrorCodeConstraintDefinitionDoesNotExist,
			"constraint definition #%d does not exist in database %s",
			constraintRecord.ConstraintDefinitionID, db.DisplayName())
	}
	if definition.Type == expectedType {
		return nil
	}
	if column != nil {
		return newError(ErrorCodeColumnConstraintTypeMismatch,
			"constraint '%s' on column '%s'.'%s'.'%s' has type %s, expected %s",
			constraintRecord.Name, db.name, table.Name(), column.Name(),
			definition.Type.Name(), expectedType.Name())
	}
	return newError(ErrorCodeTableConstraintTypeMismatch,
		"constraint '%s' on table '%s'.'%s' has type %s, expected %s",
		constraintRecord.Name, db.name, table.Name(),
		definition.Type.Name(), expectedType.Name())
}

// IsConstraintExists reports whether a constraint with the given name
// exists in this database.
func (db *Database) IsConstraintExists(constraintName string) bool {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.sysObjects.Constraints.ContainsName(constraintName)
}

// generateConstraintName builds a deterministic name for an unnamed
// constraint that does not collide with any registered constraint.
func (db *Database) generateConstraintName(table *Table, column *Column,
	constraintType reg.ConstraintType) string {
	var token string
	switch constraintType {
	case reg.ConstraintTypeNotNull:
		token = "NOTNULL"
	case reg.ConstraintTypeDefaultValue:
		token = "DEFAULT"
	default:
		token = "CONSTRAINT"
	}
	for n := 1; ; n++ {
		name := fmt.Sprintf("%s_%s_%s_%d", table.Name(), column.Name(), token, n)
		if !db.sysObjects.Constraints.ContainsName(name) {
			return name
		}
	}
}

// CreateIndex registers an index over the given columns of a table.
func (db *Database) CreateIndex(table *Table, name string, columnNames []string,
	indexType reg.IndexType) (reg.IndexRecord, error) {
	if err := db.checkTableBelongsToThisDatabase(table, "CreateIndex"); err != nil {
		return reg.IndexRecord{}, err
	}

	db.mutex.Lock()
	defer db.mutex.Unlock()

	record := reg.IndexRecord{
		ID:      db.generateNextIndexID(table.system),
		Type:    indexType,
		TableID: table.ID(),
		Name:    name,
	}
	for _, columnName := range columnNames {
		column, ok := table.FindColumn(columnName)
		if !ok {
			return reg.IndexRecord{}, newError(ErrorCodeColumnDoesNotExist,
				"column '%s' does not exist in table %s", columnName, table.DisplayName())
		}
		record.Columns = append(record.Columns, reg.IndexColumnRecord{
			ID:                 db.generateNextIndexColumnID(table.system),
			IndexID:            record.ID,
			ColumnDefinitionID: column.CurrentColumnDefinition().ID(),
		})
	}
	if err := db.sysObjects.Indices.Insert(record); err != nil {
		return reg.IndexRecord{}, err
	}
	return record, nil
}

// --- record getters ---

// GetColumnSetRecord returns a snapshot of the column set row.
func (db *Database) GetColumnSetRecord(columnSetID uint64) (reg.ColumnSetRecord, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	record, ok := db.sysObjects.ColumnSets.FindByID(columnSetID)
	if !ok {
		return reg.ColumnSetRecord{}, newError(ErrorCodeColumnSetDoesNotExist,
			"column set #%d does not exist in database %s", columnSetID, db.DisplayName())
	}
	return record, nil
}

// GetColumnRecord returns a snapshot of the column row.
func (db *Database) GetColumnRecord(columnID uint64) (reg.ColumnRecord, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	record, ok := db.sysObjects.Columns.FindByID(columnID)
	if !ok {
		return reg.ColumnRecord{}, newError(ErrorCodeColumnDoesNotExist,
			"column #%d does not exist in database %s", columnID, db.DisplayName())
	}
	return record, nil
}

// GetColumnDefinitionRecord returns a snapshot of the column definition row.
func (db *Database) GetColumnDefinitionRecord(columnDefinitionID uint64) (reg.ColumnDefinitionRecord, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	record, ok := db.sysObjects.ColumnDefinitions.FindByID(columnDefinitionID)
	if !ok {
		return reg.ColumnDefinitionRecord{}, newError(ErrorCodeColumnDefinitionDoesNotExist,
			"column definition #%d does not exist in database %s",
			columnDefinitionID, db.DisplayName())
	}
	return record, nil
}

// GetConstraintRecord returns a snapshot of the constraint row.
func (db *Database) GetConstraintRecord(constraintID uint64) (reg.ConstraintRecord, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	record, ok := db.sysObjects.Constraints.FindByID(constraintID)
	if !ok {
		return reg.ConstraintRecord{}, newError(ErrorCodeConstraintDoesNotExist,
			"constraint #%d does not exist in database %s", constraintID, db.DisplayName())
	}
	return record, nil
}

// GetIndexRecord returns a snapshot of the index row.
func (db *Database) GetIndexRecord(indexID uint64) (reg.IndexRecord, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	record, ok := db.sysObjects.Indices.FindByID(indexID)
	if !ok {
		return reg.IndexRecord{}, newError(ErrorCodeIndexDoesNotExist,
			"index #%d does not exist in database %s", indexID, db.DisplayName())
	}
	return record, nil
}

// GetLatestColumnDefinitionIDForColumn returns the greatest column
// definition id among rows of the given column.
func (db *Database) GetLatestColumnDefinitionIDForColumn(tableID uint32, columnID uint64) (uint64, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if id, ok := db.sysObjects.ColumnDefinitions.LastDefinitionIDForColumn(columnID); ok {
		return id, nil
	}
	return 0, newError(ErrorCodeMissingColumnDefinitionsForColumn,
		"missing column definitions for column #%d of table #%d in database %s (%s)",
		columnID, tableID, db.DisplayName(), db.uuid)
}

// --- registration (unexported: mutex held) ---

func (db *Database) registerColumn(column *Column) error {
	return db.sysObjects.Columns.Insert(column.Record())
}

func (db *Database) registerColumnDefinition(columnDefinition *ColumnDefinition) error {
	return db.sysObjects.ColumnDefinitions.Insert(columnDefinition.Record())
}

func (db *Database) registerColumnSet(columnSet *ColumnSet) error {
	return db.sysObjects.ColumnSets.Insert(columnSet.Record())
}

// updateColumnSetRegistration refreshes the registered row of a column set
// after it changed.
func (db *Database) updateColumnSetRegistration(columnSet *ColumnSet) error {
	if err := db.sysObjects.ColumnSets.Replace(columnSet.Record()); err != nil {
		return newError(ErrorCodeColumnSetDoesNotExist,
			"column set #%d does not exist in database %s", columnSet.ID(), db.DisplayName())
	}
	return nil
}

// updateColumnDefinitionRegistration refreshes the registered row of a
// column definition after it changed.
func (db *Database) updateColumnDefinitionRegistration(columnDefinition *ColumnDefinition) error {
	if err := db.sysObjects.ColumnDefinitions.Replace(columnDefinition.Record()); err != nil {
		return newError(ErrorCodeColumnDefinitionDoesNotExist,
			"column definition #%d does not exist in database %s",
			columnDefinition.ID(), db.DisplayName())
	}
	return nil
}

// --- id generation ---

func (db *Database) checkTableBelongsToThisDatabase(table *Table, operationName string) error {
	if table.database != db {
		return newError(ErrorCodeTableDoesNotBelongToDatabase,
			"%s: table '%s' belongs to database '%s' (%s), not to database %s (%s)",
			operationName, table.Name(), table.DatabaseName(), table.database.uuid,
			db.DisplayName(), db.uuid)
	}
	return nil
}

func (db *Database) generateNextTableID(system bool) (uint32, error) {
	var tableID uint64
	if system {
		if db.sysTablesTable != nil {
			tableID = db.sysTablesTable.GenerateNextSystemTrid()
		} else {
			db.tmpTridCounters.lastTableID++
			tableID = db.tmpTridCounters.lastTableID
		}
	} else {
		tableID = db.sysTablesTable.GenerateNextUserTrid()
	}
	if tableID >= math.MaxUint32 {
		return 0, newError(ErrorCodeResourceExhausted,
			"database %s is out of resource: Table ID", db.DisplayName())
	}
	return uint32(tableID), nil
}

func (db *Database) generateNextColumnID(system bool) uint64 {
	if system {
		if db.sysColumnsTable != nil {
			return db.sysColumnsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastColumnID++
		return db.tmpTridCounters.lastColumnID
	}
	return db.sysColumnsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextColumnDefinitionID(system bool) uint64 {
	if system {
		if db.sysColumnDefsTable != nil {
			return db.sysColumnDefsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastColumnDefinitionID++
		return db.tmpTridCounters.lastColumnDefinitionID
	}
	return db.sysColumnDefsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextColumnSetID(system bool) uint64 {
	if system {
		if db.sysColumnSetsTable != nil {
			return db.sysColumnSetsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastColumnSetID++
		return db.tmpTridCounters.lastColumnSetID
	}
	return db.sysColumnSetsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextColumnSetColumnID(system bool) uint64 {
	if system {
		if db.sysColumnSetColumnsTable != nil {
			return db.sysColumnSetColumnsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastColumnSetColumnID++
		return db.tmpTridCounters.lastColumnSetColumnID
	}
	return db.sysColumnSetColumnsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextConstraintDefinitionID(system bool) uint64 {
	if system {
		if db.sysConstraintDefsTable != nil {
			return db.sysConstraintDefsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastConstraintDefinitionID++
		return db.tmpTridCounters.lastConstraintDefinitionID
	}
	return db.sysConstraintDefsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextConstraintID(system bool) uint64 {
	if system {
		if db.sysConstraintsTable != nil {
			return db.sysConstraintsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastConstraintID++
		return db.tmpTridCounters.lastConstraintID
	}
	return db.sysConstraintsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextColumnDefinitionConstraintID(system bool) uint64 {
	if system {
		if db.sysColumnDefConstraintsTable != nil {
			return db.sysColumnDefConstraintsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastColumnDefinitionConstraintID++
		return db.tmpTridCounters.lastColumnDefinitionConstraintID
	}
	return db.sysColumnDefConstraintsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextIndexID(system bool) uint64 {
	if system {
		if db.sysIndicesTable != nil {
			return db.sysIndicesTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastIndexID++
		return db.tmpTridCounters.lastIndexID
	}
	return db.sysIndicesTable.GenerateNextUserTrid()
}

func (db *Database) generateNextIndexColumnID(system bool) uint64 {
	if system {
		if db.sysIndexColumnsTable != nil {
			return db.sysIndexColumnsTable.GenerateNextSystemTrid()
		}
		db.tmpTridCounters.lastIndexColumnID++
		return db.tmpTridCounters.lastIndexColumnID
	}
	return db.sysIndexColumnsTable.GenerateNextUserTrid()
}

func (db *Database) generateNextTransactionID() uint64 {
	return db.metadata.GenerateNextTransactionID()
}

// --- table creation ---

// CreateTable creates a table without user-level validation. It is the path
// system tables and trusted callers use.
func (db *Database) CreateTable(name string, tableType reg.TableType, firstUserTrid uint64) (*Table, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	return db.createTable(name, tableType, firstUserTrid)
}

func (db *Database) createTable(name string, tableType reg.TableType, firstUserTrid uint64) (*Table, error) {
	if db.sysObjects.Tables.ContainsName(name) {
		return nil, newError(ErrorCodeTableAlreadyExists,
			"table '%s' already exists in database %s", name, db.DisplayName())
	}
	table, err := newTable(db, tableType, name, firstUserTrid)
	if err != nil {
		return nil, err
	}
	if err := db.sysObjects.Tables.Insert(table.Record()); err != nil {
		return nil, err
	}
	db.tableCache.Emplace(uint64(table.ID()), table)
	return table, nil
}

// CreateUserTableSimple creates a user table from condensed column
// specifications.
func (db *Database) CreateUserTableSimple(name string, tableType reg.TableType,
	columnSpecs []SimpleColumnSpecification, currentUserID uint32) (*Table, error) {
	specs := make([]ColumnSpecification, 0, len(columnSpecs))
	for _, s := range columnSpecs {
		specs = append(specs, s.Expand())
	}
	return db.CreateUserTable(name, tableType, specs, currentUserID)
}

// CreateUserTable validates a user-submitted column list and creates the
// table. Validation walks columns in input order, accumulating every error
// instead of failing fast; when anything is invalid the whole request is
// rejected with a CompoundError and no catalog mutation is visible.
func (db *Database) CreateUserTable(name string, tableType reg.TableType,
	columnSpecs []ColumnSpecification, currentUserID uint32) (*Table, error) {
	if tableType != reg.TableTypeDisk {
		return nil, newError(ErrorCodeTableTypeNotSupported,
			"table type %d is not supported", tableType)
	}

	logger.Debugf("Database %s: creating user table '%s'", db.DisplayName(), name)

	db.mutex.Lock()
	defer db.mutex.Unlock()

	if db.sysObjects.Tables.ContainsName(name) {
		return nil, newError(ErrorCodeTableAlreadyExists,
			"table '%s' already exists in database %s", name, db.DisplayName())
	}

	var validationErrors []*Error
	knownColumns := make(map[string]struct{})
	knownConstraints := make(map[string]struct{})

	for _, columnSpec := range columnSpecs {
		// Validate column name.
		if !isValidDatabaseObjectName(columnSpec.Name) {
			validationErrors = append(validationErrors, newError(ErrorCodeInvalidColumnName,
				"invalid column name '%s'", columnSpec.Name))
			continue
		}

		// Check for a duplicate column name.
		if _, seen := knownColumns[columnSpec.Name]; seen {
			validationErrors = append(validationErrors, newError(
				ErrorCodeCreateTableDuplicateColumnName,
				"duplicate column name '%s'", columnSpec.Name))
			continue
		}
		knownColumns[columnSpec.Name] = struct{}{}

		// Check constraint names for uniqueness against existing constraints
		// and each other. Empty names are assumed unique, an automatic name
		// is generated later.
		constraintCounts := make(map[reg.ConstraintType]int)
		var constraintTypeOrder []reg.ConstraintType
		for _, constraintSpec := range columnSpec.Constraints {
			if constraintCounts[constraintSpec.Type] == 0 {
				constraintTypeOrder = append(constraintTypeOrder, constraintSpec.Type)
			}
			constraintCounts[constraintSpec.Type]++
			if constraintSpec.Name == "" {
				continue
			}
			if !isValidDatabaseObjectName(constraintSpec.Name) {
				validationErrors = append(validationErrors, newError(
					ErrorCodeInvalidConstraintName,
					"invalid constraint name '%s'", constraintSpec.Name))
				continue
			}
			if _, seen := knownConstraints[constraintSpec.Name]; seen {
				validationErrors = append(validationErrors, newError(
					ErrorCodeCreateTableDuplicateConstraintName,
					"duplicate constraint name '%s'", constraintSpec.Name))
			} else {
				knownConstraints[constraintSpec.Name] = struct{}{}
			}
			if db.sysObjects.Constraints.ContainsName(constraintSpec.Name) {
				validationErrors = append(validationErrors, newError(
					ErrorCodeConstraintAlreadyExists,
					"constraint '%s' already exists in database %s",
					constraintSpec.Name, db.DisplayName()))
			}
		}

		// Each constraint type may appear at most once per column.
		for _, constraintType := range constraintTypeOrder {
			if constraintCounts[constraintType] > 1 {
				validationErrors = append(validationErrors, newError(
					ErrorCodeCreateTableDuplicateColumnConstraintType,
					"duplicate %s constraint on column '%s'",
					constraintType.Name(), columnSpec.Name))
			}
		}
	}

	if len(validationErrors) > 0 {
		return nil, &CompoundError{Errors: validationErrors}
	}

	table, err := db.createTable(name, tableType, 0)
	if err != nil {
		return nil, err
	}

	for _, columnSpec := range columnSpecs {
		if _, err := table.createColumn(columnSpec); err != nil {
			return nil, err
		}
	}

	if err := table.closeCurrentColumnSet(); err != nil {
		return nil, err
	}

	tp := TransactionParameters{
		UserID:        currentUserID,
		TransactionID: db.generateNextTransactionID(),
	}
	if err := db.recordTableDefinition(table, tp); err != nil {
		return nil, err
	}

	return table, nil
}

// AddUserColumn appends a column to an existing user table, producing a new
// schema version with a new column set.
func (db *Database) AddUserColumn(tableName string, columnSpec ColumnSpecification,
	currentUserID uint32) (*Column, error) {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	table := db.getTable(tableName)
	if table == nil {
		return nil, newError(ErrorCodeTableDoesNotExist,
			"table '%s'.'%s' does not exist", db.name, tableName)
	}
	if !isValidDatabaseObjectName(columnSpec.Name) {
		return nil, newError(ErrorCodeInvalidColumnName,
			"invalid column name '%s'", columnSpec.Name)
	}
	if _, exists := table.FindColumn(columnSpec.Name); exists {
		return nil, newError(ErrorCodeCreateTableDuplicateColumnName,
			"duplicate column name '%s'", columnSpec.Name)
	}
	for _, constraintSpec := range columnSpec.Constraints {
		if constraintSpec.Name == "" {
			continue
		}
		if !isValidDatabaseObjectName(constraintSpec.Name) {
			return nil, newError(ErrorCodeInvalidConstraintName,
				"invalid constraint name '%s'", constraintSpec.Name)
		}
		if db.sysObjects.Constraints.ContainsName(constraintSpec.Name) {
			return nil, newError(ErrorCodeConstraintAlreadyExists,
				"constraint '%s' already exists in database %s",
				constraintSpec.Name, db.DisplayName())
		}
	}

	if _, err := table.openNewColumnSet(); err != nil {
		return nil, err
	}
	column, err := table.createColumn(columnSpec)
	if err != nil {
		return nil, err
	}
	if err := table.closeCurrentColumnSet(); err != nil {
		return nil, err
	}
	if err := db.sysObjects.Tables.Replace(table.Record()); err != nil {
		return nil, err
	}

	tp := TransactionParameters{
		UserID:        currentUserID,
		TransactionID: db.generateNextTransactionID(),
	}
	if err := db.recordTableDefinition(table, tp); err != nil {
		return nil, err
	}
	return column, nil
}
