package dbengine

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govindnetworks/siodb/server/conf"
	"github.com/govindnetworks/siodb/server/iomgr/crypto"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	"github.com/govindnetworks/siodb/server/iomgr/expr"
	"github.com/govindnetworks/siodb/util"
)

func newTestOptions(t *testing.T, dataDir, cipherID string) *conf.SiodbOptions {
	t.Helper()
	opts := conf.NewSiodbOptions()
	opts.General.Name = "testinst"
	opts.General.DataDirectory = dataDir
	opts.Encryption.DefaultCipherID = cipherID
	opts.Encryption.SystemDbCipherID = cipherID
	return opts
}

func newTestInstance(t *testing.T, cipherID string) *Instance {
	t.Helper()
	instance, err := NewInstance(newTestOptions(t, t.TempDir(), cipherID))
	require.NoError(t, err)
	return instance
}

func newTestDatabase(t *testing.T, instance *Instance, name string) *Database {
	t.Helper()
	db, err := instance.CreateDatabase(name, crypto.NoCipherID, nil, SuperUserID)
	require.NoError(t, err)
	return db
}

func int32Column(name string) ColumnSpecification {
	return ColumnSpecification{Name: name, DataType: reg.ColumnDataTypeInt32}
}

func TestComputeDatabaseUUID(t *testing.T) {
	u := ComputeDatabaseUUID("shop", 1700000000)
	assert.Equal(t, "5761fa7a-e748-029e-5746-8ac96cbb9309", u.String())

	// Name and timestamp both matter.
	assert.NotEqual(t, u, ComputeDatabaseUUID("shop", 1700000001))
	assert.NotEqual(t, u, ComputeDatabaseUUID("shop2", 1700000000))
}

func TestDatabaseBootstrap(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	assert.Equal(t, ComputeDatabaseUUID("shop", db.createTimestamp), db.UUID())
	assert.Equal(t, filepath.Join(instance.DataDir(),
		DatabaseDataDirPrefix+db.UUID().String()), db.DataDir())

	for _, fileName := range []string{InitializationFlagFileName, MetadataFileName, SystemObjectsFileName} {
		exists, err := util.PathExists(filepath.Join(db.DataDir(), fileName))
		require.NoError(t, err)
		assert.True(t, exists, "missing %s", fileName)
	}

	// All system tables are present and loadable.
	for _, name := range systemTableNames {
		table, err := db.GetTableChecked(name)
		require.NoError(t, err)
		assert.True(t, table.IsSystemTable())
		assert.True(t, IsSystemObjectID(uint64(table.ID())))
		require.NotNil(t, table.MasterColumn())
		assert.Equal(t, MasterColumnName, table.MasterColumn().Name())
	}

	// The metadata file is mapped and serves transaction ids.
	assert.Equal(t, SuperUserID, db.metadata.SuperUserID())

	// Creating the same database again is rejected.
	_, err := instance.CreateDatabase("shop", crypto.NoCipherID, nil, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeDatabaseAlreadyExists))
}

func TestCreateUserTable(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a"), int32Column("b")}, SuperUserID)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, table.ID(), FirstUserTableID)
	assert.False(t, table.IsSystemTable())

	// Master column first, user columns in declaration order.
	columns := table.Columns()
	require.Len(t, columns, 3)
	assert.Equal(t, MasterColumnName, columns[0].Name())
	assert.Equal(t, "a", columns[1].Name())
	assert.Equal(t, "b", columns[2].Name())
	assert.True(t, columns[0].IsMasterColumn())

	// The column set is closed and registered.
	cs := table.CurrentColumnSet()
	assert.False(t, cs.IsOpen())
	record, err := db.GetColumnSetRecord(cs.ID())
	require.NoError(t, err)
	assert.Len(t, record.Columns, 3)

	// Lookup by name and by id yield the same handle.
	byName, err := db.GetTableChecked("t1")
	require.NoError(t, err)
	byID, err := db.GetTableCheckedByID(table.ID())
	require.NoError(t, err)
	assert.Same(t, byName, byID)

	_, err = db.GetTableChecked("missing")
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeTableDoesNotExist))

	// Duplicate table name is rejected.
	_, err = db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeTableAlreadyExists))
}

func TestCreateUserTableTypeNotSupported(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	_, err := db.CreateUserTable("t1", reg.TableTypeMemory,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeTableTypeNotSupported))
}

func TestCreateUserTableDuplicateColumnName(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	tablesBefore := db.sysObjects.Tables.Len()
	columnsBefore := db.sysObjects.Columns.Len()

	_, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a"), int32Column("a")}, SuperUserID)
	require.Error(t, err)

	var compound *CompoundError
	require.ErrorAs(t, err, &compound)
	records := compound.ErrorsWithCode(ErrorCodeCreateTableDuplicateColumnName)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Message, "'a'")

	// All-or-nothing: nothing is observable in any registry afterwards.
	_, err = db.GetTableChecked("t1")
	assert.True(t, IsError(err, ErrorCodeTableDoesNotExist))
	assert.Equal(t, tablesBefore, db.sysObjects.Tables.Len())
	assert.Equal(t, columnsBefore, db.sysObjects.Columns.Len())
}

func TestCreateUserTableDuplicateConstraintKind(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	notNull := func() ColumnConstraintSpecification {
		return ColumnConstraintSpecification{
			Type:       reg.ConstraintTypeNotNull,
			Expression: expr.NewConstant(expr.Bool(true)),
		}
	}
	spec := ColumnSpecification{
		Name:        "b",
		DataType:    reg.ColumnDataTypeInt32,
		Constraints: []ColumnConstraintSpecification{notNull(), notNull()},
	}

	_, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{spec}, SuperUserID)
	require.Error(t, err)

	var compound *CompoundError
	require.ErrorAs(t, err, &compound)
	records := compound.ErrorsWithCode(ErrorCodeCreateTableDuplicateColumnConstraintType)
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Message, "NOT NULL")
	assert.Contains(t, records[0].Message, "'b'")
}

func TestCreateUserTableInvalidNames(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	_, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("1bad"), int32Column("ok")}, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeInvalidColumnName))

	badConstraint := ColumnSpecification{
		Name:     "a",
		DataType: reg.ColumnDataTypeInt32,
		Constraints: []ColumnConstraintSpecification{{
			Name:       "bad name",
			Type:       reg.ConstraintTypeNotNull,
			Expression: expr.NewConstant(expr.Bool(true)),
		}},
	}
	_, err = db.CreateUserTable("t2", reg.TableTypeDisk,
		[]ColumnSpecification{badConstraint}, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeInvalidConstraintName))
}

func TestCreateUserTableAccumulatesErrorsInOrder(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	_, err := db.CreateUserTable("t1", reg.TableTypeDisk, []ColumnSpecification{
		int32Column("1bad"),
		int32Column("a"),
		int32Column("a"),
	}, SuperUserID)
	require.Error(t, err)

	var compound *CompoundError
	require.ErrorAs(t, err, &compound)
	require.Len(t, compound.Errors, 2)
	assert.Equal(t, ErrorCodeInvalidColumnName, compound.Errors[0].Code)
	assert.Equal(t, ErrorCodeCreateTableDuplicateColumnName, compound.Errors[1].Code)
}

func defaultValueSpec(column string, value int64) ColumnSpecification {
	return ColumnSpecification{
		Name:     column,
		DataType: reg.ColumnDataTypeInt32,
		Constraints: []ColumnConstraintSpecification{{
			Type:       reg.ConstraintTypeDefaultValue,
			Expression: expr.NewConstant(expr.Int64(value)),
		}},
	}
}

func TestConstraintDefinitionDeduplication(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	_, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{defaultValueSpec("c", 0)}, SuperUserID)
	require.NoError(t, err)
	_, err = db.CreateUserTable("t2", reg.TableTypeDisk,
		[]ColumnSpecification{defaultValueSpec("d", 0)}, SuperUserID)
	require.NoError(t, err)

	// Exactly one definition with the content hash exists.
	serialized := expr.Serialize(expr.NewConstant(expr.Int64(0)))
	hash := reg.ComputeConstraintDefinitionHash(reg.ConstraintTypeDefaultValue, serialized)
	rows := db.sysObjects.ConstraintDefinitions.EqualRangeByHash(hash)
	require.Len(t, rows, 1)

	// Both constraints share its id.
	c1, ok := db.sysObjects.Constraints.FindByName("t1_c_DEFAULT_1")
	require.True(t, ok)
	c2, ok := db.sysObjects.Constraints.FindByName("t2_d_DEFAULT_1")
	require.True(t, ok)
	assert.Equal(t, rows[0].ID, c1.ConstraintDefinitionID)
	assert.Equal(t, rows[0].ID, c2.ConstraintDefinitionID)
}

func TestFindOrCreateConstraintDefinition(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	serialized := expr.Serialize(expr.NewConstant(expr.Int64(42)))

	first, existing, err := db.FindOrCreateConstraintDefinition(
		false, reg.ConstraintTypeDefaultValue, serialized)
	require.NoError(t, err)
	assert.False(t, existing)

	second, existing, err := db.FindOrCreateConstraintDefinition(
		false, reg.ConstraintTypeDefaultValue, serialized)
	require.NoError(t, err)
	assert.True(t, existing)
	assert.Equal(t, first.ID(), second.ID())

	// The system partition gets its own definition for the same content.
	system, existing, err := db.FindOrCreateConstraintDefinition(
		true, reg.ConstraintTypeDefaultValue, serialized)
	require.NoError(t, err)
	assert.False(t, existing)
	assert.NotEqual(t, first.ID(), system.ID())
	assert.True(t, system.IsSystem())
	assert.False(t, first.IsSystem())

	// Round-trip: the restored expression hashes identically.
	restored, err := expr.Deserialize(first.SerializedExpression())
	require.NoError(t, err)
	assert.Equal(t, first.Hash(),
		reg.ComputeConstraintDefinitionHash(first.Type(), expr.Serialize(restored)))

	// Lookup by id goes through the cache.
	byID, err := db.GetConstraintDefinitionChecked(first.ID())
	require.NoError(t, err)
	assert.Equal(t, first.ID(), byID.ID())

	_, err = db.GetConstraintDefinitionChecked(999999)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeConstraintDefinitionDoesNotExist))
}

func TestIDAllocationMonotonicAndPartitioned(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	db.mutex.Lock()
	var lastSystem, lastUser uint64
	for i := 0; i < 16; i++ {
		systemID := db.generateNextColumnID(true)
		userID := db.generateNextColumnID(false)
		assert.Greater(t, systemID, lastSystem)
		assert.Greater(t, userID, lastUser)
		assert.Less(t, systemID, FirstUserObjectID)
		assert.GreaterOrEqual(t, userID, FirstUserObjectID)
		lastSystem, lastUser = systemID, userID
	}
	db.mutex.Unlock()

	// Table ids follow the same discipline.
	t1, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.NoError(t, err)
	t2, err := db.CreateUserTable("t2", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.NoError(t, err)
	assert.Greater(t, t2.ID(), t1.ID())
	assert.GreaterOrEqual(t, t1.ID(), FirstUserTableID)
}

func TestGetLatestColumnDefinitionIDForColumn(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.NoError(t, err)

	column, ok := table.FindColumn("a")
	require.True(t, ok)

	latest, err := db.GetLatestColumnDefinitionIDForColumn(table.ID(), column.ID())
	require.NoError(t, err)
	assert.Equal(t, column.CurrentColumnDefinition().ID(), latest)

	// A newer definition of the same column wins.
	newerID := latest + 100
	require.NoError(t, db.sysObjects.ColumnDefinitions.Insert(reg.ColumnDefinitionRecord{
		ID:       newerID,
		ColumnID: column.ID(),
	}))
	latest, err = db.GetLatestColumnDefinitionIDForColumn(table.ID(), column.ID())
	require.NoError(t, err)
	assert.Equal(t, newerID, latest)

	// Absence is an error.
	_, err = db.GetLatestColumnDefinitionIDForColumn(table.ID(), 999999)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeMissingColumnDefinitionsForColumn))
}

func TestAddUserColumn(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.NoError(t, err)
	firstColumnSetID := table.CurrentColumnSet().ID()

	column, err := db.AddUserColumn("t1", int32Column("b"), SuperUserID)
	require.NoError(t, err)
	assert.Equal(t, "b", column.Name())

	// The schema change produced a new, closed column set.
	assert.NotEqual(t, firstColumnSetID, table.CurrentColumnSet().ID())
	assert.False(t, table.CurrentColumnSet().IsOpen())
	record, ok := db.sysObjects.Tables.FindByName("t1")
	require.True(t, ok)
	assert.Equal(t, table.CurrentColumnSet().ID(), record.CurrentColumnSetID)

	csRecord, err := db.GetColumnSetRecord(record.CurrentColumnSetID)
	require.NoError(t, err)
	assert.Len(t, csRecord.Columns, 3)

	_, err = db.AddUserColumn("t1", int32Column("b"), SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeCreateTableDuplicateColumnName))

	_, err = db.AddUserColumn("missing", int32Column("c"), SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeTableDoesNotExist))
}

func TestCreateConstraintValidation(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")
	db2 := newTestDatabase(t, instance, "other")

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.NoError(t, err)
	column, _ := table.FindColumn("a")

	definition, _, err := db.CreateConstraintDefinition(
		false, reg.ConstraintTypeNotNull, expr.NewConstant(expr.Bool(true)))
	require.NoError(t, err)

	constraint, err := db.CreateConstraint(table, column, "c1", definition)
	require.NoError(t, err)
	assert.Equal(t, "c1", constraint.Name())
	assert.Equal(t, reg.ConstraintTypeNotNull, constraint.Type())
	assert.True(t, db.IsConstraintExists("c1"))

	// The name is taken now.
	_, err = db.CreateConstraint(table, column, "c1", definition)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeConstraintAlreadyExists))

	// A foreign table is rejected.
	_, err = db2.CreateConstraint(table, column, "c2", definition)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeTableDoesNotBelongToDatabase))
}

func TestCheckConstraintType(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{defaultValueSpec("a", 1)}, SuperUserID)
	require.NoError(t, err)
	column, _ := table.FindColumn("a")

	record, ok := db.sysObjects.Constraints.FindByName("t1_a_DEFAULT_1")
	require.True(t, ok)

	require.NoError(t, db.CheckConstraintType(table, column, record,
		reg.ConstraintTypeDefaultValue))

	err = db.CheckConstraintType(table, column, record, reg.ConstraintTypeNotNull)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeColumnConstraintTypeMismatch))

	err = db.CheckConstraintType(table, nil, record, reg.ConstraintTypeNotNull)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeTableConstraintTypeMismatch))

	record.ConstraintDefinitionID = 999999
	err = db.CheckConstraintType(table, column, record, reg.ConstraintTypeNotNull)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeConstraintDefinitionDoesNotExist))
}

func TestUseCountNeverNegative(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	err := db.Release()
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeCannotReleaseUnusedDatabase))

	const goroutines = 8
	const takesPerGoroutine = 1000
	const releasesPerGoroutine = 250

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < takesPerGoroutine; j++ {
				db.Use()
			}
		}()
	}
	wg.Wait()

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < releasesPerGoroutine; j++ {
				assert.NoError(t, db.Release())
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(goroutines*(takesPerGoroutine-releasesPerGoroutine)), db.UseCount())
}

func TestCreateIndex(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a")}, SuperUserID)
	require.NoError(t, err)

	record, err := db.CreateIndex(table, "idx_t1_a", []string{"a"}, reg.IndexTypeBPlusTreeIndex)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, record.ID, FirstUserObjectID)
	require.Len(t, record.Columns, 1)

	fetched, err := db.GetIndexRecord(record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.Name, fetched.Name)

	_, err = db.GetIndexRecord(999999)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeIndexDoesNotExist))

	_, err = db.CreateIndex(table, "idx_bad", []string{"missing"}, reg.IndexTypeBPlusTreeIndex)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeColumnDoesNotExist))
}

func TestRecordGettersReportMissingObjects(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")

	_, err := db.GetColumnSetRecord(999999)
	assert.True(t, IsError(err, ErrorCodeColumnSetDoesNotExist))
	_, err = db.GetColumnRecord(999999)
	assert.True(t, IsError(err, ErrorCodeColumnDoesNotExist))
	_, err = db.GetColumnDefinitionRecord(999999)
	assert.True(t, IsError(err, ErrorCodeColumnDefinitionDoesNotExist))
	_, err = db.GetConstraintRecord(999999)
	assert.True(t, IsError(err, ErrorCodeConstraintDoesNotExist))
}

func TestDatabaseReload(t *testing.T) {
	dataDir := t.TempDir()

	options := newTestOptions(t, dataDir, "aes128")
	instance, err := NewInstance(options)
	require.NoError(t, err)

	cipherKey := bytes.Repeat([]byte{0x17}, 16)
	db, err := instance.CreateDatabase("shop", "aes128", cipherKey, SuperUserID)
	require.NoError(t, err)

	table, err := db.CreateUserTable("t1", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("a"), defaultValueSpec("b", 5)}, SuperUserID)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// A second instance over the same data directory sees everything.
	reloaded, err := NewInstance(newTestOptions(t, dataDir, "aes128"))
	require.NoError(t, err)
	assert.Equal(t, instance.UUID(), reloaded.UUID())

	db2, err := reloaded.GetDatabaseChecked("shop")
	require.NoError(t, err)
	assert.Equal(t, db.UUID(), db2.UUID())

	table2, err := db2.GetTableChecked("t1")
	require.NoError(t, err)
	assert.Equal(t, table.ID(), table2.ID())
	columnNames := make([]string, 0, len(table2.Columns()))
	for _, c := range table2.Columns() {
		columnNames = append(columnNames, c.Name())
	}
	assert.Equal(t, []string{MasterColumnName, "a", "b"}, columnNames)

	require.NoError(t, db2.CheckDataConsistency())

	// Id allocation resumes above the highest persisted id.
	table3, err := db2.CreateUserTable("t2", reg.TableTypeDisk,
		[]ColumnSpecification{int32Column("x")}, SuperUserID)
	require.NoError(t, err)
	assert.Greater(t, table3.ID(), table2.ID())

	require.NoError(t, reloaded.CheckDataConsistency())
}

func TestDropDatabase(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	db := newTestDatabase(t, instance, "shop")
	dataDir := db.DataDir()

	dropped, err := instance.DropDatabase("shop", true, SuperUserID)
	require.NoError(t, err)
	assert.True(t, dropped)

	assert.Nil(t, instance.GetDatabase("shop"))
	exists, err := util.PathExists(dataDir)
	require.NoError(t, err)
	assert.False(t, exists)

	dropped, err = instance.DropDatabase("shop", false, SuperUserID)
	require.NoError(t, err)
	assert.False(t, dropped)

	_, err = instance.DropDatabase("shop", true, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeDatabaseDoesNotExist))
}

func TestInstanceDatabaseListing(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	newTestDatabase(t, instance, "zoo")
	newTestDatabase(t, instance, "alpha")

	records := instance.DatabaseRecordsOrderedByName()
	names := make([]string, 0, len(records))
	for _, r := range records {
		names = append(names, r.Name)
	}
	assert.Equal(t, []string{SystemDatabaseName, "alpha", "zoo"}, names)
	assert.Equal(t, 3, instance.DatabaseCount())
}

func TestInvalidDatabaseName(t *testing.T) {
	instance := newTestInstance(t, crypto.NoCipherID)
	_, err := instance.CreateDatabase("bad name", crypto.NoCipherID, nil, SuperUserID)
	require.Error(t, err)
	assert.True(t, IsError(err, ErrorCodeInvalidDatabaseName))
}
