package dbengine

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/govindnetworks/siodb/logger"
	"github.com/govindnetworks/siodb/server/iomgr/crypto"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/cache"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	siodbio "github.com/govindnetworks/siodb/server/iomgr/io"
	"github.com/govindnetworks/siodb/util"
)

// Well-known database file and directory names.
const (
	// SystemDatabaseName is the name of the instance's system database.
	SystemDatabaseName = "SYS"

	// DatabaseDataDirPrefix prefixes per-database data directory names.
	DatabaseDataDirPrefix = "db_"

	// InitializationFlagFileName is written last during bootstrap; its
	// absence marks a recognizable partial state for cleanup.
	InitializationFlagFileName = "initialized"

	// MetadataFileName is the fixed-size mapped metadata record.
	MetadataFileName = "metadata"

	// SystemObjectsFileName is the catalog snapshot file.
	SystemObjectsFileName = "system_objects"
)

// systemTableNames lists every system table of a database in creation
// order. The order matters: each table's id is issued by SYS_TABLES once
// that table exists, and each entity's id source switches from the
// temporary counters to its system table the moment the table is created.
var systemTableNames = []string{
	"SYS_TABLES",
	"SYS_DUMMY",
	"SYS_COLUMN_SETS",
	"SYS_COLUMNS",
	"SYS_COLUMN_DEFS",
	"SYS_COLUMN_SET_COLUMNS",
	"SYS_CONSTRAINT_DEFS",
	"SYS_CONSTRAINTS",
	"SYS_COLUMN_DEF_CONSTRAINTS",
	"SYS_INDICES",
	"SYS_INDEX_COLUMNS",
}

// ComputeDatabaseUUID derives the database UUID from the database name and
// its creation timestamp: MD5(name || little-endian seconds).
func ComputeDatabaseUUID(databaseName string, createTimestamp int64) uuid.UUID {
	h := md5.New()
	h.Write([]byte(databaseName))
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], uint64(createTimestamp))
	h.Write(ts[:])
	var result uuid.UUID
	copy(result[:], h.Sum(nil))
	return result
}

// ValidateDatabaseName checks the database object name grammar.
func ValidateDatabaseName(databaseName string) error {
	if !isValidDatabaseObjectName(databaseName) {
		return newError(ErrorCodeInvalidDatabaseName, "invalid database name '%s'", databaseName)
	}
	return nil
}

// createDatabase bootstraps a brand-new database: data directory, metadata
// file, system tables, catalog snapshot, and finally the initialization
// flag file.
func createDatabase(instance *Instance, id uint32, name, cipherID string,
	cipherKey []byte, createTimestamp int64) (*Database, error) {
	if err := ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	db, err := setupDatabaseObject(instance, id, name, cipherID, cipherKey, createTimestamp)
	if err != nil {
		return nil, err
	}
	if err := db.create(); err != nil {
		return nil, err
	}
	return db, nil
}

// loadDatabase opens an existing database from its registry record.
func loadDatabase(instance *Instance, record reg.DatabaseRecord) (*Database, error) {
	db, err := setupDatabaseObject(instance, record.ID, record.Name, record.CipherID,
		record.CipherKey, 0)
	if err != nil {
		return nil, err
	}
	db.uuid = record.UUID
	db.dataDir = filepath.Join(instance.DataDir(), DatabaseDataDirPrefix+db.uuid.String())
	if err := db.load(); err != nil {
		return nil, err
	}
	return db, nil
}

func setupDatabaseObject(instance *Instance, id uint32, name, cipherID string,
	cipherKey []byte, createTimestamp int64) (*Database, error) {
	cipher, err := crypto.GetCipher(cipherID)
	if err != nil {
		return nil, err
	}
	db := &Database{
		instance:                  instance,
		id:                        id,
		name:                      name,
		createTimestamp:           createTimestamp,
		cipher:                    cipher,
		cipherKey:                 cipherKey,
		state:                     databaseStateFresh,
		sysObjects:                reg.NewSystemObjects(),
		tableCache:                cache.NewLRU(instance.TableCacheCapacity()),
		constraintDefinitionCache: cache.NewLRU(instance.TableCacheCapacity()),
	}
	if cipher != nil {
		if db.encryptionContext, err = cipher.CreateEncryptionContext(cipherKey); err != nil {
			return nil, err
		}
		if db.decryptionContext, err = cipher.CreateDecryptionContext(cipherKey); err != nil {
			return nil, err
		}
	}
	db.uuid = ComputeDatabaseUUID(name, createTimestamp)
	db.dataDir = filepath.Join(instance.DataDir(), DatabaseDataDirPrefix+db.uuid.String())
	return db, nil
}

// create transitions Fresh -> Initialized for a new database.
func (db *Database) create() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.ensureDataDir(true); err != nil {
		return err
	}

	metadata, err := createDatabaseMetadataFile(db.metadataFilePath(), SuperUserID)
	if err != nil {
		return err
	}
	db.metadata = metadata

	if err := db.createSystemTables(); err != nil {
		return err
	}

	if err := db.saveSystemObjects(); err != nil {
		return err
	}

	// The flag file is written last so that a crash before this point
	// leaves a recognizable partial state.
	if err := db.createInitializationFlagFile(); err != nil {
		return err
	}

	db.state = databaseStateInitialized
	logger.Infof("Database %s (%s) created", db.DisplayName(), db.uuid)
	return nil
}

// load transitions Fresh -> Initialized for an existing database.
func (db *Database) load() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()

	if err := db.ensureDataDir(false); err != nil {
		return err
	}

	metadata, err := openDatabaseMetadataFile(db.metadataFilePath())
	if err != nil {
		return err
	}
	db.metadata = metadata

	if err := db.loadSystemObjects(); err != nil {
		return err
	}

	if err := db.attachSystemTables(); err != nil {
		return err
	}

	db.state = databaseStateInitialized
	logger.Infof("Database %s (%s) loaded", db.DisplayName(), db.uuid)
	return nil
}

// Close releases the metadata mapping.
func (db *Database) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	if db.state == databaseStateClosed {
		return nil
	}
	db.state = databaseStateClosed
	if db.metadata != nil {
		return db.metadata.Close()
	}
	return nil
}

func (db *Database) metadataFilePath() string {
	return filepath.Join(db.dataDir, MetadataFileName)
}

func (db *Database) systemObjectsFilePath() string {
	return filepath.Join(db.dataDir, SystemObjectsFileName)
}

func (db *Database) initializationFlagFilePath() string {
	return filepath.Join(db.dataDir, InitializationFlagFileName)
}

// ensureDataDir prepares the data directory. With create=true a leftover
// directory is removed and recreated; with create=false both the directory
// and the initialization flag must be present.
func (db *Database) ensureDataDir(create bool) error {
	initFlagFile := db.initializationFlagFilePath()
	initFlagFileExists, err := util.PathExists(initFlagFile)
	if err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot check database initialization flag file %s: %v", initFlagFile, err)
	}
	if create {
		if initFlagFileExists {
			return newError(ErrorCodeDatabaseAlreadyExists,
				"database %s already exists", db.DisplayName())
		}
		if err := util.RecreateDir(db.dataDir); err != nil {
			return newError(ErrorCodeMetadataFileIOError,
				"cannot create data directory %s of database %s (%s): %v",
				db.dataDir, db.DisplayName(), db.uuid, err)
		}
		return nil
	}
	dirExists, err := util.PathExists(db.dataDir)
	if err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot check data directory %s: %v", db.dataDir, err)
	}
	if !dirExists {
		return newError(ErrorCodeDatabaseDataFolderMissing,
			"data directory %s of database %s does not exist", db.dataDir, db.DisplayName())
	}
	if !initFlagFileExists {
		return newError(ErrorCodeDatabaseInitFileMissing,
			"initialization flag file of database %s does not exist: %s",
			db.DisplayName(), initFlagFile)
	}
	return nil
}

func (db *Database) createInitializationFlagFile() error {
	f, err := os.Create(db.initializationFlagFilePath())
	if err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot create database initialization flag file %s of database %s (%s): %v",
			db.initializationFlagFilePath(), db.DisplayName(), db.uuid, err)
	}
	defer f.Close()
	if _, err := fmt.Fprintf(f, "%d", time.Now().Unix()); err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot write database initialization flag file %s of database %s (%s): %v",
			db.initializationFlagFilePath(), db.DisplayName(), db.uuid, err)
	}
	return nil
}

// createSystemTables creates the catalog's own tables. Until a system table
// exists, its entity draws ids from the temporary counters; right after
// creation the table's system TRID sequence is positioned at the last
// temporary value so allocation transfers without collisions.
func (db *Database) createSystemTables() error {
	for _, name := range systemTableNames {
		table, err := db.createTable(name, reg.TableTypeDisk, 0)
		if err != nil {
			return err
		}
		switch name {
		case "SYS_TABLES":
			db.sysTablesTable = table
			table.setTridCounters(db.tmpTridCounters.lastTableID, 0)
		case "SYS_DUMMY":
			db.sysDummyTable = table
		case "SYS_COLUMN_SETS":
			db.sysColumnSetsTable = table
			table.setTridCounters(db.tmpTridCounters.lastColumnSetID, 0)
		case "SYS_COLUMNS":
			db.sysColumnsTable = table
			table.setTridCounters(db.tmpTridCounters.lastColumnID, 0)
		case "SYS_COLUMN_DEFS":
			db.sysColumnDefsTable = table
			table.setTridCounters(db.tmpTridCounters.lastColumnDefinitionID, 0)
		case "SYS_COLUMN_SET_COLUMNS":
			db.sysColumnSetColumnsTable = table
			table.setTridCounters(db.tmpTridCounters.lastColumnSetColumnID, 0)
		case "SYS_CONSTRAINT_DEFS":
			db.sysConstraintDefsTable = table
			table.setTridCounters(db.tmpTridCounters.lastConstraintDefinitionID, 0)
		case "SYS_CONSTRAINTS":
			db.sysConstraintsTable = table
			table.setTridCounters(db.tmpTridCounters.lastConstraintID, 0)
		case "SYS_COLUMN_DEF_CONSTRAINTS":
			db.sysColumnDefConstraintsTable = table
			table.setTridCounters(db.tmpTridCounters.lastColumnDefinitionConstraintID, 0)
		case "SYS_INDICES":
			db.sysIndicesTable = table
			table.setTridCounters(db.tmpTridCounters.lastIndexID, 0)
		case "SYS_INDEX_COLUMNS":
			db.sysIndexColumnsTable = table
			table.setTridCounters(db.tmpTridCounters.lastIndexColumnID, 0)
		}
		if err := table.closeCurrentColumnSet(); err != nil {
			return err
		}
	}
	return nil
}

// attachSystemTables materializes system table handles after the registries
// were loaded and positions their TRID sequences behind the highest ids
// already in use.
func (db *Database) attachSystemTables() error {
	handles := map[string]**Table{
		"SYS_TABLES":                 &db.sysTablesTable,
		"SYS_DUMMY":                  &db.sysDummyTable,
		"SYS_COLUMN_SETS":            &db.sysColumnSetsTable,
		"SYS_COLUMNS":                &db.sysColumnsTable,
		"SYS_COLUMN_DEFS":            &db.sysColumnDefsTable,
		"SYS_COLUMN_SET_COLUMNS":     &db.sysColumnSetColumnsTable,
		"SYS_CONSTRAINT_DEFS":        &db.sysConstraintDefsTable,
		"SYS_CONSTRAINTS":            &db.sysConstraintsTable,
		"SYS_COLUMN_DEF_CONSTRAINTS": &db.sysColumnDefConstraintsTable,
		"SYS_INDICES":                &db.sysIndicesTable,
		"SYS_INDEX_COLUMNS":          &db.sysIndexColumnsTable,
	}
	for _, name := range systemTableNames {
		table := db.getTable(name)
		if table == nil {
			return newError(ErrorCodeMissingSystemTable,
				"database %s (%s) misses system table %s", db.DisplayName(), db.uuid, name)
		}
		*handles[name] = table
	}

	splitMax := func(ids []uint64) (lastSystem, lastUser uint64) {
		for _, id := range ids {
			if IsSystemObjectID(id) {
				if id > lastSystem {
					lastSystem = id
				}
			} else if id > lastUser {
				lastUser = id
			}
		}
		return lastSystem, lastUser
	}

	var tableIDs, columnIDs, columnSetIDs, columnSetColumnIDs []uint64
	var columnDefIDs, columnDefConstraintIDs, constraintIDs, constraintDefIDs []uint64
	var indexIDs, indexColumnIDs []uint64
	for _, r := range db.sysObjects.Tables.All() {
		tableIDs = append(tableIDs, uint64(r.ID))
	}
	for _, r := range db.sysObjects.Columns.All() {
		columnIDs = append(columnIDs, r.ID)
	}
	for _, r := range db.sysObjects.ColumnSets.All() {
		columnSetIDs = append(columnSetIDs, r.ID)
		for _, c := range r.Columns {
			columnSetColumnIDs = append(columnSetColumnIDs, c.ID)
		}
	}
	for _, r := range db.sysObjects.ColumnDefinitions.All() {
		columnDefIDs = append(columnDefIDs, r.ID)
		for _, c := range r.Constraints {
			columnDefConstraintIDs = append(columnDefConstraintIDs, c.ID)
		}
	}
	for _, r := range db.sysObjects.Constraints.All() {
		constraintIDs = append(constraintIDs, r.ID)
	}
	for _, r := range db.sysObjects.ConstraintDefinitions.All() {
		constraintDefIDs = append(constraintDefIDs, r.ID)
	}
	for _, r := range db.sysObjects.Indices.All() {
		indexIDs = append(indexIDs, r.ID)
		for _, c := range r.Columns {
			indexColumnIDs = append(indexColumnIDs, c.ID)
		}
	}

	db.sysTablesTable.setTridCounters(splitMax(tableIDs))
	db.sysColumnsTable.setTridCounters(splitMax(columnIDs))
	db.sysColumnSetsTable.setTridCounters(splitMax(columnSetIDs))
	db.sysColumnSetColumnsTable.setTridCounters(splitMax(columnSetColumnIDs))
	db.sysColumnDefsTable.setTridCounters(splitMax(columnDefIDs))
	db.sysColumnDefConstraintsTable.setTridCounters(splitMax(columnDefConstraintIDs))
	db.sysConstraintsTable.setTridCounters(splitMax(constraintIDs))
	db.sysConstraintDefsTable.setTridCounters(splitMax(constraintDefIDs))
	db.sysIndicesTable.setTridCounters(splitMax(indexIDs))
	db.sysIndexColumnsTable.setTridCounters(splitMax(indexColumnIDs))
	return nil
}

// loadTable materializes a table object from its registry rows.
func (db *Database) loadTable(record reg.TableRecord) (*Table, error) {
	columnSetRecord, ok := db.sysObjects.ColumnSets.FindByID(record.CurrentColumnSetID)
	if !ok {
		return nil, newError(ErrorCodeColumnSetDoesNotExist,
			"column set #%d does not exist in database %s",
			record.CurrentColumnSetID, db.DisplayName())
	}

	t := &Table{
		database:      db,
		id:            record.ID,
		tableType:     record.Type,
		name:          record.Name,
		system:        isSystemTableName(record.Name),
		firstUserTrid: record.FirstUserTrid,
		lastUserTrid:  record.FirstUserTrid - 1,
	}
	t.currentColumnSet = &ColumnSet{
		table:   t,
		id:      columnSetRecord.ID,
		columns: columnSetRecord.Columns,
	}

	for _, csc := range columnSetRecord.Columns {
		columnRecord, ok := db.sysObjects.Columns.FindByID(csc.ColumnID)
		if !ok {
			return nil, newError(ErrorCodeColumnDoesNotExist,
				"column #%d does not exist in database %s", csc.ColumnID, db.DisplayName())
		}
		columnDefRecord, ok := db.sysObjects.ColumnDefinitions.FindByID(csc.ColumnDefinitionID)
		if !ok {
			return nil, newError(ErrorCodeColumnDefinitionDoesNotExist,
				"column definition #%d does not exist in database %s",
				csc.ColumnDefinitionID, db.DisplayName())
		}
		column := &Column{
			table:    t,
			id:       columnRecord.ID,
			name:     columnRecord.Name,
			dataType: columnRecord.DataType,
		}
		column.currentColumnDefinition = &ColumnDefinition{
			column:      column,
			id:          columnDefRecord.ID,
			columnSetID: columnDefRecord.ColumnSetID,
			constraints: columnDefRecord.Constraints,
		}
		t.columns = append(t.columns, column)
		if column.IsMasterColumn() {
			t.masterColumn = column
		}
	}
	return t, nil
}

// CreateFile materializes an on-disk object through the database's file
// factory: encrypted when the database carries a cipher, plain otherwise.
func (db *Database) CreateFile(path string, extraFlags int, createMode os.FileMode,
	initialSize int64) (siodbio.File, error) {
	if db.cipher != nil {
		return siodbio.CreateEncryptedFile(path, extraFlags, createMode,
			db.encryptionContext, db.decryptionContext, initialSize)
	}
	return siodbio.CreateNormalFile(path, extraFlags, createMode, initialSize)
}

// OpenFile opens an existing on-disk object through the file factory.
func (db *Database) OpenFile(path string, extraFlags int) (siodbio.File, error) {
	if db.cipher != nil {
		return siodbio.OpenEncryptedFile(path, extraFlags,
			db.encryptionContext, db.decryptionContext)
	}
	return siodbio.OpenNormalFile(path, extraFlags)
}

// recordTableDefinition persists the catalog after a table definition
// change.
func (db *Database) recordTableDefinition(table *Table, tp TransactionParameters) error {
	logger.Debugf("Database %s: recording definition of table '%s' under transaction #%d by user #%d",
		db.DisplayName(), table.Name(), tp.TransactionID, tp.UserID)
	return db.saveSystemObjects()
}

// saveSystemObjects writes the catalog snapshot through the file factory.
// The snapshot is preceded by its byte length: encrypted files round their
// size up to whole cipher blocks, so the stored length delimits the
// payload.
func (db *Database) saveSystemObjects() error {
	var buf bytes.Buffer
	if err := db.sysObjects.SaveTo(&buf); err != nil {
		return err
	}
	f, err := db.CreateFile(db.systemObjectsFilePath(), os.O_TRUNC,
		siodbio.DataFileCreationMode, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	var lengthHeader [8]byte
	binary.LittleEndian.PutUint64(lengthHeader[:], uint64(buf.Len()))
	if _, err := f.WriteAt(lengthHeader[:], 0); err != nil {
		return err
	}
	if _, err := f.WriteAt(buf.Bytes(), int64(len(lengthHeader))); err != nil {
		return err
	}
	return f.Sync()
}

// loadSystemObjects reads the catalog snapshot through the file factory.
func (db *Database) loadSystemObjects() error {
	f, err := db.OpenFile(db.systemObjectsFilePath(), 0)
	if err != nil {
		return err
	}
	defer f.Close()
	var lengthHeader [8]byte
	if _, err := f.ReadAt(lengthHeader[:], 0); err != nil {
		return err
	}
	data := make([]byte, binary.LittleEndian.Uint64(lengthHeader[:]))
	if len(data) > 0 {
		if _, err := f.ReadAt(data, int64(len(lengthHeader))); err != nil {
			return err
		}
	}
	sysObjects, err := reg.LoadSystemObjects(bytes.NewReader(data))
	if err != nil {
		return err
	}
	db.sysObjects = sysObjects
	return nil
}

// CheckDataConsistency loads every table, which forces the referenced
// column sets, columns and definitions to resolve.
func (db *Database) CheckDataConsistency() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	for _, record := range db.sysObjects.Tables.All() {
		table := db.materializeTable(record)
		if table == nil {
			return newError(ErrorCodeTableDoesNotExist,
				"table '%s'.'%s' cannot be loaded", db.name, record.Name)
		}
		logger.Debugf("Table %s OK", table.DisplayName())
	}
	return nil
}
