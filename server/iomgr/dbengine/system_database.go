package dbengine

import (
	"time"

	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
)

// sysDatabasesTableName holds the instance-wide database records.
const sysDatabasesTableName = "SYS_DATABASES"

// SystemDatabase is the instance's own database. Besides the regular
// per-database catalog it carries the SYS_DATABASES table whose TRID
// sequences issue database ids for the whole instance.
type SystemDatabase struct {
	*Database
	sysDatabasesTable *Table
}

// newSystemDatabase bootstraps the system database of a fresh instance.
func newSystemDatabase(instance *Instance, cipherID string, cipherKey []byte) (*SystemDatabase, error) {
	id, err := instance.generateNextDatabaseID(true)
	if err != nil {
		return nil, err
	}
	db, err := createDatabase(instance, id, SystemDatabaseName, cipherID, cipherKey,
		time.Now().Unix())
	if err != nil {
		return nil, err
	}

	sd := &SystemDatabase{Database: db}
	sd.sysDatabasesTable, err = db.CreateTable(sysDatabasesTableName, reg.TableTypeDisk, 0)
	if err != nil {
		return nil, err
	}
	// The system database occupies the first id of the sequence its own
	// table now issues.
	sd.sysDatabasesTable.setTridCounters(uint64(id), 0)

	db.mutex.Lock()
	defer db.mutex.Unlock()
	if err := sd.sysDatabasesTable.closeCurrentColumnSet(); err != nil {
		return nil, err
	}
	if err := db.saveSystemObjects(); err != nil {
		return nil, err
	}
	return sd, nil
}

// loadSystemDatabase opens the system database of an existing instance.
func loadSystemDatabase(instance *Instance, record reg.DatabaseRecord) (*SystemDatabase, error) {
	db, err := loadDatabase(instance, record)
	if err != nil {
		return nil, err
	}
	sd := &SystemDatabase{Database: db}
	sd.sysDatabasesTable, err = db.GetTableChecked(sysDatabasesTableName)
	if err != nil {
		return nil, newError(ErrorCodeMissingSystemTable,
			"database %s misses system table %s", db.DisplayName(), sysDatabasesTableName)
	}

	// Position the database id sequences behind the ids already in use.
	var lastSystem, lastUser uint64
	for _, rec := range instance.databaseRegistry.AllOrderedByName() {
		id := uint64(rec.ID)
		if IsSystemObjectID(id) {
			if id > lastSystem {
				lastSystem = id
			}
		} else if id > lastUser {
			lastUser = id
		}
	}
	sd.sysDatabasesTable.setTridCounters(lastSystem, lastUser)
	return sd, nil
}

// ReadAllDatabases copies the known database records into the given
// registry.
func (sd *SystemDatabase) ReadAllDatabases(databaseRegistry *reg.DatabaseRegistry) error {
	for _, record := range sd.instance.databaseRegistry.AllOrderedByName() {
		if err := databaseRegistry.Insert(record); err != nil {
			return err
		}
	}
	return nil
}
