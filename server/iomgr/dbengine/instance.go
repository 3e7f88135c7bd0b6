package dbengine

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/govindnetworks/siodb/logger"
	"github.com/govindnetworks/siodb/server/conf"
	"github.com/govindnetworks/siodb/server/iomgr/crypto"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/cache"
	"github.com/govindnetworks/siodb/server/iomgr/dbengine/reg"
	siodbio "github.com/govindnetworks/siodb/server/iomgr/io"
	"github.com/govindnetworks/siodb/util"
)

// Instance-level file names.
const (
	instanceMetadataFileName    = "instance_metadata"
	instanceInitFlagFileName    = InitializationFlagFileName
	systemDatabaseCipherKeyFile = "system_db_key"
	databaseRegistryFileName    = "databases"

	instanceMetadataVersion = uint32(1)
)

// Instance is the DBMS instance: it owns the database registry, the
// database object cache and the system database, and seeds every Database
// with cache capacities and cipher defaults from the instance options.
type Instance struct {
	uuid             uuid.UUID
	name             string
	dataDir          string
	defaultCipherID  string
	systemDbCipherID string
	createTimestamp  int64

	mutex            sync.Mutex
	databaseRegistry *reg.DatabaseRegistry
	databaseCache    *cache.LRU
	systemDatabase   *SystemDatabase

	tableCacheCapacity    int
	blockCacheCapacity    int
	userCacheCapacity     int
	databaseCacheCapacity int

	tmpDatabaseID uint64
}

// NewInstance reads existing on-disk instance data or bootstraps new data
// from the validated instance options.
func NewInstance(options *conf.SiodbOptions) (*Instance, error) {
	crypto.InitializeBuiltInCiphers()

	instance := &Instance{
		name:                  options.General.Name,
		dataDir:               options.General.DataDirectory,
		defaultCipherID:       options.Encryption.DefaultCipherID,
		systemDbCipherID:      options.Encryption.SystemDbCipherID,
		databaseRegistry:      reg.NewDatabaseRegistry(),
		databaseCache:         cache.NewLRU(options.IOManager.DatabaseCacheCapacity),
		tableCacheCapacity:    options.IOManager.TableCacheCapacity,
		blockCacheCapacity:    options.IOManager.BlockCacheCapacity,
		userCacheCapacity:     options.IOManager.UserCacheCapacity,
		databaseCacheCapacity: options.IOManager.DatabaseCacheCapacity,
	}

	if err := os.MkdirAll(instance.dataDir, 0o755); err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot create instance data directory %s: %v", instance.dataDir, err)
	}

	initialized, err := util.PathExists(instance.initFlagFilePath())
	if err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot check instance initialization flag file: %v", err)
	}

	if initialized {
		err = instance.loadInstanceData()
	} else {
		err = instance.createInstanceData()
	}
	if err != nil {
		return nil, err
	}
	return instance, nil
}

// UUID returns the instance UUID.
func (ins *Instance) UUID() uuid.UUID {
	return ins.uuid
}

// Name returns the instance name.
func (ins *Instance) Name() string {
	return ins.name
}

// DataDir returns the instance data directory.
func (ins *Instance) DataDir() string {
	return ins.dataDir
}

// DisplayName returns the quoted instance name for diagnostics.
func (ins *Instance) DisplayName() string {
	return "'" + ins.name + "'"
}

// DisplayCode returns the instance UUID string.
func (ins *Instance) DisplayCode() string {
	return ins.uuid.String()
}

// TableCacheCapacity returns the configured per-database table cache
// capacity.
func (ins *Instance) TableCacheCapacity() int {
	if ins.tableCacheCapacity == 0 {
		return conf.DefaultIOManagerTableCacheCapacity
	}
	return ins.tableCacheCapacity
}

// BlockCacheCapacity returns the configured block cache capacity.
func (ins *Instance) BlockCacheCapacity() int {
	return ins.blockCacheCapacity
}

// UserCacheCapacity returns the configured user cache capacity.
func (ins *Instance) UserCacheCapacity() int {
	return ins.userCacheCapacity
}

// DefaultDatabaseCipherID returns the cipher id for new databases.
func (ins *Instance) DefaultDatabaseCipherID() string {
	return ins.defaultCipherID
}

// SystemDatabase returns the instance's system database.
func (ins *Instance) SystemDatabase() *SystemDatabase {
	return ins.systemDatabase
}

// DatabaseCount returns the number of known databases.
func (ins *Instance) DatabaseCount() int {
	ins.mutex.Lock()
	defer ins.mutex.Unlock()
	return ins.databaseRegistry.Len()
}

// DatabaseRecordsOrderedByName returns the known databases ordered by name.
func (ins *Instance) DatabaseRecordsOrderedByName() []reg.DatabaseRecord {
	ins.mutex.Lock()
	defer ins.mutex.Unlock()
	return ins.databaseRegistry.AllOrderedByName()
}

// GetDatabaseChecked returns the named database or fails when it does not
// exist.
func (ins *Instance) GetDatabaseChecked(databaseName string) (*Database, error) {
	if db := ins.GetDatabase(databaseName); db != nil {
		return db, nil
	}
	return nil, newError(ErrorCodeDatabaseDoesNotExist,
		"database '%s' does not exist", databaseName)
}

// GetDatabase returns the named database or nil.
func (ins *Instance) GetDatabase(databaseName string) *Database {
	ins.mutex.Lock()
	defer ins.mutex.Unlock()
	return ins.getDatabase(databaseName)
}

func (ins *Instance) getDatabase(databaseName string) *Database {
	record, ok := ins.databaseRegistry.FindByName(databaseName)
	if !ok {
		return nil
	}
	if record.Name == SystemDatabaseName {
		return ins.systemDatabase.Database
	}
	if cached, ok := ins.databaseCache.Get(uint64(record.ID)); ok {
		return cached.(*Database)
	}
	db, err := loadDatabase(ins, record)
	if err != nil {
		logger.Errorf("Instance %s: cannot load database '%s': %v",
			ins.DisplayName(), record.Name, err)
		return nil
	}
	ins.databaseCache.Emplace(uint64(record.ID), db)
	return db
}

// CreateDatabase creates a new database with the given cipher and writes
// all necessary on-disk structures.
func (ins *Instance) CreateDatabase(name, cipherID string, cipherKey []byte,
	currentUserID uint32) (*Database, error) {
	if err := ValidateDatabaseName(name); err != nil {
		return nil, err
	}
	if cipherID == "" {
		cipherID = ins.defaultCipherID
	}

	ins.mutex.Lock()
	defer ins.mutex.Unlock()

	if ins.databaseRegistry.ContainsName(name) {
		return nil, newError(ErrorCodeDatabaseAlreadyExists,
			"database '%s' already exists", name)
	}

	id, err := ins.generateNextDatabaseID(false)
	if err != nil {
		return nil, err
	}

	db, err := createDatabase(ins, id, name, cipherID, cipherKey, time.Now().Unix())
	if err != nil {
		return nil, err
	}
	if err := ins.databaseRegistry.Insert(db.Record()); err != nil {
		return nil, err
	}
	ins.databaseCache.Emplace(uint64(db.ID()), db)

	if err := ins.saveDatabaseRegistry(); err != nil {
		return nil, err
	}
	logger.Infof("Instance %s: database '%s' created by user #%d", ins.DisplayName(), name, currentUserID)
	return db, nil
}

// DropDatabase deletes an existing database together with its on-disk
// data. The system database cannot be dropped; a database that is in use
// cannot be dropped.
func (ins *Instance) DropDatabase(name string, databaseMustExist bool, currentUserID uint32) (bool, error) {
	if name == SystemDatabaseName {
		return false, newError(ErrorCodeDatabaseAlreadyExists,
			"cannot drop system database '%s'", name)
	}

	ins.mutex.Lock()
	defer ins.mutex.Unlock()

	record, ok := ins.databaseRegistry.FindByName(name)
	if !ok {
		if databaseMustExist {
			return false, newError(ErrorCodeDatabaseDoesNotExist,
				"database '%s' does not exist", name)
		}
		return false, nil
	}

	if cached, ok := ins.databaseCache.Get(uint64(record.ID)); ok {
		db := cached.(*Database)
		if db.UseCount() > 0 {
			return false, newError(ErrorCodeCannotReleaseUnusedDatabase,
				"database '%s' is in use", name)
		}
		db.Close()
		ins.databaseCache.Remove(uint64(record.ID))
	}

	ins.databaseRegistry = rebuildDatabaseRegistryWithout(ins.databaseRegistry, record.Name)
	if err := ins.saveDatabaseRegistry(); err != nil {
		return false, err
	}

	dataDir := filepath.Join(ins.dataDir, DatabaseDataDirPrefix+record.UUID.String())
	if err := os.RemoveAll(dataDir); err != nil {
		return false, newError(ErrorCodeMetadataFileIOError,
			"cannot remove data directory %s of database '%s': %v", dataDir, name, err)
	}
	logger.Infof("Instance %s: database '%s' dropped by user #%d", ins.DisplayName(), name, currentUserID)
	return true, nil
}

func rebuildDatabaseRegistryWithout(registry *reg.DatabaseRegistry, name string) *reg.DatabaseRegistry {
	out := reg.NewDatabaseRegistry()
	for _, rec := range registry.AllOrderedByName() {
		if rec.Name != name {
			out.Insert(rec)
		}
	}
	return out
}

// GenerateNextDatabaseID issues the next database id in the requested
// partition.
func (ins *Instance) GenerateNextDatabaseID(system bool) (uint32, error) {
	ins.mutex.Lock()
	defer ins.mutex.Unlock()
	return ins.generateNextDatabaseID(system)
}

func (ins *Instance) generateNextDatabaseID(system bool) (uint32, error) {
	var databaseID uint64
	if system {
		if ins.systemDatabase != nil {
			databaseID = ins.systemDatabase.sysDatabasesTable.GenerateNextSystemTrid()
		} else {
			ins.tmpDatabaseID++
			databaseID = ins.tmpDatabaseID
		}
	} else {
		databaseID = ins.systemDatabase.sysDatabasesTable.GenerateNextUserTrid()
	}
	if databaseID >= math.MaxUint32 {
		return 0, newError(ErrorCodeResourceExhausted,
			"instance %s is out of resource: Database ID", ins.DisplayName())
	}
	return uint32(databaseID), nil
}

// CheckDataConsistency verifies every database loads cleanly.
func (ins *Instance) CheckDataConsistency() error {
	for _, record := range ins.DatabaseRecordsOrderedByName() {
		db, err := ins.GetDatabaseChecked(record.Name)
		if err != nil {
			return err
		}
		if err := db.CheckDataConsistency(); err != nil {
			return err
		}
	}
	return nil
}

// --- bootstrap ---

func (ins *Instance) initFlagFilePath() string {
	return filepath.Join(ins.dataDir, instanceInitFlagFileName)
}

func (ins *Instance) metadataFilePath() string {
	return filepath.Join(ins.dataDir, instanceMetadataFileName)
}

func (ins *Instance) systemDatabaseCipherKeyFilePath() string {
	return filepath.Join(ins.dataDir, systemDatabaseCipherKeyFile)
}

func (ins *Instance) databaseRegistryFilePath() string {
	return filepath.Join(ins.dataDir, databaseRegistryFileName)
}

// createInstanceData bootstraps a fresh instance: system database cipher
// key, system database, database registry, metadata and finally the
// initialization flag file.
func (ins *Instance) createInstanceData() error {
	logger.Infof("Creating data of new instance %s", ins.DisplayName())

	ins.createTimestamp = time.Now().Unix()
	ins.uuid = ComputeDatabaseUUID(ins.name, ins.createTimestamp)

	cipherKey, err := ins.generateSystemDatabaseCipherKey()
	if err != nil {
		return err
	}

	systemDatabase, err := newSystemDatabase(ins, ins.systemDbCipherID, cipherKey)
	if err != nil {
		return err
	}
	ins.systemDatabase = systemDatabase

	if err := ins.databaseRegistry.Insert(systemDatabase.Record()); err != nil {
		return err
	}
	if err := ins.saveDatabaseRegistry(); err != nil {
		return err
	}
	if err := ins.saveMetadata(); err != nil {
		return err
	}

	f, err := os.Create(ins.initFlagFilePath())
	if err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot create instance initialization flag file: %v", err)
	}
	defer f.Close()
	return nil
}

// loadInstanceData loads an existing instance.
func (ins *Instance) loadInstanceData() error {
	logger.Infof("Loading data of existing instance %s", ins.DisplayName())

	if err := ins.loadMetadata(); err != nil {
		return err
	}

	cipherKey, err := ins.loadSystemDatabaseCipherKey()
	if err != nil {
		return err
	}

	if err := ins.loadDatabaseRegistry(cipherKey); err != nil {
		return err
	}

	sysRecord, ok := ins.databaseRegistry.FindByName(SystemDatabaseName)
	if !ok {
		return newError(ErrorCodeMissingSystemTable,
			"instance %s misses the system database record", ins.DisplayName())
	}
	systemDatabase, err := loadSystemDatabase(ins, sysRecord)
	if err != nil {
		return err
	}
	ins.systemDatabase = systemDatabase
	return nil
}

func (ins *Instance) generateSystemDatabaseCipherKey() ([]byte, error) {
	cipher, err := crypto.GetCipher(ins.systemDbCipherID)
	if err != nil {
		return nil, err
	}
	if cipher == nil {
		return nil, nil
	}
	key := make([]byte, cipher.KeySizeBits()/8)
	if _, err := rand.Read(key); err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot generate system database cipher key: %v", err)
	}
	if err := os.WriteFile(ins.systemDatabaseCipherKeyFilePath(), key, 0o600); err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot write system database cipher key file: %v", err)
	}
	return key, nil
}

func (ins *Instance) loadSystemDatabaseCipherKey() ([]byte, error) {
	cipher, err := crypto.GetCipher(ins.systemDbCipherID)
	if err != nil {
		return nil, err
	}
	if cipher == nil {
		return nil, nil
	}
	key, err := os.ReadFile(ins.systemDatabaseCipherKeyFilePath())
	if err != nil {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"cannot read system database cipher key file: %v", err)
	}
	if len(key) != cipher.KeySizeBits()/8 {
		return nil, newError(ErrorCodeMetadataFileIOError,
			"system database cipher key file is corrupt: %d bytes", len(key))
	}
	return key, nil
}

// saveMetadata writes the instance metadata file: version, instance UUID,
// system database UUID and creation timestamp.
func (ins *Instance) saveMetadata() error {
	buf := make([]byte, 4+16+16+8)
	binary.LittleEndian.PutUint32(buf[0:], instanceMetadataVersion)
	copy(buf[4:], ins.uuid[:])
	sysUUID := ins.systemDatabase.UUID()
	copy(buf[20:], sysUUID[:])
	binary.LittleEndian.PutUint64(buf[36:], uint64(ins.createTimestamp))
	if err := os.WriteFile(ins.metadataFilePath(), buf, 0o644); err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot write instance metadata file: %v", err)
	}
	return nil
}

func (ins *Instance) loadMetadata() error {
	buf, err := os.ReadFile(ins.metadataFilePath())
	if err != nil {
		return newError(ErrorCodeMetadataFileIOError,
			"cannot read instance metadata file: %v", err)
	}
	if len(buf) < 4+16+16+8 {
		return newError(ErrorCodeMetadataFileIOError,
			"instance metadata file is corrupt: %d bytes", len(buf))
	}
	if v := binary.LittleEndian.Uint32(buf[0:]); v != instanceMetadataVersion {
		return newError(ErrorCodeMetadataFileIOError,
			"instance metadata file has unsupported version %d", v)
	}
	copy(ins.uuid[:], buf[4:20])
	ins.createTimestamp = int64(binary.LittleEndian.Uint64(buf[36:]))
	return nil
}

// saveDatabaseRegistry persists the database registry through the system
// database's file factory so it shares the system database cipher.
func (ins *Instance) saveDatabaseRegistry() error {
	records := ins.databaseRegistry.AllOrderedByName()
	var payload bytes.Buffer
	var scratch [10]byte
	n := util.PutVarUint64(scratch[:], uint64(len(records)))
	payload.Write(scratch[:n])
	for i := range records {
		buf := make([]byte, records[i].SerializedSize())
		records[i].SerializeInto(buf)
		payload.Write(buf)
	}
	return ins.writeDatabaseRegistryFile(payload.Bytes())
}

func (ins *Instance) writeDatabaseRegistryFile(payload []byte) error {
	f, err := ins.systemDatabase.CreateFile(ins.databaseRegistryFilePath(), os.O_TRUNC,
		siodbio.DataFileCreationMode, 0)
	if err != nil {
		return err
	}
	defer f.Close()
	var lengthHeader [8]byte
	binary.LittleEndian.PutUint64(lengthHeader[:], uint64(len(payload)))
	if _, err := f.WriteAt(lengthHeader[:], 0); err != nil {
		return err
	}
	if _, err := f.WriteAt(payload, int64(len(lengthHeader))); err != nil {
		return err
	}
	return f.Sync()
}

// loadDatabaseRegistry reads the persisted database registry. It opens the
// file directly with the system database cipher because the system
// database object is not constructed yet at this point.
func (ins *Instance) loadDatabaseRegistry(cipherKey []byte) error {
	cipher, err := crypto.GetCipher(ins.systemDbCipherID)
	if err != nil {
		return err
	}
	var f siodbio.File
	if cipher != nil {
		enc, err := cipher.CreateEncryptionContext(cipherKey)
		if err != nil {
			return err
		}
		dec, err := cipher.CreateDecryptionContext(cipherKey)
		if err != nil {
			return err
		}
		f, err = siodbio.OpenEncryptedFile(ins.databaseRegistryFilePath(), 0, enc, dec)
		if err != nil {
			return err
		}
	} else {
		f, err = siodbio.OpenNormalFile(ins.databaseRegistryFilePath(), 0)
		if err != nil {
			return err
		}
	}
	defer f.Close()

	var lengthHeader [8]byte
	if _, err := f.ReadAt(lengthHeader[:], 0); err != nil {
		return err
	}
	payload := make([]byte, binary.LittleEndian.Uint64(lengthHeader[:]))
	if len(payload) > 0 {
		if _, err := f.ReadAt(payload, int64(len(lengthHeader))); err != nil {
			return err
		}
	}

	count, n, err := util.GetVarUint64(payload)
	if err != nil {
		return err
	}
	payload = payload[n:]
	registry := reg.NewDatabaseRegistry()
	for i := uint64(0); i < count; i++ {
		var record reg.DatabaseRecord
		n, err := record.Deserialize(payload)
		if err != nil {
			return err
		}
		payload = payload[n:]
		if err := registry.Insert(record); err != nil {
			return err
		}
	}
	ins.databaseRegistry = registry
	return nil
}
