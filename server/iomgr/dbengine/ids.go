package dbengine

// FirstUserObjectID partitions every registry's id space. Ids below it are
// reserved for system-owned objects (system tables, built-in constraint
// definitions); ids at or above it belong to user objects. The same
// threshold applies to every entity kind, so a single comparison decides
// the partition of any row.
const FirstUserObjectID uint64 = 0x1000

// FirstUserTableID is the table-id view of the partition threshold.
const FirstUserTableID uint32 = uint32(FirstUserObjectID)

// IsSystemObjectID reports whether id falls into the system partition.
func IsSystemObjectID(id uint64) bool {
	return id < FirstUserObjectID
}

// tmpTridCounters back id allocation while the corresponding system table
// is not yet materialized. They are only valid during database bootstrap;
// once a system table exists, allocation transfers to its TRID sequences.
type tmpTridCounters struct {
	lastTableID                      uint64
	lastColumnID                     uint64
	lastColumnDefinitionID           uint64
	lastColumnSetID                  uint64
	lastColumnSetColumnID            uint64
	lastConstraintDefinitionID       uint64
	lastConstraintID                 uint64
	lastColumnDefinitionConstraintID uint64
	lastIndexID                      uint64
	lastIndexColumnID                uint64
}

// TransactionParameters carries the acting user and transaction id of a
// catalog mutation.
type TransactionParameters struct {
	UserID        uint32
	TransactionID uint64
}

// SuperUserID is the id of the built-in super user recorded in every
// database's metadata file.
const SuperUserID uint32 = 1
