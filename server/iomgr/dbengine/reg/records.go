package reg

import (
	"encoding/binary"

	"github.com/google/uuid"
	"github.com/juju/errors"

	"github.com/govindnetworks/siodb/util"
)

// DatabaseRecord is the registry row of a database.
type DatabaseRecord struct {
	ID        uint32
	UUID      uuid.UUID
	Name      string
	CipherID  string
	CipherKey []byte
}

// TableRecord is the registry row of a table.
type TableRecord struct {
	ID                 uint32
	Type               TableType
	Name               string
	FirstUserTrid      uint64
	CurrentColumnSetID uint64
}

// ColumnRecord is the registry row of a column.
type ColumnRecord struct {
	ID       uint64
	Name     string
	DataType ColumnDataType
	TableID  uint32
}

// ColumnSetColumnRecord ties a column definition into a column set.
type ColumnSetColumnRecord struct {
	ID                 uint64
	ColumnSetID        uint64
	ColumnDefinitionID uint64
	ColumnID           uint64
}

// ColumnSetRecord is the registry row of a column set: an ordered snapshot
// of the columns participating in one table schema version.
type ColumnSetRecord struct {
	ID      uint64
	TableID uint32
	Columns []ColumnSetColumnRecord
}

// ColumnDefinitionConstraintRecord ties a constraint to a column definition.
type ColumnDefinitionConstraintRecord struct {
	ID                 uint64
	ColumnDefinitionID uint64
	ConstraintID       uint64
}

// ColumnDefinitionRecord is one versioned descriptor of a column. A column
// has one or more; the one with the greatest id is "latest".
type ColumnDefinitionRecord struct {
	ID          uint64
	ColumnID    uint64
	ColumnSetID uint64
	Constraints []ColumnDefinitionConstraintRecord
}

// ConstraintRecord is the registry row of a named constraint. ColumnID is
// zero for table-level constraints.
type ConstraintRecord struct {
	ID                     uint64
	Name                   string
	TableID                uint32
	ColumnID               uint64
	ConstraintDefinitionID uint64
}

// ConstraintDefinitionRecord is the content-addressed (kind, expression)
// pair shared by all constraints with identical semantics.
type ConstraintDefinitionRecord struct {
	ID         uint64
	Type       ConstraintType
	Expression []byte
	Hash       uint64
}

// constraintDefinitionHashSeed seeds the content hash chain.
const constraintDefinitionHashSeed = 0x5364623a43446566

// ComputeConstraintDefinitionHash computes the content hash over the
// constraint type and the serialized expression.
func ComputeConstraintDefinitionHash(constraintType ConstraintType, expression []byte) uint64 {
	var buffer [8]byte
	binary.LittleEndian.PutUint32(buffer[:4], uint32(constraintType))
	binary.LittleEndian.PutUint32(buffer[4:], uint32(len(expression)))
	h := util.HashCodeSeed(buffer[:], constraintDefinitionHashSeed)
	if len(expression) == 0 {
		return h
	}
	return util.HashCodeSeed(expression, h)
}

// NewConstraintDefinitionRecord builds a record and computes its hash.
func NewConstraintDefinitionRecord(id uint64, constraintType ConstraintType, expression []byte) ConstraintDefinitionRecord {
	return ConstraintDefinitionRecord{
		ID:         id,
		Type:       constraintType,
		Expression: expression,
		Hash:       ComputeConstraintDefinitionHash(constraintType, expression),
	}
}

// IsEqualDefinition reports whether two records define the same constraint
// content: same kind and byte-identical expression.
func (r *ConstraintDefinitionRecord) IsEqualDefinition(other *ConstraintDefinitionRecord) bool {
	if r.Type != other.Type || len(r.Expression) != len(other.Expression) {
		return false
	}
	for i := range r.Expression {
		if r.Expression[i] != other.Expression[i] {
			return false
		}
	}
	return true
}

// IndexColumnRecord is one column participating in an index.
type IndexColumnRecord struct {
	ID                 uint64
	IndexID            uint64
	ColumnDefinitionID uint64
	SortDescending     bool
}

// IndexRecord is the registry row of an index.
type IndexRecord struct {
	ID      uint64
	Type    IndexType
	TableID uint32
	Name    string
	Columns []IndexColumnRecord
}

// --- snapshot serialization ---

func putString(buf []byte, s string) int {
	return util.PutLenPrefixedBytes(buf, []byte(s))
}

func stringSize(s string) int {
	return util.LenPrefixedBytesSize([]byte(s))
}

func getString(buf []byte) (string, int, error) {
	b, n, err := util.GetLenPrefixedBytes(buf)
	if err != nil {
		return "", 0, err
	}
	return string(b), n, nil
}

func putBool(buf []byte, v bool) int {
	if v {
		buf[0] = 1
	} else {
		buf[0] = 0
	}
	return 1
}

func getBool(buf []byte) (bool, int, error) {
	if len(buf) < 1 {
		return false, 0, util.ErrVarIntTruncated
	}
	return buf[0] != 0, 1, nil
}

// SerializedSize returns the snapshot encoding size of the record.
func (r *DatabaseRecord) SerializedSize() int {
	return util.VarIntSize(uint64(r.ID)) + 16 + stringSize(r.Name) +
		stringSize(r.CipherID) + util.LenPrefixedBytesSize(r.CipherKey)
}

// SerializeInto writes the record into buf.
func (r *DatabaseRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, uint64(r.ID))
	n += copy(buf[n:], r.UUID[:])
	n += putString(buf[n:], r.Name)
	n += putString(buf[n:], r.CipherID)
	n += util.PutLenPrefixedBytes(buf[n:], r.CipherKey)
	return n
}

// Deserialize reads the record from buf.
func (r *DatabaseRecord) Deserialize(buf []byte) (int, error) {
	id, n, err := util.GetVarUint64(buf)
	if err != nil {
		return 0, errors.Annotate(err, "DatabaseRecord.id")
	}
	r.ID = uint32(id)
	if len(buf)-n < 16 {
		return 0, errors.Annotate(util.ErrVarIntTruncated, "DatabaseRecord.uuid")
	}
	copy(r.UUID[:], buf[n:n+16])
	n += 16
	var m int
	if r.Name, m, err = getString(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "DatabaseRecord.name")
	}
	n += m
	if r.CipherID, m, err = getString(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "DatabaseRecord.cipherId")
	}
	n += m
	if r.CipherKey, m, err = util.GetLenPrefixedBytes(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "DatabaseRecord.cipherKey")
	}
	return n + m, nil
}

func (r *TableRecord) SerializedSize() int {
	return util.VarIntSize(uint64(r.ID)) + util.VarIntSize(uint64(r.Type)) +
		stringSize(r.Name) + util.VarIntSize(r.FirstUserTrid) +
		util.VarIntSize(r.CurrentColumnSetID)
}

func (r *TableRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, uint64(r.ID))
	n += util.PutVarUint64(buf[n:], uint64(r.Type))
	n += putString(buf[n:], r.Name)
	n += util.PutVarUint64(buf[n:], r.FirstUserTrid)
	n += util.PutVarUint64(buf[n:], r.CurrentColumnSetID)
	return n
}

func (r *TableRecord) Deserialize(buf []byte) (int, error) {
	id, n, err := util.GetVarUint64(buf)
	if err != nil {
		return 0, errors.Annotate(err, "TableRecord.id")
	}
	r.ID = uint32(id)
	t, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "TableRecord.type")
	}
	r.Type = TableType(t)
	n += m
	if r.Name, m, err = getString(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "TableRecord.name")
	}
	n += m
	if r.FirstUserTrid, m, err = util.GetVarUint64(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "TableRecord.firstUserTrid")
	}
	n += m
	if r.CurrentColumnSetID, m, err = util.GetVarUint64(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "TableRecord.currentColumnSetId")
	}
	return n + m, nil
}

func (r *ColumnRecord) SerializedSize() int {
	return util.VarIntSize(r.ID) + stringSize(r.Name) +
		util.VarIntSize(uint64(r.DataType)) + util.VarIntSize(uint64(r.TableID))
}

func (r *ColumnRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, r.ID)
	n += putString(buf[n:], r.Name)
	n += util.PutVarUint64(buf[n:], uint64(r.DataType))
	n += util.PutVarUint64(buf[n:], uint64(r.TableID))
	return n
}

func (r *ColumnRecord) Deserialize(buf []byte) (int, error) {
	var err error
	var m int
	n := 0
	if r.ID, m, err = util.GetVarUint64(buf); err != nil {
		return 0, errors.Annotate(err, "ColumnRecord.id")
	}
	n += m
	if r.Name, m, err = getString(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ColumnRecord.name")
	}
	n += m
	dt, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ColumnRecord.dataType")
	}
	r.DataType = ColumnDataType(dt)
	n += m
	tid, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ColumnRecord.tableId")
	}
	r.TableID = uint32(tid)
	return n + m, nil
}

func (r *ColumnSetRecord) SerializedSize() int {
	size := util.VarIntSize(r.ID) + util.VarIntSize(uint64(r.TableID)) +
		util.VarIntSize(uint64(len(r.Columns)))
	for i := range r.Columns {
		c := &r.Columns[i]
		size += util.VarIntSize(c.ID) + util.VarIntSize(c.ColumnSetID) +
			util.VarIntSize(c.ColumnDefinitionID) + util.VarIntSize(c.ColumnID)
	}
	return size
}

func (r *ColumnSetRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, r.ID)
	n += util.PutVarUint64(buf[n:], uint64(r.TableID))
	n += util.PutVarUint64(buf[n:], uint64(len(r.Columns)))
	for i := range r.Columns {
		c := &r.Columns[i]
		n += util.PutVarUint64(buf[n:], c.ID)
		n += util.PutVarUint64(buf[n:], c.ColumnSetID)
		n += util.PutVarUint64(buf[n:], c.ColumnDefinitionID)
		n += util.PutVarUint64(buf[n:], c.ColumnID)
	}
	return n
}

func (r *ColumnSetRecord) Deserialize(buf []byte) (int, error) {
	var err error
	var m int
	n := 0
	if r.ID, m, err = util.GetVarUint64(buf); err != nil {
		return 0, errors.Annotate(err, "ColumnSetRecord.id")
	}
	n += m
	tid, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ColumnSetRecord.tableId")
	}
	r.TableID = uint32(tid)
	n += m
	count, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ColumnSetRecord.columnCount")
	}
	n += m
	r.Columns = make([]ColumnSetColumnRecord, count)
	for i := range r.Columns {
		c := &r.Columns[i]
		if c.ID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnSetColumnRecord.id")
		}
		n += m
		if c.ColumnSetID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnSetColumnRecord.columnSetId")
		}
		n += m
		if c.ColumnDefinitionID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnSetColumnRecord.columnDefinitionId")
		}
		n += m
		if c.ColumnID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnSetColumnRecord.columnId")
		}
		n += m
	}
	return n, nil
}

func (r *ColumnDefinitionRecord) SerializedSize() int {
	size := util.VarIntSize(r.ID) + util.VarIntSize(r.ColumnID) +
		util.VarIntSize(r.ColumnSetID) + util.VarIntSize(uint64(len(r.Constraints)))
	for i := range r.Constraints {
		c := &r.Constraints[i]
		size += util.VarIntSize(c.ID) + util.VarIntSize(c.ColumnDefinitionID) +
			util.VarIntSize(c.ConstraintID)
	}
	return size
}

func (r *ColumnDefinitionRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, r.ID)
	n += util.PutVarUint64(buf[n:], r.ColumnID)
	n += util.PutVarUint64(buf[n:], r.ColumnSetID)
	n += util.PutVarUint64(buf[n:], uint64(len(r.Constraints)))
	for i := range r.Constraints {
		c := &r.Constraints[i]
		n += util.PutVarUint64(buf[n:], c.ID)
		n += util.PutVarUint64(buf[n:], c.ColumnDefinitionID)
		n += util.PutVarUint64(buf[n:], c.ConstraintID)
	}
	return n
}

func (r *ColumnDefinitionRecord) Deserialize(buf []byte) (int, error) {
	var err error
	var m int
	n := 0
	if r.ID, m, err = util.GetVarUint64(buf); err != nil {
		return 0, errors.Annotate(err, "ColumnDefinitionRecord.id")
	}
	n += m
	if r.ColumnID, m, err = util.GetVarUint64(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ColumnDefinitionRecord.columnId")
	}
	n += m
	if r.ColumnSetID, m, err = util.GetVarUint64(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ColumnDefinitionRecord.columnSetId")
	}
	n += m
	count, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ColumnDefinitionRecord.constraintCount")
	}
	n += m
	r.Constraints = make([]ColumnDefinitionConstraintRecord, count)
	for i := range r.Constraints {
		c := &r.Constraints[i]
		if c.ID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnDefinitionConstraintRecord.id")
		}
		n += m
		if c.ColumnDefinitionID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnDefinitionConstraintRecord.columnDefinitionId")
		}
		n += m
		if c.ConstraintID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "ColumnDefinitionConstraintRecord.constraintId")
		}
		n += m
	}
	return n, nil
}

func (r *ConstraintRecord) SerializedSize() int {
	return util.VarIntSize(r.ID) + stringSize(r.Name) + util.VarIntSize(uint64(r.TableID)) +
		util.VarIntSize(r.ColumnID) + util.VarIntSize(r.ConstraintDefinitionID)
}

func (r *ConstraintRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, r.ID)
	n += putString(buf[n:], r.Name)
	n += util.PutVarUint64(buf[n:], uint64(r.TableID))
	n += util.PutVarUint64(buf[n:], r.ColumnID)
	n += util.PutVarUint64(buf[n:], r.ConstraintDefinitionID)
	return n
}

func (r *ConstraintRecord) Deserialize(buf []byte) (int, error) {
	var err error
	var m int
	n := 0
	if r.ID, m, err = util.GetVarUint64(buf); err != nil {
		return 0, errors.Annotate(err, "ConstraintRecord.id")
	}
	n += m
	if r.Name, m, err = getString(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ConstraintRecord.name")
	}
	n += m
	tid, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ConstraintRecord.tableId")
	}
	r.TableID = uint32(tid)
	n += m
	if r.ColumnID, m, err = util.GetVarUint64(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ConstraintRecord.columnId")
	}
	n += m
	if r.ConstraintDefinitionID, m, err = util.GetVarUint64(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ConstraintRecord.constraintDefinitionId")
	}
	return n + m, nil
}

func (r *ConstraintDefinitionRecord) SerializedSize() int {
	return util.VarIntSize(r.ID) + util.VarIntSize(uint64(r.Type)) +
		util.LenPrefixedBytesSize(r.Expression)
}

func (r *ConstraintDefinitionRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, r.ID)
	n += util.PutVarUint64(buf[n:], uint64(r.Type))
	n += util.PutLenPrefixedBytes(buf[n:], r.Expression)
	return n
}

func (r *ConstraintDefinitionRecord) Deserialize(buf []byte) (int, error) {
	var err error
	var m int
	n := 0
	if r.ID, m, err = util.GetVarUint64(buf); err != nil {
		return 0, errors.Annotate(err, "ConstraintDefinitionRecord.id")
	}
	n += m
	t, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "ConstraintDefinitionRecord.type")
	}
	r.Type = ConstraintType(t)
	n += m
	if r.Expression, m, err = util.GetLenPrefixedBytes(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "ConstraintDefinitionRecord.expression")
	}
	r.Hash = ComputeConstraintDefinitionHash(r.Type, r.Expression)
	return n + m, nil
}

func (r *IndexRecord) SerializedSize() int {
	size := util.VarIntSize(r.ID) + util.VarIntSize(uint64(r.Type)) +
		util.VarIntSize(uint64(r.TableID)) + stringSize(r.Name) +
		util.VarIntSize(uint64(len(r.Columns)))
	for i := range r.Columns {
		c := &r.Columns[i]
		size += util.VarIntSize(c.ID) + util.VarIntSize(c.IndexID) +
			util.VarIntSize(c.ColumnDefinitionID) + 1
	}
	return size
}

func (r *IndexRecord) SerializeInto(buf []byte) int {
	n := util.PutVarUint64(buf, r.ID)
	n += util.PutVarUint64(buf[n:], uint64(r.Type))
	n += util.PutVarUint64(buf[n:], uint64(r.TableID))
	n += putString(buf[n:], r.Name)
	n += util.PutVarUint64(buf[n:], uint64(len(r.Columns)))
	for i := range r.Columns {
		c := &r.Columns[i]
		n += util.PutVarUint64(buf[n:], c.ID)
		n += util.PutVarUint64(buf[n:], c.IndexID)
		n += util.PutVarUint64(buf[n:], c.ColumnDefinitionID)
		n += putBool(buf[n:], c.SortDescending)
	}
	return n
}

func (r *IndexRecord) Deserialize(buf []byte) (int, error) {
	var err error
	var m int
	n := 0
	if r.ID, m, err = util.GetVarUint64(buf); err != nil {
		return 0, errors.Annotate(err, "IndexRecord.id")
	}
	n += m
	t, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "IndexRecord.type")
	}
	r.Type = IndexType(t)
	n += m
	tid, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "IndexRecord.tableId")
	}
	r.TableID = uint32(tid)
	n += m
	if r.Name, m, err = getString(buf[n:]); err != nil {
		return 0, errors.Annotate(err, "IndexRecord.name")
	}
	n += m
	count, m, err := util.GetVarUint64(buf[n:])
	if err != nil {
		return 0, errors.Annotate(err, "IndexRecord.columnCount")
	}
	n += m
	r.Columns = make([]IndexColumnRecord, count)
	for i := range r.Columns {
		c := &r.Columns[i]
		if c.ID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "IndexColumnRecord.id")
		}
		n += m
		if c.IndexID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "IndexColumnRecord.indexId")
		}
		n += m
		if c.ColumnDefinitionID, m, err = util.GetVarUint64(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "IndexColumnRecord.columnDefinitionId")
		}
		n += m
		if c.SortDescending, m, err = getBool(buf[n:]); err != nil {
			return 0, errors.Annotate(err, "IndexColumnRecord.sortDescending")
		}
		n += m
	}
	return n, nil
}
