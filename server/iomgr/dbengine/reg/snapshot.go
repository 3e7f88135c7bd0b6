package reg

import (
	"encoding/binary"
	"io"

	"github.com/juju/errors"
	"github.com/pierrec/lz4/v4"

	"github.com/govindnetworks/siodb/util"
)

// Snapshot file framing.
const (
	snapshotMagic   = uint32(0x53494F43) // "SIOC"
	snapshotVersion = uint32(1)
)

// SystemObjects bundles the per-database catalog registries that persist in
// the system objects snapshot file.
type SystemObjects struct {
	Tables                *TableRegistry
	Columns               *ColumnRegistry
	ColumnSets            *ColumnSetRegistry
	ColumnDefinitions     *ColumnDefinitionRegistry
	Constraints           *ConstraintRegistry
	ConstraintDefinitions *ConstraintDefinitionRegistry
	Indices               *IndexRegistry
}

// NewSystemObjects creates an empty registry set.
func NewSystemObjects() *SystemObjects {
	return &SystemObjects{
		Tables:                NewTableRegistry(),
		Columns:               NewColumnRegistry(),
		ColumnSets:            NewColumnSetRegistry(),
		ColumnDefinitions:     NewColumnDefinitionRegistry(),
		Constraints:           NewConstraintRegistry(),
		ConstraintDefinitions: NewConstraintDefinitionRegistry(),
		Indices:               NewIndexRegistry(),
	}
}

type serializableRecord interface {
	SerializedSize() int
	SerializeInto(buf []byte) int
}

func appendRecords[T any, PT interface {
	*T
	serializableRecord
}](payload []byte, records []T) []byte {
	var scratch [10]byte
	n := util.PutVarUint64(scratch[:], uint64(len(records)))
	payload = append(payload, scratch[:n]...)
	for i := range records {
		rec := PT(&records[i])
		buf := make([]byte, rec.SerializedSize())
		rec.SerializeInto(buf)
		payload = append(payload, buf...)
	}
	return payload
}

type deserializableRecord interface {
	Deserialize(buf []byte) (int, error)
}

func readRecords[T any, PT interface {
	*T
	deserializableRecord
}](payload []byte, insert func(T) error) ([]byte, error) {
	count, n, err := util.GetVarUint64(payload)
	if err != nil {
		return nil, errors.Annotate(err, "record count")
	}
	payload = payload[n:]
	for i := uint64(0); i < count; i++ {
		var rec T
		n, err := PT(&rec).Deserialize(payload)
		if err != nil {
			return nil, err
		}
		payload = payload[n:]
		if err := insert(rec); err != nil {
			return nil, err
		}
	}
	return payload, nil
}

// Serialize renders the registries into the uncompressed snapshot payload.
func (s *SystemObjects) Serialize() []byte {
	var payload []byte
	payload = appendRecords[TableRecord](payload, s.Tables.All())
	payload = appendRecords[ColumnRecord](payload, s.Columns.All())
	payload = appendRecords[ColumnSetRecord](payload, s.ColumnSets.All())
	payload = appendRecords[ColumnDefinitionRecord](payload, s.ColumnDefinitions.All())
	payload = appendRecords[ConstraintRecord](payload, s.Constraints.All())
	payload = appendRecords[ConstraintDefinitionRecord](payload, s.ConstraintDefinitions.All())
	payload = appendRecords[IndexRecord](payload, s.Indices.All())
	return payload
}

// SaveTo writes the versioned, lz4-compressed snapshot to w.
func (s *SystemObjects) SaveTo(w io.Writer) error {
	var header [8]byte
	binary.LittleEndian.PutUint32(header[:4], snapshotMagic)
	binary.LittleEndian.PutUint32(header[4:], snapshotVersion)
	if _, err := w.Write(header[:]); err != nil {
		return errors.Annotate(err, "cannot write system objects header")
	}
	zw := lz4.NewWriter(w)
	if _, err := zw.Write(s.Serialize()); err != nil {
		return errors.Annotate(err, "cannot write system objects payload")
	}
	return errors.Annotate(zw.Close(), "cannot finish system objects payload")
}

// LoadSystemObjects reads a snapshot written by SaveTo.
func LoadSystemObjects(r io.Reader) (*SystemObjects, error) {
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, errors.Annotate(err, "cannot read system objects header")
	}
	if binary.LittleEndian.Uint32(header[:4]) != snapshotMagic {
		return nil, errors.New("system objects file is corrupt: bad magic")
	}
	if v := binary.LittleEndian.Uint32(header[4:]); v != snapshotVersion {
		return nil, errors.Errorf("unsupported system objects version %d", v)
	}

	payload, err := io.ReadAll(lz4.NewReader(r))
	if err != nil {
		return nil, errors.Annotate(err, "cannot read system objects payload")
	}

	s := NewSystemObjects()
	if payload, err = readRecords[TableRecord](payload, s.Tables.Insert); err != nil {
		return nil, errors.Annotate(err, "tables")
	}
	if payload, err = readRecords[ColumnRecord](payload, s.Columns.Insert); err != nil {
		return nil, errors.Annotate(err, "columns")
	}
	if payload, err = readRecords[ColumnSetRecord](payload, s.ColumnSets.Insert); err != nil {
		return nil, errors.Annotate(err, "column sets")
	}
	if payload, err = readRecords[ColumnDefinitionRecord](payload, s.ColumnDefinitions.Insert); err != nil {
		return nil, errors.Annotate(err, "column definitions")
	}
	if payload, err = readRecords[ConstraintRecord](payload, s.Constraints.Insert); err != nil {
		return nil, errors.Annotate(err, "constraints")
	}
	if payload, err = readRecords[ConstraintDefinitionRecord](payload, s.ConstraintDefinitions.Insert); err != nil {
		return nil, errors.Annotate(err, "constraint definitions")
	}
	if _, err = readRecords[IndexRecord](payload, s.Indices.Insert); err != nil {
		return nil, errors.Annotate(err, "indices")
	}
	return s, nil
}
