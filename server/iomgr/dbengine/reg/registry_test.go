package reg

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRegistryInsertAndLookup(t *testing.T) {
	r := NewTableRegistry()
	require.NoError(t, r.Insert(TableRecord{ID: 1, Name: "SYS_TABLES", FirstUserTrid: 4096}))
	require.NoError(t, r.Insert(TableRecord{ID: 4096, Name: "T1", FirstUserTrid: 4096}))

	assert.ErrorIs(t, r.Insert(TableRecord{ID: 1, Name: "OTHER"}), ErrDuplicateID)
	assert.ErrorIs(t, r.Insert(TableRecord{ID: 2, Name: "T1"}), ErrDuplicateName)

	rec, ok := r.FindByName("T1")
	require.True(t, ok)
	assert.Equal(t, uint32(4096), rec.ID)

	_, ok = r.FindByID(3)
	assert.False(t, ok)
}

func TestTableRegistryReplaceKeepsIdentity(t *testing.T) {
	r := NewTableRegistry()
	require.NoError(t, r.Insert(TableRecord{ID: 4096, Name: "T1", CurrentColumnSetID: 10}))

	require.NoError(t, r.Replace(TableRecord{ID: 4096, Name: "T1", CurrentColumnSetID: 20}))
	rec, _ := r.FindByID(4096)
	assert.Equal(t, uint64(20), rec.CurrentColumnSetID)

	// Renames update the name index atomically.
	require.NoError(t, r.Replace(TableRecord{ID: 4096, Name: "T2", CurrentColumnSetID: 20}))
	_, ok := r.FindByName("T1")
	assert.False(t, ok)
	rec, ok = r.FindByName("T2")
	require.True(t, ok)
	assert.Equal(t, uint32(4096), rec.ID)

	assert.ErrorIs(t, r.Replace(TableRecord{ID: 5, Name: "X"}), ErrNotFound)
}

func TestColumnRegistryNameUniquePerTable(t *testing.T) {
	r := NewColumnRegistry()
	require.NoError(t, r.Insert(ColumnRecord{ID: 1, Name: "a", TableID: 1}))
	// Same name in another table is fine.
	require.NoError(t, r.Insert(ColumnRecord{ID: 2, Name: "a", TableID: 2}))
	assert.ErrorIs(t, r.Insert(ColumnRecord{ID: 3, Name: "a", TableID: 1}), ErrDuplicateName)
}

func TestColumnDefinitionRegistryLatestForColumn(t *testing.T) {
	r := NewColumnDefinitionRegistry()
	require.NoError(t, r.Insert(ColumnDefinitionRecord{ID: 10, ColumnID: 5}))
	require.NoError(t, r.Insert(ColumnDefinitionRecord{ID: 20, ColumnID: 5}))
	require.NoError(t, r.Insert(ColumnDefinitionRecord{ID: 15, ColumnID: 6}))
	require.NoError(t, r.Insert(ColumnDefinitionRecord{ID: 30, ColumnID: 4}))

	id, ok := r.LastDefinitionIDForColumn(5)
	require.True(t, ok)
	assert.Equal(t, uint64(20), id)

	id, ok = r.LastDefinitionIDForColumn(6)
	require.True(t, ok)
	assert.Equal(t, uint64(15), id)

	id, ok = r.LastDefinitionIDForColumn(4)
	require.True(t, ok)
	assert.Equal(t, uint64(30), id)

	_, ok = r.LastDefinitionIDForColumn(7)
	assert.False(t, ok)

	_, ok = NewColumnDefinitionRegistry().LastDefinitionIDForColumn(5)
	assert.False(t, ok)
}

func TestConstraintDefinitionHashDiscipline(t *testing.T) {
	exprBytes := []byte{1, 2, 3}
	h := ComputeConstraintDefinitionHash(ConstraintTypeNotNull, exprBytes)
	assert.Equal(t, h, ComputeConstraintDefinitionHash(ConstraintTypeNotNull, exprBytes))
	assert.NotEqual(t, h, ComputeConstraintDefinitionHash(ConstraintTypeDefaultValue, exprBytes))
	assert.NotEqual(t, h, ComputeConstraintDefinitionHash(ConstraintTypeNotNull, []byte{1, 2, 4}))
}

func TestConstraintDefinitionRegistryEqualRange(t *testing.T) {
	r := NewConstraintDefinitionRegistry()
	recA := NewConstraintDefinitionRecord(1, ConstraintTypeNotNull, []byte{1})
	recB := NewConstraintDefinitionRecord(4096, ConstraintTypeNotNull, []byte{1})
	require.NoError(t, r.Insert(recA))
	require.NoError(t, r.Insert(recB))

	rows := r.EqualRangeByHash(recA.Hash)
	require.Len(t, rows, 2)
	assert.Equal(t, uint64(1), rows[0].ID)
	assert.Equal(t, uint64(4096), rows[1].ID)
	for i := range rows {
		assert.True(t, rows[i].IsEqualDefinition(&recA))
	}

	assert.Empty(t, r.EqualRangeByHash(recA.Hash+1))
}

func TestConstraintRegistryNameUnique(t *testing.T) {
	r := NewConstraintRegistry()
	require.NoError(t, r.Insert(ConstraintRecord{ID: 1, Name: "C1"}))
	assert.ErrorIs(t, r.Insert(ConstraintRecord{ID: 2, Name: "C1"}), ErrDuplicateName)
	assert.True(t, r.ContainsName("C1"))
	assert.False(t, r.ContainsName("C2"))
}

func TestSystemObjectsSnapshotRoundTrip(t *testing.T) {
	s := NewSystemObjects()
	require.NoError(t, s.Tables.Insert(TableRecord{ID: 1, Name: "SYS_TABLES", FirstUserTrid: 4096, CurrentColumnSetID: 1}))
	require.NoError(t, s.Columns.Insert(ColumnRecord{ID: 1, Name: "TRID", DataType: ColumnDataTypeUInt64, TableID: 1}))
	require.NoError(t, s.ColumnSets.Insert(ColumnSetRecord{
		ID:      1,
		TableID: 1,
		Columns: []ColumnSetColumnRecord{{ID: 1, ColumnSetID: 1, ColumnDefinitionID: 1, ColumnID: 1}},
	}))
	require.NoError(t, s.ColumnDefinitions.Insert(ColumnDefinitionRecord{
		ID:          1,
		ColumnID:    1,
		ColumnSetID: 1,
		Constraints: []ColumnDefinitionConstraintRecord{{ID: 1, ColumnDefinitionID: 1, ConstraintID: 1}},
	}))
	require.NoError(t, s.Constraints.Insert(ConstraintRecord{
		ID: 1, Name: "SYS_TABLES_TRID_NOTNULL_1", TableID: 1, ColumnID: 1, ConstraintDefinitionID: 1,
	}))
	require.NoError(t, s.ConstraintDefinitions.Insert(
		NewConstraintDefinitionRecord(1, ConstraintTypeNotNull, []byte{1, 1, 1})))
	require.NoError(t, s.Indices.Insert(IndexRecord{
		ID: 1, TableID: 1, Name: "IDX1",
		Columns: []IndexColumnRecord{{ID: 1, IndexID: 1, ColumnDefinitionID: 1, SortDescending: true}},
	}))

	var buf bytes.Buffer
	require.NoError(t, s.SaveTo(&buf))

	restored, err := LoadSystemObjects(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, s.Tables.All(), restored.Tables.All())
	assert.Equal(t, s.Columns.All(), restored.Columns.All())
	assert.Equal(t, s.ColumnSets.All(), restored.ColumnSets.All())
	assert.Equal(t, s.ColumnDefinitions.All(), restored.ColumnDefinitions.All())
	assert.Equal(t, s.Constraints.All(), restored.Constraints.All())
	assert.Equal(t, s.ConstraintDefinitions.All(), restored.ConstraintDefinitions.All())
	assert.Equal(t, s.Indices.All(), restored.Indices.All())

	// Truncated payloads are rejected.
	_, err = LoadSystemObjects(bytes.NewReader(buf.Bytes()[:4]))
	assert.Error(t, err)
}
