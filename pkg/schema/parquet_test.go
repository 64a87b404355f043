package schema

import (
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParquetSchemaRoundTrip(t *testing.T) {
	cols := []ColumnDescriptor{
		{Name: "title", Kind: KindUtf8, Nullable: true},
		{Name: "payload", Kind: KindBinary},
		{Name: "hash", Kind: KindFixedBinary, Length: 32},
		{Name: "flag", Kind: KindBool, Nullable: true},
		{Name: "small", Kind: KindInt8},
		{Name: "medium", Kind: KindInt32},
		{Name: "big", Kind: KindInt64, Nullable: true},
		{Name: "counter", Kind: KindUint32},
		{Name: "ratio", Kind: KindFloat},
		{Name: "score", Kind: KindDouble},
		{Name: "born", Kind: KindDate, Nullable: true},
		{Name: "at_millis", Kind: KindTime, Precision: 3},
		{Name: "at_micros", Kind: KindTime, Precision: 6},
		{Name: "updated", Kind: KindTimestamp, Precision: 6},
		{Name: "amount", Kind: KindDecimal, Precision: 9, Scale: 2, Nullable: true},
	}

	root, err := ToParquet(cols)
	require.NoError(t, err)
	require.Equal(t, len(cols), root.NumFields())

	back, err := FromParquet(pqschema.NewSchema(root))
	require.NoError(t, err)
	require.Len(t, back, len(cols))

	for i, col := range cols {
		got := back[i]
		assert.Equal(t, col.Name, got.Name, col.Name)
		assert.Equal(t, col.Kind, got.Kind, col.Name)
		assert.Equal(t, col.Nullable, got.Nullable, col.Name)
	}

	// Decimal parameters and fixed widths survive the trip.
	amount := back[14]
	assert.Equal(t, 9, amount.Precision)
	assert.Equal(t, 2, amount.Scale)
	assert.Equal(t, DecimalByteWidth(9), amount.Length)

	hash := back[2]
	assert.Equal(t, 32, hash.Length)

	// Time precision collapses onto the millis/micros boundary.
	assert.Equal(t, 3, back[11].Precision)
	assert.Equal(t, 6, back[12].Precision)
}

func TestToParquetPhysicalTypes(t *testing.T) {
	tests := []struct {
		name     string
		col      ColumnDescriptor
		physical parquet.Type
	}{
		{name: "date is int32", col: ColumnDescriptor{Name: "d", Kind: KindDate}, physical: parquet.Types.Int32},
		{name: "timestamp is int64", col: ColumnDescriptor{Name: "ts", Kind: KindTimestamp}, physical: parquet.Types.Int64},
		{name: "time millis is int32", col: ColumnDescriptor{Name: "t", Kind: KindTime, Precision: 0}, physical: parquet.Types.Int32},
		{name: "time micros is int64", col: ColumnDescriptor{Name: "t", Kind: KindTime, Precision: 6}, physical: parquet.Types.Int64},
		{name: "decimal is fixed", col: ColumnDescriptor{Name: "n", Kind: KindDecimal, Precision: 5, Scale: 2}, physical: parquet.Types.FixedLenByteArray},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node, err := toParquetNode(tt.col)
			require.NoError(t, err)
			prim, ok := node.(*pqschema.PrimitiveNode)
			require.True(t, ok)
			assert.Equal(t, tt.physical, prim.PhysicalType())
		})
	}
}

func TestFromParquetRejectsNested(t *testing.T) {
	inner, err := pqschema.NewPrimitiveNodeLogical("element", parquet.Repetitions.Repeated,
		pqschema.NoLogicalType{}, parquet.Types.Int32, -1, -1)
	require.NoError(t, err)
	group, err := pqschema.NewGroupNode("list", parquet.Repetitions.Optional,
		pqschema.FieldList{inner}, -1)
	require.NoError(t, err)
	root, err := pqschema.NewGroupNode("schema", parquet.Repetitions.Required,
		pqschema.FieldList{group}, -1)
	require.NoError(t, err)

	_, err = FromParquet(pqschema.NewSchema(root))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not supported")
}
