package schema

import (
	"github.com/apache/arrow-go/v18/parquet"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/parquio/parquio/pkg/xerrors"
)

// ToParquet builds the parquet schema root for a resolved column set. The
// physical type of each node mirrors the slot kind of its buffer layout, so
// the engine can hand packed value arrays to the column chunk writers
// unchanged.
func ToParquet(cols []ColumnDescriptor) (*pqschema.GroupNode, error) {
	fields := make(pqschema.FieldList, 0, len(cols))
	for _, col := range cols {
		node, err := toParquetNode(col)
		if err != nil {
			return nil, err
		}
		fields = append(fields, node)
	}

	root, err := pqschema.NewGroupNode("schema", parquet.Repetitions.Required, fields, -1)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeConfig, "failed to build parquet schema")
	}
	return root, nil
}

func toParquetNode(col ColumnDescriptor) (pqschema.Node, error) {
	rep := parquet.Repetitions.Required
	if col.Nullable {
		rep = parquet.Repetitions.Optional
	}

	var (
		logical  pqschema.LogicalType = pqschema.NoLogicalType{}
		physical parquet.Type
		typeLen  = -1
	)

	switch col.Kind {
	case KindUtf8:
		logical = pqschema.StringLogicalType{}
		physical = parquet.Types.ByteArray
	case KindBinary:
		physical = parquet.Types.ByteArray
	case KindFixedBinary:
		physical = parquet.Types.FixedLenByteArray
		typeLen = col.Length
	case KindBool:
		physical = parquet.Types.Boolean
	case KindInt8:
		logical = pqschema.NewIntLogicalType(8, true)
		physical = parquet.Types.Int32
	case KindInt16:
		logical = pqschema.NewIntLogicalType(16, true)
		physical = parquet.Types.Int32
	case KindInt32:
		physical = parquet.Types.Int32
	case KindInt64:
		physical = parquet.Types.Int64
	case KindUint8:
		logical = pqschema.NewIntLogicalType(8, false)
		physical = parquet.Types.Int32
	case KindUint16:
		logical = pqschema.NewIntLogicalType(16, false)
		physical = parquet.Types.Int32
	case KindUint32:
		logical = pqschema.NewIntLogicalType(32, false)
		physical = parquet.Types.Int32
	case KindUint64:
		logical = pqschema.NewIntLogicalType(64, false)
		physical = parquet.Types.Int64
	case KindFloat:
		physical = parquet.Types.Float
	case KindDouble:
		physical = parquet.Types.Double
	case KindDate:
		logical = pqschema.DateLogicalType{}
		physical = parquet.Types.Int32
	case KindTime:
		if col.Precision > 3 {
			logical = pqschema.NewTimeLogicalType(true, pqschema.TimeUnitMicros)
			physical = parquet.Types.Int64
		} else {
			logical = pqschema.NewTimeLogicalType(true, pqschema.TimeUnitMillis)
			physical = parquet.Types.Int32
		}
	case KindTimestamp:
		logical = pqschema.NewTimestampLogicalType(true, pqschema.TimeUnitMicros)
		physical = parquet.Types.Int64
	case KindDecimal:
		logical = pqschema.NewDecimalLogicalType(int32(col.Precision), int32(col.Scale))
		physical = parquet.Types.FixedLenByteArray
		typeLen = DecimalByteWidth(col.Precision)
	default:
		return nil, xerrors.Newf(xerrors.ErrorTypeConfig,
			"column %q: logical kind %s has no parquet mapping", col.Name, col.Kind)
	}

	node, err := pqschema.NewPrimitiveNodeLogical(col.Name, rep, logical, physical, typeLen, -1)
	if err != nil {
		return nil, xerrors.Wrapf(err, xerrors.ErrorTypeConfig,
			"column %q: failed to build parquet node", col.Name)
	}
	return node, nil
}

// FromParquet derives column descriptors from a parquet file schema, so that
// the import direction resolves buffer layouts from the same closed mapping
// table as the export direction.
func FromParquet(sc *pqschema.Schema) ([]ColumnDescriptor, error) {
	cols := make([]ColumnDescriptor, 0, sc.NumColumns())
	for i := 0; i < sc.NumColumns(); i++ {
		col := sc.Column(i)
		if col.MaxRepetitionLevel() > 0 || col.MaxDefinitionLevel() > 1 {
			return nil, xerrors.Newf(xerrors.ErrorTypeConfig,
				"column %q: nested and repeated types are not supported", col.Name())
		}

		desc, err := fromParquetColumn(col)
		if err != nil {
			return nil, err
		}
		cols = append(cols, desc)
	}
	return cols, nil
}

func fromParquetColumn(col *pqschema.Column) (ColumnDescriptor, error) {
	desc := ColumnDescriptor{
		Name:     col.Name(),
		Nullable: col.MaxDefinitionLevel() > 0,
	}

	switch logical := deriveLogicalType(col).(type) {
	case pqschema.StringLogicalType:
		desc.Kind = KindUtf8
		return desc, nil

	case pqschema.IntLogicalType:
		desc.Kind = intKind(logical.BitWidth(), logical.IsSigned())
		return desc, nil

	case pqschema.DateLogicalType:
		desc.Kind = KindDate
		return desc, nil

	case pqschema.TimeLogicalType:
		desc.Kind = KindTime
		switch logical.TimeUnit() {
		case pqschema.TimeUnitMillis:
			desc.Precision = 3
		case pqschema.TimeUnitMicros:
			desc.Precision = 6
		default:
			return desc, xerrors.Newf(xerrors.ErrorTypeConfig,
				"column %q: unsupported time unit", col.Name())
		}
		return desc, nil

	case pqschema.TimestampLogicalType:
		desc.Kind = KindTimestamp
		desc.Precision = 6
		return desc, nil

	case pqschema.DecimalLogicalType:
		desc.Kind = KindDecimal
		desc.Precision = int(logical.Precision())
		desc.Scale = int(logical.Scale())
		desc.Length = col.TypeLength()
		return desc, nil

	case pqschema.NoLogicalType, nil:
		return fromPhysicalType(col, desc)

	default:
		return desc, xerrors.Newf(xerrors.ErrorTypeConfig,
			"column %q: logical type %s is not yet supported", col.Name(), logical)
	}
}

// fromPhysicalType maps unannotated columns by their physical type alone.
func fromPhysicalType(col *pqschema.Column, desc ColumnDescriptor) (ColumnDescriptor, error) {
	switch col.PhysicalType() {
	case parquet.Types.Boolean:
		desc.Kind = KindBool
	case parquet.Types.Int32:
		desc.Kind = KindInt32
	case parquet.Types.Int64:
		desc.Kind = KindInt64
	case parquet.Types.Float:
		desc.Kind = KindFloat
	case parquet.Types.Double:
		desc.Kind = KindDouble
	case parquet.Types.ByteArray:
		desc.Kind = KindBinary
	case parquet.Types.FixedLenByteArray:
		desc.Kind = KindFixedBinary
		desc.Length = col.TypeLength()
	default:
		return desc, xerrors.Newf(xerrors.ErrorTypeConfig,
			"column %q: unsupported physical type %s", col.Name(), col.PhysicalType())
	}
	return desc, nil
}

func intKind(bitWidth int8, signed bool) LogicalKind {
	switch {
	case signed && bitWidth == 8:
		return KindInt8
	case signed && bitWidth == 16:
		return KindInt16
	case signed && bitWidth == 32:
		return KindInt32
	case signed:
		return KindInt64
	case bitWidth == 8:
		return KindUint8
	case bitWidth == 16:
		return KindUint16
	case bitWidth == 32:
		return KindUint32
	default:
		return KindUint64
	}
}

// deriveLogicalType returns the logical type of a column, converting the
// legacy converted type annotation when a file predates logical types.
func deriveLogicalType(col *pqschema.Column) pqschema.LogicalType {
	logical := col.LogicalType()
	converted := col.ConvertedType()

	_, none := logical.(pqschema.NoLogicalType)
	if (logical == nil || none) && converted != pqschema.ConvertedTypes.None {
		meta := pqschema.DecimalMetadata{}
		if node, ok := col.SchemaNode().(*pqschema.PrimitiveNode); ok {
			meta = node.DecimalMetadata()
		}
		logical = converted.ToLogicalType(meta)
	}

	return logical
}
