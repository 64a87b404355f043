package dbio

import (
	"database/sql"
	"strings"

	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// maxDeclaredTextLength caps the declared length taken from the driver.
// Drivers report absurd lengths for LOB types (mysql LONGTEXT reports 2^32);
// past the cap the column is treated as length-unknown and the buffer grows
// on demand instead.
const maxDeclaredTextLength = 65535

// DescriptorFromColumnType maps one database/sql column type onto the closed
// logical kind enum. Database types outside the mapping are a configuration
// error surfaced before any row is fetched.
func DescriptorFromColumnType(ct *sql.ColumnType) (schema.ColumnDescriptor, error) {
	desc := schema.ColumnDescriptor{Name: ct.Name(), Nullable: true}
	if nullable, ok := ct.Nullable(); ok {
		desc.Nullable = nullable
	}

	dbType := strings.ToUpper(ct.DatabaseTypeName())
	unsigned := strings.HasPrefix(dbType, "UNSIGNED ")
	dbType = strings.TrimPrefix(dbType, "UNSIGNED ")

	switch dbType {
	case "VARCHAR", "NVARCHAR", "TEXT", "NTEXT", "STRING", "NAME",
		"TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "CLOB", "JSON", "UUID":
		desc.Kind = schema.KindUtf8
		desc.Length = declaredLength(ct)

	case "CHAR", "NCHAR", "BPCHAR", "CHARACTER":
		desc.Kind = schema.KindUtf8
		desc.Length = declaredLength(ct)

	case "TINYINT":
		desc.Kind = pickInt(schema.KindInt8, schema.KindUint8, unsigned)
	case "SMALLINT", "INT2":
		desc.Kind = pickInt(schema.KindInt16, schema.KindUint16, unsigned)
	case "INT", "INT4", "INTEGER", "MEDIUMINT", "SERIAL":
		desc.Kind = pickInt(schema.KindInt32, schema.KindUint32, unsigned)
	case "BIGINT", "INT8", "BIGSERIAL":
		desc.Kind = pickInt(schema.KindInt64, schema.KindUint64, unsigned)

	case "REAL", "FLOAT4":
		desc.Kind = schema.KindFloat
	case "DOUBLE", "DOUBLE PRECISION", "FLOAT8", "FLOAT":
		desc.Kind = schema.KindDouble

	case "BOOL", "BOOLEAN", "BIT":
		desc.Kind = schema.KindBool

	case "DATE":
		desc.Kind = schema.KindDate

	case "TIME", "TIMETZ":
		desc.Kind = schema.KindTime
		if _, scale, ok := ct.DecimalSize(); ok {
			desc.Precision = int(scale)
		}

	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME",
		"TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		desc.Kind = schema.KindTimestamp
		desc.Precision = 6

	case "NUMERIC", "DECIMAL", "NUMBER", "FIXED", "MONEY":
		desc.Kind = schema.KindDecimal
		precision, scale, ok := ct.DecimalSize()
		if !ok || precision <= 0 {
			return desc, xerrors.Newf(xerrors.ErrorTypeConfig,
				"column %q: decimal precision is not reported by the driver", desc.Name)
		}
		desc.Precision = int(precision)
		desc.Scale = int(scale)

	case "BYTEA", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB",
		"VARBINARY", "BINARY":
		desc.Kind = schema.KindBinary
		desc.Length = declaredLength(ct)

	default:
		return desc, xerrors.Newf(xerrors.ErrorTypeConfig,
			"column %q: unsupported database type %s", desc.Name, dbType)
	}

	return desc, nil
}

func pickInt(signed, unsigned schema.LogicalKind, isUnsigned bool) schema.LogicalKind {
	if isUnsigned {
		return unsigned
	}
	return signed
}

func declaredLength(ct *sql.ColumnType) int {
	length, ok := ct.Length()
	if !ok || length <= 0 || length > maxDeclaredTextLength {
		return 0
	}
	return int(length)
}
