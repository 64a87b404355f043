package schema

import (
	"math/big"

	"github.com/parquio/parquio/pkg/xerrors"
)

// DefaultTextLength is the conservative per-value byte cap assumed for
// variable-length text and binary columns whose length is not statically
// known. The buffer grows past it when a longer value is observed.
const DefaultTextLength = 128

// MaxDecimalPrecision is the largest decimal precision the resolver accepts.
// It is bounded only by the fixed-length byte array width computation.
const MaxDecimalPrecision = 76

// Resolve derives the buffer layout for one column. It is a pure function of
// its input: resolving the same descriptor twice yields identical layouts.
// Unsupported kinds fail with a config error so that callers can reject the
// whole schema before any I/O begins.
func Resolve(col ColumnDescriptor) (BufferLayout, error) {
	switch col.Kind {
	case KindUtf8, KindBinary:
		maxLen := col.Length
		growable := false
		if maxLen <= 0 {
			maxLen = DefaultTextLength
			growable = true
		}
		return BufferLayout{
			Slot:        SlotBytes,
			Nullable:    col.Nullable,
			MaxValueLen: maxLen,
			Growable:    growable,
		}, nil

	case KindFixedBinary:
		if col.Length <= 0 {
			return BufferLayout{}, xerrors.Newf(xerrors.ErrorTypeConfig,
				"column %q: fixed binary requires a declared length", col.Name)
		}
		return BufferLayout{
			Slot:       SlotFixed,
			Nullable:   col.Nullable,
			TypeLength: col.Length,
		}, nil

	case KindBool:
		return BufferLayout{Slot: SlotBit, Nullable: col.Nullable}, nil

	case KindInt8, KindInt16, KindInt32, KindUint8, KindUint16, KindUint32:
		return BufferLayout{Slot: SlotI32, Nullable: col.Nullable}, nil

	case KindInt64, KindUint64:
		return BufferLayout{Slot: SlotI64, Nullable: col.Nullable}, nil

	case KindFloat:
		return BufferLayout{Slot: SlotF32, Nullable: col.Nullable}, nil

	case KindDouble:
		return BufferLayout{Slot: SlotF64, Nullable: col.Nullable}, nil

	case KindDate:
		// Days since epoch.
		return BufferLayout{Slot: SlotI32, Nullable: col.Nullable}, nil

	case KindTime:
		// Milliseconds since midnight fit an i32; sub-millisecond
		// precision needs the microsecond i64 representation.
		if col.Precision > 3 {
			return BufferLayout{Slot: SlotI64, Nullable: col.Nullable}, nil
		}
		return BufferLayout{Slot: SlotI32, Nullable: col.Nullable}, nil

	case KindTimestamp:
		// Microseconds since epoch.
		return BufferLayout{Slot: SlotI64, Nullable: col.Nullable}, nil

	case KindDecimal:
		if col.Precision <= 0 || col.Precision > MaxDecimalPrecision {
			return BufferLayout{}, xerrors.Newf(xerrors.ErrorTypeConfig,
				"column %q: decimal precision %d out of range [1, %d]",
				col.Name, col.Precision, MaxDecimalPrecision)
		}
		if col.Scale < 0 || col.Scale > col.Precision {
			return BufferLayout{}, xerrors.Newf(xerrors.ErrorTypeConfig,
				"column %q: decimal scale %d out of range [0, %d]",
				col.Name, col.Scale, col.Precision)
		}
		return BufferLayout{
			Slot:       SlotFixed,
			Nullable:   col.Nullable,
			TypeLength: DecimalByteWidth(col.Precision),
		}, nil

	case KindUnknown:
		return BufferLayout{}, xerrors.Newf(xerrors.ErrorTypeConfig,
			"column %q: unresolvable logical kind", col.Name)

	default:
		return BufferLayout{}, xerrors.Newf(xerrors.ErrorTypeConfig,
			"column %q: logical kind %s is not yet supported", col.Name, col.Kind)
	}
}

// ResolveAll resolves every column of a schema, failing on the first
// unsupported one.
func ResolveAll(cols []ColumnDescriptor) ([]BufferLayout, error) {
	layouts := make([]BufferLayout, len(cols))
	for i, col := range cols {
		layout, err := Resolve(col)
		if err != nil {
			return nil, err
		}
		layouts[i] = layout
	}
	return layouts, nil
}

// DecimalByteWidth returns the smallest number of big-endian two's-complement
// bytes that can hold any decimal of the given precision, sign included.
func DecimalByteWidth(precision int) int {
	// Largest magnitude is 10^precision - 1; one extra bit for the sign.
	bound := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(precision)), nil)
	bound.Sub(bound, big.NewInt(1))
	return (bound.BitLen() + 1 + 7) / 8
}
