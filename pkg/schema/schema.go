// Package schema defines the column descriptors shared by both sides of a
// transcode job and the resolver that derives columnar buffer layouts from
// them. A job resolves its whole schema up front so that an unsupported
// column fails the job before any row is fetched or any file is created.
package schema

import "fmt"

// LogicalKind is the declared semantic type of a column, as opposed to the
// physical representation it is stored in. The enum is closed: the resolver
// rejects anything it does not enumerate.
type LogicalKind int

const (
	KindUnknown LogicalKind = iota
	KindUtf8
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat
	KindDouble
	KindBool
	KindDate
	KindTime
	KindTimestamp
	KindDecimal
	KindBinary
	KindFixedBinary
)

var kindNames = map[LogicalKind]string{
	KindUnknown:     "unknown",
	KindUtf8:        "utf8",
	KindInt8:        "int8",
	KindInt16:       "int16",
	KindInt32:       "int32",
	KindInt64:       "int64",
	KindUint8:       "uint8",
	KindUint16:      "uint16",
	KindUint32:      "uint32",
	KindUint64:      "uint64",
	KindFloat:       "float",
	KindDouble:      "double",
	KindBool:        "bool",
	KindDate:        "date",
	KindTime:        "time",
	KindTimestamp:   "timestamp",
	KindDecimal:     "decimal",
	KindBinary:      "binary",
	KindFixedBinary: "fixed_binary",
}

func (k LogicalKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("logical_kind(%d)", int(k))
}

// ColumnDescriptor describes one source or target column. Kind and Length
// are jointly sufficient to compute a fixed buffer slot size; the resolver
// rejects any combination for which that does not hold.
type ColumnDescriptor struct {
	// Name is the column name as reported by the source or target.
	Name string `json:"name"`
	// Kind is the logical type of the column.
	Kind LogicalKind `json:"kind"`
	// Nullable reports whether the column admits NULL values.
	Nullable bool `json:"nullable"`
	// Precision is the number of decimal digits for KindDecimal, and the
	// number of fractional-second digits for KindTime and KindTimestamp.
	Precision int `json:"precision,omitempty"`
	// Scale is the number of digits right of the decimal point for
	// KindDecimal.
	Scale int `json:"scale,omitempty"`
	// Length is the declared length for fixed-width textual or binary
	// types, in bytes. Zero means not statically known.
	Length int `json:"length,omitempty"`
}

// SlotKind identifies which typed value array of the columnar batch a
// column's encoded values live in.
type SlotKind int

const (
	// SlotBit holds boolean values.
	SlotBit SlotKind = iota
	// SlotI32 holds 32-bit integers: int8..int32, uint8..uint32 bit
	// patterns, days since epoch, milliseconds since midnight.
	SlotI32
	// SlotI64 holds 64-bit integers: int64, uint64 bit patterns,
	// microseconds since midnight or since epoch.
	SlotI64
	// SlotF32 holds 32-bit floats.
	SlotF32
	// SlotF64 holds 64-bit floats.
	SlotF64
	// SlotBytes holds variable-length byte sequences (text and binary).
	SlotBytes
	// SlotFixed holds fixed-length byte sequences (decimals, fixed
	// binary).
	SlotFixed
)

var slotNames = map[SlotKind]string{
	SlotBit:   "bit",
	SlotI32:   "i32",
	SlotI64:   "i64",
	SlotF32:   "f32",
	SlotF64:   "f64",
	SlotBytes: "bytes",
	SlotFixed: "fixed",
}

func (s SlotKind) String() string {
	if name, ok := slotNames[s]; ok {
		return name
	}
	return fmt.Sprintf("slot_kind(%d)", int(s))
}

// BufferLayout is the buffer shape derived from one ColumnDescriptor. It is
// owned by the transcoding engine for the lifetime of one job and immutable
// after derivation, with one exception: MaxValueLen of a growable column may
// be raised mid-job when a longer value is observed.
type BufferLayout struct {
	// Slot selects the typed value array.
	Slot SlotKind
	// Nullable reports whether the column needs definition levels beyond
	// the trivial all-present case.
	Nullable bool
	// MaxValueLen is the per-value byte cap for SlotBytes columns.
	MaxValueLen int
	// Growable reports whether MaxValueLen may be raised when a longer
	// value is observed. True only for variable-length text and binary
	// without a declared length.
	Growable bool
	// TypeLength is the exact per-value byte width for SlotFixed columns.
	TypeLength int
}
