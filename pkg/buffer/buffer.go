// Package buffer provides the reusable columnar batch buffer of the
// transcoding engine. One batch is allocated per job, resized once per row
// group, and never shared across jobs: each column owns a packed, typed
// value array plus a parallel definition-level array marking nulls.
package buffer

import (
	"github.com/apache/arrow-go/v18/parquet"

	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// Batch is a fixed-capacity scratch area holding up to capacity rows across
// all columns of one job.
type Batch struct {
	columns  []ColumnBuffer
	capacity int
	rows     int
}

// New allocates a batch for the given layouts, sized to capacity rows.
func New(layouts []schema.BufferLayout, capacity int) *Batch {
	b := &Batch{
		columns:  make([]ColumnBuffer, len(layouts)),
		capacity: capacity,
	}
	for i, layout := range layouts {
		b.columns[i].init(layout, capacity)
	}
	return b
}

// ResizeFor prepares the batch for the next row group of rows rows. All
// definition levels are reset to absent and the packed value arrays are
// truncated; values are not zeroed since their length is tracked explicitly.
func (b *Batch) ResizeFor(rows int) {
	b.rows = rows
	for i := range b.columns {
		b.columns[i].reset(rows)
	}
}

// Rows returns the number of rows in the current batch.
func (b *Batch) Rows() int { return b.rows }

// NumColumns returns the column count.
func (b *Batch) NumColumns() int { return len(b.columns) }

// Column returns the buffer for one column.
func (b *Batch) Column(i int) *ColumnBuffer { return &b.columns[i] }

// ColumnBuffer holds the packed values and definition levels of a single
// column. Only the value array matching the layout's slot kind is populated;
// no column mixes slot kinds across batches within a job.
type ColumnBuffer struct {
	layout schema.BufferLayout

	defLevels []int16

	bools    []bool
	int32s   []int32
	int64s   []int64
	float32s []float32
	float64s []float64

	// Byte-backed slots live packed in a single arena; offsets index the
	// start of each value. The header slices handed to the parquet
	// writer and reader are materialized on demand and reused.
	arena   []byte
	offsets []int32
	zero    []byte

	byteVals  []parquet.ByteArray
	fixedVals []parquet.FixedLenByteArray
}

func (c *ColumnBuffer) init(layout schema.BufferLayout, capacity int) {
	c.layout = layout
	c.defLevels = make([]int16, 0, capacity)

	switch layout.Slot {
	case schema.SlotBit:
		c.bools = make([]bool, 0, capacity)
	case schema.SlotI32:
		c.int32s = make([]int32, 0, capacity)
	case schema.SlotI64:
		c.int64s = make([]int64, 0, capacity)
	case schema.SlotF32:
		c.float32s = make([]float32, 0, capacity)
	case schema.SlotF64:
		c.float64s = make([]float64, 0, capacity)
	case schema.SlotBytes:
		c.arena = make([]byte, 0, capacity*layout.MaxValueLen)
		c.offsets = make([]int32, 0, capacity)
		c.byteVals = make([]parquet.ByteArray, 0, capacity)
	case schema.SlotFixed:
		c.arena = make([]byte, 0, capacity*layout.TypeLength)
		c.offsets = make([]int32, 0, capacity)
		c.zero = make([]byte, layout.TypeLength)
		c.fixedVals = make([]parquet.FixedLenByteArray, 0, capacity)
	}
}

func (c *ColumnBuffer) reset(rows int) {
	if cap(c.defLevels) < rows {
		c.defLevels = make([]int16, rows)
	}
	c.defLevels = c.defLevels[:rows]
	for i := range c.defLevels {
		c.defLevels[i] = 0
	}

	c.bools = c.bools[:0]
	c.int32s = c.int32s[:0]
	c.int64s = c.int64s[:0]
	c.float32s = c.float32s[:0]
	c.float64s = c.float64s[:0]
	c.arena = c.arena[:0]
	c.offsets = c.offsets[:0]
}

// Layout returns the column's buffer layout. MaxValueLen reflects any
// re-grow that has happened so far in the job.
func (c *ColumnBuffer) Layout() schema.BufferLayout { return c.layout }

// MarkPresent records a non-null value at the given row. Values must be
// appended in row order so the packed array lines up with the definition
// levels.
func (c *ColumnBuffer) MarkPresent(row int) { c.defLevels[row] = 1 }

// DefLevels returns the definition levels of the current batch.
func (c *ColumnBuffer) DefLevels() []int16 { return c.defLevels }

// PresentCount returns the number of non-null rows in the current batch. It
// always equals the length of the packed value array.
func (c *ColumnBuffer) PresentCount() int {
	n := 0
	for _, lvl := range c.defLevels {
		if lvl > 0 {
			n++
		}
	}
	return n
}

// AppendBool appends a boolean to the packed value array.
func (c *ColumnBuffer) AppendBool(v bool) { c.bools = append(c.bools, v) }

// AppendInt32 appends a 32-bit integer to the packed value array.
func (c *ColumnBuffer) AppendInt32(v int32) { c.int32s = append(c.int32s, v) }

// AppendInt64 appends a 64-bit integer to the packed value array.
func (c *ColumnBuffer) AppendInt64(v int64) { c.int64s = append(c.int64s, v) }

// AppendFloat32 appends a 32-bit float to the packed value array.
func (c *ColumnBuffer) AppendFloat32(v float32) { c.float32s = append(c.float32s, v) }

// AppendFloat64 appends a 64-bit float to the packed value array.
func (c *ColumnBuffer) AppendFloat64(v float64) { c.float64s = append(c.float64s, v) }

// AppendBytes copies a variable-length value into the column arena. A value
// longer than the current cap grows the cap for the rest of the job on
// growable columns and is a capacity error on fixed-width ones; values are
// never truncated.
func (c *ColumnBuffer) AppendBytes(v []byte) error {
	if len(v) > c.layout.MaxValueLen {
		if !c.layout.Growable {
			return xerrors.Newf(xerrors.ErrorTypeCapacity,
				"value of %d bytes exceeds declared width %d", len(v), c.layout.MaxValueLen)
		}
		grown := c.layout.MaxValueLen
		for grown < len(v) {
			grown *= 2
		}
		c.layout.MaxValueLen = grown
	}
	c.offsets = append(c.offsets, int32(len(c.arena)))
	c.arena = append(c.arena, v...)
	return nil
}

// AppendFixed reserves one fixed-length slot in the arena and returns it for
// the caller to fill, e.g. with an encoded decimal.
func (c *ColumnBuffer) AppendFixed() []byte {
	off := len(c.arena)
	c.arena = append(c.arena, c.zero...)
	return c.arena[off : off+c.layout.TypeLength]
}

// AppendFixedValue copies a fixed-length value into the arena, checking its
// width.
func (c *ColumnBuffer) AppendFixedValue(v []byte) error {
	if len(v) != c.layout.TypeLength {
		return xerrors.Newf(xerrors.ErrorTypeCapacity,
			"value of %d bytes does not match fixed width %d", len(v), c.layout.TypeLength)
	}
	copy(c.AppendFixed(), v)
	return nil
}

// Bools returns the packed boolean values.
func (c *ColumnBuffer) Bools() []bool { return c.bools }

// Int32s returns the packed 32-bit integer values.
func (c *ColumnBuffer) Int32s() []int32 { return c.int32s }

// Int64s returns the packed 64-bit integer values.
func (c *ColumnBuffer) Int64s() []int64 { return c.int64s }

// Float32s returns the packed 32-bit float values.
func (c *ColumnBuffer) Float32s() []float32 { return c.float32s }

// Float64s returns the packed 64-bit float values.
func (c *ColumnBuffer) Float64s() []float64 { return c.float64s }

// ByteArrays materializes the packed variable-length values as parquet byte
// array headers into the arena. The returned slice is reused across batches.
func (c *ColumnBuffer) ByteArrays() []parquet.ByteArray {
	c.byteVals = c.byteVals[:0]
	for i, off := range c.offsets {
		end := len(c.arena)
		if i+1 < len(c.offsets) {
			end = int(c.offsets[i+1])
		}
		c.byteVals = append(c.byteVals, parquet.ByteArray(c.arena[off:end]))
	}
	return c.byteVals
}

// FixedArrays materializes the packed fixed-length values as parquet headers
// into the arena.
func (c *ColumnBuffer) FixedArrays() []parquet.FixedLenByteArray {
	c.fixedVals = c.fixedVals[:0]
	width := c.layout.TypeLength
	for off := 0; off < len(c.arena); off += width {
		c.fixedVals = append(c.fixedVals, parquet.FixedLenByteArray(c.arena[off:off+width]))
	}
	return c.fixedVals
}

// The Slice accessors below hand out value arrays sized for n rows for the
// import direction, where the parquet column readers fill them directly.

// BoolSlice returns a boolean value array of length n.
func (c *ColumnBuffer) BoolSlice(n int) []bool {
	if cap(c.bools) < n {
		c.bools = make([]bool, n)
	}
	c.bools = c.bools[:n]
	return c.bools
}

// Int32Slice returns a 32-bit integer value array of length n.
func (c *ColumnBuffer) Int32Slice(n int) []int32 {
	if cap(c.int32s) < n {
		c.int32s = make([]int32, n)
	}
	c.int32s = c.int32s[:n]
	return c.int32s
}

// Int64Slice returns a 64-bit integer value array of length n.
func (c *ColumnBuffer) Int64Slice(n int) []int64 {
	if cap(c.int64s) < n {
		c.int64s = make([]int64, n)
	}
	c.int64s = c.int64s[:n]
	return c.int64s
}

// Float32Slice returns a 32-bit float value array of length n.
func (c *ColumnBuffer) Float32Slice(n int) []float32 {
	if cap(c.float32s) < n {
		c.float32s = make([]float32, n)
	}
	c.float32s = c.float32s[:n]
	return c.float32s
}

// Float64Slice returns a 64-bit float value array of length n.
func (c *ColumnBuffer) Float64Slice(n int) []float64 {
	if cap(c.float64s) < n {
		c.float64s = make([]float64, n)
	}
	c.float64s = c.float64s[:n]
	return c.float64s
}

// ByteArraySlice returns a byte array header slice of length n.
func (c *ColumnBuffer) ByteArraySlice(n int) []parquet.ByteArray {
	if cap(c.byteVals) < n {
		c.byteVals = make([]parquet.ByteArray, n)
	}
	c.byteVals = c.byteVals[:n]
	return c.byteVals
}

// FixedArraySlice returns a fixed-length header slice of length n.
func (c *ColumnBuffer) FixedArraySlice(n int) []parquet.FixedLenByteArray {
	if cap(c.fixedVals) < n {
		c.fixedVals = make([]parquet.FixedLenByteArray, n)
	}
	c.fixedVals = c.fixedVals[:n]
	return c.fixedVals
}
