package transcode

import (
	"context"

	"github.com/apache/arrow-go/v18/parquet/file"
	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/buffer"
	"github.com/parquio/parquio/pkg/dbio"
	"github.com/parquio/parquio/pkg/encoding"
	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// RowSinkFactory creates the row sink once the file schema has been mapped
// to column descriptors, after every column has resolved to a buffer layout.
type RowSinkFactory func(cols []schema.ColumnDescriptor) (dbio.RowSink, error)

// Import streams the row groups of an open parquet file into sink batches of
// up to batchSize rows. Each row group becomes one or more write batches;
// the sink decides transactional boundaries.
func Import(ctx context.Context, reader *file.Reader, newSink RowSinkFactory, batchSize int, log *zap.Logger) error {
	cols, err := schema.FromParquet(reader.MetaData().Schema)
	if err != nil {
		return err
	}
	layouts, err := schema.ResolveAll(cols)
	if err != nil {
		return err
	}

	sink, err := newSink(cols)
	if err != nil {
		return err
	}

	batch := buffer.New(layouts, batchSize)
	rows := make([][]interface{}, batchSize)
	for i := range rows {
		rows[i] = make([]interface{}, len(cols))
	}

	total := int64(0)
	for g := 0; g < reader.NumRowGroups(); g++ {
		rg := reader.RowGroup(g)
		remaining := rg.NumRows()

		readers := make([]file.ColumnChunkReader, len(cols))
		for c := range cols {
			readers[c], err = rg.Column(c)
			if err != nil {
				_ = sink.Close()
				return annotate(
					xerrors.Wrap(err, xerrors.ErrorTypeIO, "failed to open column chunk"),
					cols[c].Name, g)
			}
		}

		for remaining > 0 {
			if err := ctx.Err(); err != nil {
				_ = sink.Close()
				return xerrors.Wrap(err, xerrors.ErrorTypeIO, "import canceled")
			}

			chunk := batchSize
			if int64(chunk) > remaining {
				chunk = int(remaining)
			}
			batch.ResizeFor(chunk)

			for c := range cols {
				if err := readColumn(batch.Column(c), readers[c], chunk); err != nil {
					_ = sink.Close()
					return annotate(err, cols[c].Name, g)
				}
				if err := decodeColumn(batch.Column(c), cols[c], c, rows, chunk); err != nil {
					_ = sink.Close()
					return annotate(err, cols[c].Name, g)
				}
			}

			if err := sink.WriteBatch(ctx, rows, chunk); err != nil {
				_ = sink.Close()
				return annotate(err, "", g)
			}
			remaining -= int64(chunk)
			total += int64(chunk)
		}
		log.Debug("row group imported", zap.Int("row_group", g+1))
	}

	if err := sink.Close(); err != nil {
		return err
	}
	log.Info("import complete",
		zap.Int("row_groups", reader.NumRowGroups()),
		zap.Int64("rows", total))
	return nil
}

// readColumn fills the column buffer with the next n rows of the chunk. The
// packed value array holds only the non-null values; the definition levels
// say which rows they belong to.
func readColumn(col *buffer.ColumnBuffer, cr file.ColumnChunkReader, n int) error {
	defs := col.DefLevels()

	var (
		rowsRead int64
		err      error
	)
	switch tr := cr.(type) {
	case *file.BooleanColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.BoolSlice(n), defs, nil)
	case *file.Int32ColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.Int32Slice(n), defs, nil)
	case *file.Int64ColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.Int64Slice(n), defs, nil)
	case *file.Float32ColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.Float32Slice(n), defs, nil)
	case *file.Float64ColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.Float64Slice(n), defs, nil)
	case *file.ByteArrayColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.ByteArraySlice(n), defs, nil)
	case *file.FixedLenByteArrayColumnChunkReader:
		rowsRead, _, err = tr.ReadBatch(int64(n), col.FixedArraySlice(n), defs, nil)
	default:
		return xerrors.Newf(xerrors.ErrorTypeIO, "unsupported column chunk reader %T", cr)
	}
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrorTypeIO, "failed to read column chunk")
	}
	if rowsRead != int64(n) {
		return xerrors.Newf(xerrors.ErrorTypeIO, "short column read: got %d rows, want %d", rowsRead, n)
	}

	// Required columns carry no levels in the file; every row is present.
	if cr.Descriptor().MaxDefinitionLevel() == 0 {
		for i := range defs {
			defs[i] = 1
		}
	}
	return nil
}

// decodeColumn expands the packed values into driver-friendly row values.
// Byte-backed values are copied out since the read buffers are reused.
func decodeColumn(col *buffer.ColumnBuffer, desc schema.ColumnDescriptor, colIdx int, rows [][]interface{}, n int) error {
	layout := col.Layout()
	defs := col.DefLevels()
	vi := 0

	for r := 0; r < n; r++ {
		if defs[r] == 0 {
			rows[r][colIdx] = nil
			continue
		}

		switch layout.Slot {
		case schema.SlotBit:
			rows[r][colIdx] = col.Bools()[vi]
		case schema.SlotI32:
			rows[r][colIdx] = decodeInt32(desc, col.Int32s()[vi])
		case schema.SlotI64:
			rows[r][colIdx] = decodeInt64(desc, col.Int64s()[vi])
		case schema.SlotF32:
			rows[r][colIdx] = col.Float32s()[vi]
		case schema.SlotF64:
			rows[r][colIdx] = col.Float64s()[vi]
		case schema.SlotBytes:
			b := col.ByteArraySlice(n)[vi]
			if desc.Kind == schema.KindUtf8 {
				rows[r][colIdx] = string(b)
			} else {
				copied := make([]byte, len(b))
				copy(copied, b)
				rows[r][colIdx] = copied
			}
		case schema.SlotFixed:
			b := col.FixedArraySlice(n)[vi]
			if desc.Kind == schema.KindDecimal {
				rows[r][colIdx] = encoding.DecodeDecimal(b, desc.Scale)
			} else {
				copied := make([]byte, len(b))
				copy(copied, b)
				rows[r][colIdx] = copied
			}
		default:
			return xerrors.Newf(xerrors.ErrorTypeIO, "unsupported buffer slot %s", layout.Slot)
		}
		vi++
	}
	return nil
}

func decodeInt32(desc schema.ColumnDescriptor, v int32) interface{} {
	switch desc.Kind {
	case schema.KindDate:
		return encoding.DateFromDays(v).Format("2006-01-02")
	case schema.KindTime:
		return encoding.TimeFromMillis(v).String()
	case schema.KindUint8, schema.KindUint16, schema.KindUint32:
		return int64(uint32(v))
	default:
		return v
	}
}

func decodeInt64(desc schema.ColumnDescriptor, v int64) interface{} {
	switch desc.Kind {
	case schema.KindTimestamp:
		return encoding.TimestampFromMicros(v).UTC()
	case schema.KindTime:
		return encoding.TimeFromMicros(v).String()
	case schema.KindUint64:
		return uint64(v)
	default:
		return v
	}
}
