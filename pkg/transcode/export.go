// Package transcode implements the buffered transcoding engine: the export
// direction streams query results into parquet row groups, the import
// direction streams parquet row groups into parameterized inserts. The
// engine resolves the full column mapping before any output is created, so
// an unmappable column fails the job before the first byte of I/O.
package transcode

import (
	"context"
	stderrors "errors"

	"github.com/apache/arrow-go/v18/parquet/file"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/buffer"
	"github.com/parquio/parquio/pkg/dbio"
	"github.com/parquio/parquio/pkg/encoding"
	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// RowGroupSink receives completed batches as parquet row groups.
// storage.SplitWriter is the production implementation.
type RowGroupSink interface {
	AppendRowGroup() (file.SerialRowGroupWriter, error)
	Close() error
}

// SinkFactory creates the output sink once the parquet schema is known. It
// runs only after every column has been resolved to a buffer layout.
type SinkFactory func(root *pqschema.GroupNode) (RowGroupSink, error)

// Export pulls batches of up to batchSize rows from src and writes each as
// one parquet row group. A batch is either written completely or the job
// fails; no partial batch is ever committed.
func Export(ctx context.Context, src dbio.RowSource, newSink SinkFactory, batchSize int, log *zap.Logger) error {
	cols := src.Columns()
	layouts, err := schema.ResolveAll(cols)
	if err != nil {
		return err
	}
	root, err := schema.ToParquet(cols)
	if err != nil {
		return err
	}

	sink, err := newSink(root)
	if err != nil {
		return err
	}

	batch := buffer.New(layouts, batchSize)
	scratches := make([]*encoding.DecimalScratch, len(cols))
	for i, col := range cols {
		if col.Kind == schema.KindDecimal {
			scratches[i] = encoding.NewDecimalScratch(col.Precision)
		}
	}

	rows := make([][]interface{}, batchSize)
	rowGroup := 0
	total := int64(0)

	for {
		if err := ctx.Err(); err != nil {
			_ = sink.Close()
			return xerrors.Wrap(err, xerrors.ErrorTypeIO, "export canceled")
		}

		n, err := src.FetchBatch(ctx, rows)
		if err != nil {
			_ = sink.Close()
			return err
		}
		if n == 0 {
			break
		}

		batch.ResizeFor(n)
		for c := range cols {
			if err := encodeColumn(batch.Column(c), cols[c], c, rows, n, scratches[c]); err != nil {
				_ = sink.Close()
				return annotate(err, cols[c].Name, rowGroup)
			}
		}

		if err := writeRowGroup(sink, batch); err != nil {
			_ = sink.Close()
			return annotate(err, "", rowGroup)
		}
		rowGroup++
		total += int64(n)
		log.Debug("row group written",
			zap.Int("row_group", rowGroup),
			zap.Int("rows", n))
	}

	if err := sink.Close(); err != nil {
		return err
	}
	log.Info("export complete",
		zap.Int("row_groups", rowGroup),
		zap.Int64("rows", total))
	return nil
}

// encodeColumn converts one column of the fetched rows into the column's
// packed value array, marking definition levels for non-null values.
func encodeColumn(col *buffer.ColumnBuffer, desc schema.ColumnDescriptor, colIdx int, rows [][]interface{}, n int, scratch *encoding.DecimalScratch) error {
	layout := col.Layout()
	for r := 0; r < n; r++ {
		v := rows[r][colIdx]
		if v == nil {
			if !layout.Nullable {
				return xerrors.New(xerrors.ErrorTypeEncode,
					"null value in non-nullable column").WithDetail("row", r)
			}
			continue
		}
		if err := encodeValue(col, desc, layout, v, scratch); err != nil {
			var xe *xerrors.Error
			if stderrors.As(err, &xe) {
				xe.WithDetail("row", r)
			}
			return err
		}
		col.MarkPresent(r)
	}
	return nil
}

func encodeValue(col *buffer.ColumnBuffer, desc schema.ColumnDescriptor, layout schema.BufferLayout, v interface{}, scratch *encoding.DecimalScratch) error {
	switch layout.Slot {
	case schema.SlotBit:
		b, err := asBool(v)
		if err != nil {
			return err
		}
		col.AppendBool(b)

	case schema.SlotI32:
		switch desc.Kind {
		case schema.KindDate:
			t, err := asDate(v)
			if err != nil {
				return err
			}
			col.AppendInt32(encoding.DaysSinceEpoch(t))
		case schema.KindTime:
			tod, err := asTimeOfDay(v)
			if err != nil {
				return err
			}
			col.AppendInt32(tod.MillisSinceMidnight())
		default:
			i, err := asInt64(v)
			if err != nil {
				return err
			}
			col.AppendInt32(int32(i))
		}

	case schema.SlotI64:
		switch desc.Kind {
		case schema.KindTimestamp:
			t, err := asTimestamp(v)
			if err != nil {
				return err
			}
			col.AppendInt64(encoding.MicrosSinceEpoch(t))
		case schema.KindTime:
			tod, err := asTimeOfDay(v)
			if err != nil {
				return err
			}
			col.AppendInt64(tod.MicrosSinceMidnight())
		default:
			i, err := asInt64(v)
			if err != nil {
				return err
			}
			col.AppendInt64(i)
		}

	case schema.SlotF32:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		col.AppendFloat32(float32(f))

	case schema.SlotF64:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		col.AppendFloat64(f)

	case schema.SlotBytes:
		b, err := asBytes(v)
		if err != nil {
			return err
		}
		return col.AppendBytes(b)

	case schema.SlotFixed:
		b, err := asBytes(v)
		if err != nil {
			return err
		}
		if desc.Kind == schema.KindDecimal {
			return encoding.EncodeDecimal(col.AppendFixed(), b, desc.Precision, desc.Scale, scratch)
		}
		return col.AppendFixedValue(b)

	default:
		return xerrors.Newf(xerrors.ErrorTypeEncode, "unsupported buffer slot %s", layout.Slot)
	}
	return nil
}

// writeRowGroup flushes the batch through the typed column chunk writers.
// Required columns get nil definition levels; optional ones get the per-row
// 0/1 levels tracked by the buffer.
func writeRowGroup(sink RowGroupSink, batch *buffer.Batch) error {
	rg, err := sink.AppendRowGroup()
	if err != nil {
		return err
	}

	for c := 0; c < batch.NumColumns(); c++ {
		col := batch.Column(c)
		cw, err := rg.NextColumn()
		if err != nil {
			return xerrors.Wrap(err, xerrors.ErrorTypeIO, "failed to open column chunk writer")
		}

		var defs []int16
		if col.Layout().Nullable {
			defs = col.DefLevels()
		}

		switch w := cw.(type) {
		case *file.BooleanColumnChunkWriter:
			_, err = w.WriteBatch(col.Bools(), defs, nil)
		case *file.Int32ColumnChunkWriter:
			_, err = w.WriteBatch(col.Int32s(), defs, nil)
		case *file.Int64ColumnChunkWriter:
			_, err = w.WriteBatch(col.Int64s(), defs, nil)
		case *file.Float32ColumnChunkWriter:
			_, err = w.WriteBatch(col.Float32s(), defs, nil)
		case *file.Float64ColumnChunkWriter:
			_, err = w.WriteBatch(col.Float64s(), defs, nil)
		case *file.ByteArrayColumnChunkWriter:
			_, err = w.WriteBatch(col.ByteArrays(), defs, nil)
		case *file.FixedLenByteArrayColumnChunkWriter:
			_, err = w.WriteBatch(col.FixedArrays(), defs, nil)
		default:
			err = xerrors.Newf(xerrors.ErrorTypeIO, "unsupported column chunk writer %T", cw)
		}
		if err != nil {
			return xerrors.Wrap(err, xerrors.ErrorTypeIO, "failed to write column chunk")
		}
	}

	return rg.Close()
}

// annotate attaches column and row group context to an error on its way up.
func annotate(err error, column string, rowGroup int) error {
	var xe *xerrors.Error
	if !stderrors.As(err, &xe) {
		xe = xerrors.Wrap(err, xerrors.ErrorTypeIO, "row group write failed")
	}
	if column != "" {
		xe.WithDetail("column", column)
	}
	xe.WithDetail("row_group", rowGroup)
	return xe
}
