package transcode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/dbio"
	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/storage"
	"github.com/parquio/parquio/pkg/xerrors"
)

// memSource feeds canned rows to the export direction.
type memSource struct {
	cols []schema.ColumnDescriptor
	rows [][]interface{}
	pos  int
}

func (s *memSource) Columns() []schema.ColumnDescriptor { return s.cols }

func (s *memSource) FetchBatch(ctx context.Context, rows [][]interface{}) (int, error) {
	n := 0
	for n < len(rows) && s.pos < len(s.rows) {
		rows[n] = s.rows[s.pos]
		n++
		s.pos++
	}
	return n, nil
}

func (s *memSource) Close() error { return nil }

// memSink collects rows from the import direction.
type memSink struct {
	cols []schema.ColumnDescriptor
	rows [][]interface{}
}

func (s *memSink) WriteBatch(ctx context.Context, rows [][]interface{}, n int) error {
	for i := 0; i < n; i++ {
		copied := make([]interface{}, len(rows[i]))
		copy(copied, rows[i])
		s.rows = append(s.rows, copied)
	}
	return nil
}

func (s *memSink) Close() error { return nil }

func exportToFile(t *testing.T, src *memSource, path string, batchSize, batchesPerFile int) error {
	t.Helper()
	newSink := func(root *pqschema.GroupNode) (RowGroupSink, error) {
		return storage.NewSplitWriter(path, root, "snappy", batchesPerFile, zap.NewNop())
	}
	return Export(context.Background(), src, newSink, batchSize, zap.NewNop())
}

func importFromFile(t *testing.T, path string, batchSize int) (*memSink, error) {
	t.Helper()
	reader, err := storage.OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()

	sink := &memSink{}
	newSink := func(cols []schema.ColumnDescriptor) (dbio.RowSink, error) {
		sink.cols = cols
		return sink, nil
	}
	err = Import(context.Background(), reader, newSink, batchSize, zap.NewNop())
	return sink, err
}

func TestExportImportWithNulls(t *testing.T) {
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "country", Kind: schema.KindUtf8, Nullable: true},
			{Name: "population", Kind: schema.KindInt64, Nullable: true},
		},
		rows: [][]interface{}{
			{"A", int64(1)},
			{nil, int64(2)},
		},
	}

	path := filepath.Join(t.TempDir(), "out.par")
	require.NoError(t, exportToFile(t, src, path, 1, 0))

	// One row group per batch.
	reader, err := storage.OpenReader(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reader.NumRowGroups())
	require.NoError(t, reader.Close())

	sink, err := importFromFile(t, path, 10)
	require.NoError(t, err)
	require.Len(t, sink.rows, 2)
	assert.Equal(t, []interface{}{"A", int64(1)}, sink.rows[0])
	assert.Equal(t, []interface{}{nil, int64(2)}, sink.rows[1])
}

func TestExportImportTypeMatrix(t *testing.T) {
	ts := time.Date(2023, 5, 17, 14, 30, 45, 123456000, time.UTC)

	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "name", Kind: schema.KindUtf8, Nullable: true},
			{Name: "small", Kind: schema.KindInt32, Nullable: true},
			{Name: "big", Kind: schema.KindInt64, Nullable: true},
			{Name: "ok", Kind: schema.KindBool, Nullable: true},
			{Name: "ratio", Kind: schema.KindFloat, Nullable: true},
			{Name: "score", Kind: schema.KindDouble, Nullable: true},
			{Name: "born", Kind: schema.KindDate, Nullable: true},
			{Name: "at", Kind: schema.KindTime, Precision: 0, Nullable: true},
			{Name: "updated", Kind: schema.KindTimestamp, Precision: 6, Nullable: true},
			{Name: "amount", Kind: schema.KindDecimal, Precision: 9, Scale: 2, Nullable: true},
			{Name: "payload", Kind: schema.KindBinary, Nullable: true},
		},
		rows: [][]interface{}{
			{
				"hello", int64(42), int64(1 << 40), true,
				1.5, 3.25,
				"2023-05-17", "16:04:12", ts,
				"123.45", []byte{0xDE, 0xAD},
			},
			{nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil},
			{
				"bye", int64(-7), int64(-9), false,
				-0.5, -2.75,
				"1969-12-31", "00:00:01", time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC),
				"-0.05", []byte{},
			},
		},
	}

	path := filepath.Join(t.TempDir(), "matrix.par")
	require.NoError(t, exportToFile(t, src, path, 10, 0))

	sink, err := importFromFile(t, path, 10)
	require.NoError(t, err)
	require.Len(t, sink.rows, 3)

	first := sink.rows[0]
	assert.Equal(t, "hello", first[0])
	assert.Equal(t, int32(42), first[1])
	assert.Equal(t, int64(1<<40), first[2])
	assert.Equal(t, true, first[3])
	assert.Equal(t, float32(1.5), first[4])
	assert.Equal(t, 3.25, first[5])
	assert.Equal(t, "2023-05-17", first[6])
	assert.Equal(t, "16:04:12", first[7])
	require.IsType(t, time.Time{}, first[8])
	assert.True(t, ts.Equal(first[8].(time.Time)))
	assert.Equal(t, "123.45", first[9])
	assert.Equal(t, []byte{0xDE, 0xAD}, first[10])

	for i, v := range sink.rows[1] {
		assert.Nil(t, v, "column %d", i)
	}

	last := sink.rows[2]
	assert.Equal(t, "bye", last[0])
	assert.Equal(t, int32(-7), last[1])
	assert.Equal(t, "1969-12-31", last[6])
	assert.Equal(t, "00:00:01", last[7])
	require.IsType(t, time.Time{}, last[8])
	assert.True(t, time.Date(1969, 12, 31, 23, 59, 59, 0, time.UTC).Equal(last[8].(time.Time)))
	assert.Equal(t, "-0.05", last[9])
}

func TestExportSplitsFiles(t *testing.T) {
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "n", Kind: schema.KindInt64, Nullable: true},
		},
		rows: [][]interface{}{
			{int64(1)}, {int64(2)}, {int64(3)},
		},
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "out.par")
	require.NoError(t, exportToFile(t, src, path, 1, 1))

	for i := 1; i <= 3; i++ {
		numbered := filepath.Join(dir, fmt.Sprintf("out_%d.par", i))
		_, err := os.Stat(numbered)
		assert.NoError(t, err, numbered)
	}
}

func TestImportChunksLargeRowGroups(t *testing.T) {
	rows := make([][]interface{}, 5)
	for i := range rows {
		rows[i] = []interface{}{int64(i)}
	}
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "n", Kind: schema.KindInt64, Nullable: true},
		},
		rows: rows,
	}

	path := filepath.Join(t.TempDir(), "big.par")
	require.NoError(t, exportToFile(t, src, path, 5, 0))

	// Import with a batch size smaller than the row group.
	sink, err := importFromFile(t, path, 2)
	require.NoError(t, err)
	require.Len(t, sink.rows, 5)
	for i, row := range sink.rows {
		assert.Equal(t, int64(i), row[0])
	}
}

func TestExportMalformedDecimalCarriesContext(t *testing.T) {
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "amount", Kind: schema.KindDecimal, Precision: 9, Scale: 2, Nullable: true},
		},
		rows: [][]interface{}{
			{"12.3.4"},
		},
	}

	path := filepath.Join(t.TempDir(), "bad.par")
	err := exportToFile(t, src, path, 10, 0)
	require.Error(t, err)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeEncode))

	var xe *xerrors.Error
	require.True(t, errors.As(err, &xe))
	assert.Equal(t, "amount", xe.Details["column"])
	assert.Equal(t, 0, xe.Details["row_group"])
	assert.Equal(t, 0, xe.Details["row"])
}

func TestExportOversizeValueOnDeclaredWidth(t *testing.T) {
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "code", Kind: schema.KindUtf8, Length: 4, Nullable: true},
		},
		rows: [][]interface{}{
			{"too long for four"},
		},
	}

	path := filepath.Join(t.TempDir(), "cap.par")
	err := exportToFile(t, src, path, 10, 0)
	require.Error(t, err)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeCapacity))
}

func TestExportNullInRequiredColumn(t *testing.T) {
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "id", Kind: schema.KindInt64, Nullable: false},
		},
		rows: [][]interface{}{
			{nil},
		},
	}

	path := filepath.Join(t.TempDir(), "req.par")
	err := exportToFile(t, src, path, 10, 0)
	require.Error(t, err)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeEncode))
}

func TestExportEmptyResult(t *testing.T) {
	src := &memSource{
		cols: []schema.ColumnDescriptor{
			{Name: "n", Kind: schema.KindInt64, Nullable: true},
		},
	}

	path := filepath.Join(t.TempDir(), "empty.par")
	require.NoError(t, exportToFile(t, src, path, 10, 0))

	reader, err := storage.OpenReader(path)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, 0, reader.NumRowGroups())
}
