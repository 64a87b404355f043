package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/xerrors"
)

func testRoot(t *testing.T) *pqschema.GroupNode {
	t.Helper()
	field, err := pqschema.NewPrimitiveNodeLogical("n", parquet.Repetitions.Optional,
		pqschema.NoLogicalType{}, parquet.Types.Int64, -1, -1)
	require.NoError(t, err)
	root, err := pqschema.NewGroupNode("schema", parquet.Repetitions.Required,
		pqschema.FieldList{field}, -1)
	require.NoError(t, err)
	return root
}

func writeOneRowGroup(t *testing.T, w *SplitWriter, v int64) {
	t.Helper()
	rg, err := w.AppendRowGroup()
	require.NoError(t, err)
	cw, err := rg.NextColumn()
	require.NoError(t, err)
	_, err = cw.(*file.Int64ColumnChunkWriter).WriteBatch([]int64{v}, []int16{1}, nil)
	require.NoError(t, err)
	require.NoError(t, rg.Close())
}

func TestSingleFileWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.par")

	w, err := NewSplitWriter(path, testRoot(t), "snappy", 0, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		writeOneRowGroup(t, w, int64(i))
	}
	require.NoError(t, w.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 3, r.NumRowGroups())
	assert.Equal(t, int64(3), r.NumRows())
}

func TestSplitIntoNumberedFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.par")

	w, err := NewSplitWriter(path, testRoot(t), "none", 1, zap.NewNop())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		writeOneRowGroup(t, w, int64(i))
	}
	require.NoError(t, w.Close())

	// Numbering starts at 1 and counts every file, including the first.
	for i := 1; i <= 3; i++ {
		numbered := filepath.Join(dir, fmt.Sprintf("out_%d.par", i))
		_, err := os.Stat(numbered)
		assert.NoError(t, err, numbered)

		r, err := OpenReader(numbered)
		require.NoError(t, err)
		assert.Equal(t, 1, r.NumRowGroups())
		require.NoError(t, r.Close())
	}
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "unsuffixed path must not exist in split mode")
}

func TestEmptyResultStillProducesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.par")

	w, err := NewSplitWriter(path, testRoot(t), "snappy", 0, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := OpenReader(path)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, 0, r.NumRowGroups())
	assert.Equal(t, int64(0), r.NumRows())
}

func TestCompressionCodecMapping(t *testing.T) {
	tests := []struct {
		name string
		want compress.Compression
	}{
		{name: "none", want: compress.Codecs.Uncompressed},
		{name: "snappy", want: compress.Codecs.Snappy},
		{name: "gzip", want: compress.Codecs.Gzip},
		{name: "zstd", want: compress.Codecs.Zstd},
	}
	for _, tt := range tests {
		codec, err := compressionCodec(tt.name)
		require.NoError(t, err)
		assert.Equal(t, tt.want, codec, tt.name)
	}

	_, err := compressionCodec("lzma")
	require.Error(t, err)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeConfig))
}

func TestOpenReaderMissingFile(t *testing.T) {
	_, err := OpenReader(filepath.Join(t.TempDir(), "missing.par"))
	require.Error(t, err)
	assert.True(t, xerrors.IsType(err, xerrors.ErrorTypeIO))
}
