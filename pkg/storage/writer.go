// Package storage owns the local parquet file lifecycle: creating files,
// splitting output into numbered files, and opening files for reading. The
// transcoding engine only sees row group writers and readers.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	pqschema "github.com/apache/arrow-go/v18/parquet/schema"
	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/xerrors"
)

// SplitWriter writes parquet row groups to local files, rolling to a new
// file with a monotonically numbered suffix every batchesPerFile row groups.
// With batchesPerFile zero all row groups go to a single file at path.
type SplitWriter struct {
	path           string
	root           *pqschema.GroupNode
	props          *parquet.WriterProperties
	batchesPerFile int

	fileIndex    int
	groupsInFile int
	osFile       *os.File
	writer       *file.Writer

	log *zap.Logger
}

// NewSplitWriter creates the first output file eagerly, so that an empty
// result still produces a valid parquet file with zero row groups.
func NewSplitWriter(path string, root *pqschema.GroupNode, compression string, batchesPerFile int, log *zap.Logger) (*SplitWriter, error) {
	codec, err := compressionCodec(compression)
	if err != nil {
		return nil, err
	}

	w := &SplitWriter{
		path: path,
		root: root,
		props: parquet.NewWriterProperties(
			parquet.WithCompression(codec),
			parquet.WithCreatedBy("parquio"),
		),
		batchesPerFile: batchesPerFile,
		log:            log,
	}

	if err := w.openNext(); err != nil {
		return nil, err
	}
	return w, nil
}

// AppendRowGroup returns a writer for the next row group, rolling to a new
// numbered file first when the current one is full.
func (w *SplitWriter) AppendRowGroup() (file.SerialRowGroupWriter, error) {
	if w.batchesPerFile > 0 && w.groupsInFile >= w.batchesPerFile {
		if err := w.closeCurrent(); err != nil {
			return nil, err
		}
		if err := w.openNext(); err != nil {
			return nil, err
		}
	}
	w.groupsInFile++
	return w.writer.AppendRowGroup(), nil
}

// Close finalizes the current file.
func (w *SplitWriter) Close() error {
	return w.closeCurrent()
}

func (w *SplitWriter) openNext() error {
	w.fileIndex++
	path := w.currentPath()

	f, err := os.Create(path)
	if err != nil {
		return xerrors.Wrapf(err, xerrors.ErrorTypeIO, "failed to create output file %s", path)
	}

	w.osFile = f
	w.writer = file.NewParquetWriter(f, w.root, file.WithWriterProps(w.props))
	w.groupsInFile = 0
	w.log.Info("opened output file", zap.String("path", path))
	return nil
}

func (w *SplitWriter) closeCurrent() error {
	if w.writer == nil {
		return nil
	}
	if err := w.writer.Close(); err != nil {
		_ = w.osFile.Close()
		return xerrors.Wrapf(err, xerrors.ErrorTypeIO, "failed to finalize %s", w.currentPath())
	}
	if err := w.osFile.Close(); err != nil {
		return xerrors.Wrapf(err, xerrors.ErrorTypeIO, "failed to close %s", w.currentPath())
	}
	w.writer = nil
	w.osFile = nil
	return nil
}

// currentPath returns the path of the file currently being written. Split
// output inserts the file number before the extension: out.par becomes
// out_1.par, out_2.par, ...
func (w *SplitWriter) currentPath() string {
	if w.batchesPerFile == 0 {
		return w.path
	}
	ext := filepath.Ext(w.path)
	stem := strings.TrimSuffix(w.path, ext)
	return fmt.Sprintf("%s_%d%s", stem, w.fileIndex, ext)
}

func compressionCodec(name string) (compress.Compression, error) {
	switch name {
	case "", "none":
		return compress.Codecs.Uncompressed, nil
	case "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, xerrors.Newf(xerrors.ErrorTypeConfig,
			"unsupported parquet compression %q", name)
	}
}
