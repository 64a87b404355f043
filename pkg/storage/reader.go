package storage

import (
	"github.com/apache/arrow-go/v18/parquet/file"

	"github.com/parquio/parquio/pkg/xerrors"
)

// OpenReader opens a local parquet file for reading with memory mapping
// disabled, which keeps behavior identical across platforms.
func OpenReader(path string) (*file.Reader, error) {
	r, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, xerrors.Wrapf(err, xerrors.ErrorTypeIO, "failed to open parquet file %s", path)
	}
	return r, nil
}
