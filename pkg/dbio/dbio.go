// Package dbio is the connection-layer shell around the transcoding engine.
// The engine consumes the RowSource and RowSink interfaces only; the
// database/sql implementations here adapt whatever driver the caller
// registered (pgx, mysql, snowflake) to them. Establishing and
// authenticating the connection is the caller's concern.
package dbio

import (
	"context"
	"database/sql"

	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// RowSource yields the result rows of one query in bounded chunks. Values
// are driver-native: int64, float64, bool, string, []byte, time.Time or nil.
type RowSource interface {
	// Columns describes the result schema.
	Columns() []schema.ColumnDescriptor
	// FetchBatch fills up to len(rows) row slices, reusing their backing
	// arrays, and returns the number of rows fetched. Zero with a nil
	// error means the result set is exhausted.
	FetchBatch(ctx context.Context, rows [][]interface{}) (int, error)
	// Close releases the underlying cursor.
	Close() error
}

// RowSink consumes row batches through a parameterized statement. A batch
// is written atomically: either every row of the batch is applied or none.
type RowSink interface {
	// WriteBatch applies the first n rows.
	WriteBatch(ctx context.Context, rows [][]interface{}, n int) error
	// Close releases the prepared statement.
	Close() error
}

// Connect opens and verifies a database handle for the given driver.
func Connect(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, xerrors.Wrapf(err, xerrors.ErrorTypeConnection,
			"failed to open %s connection", driver)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, xerrors.Wrapf(err, xerrors.ErrorTypeConnection,
			"failed to ping %s connection", driver)
	}
	return db, nil
}
