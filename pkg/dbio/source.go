package dbio

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// QuerySource adapts an open database/sql result set to the RowSource
// interface consumed by the export direction.
type QuerySource struct {
	rows *sql.Rows
	cols []schema.ColumnDescriptor
	scan []interface{}
	log  *zap.Logger
}

// NewQuerySource executes the query and introspects its result schema. The
// returned source holds the open cursor until Close.
func NewQuerySource(ctx context.Context, db *sql.DB, query string, args []interface{}, log *zap.Logger) (*QuerySource, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeQuery, "query execution failed")
	}

	columnTypes, err := rows.ColumnTypes()
	if err != nil {
		_ = rows.Close()
		return nil, xerrors.Wrap(err, xerrors.ErrorTypeQuery, "failed to describe result columns")
	}

	cols := make([]schema.ColumnDescriptor, len(columnTypes))
	for i, ct := range columnTypes {
		desc, err := DescriptorFromColumnType(ct)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		cols[i] = desc
	}

	log.Debug("query schema resolved", zap.Int("columns", len(cols)))

	return &QuerySource{
		rows: rows,
		cols: cols,
		scan: make([]interface{}, len(cols)),
		log:  log,
	}, nil
}

// Columns implements RowSource.
func (s *QuerySource) Columns() []schema.ColumnDescriptor { return s.cols }

// FetchBatch implements RowSource. Row slices are lazily allocated on the
// first batch and reused afterwards.
func (s *QuerySource) FetchBatch(ctx context.Context, rows [][]interface{}) (int, error) {
	n := 0
	for n < len(rows) {
		select {
		case <-ctx.Done():
			return 0, xerrors.Wrap(ctx.Err(), xerrors.ErrorTypeIO, "fetch cancelled")
		default:
		}

		if !s.rows.Next() {
			break
		}

		if rows[n] == nil {
			rows[n] = make([]interface{}, len(s.cols))
		}
		row := rows[n]
		for i := range row {
			s.scan[i] = &row[i]
		}
		if err := s.rows.Scan(s.scan...); err != nil {
			return 0, xerrors.Wrap(err, xerrors.ErrorTypeIO, "row scan failed")
		}
		n++
	}

	if err := s.rows.Err(); err != nil {
		return 0, xerrors.Wrap(err, xerrors.ErrorTypeIO, "row fetch failed")
	}
	return n, nil
}

// Close implements RowSource.
func (s *QuerySource) Close() error {
	return s.rows.Close()
}
