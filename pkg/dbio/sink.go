package dbio

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/parquio/parquio/pkg/config"
	"github.com/parquio/parquio/pkg/schema"
	"github.com/parquio/parquio/pkg/xerrors"
)

// TableSink adapts a target table to the RowSink interface consumed by the
// import direction. The insert statement is prepared once per job; each
// batch runs in its own transaction so that a failed batch leaves no partial
// rows behind.
type TableSink struct {
	db    *sql.DB
	stmt  *sql.Stmt
	table string
	cols  []schema.ColumnDescriptor
	log   *zap.Logger
}

// NewTableSink prepares a parameterized insert for the given columns.
func NewTableSink(ctx context.Context, db *sql.DB, table string, cols []schema.ColumnDescriptor, placeholder string, log *zap.Logger) (*TableSink, error) {
	if len(cols) == 0 {
		return nil, xerrors.New(xerrors.ErrorTypeConfig, "insert requires at least one column")
	}

	insertSQL := buildInsertSQL(table, cols, placeholder)
	log.Debug("prepared insert statement", zap.String("sql", insertSQL))

	stmt, err := db.PrepareContext(ctx, insertSQL)
	if err != nil {
		return nil, xerrors.Wrapf(err, xerrors.ErrorTypeQuery,
			"failed to prepare insert into %s", table)
	}

	return &TableSink{
		db:    db,
		stmt:  stmt,
		table: table,
		cols:  cols,
		log:   log,
	}, nil
}

// WriteBatch implements RowSink.
func (s *TableSink) WriteBatch(ctx context.Context, rows [][]interface{}, n int) error {
	if n == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrorTypeIO, "failed to begin batch transaction")
	}

	stmt := tx.StmtContext(ctx, s.stmt)
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = tx.Rollback()
			return xerrors.Wrapf(err, xerrors.ErrorTypeIO,
				"insert into %s failed at batch row %d", s.table, i)
		}
	}

	if err := tx.Commit(); err != nil {
		return xerrors.Wrap(err, xerrors.ErrorTypeIO, "failed to commit batch transaction")
	}
	return nil
}

// Close implements RowSink.
func (s *TableSink) Close() error {
	return s.stmt.Close()
}

func buildInsertSQL(table string, cols []schema.ColumnDescriptor, placeholder string) string {
	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" (")
	for i, col := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(col.Name)
	}
	sb.WriteString(") VALUES (")
	for i := range cols {
		if i > 0 {
			sb.WriteString(", ")
		}
		if placeholder == config.PlaceholderDollar {
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i + 1))
		} else {
			sb.WriteString("?")
		}
	}
	sb.WriteString(")")
	return sb.String()
}
