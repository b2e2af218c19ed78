package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	_ "modernc.org/sqlite"

	"github.com/StinkyLord/bom-tree-builder/internal/config"
	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// SQLiteLoader reads every row of one table of a SQLite database. Column
// names play the role of the header row.
type SQLiteLoader struct {
	SourceName string
	Path       string
	Table      string
}

func (l *SQLiteLoader) Name() string { return l.SourceName }

func (l *SQLiteLoader) Load(ctx context.Context, opts Options) (*model.SourceTable, error) {
	if !config.IsSQLIdent(l.Table) {
		return nil, fmt.Errorf("source %s: invalid table name %q", l.SourceName, l.Table)
	}
	db, err := sql.Open("sqlite", "file:"+l.Path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", l.Path, err)
	}
	defer db.Close()

	// Table is a validated identifier; placeholders cannot name tables.
	rows, err := db.QueryContext(ctx, `SELECT * FROM "`+l.Table+`"`)
	if err != nil {
		return nil, fmt.Errorf("query %s.%s: %w", l.Path, l.Table, err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s.%s: %w", l.Path, l.Table, err)
	}
	w := newTableWriter(l.SourceName, opts)
	if err := w.header(cols, false); err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	cells := make([]string, len(cols))

	line := 1
	for rows.Next() {
		line++
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan %s.%s row %d: %w", l.Path, l.Table, line, err)
		}
		for i, v := range values {
			cells[i] = sqlText(v)
		}
		if err := w.row(line, cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s.%s: %w", l.Path, l.Table, err)
	}
	return w.finish()
}

func sqlText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
