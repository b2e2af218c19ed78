package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// XLSXLoader reads one sheet of a workbook. The first sheet is used when
// Sheet is empty.
type XLSXLoader struct {
	SourceName string
	Path       string
	Sheet      string
}

func (l *XLSXLoader) Name() string { return l.SourceName }

func (l *XLSXLoader) Load(ctx context.Context, opts Options) (*model.SourceTable, error) {
	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", l.Path, err)
	}
	defer f.Close()
	return readWorkbook(ctx, l.SourceName, f, l.Sheet, opts)
}

func readXLSX(ctx context.Context, source string, r io.Reader, sheet string, opts Options) (*model.SourceTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", source, err)
	}
	defer f.Close()
	return readWorkbook(ctx, source, f, sheet, opts)
}

func readWorkbook(ctx context.Context, source string, f *excelize.File, sheet string, opts Options) (*model.SourceTable, error) {
	sheet, err := pickSheet(f, sheet)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", source, err)
	}
	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, source, err)
	}
	defer rows.Close()

	w := newTableWriter(source, opts)
	line := 0
	for rows.Next() {
		line++
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row %d of %s: %w", line, source, err)
		}
		if !w.hasHeader() {
			if isBlank(cells) {
				continue
			}
			// Workbooks trim trailing empty cells, so row widths vary.
			if err := w.header(cells, false); err != nil {
				return nil, err
			}
			continue
		}
		if err := w.row(line, cells); err != nil {
			return nil, err
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("read sheet %s of %s: %w", sheet, source, err)
	}
	return w.finish()
}

func pickSheet(f *excelize.File, want string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if want == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == want {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found (have %v)", want, sheets)
}
