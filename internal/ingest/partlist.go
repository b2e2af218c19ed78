package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// PartListOptions selects where part numbers are read from.
type PartListOptions struct {
	// Column is the 1-based column holding part numbers. It defaults to 1
	// for text files and 3 (column C) for workbooks.
	Column int
	// Delimiter separates columns of text files. It may be longer than one
	// character. ',' when empty.
	Delimiter string
	// SkipHeader drops the first row of text files. Workbooks always have
	// a header row.
	SkipHeader bool
	Sheet      string
}

// ReadPartList reads requested part numbers from a text file or workbook,
// dropping blanks and duplicates while keeping first-seen order.
func ReadPartList(path string, opts PartListOptions) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return readPartListXLSX(path, opts)
	default:
		return readPartListText(path, opts)
	}
}

func readPartListText(path string, opts PartListOptions) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read part list %s: %w", path, err)
	}
	data, _, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decode part list %s: %w", path, err)
	}

	col := opts.Column
	if col <= 0 {
		col = 1
	}
	delim := opts.Delimiter
	if delim == "" {
		delim = ","
	}

	var parts []string
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if first {
			first = false
			if opts.SkipHeader {
				continue
			}
		}
		fields := strings.Split(line, delim)
		if len(fields) < col {
			continue
		}
		parts = append(parts, strings.Trim(strings.TrimSpace(fields[col-1]), `"`))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read part list %s: %w", path, err)
	}
	return uniqueParts(parts), nil
}

func readPartListXLSX(path string, opts PartListOptions) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open part list %s: %w", path, err)
	}
	defer f.Close()

	sheet, err := pickSheet(f, opts.Sheet)
	if err != nil {
		return nil, fmt.Errorf("part list %s: %w", path, err)
	}
	col := opts.Column
	if col <= 0 {
		col = 3
	}
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return nil, fmt.Errorf("part list %s: %w", path, err)
	}
	cols, err := f.GetCols(sheet)
	if err != nil {
		return nil, fmt.Errorf("read part list %s: %w", path, err)
	}
	if len(cols) < col {
		return nil, fmt.Errorf("part list %s: sheet %s has no column %s", path, sheet, name)
	}
	values := cols[col-1]
	if len(values) > 0 {
		values = values[1:] // header
	}
	return uniqueParts(values), nil
}

func uniqueParts(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || strings.EqualFold(p, "nan") || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}
