package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// TextLoader reads a delimited text export (CSV, TXT, TSV).
// The delimiter is sniffed from the header line when Delimiter is zero.
type TextLoader struct {
	SourceName string
	Path       string
	Delimiter  rune
}

func (l *TextLoader) Name() string { return l.SourceName }

func (l *TextLoader) Load(ctx context.Context, opts Options) (*model.SourceTable, error) {
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.Path, err)
	}
	return readText(ctx, l.SourceName, data, l.Delimiter, opts)
}

// delimiterCandidates in tie-break order.
var delimiterCandidates = []rune{',', ';', '\t', '|'}

func readText(ctx context.Context, source string, raw []byte, delim rune, opts Options) (*model.SourceTable, error) {
	data, enc, err := decodeText(raw)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", source, err)
	}
	if delim == 0 {
		delim = sniffDelimiter(data)
	}
	opts.logger().Debug("Reading text source",
		zap.String("source", source),
		zap.String("encoding", enc),
		zap.String("delimiter", string(delim)))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	w := newTableWriter(source, opts)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			w.skip(skipParse)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", source, err)
		}
		line, _ := r.FieldPos(0)

		if !w.hasHeader() {
			if isBlank(rec) {
				continue
			}
			if err := w.header(rec, true); err != nil {
				return nil, err
			}
			continue
		}
		if err := w.row(line, rec); err != nil {
			return nil, err
		}
	}
	return w.finish()
}

// decodeText converts raw to UTF-8. A UTF-8 or UTF-16 byte order mark is
// honoured and stripped. Without one, valid UTF-8 is kept as is and anything
// else is read as Windows-1252, the usual encoding of older ERP exports.
func decodeText(raw []byte) ([]byte, string, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}),
		bytes.HasPrefix(raw, []byte{0xFE, 0xFF}),
		bytes.HasPrefix(raw, []byte{0xFF, 0xFE}):
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), raw)
		return out, "bom", err
	case utf8.Valid(raw):
		return raw, "utf-8", nil
	default:
		out, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		return out, "windows-1252", err
	}
}

// sniffDelimiter returns the candidate occurring most often in the first
// non-blank line, or ',' when none occurs.
func sniffDelimiter(data []byte) rune {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		best, bestN := ',', 0
		for _, c := range delimiterCandidates {
			if n := countRune(line, c); n > bestN {
				best, bestN = c, n
			}
		}
		return best
	}
	return ','
}

func countRune(s string, r rune) int {
	n := 0
	for _, c := range s {
		if c == r {
			n++
		}
	}
	return n
}
