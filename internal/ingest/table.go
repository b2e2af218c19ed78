package ingest

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// Skip reasons reported to metrics.
const (
	skipBlank      = "blank"
	skipFieldCount = "field_count"
	skipParse      = "parse"
)

// tableWriter turns raw rows of one source into a SourceTable. The first
// row handed to it is the header.
type tableWriter struct {
	source  string
	opts    Options
	start   time.Time
	layout  *layout
	builder *model.SourceBuilder
	width   int
	skipped map[string]int
}

func newTableWriter(source string, opts Options) *tableWriter {
	return &tableWriter{
		source:  source,
		opts:    opts,
		start:   time.Now(),
		skipped: map[string]int{},
	}
}

// header detects the layout. strictWidth makes later rows with more fields
// than the header be skipped, which is how bad lines of delimited text show
// up. Short rows are padded with empty cells.
func (w *tableWriter) header(cells []string, strictWidth bool) error {
	l, err := detectLayout(w.source, cells, w.opts.Aliases)
	if err != nil {
		return err
	}
	w.layout = l
	w.builder = model.NewSourceBuilder(w.source, l.attributeNames())
	if strictWidth {
		w.width = len(cells)
	}
	return nil
}

func (w *tableWriter) hasHeader() bool { return w.layout != nil }

// row adds one data row. Fully blank rows and over-long rows are skipped;
// a row with one key present and the other missing is an error.
func (w *tableWriter) row(line int, cells []string) error {
	if isBlank(cells) {
		w.skip(skipBlank)
		return nil
	}
	if w.width > 0 && len(cells) > w.width {
		w.opts.logger().Debug("Skipping bad line",
			zap.String("source", w.source),
			zap.Int("line", line),
			zap.Int("fields", len(cells)),
			zap.Int("expected", w.width))
		w.skip(skipFieldCount)
		return nil
	}

	l := w.layout
	qty := 1.0
	if l.quantity >= 0 {
		qty = model.ParseQuantity(cell(cells, l.quantity))
	}
	var attrs map[string]string
	if len(l.attrs) > 0 {
		attrs = make(map[string]string, len(l.attrs))
		for _, a := range l.attrs {
			attrs[a.name] = strings.TrimSpace(cell(cells, a.index))
		}
	}

	rec, err := model.NewPartRecord(w.source, line, cell(cells, l.product), cell(cells, l.component), qty, attrs)
	if err != nil {
		return err
	}
	return w.builder.Add(rec)
}

func (w *tableWriter) skip(reason string) { w.skipped[reason]++ }

// finish freezes the table and reports counts.
func (w *tableWriter) finish() (*model.SourceTable, error) {
	if w.layout == nil {
		return nil, &model.MalformedSourceError{Source: w.source, Line: 1, Reason: "no header row"}
	}
	t := w.builder.Build()
	for reason, n := range w.skipped {
		w.opts.Metrics.RecordSkipped(w.source, reason, n)
	}
	w.opts.Metrics.RecordSourceLoad(w.source, t.Len(), nil, time.Since(w.start))
	w.opts.logger().Info("Loaded source",
		zap.String("source", w.source),
		zap.Int("records", t.Len()),
		zap.Int("products", len(t.Products())),
		zap.Int("skipped", w.skippedTotal()),
		zap.Duration("elapsed", time.Since(w.start)))
	return t, nil
}

func (w *tableWriter) skippedTotal() int {
	n := 0
	for _, c := range w.skipped {
		n += c
	}
	return n
}

func cell(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
