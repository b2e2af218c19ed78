package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// WriteCSV writes one line per report row. If outputPath is "-", it writes
// to stdout.
func WriteCSV(report *model.ReportModel, outputPath string, opts Options) error {
	if outputPath == "-" {
		return renderCSV(os.Stdout, report, opts)
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", outputPath, err)
	}
	if err := renderCSV(f, report, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func renderCSV(w io.Writer, report *model.ReportModel, opts Options) error {
	attrs := attributeColumns(report, opts)

	header := []string{"Row", "Request", "Level", "Part Number", "Qty Per Parent", "Total Qty", "Source BOM", "Terminal", "Reference To", "Parent Row"}
	header = append(header, attrs...)
	if opts.DrawingURL != "" {
		header = append(header, "Drawing")
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	rec := make([]string, 0, len(header))
	for _, r := range report.Rows {
		rec = rec[:0]
		rec = append(rec,
			strconv.Itoa(r.RowID),
			r.Request,
			strconv.Itoa(r.Level),
			r.PartNo,
			formatQty(r.QuantityPerParent),
			formatQty(r.CumulativeQuantity),
			r.SourceName,
			r.Terminal.String(),
			optID(r.FirstOccurrenceRowID),
			optID(r.ParentRowID),
		)
		for _, a := range attrs {
			rec = append(rec, r.Attributes[a])
		}
		if opts.DrawingURL != "" {
			rec = append(rec, DrawingLink(opts.DrawingURL, r.PartNo))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

func formatQty(q float64) string {
	return strconv.FormatFloat(q, 'f', -1, 64)
}

func optID(id *int) string {
	if id == nil {
		return ""
	}
	return strconv.Itoa(*id)
}
