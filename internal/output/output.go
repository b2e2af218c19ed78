// Package output renders a resolved BOM report as XLSX, JSON, CSV, a
// nested JSON tree or a CycloneDX BOM.
package output

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// Supported formats.
const (
	FormatXLSX = "xlsx"
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatTree = "tree"

	FormatCycloneDX = "cyclonedx"
)

// Options control rendering.
type Options struct {
	Format string
	// Path is the output file. "-" writes to stdout; empty picks DefaultPath.
	Path string
	// DrawingURL is a link template; "{part}" is replaced by the
	// query-escaped part number.
	DrawingURL string
	// Attributes restricts and orders the attribute columns. Empty means
	// every column of the report.
	Attributes []string
	// ToolVersion is recorded in CycloneDX metadata.
	ToolVersion string
}

// Write renders report and returns the path it was written to.
func Write(report *model.ReportModel, opts Options) (string, error) {
	format := strings.ToLower(opts.Format)
	if format == "" {
		format = FormatXLSX
	}
	path := opts.Path
	if path == "" {
		path = DefaultPath(format, time.Now())
	}
	opts.Format = format

	var err error
	switch format {
	case FormatXLSX:
		err = WriteXLSX(report, path, opts)
	case FormatJSON:
		err = writeJSON(path, report)
	case FormatCSV:
		err = WriteCSV(report, path, opts)
	case FormatTree:
		err = WriteTree(report, path)
	case FormatCycloneDX:
		err = WriteCycloneDX(report, path, opts)
	default:
		return "", fmt.Errorf("unsupported output format %q (supported: xlsx, json, csv, tree, cyclonedx)", opts.Format)
	}
	if err != nil {
		return "", err
	}
	return path, nil
}

// DefaultPath names a report after the time it was generated, e.g.
// BOM_Analysis_Report_20240131_154500.xlsx.
func DefaultPath(format string, now time.Time) string {
	ext := format
	switch format {
	case FormatTree:
		ext = "json"
	case FormatCycloneDX:
		ext = "cdx.json"
	}
	return fmt.Sprintf("BOM_Analysis_Report_%s.%s", now.Format("20060102_150405"), ext)
}

// DrawingLink expands template for partNo, or returns "" without a template.
func DrawingLink(template, partNo string) string {
	if template == "" {
		return ""
	}
	return strings.ReplaceAll(template, "{part}", url.QueryEscape(partNo))
}

func attributeColumns(report *model.ReportModel, opts Options) []string {
	if len(opts.Attributes) > 0 {
		return opts.Attributes
	}
	return report.AttributeColumns
}

// writeJSON marshals v as indented JSON and writes it to outputPath (or stdout if "-").
func writeJSON(outputPath string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report JSON: %w", err)
	}

	if outputPath == "-" {
		_, err = os.Stdout.Write(data)
		if err == nil {
			_, err = os.Stdout.WriteString("\n")
		}
		return err
	}

	return os.WriteFile(outputPath, append(data, '\n'), 0644)
}
