package output

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

const (
	indexSheet    = "Index"
	maxSheetName  = 31
	maxIndent     = 15
	fillNotFound  = "FFC7CE"
	fillComponent = "F8CBAD"
	linkColor     = "0563C1"
)

// Columns of a part sheet before the attribute columns.
const (
	colRow = iota + 1
	colLevel
	colPart
	colQtyPer
	colTotal
	fixedCols = colTotal
)

var statusLabels = map[model.PartStatus]string{
	model.StatusFound:         "Found",
	model.StatusComponentOnly: "Component Only",
	model.StatusNotFound:      "Not Found",
}

// WriteXLSX writes an Index sheet listing every requested part and one sheet
// per part holding its flattened BOM. If outputPath is "-", the workbook is
// written to stdout.
func WriteXLSX(report *model.ReportModel, outputPath string, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	w := &workbook{
		f:         f,
		report:    report,
		opts:      opts,
		attrs:     attributeColumns(report, opts),
		sheets:    map[string]string{},
		locations: map[int]string{},
		partStyle: map[partStyleKey]int{},
	}
	if err := w.render(); err != nil {
		return err
	}

	if outputPath == "-" {
		if err := f.Write(os.Stdout); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		return nil
	}
	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook %s: %w", outputPath, err)
	}
	return nil
}

type partStyleKey struct {
	level int
	link  bool
	fill  string
}

type workbook struct {
	f      *excelize.File
	report *model.ReportModel
	opts   Options
	attrs  []string

	sheets    map[string]string // request -> sheet name
	locations map[int]string    // row id -> part number cell, as a hyperlink location
	byRequest map[string][]model.Row

	header    int
	notFound  int
	component int
	link      int
	partStyle map[partStyleKey]int
}

func (w *workbook) render() error {
	if err := w.initStyles(); err != nil {
		return err
	}
	w.layout()

	if err := w.f.SetSheetName("Sheet1", indexSheet); err != nil {
		return fmt.Errorf("rename index sheet: %w", err)
	}
	if err := w.writeIndex(); err != nil {
		return err
	}
	for _, p := range w.report.Parts {
		if err := w.writePart(p); err != nil {
			return fmt.Errorf("sheet for %s: %w", p.PartNo, err)
		}
	}
	w.f.SetActiveSheet(0)
	return nil
}

func (w *workbook) initStyles() error {
	var err error
	if w.header, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if w.notFound, err = w.f.NewStyle(&excelize.Style{Fill: solid(fillNotFound)}); err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if w.component, err = w.f.NewStyle(&excelize.Style{Fill: solid(fillComponent)}); err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if w.link, err = w.f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: linkColor, Underline: "single"}}); err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	return nil
}

// layout assigns sheet names and the cell of every row before anything is
// written, so reference rows can link forward or across sheets.
func (w *workbook) layout() {
	w.byRequest = map[string][]model.Row{}
	for _, r := range w.report.Rows {
		w.byRequest[r.Request] = append(w.byRequest[r.Request], r)
	}

	used := map[string]bool{strings.ToLower(indexSheet): true}
	for _, p := range w.report.Parts {
		name := uniqueSheetName(p.PartNo, used)
		w.sheets[p.PartNo] = name
		for i, r := range w.byRequest[p.PartNo] {
			w.locations[r.RowID] = location(name, cellRef(colPart, i+2))
		}
	}
}

func (w *workbook) writeIndex() error {
	f := w.f
	header := []any{"Part Number", "Status", "Source BOMs", "Searched In", "Rows"}
	if err := f.SetSheetRow(indexSheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(indexSheet, "A1", cellRef(len(header), 1), w.header); err != nil {
		return err
	}

	searched := strings.Join(w.report.Sources, ", ")
	for i, p := range w.report.Parts {
		row := i + 2
		values := []any{
			p.PartNo,
			statusLabels[p.Status],
			strings.Join(p.Sources, ", "),
			searched,
			len(w.byRequest[p.PartNo]),
		}
		if err := f.SetSheetRow(indexSheet, cellRef(1, row), &values); err != nil {
			return err
		}
		if err := f.SetCellHyperLink(indexSheet, cellRef(1, row), location(w.sheets[p.PartNo], "A1"), "Location"); err != nil {
			return err
		}

		// Missing and component-only parts are highlighted across the row.
		style, last := w.link, 1
		switch p.Status {
		case model.StatusNotFound:
			style, last = w.notFound, len(values)
		case model.StatusComponentOnly:
			style, last = w.component, len(values)
		}
		if err := f.SetCellStyle(indexSheet, cellRef(1, row), cellRef(last, row), style); err != nil {
			return err
		}
	}

	widths := []float64{24, 16, 40, 40, 8}
	for i, wd := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(indexSheet, col, col, wd); err != nil {
			return err
		}
	}
	return f.SetPanes(indexSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

func (w *workbook) writePart(p model.PartSummary) error {
	f := w.f
	sheet := w.sheets[p.PartNo]
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	header := []any{"Row", "Level", "Part Number", "Qty Per Parent", "Total Qty"}
	for _, a := range w.attrs {
		header = append(header, a)
	}
	sourceCol := fixedCols + len(w.attrs) + 1
	noteCol := sourceCol + 1
	header = append(header, "Source BOM", "Note")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", cellRef(len(header), 1), w.header); err != nil {
		return err
	}

	rows := w.byRequest[p.PartNo]
	for i, r := range rows {
		excelRow := i + 2
		values := []any{r.RowID, r.Level, r.PartNo, r.QuantityPerParent, r.CumulativeQuantity}
		for _, a := range w.attrs {
			values = append(values, r.Attributes[a])
		}
		values = append(values, r.SourceName, note(r))
		if err := f.SetSheetRow(sheet, cellRef(1, excelRow), &values); err != nil {
			return err
		}

		partCell := cellRef(colPart, excelRow)
		link := DrawingLink(w.opts.DrawingURL, r.PartNo)
		if link != "" && r.Terminal != model.TerminalNotFound {
			if err := f.SetCellHyperLink(sheet, partCell, link, "External"); err != nil {
				return err
			}
		}
		fill := ""
		switch {
		case r.Terminal == model.TerminalNotFound:
			fill = fillNotFound
		case p.Status == model.StatusComponentOnly && r.ParentRowID == nil:
			fill = fillComponent
		}
		style, err := w.partCellStyle(r.Level, link != "" && fill == "", fill)
		if err != nil {
			return err
		}
		if err := f.SetCellStyle(sheet, partCell, partCell, style); err != nil {
			return err
		}

		if r.IsReference && r.FirstOccurrenceRowID != nil {
			if loc, ok := w.locations[*r.FirstOccurrenceRowID]; ok {
				noteCell := cellRef(noteCol, excelRow)
				if err := f.SetCellHyperLink(sheet, noteCell, loc, "Location"); err != nil {
					return err
				}
				if err := f.SetCellStyle(sheet, noteCell, noteCell, w.link); err != nil {
					return err
				}
			}
		}
	}

	if err := w.writeTotals(sheet, p, len(rows)+3); err != nil {
		return err
	}

	if err := f.SetColWidth(sheet, "C", "C", 28); err != nil {
		return err
	}
	noteName, _ := excelize.ColumnNumberToName(noteCol)
	if err := f.SetColWidth(sheet, noteName, noteName, 18); err != nil {
		return err
	}
	return f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// writeTotals appends the quantity rollup of one part below its rows.
func (w *workbook) writeTotals(sheet string, p model.PartSummary, startRow int) error {
	if len(p.Totals) == 0 {
		return nil
	}
	f := w.f
	header := []any{"Total Per Part", "", "Part Number", "Source BOM", "Total Qty", "Occurrences"}
	if err := f.SetSheetRow(sheet, cellRef(1, startRow), &header); err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, cellRef(1, startRow), cellRef(len(header), startRow), w.header); err != nil {
		return err
	}
	for i, t := range p.Totals {
		values := []any{"", "", t.PartNo, t.SourceName, t.Quantity, t.Occurrences}
		if err := f.SetSheetRow(sheet, cellRef(1, startRow+i+1), &values); err != nil {
			return err
		}
	}
	return nil
}

func (w *workbook) partCellStyle(level int, link bool, fill string) (int, error) {
	if level > maxIndent {
		level = maxIndent
	}
	k := partStyleKey{level: level, link: link, fill: fill}
	if id, ok := w.partStyle[k]; ok {
		return id, nil
	}
	st := &excelize.Style{Alignment: &excelize.Alignment{Horizontal: "left", Indent: level}}
	if link {
		st.Font = &excelize.Font{Color: linkColor, Underline: "single"}
	}
	if fill != "" {
		st.Fill = solid(fill)
	}
	id, err := w.f.NewStyle(st)
	if err != nil {
		return 0, fmt.Errorf("create style: %w", err)
	}
	w.partStyle[k] = id
	return id, nil
}

func note(r model.Row) string {
	switch {
	case r.IsReference && r.FirstOccurrenceRowID != nil:
		return fmt.Sprintf("see row %d", *r.FirstOccurrenceRowID)
	case r.Terminal == model.TerminalCyclic:
		return "cyclic"
	case r.Terminal == model.TerminalNotFound:
		return "No BOM found"
	case r.Terminal == model.TerminalLeaf:
		return "leaf"
	}
	return ""
}

func solid(color string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1}
}

func cellRef(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func location(sheet, cell string) string {
	return "'" + strings.ReplaceAll(sheet, "'", "''") + "'!" + cell
}

// uniqueSheetName makes a valid sheet name from partNo: characters Excel
// rejects are dropped, the name is cut to 31 characters and a numeric
// suffix is added when the name is taken. used is keyed case-insensitively.
func uniqueSheetName(partNo string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '/', '\\', '?', '*', '[', ']':
			return -1
		}
		return r
	}, partNo)
	base = strings.Trim(strings.TrimSpace(base), "'")
	if base == "" {
		base = "Part"
	}
	base = truncateRunes(base, maxSheetName)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf("~%d", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
