package output

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
	"github.com/StinkyLord/bom-tree-builder/internal/model/modeltest"
	"github.com/StinkyLord/bom-tree-builder/internal/registry"
	"github.com/StinkyLord/bom-tree-builder/internal/resolver"
)

// makeReport resolves A, B, Missing and Y against one source in which A and
// B share sub-assembly X and Y only ever appears as a component:
//
//	1 A            4 B          6 Missing (NOT_FOUND)
//	2  X  x2       5  X -> 2    7 Y (component only)
//	3   Y x3
func makeReport(t *testing.T) *model.ReportModel {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.Register(modeltest.Table(t, "S1",
		modeltest.Line{Product: "A", Component: "X", Qty: 2, Attrs: map[string]string{"Name": "Shaft"}},
		modeltest.L("X", "Y", 3),
		modeltest.L("B", "X", 1),
	)))
	report, err := resolver.New(reg).ResolveMany(context.Background(), []string{"A", "B", "Missing", "Y"})
	require.NoError(t, err)
	require.Len(t, report.Rows, 7)
	return report
}

func TestWriteXLSX(t *testing.T) {
	report := makeReport(t)
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, WriteXLSX(report, path, Options{DrawingURL: "https://plm.example.com/d?no={part}"}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Index", "A", "B", "Missing", "Y"}, f.GetSheetList())

	get := func(sheet, cell string) string {
		v, err := f.GetCellValue(sheet, cell)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, "Part Number", get("Index", "A1"))
	assert.Equal(t, "Found", get("Index", "B2"))
	assert.Equal(t, "S1", get("Index", "C2"))
	assert.Equal(t, "Not Found", get("Index", "B4"))
	assert.Equal(t, "Component Only", get("Index", "B5"))

	ok, target, err := f.GetCellHyperLink("Index", "A3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "'B'!A1", target)

	// Part sheet A: header, A, X, Y.
	assert.Equal(t, "Name", get("A", "F1"))
	assert.Equal(t, "X", get("A", "C3"))
	assert.Equal(t, "Shaft", get("A", "F3"))
	assert.Equal(t, "6", get("A", "E4"))
	assert.Equal(t, "leaf", get("A", "H4"))

	ok, target, err = f.GetCellHyperLink("A", "C3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://plm.example.com/d?no=X", target)

	// Sheet B: the X row is a reference to row 2 on sheet A.
	assert.Equal(t, "see row 2", get("B", "H3"))
	ok, target, err = f.GetCellHyperLink("B", "H3")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "'A'!C3", target)

	assert.Equal(t, "No BOM found", get("Missing", "H2"))

	// Rollup below the rows of A: X x2 and Y x6.
	assert.Equal(t, "Total Per Part", get("A", "A6"))
	assert.Equal(t, "X", get("A", "C7"))
	assert.Equal(t, "Y", get("A", "C8"))
	assert.Equal(t, "6", get("A", "E8"))
}

func TestWriteCSV(t *testing.T) {
	report := makeReport(t)
	path := filepath.Join(t.TempDir(), "report.csv")
	require.NoError(t, WriteCSV(report, path, Options{Attributes: []string{"Name"}, DrawingURL: "https://d/{part}"}))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	recs, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, recs, 8)
	assert.Equal(t, []string{"Row", "Request", "Level", "Part Number", "Qty Per Parent", "Total Qty", "Source BOM", "Terminal", "Reference To", "Parent Row", "Name", "Drawing"}, recs[0])
	assert.Equal(t, []string{"2", "A", "1", "X", "2", "2", "S1", "", "", "1", "Shaft", "https://d/X"}, recs[2])
	assert.Equal(t, "2", recs[5][8], "reference row points at the canonical X")
	assert.Equal(t, "NOT_FOUND", recs[6][7])
}

func TestBuildTree(t *testing.T) {
	tree := BuildTree(makeReport(t))
	require.Len(t, tree, 4)

	a := tree[0]
	assert.Equal(t, "A", a.Request)
	require.Len(t, a.Roots, 1)
	require.Len(t, a.Roots[0].Children, 1)
	x := a.Roots[0].Children[0]
	assert.Equal(t, "X", x.PartNo)
	require.Len(t, x.Children, 1)
	assert.Equal(t, model.TerminalLeaf, x.Children[0].Terminal)
	assert.Equal(t, 6.0, x.Children[0].CumulativeQuantity)

	b := tree[1]
	require.Len(t, b.Roots[0].Children, 1)
	assert.Equal(t, 2, b.Roots[0].Children[0].Ref)
	assert.Empty(t, b.Roots[0].Children[0].Children)

	assert.Equal(t, model.StatusNotFound, tree[2].Status)
	assert.Equal(t, model.StatusComponentOnly, tree[3].Status)
}

func TestWrite_Formats(t *testing.T) {
	report := makeReport(t)
	dir := t.TempDir()

	for _, format := range []string{FormatJSON, FormatTree, FormatCSV, FormatXLSX} {
		path := filepath.Join(dir, "out."+format)
		got, err := Write(report, Options{Format: format, Path: path})
		require.NoError(t, err, format)
		assert.Equal(t, path, got)
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())
	}

	data, err := os.ReadFile(filepath.Join(dir, "out.json"))
	require.NoError(t, err)
	var decoded model.ReportModel
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded.Rows, 7)

	_, err = Write(report, Options{Format: "pdf", Path: filepath.Join(dir, "x.pdf")})
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	now := time.Date(2024, 1, 31, 15, 45, 0, 0, time.UTC)
	assert.Equal(t, "BOM_Analysis_Report_20240131_154500.xlsx", DefaultPath(FormatXLSX, now))
	assert.Equal(t, "BOM_Analysis_Report_20240131_154500.json", DefaultPath(FormatTree, now))
	assert.Equal(t, "BOM_Analysis_Report_20240131_154500.cdx.json", DefaultPath(FormatCycloneDX, now))
}

func TestDrawingLink(t *testing.T) {
	assert.Equal(t, "", DrawingLink("", "A"))
	assert.Equal(t, "https://plm/d?no=A+B%2F1&x=1", DrawingLink("https://plm/d?no={part}&x=1", "A B/1"))
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"index": true}
	assert.Equal(t, "ABCD", uniqueSheetName("AB:C/D", used))
	assert.Equal(t, "abcd~2", uniqueSheetName("ab[cd]", used))
	assert.Equal(t, "Index~2", uniqueSheetName("Index", used))
	assert.Equal(t, "Part", uniqueSheetName("???", used))

	long := strings.Repeat("9", 40)
	name := uniqueSheetName(long, used)
	assert.Len(t, name, 31)
	second := uniqueSheetName(long, used)
	assert.Len(t, second, 31)
	assert.True(t, strings.HasSuffix(second, "~2"))
}
