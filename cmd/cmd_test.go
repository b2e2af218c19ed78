package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// execute runs the root command with fresh flag values.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.PersistentFlags().VisitAll(reset)
	c.Flags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func writeSources(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	s1 := filepath.Join(dir, "plant1.csv")
	require.NoError(t, os.WriteFile(s1, []byte("Product no,Component no,Quantity,Name\nA,X,2,Shaft\nX,Y,3,Pin\n"), 0644))
	s2 := filepath.Join(dir, "plant2.txt")
	require.NoError(t, os.WriteFile(s2, []byte("Parent;Child;Qty\nA;Z;1\n"), 0644))
	return s1, s2
}

func TestResolveCommand_JSON(t *testing.T) {
	s1, s2 := writeSources(t)
	out := filepath.Join(t.TempDir(), "report.json")
	metricsFile := filepath.Join(t.TempDir(), "bomtree.prom")

	_, stderr, err := execute(t, "resolve",
		"-s", s1+"=S1", "-s", s2,
		"-p", "A,Missing",
		"--qty", "10",
		"--format", "json",
		"--output", out,
		"--metrics-file", metricsFile,
		"--log-level", "error",
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Loaded 2 source(s): S1, plant2.txt")
	assert.Contains(t, stderr, "Resolved 2 part(s): 1 found, 0 component only, 1 not found")

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report model.ReportModel
	require.NoError(t, json.Unmarshal(data, &report))

	assert.Equal(t, []string{"S1", "plant2.txt"}, report.Sources)
	require.Len(t, report.Rows, 6)
	assert.Equal(t, "A", report.Rows[0].PartNo)
	assert.Equal(t, 10.0, report.Rows[0].CumulativeQuantity)
	assert.Equal(t, 60.0, report.Rows[2].CumulativeQuantity, "Y = 10 x 2 x 3")
	assert.Equal(t, "plant2.txt", report.Rows[3].SourceName)
	assert.Equal(t, model.TerminalNotFound, report.Rows[5].Terminal)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), "bomtree_report_rows_total 6")
}

func TestResolveCommand_FirstMatchAndSearchIn(t *testing.T) {
	s1, s2 := writeSources(t)
	out := filepath.Join(t.TempDir(), "report.json")

	_, _, err := execute(t, "resolve", "A",
		"-s", s1+"=S1", "-s", s2+"=S2",
		"--search-in", "S2",
		"--mode", "first",
		"-f", "json", "-o", out,
		"--log-level", "error",
	)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	var report model.ReportModel
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Equal(t, []string{"S2"}, report.Sources)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, "Z", report.Rows[1].PartNo)
}

func TestResolveCommand_Errors(t *testing.T) {
	s1, _ := writeSources(t)

	_, _, err := execute(t, "resolve", "A", "--log-level", "error")
	assert.ErrorContains(t, err, "no BOM sources")

	_, _, err = execute(t, "resolve", "-s", s1, "--log-level", "error")
	assert.ErrorContains(t, err, "no part numbers")

	_, _, err = execute(t, "resolve", "A", "-s", s1, "--mode", "sideways", "--log-level", "error")
	assert.Error(t, err)

	_, _, err = execute(t, "resolve", "A", "-s", filepath.Join(t.TempDir(), "missing.csv"), "--log-level", "error")
	assert.ErrorContains(t, err, "no valid BOM sources")
}

func TestSourcesCommand(t *testing.T) {
	s1, s2 := writeSources(t)
	stdout, _, err := execute(t, "sources", "-s", s1+"=S1", "-s", s2+"=S2", "--where", "X,Z,Nope", "--log-level", "error")
	require.NoError(t, err)

	assert.Contains(t, stdout, "SOURCE")
	assert.Regexp(t, `1\s+S1\s+2\s+2\s+2`, stdout)
	assert.Regexp(t, `2\s+S2\s+1\s+1\s+1`, stdout)
	assert.Contains(t, stdout, "X: product in [S1], component in [S1]")
	assert.Contains(t, stdout, "Z: product in [], component in [S2]")
	assert.Contains(t, stdout, "Nope: not found")
}

func TestParseSourceFlag(t *testing.T) {
	src, err := parseSourceFlag("boms/a.csv=Plant A")
	require.NoError(t, err)
	assert.Equal(t, "boms/a.csv", src.Path)
	assert.Equal(t, "Plant A", src.Name)

	src, err = parseSourceFlag("s3://bucket/b.xlsx")
	require.NoError(t, err)
	assert.Equal(t, "b.xlsx", src.DisplayName())

	_, err = parseSourceFlag("=name")
	assert.Error(t, err)
}
