package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Full(t *testing.T) {
	data := []byte(`
mode: first
build_quantity: 2.5
workers: 8
timeout: 90s
sources:
  - name: plant-a
    path: boms/a.csv
    priority: 2
  - path: boms/b.xlsx
    format: xlsx
    sheet: BOM
    priority: 1
  - name: erp
    path: boms/erp.db
    format: sqlite
    table: bom_lines
    priority: 1
columns:
  product: ["Assy"]
report:
  attributes: ["Description"]
  drawing_url: "https://plm.example.com/drawing?part={part}"
output:
  path: out.json
  format: json
logging:
  level: debug
  format: json
`)
	cfg, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "first", cfg.Mode)
	assert.Equal(t, 2.5, cfg.BuildQuantity)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 90*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"Assy"}, cfg.Columns.Product)
	assert.Equal(t, "debug", cfg.Logging.Level)

	ordered := cfg.SourcesByPriority()
	require.Len(t, ordered, 3)
	assert.Equal(t, "b.xlsx", ordered[0].DisplayName())
	assert.Equal(t, "erp", ordered[1].DisplayName())
	assert.Equal(t, "plant-a", ordered[2].DisplayName())
}

func TestParse_DefaultsKept(t *testing.T) {
	cfg, err := Parse([]byte("sources:\n  - path: a.csv\n"))
	require.NoError(t, err)
	assert.Equal(t, "all", cfg.Mode)
	assert.Equal(t, 1.0, cfg.BuildQuantity)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "xlsx", cfg.Output.Format)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestParse_Invalid(t *testing.T) {
	cases := map[string]string{
		"bad mode":         "mode: sideways\n",
		"negative qty":     "build_quantity: -1\n",
		"missing path":     "sources:\n  - name: x\n",
		"bad format":       "sources:\n  - path: a\n    format: pdf\n",
		"sqlite no table":  "sources:\n  - path: a.db\n    format: sqlite\n",
		"bad table ident":  "sources:\n  - path: a.db\n    format: sqlite\n    table: \"x; drop\"\n",
		"duplicate names":  "sources:\n  - path: x/a.csv\n  - path: y/a.csv\n",
		"unknown searchin": "sources:\n  - path: a.csv\nsearch_in: [nope]\n",
		"url no part":      "report:\n  drawing_url: https://example.com\n",
		"bad output":       "output:\n  format: pdf\n",
		"bad log level":    "logging:\n  level: loud\n",
		"bad yaml":         "mode: [\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bomtree.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Workers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestIsSQLIdent(t *testing.T) {
	assert.True(t, IsSQLIdent("bom_lines"))
	assert.True(t, IsSQLIdent("_t1"))
	assert.False(t, IsSQLIdent(""))
	assert.False(t, IsSQLIdent("1abc"))
	assert.False(t, IsSQLIdent("a-b"))
	assert.False(t, IsSQLIdent("a;b"))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "named", Source{Name: "named", Path: "x/y.csv"}.DisplayName())
	assert.Equal(t, "y.csv", Source{Path: "x/y.csv"}.DisplayName())
	assert.Equal(t, "z.xlsx", Source{Path: `C:\boms\z.xlsx`}.DisplayName())
	assert.Equal(t, "plain", Source{Path: "plain"}.DisplayName())
}
