package output

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycloneDXSchema(t *testing.T) {
	report := makeReport(t)
	bom := buildCycloneDX(report, Options{ToolVersion: "1.2.3", DrawingURL: "https://plm/d/{part}"})

	assert.Equal(t, "CycloneDX", bom.BOMFormat)
	assert.Equal(t, "1.4", bom.SpecVersion)
	assert.Equal(t, 1, bom.Version)
	assert.True(t, strings.HasPrefix(bom.SerialNumber, "urn:uuid:"), "serialNumber should be a URN UUID")
	require.Len(t, bom.Metadata.Tools, 1)
	assert.Equal(t, "bomtree", bom.Metadata.Tools[0].Name)
	assert.Equal(t, "1.2.3", bom.Metadata.Tools[0].Version)
	require.Len(t, bom.Metadata.Properties, 4)
	assert.Equal(t, "A (FOUND)", bom.Metadata.Properties[0].Value)
	assert.Equal(t, "Missing (NOT_FOUND)", bom.Metadata.Properties[2].Value)

	// A, B, X and Y once each; the missing part has no component.
	names := make([]string, 0, len(bom.Components))
	for _, c := range bom.Components {
		names = append(names, c.Name)
		assert.Equal(t, "device", c.Type)
		assert.Equal(t, "S1", c.Group)
		require.Len(t, c.ExtRefs, 1)
		assert.Equal(t, "https://plm/d/"+c.Name, c.ExtRefs[0].URL)
	}
	assert.Equal(t, []string{"A", "B", "X", "Y"}, names)
}

func TestCycloneDXDependencies(t *testing.T) {
	bom := buildCycloneDX(makeReport(t), Options{})

	deps := map[string][]string{}
	for _, d := range bom.Dependencies {
		deps[d.Ref] = d.DependsOn
	}
	require.Len(t, deps, 4)
	assert.Equal(t, []string{"part:S1/X"}, deps["part:S1/A"])
	assert.Equal(t, []string{"part:S1/X"}, deps["part:S1/B"], "reference row still links its parent")
	assert.Equal(t, []string{"part:S1/Y"}, deps["part:S1/X"])
	assert.Empty(t, deps["part:S1/Y"])
	assert.NotNil(t, deps["part:S1/Y"], "leaf dependsOn is an empty array, not null")
}

func TestWriteCycloneDX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bom.cdx.json")
	got, err := Write(makeReport(t), Options{Format: FormatCycloneDX, Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "CycloneDX", raw["bomFormat"])
	assert.Len(t, raw["components"], 4)
	assert.Len(t, raw["dependencies"], 4)
}
