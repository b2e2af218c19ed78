package output

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// ---- CycloneDX 1.4 JSON schema types ----

type cdxBOM struct {
	BOMFormat    string          `json:"bomFormat"`
	SpecVersion  string          `json:"specVersion"`
	Version      int             `json:"version"`
	SerialNumber string          `json:"serialNumber"`
	Metadata     cdxMetadata     `json:"metadata"`
	Components   []cdxComponent  `json:"components"`
	Dependencies []cdxDependency `json:"dependencies,omitempty"`
}

type cdxMetadata struct {
	Timestamp  string        `json:"timestamp"`
	Tools      []cdxTool     `json:"tools"`
	Properties []cdxProperty `json:"properties,omitempty"`
}

type cdxTool struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

type cdxComponent struct {
	Type       string        `json:"type"`
	BOMRef     string        `json:"bom-ref"`
	Name       string        `json:"name"`
	Group      string        `json:"group,omitempty"` // Source BOM
	PURL       string        `json:"purl,omitempty"`
	ExtRefs    []cdxExtRef   `json:"externalReferences,omitempty"`
	Properties []cdxProperty `json:"properties,omitempty"`
}

type cdxExtRef struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type cdxProperty struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// cdxDependency represents one node in the CycloneDX dependency graph.
// "ref" is the bom-ref of a part; "dependsOn" lists the bom-refs of its
// direct components.
type cdxDependency struct {
	Ref       string   `json:"ref"`
	DependsOn []string `json:"dependsOn"`
}

// WriteCycloneDX serialises the report as a CycloneDX 1.4 JSON BOM and
// writes it to the given output path. If outputPath is "-", it writes to stdout.
//
// Every distinct (part, source) pair becomes one "device" component; the
// dependency graph follows the canonical rows, so a sub-assembly shared by
// several parents is listed once with every parent depending on it.
func WriteCycloneDX(report *model.ReportModel, outputPath string, opts Options) error {
	return writeJSON(outputPath, buildCycloneDX(report, opts))
}

func buildCycloneDX(report *model.ReportModel, opts Options) cdxBOM {
	refOf := func(r model.Row) string {
		return "part:" + url.PathEscape(r.SourceName) + "/" + url.PathEscape(r.PartNo)
	}

	byID := make(map[int]model.Row, len(report.Rows))
	for _, r := range report.Rows {
		byID[r.RowID] = r
	}

	seen := map[string]bool{}
	deps := map[string][]string{}
	depSeen := map[string]map[string]bool{}
	var comps []cdxComponent

	for _, r := range report.Rows {
		if r.Terminal == model.TerminalNotFound {
			continue
		}
		ref := refOf(r)

		if r.ParentRowID != nil {
			if p, ok := byID[*r.ParentRowID]; ok {
				pref := refOf(p)
				if depSeen[pref] == nil {
					depSeen[pref] = map[string]bool{}
				}
				if !depSeen[pref][ref] {
					depSeen[pref][ref] = true
					deps[pref] = append(deps[pref], ref)
				}
			}
		}

		if seen[ref] {
			continue
		}
		seen[ref] = true

		comp := cdxComponent{
			Type:   "device",
			BOMRef: ref,
			Name:   r.PartNo,
			Group:  r.SourceName,
			PURL:   "pkg:generic/" + url.PathEscape(r.PartNo) + "?repository_url=" + url.QueryEscape(r.SourceName),
		}
		if link := DrawingLink(opts.DrawingURL, r.PartNo); link != "" {
			comp.ExtRefs = append(comp.ExtRefs, cdxExtRef{Type: "documentation", URL: link})
		}
		for _, a := range attributeColumns(report, opts) {
			if v := r.Attributes[a]; v != "" {
				comp.Properties = append(comp.Properties, cdxProperty{Name: "bomtree:attr:" + a, Value: v})
			}
		}
		if r.Terminal != model.TerminalNone {
			comp.Properties = append(comp.Properties, cdxProperty{Name: "bomtree:terminal", Value: r.Terminal.String()})
		}
		comps = append(comps, comp)
	}

	// Sort for deterministic output
	sort.Slice(comps, func(i, j int) bool { return comps[i].BOMRef < comps[j].BOMRef })

	cdxDeps := make([]cdxDependency, 0, len(comps))
	for _, c := range comps {
		on := deps[c.BOMRef]
		if on == nil {
			on = []string{}
		}
		cdxDeps = append(cdxDeps, cdxDependency{Ref: c.BOMRef, DependsOn: on})
	}

	var props []cdxProperty
	for _, p := range report.Parts {
		props = append(props, cdxProperty{Name: "bomtree:request", Value: fmt.Sprintf("%s (%s)", p.PartNo, p.Status)})
	}

	version := opts.ToolVersion
	if version == "" {
		version = "dev"
	}
	ts := report.GeneratedAt
	if ts.IsZero() {
		ts = time.Now()
	}

	return cdxBOM{
		BOMFormat:    "CycloneDX",
		SpecVersion:  "1.4",
		Version:      1,
		SerialNumber: "urn:uuid:" + report.RunID,
		Metadata: cdxMetadata{
			Timestamp: ts.UTC().Format(time.RFC3339),
			Tools: []cdxTool{
				{
					Vendor:  "StinkyLord",
					Name:    "bomtree",
					Version: version,
				},
			},
			Properties: props,
		},
		Components:   comps,
		Dependencies: cdxDeps,
	}
}
