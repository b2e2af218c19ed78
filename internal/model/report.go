package model

import (
	"encoding/json"
	"time"
)

// Row is one line of the flattened report.
//
// A canonical row carries the full expansion of a (part, source) pair and
// has a nil FirstOccurrenceRowID. A reference row stands in for a canonical
// row emitted earlier: IsReference is set, FirstOccurrenceRowID points at
// the canonical row, and no child rows follow it.
type Row struct {
	RowID                int               `json:"rowId"`
	Request              string            `json:"request"` // Requested root this row belongs to
	PartNo               string            `json:"partNo"`
	Level                int               `json:"level"`
	QuantityPerParent    float64           `json:"quantityPerParent"`
	CumulativeQuantity   float64           `json:"cumulativeQuantity"`
	SourceName           string            `json:"source,omitempty"`
	Attributes           map[string]string `json:"attributes,omitempty"`
	ParentRowID          *int              `json:"parentRowId,omitempty"`
	FirstOccurrenceRowID *int              `json:"firstOccurrenceRowId"`
	IsReference          bool              `json:"isReference"`
	Terminal             Terminal          `json:"terminal,omitempty"`
}

// PartStatus is the outcome of one requested part.
type PartStatus string

const (
	StatusFound         PartStatus = "FOUND"
	StatusComponentOnly PartStatus = "COMPONENT_ONLY"
	StatusNotFound      PartStatus = "NOT_FOUND"
)

// PartSummary describes one requested part in the report index.
type PartSummary struct {
	PartNo     string      `json:"partNo"`
	Status     PartStatus  `json:"status"`
	Sources    []string    `json:"sources,omitempty"` // Root branch sources
	FirstRowID int         `json:"firstRowId"`
	Totals     []PartTotal `json:"totals,omitempty"`
}

// PartFailure records a requested part that could not be resolved.
type PartFailure struct {
	PartNo string
	Err    error
}

// MarshalJSON writes the error as its message.
func (f PartFailure) MarshalJSON() ([]byte, error) {
	msg := ""
	if f.Err != nil {
		msg = f.Err.Error()
	}
	return json.Marshal(struct {
		PartNo string `json:"partNo"`
		Error  string `json:"error"`
	}{f.PartNo, msg})
}

// ReportModel is the renderer-agnostic result of a batch search.
type ReportModel struct {
	RunID            string        `json:"runId"`
	GeneratedAt      time.Time     `json:"generatedAt"`
	Mode             string        `json:"mode"`
	Sources          []string      `json:"sources"` // Sources searched, in priority order
	AttributeColumns []string      `json:"attributeColumns,omitempty"`
	Rows             []Row         `json:"rows"`
	Parts            []PartSummary `json:"parts"`
	Failures         []PartFailure `json:"failures,omitempty"`
}

// Row returns the row with the given id.
func (m *ReportModel) Row(id int) (Row, bool) {
	// Row ids are dense and start at 1.
	if id < 1 || id > len(m.Rows) || m.Rows[id-1].RowID != id {
		for _, r := range m.Rows {
			if r.RowID == id {
				return r, true
			}
		}
		return Row{}, false
	}
	return m.Rows[id-1], true
}

// RowsFor returns the rows that belong to the given requested part.
func (m *ReportModel) RowsFor(request string) []Row {
	var out []Row
	for _, r := range m.Rows {
		if r.Request == request {
			out = append(out, r)
		}
	}
	return out
}

// ReferenceCount returns how many rows are references.
func (m *ReportModel) ReferenceCount() int {
	n := 0
	for _, r := range m.Rows {
		if r.IsReference {
			n++
		}
	}
	return n
}
