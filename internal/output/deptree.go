package output

import (
	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// treeNode is one node of the nested tree output. Reference rows carry
// "ref" with the canonical row id and no children.
//
// Example output:
//
//	[
//	  {
//	    "request": "A",
//	    "status": "FOUND",
//	    "roots": [
//	      {
//	        "row": 1,
//	        "partNo": "A",
//	        "source": "S1",
//	        "quantityPerParent": 1,
//	        "cumulativeQuantity": 1,
//	        "children": [
//	          { "row": 2, "partNo": "X", "source": "S1", "quantityPerParent": 2, "cumulativeQuantity": 2, "terminal": "LEAF" }
//	        ]
//	      }
//	    ]
//	  }
//	]
type treeNode struct {
	Row                int               `json:"row"`
	PartNo             string            `json:"partNo"`
	Source             string            `json:"source,omitempty"`
	QuantityPerParent  float64           `json:"quantityPerParent"`
	CumulativeQuantity float64           `json:"cumulativeQuantity"`
	Terminal           model.Terminal    `json:"terminal,omitempty"`
	Ref                int               `json:"ref,omitempty"`
	Attributes         map[string]string `json:"attributes,omitempty"`
	Children           []*treeNode       `json:"children,omitempty"`
}

type treeRequest struct {
	Request string            `json:"request"`
	Status  model.PartStatus  `json:"status"`
	Totals  []model.PartTotal `json:"totals,omitempty"`
	Roots   []*treeNode       `json:"roots"`
}

// WriteTree writes the report as one nested tree per requested part and
// writes it to outputPath. If outputPath is "-", it writes to stdout.
func WriteTree(report *model.ReportModel, outputPath string) error {
	return writeJSON(outputPath, BuildTree(report))
}

// BuildTree nests the report rows under their parents, grouped by request
// in request order.
func BuildTree(report *model.ReportModel) []treeRequest {
	nodes := make(map[int]*treeNode, len(report.Rows))
	roots := map[string][]*treeNode{}

	for _, r := range report.Rows {
		n := &treeNode{
			Row:                r.RowID,
			PartNo:             r.PartNo,
			Source:             r.SourceName,
			QuantityPerParent:  r.QuantityPerParent,
			CumulativeQuantity: r.CumulativeQuantity,
			Terminal:           r.Terminal,
			Attributes:         r.Attributes,
		}
		if r.IsReference && r.FirstOccurrenceRowID != nil {
			n.Ref = *r.FirstOccurrenceRowID
		}
		nodes[r.RowID] = n

		if r.ParentRowID == nil {
			roots[r.Request] = append(roots[r.Request], n)
			continue
		}
		if p, ok := nodes[*r.ParentRowID]; ok {
			p.Children = append(p.Children, n)
		}
	}

	out := make([]treeRequest, 0, len(report.Parts))
	for _, p := range report.Parts {
		rs := roots[p.PartNo]
		if rs == nil {
			rs = []*treeNode{}
		}
		out = append(out, treeRequest{
			Request: p.PartNo,
			Status:  p.Status,
			Totals:  p.Totals,
			Roots:   rs,
		})
	}
	return out
}
