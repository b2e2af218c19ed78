package model

import (
	"encoding/json"
	"fmt"
)

// Terminal describes why a BOMNode has no children.
type Terminal int

const (
	// TerminalNone marks an expanded node (it has components in its source).
	TerminalNone Terminal = iota
	// TerminalLeaf marks a part with no components in its source.
	TerminalLeaf
	// TerminalCyclic marks a part that already appears among its ancestors.
	// The branch stops there.
	TerminalCyclic
	// TerminalNotFound marks a requested part that no source knows about.
	// It only appears as a placeholder report row, never inside a tree.
	TerminalNotFound
)

func (t Terminal) String() string {
	switch t {
	case TerminalLeaf:
		return "LEAF"
	case TerminalCyclic:
		return "CYCLIC"
	case TerminalNotFound:
		return "NOT_FOUND"
	default:
		return ""
	}
}

// MarshalJSON writes the terminal as its string form.
func (t Terminal) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON reads the string form written by MarshalJSON.
func (t *Terminal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "":
		*t = TerminalNone
	case "LEAF":
		*t = TerminalLeaf
	case "CYCLIC":
		*t = TerminalCyclic
	case "NOT_FOUND":
		*t = TerminalNotFound
	default:
		return fmt.Errorf("unknown terminal %q", s)
	}
	return nil
}

// BOMNode is a single node of a resolved tree. Each node exclusively owns
// its children; the same part appearing twice is two distinct nodes.
//
// Example, source S1 with rows (A,B,2) and (B,C,4):
//
//	A (qty 1, cum 1)
//	└── B (qty 2, cum 2)
//	    └── C (qty 4, cum 8, LEAF)
type BOMNode struct {
	PartNo             string            `json:"partNo"`
	QuantityPerParent  float64           `json:"quantityPerParent"`
	CumulativeQuantity float64           `json:"cumulativeQuantity"`
	SourceName         string            `json:"source"`
	Level              int               `json:"level"`
	Attributes         map[string]string `json:"attributes,omitempty"`
	Terminal           Terminal          `json:"terminal,omitempty"`
	Children           []*BOMNode        `json:"children,omitempty"`
}

// Walk visits n and its descendants depth-first, parents before children.
// parent is nil for n itself.
func (n *BOMNode) Walk(fn func(node, parent *BOMNode)) {
	var visit func(node, parent *BOMNode)
	visit = func(node, parent *BOMNode) {
		fn(node, parent)
		for _, c := range node.Children {
			visit(c, node)
		}
	}
	visit(n, nil)
}

// BOMTree is the resolved hierarchy of one requested part: one root branch
// per source in which the part was found.
type BOMTree struct {
	RootPartNo string     `json:"rootPartNo"`
	Roots      []*BOMNode `json:"roots"`

	// ComponentOnly is set when no searched source lists the part as a
	// product; the roots are then LEAF nodes taken from component rows.
	ComponentOnly bool `json:"componentOnly,omitempty"`

	// Totals holds the per-part rollup computed by the quantity aggregator.
	Totals []PartTotal `json:"totals,omitempty"`
}

// Sources returns the source names of the root branches in order.
func (t *BOMTree) Sources() []string {
	out := make([]string, 0, len(t.Roots))
	for _, r := range t.Roots {
		out = append(out, r.SourceName)
	}
	return out
}

// NodeCount returns the number of nodes across every root branch.
func (t *BOMTree) NodeCount() int {
	n := 0
	for _, r := range t.Roots {
		r.Walk(func(*BOMNode, *BOMNode) { n++ })
	}
	return n
}

// PartTotal is the summed cumulative quantity of one (part, source) pair
// below a requested root.
type PartTotal struct {
	PartNo      string  `json:"partNo"`
	SourceName  string  `json:"source"`
	Quantity    float64 `json:"quantity"`
	Occurrences int     `json:"occurrences"`
}
