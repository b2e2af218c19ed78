// Package quantity computes path-cumulative quantities on resolved BOM
// trees and rolls them up per part.
package quantity

import "github.com/StinkyLord/bom-tree-builder/internal/model"

// Aggregate sets CumulativeQuantity on every node of tree in a single
// top-down pass: a root keeps its own QuantityPerParent (the requested
// build quantity), every other node multiplies its QuantityPerParent by its
// parent's cumulative quantity. No rounding is applied.
//
// Aggregate runs per occurrence, before canonicalization collapses repeated
// sub-assemblies into references, since the same part can carry different
// cumulative quantities on different branches.
func Aggregate(tree *model.BOMTree) {
	if tree == nil {
		return
	}
	for _, root := range tree.Roots {
		root.Walk(func(n, parent *model.BOMNode) {
			if parent == nil {
				n.CumulativeQuantity = n.QuantityPerParent
				return
			}
			n.CumulativeQuantity = n.QuantityPerParent * parent.CumulativeQuantity
		})
	}
}

type totalKey struct {
	partNo string
	source string
}

// Rollup sums the cumulative quantity of every (part, source) pair below
// the roots of tree, in first-occurrence order. Roots themselves are not
// counted. Aggregate must have run first.
func Rollup(tree *model.BOMTree) []model.PartTotal {
	if tree == nil {
		return nil
	}

	index := map[totalKey]int{}
	var totals []model.PartTotal
	for _, root := range tree.Roots {
		root.Walk(func(n, parent *model.BOMNode) {
			if parent == nil {
				return
			}
			k := totalKey{partNo: n.PartNo, source: n.SourceName}
			i, ok := index[k]
			if !ok {
				i = len(totals)
				index[k] = i
				totals = append(totals, model.PartTotal{PartNo: n.PartNo, SourceName: n.SourceName})
			}
			totals[i].Quantity += n.CumulativeQuantity
			totals[i].Occurrences++
		})
	}
	return totals
}
