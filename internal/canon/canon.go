// Package canon flattens resolved BOM trees into report rows, collapsing
// repeated expansions of the same (part, source) pair into one canonical
// row plus back-references.
//
// Example, part X from S1 used twice under A:
//
//	1  A        (canonical)
//	2   X       (canonical, children follow)
//	3    Y
//	4   X       (reference -> 2, children omitted)
package canon

import "github.com/StinkyLord/bom-tree-builder/internal/model"

type canonKey struct {
	partNo string
	source string
}

// Builder accumulates rows across a batch of trees. The first-occurrence
// map is scoped to the Builder, so a sub-assembly shared between two
// requested roots is expanded only once.
//
// A Builder is not safe for concurrent use; callers merge trees into it
// from a single goroutine so that "first occurrence wins" stays
// deterministic.
type Builder struct {
	first map[canonKey]int
	rows  []model.Row
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{first: make(map[canonKey]int)}
}

// Add flattens tree depth-first (roots in order, then children in order)
// and tags every row with request. It returns the id of the first row
// emitted for the tree, or 0 when the tree has no roots.
func (b *Builder) Add(request string, tree *model.BOMTree) int {
	if tree == nil || len(tree.Roots) == 0 {
		return 0
	}
	firstID := len(b.rows) + 1
	for _, root := range tree.Roots {
		b.emit(request, root, nil, 0)
	}
	return firstID
}

// AddNotFound emits a single NOT_FOUND placeholder row for a requested part
// that no source knows about, so renderers can list it in request order.
func (b *Builder) AddNotFound(request string, buildQty float64) int {
	id := len(b.rows) + 1
	b.rows = append(b.rows, model.Row{
		RowID:              id,
		Request:            request,
		PartNo:             request,
		QuantityPerParent:  buildQty,
		CumulativeQuantity: buildQty,
		Terminal:           model.TerminalNotFound,
	})
	return id
}

func (b *Builder) emit(request string, n *model.BOMNode, parentID *int, depth int) {
	id := len(b.rows) + 1
	row := model.Row{
		RowID:              id,
		Request:            request,
		PartNo:             n.PartNo,
		Level:              depth,
		QuantityPerParent:  n.QuantityPerParent,
		CumulativeQuantity: n.CumulativeQuantity,
		SourceName:         n.SourceName,
		Attributes:         n.Attributes,
		ParentRowID:        parentID,
		Terminal:           n.Terminal,
	}

	// Terminal nodes carry no children, so there is nothing to collapse.
	if n.Terminal != model.TerminalNone {
		b.rows = append(b.rows, row)
		return
	}

	k := canonKey{partNo: n.PartNo, source: n.SourceName}
	if canonical, seen := b.first[k]; seen {
		row.IsReference = true
		row.FirstOccurrenceRowID = &canonical
		b.rows = append(b.rows, row)
		return
	}

	b.first[k] = id
	b.rows = append(b.rows, row)
	for _, c := range n.Children {
		pid := id
		b.emit(request, c, &pid, depth+1)
	}
}

// CanonicalRowID returns the id of the canonical row of (partNo, source).
func (b *Builder) CanonicalRowID(partNo, source string) (int, bool) {
	id, ok := b.first[canonKey{partNo: partNo, source: source}]
	return id, ok
}

// Len returns the number of rows emitted so far.
func (b *Builder) Len() int { return len(b.rows) }

// Rows returns a copy of the rows emitted so far.
func (b *Builder) Rows() []model.Row {
	out := make([]model.Row, len(b.rows))
	copy(out, b.rows)
	return out
}

// Flatten converts trees into one deduplicated row sequence. Each tree's
// rows are tagged with its RootPartNo.
func Flatten(trees []*model.BOMTree) []model.Row {
	b := NewBuilder()
	for _, t := range trees {
		if t == nil {
			continue
		}
		b.Add(t.RootPartNo, t)
	}
	return b.Rows()
}
