package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

func n(part, source string, children ...*model.BOMNode) *model.BOMNode {
	return &model.BOMNode{PartNo: part, SourceName: source, QuantityPerParent: 1, CumulativeQuantity: 1, Children: children}
}

func leaf(part, source string) *model.BOMNode {
	x := n(part, source)
	x.Terminal = model.TerminalLeaf
	return x
}

func TestFlatten_ChainHasNoReferences(t *testing.T) {
	tree := &model.BOMTree{RootPartNo: "A", Roots: []*model.BOMNode{
		n("A", "S1", n("B", "S1", leaf("C", "S1"))),
	}}
	rows := Flatten([]*model.BOMTree{tree})

	require.Len(t, rows, 3)
	for i, r := range rows {
		assert.Equal(t, i+1, r.RowID)
		assert.Equal(t, i, r.Level)
		assert.False(t, r.IsReference)
		assert.Nil(t, r.FirstOccurrenceRowID)
		assert.Equal(t, "A", r.Request)
	}
	assert.Nil(t, rows[0].ParentRowID)
	require.NotNil(t, rows[2].ParentRowID)
	assert.Equal(t, 2, *rows[2].ParentRowID)
	assert.Equal(t, model.TerminalLeaf, rows[2].Terminal)
}

// X from S1 appears twice with identical children: the second is a
// reference to the first and its children are not re-emitted.
func TestFlatten_DuplicateBecomesReference(t *testing.T) {
	tree := &model.BOMTree{RootPartNo: "A", Roots: []*model.BOMNode{
		n("A", "S1",
			n("X", "S1", leaf("Y", "S1")),
			n("B", "S1", n("X", "S1", leaf("Y", "S1"))),
		),
	}}
	rows := Flatten([]*model.BOMTree{tree})

	parts := make([]string, len(rows))
	for i, r := range rows {
		parts[i] = r.PartNo
	}
	assert.Equal(t, []string{"A", "X", "Y", "B", "X"}, parts)

	ref := rows[4]
	assert.True(t, ref.IsReference)
	require.NotNil(t, ref.FirstOccurrenceRowID)
	assert.Equal(t, 2, *ref.FirstOccurrenceRowID)
	assert.Equal(t, 2, ref.Level)
}

func TestFlatten_SourcesAreDistinctEntities(t *testing.T) {
	tree := &model.BOMTree{RootPartNo: "A", Roots: []*model.BOMNode{
		n("A", "S1", n("X", "S1", leaf("Y", "S1"))),
		n("A", "S2", n("X", "S2", leaf("Y", "S2"))),
	}}
	rows := Flatten([]*model.BOMTree{tree})

	require.Len(t, rows, 6)
	for _, r := range rows {
		assert.False(t, r.IsReference, "row %d (%s/%s) must not be a reference", r.RowID, r.PartNo, r.SourceName)
	}
}

func TestFlatten_TerminalsNeverReferences(t *testing.T) {
	cyc := n("A", "S1")
	cyc.Terminal = model.TerminalCyclic
	tree := &model.BOMTree{RootPartNo: "A", Roots: []*model.BOMNode{
		n("A", "S1", leaf("L", "S1"), leaf("L", "S1"), n("B", "S1", cyc)),
	}}
	rows := Flatten([]*model.BOMTree{tree})

	require.Len(t, rows, 5)
	assert.False(t, rows[1].IsReference)
	assert.False(t, rows[2].IsReference)
	assert.Equal(t, model.TerminalCyclic, rows[4].Terminal)
	assert.False(t, rows[4].IsReference)
}

func TestBuilder_DedupSpansBatch(t *testing.T) {
	p1 := &model.BOMTree{RootPartNo: "P1", Roots: []*model.BOMNode{
		n("P1", "S1", n("SUB", "S1", leaf("Z", "S1"))),
	}}
	p2 := &model.BOMTree{RootPartNo: "P2", Roots: []*model.BOMNode{
		n("P2", "S1", n("SUB", "S1", leaf("Z", "S1"))),
	}}

	b := NewBuilder()
	assert.Equal(t, 1, b.Add("P1", p1))
	assert.Equal(t, 4, b.Add("P2", p2))
	nf := b.AddNotFound("P3", 2)
	assert.Equal(t, 6, nf)

	rows := b.Rows()
	require.Len(t, rows, 6)
	assert.True(t, rows[4].IsReference)
	assert.Equal(t, "P2", rows[4].Request)
	require.NotNil(t, rows[4].FirstOccurrenceRowID)
	assert.Equal(t, 2, *rows[4].FirstOccurrenceRowID)

	assert.Equal(t, model.TerminalNotFound, rows[5].Terminal)
	assert.Equal(t, 2.0, rows[5].CumulativeQuantity)

	id, ok := b.CanonicalRowID("SUB", "S1")
	require.True(t, ok)
	assert.Equal(t, 2, id)
	assert.Equal(t, 6, b.Len())
}

func TestBuilder_EmptyTree(t *testing.T) {
	b := NewBuilder()
	assert.Equal(t, 0, b.Add("X", &model.BOMTree{RootPartNo: "X"}))
	assert.Equal(t, 0, b.Add("X", nil))
	assert.Empty(t, Flatten([]*model.BOMTree{nil}))
}
