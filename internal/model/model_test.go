package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuantity(t *testing.T) {
	cases := map[string]float64{
		"":      1,
		"  ":    1,
		"3":     3,
		" 4.5 ": 4.5,
		"2,5":   2.5,
		"0":     0,
		"-2":    1,
		"abc":   1,
		"NaN":   1,
		"+Inf":  1,
		"1,2.5": 1,
	}
	for raw, want := range cases {
		assert.Equal(t, want, ParseQuantity(raw), "ParseQuantity(%q)", raw)
	}
}

func TestNewPartRecord_RejectsEmptyKeys(t *testing.T) {
	_, err := NewPartRecord("S1", 7, "  ", "B", 1, nil)
	require.Error(t, err)

	var mse *MalformedSourceError
	require.True(t, errors.As(err, &mse))
	assert.Equal(t, "S1", mse.Source)
	assert.Equal(t, 7, mse.Line)
	assert.Contains(t, err.Error(), "line 7")

	_, err = NewPartRecord("S1", 8, "A", "", 1, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty component number")
}

func TestNewPartRecord_TrimsAndClampsQuantity(t *testing.T) {
	r, err := NewPartRecord("S1", 1, " A ", " B", -3, map[string]string{"Name": "Bolt"})
	require.NoError(t, err)
	assert.Equal(t, "A", r.ProductNo)
	assert.Equal(t, "B", r.ComponentNo)
	assert.Equal(t, 1.0, r.Quantity)
	assert.Equal(t, "Bolt", r.Attr("Name"))
	assert.Equal(t, "", r.Attr("Missing"))
}

func TestSourceBuilder_PreservesRowOrder(t *testing.T) {
	b := NewSourceBuilder("S1", []string{"Name"})
	rows := [][2]string{{"A", "C"}, {"B", "X"}, {"A", "B"}, {"A", "C"}}
	for i, r := range rows {
		require.NoError(t, b.Add(PartRecord{ProductNo: r[0], ComponentNo: r[1], Quantity: float64(i + 1), Line: i + 2}))
	}
	tbl := b.Build()

	assert.Equal(t, "S1", tbl.Name)
	assert.Equal(t, 4, tbl.Len())
	assert.Equal(t, []string{"A", "B"}, tbl.Products())
	assert.Equal(t, []string{"C", "B", "X"}, tbl.ComponentNos())

	comps := tbl.Components("A")
	require.Len(t, comps, 3)
	assert.Equal(t, "C", comps[0].ComponentNo)
	assert.Equal(t, "B", comps[1].ComponentNo)
	assert.Equal(t, "C", comps[2].ComponentNo)

	assert.True(t, tbl.HasProduct("A"))
	assert.False(t, tbl.HasProduct("C"))
	assert.True(t, tbl.HasComponent("C"))
	assert.False(t, tbl.HasComponent("A"))

	first, ok := tbl.ComponentRecord("C")
	require.True(t, ok)
	assert.Equal(t, 2, first.Line)
}

func TestSourceBuilder_FrozenAfterBuild(t *testing.T) {
	b := NewSourceBuilder("S1", nil)
	require.NoError(t, b.Add(PartRecord{ProductNo: "A", ComponentNo: "B", Quantity: 1}))
	b.Build()
	assert.Error(t, b.Add(PartRecord{ProductNo: "A", ComponentNo: "C", Quantity: 1}))
}

func TestSourceBuilder_RejectsMalformed(t *testing.T) {
	b := NewSourceBuilder("S1", nil)
	err := b.Add(PartRecord{ProductNo: "A", ComponentNo: " ", Line: 3})
	var mse *MalformedSourceError
	require.ErrorAs(t, err, &mse)
	assert.Equal(t, 3, mse.Line)
}

func TestTerminal_JSONRoundTrip(t *testing.T) {
	for _, term := range []Terminal{TerminalNone, TerminalLeaf, TerminalCyclic, TerminalNotFound} {
		data, err := json.Marshal(term)
		require.NoError(t, err)
		var back Terminal
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, term, back)
	}
	var bad Terminal
	assert.Error(t, json.Unmarshal([]byte(`"BOGUS"`), &bad))
}

func TestNotFoundError(t *testing.T) {
	err := error(&NotFoundError{PartNo: "P2", Sources: []string{"S1", "S2"}})
	assert.True(t, IsNotFound(err))
	assert.Equal(t, `part "P2" not found in S1, S2`, err.Error())
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestReportModel_RowLookup(t *testing.T) {
	m := &ReportModel{Rows: []Row{
		{RowID: 1, Request: "A", PartNo: "A"},
		{RowID: 2, Request: "A", PartNo: "B", IsReference: true},
		{RowID: 3, Request: "Z", PartNo: "Z"},
	}}
	r, ok := m.Row(2)
	require.True(t, ok)
	assert.Equal(t, "B", r.PartNo)
	_, ok = m.Row(9)
	assert.False(t, ok)
	assert.Len(t, m.RowsFor("A"), 2)
	assert.Equal(t, 1, m.ReferenceCount())
}

func TestPartFailure_MarshalJSON(t *testing.T) {
	data, err := json.Marshal(PartFailure{PartNo: "P2", Err: &NotFoundError{PartNo: "P2"}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"partNo":"P2","error":"part \"P2\" not found: no sources searched"}`, string(data))
}
