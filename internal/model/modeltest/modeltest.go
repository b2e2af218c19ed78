// Package modeltest builds synthetic BOM sources for tests.
package modeltest

import (
	"testing"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// Line is one (product, component, quantity) triple with optional attributes.
type Line struct {
	Product   string
	Component string
	Qty       float64
	Attrs     map[string]string
}

// L is shorthand for a Line without attributes.
func L(product, component string, qty float64) Line {
	return Line{Product: product, Component: component, Qty: qty}
}

// Table builds a SourceTable from lines, failing the test on bad input.
func Table(t testing.TB, name string, lines ...Line) *model.SourceTable {
	t.Helper()

	var cols []string
	seen := map[string]bool{}
	for _, l := range lines {
		for k := range l.Attrs {
			if !seen[k] {
				seen[k] = true
				cols = append(cols, k)
			}
		}
	}

	b := model.NewSourceBuilder(name, cols)
	for i, l := range lines {
		rec := model.PartRecord{
			ProductNo:   l.Product,
			ComponentNo: l.Component,
			Quantity:    l.Qty,
			Attributes:  l.Attrs,
			Line:        i + 2, // header is line 1
		}
		if err := b.Add(rec); err != nil {
			t.Fatalf("modeltest: %v", err)
		}
	}
	return b.Build()
}
