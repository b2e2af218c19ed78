package model

// SourceTable is the normalized, read-only view of one BOM source.
// It is built once through a SourceBuilder and never mutated afterwards, so
// any number of resolvers may read it concurrently.
type SourceTable struct {
	Name string

	// Columns lists the attribute column headers in source order.
	Columns []string

	index      map[string][]PartRecord // productNo -> components in source row order
	products   []string                // productNo in first-seen order
	components map[string]PartRecord   // componentNo -> first row naming it
	records    int
}

// Components returns the component lines of productNo in source row order.
// The returned slice must not be modified.
func (t *SourceTable) Components(productNo string) []PartRecord {
	return t.index[productNo]
}

// HasProduct reports whether productNo has at least one component line.
func (t *SourceTable) HasProduct(productNo string) bool {
	return len(t.index[productNo]) > 0
}

// HasComponent reports whether partNo is used as a component anywhere.
func (t *SourceTable) HasComponent(partNo string) bool {
	_, ok := t.components[partNo]
	return ok
}

// ComponentRecord returns the first line that names partNo as a component.
// Its attributes describe the part itself (name, description, ...).
func (t *SourceTable) ComponentRecord(partNo string) (PartRecord, bool) {
	r, ok := t.components[partNo]
	return r, ok
}

// Products returns every product number in first-seen order.
func (t *SourceTable) Products() []string {
	out := make([]string, len(t.products))
	copy(out, t.products)
	return out
}

// ComponentNos returns every distinct component number, in first-seen order.
func (t *SourceTable) ComponentNos() []string {
	seen := make(map[string]bool, len(t.components))
	out := make([]string, 0, len(t.components))
	for _, p := range t.products {
		for _, r := range t.index[p] {
			if !seen[r.ComponentNo] {
				seen[r.ComponentNo] = true
				out = append(out, r.ComponentNo)
			}
		}
	}
	return out
}

// Len returns the number of records in the table.
func (t *SourceTable) Len() int { return t.records }

// SourceBuilder accumulates records for a SourceTable.
type SourceBuilder struct {
	table *SourceTable
	built bool
}

// NewSourceBuilder starts a table with the given name and attribute columns.
func NewSourceBuilder(name string, columns []string) *SourceBuilder {
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &SourceBuilder{
		table: &SourceTable{
			Name:       name,
			Columns:    cols,
			index:      make(map[string][]PartRecord),
			components: make(map[string]PartRecord),
		},
	}
}

// Add appends one record. Records must already satisfy the PartRecord
// contract; Add re-validates the keys and returns a *MalformedSourceError
// otherwise.
func (b *SourceBuilder) Add(r PartRecord) error {
	if b.built {
		return &MalformedSourceError{Source: b.table.Name, Line: r.Line, Reason: "record added after build"}
	}
	rec, err := NewPartRecord(b.table.Name, r.Line, r.ProductNo, r.ComponentNo, r.Quantity, r.Attributes)
	if err != nil {
		return err
	}

	t := b.table
	if _, ok := t.index[rec.ProductNo]; !ok {
		t.products = append(t.products, rec.ProductNo)
	}
	t.index[rec.ProductNo] = append(t.index[rec.ProductNo], rec)
	if _, ok := t.components[rec.ComponentNo]; !ok {
		t.components[rec.ComponentNo] = rec
	}
	t.records++
	return nil
}

// Build freezes the table. Further calls to Add fail.
func (b *SourceBuilder) Build() *SourceTable {
	b.built = true
	return b.table
}
