package ingest

import (
	"fmt"
	"strings"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// Role is the meaning of a source column.
type Role int

const (
	RoleAttribute Role = iota
	RoleProduct
	RoleComponent
	RoleQuantity
)

func (r Role) String() string {
	switch r {
	case RoleProduct:
		return "product"
	case RoleComponent:
		return "component"
	case RoleQuantity:
		return "quantity"
	default:
		return "attribute"
	}
}

// ColumnFingerprint describes how to recognise one key column by its header.
type ColumnFingerprint struct {
	Role        Role
	Aliases     []string // Header spellings, compared after normalizeHeader
	Description string
}

// KnownColumns is the built-in header alias table. It covers the ERP and
// PLM exports the tool has been fed so far.
var KnownColumns = []ColumnFingerprint{
	{
		Role:        RoleProduct,
		Aliases:     []string{"Product no", "Product number", "Product", "Parent", "Parent no", "Parent part", "Assembly", "Assembly no", "Produktnummer"},
		Description: "Parent part number of the BOM line",
	},
	{
		Role:        RoleComponent,
		Aliases:     []string{"Component no", "Component number", "Component", "Child", "Child no", "Child part", "Item", "Item no", "Komponentnummer"},
		Description: "Child part number of the BOM line",
	},
	{
		Role:        RoleQuantity,
		Aliases:     []string{"Quantity", "Qty", "Qty per", "Quantity per", "Amount", "Antal"},
		Description: "Component quantity per one parent",
	},
}

// Aliases holds extra header spellings per key column. They are tried
// before KnownColumns.
type Aliases struct {
	Product   []string
	Component []string
	Quantity  []string
}

func (a Aliases) forRole(r Role) []string {
	switch r {
	case RoleProduct:
		return a.Product
	case RoleComponent:
		return a.Component
	case RoleQuantity:
		return a.Quantity
	}
	return nil
}

// layout maps the columns of one source to their roles.
type layout struct {
	product   int
	component int
	quantity  int // -1 when the source has no quantity column
	attrs     []attrColumn
}

type attrColumn struct {
	index int
	name  string
}

func (l *layout) attributeNames() []string {
	out := make([]string, len(l.attrs))
	for i, a := range l.attrs {
		out[i] = a.name
	}
	return out
}

// detectLayout assigns roles to a header row. Product and component columns
// are mandatory; every column without a role becomes an attribute.
func detectLayout(source string, header []string, extra Aliases) (*layout, error) {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = normalizeHeader(h)
	}

	l := &layout{product: -1, component: -1, quantity: -1}
	taken := map[int]bool{}
	for _, role := range []Role{RoleProduct, RoleComponent, RoleQuantity} {
		idx := findColumn(normalized, taken, extra.forRole(role))
		if idx < 0 {
			idx = findColumn(normalized, taken, builtinAliases(role))
		}
		if idx < 0 {
			continue
		}
		taken[idx] = true
		switch role {
		case RoleProduct:
			l.product = idx
		case RoleComponent:
			l.component = idx
		case RoleQuantity:
			l.quantity = idx
		}
	}

	var missing []string
	if l.product < 0 {
		missing = append(missing, "product")
	}
	if l.component < 0 {
		missing = append(missing, "component")
	}
	if len(missing) > 0 {
		return nil, &model.MalformedSourceError{
			Source: source,
			Line:   1,
			Reason: fmt.Sprintf("missing %s column (header: %s)", strings.Join(missing, " and "), strings.Join(header, ", ")),
		}
	}

	used := map[string]int{}
	for i, h := range header {
		if taken[i] {
			continue
		}
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		used[name]++
		if n := used[name]; n > 1 {
			name = fmt.Sprintf("%s (%d)", name, n)
		}
		l.attrs = append(l.attrs, attrColumn{index: i, name: name})
	}
	return l, nil
}

func findColumn(normalized []string, taken map[int]bool, aliases []string) int {
	for _, a := range aliases {
		want := normalizeHeader(a)
		for i, h := range normalized {
			if !taken[i] && h == want {
				return i
			}
		}
	}
	return -1
}

func builtinAliases(r Role) []string {
	var out []string
	for _, fp := range KnownColumns {
		if fp.Role == r {
			out = append(out, fp.Aliases...)
		}
	}
	return out
}

// normalizeHeader lowercases h and drops separators, so "Product No.",
// "product_no" and "PRODUCT-NO" compare equal.
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-', '.', '#', '\u00a0':
			return -1
		}
		return r
	}, h)
}
