// Package registry holds the loaded BOM sources in search priority order.
package registry

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
)

// entry is one registered source plus the interned ids of the parts it
// holds as products and as components.
type entry struct {
	table      *model.SourceTable
	products   *roaring.Bitmap
	components *roaring.Bitmap
}

// Registry is an ordered set of SourceTables. Registration order is the
// search priority order. Part numbers are interned to dense uint32 ids so
// that membership and ancestor-path checks run on bitmaps.
//
// A Registry is safe for concurrent readers. Register must not be called
// while a resolution is running; it takes the write lock and would stall
// readers until it returns.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
	byName  map[string]int
	ids     map[string]uint32
	parts   []string
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		byName: make(map[string]int),
		ids:    make(map[string]uint32),
	}
}

// Register appends t at the lowest priority so far.
func (r *Registry) Register(t *model.SourceTable) error {
	if t == nil {
		return fmt.Errorf("cannot register nil source table")
	}
	if t.Name == "" {
		return fmt.Errorf("cannot register source table without a name")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.byName[t.Name]; dup {
		return fmt.Errorf("source %q is already registered", t.Name)
	}

	e := entry{
		table:      t,
		products:   roaring.New(),
		components: roaring.New(),
	}
	for _, p := range t.Products() {
		e.products.Add(r.intern(p))
	}
	for _, c := range t.ComponentNos() {
		e.components.Add(r.intern(c))
	}
	e.products.RunOptimize()
	e.components.RunOptimize()

	r.byName[t.Name] = len(r.entries)
	r.entries = append(r.entries, e)
	return nil
}

// intern returns the id of partNo, assigning the next one if needed.
// Callers hold the write lock.
func (r *Registry) intern(partNo string) uint32 {
	if id, ok := r.ids[partNo]; ok {
		return id
	}
	id := uint32(len(r.parts))
	r.ids[partNo] = id
	r.parts = append(r.parts, partNo)
	return id
}

// TablesInPriorityOrder returns the registered tables, highest priority first.
func (r *Registry) TablesInPriorityOrder() []*model.SourceTable {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*model.SourceTable, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.table
	}
	return out
}

// Names returns the registered source names in priority order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.table.Name
	}
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Table returns the source with the given name.
func (r *Registry) Table(name string) (*model.SourceTable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.entries[i].table, true
}

// ID returns the interned id of partNo. Parts that appear in no registered
// source have no id.
func (r *Registry) ID(partNo string) (uint32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.ids[partNo]
	return id, ok
}

// PartCount returns the number of distinct part numbers across all sources.
func (r *Registry) PartCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.parts)
}

// Where returns, in priority order, the sources that hold partNo as a
// product and the sources that hold it as a component.
func (r *Registry) Where(partNo string) (products, components []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.ids[partNo]
	if !ok {
		return nil, nil
	}
	for _, e := range r.entries {
		if e.products.Contains(id) {
			products = append(products, e.table.Name)
		}
		if e.components.Contains(id) {
			components = append(components, e.table.Name)
		}
	}
	return products, components
}

// Select returns a new registry holding only the named sources, keeping
// their relative priority. An empty list selects every source.
func (r *Registry) Select(names ...string) (*Registry, error) {
	if len(names) == 0 {
		names = r.Names()
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := r.Table(n); !ok {
			return nil, fmt.Errorf("unknown source %q", n)
		}
		want[n] = true
	}

	sub := New()
	for _, t := range r.TablesInPriorityOrder() {
		if !want[t.Name] {
			continue
		}
		if err := sub.Register(t); err != nil {
			return nil, err
		}
	}
	return sub, nil
}
