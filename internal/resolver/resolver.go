// Package resolver reconstructs multi-level BOM trees from the sources held
// in a registry.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"go.uber.org/zap"

	"github.com/StinkyLord/bom-tree-builder/internal/logging"
	"github.com/StinkyLord/bom-tree-builder/internal/metrics"
	"github.com/StinkyLord/bom-tree-builder/internal/model"
	"github.com/StinkyLord/bom-tree-builder/internal/registry"
)

// Resolver resolves requested part numbers against a registry.
// The registry must not be modified while a Resolver is using it.
type Resolver struct {
	reg      *registry.Registry
	mode     Mode
	buildQty float64
	workers  int
	logger   *zap.Logger
	metrics  *metrics.Registry
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMode sets the search mode. The default is ModeAllSources.
func WithMode(m Mode) Option {
	return func(r *Resolver) { r.mode = m }
}

// WithBuildQuantity sets the quantity of every requested root. Values of
// zero or below are ignored; the default is 1.
func WithBuildQuantity(q float64) Option {
	return func(r *Resolver) {
		if q > 0 {
			r.buildQty = q
		}
	}
}

// WithWorkers sets how many parts ResolveMany resolves concurrently.
func WithWorkers(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.workers = n
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) { r.logger = logging.OrNop(l) }
}

// WithMetrics records node and part counters into m.
func WithMetrics(m *metrics.Registry) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New creates a Resolver over reg.
func New(reg *registry.Registry, opts ...Option) *Resolver {
	r := &Resolver{
		reg:      reg,
		mode:     ModeAllSources,
		buildQty: 1,
		workers:  1,
		logger:   zap.NewNop(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Mode returns the configured search mode.
func (r *Resolver) Mode() Mode { return r.mode }

// Resolve builds the tree of rootPartNo.
//
// Every source, in priority order, that lists the part as a product
// contributes one root branch (only the first one under ModeFirstMatch).
// A branch is expanded within its own source only. When no source lists the
// part as a product but some list it as a component, the tree holds LEAF
// roots built from those component rows and is marked ComponentOnly.
// A part known to no source fails with *model.NotFoundError.
//
// The returned tree has raw quantities; CumulativeQuantity is filled in by
// quantity.Aggregate.
func (r *Resolver) Resolve(ctx context.Context, rootPartNo string) (*model.BOMTree, error) {
	root := strings.TrimSpace(rootPartNo)
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	tables := r.reg.TablesInPriorityOrder()
	tree := &model.BOMTree{RootPartNo: root}

	for _, t := range tables {
		if !t.HasProduct(root) {
			continue
		}
		rootID, ok := r.reg.ID(root)
		if !ok {
			return nil, fmt.Errorf("part %q of source %q is not interned", root, t.Name)
		}

		node := r.newRoot(t, root)
		w := &walker{ctx: ctx, reg: r.reg, table: t, path: roaring.New(), metrics: r.metrics}
		r.metrics.RecordNode(node.Terminal.String())
		if err := w.expand(node, rootID); err != nil {
			return nil, err
		}
		tree.Roots = append(tree.Roots, node)

		if r.mode == ModeFirstMatch {
			break
		}
	}

	// Product matches take precedence; component rows only describe a part
	// that has no BOM of its own in any searched source.
	if len(tree.Roots) == 0 {
		for _, t := range tables {
			if !t.HasComponent(root) {
				continue
			}
			node := r.newRoot(t, root)
			node.Terminal = model.TerminalLeaf
			r.metrics.RecordNode(node.Terminal.String())
			tree.Roots = append(tree.Roots, node)
			tree.ComponentOnly = true

			if r.mode == ModeFirstMatch {
				break
			}
		}
	}

	if len(tree.Roots) == 0 {
		return nil, &model.NotFoundError{PartNo: root, Sources: r.reg.Names()}
	}

	r.logger.Debug("Resolved part",
		zap.String("part", root),
		zap.Strings("sources", tree.Sources()),
		zap.Bool("component_only", tree.ComponentOnly),
		zap.Int("nodes", tree.NodeCount()))
	return tree, nil
}

// newRoot creates the level-0 node of a branch. Its attributes come from
// the first row naming the part as a component in the same source, if any,
// since product rows describe the component line rather than the product.
func (r *Resolver) newRoot(t *model.SourceTable, partNo string) *model.BOMNode {
	node := &model.BOMNode{
		PartNo:            partNo,
		QuantityPerParent: r.buildQty,
		SourceName:        t.Name,
	}
	if rec, ok := t.ComponentRecord(partNo); ok {
		node.Attributes = rec.Attributes
	}
	return node
}

// walker expands one root branch inside a single source. path holds the
// interned ids of the node being expanded and all of its ancestors; ids are
// pushed before visiting children and popped afterwards, so a part reused
// in an unrelated branch is never mistaken for a cycle.
type walker struct {
	ctx     context.Context
	reg     *registry.Registry
	table   *model.SourceTable
	path    *roaring.Bitmap
	metrics *metrics.Registry
}

func (w *walker) expand(node *model.BOMNode, id uint32) error {
	if err := w.ctx.Err(); err != nil {
		return cancelled(err)
	}

	w.path.Add(id)
	defer w.path.Remove(id)

	comps := w.table.Components(node.PartNo)
	node.Children = make([]*model.BOMNode, 0, len(comps))
	for _, rec := range comps {
		child := &model.BOMNode{
			PartNo:            rec.ComponentNo,
			QuantityPerParent: rec.Quantity,
			SourceName:        w.table.Name,
			Level:             node.Level + 1,
			Attributes:        rec.Attributes,
		}
		node.Children = append(node.Children, child)

		childID, ok := w.reg.ID(rec.ComponentNo)
		if !ok {
			return fmt.Errorf("part %q of source %q is not interned", rec.ComponentNo, w.table.Name)
		}

		switch {
		case w.path.Contains(childID):
			child.Terminal = model.TerminalCyclic
		case !w.table.HasProduct(rec.ComponentNo):
			child.Terminal = model.TerminalLeaf
		default:
			if err := w.expand(child, childID); err != nil {
				return err
			}
		}
		w.metrics.RecordNode(child.Terminal.String())
	}
	return nil
}

func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", model.ErrCancelled, cause)
}
