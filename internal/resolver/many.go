package resolver

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/StinkyLord/bom-tree-builder/internal/canon"
	"github.com/StinkyLord/bom-tree-builder/internal/model"
	"github.com/StinkyLord/bom-tree-builder/internal/quantity"
)

// ResolveMany resolves every requested part and merges the trees into one
// report whose canonicalization scope spans the whole batch.
//
// Requests are trimmed; blank and repeated part numbers are dropped with
// the first occurrence's position kept. Parts are resolved concurrently on
// up to WithWorkers goroutines, each owning its own tree. The trees are
// merged into the report sequentially in request order once every worker is
// done, so the row order never depends on scheduling.
//
// A part no source knows about yields a PartFailure, a NOT_FOUND summary
// and a NOT_FOUND placeholder row; it does not fail the batch. If ctx is
// cancelled the whole batch fails with an error wrapping model.ErrCancelled
// and no report is returned.
func (r *Resolver) ResolveMany(ctx context.Context, parts []string) (*model.ReportModel, error) {
	start := time.Now()
	requests := normalizeRequests(parts)

	trees := make([]*model.BOMTree, len(requests))
	failures := make([]error, len(requests))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, part := range requests {
		g.Go(func() error {
			tree, err := r.Resolve(gctx, part)
			if err != nil {
				if model.IsNotFound(err) {
					failures[i] = err
					return nil
				}
				return err
			}
			quantity.Aggregate(tree)
			tree.Totals = quantity.Rollup(tree)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, cancelled(err)
	}

	tables := r.reg.TablesInPriorityOrder()
	report := &model.ReportModel{
		RunID:            uuid.NewString(),
		GeneratedAt:      time.Now().UTC(),
		Mode:             r.mode.String(),
		Sources:          r.reg.Names(),
		AttributeColumns: attributeColumns(tables),
	}

	b := canon.NewBuilder()
	for i, part := range requests {
		if failures[i] != nil {
			id := b.AddNotFound(part, r.buildQty)
			report.Parts = append(report.Parts, model.PartSummary{
				PartNo:     part,
				Status:     model.StatusNotFound,
				FirstRowID: id,
			})
			report.Failures = append(report.Failures, model.PartFailure{PartNo: part, Err: failures[i]})
			r.metrics.RecordPart(string(model.StatusNotFound))
			r.logger.Warn("No BOM found", zap.String("part", part), zap.Error(failures[i]))
			continue
		}

		tree := trees[i]
		status := model.StatusFound
		if tree.ComponentOnly {
			status = model.StatusComponentOnly
		}
		id := b.Add(part, tree)
		report.Parts = append(report.Parts, model.PartSummary{
			PartNo:     part,
			Status:     status,
			Sources:    tree.Sources(),
			FirstRowID: id,
			Totals:     tree.Totals,
		})
		r.metrics.RecordPart(string(status))
	}
	report.Rows = b.Rows()

	r.metrics.RecordBatch(len(report.Rows), report.ReferenceCount(), time.Since(start))
	r.logger.Info("Resolved batch",
		zap.Int("parts", len(requests)),
		zap.Int("not_found", len(report.Failures)),
		zap.Int("rows", len(report.Rows)),
		zap.Int("references", report.ReferenceCount()),
		zap.Duration("elapsed", time.Since(start)))
	return report, nil
}

// normalizeRequests trims part numbers and drops blanks and duplicates,
// keeping first-seen order.
func normalizeRequests(parts []string) []string {
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// attributeColumns returns the union of the tables' attribute columns,
// in priority order then source column order.
func attributeColumns(tables []*model.SourceTable) []string {
	seen := map[string]bool{}
	var cols []string
	for _, t := range tables {
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				cols = append(cols, c)
			}
		}
	}
	return cols
}
