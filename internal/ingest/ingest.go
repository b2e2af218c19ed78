package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/StinkyLord/bom-tree-builder/internal/model"
	"github.com/StinkyLord/bom-tree-builder/internal/registry"
)

// ErrNoSources is returned when no source could be loaded.
var ErrNoSources = errors.New("no valid BOM sources loaded")

// SourceFailure records a source that could not be loaded.
type SourceFailure struct {
	Name string
	Err  error
}

// Result holds the loaded registry and which sources made it in.
type Result struct {
	Registry *registry.Registry
	Loaded   []string
	Failed   []SourceFailure
}

// Ingest runs every loader concurrently and registers the tables that
// loaded, in the order the loaders were given. A failing source is logged
// and reported in Result.Failed; the others still load. It fails only when
// ctx is cancelled or nothing loaded.
func Ingest(ctx context.Context, loaders []Loader, opts Options) (*Result, error) {
	type loadResult struct {
		idx   int
		table *model.SourceTable
		err   error
	}

	resultCh := make(chan loadResult, len(loaders))
	var wg sync.WaitGroup
	for i, l := range loaders {
		wg.Add(1)
		go func(i int, l Loader) {
			defer wg.Done()
			start := time.Now()
			t, err := l.Load(ctx, opts)
			if err != nil {
				opts.Metrics.RecordSourceLoad(l.Name(), 0, err, time.Since(start))
			}
			resultCh <- loadResult{idx: i, table: t, err: err}
		}(i, l)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	tables := make([]*model.SourceTable, len(loaders))
	errs := make([]error, len(loaders))
	for r := range resultCh {
		tables[r.idx], errs[r.idx] = r.table, r.err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCancelled, err)
	}

	res := &Result{Registry: registry.New()}
	log := opts.logger()
	for i, l := range loaders {
		if errs[i] != nil {
			log.Error("Error reading source", zap.String("source", l.Name()), zap.Error(errs[i]))
			res.Failed = append(res.Failed, SourceFailure{Name: l.Name(), Err: errs[i]})
			continue
		}
		if err := res.Registry.Register(tables[i]); err != nil {
			log.Error("Error registering source", zap.String("source", l.Name()), zap.Error(err))
			res.Failed = append(res.Failed, SourceFailure{Name: l.Name(), Err: err})
			continue
		}
		res.Loaded = append(res.Loaded, l.Name())
	}

	if len(res.Loaded) == 0 {
		return res, ErrNoSources
	}
	log.Info("Sources ready",
		zap.Int("loaded", len(res.Loaded)),
		zap.Int("failed", len(res.Failed)),
		zap.Int("parts", res.Registry.PartCount()))
	return res, nil
}
