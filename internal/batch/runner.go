// Package batch assembles and persists the feature records of many cells,
// sharding whole cells over a pool of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/celltraj/internal/features"
	"github.com/MeKo-Tech/celltraj/internal/metrics"
	"github.com/MeKo-Tech/celltraj/internal/output"
)

// CellAssembler produces every record of one cell.
type CellAssembler interface {
	Assemble(ctx context.Context, cell int) ([]features.Record, error)
}

// AssemblerFactory creates one assembler per worker. Assemblers own their
// contour cache and are never shared.
type AssemblerFactory func() (CellAssembler, error)

// CellError is the failure of one cell.
type CellError struct {
	Cell int
	Err  error
}

func (e CellError) Error() string {
	return fmt.Sprintf("cell %d: %v", e.Cell, e.Err)
}

func (e CellError) Unwrap() error { return e.Err }

// Result summarizes a run. Cell lists are sorted.
type Result struct {
	RunID     string
	Assembled []int
	Skipped   []int
	Failed    []CellError
	Records   int
	Duration  time.Duration
}

// Runner drives a batch over an output store.
type Runner struct {
	cfg      Config
	store    output.Store
	factory  AssemblerFactory
	progress Progress
	logger   *slog.Logger
}

// NewRunner wires a runner. progress and logger may be nil.
func NewRunner(cfg Config, store output.Store, factory AssemblerFactory, progress Progress, logger *slog.Logger) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || factory == nil {
		return nil, errors.New("runner needs an output store and an assembler factory")
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if progress == nil {
		progress = NoOpProgress{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{cfg: cfg, store: store, factory: factory, progress: progress, logger: logger}, nil
}

type outcome int

const (
	outcomeAssembled outcome = iota
	outcomeSkipped
	outcomeFailed
)

type cellResult struct {
	cell    int
	outcome outcome
	records int
	err     error
}

// Run processes cells. A cell whose unit already exists is skipped; a cell
// that fails leaves no unit and does not affect the others. The returned
// error is non-nil when the context was cancelled or, without
// ContinueOnError, when a cell failed.
func (r *Runner) Run(ctx context.Context, cells []int) (*Result, error) {
	start := time.Now()
	res := &Result{RunID: uuid.New().String()}
	logger := r.logger.With("run_id", res.RunID)

	workers := min(r.cfg.Workers, max(len(cells), 1))
	logger.Info("batch run starting", "cells", len(cells), "workers", workers)
	r.progress.OnStart(len(cells))
	defer r.progress.OnComplete()

	jobs := make(chan int)
	results := make(chan cellResult, workers)
	stop := make(chan struct{})
	var stopOnce sync.Once

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go r.worker(ctx, jobs, results, &wg, logger)
	}

	go func() {
		defer close(jobs)
		for _, cell := range cells {
			select {
			case <-stop:
				return
			default:
			}
			select {
			case jobs <- cell:
			case <-stop:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	done := 0
	for cr := range results {
		done++
		switch cr.outcome {
		case outcomeAssembled:
			res.Assembled = append(res.Assembled, cr.cell)
			res.Records += cr.records
		case outcomeSkipped:
			res.Skipped = append(res.Skipped, cr.cell)
		case outcomeFailed:
			res.Failed = append(res.Failed, CellError{Cell: cr.cell, Err: cr.err})
			r.progress.OnError(cr.cell, cr.err)
			if !r.cfg.ContinueOnError {
				stopOnce.Do(func() { close(stop) })
			}
		}
		r.progress.OnProgress(done, len(cells))
	}

	sort.Ints(res.Assembled)
	sort.Ints(res.Skipped)
	sort.Slice(res.Failed, func(i, j int) bool { return res.Failed[i].Cell < res.Failed[j].Cell })
	res.Duration = time.Since(start)

	logger.Info("batch run finished",
		"assembled", len(res.Assembled),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed),
		"records", res.Records,
		"duration", res.Duration.Round(time.Millisecond),
	)

	if err := ctx.Err(); err != nil {
		return res, err
	}
	if !r.cfg.ContinueOnError && len(res.Failed) > 0 {
		return res, res.Failed[0]
	}
	return res, nil
}

func (r *Runner) worker(ctx context.Context, jobs <-chan int, results chan<- cellResult, wg *sync.WaitGroup, logger *slog.Logger) {
	defer wg.Done()

	asm, err := r.factory()
	if err != nil {
		// fail every cell this worker receives
		for cell := range jobs {
			results <- cellResult{cell: cell, outcome: outcomeFailed, err: fmt.Errorf("create assembler: %w", err)}
		}
		return
	}

	for cell := range jobs {
		results <- r.process(ctx, asm, cell, logger)
	}
}

func (r *Runner) process(ctx context.Context, asm CellAssembler, cell int, logger *slog.Logger) cellResult {
	started := time.Now()

	exists, err := r.store.Exists(ctx, cell)
	if err != nil {
		metrics.ObserveCell(metrics.StatusFailed, 0)
		return cellResult{cell: cell, outcome: outcomeFailed, err: fmt.Errorf("check %s: %w", r.store.Name(cell), err)}
	}
	if exists {
		logger.Debug("output exists, skipping cell", "cell", cell, "unit", r.store.Name(cell))
		metrics.ObserveCell(metrics.StatusSkipped, 0)
		return cellResult{cell: cell, outcome: outcomeSkipped}
	}

	records, err := asm.Assemble(ctx, cell)
	if err == nil {
		err = r.store.Write(ctx, cell, records)
	}
	if err != nil {
		logger.Warn("cell failed", "cell", cell, "error", err)
		metrics.ObserveCell(metrics.StatusFailed, 0)
		return cellResult{cell: cell, outcome: outcomeFailed, err: err}
	}

	metrics.ObserveCell(metrics.StatusAssembled, time.Since(started))
	metrics.AddRecordsWritten(len(records))
	logger.Debug("cell assembled", "cell", cell, "records", len(records))
	return cellResult{cell: cell, outcome: outcomeAssembled, records: len(records)}
}
