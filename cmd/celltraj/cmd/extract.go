package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/celltraj/internal/batch"
	"github.com/MeKo-Tech/celltraj/internal/contour"
	"github.com/MeKo-Tech/celltraj/internal/features"
	"github.com/MeKo-Tech/celltraj/internal/metrics"
	"github.com/MeKo-Tech/celltraj/internal/neighbor"
)

func newExtractCommand(a *app) *cobra.Command {
	var cell int

	c := &cobra.Command{
		Use:   "extract",
		Short: "Assemble and write the feature records of every cell",
		Long: `Assemble one feature record per (cell, timestep) and write one output
unit per cell (ii=<cell>.csv or .json). Cells whose unit already exists are
skipped, so an interrupted run can be resumed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExtract(cmd, cell)
		},
	}

	f := c.Flags()
	f.IntVar(&cell, "cell", -1, "assemble only this cell (set index); all cells when negative")
	f.StringP("out", "o", "", "output directory for the file backend")
	f.String("format", "", "output format (csv, json)")
	f.Bool("include-id", false, "include the cell index in every record")
	f.String("backend", "", "output backend (file, minio)")
	f.Int("max-neighbors", 0, "neighbor slots per record")
	f.Int("workers", 0, "number of parallel workers (0 = number of CPUs)")
	f.Bool("continue-on-error", true, "keep going after a cell fails")
	f.String("progress", "", "progress reporting (none, console, log)")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address during the run")
	a.bind(f, map[string]string{
		"output.dir":              "out",
		"output.format":           "format",
		"output.include_id":       "include-id",
		"output.backend":          "backend",
		"engine.max_neighbors":    "max-neighbors",
		"batch.workers":           "workers",
		"batch.continue_on_error": "continue-on-error",
		"batch.progress":          "progress",
		"metrics.addr":            "metrics-addr",
	})
	return c
}

func (a *app) runExtract(cmd *cobra.Command, cell int) error {
	ctx := cmd.Context()

	set, err := a.trajectories(ctx)
	if err != nil {
		return err
	}
	cells := make([]int, 0, set.Len())
	if cell >= 0 {
		if err := checkCell(set, cell); err != nil {
			return err
		}
		cells = append(cells, cell)
	} else {
		for ii := range set.Len() {
			cells = append(cells, ii)
		}
	}

	enc, err := a.cfg.Encoding()
	if err != nil {
		return err
	}
	store, err := a.outputStore(ctx, enc)
	if err != nil {
		return err
	}

	if addr := a.cfg.Metrics.Addr; addr != "" {
		srv := metrics.StartServer(addr, a.logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	filter := neighbor.NewFilter(set)
	masks, frames := a.masks(), a.frames()
	factory := func() (batch.CellAssembler, error) {
		return features.NewAssembler(a.cfg.AssemblerConfig(), set, contour.NewStore(masks, a.logger), filter, frames, a.logger)
	}

	progress, err := batch.NewProgress(a.cfg.Batch.Progress, cmd.ErrOrStderr(), a.logger)
	if err != nil {
		return err
	}
	runner, err := batch.NewRunner(a.cfg.RunnerConfig(), store, factory, progress, a.logger)
	if err != nil {
		return err
	}

	res, err := runner.Run(ctx, cells)
	if res != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "run %s: assembled %d, skipped %d, failed %d, records %d\n",
			res.RunID, len(res.Assembled), len(res.Skipped), len(res.Failed), res.Records)
		for _, f := range res.Failed {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "  %v\n", f)
		}
	}
	if err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return fmt.Errorf("%d of %d cells failed", len(res.Failed), len(cells))
	}
	return nil
}
