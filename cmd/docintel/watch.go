package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/docintel/internal/async"
	"github.com/joseph-ayodele/docintel/internal/ingest"
)

func newWatchCmd(g *globals) *cobra.Command {
	var (
		workers  int
		debounce time.Duration
		initial  bool
	)
	cmd := &cobra.Command{
		Use:   "watch DIR...",
		Short: "Analyze files as they appear under the given directories",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := g.build(ctx, false)
			if err != nil {
				return err
			}
			defer a.Close()

			var store ingest.DocumentStore
			if a.Docs != nil {
				store = a.Docs
			}
			ing := ingest.NewFSIngestor(a.Processor, store, g.logger)
			return runWatch(ctx, g, ing, ingest.WatchConfig{
				Roots:       args,
				InitialScan: initial,
				Debounce:    debounce,
				SkipHidden:  true,
				Logger:      g.logger,
			}, workers)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 4, "concurrent analyses")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "coalesce bursts of file events")
	cmd.Flags().BoolVar(&initial, "initial-scan", false, "also analyze files already present")
	return cmd
}

// runWatch feeds watcher events into a worker queue until ctx is done.
func runWatch(ctx context.Context, g *globals, ing ingest.Ingestor, wc ingest.WatchConfig, workers int) error {
	scope := g.scope()
	q := async.NewWorkerQueue(func(ctx context.Context, job async.Job) error {
		res, err := ing.IngestPath(ctx, ingest.Scope{CompanyID: job.CompanyID, UserID: job.UserID, Context: job.Context}, job.Path)
		if err != nil {
			return err
		}
		g.logger.Info("file analyzed", "path", res.SourcePath, "recommendation", res.Recommendation,
			"overall_score", res.OverallScore, "stored", res.Stored, "warnings", res.Warnings)
		return nil
	}, g.logger, async.WithWorkers(workers))

	paths, errs, err := ingest.StartWatcher(ctx, wc)
	if err != nil {
		return err
	}
	g.logger.Info("watching", "roots", wc.Roots, "workers", workers)

	for paths != nil || errs != nil {
		select {
		case p, ok := <-paths:
			if !ok {
				paths = nil
				continue
			}
			job := async.Job{Path: p, CompanyID: scope.CompanyID, UserID: scope.UserID, Context: scope.Context}
			if err := q.Enqueue(ctx, job); err != nil {
				g.logger.Warn("dropped file", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			g.logger.Warn("watch error", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return q.Shutdown(shutdownCtx)
}
