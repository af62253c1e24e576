package main

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genresort/internal/formatter"
	"github.com/desertthunder/genresort/internal/shared"
	"github.com/desertthunder/genresort/internal/tasks"
	"github.com/desertthunder/genresort/internal/ui"
)

// SyncOpts collects the flags for a sync run.
type SyncOpts struct {
	DryRun     bool
	JSON       bool
	ReportPath string
	TUI        bool
}

// Sync runs one incremental routing pass: rebuild stale profiles, stream
// likes newer than the watermark, route them, and append to the winning
// playlists.
func (r *Runner) Sync(ctx context.Context, opts SyncOpts) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	engine, db, err := r.authenticatedEngine(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if opts.TUI {
		return r.syncTUI(ctx, engine, opts)
	}
	return r.syncPlain(ctx, engine, opts)
}

func (r *Runner) syncPlain(ctx context.Context, engine *tasks.SortEngine, opts SyncOpts) error {
	progress := make(chan tasks.ProgressUpdate, 50)
	logger := shared.WithLogger(r.logger, "run_id", shared.GenerateID(), "dry_run", opts.DryRun)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			logger.Infof("[%s] %s", update.Phase, update.Message)
		}
	}()

	result, err := engine.Run(ctx, progress, opts.DryRun)
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	return r.reportRun(result, opts)
}

func (r *Runner) syncTUI(ctx context.Context, engine *tasks.SortEngine, opts SyncOpts) error {
	model := ui.NewModel(ctx, engine, opts.DryRun)
	program := tea.NewProgram(model)

	final, err := program.Run()
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	m, ok := final.(*ui.Model)
	if !ok || m.Result() == nil {
		if ok && m.Err() != nil {
			return m.Err()
		}
		return nil
	}

	return r.reportRun(m.Result(), opts)
}

func (r *Runner) reportRun(result *tasks.SyncRunResult, opts SyncOpts) error {
	if opts.ReportPath != "" {
		if err := formatter.WriteRunReport(result, opts.ReportPath); err != nil {
			return err
		}
		r.logger.Infof("wrote routing report to %s", opts.ReportPath)
	}

	if opts.JSON {
		return r.writeJSON(result, true)
	}

	if _, err := r.output.Write(formatter.RunReportToText(result)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
