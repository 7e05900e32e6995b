package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/source"
	"github.com/c360studio/semaudit/source/loader"
)

type watchOptions struct {
	docs     []string
	evidence []string
	format   string
}

func watchCmd(opts *rootOptions) *cobra.Command {
	var o watchOptions

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-run the audit when corpus files change",
		Long: `Watch audits the corpus once, then watches the corpus root and
re-audits whenever a requirement or evidence file changes. Change events
are debounced; touch events that leave content unchanged are suppressed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(opts, &o)
		},
	}

	cmd.Flags().StringArrayVar(&o.docs, "docs", nil, "Requirement document path, glob, or URL (repeatable; overrides config)")
	cmd.Flags().StringArrayVar(&o.evidence, "evidence", nil, "Evidence file path or glob (repeatable; overrides config)")
	cmd.Flags().StringVar(&o.format, "format", formatText, "Report format (text, json)")

	return cmd
}

func runWatch(opts *rootOptions, o *watchOptions) error {
	cfg, logger, err := opts.setup()
	if err != nil {
		return err
	}
	if err := validateFormat(o.format); err != nil {
		return err
	}

	l, err := corpusLoader(cfg, o.docs, o.evidence)
	if err != nil {
		return err
	}
	engine, err := audit.New(cfg.Audit.EngineConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	watcher, err := source.NewWatcher(cfg.Watch, cfg.Corpus.Root, logger)
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Start(ctx); err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	defer watcher.Stop()

	auditOnce(engine, l, o.format, logger)

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped")
			return nil
		case event, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			logger.Info("Corpus changed",
				"path", event.Path,
				"operation", string(event.Operation))
			auditOnce(engine, l, o.format, logger)
		}
	}
}

// auditOnce executes one audit pass. Errors are logged, never fatal: the
// watch loop outlives a temporarily broken corpus.
func auditOnce(engine *audit.Engine, l *loader.Loader, format string, logger *slog.Logger) {
	docs, err := l.LoadDocuments()
	if err != nil {
		logger.Error("Failed to load documents", "error", err)
		return
	}
	facts, err := l.LoadFacts()
	if err != nil {
		logger.Error("Failed to load evidence", "error", err)
		return
	}

	result, err := engine.Run(docs, facts)
	if err != nil {
		logger.Error("Audit failed", "error", err)
		return
	}

	report := audit.NewReport(result, time.Now())
	render := report.RenderText
	if format == formatJSON {
		render = report.RenderJSON
	}
	if err := render(os.Stdout); err != nil {
		logger.Error("Failed to render report", "error", err)
		return
	}
	fmt.Println()

	logger.Info("Audit complete",
		"critical", report.Summary.Critical,
		"high", report.Summary.High,
		"medium", report.Summary.Medium,
		"low", report.Summary.Low,
		"satisfied", report.Summary.Satisfied)
}
