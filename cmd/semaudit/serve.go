package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/spf13/cobra"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/config"
	auditapi "github.com/c360studio/semaudit/processor/audit-api"
	"github.com/c360studio/semaudit/source"
)

type serveOptions struct {
	httpAddr string
}

func serveCmd(opts *rootOptions) *cobra.Command {
	var o serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve audits over NATS",
		Long: `Serve hosts the audit-api processor: audit requests arrive on a NATS
request/reply subject and responses carry the classified findings.
Completed runs can be persisted to the runs KV bucket and published to
the knowledge graph via the nats section of the configuration.

With --http, serve also exposes the corpus management API: requirement
documents can be listed, uploaded and deleted, and audits triggered
over plain HTTP.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, &o)
		},
	}

	cmd.Flags().StringVar(&o.httpAddr, "http", "", "Serve the corpus management HTTP API on this address (e.g. :8080)")

	return cmd
}

func runServe(opts *rootOptions, o *serveOptions) error {
	cfg, logger, err := opts.setup()
	if err != nil {
		return err
	}

	printBanner()

	ctx := context.Background()
	natsClient, err := connectToNATS(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer natsClient.Close(ctx)

	apiConfig := auditapi.DefaultConfig()
	apiConfig.BaseDir = cfg.Corpus.Root
	apiConfig.DocumentPatterns = cfg.Corpus.DocumentPatterns
	apiConfig.FactPatterns = cfg.Corpus.FactPatterns
	apiConfig.MatchThreshold = cfg.Audit.MatchThreshold
	apiConfig.SatisfiedThreshold = cfg.Audit.SatisfiedThreshold
	apiConfig.IncludeSatisfied = cfg.Audit.IncludeSatisfied
	apiConfig.PersistRuns = cfg.NATS.PersistRuns
	apiConfig.PublishGraph = cfg.NATS.PublishGraph

	rawConfig, err := json.Marshal(apiConfig)
	if err != nil {
		return fmt.Errorf("marshal component config: %w", err)
	}

	comp, err := auditapi.NewComponent(rawConfig, component.Dependencies{
		NATSClient: natsClient,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("create audit-api: %w", err)
	}
	api, ok := comp.(*auditapi.Component)
	if !ok {
		return fmt.Errorf("unexpected component type %T", comp)
	}
	if err := api.Initialize(); err != nil {
		return fmt.Errorf("initialize audit-api: %w", err)
	}

	// Setup signal handling
	signalCtx, signalCancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := api.Start(signalCtx); err != nil {
		return fmt.Errorf("start audit-api: %w", err)
	}

	var httpServer *http.Server
	if o.httpAddr != "" {
		httpServer = corpusHTTPServer(o.httpAddr, cfg)
		go func() {
			logger.Info("HTTP API listening", "addr", o.httpAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server failed", "error", err)
			}
		}()
	}

	logger.Info("Semaudit ready",
		"version", Version,
		"corpus_root", cfg.Corpus.Root,
		"persist_runs", cfg.NATS.PersistRuns,
		"publish_graph", cfg.NATS.PublishGraph)

	// Block until shutdown signal
	<-signalCtx.Done()
	logger.Info("Received shutdown signal")

	if httpServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Error stopping HTTP server", "error", err)
		}
		shutdownCancel()
	}

	if err := api.Stop(30 * time.Second); err != nil {
		logger.Error("Error stopping audit-api", "error", err)
	}

	logger.Info("Semaudit shutdown complete")
	return nil
}

// corpusHTTPServer builds the corpus management HTTP server with an
// audit runner over the configured corpus.
func corpusHTTPServer(addr string, cfg *config.Config) *http.Server {
	runner := func(_ context.Context) (*audit.Report, error) {
		l, err := corpusLoader(cfg, nil, nil)
		if err != nil {
			return nil, err
		}
		docs, err := l.LoadDocuments()
		if err != nil {
			return nil, err
		}
		facts, err := l.LoadFacts()
		if err != nil {
			return nil, err
		}
		engine, err := audit.New(cfg.Audit.EngineConfig())
		if err != nil {
			return nil, err
		}
		result, err := engine.Run(docs, facts)
		if err != nil {
			return nil, err
		}
		return audit.NewReport(result, time.Now()), nil
	}

	mux := http.NewServeMux()
	source.NewHTTPHandler(cfg.Corpus.Root, runner).RegisterHTTPHandlers("/api/corpus/", mux)

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func printBanner() {
	fmt.Println("╔═══════════════════════════════════════════════╗")
	fmt.Println("║            Semaudit v" + Version + "                    ║")
	fmt.Println("║      Requirement Audit Engine                 ║")
	fmt.Println("╚═══════════════════════════════════════════════╝")
}

func connectToNATS(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*natsclient.Client, error) {
	natsURL := cfg.NATS.URL
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	logger.Info("Connecting to NATS", "url", natsURL)

	client, err := natsclient.NewClient(natsURL,
		natsclient.WithName(appName),
		natsclient.WithMaxReconnects(-1),
		natsclient.WithReconnectWait(time.Second),
		natsclient.WithCircuitBreakerThreshold(20),
		natsclient.WithHealthInterval(30*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create NATS client: %w", err)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, wrapNATSError(err, natsURL)
	}

	connCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := client.WaitForConnection(connCtx); err != nil {
		return nil, wrapNATSError(err, natsURL)
	}

	logger.Info("Connected to NATS", "url", natsURL)
	return client, nil
}

// wrapNATSError provides helpful guidance when NATS connection fails.
func wrapNATSError(err error, url string) error {
	errStr := err.Error()

	// Check for common connection errors
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no servers available") ||
		strings.Contains(errStr, "timeout") {
		return fmt.Errorf(`NATS connection failed: %w

NATS is not running at %s.

To start NATS:
  docker compose up -d nats

Or set SEMAUDIT_NATS_URL to point at your NATS server.`, err, url)
	}

	return fmt.Errorf("NATS connection failed: %w", err)
}
