// Package main provides the semaudit binary entry point.
// Semaudit resolves requirement corpora into canonical per-feature state
// and audits observed evidence against it.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/semaudit/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "semaudit"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "%v\n", exitErr)
			os.Exit(exitErr.code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// exitError carries a specific process exit code through cobra's error
// return. Code 1 marks a failing audit, code 2 an unusable corpus.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

// setup configures logging and loads the effective configuration. Every
// subcommand calls it before doing anything else.
func (o *rootOptions) setup() (*config.Config, *slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(o.logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(o.configPath, logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func rootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "semaudit",
		Short: "Requirement audit engine",
		Long: `Semaudit resolves requirement corpora into canonical per-feature
state and audits observed evidence against it.

It provides:
- Canonical requirement resolution with full provenance
- Evidence matching and gap classification by severity
- Fact collection from Go and TypeScript/JavaScript sources
- A NATS request/reply service mode for platform integration

Configuration is layered: defaults, then ~/.config/semaudit/config.yaml,
then semaudit.yaml found in the current or a parent directory, then
environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		auditCmd(opts),
		resolveCmd(opts),
		collectCmd(opts),
		exportCmd(opts),
		watchCmd(opts),
		serveCmd(opts),
	)

	// Version command
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	})

	return cmd
}

// loadConfig loads an explicit config file when one is named, otherwise
// the layered default/user/project configuration.
func loadConfig(configPath string, logger *slog.Logger) (*config.Config, error) {
	if configPath == "" {
		return config.NewLoader(logger).Load()
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}
