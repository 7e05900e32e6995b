package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/c360studio/semaudit/audit"
	"github.com/c360studio/semaudit/export"
	"github.com/c360studio/semaudit/storage"
)

type exportOptions struct {
	docs     []string
	evidence []string
	format   string
	profile  string
	out      string
}

func exportCmd(opts *rootOptions) *cobra.Command {
	var o exportOptions

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Audit a corpus and export the run as RDF",
		Long: `Export runs the audit and serializes the resulting run record and its
findings as RDF, aligned with the BFO, CCO and PROV-O ontologies.

Unlike audit, export always exits 0 when the corpus is valid: findings
are data to serialize, not a gate. An unusable corpus still exits 2.

Profiles control which ontology type assertions are emitted:
  minimal  PROV-O and audit ontology types only
  bfo      adds BFO type assertions
  cco      adds CCO type assertions on top of BFO`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(opts, &o)
		},
	}

	cmd.Flags().StringArrayVar(&o.docs, "docs", nil, "Requirement document path, glob, or URL (repeatable; overrides config)")
	cmd.Flags().StringArrayVar(&o.evidence, "evidence", nil, "Evidence file path or glob (repeatable; overrides config)")
	cmd.Flags().StringVar(&o.format, "format", string(export.FormatTurtle), "RDF format (turtle, ntriples, jsonld)")
	cmd.Flags().StringVar(&o.profile, "profile", string(export.ProfileMinimal), "Ontology profile (minimal, bfo, cco)")
	cmd.Flags().StringVar(&o.out, "out", "", "Write the export to a file instead of stdout")

	return cmd
}

func runExport(opts *rootOptions, o *exportOptions) error {
	cfg, _, err := opts.setup()
	if err != nil {
		return err
	}

	format := export.Format(o.format)
	if _, ok := export.GetFormatInfo(format); !ok {
		return fmt.Errorf("unsupported format %q (supported: turtle, ntriples, jsonld)", o.format)
	}
	profile := export.Profile(o.profile)
	if !export.ValidProfile(profile) {
		return fmt.Errorf("unsupported profile %q (supported: minimal, bfo, cco)", o.profile)
	}

	l, err := corpusLoader(cfg, o.docs, o.evidence)
	if err != nil {
		return err
	}
	docs, err := l.LoadDocuments()
	if err != nil {
		return corpusError(err)
	}
	facts, err := l.LoadFacts()
	if err != nil {
		return corpusError(err)
	}

	engine, err := audit.New(cfg.Audit.EngineConfig())
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}

	started := time.Now()
	result, err := engine.Run(docs, facts)
	if err != nil {
		return corpusRunError(err)
	}
	completed := time.Now()

	report := audit.NewReport(result, completed)
	run := storage.RunFromReport(report, len(docs), len(facts))
	run.ID = storage.NewEntityID(storage.EntityTypeRun).String()
	run.StartedAt = started
	run.CompletedAt = &completed

	exporter := export.NewRDFExporter(profile)
	exporter.AddRun(run)

	output, err := exporter.Export(format)
	if err != nil {
		return err
	}

	return writeOutput(o.out, func(w io.Writer) error {
		_, err := io.WriteString(w, output)
		return err
	})
}
