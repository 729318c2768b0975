package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/openclaw/forager/internal/ingest"
)

// newIngestCmd creates the 'ingest' subcommand. With no arguments every
// enabled source runs; naming sources restricts the run to those.
func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [source...]",
		Short: "Runs the ingestion adapters",
		Long: `Fetches tools and skills from the configured upstream sources and
upserts them into the catalog. Sources run concurrently; a failing
source is reported but never aborts the others.

Known sources: github, registry, modelhub, awesome, trending, vectordir, skills.`,
		RunE: runIngestCommand,
	}
}

func runIngestCommand(cmd *cobra.Command, args []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	adapters := a.Adapters(args)
	if len(adapters) == 0 {
		return fmt.Errorf("no matching enabled sources (requested %v)", args)
	}

	results, err := ingest.NewOrchestrator(a.Logger, adapters...).Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run ingestion: %w", err)
	}

	printIngestSummary(results)
	return nil
}

func printIngestSummary(results map[string]ingest.Result) {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"Source", "Processed", "Errors"})
	var processed, errors int
	for _, name := range names {
		res := results[name]
		t.AppendRow(table.Row{name, res.Processed, res.Errors})
		processed += res.Processed
		errors += res.Errors
	}
	t.AppendFooter(table.Row{"Total", processed, errors})
	t.Render()
}
