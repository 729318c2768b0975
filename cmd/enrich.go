package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/forager/internal/enrich"
)

// newEnrichCmd creates the 'enrich' subcommand, which retries model-hub
// lookups for entries whose stored name is still an opaque hash.
func newEnrichCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "enrich",
		Short: "Re-resolves opaque-named entries against the model hub",
		Long: `Finds stored entries whose name is still an opaque provider hash and
retries the hub lookup across the model, space, and dataset endpoint
families. A hit replaces the record; three definitive misses mark it
dead; anything ambiguous is left for a later run.`,
		RunE: runEnrichCommand,
	}
}

func runEnrichCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	resolver := enrich.New(
		a.Entries,
		a.Catalog,
		a.Client,
		a.Cfg.Sources.ModelHub.BaseURL,
		a.Cfg.HTTP.ModelHubToken,
		time.Duration(a.Cfg.Sources.ModelHub.DelayMs)*time.Millisecond,
		a.Logger,
	)

	sum, err := resolver.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run enrichment: %w", err)
	}

	fmt.Printf("scanned %d opaque entries: %d resolved, %d marked dead, %d ambiguous\n",
		sum.Scanned, sum.Resolved, sum.MarkedDead, sum.Ambiguous)
	return nil
}
