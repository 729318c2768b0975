package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/openclaw/forager/internal/audit"
)

// newAuditCmd creates the 'audit' subcommand: one dead-link sweep, run to
// completion, for operators and one-shot jobs.
func newAuditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "audit",
		Short: "Runs one dead-link sweep over the catalog",
		Long: `Probes the source URL of every stored entry, dead and opaque rows
included. Only a definitive 404 or 410 marks an entry dead; probes that
fail any other way leave the entry untouched.`,
		RunE: runAuditCommand,
	}
}

func runAuditCommand(cmd *cobra.Command, _ []string) error {
	a, err := resolveApp(cmd.Context())
	if err != nil {
		return err
	}

	auditor := audit.New(
		a.Entries,
		a.Catalog,
		a.Client,
		a.Cfg.Audit.ProbesPerSecond,
		time.Duration(a.Cfg.Audit.TimeoutMs)*time.Millisecond,
		a.Logger,
	)

	sum, err := auditor.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("run audit sweep: %w", err)
	}

	fmt.Printf("probed %d entries: %d marked dead, %d revived, %d inconclusive\n",
		sum.Probed, sum.MarkedDead, sum.Revived, sum.Inconclusive)
	return nil
}
