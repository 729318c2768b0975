package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newReindexCmd creates the 'reindex' subcommand for rebuilding the
// full-text index after bulk loads that bypass the store triggers.
func newReindexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuilds the catalog full-text search index",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.Entries.Reindex(cmd.Context()); err != nil {
				return fmt.Errorf("reindex catalog: %w", err)
			}
			fmt.Println("catalog index rebuilt")
			return nil
		},
	}
}
