package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := database.Migrate(cmd.Context(), db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
