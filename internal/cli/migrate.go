package cli

import (
	"fmt"

	"billing/internal/database"
	"billing/internal/logger"

	"github.com/spf13/cobra"
)

func newMigrateCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the ledger tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := database.Migrate(st.app.DB); err != nil {
				return err
			}
			log := logger.WithComponent("migrate")
			log.Info().Msg("schema is up to date")
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
