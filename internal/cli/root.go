// Package cli implements the billing operator commands.
package cli

import (
	"fmt"
	"os"

	"billing/internal/app"
	"billing/internal/config"
	"billing/internal/logger"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "1.0.0"

// openApp is replaced in tests to run commands against SQLite. The returned
// func releases what was opened.
var openApp = func(cfg *config.Config) (*app.App, func() error, error) {
	a, err := app.New(cfg)
	if err != nil {
		return nil, nil, err
	}
	return a, a.Close, nil
}

// state is shared by the subcommands of one invocation.
type state struct {
	envFile string
	app     *app.App
	close   func() error
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	st := &state{}

	rootCmd := &cobra.Command{
		Use:   "billing",
		Short: "Billing CLI - payment reconciliation for invoices",
		Long: `Billing CLI applies payments to invoices and keeps invoice payment
status consistent with the recorded payments.

Configuration is read from the environment (and configs/.env), the same
variables the API server uses.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return st.open()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if st.close == nil {
				return nil
			}
			return st.close()
		},
	}

	rootCmd.PersistentFlags().StringVar(&st.envFile, "env-file", "configs/.env", "Path to a .env file")

	rootCmd.AddCommand(
		newMigrateCmd(st),
		newApplyPaymentCmd(st),
		newAdvancesCmd(st),
		newVerifyCmd(st),
		newRepairCmd(st),
		newOverrideStatusCmd(st),
	)
	return rootCmd
}

func (st *state) open() error {
	if err := godotenv.Load(st.envFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to load %s: %w", st.envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := logger.Setup(cfg.GetLoggerConfig()); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if err := app.InitSentry(cfg); err != nil {
		log := logger.WithComponent("cli")
		log.Warn().Err(err).Msg("sentry init error")
	}

	st.app, st.close, err = openApp(cfg)
	return err
}

// checkActor rejects an --actor value that is set but is not a UUID.
func checkActor(actor string) error {
	if actor == "" {
		return nil
	}
	if _, err := uuid.Parse(actor); err != nil {
		return fmt.Errorf("invalid --actor %q: must be a UUID", actor)
	}
	return nil
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	log := logger.WithComponent("cmd")

	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
