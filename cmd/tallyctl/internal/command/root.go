// Package command holds the tallyctl subcommands.
package command

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
)

var (
	db  *sqlx.DB
	svc *app.Services
)

var rootCmd = &cobra.Command{
	Use:   "tallyctl",
	Short: "Statements, aging and price lists from the command line",
	Long: `tallyctl reads the billing ledger configured through the TALLY_* and
DB_* environment variables (a .env file in the working directory is loaded).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		db, err = database.New(cfg.ConnectionString())
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}

		svc = app.New(cfg, db)

		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		if db != nil {
			_ = db.Close()
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}
