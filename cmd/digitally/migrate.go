package main

import (
	"errors"

	"github.com/adeilh/digitally/db/sql/postgres"
	"github.com/adeilh/digitally/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the PostgreSQL schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer logging.Sync(log)

			if cfg.Database.DSN == "" {
				return errors.New("migrate: no database configured (set DATABASE_URL or database.dsn)")
			}
			db, err := postgres.Open(cmd.Context(), postgres.WithDSN(cfg.Database.DSN))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("schema applied", zap.Int("statements", len(postgres.Schema)))
			return nil
		},
	}
}
