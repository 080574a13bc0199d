package cmd

import (
	"fmt"

	"github.com/jmehdipour/agenthub/internal/db"
	"github.com/jmehdipour/agenthub/migrations"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateReset bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the schema (--reset drops every table first, dev only)",
	Long: `Create the relational schema for the configured driver. When clickhouse.dsn
is set, the analytics tables read by view reports are created as well.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		sqlDB, err := db.Open(cfg.Database)
		if err != nil {
			return fmt.Errorf("open db: %w", err)
		}
		defer sqlDB.Close()

		ctx := cmd.Context()
		if migrateReset {
			if err := migrations.Reset(ctx, sqlDB); err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			log.Warn("schema_dropped", zap.String("driver", cfg.Database.Driver))
		}
		if err := migrations.Up(ctx, sqlDB, cfg.Database.Driver); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}

		log.Info("migration_complete", zap.String("driver", cfg.Database.Driver))

		chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
		if err != nil {
			return fmt.Errorf("clickhouse connect: %w", err)
		}
		if chDB == nil {
			return nil
		}
		defer chDB.Close()

		if err := migrations.Up(ctx, chDB, migrations.ClickHouse); err != nil {
			return fmt.Errorf("migrate clickhouse: %w", err)
		}
		log.Info("migration_complete", zap.String("driver", migrations.ClickHouse))
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateReset, "reset", false, "drop all tables before migrating")
}
