package main

import (
	"fmt"
	"time"

	"github.com/BaSui01/cricketflow/internal/database"
	"github.com/BaSui01/cricketflow/internal/ingest"
	"github.com/BaSui01/cricketflow/internal/migration"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// =============================================================================
// 🗄️ migrate / ingest 命令
// =============================================================================

func migrateCmd(flags *globalFlags) *cobra.Command {
	var dbType, dbURL string
	cmd := &cobra.Command{
		Use:   "migrate <up|down|down-all|status|version|info|steps N|goto V|force V>",
		Short: "Manage the deliveries schema",
		Long: `Apply or roll back the embedded deliveries schema migrations.

Subcommands:
  up        Apply all pending migrations
  down      Roll back the last migration
  down-all  Roll back all migrations
  status    Show applied and pending migrations
  version   Show the current schema version
  info      Show migration details
  steps N   Apply (N>0) or roll back (N<0) N migrations
  goto V    Migrate to version V
  force V   Force the recorded version (use with caution)`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			cfg.Log.OutputPaths = []string{"stderr"}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			var m *migration.DefaultMigrator
			if dbURL != "" {
				if dbType == "" {
					dbType = cfg.Database.Driver
				}
				m, err = migration.NewMigratorFromURL(dbType, dbURL, logger)
			} else {
				m, err = migration.NewMigratorFromConfig(cfg, logger)
			}
			if err != nil {
				return fmt.Errorf("create migrator: %w", err)
			}
			defer func() {
				if err := m.Close(); err != nil {
					logger.Warn("close migrator", zap.Error(err))
				}
			}()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return migration.NewCLI(m, cmd.OutOrStdout()).Run(ctx, args[0], args[1:])
		},
	}
	cmd.Flags().StringVar(&dbType, "db-type", "", "Database type: postgres, mysql, sqlite (default: from config)")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "Database connection URL (default: from config)")
	return cmd
}

func ingestCmd(flags *globalFlags) *cobra.Command {
	var (
		csvPath  string
		opts     ingest.Options
		skipMigr bool
	)
	cmd := &cobra.Command{
		Use:   "ingest --csv deliveries.csv",
		Short: "Load ball-by-ball deliveries into the structured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			cfg.Log.OutputPaths = []string{"stderr"}
			logger := initLogger(cfg.Log)
			defer func() { _ = logger.Sync() }()

			ctx, stop := signalContext(cmd.Context())
			defer stop()

			if !skipMigr {
				m, err := migration.NewMigratorFromConfig(cfg, logger)
				if err != nil {
					return fmt.Errorf("create migrator: %w", err)
				}
				err = m.Up(ctx)
				_ = m.Close()
				if err != nil {
					return err
				}
			}

			db, err := database.Open(cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer func() { _ = db.Close() }()

			res, err := ingest.NewIngester(db, logger).IngestFile(ctx, csvPath, opts)
			if err != nil {
				return err
			}
			if res.Skipped {
				fmt.Fprintf(cmd.OutOrStdout(), "deliveries already holds %d rows, skipped (use --truncate to reload)\n", res.Existing)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d rows in %d batches (%s)\n", res.Rows, res.Batches, res.Duration.Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVar(&csvPath, "csv", "", "Path to deliveries CSV")
	cmd.Flags().IntVar(&opts.BatchSize, "batch", ingest.DefaultBatchSize, "Rows per insert batch")
	cmd.Flags().BoolVar(&opts.Truncate, "truncate", false, "Replace existing rows")
	cmd.Flags().BoolVar(&skipMigr, "skip-migrate", false, "Do not apply pending migrations first")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}
