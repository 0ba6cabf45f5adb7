package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/monitord/internal/bootstrap"
	"github.com/creamcroissant/monitord/internal/config"
	"github.com/creamcroissant/monitord/internal/migrations"
	"github.com/creamcroissant/monitord/internal/support/logging"
)

// oneShot loads config, opens the already-migrated database, builds the
// full infrastructure graph (without starting the scheduler), and runs a
// single named job pass — the body shared by collect/detect/scan-services/
// heartbeat-check/app-heartbeat, each of which is meant to be driven by an
// external cron (e.g. system crontab) rather than this process's own
// scheduler when run this way.
func oneShot(run func(ctx context.Context, infra *bootstrap.Infrastructure) error) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := logging.New(logging.Options{
		Level:     cfg.Log.SlogLevel(),
		Format:    cfg.Log.Format,
		AddSource: cfg.Log.AddSource,
	})

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := migrations.Up(db); err != nil {
		return err
	}

	infra, err := bootstrap.BuildInfrastructure(cfg, db, logger)
	if err != nil {
		return err
	}

	return run(ctx, infra)
}

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Run one collection pass across every enabled host",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, infra *bootstrap.Infrastructure) error {
			return infra.RunCollect(ctx)
		})
	},
}

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one anomaly-detection pass across every enabled host",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, infra *bootstrap.Infrastructure) error {
			return infra.RunDetect(ctx)
		})
	},
}

var scanServicesCmd = &cobra.Command{
	Use:   "scan-services",
	Short: "Check every monitored service on every enabled host once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, infra *bootstrap.Infrastructure) error {
			return infra.RunServiceScan(ctx)
		})
	},
}

var heartbeatCheckCmd = &cobra.Command{
	Use:   "heartbeat-check",
	Short: "Probe every enabled host once over SSH",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, infra *bootstrap.Infrastructure) error {
			return infra.RunHeartbeatCheck(ctx)
		})
	},
}

var appHeartbeatCmd = &cobra.Command{
	Use:   "app-heartbeat",
	Short: "Stamp the monitoring process's own liveness once",
	RunE: func(cmd *cobra.Command, args []string) error {
		return oneShot(func(ctx context.Context, infra *bootstrap.Infrastructure) error {
			return infra.RunAppHeartbeat(ctx)
		})
	},
}

func init() {
	rootCmd.AddCommand(collectCmd, detectCmd, scanServicesCmd, heartbeatCheckCmd, appHeartbeatCmd)
}
