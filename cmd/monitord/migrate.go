package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/monitord/internal/bootstrap"
	"github.com/creamcroissant/monitord/internal/config"
	"github.com/creamcroissant/monitord/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [up|down|status]",
	Short: "Apply or inspect SQLite schema migrations",
	Args:  cobra.ExactArgs(1),
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	db, err := bootstrap.OpenSQLite(cfg.DB.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	switch args[0] {
	case "up":
		return migrations.Up(db)
	case "down":
		return migrations.Down(db)
	case "status":
		return migrations.Status(db)
	default:
		return fmt.Errorf("unknown migrate subcommand %q (want up, down, or status)", args[0])
	}
}
