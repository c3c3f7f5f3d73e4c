package main

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"listings_dashboard/internal/config"
	"listings_dashboard/migrations"
)

var migrateDB string

var migrateCmd = &cobra.Command{
	Use:   "migrate <command>",
	Short: "Manage the SQLite schema",
	Long: `Commands:
  up          Migrate to the latest version
  up-one      Migrate one version up
  down        Roll back one version
  status      Show migration status
  version     Show current version
  reset       Roll back all migrations`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"up", "up-one", "down", "status", "version", "reset"},
	RunE:      runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateDB, "db", "", "path to sqlite database (defaults to DATABASE_PATH)")
}

func runMigrate(_ *cobra.Command, args []string) error {
	path := migrateDB
	if path == "" {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		path = cfg.DatabasePath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := migrations.Setup(); err != nil {
		return err
	}

	cmd := args[0]
	switch cmd {
	case "up":
		err = goose.Up(db, ".")
	case "up-one":
		err = goose.UpByOne(db, ".")
	case "down":
		err = goose.Down(db, ".")
	case "status":
		err = goose.Status(db, ".")
	case "version":
		err = goose.Version(db, ".")
	case "reset":
		err = goose.Reset(db, ".")
	default:
		return fmt.Errorf("unknown command: %s", cmd)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}
