package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kbukum/speakerid/bootstrap"
	"github.com/kbukum/speakerid/database"
	"github.com/kbukum/speakerid/database/migration"
	"github.com/kbukum/speakerid/store/sqlstore"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
	Long: `Manage the database schema.

serve applies pending migrations on start unless database.migrate is
false; these commands run them explicitly.

Examples:
  speakerid migrate up
  speakerid migrate down
  speakerid migrate steps -1
  speakerid migrate version`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, func(db *database.DB, src migration.Source) error {
			return migration.Up(db.GormDB, src)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, func(db *database.DB, src migration.Source) error {
			return migration.Down(db.GormDB, src)
		})
	},
}

var migrateStepsCmd = &cobra.Command{
	Use:   "steps <n>",
	Short: "Apply n migrations (negative n rolls back)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("steps must be a non-zero integer, got %q", args[0])
		}
		return runMigration(cmd, func(db *database.DB, src migration.Source) error {
			return migration.Steps(db.GormDB, src, n)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigration(cmd, func(db *database.DB, src migration.Source) error {
			v, dirty, err := migration.Version(db.GormDB, src)
			if err != nil {
				return err
			}
			state := "clean"
			if dirty {
				state = "dirty"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d (%s)\n", v, state)
			return err
		})
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateStepsCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}

// runMigration starts only the database component, with automatic
// migrations off, and runs fn against it.
func runMigration(cmd *cobra.Command, fn func(*database.DB, migration.Source) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Logging.Output = "stderr"
	cfg.Database.Migrate = false

	src, err := sqlstore.Migrations(cfg.Database.Driver)
	if err != nil {
		return err
	}
	a, err := bootstrap.NewApp(cfg, bootstrap.WithoutSummary())
	if err != nil {
		return err
	}
	db := database.NewComponent(cfg.Database, a.Logger)
	if err := a.RegisterComponent(db); err != nil {
		return err
	}
	return a.RunTask(cmd.Context(), func(context.Context) error {
		return fn(db.DB(), src)
	})
}
