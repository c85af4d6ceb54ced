package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/warp/pharmacy-ledger/config"
	"github.com/warp/pharmacy-ledger/store/sqlite"
)

// migrateCmd groups schema maintenance. Opening the store applies pending
// migrations, so "up" only reports the resulting version.
func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply pending migrations",
			RunE: withStore(func(cmd *cobra.Command, s *sqlite.Store) error {
				if err := sqlite.Migrate(s.DB()); err != nil {
					return err
				}
				return printVersion(cmd, s)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every migration (drops all data)",
			RunE: withStore(func(cmd *cobra.Command, s *sqlite.Store) error {
				if err := sqlite.Rollback(s.DB()); err != nil {
					return err
				}
				return printVersion(cmd, s)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE:  withStore(printVersion),
		},
	)
	return cmd
}

func withStore(fn func(cmd *cobra.Command, s *sqlite.Store) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("cannot load config: %w", err)
		}
		s, err := sqlite.New(cfg.DB.Path)
		if err != nil {
			return fmt.Errorf("cannot open database: %w", err)
		}
		defer s.Close()
		return fn(cmd, s)
	}
}

func printVersion(cmd *cobra.Command, s *sqlite.Store) error {
	v, dirty, ok, err := sqlite.SchemaVersion(s.DB())
	if err != nil {
		return err
	}
	if !ok {
		cmd.Println("schema: empty")
		return nil
	}
	cmd.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
