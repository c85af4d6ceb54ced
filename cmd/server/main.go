/*
main.go - Application entry point

PURPOSE:
  Command-line entry for the pharmacy period and metrics service.

COMMANDS:
  serve     Run the HTTP API (default when no command is given)
  migrate   Apply, revert or inspect the SQLite schema
  version   Print the build version

CONFIGURATION:
  -c/--config  Optional config file. Environment variables use the
               PHARMACY_ prefix, e.g. PHARMACY_HTTP_PORT=3000,
               PHARMACY_DB_PATH=":memory:". See config/config.go.

EXAMPLES:
  ./server serve -c ./config.toml
  PHARMACY_DB_PATH=./data/pharmacy.db ./server migrate up
  ./server migrate version

SEE ALSO:
  - serve.go: Server startup and graceful shutdown
  - api/server.go: Router configuration
*/
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "pharmacy-ledger",
		Short:         "Period and metrics service for pharmacies",
		RunE:          serve,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serve,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the service version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	cfgFile string
	version = "dev"
)

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to configuration file (optional)")
	rootCmd.AddCommand(serveCmd, migrateCmd(), versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
