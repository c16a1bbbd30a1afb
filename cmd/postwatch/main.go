package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/postwatch/postwatch/cmd/postwatch/commands"
	"github.com/postwatch/postwatch/logger"
)

var rootCmd = &cobra.Command{
	Use:   "postwatch",
	Short: "postwatch - Job posting observation ledger",
	Long: `postwatch - Deduplicated job posting observation ledger.

postwatch ingests job posting observations from scrapers, resolves them to
canonical companies and jobs, and serves aggregated views over an API-key
gated HTTP gateway.

Available commands:
  serve    - Start the ingestion gateway
  migrate  - Replay the legacy MySQL scrape archive
  rollback - Delete everything ingested at or after a cutoff
  db       - Database operations and statistics
  keys     - Manage gateway API keys
  version  - Show version information

Examples:
  postwatch serve                          # Start the gateway
  postwatch db stats                       # Show ledger statistics
  postwatch keys create --name ci --role scraper-writer
  postwatch migrate --dsn user:pass@tcp(host)/jobs
  postwatch rollback --cutoff 2025-03-01T00:00:00Z --yes`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonOutput, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonOutput, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit structured JSON logs")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.MigrateCmd)
	rootCmd.AddCommand(commands.RollbackCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.KeysCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
