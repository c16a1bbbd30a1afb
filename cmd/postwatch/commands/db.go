package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/postwatch/postwatch/ledger"
	"github.com/postwatch/postwatch/logger"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the ledger database",
	Long: `Manage ledger database operations.

Examples:
  postwatch db stats    # Show ledger statistics`,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show ledger statistics",
	Long:  "Display company, job and observation counts plus the observed time range, broken down per company.",
	RunE:  runDbStats,
}

var statsDbFlag string

func init() {
	DbCmd.AddCommand(dbStatsCmd)
	dbStatsCmd.Flags().StringVar(&statsDbFlag, "db-path", "", "Ledger database path (default from config)")
}

func runDbStats(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase(statsDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	store := ledger.NewStore(database, logger.Logger)
	stats, err := store.GetStats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Println("Ledger Statistics")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Database Path: %s\n", cfg.Database.Path)
	fmt.Printf("Companies:     %d\n", stats.Companies)
	fmt.Printf("Jobs:          %d\n", stats.Jobs)
	fmt.Printf("Observations:  %d\n", stats.Inserts)
	if stats.FirstObservation != nil && stats.LastObservation != nil {
		fmt.Printf("Observed:      %s — %s\n",
			stats.FirstObservation.Format(time.RFC3339),
			stats.LastObservation.Format(time.RFC3339))
	}
	fmt.Println()

	// Per-company breakdown.
	companies, err := store.ListCompanies(cmd.Context())
	if err != nil {
		return err
	}
	for _, company := range companies {
		jobs, err := store.ListJobs(cmd.Context(), company.ID)
		if err != nil {
			return err
		}
		fmt.Printf("%-30s %5d jobs\n", company.Name, len(jobs))
	}
	return nil
}
