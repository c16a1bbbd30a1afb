package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/ledger"
	"github.com/postwatch/postwatch/logger"
)

// RollbackCmd represents the rollback command
var RollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Delete everything ingested at or after a cutoff",
	Long: `Delete all observations, jobs, and orphaned companies ingested at or
after the cutoff instant.

The window is cut on ingestion time, so a faulty migration or scraper run
can be undone even when its observation timestamps are historical. Jobs
created before the cutoff keep their rows; only their observation entries
from the window are removed. This cannot be undone.

Quiesce ingestion before rolling back, or repeat the rollback until the
reported counts reach zero, so writes racing the cutoff do not survive.

Examples:
  postwatch rollback --cutoff 2025-03-01T00:00:00Z --yes`,
	RunE: runRollback,
}

var (
	rollbackCutoffFlag string
	rollbackYesFlag    bool
	rollbackDbFlag     string
)

func init() {
	RollbackCmd.Flags().StringVar(&rollbackCutoffFlag, "cutoff", "", "Ingestion-time cutoff (RFC 3339)")
	RollbackCmd.Flags().BoolVar(&rollbackYesFlag, "yes", false, "Confirm the deletion")
	RollbackCmd.Flags().StringVar(&rollbackDbFlag, "db-path", "", "Ledger database path (default from config)")
	RollbackCmd.MarkFlagRequired("cutoff")
}

func runRollback(cmd *cobra.Command, args []string) error {
	cutoff, err := time.Parse(time.RFC3339, rollbackCutoffFlag)
	if err != nil {
		return errors.Wrapf(err, "invalid cutoff %q, want RFC 3339", rollbackCutoffFlag)
	}

	if !rollbackYesFlag {
		return errors.Newf("rollback deletes everything ingested at or after %s and cannot be undone; rerun with --yes to confirm", cutoff.Format(time.RFC3339))
	}

	database, _, err := openDatabase(rollbackDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	store := ledger.NewStore(database, logger.Logger)
	result, err := store.Rollback(cmd.Context(), cutoff)
	if err != nil {
		return err
	}

	fmt.Printf("Deleted %d observations, %d jobs, %d companies\n",
		result.DeletedInserts, result.DeletedJobs, result.DeletedCompanies)
	return nil
}
