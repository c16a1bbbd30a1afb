package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/ingest"
	"github.com/postwatch/postwatch/ledger"
	"github.com/postwatch/postwatch/legacy"
	"github.com/postwatch/postwatch/logger"
)

// MigrateCmd represents the migrate command
var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Replay the legacy MySQL scrape archive into the ledger",
	Long: `Replay the legacy MySQL scrape archive into the ledger.

Replay is checkpointed: progress is saved after every batch, and a rerun
resumes where the previous run stopped. Replaying already-processed records
would duplicate timeline entries, so only use --from-checkpoint to rewind
deliberately.

Examples:
  postwatch migrate --dsn user:pass@tcp(dbhost:3306)/jobs
  postwatch migrate --dsn ... --rate 50        # Throttle to 50 records/sec
  postwatch migrate --dsn ... --from-checkpoint ""   # Restart from the top`,
	RunE: runMigrate,
}

var (
	migrateDsnFlag        string
	migrateCheckpointFlag string
	migrateBatchFlag      int
	migrateRateFlag       float64
	migrateDbFlag         string
)

func init() {
	MigrateCmd.Flags().StringVar(&migrateDsnFlag, "dsn", "", "Legacy MySQL DSN (default from config)")
	MigrateCmd.Flags().StringVar(&migrateCheckpointFlag, "from-checkpoint", "", "Override the saved checkpoint")
	MigrateCmd.Flags().IntVar(&migrateBatchFlag, "batch-size", 0, "Records per checkpointed batch (default from config)")
	MigrateCmd.Flags().Float64Var(&migrateRateFlag, "rate", 0, "Max records per second, 0 = unlimited (default from config)")
	MigrateCmd.Flags().StringVar(&migrateDbFlag, "db-path", "", "Ledger database path (default from config)")
}

func runMigrate(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase(migrateDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	dsn := migrateDsnFlag
	if dsn == "" {
		dsn = cfg.Legacy.DSN
	}
	if dsn == "" {
		return errors.New("no legacy DSN configured; pass --dsn or set legacy.dsn")
	}
	batchSize := migrateBatchFlag
	if batchSize == 0 {
		batchSize = cfg.Legacy.BatchSize
	}
	ratePerSec := migrateRateFlag
	if ratePerSec == 0 {
		ratePerSec = cfg.Legacy.RatePerSec
	}

	source, err := legacy.OpenMySQLSource(dsn, logger.Logger)
	if err != nil {
		return err
	}
	defer source.Close()

	store := ledger.NewStore(database, logger.Logger)
	engine := ingest.NewEngine(store, logger.Logger)
	migrator := legacy.NewMigrator(source, engine, store, legacy.MigratorConfig{
		BatchSize:  batchSize,
		RatePerSec: ratePerSec,
	}, logger.Logger)

	checkpoint := migrateCheckpointFlag
	if !cmd.Flags().Changed("from-checkpoint") {
		checkpoint, err = store.GetCheckpoint(cmd.Context(), legacy.DefaultSourceName)
		if err != nil {
			return errors.Wrap(err, "reading saved checkpoint")
		}
	}
	if checkpoint != "" {
		fmt.Printf("Resuming from checkpoint %s\n", checkpoint)
	}

	summary, err := migrator.Run(cmd.Context(), checkpoint)
	printMigrationSummary(summary)
	return err
}

func printMigrationSummary(summary *legacy.Summary) {
	fmt.Println("\nMigration Summary")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Processed:  %d\n", summary.Processed)
	fmt.Printf("Created:    %d\n", summary.Created)
	fmt.Printf("Skipped:    %d\n", summary.Skipped)
	fmt.Printf("Failed:     %d\n", summary.Failed)
	fmt.Printf("Checkpoint: %s\n", summary.NextCheckpoint)
}
