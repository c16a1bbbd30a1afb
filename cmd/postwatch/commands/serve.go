package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/postwatch/postwatch/config"
	"github.com/postwatch/postwatch/gateway"
	"github.com/postwatch/postwatch/ledger"
	"github.com/postwatch/postwatch/logger"
)

// ServeCmd represents the serve command
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ingestion gateway",
	Long: `Start the HTTP ingestion gateway.

The gateway accepts observations from scrapers, serves aggregated job and
company views to readers, and exposes admin operations. All endpoints
except /api/healthz require an API key (see 'postwatch keys').

Examples:
  postwatch serve                  # Listen on the configured port
  postwatch serve --port 9000      # Override the port
  postwatch serve --db-path x.db   # Override the database path`,
	RunE: runServe,
}

var (
	servePortFlag int
	serveDbFlag   string
)

func init() {
	ServeCmd.Flags().IntVar(&servePortFlag, "port", 0, "Port to listen on (default from config)")
	ServeCmd.Flags().StringVar(&serveDbFlag, "db-path", "", "Ledger database path (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	database, cfg, err := openDatabase(serveDbFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	port := servePortFlag
	if port == 0 {
		port = cfg.Server.Port
	}
	if port == 0 {
		port = config.DefaultServerPort
	}

	verbosity, _ := cmd.Flags().GetCount("verbose")
	printStartupBanner(verbosity, cfg.Database.Path, port)

	store := ledger.NewStore(database, logger.Logger)
	server := gateway.NewServer(store, cfg, logger.Logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, port)
}
