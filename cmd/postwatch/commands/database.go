package commands

import (
	"database/sql"

	"github.com/postwatch/postwatch/config"
	"github.com/postwatch/postwatch/db"
	"github.com/postwatch/postwatch/errors"
	"github.com/postwatch/postwatch/logger"
)

// openDatabase opens and migrates the ledger database. If dbPath is empty
// the configured path is used.
func openDatabase(dbPath string) (*sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}
	if dbPath == "" {
		dbPath = cfg.Database.Path
	}

	database, err := db.OpenWithMigrations(dbPath, logger.Logger)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to open database at %s", dbPath)
	}
	return database, cfg, nil
}
