package commands

import (
	"database/sql"

	"github.com/jobrake/jobrake/config"
	"github.com/jobrake/jobrake/db"
	"github.com/jobrake/jobrake/errors"
	"github.com/jobrake/jobrake/logger"
)

// openDatabase loads configuration, opens the database, and applies pending
// migrations. The caller owns the returned connection.
func openDatabase() (*sql.DB, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to load configuration")
	}

	log := logger.ComponentLogger("db")
	database, err := db.Open(cfg.Database.Path, log)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open database")
	}

	if err := db.Migrate(database, log); err != nil {
		database.Close()
		return nil, nil, errors.Wrap(err, "failed to migrate database")
	}

	return database, cfg, nil
}
