package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mbolis/survey-dashboard/config"
)

const memoryDB = ":memory:"

func Open(cfg config.Config) (db *sqlx.DB, err error) {
	db, err = sqlx.Open("sqlite3", cfg.DBUrl+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBUrl, err)
	}

	if cfg.DBUrl == memoryDB {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		db.SetConnMaxIdleTime(0)
		db.SetConnMaxLifetime(0)
	} else {
		// db tuning options
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(10)
		db.SetConnMaxIdleTime(5 * time.Minute)
		db.SetConnMaxLifetime(2 * time.Hour)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.DBUrl, err)
	}

	if err = migrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", cfg.DBUrl, err)
	}

	return db, nil
}
