package database

import (
	"database/sql"
	"os"
	"time"

	"finhealth/backend/migrations"

	_ "github.com/mattn/go-sqlite3"
)

var DB *sql.DB

func InitDB() error {
	var dbPath string
	if os.Getenv("DATABASE_PATH") != "" {
		dbPath = os.Getenv("DATABASE_PATH")
	} else if os.Getenv("TEST_DB") == "1" {
		// We're running tests, use in-memory database
		dbPath = ":memory:"
	} else {
		// Local development
		dbPath = "./finhealth.db"
	}

	var err error
	// Add connection parameters to better handle concurrency
	dsn := dbPath + "?_journal=WAL&_timeout=10000&_busy_timeout=10000"
	DB, err = sql.Open("sqlite3", dsn)
	if err != nil {
		return err
	}

	// Configure database connection
	DB.SetMaxOpenConns(5)
	DB.SetMaxIdleConns(5)
	DB.SetConnMaxLifetime(time.Minute * 5)

	if dbPath == ":memory:" {
		// Each pooled connection to :memory: is a separate database;
		// keep a single connection so tests see one schema.
		DB.SetMaxOpenConns(1)
		DB.SetMaxIdleConns(1)
	}

	// Execute PRAGMA statements for better concurrency handling
	_, err = DB.Exec("PRAGMA journal_mode=WAL;")
	if err != nil {
		return err
	}

	_, err = DB.Exec("PRAGMA busy_timeout=5000;")
	if err != nil {
		return err
	}

	// Test the connection
	err = DB.Ping()
	if err != nil {
		return err
	}

	if err := CreateSchema(DB); err != nil {
		return err
	}

	return migrations.RunMigrations(DB)
}
