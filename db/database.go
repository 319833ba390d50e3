package db

import (
	"database/sql"
	"fmt"
	"log"

	"GreetFM/config"

	_ "github.com/go-sql-driver/mysql"
)

// DB is the global database connection pool.
var DB *sql.DB

// ConnectDB establishes the database connection.
func ConnectDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	var err error
	DB, err = sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Successfully connected to the database.")
	return nil
}

// InitDB creates the schema if it does not exist.
func InitDB() error {
	if DB == nil {
		return fmt.Errorf("database connection is not established")
	}

	trackArchiveSchema := `
	CREATE TABLE IF NOT EXISTS tracks (
		id VARCHAR(64) PRIMARY KEY,
		device_id VARCHAR(64) NOT NULL,
		kind VARCHAR(32) NOT NULL,
		text TEXT NOT NULL,
		category VARCHAR(64) NOT NULL DEFAULT '',
		state VARCHAR(16) NOT NULL,
		error TEXT,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL,
		INDEX idx_tracks_device (device_id, created_at)
	);`

	if _, err := DB.Exec(trackArchiveSchema); err != nil {
		return fmt.Errorf("failed to create tracks table: %w", err)
	}

	log.Println("Database schema initialized successfully.")
	return nil
}
