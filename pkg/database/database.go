package database

import (
	"database/sql"
	"log"
	"time"

	"ghost-crew/configs"

	_ "github.com/lib/pq"
)

// OpenPostgres opens a pooled connection and pings it.
func OpenPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func ConnectDB(cfg configs.Config) *sql.DB {
	db, err := OpenPostgres(cfg.PostgresDSN(cfg.DBName))
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	return db
}
