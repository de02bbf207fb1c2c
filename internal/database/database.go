package database

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"socialmedia_api/internal/config"
	"socialmedia_api/internal/logging"
)

//go:embed schema.sql
var schema string

func Connect(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns / 2)
	db.SetConnMaxLifetime(30 * time.Minute)

	logging.Info().Str("host", cfg.DBHost).Str("db", cfg.DBName).Msg("connected to database")
	return db, nil
}

// Migrate applies the embedded schema. Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for i, stmt := range Statements() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration statement %d: %w", i+1, err)
		}
	}
	logging.Info().Msg("database schema up to date")
	return nil
}

// Statements splits the embedded schema into individual statements.
func Statements() []string {
	var stmts []string
	for _, part := range strings.Split(schema, ";") {
		if s := strings.TrimSpace(part); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
