package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// RunMigrations applies all pending migrations inside the configured schema.
func RunMigrations(config Config) error {
	slog.Info("Running database migrations...")

	schema := config.Schema
	if schema == "" {
		schema = "public"
	}

	db, err := sql.Open("pgx", config.Url)
	if err != nil {
		return err
	}
	defer db.Close()

	// A single connection keeps the search_path set below in effect for goose.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := ensureSchemaExists(db, schema); err != nil {
		return err
	}

	goose.SetBaseFS(embedMigrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}

	slog.Info("Database migrations completed successfully")
	return nil
}

func ensureSchemaExists(db *sql.DB, schema string) error {
	query := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()
	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	slog.Info("Schema is ready", "schema", schema)

	setPathQuery := "SET search_path TO " + pgx.Identifier{schema}.Sanitize()
	if _, err := db.Exec(setPathQuery); err != nil {
		return fmt.Errorf("set search_path: %w", err)
	}
	return nil
}
