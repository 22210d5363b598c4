package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/linemk/gogol-pizza/internal/config"
	"github.com/linemk/gogol-pizza/internal/lib/logger"
)

func main() {
	var configPath, migrationsPath, migrationsTable string
	var down bool
	flag.StringVar(&configPath, "config", os.Getenv("CONFIG_PATH"), "path to config file")
	flag.StringVar(&migrationsPath, "migrations-path", "", "path to migration files, overrides the config")
	flag.StringVar(&migrationsTable, "migrations-table", "migrations", "name of the migrations bookkeeping table")
	flag.BoolVar(&down, "down", false, "roll back every migration instead of applying them")
	flag.Parse()

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "config path is required (-config or CONFIG_PATH)")
		os.Exit(2)
	}
	cfg := config.MustLoadByPath(configPath)
	log := logger.SetupLogger(cfg.Env)

	if migrationsPath == "" {
		migrationsPath = cfg.Migrations.Path
	}
	log = log.With(slog.String("path", migrationsPath), slog.String("table", migrationsTable))

	m, err := migrate.New("file://"+migrationsPath, cfg.Database.DSN("x-migrations-table", migrationsTable))
	if err != nil {
		log.Error("failed to create migrate instance", slog.Any("error", err))
		os.Exit(1)
	}
	defer m.Close()

	apply, direction := m.Up, "up"
	if down {
		apply, direction = m.Down, "down"
	}
	if err := apply(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			log.Error("migration failed", slog.String("direction", direction), slog.Any("error", err))
			os.Exit(1)
		}
		log.Info("no migrations to apply", slog.String("direction", direction))
	} else {
		log.Info("migrations applied", slog.String("direction", direction))
	}

	if err := printTables(cfg.Database.DSN()); err != nil {
		log.Error("failed to list tables", slog.Any("error", err))
		os.Exit(1)
	}
}

func printTables(dsn string) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	rows, err := db.Query(`
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public'
		ORDER BY table_name
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	fmt.Println("Current tables in the database:")
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return err
		}
		fmt.Println(" -", tableName)
	}
	return rows.Err()
}
