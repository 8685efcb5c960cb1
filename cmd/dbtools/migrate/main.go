// cmd/dbtools/migrate/main.go
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var (
		driver         = flag.String("driver", "sqlite", "Database driver (sqlite, postgres)")
		dbTarget       = flag.String("db", "", "SQLite database path or Postgres connection URL")
		migrationsPath = flag.String("migrations", "", "Path to migrations directory (default internal/db/migrations/<driver>)")
		command        = flag.String("command", "", "Command to run (up, down, steps, version)")
		steps          = flag.Int("n", 1, "Number of steps for the steps command; negative rolls back")
	)
	flag.Parse()

	if *dbTarget == "" || *command == "" {
		flag.Usage()
		os.Exit(1)
	}

	dbURL, err := databaseURL(*driver, *dbTarget)
	if err != nil {
		log.Fatalf("Invalid database target: %v", err)
	}

	dir := *migrationsPath
	if dir == "" {
		dir = filepath.Join("internal", "db", "migrations", dialectDir(*driver))
	}
	if _, err := os.Stat(dir); err != nil {
		log.Fatalf("Migrations directory not readable: %v", err)
	}

	// Initialize migrate
	m, err := migrate.New("file://"+filepath.ToSlash(dir), dbURL)
	if err != nil {
		log.Fatalf("Migration init failed: %v", err)
	}
	defer m.Close()

	// Execute command
	switch *command {
	case "up":
		err = m.Up()
	case "down":
		err = m.Down()
	case "steps":
		err = m.Steps(*steps)
	case "version":
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			fmt.Println("Version: none")
			return
		}
		if err != nil {
			log.Fatalf("Get version failed: %v", err)
		}
		fmt.Printf("Version: %d, Dirty: %v\n", version, dirty)
		return
	default:
		log.Fatalf("Unknown command: %s", *command)
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration %s failed: %v", *command, err)
	}
	log.Printf("Migration %s complete", *command)
}

// databaseURL maps a driver and target onto a golang-migrate database URL.
func databaseURL(driver, target string) (string, error) {
	switch driver {
	case "sqlite":
		abs, err := filepath.Abs(target)
		if err != nil {
			return "", err
		}
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			return "", fmt.Errorf("create database directory: %w", err)
		}
		return "sqlite3://" + abs, nil
	case "postgres":
		for _, scheme := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(target, scheme) {
				return "pgx5://" + strings.TrimPrefix(target, scheme), nil
			}
		}
		if strings.HasPrefix(target, "pgx5://") {
			return target, nil
		}
		return "", fmt.Errorf("postgres target must be a postgres:// URL")
	default:
		return "", fmt.Errorf("unsupported driver %q", driver)
	}
}

func dialectDir(driver string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return "sqlite"
}
