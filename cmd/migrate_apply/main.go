package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quest_webapp/internal/db"
	"quest_webapp/internal/logger"
)

// Applies the SQL files under internal/migrations in name order,
// recording each applied file in schema_migrations so reruns are safe.
// Without -apply it only lists pending migrations.
func main() {
	apply := flag.Bool("apply", false, "apply pending migrations instead of listing them")
	dir := flag.String("dir", filepath.Join("internal", "migrations"), "migrations directory")
	flag.Parse()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL not set")
	}
	pool := db.Connect(dsn)
	defer pool.Close()

	ctx := context.Background()
	if _, err := pool.Exec(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
		   name       TEXT PRIMARY KEY,
		   applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		 )`); err != nil {
		logger.Fatal("ensure schema_migrations", "error", err)
	}

	entries, err := os.ReadDir(*dir)
	if err != nil {
		logger.Fatal("read migrations dir", "dir", *dir, "error", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var done bool
		if err := pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE name = $1)`,
			name).Scan(&done); err != nil {
			logger.Fatal("check migration", "name", name, "error", err)
		}
		if done {
			logger.Debug("already applied", "name", name)
			continue
		}
		if !*apply {
			logger.Info("pending", "name", name)
			continue
		}

		sql, err := os.ReadFile(filepath.Join(*dir, name))
		if err != nil {
			logger.Fatal("read migration", "name", name, "error", err)
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			logger.Fatal("apply migration", "name", name, "error", err)
		}
		if _, err := pool.Exec(ctx,
			`INSERT INTO schema_migrations (name) VALUES ($1)`, name); err != nil {
			logger.Fatal("record migration", "name", name, "error", err)
		}
		logger.Info("applied", "name", name)
	}
}
