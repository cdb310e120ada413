// Command migrate applies the SQL files under migrations/ in order. Each file
// runs inside its own transaction and is recorded in schema_migrations with a
// checksum, so re-running is safe and edited history is caught.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/innkeep-pms/innkeep/internal/app"
)

const advisoryLockKey = 624871003

func main() {
	dir := flag.String("dir", "migrations", "directory holding .sql migration files")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	if err := run(context.Background(), logger, *dir); err != nil {
		logger.Error("migrate failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, dir string) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	var locked bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, advisoryLockKey).Scan(&locked); err != nil {
		return err
	}
	if !locked {
		return errors.New("another migrator is currently running")
	}

	if _, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    filename   TEXT NOT NULL,
    checksum   TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	files, err := discoverMigrations(dir)
	if err != nil {
		return err
	}
	for _, filename := range files {
		if err := applyMigration(ctx, logger, pool, dir, filename); err != nil {
			return fmt.Errorf("apply %s: %w", filename, err)
		}
	}
	logger.Info("migrations up to date", slog.Int("files", len(files)))
	return nil
}

func discoverMigrations(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var filenames []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version, err := extractVersion(entry.Name())
		if err != nil {
			return nil, err
		}
		if seen[version] {
			return nil, fmt.Errorf("duplicate migration version %s", version)
		}
		seen[version] = true
		filenames = append(filenames, entry.Name())
	}
	sort.Strings(filenames)
	return filenames, nil
}

func extractVersion(filename string) (string, error) {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		return "", fmt.Errorf("invalid migration filename %q, expected NNN_description.sql", filename)
	}
	return parts[0], nil
}

func applyMigration(ctx context.Context, logger *slog.Logger, pool *pgxpool.Pool, dir, filename string) error {
	version, err := extractVersion(filename)
	if err != nil {
		return err
	}
	contents, err := os.ReadFile(filepath.Join(dir, filename))
	if err != nil {
		return err
	}
	sum := sha256.Sum256(contents)
	checksum := hex.EncodeToString(sum[:])

	var existing string
	err = pool.QueryRow(ctx, `SELECT checksum FROM schema_migrations WHERE version = $1`, version).Scan(&existing)
	switch {
	case err == nil:
		if existing != checksum {
			return fmt.Errorf("checksum mismatch: recorded %s, file %s", existing, checksum)
		}
		logger.Info("skip", slog.String("file", filename))
		return nil
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return err
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(contents)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)`,
		version, filename, checksum); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	logger.Info("apply", slog.String("file", filename))
	return nil
}
