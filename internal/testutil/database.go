// Package testutil provides utilities for testing.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"

	"github.com/larder/larder/internal/database"

	_ "modernc.org/sqlite" // SQLite driver
)

// TestDB wraps a test database connection.
type TestDB struct {
	*sql.DB
	path string
}

// NewTestDB creates a new in-memory SQLite database for testing.
// The pool is pinned to one connection; every new connection to
// ":memory:" would otherwise see an empty database.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	return &TestDB{DB: db, path: ":memory:"}
}

// NewMigratedDB returns an in-memory database with the larder schema applied.
// It is closed when the test ends.
func NewMigratedDB(t *testing.T) *TestDB {
	t.Helper()

	tdb := NewTestDB(t)
	tdb.RunMigrations(t, MigrationsDir())
	t.Cleanup(func() { tdb.DB.Close() })
	return tdb
}

// MigrationsDir returns the absolute path of internal/database/migrations.
func MigrationsDir() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "database", "migrations")
}

// RunMigrations executes the Up section of every .sql file in
// migrationsDir, in file name order.
func (tdb *TestDB) RunMigrations(t *testing.T, migrationsDir string) {
	t.Helper()

	files, err := os.ReadDir(migrationsDir)
	if err != nil {
		t.Fatalf("failed to read migrations directory: %v", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	ctx := context.Background()
	for _, file := range files {
		if file.IsDir() || filepath.Ext(file.Name()) != ".sql" {
			continue
		}

		content, err := os.ReadFile(filepath.Join(migrationsDir, file.Name()))
		if err != nil {
			t.Fatalf("failed to read migration %s: %v", file.Name(), err)
		}

		up, _ := database.ParseMigration(string(content))
		for _, stmt := range database.SplitStatements(up) {
			if _, err := tdb.ExecContext(ctx, stmt); err != nil {
				t.Fatalf("failed to execute migration %s: %v\nSQL: %s", file.Name(), err, stmt)
			}
		}
	}
}

// Close closes the test database and cleans up resources.
func (tdb *TestDB) Close(t *testing.T) {
	t.Helper()

	if err := tdb.DB.Close(); err != nil {
		t.Errorf("failed to close test database: %v", err)
	}
}

// AssertRowCount asserts the row count for a table.
func (tdb *TestDB) AssertRowCount(t *testing.T, table string, expected int) {
	t.Helper()

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", table)
	if err := tdb.QueryRow(query).Scan(&count); err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}

	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}

// ExecSQL executes arbitrary SQL (useful for test setup).
func (tdb *TestDB) ExecSQL(t *testing.T, sql string, args ...any) {
	t.Helper()

	if _, err := tdb.Exec(sql, args...); err != nil {
		t.Fatalf("failed to execute SQL: %v\nSQL: %s", err, sql)
	}
}
