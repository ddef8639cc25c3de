// Package database provides connection setup for MariaDB and Redis.
// This file validates migration SQL files to catch schema mismatches early.
package database

import (
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"testing"
)

// validExpenseCategories must match the ENUM values on expenses.category
// and the category set in the expenses plugin. Update both together.
// Current ENUM: defined in 000003.
var validExpenseCategories = map[string]bool{
	"BILLS":          true,
	"ENTERTAINMENT":  true,
	"FOOD":           true,
	"HEALTHCARE":     true,
	"OTHER":          true,
	"SHOPPING":       true,
	"TRANSPORTATION": true,
}

// migrationsDir returns the absolute path to migrations/ from the project root.
func migrationsDir(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine test file path")
	}
	// thisFile is internal/database/migrate_test.go, project root is two dirs up.
	projectRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	dir := filepath.Join(projectRoot, "migrations")
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("migrations directory not found at %s: %v", dir, err)
	}
	return dir
}

// TestMigrations_ExpenseCategoryEnum extracts the ENUM definition from the
// expenses migration and checks it matches the category set the application
// validates against. A drift between the two surfaces as "Data truncated
// for column 'category'" (Error 1265) at insert time, so catch it here.
func TestMigrations_ExpenseCategoryEnum(t *testing.T) {
	dir := migrationsDir(t)
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing migration files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migration files found")
	}

	enumPattern := regexp.MustCompile(`category ENUM\(([^)]+)\)`)
	valuePattern := regexp.MustCompile(`'([^']+)'`)

	found := false
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("reading %s: %v", f, err)
		}
		match := enumPattern.FindStringSubmatch(string(data))
		if match == nil {
			continue
		}
		found = true

		values := valuePattern.FindAllStringSubmatch(match[1], -1)
		if len(values) != len(validExpenseCategories) {
			t.Errorf("%s: ENUM has %d values, application expects %d",
				filepath.Base(f), len(values), len(validExpenseCategories))
		}
		for _, v := range values {
			if !validExpenseCategories[v[1]] {
				t.Errorf("%s: ENUM value %q unknown to the application", filepath.Base(f), v[1])
			}
		}
	}
	if !found {
		t.Error("no category ENUM definition found in migrations")
	}
}

// TestMigrations_UsersUniqueKeys ensures the users table keeps the UNIQUE
// constraints on email and username. The concurrent first-login race
// resolution depends on them.
func TestMigrations_UsersUniqueKeys(t *testing.T) {
	dir := migrationsDir(t)
	data, err := os.ReadFile(filepath.Join(dir, "000001_create_users.up.sql"))
	if err != nil {
		t.Fatalf("reading users migration: %v", err)
	}

	content := string(data)
	for _, key := range []string{"uq_users_email", "uq_users_username"} {
		if !strings.Contains(content, key) {
			t.Errorf("users migration missing UNIQUE key %s", key)
		}
	}
}

// TestMigrations_UpDownPairs ensures every .up.sql has a matching .down.sql.
func TestMigrations_UpDownPairs(t *testing.T) {
	dir := migrationsDir(t)
	upFiles, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		t.Fatalf("globbing up files: %v", err)
	}

	for _, up := range upFiles {
		down := strings.Replace(up, ".up.sql", ".down.sql", 1)
		if _, err := os.Stat(down); err != nil {
			t.Errorf("missing down migration for %s", filepath.Base(up))
		}
	}
}
