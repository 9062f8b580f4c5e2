package testutil

import (
	"fmt"
	"testing"

	"gorm.io/gorm"
)

// LoadFixture inserts rows into a table.
func LoadFixture(db *gorm.DB, table string, rows []map[string]interface{}) error {
	for _, row := range rows {
		if err := db.Table(table).Create(row).Error; err != nil {
			return fmt.Errorf("failed to insert fixture row into %s: %w", table, err)
		}
	}
	return nil
}

// MustLoadFixture loads rows and fails the test on error.
func MustLoadFixture(t testing.TB, db *gorm.DB, table string, rows []map[string]interface{}) {
	t.Helper()
	if err := LoadFixture(db, table, rows); err != nil {
		t.Fatalf("LoadFixture failed: %v", err)
	}
}

// TruncateTable removes all rows from a table.
func TruncateTable(db *gorm.DB, table string) error {
	return db.Exec(fmt.Sprintf("DELETE FROM %q", table)).Error
}

// GetTableNames returns all data tables, excluding SQLite internals and the
// migration bookkeeping table.
func GetTableNames(db *gorm.DB) ([]string, error) {
	var tables []string
	err := db.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%' AND name <> ?", migrationsTable).
		Scan(&tables).Error
	return tables, err
}

// CountRows returns the number of rows in a table.
func CountRows(db *gorm.DB, table string) (int64, error) {
	var count int64
	err := db.Table(table).Count(&count).Error
	return count, err
}

// AssertRowCount fails the test if the table does not hold expected rows.
func AssertRowCount(t testing.TB, db *gorm.DB, table string, expected int64) {
	t.Helper()
	count, err := CountRows(db, table)
	if err != nil {
		t.Fatalf("failed to count rows in %s: %v", table, err)
	}
	if count != expected {
		t.Errorf("expected %d rows in %s, got %d", expected, table, count)
	}
}
