package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDatabase(t *testing.T) {
	t.Run("creates parent directory", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "history.db")

		db, err := NewDatabase(path)
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Dir(path)); err != nil {
			t.Errorf("expected database directory to exist: %v", err)
		}
	})

	t.Run("enables foreign keys", func(t *testing.T) {
		db, err := NewDatabase(":memory:")
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		defer db.Close()

		var enabled int
		if err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("failed to read pragma: %v", err)
		}
		if enabled != 1 {
			t.Errorf("expected foreign_keys=1, got %d", enabled)
		}
	})

	t.Run("dsn keeps existing params", func(t *testing.T) {
		if got := dsn("file:test.db?cache=shared"); got != "file:test.db?cache=shared&"+sqliteParams {
			t.Errorf("unexpected dsn: %s", got)
		}
		if got := dsn("./sunnify.db"); got != "./sunnify.db?"+sqliteParams {
			t.Errorf("unexpected dsn: %s", got)
		}
	})
}
