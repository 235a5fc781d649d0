package migrations

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestDatabaseURL(t *testing.T) {
	tests := []struct {
		driver string
		dsn    string
		want   string
		ok     bool
	}{
		{DriverSQLite, "chatbox.db", "sqlite3://chatbox.db", true},
		{DriverSQLite, "sqlite3://x.db", "sqlite3://x.db", true},
		{DriverPostgres, "postgres://u:p@localhost/db", "postgres://u:p@localhost/db", true},
		{"mysql", "x", "", false},
	}
	for _, tt := range tests {
		got, err := DatabaseURL(tt.driver, tt.dsn)
		if tt.ok && err != nil {
			t.Fatalf("DatabaseURL(%q, %q) error: %v", tt.driver, tt.dsn, err)
		}
		if !tt.ok {
			if err == nil {
				t.Fatalf("DatabaseURL(%q) expected error", tt.driver)
			}
			continue
		}
		if got != tt.want {
			t.Fatalf("DatabaseURL(%q, %q) = %q, want %q", tt.driver, tt.dsn, got, tt.want)
		}
	}
}

func TestUpCreatesMessagesTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chatbox.db")

	if err := Up(DriverSQLite, path); err != nil {
		t.Fatalf("Up: %v", err)
	}
	// second run is a no-op
	if err := Up(DriverSQLite, path); err != nil {
		t.Fatalf("Up again: %v", err)
	}

	v, dirty, err := Version(DriverSQLite, path)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != 1 || dirty {
		t.Fatalf("unexpected version %d dirty=%v", v, dirty)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name='messages'`).Scan(&name)
	if err != nil {
		t.Fatalf("messages table missing: %v", err)
	}
}

func TestApplySQLiteInMemory(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := ApplySQLite(db); err != nil {
		t.Fatalf("ApplySQLite: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO messages (sender_id, recipient_id, body) VALUES ('a', 'b', 'hi')`); err != nil {
		t.Fatalf("insert after migrate: %v", err)
	}
}
