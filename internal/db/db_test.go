package db

import (
	"path/filepath"
	"testing"
)

func TestNew_CreatesDatabase(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	tables := []string{"requests", "config", "_migrations"}
	for _, table := range tables {
		var name string
		err := database.Conn().QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestNew_WALEnabled(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	database, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer database.Close()

	var journalMode string
	err = database.Conn().QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("PRAGMA journal_mode error = %v", err)
	}

	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}
}

func TestNew_MigrationsIdempotent(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db1, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("first New() error = %v", err)
	}
	db1.Close()

	db2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var count int
	err = db2.Conn().QueryRow("SELECT COUNT(*) FROM _migrations").Scan(&count)
	if err != nil {
		t.Fatalf("count migrations error = %v", err)
	}

	if count != 1 {
		t.Errorf("migration count = %d, want 1", count)
	}
}

func TestMarkInterruptedRequests(t *testing.T) {
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	db1, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = db1.Conn().Exec(`
		INSERT INTO requests (id, chat_id, source_url, start_seconds, end_seconds, status, created_at, updated_at)
		VALUES
			('req-1', 1, 'https://x/y', 0, 30, 'extracting', datetime('now'), datetime('now')),
			('req-2', 1, 'https://x/z', 0, 30, 'completed', datetime('now'), datetime('now'))
	`)
	if err != nil {
		t.Fatalf("insert requests error = %v", err)
	}
	db1.Close()

	db2, err := New(dbPath, nil)
	if err != nil {
		t.Fatalf("second New() error = %v", err)
	}
	defer db2.Close()

	var status, errMsg string
	err = db2.Conn().QueryRow("SELECT status, error FROM requests WHERE id = 'req-1'").Scan(&status, &errMsg)
	if err != nil {
		t.Fatalf("query request error = %v", err)
	}
	if status != "failed" {
		t.Errorf("interrupted request status = %s, want failed", status)
	}
	if errMsg != "interrupted by restart" {
		t.Errorf("interrupted request error = %s, want 'interrupted by restart'", errMsg)
	}

	err = db2.Conn().QueryRow("SELECT status FROM requests WHERE id = 'req-2'").Scan(&status)
	if err != nil {
		t.Fatalf("query request error = %v", err)
	}
	if status != "completed" {
		t.Errorf("completed request status = %s, want completed", status)
	}
}
