package testutil

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS shares (
	token TEXT PRIMARY KEY,
	session_id TEXT NOT NULL,
	title TEXT NOT NULL DEFAULT '',
	allow_editing INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	access_count INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_synced INTEGER NOT NULL,
	expires_at INTEGER
);
CREATE TABLE IF NOT EXISTS files (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	original_name TEXT NOT NULL,
	file_type TEXT NOT NULL,
	file_size INTEGER NOT NULL,
	parsed_content TEXT NOT NULL,
	created_at INTEGER NOT NULL
);`

// CreateInMemoryDB creates an in-memory SQLite database holding the chat
// backend's tables.
func CreateInMemoryDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to create in-memory database: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("Failed to create tables: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// CreateTestDB creates a test database with two sessions
func CreateTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db := CreateInMemoryDB(t)

	InsertSession(t, db, "session1", "Test Conversation", FixtureEpoch)
	InsertMessage(t, db, "session1", "user", "Hello", FixtureEpoch)
	InsertMessage(t, db, "session1", "assistant", "Hi there", FixtureEpoch.Add(time.Second))

	InsertSession(t, db, "session2", "Another Conversation", FixtureEpoch.Add(time.Hour))
	InsertMessage(t, db, "session2", "user", "How are you?", FixtureEpoch.Add(time.Hour))

	return db
}

// InsertSession inserts a session into the database
func InsertSession(t *testing.T, db *sql.DB, id, title string, createdAt time.Time) {
	t.Helper()
	insertSQL := "INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)"
	if _, err := db.Exec(insertSQL, id, title, createdAt.UnixNano(), createdAt.UnixNano()); err != nil {
		t.Fatalf("Failed to insert session: %v", err)
	}
}

// InsertMessage inserts a message into the database and returns its id
func InsertMessage(t *testing.T, db *sql.DB, sessionID, role, content string, at time.Time) int64 {
	t.Helper()
	id, err := insertMessage(db, sessionID, role, content, at)
	if err != nil {
		t.Fatalf("Failed to insert message: %v", err)
	}
	return id
}

func insertMessage(db *sql.DB, sessionID, role, content string, at time.Time) (int64, error) {
	res, err := db.Exec(
		"INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)",
		sessionID, role, content, at.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	if _, err := db.Exec("UPDATE sessions SET updated_at = ? WHERE id = ?", at.UnixNano(), sessionID); err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// InsertFile inserts a parsed file into the database and returns its id
func InsertFile(t *testing.T, db *sql.DB, name, fileType, content string) int64 {
	t.Helper()
	res, err := db.Exec(
		"INSERT INTO files (original_name, file_type, file_size, parsed_content, created_at) VALUES (?, ?, ?, ?, ?)",
		name, fileType, len(content), content, FixtureEpoch.UnixNano(),
	)
	if err != nil {
		t.Fatalf("Failed to insert file: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}
