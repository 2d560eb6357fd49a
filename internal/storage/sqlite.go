package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/langcards/internal/models"
)

// RecordsSchemaSQL is the table layout the SQLite provider reads from.
// Rows are served in rowid order, which is the catalog order.
const RecordsSchemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	name          TEXT NOT NULL DEFAULT '',
	description   TEXT NOT NULL DEFAULT '',
	creation_info TEXT NOT NULL DEFAULT '',
	link          TEXT NOT NULL DEFAULT ''
);
`

// SQLite reads the catalog from the records table of a database opened
// read-only.
type SQLite struct {
	path string
	conn *sql.DB
}

// OpenSQLite opens the database at path in read-only mode.
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("storage: open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("storage: ping sqlite: %w", err)
	}
	return &SQLite{path: path, conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// Fetch implements Provider. Rows are encoded with the canonical record
// keys so they go through the same parser as file and HTTP resources.
func (s *SQLite) Fetch(ctx context.Context) ([]byte, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT name, description, creation_info, link
		FROM records
		ORDER BY rowid
	`)
	if err != nil {
		return nil, fmt.Errorf("storage: query records: %w", err)
	}
	defer rows.Close()

	out := []models.Record{}
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.Name, &r.Description, &r.CreationInfo, &r.Link); err != nil {
			return nil, fmt.Errorf("storage: scan record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: iterate records: %w", err)
	}
	return json.Marshal(out)
}

// Describe implements Provider.
func (s *SQLite) Describe() string {
	return "sqlite://" + s.path
}
