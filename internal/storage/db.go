package storage

import (
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"tarifario/internal"
)

// DB is the audit log of catalog loads and exports. It holds no query state.
type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS loads (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  source TEXT NOT NULL,
  format TEXT NOT NULL,
  rowCount INTEGER NOT NULL DEFAULT 0,
  dropped INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS exports (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  traceId TEXT NOT NULL,
  format TEXT NOT NULL,
  label TEXT NOT NULL,
  rowCount INTEGER NOT NULL,
  path TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) InsertLoad(run internal.LoadRun) error {
	_, err := d.conn.Exec(`
INSERT INTO loads (traceId, source, format, rowCount, dropped, status, error, createdAt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`, run.TraceID, run.Source, string(run.Format), run.Rows, run.Dropped, run.Status, run.Error, run.LoadedAt.UTC().Format(time.RFC3339))
	return err
}

// ListLoads returns the most recent loads first.
func (d *DB) ListLoads(limit int) ([]internal.LoadRun, error) {
	rows, err := d.conn.Query(`
SELECT traceId, source, format, rowCount, dropped, status, COALESCE(error, ''), createdAt
FROM loads ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.LoadRun
	for rows.Next() {
		var run internal.LoadRun
		var format, createdAt string
		if err := rows.Scan(&run.TraceID, &run.Source, &format, &run.Rows, &run.Dropped, &run.Status, &run.Error, &createdAt); err != nil {
			return nil, err
		}
		run.Format = internal.SourceFormat(format)
		if parsed, err := time.Parse(time.RFC3339, createdAt); err == nil {
			run.LoadedAt = parsed
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) InsertExport(run internal.ExportRun) error {
	_, err := d.conn.Exec(`INSERT INTO exports (traceId, format, label, rowCount, path) VALUES (?, ?, ?, ?, ?)`,
		run.TraceID, run.Format, run.Label, run.Rows, run.Path)
	return err
}

func (d *DB) ListExports(limit int) ([]internal.ExportRun, error) {
	rows, err := d.conn.Query(`SELECT traceId, format, label, rowCount, COALESCE(path, '') FROM exports ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ExportRun
	for rows.Next() {
		var run internal.ExportRun
		if err := rows.Scan(&run.TraceID, &run.Format, &run.Label, &run.Rows, &run.Path); err != nil {
			return nil, err
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
