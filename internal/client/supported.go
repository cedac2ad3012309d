package client

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SupportedSet is the locally persisted set of report ids this client has
// already supported. It outlives the process so a restart cannot re-support
// the same report. Client-side only; the server does not deduplicate by
// caller identity.
type SupportedSet struct {
	db *sql.DB
}

// OpenSupportedSet opens (creating if needed) the local state database.
func OpenSupportedSet(path string) (*SupportedSet, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open local state db: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS supported_reports (
		report_id TEXT PRIMARY KEY,
		supported_at TIMESTAMP NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init local state db: %w", err)
	}
	return &SupportedSet{db: db}, nil
}

// All returns every supported report id.
func (s *SupportedSet) All() ([]string, error) {
	rows, err := s.db.Query(`SELECT report_id FROM supported_reports`)
	if err != nil {
		return nil, fmt.Errorf("read supported set: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan supported id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Add marks a report as supported. Adding an already-present id is a no-op.
func (s *SupportedSet) Add(id string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO supported_reports (report_id, supported_at) VALUES (?, ?)`,
		id, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("persist supported id: %w", err)
	}
	return nil
}

// Remove unmarks a report. Used by the rollback path when a support call
// fails after the optimistic update.
func (s *SupportedSet) Remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM supported_reports WHERE report_id = ?`, id)
	if err != nil {
		return fmt.Errorf("remove supported id: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SupportedSet) Close() error {
	return s.db.Close()
}
