// Package localstore keeps extracted metadata and document statuses in a local SQLite file,
// for runs without Firestore.
package localstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	_ "modernc.org/sqlite"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS bank_guarantees (
	id                    TEXT PRIMARY KEY,
	supervisory_record_id TEXT NOT NULL,
	period_month          TEXT NOT NULL,
	period_year           TEXT NOT NULL,
	metadata              TEXT NOT NULL,
	updated_at            TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS documents (
	record_id     TEXT PRIMARY KEY,
	key           TEXT NOT NULL,
	status        TEXT NOT NULL,
	error_details TEXT NOT NULL DEFAULT '',
	updated_at    TEXT NOT NULL
);`

var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 10000",
	"PRAGMA synchronous = NORMAL",
}

// Store is a MetadataStore and StatusRecorder backed by SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema. Use ":memory:"
// for a throwaway database.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, errors.Wrap(err, "failed to create database directory")
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", path)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", p)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the entity on its id.
func (s *Store) Save(ctx context.Context, entity models.BankGuaranteeEntity) error {
	if entity.ID == "" {
		return errors.New("entity id is required")
	}
	metadata, err := json.Marshal(entity.Metadata)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal metadata of %s", entity.ID)
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO bank_guarantees (id, supervisory_record_id, period_month, period_year, metadata, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	supervisory_record_id = excluded.supervisory_record_id,
	period_month = excluded.period_month,
	period_year = excluded.period_year,
	metadata = excluded.metadata,
	updated_at = excluded.updated_at`,
		entity.ID, entity.SupervisoryRecordID, entity.PeriodMonth, entity.PeriodYear, string(metadata), s.timestamp())
	if err != nil {
		return errors.Wrapf(err, "failed to save entity %s", entity.ID)
	}
	return nil
}

// RecordStatus upserts the status row of a record.
func (s *Store) RecordStatus(ctx context.Context, doc models.DocumentContractState, details string) error {
	if doc.Status != models.StatusFailed {
		details = ""
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO documents (record_id, key, status, error_details, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(record_id) DO UPDATE SET
	key = excluded.key,
	status = excluded.status,
	error_details = excluded.error_details,
	updated_at = excluded.updated_at`,
		doc.RecordID, doc.Key, string(doc.Status), details, s.timestamp())
	if err != nil {
		return errors.Wrapf(err, "failed to record status of %s", doc.RecordID)
	}
	return nil
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}
