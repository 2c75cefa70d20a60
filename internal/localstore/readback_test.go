package localstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// get returns the stored entity with the given id.
func (s *Store) get(ctx context.Context, id string) (*models.BankGuaranteeEntity, error) {
	var (
		entity   models.BankGuaranteeEntity
		metadata string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, supervisory_record_id, period_month, period_year, metadata FROM bank_guarantees WHERE id = ?`, id).
		Scan(&entity.ID, &entity.SupervisoryRecordID, &entity.PeriodMonth, &entity.PeriodYear, &metadata)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load entity %s", id)
	}
	if err := json.Unmarshal([]byte(metadata), &entity.Metadata); err != nil {
		return nil, errors.Wrapf(err, "failed to decode metadata of %s", id)
	}
	return &entity, nil
}

// status returns the recorded status row of a record.
func (s *Store) status(ctx context.Context, recordID string) (*models.DocumentStatusRecord, error) {
	var (
		rec       models.DocumentStatusRecord
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT record_id, key, status, error_details, updated_at FROM documents WHERE record_id = ?`, recordID).
		Scan(&rec.RecordID, &rec.Key, &rec.Status, &rec.ErrorDetails, &updatedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load status of %s", recordID)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return nil, errors.Wrapf(err, "bad updated_at for %s", recordID)
	}
	return &rec, nil
}
