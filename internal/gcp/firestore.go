package gcp

import (
	"context"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, errors.New("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Firestore client")
	}

	return client, nil
}

// FirestoreMetadataStore stores one document per entity, keyed by the entity id.
type FirestoreMetadataStore struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreMetadataStore(client *firestore.Client, collection string) *FirestoreMetadataStore {
	return &FirestoreMetadataStore{client: client, collection: collection}
}

// Save overwrites the entity document, so saving the same entity twice is a no-op.
func (s *FirestoreMetadataStore) Save(ctx context.Context, entity models.BankGuaranteeEntity) error {
	if entity.ID == "" {
		return errors.New("entity id is required")
	}
	if _, err := s.client.Collection(s.collection).Doc(entity.ID).Set(ctx, entity); err != nil {
		return errors.Wrapf(err, "failed to save entity %s to %s", entity.ID, s.collection)
	}
	slog.Info("Entity saved.", "collection", s.collection, "entityId", entity.ID, "recordId", entity.SupervisoryRecordID)
	return nil
}

// FirestoreStatusRecorder keeps the latest status of every record in the documents collection.
type FirestoreStatusRecorder struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestoreStatusRecorder(client *firestore.Client, collection string) *FirestoreStatusRecorder {
	return &FirestoreStatusRecorder{client: client, collection: collection, now: time.Now}
}

// RecordStatus writes the status document of a record. errorDetails is cleared on success.
func (r *FirestoreStatusRecorder) RecordStatus(ctx context.Context, doc models.DocumentContractState, details string) error {
	record := statusRecord(doc, details, r.now())
	if _, err := r.client.Collection(r.collection).Doc(doc.RecordID).Set(ctx, record); err != nil {
		return errors.Wrapf(err, "failed to update status of %s to %s", doc.RecordID, doc.Status)
	}
	return nil
}

func statusRecord(doc models.DocumentContractState, details string, at time.Time) models.DocumentStatusRecord {
	record := models.DocumentStatusRecord{
		RecordID:  doc.RecordID,
		Key:       doc.Key,
		Status:    string(doc.Status),
		UpdatedAt: at.UTC(),
	}
	if doc.Status == models.StatusFailed {
		record.ErrorDetails = details
	}
	return record
}
