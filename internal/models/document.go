package models

import (
	"time"

	"github.com/cockroachdb/errors"
)

// DocumentStatus is the lifecycle state of a document handed to the ETL.
type DocumentStatus string

const (
	StatusUnprocessed DocumentStatus = "UNPROCESSED"
	StatusProcessed   DocumentStatus = "PROCESSED"
	StatusFailed      DocumentStatus = "FAILED"
)

// DocumentType identifies the layout family a document belongs to.
type DocumentType string

// DocumentTypeBankGuarantee is the only layout family the extractor is tuned for.
const DocumentTypeBankGuarantee DocumentType = "BANK_GUARANTEE"

// Label is the human-readable name persisted with extracted metadata.
func (t DocumentType) Label() string {
	switch t {
	case DocumentTypeBankGuarantee:
		return "carta fianza"
	default:
		return string(t)
	}
}

// DocumentContractState represents a document to be processed, as built by ingress.
// Status is mutated only by the orchestrator.
type DocumentContractState struct {
	RecordID     string         `json:"recordId" firestore:"recordId"`
	ParentID     string         `json:"parentId" firestore:"parentId"`
	Key          string         `json:"key" firestore:"key"`
	SessionID    string         `json:"sessionId" firestore:"sessionId"`
	DocumentType DocumentType   `json:"documentType" firestore:"documentType"`
	PeriodMonth  string         `json:"periodMonth" firestore:"periodMonth"`
	PeriodYear   string         `json:"periodYear" firestore:"periodYear"`
	Status       DocumentStatus `json:"status,omitempty" firestore:"status,omitempty"`
}

// Validate checks the fields ingress must provide before a document can enter the pipeline.
// A missing document type defaults to bank guarantee; a missing status defaults to UNPROCESSED.
func (d *DocumentContractState) Validate() error {
	if d.RecordID == "" {
		return errors.New("recordId is required")
	}
	if d.Key == "" {
		return errors.Newf("key is required (recordId %s)", d.RecordID)
	}
	if d.DocumentType == "" {
		d.DocumentType = DocumentTypeBankGuarantee
	}
	if d.DocumentType != DocumentTypeBankGuarantee {
		return errors.Newf("unsupported documentType %q (recordId %s)", d.DocumentType, d.RecordID)
	}
	if d.Status == "" {
		d.Status = StatusUnprocessed
	}
	return nil
}

// DocumentStatusRecord is the status document kept per record in Firestore.
type DocumentStatusRecord struct {
	RecordID     string    `firestore:"recordId,omitempty"`
	Key          string    `firestore:"key,omitempty"`
	Status       string    `firestore:"status,omitempty"`
	ErrorDetails string    `firestore:"errorDetails,omitempty"`
	UpdatedAt    time.Time `firestore:"updatedAt,omitempty"`
}
