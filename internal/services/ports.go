package services

import (
	"context"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// DocumentAnalyzer extracts the raw letter fields and the amounts table for one document.
type DocumentAnalyzer interface {
	Extract(ctx context.Context, doc models.DocumentContractState) (*models.ExtractionResult, error)
}

// MetadataStore persists the extracted entity. Implementations upsert on the entity id.
type MetadataStore interface {
	Save(ctx context.Context, entity models.BankGuaranteeEntity) error
}

// Notifier dispatches a batch of notifications in one call.
type Notifier interface {
	Notify(ctx context.Context, notifications []models.Notification) error
}

// FileLister lists object keys under prefix ending in ".<extension>". A non-nil position
// selects the single key at that index.
type FileLister interface {
	ListFiles(ctx context.Context, bucket, prefix, extension string, position *int) ([]string, error)
}

// StatusRecorder persists the final status of a document. It is optional.
type StatusRecorder interface {
	RecordStatus(ctx context.Context, doc models.DocumentContractState, details string) error
}

// Preflight checks that a source document can be analyzed before a job is started.
type Preflight interface {
	Check(ctx context.Context, key string) error
}

// JobStatus is the state of an analysis job.
type JobStatus string

const (
	JobInProgress     JobStatus = "IN_PROGRESS"
	JobSucceeded      JobStatus = "SUCCEEDED"
	JobPartialSuccess JobStatus = "PARTIAL_SUCCESS"
	JobFailed         JobStatus = "FAILED"
)

// AnalysisRequest describes what the analysis service should run on a document.
type AnalysisRequest struct {
	Bucket   string         `json:"bucket"`
	Key      string         `json:"key"`
	Features []string       `json:"features"`
	Queries  []models.Query `json:"queries"`
}

// AnalysisPage is one page of analysis results. NextToken is empty on the last page.
type AnalysisPage struct {
	Status    JobStatus
	Message   string
	Blocks    []models.Block
	NextToken string
}

// AnalysisService is the asynchronous OCR/document-analysis backend.
type AnalysisService interface {
	StartAnalysis(ctx context.Context, req AnalysisRequest) (string, error)
	GetAnalysis(ctx context.Context, jobID, nextToken string) (*AnalysisPage, error)
}
