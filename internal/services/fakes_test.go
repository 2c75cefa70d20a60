package services

import (
	"context"
	"sync"
	"time"

	"github.com/Lllllllleong/bankguaranteeflow/internal/config"
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

func testConfig() *config.Config {
	return &config.Config{
		ProjectID: "test",
		Source:    config.SourceConfig{Bucket: "letters", Prefix: "cartas_fmv/", Extension: "pdf"},
		Analysis: config.AnalysisConfig{
			OutputBucket:    "analysis",
			PollInterval:    time.Millisecond,
			PollMaxAttempts: 5,
			MaxPages:        10,
		},
		Extraction: config.ExtractionConfig{
			AnchorPhrase:  "carta n°",
			TableKeywords: []string{"ADENDA ACTUAL", "DESEMBOLSADOS"},
			TablePage:     1,
			PromotorAlias: "Promotor",
			ProjectAlias:  "Project",
		},
		Transform: config.TransformConfig{
			AmountKeywords: []string{"monto", "importe"},
			DropColumns:    []string{"N°"},
		},
		Notification: config.NotificationConfig{Type: "regulatory-compliance-prompts.insert-metadata"},
		Orchestrator: config.OrchestratorConfig{BatchSize: 2, MaxConcurrency: 2},
	}
}

func doc(id string) models.DocumentContractState {
	return models.DocumentContractState{
		RecordID:     id,
		ParentID:     "parent-" + id,
		Key:          "cartas_fmv/" + id + ".pdf",
		SessionID:    "session-1",
		DocumentType: models.DocumentTypeBankGuarantee,
		PeriodMonth:  "03",
		PeriodYear:   "2024",
		Status:       models.StatusUnprocessed,
	}
}

func strPtr(s string) *string { return &s }

type fakeAnalyzer struct {
	mu     sync.Mutex
	calls  int
	result *models.ExtractionResult
	err    error
}

func (f *fakeAnalyzer) Extract(_ context.Context, _ models.DocumentContractState) (*models.ExtractionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

type fakeStore struct {
	mu    sync.Mutex
	saved []models.BankGuaranteeEntity
	err   error
}

func (f *fakeStore) Save(_ context.Context, e models.BankGuaranteeEntity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, e)
	return nil
}

type fakeNotifier struct {
	calls [][]models.Notification
	err   error
}

func (f *fakeNotifier) Notify(_ context.Context, n []models.Notification) error {
	f.calls = append(f.calls, n)
	return f.err
}

type fakeRecorder struct {
	mu       sync.Mutex
	statuses map[string]models.DocumentStatus
}

func (f *fakeRecorder) RecordStatus(_ context.Context, d models.DocumentContractState, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.statuses == nil {
		f.statuses = map[string]models.DocumentStatus{}
	}
	f.statuses[d.RecordID] = d.Status
	return nil
}

// runnerFunc adapts a function to DocumentRunner.
type runnerFunc func(context.Context, models.DocumentContractState) State

func (f runnerFunc) Run(ctx context.Context, d models.DocumentContractState) State { return f(ctx, d) }

// fakeAnalysis serves a scripted sequence of status reads followed by result pages keyed by token.
type fakeAnalysis struct {
	mu         sync.Mutex
	statuses   []JobStatus
	pages      map[string]*AnalysisPage
	startErr   error
	request    AnalysisRequest
	statusHits int
	tokens     []string
}

func (f *fakeAnalysis) StartAnalysis(_ context.Context, req AnalysisRequest) (string, error) {
	f.request = req
	if f.startErr != nil {
		return "", f.startErr
	}
	return "job-1", nil
}

func (f *fakeAnalysis) GetAnalysis(_ context.Context, _ string, token string) (*AnalysisPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if token == "" {
		f.statusHits++
		if f.statusHits <= len(f.statuses) && f.statuses[f.statusHits-1] == JobInProgress {
			return &AnalysisPage{Status: JobInProgress}, nil
		}
	} else {
		f.tokens = append(f.tokens, token)
	}
	return f.pages[token], nil
}
