// Package app wires the ETL components to their GCP or local adapters.
package app

import (
	"context"
	"log/slog"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/config"
	"github.com/Lllllllleong/bankguaranteeflow/internal/gcp"
	"github.com/Lllllllleong/bankguaranteeflow/internal/localstore"
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
	"github.com/Lllllllleong/bankguaranteeflow/internal/normalize"
	"github.com/Lllllllleong/bankguaranteeflow/internal/services"
)

// GuaranteeETL is the fully wired bank-guarantee ETL.
type GuaranteeETL struct {
	orchestrator *services.Orchestrator
	source       *services.BucketSource
	closers      []func() error
}

// NewGuaranteeETL creates the clients and adapters selected by cfg.
func NewGuaranteeETL(ctx context.Context, cfg *config.Config) (*GuaranteeETL, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	etl := &GuaranteeETL{}

	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Storage client")
	}
	etl.closers = append(etl.closers, storageClient.Close)

	executionsClient, err := executions.NewClient(ctx)
	if err != nil {
		etl.Close()
		return nil, errors.Wrap(err, "failed to create Workflows Executions client")
	}
	etl.closers = append(etl.closers, executionsClient.Close)

	var (
		store    services.MetadataStore
		recorder services.StatusRecorder
	)
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		local, err := localstore.Open(cfg.Store.SQLitePath)
		if err != nil {
			etl.Close()
			return nil, err
		}
		etl.closers = append(etl.closers, local.Close)
		store, recorder = local, local
	default:
		firestoreClient, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID)
		if err != nil {
			etl.Close()
			return nil, err
		}
		etl.closers = append(etl.closers, firestoreClient.Close)
		store = gcp.NewFirestoreMetadataStore(firestoreClient, cfg.Store.MetadataCollection)
		if cfg.Store.DocumentsCollection != "" {
			recorder = gcp.NewFirestoreStatusRecorder(firestoreClient, cfg.Store.DocumentsCollection)
		}
	}

	notifier, err := gcp.NewCloudEventsNotifier(cfg.Notification.Sink, cfg.Notification.Type, cfg.Notification.Source)
	if err != nil {
		etl.Close()
		return nil, err
	}

	var preflight services.Preflight
	if cfg.Analysis.PreflightEnabled {
		preflight = gcp.NewPDFPreflight(storageClient, cfg.Source.Bucket)
	}
	analysis := gcp.NewWorkflowAnalysis(executionsClient, storageClient, gcp.WorkflowAnalysisConfig{
		ProjectID:        cfg.ProjectID,
		WorkflowLocation: cfg.Analysis.WorkflowLocation,
		WorkflowID:       cfg.Analysis.WorkflowID,
		OutputBucket:     cfg.Analysis.OutputBucket,
		OutputPrefix:     cfg.Analysis.OutputPrefix,
	})

	pipeline := services.NewPipeline(
		services.NewExtractor(analysis, preflight, cfg),
		store,
		normalize.NewAmountNormalizer(cfg.Transform.AmountKeywords, cfg.Transform.DropColumns),
	)
	etl.orchestrator = services.NewOrchestrator(pipeline, notifier, recorder, cfg)
	etl.source = services.NewBucketSource(gcp.NewBucketLister(storageClient), cfg)

	slog.Info("Bank guarantee ETL initialized.",
		"backend", cfg.Store.Backend,
		"workflowId", cfg.Analysis.WorkflowID,
		"batchSize", cfg.Orchestrator.BatchSize,
		"maxConcurrency", cfg.Orchestrator.MaxConcurrency)
	return etl, nil
}

// Execute runs the ETL over the given documents.
func (e *GuaranteeETL) Execute(ctx context.Context, docs []models.DocumentContractState) ([]models.DocumentContractState, error) {
	return e.orchestrator.Execute(ctx, docs)
}

// ExecuteFromBucket runs the ETL over the letters currently in the source bucket.
func (e *GuaranteeETL) ExecuteFromBucket(ctx context.Context, position *int) ([]models.DocumentContractState, error) {
	docs, err := e.source.Documents(ctx, position)
	if err != nil {
		return nil, err
	}
	return e.orchestrator.Execute(ctx, docs)
}

// Close releases every client, returning the first error.
func (e *GuaranteeETL) Close() error {
	var first error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	e.closers = nil
	return first
}
