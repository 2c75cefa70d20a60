package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/Lllllllleong/bankguaranteeflow/internal/config"
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// DocumentRunner runs the per-document pipeline. *Pipeline implements it.
type DocumentRunner interface {
	Run(ctx context.Context, doc models.DocumentContractState) State
}

// outcome is the orchestrator's view of one finished document.
type outcome struct {
	doc         models.DocumentContractState
	failedStage string
	details     string
}

// Orchestrator splits documents into batches, runs their pipelines under a shared concurrency
// limit and sends one notification per document when everything is done.
type Orchestrator struct {
	runner           DocumentRunner
	notifier         Notifier
	recorder         StatusRecorder
	limiter          *semaphore.Weighted
	batchSize        int
	notificationType string
}

// NewOrchestrator wires an orchestrator. recorder may be nil.
func NewOrchestrator(runner DocumentRunner, notifier Notifier, recorder StatusRecorder, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		runner:           runner,
		notifier:         notifier,
		recorder:         recorder,
		limiter:          semaphore.NewWeighted(int64(cfg.Orchestrator.MaxConcurrency)),
		batchSize:        cfg.Orchestrator.BatchSize,
		notificationType: cfg.Notification.Type,
	}
}

// Execute processes every document and returns their final states in submission order. A
// failing or panicking document is marked FAILED without affecting the others. The returned
// error reports a context cancelled before the run starts or a failed notification dispatch.
func (o *Orchestrator) Execute(ctx context.Context, docs []models.DocumentContractState) ([]models.DocumentContractState, error) {
	if len(docs) == 0 {
		slog.Warn("No documents to process.")
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, "ETL run cancelled before start")
	}
	start := time.Now()
	logCtx := slog.With("documents", len(docs), "batchSize", o.batchSize)
	logCtx.Info("Starting ETL run.")

	outcomes := make([]outcome, 0, len(docs))
	for i, batch := range batches(docs, o.batchSize) {
		outcomes = append(outcomes, o.runBatch(ctx, batch)...)
		logCtx.Info("Batch finished.", "batch", i+1, "size", len(batch))
	}

	results := make([]models.DocumentContractState, len(outcomes))
	failed := 0
	for i, out := range outcomes {
		results[i] = out.doc
		if out.doc.Status == models.StatusFailed {
			failed++
		}
	}
	logCtx.Info("ETL run finished.",
		"processed", len(results)-failed,
		"failed", failed,
		"duration", time.Since(start).String())

	if err := o.notify(ctx, outcomes); err != nil {
		logCtx.Error("Failed to dispatch notifications", "error", err)
		return results, err
	}
	return results, nil
}

// batches partitions docs into contiguous chunks of at most size.
func batches(docs []models.DocumentContractState, size int) [][]models.DocumentContractState {
	if size <= 0 {
		size = len(docs)
	}
	var out [][]models.DocumentContractState
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end])
	}
	return out
}

func (o *Orchestrator) runBatch(ctx context.Context, batch []models.DocumentContractState) []outcome {
	results := make([]outcome, len(batch))
	var eg errgroup.Group
	for i, doc := range batch {
		i, doc := i, doc
		eg.Go(func() error {
			if err := o.limiter.Acquire(ctx, 1); err != nil {
				results[i] = o.finish(ctx, doc, "", errors.Wrap(err, "waiting for a pipeline slot"))
				return nil
			}
			defer o.limiter.Release(1)
			results[i] = o.runOne(ctx, doc)
			return nil
		})
	}
	_ = eg.Wait()
	return results
}

// runOne runs one pipeline, turning a panic into a FAILED outcome.
func (o *Orchestrator) runOne(ctx context.Context, doc models.DocumentContractState) (out outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Pipeline panicked", "recordId", doc.RecordID, "panic", r)
			out = o.finish(ctx, doc, "", errors.Newf("pipeline panic: %v", r))
		}
	}()

	st := o.runner.Run(ctx, doc)
	if st.Succeeded() {
		return o.finish(ctx, doc, "", nil)
	}
	err := st.Err
	if err == nil {
		err = errors.New("pipeline did not complete")
	}
	return o.finish(ctx, doc, string(st.FailedStage), err)
}

// finish sets the final status and records it when a recorder is configured.
func (o *Orchestrator) finish(ctx context.Context, doc models.DocumentContractState, stage string, err error) outcome {
	out := outcome{doc: doc, failedStage: stage}
	out.doc.Status = models.StatusProcessed
	if err != nil {
		out.doc.Status = models.StatusFailed
		out.details = err.Error()
	}
	if o.recorder != nil {
		details := out.details
		if stage != "" {
			details = stage + ": " + details
		}
		if rerr := o.recorder.RecordStatus(ctx, out.doc, details); rerr != nil {
			slog.Error("Failed to record document status", "recordId", doc.RecordID, "error", rerr)
		}
	}
	return out
}

func (o *Orchestrator) notify(ctx context.Context, outcomes []outcome) error {
	notifications := make([]models.Notification, 0, len(outcomes))
	for _, out := range outcomes {
		notifications = append(notifications, o.notification(out))
	}
	if len(notifications) == 0 {
		return nil
	}
	if err := o.notifier.Notify(ctx, notifications); err != nil {
		return errors.Wrapf(err, "failed to notify %d documents", len(notifications))
	}
	slog.Info("Notifications dispatched.", "count", len(notifications))
	return nil
}

func (o *Orchestrator) notification(out outcome) models.Notification {
	data := map[string]any{
		"recordId": out.doc.RecordID,
		"parentId": out.doc.ParentID,
		"status":   string(out.doc.Status),
	}
	if out.doc.Status == models.StatusFailed {
		stage := out.failedStage
		if stage == "" {
			stage = "orchestrator"
		}
		data["failedStage"] = stage
		data["reason"] = out.details
	}
	return models.Notification{
		ID: uuid.NewString(),
		Message: models.NotificationMessage{
			SessionID: out.doc.SessionID,
			Type:      o.notificationType,
			Data:      data,
		},
	}
}
