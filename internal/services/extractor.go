package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/Lllllllleong/bankguaranteeflow/internal/blocks"
	"github.com/Lllllllleong/bankguaranteeflow/internal/config"
	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

// Analysis features requested for every letter.
var analysisFeatures = []string{"TABLES", "QUERIES"}

// Extractor implements DocumentAnalyzer on top of an asynchronous AnalysisService: it starts a
// job, polls until the job is terminal, collects every result page and resolves the letter
// fields from the resulting block graph.
type Extractor struct {
	analysis    AnalysisService
	preflight   Preflight
	bucket      string
	analysisCfg config.AnalysisConfig
	extraction  config.ExtractionConfig
}

// NewExtractor wires an extractor. preflight may be nil.
func NewExtractor(analysis AnalysisService, preflight Preflight, cfg *config.Config) *Extractor {
	return &Extractor{
		analysis:    analysis,
		preflight:   preflight,
		bucket:      cfg.Source.Bucket,
		analysisCfg: cfg.Analysis,
		extraction:  cfg.Extraction,
	}
}

// Extract runs the analysis of one document and resolves its fields. Fields that cannot be
// located are left nil; only job-level problems are returned as errors.
func (e *Extractor) Extract(ctx context.Context, doc models.DocumentContractState) (*models.ExtractionResult, error) {
	logCtx := slog.With("recordId", doc.RecordID, "key", doc.Key)

	if e.preflight != nil {
		if err := e.preflight.Check(ctx, doc.Key); err != nil {
			return nil, errors.Mark(errors.Wrapf(err, "preflight %s", doc.Key), ErrPreflight)
		}
	}

	jobID, err := e.analysis.StartAnalysis(ctx, e.request(doc.Key))
	if err != nil {
		return nil, errors.Wrap(err, "failed to start analysis")
	}
	logCtx = logCtx.With("jobId", jobID)
	logCtx.Info("Analysis job started.")

	raw, err := e.collect(ctx, logCtx, jobID)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, errors.Wrapf(ErrNoValue, "job %s returned no blocks", jobID)
	}
	if err := models.NormalizeBlocks(raw); err != nil {
		return nil, errors.Wrapf(err, "job %s", jobID)
	}

	g := blocks.NewGraph(raw)
	result := e.resolve(g)
	logCtx.Info("Fields resolved.",
		"blocks", g.Len(),
		"hasDate", result.DateText != nil,
		"hasPromotor", result.PromotorText != nil,
		"hasTable", !result.Grid.Empty(),
		"gridRows", len(result.Grid.Rows),
		"gridColumns", result.Grid.Width())
	return result, nil
}

func (e *Extractor) request(key string) AnalysisRequest {
	pages := []string{"1"}
	return AnalysisRequest{
		Bucket:   e.bucket,
		Key:      key,
		Features: analysisFeatures,
		Queries: []models.Query{
			{Text: "Who is the promotor?", Alias: e.extraction.PromotorAlias, Pages: pages},
			{Text: "What is the project name?", Alias: e.extraction.ProjectAlias, Pages: pages},
		},
	}
}

// collect polls the job until it leaves IN_PROGRESS, then follows continuation tokens and
// returns every block in page order.
func (e *Extractor) collect(ctx context.Context, logCtx *slog.Logger, jobID string) ([]models.Block, error) {
	page, err := e.poll(ctx, jobID)
	if err != nil {
		return nil, err
	}
	switch page.Status {
	case JobSucceeded:
	case JobPartialSuccess:
		logCtx.Warn("Analysis job partially succeeded.", "message", page.Message)
	default:
		return nil, errors.Wrapf(ErrAnalysisFailed, "job %s: status %s: %s", jobID, page.Status, page.Message)
	}

	all := append([]models.Block(nil), page.Blocks...)
	seen := map[string]bool{}
	for pages := 1; page.NextToken != ""; pages++ {
		if seen[page.NextToken] {
			return nil, errors.Newf("job %s: continuation token %q repeated", jobID, page.NextToken)
		}
		if e.analysisCfg.MaxPages > 0 && pages >= e.analysisCfg.MaxPages {
			return nil, errors.Newf("job %s: more than %d result pages", jobID, e.analysisCfg.MaxPages)
		}
		seen[page.NextToken] = true

		page, err = e.analysis.GetAnalysis(ctx, jobID, page.NextToken)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read result page of job %s", jobID)
		}
		all = append(all, page.Blocks...)
	}
	return all, nil
}

// poll waits a fixed interval between status reads and gives up after PollMaxAttempts reads.
func (e *Extractor) poll(ctx context.Context, jobID string) (*AnalysisPage, error) {
	for attempt := 1; ; attempt++ {
		page, err := e.analysis.GetAnalysis(ctx, jobID, "")
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get status of job %s", jobID)
		}
		if page.Status != JobInProgress {
			return page, nil
		}
		if attempt >= e.analysisCfg.PollMaxAttempts {
			return nil, errors.Wrapf(ErrAnalysisTimeout, "job %s still in progress after %d polls", jobID, attempt)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(e.analysisCfg.PollInterval):
		}
	}
}

func (e *Extractor) resolve(g *blocks.Graph) *models.ExtractionResult {
	policy := blocks.SpanTopLeft
	if e.extraction.BroadcastSpans {
		policy = blocks.SpanBroadcast
	}

	anchor := blocks.FindAnchor(g, e.extraction.AnchorPhrase)
	tables := blocks.BuildTables(g, policy)
	return &models.ExtractionResult{
		DateText:     blocks.TextOf(blocks.ResolveDate(g, anchor)),
		LetterText:   blocks.TextOf(anchor),
		PromotorText: blocks.TextOf(blocks.QueryAnswer(g, e.extraction.PromotorAlias)),
		ProjectText:  blocks.TextOf(blocks.QueryAnswer(g, e.extraction.ProjectAlias)),
		Grid:         blocks.SelectTable(g, tables, e.extraction.TableKeywords, e.extraction.TablePage),
	}
}
