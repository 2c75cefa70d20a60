package services

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
	"github.com/Lllllllleong/bankguaranteeflow/internal/normalize"
)

// Stage names one step of the document pipeline.
type Stage string

const (
	StageExtract   Stage = "extract"
	StageTransform Stage = "transform"
	StageLoad      Stage = "load"
	StageFinalize  Stage = "finalize"
)

// errUpstream marks a gated stage that did not run its work because an earlier stage failed.
var errUpstream = errors.New("skipped: upstream stage failed")

// entityNamespace scopes the deterministic entity ids.
var entityNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bank-guarantee-etl/entities"))

// State is the accumulator threaded through the stages of one pipeline run. Stages receive a
// copy and return the updated copy.
type State struct {
	Document models.DocumentContractState

	Extracted   bool
	Transformed bool
	Loaded      bool

	Promotor    *string
	DateText    *string
	LetterText  *string
	ProjectText *string
	Grid        models.Grid

	LetterDate *string
	Amounts    models.FinancialMetadata

	// FailedStage and Err describe the first failure, if any.
	FailedStage Stage
	Err         error
}

// Succeeded reports whether every gated stage completed.
func (s State) Succeeded() bool {
	return s.Extracted && s.Transformed && s.Loaded
}

func (s State) fail(stage Stage, err error) State {
	if s.Err == nil {
		s.FailedStage = stage
		s.Err = err
	}
	return s
}

type stage struct {
	name Stage
	run  func(context.Context, State) State
}

// Pipeline runs the linear extract, transform, load and finalize stages for one document.
// Every stage always executes; gated stages check the flag of their predecessor and skip
// their port calls when it is unset.
type Pipeline struct {
	analyzer DocumentAnalyzer
	store    MetadataStore
	amounts  *normalize.AmountNormalizer
	stages   []stage
}

// NewPipeline wires a pipeline from its ports.
func NewPipeline(analyzer DocumentAnalyzer, store MetadataStore, amounts *normalize.AmountNormalizer) *Pipeline {
	p := &Pipeline{analyzer: analyzer, store: store, amounts: amounts}
	p.stages = []stage{
		{StageExtract, p.extract},
		{StageTransform, p.transform},
		{StageLoad, p.load},
		{StageFinalize, p.finalize},
	}
	return p
}

// Run executes every stage in order and returns the final accumulator.
func (p *Pipeline) Run(ctx context.Context, doc models.DocumentContractState) State {
	logCtx := slog.With("recordId", doc.RecordID, "key", doc.Key)
	st := State{Document: doc}
	for _, s := range p.stages {
		st = s.run(ctx, st)
	}
	if st.Err != nil {
		logCtx.Warn("Pipeline finished with a failed stage.", "stage", st.FailedStage, "error", st.Err)
	} else {
		logCtx.Info("Pipeline finished.")
	}
	return st
}

func (p *Pipeline) extract(ctx context.Context, st State) State {
	res, err := p.analyzer.Extract(ctx, st.Document)
	if err != nil {
		return st.fail(StageExtract, err)
	}
	if res == nil {
		return st.fail(StageExtract, ErrNoValue)
	}
	st.Promotor = res.PromotorText
	st.DateText = res.DateText
	st.LetterText = res.LetterText
	st.ProjectText = res.ProjectText
	st.Grid = res.Grid
	st.Extracted = true
	return st
}

func (p *Pipeline) transform(_ context.Context, st State) State {
	if !st.Extracted {
		return st.fail(StageTransform, errUpstream)
	}
	amounts, err := p.amounts.Normalize(st.Grid.Rows)
	if err != nil {
		return st.fail(StageTransform, errors.Wrapf(err, "grid on page %d", st.Grid.Page))
	}
	st.Amounts = amounts

	if st.DateText != nil {
		date := *st.DateText
		if normalized, ok := normalize.LetterDate(date); ok {
			date = normalized
		}
		st.LetterDate = &date
	}
	st.Transformed = true
	return st
}

func (p *Pipeline) load(ctx context.Context, st State) State {
	if !st.Transformed {
		return st.fail(StageLoad, errUpstream)
	}
	if err := p.store.Save(ctx, buildEntity(st)); err != nil {
		return st.fail(StageLoad, errors.Wrap(err, "failed to save entity"))
	}
	st.Loaded = true
	return st
}

func (p *Pipeline) finalize(_ context.Context, st State) State {
	return st
}

// EntityID is the deterministic id of the entity stored for a document, so reruns overwrite.
func EntityID(doc models.DocumentContractState) string {
	return uuid.NewSHA1(entityNamespace, []byte(doc.RecordID+"/"+doc.Key)).String()
}

func buildEntity(st State) models.BankGuaranteeEntity {
	doc := st.Document
	return models.BankGuaranteeEntity{
		ID:                  EntityID(doc),
		SupervisoryRecordID: doc.RecordID,
		PeriodMonth:         doc.PeriodMonth,
		PeriodYear:          doc.PeriodYear,
		Metadata: models.BankGuaranteeMetadata{
			LetterDate:      deref(st.LetterDate),
			DisbursedAmount: normalize.FormatAmount(st.Amounts.DisbursedAmount),
			ReducedAmount:   normalize.FormatAmount(st.Amounts.ReducedAmount),
			TotalAmount:     normalize.FormatAmount(st.Amounts.TotalAmount),
			LetterText:      deref(st.LetterText),
			ProjectText:     deref(st.ProjectText),
			Promotor:        deref(st.Promotor),
			FileName:        doc.Key,
			TypeDocument:    doc.DocumentType.Label(),
			PeriodMonth:     doc.PeriodMonth,
			PeriodYear:      doc.PeriodYear,
		},
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
