package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
)

func box(top, left, width float64) *models.Geometry {
	return &models.Geometry{BoundingBox: &models.BoundingBox{Top: top, Left: left, Width: width, Height: 0.02}}
}

func children(ids ...string) []models.Relationship {
	return []models.Relationship{{Type: models.RelationChild, IDs: ids}}
}

// letterBlocks returns a letter split over two result pages: the text and queries first, the
// amounts table second.
func letterBlocks() ([]models.Block, []models.Block) {
	first := []models.Block{
		{ID: "p1", Type: models.BlockPage},
		{ID: "l-city", Type: models.BlockLine, Text: "Lima, 12 de marzo de 2024", Geometry: box(0.10, 0.05, 0.4)},
		{ID: "l-anchor", Type: models.BlockLine, Text: "Carta N° 045-2024-FMV", Geometry: box(0.20, 0.05, 0.4)},
		{ID: "l-body", Type: models.BlockLine, Text: "Por medio de la presente", Geometry: box(0.30, 0.05, 0.6)},
		{
			ID:            "q1",
			Type:          models.BlockQuery,
			Query:         &models.Query{Text: "Who is the promotor?", Alias: "Promotor"},
			Relationships: []models.Relationship{{Type: models.RelationAnswer, IDs: []string{"qr1"}}},
		},
		{ID: "qr1", Type: models.BlockQueryResult, Text: "Inmobiliaria Los Andes S.A.C."},
		{
			ID:            "q2",
			Type:          models.BlockQuery,
			Query:         &models.Query{Text: "What is the project name?", Alias: "Project"},
			Relationships: []models.Relationship{{Type: models.RelationAnswer, IDs: []string{"qr2"}}},
		},
		{ID: "qr2", Type: models.BlockQueryResult, Text: "Residencial Miraflores"},
	}

	texts := [][]string{
		{"ADENDA ACTUAL"},
		{"Monto Desembolsado", "Importe Reducido", "Monto Total"},
		{"S/ 1,000.00", "(200.00)", "800,00"},
	}
	var second []models.Block
	var cellIDs []string
	for r, row := range texts {
		for c, text := range row {
			cellID := fmt.Sprintf("c%d%d", r, c)
			wordID := "w" + cellID
			cell := models.Block{ID: cellID, Type: models.BlockCell, RowIndex: r + 1, ColumnIndex: c + 1, Relationships: children(wordID)}
			if r == 0 {
				cell.ColumnSpan = 3
			}
			second = append(second, cell, models.Block{ID: wordID, Type: models.BlockWord, Text: text})
			cellIDs = append(cellIDs, cellID)
		}
	}
	table := models.Block{ID: "t1", Type: models.BlockTable, Relationships: children(cellIDs...)}
	return first, append([]models.Block{table}, second...)
}

func TestExtractorExtract(t *testing.T) {
	first, second := letterBlocks()
	analysis := &fakeAnalysis{
		statuses: []JobStatus{JobInProgress, JobInProgress},
		pages: map[string]*AnalysisPage{
			"":           {Status: JobSucceeded, Blocks: first, NextToken: "00001.json"},
			"00001.json": {Status: JobSucceeded, Blocks: second},
		},
	}
	ex := NewExtractor(analysis, nil, testConfig())

	res, err := ex.Extract(context.Background(), doc("r1"))
	require.NoError(t, err)

	require.NotNil(t, res.DateText)
	assert.Equal(t, "Lima, 12 de marzo de 2024", *res.DateText)
	require.NotNil(t, res.LetterText)
	assert.Equal(t, "Carta N° 045-2024-FMV", *res.LetterText)
	require.NotNil(t, res.PromotorText)
	assert.Equal(t, "Inmobiliaria Los Andes S.A.C.", *res.PromotorText)
	require.NotNil(t, res.ProjectText)
	assert.Equal(t, "Residencial Miraflores", *res.ProjectText)

	assert.Equal(t, 1, res.Grid.Page)
	assert.Equal(t, [][]string{
		{"ADENDA ACTUAL", "", ""},
		{"Monto Desembolsado", "Importe Reducido", "Monto Total"},
		{"S/ 1,000.00", "(200.00)", "800,00"},
	}, res.Grid.Rows)

	assert.Equal(t, 3, analysis.statusHits)
	assert.Equal(t, []string{"00001.json"}, analysis.tokens)
	assert.Equal(t, "letters", analysis.request.Bucket)
	assert.Equal(t, "cartas_fmv/r1.pdf", analysis.request.Key)
	assert.Equal(t, []string{"TABLES", "QUERIES"}, analysis.request.Features)
	require.Len(t, analysis.request.Queries, 2)
	assert.Equal(t, "Promotor", analysis.request.Queries[0].Alias)
	assert.Equal(t, []string{"1"}, analysis.request.Queries[0].Pages)
}

func TestExtractorTimeout(t *testing.T) {
	analysis := &fakeAnalysis{
		statuses: []JobStatus{JobInProgress, JobInProgress, JobInProgress, JobInProgress, JobInProgress, JobInProgress},
		pages:    map[string]*AnalysisPage{"": {Status: JobSucceeded}},
	}
	ex := NewExtractor(analysis, nil, testConfig())

	_, err := ex.Extract(context.Background(), doc("r1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAnalysisTimeout))
	assert.Equal(t, 5, analysis.statusHits)
}

func TestExtractorJobFailed(t *testing.T) {
	analysis := &fakeAnalysis{
		pages: map[string]*AnalysisPage{"": {Status: JobFailed, Message: "unsupported document"}},
	}
	ex := NewExtractor(analysis, nil, testConfig())

	_, err := ex.Extract(context.Background(), doc("r1"))
	assert.True(t, errors.Is(err, ErrAnalysisFailed))
}

func TestExtractorRepeatedToken(t *testing.T) {
	analysis := &fakeAnalysis{
		pages: map[string]*AnalysisPage{
			"":     {Status: JobSucceeded, Blocks: []models.Block{{ID: "p1", Type: models.BlockPage}}, NextToken: "loop"},
			"loop": {Status: JobSucceeded, NextToken: "loop"},
		},
	}
	ex := NewExtractor(analysis, nil, testConfig())

	_, err := ex.Extract(context.Background(), doc("r1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated")
}

func TestExtractorPageCap(t *testing.T) {
	analysis := &fakeAnalysis{
		pages: map[string]*AnalysisPage{
			"":   {Status: JobSucceeded, Blocks: []models.Block{{ID: "p1", Type: models.BlockPage}}, NextToken: "t2"},
			"t2": {Status: JobSucceeded, Blocks: []models.Block{{ID: "p2", Type: models.BlockPage, Page: 2}}, NextToken: "t3"},
			"t3": {Status: JobSucceeded, Blocks: []models.Block{{ID: "p3", Type: models.BlockPage, Page: 3}}},
		},
	}
	cfg := testConfig()
	cfg.Analysis.MaxPages = 2
	ex := NewExtractor(analysis, nil, cfg)

	_, err := ex.Extract(context.Background(), doc("r1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than 2 result pages")
	assert.Equal(t, []string{"t2"}, analysis.tokens)
}

func TestExtractorInvalidBlock(t *testing.T) {
	analysis := &fakeAnalysis{
		pages: map[string]*AnalysisPage{
			"": {Status: JobSucceeded, Blocks: []models.Block{
				{ID: "p1", Type: models.BlockPage},
				{ID: "q1", Type: models.BlockQuery},
			}},
		},
	}
	ex := NewExtractor(analysis, nil, testConfig())

	result, err := ex.Extract(context.Background(), doc("r1"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrInvalidBlock))
	assert.Nil(t, result)
}

func TestExtractorNoBlocks(t *testing.T) {
	analysis := &fakeAnalysis{pages: map[string]*AnalysisPage{"": {Status: JobSucceeded}}}
	ex := NewExtractor(analysis, nil, testConfig())

	_, err := ex.Extract(context.Background(), doc("r1"))
	assert.True(t, errors.Is(err, ErrNoValue))
}

type rejectingPreflight struct{}

func (rejectingPreflight) Check(context.Context, string) error { return errors.New("not a pdf") }

func TestExtractorPreflightRejects(t *testing.T) {
	analysis := &fakeAnalysis{}
	ex := NewExtractor(analysis, rejectingPreflight{}, testConfig())

	_, err := ex.Extract(context.Background(), doc("r1"))
	assert.True(t, errors.Is(err, ErrPreflight))
	assert.Empty(t, analysis.request.Key, "analysis must not start after a rejected preflight")
}

func TestExtractorStartError(t *testing.T) {
	analysis := &fakeAnalysis{startErr: errors.New("quota exceeded")}
	ex := NewExtractor(analysis, nil, testConfig())

	_, err := ex.Extract(context.Background(), doc("r1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}
