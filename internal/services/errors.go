package services

import "github.com/cockroachdb/errors"

var (
	// ErrNoValue means the analysis produced nothing usable for a document.
	ErrNoValue = errors.New("no value extracted")
	// ErrAnalysisFailed is returned when the analysis job ends in FAILED.
	ErrAnalysisFailed = errors.New("analysis job failed")
	// ErrAnalysisTimeout is returned when the job is still running after the configured number of polls.
	ErrAnalysisTimeout = errors.New("analysis job did not finish in time")
	// ErrPreflight is returned when the source document is rejected before analysis.
	ErrPreflight = errors.New("document rejected by preflight check")
)
