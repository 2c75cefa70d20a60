package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/cockroachdb/errors"
	"google.golang.org/api/iterator"

	"github.com/Lllllllleong/bankguaranteeflow/internal/models"
	"github.com/Lllllllleong/bankguaranteeflow/internal/services"
)

// WorkflowAnalysisConfig addresses the analysis workflow and the bucket it writes results to.
type WorkflowAnalysisConfig struct {
	ProjectID        string
	WorkflowLocation string
	WorkflowID       string
	OutputBucket     string
	OutputPrefix     string
}

// WorkflowAnalysis runs document analysis as a Cloud Workflows execution. The workflow writes
// its result as numbered JSON shards under <OutputPrefix>/<execution id>/, each holding
// {"Blocks": [...]}. Shard names double as continuation tokens.
type WorkflowAnalysis struct {
	executionsClient *executions.Client
	storageClient    *storage.Client
	config           WorkflowAnalysisConfig
}

func NewWorkflowAnalysis(executionsClient *executions.Client, storageClient *storage.Client, config WorkflowAnalysisConfig) *WorkflowAnalysis {
	return &WorkflowAnalysis{
		executionsClient: executionsClient,
		storageClient:    storageClient,
		config:           config,
	}
}

// workflowArgument is the execution argument the analysis workflow expects.
type workflowArgument struct {
	Bucket       string         `json:"bucket"`
	Key          string         `json:"key"`
	Features     []string       `json:"features"`
	Queries      []models.Query `json:"queries"`
	OutputBucket string         `json:"outputBucket"`
	OutputPrefix string         `json:"outputPrefix"`
}

// workflowResult is the optional JSON result of a finished execution.
type workflowResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type resultShard struct {
	Blocks []models.Block `json:"Blocks"`
}

// StartAnalysis creates an execution and returns its resource name as the job id.
func (w *WorkflowAnalysis) StartAnalysis(ctx context.Context, req services.AnalysisRequest) (string, error) {
	payload, err := json.Marshal(workflowArgument{
		Bucket:       req.Bucket,
		Key:          req.Key,
		Features:     req.Features,
		Queries:      req.Queries,
		OutputBucket: w.config.OutputBucket,
		OutputPrefix: w.config.OutputPrefix,
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal workflow payload")
	}
	exec, err := w.executionsClient.CreateExecution(ctx, &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", w.config.ProjectID, w.config.WorkflowLocation, w.config.WorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to trigger workflow execution")
	}
	slog.Info("Workflow execution created.", "execution", exec.GetName(), "gcsObject", req.Key)
	return exec.GetName(), nil
}

// GetAnalysis returns the job status with the first result shard when nextToken is empty, or
// the shard named by nextToken otherwise.
func (w *WorkflowAnalysis) GetAnalysis(ctx context.Context, jobID, nextToken string) (*services.AnalysisPage, error) {
	status := services.JobSucceeded
	message := ""
	if nextToken == "" {
		exec, err := w.executionsClient.GetExecution(ctx, &executionspb.GetExecutionRequest{Name: jobID})
		if err != nil {
			return nil, errors.Wrapf(err, "failed to get execution %s", jobID)
		}
		status, message = executionStatus(exec)
		if status != services.JobSucceeded && status != services.JobPartialSuccess {
			return &services.AnalysisPage{Status: status, Message: message}, nil
		}
	}

	current, next, err := w.shardWindow(ctx, shardPrefix(w.config.OutputPrefix, jobID), nextToken)
	if err != nil {
		return nil, err
	}
	page := &services.AnalysisPage{Status: status, Message: message, NextToken: next}
	if current == "" {
		return page, nil
	}

	var shard resultShard
	if err := readJSON(ctx, w.storageClient, w.config.OutputBucket, current, &shard); err != nil {
		if isNotFound(err) {
			return nil, errors.Wrapf(err, "result shard %s disappeared", current)
		}
		return nil, err
	}
	page.Blocks = shard.Blocks
	return page, nil
}

// shardWindow returns the shard at or after from and the one following it, in lexical order.
func (w *WorkflowAnalysis) shardWindow(ctx context.Context, prefix, from string) (current, next string, err error) {
	it := w.storageClient.Bucket(w.config.OutputBucket).Objects(ctx, &storage.Query{Prefix: prefix, StartOffset: from})
	var names []string
	for len(names) < 2 {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return "", "", errors.Wrapf(err, "failed to list result shards under %s", prefix)
		}
		if strings.HasSuffix(attrs.Name, ".json") {
			names = append(names, attrs.Name)
		}
	}
	switch len(names) {
	case 0:
		if from != "" {
			return "", "", errors.Newf("result shard %s not found", from)
		}
		return "", "", nil
	case 1:
		return names[0], "", nil
	default:
		return names[0], names[1], nil
	}
}

// shardPrefix is the folder holding the result shards of an execution.
func shardPrefix(outputPrefix, executionName string) string {
	return strings.TrimSuffix(outputPrefix, "/") + "/" + path.Base(executionName) + "/"
}

func executionStatus(exec *executionspb.Execution) (services.JobStatus, string) {
	switch exec.GetState() {
	case executionspb.Execution_SUCCEEDED:
		var result workflowResult
		if exec.GetResult() != "" && json.Unmarshal([]byte(exec.GetResult()), &result) == nil &&
			services.JobStatus(result.Status) == services.JobPartialSuccess {
			return services.JobPartialSuccess, result.Message
		}
		return services.JobSucceeded, ""
	case executionspb.Execution_FAILED:
		return services.JobFailed, exec.GetError().GetPayload()
	case executionspb.Execution_CANCELLED:
		return services.JobFailed, "execution cancelled"
	default:
		return services.JobInProgress, ""
	}
}
