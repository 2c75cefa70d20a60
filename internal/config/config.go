// Package config builds the application configuration once at startup. Values come from
// defaults, an optional config file named by CONFIG_FILE, and environment variables, in
// increasing order of precedence.
package config

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

const (
	BackendFirestore = "firestore"
	BackendSQLite    = "sqlite"
)

// Config holds all application configuration.
type Config struct {
	ProjectID    string
	Port         string
	Source       SourceConfig
	Analysis     AnalysisConfig
	Extraction   ExtractionConfig
	Transform    TransformConfig
	Store        StoreConfig
	Notification NotificationConfig
	Orchestrator OrchestratorConfig
}

// SourceConfig locates the scanned letters.
type SourceConfig struct {
	Bucket    string
	Prefix    string
	Extension string
}

// AnalysisConfig drives the analysis job and its polling.
type AnalysisConfig struct {
	OutputBucket     string
	OutputPrefix     string
	WorkflowLocation string
	WorkflowID       string
	PollInterval     time.Duration
	PollMaxAttempts  int
	MaxPages         int
	PreflightEnabled bool
}

// ExtractionConfig holds the layout heuristics for bank-guarantee letters.
type ExtractionConfig struct {
	AnchorPhrase   string
	TableKeywords  []string
	TablePage      int
	BroadcastSpans bool
	PromotorAlias  string
	ProjectAlias   string
}

// TransformConfig selects the amount columns.
type TransformConfig struct {
	AmountKeywords []string
	DropColumns    []string
}

// StoreConfig selects the metadata backend.
type StoreConfig struct {
	Backend             string
	MetadataCollection  string
	DocumentsCollection string
	SQLitePath          string
}

// NotificationConfig addresses the notification sink.
type NotificationConfig struct {
	Sink   string
	Type   string
	Source string
}

// OrchestratorConfig bounds batch execution.
type OrchestratorConfig struct {
	BatchSize      int
	MaxConcurrency int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("source_prefix", "cartas_fmv/")
	v.SetDefault("source_extension", "pdf")
	v.SetDefault("analysis_output_prefix", "analysis")
	v.SetDefault("workflow_location", "us-central1")
	v.SetDefault("workflow_id", "document-analysis")
	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("poll_max_attempts", 120)
	v.SetDefault("analysis_max_pages", 1000)
	v.SetDefault("preflight_enabled", true)
	v.SetDefault("anchor_phrase", "carta n°")
	v.SetDefault("table_keywords", "ADENDA ACTUAL,DESEMBOLSADOS")
	v.SetDefault("table_page", 1)
	v.SetDefault("broadcast_spans", false)
	v.SetDefault("promotor_alias", "Promotor")
	v.SetDefault("project_alias", "Project")
	v.SetDefault("amount_keywords", "monto,importe")
	v.SetDefault("drop_columns", "N°")
	v.SetDefault("metadata_backend", BackendFirestore)
	v.SetDefault("metadata_collection", "bank_guarantees")
	v.SetDefault("documents_collection", "documents")
	v.SetDefault("sqlite_path", "bank_guarantees.db")
	v.SetDefault("notification_type", "regulatory-compliance-prompts.insert-metadata")
	v.SetDefault("notification_source", "/bank-guarantee-etl")
	v.SetDefault("batch_size", 10)
	v.SetDefault("max_concurrency", 4)
}

// Load reads the configuration. It does not validate it; call Validate before use.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if file := v.GetString("config_file"); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", file)
		}
	}
	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		ProjectID: v.GetString("project_id"),
		Port:      v.GetString("port"),
		Source: SourceConfig{
			Bucket:    v.GetString("source_bucket"),
			Prefix:    v.GetString("source_prefix"),
			Extension: v.GetString("source_extension"),
		},
		Analysis: AnalysisConfig{
			OutputBucket:     v.GetString("analysis_output_bucket"),
			OutputPrefix:     v.GetString("analysis_output_prefix"),
			WorkflowLocation: v.GetString("workflow_location"),
			WorkflowID:       v.GetString("workflow_id"),
			PollInterval:     v.GetDuration("poll_interval"),
			PollMaxAttempts:  v.GetInt("poll_max_attempts"),
			MaxPages:         v.GetInt("analysis_max_pages"),
			PreflightEnabled: v.GetBool("preflight_enabled"),
		},
		Extraction: ExtractionConfig{
			AnchorPhrase:   v.GetString("anchor_phrase"),
			TableKeywords:  stringList(v, "table_keywords"),
			TablePage:      v.GetInt("table_page"),
			BroadcastSpans: v.GetBool("broadcast_spans"),
			PromotorAlias:  v.GetString("promotor_alias"),
			ProjectAlias:   v.GetString("project_alias"),
		},
		Transform: TransformConfig{
			AmountKeywords: stringList(v, "amount_keywords"),
			DropColumns:    stringList(v, "drop_columns"),
		},
		Store: StoreConfig{
			Backend:             strings.ToLower(v.GetString("metadata_backend")),
			MetadataCollection:  v.GetString("metadata_collection"),
			DocumentsCollection: v.GetString("documents_collection"),
			SQLitePath:          v.GetString("sqlite_path"),
		},
		Notification: NotificationConfig{
			Sink:   v.GetString("notification_sink"),
			Type:   v.GetString("notification_type"),
			Source: v.GetString("notification_source"),
		},
		Orchestrator: OrchestratorConfig{
			BatchSize:      v.GetInt("batch_size"),
			MaxConcurrency: v.GetInt("max_concurrency"),
		},
	}
}

// stringList reads a list that may come from a file (a real list) or from the environment
// (comma separated). Items keep inner spaces, e.g. "ADENDA ACTUAL".
func stringList(v *viper.Viper, key string) []string {
	var raw []string
	switch val := v.Get(key).(type) {
	case []string:
		raw = val
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok {
				raw = append(raw, s)
			}
		}
	case string:
		raw = strings.Split(val, ",")
	}

	out := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks the settings every backend needs and those of the selected store.
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return errors.New("PROJECT_ID environment variable must be set")
	}
	if c.Source.Bucket == "" {
		return errors.New("SOURCE_BUCKET environment variable must be set")
	}
	if c.Analysis.OutputBucket == "" {
		return errors.New("ANALYSIS_OUTPUT_BUCKET environment variable must be set")
	}
	if c.Analysis.PollInterval <= 0 || c.Analysis.PollMaxAttempts <= 0 {
		return errors.Newf("POLL_INTERVAL and POLL_MAX_ATTEMPTS must be positive (got %s, %d)",
			c.Analysis.PollInterval, c.Analysis.PollMaxAttempts)
	}
	if c.Orchestrator.BatchSize <= 0 || c.Orchestrator.MaxConcurrency <= 0 {
		return errors.Newf("BATCH_SIZE and MAX_CONCURRENCY must be positive (got %d, %d)",
			c.Orchestrator.BatchSize, c.Orchestrator.MaxConcurrency)
	}
	if len(c.Transform.AmountKeywords) == 0 {
		return errors.New("AMOUNT_KEYWORDS must not be empty")
	}
	switch c.Store.Backend {
	case BackendFirestore:
		if c.Store.MetadataCollection == "" {
			return errors.New("METADATA_COLLECTION must be set for the firestore backend")
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("SQLITE_PATH must be set for the sqlite backend")
		}
	default:
		return errors.Newf("unknown METADATA_BACKEND %q", c.Store.Backend)
	}
	return nil
}
