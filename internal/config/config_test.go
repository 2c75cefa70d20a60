package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PROJECT_ID", "compliance-dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "compliance-dev", cfg.ProjectID)
	assert.Equal(t, "cartas_fmv/", cfg.Source.Prefix)
	assert.Equal(t, []string{"ADENDA ACTUAL", "DESEMBOLSADOS"}, cfg.Extraction.TableKeywords)
	assert.Equal(t, []string{"monto", "importe"}, cfg.Transform.AmountKeywords)
	assert.Equal(t, []string{"N°"}, cfg.Transform.DropColumns)
	assert.Equal(t, 5*time.Second, cfg.Analysis.PollInterval)
	assert.Equal(t, 120, cfg.Analysis.PollMaxAttempts)
	assert.Equal(t, BackendFirestore, cfg.Store.Backend)
	assert.False(t, cfg.Extraction.BroadcastSpans)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("TABLE_KEYWORDS", "RESUMEN DE MONTOS, desembolsos ")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("BROADCAST_SPANS", "true")
	t.Setenv("METADATA_BACKEND", "SQLite")
	t.Setenv("BATCH_SIZE", "3")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"RESUMEN DE MONTOS", "desembolsos"}, cfg.Extraction.TableKeywords)
	assert.Equal(t, 250*time.Millisecond, cfg.Analysis.PollInterval)
	assert.True(t, cfg.Extraction.BroadcastSpans)
	assert.Equal(t, BackendSQLite, cfg.Store.Backend)
	assert.Equal(t, 3, cfg.Orchestrator.BatchSize)
	assert.Equal(t, "9090", cfg.Port)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etl.yaml")
	content := []byte("project_id: from-file\nsource_bucket: letters\namount_keywords:\n  - monto\n  - saldo\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.ProjectID)
	assert.Equal(t, "letters", cfg.Source.Bucket)
	assert.Equal(t, []string{"monto", "saldo"}, cfg.Transform.AmountKeywords)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			ProjectID: "p",
			Source:    SourceConfig{Bucket: "letters"},
			Analysis: AnalysisConfig{
				OutputBucket:    "analysis",
				PollInterval:    time.Second,
				PollMaxAttempts: 3,
			},
			Transform:    TransformConfig{AmountKeywords: []string{"monto"}},
			Store:        StoreConfig{Backend: BackendFirestore, MetadataCollection: "bank_guarantees"},
			Orchestrator: OrchestratorConfig{BatchSize: 1, MaxConcurrency: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing project", mutate: func(c *Config) { c.ProjectID = "" }, wantErr: "PROJECT_ID"},
		{name: "missing bucket", mutate: func(c *Config) { c.Source.Bucket = "" }, wantErr: "SOURCE_BUCKET"},
		{name: "zero poll attempts", mutate: func(c *Config) { c.Analysis.PollMaxAttempts = 0 }, wantErr: "POLL_MAX_ATTEMPTS"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Orchestrator.MaxConcurrency = 0 }, wantErr: "MAX_CONCURRENCY"},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "dynamo" }, wantErr: "METADATA_BACKEND"},
		{name: "sqlite without path", mutate: func(c *Config) { c.Store.Backend = BackendSQLite }, wantErr: "SQLITE_PATH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
