package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Index.Driver)
	assert.Equal(t, "finsight.db", cfg.Index.SQLitePath)
	assert.Equal(t, 3, cfg.Pipeline.MaxRetries)
	assert.Equal(t, 10, cfg.Pipeline.TopK)
	assert.InDelta(t, 0.1, cfg.Pipeline.SimilarityThreshold, 1e-9)
	assert.Equal(t, 1200, cfg.Ingest.ChunkSize)
	assert.Equal(t, 200, cfg.Ingest.ChunkOverlap)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("FINSIGHT_PIPELINE_TOP_K", "25")
	t.Setenv("FINSIGHT_INDEX_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Pipeline.TopK)
	assert.Equal(t, "postgres", cfg.Index.Driver)
}

func TestValidate_QueryScope(t *testing.T) {
	cfg := &Config{}
	cfg.Index.Driver = "sqlite"

	err := cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key")

	cfg.Anthropic.Key = "sk-test"
	err = cfg.Validate("query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embeddings.key")

	cfg.Embeddings.Key = "ek-test"
	assert.NoError(t, cfg.Validate("query"))
}

func TestValidate_IngestScopeSkipsAnthropicKey(t *testing.T) {
	cfg := &Config{}
	cfg.Index.Driver = "sqlite"
	cfg.Embeddings.Key = "ek-test"

	assert.NoError(t, cfg.Validate("ingest"))
}

func TestValidate_PostgresNeedsDatabaseURL(t *testing.T) {
	cfg := &Config{}
	cfg.Index.Driver = "postgres"
	cfg.Embeddings.Key = "ek-test"

	err := cfg.Validate("ingest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")

	cfg.Index.DatabaseURL = "postgres://localhost/finsight"
	assert.NoError(t, cfg.Validate("ingest"))
}
