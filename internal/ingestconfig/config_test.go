package ingestconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		old, had := os.LookupEnv(k)
		os.Unsetenv(k)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t,
		"SEARCH_CHUNK_CHARACTER_LIMIT", "SEARCH_RESULT_LIMIT", "EMBEDDING_SIZE",
		"BRAG_CONFIG_FILE", "MCP_RAG_APP_DIR", "QDRANT_DSN", "QDRANT_COLLECTION",
	)
	os.Setenv("MCP_RAG_APP_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1000, cfg.SearchChunkCharacterLimit)
	require.Equal(t, 30, cfg.SearchChunksLimit)
	require.Equal(t, 5, cfg.SearchResultLimit)
	require.Equal(t, 384, cfg.EmbeddingSize)
	require.Equal(t, 10*time.Second, cfg.SearchProcessingTimeout)
	require.Equal(t, "brag", cfg.QdrantCollection)
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	clearEnv(t, "SEARCH_RESULT_LIMIT", "EMBEDDING_SIZE", "BRAG_CONFIG_FILE", "MCP_RAG_APP_DIR")
	os.Setenv("MCP_RAG_APP_DIR", t.TempDir())
	os.Setenv("SEARCH_RESULT_LIMIT", "12")
	os.Setenv("EMBEDDING_SIZE", "256")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 12, cfg.SearchResultLimit)
	require.Equal(t, 256, cfg.EmbeddingSize)
}

func TestLoad_YAMLOverlayAppliesWhenEnvUnset(t *testing.T) {
	clearEnv(t, "SEARCH_RESULT_LIMIT", "BRAG_CONFIG_FILE", "MCP_RAG_APP_DIR", "QDRANT_COLLECTION")
	dir := t.TempDir()
	os.Setenv("MCP_RAG_APP_DIR", dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  resultLimit: 7\nqdrant:\n  collection: notes\n"), 0o644))
	os.Setenv("BRAG_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 7, cfg.SearchResultLimit)
	require.Equal(t, "notes", cfg.QdrantCollection)
}

func TestLoad_EnvWinsOverYAMLOverlay(t *testing.T) {
	clearEnv(t, "SEARCH_RESULT_LIMIT", "BRAG_CONFIG_FILE", "MCP_RAG_APP_DIR")
	dir := t.TempDir()
	os.Setenv("MCP_RAG_APP_DIR", dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  resultLimit: 7\n"), 0o644))
	os.Setenv("BRAG_CONFIG_FILE", path)
	os.Setenv("SEARCH_RESULT_LIMIT", "99")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 99, cfg.SearchResultLimit)
}

func TestLoad_MissingConfigFileIsOptional(t *testing.T) {
	clearEnv(t, "BRAG_CONFIG_FILE", "MCP_RAG_APP_DIR")
	os.Setenv("MCP_RAG_APP_DIR", t.TempDir())

	_, err := Load()
	require.NoError(t, err)
}
