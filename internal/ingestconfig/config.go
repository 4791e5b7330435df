// Package ingestconfig loads runtime configuration for the ingestion kernel
// from environment variables (optionally via a .env file), with every
// tunable falling back to a hardcoded default when unset, mirroring the
// reference implementation's env_field/Constant pattern.
package ingestconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v3"
)

// Config holds every tunable the ingestion kernel and search engine read at
// startup. Fields are grouped the way constants.py groups them: search,
// transcription, queueing, storage.
type Config struct {
	// Search
	SearchChunkCharacterLimit        int
	SearchChunksLimit                int
	SearchProcessingTimeout          time.Duration
	SearchContextExtensionCharacters int
	SearchResultLimit                int
	DeepSearchResultLimit            int
	MaxSourcesInDeepSearch            int

	// Audio transcription
	TempAudioDir           string
	AudioTranscriptionDir  string
	WhisperModelSize       string

	// Worker idle timeouts
	DownloadThreadIdleTimeout       time.Duration
	EmbedderIdleTimeout             time.Duration
	AudioTranscriptionIdleTimeout   time.Duration

	// Text processing
	ChunkCharacterLimit int

	// Data ingestion
	IngestionProcessMaxFilePaths int

	// Bulk queue
	BulkQueueFullSleepTime  time.Duration
	BulkQueueFullRetryCount int
	AsyncQueueBatchSize     int
	AsyncQueueReadSleep     time.Duration
	AsyncQueueMaxSize       int

	// Embedding / vector store
	EmbeddingSize    int
	QdrantDSN        string
	QdrantCollection string

	// App directories
	AppDir     string
	ConfigFile string
}

// appDirDefault mirrors APP_DIR's default of ~/.mcp-brag.
func appDirDefault() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".mcp-brag")
}

// Load reads Config from environment variables, first overlaying a .env
// file (if present) and then, when BRAG_CONFIG_FILE/config.yaml resolves
// to an existing file, a YAML overlay on top of that, mirroring
// common.env.load_env running ahead of constant instantiation in the
// reference implementation.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		SearchChunkCharacterLimit:        1000,
		SearchChunksLimit:                30,
		SearchProcessingTimeout:          10 * time.Second,
		SearchContextExtensionCharacters: 1000,
		SearchResultLimit:                5,
		DeepSearchResultLimit:            30,
		MaxSourcesInDeepSearch:           3,

		WhisperModelSize: "base",

		DownloadThreadIdleTimeout:     300 * time.Second,
		EmbedderIdleTimeout:           10 * time.Second,
		AudioTranscriptionIdleTimeout: 10 * time.Second,

		ChunkCharacterLimit: 1500,

		IngestionProcessMaxFilePaths: 100,

		BulkQueueFullSleepTime:  100 * time.Millisecond,
		BulkQueueFullRetryCount: 100,
		AsyncQueueBatchSize:     100,
		AsyncQueueReadSleep:     50 * time.Millisecond,
		AsyncQueueMaxSize:       100000,

		EmbeddingSize: 384,
	}

	cfg.AppDir = firstNonEmpty(strings.TrimSpace(os.Getenv("MCP_RAG_APP_DIR")), appDirDefault())
	cfg.ConfigFile = firstNonEmpty(strings.TrimSpace(os.Getenv("BRAG_CONFIG_FILE")), filepath.Join(cfg.AppDir, "config.yaml"))
	cfg.TempAudioDir = filepath.Join(cfg.AppDir, "temp_audio")
	cfg.AudioTranscriptionDir = filepath.Join(cfg.AppDir, "audio_transcriptions")

	if v := strings.TrimSpace(os.Getenv("SEARCH_CHUNK_CHARACTER_LIMIT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.SearchChunkCharacterLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEARCH_CHUNKS_LIMIT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.SearchChunksLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEARCH_PROCESSING_TIMEOUT_SECONDS")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.SearchProcessingTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEARCH_CONTEXT_EXTENSION_CHARACTERS")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.SearchContextExtensionCharacters = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEARCH_RESULT_LIMIT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.SearchResultLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("DEEP_SEARCH_RESULT_LIMIT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.DeepSearchResultLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_SOURCES_IN_DEEP_SEARCH")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.MaxSourcesInDeepSearch = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("TEMP_AUDIO_DIR")); v != "" {
		cfg.TempAudioDir = v
	}
	if v := strings.TrimSpace(os.Getenv("AUDIO_TRANSCRIPTION_DIR")); v != "" {
		cfg.AudioTranscriptionDir = v
	}
	if v := strings.TrimSpace(os.Getenv("WHISPER_MODEL_SIZE")); v != "" {
		cfg.WhisperModelSize = v
	}

	if v := strings.TrimSpace(os.Getenv("DOWNLOAD_THREAD_IDLE_TIMEOUT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.DownloadThreadIdleTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("EMBEDDER_IDLE_TIMEOUT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.EmbedderIdleTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("AUDIO_TRANSCRIPTION_IDLE_TIMEOUT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.AudioTranscriptionIdleTimeout = time.Duration(n) * time.Second
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHUNK_CHARACTER_LIMIT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.ChunkCharacterLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("INGESTION_PROCESS_MAX_FILE_PATHS")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.IngestionProcessMaxFilePaths = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("BULK_QUEUE_FULL_SLEEP_TIME")); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.BulkQueueFullSleepTime = time.Duration(f * float64(time.Second))
		}
	}
	if v := strings.TrimSpace(os.Getenv("BULK_QUEUE_FULL_RETRY_COUNT")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.BulkQueueFullRetryCount = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ASYNC_QUEUE_BATCH_SIZE")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.AsyncQueueBatchSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ASYNC_QUEUE_READ_SLEEP")); v != "" {
		if f, err := parseFloat(v); err == nil {
			cfg.AsyncQueueReadSleep = time.Duration(f * float64(time.Millisecond))
		}
	}
	if v := strings.TrimSpace(os.Getenv("ASYNC_QUEUE_MAX_SIZE")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.AsyncQueueMaxSize = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("EMBEDDING_SIZE")); v != "" {
		if n, err := parseInt(v); err == nil {
			cfg.EmbeddingSize = n
		}
	}
	cfg.QdrantDSN = strings.TrimSpace(os.Getenv("QDRANT_DSN"))
	cfg.QdrantCollection = firstNonEmpty(strings.TrimSpace(os.Getenv("QDRANT_COLLECTION")), "brag")

	if err := applyYAMLOverlay(&cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// overlay is the subset of Config fields that may also come from
// ConfigFile, keyed the way a hand-edited config.yaml would name them.
type overlay struct {
	Search struct {
		ChunkCharacterLimit        *int `yaml:"chunkCharacterLimit"`
		ChunksLimit                *int `yaml:"chunksLimit"`
		ProcessingTimeoutSeconds   *int `yaml:"processingTimeoutSeconds"`
		ContextExtensionCharacters *int `yaml:"contextExtensionCharacters"`
		ResultLimit                *int `yaml:"resultLimit"`
	} `yaml:"search"`
	Embedding struct {
		Size int `yaml:"size"`
	} `yaml:"embedding"`
	Qdrant struct {
		DSN        string `yaml:"dsn"`
		Collection string `yaml:"collection"`
	} `yaml:"qdrant"`
}

// applyYAMLOverlay merges cfg.ConfigFile on top of cfg when the file
// exists, env values taking precedence over what was already set (so a
// value present in both the YAML file and the environment keeps the env
// value, matching load_env running before the reference's Constant values
// are read).
func applyYAMLOverlay(cfg *Config) error {
	data, err := os.ReadFile(cfg.ConfigFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", cfg.ConfigFile, err)
	}

	data = []byte(os.ExpandEnv(string(data)))
	var w overlay
	if err := yaml.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("%s: could not parse configuration: %w", cfg.ConfigFile, err)
	}

	if os.Getenv("SEARCH_CHUNK_CHARACTER_LIMIT") == "" && w.Search.ChunkCharacterLimit != nil {
		cfg.SearchChunkCharacterLimit = *w.Search.ChunkCharacterLimit
	}
	if os.Getenv("SEARCH_CHUNKS_LIMIT") == "" && w.Search.ChunksLimit != nil {
		cfg.SearchChunksLimit = *w.Search.ChunksLimit
	}
	if os.Getenv("SEARCH_PROCESSING_TIMEOUT_SECONDS") == "" && w.Search.ProcessingTimeoutSeconds != nil {
		cfg.SearchProcessingTimeout = time.Duration(*w.Search.ProcessingTimeoutSeconds) * time.Second
	}
	if os.Getenv("SEARCH_CONTEXT_EXTENSION_CHARACTERS") == "" && w.Search.ContextExtensionCharacters != nil {
		cfg.SearchContextExtensionCharacters = *w.Search.ContextExtensionCharacters
	}
	if os.Getenv("SEARCH_RESULT_LIMIT") == "" && w.Search.ResultLimit != nil {
		cfg.SearchResultLimit = *w.Search.ResultLimit
	}
	if os.Getenv("EMBEDDING_SIZE") == "" && w.Embedding.Size != 0 {
		cfg.EmbeddingSize = w.Embedding.Size
	}
	if os.Getenv("QDRANT_DSN") == "" && w.Qdrant.DSN != "" {
		cfg.QdrantDSN = w.Qdrant.DSN
	}
	if os.Getenv("QDRANT_COLLECTION") == "" && w.Qdrant.Collection != "" {
		cfg.QdrantCollection = w.Qdrant.Collection
	}

	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func parseInt(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}
