// Command ingestd wires the ingestion kernel's pipeline and search engine
// into a single long-running process, the successor to the reference
// server's FastAPI app plus its module-global GlobalDependency.
package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"brag/internal/config"
	"brag/internal/ingestapi"
	"brag/internal/ingestconfig"
	"brag/internal/ingestkernel/coordinator"
	"brag/internal/ingestkernel/search"
	"brag/internal/ingestkernel/transcribe"
	"brag/internal/ingestkernel/vectorindex"
	"brag/internal/ingestkernel/vectorize"
	"brag/internal/ingestkernel/workers"
	"brag/internal/ingestkernel/ytdl"
	"brag/internal/objectstore"
	"brag/internal/observability"
)

func main() {
	observability.InitLogger(os.Getenv("LOG_PATH"), os.Getenv("LOG_LEVEL"))

	cfg, err := ingestconfig.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	index, err := buildIndex(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build vector index")
	}

	archive, err := buildArchive(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build object-store archive")
	}

	deps := coordinator.NewDependencies(coordinator.Config{
		Index:         index,
		Vectorizer:    buildVectorizer(cfg),
		Transcriber:   buildTranscriber(cfg),
		Downloader:    ytdl.NewDownloader(cfg.TempAudioDir),
		Archive:       archive,
		TranscriptDir: cfg.AudioTranscriptionDir,
		MaxFilePaths:  cfg.IngestionProcessMaxFilePaths,
	}, coordinator.WithLogger(log.Logger))

	coord := coordinator.New(deps)
	engine := search.New(deps.EmbedderReadQueue, deps.Index)
	server := ingestapi.NewServer(coord, engine)

	if os.Getenv("MCP_STDIO") != "" {
		runMCPStdio(engine)
		return
	}

	addr := os.Getenv("INGESTD_LISTEN_ADDR")
	if addr == "" {
		addr = ":8089"
	}
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("ingestd listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	log.Info().Msg("ingestd shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = httpServer.Shutdown(shutdownCtx)
	deps.Shutdown()
}

// runMCPStdio serves the search/most_relevant_files/deep_search tools over
// stdio instead of the HTTP transport, for MCP_STDIO=1 clients that expect
// an MCP server on stdin/stdout rather than a network port.
func runMCPStdio(engine *search.Engine) {
	server := ingestapi.NewMCPServer(engine)
	if err := server.Run(context.Background(), &mcp.StdioTransport{}); err != nil {
		log.Fatal().Err(err).Msg("mcp stdio server failed")
	}
}

// buildIndex constructs the production vector index: Qdrant when QDRANT_DSN
// is set, otherwise an in-process linear-scan index for single-node/dev use.
func buildIndex(cfg ingestconfig.Config) (vectorindex.Index, error) {
	if cfg.QdrantDSN == "" {
		return vectorindex.NewMemoryIndex(cfg.EmbeddingSize), nil
	}
	idx, err := vectorindex.NewQdrantIndex(cfg.QdrantDSN, cfg.QdrantCollection, cfg.EmbeddingSize)
	if err != nil {
		return nil, fmt.Errorf("connect qdrant: %w", err)
	}
	return idx, nil
}

// buildVectorizer wires a remote embedding endpoint when EMBED_API_URL is
// configured, otherwise a deterministic hash-based vectorizer suitable for
// offline development, mirroring how the reference falls back when no
// sentence-transformers model is configured.
func buildVectorizer(cfg ingestconfig.Config) vectorize.Vectorizer {
	endpoint := os.Getenv("EMBED_API_URL")
	if endpoint == "" {
		return vectorize.NewDeterministic(cfg.EmbeddingSize, true, 0)
	}
	return vectorize.NewHTTPVectorizerDefault(vectorize.HTTPConfig{
		Endpoint: endpoint,
		Model:    os.Getenv("EMBED_MODEL"),
		APIKey:   os.Getenv("EMBED_API_KEY"),
	}, cfg.EmbeddingSize)
}

// buildTranscriber wires the real whisper.cpp-backed provider when
// WHISPER_MODEL_PATH points at a model file, otherwise a mock transcript
// provider for offline development.
func buildTranscriber(cfg ingestconfig.Config) transcribe.Provider {
	modelPath := os.Getenv("WHISPER_MODEL_PATH")
	if modelPath == "" {
		return &transcribe.MockProvider{Transcript: ""}
	}
	return transcribe.NewWhisperProviderDefault(modelPath)
}

// buildArchive wires an optional durable transcript archive when
// OBJECTSTORE_BACKEND=s3, otherwise returns nil (transcripts live only on
// the local transcriptDir, the default).
func buildArchive(ctx context.Context) (workers.TranscriptArchive, error) {
	if os.Getenv("OBJECTSTORE_BACKEND") != "s3" {
		return nil, nil
	}
	store, err := objectstore.NewS3Store(ctx, config.S3Config{
		Bucket:       os.Getenv("S3_BUCKET"),
		Region:       os.Getenv("S3_REGION"),
		AccessKey:    os.Getenv("S3_ACCESS_KEY"),
		SecretKey:    os.Getenv("S3_SECRET_KEY"),
		Endpoint:     os.Getenv("S3_ENDPOINT"),
		UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") != "",
	})
	if err != nil {
		return nil, fmt.Errorf("build s3 archive: %w", err)
	}
	return archiveAdapter{store}, nil
}

// archiveAdapter narrows objectstore.ObjectStore down to the
// workers.TranscriptArchive seam the transcription worker consumes.
type archiveAdapter struct{ store objectstore.ObjectStore }

func (a archiveAdapter) Put(ctx context.Context, key string, r io.Reader, contentType string) error {
	_, err := a.store.Put(ctx, key, r, objectstore.PutOptions{ContentType: contentType})
	return err
}
