package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dangtiendungai/docquery/internal/answer"
	"github.com/dangtiendungai/docquery/internal/api"
	"github.com/dangtiendungai/docquery/internal/blob"
	"github.com/dangtiendungai/docquery/internal/config"
	"github.com/dangtiendungai/docquery/internal/database/milvus"
	"github.com/dangtiendungai/docquery/internal/database/minio"
	"github.com/dangtiendungai/docquery/internal/database/mysql"
	"github.com/dangtiendungai/docquery/internal/embedder"
	"github.com/dangtiendungai/docquery/internal/ingest"
	"github.com/dangtiendungai/docquery/internal/llm"
	"github.com/dangtiendungai/docquery/internal/retrieve"
	"github.com/dangtiendungai/docquery/internal/store"
	"github.com/dangtiendungai/docquery/pkg/logger"
)

func main() {
	// A missing .env is fine; the config file expands what it needs
	// from the real environment.
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath(), "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("docquery")
	appLogger.Info("logger initialized")

	ctx := context.Background()

	db, err := mysql.GetDB(&cfg.Databases.MySQL)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	docStore := store.NewDocumentStore(db)
	if err := docStore.AutoMigrate(); err != nil {
		appLogger.Fatal(err.Error())
	}
	appLogger.Info("MySQL connection established")

	milvusClient, err := milvus.GetClient(ctx, &cfg.Databases.Milvus)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if err := milvusClient.EnsureCollection(ctx); err != nil {
		appLogger.Fatal(err.Error())
	}
	vectorStore := store.NewMilvusStore(milvusClient)
	appLogger.Info("Milvus collection ready")

	minioClient, err := minio.GetClient(&cfg.Databases.MinIO)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if err := minio.EnsureBucket(ctx, minioClient, cfg.Databases.MinIO.Bucket); err != nil {
		appLogger.Fatal(err.Error())
	}
	blobStore := blob.NewMinioStore(minioClient, cfg.Databases.MinIO.Bucket)
	appLogger.Info("MinIO bucket ready")

	provider, err := embedder.NewProvider(cfg.Embedding)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if provider == nil {
		appLogger.Warn("no embedding provider configured, documents will be lexical-only")
	}
	batcher := embedder.NewBatcher(provider, cfg.Embedding, appLogger)

	model, err := llm.NewLLM(cfg.LLM)
	if err != nil {
		appLogger.Fatal(err.Error())
	}
	if model == nil {
		appLogger.Warn("no LLM configured, answers will return raw excerpts")
	}

	coordinator := ingest.NewCoordinator(docStore, vectorStore, blobStore, batcher, cfg.Ingest, appLogger)
	retriever := retrieve.NewRetriever(docStore, vectorStore, queryEmbedder(provider), cfg.Retrieval.MaxLimit, appLogger)
	synthesizer := answer.NewSynthesizer(model, appLogger)

	handler := api.NewHandler(coordinator, retriever, synthesizer, docStore, vectorStore, blobStore, cfg.Retrieval.DefaultLimit, appLogger)
	router := api.SetupRouter(handler, milvusClient)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		appLogger.Info("starting server on " + cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal(err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("server shutdown failed")
	}

	milvusClient.Close()
	if err := mysql.Close(); err != nil {
		appLogger.WithError(err).Error("closing MySQL failed")
	}
	appLogger.Info("shutdown complete")
}

// queryEmbedder converts a possibly-nil provider into the retriever's
// nilable dependency without wrapping nil in a non-nil interface.
func queryEmbedder(provider embedder.Provider) retrieve.QueryEmbedder {
	if provider == nil {
		return nil
	}
	return provider
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "configs/config.yaml"
}
