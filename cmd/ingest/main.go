package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"docrag/internal/chunker"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding/openai"
	"docrag/internal/ingest"
	"docrag/internal/logger"
	"docrag/internal/pdfx"
	"docrag/internal/store/memory"
	"docrag/internal/store/postgres"
	"docrag/internal/token"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docrag/config.yaml if not provided)")
	flag.Parse()
	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Println("Usage: ingest [--config=config.yaml] document.pdf [more.pdf ...]")
		os.Exit(1)
	}

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx := context.Background()

	emb := buildEmbedder(cfg, log)
	st := buildStore(ctx, cfg, emb.Dimension(), log)

	counter := token.NewCounter()
	ch := chunker.New(cfg.Chunker.MaxTokens, cfg.Chunker.OverlapSentences, counter)
	driver := ingest.NewDriver(emb, st, ch, log)

	for _, path := range inputs {
		log.Info("converting document", "path", path)
		start := time.Now()
		text, err := pdfx.ExtractFile(path)
		if err != nil {
			log.Error("conversion failed", "path", path, "error", err)
			continue
		}
		log.Info("conversion finished", "path", path, "secs", time.Since(start).Seconds())

		pieces := ch.Chunk(text)
		log.Info("chunking finished", "path", path, "chunks", len(pieces))

		stats, err := driver.Run(ctx, pieces)
		if err != nil {
			log.Fatal("ingestion aborted", "path", path, "error", err)
		}
		log.Info("document ingested", "path", path,
			"inserted", stats.Inserted, "skipped", stats.Skipped,
			"embed_failures", stats.EmbedFailures, "insert_failures", stats.InsertFailures)
	}
}

func buildEmbedder(cfg *config.AppConfig, log *logger.Logger) domain.Embedder {
	switch cfg.Embedder.Type {
	case "openai", "":
		if cfg.Embedder.OpenAI == nil {
			log.Fatal("openai embedder config missing")
		}
		client, err := openai.NewClient(openai.Config{
			BaseURL:   cfg.Embedder.OpenAI.BaseURL,
			APIKeyEnv: cfg.Embedder.OpenAI.APIKeyEnv,
			Model:     cfg.Embedder.OpenAI.Model,
			Dimension: cfg.Embedder.OpenAI.Dimension,
			Timeout:   time.Duration(cfg.Embedder.OpenAI.TimeoutSecs) * time.Second,
		})
		if err != nil {
			log.Fatal("embedder init failed", "error", err)
		}
		return client
	default:
		log.Fatal("unknown embedder", "type", cfg.Embedder.Type)
		return nil
	}
}

func buildStore(ctx context.Context, cfg *config.AppConfig, dimension int, log *logger.Logger) domain.ChunkStore {
	switch cfg.Store.Type {
	case "postgres", "":
		if cfg.Store.Postgres == nil {
			log.Fatal("postgres store config missing")
		}
		p := cfg.Store.Postgres
		st, err := postgres.New(ctx, postgres.Config{
			Host:     p.Host,
			Port:     p.Port,
			User:     p.User,
			Password: os.Getenv(p.PasswordEnv),
			Database: p.Database,
		}, dimension, log)
		if err != nil {
			log.Fatal("store init failed", "error", err)
		}
		if err := st.EnsureSchema(ctx); err != nil {
			log.Fatal("schema setup failed", "error", err)
		}
		return st
	case "memory":
		st, err := memory.New(dimension)
		if err != nil {
			log.Fatal("store init failed", "error", err)
		}
		return st
	default:
		log.Fatal("unknown store", "type", cfg.Store.Type)
		return nil
	}
}
