package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"docrag/internal/answer"
	"docrag/internal/chat"
	"docrag/internal/config"
	"docrag/internal/domain"
	"docrag/internal/embedding/openai"
	"docrag/internal/llm/gemini"
	"docrag/internal/logger"
	"docrag/internal/retrieval"
	"docrag/internal/store/memory"
	"docrag/internal/store/postgres"
	"docrag/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/docrag/config.yaml if not provided)")
	flag.Parse()

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
	gen := buildGenerator(cfg, log)

	retriever := retrieval.NewService(emb, st, cfg.Retrieval.TopK, *cfg.Retrieval.SimilarityThreshold, log)
	synthesizer := answer.NewSynthesizer(gen, cfg.LLM.Stream, log)
	session := chat.NewSession(retriever, synthesizer, log)

	m := tui.New(session)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal("chat ui failed", "error", err)
	}
	fmt.Println("Goodbye!")
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

func buildGenerator(cfg *config.AppConfig, log *logger.Logger) domain.Generator {
	switch cfg.LLM.Type {
	case "gemini", "":
		if cfg.LLM.Gemini == nil {
			log.Fatal("gemini config missing")
		}
		client, err := gemini.NewClient(gemini.Config{
			BaseURL:    cfg.LLM.Gemini.BaseURL,
			APIKeyEnv:  cfg.LLM.Gemini.APIKeyEnv,
			Model:      cfg.LLM.Gemini.Model,
			TimeoutSec: cfg.LLM.Gemini.TimeoutSecs,
		})
		if err != nil {
			log.Fatal("llm init failed", "error", err)
		}
		return client
	default:
		log.Fatal("unknown llm", "type", cfg.LLM.Type)
		return nil
	}
}
