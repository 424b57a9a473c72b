package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"habitloop/internal/api"
	"habitloop/internal/config"
	"habitloop/internal/db"
	"habitloop/internal/embedding"
	"habitloop/internal/insight"
	"habitloop/internal/llm"
	redisdb "habitloop/internal/redis"
	"habitloop/internal/research"
	"habitloop/internal/retrieval"
	"habitloop/internal/store"
)

func main() {
	cfg, err := config.LoadConfig("config.json")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}
	if err := db.Init(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "DB init error: %v\n", err)
		os.Exit(1)
	}
	rdb := redisdb.NewClient(cfg)

	embedder := embedding.NewEmbedder(cfg.EmbeddingModel.URL, cfg.EmbeddingModel.Name)
	cachedEmbedder := embedding.NewCachedEmbedder(embedder, rdb, 0)

	// Snippet stores are optional at startup: the assembler degrades to
	// empty retrieval slots when a collection is unreachable.
	var researchRetriever, historyRetriever insight.SnippetRetriever
	if researchStore, err := retrieval.NewSnippetStore(
		cfg.Qdrant.URL, cfg.Qdrant.ResearchCollection, cfg.Qdrant.APIKey, cfg.Qdrant.VectorSize,
	); err != nil {
		log.Printf("[Main] WARNING: research collection unavailable: %v", err)
	} else {
		researchRetriever = retrieval.NewRetriever(researchStore, cachedEmbedder)
	}
	if historyStore, err := retrieval.NewSnippetStore(
		cfg.Qdrant.URL, cfg.Qdrant.HistoryCollection, cfg.Qdrant.APIKey, cfg.Qdrant.VectorSize,
	); err != nil {
		log.Printf("[Main] WARNING: history collection unavailable: %v", err)
	} else {
		historyRetriever = retrieval.NewRetriever(historyStore, cachedEmbedder)
	}

	brief, err := research.LoadBrief(cfg.Pipeline.ResearchBriefPath, cfg.Pipeline.BriefCharCap)
	if err != nil {
		log.Printf("[Main] WARNING: research brief unavailable: %v", err)
	}

	manager := llm.NewManager(llm.DefaultConfig(), llm.NewCircuitBreaker(5, 30*time.Second))
	client := llm.NewClient(manager, llm.PriorityCritical, time.Duration(cfg.GenerationModel.TimeoutSec)*time.Second)

	repo := store.NewRepository(db.DB)
	pipeline := insight.NewPipeline(
		insight.NewSecurityFilter(),
		insight.NewAssembler(repo, researchRetriever, historyRetriever, brief, insight.AssemblerConfig{
			RetrievalTopK:   cfg.Pipeline.RetrievalTopK,
			QueryCharCap:    cfg.Pipeline.QueryCharCap,
			SnippetCharCap:  cfg.Pipeline.SnippetCharCap,
			ExemplarCharCap: cfg.Pipeline.ExemplarCharCap,
		}),
		insight.NewEngine(client, cfg.GenerationModel.URL, cfg.GenerationModel.Name,
			cfg.GenerationModel.Temperature, cfg.GenerationModel.MaxTokens),
		insight.NewSimilarityFilter(cachedEmbedder, repo, cfg.Pipeline.SimilarityThreshold),
	)

	r := api.SetupRouter(cfg, rdb, pipeline, manager)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Starting server on %s%s\n", addr, cfg.Server.Subpath)
	if err := r.Run(addr); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
