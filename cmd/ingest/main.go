package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"habitloop/internal/config"
	"habitloop/internal/embedding"
	"habitloop/internal/llm"
	"habitloop/internal/research"
	"habitloop/internal/retrieval"
)

// ingest loads behavioral-science source material into the research snippet
// collection. Sources are URLs or local files (PDF or plain text).
//
//	ingest -config config.json https://example.org/habits-paper ./notes.pdf
func main() {
	configPath := flag.String("config", "config.json", "path to config file")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall ingestion deadline")
	flag.Parse()

	sources := flag.Args()
	if len(sources) == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [-config config.json] <url-or-file> ...")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	store, err := retrieval.NewSnippetStore(
		cfg.Qdrant.URL, cfg.Qdrant.ResearchCollection, cfg.Qdrant.APIKey, cfg.Qdrant.VectorSize,
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Qdrant error: %v\n", err)
		os.Exit(1)
	}

	// Bulk embedding goes through the background tier of the request queue
	// so a long ingestion run never starves interactive generation.
	manager := llm.NewManager(llm.DefaultConfig(), llm.NewCircuitBreaker(5, 30*time.Second))
	defer manager.Stop()
	client := llm.NewClient(manager, llm.PriorityBackground, 2*time.Minute)

	embedder := embedding.NewQueueEmbedder(client, cfg.EmbeddingModel.URL, cfg.EmbeddingModel.Name)
	extractor := research.NewExtractor("habitloop-ingest/1.0", 20)
	ingestor := research.NewIngestor(store, embedder)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	failures := 0
	for _, source := range sources {
		doc, err := loadSource(ctx, extractor, source)
		if err != nil {
			log.Printf("[Ingest] %s: %v", source, err)
			failures++
			continue
		}
		stored, err := ingestor.Ingest(ctx, doc)
		if err != nil {
			log.Printf("[Ingest] %s: %v", source, err)
			failures++
			continue
		}
		log.Printf("[Ingest] %s: %d chunks stored", source, stored)
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d of %d sources failed\n", failures, len(sources))
		os.Exit(1)
	}
}

func loadSource(ctx context.Context, extractor *research.Extractor, source string) (*research.Document, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return extractor.FetchURL(ctx, source)
	}

	data, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(source), ".pdf") {
		return extractor.ExtractPDF(data, source)
	}
	return &research.Document{
		Title:  filepath.Base(source),
		Text:   string(data),
		Source: source,
	}, nil
}
