package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

type ModelConfig struct {
	Name        string  `json:"name"`
	URL         string  `json:"url"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	TimeoutSec  int     `json:"timeout_sec"`
}

type EmbeddingConfig struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type QdrantConfig struct {
	URL                string `json:"url"`
	APIKey             string `json:"api_key"`
	ResearchCollection string `json:"research_collection"`
	HistoryCollection  string `json:"history_collection"`
	VectorSize         int    `json:"vector_size"`
}

// PipelineConfig holds the tunables of the insight pipeline.
type PipelineConfig struct {
	SimilarityThreshold float64 `json:"similarity_threshold"`
	RetrievalTopK       int     `json:"retrieval_top_k"`
	SnippetCharCap      int     `json:"snippet_char_cap"`
	BriefCharCap        int     `json:"brief_char_cap"`
	ExemplarCharCap     int     `json:"exemplar_char_cap"`
	QueryCharCap        int     `json:"query_char_cap"`
	ResearchBriefPath   string  `json:"research_brief_path"`
}

type Config struct {
	Server struct {
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Subpath   string `json:"subpath"`
		JWTSecret string `json:"jwtSecret"`
	} `json:"server"`
	Postgres struct {
		DSN string `json:"dsn"`
	} `json:"postgres"`
	Sqlite struct {
		Path string `json:"path"`
	} `json:"sqlite"`
	Redis struct {
		Addr     string `json:"addr"`
		Password string `json:"password"`
		DB       int    `json:"db"`
	} `json:"redis"`
	GenerationModel ModelConfig     `json:"generation_model"`
	EmbeddingModel  EmbeddingConfig `json:"embedding_model"`
	Qdrant          QdrantConfig    `json:"qdrant"`
	Pipeline        PipelineConfig  `json:"pipeline"`
}

var (
	once   sync.Once
	cfg    *Config
	cfgErr error
)

// LoadConfig reads config.json from disk (singleton)
func LoadConfig(path string) (*Config, error) {
	once.Do(func() {
		raw, err := os.ReadFile(path)
		if err != nil {
			cfgErr = fmt.Errorf("failed to read config file: %w", err)
			return
		}
		var c Config
		if err := json.Unmarshal(raw, &c); err != nil {
			cfgErr = fmt.Errorf("invalid config format: %w", err)
			return
		}
		// Minimal validation
		if c.Server.JWTSecret == "" {
			cfgErr = errors.New("jwtSecret must be set in config")
			return
		}
		if c.GenerationModel.URL == "" {
			cfgErr = errors.New("generation_model.url must be set in config")
			return
		}
		applyDefaults(&c)
		cfg = &c
	})
	return cfg, cfgErr
}

// applyDefaults fills pipeline knobs the operator left at zero.
func applyDefaults(c *Config) {
	p := &c.Pipeline
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = 0.85
	}
	if p.RetrievalTopK == 0 {
		p.RetrievalTopK = 6
	}
	if p.SnippetCharCap == 0 {
		p.SnippetCharCap = 2200
	}
	if p.BriefCharCap == 0 {
		p.BriefCharCap = 6000
	}
	if p.ExemplarCharCap == 0 {
		p.ExemplarCharCap = 2500
	}
	if p.QueryCharCap == 0 {
		p.QueryCharCap = 400
	}
	if c.GenerationModel.Temperature == 0 {
		c.GenerationModel.Temperature = 0.7
	}
	if c.GenerationModel.MaxTokens == 0 {
		c.GenerationModel.MaxTokens = 3000
	}
	if c.GenerationModel.TimeoutSec == 0 {
		c.GenerationModel.TimeoutSec = 120
	}
	if c.Qdrant.VectorSize == 0 {
		c.Qdrant.VectorSize = 384
	}
}

// GetConfig returns the loaded config (must call LoadConfig first)
func GetConfig() *Config {
	return cfg
}

// ResetConfigForTest resets the singleton state (for testing only)
func ResetConfigForTest() {
	once = sync.Once{}
	cfg = nil
	cfgErr = nil
}
