package config

import (
	"errors"
	"os"

	"gopkg.in/yaml.v3"
)

// IngestConfig configures the ingestion service directories and PDF
// preprocessing.
type IngestConfig struct {
	SourceDir     string  `yaml:"source_dir"`
	ArchiveDir    string  `yaml:"archive_dir"`
	BadDir        string  `yaml:"bad_dir"`
	ImagesDir     string  `yaml:"images_dir"`
	ImageExt      string  `yaml:"image_ext"`
	SettleSeconds int     `yaml:"settle_seconds"`
	CropTop       float64 `yaml:"crop_top"`
	CropBottom    float64 `yaml:"crop_bottom"`
}

// PartitionerConfig points at the external PDF partition service.
type PartitionerConfig struct {
	URL         string `yaml:"url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbeddingConfig configures the OpenAI-compatible embeddings endpoint.
// The same endpoint and model must be used at index and query time,
// otherwise search results silently degrade.
type EmbeddingConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// CompletionConfig configures an Ollama-style generate endpoint used for
// text and table summaries.
type CompletionConfig struct {
	URL         string `yaml:"url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VisionConfig configures the OpenAI-compatible chat endpoint used for image
// summaries and for answer generation.
type VisionConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SummarizeConfig bounds the summarization batches.
type SummarizeConfig struct {
	Concurrency int `yaml:"concurrency"`
	MaxAttempts int `yaml:"max_attempts"`
	// CorpusDescription is substituted into the summary prompts so the
	// model knows what collection the elements come from.
	CorpusDescription string `yaml:"corpus_description"`
}

// QueryConfig tunes retrieval at answer time.
type QueryConfig struct {
	TopK     int     `yaml:"top_k"`
	MinScore float64 `yaml:"min_score"`
}

type AppConfig struct {
	Ingest      IngestConfig      `yaml:"ingest"`
	Partitioner PartitionerConfig `yaml:"partitioner"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Completion  CompletionConfig  `yaml:"completion"`
	Vision      VisionConfig      `yaml:"vision"`
	Summarize   SummarizeConfig   `yaml:"summarize"`
	Query       QueryConfig       `yaml:"query"`
}

// Load reads a config from the given path. A missing file returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := &AppConfig{}
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Ingest.SourceDir == "" {
		cfg.Ingest.SourceDir = "data/source"
	}
	if cfg.Ingest.ArchiveDir == "" {
		cfg.Ingest.ArchiveDir = "data/archive"
	}
	if cfg.Ingest.BadDir == "" {
		cfg.Ingest.BadDir = "data/bad"
	}
	if cfg.Ingest.ImagesDir == "" {
		cfg.Ingest.ImagesDir = "data/images"
	}
	if cfg.Ingest.ImageExt == "" {
		cfg.Ingest.ImageExt = ".jpg"
	}
	if cfg.Ingest.SettleSeconds == 0 {
		cfg.Ingest.SettleSeconds = 5
	}
	if cfg.Partitioner.TimeoutSecs == 0 {
		cfg.Partitioner.TimeoutSecs = 300
	}
	if cfg.Embedding.BaseURL == "" {
		cfg.Embedding.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 30
	}
	if cfg.Completion.Model == "" {
		cfg.Completion.Model = "llama3.2:1b"
	}
	if cfg.Completion.TimeoutSecs == 0 {
		cfg.Completion.TimeoutSecs = 120
	}
	if cfg.Vision.BaseURL == "" {
		cfg.Vision.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Vision.APIKeyEnv == "" {
		cfg.Vision.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Vision.Model == "" {
		cfg.Vision.Model = "gpt-4o-mini"
	}
	if cfg.Vision.TimeoutSecs == 0 {
		cfg.Vision.TimeoutSecs = 120
	}
	if cfg.Summarize.Concurrency == 0 {
		cfg.Summarize.Concurrency = 3
	}
	if cfg.Summarize.MaxAttempts == 0 {
		cfg.Summarize.MaxAttempts = 3
	}
	if cfg.Query.TopK == 0 {
		cfg.Query.TopK = 4
	}
}
