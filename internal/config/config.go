package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Jina      JinaConfig      `yaml:"jina" mapstructure:"jina"`
	OCR       OCRConfig       `yaml:"ocr" mapstructure:"ocr"`
	RAG       RAGConfig       `yaml:"rag" mapstructure:"rag"`
	Identity  IdentityConfig  `yaml:"identity" mapstructure:"identity"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// CatalogConfig locates the device catalog file. An empty path means the
// embedded default catalog is used.
type CatalogConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// StorageConfig configures on-disk locations for manuals, indexes and
// extracted page images.
type StorageConfig struct {
	ManualsDir string `yaml:"manuals_dir" mapstructure:"manuals_dir"`
	IndexDB    string `yaml:"index_db" mapstructure:"index_db"`
	ImagesDir  string `yaml:"images_dir" mapstructure:"images_dir"`
	UploadsDir string `yaml:"uploads_dir" mapstructure:"uploads_dir"`
}

// AnthropicConfig holds Anthropic API settings for the vision and
// generation collaborators.
type AnthropicConfig struct {
	Key         string `yaml:"key" mapstructure:"key"`
	VisionModel string `yaml:"vision_model" mapstructure:"vision_model"`
	ChatModel   string `yaml:"chat_model" mapstructure:"chat_model"`
	MaxTokens   int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JinaConfig holds Jina embeddings API settings.
type JinaConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OCRConfig configures PDF text and page-image extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	PdfToPpmPath  string `yaml:"pdftoppm_path" mapstructure:"pdftoppm_path"`
}

// RAGConfig holds the retrieval and chunking tunables.
type RAGConfig struct {
	TopK             int `yaml:"top_k" mapstructure:"top_k"`
	ChunkTokenTarget int `yaml:"chunk_token_target" mapstructure:"chunk_token_target"`
	ChunkOverlap     int `yaml:"chunk_overlap_sentences" mapstructure:"chunk_overlap_sentences"`
	HistoryWindow    int `yaml:"history_window" mapstructure:"history_window"`
	MaxAnswerImages  int `yaml:"max_answer_images" mapstructure:"max_answer_images"`
	EmbedBatchSize   int `yaml:"embed_batch_size" mapstructure:"embed_batch_size"`
	EmbedRPS         int `yaml:"embed_rps" mapstructure:"embed_rps"`
}

// IdentityConfig holds the identity classification thresholds. The detection
// threshold gates whether an extracted field counts as detected at all; the
// tier thresholds only affect display.
type IdentityConfig struct {
	DetectionThreshold float64 `yaml:"detection_threshold" mapstructure:"detection_threshold"`
	HighTier           float64 `yaml:"high_tier" mapstructure:"high_tier"`
	MediumTier         float64 `yaml:"medium_tier" mapstructure:"medium_tier"`
	MatchThreshold     float64 `yaml:"match_threshold" mapstructure:"match_threshold"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEVASSIST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults. Keys without meaningful defaults still need a registration
	// for AutomaticEnv to reach Unmarshal.
	v.SetDefault("catalog.path", "")
	v.SetDefault("anthropic.key", "")
	v.SetDefault("jina.key", "")
	v.SetDefault("storage.manuals_dir", "manuals")
	v.SetDefault("storage.index_db", "vector_indexes/index.db")
	v.SetDefault("storage.images_dir", "manual_images")
	v.SetDefault("storage.uploads_dir", "uploads")
	v.SetDefault("anthropic.vision_model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.chat_model", "claude-sonnet-4-5-20250929")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("jina.base_url", "https://api.jina.ai")
	v.SetDefault("jina.model", "jina-embeddings-v3")
	v.SetDefault("ocr.provider", "local")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.pdftoppm_path", "pdftoppm")
	v.SetDefault("rag.top_k", 3)
	v.SetDefault("rag.chunk_token_target", 512)
	v.SetDefault("rag.chunk_overlap_sentences", 1)
	v.SetDefault("rag.history_window", 4)
	v.SetDefault("rag.max_answer_images", 5)
	v.SetDefault("rag.embed_batch_size", 32)
	v.SetDefault("rag.embed_rps", 4)
	v.SetDefault("identity.detection_threshold", 0.30)
	v.SetDefault("identity.high_tier", 0.80)
	v.SetDefault("identity.medium_tier", 0.60)
	v.SetDefault("identity.match_threshold", 0.72)
	v.SetDefault("server.port", 8000)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
