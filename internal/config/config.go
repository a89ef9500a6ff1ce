package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	LLM        LLMConfig        `yaml:"llm" mapstructure:"llm"`
	Embed      EmbedConfig      `yaml:"embed" mapstructure:"embed"`
	OCR        OCRConfig        `yaml:"ocr" mapstructure:"ocr"`
	Entity     EntityConfig     `yaml:"entity" mapstructure:"entity"`
	Index      IndexConfig      `yaml:"index" mapstructure:"index"`
	Retrieval  RetrievalConfig  `yaml:"retrieval" mapstructure:"retrieval"`
	Submission SubmissionConfig `yaml:"submission" mapstructure:"submission"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the index database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// LLMConfig selects and configures the answering model.
type LLMConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Key         string  `yaml:"key" mapstructure:"key"`
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	Model       string  `yaml:"model" mapstructure:"model"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
}

// EmbedConfig configures the embedding provider used for the semantic index.
type EmbedConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	Key           string `yaml:"key" mapstructure:"key"`
	BaseURL       string `yaml:"base_url" mapstructure:"base_url"`
	Model         string `yaml:"model" mapstructure:"model"`
	Dimensions    int    `yaml:"dimensions" mapstructure:"dimensions"`
	BatchSize     int    `yaml:"batch_size" mapstructure:"batch_size"`
	RatePerSecond int    `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	CacheTTLMins  int    `yaml:"cache_ttl_mins" mapstructure:"cache_ttl_mins"`
}

// OCRConfig configures PDF text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// EntityConfig configures organization recognition.
type EntityConfig struct {
	Recognizer string `yaml:"recognizer" mapstructure:"recognizer"`
}

// IndexConfig configures corpus splitting and index construction.
type IndexConfig struct {
	ChunkSize       int  `yaml:"chunk_size" mapstructure:"chunk_size"`
	ChunkOverlap    int  `yaml:"chunk_overlap" mapstructure:"chunk_overlap"`
	Workers         int  `yaml:"workers" mapstructure:"workers"`
	IncludeUntagged bool `yaml:"include_untagged" mapstructure:"include_untagged"`
}

// RetrievalConfig configures the query router.
type RetrievalConfig struct {
	PoolSize  int  `yaml:"pool_size" mapstructure:"pool_size"`
	TopK      int  `yaml:"top_k" mapstructure:"top_k"`
	FallbackK int  `yaml:"fallback_k" mapstructure:"fallback_k"`
	Backfill  bool `yaml:"backfill" mapstructure:"backfill"`
}

// SubmissionConfig configures the submission file and upload.
type SubmissionConfig struct {
	TeamEmail   string `yaml:"team_email" mapstructure:"team_email"`
	Name        string `yaml:"name" mapstructure:"name"`
	URL         string `yaml:"url" mapstructure:"url"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// PathsConfig holds default file locations used by the CLI.
type PathsConfig struct {
	PDFDir     string `yaml:"pdf_dir" mapstructure:"pdf_dir"`
	Questions  string `yaml:"questions" mapstructure:"questions"`
	Registry   string `yaml:"registry" mapstructure:"registry"`
	Submission string `yaml:"submission" mapstructure:"submission"`
}

// ServerConfig configures the HTTP query API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from .env, ./config.yaml and environment.
func Load() (*Config, error) {
	return LoadFrom("")
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// working directory for an optional config.yaml; a non-empty path must exist.
func LoadFrom(path string) (*Config, error) {
	// .env is optional; variables already set in the environment win.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, eris.Wrap(err, "config: load .env")
		}
	}

	v := viper.New()

	// Config file
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Environment
	v.SetEnvPrefix("REPORTQA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "index.db")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.model", "")
	v.SetDefault("llm.max_tokens", 512)
	v.SetDefault("llm.temperature", 0.0)
	v.SetDefault("embed.provider", "openai")
	v.SetDefault("embed.key", "")
	v.SetDefault("embed.base_url", "http://localhost:8081/v1")
	v.SetDefault("embed.model", "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2")
	v.SetDefault("embed.dimensions", 384)
	v.SetDefault("embed.batch_size", 32)
	v.SetDefault("embed.rate_per_second", 10)
	v.SetDefault("embed.cache_ttl_mins", 60)
	v.SetDefault("ocr.provider", "native")
	v.SetDefault("ocr.pdftotext_path", "pdftotext")
	v.SetDefault("ocr.mistral_api_key", "")
	v.SetDefault("ocr.mistral_model", "mistral-ocr-latest")
	v.SetDefault("entity.recognizer", "llm")
	v.SetDefault("index.chunk_size", 2500)
	v.SetDefault("index.chunk_overlap", 200)
	v.SetDefault("index.workers", 4)
	v.SetDefault("index.include_untagged", false)
	v.SetDefault("retrieval.pool_size", 20)
	v.SetDefault("retrieval.top_k", 10)
	v.SetDefault("retrieval.fallback_k", 8)
	v.SetDefault("retrieval.backfill", false)
	v.SetDefault("submission.team_email", "")
	v.SetDefault("submission.name", "")
	v.SetDefault("submission.url", "")
	v.SetDefault("submission.timeout_secs", 30)
	v.SetDefault("paths.pdf_dir", "pdfs")
	v.SetDefault("paths.questions", "questions.json")
	v.SetDefault("paths.registry", "companies.json")
	v.SetDefault("paths.submission", "submission.json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a given command mode depends on.
// Modes: "companies", "index", "answer", "serve", "submit".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "companies":
		if c.Entity.Recognizer == "llm" && c.LLM.Key == "" {
			errs = append(errs, "llm.key is required when entity.recognizer is llm")
		}
	case "index":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.OCR.Provider == "mistral" && c.OCR.MistralKey == "" {
			errs = append(errs, "ocr.mistral_api_key is required for the mistral provider")
		}
		if c.Index.ChunkOverlap >= c.Index.ChunkSize {
			errs = append(errs, "index.chunk_overlap must be smaller than index.chunk_size")
		}
		if c.Index.Workers < 1 {
			errs = append(errs, "index.workers must be >= 1")
		}
	case "answer", "serve":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, "store.database_url is required")
		}
		if c.LLM.Key == "" {
			errs = append(errs, "llm.key is required")
		}
		if c.Retrieval.PoolSize < 1 || c.Retrieval.TopK < 1 || c.Retrieval.FallbackK < 1 {
			errs = append(errs, "retrieval sizes must be > 0")
		}
		if mode == "serve" && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case "submit":
		if c.Submission.URL == "" {
			errs = append(errs, "submission.url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if (mode == "index" || mode == "answer" || mode == "serve") &&
		c.Embed.Provider == "gemini" && c.Embed.Key == "" {
		errs = append(errs, "embed.key is required for the gemini provider")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
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
