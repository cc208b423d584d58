package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string            `toml:"environment"` // "development" or "production"
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Chunking    ChunkingConfig    `toml:"chunking"`
	Query       QueryConfig       `toml:"query"`
	Embedding   EmbeddingConfig   `toml:"embedding"`
	Generation  GenerationConfig  `toml:"generation"`
	Gemini      GeminiConfig      `toml:"gemini"`
	Claude      ClaudeConfig      `toml:"claude"`
	OpenAI      OpenAIConfig      `toml:"openai"`
	Ollama      OllamaConfig      `toml:"ollama"`
	Maintenance MaintenanceConfig `toml:"maintenance"`
	Watcher     WatcherConfig     `toml:"watcher"`
	Reports     ReportsConfig     `toml:"reports"`
	Logging     LoggingConfig     `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"gte=0,lte=65535"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Type   string       `toml:"type" validate:"oneof=badger memory"` // Storage backend: "badger" (persistent) or "memory" (ephemeral)
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

// ChunkingConfig controls how document text is split for indexing
type ChunkingConfig struct {
	TargetSize int `toml:"target_size" validate:"gt=0"`               // Preferred chunk size in characters
	Overlap    int `toml:"overlap" validate:"gte=0,ltfield=TargetSize"` // Context overlap between neighbouring chunks
}

// QueryConfig holds retrieval defaults applied when a request omits them
type QueryConfig struct {
	TopK             int     `toml:"top_k" validate:"gte=1"`                    // Results returned per search
	MinSimilarity    float64 `toml:"min_similarity" validate:"gte=0,lte=1"`     // Similarity threshold in [0,1]
	MaxContextChunks int     `toml:"max_context_chunks" validate:"gte=1"`       // Chunks concatenated into the generator context
}

// EmbeddingConfig selects the embedding providers. The fallback provider is
// tried when the primary cannot produce a vector; an empty fallback disables
// the second tier.
type EmbeddingConfig struct {
	Provider         string `toml:"provider" validate:"oneof=gemini openai ollama mock"` // Primary embedding provider
	FallbackProvider string `toml:"fallback_provider"`                                   // Second tier: "ollama", "mock" or "" (disabled)
	Dimension        int    `toml:"dimension" validate:"gt=0"`                           // Vector length; providers must match it
	Timeout          string `toml:"timeout"`                                             // Per-call timeout as duration string (default: "30s")
	BatchWorkers     int    `toml:"batch_workers" validate:"gte=1"`                      // Parallel workers for batch embedding
}

// GenerationConfig selects the answer generator. Provider "none" disables
// synthesis; queries then always use fallback answers.
type GenerationConfig struct {
	Provider string `toml:"provider" validate:"oneof=gemini claude openai ollama mock none"` // Generator provider
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	Model          string  `toml:"model"`           // Chat model (default: "gemini-2.5-flash")
	EmbeddingModel string  `toml:"embedding_model"` // Embedding model (default: "gemini-embedding-001")
	Timeout        string  `toml:"timeout"`         // Operation timeout as duration string (default: "2m")
	RateLimit      string  `toml:"rate_limit"`      // Minimum interval between calls (default: "4s" for 15 RPM)
	Temperature    float32 `toml:"temperature"`     // Chat completion temperature (default: 0.2)
}

// ClaudeConfig contains Anthropic Claude API configuration. Claude serves
// generation only; it has no embedding endpoint.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`       // Model (default: "claude-haiku-4-5")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 2048)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Minimum interval between calls (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.2)
}

// OpenAIConfig contains OpenAI API configuration
type OpenAIConfig struct {
	APIKey         string  `toml:"api_key"`         // OpenAI API key
	Model          string  `toml:"model"`           // Chat model (default: "gpt-4o-mini")
	EmbeddingModel string  `toml:"embedding_model"` // Embedding model (default: "text-embedding-3-small")
	Timeout        string  `toml:"timeout"`         // Operation timeout as duration string (default: "2m")
	RateLimit      string  `toml:"rate_limit"`      // Minimum interval between calls (default: "1s")
	Temperature    float32 `toml:"temperature"`     // Completion temperature (default: 0.2)
}

// OllamaConfig contains the local Ollama server configuration used as the
// offline tier.
type OllamaConfig struct {
	URL            string `toml:"url"`             // Server URL (default: "http://localhost:11434")
	Model          string `toml:"model"`           // Chat model (default: "llama3.2")
	EmbeddingModel string `toml:"embedding_model"` // Embedding model (default: "nomic-embed-text")
	Timeout        string `toml:"timeout"`         // Per-call timeout as duration string (default: "60s")
}

// MaintenanceConfig drives the cron-scheduled index maintenance job
type MaintenanceConfig struct {
	Enabled       bool   `toml:"enabled"`        // Disabled by default
	Schedule      string `toml:"schedule"`       // Standard 5-field cron expression
	RetentionDays int    `toml:"retention_days"` // Embedded chunks older than this are removed; 0 keeps everything
}

// WatcherConfig drives the drop-directory auto-ingest service
type WatcherConfig struct {
	Enabled    bool     `toml:"enabled"`    // Disabled by default
	Dir        string   `toml:"dir"`        // Directory watched for new documents (default: "./inbox")
	Extensions []string `toml:"extensions"` // File extensions to ingest
}

// ReportsConfig controls PDF query report output
type ReportsConfig struct {
	Dir string `toml:"dir"` // Directory reports are written to (default: "./reports")
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// NewDefaultConfig creates a configuration with default values.
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in respondeo.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Chunking: ChunkingConfig{
			TargetSize: 1000, // Characters per chunk before sentence splitting kicks in
			Overlap:    200,  // Context carried between neighbouring chunks
		},
		Query: QueryConfig{
			TopK:             5,
			MinSimilarity:    0.7,
			MaxContextChunks: 5,
		},
		Embedding: EmbeddingConfig{
			Provider:         "gemini",
			FallbackProvider: "ollama", // Local tier when the cloud provider is unavailable
			Dimension:        768,
			Timeout:          "30s",
			BatchWorkers:     4,
		},
		Generation: GenerationConfig{
			Provider: "gemini",
		},
		Gemini: GeminiConfig{
			APIKey:         "", // User must provide API key (no fallback)
			Model:          "gemini-2.5-flash",
			EmbeddingModel: "gemini-embedding-001",
			Timeout:        "2m",
			RateLimit:      "4s", // 15 RPM for free tier
			Temperature:    0.2,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // ANTHROPIC_API_KEY or config
			Model:       "claude-haiku-4-5",
			MaxTokens:   2048,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.2,
		},
		OpenAI: OpenAIConfig{
			APIKey:         "",
			Model:          "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			Timeout:        "2m",
			RateLimit:      "1s",
			Temperature:    0.2,
		},
		Ollama: OllamaConfig{
			URL:            "http://localhost:11434",
			Model:          "llama3.2",
			EmbeddingModel: "nomic-embed-text",
			Timeout:        "60s",
		},
		Maintenance: MaintenanceConfig{
			Enabled:       false,         // User must explicitly opt-in
			Schedule:      "0 */6 * * *", // Every 6 hours
			RetentionDays: 0,             // Keep everything unless configured
		},
		Watcher: WatcherConfig{
			Enabled:    false,
			Dir:        "./inbox",
			Extensions: []string{".pdf", ".html", ".htm", ".md", ".eml", ".txt"},
		},
		Reports: ReportsConfig{
			Dir: "./reports",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files. Later files
// override earlier files; environment variables override all files;
// CLI flags are applied last by the caller via ApplyFlagOverrides.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks the configuration against struct constraints.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("RESPONDEO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("RESPONDEO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("RESPONDEO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if storageType := os.Getenv("RESPONDEO_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if badgerPath := os.Getenv("RESPONDEO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Chunking configuration
	if targetSize := os.Getenv("RESPONDEO_CHUNKING_TARGET_SIZE"); targetSize != "" {
		if ts, err := strconv.Atoi(targetSize); err == nil {
			config.Chunking.TargetSize = ts
		}
	}
	if overlap := os.Getenv("RESPONDEO_CHUNKING_OVERLAP"); overlap != "" {
		if o, err := strconv.Atoi(overlap); err == nil {
			config.Chunking.Overlap = o
		}
	}

	// Query configuration
	if topK := os.Getenv("RESPONDEO_QUERY_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Query.TopK = k
		}
	}
	if minSim := os.Getenv("RESPONDEO_QUERY_MIN_SIMILARITY"); minSim != "" {
		if m, err := strconv.ParseFloat(minSim, 64); err == nil {
			config.Query.MinSimilarity = m
		}
	}

	// Embedding configuration
	if provider := os.Getenv("RESPONDEO_EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = provider
	}
	if fallback := os.Getenv("RESPONDEO_EMBEDDING_FALLBACK_PROVIDER"); fallback != "" {
		config.Embedding.FallbackProvider = fallback
	}
	if dimension := os.Getenv("RESPONDEO_EMBEDDING_DIMENSION"); dimension != "" {
		if d, err := strconv.Atoi(dimension); err == nil {
			config.Embedding.Dimension = d
		}
	}
	if timeout := os.Getenv("RESPONDEO_EMBEDDING_TIMEOUT"); timeout != "" {
		if _, err := time.ParseDuration(timeout); err == nil {
			config.Embedding.Timeout = timeout
		}
	}

	// Generation configuration
	if provider := os.Getenv("RESPONDEO_GENERATION_PROVIDER"); provider != "" {
		config.Generation.Provider = provider
	}

	// Gemini configuration
	if apiKey := os.Getenv("RESPONDEO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("RESPONDEO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if embModel := os.Getenv("RESPONDEO_GEMINI_EMBEDDING_MODEL"); embModel != "" {
		config.Gemini.EmbeddingModel = embModel
	}
	if rateLimit := os.Getenv("RESPONDEO_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("RESPONDEO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // RESPONDEO_ prefix takes priority
	}
	if model := os.Getenv("RESPONDEO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("RESPONDEO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}

	// OpenAI configuration
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("RESPONDEO_OPENAI_API_KEY"); apiKey != "" {
		config.OpenAI.APIKey = apiKey
	}
	if model := os.Getenv("RESPONDEO_OPENAI_MODEL"); model != "" {
		config.OpenAI.Model = model
	}
	if embModel := os.Getenv("RESPONDEO_OPENAI_EMBEDDING_MODEL"); embModel != "" {
		config.OpenAI.EmbeddingModel = embModel
	}

	// Ollama configuration
	if url := os.Getenv("RESPONDEO_OLLAMA_URL"); url != "" {
		config.Ollama.URL = url
	}
	if model := os.Getenv("RESPONDEO_OLLAMA_MODEL"); model != "" {
		config.Ollama.Model = model
	}
	if embModel := os.Getenv("RESPONDEO_OLLAMA_EMBEDDING_MODEL"); embModel != "" {
		config.Ollama.EmbeddingModel = embModel
	}

	// Maintenance configuration
	if enabled := os.Getenv("RESPONDEO_MAINTENANCE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Maintenance.Enabled = e
		}
	}
	if schedule := os.Getenv("RESPONDEO_MAINTENANCE_SCHEDULE"); schedule != "" {
		config.Maintenance.Schedule = schedule
	}
	if retention := os.Getenv("RESPONDEO_MAINTENANCE_RETENTION_DAYS"); retention != "" {
		if r, err := strconv.Atoi(retention); err == nil {
			config.Maintenance.RetentionDays = r
		}
	}

	// Watcher configuration
	if enabled := os.Getenv("RESPONDEO_WATCHER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Watcher.Enabled = e
		}
	}
	if dir := os.Getenv("RESPONDEO_WATCHER_DIR"); dir != "" {
		config.Watcher.Dir = dir
	}

	// Reports configuration
	if dir := os.Getenv("RESPONDEO_REPORTS_DIR"); dir != "" {
		config.Reports.Dir = dir
	}

	// Logging configuration
	if level := os.Getenv("RESPONDEO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("RESPONDEO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("RESPONDEO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// EmbeddingTimeout returns the parsed per-call embedding timeout.
func (c *Config) EmbeddingTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Embedding.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
