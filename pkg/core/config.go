package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/hireflow/careermem-go/pkg/intelligence"
	"github.com/hireflow/careermem-go/pkg/memory"
)

// Config contains the complete configuration for a careermem client.
//
// It includes settings for:
//   - LLM provider (extraction, semantic search, summaries; optional)
//   - Document store (per-user memory stores and conversations)
//   - Memory algorithms (thresholds, decay, capacity)
//   - Conversation summarization cadence
//   - Timeouts, maintenance schedule, read cache and logging
//
// Example:
//
//	config := core.DefaultConfig()
//	config.LLM = core.LLMConfig{Provider: "openai", APIKey: "sk-...", Model: "gpt-4o-mini"}
//	config.Store = core.StoreConfig{
//	    Provider: "sqlite",
//	    Config:   map[string]interface{}{"db_path": "./careermem.db"},
//	}
type Config struct {
	// LLM contains LLM provider configuration. An empty provider disables
	// LLM-backed features.
	LLM LLMConfig `json:"llm"`

	// Store contains document store configuration.
	Store StoreConfig `json:"store"`

	// Memory contains memory algorithm configuration.
	Memory MemoryConfig `json:"memory"`

	// Conversation contains conversation configuration.
	Conversation ConversationConfig `json:"conversation"`

	// Timeouts bounds upstream and background work.
	Timeouts TimeoutsConfig `json:"timeouts"`

	// Maintenance contains the decay/merge schedule.
	Maintenance MaintenanceConfig `json:"maintenance"`

	// Cache contains the document read cache configuration.
	Cache CacheConfig `json:"cache"`

	// Logging contains logger configuration.
	Logging LoggingConfig `json:"logging"`
}

// LLMConfig contains configuration for the LLM provider.
//
// Supported providers: openai, deepseek, qwen, anthropic, gemini, ollama
type LLMConfig struct {
	// Provider is the LLM provider name. Empty disables the LLM.
	Provider string `json:"provider"`

	// APIKey is the API key for the LLM provider.
	APIKey string `json:"api_key"`

	// Model is the model name to use (e.g., "gpt-4o-mini", "qwen-plus").
	Model string `json:"model"`

	// BaseURL is the base URL for the API (optional, uses provider default if empty).
	BaseURL string `json:"base_url,omitempty"`

	// Parameters contains additional provider-specific parameters (optional).
	Parameters map[string]interface{} `json:"parameters,omitempty"`
}

// StoreConfig contains configuration for the document store.
//
// Supported providers: memory, sqlite, postgres, mysql, badger
//
// Example:
//
//	storeConfig := core.StoreConfig{
//	    Provider: "sqlite",
//	    Config: map[string]interface{}{
//	        "db_path":         "./careermem.db",
//	        "collection_name": "careermem_documents",
//	    },
//	}
type StoreConfig struct {
	// Provider is the store provider name.
	Provider string `json:"provider"`

	// Config contains provider-specific configuration.
	// For SQLite: db_path, collection_name
	// For PostgreSQL: host, port, user, password, db_name, collection_name, ssl_mode
	// For MySQL: host, port, user, password, db_name, collection_name
	// For Badger: dir, in_memory
	Config map[string]interface{} `json:"config"`
}

// MemoryConfig contains configuration for the memory algorithms.
type MemoryConfig struct {
	// DuplicateThreshold is the similarity above which a new memory
	// reinforces an existing one. Default: 0.8
	DuplicateThreshold float64 `json:"duplicate_threshold"`

	// MergeThreshold is the similarity above which maintenance merges two
	// stored memories. Default: 0.85
	MergeThreshold float64 `json:"merge_threshold"`

	// DecayRate is the confidence lost per day without reinforcement.
	// Default: 0.1
	DecayRate float64 `json:"decay_rate"`

	// MaxMemories is the default per-user capacity. Default: 1000
	MaxMemories int `json:"max_memories"`

	// NegativeExamples is how many known memories the extractor sees.
	// Default: 5
	NegativeExamples int `json:"negative_examples"`

	// SemanticFallbackBelow triggers the LLM search fallback when text search
	// finds fewer results. Default: 5
	SemanticFallbackBelow int `json:"semantic_fallback_below"`

	// ExtractionPrompt overrides the extraction system prompt (optional).
	ExtractionPrompt string `json:"extraction_prompt,omitempty"`
}

// ConversationConfig contains conversation settings.
type ConversationConfig struct {
	// SummaryInterval summarizes every N messages. Default: 20
	SummaryInterval int `json:"summary_interval"`

	// SummaryWindow is how many recent messages a summary covers. Default: 20
	SummaryWindow int `json:"summary_window"`

	// HistoryWindow is how many recent messages a reply sees. Default: 12
	HistoryWindow int `json:"history_window"`
}

// TimeoutsConfig bounds upstream calls and background tasks.
type TimeoutsConfig struct {
	// LLM bounds each LLM call. Default: 30s
	LLM Duration `json:"llm"`

	// Store bounds each store call on request paths. Default: 5s
	Store Duration `json:"store"`

	// Background bounds each background task. Default: 60s
	Background Duration `json:"background"`
}

// MaintenanceConfig contains the maintenance schedule.
type MaintenanceConfig struct {
	// Interval between maintenance passes. Default: 24h
	Interval Duration `json:"interval"`
}

// CacheConfig contains document read cache settings.
type CacheConfig struct {
	// Enabled turns on the read cache. Default: true
	Enabled bool `json:"enabled"`

	// TTL bounds how long a cached document is served. Default: 5m
	TTL Duration `json:"ttl"`

	// MaxBytes is the cache budget in encoded bytes. Default: 64 MiB
	MaxBytes int64 `json:"max_bytes"`
}

// LoggingConfig contains logger settings.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `json:"level"`

	// Format is json or text. Default: json
	Format string `json:"format"`
}

// Duration is a time.Duration that reads and writes as a Go duration string
// ("30s", "24h") in JSON.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON implements json.Unmarshaler. Numbers are read as seconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*d = Duration(v)
		return nil
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("duration must be a string or seconds: %w", err)
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// DefaultConfig returns a configuration with an in-memory store, no LLM and
// every algorithm setting at its default.
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{Provider: "memory", Config: map[string]interface{}{}},
		Memory: MemoryConfig{
			DuplicateThreshold:    intelligence.DefaultDuplicateThreshold,
			MergeThreshold:        intelligence.DefaultMergeThreshold,
			DecayRate:             memory.DefaultDecayRate,
			MaxMemories:           memory.DefaultMaxMemories,
			NegativeExamples:      5,
			SemanticFallbackBelow: 5,
		},
		Conversation: ConversationConfig{
			SummaryInterval: 20,
			SummaryWindow:   20,
			HistoryWindow:   12,
		},
		Timeouts: TimeoutsConfig{
			LLM:        Duration(30 * time.Second),
			Store:      Duration(5 * time.Second),
			Background: Duration(60 * time.Second),
		},
		Maintenance: MaintenanceConfig{Interval: Duration(24 * time.Hour)},
		Cache: CacheConfig{
			Enabled:  true,
			TTL:      Duration(5 * time.Minute),
			MaxBytes: 64 << 20,
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// LoadConfigFromEnv loads configuration from environment variables.
//
// The function:
//  1. Searches for .env or .env.example files (up to 5 directory levels up)
//  2. Loads environment variables from the found file
//  3. Parses environment variables into a Config struct on top of DefaultConfig
//
// Supported environment variables:
//   - DATABASE_PROVIDER (memory, sqlite, postgres, mysql, badger)
//   - SQLITE_PATH, SQLITE_COLLECTION
//   - POSTGRES_HOST, POSTGRES_PORT, POSTGRES_USER, POSTGRES_PASSWORD, POSTGRES_DATABASE, POSTGRES_SSLMODE
//   - MYSQL_HOST, MYSQL_PORT, MYSQL_USER, MYSQL_PASSWORD, MYSQL_DATABASE
//   - BADGER_DIR, BADGER_IN_MEMORY
//   - LLM_PROVIDER, LLM_API_KEY, LLM_MODEL, LLM_BASE_URL
//   - MEMORY_DUPLICATE_THRESHOLD, MEMORY_MERGE_THRESHOLD, MEMORY_DECAY_RATE, MEMORY_MAX_MEMORIES
//   - LLM_TIMEOUT, MAINTENANCE_INTERVAL, CACHE_ENABLED, LOG_LEVEL, LOG_FORMAT
//
// Returns a Config instance, or an error if a value cannot be parsed.
//
// Example:
//
//	config, err := core.LoadConfigFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
func LoadConfigFromEnv() (*Config, error) {
	// Use FindEnvFile to locate .env file (supports upward search)
	envPath, found := FindEnvFile()
	if found {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	config := DefaultConfig()

	provider := getEnvOrDefault("DATABASE_PROVIDER", "sqlite")
	storeConfig := make(map[string]interface{})

	switch provider {
	case "sqlite":
		storeConfig = map[string]interface{}{
			"db_path":         getEnvOrDefault("SQLITE_PATH", "./careermem.db"),
			"collection_name": getEnvOrDefault("SQLITE_COLLECTION", "careermem_documents"),
		}
	case "postgres":
		port, _ := strconv.Atoi(getEnvOrDefault("POSTGRES_PORT", "5432"))
		storeConfig = map[string]interface{}{
			"host":            getEnvOrDefault("POSTGRES_HOST", "localhost"),
			"port":            port,
			"user":            getEnvOrDefault("POSTGRES_USER", "postgres"),
			"password":        os.Getenv("POSTGRES_PASSWORD"),
			"db_name":         getEnvOrDefault("POSTGRES_DATABASE", "careermem"),
			"collection_name": getEnvOrDefault("POSTGRES_COLLECTION", "careermem_documents"),
			"ssl_mode":        getEnvOrDefault("POSTGRES_SSLMODE", "disable"),
		}
	case "mysql":
		port, _ := strconv.Atoi(getEnvOrDefault("MYSQL_PORT", "3306"))
		storeConfig = map[string]interface{}{
			"host":            getEnvOrDefault("MYSQL_HOST", "127.0.0.1"),
			"port":            port,
			"user":            getEnvOrDefault("MYSQL_USER", "root"),
			"password":        os.Getenv("MYSQL_PASSWORD"),
			"db_name":         getEnvOrDefault("MYSQL_DATABASE", "careermem"),
			"collection_name": getEnvOrDefault("MYSQL_COLLECTION", "careermem_documents"),
		}
	case "badger":
		storeConfig = map[string]interface{}{
			"dir":       getEnvOrDefault("BADGER_DIR", "./careermem-badger"),
			"in_memory": os.Getenv("BADGER_IN_MEMORY") == "true",
		}
	}
	config.Store = StoreConfig{Provider: provider, Config: storeConfig}

	// Default model and base URL per LLM provider
	llmProvider := os.Getenv("LLM_PROVIDER")
	var llmBaseURL, defaultModel string
	switch llmProvider {
	case "deepseek":
		defaultModel = "deepseek-chat"
	case "qwen":
		defaultModel = "qwen-plus"
	case "ollama":
		llmBaseURL = "http://localhost:11434"
		defaultModel = "llama3.1"
	case "anthropic":
		defaultModel = "claude-3-5-sonnet-20241022"
	case "gemini":
		defaultModel = "gemini-2.0-flash"
	case "openai":
		defaultModel = "gpt-4o-mini"
	}
	config.LLM = LLMConfig{
		Provider: llmProvider,
		APIKey:   os.Getenv("LLM_API_KEY"),
		Model:    getEnvOrDefault("LLM_MODEL", defaultModel),
		BaseURL:  getEnvOrDefault("LLM_BASE_URL", llmBaseURL),
	}

	var err error
	if config.Memory.DuplicateThreshold, err = envFloat("MEMORY_DUPLICATE_THRESHOLD", config.Memory.DuplicateThreshold); err != nil {
		return nil, err
	}
	if config.Memory.MergeThreshold, err = envFloat("MEMORY_MERGE_THRESHOLD", config.Memory.MergeThreshold); err != nil {
		return nil, err
	}
	if config.Memory.DecayRate, err = envFloat("MEMORY_DECAY_RATE", config.Memory.DecayRate); err != nil {
		return nil, err
	}
	if config.Memory.MaxMemories, err = envInt("MEMORY_MAX_MEMORIES", config.Memory.MaxMemories); err != nil {
		return nil, err
	}
	if config.Timeouts.LLM, err = envDuration("LLM_TIMEOUT", config.Timeouts.LLM); err != nil {
		return nil, err
	}
	if config.Maintenance.Interval, err = envDuration("MAINTENANCE_INTERVAL", config.Maintenance.Interval); err != nil {
		return nil, err
	}
	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		config.Cache.Enabled = v == "true"
	}
	config.Logging.Level = getEnvOrDefault("LOG_LEVEL", config.Logging.Level)
	config.Logging.Format = getEnvOrDefault("LOG_FORMAT", config.Logging.Format)

	return config, nil
}

// LoadConfigFromEnvFile loads configuration from a specific .env file.
//
// Parameters:
//   - envPath: Path to the .env file
//
// Returns a Config instance, or an error if loading fails.
func LoadConfigFromEnvFile(envPath string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}
	return LoadConfigFromEnv()
}

// LoadConfigFromJSON loads configuration from a JSON file. Fields missing
// from the file keep their DefaultConfig values.
//
// Parameters:
//   - path: Path to the JSON configuration file
//
// Returns a Config instance, or an error if loading or parsing fails.
func LoadConfigFromJSON(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, NewMemoryError("LoadConfigFromJSON", err)
	}

	return config, nil
}

// Validate validates the configuration.
//
// Checks that:
//   - the store provider is known
//   - the LLM provider, when set, is known
//   - thresholds lie in (0, 1], the decay rate is positive and capacity is positive
//
// Returns an error if validation fails, nil otherwise.
func (c *Config) Validate() error {
	switch c.Store.Provider {
	case "memory", "sqlite", "postgres", "mysql", "badger":
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, c.Store.Provider))
	}
	switch c.LLM.Provider {
	case "", "openai", "deepseek", "qwen", "anthropic", "gemini", "ollama":
	default:
		return NewMemoryError("Validate", fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, c.LLM.Provider))
	}
	if !inUnitRange(c.Memory.DuplicateThreshold) || !inUnitRange(c.Memory.MergeThreshold) {
		return NewMemoryError("Validate", fmt.Errorf("%w: similarity thresholds must be in (0, 1]", ErrInvalidConfig))
	}
	if c.Memory.DecayRate <= 0 {
		return NewMemoryError("Validate", fmt.Errorf("%w: decay rate must be positive", ErrInvalidConfig))
	}
	if c.Memory.MaxMemories <= 0 {
		return NewMemoryError("Validate", fmt.Errorf("%w: max memories must be positive", ErrInvalidConfig))
	}
	return nil
}

func inUnitRange(v float64) bool {
	return v > 0 && v <= 1
}

// getEnvOrDefault gets an environment variable or returns the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err))
	}
	return f, nil
}

func envInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err))
	}
	return n, nil
}

func envDuration(key string, defaultValue Duration) (Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, NewMemoryError("LoadConfigFromEnv", fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err))
	}
	return Duration(d), nil
}

// FindEnvFile searches for .env or .env.example files.
//
// The search:
//  1. Checks the current directory
//  2. Searches up to 5 directory levels up
//  3. Returns the first .env or .env.example file found
//
// Returns:
//   - path: Path to the found file (empty if not found)
//   - found: True if a file was found, false otherwise
func FindEnvFile() (string, bool) {
	if _, err := os.Stat(".env"); err == nil {
		return ".env", true
	}
	if _, err := os.Stat(".env.example"); err == nil {
		return ".env.example", true
	}

	dir, _ := os.Getwd()
	for i := 0; i < 5; i++ {
		envPath := filepath.Join(dir, ".env")
		envExamplePath := filepath.Join(dir, ".env.example")

		if _, err := os.Stat(envPath); err == nil {
			return envPath, true
		}
		if _, err := os.Stat(envExamplePath); err == nil {
			return envExamplePath, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", false
}
