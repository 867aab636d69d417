package core

import (
	"context"
	"fmt"
	"strconv"

	"github.com/hireflow/careermem-go/pkg/llm"
	anthropicLLM "github.com/hireflow/careermem-go/pkg/llm/anthropic"
	geminiLLM "github.com/hireflow/careermem-go/pkg/llm/gemini"
	ollamaLLM "github.com/hireflow/careermem-go/pkg/llm/ollama"
	openaiLLM "github.com/hireflow/careermem-go/pkg/llm/openai"
	"github.com/hireflow/careermem-go/pkg/logging"
	"github.com/hireflow/careermem-go/pkg/storage"
	badgerStore "github.com/hireflow/careermem-go/pkg/storage/badger"
	"github.com/hireflow/careermem-go/pkg/storage/memstore"
	mysqlStore "github.com/hireflow/careermem-go/pkg/storage/mysql"
	postgresStore "github.com/hireflow/careermem-go/pkg/storage/postgres"
	sqliteStore "github.com/hireflow/careermem-go/pkg/storage/sqlite"
)

// OpenStore builds the document store named by cfg.Provider.
//
// Parameters:
//   - cfg: Store provider and its provider-specific settings
//   - logger: Receives backend warnings (used by badger; may be nil)
//
// Returns the store, or an error wrapping ErrInvalidConfig for an unknown
// provider or a failed connection.
func OpenStore(cfg StoreConfig, logger logging.Logger) (storage.DocumentStore, error) {
	c := cfg.Config
	switch cfg.Provider {
	case "memory":
		return memstore.New(), nil
	case "sqlite":
		return wrapStore(sqliteStore.NewClient(&sqliteStore.Config{
			DBPath:         cfgString(c, "db_path", "./careermem.db"),
			CollectionName: cfgString(c, "collection_name", ""),
		}))
	case "postgres":
		return wrapStore(postgresStore.NewClient(&postgresStore.Config{
			Host:           cfgString(c, "host", "localhost"),
			Port:           cfgInt(c, "port", 5432),
			User:           cfgString(c, "user", "postgres"),
			Password:       cfgString(c, "password", ""),
			DBName:         cfgString(c, "db_name", "careermem"),
			CollectionName: cfgString(c, "collection_name", ""),
			SSLMode:        cfgString(c, "ssl_mode", "disable"),
		}))
	case "mysql":
		return wrapStore(mysqlStore.NewClient(&mysqlStore.Config{
			Host:           cfgString(c, "host", "127.0.0.1"),
			Port:           cfgInt(c, "port", 3306),
			User:           cfgString(c, "user", "root"),
			Password:       cfgString(c, "password", ""),
			DBName:         cfgString(c, "db_name", "careermem"),
			CollectionName: cfgString(c, "collection_name", ""),
		}))
	case "badger":
		return wrapStore(badgerStore.NewClient(&badgerStore.Config{
			Dir:      cfgString(c, "dir", "./careermem-badger"),
			InMemory: cfgBool(c, "in_memory"),
			Logger:   logger,
		}))
	default:
		return nil, NewMemoryError("OpenStore", fmt.Errorf("%w: unknown store provider %q", ErrInvalidConfig, cfg.Provider))
	}
}

// wrapStore converts a typed backend constructor result into the interface,
// keeping a nil store nil.
func wrapStore[S storage.DocumentStore](s S, err error) (storage.DocumentStore, error) {
	if err != nil {
		return nil, NewMemoryError("OpenStore", fmt.Errorf("%w: %w", ErrStorageOperation, err))
	}
	return s, nil
}

// OpenLLM builds the LLM provider named by cfg.Provider. An empty provider
// returns (nil, nil): the client then runs without extraction, semantic
// search and summaries.
func OpenLLM(ctx context.Context, cfg LLMConfig) (llm.Provider, error) {
	var (
		provider llm.Provider
		err      error
	)
	switch cfg.Provider {
	case "":
		return nil, nil
	case "openai":
		provider, err = openaiLLM.NewClient(&openaiLLM.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "deepseek":
		provider, err = openaiLLM.NewDeepSeekClient(&openaiLLM.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "qwen":
		provider, err = openaiLLM.NewQwenClient(&openaiLLM.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "anthropic":
		provider, err = anthropicLLM.NewClient(&anthropicLLM.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	case "gemini":
		provider, err = geminiLLM.NewClient(ctx, &geminiLLM.Config{APIKey: cfg.APIKey, Model: cfg.Model})
	case "ollama":
		provider, err = ollamaLLM.NewClient(&ollamaLLM.Config{APIKey: cfg.APIKey, Model: cfg.Model, BaseURL: cfg.BaseURL})
	default:
		return nil, NewMemoryError("OpenLLM", fmt.Errorf("%w: unknown llm provider %q", ErrInvalidConfig, cfg.Provider))
	}
	if err != nil {
		return nil, NewMemoryError("OpenLLM", fmt.Errorf("%w: %w", ErrLLMOperation, err))
	}
	return provider, nil
}

// Config maps decoded from JSON carry numbers as float64 and env-built maps
// carry ints, so the readers below accept either.

func cfgString(m map[string]interface{}, key, def string) string {
	if v, ok := m[key].(string); ok && v != "" {
		return v
	}
	return def
}

func cfgInt(m map[string]interface{}, key string, def int) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func cfgBool(m map[string]interface{}, key string) bool {
	switch v := m[key].(type) {
	case bool:
		return v
	case string:
		b, _ := strconv.ParseBool(v)
		return b
	}
	return false
}
