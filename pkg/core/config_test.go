package core_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	careermem "github.com/hireflow/careermem-go/pkg/core"
)

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		check   func(t *testing.T, cfg *careermem.Config)
	}{
		{
			name: "sqlite with qwen",
			envVars: map[string]string{
				"DATABASE_PROVIDER": "sqlite",
				"SQLITE_PATH":       "./test.db",
				"LLM_PROVIDER":      "qwen",
				"LLM_API_KEY":       "test-key",
			},
			check: func(t *testing.T, cfg *careermem.Config) {
				assert.Equal(t, "sqlite", cfg.Store.Provider)
				assert.Equal(t, "./test.db", cfg.Store.Config["db_path"])
				assert.Equal(t, "qwen", cfg.LLM.Provider)
				assert.Equal(t, "qwen-plus", cfg.LLM.Model)
			},
		},
		{
			name: "postgres with explicit model",
			envVars: map[string]string{
				"DATABASE_PROVIDER": "postgres",
				"POSTGRES_HOST":     "db.internal",
				"POSTGRES_PORT":     "6543",
				"LLM_PROVIDER":      "openai",
				"LLM_MODEL":         "gpt-4o",
			},
			check: func(t *testing.T, cfg *careermem.Config) {
				assert.Equal(t, "postgres", cfg.Store.Provider)
				assert.Equal(t, "db.internal", cfg.Store.Config["host"])
				assert.Equal(t, 6543, cfg.Store.Config["port"])
				assert.Equal(t, "gpt-4o", cfg.LLM.Model)
			},
		},
		{
			name: "badger with algorithm overrides",
			envVars: map[string]string{
				"DATABASE_PROVIDER":          "badger",
				"BADGER_IN_MEMORY":           "true",
				"MEMORY_DUPLICATE_THRESHOLD": "0.9",
				"MEMORY_MAX_MEMORIES":        "250",
				"MAINTENANCE_INTERVAL":       "12h",
				"LLM_TIMEOUT":                "10s",
				"CACHE_ENABLED":              "false",
				"LOG_LEVEL":                  "debug",
			},
			check: func(t *testing.T, cfg *careermem.Config) {
				assert.Equal(t, "badger", cfg.Store.Provider)
				assert.Equal(t, true, cfg.Store.Config["in_memory"])
				assert.Equal(t, 0.9, cfg.Memory.DuplicateThreshold)
				assert.Equal(t, 250, cfg.Memory.MaxMemories)
				assert.Equal(t, 12*time.Hour, cfg.Maintenance.Interval.Std())
				assert.Equal(t, 10*time.Second, cfg.Timeouts.LLM.Std())
				assert.False(t, cfg.Cache.Enabled)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}
			config, err := careermem.LoadConfigFromEnv()
			require.NoError(t, err)
			require.NoError(t, config.Validate())
			tt.check(t, config)
		})
	}
}

func TestLoadConfigFromEnvRejectsBadNumbers(t *testing.T) {
	t.Setenv("MEMORY_DECAY_RATE", "fast")

	_, err := careermem.LoadConfigFromEnv()
	assert.ErrorIs(t, err, careermem.ErrInvalidConfig)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*careermem.Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*careermem.Config) {}},
		{name: "unknown store", mutate: func(c *careermem.Config) { c.Store.Provider = "oracle" }, wantErr: true},
		{name: "unknown llm", mutate: func(c *careermem.Config) { c.LLM.Provider = "eliza" }, wantErr: true},
		{name: "threshold above one", mutate: func(c *careermem.Config) { c.Memory.DuplicateThreshold = 1.5 }, wantErr: true},
		{name: "zero merge threshold", mutate: func(c *careermem.Config) { c.Memory.MergeThreshold = 0 }, wantErr: true},
		{name: "negative decay", mutate: func(c *careermem.Config) { c.Memory.DecayRate = -0.1 }, wantErr: true},
		{name: "zero capacity", mutate: func(c *careermem.Config) { c.Memory.MaxMemories = 0 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := careermem.DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, careermem.ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "careermem.json")
	body := `{
		"store": {"provider": "sqlite", "config": {"db_path": "/tmp/cm.db"}},
		"memory": {"decay_rate": 0.05},
		"timeouts": {"llm": "45s", "store": 2}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := careermem.LoadConfigFromJSON(path)
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Provider)
	assert.Equal(t, 0.05, cfg.Memory.DecayRate)
	assert.Equal(t, 45*time.Second, cfg.Timeouts.LLM.Std())
	assert.Equal(t, 2*time.Second, cfg.Timeouts.Store.Std())
	// untouched sections keep their defaults
	assert.Equal(t, 0.8, cfg.Memory.DuplicateThreshold)
	assert.Equal(t, 20, cfg.Conversation.SummaryInterval)
}

func TestDurationJSON(t *testing.T) {
	data, err := json.Marshal(careermem.Duration(90 * time.Second))
	require.NoError(t, err)
	assert.JSONEq(t, `"1m30s"`, string(data))

	var d careermem.Duration
	assert.Error(t, json.Unmarshal([]byte(`"soon"`), &d))
	assert.Error(t, json.Unmarshal([]byte(`true`), &d))
}
