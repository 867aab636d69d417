package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hireflow/careermem-go/pkg/core"
)

var (
	// Global flags
	envFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "careermem",
	Short: "Personalization memory and conversation engine for career coaching",
	Long: `careermem - command line access to the career memory engine.

Configuration is read from the environment. A .env file in the working
directory (or up to five parents) is loaded automatically; --env-file
points at a specific one.

Examples:
  # Seed and inspect a memory store
  careermem memory add user_001 --type skill --category professional "Go, 6 years"
  careermem memory relevant user_001 --tag go

  # Run nightly maintenance for every user
  careermem maintain

  # Talk to the coach
  careermem conversation create user_001 --title "Interview prep"
  careermem conversation send <conversation-id> "How do I prepare for system design?"`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: json or text")
}

// loadConfig reads the configuration and applies the global flag overrides.
func loadConfig() (*core.Config, error) {
	var (
		cfg *core.Config
		err error
	)
	if envFile != "" {
		cfg, err = core.LoadConfigFromEnvFile(envFile)
	} else {
		cfg, err = core.LoadConfigFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

// openClient builds a client from the loaded configuration. Callers close it.
func openClient() (*core.Client, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return core.NewClient(cfg)
}
