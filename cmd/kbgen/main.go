// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the kbgen CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/kbgen/internal/secrets"
	"github.com/pdiddy/kbgen/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets map[string]string

// secretDefault returns the secret value for key if it exists, or fallback otherwise.
func secretDefault(key, fallback string) string {
	if fallback != "" {
		return fallback
	}
	if v, ok := loadedSecrets[key]; ok {
		return v
	}
	return ""
}

// rootCmd is the base command for the kbgen CLI.
var rootCmd = &cobra.Command{
	Use:   "kbgen",
	Short: "Generate retrieval-optimized knowledge bases from web research",
	Long: `kbgen researches a topic on the web, verifies what it finds, and writes a
structured, retrieval-optimized knowledge base: content sections, vocabulary,
grammar rules, exercises, and precomputed lookup indexes.

Each generation job decomposes the topic into subtopics and runs every
subtopic through a five-stage pipeline: research, verification, organization,
writing, and quality review. Jobs, content, and usage telemetry persist in a
local SQLite database.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./kbgen.yaml or ~/.config/kbgen/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "SQLite database path (default: ./kbgen.db)")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("kbgen")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "kbgen"))
		}
	}

	viper.SetEnvPrefix("KBGEN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig assembles the effective configuration: defaults, then
// config file / environment, then API keys from .secrets/.
func pipelineConfig(cmd *cobra.Command) types.PipelineConfig {
	cfg := types.DefaultPipelineConfig()

	if v := viper.GetString("ai.model"); v != "" {
		cfg.AI.Model = v
	}
	if v := viper.GetInt("ai.max_tokens"); v > 0 {
		cfg.AI.MaxTokens = v
	}
	if viper.IsSet("ai.temperature") {
		cfg.AI.Temperature = viper.GetFloat64("ai.temperature")
	}
	if v := viper.GetString("search.depth"); v != "" {
		cfg.Search.Depth = v
	}
	if v := viper.GetString("store.path"); v != "" {
		cfg.Store.Path = v
	}
	if v := viper.GetDuration("feedback.window"); v > 0 {
		cfg.Feedback.Window = v
	}

	if db, _ := cmd.Flags().GetString("db"); db != "" {
		cfg.Store.Path = db
	}

	cfg.AI.APIKey = secretDefault("anthropic-api-key", viper.GetString("ai.api_key"))
	cfg.Search.APIKey = secretDefault("tavily-api-key", viper.GetString("search.api_key"))
	return cfg
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
