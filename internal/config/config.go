// Package config provides the configuration subsystem built on viper.
//
// Configuration is read from a YAML file and can be overridden through
// RAGSTAGE_* environment variables (dots replaced by underscores, e.g.
// RAGSTAGE_PIPELINE_BATCH_SIZE). A handful of legacy environment names
// used by existing deployments are also honored: Embed_API_URL,
// CHROMA_SERVER_URL, DeepSeek_API_Key and DeepSeek_Model_Name.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// configFilePath stores the path to the loaded config file
var configFilePath string

// Init initializes the configuration subsystem.
// It searches for configuration files in priority order:
//  1. Directory specified by RAGSTAGE_CONFIG_DIR environment variable
//  2. ~/.config/ragstage/
//  3. Current working directory (.)
//
// If no config file is found, sensible defaults are used.
// If a config file exists but is invalid or unreadable, Init returns an error.
func Init() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("RAGSTAGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()
	bindLegacyEnv()

	if envPath := os.Getenv("RAGSTAGE_CONFIG_DIR"); envPath != "" {
		viper.AddConfigPath(envPath)
	}

	if home := os.Getenv("HOME"); home != "" {
		viper.AddConfigPath(filepath.Join(home, ".config", "ragstage"))
	}

	viper.AddConfigPath(".")

	err := viper.ReadInConfig()
	if err != nil {
		// No config file is acceptable; defaults plus env apply
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			configFilePath = ""
			return nil
		}
		return fmt.Errorf("failed to read config; %w", err)
	}

	configFilePath = viper.ConfigFileUsed()
	return nil
}

// Get returns the typed configuration assembled from defaults, the config
// file, and environment overrides. Returns a validation error if the
// resulting configuration is unusable.
func Get() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config; %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ConfigFilePath returns the path to the loaded config file,
// or empty string if using defaults only.
func ConfigFilePath() string {
	return configFilePath
}

// Reset clears the configuration state for testing purposes.
func Reset() {
	viper.Reset()
	configFilePath = ""
}

// GetString returns the string value for the given key.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns the integer value for the given key.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns the boolean value for the given key.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// Set sets a value for the given key, overriding defaults and config file
// values. Primarily used for testing.
func Set(key string, value any) {
	viper.Set(key, value)
}

// GetPath returns the string value for the given key with ~ expanded to $HOME.
func GetPath(key string) string {
	return expandHome(viper.GetString(key))
}

// expandHome expands a leading ~ in path to the user's home directory.
// Only "~" alone or "~/..." patterns are expanded.
func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	if len(path) > 1 && path[1] != '/' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if len(path) == 1 {
		return home
	}

	return filepath.Join(home, path[2:])
}

// bindLegacyEnv maps environment variable names used by existing
// deployments onto their config keys. The RAGSTAGE_* names take
// precedence when both are set.
func bindLegacyEnv() {
	_ = viper.BindEnv("embeddings.url", "RAGSTAGE_EMBEDDINGS_URL", "Embed_API_URL")
	_ = viper.BindEnv("vectorstore.uri", "RAGSTAGE_VECTORSTORE_URI", "CHROMA_SERVER_URL")
	_ = viper.BindEnv("llm.api_key", "RAGSTAGE_LLM_API_KEY", "DeepSeek_API_Key")
	_ = viper.BindEnv("llm.model", "RAGSTAGE_LLM_MODEL", "DeepSeek_Model_Name")
}

// setDefaults registers all default configuration values.
func setDefaults() {
	viper.SetDefault("log_level", DefaultLogLevel)
	viper.SetDefault("log_file", DefaultLogFile)

	viper.SetDefault("redis.addr", DefaultRedisAddr)
	viper.SetDefault("redis.db", DefaultRedisDB)

	viper.SetDefault("pipeline.poll_interval_ms", DefaultPollIntervalMs)
	viper.SetDefault("pipeline.rows_per_file", DefaultRowsPerFile)
	viper.SetDefault("pipeline.batch_size", DefaultBatchSize)
	viper.SetDefault("pipeline.max_concurrency", DefaultMaxConcurrency)
	viper.SetDefault("pipeline.strict_consistency", DefaultStrictConsistency)

	viper.SetDefault("llm.model", DefaultLLMModel)
	viper.SetDefault("llm.base_url", DefaultLLMBaseURL)
	viper.SetDefault("llm.rate_limit", DefaultLLMRateLimit)

	viper.SetDefault("embeddings.url", DefaultEmbeddingsURL)
	viper.SetDefault("embeddings.model", DefaultEmbeddingsModel)

	viper.SetDefault("vectorstore.uri", DefaultVectorStoreURI)
	viper.SetDefault("vectorstore.collection_name", DefaultCollectionName)
	viper.SetDefault("vectorstore.dim", DefaultVectorDim)
	viper.SetDefault("vectorstore.enable_dense", DefaultEnableDense)
	viper.SetDefault("vectorstore.enable_sparse", DefaultEnableSparse)
	viper.SetDefault("vectorstore.overwrite", DefaultVectorOverwrite)

	viper.SetDefault("elastic.url", DefaultElasticURL)
	viper.SetDefault("elastic.index", DefaultElasticIndex)
}
