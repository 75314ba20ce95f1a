// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads clausematch settings from an optional YAML file and
// CLAUSEMATCH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/clausematch/ai"
	"github.com/poiesic/clausematch/embed"
	"github.com/poiesic/clausematch/verify"
	"github.com/spf13/viper"
)

// EnvPrefix is the environment variable prefix of every setting.
const EnvPrefix = "CLAUSEMATCH"

// StorageConfig locates the result database.
type StorageConfig struct {
	// Path is the badger directory. Empty with InMemory unset means
	// results are not persisted.
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

// EmbeddingConfig tunes store embedding.
type EmbeddingConfig struct {
	BatchSize   int           `mapstructure:"batch_size"`
	Concurrency int           `mapstructure:"concurrency"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	RetryDelay  time.Duration `mapstructure:"retry_delay"`
	// Cache stores vectors in the result database when one is configured.
	Cache       bool          `mapstructure:"cache"`
}

// Config is the complete application configuration.
type Config struct {
	AI        ai.Config       `mapstructure:"ai"`
	Verify    verify.Config   `mapstructure:"verify"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Embedding EmbeddingConfig `mapstructure:"embedding"`

	// MetricsAddr enables a Prometheus endpoint when non-empty, e.g. ":9090".
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		AI:      *ai.DefaultConfig(),
		Verify:  *verify.DefaultConfig(),
		Storage: StorageConfig{},
		Embedding: EmbeddingConfig{
			BatchSize:   embed.DefaultBatchSize,
			Concurrency: embed.DefaultConcurrency,
			MaxAttempts: embed.DefaultMaxAttempts,
			RetryDelay:  embed.DefaultRetryDelay,
			Cache:       true,
		},
	}
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())
	return v
}

// setDefaults registers every key so that environment variables can
// override keys absent from the file.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("ai.embedding_host", d.AI.EmbeddingHost)
	v.SetDefault("ai.judge_host", d.AI.JudgeHost)
	v.SetDefault("ai.embedding_model", d.AI.EmbeddingModel)
	v.SetDefault("ai.judge_model", d.AI.JudgeModel)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.temperature", d.AI.Temperature)
	v.SetDefault("ai.max_attempts", d.AI.MaxAttempts)

	v.SetDefault("verify.dense_weight", d.Verify.DenseWeight)
	v.SetDefault("verify.sparse_weight", d.Verify.SparseWeight)
	v.SetDefault("verify.text_weight", d.Verify.TextWeight)
	v.SetDefault("verify.title_weight", d.Verify.TitleWeight)
	v.SetDefault("verify.top_k_candidates", d.Verify.TopKCandidates)
	v.SetDefault("verify.top_k_per_sub_item", d.Verify.TopKPerSubItem)
	v.SetDefault("verify.top_k_titles", d.Verify.TopKTitles)
	v.SetDefault("verify.forward_top_k", d.Verify.ForwardTopK)
	v.SetDefault("verify.failed_candidates_kept", d.Verify.FailedCandidatesKept)
	v.SetDefault("verify.min_confidence", d.Verify.MinConfidence)
	v.SetDefault("verify.granularity", string(d.Verify.Granularity))
	v.SetDefault("verify.workers", d.Verify.Workers)

	v.SetDefault("storage.path", d.Storage.Path)
	v.SetDefault("storage.in_memory", d.Storage.InMemory)

	v.SetDefault("embedding.batch_size", d.Embedding.BatchSize)
	v.SetDefault("embedding.concurrency", d.Embedding.Concurrency)
	v.SetDefault("embedding.max_attempts", d.Embedding.MaxAttempts)
	v.SetDefault("embedding.retry_delay", d.Embedding.RetryDelay)
	v.SetDefault("embedding.cache", d.Embedding.Cache)

	v.SetDefault("metrics_addr", d.MetricsAddr)
}

// Load reads the YAML file at path, when path is non-empty, applies
// CLAUSEMATCH_* environment overrides and validates the result.
// CLAUSEMATCH_VERIFY_MIN_CONFIDENCE overrides verify.min_confidence, and so on.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read %q: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if err := c.AI.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Verify.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Embedding.BatchSize < 1 {
		errs = append(errs, embed.ErrInvalidBatchSize)
	}
	if c.Embedding.MaxAttempts < 1 {
		errs = append(errs, embed.ErrInvalidMaxAttempts)
	}
	return errors.Join(errs...)
}

// Persistent reports whether results should be stored.
func (s StorageConfig) Persistent() bool {
	return s.InMemory || s.Path != ""
}
