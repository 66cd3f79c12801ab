// Package config loads the optional workspace configuration file
// .codelens/config.toml. Absent file means defaults; the environment still
// overrides embedder selection downstream.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the workspace config file under the artifact directory.
const FileName = "config.toml"

// Config is the workspace-level configuration.
type Config struct {
	Embedder EmbedderConfig `toml:"embedder"`
	Index    IndexConfig    `toml:"index"`
	Search   SearchConfig   `toml:"search"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	BaseURL   string `toml:"base_url"`
	CacheSize int    `toml:"cache_size"`
}

// IndexConfig tunes the background build.
type IndexConfig struct {
	Workers int      `toml:"workers"`
	Watch   bool     `toml:"watch"`
	Ignore  []string `toml:"ignore"`
}

// SearchConfig sets query defaults.
type SearchConfig struct {
	TopK          int     `toml:"top_k"`
	MinSimilarity float64 `toml:"min_similarity"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		Embedder: EmbedderConfig{Provider: "local"},
		Search:   SearchConfig{TopK: 10, MinSimilarity: 0.3},
	}
}

// Load reads the config file under artifactDir, falling back to defaults
// when the file is absent. A malformed file is an error, not a silent
// default.
func Load(artifactDir string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(artifactDir, FileName))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = 10
	}
	return cfg, nil
}
