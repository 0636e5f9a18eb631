// Package config provides configuration loading and structs for the similar server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hyperjump/similar/internal/evaluation"
	"github.com/hyperjump/similar/internal/models"
	"github.com/hyperjump/similar/internal/similarity"
	"github.com/hyperjump/similar/internal/vector"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Data       DataConfig       `yaml:"data"`
	Index      IndexConfig      `yaml:"index"`
	Recommend  RecommendConfig  `yaml:"recommend"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Watch      WatchConfig      `yaml:"watch"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// CORSOrigins lists browser origins allowed to call the API; empty disables CORS.
	CORSOrigins []string `yaml:"cors_origins"`
	// RateLimit is the API request budget per client IP per minute; a negative value disables it.
	RateLimit int `yaml:"rate_limit"`
}

// StorageConfig holds the database path.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// DataConfig locates the item metadata and the embedding matrix of each variant.
type DataConfig struct {
	// MetadataPath is the item metadata TSV. When empty the catalog is read
	// from the database (see the import command).
	MetadataPath string         `yaml:"metadata_path"`
	Normalize    bool           `yaml:"normalize"`
	Variants     VariantsConfig `yaml:"variants"`
}

// VariantsConfig holds one embedding TSV path per variant; empty paths are not loaded.
type VariantsConfig struct {
	Content       string `yaml:"content"`
	Collaborative string `yaml:"collaborative"`
	Hybrid        string `yaml:"hybrid"`
}

// Paths maps each configured variant to its file.
func (v VariantsConfig) Paths() map[models.Variant]string {
	out := make(map[models.Variant]string, 3)
	if v.Content != "" {
		out[models.VariantContent] = v.Content
	}
	if v.Collaborative != "" {
		out[models.VariantCollaborative] = v.Collaborative
	}
	if v.Hybrid != "" {
		out[models.VariantHybrid] = v.Hybrid
	}
	return out
}

// IndexConfig selects the vector index implementation.
type IndexConfig struct {
	Type string `yaml:"type"`
}

// RecommendConfig holds interactive query settings.
type RecommendConfig struct {
	MinK      int    `yaml:"min_k"`
	MaxK      int    `yaml:"max_k"`
	DefaultK  int    `yaml:"default_k"`
	Exclusion string `yaml:"exclusion"`
	CacheSize int    `yaml:"cache_size"`
}

// EvaluationConfig holds defaults for the evaluate command and API.
type EvaluationConfig struct {
	K               int    `yaml:"k"`
	GroupColumn     string `yaml:"group_column"`
	PredictedColumn string `yaml:"predicted_column"`
	TargetColumn    string `yaml:"target_column"`
}

// Columns returns the configured column names.
func (e EvaluationConfig) Columns() evaluation.Columns {
	return evaluation.Columns{Group: e.GroupColumn, Predicted: e.PredictedColumn, Target: e.TargetColumn}
}

// WatchConfig holds data file watch settings.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Data.MetadataPath = expandPath(cfg.Data.MetadataPath, configDir)
	cfg.Data.Variants.Content = expandPath(cfg.Data.Variants.Content, configDir)
	cfg.Data.Variants.Collaborative = expandPath(cfg.Data.Variants.Collaborative, configDir)
	cfg.Data.Variants.Hybrid = expandPath(cfg.Data.Variants.Hybrid, configDir)

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate checks settings that defaults cannot fix.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	r := c.Recommend
	if r.MinK <= 0 || r.MaxK < r.MinK || r.DefaultK < r.MinK || r.DefaultK > r.MaxK {
		return fmt.Errorf("%w: recommend k range [%d, %d] with default %d", models.ErrInvalidK, r.MinK, r.MaxK, r.DefaultK)
	}
	if c.Evaluation.K <= 0 {
		return fmt.Errorf("%w: evaluation.k=%d", models.ErrInvalidK, c.Evaluation.K)
	}
	if _, err := similarity.ParseExclusionMode(r.Exclusion); err != nil {
		return fmt.Errorf("recommend.exclusion: %w", err)
	}
	switch vector.IndexType(c.Index.Type) {
	case vector.IndexTypeFlat, vector.IndexTypeFAISS:
	default:
		return fmt.Errorf("index.type: unknown index type %q (supported: flat, faiss)", c.Index.Type)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
