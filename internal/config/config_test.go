package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/hyperjump/similar/internal/models"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "/tmp/similar.db"
recommend:
  default_k: 15
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Recommend.DefaultK != 15 || cfg.Recommend.MinK != 5 || cfg.Recommend.MaxK != 30 {
		t.Errorf("unexpected recommend config: %+v", cfg.Recommend)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
	if cfg.Data.MetadataPath != "" {
		t.Errorf("metadata_path should stay empty when unset, got %q", cfg.Data.MetadataPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
storage:
  database_path: "./data/db/similar.db"
data:
  metadata_path: "./data/embedding_meta.tsv"
  variants:
    content: "./data/content/embedding_vectors.tsv"
    hybrid: "/abs/hybrid.tsv"
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "data", "db", "similar.db"); cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
	if want := filepath.Join(dir, "data", "embedding_meta.tsv"); cfg.Data.MetadataPath != want {
		t.Errorf("metadata_path = %s, want %s", cfg.Data.MetadataPath, want)
	}

	paths := cfg.Data.Variants.Paths()
	if len(paths) != 2 {
		t.Fatalf("variant paths: got %v", paths)
	}
	if want := filepath.Join(dir, "data", "content", "embedding_vectors.tsv"); paths[models.VariantContent] != want {
		t.Errorf("content = %s, want %s", paths[models.VariantContent], want)
	}
	if paths[models.VariantHybrid] != "/abs/hybrid.tsv" {
		t.Errorf("hybrid = %s", paths[models.VariantHybrid])
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" || cfg.Server.Port != 8080 {
		t.Errorf("default server: got %+v", cfg.Server)
	}
	if cfg.Index.Type != "flat" {
		t.Errorf("default index type: got %s", cfg.Index.Type)
	}
	if cfg.Recommend.Exclusion != "positional" {
		t.Errorf("default exclusion: got %s", cfg.Recommend.Exclusion)
	}
	if cfg.Evaluation.K != 10 || cfg.Evaluation.GroupColumn != "group" {
		t.Errorf("default evaluation: got %+v", cfg.Evaluation)
	}
	if cfg.Watch.DebounceMS != 500 {
		t.Errorf("default debounce: got %d", cfg.Watch.DebounceMS)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		isK    bool
	}{
		{"default above max", func(c *Config) { c.Recommend.DefaultK = 40 }, true},
		{"min above max", func(c *Config) { c.Recommend.MinK = 31 }, true},
		{"evaluation k", func(c *Config) { c.Evaluation.K = -1 }, true},
		{"exclusion", func(c *Config) { c.Recommend.Exclusion = "none" }, false},
		{"index type", func(c *Config) { c.Index.Type = "hnsw" }, false},
		{"port", func(c *Config) { c.Server.Port = 70000 }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			ApplyDefaults(cfg)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.isK && !errors.Is(err, models.ErrInvalidK) {
				t.Errorf("err = %v, want ErrInvalidK", err)
			}
		})
	}
}

func TestSave(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "saved.yaml")
	cfg := &Config{
		Server:  ServerConfig{Host: "localhost", Port: 9090},
		Storage: StorageConfig{DatabasePath: "/tmp/db"},
		Data:    DataConfig{Variants: VariantsConfig{Collaborative: "/tmp/cf.tsv"}},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Server.Port != 9090 {
		t.Errorf("loaded port: got %d", loaded.Server.Port)
	}
	if loaded.Data.Variants.Collaborative != "/tmp/cf.tsv" {
		t.Errorf("loaded collaborative path: got %s", loaded.Data.Variants.Collaborative)
	}
}
