package config

import "github.com/hyperjump/similar/internal/evaluation"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimit == 0 {
		cfg.Server.RateLimit = 1200
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/similar/data/db/similar.db"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "flat"
	}
	// Slider bounds of the interactive page: 5 to 30, default 10.
	if cfg.Recommend.MinK == 0 {
		cfg.Recommend.MinK = 5
	}
	if cfg.Recommend.MaxK == 0 {
		cfg.Recommend.MaxK = 30
	}
	if cfg.Recommend.DefaultK == 0 {
		cfg.Recommend.DefaultK = 10
	}
	if cfg.Recommend.Exclusion == "" {
		cfg.Recommend.Exclusion = "positional"
	}
	if cfg.Recommend.CacheSize == 0 {
		cfg.Recommend.CacheSize = 1024
	}
	if cfg.Evaluation.K == 0 {
		cfg.Evaluation.K = 10
	}
	if cfg.Evaluation.GroupColumn == "" {
		cfg.Evaluation.GroupColumn = evaluation.DefaultGroupColumn
	}
	if cfg.Evaluation.PredictedColumn == "" {
		cfg.Evaluation.PredictedColumn = evaluation.DefaultPredictedColumn
	}
	if cfg.Evaluation.TargetColumn == "" {
		cfg.Evaluation.TargetColumn = evaluation.DefaultTargetColumn
	}
	if cfg.Watch.DebounceMS == 0 {
		cfg.Watch.DebounceMS = 500
	}
}
