package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog"
	"github.com/viant/vecdelta/embedding"
	"github.com/viant/vecdelta/vecsync"
)

type config struct {
	DB          string
	Upstream    string
	Dataset     string
	Strategy    embedding.UpdateStrategy
	DType       embedding.DType
	Compression vecsync.Compression
	BatchSize   int
	Interval    time.Duration
	LogLevel    zerolog.Level
}

func defaultConfig() config {
	return config{
		DB:        "vecdelta.sqlite",
		Dataset:   "default",
		DType:     embedding.F32,
		BatchSize: 100,
		Interval:  time.Second,
		LogLevel:  zerolog.InfoLevel,
	}
}

type fileConfig struct {
	DB          string `toml:"db"`
	Upstream    string `toml:"upstream"`
	Dataset     string `toml:"dataset"`
	Strategy    string `toml:"strategy"`
	DType       string `toml:"dtype"`
	Compression string `toml:"compression"`
	BatchSize   int    `toml:"batch_size"`
	Interval    string `toml:"interval"`
	LogLevel    string `toml:"log_level"`
}

func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return config{}, fmt.Errorf("load deltactl config: %w", err)
	}

	if meta.IsDefined("db") {
		if v := strings.TrimSpace(raw.DB); v != "" {
			cfg.DB = v
		}
	}

	if meta.IsDefined("upstream") {
		cfg.Upstream = strings.TrimSpace(raw.Upstream)
	}

	if meta.IsDefined("dataset") {
		if v := strings.TrimSpace(raw.Dataset); v != "" {
			cfg.Dataset = v
		}
	}

	if meta.IsDefined("strategy") {
		if cfg.Strategy, err = embedding.ParseUpdateStrategy(raw.Strategy); err != nil {
			return config{}, fmt.Errorf("parse strategy: %w", err)
		}
	}

	if meta.IsDefined("dtype") {
		if cfg.DType, err = embedding.ParseDType(raw.DType); err != nil {
			return config{}, fmt.Errorf("parse dtype: %w", err)
		}
	}

	if meta.IsDefined("compression") {
		if cfg.Compression, err = vecsync.ParseCompression(raw.Compression); err != nil {
			return config{}, fmt.Errorf("parse compression: %w", err)
		}
	}

	if meta.IsDefined("batch_size") {
		if raw.BatchSize <= 0 {
			return config{}, fmt.Errorf("batch_size must be positive, got %d", raw.BatchSize)
		}
		cfg.BatchSize = raw.BatchSize
	}

	if meta.IsDefined("interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Interval))
		if err != nil {
			return config{}, fmt.Errorf("parse interval: %w", err)
		}
		cfg.Interval = d
	}

	if meta.IsDefined("log_level") {
		level, err := zerolog.ParseLevel(strings.TrimSpace(raw.LogLevel))
		if err != nil {
			return config{}, fmt.Errorf("parse log_level: %w", err)
		}
		cfg.LogLevel = level
	}

	return cfg, nil
}
