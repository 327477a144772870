package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/vecdelta/embedding"
	"github.com/viant/vecdelta/vecsync"
)

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	cfg, err := loadConfig("ex.config.toml")
	require.NoError(t, err)
	assert.Equal(t, "replica.sqlite", cfg.DB)
	assert.Equal(t, "primary.sqlite", cfg.Upstream)
	assert.Equal(t, "docs", cfg.Dataset)
	assert.Equal(t, embedding.StrategyDelta, cfg.Strategy)
	assert.Equal(t, embedding.F16, cfg.DType)
	assert.Equal(t, vecsync.CompressionZSTD, cfg.Compression)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, zerolog.DebugLevel, cfg.LogLevel)
}

func TestLoadConfigPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	require.NoError(t, os.WriteFile(path, []byte("dataset = \"faq\"\n"), 0o644))

	cfg, err := loadConfig(path)
	require.NoError(t, err)
	want := defaultConfig()
	want.Dataset = "faq"
	assert.Equal(t, want, cfg)
}

func TestLoadConfigErrors(t *testing.T) {
	var testCases = []struct {
		description string
		content     string
	}{
		{description: "strategy", content: `strategy = "sparse"`},
		{description: "dtype", content: `dtype = "int8"`},
		{description: "compression", content: `compression = "gzip"`},
		{description: "batch size", content: `batch_size = 0`},
		{description: "interval", content: `interval = "soon"`},
		{description: "log level", content: `log_level = "loud"`},
		{description: "syntax", content: `db = `},
	}
	for _, testCase := range testCases {
		path := filepath.Join(t.TempDir(), "bad.toml")
		require.NoError(t, os.WriteFile(path, []byte(testCase.content+"\n"), 0o644))
		_, err := loadConfig(path)
		assert.Error(t, err, testCase.description)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, defaultConfig(), cfg)
}
