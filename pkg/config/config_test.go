package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 2, cfg.Reasoning.DefaultHops)
	assert.Equal(t, 3, cfg.Reasoning.MaxHops)
	assert.Equal(t, 10, cfg.Reasoning.DisplayCap)
	assert.InDelta(t, 0.9, cfg.Reasoning.SecondHopDecay, 1e-9)
	assert.InDelta(t, 0.8, cfg.Reasoning.DeepHopDecay, 1e-9)
	assert.Equal(t, 4, cfg.Extractor.MinSubstringLength)
	assert.Equal(t, 3*time.Second, cfg.NLU.Timeout)
	assert.False(t, cfg.NLU.Enabled)
	assert.Equal(t, int64(10000), cfg.Cache.MaxEntries)
	assert.InDelta(t, 0.6, cfg.CircuitBreaker.ReadyToTripRatio, 1e-9)
}

func TestLoadFileAndEnv(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "analyst.yaml")
	doc := strings.Join([]string{
		"reasoning:",
		"  default_hops: 3",
		"nlu:",
		"  enabled: true",
		"  timeout: 500ms",
		"graph:",
		"  id_prefixes: [\"Category:\"]",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	t.Setenv("ANALYST_SERVER_PORT", "9090")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("NEO4J_URI", "bolt://graph:7687")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Reasoning.DefaultHops)
	assert.True(t, cfg.NLU.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.NLU.Timeout)
	assert.Equal(t, []string{"Category:"}, cfg.Graph.IDPrefixes)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-test", cfg.NLU.APIKey)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "bolt://graph:7687", cfg.Neo4j.URI)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Log:       LogConfig{Format: "json"},
			Reasoning: ReasoningConfig{DefaultHops: 2, MaxHops: 3, SecondHopDecay: 0.9, DeepHopDecay: 0.8},
			Extractor: ExtractorConfig{MinConfidence: 0.6, NLUConfidence: 0.7},
			Semantic:  SemanticConfig{MinScore: 0.5},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero hops", func(c *Config) { c.Reasoning.DefaultHops = 0 }},
		{"max below default", func(c *Config) { c.Reasoning.MaxHops = 1 }},
		{"decay above one", func(c *Config) { c.Reasoning.DeepHopDecay = 1.5 }},
		{"negative threshold", func(c *Config) { c.Extractor.MinConfidence = -0.1 }},
		{"unknown log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
