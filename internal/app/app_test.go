package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesagent/internal/config"
	"salesagent/internal/log"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	return &config.Config{
		BaseURL:        "http://localhost:8080/v1",
		ModelName:      "gpt-oss-20b",
		EmbeddingModel: "nomic-embed-text",
		Temperature:    0.1,
		MaxTokens:      5000,
		MaxRounds:      8,
		TopK:           6,
		MaxScore:       0.4,
		ChartsDir:      t.TempDir(),
		ChunkSize:      500,
		ChunkOverlap:   100,
	}
}

func TestAssemble(t *testing.T) {
	t.Parallel()

	a, err := assemble(testConfig(t), log.NewNop(), nil)
	require.NoError(t, err)

	assert.NotNil(t, a.Agent)
	assert.NotNil(t, a.Sessions)
	assert.NotNil(t, a.Knowledge)
	assert.NotNil(t, a.Ingester)
	assert.NotNil(t, a.Schema)

	// The catalogue order is what the system prompt promises.
	var names []string
	for _, spec := range a.Registry.Specs() {
		names = append(names, spec.Name)
	}
	assert.Equal(t, []string{
		"search_local_docs",
		"query_sales_database",
		"wiki_summary",
		"create_chart",
		"create_multi_series_chart",
	}, names)
}

func TestParseLogLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}
