package envconfig

import (
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/tokenizers/logutil"
)

func TestConfig(t *testing.T) {
	t.Setenv("TOKENIZERS_DEBUG", "")
	LoadConfig()
	require.False(t, Debug)
	require.Equal(t, slog.LevelInfo, LogLevel())

	t.Setenv("TOKENIZERS_DEBUG", "false")
	LoadConfig()
	require.False(t, Debug)

	t.Setenv("TOKENIZERS_DEBUG", "1")
	LoadConfig()
	require.True(t, Debug)
	require.False(t, Trace)
	require.Equal(t, slog.LevelDebug, LogLevel())

	t.Setenv("TOKENIZERS_DEBUG", "2")
	LoadConfig()
	require.True(t, Trace)
	require.Equal(t, logutil.LevelTrace, LogLevel())

	t.Setenv("TOKENIZERS_DEBUG", "yes please")
	LoadConfig()
	require.True(t, Debug)
}

func TestNumParallel(t *testing.T) {
	cases := map[string]int{
		"":     runtime.GOMAXPROCS(0),
		"4":    4,
		"'8'":  8,
		" 2 ":  2,
		"0":    runtime.GOMAXPROCS(0),
		"-3":   runtime.GOMAXPROCS(0),
		"many": runtime.GOMAXPROCS(0),
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("TOKENIZERS_NUM_PARALLEL", value)
			LoadConfig()
			assert.Equal(t, expect, NumParallel)
		})
	}
}

func TestBPECacheSize(t *testing.T) {
	t.Setenv("TOKENIZERS_BPE_CACHE_SIZE", "0")
	LoadConfig()
	require.Equal(t, 0, BPECacheSize)

	t.Setenv("TOKENIZERS_BPE_CACHE_SIZE", "-1")
	LoadConfig()
	require.Equal(t, 10000, BPECacheSize)

	t.Setenv("TOKENIZERS_MAX_INPUT_CHARS_PER_WORD", "12")
	LoadConfig()
	require.Equal(t, 12, MaxInputCharsPerWord)
}

func TestValues(t *testing.T) {
	t.Setenv("TOKENIZERS_NUM_PARALLEL", "3")
	LoadConfig()

	vals := Values()
	require.Equal(t, "3", vals["TOKENIZERS_NUM_PARALLEL"])
	for k, v := range AsMap() {
		assert.Equal(t, k, v.Name)
		assert.NotEmpty(t, v.Description)
	}
}
