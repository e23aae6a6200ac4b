package envconfig

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/ollama/tokenizers/logutil"
)

var (
	// Set via TOKENIZERS_DEBUG in the environment
	Debug bool
	// Set via TOKENIZERS_DEBUG=2 in the environment
	Trace bool
	// Set via TOKENIZERS_NUM_PARALLEL in the environment
	NumParallel int
	// Set via TOKENIZERS_BPE_CACHE_SIZE in the environment
	BPECacheSize int
	// Set via TOKENIZERS_MAX_INPUT_CHARS_PER_WORD in the environment
	MaxInputCharsPerWord int
)

type EnvVar struct {
	Name        string
	Value       any
	Description string
}

func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"TOKENIZERS_DEBUG":                    {"TOKENIZERS_DEBUG", Debug, "Show additional debug information (e.g. TOKENIZERS_DEBUG=1, TOKENIZERS_DEBUG=2 for trace)"},
		"TOKENIZERS_NUM_PARALLEL":             {"TOKENIZERS_NUM_PARALLEL", NumParallel, "Maximum number of batch items encoded or decoded in parallel (default GOMAXPROCS)"},
		"TOKENIZERS_BPE_CACHE_SIZE":           {"TOKENIZERS_BPE_CACHE_SIZE", BPECacheSize, "Number of words cached per BPE model, 0 disables the cache (default 10000)"},
		"TOKENIZERS_MAX_INPUT_CHARS_PER_WORD": {"TOKENIZERS_MAX_INPUT_CHARS_PER_WORD", MaxInputCharsPerWord, "Longest word WordPiece segments before emitting the unknown token (default 100)"},
	}
}

func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprintf("%v", v.Value)
	}
	return vals
}

// Clean quotes and spaces from the value
func clean(key string) string {
	return strings.Trim(os.Getenv(key), "\"' ")
}

func init() {
	LoadConfig()
}

func LoadConfig() {
	// default values
	Debug = false
	Trace = false
	NumParallel = runtime.GOMAXPROCS(0)
	BPECacheSize = 10000
	MaxInputCharsPerWord = 100

	if debug := clean("TOKENIZERS_DEBUG"); debug != "" {
		if level, err := strconv.Atoi(debug); err == nil {
			Debug = level > 0
			Trace = level > 1
		} else if d, err := strconv.ParseBool(debug); err == nil {
			Debug = d
		} else {
			Debug = true
		}
	}

	if onp := clean("TOKENIZERS_NUM_PARALLEL"); onp != "" {
		val, err := strconv.Atoi(onp)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "TOKENIZERS_NUM_PARALLEL", onp, "error", err)
		} else {
			NumParallel = val
		}
	}

	if size := clean("TOKENIZERS_BPE_CACHE_SIZE"); size != "" {
		val, err := strconv.Atoi(size)
		if err != nil || val < 0 {
			slog.Error("invalid setting", "TOKENIZERS_BPE_CACHE_SIZE", size, "error", err)
		} else {
			BPECacheSize = val
		}
	}

	if chars := clean("TOKENIZERS_MAX_INPUT_CHARS_PER_WORD"); chars != "" {
		val, err := strconv.Atoi(chars)
		if err != nil || val <= 0 {
			slog.Error("invalid setting must be greater than zero", "TOKENIZERS_MAX_INPUT_CHARS_PER_WORD", chars, "error", err)
		} else {
			MaxInputCharsPerWord = val
		}
	}
}

// LogLevel maps the debug settings to a slog level.
func LogLevel() slog.Level {
	switch {
	case Trace:
		return logutil.LevelTrace
	case Debug:
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}
