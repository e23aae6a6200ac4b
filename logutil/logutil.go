package logutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"
	"unicode/utf8"
)

const LevelTrace slog.Level = -8

// NewLogger returns a text logger that prints TRACE for LevelTrace and
// trims source paths to the file name.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if level, ok := attr.Value.Any().(slog.Level); ok && level == LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace logs at LevelTrace, attributing the record to the caller.
func Trace(msg string, args ...any) {
	ctx := context.Background()
	logger := slog.Default()
	if !logger.Enabled(ctx, LevelTrace) {
		return
	}

	// skip runtime.Callers and Trace
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])

	record := slog.NewRecord(time.Now(), LevelTrace, msg, pcs[0])
	record.Add(args...)
	_ = logger.Handler().Handle(ctx, record)
}

const (
	maxTextRunes = 64
	maxIDs       = 32
)

// Text is input text, clipped when the record is emitted.
type Text string

func (s Text) LogValue() slog.Value {
	if utf8.RuneCountInString(string(s)) <= maxTextRunes {
		return slog.StringValue(string(s))
	}
	return slog.StringValue(string([]rune(string(s))[:maxTextRunes]) + "...")
}

// IDs are token ids, formatted and clipped only when the record is emitted.
type IDs []int32

func (ids IDs) LogValue() slog.Value {
	if len(ids) <= maxIDs {
		return slog.StringValue(fmt.Sprint([]int32(ids)))
	}
	return slog.StringValue(fmt.Sprintf("%v... (%d ids)", []int32(ids[:maxIDs]), len(ids)))
}
