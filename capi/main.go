// Command capi builds the tokenizer as a C shared library:
//
//	go build -buildmode=c-shared -o libtokenizers.so ./capi
//
// Tokenizers and encodings are referenced by opaque handles, released with
// tk_release_handle and tk_release_encoding. Id and mask results are
// malloc'd buffers returned with an explicit length and released with
// tk_release_ids, or tk_release_positions for signed word and sequence
// ids; text results are NUL-terminated and released with tk_release_text. Each allocation must be released exactly once. Failing
// calls return NULL, 0 or -1 and leave a message for the calling thread in
// tk_last_error; successful calls clear it.
package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/cgo"
	"sync"

	"github.com/ollama/tokenizers/envconfig"
	"github.com/ollama/tokenizers/logutil"
	"github.com/ollama/tokenizers/tokenizer"
)

var (
	errInvalidHandle   = errors.New("invalid tokenizer handle")
	errInvalidEncoding = errors.New("invalid encoding handle")
)

var setupOnce sync.Once

func setup() {
	setupOnce.Do(func() {
		slog.SetDefault(logutil.NewLogger(os.Stderr, envconfig.LogLevel()))
	})
}

// guard runs fn, recording its error or a recovered panic as the last error.
func guard(fn func() error) {
	setup()

	defer func() {
		if r := recover(); r != nil {
			slog.Error("recovered panic", "panic", r)
			setLastError(fmt.Errorf("panic: %v", r))
		}
	}()

	setLastError(fn())
}

func newHandle(v any) handle {
	return handle(cgo.NewHandle(v))
}

// value resolves h to a T. Released, forged and mistyped handles are
// reported as invalid.
func value[T any](h handle, invalid error) (v T, err error) {
	if h == 0 {
		return v, invalid
	}

	defer func() {
		if recover() != nil {
			err = invalid
		}
	}()

	v, ok := cgo.Handle(h).Value().(T)
	if !ok {
		return v, invalid
	}
	return v, nil
}

func lookup(h handle) (*tokenizer.Tokenizer, error) {
	return value[*tokenizer.Tokenizer](h, errInvalidHandle)
}

func lookupEncoding(h handle) (*tokenizer.Encoding, error) {
	return value[*tokenizer.Encoding](h, errInvalidEncoding)
}

// deleteHandle releases h once it resolves to a T.
func deleteHandle[T any](h handle, invalid error) error {
	if _, err := value[T](h, invalid); err != nil {
		return err
	}

	cgo.Handle(h).Delete()
	return nil
}

func main() {}
