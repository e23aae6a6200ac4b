package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixture = filepath.Join("..", "tokenizer", "testdata", "bert.json")

func lastError() string {
	if p := tk_last_error(); p != nil {
		return goString(p)
	}
	return ""
}

// lockThread pins the test to one OS thread so tk_last_error reads the
// error left by the previous call.
func lockThread(t *testing.T) {
	runtime.LockOSThread()
	t.Cleanup(runtime.UnlockOSThread)
}

func open(t *testing.T) handle {
	t.Helper()
	lockThread(t)

	path := cString(fixture)
	defer release(unsafe.Pointer(path))

	h := tk_open(path)
	require.NotZero(t, h, lastError())
	t.Cleanup(func() { tk_release_handle(h) })
	return h
}

func TestOpen(t *testing.T) {
	open(t)
	assert.Empty(t, lastError())

	t.Run("missing file", func(t *testing.T) {
		lockThread(t)

		path := cString(filepath.Join(t.TempDir(), "missing.json"))
		defer release(unsafe.Pointer(path))

		assert.Zero(t, tk_open(path))
		assert.Contains(t, lastError(), "load")
	})

	t.Run("null path", func(t *testing.T) {
		lockThread(t)

		assert.Zero(t, tk_open(nil))
		assert.Equal(t, errNullArgument.Error(), lastError())
	})
}

func TestFromJSON(t *testing.T) {
	lockThread(t)

	data, err := os.ReadFile(fixture)
	require.NoError(t, err)

	doc := cString(string(data))
	defer release(unsafe.Pointer(doc))

	h := tk_from_json(doc)
	require.NotZero(t, h, lastError())
	defer tk_release_handle(h)

	assert.EqualValues(t, 15, tk_vocab_size(h, false))

	invalid := cString("{")
	defer release(unsafe.Pointer(invalid))

	assert.Zero(t, tk_from_json(invalid))
	assert.NotEmpty(t, lastError())
}

func TestEncodeDecode(t *testing.T) {
	h := open(t)

	text := cString("Hello, world!")
	defer release(unsafe.Pointer(text))

	var n size
	p := tk_encode(h, text, true, &n)
	require.NotNil(t, p, lastError())
	defer tk_release_ids(p, n)

	assert.Empty(t, lastError())
	assert.Equal(t, []uint32{2, 5, 10, 6, 11, 3}, ids(p, n))

	s := tk_decode(h, p, n, true)
	require.NotNil(t, s, lastError())
	defer tk_release_text(s)

	assert.Equal(t, "hello, world!", goString(s))
}

func TestEncodeEmpty(t *testing.T) {
	h := open(t)

	text := cString("")
	defer release(unsafe.Pointer(text))

	var n size = 9
	p := tk_encode(h, text, false, &n)
	require.NotNil(t, p, lastError())
	defer tk_release_ids(p, n)

	assert.Zero(t, n)
	assert.Empty(t, lastError())
}

func TestEncodeOffsets(t *testing.T) {
	h := open(t)

	text := cString("Hello, world!")
	defer release(unsafe.Pointer(text))

	var n size
	p := tk_encode_offsets(h, text, false, &n)
	require.NotNil(t, p, lastError())
	defer tk_release_ids(p, 2*n)

	assert.EqualValues(t, 4, n)
	assert.Equal(t, []uint32{0, 5, 5, 6, 7, 12, 12, 13}, ids(p, 2*n))
}

func TestEncodeBatch(t *testing.T) {
	h := open(t)

	texts, free := cStrings([]string{"hello", "hello, world!", "unaffable"})
	defer free()

	lengths := make([]size, 3)
	var total size
	p := tk_encode_batch(h, texts, 3, true, &lengths[0], &total)
	require.NotNil(t, p, lastError())
	defer tk_release_ids(p, total)

	assert.Equal(t, []size{3, 6, 5}, lengths)
	assert.EqualValues(t, 14, total)
	assert.Equal(t, []uint32{2, 5, 3, 2, 5, 10, 6, 11, 3, 2, 7, 8, 9, 3}, ids(p, total))
}

func TestEncodeBatchFailure(t *testing.T) {
	h := open(t)

	var total size = 5
	lengths := make([]size, 2)
	assert.Nil(t, tk_encode_batch(h, nil, 2, true, &lengths[0], &total))
	assert.Zero(t, total)
	assert.Equal(t, errNullArgument.Error(), lastError())

	texts, free := cStrings(nil)
	defer free()

	p := tk_encode_batch(h, texts, 0, true, nil, &total)
	require.NotNil(t, p, lastError())
	defer tk_release_ids(p, total)
	assert.Zero(t, total)
}

func TestNullHandle(t *testing.T) {
	lockThread(t)

	text := cString("x")
	defer release(unsafe.Pointer(text))

	var n size = 3
	assert.Nil(t, tk_encode(0, text, true, &n))
	assert.Zero(t, n)
	assert.Equal(t, errInvalidHandle.Error(), lastError())

	assert.Nil(t, tk_decode(0, nil, 0, false))
	assert.Equal(t, errInvalidHandle.Error(), lastError())

	assert.EqualValues(t, -1, tk_token_to_id(0, text))
	assert.Nil(t, tk_id_to_token(0, 0))
	assert.Zero(t, tk_vocab_size(0, true))
	assert.Nil(t, tk_vocab_json(0, true))

	tk_release_handle(0)
	assert.Empty(t, lastError())
}

func TestNullPointers(t *testing.T) {
	h := open(t)

	var n size
	assert.Nil(t, tk_encode(h, nil, true, &n))
	assert.Equal(t, errNullArgument.Error(), lastError())

	text := cString("x")
	defer release(unsafe.Pointer(text))
	assert.Nil(t, tk_encode(h, text, true, nil))

	assert.Nil(t, tk_decode(h, nil, 3, false))
	assert.Equal(t, errNullArgument.Error(), lastError())

	assert.EqualValues(t, -1, tk_token_to_id(h, nil))

	// releasing NULL is a no-op
	tk_release_ids(nil, 0)
	tk_release_text(nil)
}

func TestReleasedHandle(t *testing.T) {
	lockThread(t)

	path := cString(fixture)
	defer release(unsafe.Pointer(path))

	h := tk_open(path)
	require.NotZero(t, h, lastError())
	tk_release_handle(h)

	text := cString("hello")
	defer release(unsafe.Pointer(text))

	var n size
	assert.Nil(t, tk_encode(h, text, true, &n))
	assert.Equal(t, errInvalidHandle.Error(), lastError())

	tk_release_handle(h)
	assert.Equal(t, errInvalidHandle.Error(), lastError())
}

func TestDecodeInvalidID(t *testing.T) {
	h := open(t)

	p := idBuffer([]uint32{5, 1 << 31})
	defer tk_release_ids(p, 2)

	assert.Nil(t, tk_decode(h, p, 2, false))
	assert.Contains(t, lastError(), "decoding")

	s := tk_decode(h, p, 1, false)
	require.NotNil(t, s, lastError())
	defer tk_release_text(s)

	assert.Equal(t, "hello", goString(s))
	assert.Empty(t, lastError())
}

func TestVocabulary(t *testing.T) {
	h := open(t)

	token := cString("world")
	defer release(unsafe.Pointer(token))
	assert.EqualValues(t, 6, tk_token_to_id(h, token))

	missing := cString("missing")
	defer release(unsafe.Pointer(missing))
	assert.EqualValues(t, -1, tk_token_to_id(h, missing))
	assert.Contains(t, lastError(), "missing")

	s := tk_id_to_token(h, 6)
	require.NotNil(t, s, lastError())
	defer tk_release_text(s)
	assert.Equal(t, "world", goString(s))

	assert.Nil(t, tk_id_to_token(h, 1000))
	assert.EqualValues(t, 15, tk_vocab_size(h, true))

	doc := tk_vocab_json(h, false)
	require.NotNil(t, doc, lastError())
	defer tk_release_text(doc)

	var vocab map[string]int32
	require.NoError(t, json.Unmarshal([]byte(goString(doc)), &vocab))
	assert.Len(t, vocab, 15)
	assert.Equal(t, int32(8), vocab["##aff"])
}
