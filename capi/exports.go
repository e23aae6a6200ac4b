package main

// #include <stdbool.h>
// #include <stdint.h>
// #include <stdlib.h>
import "C"

import (
	"encoding/json"
	"fmt"
	"unsafe"

	"github.com/ollama/tokenizers/tokenizer"
)

//export tk_open
func tk_open(path *C.char) (h C.uintptr_t) {
	guard(func() error {
		if path == nil {
			return errNullArgument
		}

		t, err := tokenizer.Load(goString(path))
		if err != nil {
			return err
		}

		h = newHandle(t)
		return nil
	})
	return h
}

//export tk_from_json
func tk_from_json(doc *C.char) (h C.uintptr_t) {
	guard(func() error {
		if doc == nil {
			return errNullArgument
		}

		t, err := tokenizer.LoadBytes([]byte(goString(doc)))
		if err != nil {
			return err
		}

		h = newHandle(t)
		return nil
	})
	return h
}

//export tk_release_handle
func tk_release_handle(h C.uintptr_t) {
	guard(func() error {
		if h == 0 {
			return nil
		}
		return deleteHandle[*tokenizer.Tokenizer](h, errInvalidHandle)
	})
}

//export tk_encode
func tk_encode(h C.uintptr_t, text *C.char, addSpecial C.bool, outLen *C.size_t) (p *C.uint32_t) {
	guard(func() error {
		if outLen == nil {
			return errNullArgument
		}
		*outLen = 0

		if text == nil {
			return errNullArgument
		}

		t, err := lookup(h)
		if err != nil {
			return err
		}

		enc, err := t.Encode(goString(text), bool(addSpecial))
		if err != nil {
			return err
		}

		p = idBuffer(enc.IDs)
		*outLen = C.size_t(enc.Len())
		return nil
	})
	return p
}

//export tk_encode_offsets
func tk_encode_offsets(h C.uintptr_t, text *C.char, addSpecial C.bool, outLen *C.size_t) (p *C.uint32_t) {
	guard(func() error {
		if outLen == nil {
			return errNullArgument
		}
		*outLen = 0

		if text == nil {
			return errNullArgument
		}

		t, err := lookup(h)
		if err != nil {
			return err
		}

		enc, err := t.Encode(goString(text), bool(addSpecial))
		if err != nil {
			return err
		}

		offsets := make([]uint32, 0, 2*enc.Len())
		for _, span := range enc.Offsets {
			offsets = append(offsets, uint32(span.Start), uint32(span.End))
		}

		p = idBuffer(offsets)
		*outLen = C.size_t(enc.Len())
		return nil
	})
	return p
}

//export tk_encode_batch
func tk_encode_batch(h C.uintptr_t, texts **C.char, count C.size_t, addSpecial C.bool, lengths *C.size_t, outTotal *C.size_t) (p *C.uint32_t) {
	guard(func() error {
		if outTotal == nil {
			return errNullArgument
		}
		*outTotal = 0

		if lengths == nil && count > 0 {
			return errNullArgument
		}

		inputs, err := goStrings(texts, count)
		if err != nil {
			return err
		}

		t, err := lookup(h)
		if err != nil {
			return err
		}

		encodings, err := t.EncodeBatch(inputs, bool(addSpecial))
		if err != nil {
			return err
		}

		var flat []int32
		for _, enc := range encodings {
			flat = append(flat, enc.IDs...)
		}

		if count > 0 {
			out := unsafe.Slice(lengths, int(count))
			for i, enc := range encodings {
				out[i] = C.size_t(enc.Len())
			}
		}

		p = idBuffer(flat)
		*outTotal = C.size_t(len(flat))
		return nil
	})
	return p
}

//export tk_decode
func tk_decode(h C.uintptr_t, p *C.uint32_t, count C.size_t, skipSpecial C.bool) (s *C.char) {
	guard(func() error {
		if p == nil && count > 0 {
			return errNullArgument
		}

		t, err := lookup(h)
		if err != nil {
			return err
		}

		values := ids(p, count)
		input := make([]int32, len(values))
		for i, v := range values {
			// ids past the int32 range are negative and fail to decode
			input[i] = int32(v)
		}

		text, err := t.Decode(input, bool(skipSpecial))
		if err != nil {
			return err
		}

		s = cString(text)
		return nil
	})
	return s
}

//export tk_token_to_id
func tk_token_to_id(h C.uintptr_t, token *C.char) (id C.int32_t) {
	id = -1
	guard(func() error {
		if token == nil {
			return errNullArgument
		}

		t, err := lookup(h)
		if err != nil {
			return err
		}

		value := goString(token)
		n, ok := t.TokenToID(value)
		if !ok {
			return fmt.Errorf("token %q is not in the vocabulary", value)
		}

		id = C.int32_t(n)
		return nil
	})
	return id
}

//export tk_id_to_token
func tk_id_to_token(h C.uintptr_t, id C.uint32_t) (s *C.char) {
	guard(func() error {
		t, err := lookup(h)
		if err != nil {
			return err
		}

		token, ok := t.IDToToken(int32(id))
		if !ok {
			return fmt.Errorf("%w: id %d is not in the vocabulary", tokenizer.ErrDecoding, uint32(id))
		}

		s = cString(token)
		return nil
	})
	return s
}

//export tk_vocab_size
func tk_vocab_size(h C.uintptr_t, withAdded C.bool) (n C.size_t) {
	guard(func() error {
		t, err := lookup(h)
		if err != nil {
			return err
		}

		n = C.size_t(t.VocabSize(bool(withAdded)))
		return nil
	})
	return n
}

//export tk_vocab_json
func tk_vocab_json(h C.uintptr_t, withAdded C.bool) (s *C.char) {
	guard(func() error {
		t, err := lookup(h)
		if err != nil {
			return err
		}

		bts, err := json.Marshal(t.Vocab(bool(withAdded)))
		if err != nil {
			return err
		}

		s = cString(string(bts))
		return nil
	})
	return s
}

//export tk_num_special_tokens_to_add
func tk_num_special_tokens_to_add(h C.uintptr_t, pair C.bool) (n C.int32_t) {
	n = -1
	guard(func() error {
		t, err := lookup(h)
		if err != nil {
			return err
		}

		n = C.int32_t(t.NumSpecialTokensToAdd(bool(pair)))
		return nil
	})
	return n
}

// settingsJSON marshals a tokenizer setting in its tokenizer.json form.
// Unset settings are "null".
func settingsJSON(h handle, fn func(*tokenizer.Tokenizer) any) (s *C.char) {
	guard(func() error {
		t, err := lookup(h)
		if err != nil {
			return err
		}

		bts, err := json.Marshal(fn(t))
		if err != nil {
			return err
		}

		s = cString(string(bts))
		return nil
	})
	return s
}

//export tk_truncation_json
func tk_truncation_json(h C.uintptr_t) *C.char {
	return settingsJSON(h, func(t *tokenizer.Tokenizer) any {
		if tr := t.Truncation(); tr != nil {
			return tr
		}
		return nil
	})
}

//export tk_padding_json
func tk_padding_json(h C.uintptr_t) *C.char {
	return settingsJSON(h, func(t *tokenizer.Tokenizer) any {
		if p := t.Padding(); p != nil {
			return p
		}
		return nil
	})
}

//export tk_added_tokens_json
func tk_added_tokens_json(h C.uintptr_t) *C.char {
	return settingsJSON(h, func(t *tokenizer.Tokenizer) any {
		if tokens := t.AddedTokens(); len(tokens) > 0 {
			return tokens
		}
		return []tokenizer.AddedToken{}
	})
}

// tk_release_ids frees a buffer returned by an encode call. count is the
// buffer length the call reported and is not validated.
//
//export tk_release_ids
func tk_release_ids(p *C.uint32_t, count C.size_t) {
	release(unsafe.Pointer(p))
}

//export tk_release_text
func tk_release_text(s *C.char) {
	release(unsafe.Pointer(s))
}

//export tk_last_error
func tk_last_error() *C.char {
	return getLastError()
}
