package main

// #include <stdbool.h>
// #include <stdint.h>
// #include <stdlib.h>
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/ollama/tokenizers/tokenizer"
)

// tk_encode_full encodes text, and pair when it is not NULL, into an
// encoding handle carrying every per-token field.
//
//export tk_encode_full
func tk_encode_full(h C.uintptr_t, text, pair *C.char, addSpecial C.bool) (e C.uintptr_t) {
	guard(func() error {
		if text == nil {
			return errNullArgument
		}

		t, err := lookup(h)
		if err != nil {
			return err
		}

		var enc *tokenizer.Encoding
		if pair != nil {
			enc, err = t.EncodePair(goString(text), goString(pair), bool(addSpecial))
		} else {
			enc, err = t.Encode(goString(text), bool(addSpecial))
		}
		if err != nil {
			return err
		}

		e = newHandle(enc)
		return nil
	})
	return e
}

//export tk_release_encoding
func tk_release_encoding(e C.uintptr_t) {
	guard(func() error {
		if e == 0 {
			return nil
		}
		return deleteHandle[*tokenizer.Encoding](e, errInvalidEncoding)
	})
}

//export tk_encoding_len
func tk_encoding_len(e C.uintptr_t) (n C.size_t) {
	guard(func() error {
		enc, err := lookupEncoding(e)
		if err != nil {
			return err
		}

		n = C.size_t(enc.Len())
		return nil
	})
	return n
}

// encodingField copies one field of the encoding behind e. outLen receives
// the number of tokens.
func encodingField[P any](e handle, outLen *size, fn func(*tokenizer.Encoding) P) (p P) {
	guard(func() error {
		if outLen == nil {
			return errNullArgument
		}
		*outLen = 0

		enc, err := lookupEncoding(e)
		if err != nil {
			return err
		}

		p = fn(enc)
		*outLen = size(enc.Len())
		return nil
	})
	return p
}

//export tk_encoding_ids
func tk_encoding_ids(e C.uintptr_t, outLen *C.size_t) *C.uint32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.uint32_t {
		return idBuffer(enc.IDs)
	})
}

//export tk_encoding_type_ids
func tk_encoding_type_ids(e C.uintptr_t, outLen *C.size_t) *C.uint32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.uint32_t {
		return idBuffer(enc.TypeIDs)
	})
}

//export tk_encoding_attention_mask
func tk_encoding_attention_mask(e C.uintptr_t, outLen *C.size_t) *C.uint32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.uint32_t {
		return idBuffer(enc.AttentionMask)
	})
}

//export tk_encoding_special_tokens_mask
func tk_encoding_special_tokens_mask(e C.uintptr_t, outLen *C.size_t) *C.uint32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.uint32_t {
		return idBuffer(enc.SpecialTokensMask)
	})
}

// tk_encoding_offsets returns start and end byte offsets interleaved, so
// the buffer holds twice *out_len values.
//
//export tk_encoding_offsets
func tk_encoding_offsets(e C.uintptr_t, outLen *C.size_t) *C.uint32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.uint32_t {
		offsets := make([]uint32, 0, 2*enc.Len())
		for _, span := range enc.Offsets {
			offsets = append(offsets, uint32(span.Start), uint32(span.End))
		}
		return idBuffer(offsets)
	})
}

//export tk_encoding_word_ids
func tk_encoding_word_ids(e C.uintptr_t, outLen *C.size_t) *C.int32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.int32_t {
		return positionBuffer(enc.WordIDs)
	})
}

//export tk_encoding_sequence_ids
func tk_encoding_sequence_ids(e C.uintptr_t, outLen *C.size_t) *C.int32_t {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) *C.int32_t {
		return positionBuffer(enc.SequenceIDs)
	})
}

// tk_encoding_tokens returns the token strings, released with
// tk_release_tokens.
//
//export tk_encoding_tokens
func tk_encoding_tokens(e C.uintptr_t, outLen *C.size_t) **C.char {
	return encodingField(e, outLen, func(enc *tokenizer.Encoding) **C.char {
		return cStringArray(enc.Tokens)
	})
}

//export tk_encoding_overflowing_len
func tk_encoding_overflowing_len(e C.uintptr_t) (n C.size_t) {
	guard(func() error {
		enc, err := lookupEncoding(e)
		if err != nil {
			return err
		}

		n = C.size_t(len(enc.Overflowing))
		return nil
	})
	return n
}

// tk_encoding_overflowing returns a new handle for overflow window i. It
// is released separately from e.
//
//export tk_encoding_overflowing
func tk_encoding_overflowing(e C.uintptr_t, i C.size_t) (o C.uintptr_t) {
	guard(func() error {
		enc, err := lookupEncoding(e)
		if err != nil {
			return err
		}

		if int(i) >= len(enc.Overflowing) {
			return fmt.Errorf("overflow window %d out of range [0, %d)", uint64(i), len(enc.Overflowing))
		}

		o = newHandle(enc.Overflowing[i])
		return nil
	})
	return o
}

//export tk_release_positions
func tk_release_positions(p *C.int32_t, count C.size_t) {
	release(unsafe.Pointer(p))
}

//export tk_release_tokens
func tk_release_tokens(p **C.char, count C.size_t) {
	releaseStrings(p, count)
}
