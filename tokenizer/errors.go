package tokenizer

import "errors"

var (
	// ErrLoad reports a vocabulary description that cannot be read or parsed.
	ErrLoad = errors.New("load tokenizer")
	// ErrEncoding reports a failure while encoding text.
	ErrEncoding = errors.New("encoding failed")
	// ErrDecoding reports ids that cannot be decoded.
	ErrDecoding = errors.New("decoding failed")
)
