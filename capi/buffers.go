package main

// #include <stdint.h>
// #include <stdlib.h>
import "C"

import (
	"errors"
	"unsafe"
)

// aliases for tests, which cannot import "C"
type (
	handle  = C.uintptr_t
	size    = C.size_t
	cchar   = C.char
	cuint32 = C.uint32_t
	cint32  = C.int32_t
)

var errNullArgument = errors.New("null argument")

// idBuffer copies values into a malloc'd buffer owned by the caller. The
// buffer is never NULL so an empty result is distinguishable from failure.
func idBuffer[T ~int32 | ~uint32](values []T) *C.uint32_t {
	n := max(len(values), 1)
	p := (*C.uint32_t)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.uint32_t(0)))))

	buf := unsafe.Slice(p, n)
	buf[0] = 0
	for i, v := range values {
		buf[i] = C.uint32_t(v)
	}
	return p
}

// ids views a caller buffer of n ids.
func ids(p *C.uint32_t, n C.size_t) []uint32 {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(p)), int(n))
}

func cString(s string) *C.char {
	return C.CString(s)
}

func goString(p *C.char) string {
	return C.GoString(p)
}

// positionBuffer is idBuffer for word and sequence ids, where -1 marks a
// token outside any word or input.
func positionBuffer(values []int) *C.int32_t {
	n := max(len(values), 1)
	p := (*C.int32_t)(C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(C.int32_t(0)))))

	buf := unsafe.Slice(p, n)
	buf[0] = 0
	for i, v := range values {
		buf[i] = C.int32_t(v)
	}
	return p
}

func positions(p *C.int32_t, n C.size_t) []int32 {
	if p == nil || n == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(p)), int(n))
}

// cStringArray builds a malloc'd array of NUL-terminated strings owned by
// the caller. Like idBuffer it is never NULL.
func cStringArray(values []string) **C.char {
	p := (**C.char)(C.malloc(C.size_t(max(len(values), 1)) * C.size_t(unsafe.Sizeof((*C.char)(nil)))))

	items := unsafe.Slice(p, max(len(values), 1))
	items[0] = nil
	for i, v := range values {
		items[i] = C.CString(v)
	}
	return p
}

func releaseStrings(p **C.char, count C.size_t) {
	if p == nil {
		return
	}

	for _, item := range unsafe.Slice(p, int(count)) {
		release(unsafe.Pointer(item))
	}
	release(unsafe.Pointer(p))
}

// cStrings is cStringArray with a function releasing it.
func cStrings(values []string) (**C.char, func()) {
	p := cStringArray(values)
	return p, func() { releaseStrings(p, C.size_t(len(values))) }
}

// goStrings copies a caller array of count strings. Every entry must be
// non-NULL.
func goStrings(p **C.char, count C.size_t) ([]string, error) {
	if count == 0 {
		return nil, nil
	}
	if p == nil {
		return nil, errNullArgument
	}

	items := unsafe.Slice(p, int(count))
	values := make([]string, len(items))
	for i, item := range items {
		if item == nil {
			return nil, errNullArgument
		}
		values[i] = C.GoString(item)
	}
	return values, nil
}

func release(p unsafe.Pointer) {
	if p != nil {
		C.free(p)
	}
}
