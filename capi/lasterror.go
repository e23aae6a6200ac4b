package main

/*
#include <stdlib.h>
#include <string.h>

static _Thread_local char *last_error;

static void set_last_error(const char *msg) {
	free(last_error);
	last_error = msg != NULL ? strdup(msg) : NULL;
}

static const char *get_last_error(void) {
	return last_error;
}
*/
import "C"

import "unsafe"

// setLastError records err for the calling OS thread. A nil err clears it.
func setLastError(err error) {
	if err == nil {
		C.set_last_error(nil)
		return
	}

	msg := C.CString(err.Error())
	defer C.free(unsafe.Pointer(msg))
	C.set_last_error(msg)
}

func getLastError() *C.char {
	return C.get_last_error()
}
