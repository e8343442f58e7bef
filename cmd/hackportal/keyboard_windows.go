//go:build windows

package main

import (
	"io"
	"os"

	"golang.org/x/term"
)

// cbreak puts the console into raw mode for single-key input and returns a
// func restoring it
func cbreak(in io.Reader) (restore func()) {
	f, ok := in.(*os.File)
	if !ok {
		return func() {}
	}
	fd := int(f.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return func() {}
	}
	return func() {
		term.Restore(fd, oldState)
	}
}
