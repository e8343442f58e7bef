//go:build linux || darwin

package main

import (
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// cbreak switches a terminal on in to single-key input without echo and
// returns a func restoring the previous state. Anything else is left alone.
func cbreak(in io.Reader) (restore func()) {
	f, ok := in.(*os.File)
	if !ok {
		return func() {}
	}
	fd := int(f.Fd())
	oldState, err := unix.IoctlGetTermios(fd, ioctlReadTermios)
	if err != nil {
		return func() {}
	}

	newState := *oldState
	// Output processing (OPOST) stays on so \n still returns the carriage
	newState.Lflag &^= unix.ICANON | unix.ECHO
	newState.Cc[unix.VMIN] = 1
	newState.Cc[unix.VTIME] = 0
	if err := unix.IoctlSetTermios(fd, ioctlWriteTermios, &newState); err != nil {
		return func() {}
	}

	return func() {
		unix.IoctlSetTermios(fd, ioctlWriteTermios, oldState)
	}
}
