//go:build !linux && !darwin && !windows

package main

import "io"

// cbreak leaves the terminal in line mode; keys apply after Enter
func cbreak(in io.Reader) (restore func()) {
	return func() {}
}
