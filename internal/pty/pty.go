package pty

import "errors"

// ErrUnsupported is returned by Start on platforms without pseudo-terminals.
var ErrUnsupported = errors.New("pty: not supported on this platform")

// PTY is a child process attached to a pseudo-terminal. Reads return the
// merged stdout and stderr of the child.
type PTY interface {
	Read(p []byte) (int, error)
	Close() error
	Wait() error
}
