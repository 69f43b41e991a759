// Package clipboard copies a saved memo's reference to the system clipboard.
package clipboard

import (
	"errors"
	"time"

	cb "github.com/atotto/clipboard"
)

const timeout = 3 * time.Second

var ErrTimeout = errors.New("clipboard timed out (clipboard tool hung, compositor not accessible?)")

// ErrUnsupported is returned when no clipboard tool is available.
var ErrUnsupported = errors.New("no clipboard utility available")

func Supported() bool { return !cb.Unsupported }

func Read() (string, error) {
	if cb.Unsupported {
		return "", ErrUnsupported
	}
	type result struct {
		s   string
		err error
	}
	ch := make(chan result, 1)
	go func() {
		s, err := cb.ReadAll()
		ch <- result{s, err}
	}()
	select {
	case r := <-ch:
		return r.s, r.err
	case <-time.After(timeout):
		return "", ErrTimeout
	}
}

// Copy writes text, giving up after a few seconds so a hung helper
// process cannot wedge the caller.
func Copy(text string) error {
	if cb.Unsupported {
		return ErrUnsupported
	}
	ch := make(chan error, 1)
	go func() { ch <- cb.WriteAll(text) }()
	select {
	case err := <-ch:
		return err
	case <-time.After(timeout):
		return ErrTimeout
	}
}
