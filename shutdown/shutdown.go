// Package shutdown turns termination signals into a single callback.
package shutdown

import (
	"os"
	"os/signal"
	"sync"
)

// OnSignal runs fn once on the first interrupt or termination signal. After
// that the signals get their default behaviour back, so a second Ctrl+C
// kills the process. The returned stop func unregisters the handler.
func OnSignal(fn func()) (stop func()) {
	ch := make(chan os.Signal, 1)
	Notify(ch)
	done := make(chan struct{})
	go func() {
		select {
		case <-ch:
			signal.Stop(ch)
			fn()
		case <-done:
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(done)
		})
	}
}
