package memo

import (
	"sync"
	"time"
)

// Scheduler runs fn every interval until the returned cancel func is called.
// Cancel is idempotent and, once it returns, fn is not started again.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickerScheduler runs fn on its own goroutine driven by a time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	var mu sync.Mutex
	stopped := false

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				mu.Lock()
				if !stopped {
					fn()
				}
				mu.Unlock()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			stopped = true
			mu.Unlock()
			close(done)
		})
	}
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(interval time.Duration, fn func()) func()

func (f SchedulerFunc) Every(interval time.Duration, fn func()) func() { return f(interval, fn) }
