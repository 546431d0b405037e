// Package coarsetime provides a clock that trades precision for speed.
//
// The time is refreshed every Tick by a background goroutine started on first
// use. Pools use it to stamp connections on every release.
package coarsetime

import (
	"sync"
	"sync/atomic"
	"time"
)

// Tick is the refresh interval, and the worst-case staleness of Now.
const Tick = 50 * time.Millisecond

var (
	now   atomic.Int64
	start sync.Once
)

func refresh() {
	now.Store(time.Now().UnixNano())

	ticker := time.NewTicker(Tick)
	go func() {
		for t := range ticker.C {
			now.Store(t.UnixNano())
		}
	}()
}

// Now returns the current time, at most Tick old.
// The result carries no monotonic clock reading.
func Now() time.Time {
	start.Do(refresh)
	return time.Unix(0, now.Load())
}

// Since returns the time elapsed since t, measured with Now.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
