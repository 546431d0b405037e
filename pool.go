package redis

import (
	"context"
	"time"
)

// DefaultMaxSize is the per-server connection limit when Config.MaxSize is zero.
const DefaultMaxSize = 10

// Pool holds the connections to one server.
//
// A connection is acquired for exactly one request/reply cycle, then either
// released (the stream is clean) or destroyed (tainted by a fault or a
// cancellation). Two implementations are provided: NewChannelPool (default)
// and NewPuddlePool.
type Pool interface {
	Acquire(ctx context.Context) (Resource, error)
	AcquireAllIdle() []Resource
	Close()
	Stats() PoolStats
}

// Resource is a connection checked out of a Pool.
type Resource interface {
	Value() *Connection
	Release()
	ReleaseUnused()
	Destroy()
	CreationTime() time.Time
	IdleDuration() time.Duration
}

// NewPoolFunc creates a pool from a connection constructor.
type NewPoolFunc func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)

// releaseResource hands a resource back to its pool, destroying it when the
// connection can't be reused.
func releaseResource(res Resource) {
	if res.Value().Tainted() {
		res.Destroy()
		return
	}
	res.Release()
}
