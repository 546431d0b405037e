package redis

import (
	"sync/atomic"
	"time"
)

// PoolStats contains statistics about a connection pool.
//
// Struct is optimized to fit within a single cache line (64 bytes).
// Fields are ordered largest to smallest for optimal memory layout.
//
// For Prometheus integration, expose these as:
//   - Gauges: TotalConns, IdleConns, ActiveConns
//   - Counters: AcquireCount, AcquireWaitCount, CreatedConns, DestroyedConns, AcquireErrors
//   - Histogram: AcquireWaitDuration (use AcquireWaitCount and AcquireWaitTimeNs to calculate)
type PoolStats struct {
	// Lifetime counters (uint64 - 8 bytes each)
	AcquireCount      uint64 // Total acquire attempts
	AcquireWaitCount  uint64 // Acquires that had to wait
	CreatedConns      uint64 // Total connections created
	DestroyedConns    uint64 // Total connections destroyed
	AcquireErrors     uint64 // Failed acquire attempts
	AcquireWaitTimeNs uint64 // Total nanoseconds spent waiting

	// Current state gauges (int32 - 4 bytes each)
	TotalConns  int32 // Total connections in pool (active + idle)
	IdleConns   int32 // Idle connections available
	ActiveConns int32 // Connections currently in use
	_           int32 // Padding to align to 64 bytes
}

// ClientStats contains statistics about dispatched calls.
//
// Every dispatched call ends in exactly one of Completed, Cancelled or
// Faulted; BuildErrors are rejected before dispatch and not counted in Calls.
// StoreErrors and NilReplies are subsets of Completed.
//
// For Prometheus integration, expose these as counters, see internal/promexporter.
type ClientStats struct {
	Calls       uint64 // Calls dispatched
	Completed   uint64 // Calls that received and materialized a reply
	Cancelled   uint64 // Calls abandoned by context or blocking deadline
	Faulted     uint64 // Calls failed by transport, decode or materialization errors
	StoreErrors uint64 // Completed calls whose reply was a store error
	NilReplies  uint64 // Completed calls that materialized to no value
	BuildErrors uint64 // Calls rejected before any I/O
	Blocking    uint64 // Calls dispatched with a blocking timeout
}

// poolStatsCollector provides internal methods for updating pool stats.
// The zero value is ready to use.
type poolStatsCollector struct {
	acquireCount      atomic.Uint64
	acquireWaitCount  atomic.Uint64
	createdConns      atomic.Uint64
	destroyedConns    atomic.Uint64
	acquireErrors     atomic.Uint64
	acquireWaitTimeNs atomic.Uint64

	totalConns  atomic.Int32
	idleConns   atomic.Int32
	activeConns atomic.Int32
}

func (c *poolStatsCollector) recordAcquire() {
	c.acquireCount.Add(1)
}

func (c *poolStatsCollector) recordAcquireWait(duration time.Duration) {
	c.acquireWaitCount.Add(1)
	c.acquireWaitTimeNs.Add(uint64(duration.Nanoseconds()))
}

func (c *poolStatsCollector) recordCreate() {
	c.createdConns.Add(1)
	c.totalConns.Add(1)
}

func (c *poolStatsCollector) recordDestroy() {
	c.destroyedConns.Add(1)
	c.totalConns.Add(-1)
}

func (c *poolStatsCollector) recordAcquireError() {
	c.acquireErrors.Add(1)
}

func (c *poolStatsCollector) recordAcquireFromIdle() {
	c.idleConns.Add(-1)
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordActivate() {
	c.activeConns.Add(1)
}

func (c *poolStatsCollector) recordDeactivate() {
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) recordIdleClosed() {
	c.idleConns.Add(-1)
}

func (c *poolStatsCollector) recordRelease() {
	c.idleConns.Add(1)
	c.activeConns.Add(-1)
}

func (c *poolStatsCollector) snapshot() PoolStats {
	return PoolStats{
		TotalConns:        c.totalConns.Load(),
		IdleConns:         c.idleConns.Load(),
		ActiveConns:       c.activeConns.Load(),
		AcquireCount:      c.acquireCount.Load(),
		AcquireWaitCount:  c.acquireWaitCount.Load(),
		CreatedConns:      c.createdConns.Load(),
		DestroyedConns:    c.destroyedConns.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		AcquireWaitTimeNs: c.acquireWaitTimeNs.Load(),
	}
}

// clientStatsCollector provides internal methods for updating client stats.
// The zero value is ready to use.
type clientStatsCollector struct {
	calls       atomic.Uint64
	completed   atomic.Uint64
	cancelled   atomic.Uint64
	faulted     atomic.Uint64
	storeErrors atomic.Uint64
	nilReplies  atomic.Uint64
	buildErrors atomic.Uint64
	blocking    atomic.Uint64
}

func (c *clientStatsCollector) recordCall(blocking bool) {
	c.calls.Add(1)
	if blocking {
		c.blocking.Add(1)
	}
}

func (c *clientStatsCollector) recordOutcome(state callState, storeError, nilReply bool) {
	switch state {
	case stateCompleted:
		c.completed.Add(1)
		if storeError {
			c.storeErrors.Add(1)
		}
		if nilReply {
			c.nilReplies.Add(1)
		}
	case stateCancelled:
		c.cancelled.Add(1)
	case stateFaulted:
		c.faulted.Add(1)
	}
}

func (c *clientStatsCollector) recordBuildError() {
	c.buildErrors.Add(1)
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Calls:       c.calls.Load(),
		Completed:   c.completed.Load(),
		Cancelled:   c.cancelled.Load(),
		Faulted:     c.faulted.Load(),
		StoreErrors: c.storeErrors.Load(),
		NilReplies:  c.nilReplies.Load(),
		BuildErrors: c.buildErrors.Load(),
		Blocking:    c.blocking.Load(),
	}
}
