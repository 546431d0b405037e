package redis

import (
	"context"
	"sync"
	"time"

	"github.com/pior/redis/internal/coarsetime"
)

// NewChannelPool creates a connection pool built on two channels: idle
// connections, and one slot per live connection. It is the default pool.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &channelPool{
		constructor: constructor,
		idle:        make(chan *channelResource, maxSize),
		slots:       make(chan struct{}, maxSize),
		done:        make(chan struct{}),
	}, nil
}

// channelResource is a connection checked out of a channelPool.
type channelResource struct {
	conn     *Connection
	pool     *channelPool
	created  time.Time
	lastUsed time.Time
}

func (r *channelResource) Value() *Connection {
	return r.conn
}

func (r *channelResource) Release() {
	r.lastUsed = coarsetime.Now()
	r.pool.put(r)
}

// ReleaseUnused returns the connection without marking it used.
func (r *channelResource) ReleaseUnused() {
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	r.pool.discard(r)
	r.pool.stats.recordDeactivate()
}

func (r *channelResource) CreationTime() time.Time {
	return r.created
}

func (r *channelResource) IdleDuration() time.Duration {
	return coarsetime.Since(r.lastUsed)
}

// channelPool holds at most cap(slots) connections. Every live connection,
// idle or checked out, holds one token in slots; destroying a connection
// frees its token, which wakes a waiting Acquire.
type channelPool struct {
	constructor func(ctx context.Context) (*Connection, error)

	idle  chan *channelResource
	slots chan struct{}
	done  chan struct{}

	mu     sync.Mutex // guards closed against put and Close
	closed bool

	stats poolStatsCollector
}

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.stats.recordAcquire()

	select {
	case <-p.done:
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	default:
	}

	// An idle connection first, then a free slot, without waiting.
	select {
	case res := <-p.idle:
		p.stats.recordAcquireFromIdle()
		return res, nil
	default:
	}
	select {
	case p.slots <- struct{}{}:
		return p.create(ctx)
	default:
	}

	waitStart := time.Now()
	select {
	case res := <-p.idle:
		p.stats.recordAcquireWait(time.Since(waitStart))
		p.stats.recordAcquireFromIdle()
		return res, nil
	case p.slots <- struct{}{}:
		p.stats.recordAcquireWait(time.Since(waitStart))
		return p.create(ctx)
	case <-p.done:
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	case <-ctx.Done():
		p.stats.recordAcquireError()
		return nil, ctx.Err()
	}
}

// create dials a connection for a slot the caller already holds.
func (p *channelPool) create(ctx context.Context) (Resource, error) {
	select {
	case <-p.done:
		<-p.slots
		p.stats.recordAcquireError()
		return nil, ErrPoolClosed
	default:
	}

	conn, err := p.constructor(ctx)
	if err != nil {
		<-p.slots
		p.stats.recordAcquireError()
		return nil, err
	}

	p.stats.recordCreate()
	p.stats.recordActivate()

	now := coarsetime.Now()
	return &channelResource{conn: conn, pool: p, created: now, lastUsed: now}, nil
}

func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed {
		select {
		case p.idle <- res:
			p.stats.recordRelease()
			return
		default:
		}
	}

	p.discard(res)
	p.stats.recordDeactivate()
}

// discard closes the connection and frees its slot.
func (p *channelPool) discard(res *channelResource) {
	res.conn.Close()
	<-p.slots
	p.stats.recordDestroy()
}

func (p *channelPool) AcquireAllIdle() []Resource {
	var idle []Resource
	for {
		select {
		case res := <-p.idle:
			p.stats.recordAcquireFromIdle()
			idle = append(idle, res)
		default:
			return idle
		}
	}
}

func (p *channelPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}
	p.closed = true
	close(p.done)

	for {
		select {
		case res := <-p.idle:
			p.discard(res)
			p.stats.recordIdleClosed()
		default:
			return
		}
	}
}

// Stats returns a snapshot of pool statistics.
func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
