package redis

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis/resp"
)

// NewServerPool creates the connection pool and circuit breaker of one server.
// config must carry its defaults, as NewClient does.
func NewServerPool(addr string, config Config) (*ServerPool, error) {
	constructor := func(ctx context.Context) (*Connection, error) {
		netConn, err := config.Dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return NewConnection(netConn), nil
	}
	if config.constructor != nil {
		constructor = config.constructor(addr)
	}

	pool, err := config.NewPool(constructor, config.MaxSize)
	if err != nil {
		return nil, err
	}

	sp := &ServerPool{
		addr: addr,
		pool: pool,
	}
	if config.NewCircuitBreaker != nil {
		sp.circuitBreaker = config.NewCircuitBreaker(addr)
	}
	return sp, nil
}

// ServerPool wraps a pool, a circuit breaker with its server address.
type ServerPool struct {
	addr           string
	pool           Pool
	circuitBreaker *gobreaker.CircuitBreaker[resp.Reply]
}

func (sp *ServerPool) Address() string {
	return sp.addr
}

// ServerPoolStats contains stats for a single server pool
type ServerPoolStats struct {
	Addr                 string
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

func (sp *ServerPool) Stats() ServerPoolStats {
	stats := ServerPoolStats{
		Addr:      sp.addr,
		PoolStats: sp.pool.Stats(),
	}
	if sp.circuitBreaker != nil {
		stats.CircuitBreakerState = sp.circuitBreaker.State()
		stats.CircuitBreakerCounts = sp.circuitBreaker.Counts()
	}
	return stats
}

// Execute runs a single request/reply cycle with proper connection management.
// It acquires a connection, sends the frame, reads one reply, then releases
// the connection, or destroys it when the cycle left it tainted.
// The cycle is wrapped with the server's circuit breaker.
//
// Store error replies are returned as a Reply, not as an error.
func (sp *ServerPool) Execute(ctx context.Context, f *resp.Frame) (resp.Reply, error) {
	return sp.execute(ctx, f, nil)
}

func (sp *ServerPool) execute(ctx context.Context, f *resp.Frame, sent func()) (resp.Reply, error) {
	if sp.circuitBreaker == nil {
		return sp.execRequestDirect(ctx, f, sent)
	}

	return sp.circuitBreaker.Execute(func() (resp.Reply, error) {
		return sp.execRequestDirect(ctx, f, sent)
	})
}

// execRequestDirect performs the actual request execution without circuit breaker.
func (sp *ServerPool) execRequestDirect(ctx context.Context, f *resp.Frame, sent func()) (resp.Reply, error) {
	resource, err := sp.pool.Acquire(ctx)
	if err != nil {
		return resp.Reply{}, err
	}
	defer releaseResource(resource)

	reply, err := resource.Value().send(ctx, f, sent)
	if err != nil && ctx.Err() != nil {
		// The I/O error is the forced deadline, report the context's instead.
		return reply, fmt.Errorf("%w: %w", ctx.Err(), err)
	}
	return reply, err
}

// Ping checks one connection of the pool.
func (sp *ServerPool) Ping(ctx context.Context) error {
	resource, err := sp.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer releaseResource(resource)

	return resource.Value().Ping(ctx)
}

func (sp *ServerPool) Close() {
	sp.pool.Close()
}
