package redis

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	concpool "github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pior/redis/resp"
)

// Config holds configuration for the client connection pools.
type Config struct {
	// MaxSize is the maximum number of connections per server.
	// Zero means DefaultMaxSize.
	MaxSize int32

	// MaxConnLifetime is the maximum duration a connection can be reused.
	// Zero means no limit.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime is the maximum duration a connection can be idle before being closed.
	// Zero means no limit.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often to check idle connections for health.
	// Zero disables health checks.
	HealthCheckInterval time.Duration

	// Timeout bounds non-blocking calls whose context has no deadline.
	// Zero means no limit.
	Timeout time.Duration

	// BlockingMargin is added to the timeout of blocking calls to get the
	// local deadline, leaving time for the store's own null reply.
	// Zero means DefaultBlockingMargin, a negative value means no margin.
	BlockingMargin time.Duration

	// Dialer is the net.Dialer used to create new connections.
	// If nil, the default net.Dialer is used.
	Dialer *net.Dialer

	// NewPool is the connection pool factory function.
	// If nil, uses the default channel-based pool (fastest).
	// To use puddle pool: NewPool: redis.NewPuddlePool
	NewPool NewPoolFunc

	// SelectServer picks which server to use for a key.
	// Receives the key and current server list from Servers.List().
	// If nil, uses DefaultSelectServer (rendezvous hashing).
	SelectServer SelectServerFunc

	// NewCircuitBreaker creates a circuit breaker for a server.
	// Called once per server address when the pool is created.
	// If nil, no circuit breaker is used.
	NewCircuitBreaker func(serverAddr string) *gobreaker.CircuitBreaker[resp.Reply]

	// Logger receives call outcomes at debug level and pool maintenance events.
	// If nil, nothing is logged.
	Logger *zap.Logger

	// for testing purposes only
	constructor func(addr string) func(ctx context.Context) (*Connection, error)
}

func (c Config) withDefaults() Config {
	if c.Dialer == nil {
		c.Dialer = &net.Dialer{}
	}
	if c.NewPool == nil {
		c.NewPool = NewChannelPool
	}
	if c.SelectServer == nil {
		c.SelectServer = DefaultSelectServer
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

// Client dispatches commands to a set of store servers, one connection pool per server.
type Client struct {
	servers Servers
	config  Config

	// Multi-pool management
	mu    sync.RWMutex
	pools map[string]*ServerPool

	closed          atomic.Bool
	stopHealthCheck chan struct{}
	healthCheckDone chan struct{}

	stats clientStatsCollector
}

// NewClient creates a new client with the given servers and configuration.
// For a single server, use: NewClient(NewStaticServers("host:port"), config)
// Connections are established lazily.
func NewClient(servers Servers, config Config) (*Client, error) {
	if len(servers.List()) == 0 {
		return nil, ErrNoServers
	}

	client := &Client{
		servers:         servers,
		config:          config.withDefaults(),
		pools:           make(map[string]*ServerPool),
		stopHealthCheck: make(chan struct{}),
		healthCheckDone: make(chan struct{}),
	}

	if config.HealthCheckInterval > 0 {
		go client.healthCheckLoop()
	} else {
		close(client.healthCheckDone)
	}

	return client, nil
}

// Close closes the client and destroys all connections in all pools.
// Calls dispatched after Close fail with ErrClientClosed.
func (c *Client) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}

	close(c.stopHealthCheck)
	<-c.healthCheckDone

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, sp := range c.pools {
		sp.Close()
	}
}

// getPoolForKey returns the pool for the server that should handle this key.
// Creates pool lazily if it doesn't exist.
func (c *Client) getPoolForKey(key string) (*ServerPool, error) {
	addr, err := c.config.SelectServer(key, c.servers.List())
	if err != nil {
		return nil, err
	}
	return c.getOrCreatePool(addr)
}

// getOrCreatePool gets or creates a pool for the given server address.
func (c *Client) getOrCreatePool(addr string) (*ServerPool, error) {
	// Fast path: read lock
	c.mu.RLock()
	sp, exists := c.pools[addr]
	c.mu.RUnlock()
	if exists {
		return sp, nil
	}

	// Slow path: write lock and create
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	// Double-check after acquiring write lock
	if sp, exists := c.pools[addr]; exists {
		return sp, nil
	}

	sp, err := NewServerPool(addr, c.config)
	if err != nil {
		return nil, err
	}
	c.pools[addr] = sp
	c.config.Logger.Debug("server pool created", zap.String("addr", addr))
	return sp, nil
}

// allPools returns a snapshot of the existing pools.
func (c *Client) allPools() []*ServerPool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pools := make([]*ServerPool, 0, len(c.pools))
	for _, sp := range c.pools {
		pools = append(pools, sp)
	}
	return pools
}

// Ping checks one connection of every server in the list, concurrently.
// It returns the first error encountered.
func (c *Client) Ping(ctx context.Context) error {
	if c.closed.Load() {
		return ErrClientClosed
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, addr := range c.servers.List() {
		g.Go(func() error {
			sp, err := c.getOrCreatePool(addr)
			if err != nil {
				return err
			}
			return sp.Ping(ctx)
		})
	}
	return g.Wait()
}

// Stats returns a snapshot of the call statistics.
func (c *Client) Stats() ClientStats {
	return c.stats.snapshot()
}

// AllPoolStats returns the stats of every server pool created so far.
func (c *Client) AllPoolStats() []ServerPoolStats {
	pools := c.allPools()
	stats := make([]ServerPoolStats, 0, len(pools))
	for _, sp := range pools {
		stats = append(stats, sp.Stats())
	}
	return stats
}

// healthCheckLoop periodically checks idle connections for health and lifecycle limits.
func (c *Client) healthCheckLoop() {
	defer close(c.healthCheckDone)

	ticker := time.NewTicker(c.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopHealthCheck:
			return
		case <-ticker.C:
			c.checkAllPools()
		}
	}
}

// checkAllPools runs health checks on all existing pools, concurrently.
func (c *Client) checkAllPools() {
	p := concpool.New()
	for _, sp := range c.allPools() {
		p.Go(func() {
			c.checkPoolConnections(sp)
		})
	}
	p.Wait()
}

// checkPoolConnections checks all idle connections in a pool and destroys those that are stale or unhealthy.
func (c *Client) checkPoolConnections(sp *ServerPool) {
	now := time.Now()
	var destroyed int

	for _, res := range sp.pool.AcquireAllIdle() {
		// Check max connection lifetime
		if c.config.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > c.config.MaxConnLifetime {
			res.Destroy()
			destroyed++
			continue
		}

		// Check max idle time
		if c.config.MaxConnIdleTime > 0 && res.IdleDuration() > c.config.MaxConnIdleTime {
			res.Destroy()
			destroyed++
			continue
		}

		// A ping can leave the connection tainted without failing, when its
		// deadline hits right after the reply.
		if err := c.healthCheck(res.Value()); err != nil || res.Value().Tainted() {
			res.Destroy()
			destroyed++
			continue
		}

		res.ReleaseUnused()
	}

	if destroyed > 0 {
		c.config.Logger.Debug("idle connections destroyed",
			zap.String("addr", sp.Address()),
			zap.Int("count", destroyed),
		)
	}
}

// healthCheck sends PING on an idle connection.
func (c *Client) healthCheck(conn *Connection) error {
	timeout := c.config.Timeout
	if timeout <= 0 {
		timeout = c.config.HealthCheckInterval
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return conn.Ping(ctx)
}
