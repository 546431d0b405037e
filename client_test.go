package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pior/redis/internal/testutils"
	"github.com/pior/redis/resp"
)

func TestNewClient_NoServers(t *testing.T) {
	_, err := NewClient(NewStaticServers(), Config{})
	require.ErrorIs(t, err, ErrNoServers)
}

func TestClient_CloseIsIdempotent(t *testing.T) {
	client, err := NewClient(NewStaticServers("127.0.0.1:6379"), Config{HealthCheckInterval: time.Hour})
	require.NoError(t, err)

	client.Close()
	client.Close()

	require.ErrorIs(t, client.Ping(context.Background()), ErrClientClosed)
}

func TestClient_Ping(t *testing.T) {
	a := newFakeServer(t, staticResponder("+PONG\r\n"))
	b := newFakeServer(t, staticResponder("+PONG\r\n"))

	client, err := NewClient(NewStaticServers(a.addr, b.addr), Config{})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Ping(context.Background()))
	require.Len(t, a.Requests(), 1)
	require.Len(t, b.Requests(), 1)
	require.Len(t, client.AllPoolStats(), 2)
}

func TestClient_Ping_OneServerDown(t *testing.T) {
	a := newFakeServer(t, staticResponder("+PONG\r\n"))

	client, err := NewClient(NewStaticServers(a.addr, "127.0.0.1:1"), Config{})
	require.NoError(t, err)
	defer client.Close()

	err = client.Ping(context.Background())
	require.Error(t, err)
	require.True(t, IsTransportError(err))
}

func TestClient_KeysAreSpreadOverServers(t *testing.T) {
	a := newFakeServer(t, staticResponder(":1\r\n"))
	b := newFakeServer(t, staticResponder(":1\r\n"))

	client, err := NewClient(NewStaticServers(a.addr, b.addr), Config{})
	require.NoError(t, err)
	defer client.Close()

	for i := range 50 {
		_, err := client.Incr(context.Background(), "key-"+string(rune('a'+i%26))+string(rune('0'+i/26)))
		require.NoError(t, err)
	}
	require.NotEmpty(t, a.Requests())
	require.NotEmpty(t, b.Requests())
	require.Equal(t, 50, len(a.Requests())+len(b.Requests()))
}

func TestClient_CustomSelectServer(t *testing.T) {
	a := newFakeServer(t, staticResponder(":1\r\n"))
	b := newFakeServer(t, staticResponder(":1\r\n"))

	client, err := NewClient(NewStaticServers(a.addr, b.addr), Config{
		SelectServer: func(key string, servers []string) (string, error) {
			return servers[1], nil
		},
	})
	require.NoError(t, err)
	defer client.Close()

	for range 5 {
		_, err := client.Incr(context.Background(), "k")
		require.NoError(t, err)
	}
	require.Empty(t, a.Requests())
	require.Len(t, b.Requests(), 5)
}

func TestClient_PuddlePool(t *testing.T) {
	srv := newFakeServer(t, staticResponder("$1\r\nv\r\n"))
	client := newTestClient(t, srv.addr, Config{NewPool: NewPuddlePool, MaxSize: 2})

	for range 3 {
		v, ok, err := client.Get(context.Background(), "k")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("v"), v)
	}
	require.Equal(t, uint64(1), poolStats(t, client).CreatedConns)
}

func TestClient_HealthCheck(t *testing.T) {
	t.Run("healthy connections are kept", func(t *testing.T) {
		srv := newFakeServer(t, staticResponder("+PONG\r\n"))
		client := newTestClient(t, srv.addr, Config{HealthCheckInterval: 20 * time.Millisecond})

		require.NoError(t, client.Ping(context.Background()))

		assert.Eventually(t, func() bool {
			return len(srv.Requests()) >= 3
		}, time.Second, 10*time.Millisecond, "idle connections are pinged")
		assert.Equal(t, uint64(0), poolStats(t, client).DestroyedConns)
	})

	t.Run("idle connections expire", func(t *testing.T) {
		srv := newFakeServer(t, staticResponder("+PONG\r\n"))
		client := newTestClient(t, srv.addr, Config{
			HealthCheckInterval: 20 * time.Millisecond,
			MaxConnIdleTime:     time.Millisecond,
		})

		require.NoError(t, client.Ping(context.Background()))

		assert.Eventually(t, func() bool {
			return poolStats(t, client).DestroyedConns == 1
		}, time.Second, 10*time.Millisecond)
	})

	t.Run("unhealthy connections are destroyed", func(t *testing.T) {
		srv := newFakeServer(t, func(args []string) string {
			if args[0] == "ECHO" {
				return "$2\r\nhi\r\n"
			}
			return "-LOADING dataset in memory\r\n"
		})
		client := newTestClient(t, srv.addr, Config{HealthCheckInterval: 20 * time.Millisecond})

		_, err := client.Echo(context.Background(), "hi")
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			return poolStats(t, client).DestroyedConns == 1
		}, time.Second, 10*time.Millisecond)
	})
}

func TestClient_HealthCheck_DestroysConnectionTaintedByLatePing(t *testing.T) {
	// The PONG is read after the ping deadline: no error, but the deadline was forced.
	mock := testutils.NewConnectionMock("+PONG\r\n")
	mock.ReadDelay = 50 * time.Millisecond

	client := newTestClient(t, "127.0.0.1:6379", Config{
		Timeout:     10 * time.Millisecond,
		constructor: mockConstructor(mock),
	})

	sp, err := client.getOrCreatePool("127.0.0.1:6379")
	require.NoError(t, err)
	res, err := sp.pool.Acquire(context.Background())
	require.NoError(t, err)
	res.Release()

	client.checkPoolConnections(sp)

	stats := sp.Stats().PoolStats
	assert.Equal(t, uint64(1), stats.DestroyedConns)
	assert.Equal(t, int32(0), stats.IdleConns)
	assert.True(t, mock.Closed())
}

func TestServerPool_Execute(t *testing.T) {
	srv := newFakeServer(t, staticResponder("+PONG\r\n"))

	sp, err := NewServerPool(srv.addr, Config{}.withDefaults())
	require.NoError(t, err)
	defer sp.Close()

	reply, err := sp.Execute(context.Background(), resp.NewFrame("PING"))
	require.NoError(t, err)
	require.Equal(t, resp.StatusReply("PONG"), reply)
	require.Equal(t, srv.addr, sp.Address())

	stats := sp.Stats()
	require.Equal(t, srv.addr, stats.Addr)
	require.Equal(t, int32(1), stats.PoolStats.IdleConns)
}
