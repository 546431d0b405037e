package redis

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pior/redis/internal/testutils"
	"github.com/pior/redis/resp"
)

func createListener(t testing.TB, handler func(conn net.Conn)) string {
	// Start a simple test server
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err, "Failed to start test server")

	t.Cleanup(func() {
		listener.Close()
	})

	// Accept connections in background
	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}

			go func(c net.Conn) {
				defer c.Close()

				if handler != nil {
					handler(c)
				}
			}(conn)
		}
	}()

	return listener.Addr().String()
}

// noReply tells a fakeServer responder to leave the request unanswered.
const noReply = ""

// fakeServer is an in-process store speaking RESP.
// Every request is recorded, then answered with the raw bytes returned by respond.
type fakeServer struct {
	addr string

	mu       sync.Mutex
	requests [][]string
}

func newFakeServer(t testing.TB, respond func(args []string) string) *fakeServer {
	s := &fakeServer{}
	s.addr = createListener(t, func(conn net.Conn) {
		r := bufio.NewReader(conn)
		for {
			req, err := resp.ReadReply(r)
			if err != nil {
				return
			}

			args := make([]string, len(req.Elems))
			for i, e := range req.Elems {
				args[i] = string(e.Str)
			}

			s.mu.Lock()
			s.requests = append(s.requests, args)
			s.mu.Unlock()

			if reply := respond(args); reply != noReply {
				if _, err := conn.Write([]byte(reply)); err != nil {
					return
				}
			}
		}
	})
	return s
}

// staticResponder answers every request with reply.
func staticResponder(reply string) func([]string) string {
	return func([]string) string {
		return reply
	}
}

// delayedResponder answers every request with reply after delay.
func delayedResponder(delay time.Duration, reply string) func([]string) string {
	return func([]string) string {
		time.Sleep(delay)
		return reply
	}
}

func (s *fakeServer) Requests() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]string(nil), s.requests...)
}

func (s *fakeServer) LastRequest(t testing.TB) []string {
	t.Helper()
	requests := s.Requests()
	require.NotEmpty(t, requests, "no request received")
	return requests[len(requests)-1]
}

func newTestClient(t testing.TB, addr string, config Config) *Client {
	t.Helper()
	client, err := NewClient(NewStaticServers(addr), config)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

// mockConstructor makes the client use the given mock connections, in order.
func mockConstructor(mocks ...*testutils.ConnectionMock) func(string) func(context.Context) (*Connection, error) {
	var mu sync.Mutex
	return func(string) func(context.Context) (*Connection, error) {
		return func(context.Context) (*Connection, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(mocks) == 0 {
				return nil, &net.OpError{Op: "dial", Net: "tcp", Err: net.ErrClosed}
			}
			m := mocks[0]
			mocks = mocks[1:]
			return NewConnection(m), nil
		}
	}
}

func poolStats(t testing.TB, client *Client) PoolStats {
	t.Helper()
	all := client.AllPoolStats()
	require.Len(t, all, 1)
	return all[0].PoolStats
}

func mustBuild(t testing.TB, keyword string, args ...any) *resp.Frame {
	t.Helper()
	f, err := resp.Build(keyword, args...)
	require.NoError(t, err)
	return f
}
