package redis

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/pior/redis/resp"
)

// aLongTimeAgo is a deadline in the past, used to unblock pending I/O.
var aLongTimeAgo = time.Unix(1, 0)

// Connection is a single connection to a store server.
//
// A Connection carries one request at a time; the pool hands it to a single
// caller for one request/reply cycle. After a fault or a cancellation the
// connection is tainted: its stream position is unknown and it must be
// destroyed.
type Connection struct {
	conn    net.Conn
	Reader  *bufio.Reader
	Writer  *bufio.Writer
	tainted atomic.Bool
}

// NewConnection wraps an established network connection.
func NewConnection(conn net.Conn) *Connection {
	return &Connection{
		conn:   conn,
		Reader: bufio.NewReader(conn),
		Writer: bufio.NewWriter(conn),
	}
}

// Send writes f and reads exactly one reply.
//
// The context bounds the whole cycle. When ctx ends while the connection is
// blocked on I/O, the socket deadline is moved into the past so the pending
// read or write returns immediately, and the connection is tainted.
//
// Store error replies are returned as a Reply, not as an error.
func (c *Connection) Send(ctx context.Context, f *resp.Frame) (resp.Reply, error) {
	return c.send(ctx, f, nil)
}

// send is Send with a hook called once the frame is flushed.
func (c *Connection) send(ctx context.Context, f *resp.Frame, sent func()) (resp.Reply, error) {
	if c.tainted.Load() {
		return resp.Reply{}, &resp.ConnectionError{Op: "send", Err: ErrConnectionBroken}
	}

	if err := ctx.Err(); err != nil {
		return resp.Reply{}, err
	}

	// Only a done context moves the deadline; a stale forced deadline from
	// the previous cycle is cleared here.
	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		c.taint()
		return resp.Reply{}, &resp.ConnectionError{Op: "deadline", Err: err}
	}

	stop := context.AfterFunc(ctx, func() {
		_ = c.conn.SetDeadline(aLongTimeAgo)
	})
	defer func() {
		// The deadline was, or is being, forced: the connection can't be reused.
		if !stop() {
			c.taint()
		}
	}()

	if err := resp.WriteFrame(c.Writer, f); err != nil {
		if resp.ShouldCloseConnection(err) {
			c.taint()
			return resp.Reply{}, &resp.ConnectionError{Op: "write", Err: err}
		}
		return resp.Reply{}, err
	}

	if sent != nil {
		sent()
	}

	reply, err := resp.ReadReply(c.Reader)
	if err != nil {
		c.taint()
		return resp.Reply{}, err
	}

	return reply, nil
}

// Ping sends PING and checks the reply.
func (c *Connection) Ping(ctx context.Context) error {
	reply, err := c.Send(ctx, resp.NewFrame("PING"))
	if err != nil {
		return err
	}
	if err := reply.Err(); err != nil {
		return err
	}

	text, _ := reply.Text()
	if text != "PONG" {
		return fmt.Errorf("redis: unexpected ping reply: %s", reply)
	}
	return nil
}

// Tainted reports whether the connection must be destroyed instead of reused.
func (c *Connection) Tainted() bool {
	return c.tainted.Load()
}

func (c *Connection) taint() {
	c.tainted.Store(true)
}

// RemoteAddr returns the address of the server.
func (c *Connection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// Close closes the underlying network connection.
func (c *Connection) Close() error {
	c.taint()
	return c.conn.Close()
}
