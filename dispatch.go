package redis

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pior/redis/resp"
	"github.com/pior/redis/result"
)

// DefaultBlockingMargin is added to the timeout of blocking calls when
// Config.BlockingMargin is zero.
const DefaultBlockingMargin = time.Second

// callState tracks a dispatched call:
//
//	idle -> frame-sent -> awaiting-reply -> completed | cancelled | faulted
//
// A call may fault or be cancelled from any non-terminal state.
type callState uint8

const (
	stateIdle callState = iota
	stateFrameSent
	stateAwaitingReply
	stateCompleted
	stateCancelled
	stateFaulted
)

func (s callState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateFrameSent:
		return "frame-sent"
	case stateAwaitingReply:
		return "awaiting-reply"
	case stateCompleted:
		return "completed"
	case stateCancelled:
		return "cancelled"
	case stateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// CallOption configures a single dispatched call.
type CallOption func(*callOptions)

type callOptions struct {
	blocking bool
	timeout  time.Duration
}

// Blocking marks the call as a server-side blocking operation with timeout t,
// the same timeout sent to the store.
//
// The call waits up to t plus the blocking margin for a reply, then is
// abandoned with a CancelledError caused by ErrBlockingTimeout. A zero t
// waits indefinitely, bounded only by ctx. A negative t is a build error.
func Blocking(t time.Duration) CallOption {
	return func(o *callOptions) {
		o.blocking = true
		o.timeout = t
	}
}

// call is the state of one dispatched request/reply cycle.
// Transitions all happen on the dispatching goroutine.
type call struct {
	command string
	state   callState
	start   time.Time
}

// sent is called once the frame is flushed; the reply read starts right after.
func (cl *call) sent() {
	cl.state = stateFrameSent
	cl.state = stateAwaitingReply
}

// Dispatch sends f to the server owning key, waits for exactly one reply and
// materializes it to shape s.
//
// A nil result with a nil error means "no value": the reply was absent and s
// is nullable. A store error reply is returned as a *resp.Error.
//
// Errors:
//   - *resp.BuildError: the frame or the options are invalid, nothing was sent
//   - *CancelledError: ctx ended, or a blocking call outlived its timeout plus margin
//   - *resp.ParseError, *result.DecodeError: the reply was malformed or doesn't fit s
//   - transport errors, see IsTransportError
func (c *Client) Dispatch(ctx context.Context, key string, f *resp.Frame, s result.Shape, opts ...CallOption) (any, error) {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}

	if f == nil || f.Len() == 0 {
		c.stats.recordBuildError()
		return nil, resp.NewBuildError("", "empty frame")
	}
	if o.blocking && o.timeout < 0 {
		c.stats.recordBuildError()
		return nil, resp.NewBuildError(f.Name(), "negative blocking timeout %s", o.timeout)
	}

	if c.closed.Load() {
		return nil, ErrClientClosed
	}

	cl := &call{command: f.Name(), start: time.Now()}
	c.stats.recordCall(o.blocking)

	sp, err := c.getPoolForKey(key)
	if err != nil {
		return nil, c.finish(cl, stateFaulted, err, false)
	}

	ctx, cancel := c.callContext(ctx, o)
	defer cancel()

	reply, err := sp.execute(ctx, f, cl.sent)
	if err != nil {
		if ctx.Err() != nil {
			err = &CancelledError{Command: cl.command, State: cl.state.String(), Err: context.Cause(ctx)}
			return nil, c.finish(cl, stateCancelled, err, false)
		}
		return nil, c.finish(cl, stateFaulted, err, false)
	}

	v, err := result.Materialize(reply, s)
	if err != nil && !reply.IsError() {
		return nil, c.finish(cl, stateFaulted, err, false)
	}
	return v, c.finish(cl, stateCompleted, err, v == nil && err == nil)
}

// callContext applies the blocking deadline, or Config.Timeout to
// non-blocking calls without a deadline.
func (c *Client) callContext(ctx context.Context, o callOptions) (context.Context, context.CancelFunc) {
	if o.blocking {
		if o.timeout == 0 {
			return context.WithCancel(ctx)
		}
		return context.WithTimeoutCause(ctx, o.timeout+c.blockingMargin(), ErrBlockingTimeout)
	}

	if _, ok := ctx.Deadline(); !ok && c.config.Timeout > 0 {
		return context.WithTimeout(ctx, c.config.Timeout)
	}
	return ctx, func() {}
}

func (c *Client) blockingMargin() time.Duration {
	switch {
	case c.config.BlockingMargin == 0:
		return DefaultBlockingMargin
	case c.config.BlockingMargin < 0:
		return 0
	default:
		return c.config.BlockingMargin
	}
}

func (c *Client) finish(cl *call, state callState, err error, nilReply bool) error {
	cl.state = state
	c.stats.recordOutcome(state, state == stateCompleted && err != nil, nilReply)

	if ce := c.config.Logger.Check(zap.DebugLevel, "call finished"); ce != nil {
		ce.Write(
			zap.String("command", cl.command),
			zap.Stringer("state", state),
			zap.Duration("elapsed", time.Since(cl.start)),
			zap.Bool("nil", nilReply),
			zap.Error(err),
		)
	}
	return err
}

// Do dispatches f and extracts a typed result, see Dispatch and result.As.
//
//	score, ok, err := redis.Do[result.Number](ctx, client, "board", frame, result.Scalar(result.KindNumber).OrNil())
func Do[T any](ctx context.Context, c *Client, key string, f *resp.Frame, s result.Shape, opts ...CallOption) (T, bool, error) {
	return result.As[T](c.Dispatch(ctx, key, f, s, opts...))
}
