package redis

import (
	"errors"
	"net"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis/resp"
)

var (
	// ErrCancelled matches every CancelledError.
	ErrCancelled = errors.New("redis: call cancelled")

	// ErrBlockingTimeout is the cause of a blocking call abandoned after its
	// timeout plus the blocking margin.
	ErrBlockingTimeout = errors.New("redis: no reply within blocking timeout and margin")

	ErrClientClosed     = errors.New("redis: client closed")
	ErrPoolClosed       = errors.New("redis: pool closed")
	ErrConnectionBroken = errors.New("redis: connection is tainted")
)

// CancelledError reports a call abandoned because its context ended, either
// by the caller or by a local deadline. A call abandoned after its frame was
// written may still be executed by the store.
//
// Connection handling: connection is tainted, CLOSE it
type CancelledError struct {
	Command string
	State   string // Call state when the call was abandoned (idle, frame-sent, awaiting-reply)
	Err     error  // Context cause
}

func (e *CancelledError) Error() string {
	return "redis: " + e.Command + " cancelled while " + e.State + ": " + e.Err.Error()
}

// Unwrap returns the context cause for error chain inspection
func (e *CancelledError) Unwrap() error {
	return e.Err
}

func (e *CancelledError) Is(target error) bool {
	return target == ErrCancelled
}

// ShouldCloseConnection returns true - a reply may still be on its way
func (e *CancelledError) ShouldCloseConnection() bool {
	return true
}

// IsStoreError reports whether err is an error reply from the store.
func IsStoreError(err error) bool {
	var storeErr *resp.Error
	return errors.As(err, &storeErr)
}

// IsTransportError reports whether err is a failure to reach or talk to the store:
// dial errors, I/O errors, an open circuit breaker or a closed pool.
func IsTransportError(err error) bool {
	if err == nil || errors.Is(err, ErrCancelled) {
		return false
	}

	var connErr *resp.ConnectionError
	if errors.As(err, &connErr) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, gobreaker.ErrOpenState) ||
		errors.Is(err, gobreaker.ErrTooManyRequests) ||
		errors.Is(err, ErrPoolClosed) ||
		errors.Is(err, ErrConnectionBroken)
}
