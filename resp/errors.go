package resp

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes for matching with errors.Is.
var (
	// ErrBuild matches every BuildError.
	ErrBuild = errors.New("resp: invalid command arguments")

	// ErrProtocol matches every reply that could not be decoded or did not
	// have the shape the caller asked for.
	ErrProtocol = errors.New("resp: protocol violation")
)

// BuildError reports invalid command arguments detected before any I/O.
// The command was never sent.
//
// Connection handling: connection untouched
type BuildError struct {
	Command string
	Message string
}

func (e *BuildError) Error() string {
	if e.Command == "" {
		return "resp: build: " + e.Message
	}
	return "resp: build " + e.Command + ": " + e.Message
}

func (e *BuildError) Is(target error) bool {
	return target == ErrBuild
}

// ShouldCloseConnection returns false - nothing was written
func (e *BuildError) ShouldCloseConnection() bool {
	return false
}

// NewBuildError returns a BuildError for the given command.
func NewBuildError(command, format string, args ...any) *BuildError {
	return &BuildError{Command: command, Message: fmt.Sprintf(format, args...)}
}

// Error is an error reply from the store ('-' or RESP3 '!').
// The message is kept exactly as the store sent it.
//
// Common causes:
//   - WRONGTYPE Operation against a key holding the wrong kind of value
//   - ERR syntax error
//   - NOSCRIPT, BUSY, LOADING
//
// Connection handling: connection can be REUSED, the reply was fully consumed
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Prefix returns the error code, the first word of the message (e.g. "WRONGTYPE").
func (e *Error) Prefix() string {
	prefix, _, _ := strings.Cut(e.Message, " ")
	return prefix
}

// ShouldCloseConnection returns false - store errors don't corrupt protocol state
func (e *Error) ShouldCloseConnection() bool {
	return false
}

// ParseError represents a malformed or truncated reply.
//
// Common causes:
//   - Unknown type marker byte
//   - Missing CRLF terminator
//   - Invalid or negative length
//   - Unexpected EOF inside a reply
//
// Connection handling: connection should be CLOSED as state is uncertain
type ParseError struct {
	Message string
	Err     error // Underlying error, if any
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "resp: parse error: " + e.Message + ": " + e.Err.Error()
	}
	return "resp: parse error: " + e.Message
}

// Unwrap returns the underlying error for error chain inspection
func (e *ParseError) Unwrap() error {
	return e.Err
}

func (e *ParseError) Is(target error) bool {
	return target == ErrProtocol
}

// ShouldCloseConnection returns true - parse errors indicate corrupted state
func (e *ParseError) ShouldCloseConnection() bool {
	return true
}

// ConnectionError wraps underlying I/O errors from connection operations.
//
// Common causes:
//   - Connection refused or reset
//   - Network timeout or deadline
//   - Peer closed the connection (io.EOF)
//
// Connection handling: connection is already broken, CLOSE it
type ConnectionError struct {
	Op  string // Operation that failed (dial, write, read)
	Err error  // Underlying error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("resp: connection error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chain inspection
func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ShouldCloseConnection returns true - connection errors mean connection is broken
func (e *ConnectionError) ShouldCloseConnection() bool {
	return true
}

// ErrorWithConnectionState is implemented by errors that know whether the
// connection they happened on can be reused.
type ErrorWithConnectionState interface {
	error
	ShouldCloseConnection() bool
}

// ShouldCloseConnection reports whether err leaves the connection unusable.
//
// Returns false for nil, BuildError and Error. Returns true for ParseError,
// ConnectionError and any error that does not implement ErrorWithConnectionState.
func ShouldCloseConnection(err error) bool {
	if err == nil {
		return false
	}

	var e ErrorWithConnectionState
	if errors.As(err, &e) {
		return e.ShouldCloseConnection()
	}

	// Unknown error type - be conservative and close connection
	return true
}
