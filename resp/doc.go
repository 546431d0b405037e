// Package resp provides a low-level wire protocol implementation for the
// Redis Serialization Protocol (RESP2 and the RESP3 reply types).
//
// This package is the codec beneath the redis client. It builds request
// frames, serializes them, and decodes replies into a generic Reply tree.
// It owns no connection state and imposes no pooling or dispatch decisions.
//
// # Core Types
//
//   - Frame: an ordered list of byte-string tokens, the first being the command keyword
//   - Reply: a decoded server reply, a tagged union selected by the type marker byte
//   - Kind: the reply variant (status, error, integer, bulk, array, double, ...)
//
// # Building and Writing Requests
//
// Build converts heterogeneous Go values into canonical tokens:
//
//	f, err := resp.Build("ZADD", "scores", "NX", 5, "alice")
//	if err != nil {
//	    return err // *BuildError, nothing was sent
//	}
//	err = resp.WriteFrame(conn, f)
//
// The fluent form is useful when arguments are optional:
//
//	f := resp.NewFrame("ZADD").AddString(key).AddIf(nx, "NX").AddFloat(score).AddBytes(member)
//
// # Reading Replies
//
// ReadReply consumes exactly one reply from a bufio.Reader:
//
//	reply, err := resp.ReadReply(bufio.NewReader(conn))
//	if err != nil {
//	    if resp.ShouldCloseConnection(err) {
//	        conn.Close()
//	    }
//	    return err
//	}
//	if reply.IsError() {
//	    return reply.Err() // *Error, the store's message intact
//	}
//
// Null replies keep their origin: an absent bulk string ($-1) and an absent
// array (*-1) both report IsNull, and are distinguishable from an empty string
// or an empty array.
//
// # Error Handling
//
//   - BuildError: invalid arguments detected before any I/O, connection untouched
//   - Error: the store's own error reply, connection can be REUSED
//   - ParseError: malformed or truncated reply, CLOSE connection
//   - ConnectionError: network/I/O error, connection already broken
//
// Use ShouldCloseConnection to decide whether a connection can go back to its pool.
package resp
