package resp

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"strconv"
)

// Pre-allocated byte slices for comparisons (avoid allocation in hot path)
var (
	crlfBytes = []byte(CRLF)
	trueByte  = byte('t')
	falseByte = byte('f')
)

// maxPrealloc caps the element slice allocated up front for an aggregate,
// larger aggregates grow as elements arrive.
const maxPrealloc = 1024

// ReadReply reads and decodes exactly one reply from r.
//
// The reply type is chosen by the leading marker byte only; an error reply
// is recognized as such whatever its payload looks like. Error replies from
// the store are returned as a Reply with Kind KindError or KindBulkError
// (not as Go error). The caller should check Reply.IsError().
//
// Go errors returned indicate I/O or decoding failures, never a null:
//   - ConnectionError: the stream failed or closed before a reply started,
//     or an I/O error (including a deadline) happened mid-reply
//   - ParseError: malformed or truncated reply
//
// Both leave the stream at an unknown position; the connection must be closed.
//
// RESP3 attribute frames are consumed and discarded; the annotated value is returned.
func ReadReply(r *bufio.Reader) (Reply, error) {
	marker, err := r.ReadByte()
	if err != nil {
		return Reply{}, &ConnectionError{Op: "read", Err: err}
	}
	return readReply(r, Kind(marker), 0)
}

func readReply(r *bufio.Reader, kind Kind, depth int) (Reply, error) {
	if depth > MaxDepth {
		return Reply{}, &ParseError{Message: "reply nesting exceeds maximum depth"}
	}

	line, err := readLine(r)
	if err != nil {
		return Reply{}, err
	}

	switch kind {
	case KindStatus, KindError, KindBigNumber:
		if kind == KindBigNumber && !validBigNumber(line) {
			return Reply{}, &ParseError{Message: "invalid big number " + strconv.Quote(string(line))}
		}
		return Reply{Kind: kind, Str: line}, nil

	case KindInteger:
		n, err := parseInt(line)
		if err != nil {
			return Reply{}, &ParseError{Message: "invalid integer", Err: err}
		}
		return Reply{Kind: kind, Int: n}, nil

	case KindDouble:
		f, err := strconv.ParseFloat(string(line), 64)
		if err != nil {
			return Reply{}, &ParseError{Message: "invalid double", Err: err}
		}
		return Reply{Kind: kind, Str: line, Float: f}, nil

	case KindBoolean:
		if len(line) != 1 || (line[0] != trueByte && line[0] != falseByte) {
			return Reply{}, &ParseError{Message: "invalid boolean " + strconv.Quote(string(line))}
		}
		var n int64
		if line[0] == trueByte {
			n = 1
		}
		return Reply{Kind: kind, Int: n}, nil

	case KindNull:
		if len(line) != 0 {
			return Reply{}, &ParseError{Message: "unexpected payload in null reply"}
		}
		return Reply{Kind: kind, Null: true}, nil

	case KindBulk, KindBulkError, KindVerbatim:
		return readBulk(r, kind, line)

	case KindArray, KindSet, KindPush, KindMap:
		return readAggregate(r, kind, line, depth)

	case KindAttribute:
		// Read the attribute map and drop it, then the value it annotates.
		if _, err := readAggregate(r, KindMap, line, depth); err != nil {
			return Reply{}, err
		}
		marker, err := r.ReadByte()
		if err != nil {
			return Reply{}, truncated(err)
		}
		return readReply(r, Kind(marker), depth)

	default:
		return Reply{}, &ParseError{Message: "unknown reply type marker " + strconv.QuoteRune(rune(kind))}
	}
}

func readBulk(r *bufio.Reader, kind Kind, line []byte) (Reply, error) {
	size, err := parseInt(line)
	if err != nil {
		return Reply{}, &ParseError{Message: "invalid bulk length", Err: err}
	}

	if size == -1 {
		if kind != KindBulk {
			return Reply{}, &ParseError{Message: "null length not allowed for " + kind.String()}
		}
		return Reply{Kind: kind, Null: true}, nil
	}
	if size < 0 {
		return Reply{}, &ParseError{Message: "negative bulk length"}
	}
	if size > MaxBulkLength {
		return Reply{}, &ParseError{Message: "bulk length exceeds maximum"}
	}

	// Read data + CRLF together in single read
	data := make([]byte, size+2)
	if _, err := io.ReadFull(r, data); err != nil {
		return Reply{}, truncated(err)
	}

	// Verify CRLF suffix
	if !bytes.HasSuffix(data, crlfBytes) {
		return Reply{}, &ParseError{Message: "invalid bulk terminator"}
	}
	data = data[:size]

	if kind == KindVerbatim {
		// Verbatim payload is "fmt:text"; keep the text only.
		if len(data) < 4 || data[3] != ':' {
			return Reply{}, &ParseError{Message: "invalid verbatim string format"}
		}
		data = data[4:]
	}

	return Reply{Kind: kind, Str: data}, nil
}

func readAggregate(r *bufio.Reader, kind Kind, line []byte, depth int) (Reply, error) {
	count, err := parseInt(line)
	if err != nil {
		return Reply{}, &ParseError{Message: "invalid aggregate length", Err: err}
	}

	if count == -1 {
		if kind != KindArray {
			return Reply{}, &ParseError{Message: "null length not allowed for " + kind.String()}
		}
		return Reply{Kind: kind, Null: true}, nil
	}
	if count < 0 {
		return Reply{}, &ParseError{Message: "negative aggregate length"}
	}
	if count > MaxAggregateLength {
		return Reply{}, &ParseError{Message: "aggregate length exceeds maximum"}
	}

	n := int(count)
	if kind == KindMap {
		n *= 2
	}

	elems := make([]Reply, 0, min(n, maxPrealloc))
	for range n {
		marker, err := r.ReadByte()
		if err != nil {
			return Reply{}, truncated(err)
		}
		elem, err := readReply(r, Kind(marker), depth+1)
		if err != nil {
			return Reply{}, err
		}
		elems = append(elems, elem)
	}

	return Reply{Kind: kind, Elems: elems}, nil
}

// readLine returns the rest of the current line without its CRLF.
// The returned slice is owned by the caller.
func readLine(r *bufio.Reader) ([]byte, error) {
	// ReadSlice returns a slice into the buffer, fall back to ReadBytes
	// when the line exceeds the buffer size
	line, err := r.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		var rest []byte
		rest, err = r.ReadBytes('\n')
		line = append(append([]byte(nil), line...), rest...)
	} else if err == nil {
		line = append([]byte(nil), line...)
	}
	if err != nil {
		return nil, truncated(err)
	}

	if !bytes.HasSuffix(line, crlfBytes) {
		return nil, &ParseError{Message: "line not terminated by CRLF"}
	}
	return line[:len(line)-2], nil
}

// truncated classifies an error hit after a reply has started: a closed
// stream means the reply is incomplete, anything else is an I/O failure.
func truncated(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return &ParseError{Message: "truncated reply", Err: io.ErrUnexpectedEOF}
	}
	return &ConnectionError{Op: "read", Err: err}
}

func parseInt(b []byte) (int64, error) {
	if len(b) == 0 {
		return 0, errors.New("empty number")
	}
	return strconv.ParseInt(string(b), 10, 64)
}

func validBigNumber(b []byte) bool {
	if len(b) > 0 && (b[0] == '-' || b[0] == '+') {
		b = b[1:]
	}
	if len(b) == 0 {
		return false
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
