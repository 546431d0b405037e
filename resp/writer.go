package resp

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"sync"
)

// maxPooledBuffer is the largest buffer returned to the pool.
const maxPooledBuffer = 64 * 1024

// Buffer pool for serializing frames
var bufferPool = sync.Pool{
	New: func() any {
		// Typical frame is well under 256 bytes
		return bytes.NewBuffer(make([]byte, 0, 256))
	},
}

func getBuffer() *bytes.Buffer {
	return bufferPool.Get().(*bytes.Buffer)
}

func putBuffer(buf *bytes.Buffer) {
	if buf.Cap() > maxPooledBuffer {
		return
	}
	buf.Reset()
	bufferPool.Put(buf)
}

// WriteFrame serializes a frame to wire format and writes it to w.
// Format: *<N>\r\n followed by $<len>\r\n<bytes>\r\n for every token.
//
// An empty frame is a BuildError and nothing is written.
//
// Performance considerations:
//   - Uses bufio.Writer when available and flushes once
//   - Falls back to a pooled buffer and a single Write for other io.Writer types
func WriteFrame(w io.Writer, f *Frame) error {
	if f == nil || len(f.args) == 0 {
		return &BuildError{Message: "empty frame"}
	}

	// Optimize for bufio.Writer (used by Connection)
	if bw, ok := w.(*bufio.Writer); ok {
		return writeFrameBuffered(bw, f)
	}

	// Fallback to bytes.Buffer approach for other writers (tests, etc.)
	return writeFrameUnbuffered(w, f)
}

// writeFrameBuffered writes using bufio.Writer.
func writeFrameBuffered(bw *bufio.Writer, f *Frame) error {
	var scratch [24]byte

	bw.WriteByte(byte(KindArray))
	bw.Write(strconv.AppendInt(scratch[:0], int64(len(f.args)), 10))
	bw.WriteString(CRLF)

	for _, arg := range f.args {
		bw.WriteByte(byte(KindBulk))
		bw.Write(strconv.AppendInt(scratch[:0], int64(len(arg)), 10))
		bw.WriteString(CRLF)
		if _, err := bw.Write(arg); err != nil {
			return err
		}
		bw.WriteString(CRLF)
	}

	return bw.Flush()
}

// writeFrameUnbuffered writes using a pooled buffer (for tests and non-buffered writers).
func writeFrameUnbuffered(w io.Writer, f *Frame) error {
	buf := getBuffer()
	defer putBuffer(buf)

	buf.Write(AppendFrame(buf.AvailableBuffer(), f))

	_, err := w.Write(buf.Bytes())
	return err
}

// AppendFrame appends the wire encoding of f to dst and returns the extended slice.
func AppendFrame(dst []byte, f *Frame) []byte {
	dst = append(dst, byte(KindArray))
	dst = strconv.AppendInt(dst, int64(len(f.args)), 10)
	dst = append(dst, CRLF...)

	for _, arg := range f.args {
		dst = append(dst, byte(KindBulk))
		dst = strconv.AppendInt(dst, int64(len(arg)), 10)
		dst = append(dst, CRLF...)
		dst = append(dst, arg...)
		dst = append(dst, CRLF...)
	}
	return dst
}

// EncodedLen returns the number of bytes AppendFrame produces for f.
func EncodedLen(f *Frame) int {
	n := 1 + digits(len(f.args)) + 2
	for _, arg := range f.args {
		n += 1 + digits(len(arg)) + 2 + len(arg) + 2
	}
	return n
}

func digits(n int) int {
	d := 1
	for n >= 10 {
		n /= 10
		d++
	}
	return d
}
