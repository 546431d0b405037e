package resp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Arg is implemented by values that know their own canonical token encoding.
type Arg interface {
	AppendArg(dst []byte) []byte
}

// Frame is a request: an ordered list of byte-string tokens.
// The first token is the command keyword; two-word commands carry the
// sub-keyword as the second token.
//
// The zero value is not usable, create frames with NewFrame or Build.
// A Frame is built once and then handed to the codec; it must not be
// modified after it has been dispatched.
type Frame struct {
	args [][]byte
}

// NewFrame starts a frame with the given keyword tokens (e.g. "GET" or "CLIENT", "SETNAME").
func NewFrame(keyword ...string) *Frame {
	f := &Frame{args: make([][]byte, 0, len(keyword)+4)}
	for _, k := range keyword {
		f.args = append(f.args, []byte(k))
	}
	return f
}

// Build creates a frame from a keyword and heterogeneous arguments.
//
// Supported argument types:
//   - string, []byte: sent as is
//   - all integer types: base 10
//   - float32, float64: shortest round-trip form, +inf/-inf for infinities
//   - bool: "1" or "0"
//   - time.Duration: seconds, with a fractional part if needed
//   - Arg: its own encoding
//   - []string, [][]byte, []any: flattened in order
//
// Any other type, or an empty keyword, is a BuildError.
func Build(keyword string, args ...any) (*Frame, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, &BuildError{Message: "empty command keyword"}
	}

	f := &Frame{args: make([][]byte, 0, len(args)+1)}
	f.args = append(f.args, []byte(keyword))

	for i, arg := range args {
		if err := f.add(arg); err != nil {
			return nil, NewBuildError(keyword, "argument %d: %v", i, err)
		}
	}
	return f, nil
}

func (f *Frame) add(arg any) error {
	switch v := arg.(type) {
	case string:
		f.AddString(v)
	case []byte:
		f.AddBytes(v)
	case int:
		f.AddInt(int64(v))
	case int8:
		f.AddInt(int64(v))
	case int16:
		f.AddInt(int64(v))
	case int32:
		f.AddInt(int64(v))
	case int64:
		f.AddInt(v)
	case uint:
		f.AddUint(uint64(v))
	case uint8:
		f.AddUint(uint64(v))
	case uint16:
		f.AddUint(uint64(v))
	case uint32:
		f.AddUint(uint64(v))
	case uint64:
		f.AddUint(v)
	case float32:
		if math.IsNaN(float64(v)) {
			return fmt.Errorf("NaN is not a valid argument")
		}
		f.AddFloat32(v)
	case float64:
		if math.IsNaN(v) {
			return fmt.Errorf("NaN is not a valid argument")
		}
		f.AddFloat(v)
	case bool:
		if v {
			f.AddString("1")
		} else {
			f.AddString("0")
		}
	case time.Duration:
		f.AddSeconds(v)
	case Arg:
		f.AddArg(v)
	case []string:
		for _, s := range v {
			f.AddString(s)
		}
	case [][]byte:
		for _, b := range v {
			f.AddBytes(b)
		}
	case []any:
		for _, a := range v {
			if err := f.add(a); err != nil {
				return err
			}
		}
	case nil:
		return fmt.Errorf("nil argument")
	default:
		return fmt.Errorf("unsupported argument type %T", arg)
	}
	return nil
}

func (f *Frame) AddString(s string) *Frame {
	f.args = append(f.args, []byte(s))
	return f
}

func (f *Frame) AddBytes(b []byte) *Frame {
	f.args = append(f.args, b)
	return f
}

func (f *Frame) AddInt(n int64) *Frame {
	f.args = append(f.args, strconv.AppendInt(nil, n, 10))
	return f
}

func (f *Frame) AddUint(n uint64) *Frame {
	f.args = append(f.args, strconv.AppendUint(nil, n, 10))
	return f
}

func (f *Frame) AddFloat(v float64) *Frame {
	f.args = append(f.args, AppendFloat(nil, v))
	return f
}

// AddFloat32 appends the shortest decimal that parses back to the same float32.
func (f *Frame) AddFloat32(v float32) *Frame {
	if math.IsInf(float64(v), 0) {
		return f.AddFloat(float64(v))
	}
	f.args = append(f.args, strconv.AppendFloat(nil, float64(v), 'g', -1, 32))
	return f
}

func (f *Frame) AddArg(a Arg) *Frame {
	f.args = append(f.args, a.AppendArg(nil))
	return f
}

// AddSeconds appends a duration in seconds ("5", "0.25").
func (f *Frame) AddSeconds(d time.Duration) *Frame {
	if d%time.Second == 0 {
		return f.AddInt(int64(d / time.Second))
	}
	return f.AddFloat(d.Seconds())
}

// AddIf appends token only when cond is true (modifier flags such as NX, CH, WITHSCORES).
func (f *Frame) AddIf(cond bool, token string) *Frame {
	if cond {
		f.AddString(token)
	}
	return f
}

// Name returns the command keyword, upper-cased.
func (f *Frame) Name() string {
	if len(f.args) == 0 {
		return ""
	}
	return strings.ToUpper(string(f.args[0]))
}

// Args returns the frame tokens. The slice must not be modified.
func (f *Frame) Args() [][]byte {
	return f.args
}

// Len returns the number of tokens, keyword included.
func (f *Frame) Len() int {
	return len(f.args)
}

// Strings returns a copy of the tokens as strings, for logs and tests.
func (f *Frame) Strings() []string {
	out := make([]string, len(f.args))
	for i, a := range f.args {
		out[i] = string(a)
	}
	return out
}

func (f *Frame) String() string {
	return strings.Join(f.Strings(), " ")
}

// AppendFloat appends the canonical token for v: the shortest decimal that
// parses back to the same float64, or "+inf"/"-inf".
func AppendFloat(dst []byte, v float64) []byte {
	switch {
	case math.IsInf(v, 1):
		return append(dst, "+inf"...)
	case math.IsInf(v, -1):
		return append(dst, "-inf"...)
	}
	return strconv.AppendFloat(dst, v, 'g', -1, 64)
}

// FormatFloat returns the canonical token for v.
func FormatFloat(v float64) string {
	return string(AppendFloat(nil, v))
}
