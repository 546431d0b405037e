package resp

import (
	"strconv"
	"strings"
)

// Reply is a decoded server reply.
// This is a low-level container; the variant is selected by Kind.
//
//   - Status, Error, Bulk, BulkError, Verbatim, BigNumber, Double: Str holds the payload text
//   - Integer, Boolean: Int holds the value (Boolean is 0 or 1)
//   - Double: Float holds the parsed value as well
//   - Array, Set, Push: Elems holds the elements
//   - Map: Elems holds keys and values flattened (k1, v1, k2, v2, ...)
//
// Null is set for an absent bulk string ($-1) and an absent array (*-1);
// Kind keeps its origin so the two stay distinguishable. A RESP3 null (_)
// has Kind KindNull and Null set.
type Reply struct {
	Kind  Kind
	Str   []byte
	Int   int64
	Float float64
	Elems []Reply
	Null  bool
}

// IsNull reports whether the reply is any flavour of the store's null.
func (r Reply) IsNull() bool {
	return r.Null
}

// IsError reports whether the reply is an error reply.
func (r Reply) IsError() bool {
	return r.Kind == KindError || r.Kind == KindBulkError
}

// Err returns the store error carried by an error reply, or nil.
func (r Reply) Err() error {
	if !r.IsError() {
		return nil
	}
	return &Error{Message: string(r.Str)}
}

// IsAggregate reports whether the reply carries elements (array, set, map or push).
func (r Reply) IsAggregate() bool {
	switch r.Kind {
	case KindArray, KindSet, KindMap, KindPush:
		return true
	default:
		return false
	}
}

// IsScalar reports whether the reply is a non-null value convertible to text.
func (r Reply) IsScalar() bool {
	if r.Null {
		return false
	}
	switch r.Kind {
	case KindStatus, KindInteger, KindBulk, KindDouble, KindBigNumber, KindVerbatim, KindBoolean:
		return true
	default:
		return false
	}
}

// Text returns the scalar text of the reply.
// Integer and Boolean replies are formatted in base 10.
// ok is false for null, error and aggregate replies.
func (r Reply) Text() (text string, ok bool) {
	if !r.IsScalar() {
		return "", false
	}
	switch r.Kind {
	case KindInteger, KindBoolean:
		return strconv.FormatInt(r.Int, 10), true
	default:
		return string(r.Str), true
	}
}

// Bytes returns the scalar payload of the reply.
// ok is false for null, error and aggregate replies.
func (r Reply) Bytes() (b []byte, ok bool) {
	if !r.IsScalar() {
		return nil, false
	}
	switch r.Kind {
	case KindInteger, KindBoolean:
		return strconv.AppendInt(nil, r.Int, 10), true
	default:
		return r.Str, true
	}
}

// String returns a compact human-readable rendering, for logs and test failures.
func (r Reply) String() string {
	var sb strings.Builder
	r.format(&sb)
	return sb.String()
}

func (r Reply) format(sb *strings.Builder) {
	if r.Null {
		sb.WriteString(r.Kind.String())
		sb.WriteString("(nil)")
		return
	}
	sb.WriteString(r.Kind.String())
	sb.WriteByte('(')
	switch {
	case r.IsAggregate():
		for i, e := range r.Elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			e.format(sb)
		}
	case r.Kind == KindInteger || r.Kind == KindBoolean:
		sb.WriteString(strconv.FormatInt(r.Int, 10))
	default:
		sb.WriteString(strconv.Quote(string(r.Str)))
	}
	sb.WriteByte(')')
}

// Convenience constructors, used by tests and fake servers.

func StatusReply(s string) Reply {
	return Reply{Kind: KindStatus, Str: []byte(s)}
}

func ErrorReply(msg string) Reply {
	return Reply{Kind: KindError, Str: []byte(msg)}
}

func IntegerReply(n int64) Reply {
	return Reply{Kind: KindInteger, Int: n}
}

func BulkReply(b []byte) Reply {
	return Reply{Kind: KindBulk, Str: b}
}

func BulkStringReply(s string) Reply {
	return Reply{Kind: KindBulk, Str: []byte(s)}
}

func NullBulkReply() Reply {
	return Reply{Kind: KindBulk, Null: true}
}

func ArrayReply(elems ...Reply) Reply {
	if elems == nil {
		elems = []Reply{}
	}
	return Reply{Kind: KindArray, Elems: elems}
}

func NullArrayReply() Reply {
	return Reply{Kind: KindArray, Null: true}
}

func DoubleReply(f float64) Reply {
	return Reply{Kind: KindDouble, Str: []byte(FormatFloat(f)), Float: f}
}
