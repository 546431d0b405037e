package resp

// Kind identifies the variant of a Reply.
// The values are the RESP type marker bytes.
type Kind byte

// Reply type markers
const (
	KindStatus    Kind = '+'
	KindError     Kind = '-'
	KindInteger   Kind = ':'
	KindBulk      Kind = '$'
	KindArray     Kind = '*'
	KindNull      Kind = '_'
	KindBoolean   Kind = '#'
	KindDouble    Kind = ','
	KindBigNumber Kind = '('
	KindBulkError Kind = '!'
	KindVerbatim  Kind = '='
	KindMap       Kind = '%'
	KindSet       Kind = '~'
	KindAttribute Kind = '|'
	KindPush      Kind = '>'
)

func (k Kind) String() string {
	switch k {
	case KindStatus:
		return "status"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulk:
		return "bulk"
	case KindArray:
		return "array"
	case KindNull:
		return "null"
	case KindBoolean:
		return "boolean"
	case KindDouble:
		return "double"
	case KindBigNumber:
		return "bignumber"
	case KindBulkError:
		return "bulkerror"
	case KindVerbatim:
		return "verbatim"
	case KindMap:
		return "map"
	case KindSet:
		return "set"
	case KindAttribute:
		return "attribute"
	case KindPush:
		return "push"
	default:
		return "unknown"
	}
}

// Protocol delimiters
const (
	CRLF = "\r\n"
)

// Protocol limits
const (
	// MaxBulkLength is the largest bulk string the reader accepts (512 MiB, the server default).
	MaxBulkLength = 512 * 1024 * 1024

	// MaxAggregateLength bounds the element count of arrays, sets, maps and pushes.
	MaxAggregateLength = 1 << 27

	// MaxDepth bounds aggregate nesting.
	MaxDepth = 64
)

// Sentinel texts relied upon by result materialization.
const (
	// TrueText is the scalar text of a boolean-true condition reply.
	TrueText = "1"

	// CursorDone is the cursor text that ends a SCAN family iteration.
	CursorDone = "0"
)
