package result

import (
	"fmt"

	"github.com/pior/redis/resp"
)

// Member is the representation of a sorted set member.
type Member interface {
	string | []byte
}

// MemberScore is a member of a sorted structure and its score.
type MemberScore[M Member] struct {
	Member M
	Score  Number
}

// KeyValue is the result of a multi-key pop: the key that produced data and its payload.
type KeyValue[V any] struct {
	Key   string
	Value V
}

// ScoreRank is the rank of a member and its score.
type ScoreRank struct {
	Rank  int64
	Score Number
}

// ScanPage is one page of a cursor-based iteration.
// The cursor is kept as text; "0" ends the iteration.
type ScanPage[T any] struct {
	Cursor string
	Items  []T
}

// Done reports whether this is the last page.
func (p ScanPage[T]) Done() bool {
	return p.Cursor == resp.CursorDone
}

// As extracts a typed result from the output of Materialize.
//
// ok is false when there is no value (a null reply with a nullable shape)
// or when err is not nil. A value of another type than T is a decode failure.
//
//	score, ok, err := result.As[result.Number](client.Dispatch(ctx, key, f, shape))
func As[T any](v any, err error) (T, bool, error) {
	var zero T
	if err != nil {
		return zero, false, err
	}
	if v == nil {
		return zero, false, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, false, &DecodeError{Reason: fmt.Sprintf("result is %T, not %T", v, zero)}
	}
	return t, true, nil
}
