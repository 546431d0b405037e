package result

import (
	"bytes"
	"strconv"

	"github.com/pior/redis/resp"
)

// DecodeError reports a reply that does not have the shape the caller asked for.
// The reply was fully read; only this request failed.
//
// Connection handling: connection can be REUSED
type DecodeError struct {
	Shape  Shape
	Reply  resp.Kind
	Reason string
	Err    error // Underlying error, if any
}

func (e *DecodeError) Error() string {
	msg := "result: "
	if e.Reply != 0 {
		msg += "cannot materialize " + e.Reply.String() + " reply as " + e.Shape.String() + ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection
func (e *DecodeError) Unwrap() error {
	return e.Err
}

func (e *DecodeError) Is(target error) bool {
	return target == resp.ErrProtocol
}

// ShouldCloseConnection returns false - the reply was consumed in full
func (e *DecodeError) ShouldCloseConnection() bool {
	return false
}

func decodeErr(r resp.Reply, s Shape, reason string) *DecodeError {
	return &DecodeError{Shape: s, Reply: r.Kind, Reason: reason}
}

// Materialize converts a reply into the typed result described by s.
//
// It returns nil, nil for "no value": an absent reply with a nullable shape.
// An absent array with a non-nullable list shape is an empty list. Any
// other absent reply is a decode failure.
//
// An error reply is returned as its *resp.Error, message intact.
//
// Result types per shape:
//   - KindBytes: []byte, KindText: string, KindInt64: int64, KindNumber: Number,
//     KindCondition: bool, KindScoreRank: ScoreRank
//   - KindMemberScore: MemberScore[string], or MemberScore[[]byte] when Member is KindBytes
//   - KindKeyValue: KeyValue[V] with V the result type of Elem
//   - KindScanPage: ScanPage[T] with T the result type of one Elem item
//   - Array shapes: []T, or []*T with NullableItems (member-score lists
//     ignore NullableItems)
//
// Elem may be any scalar, pair or list shape. A KeyValue or ScanPage nested
// in Elem, or an array of them, is not supported and fails with a DecodeError.
//
// Materialize is pure and never modifies r.
func Materialize(r resp.Reply, s Shape) (any, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}

	if r.IsNull() {
		if s.Nullable {
			return nil, nil
		}
		if s.Array && r.Kind != resp.KindBulk {
			return materializeList(resp.ArrayReply(), s)
		}
		return nil, decodeErr(r, s, "unexpected null")
	}

	if s.Array {
		return materializeList(r, s)
	}
	return materializeOne(r, s)
}

func materializeOne(r resp.Reply, s Shape) (any, error) {
	switch s.Kind {
	case KindBytes:
		return bytesOf(r, s)
	case KindText:
		return textOf(r, s)
	case KindInt64:
		return int64Of(r, s)
	case KindNumber:
		return numberOf(r, s)
	case KindCondition:
		return conditionOf(r, s)
	case KindScoreRank:
		return scoreRankOf(r, s)
	case KindMemberScore:
		if s.member() == KindBytes {
			return pairOf[[]byte](r, s)
		}
		return pairOf[string](r, s)
	case KindKeyValue:
		return keyValueOf(r, s)
	case KindScanPage:
		return scanPageOf(r, s)
	default:
		return nil, decodeErr(r, s, "unsupported shape")
	}
}

func materializeList(r resp.Reply, s Shape) (any, error) {
	if !r.IsAggregate() {
		return nil, decodeErr(r, s, "expected an array")
	}

	switch s.Kind {
	case KindBytes:
		return listOf(r, s, bytesOf)
	case KindText:
		return listOf(r, s, textOf)
	case KindInt64:
		return listOf(r, s, int64Of)
	case KindNumber:
		return listOf(r, s, numberOf)
	case KindCondition:
		return listOf(r, s, conditionOf)
	case KindScoreRank:
		return listOf(r, s, scoreRankOf)
	case KindMemberScore:
		if s.member() == KindBytes {
			return pairsOf[[]byte](r, s)
		}
		return pairsOf[string](r, s)
	default:
		return nil, decodeErr(r, s, "unsupported list shape")
	}
}

// listOf materializes every element of an aggregate with item.
func listOf[T any](r resp.Reply, s Shape, item func(resp.Reply, Shape) (T, error)) (any, error) {
	if s.NullableItems {
		out := make([]*T, len(r.Elems))
		for i, e := range r.Elems {
			if e.IsNull() {
				continue
			}
			v, err := item(e, s)
			if err != nil {
				return nil, err
			}
			out[i] = &v
		}
		return out, nil
	}

	out := make([]T, 0, len(r.Elems))
	for _, e := range r.Elems {
		v, err := item(e, s)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// scalar returns the text payload of a non-null scalar element.
func scalar(r resp.Reply, s Shape) ([]byte, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	if r.IsNull() {
		return nil, decodeErr(r, s, "unexpected null")
	}
	b, ok := r.Bytes()
	if !ok {
		return nil, decodeErr(r, s, "expected a scalar")
	}
	return b, nil
}

func bytesOf(r resp.Reply, s Shape) ([]byte, error) {
	b, err := scalar(r, s)
	if err != nil {
		return nil, err
	}
	return bytes.Clone(b), nil
}

func textOf(r resp.Reply, s Shape) (string, error) {
	b, err := scalar(r, s)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func int64Of(r resp.Reply, s Shape) (int64, error) {
	switch r.Kind {
	case resp.KindInteger, resp.KindBoolean:
		return r.Int, nil
	}

	b, err := scalar(r, s)
	if err != nil {
		return 0, err
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		e := decodeErr(r, s, "invalid integer")
		e.Err = err
		return 0, e
	}
	return n, nil
}

func numberOf(r resp.Reply, s Shape) (Number, error) {
	switch r.Kind {
	case resp.KindInteger:
		return NumberFromInt64(r.Int), nil
	case resp.KindDouble:
		return Number{text: string(r.Str)}, nil
	}

	b, err := scalar(r, s)
	if err != nil {
		return Number{}, err
	}
	n, err := ParseNumber(string(b))
	if err != nil {
		e := decodeErr(r, s, "invalid number")
		e.Err = err
		return Number{}, e
	}
	return n, nil
}

func conditionOf(r resp.Reply, s Shape) (bool, error) {
	b, err := scalar(r, s)
	if err != nil {
		return false, err
	}
	return string(b) == s.sentinel(), nil
}

func memberOf[M Member](r resp.Reply, s Shape) (M, error) {
	b, err := scalar(r, s)
	if err != nil {
		var zero M
		return zero, err
	}
	return M(bytes.Clone(b)), nil
}

func pairFrom[M Member](member, score resp.Reply, s Shape) (MemberScore[M], error) {
	m, err := memberOf[M](member, s)
	if err != nil {
		return MemberScore[M]{}, err
	}
	n, err := numberOf(score, s)
	if err != nil {
		return MemberScore[M]{}, err
	}
	return MemberScore[M]{Member: m, Score: n}, nil
}

// pairOf materializes a single [member, score] array.
func pairOf[M Member](r resp.Reply, s Shape) (MemberScore[M], error) {
	if !r.IsAggregate() || len(r.Elems) != 2 {
		return MemberScore[M]{}, decodeErr(r, s, "expected a [member, score] array")
	}
	return pairFrom[M](r.Elems[0], r.Elems[1], s)
}

// pairsOf accepts a flat [m1, s1, m2, s2, ...] array or nested [[m1, s1], [m2, s2], ...] pairs.
func pairsOf[M Member](r resp.Reply, s Shape) ([]MemberScore[M], error) {
	elems := r.Elems

	if len(elems) > 0 && elems[0].IsAggregate() {
		out := make([]MemberScore[M], 0, len(elems))
		for _, e := range elems {
			p, err := pairOf[M](e, s)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	}

	if len(elems)%2 != 0 {
		return nil, decodeErr(r, s, "odd number of elements in member-score array ("+strconv.Itoa(len(elems))+")")
	}

	out := make([]MemberScore[M], 0, len(elems)/2)
	for i := 0; i < len(elems); i += 2 {
		p, err := pairFrom[M](elems[i], elems[i+1], s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func scoreRankOf(r resp.Reply, s Shape) (ScoreRank, error) {
	if !r.IsAggregate() || len(r.Elems) != 2 {
		return ScoreRank{}, decodeErr(r, s, "expected a [rank, score] array")
	}
	rank, err := int64Of(r.Elems[0], s)
	if err != nil {
		return ScoreRank{}, err
	}
	score, err := numberOf(r.Elems[1], s)
	if err != nil {
		return ScoreRank{}, err
	}
	return ScoreRank{Rank: rank, Score: score}, nil
}

// keyValueOf accepts [key, payload], and the flat [key, member, score]
// form of single-pair pops when the payload shape is one member-score pair.
func keyValueOf(r resp.Reply, s Shape) (any, error) {
	if !r.IsAggregate() {
		return nil, decodeErr(r, s, "expected a [key, payload] array")
	}
	elem := s.elem(KindBytes)

	var payload any
	var err error

	switch {
	case len(r.Elems) == 2:
		payload, err = Materialize(r.Elems[1], elem)
	case len(r.Elems) == 3 && elem.Kind == KindMemberScore && !elem.Array:
		payload, err = Materialize(resp.ArrayReply(r.Elems[1], r.Elems[2]), elem)
	default:
		return nil, decodeErr(r, s, "expected a [key, payload] array, got "+strconv.Itoa(len(r.Elems))+" elements")
	}
	if err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, decodeErr(r, s, "absent payload")
	}

	key, err := textOf(r.Elems[0], s)
	if err != nil {
		return nil, err
	}

	switch v := payload.(type) {
	case []byte:
		return KeyValue[[]byte]{Key: key, Value: v}, nil
	case string:
		return KeyValue[string]{Key: key, Value: v}, nil
	case int64:
		return KeyValue[int64]{Key: key, Value: v}, nil
	case Number:
		return KeyValue[Number]{Key: key, Value: v}, nil
	case MemberScore[string]:
		return KeyValue[MemberScore[string]]{Key: key, Value: v}, nil
	case MemberScore[[]byte]:
		return KeyValue[MemberScore[[]byte]]{Key: key, Value: v}, nil
	case [][]byte:
		return KeyValue[[][]byte]{Key: key, Value: v}, nil
	case []string:
		return KeyValue[[]string]{Key: key, Value: v}, nil
	case []int64:
		return KeyValue[[]int64]{Key: key, Value: v}, nil
	case []Number:
		return KeyValue[[]Number]{Key: key, Value: v}, nil
	case []MemberScore[string]:
		return KeyValue[[]MemberScore[string]]{Key: key, Value: v}, nil
	case []MemberScore[[]byte]:
		return KeyValue[[]MemberScore[[]byte]]{Key: key, Value: v}, nil
	case bool:
		return KeyValue[bool]{Key: key, Value: v}, nil
	case ScoreRank:
		return KeyValue[ScoreRank]{Key: key, Value: v}, nil
	case []bool:
		return KeyValue[[]bool]{Key: key, Value: v}, nil
	case []ScoreRank:
		return KeyValue[[]ScoreRank]{Key: key, Value: v}, nil
	case []*[]byte:
		return KeyValue[[]*[]byte]{Key: key, Value: v}, nil
	case []*string:
		return KeyValue[[]*string]{Key: key, Value: v}, nil
	case []*int64:
		return KeyValue[[]*int64]{Key: key, Value: v}, nil
	case []*Number:
		return KeyValue[[]*Number]{Key: key, Value: v}, nil
	case []*bool:
		return KeyValue[[]*bool]{Key: key, Value: v}, nil
	case []*ScoreRank:
		return KeyValue[[]*ScoreRank]{Key: key, Value: v}, nil
	default:
		return nil, decodeErr(r, s, "unsupported payload shape "+elem.String())
	}
}

func scanPageOf(r resp.Reply, s Shape) (any, error) {
	if !r.IsAggregate() || len(r.Elems) != 2 {
		return nil, decodeErr(r, s, "expected a [cursor, items] array")
	}

	cursor, err := textOf(r.Elems[0], s)
	if err != nil {
		return nil, err
	}

	items := s.elem(KindText)
	items.Array = true
	items.Nullable = false

	inner := r.Elems[1]
	if !inner.IsAggregate() || inner.IsNull() {
		return nil, decodeErr(r, s, "expected an items array")
	}
	v, err := Materialize(inner, items)
	if err != nil {
		return nil, err
	}

	switch v := v.(type) {
	case []string:
		return ScanPage[string]{Cursor: cursor, Items: v}, nil
	case [][]byte:
		return ScanPage[[]byte]{Cursor: cursor, Items: v}, nil
	case []int64:
		return ScanPage[int64]{Cursor: cursor, Items: v}, nil
	case []Number:
		return ScanPage[Number]{Cursor: cursor, Items: v}, nil
	case []MemberScore[string]:
		return ScanPage[MemberScore[string]]{Cursor: cursor, Items: v}, nil
	case []MemberScore[[]byte]:
		return ScanPage[MemberScore[[]byte]]{Cursor: cursor, Items: v}, nil
	case []bool:
		return ScanPage[bool]{Cursor: cursor, Items: v}, nil
	case []ScoreRank:
		return ScanPage[ScoreRank]{Cursor: cursor, Items: v}, nil
	case []*[]byte:
		return ScanPage[*[]byte]{Cursor: cursor, Items: v}, nil
	case []*string:
		return ScanPage[*string]{Cursor: cursor, Items: v}, nil
	case []*int64:
		return ScanPage[*int64]{Cursor: cursor, Items: v}, nil
	case []*Number:
		return ScanPage[*Number]{Cursor: cursor, Items: v}, nil
	case []*bool:
		return ScanPage[*bool]{Cursor: cursor, Items: v}, nil
	case []*ScoreRank:
		return ScanPage[*ScoreRank]{Cursor: cursor, Items: v}, nil
	default:
		return nil, decodeErr(r, s, "unsupported item shape "+items.String())
	}
}
