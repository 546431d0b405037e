package result

import (
	"strings"

	"github.com/pior/redis/resp"
)

// Kind selects the family of typed result a Shape materializes to.
type Kind uint8

const (
	kindUnset Kind = iota

	KindBytes       // []byte
	KindText        // string
	KindInt64       // int64
	KindNumber      // Number
	KindMemberScore // MemberScore[string] or MemberScore[[]byte], per Shape.Member
	KindKeyValue    // KeyValue[V], V from Shape.Elem
	KindScoreRank   // ScoreRank
	KindScanPage    // ScanPage[T], T from Shape.Elem
	KindCondition   // bool
)

func (k Kind) String() string {
	switch k {
	case KindBytes:
		return "bytes"
	case KindText:
		return "text"
	case KindInt64:
		return "int64"
	case KindNumber:
		return "number"
	case KindMemberScore:
		return "member-score"
	case KindKeyValue:
		return "key-value"
	case KindScoreRank:
		return "score-rank"
	case KindScanPage:
		return "scan-page"
	case KindCondition:
		return "condition"
	default:
		return "unset"
	}
}

// Shape is the caller-declared description of the typed result wanted from a reply.
//
// Shapes are plain values, build them with the helpers below:
//
//	result.Scalar(result.KindNumber).OrNil()             // ZSCORE
//	result.MemberScores(result.KindText)                  // ZRANGE ... WITHSCORES
//	result.KeyValueOf(result.MemberScores(result.KindText)).OrNil() // BZMPOP
//	result.ScanPageOf(result.Scalar(result.KindText))     // SCAN
type Shape struct {
	Kind Kind

	// Array asks for a homogeneous list of Kind.
	Array bool

	// Nullable makes an absent reply materialize to "no value" (nil)
	// instead of a decode failure.
	Nullable bool

	// NullableItems, for Array shapes, materializes to []*T with nil for absent items.
	NullableItems bool

	// Member is KindText (default) or KindBytes, for member-score shapes.
	Member Kind

	// Elem is the payload shape of KindKeyValue and the item shape of KindScanPage.
	// Defaults to KindBytes and KindText respectively.
	Elem *Shape

	// Sentinel is the truth text of KindCondition, "1" when empty.
	Sentinel string
}

// Scalar returns a shape for a single value of kind k.
func Scalar(k Kind) Shape {
	return Shape{Kind: k}
}

// Pair returns a shape for a single member-score pair.
func Pair(member Kind) Shape {
	return Shape{Kind: KindMemberScore, Member: member}
}

// MemberScores returns a shape for a list of member-score pairs.
func MemberScores(member Kind) Shape {
	return Shape{Kind: KindMemberScore, Array: true, Member: member}
}

// KeyValueOf returns a shape for a [key, payload] pair with the given payload shape.
func KeyValueOf(elem Shape) Shape {
	return Shape{Kind: KindKeyValue, Elem: &elem}
}

// ScanPageOf returns a shape for a [cursor, items] page with the given item shape.
func ScanPageOf(elem Shape) Shape {
	return Shape{Kind: KindScanPage, Elem: &elem}
}

// ConditionOn returns a condition shape true when the reply text equals sentinel.
func ConditionOn(sentinel string) Shape {
	return Shape{Kind: KindCondition, Sentinel: sentinel}
}

// OrNil returns a copy of s accepting an absent reply.
func (s Shape) OrNil() Shape {
	s.Nullable = true
	return s
}

// Many returns a copy of s describing a list of s.
func (s Shape) Many() Shape {
	s.Array = true
	return s
}

// ItemsOrNil returns a copy of s whose list items may be absent.
func (s Shape) ItemsOrNil() Shape {
	s.Array = true
	s.NullableItems = true
	return s
}

func (s Shape) member() Kind {
	if s.Member == KindBytes {
		return KindBytes
	}
	return KindText
}

func (s Shape) elem(def Kind) Shape {
	if s.Elem == nil {
		return Scalar(def)
	}
	return *s.Elem
}

func (s Shape) sentinel() string {
	if s.Sentinel == "" {
		return resp.TrueText
	}
	return s.Sentinel
}

// String describes the shape, e.g. "nullable key-value(list of member-score(text))".
func (s Shape) String() string {
	var sb strings.Builder
	if s.Nullable {
		sb.WriteString("nullable ")
	}
	if s.Array {
		sb.WriteString("list of ")
		if s.NullableItems {
			sb.WriteString("nullable ")
		}
	}
	sb.WriteString(s.Kind.String())

	switch s.Kind {
	case KindMemberScore:
		sb.WriteString("(" + s.member().String() + ")")
	case KindKeyValue:
		sb.WriteString("(" + s.elem(KindBytes).String() + ")")
	case KindScanPage:
		sb.WriteString("(" + s.elem(KindText).String() + ")")
	case KindCondition:
		sb.WriteString("(=" + s.sentinel() + ")")
	}
	return sb.String()
}
