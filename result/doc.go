// Package result turns generic replies into the typed results callers ask for.
//
// A caller describes the result it wants with a Shape, and Materialize does
// the conversion, purely and without touching the reply:
//
//	v, err := result.Materialize(reply, result.MemberScores(result.KindText))
//	pairs, ok, err := result.As[[]result.MemberScore[string]](v, err)
//
// Numbers are kept as text (Number) and converted at the edge with NumberAs,
// which refuses conversions that would lose information.
//
// A reply that does not fit the shape is a *DecodeError, which matches
// resp.ErrProtocol. It is never turned into a zero value or a null.
package result
