package redis

import (
	"context"
	"time"

	"github.com/pior/redis/resp"
	"github.com/pior/redis/result"
)

// Shapes of the commands below.
var (
	shapeText          = result.Scalar(result.KindText)
	shapeInt64         = result.Scalar(result.KindInt64)
	shapeNumber        = result.Scalar(result.KindNumber)
	shapeBytesOrNil    = result.Scalar(result.KindBytes).OrNil()
	shapeNumberOrNil   = result.Scalar(result.KindNumber).OrNil()
	shapeNumbersOrNil  = result.Scalar(result.KindNumber).ItemsOrNil()
	shapeIsMember      = result.ConditionOn(resp.TrueText)
	shapeMemberScores  = result.MemberScores(result.KindText)
	shapeScoreRank     = result.Scalar(result.KindScoreRank).OrNil()
	shapeScanText      = result.ScanPageOf(result.Scalar(result.KindText))
	shapeScanPairs     = result.ScanPageOf(result.Pair(result.KindText))
	shapeKeyPair       = result.KeyValueOf(result.Pair(result.KindText)).OrNil()
	shapeKeyPairs      = result.KeyValueOf(shapeMemberScores).OrNil()
	shapeKeyBytes      = result.KeyValueOf(result.Scalar(result.KindBytes)).OrNil()
	shapeKeyBytesArray = result.KeyValueOf(result.Scalar(result.KindBytes).Many()).OrNil()
)

// do dispatches a frame built by resp.Build, recording build failures.
func do[T any](ctx context.Context, c *Client, key string, f *resp.Frame, err error, s result.Shape, opts ...CallOption) (T, bool, error) {
	if err != nil {
		var zero T
		return zero, false, c.rejected(err)
	}
	return Do[T](ctx, c, key, f, s, opts...)
}

func (c *Client) buildError(command, format string, args ...any) error {
	return c.rejected(resp.NewBuildError(command, format, args...))
}

// rejected records a call refused before dispatch.
func (c *Client) rejected(err error) error {
	c.stats.recordBuildError()
	return err
}

// Echo returns message as echoed by the server owning key "".
func (c *Client) Echo(ctx context.Context, message string) (string, error) {
	v, _, err := Do[string](ctx, c, "", resp.NewFrame("ECHO").AddString(message), shapeText)
	return v, err
}

// Get returns the value of key. ok is false when the key doesn't exist.
func (c *Client) Get(ctx context.Context, key string) (value []byte, ok bool, err error) {
	return Do[[]byte](ctx, c, key, resp.NewFrame("GET").AddString(key), shapeBytesOrNil)
}

// Set stores value at key. A zero ttl means no expiration.
func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return c.buildError("SET", "negative ttl %s", ttl)
	}

	f := resp.NewFrame("SET").AddString(key).AddBytes(value)
	if ttl > 0 {
		f.AddString("PX").AddInt(ttl.Milliseconds())
	}

	_, _, err := Do[string](ctx, c, key, f, shapeText)
	return err
}

// Incr increments the integer at key by one.
func (c *Client) Incr(ctx context.Context, key string) (int64, error) {
	v, _, err := Do[int64](ctx, c, key, resp.NewFrame("INCR").AddString(key), shapeInt64)
	return v, err
}

// IncrBy increments the integer at key by delta.
func (c *Client) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	v, _, err := Do[int64](ctx, c, key, resp.NewFrame("INCRBY").AddString(key).AddInt(delta), shapeInt64)
	return v, err
}

// IncrByFloat increments the number at key by delta.
func (c *Client) IncrByFloat(ctx context.Context, key string, delta float64) (result.Number, error) {
	f, err := resp.Build("INCRBYFLOAT", key, delta)
	v, _, err := do[result.Number](ctx, c, key, f, err, shapeNumber)
	return v, err
}

// SIsMember reports whether member belongs to the set at key.
func (c *Client) SIsMember(ctx context.Context, key, member string) (bool, error) {
	v, _, err := Do[bool](ctx, c, key, resp.NewFrame("SISMEMBER").AddString(key).AddString(member), shapeIsMember)
	return v, err
}

// ZAddArgs are the modifiers and members of ZAdd.
type ZAddArgs struct {
	NX bool // Only add new members
	XX bool // Only update existing members
	GT bool // Only update when the new score is greater
	LT bool // Only update when the new score is less
	CH bool // Count changed members instead of added ones

	Members []result.MemberScore[string]
}

func (a ZAddArgs) frame(key string) (*resp.Frame, error) {
	switch {
	case len(a.Members) == 0:
		return nil, resp.NewBuildError("ZADD", "no members")
	case a.NX && a.XX:
		return nil, resp.NewBuildError("ZADD", "NX and XX are mutually exclusive")
	case a.GT && a.LT:
		return nil, resp.NewBuildError("ZADD", "GT and LT are mutually exclusive")
	case a.NX && (a.GT || a.LT):
		return nil, resp.NewBuildError("ZADD", "GT and LT can't be combined with NX")
	}

	f := resp.NewFrame("ZADD").AddString(key).
		AddIf(a.NX, "NX").
		AddIf(a.XX, "XX").
		AddIf(a.GT, "GT").
		AddIf(a.LT, "LT").
		AddIf(a.CH, "CH")
	for _, m := range a.Members {
		f.AddArg(m.Score).AddString(m.Member)
	}
	return f, nil
}

// ZAdd adds members to the sorted set at key and returns the number of added
// members, or changed members with CH.
func (c *Client) ZAdd(ctx context.Context, key string, args ZAddArgs) (int64, error) {
	f, err := args.frame(key)
	v, _, err := do[int64](ctx, c, key, f, err, shapeInt64)
	return v, err
}

// ZIncrBy increments the score of member and returns the new score.
func (c *Client) ZIncrBy(ctx context.Context, key string, increment float64, member string) (result.Number, error) {
	f, err := resp.Build("ZINCRBY", key, increment, member)
	v, _, err := do[result.Number](ctx, c, key, f, err, shapeNumber)
	return v, err
}

// ZScore returns the score of member. ok is false when the member or the key doesn't exist.
func (c *Client) ZScore(ctx context.Context, key, member string) (score result.Number, ok bool, err error) {
	return Do[result.Number](ctx, c, key, resp.NewFrame("ZSCORE").AddString(key).AddString(member), shapeNumberOrNil)
}

// ZMScore returns the scores of members, nil for the missing ones.
func (c *Client) ZMScore(ctx context.Context, key string, members ...string) ([]*result.Number, error) {
	if len(members) == 0 {
		return nil, c.buildError("ZMSCORE", "no members")
	}
	f, err := resp.Build("ZMSCORE", key, members)
	v, _, err := do[[]*result.Number](ctx, c, key, f, err, shapeNumbersOrNil)
	return v, err
}

// ZRangeWithScores returns the members with ranks between start and stop, inclusive.
func (c *Client) ZRangeWithScores(ctx context.Context, key string, start, stop int64) ([]result.MemberScore[string], error) {
	f := resp.NewFrame("ZRANGE").AddString(key).AddInt(start).AddInt(stop).AddString("WITHSCORES")
	v, _, err := Do[[]result.MemberScore[string]](ctx, c, key, f, shapeMemberScores)
	return v, err
}

// ZPopMin removes and returns up to count members with the lowest scores.
func (c *Client) ZPopMin(ctx context.Context, key string, count int64) ([]result.MemberScore[string], error) {
	if count <= 0 {
		return nil, c.buildError("ZPOPMIN", "count must be positive, got %d", count)
	}
	f := resp.NewFrame("ZPOPMIN").AddString(key).AddInt(count)
	v, _, err := Do[[]result.MemberScore[string]](ctx, c, key, f, shapeMemberScores)
	return v, err
}

// ZRankWithScore returns the rank and score of member. ok is false when the member doesn't exist.
func (c *Client) ZRankWithScore(ctx context.Context, key, member string) (rank result.ScoreRank, ok bool, err error) {
	f := resp.NewFrame("ZRANK").AddString(key).AddString(member).AddString("WITHSCORE")
	return Do[result.ScoreRank](ctx, c, key, f, shapeScoreRank)
}

// ScanArgs are the optional filters of a scan.
type ScanArgs struct {
	Match string // Glob-style pattern
	Count int64  // Work hint per page, zero for the server default
}

func (a ScanArgs) addTo(f *resp.Frame) (*resp.Frame, error) {
	if a.Count < 0 {
		return nil, resp.NewBuildError(f.Name(), "negative count %d", a.Count)
	}
	if a.Match != "" {
		f.AddString("MATCH").AddString(a.Match)
	}
	if a.Count > 0 {
		f.AddString("COUNT").AddInt(a.Count)
	}
	return f, nil
}

// Scan returns one page of the keyspace of the server owning key "".
func (c *Client) Scan(ctx context.Context, cursor string, args ScanArgs) (result.ScanPage[string], error) {
	f, err := args.addTo(resp.NewFrame("SCAN").AddString(cursor))
	v, _, err := do[result.ScanPage[string]](ctx, c, "", f, err, shapeScanText)
	return v, err
}

// ZScan returns one page of the members and scores of the sorted set at key.
func (c *Client) ZScan(ctx context.Context, key, cursor string, args ScanArgs) (result.ScanPage[result.MemberScore[string]], error) {
	f, err := args.addTo(resp.NewFrame("ZSCAN").AddString(key).AddString(cursor))
	v, _, err := do[result.ScanPage[result.MemberScore[string]]](ctx, c, key, f, err, shapeScanPairs)
	return v, err
}

// ScanIter iterates over the keyspace of the server owning key "".
func (c *Client) ScanIter(args ScanArgs) *ScanIterator[string] {
	return NewScanIterator(func(ctx context.Context, cursor string) (result.ScanPage[string], error) {
		return c.Scan(ctx, cursor, args)
	})
}

// ZScanIter iterates over the members and scores of the sorted set at key.
func (c *Client) ZScanIter(key string, args ScanArgs) *ScanIterator[result.MemberScore[string]] {
	return NewScanIterator(func(ctx context.Context, cursor string) (result.ScanPage[result.MemberScore[string]], error) {
		return c.ZScan(ctx, key, cursor, args)
	})
}

// BZPopMin pops the member with the lowest score from the first non-empty
// sorted set, waiting up to timeout. ok is false when the timeout expired.
// A zero timeout blocks until data arrives or ctx ends.
func (c *Client) BZPopMin(ctx context.Context, timeout time.Duration, keys ...string) (result.KeyValue[result.MemberScore[string]], bool, error) {
	if len(keys) == 0 {
		return result.KeyValue[result.MemberScore[string]]{}, false, c.buildError("BZPOPMIN", "no keys")
	}
	f := resp.NewFrame("BZPOPMIN")
	for _, k := range keys {
		f.AddString(k)
	}
	f.AddSeconds(timeout)
	return Do[result.KeyValue[result.MemberScore[string]]](ctx, c, keys[0], f, shapeKeyPair, Blocking(timeout))
}

// PopOrder selects the end of a sorted set to pop from.
type PopOrder string

const (
	PopMin PopOrder = "MIN"
	PopMax PopOrder = "MAX"
)

// BZMPop pops up to count members from the first non-empty sorted set,
// waiting up to timeout. ok is false when the timeout expired.
func (c *Client) BZMPop(ctx context.Context, timeout time.Duration, order PopOrder, count int64, keys ...string) (result.KeyValue[[]result.MemberScore[string]], bool, error) {
	var zero result.KeyValue[[]result.MemberScore[string]]
	if err := checkMultiPop("BZMPOP", count, keys); err != nil {
		return zero, false, c.rejected(err)
	}
	if order != PopMin && order != PopMax {
		return zero, false, c.buildError("BZMPOP", "invalid order %q", order)
	}

	f, err := resp.Build("BZMPOP", timeout, len(keys), keys, string(order), "COUNT", count)
	return do[result.KeyValue[[]result.MemberScore[string]]](ctx, c, keys[0], f, err, shapeKeyPairs, Blocking(timeout))
}

// BLPop pops the first element of the first non-empty list, waiting up to
// timeout. ok is false when the timeout expired.
func (c *Client) BLPop(ctx context.Context, timeout time.Duration, keys ...string) (result.KeyValue[[]byte], bool, error) {
	if len(keys) == 0 {
		return result.KeyValue[[]byte]{}, false, c.buildError("BLPOP", "no keys")
	}
	f, err := resp.Build("BLPOP", keys, timeout)
	return do[result.KeyValue[[]byte]](ctx, c, keys[0], f, err, shapeKeyBytes, Blocking(timeout))
}

// ListEnd selects the end of a list to pop from.
type ListEnd string

const (
	ListLeft  ListEnd = "LEFT"
	ListRight ListEnd = "RIGHT"
)

// LMPop pops up to count elements from the first non-empty list.
// ok is false when every list is empty.
func (c *Client) LMPop(ctx context.Context, end ListEnd, count int64, keys ...string) (result.KeyValue[[][]byte], bool, error) {
	var zero result.KeyValue[[][]byte]
	if err := checkMultiPop("LMPOP", count, keys); err != nil {
		return zero, false, c.rejected(err)
	}
	if end != ListLeft && end != ListRight {
		return zero, false, c.buildError("LMPOP", "invalid end %q", end)
	}

	f, err := resp.Build("LMPOP", len(keys), keys, string(end), "COUNT", count)
	return do[result.KeyValue[[][]byte]](ctx, c, keys[0], f, err, shapeKeyBytesArray)
}

func checkMultiPop(command string, count int64, keys []string) error {
	if len(keys) == 0 {
		return resp.NewBuildError(command, "no keys")
	}
	if count <= 0 {
		return resp.NewBuildError(command, "count must be positive, got %d", count)
	}
	return nil
}
