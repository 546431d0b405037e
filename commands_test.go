package redis

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pior/redis/resp"
	"github.com/pior/redis/result"
)

// replyServer answers every request with the reply set by the test.
type replyServer struct {
	*fakeServer
	reply chan string
}

func newReplyServer(t *testing.T) (*replyServer, *Client) {
	s := &replyServer{reply: make(chan string, 1)}
	s.fakeServer = newFakeServer(t, func([]string) string {
		return <-s.reply
	})
	return s, newTestClient(t, s.addr, Config{})
}

func (s *replyServer) next(reply string) {
	s.reply <- reply
}

func TestCommands(t *testing.T) {
	srv, client := newReplyServer(t)
	ctx := context.Background()

	t.Run("Echo", func(t *testing.T) {
		srv.next("$5\r\nhello\r\n")
		v, err := client.Echo(ctx, "hello")
		require.NoError(t, err)
		require.Equal(t, "hello", v)
		require.Equal(t, []string{"ECHO", "hello"}, srv.LastRequest(t))
	})

	t.Run("Get", func(t *testing.T) {
		srv.next("$3\r\nbar\r\n")
		v, ok, err := client.Get(ctx, "foo")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, []byte("bar"), v)
		require.Equal(t, []string{"GET", "foo"}, srv.LastRequest(t))

		srv.next("$-1\r\n")
		v, ok, err = client.Get(ctx, "missing")
		require.NoError(t, err)
		require.False(t, ok)
		require.Nil(t, v)
	})

	t.Run("Get empty value", func(t *testing.T) {
		srv.next("$0\r\n\r\n")
		v, ok, err := client.Get(ctx, "empty")
		require.NoError(t, err)
		require.True(t, ok, "an empty value is not an absent value")
		require.Empty(t, v)
	})

	t.Run("Set", func(t *testing.T) {
		srv.next("+OK\r\n")
		require.NoError(t, client.Set(ctx, "foo", []byte("bar"), 0))
		require.Equal(t, []string{"SET", "foo", "bar"}, srv.LastRequest(t))

		srv.next("+OK\r\n")
		require.NoError(t, client.Set(ctx, "foo", []byte("bar"), 1500*time.Millisecond))
		require.Equal(t, []string{"SET", "foo", "bar", "PX", "1500"}, srv.LastRequest(t))
	})

	t.Run("Incr", func(t *testing.T) {
		srv.next(":11\r\n")
		v, err := client.Incr(ctx, "counter")
		require.NoError(t, err)
		require.Equal(t, int64(11), v)

		srv.next(":-4\r\n")
		v, err = client.IncrBy(ctx, "counter", -15)
		require.NoError(t, err)
		require.Equal(t, int64(-4), v)
		require.Equal(t, []string{"INCRBY", "counter", "-15"}, srv.LastRequest(t))
	})

	t.Run("IncrByFloat", func(t *testing.T) {
		srv.next("$4\r\n10.6\r\n")
		v, err := client.IncrByFloat(ctx, "f", 0.1)
		require.NoError(t, err)
		require.Equal(t, "10.6", v.String())
		require.Equal(t, []string{"INCRBYFLOAT", "f", "0.1"}, srv.LastRequest(t))
	})

	t.Run("SIsMember", func(t *testing.T) {
		srv.next(":1\r\n")
		ok, err := client.SIsMember(ctx, "s", "a")
		require.NoError(t, err)
		require.True(t, ok)

		srv.next(":0\r\n")
		ok, err = client.SIsMember(ctx, "s", "z")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("ZAdd", func(t *testing.T) {
		srv.next(":1\r\n")
		n, err := client.ZAdd(ctx, "z", ZAddArgs{
			GT: true,
			CH: true,
			Members: []result.MemberScore[string]{
				{Member: "a", Score: result.NumberOf(1.5)},
				{Member: "b", Score: result.NumberOf(2)},
			},
		})
		require.NoError(t, err)
		require.Equal(t, int64(1), n)
		require.Equal(t, []string{"ZADD", "z", "GT", "CH", "1.5", "a", "2", "b"}, srv.LastRequest(t))
	})

	t.Run("ZIncrBy", func(t *testing.T) {
		srv.next("$3\r\n4.5\r\n")
		v, err := client.ZIncrBy(ctx, "z", 3, "a")
		require.NoError(t, err)
		f, err := v.Float64()
		require.NoError(t, err)
		require.Equal(t, 4.5, f)
		require.Equal(t, []string{"ZINCRBY", "z", "3", "a"}, srv.LastRequest(t))
	})

	t.Run("ZScore", func(t *testing.T) {
		srv.next("$3\r\ninf\r\n")
		v, ok, err := client.ZScore(ctx, "z", "a")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "inf", v.String())

		srv.next("$-1\r\n")
		_, ok, err = client.ZScore(ctx, "z", "missing")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("ZMScore", func(t *testing.T) {
		srv.next("*3\r\n$1\r\n1\r\n$-1\r\n,2.5\r\n")
		v, err := client.ZMScore(ctx, "z", "a", "missing", "c")
		require.NoError(t, err)
		require.Len(t, v, 3)
		require.Equal(t, "1", v[0].String())
		require.Nil(t, v[1])
		require.Equal(t, "2.5", v[2].String())
		require.Equal(t, []string{"ZMSCORE", "z", "a", "missing", "c"}, srv.LastRequest(t))
	})

	t.Run("ZRangeWithScores", func(t *testing.T) {
		srv.next("*4\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n")
		v, err := client.ZRangeWithScores(ctx, "z", 0, -1)
		require.NoError(t, err)
		require.Equal(t, []result.MemberScore[string]{
			{Member: "a", Score: result.MustParseNumber("1")},
			{Member: "b", Score: result.MustParseNumber("2")},
		}, v)
		require.Equal(t, []string{"ZRANGE", "z", "0", "-1", "WITHSCORES"}, srv.LastRequest(t))
	})

	t.Run("ZRangeWithScores RESP3", func(t *testing.T) {
		srv.next("*2\r\n*2\r\n$1\r\na\r\n,1\r\n*2\r\n$1\r\nb\r\n,2\r\n")
		v, err := client.ZRangeWithScores(ctx, "z", 0, -1)
		require.NoError(t, err)
		require.Len(t, v, 2)
		require.Equal(t, "b", v[1].Member)
	})

	t.Run("ZPopMin", func(t *testing.T) {
		srv.next("*2\r\n$1\r\na\r\n$1\r\n1\r\n")
		v, err := client.ZPopMin(ctx, "z", 1)
		require.NoError(t, err)
		require.Equal(t, []result.MemberScore[string]{{Member: "a", Score: result.MustParseNumber("1")}}, v)

		srv.next("*0\r\n")
		v, err = client.ZPopMin(ctx, "empty", 1)
		require.NoError(t, err)
		require.Empty(t, v)
	})

	t.Run("ZRankWithScore", func(t *testing.T) {
		srv.next("*2\r\n:3\r\n$3\r\n9.5\r\n")
		v, ok, err := client.ZRankWithScore(ctx, "z", "a")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, int64(3), v.Rank)
		require.Equal(t, "9.5", v.Score.String())
		require.Equal(t, []string{"ZRANK", "z", "a", "WITHSCORE"}, srv.LastRequest(t))

		srv.next("*-1\r\n")
		_, ok, err = client.ZRankWithScore(ctx, "z", "missing")
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("Scan", func(t *testing.T) {
		srv.next("*2\r\n$2\r\n17\r\n*2\r\n$2\r\nk1\r\n$2\r\nk2\r\n")
		page, err := client.Scan(ctx, "0", ScanArgs{Match: "k*", Count: 10})
		require.NoError(t, err)
		require.Equal(t, "17", page.Cursor)
		require.False(t, page.Done())
		require.Equal(t, []string{"k1", "k2"}, page.Items)
		require.Equal(t, []string{"SCAN", "0", "MATCH", "k*", "COUNT", "10"}, srv.LastRequest(t))
	})

	t.Run("ZScan", func(t *testing.T) {
		srv.next("*2\r\n$1\r\n0\r\n*4\r\n$1\r\na\r\n$1\r\n1\r\n$1\r\nb\r\n$1\r\n2\r\n")
		page, err := client.ZScan(ctx, "z", "0", ScanArgs{})
		require.NoError(t, err)
		require.True(t, page.Done())
		require.Len(t, page.Items, 2)
		require.Equal(t, "b", page.Items[1].Member)
		require.Equal(t, []string{"ZSCAN", "z", "0"}, srv.LastRequest(t))
	})

	t.Run("BZPopMin", func(t *testing.T) {
		srv.next("*3\r\n$1\r\nz\r\n$1\r\na\r\n$1\r\n1\r\n")
		kv, ok, err := client.BZPopMin(ctx, time.Second, "z", "y")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "z", kv.Key)
		require.Equal(t, "a", kv.Value.Member)
		require.Equal(t, []string{"BZPOPMIN", "z", "y", "1"}, srv.LastRequest(t))
	})

	t.Run("BZMPop", func(t *testing.T) {
		srv.next("*2\r\n$1\r\nz\r\n*2\r\n*2\r\n$1\r\na\r\n$1\r\n1\r\n*2\r\n$1\r\nb\r\n$1\r\n2\r\n")
		kv, ok, err := client.BZMPop(ctx, 500*time.Millisecond, PopMax, 2, "z")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, "z", kv.Key)
		require.Len(t, kv.Value, 2)
		require.Equal(t, []string{"BZMPOP", "0.5", "1", "z", "MAX", "COUNT", "2"}, srv.LastRequest(t))
	})

	t.Run("BLPop", func(t *testing.T) {
		srv.next("*2\r\n$1\r\nq\r\n$3\r\njob\r\n")
		kv, ok, err := client.BLPop(ctx, 2*time.Second, "q")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, result.KeyValue[[]byte]{Key: "q", Value: []byte("job")}, kv)
		require.Equal(t, []string{"BLPOP", "q", "2"}, srv.LastRequest(t))
	})

	t.Run("LMPop", func(t *testing.T) {
		srv.next("*2\r\n$1\r\nl\r\n*2\r\n$1\r\na\r\n$1\r\nb\r\n")
		kv, ok, err := client.LMPop(ctx, ListLeft, 2, "l", "m")
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, result.KeyValue[[][]byte]{Key: "l", Value: [][]byte{[]byte("a"), []byte("b")}}, kv)
		require.Equal(t, []string{"LMPOP", "2", "l", "m", "LEFT", "COUNT", "2"}, srv.LastRequest(t))

		srv.next("*-1\r\n")
		_, ok, err = client.LMPop(ctx, ListRight, 1, "l")
		require.NoError(t, err)
		require.False(t, ok)
	})
}

func TestCommands_BuildErrors(t *testing.T) {
	srv, client := newReplyServer(t)
	ctx := context.Background()

	tests := []struct {
		name string
		call func() error
	}{
		{"ZAdd NX XX", func() error {
			_, err := client.ZAdd(ctx, "z", ZAddArgs{NX: true, XX: true, Members: []result.MemberScore[string]{{Member: "a"}}})
			return err
		}},
		{"ZAdd GT LT", func() error {
			_, err := client.ZAdd(ctx, "z", ZAddArgs{GT: true, LT: true, Members: []result.MemberScore[string]{{Member: "a"}}})
			return err
		}},
		{"ZAdd NX GT", func() error {
			_, err := client.ZAdd(ctx, "z", ZAddArgs{NX: true, GT: true, Members: []result.MemberScore[string]{{Member: "a"}}})
			return err
		}},
		{"ZAdd no members", func() error {
			_, err := client.ZAdd(ctx, "z", ZAddArgs{})
			return err
		}},
		{"ZPopMin zero count", func() error {
			_, err := client.ZPopMin(ctx, "z", 0)
			return err
		}},
		{"ZMScore no members", func() error {
			_, err := client.ZMScore(ctx, "z")
			return err
		}},
		{"Set negative ttl", func() error {
			return client.Set(ctx, "k", nil, -time.Second)
		}},
		{"Scan negative count", func() error {
			_, err := client.Scan(ctx, "0", ScanArgs{Count: -1})
			return err
		}},
		{"BZPopMin negative timeout", func() error {
			_, _, err := client.BZPopMin(ctx, -time.Second, "z")
			return err
		}},
		{"BZPopMin no keys", func() error {
			_, _, err := client.BZPopMin(ctx, time.Second)
			return err
		}},
		{"BZMPop zero count", func() error {
			_, _, err := client.BZMPop(ctx, time.Second, PopMin, 0, "z")
			return err
		}},
		{"BZMPop invalid order", func() error {
			_, _, err := client.BZMPop(ctx, time.Second, "SIDEWAYS", 1, "z")
			return err
		}},
		{"BLPop no keys", func() error {
			_, _, err := client.BLPop(ctx, time.Second)
			return err
		}},
		{"LMPop no keys", func() error {
			_, _, err := client.LMPop(ctx, ListLeft, 1)
			return err
		}},
		{"IncrByFloat NaN", func() error {
			_, err := client.IncrByFloat(ctx, "f", math.NaN())
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.call(), resp.ErrBuild)
		})
	}

	require.Empty(t, srv.Requests(), "nothing is sent for a build error")
	require.Equal(t, uint64(len(tests)), client.Stats().BuildErrors)
}

func TestScanIterator(t *testing.T) {
	pages := map[string]result.ScanPage[string]{
		"0":  {Cursor: "12", Items: []string{"a", "b"}},
		"12": {Cursor: "7", Items: nil},
		"7":  {Cursor: "0", Items: []string{"c"}},
	}
	var fetched []string
	it := NewScanIterator(func(_ context.Context, cursor string) (result.ScanPage[string], error) {
		fetched = append(fetched, cursor)
		return pages[cursor], nil
	})

	var items []string
	for it.Next(context.Background()) {
		items = append(items, it.Val())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"a", "b", "c"}, items)
	require.Equal(t, []string{"0", "12", "7"}, fetched)
	require.Equal(t, "0", it.Cursor())

	require.False(t, it.Next(context.Background()), "a completed iteration stays complete")
	require.Len(t, fetched, 3)
}

func TestScanIterator_Error(t *testing.T) {
	it := NewScanIterator(func(context.Context, string) (result.ScanPage[string], error) {
		return result.ScanPage[string]{}, &resp.Error{Message: "ERR boom"}
	})

	require.False(t, it.Next(context.Background()))
	require.True(t, IsStoreError(it.Err()))
}

func TestClient_ScanIter(t *testing.T) {
	srv := newFakeServer(t, func(args []string) string {
		if args[1] == "0" {
			return "*2\r\n$1\r\n5\r\n*1\r\n$2\r\nk1\r\n"
		}
		return "*2\r\n$1\r\n0\r\n*1\r\n$2\r\nk2\r\n"
	})
	client := newTestClient(t, srv.addr, Config{})

	it := client.ScanIter(ScanArgs{Match: "k*"})
	var keys []string
	for it.Next(context.Background()) {
		keys = append(keys, it.Val())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []string{"k1", "k2"}, keys)
	require.Len(t, srv.Requests(), 2)
}

func TestClient_ZScanIter(t *testing.T) {
	srv := newFakeServer(t, func(args []string) string {
		if args[2] == "0" {
			return "*2\r\n$2\r\n17\r\n*2\r\n$1\r\na\r\n$1\r\n1\r\n"
		}
		return "*2\r\n$1\r\n0\r\n*2\r\n$1\r\nb\r\n$3\r\n2.5\r\n"
	})
	client := newTestClient(t, srv.addr, Config{})

	it := client.ZScanIter("board", ScanArgs{Count: 10})
	var members []result.MemberScore[string]
	for it.Next(context.Background()) {
		members = append(members, it.Val())
	}
	require.NoError(t, it.Err())
	require.Equal(t, []result.MemberScore[string]{
		{Member: "a", Score: result.MustParseNumber("1")},
		{Member: "b", Score: result.MustParseNumber("2.5")},
	}, members)
	require.Equal(t, []string{"ZSCAN", "board", "17", "COUNT", "10"}, srv.LastRequest(t))
}
