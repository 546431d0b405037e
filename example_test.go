package redis_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis"
	"github.com/pior/redis/resp"
	"github.com/pior/redis/result"
)

// Example demonstrating a leaderboard on a sorted set
func ExampleClient_ZAdd() {
	client, err := redis.NewClient(redis.NewStaticServers("localhost:6379"), redis.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	_, err = client.ZAdd(ctx, "board", redis.ZAddArgs{Members: []result.MemberScore[string]{
		{Member: "alice", Score: result.NumberOf(10)},
		{Member: "bob", Score: result.NumberOf(2.5)},
	}})
	if err != nil {
		log.Printf("ZAdd failed: %v", err)
		return
	}

	top, err := client.ZRangeWithScores(ctx, "board", 0, -1)
	if err != nil {
		log.Printf("ZRangeWithScores failed: %v", err)
		return
	}
	for _, m := range top {
		fmt.Printf("%s: %s\n", m.Member, m.Score)
	}
}

// Example demonstrating a worker waiting on a queue
func ExampleClient_BLPop() {
	client, err := redis.NewClient(redis.NewStaticServers("localhost:6379"), redis.Config{
		// the local deadline of a blocking call is its timeout plus this margin
		BlockingMargin: 500 * time.Millisecond,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	job, ok, err := client.BLPop(ctx, 5*time.Second, "jobs:high", "jobs:low")
	switch {
	case errors.Is(err, redis.ErrCancelled):
		// the store may still pop the element, it is lost to this client
		var cancelled *redis.CancelledError
		errors.As(err, &cancelled)
		log.Printf("abandoned while %s: %v", cancelled.State, cancelled.Err)
	case err != nil:
		log.Printf("BLPop failed: %v", err)
	case !ok:
		fmt.Println("no job within 5s")
	default:
		fmt.Printf("job from %s: %s\n", job.Key, job.Value)
	}
}

// Example demonstrating a full keyspace scan
func ExampleClient_ScanIter() {
	client, err := redis.NewClient(redis.NewStaticServers("localhost:6379"), redis.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	it := client.ScanIter(redis.ScanArgs{Match: "user:*", Count: 100})
	for it.Next(ctx) {
		fmt.Println(it.Val())
	}
	if err := it.Err(); err != nil {
		log.Printf("scan failed at cursor %s: %v", it.Cursor(), err)
	}
}

// Example demonstrating a command without a typed method
func ExampleDo() {
	client, err := redis.NewClient(redis.NewStaticServers("localhost:6379"), redis.Config{})
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	ctx := context.Background()

	f, err := resp.Build("HINCRBY", "user:123", "visits", 1)
	if err != nil {
		log.Fatal(err)
	}

	visits, _, err := redis.Do[int64](ctx, client, "user:123", f, result.Scalar(result.KindInt64))
	if redis.IsStoreError(err) {
		log.Printf("store rejected HINCRBY: %v", err)
		return
	}
	if err != nil {
		log.Printf("HINCRBY failed: %v", err)
		return
	}
	fmt.Printf("visits: %d\n", visits)
}

// Example demonstrating how to collect stats for CLI tools
func ExampleClient_Stats() {
	client, err := redis.NewClient(redis.NewStaticServers("localhost:6379"), redis.Config{
		MaxSize: 10,
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()

	_ = client.Set(ctx, "user:123", []byte("John"), time.Hour)
	_, _, _ = client.Get(ctx, "user:456")

	stats := client.Stats()
	fmt.Printf("Calls: %d\n", stats.Calls)
	fmt.Printf("  Completed: %d (nil: %d, store errors: %d)\n", stats.Completed, stats.NilReplies, stats.StoreErrors)
	fmt.Printf("  Cancelled: %d\n", stats.Cancelled)
	fmt.Printf("  Faulted: %d\n", stats.Faulted)
	fmt.Printf("Rejected: %d\n", stats.BuildErrors)

	for _, serverStats := range client.AllPoolStats() {
		poolStats := serverStats.PoolStats
		fmt.Printf("Server: %s\n", serverStats.Addr)
		fmt.Printf("  Total Connections: %d\n", poolStats.TotalConns)
		fmt.Printf("  Idle Connections: %d\n", poolStats.IdleConns)
		if poolStats.AcquireWaitCount > 0 {
			avgWait := time.Duration(poolStats.AcquireWaitTimeNs / poolStats.AcquireWaitCount)
			fmt.Printf("  Average Wait Time: %v\n", avgWait)
		}
	}
}

// Example demonstrating circuit breakers with state change notifications
func ExampleCircuitBreakerSettings() {
	servers := redis.NewStaticServers("localhost:6379", "localhost:6380")

	client, err := redis.NewClient(servers, redis.Config{
		MaxSize: 10,
		NewCircuitBreaker: func(serverAddr string) *gobreaker.CircuitBreaker[resp.Reply] {
			settings := redis.CircuitBreakerSettings(serverAddr, 3, time.Minute, 10*time.Second)
			settings.OnStateChange = func(name string, from gobreaker.State, to gobreaker.State) {
				fmt.Printf("Circuit breaker %s: %s -> %s\n", name, from, to)
			}
			return gobreaker.NewCircuitBreaker[resp.Reply](settings)
		},
	})
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()
	_ = client.Set(ctx, "key", []byte("value"), 0)

	for _, serverStats := range client.AllPoolStats() {
		fmt.Printf("Server: %s, Circuit: %s\n", serverStats.Addr, serverStats.CircuitBreakerState)
	}
}
