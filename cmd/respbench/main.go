// Command respbench measures call throughput and latency against live servers.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/alexflint/go-arg"
	concpool "github.com/sourcegraph/conc/pool"

	"github.com/pior/redis"
	"github.com/pior/redis/result"
)

type OperationType string

const (
	CacheHit        OperationType = "cache-hit"
	DynamicValue    OperationType = "dynamic-value"
	CacheMiss       OperationType = "cache-miss"
	Increment       OperationType = "increment"
	SortedSet       OperationType = "sorted-set"
	BlockingTimeout OperationType = "blocking-timeout"
	All             OperationType = "all"
)

var operations = []OperationType{CacheHit, DynamicValue, CacheMiss, Increment, SortedSet, BlockingTimeout}

type Args struct {
	Operation   string        `arg:"--operation" default:"all" help:"cache-hit, dynamic-value, cache-miss, increment, sorted-set, blocking-timeout or all"`
	Duration    time.Duration `arg:"--duration" default:"5s" help:"duration of each benchmark"`
	Concurrency int           `arg:"--concurrency" default:"1" help:"number of concurrent workers"`
	Servers     []string      `arg:"--servers" help:"store servers (default: localhost:6379)"`
	Pool        string        `arg:"--pool" default:"channel" help:"channel or puddle"`
}

type BenchmarkResult struct {
	Operation    OperationType
	Duration     time.Duration
	TotalOps     int64
	Successes    int64
	Failures     int64
	AvgLatency   time.Duration
	OpsPerSecond float64
	Correctness  bool
	ErrorMessage string
}

// opFunc runs one operation for a worker. It returns false when the reply
// is not the expected one.
type opFunc func(ctx context.Context, worker, n int) (bool, error)

func main() {
	var args Args
	arg.MustParse(&args)
	if len(args.Servers) == 0 {
		args.Servers = []string{"localhost:6379"}
	}

	fmt.Printf("Store Benchmark Tool\n")
	fmt.Printf("====================\n")
	fmt.Printf("Operation: %s\n", args.Operation)
	fmt.Printf("Duration: %v\n", args.Duration)
	fmt.Printf("Concurrency: %d\n", args.Concurrency)
	fmt.Printf("Servers: %v\n", args.Servers)
	fmt.Println()

	config := redis.Config{
		MaxSize: int32(max(args.Concurrency, 1)),
		Timeout: 5 * time.Second,
	}
	if args.Pool == "puddle" {
		config.NewPool = redis.NewPuddlePool
	}

	client, err := redis.NewClient(redis.NewStaticServers(args.Servers...), config)
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()

	fmt.Print("Testing connection...")
	if err := client.Ping(ctx); err != nil {
		fmt.Printf(" failed: %v\n", err)
		fmt.Printf("Make sure a server is running on %v\n", args.Servers)
		return
	}
	fmt.Println(" success!")

	selected := operations
	if OperationType(args.Operation) != All {
		selected = []OperationType{OperationType(args.Operation)}
	}

	for _, op := range selected {
		fmt.Printf("\n--- Running %s benchmark ---\n", op)
		printResult(runOperation(ctx, client, op, args.Duration, args.Concurrency))
	}

	stats := client.Stats()
	fmt.Printf("Client: calls=%d completed=%d cancelled=%d faulted=%d\n",
		stats.Calls, stats.Completed, stats.Cancelled, stats.Faulted)
}

func runOperation(ctx context.Context, client *redis.Client, operation OperationType, duration time.Duration, concurrency int) *BenchmarkResult {
	fn, err := newOperation(ctx, client, operation)
	if err != nil {
		return &BenchmarkResult{Operation: operation, ErrorMessage: err.Error()}
	}

	result := &BenchmarkResult{Operation: operation, Correctness: true}
	var totalOps, successes, failures, totalLatency, mismatches atomic.Int64

	startTime := time.Now()
	p := concpool.New()

	for worker := range concurrency {
		p.Go(func() {
			for n := 0; time.Since(startTime) < duration; n++ {
				opStart := time.Now()
				ok, err := fn(ctx, worker, n)
				totalLatency.Add(int64(time.Since(opStart)))
				totalOps.Add(1)

				switch {
				case err != nil:
					failures.Add(1)
				case !ok:
					mismatches.Add(1)
					successes.Add(1)
				default:
					successes.Add(1)
				}
			}
		})
	}

	p.Wait()

	result.Duration = time.Since(startTime)
	result.TotalOps = totalOps.Load()
	result.Successes = successes.Load()
	result.Failures = failures.Load()

	if n := mismatches.Load(); n > 0 {
		result.Correctness = false
		result.ErrorMessage = fmt.Sprintf("%d unexpected replies", n)
	}
	if result.TotalOps > 0 {
		result.AvgLatency = time.Duration(totalLatency.Load() / result.TotalOps)
		result.OpsPerSecond = float64(result.TotalOps) / result.Duration.Seconds()
	}

	return result
}

func newOperation(ctx context.Context, client *redis.Client, operation OperationType) (opFunc, error) {
	switch operation {
	case CacheHit:
		key, value := "cache-hit-key", []byte("cache-hit-value")
		if err := client.Set(ctx, key, value, time.Hour); err != nil {
			return nil, fmt.Errorf("failed to set initial value: %w", err)
		}
		return func(ctx context.Context, worker, n int) (bool, error) {
			v, ok, err := client.Get(ctx, key)
			return ok && bytes.Equal(v, value), err
		}, nil

	case DynamicValue:
		return func(ctx context.Context, worker, n int) (bool, error) {
			key := fmt.Sprintf("dynamic-key-%d-%d", worker, n)
			value := []byte(fmt.Sprintf("dynamic-value-%d-%d", worker, n))
			if err := client.Set(ctx, key, value, time.Minute); err != nil {
				return false, err
			}
			v, ok, err := client.Get(ctx, key)
			return ok && bytes.Equal(v, value), err
		}, nil

	case CacheMiss:
		return func(ctx context.Context, worker, n int) (bool, error) {
			_, ok, err := client.Get(ctx, "cache-miss-"+strconv.Itoa(worker)+"-"+strconv.Itoa(n))
			return !ok, err
		}, nil

	case Increment:
		return func(ctx context.Context, worker, n int) (bool, error) {
			v, err := client.Incr(ctx, "increment-"+strconv.Itoa(worker))
			return v > 0, err
		}, nil

	case SortedSet:
		return func(ctx context.Context, worker, n int) (bool, error) {
			key := "sorted-set-" + strconv.Itoa(worker)
			_, err := client.ZAdd(ctx, key, redis.ZAddArgs{Members: []result.MemberScore[string]{
				{Member: strconv.Itoa(n), Score: result.NumberOf(n)},
			}})
			if err != nil {
				return false, err
			}
			popped, err := client.ZPopMin(ctx, key, 1)
			return len(popped) == 1 && popped[0].Member == strconv.Itoa(n), err
		}, nil

	case BlockingTimeout:
		// every call waits for the store's null reply
		return func(ctx context.Context, worker, n int) (bool, error) {
			_, ok, err := client.BZPopMin(ctx, 100*time.Millisecond, "blocking-empty-"+strconv.Itoa(worker))
			if errors.Is(err, redis.ErrCancelled) {
				return false, err
			}
			return !ok, err
		}, nil
	}

	return nil, fmt.Errorf("unknown operation: %s", operation)
}

func printResult(result *BenchmarkResult) {
	fmt.Printf("Operation: %s\n", result.Operation)
	fmt.Printf("Duration: %v\n", result.Duration)
	fmt.Printf("Total Operations: %d\n", result.TotalOps)
	fmt.Printf("Successes: %d\n", result.Successes)
	fmt.Printf("Failures: %d\n", result.Failures)
	if result.TotalOps > 0 {
		fmt.Printf("Success Rate: %.2f%%\n", float64(result.Successes)/float64(result.TotalOps)*100)
		fmt.Printf("Ops/sec: %.2f\n", result.OpsPerSecond)
		fmt.Printf("Avg Latency: %v\n", result.AvgLatency)
	}
	fmt.Printf("Correctness: %t\n", result.Correctness)
	if result.ErrorMessage != "" {
		fmt.Printf("Error: %s\n", result.ErrorMessage)
	}
}
