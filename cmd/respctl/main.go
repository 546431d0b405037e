// Command respctl sends commands to RESP store servers.
//
//	respctl --servers localhost:6379 zadd board 10 alice
//	respctl --metrics-address :9100   # interactive, with a /metrics endpoint
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/pior/redis"
	"github.com/pior/redis/internal/promexporter"
	"github.com/pior/redis/resp"
)

// Args are the command line flags, overriding the configuration file.
type Args struct {
	ConfigPath     string   `arg:"--config" env:"RESPCTL_CONFIG" help:"directory of respctl.yaml" default:"."`
	Servers        []string `arg:"--servers" help:"store servers to connect to"`
	LogLevel       string   `arg:"--log-level" help:"debug, info, warn or error"`
	MetricsAddress string   `arg:"--metrics-address" help:"serve Prometheus metrics on this address"`
	Command        []string `arg:"positional" help:"command to run, interactive mode when empty"`
}

func (Args) Description() string {
	return "respctl sends commands to RESP store servers"
}

func main() {
	var args Args
	arg.MustParse(&args)

	cfg, err := LoadConfig(args.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	if len(args.Servers) > 0 {
		cfg.Servers = args.Servers
	}
	if args.LogLevel != "" {
		cfg.Log.Level = args.LogLevel
	}
	if args.MetricsAddress != "" {
		cfg.Metrics.Address = args.MetricsAddress
	}

	log := newLogger(cfg.Log.Level, cfg.Log.Format)
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, args.Command, log); err != nil {
		log.Error("respctl failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config, command []string, log *zap.Logger) error {
	var metrics *promexporter.ClientMetrics

	clientConfig := redis.Config{
		MaxSize:             cfg.Pool.MaxSize,
		MaxConnLifetime:     cfg.Pool.MaxConnLifetime,
		MaxConnIdleTime:     cfg.Pool.MaxConnIdleTime,
		HealthCheckInterval: cfg.Pool.HealthCheckInterval,
		Timeout:             cfg.Call.Timeout,
		BlockingMargin:      cfg.Call.BlockingMargin,
		Dialer:              &net.Dialer{Timeout: cfg.Pool.DialTimeout},
		Logger:              log,
	}

	switch cfg.Pool.Kind {
	case "channel", "":
	case "puddle":
		clientConfig.NewPool = redis.NewPuddlePool
	default:
		return fmt.Errorf("unknown pool kind %q", cfg.Pool.Kind)
	}

	if cfg.Breaker.Enabled {
		clientConfig.NewCircuitBreaker = func(addr string) *gobreaker.CircuitBreaker[resp.Reply] {
			settings := redis.CircuitBreakerSettings(addr, cfg.Breaker.MaxRequests, cfg.Breaker.Interval, cfg.Breaker.Timeout)
			settings.OnStateChange = func(name string, from, to gobreaker.State) {
				log.Warn("circuit breaker state changed",
					zap.String("server", name),
					zap.Stringer("from", from),
					zap.Stringer("to", to),
				)
				if metrics != nil {
					metrics.RecordCircuitBreakerTransition(name, from, to)
				}
			}
			return gobreaker.NewCircuitBreaker[resp.Reply](settings)
		}
	}

	client, err := redis.NewClient(redis.NewStaticServers(cfg.Servers...), clientConfig)
	if err != nil {
		return err
	}
	defer client.Close()

	if cfg.Metrics.Address != "" {
		registry := prometheus.NewRegistry()
		metrics = promexporter.NewClientMetrics(registry, client)

		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("serving metrics", zap.String("addr", cfg.Metrics.Address))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
		defer srv.Close()
	}

	if len(command) > 0 {
		out, err := execute(ctx, client, command)
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	}

	return repl(ctx, client, log)
}

func repl(ctx context.Context, client *redis.Client, log *zap.Logger) error {
	fmt.Println("respctl, type 'help' for available commands")

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			log.Error("error reading input", zap.Error(err))
		}
	}()

	for {
		fmt.Print("> ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			line = l
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch strings.ToLower(parts[0]) {
		case "quit", "exit":
			return nil
		case "help":
			fmt.Print(usage)
			continue
		case "stats":
			printStats(client)
			continue
		}

		start := time.Now()
		out, err := execute(ctx, client, parts)
		duration := time.Since(start)
		if err != nil {
			fmt.Printf("(error) %v (took %v)\n", err, duration)
			continue
		}
		fmt.Printf("%s (took %v)\n", out, duration)
	}
}

func printStats(client *redis.Client) {
	s := client.Stats()
	fmt.Printf("calls=%d completed=%d cancelled=%d faulted=%d store-errors=%d nil=%d build-errors=%d blocking=%d\n",
		s.Calls, s.Completed, s.Cancelled, s.Faulted, s.StoreErrors, s.NilReplies, s.BuildErrors, s.Blocking)

	for _, sp := range client.AllPoolStats() {
		p := sp.PoolStats
		fmt.Printf("%s breaker=%s conns=%d idle=%d active=%d created=%d destroyed=%d acquire-errors=%d\n",
			sp.Addr, sp.CircuitBreakerState, p.TotalConns, p.IdleConns, p.ActiveConns,
			p.CreatedConns, p.DestroyedConns, p.AcquireErrors)
	}
}
