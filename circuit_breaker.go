package redis

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/pior/redis/resp"
)

// CircuitBreakerSettings returns the settings used by NewCircuitBreakerConfig.
// Use it as a starting point to add an OnStateChange hook.
//
// The breaker trips when at least 60% of 3 or more requests fail. Only
// transport and protocol failures count: a store error is a reply, and a
// caller cancellation says nothing about the server.
func CircuitBreakerSettings(serverAddr string, maxRequests uint32, interval, timeout time.Duration) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        serverAddr,
		MaxRequests: maxRequests,
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: isBreakerSuccess,
	}
}

// NewCircuitBreakerConfig returns a function that creates circuit breakers for servers.
// This is a helper for Config.NewCircuitBreaker.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[resp.Reply] {
	return func(serverAddr string) *gobreaker.CircuitBreaker[resp.Reply] {
		return gobreaker.NewCircuitBreaker[resp.Reply](CircuitBreakerSettings(serverAddr, maxRequests, interval, timeout))
	}
}

func isBreakerSuccess(err error) bool {
	return err == nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, resp.ErrBuild)
}
