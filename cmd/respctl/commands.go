package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pior/redis"
	"github.com/pior/redis/result"
)

const usage = `Commands:
  get <key>
  set <key> <value> [ttl]
  incr <key>
  incrbyfloat <key> <delta>
  sismember <key> <member>
  zadd <key> <score> <member> [<score> <member> ...]
  zscore <key> <member>
  zrange <key> <start> <stop>
  zpopmin <key> [count]
  zrank <key> <member>
  scan [match]
  zscan <key> [match]
  bzpopmin <timeout> <key> [key ...]
  blpop <timeout> <key> [key ...]
  lmpop <left|right> <count> <key> [key ...]
  echo <message>
  ping
  stats
  help
  quit
`

var errUsage = errors.New("wrong number of arguments, see help")

// execute runs one command and returns its printable result.
func execute(ctx context.Context, client *redis.Client, parts []string) (string, error) {
	name, args := strings.ToLower(parts[0]), parts[1:]

	need := func(n int) error {
		if len(args) < n {
			return errUsage
		}
		return nil
	}

	switch name {
	case "get":
		if err := need(1); err != nil {
			return "", err
		}
		v, ok, err := client.Get(ctx, args[0])
		if err != nil || !ok {
			return nilOr(err)
		}
		return strconv.Quote(string(v)), nil

	case "set":
		if err := need(2); err != nil {
			return "", err
		}
		var ttl time.Duration
		if len(args) > 2 {
			d, err := time.ParseDuration(args[2])
			if err != nil {
				return "", fmt.Errorf("invalid ttl: %w", err)
			}
			ttl = d
		}
		if err := client.Set(ctx, args[0], []byte(args[1]), ttl); err != nil {
			return "", err
		}
		return "OK", nil

	case "incr":
		if err := need(1); err != nil {
			return "", err
		}
		v, err := client.Incr(ctx, args[0])
		return strconv.FormatInt(v, 10), err

	case "incrbyfloat":
		if err := need(2); err != nil {
			return "", err
		}
		delta, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return "", fmt.Errorf("invalid delta: %w", err)
		}
		v, err := client.IncrByFloat(ctx, args[0], delta)
		return v.String(), err

	case "sismember":
		if err := need(2); err != nil {
			return "", err
		}
		v, err := client.SIsMember(ctx, args[0], args[1])
		return strconv.FormatBool(v), err

	case "zadd":
		if len(args) < 3 || len(args)%2 == 0 {
			return "", errUsage
		}
		members := make([]result.MemberScore[string], 0, len(args)/2)
		for i := 1; i < len(args); i += 2 {
			score, err := result.ParseNumber(args[i])
			if err != nil {
				return "", err
			}
			members = append(members, result.MemberScore[string]{Member: args[i+1], Score: score})
		}
		v, err := client.ZAdd(ctx, args[0], redis.ZAddArgs{Members: members})
		return strconv.FormatInt(v, 10), err

	case "zscore":
		if err := need(2); err != nil {
			return "", err
		}
		v, ok, err := client.ZScore(ctx, args[0], args[1])
		if err != nil || !ok {
			return nilOr(err)
		}
		return v.String(), nil

	case "zrange":
		if err := need(3); err != nil {
			return "", err
		}
		start, err1 := strconv.ParseInt(args[1], 10, 64)
		stop, err2 := strconv.ParseInt(args[2], 10, 64)
		if err := errors.Join(err1, err2); err != nil {
			return "", err
		}
		v, err := client.ZRangeWithScores(ctx, args[0], start, stop)
		return formatMembers(v), err

	case "zpopmin":
		if err := need(1); err != nil {
			return "", err
		}
		count := int64(1)
		if len(args) > 1 {
			c, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return "", fmt.Errorf("invalid count: %w", err)
			}
			count = c
		}
		v, err := client.ZPopMin(ctx, args[0], count)
		return formatMembers(v), err

	case "zrank":
		if err := need(2); err != nil {
			return "", err
		}
		v, ok, err := client.ZRankWithScore(ctx, args[0], args[1])
		if err != nil || !ok {
			return nilOr(err)
		}
		return fmt.Sprintf("rank=%d score=%s", v.Rank, v.Score), nil

	case "scan":
		var scanArgs redis.ScanArgs
		if len(args) > 0 {
			scanArgs.Match = args[0]
		}
		var b strings.Builder
		it := client.ScanIter(scanArgs)
		for it.Next(ctx) {
			fmt.Fprintln(&b, it.Val())
		}
		return strings.TrimSuffix(b.String(), "\n"), it.Err()

	case "zscan":
		if err := need(1); err != nil {
			return "", err
		}
		var scanArgs redis.ScanArgs
		if len(args) > 1 {
			scanArgs.Match = args[1]
		}
		var members []result.MemberScore[string]
		it := client.ZScanIter(args[0], scanArgs)
		for it.Next(ctx) {
			members = append(members, it.Val())
		}
		return formatMembers(members), it.Err()

	case "bzpopmin":
		if err := need(2); err != nil {
			return "", err
		}
		timeout, err := time.ParseDuration(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid timeout: %w", err)
		}
		v, ok, err := client.BZPopMin(ctx, timeout, args[1:]...)
		if err != nil || !ok {
			return nilOr(err)
		}
		return fmt.Sprintf("%s: %s", v.Key, formatMembers([]result.MemberScore[string]{v.Value})), nil

	case "blpop":
		if err := need(2); err != nil {
			return "", err
		}
		timeout, err := time.ParseDuration(args[0])
		if err != nil {
			return "", fmt.Errorf("invalid timeout: %w", err)
		}
		v, ok, err := client.BLPop(ctx, timeout, args[1:]...)
		if err != nil || !ok {
			return nilOr(err)
		}
		return fmt.Sprintf("%s: %q", v.Key, v.Value), nil

	case "lmpop":
		if err := need(3); err != nil {
			return "", err
		}
		count, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return "", fmt.Errorf("invalid count: %w", err)
		}
		v, ok, err := client.LMPop(ctx, redis.ListEnd(strings.ToUpper(args[0])), count, args[2:]...)
		if err != nil || !ok {
			return nilOr(err)
		}
		return fmt.Sprintf("%s: %q", v.Key, v.Value), nil

	case "echo":
		if err := need(1); err != nil {
			return "", err
		}
		return client.Echo(ctx, strings.Join(args, " "))

	case "ping":
		if err := client.Ping(ctx); err != nil {
			return "", err
		}
		return "PONG", nil
	}

	return "", fmt.Errorf("unknown command %q, see help", name)
}

func nilOr(err error) (string, error) {
	if err != nil {
		return "", err
	}
	return "(nil)", nil
}

func formatMembers(members []result.MemberScore[string]) string {
	if len(members) == 0 {
		return "(empty)"
	}
	var b strings.Builder
	for i, m := range members {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d) %s %s", i+1, m.Member, m.Score)
	}
	return b.String()
}
