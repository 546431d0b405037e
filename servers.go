package redis

import (
	"errors"
	"slices"
)

var ErrNoServers = errors.New("redis: no servers available")

// Servers provides the current list of server addresses.
// Implementations may return a different list over time, pools of servers
// that are no longer listed are kept until the client is closed.
type Servers interface {
	List() []string
}

type staticServers struct {
	addrs []string
}

// NewStaticServers returns a fixed list of server addresses.
func NewStaticServers(addrs ...string) Servers {
	return &staticServers{addrs: slices.Clone(addrs)}
}

func (s *staticServers) List() []string {
	return s.addrs
}
