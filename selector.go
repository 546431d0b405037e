package redis

import (
	"github.com/dgryski/go-rendezvous"
	"github.com/zeebo/xxh3"

	"github.com/pior/redis/internal"
)

// SelectServerFunc picks which server to use for a given key.
// It receives the key and the current list of server addresses.
// Returns empty string and error if no server can be selected.
type SelectServerFunc func(key string, servers []string) (string, error)

// DefaultSelectServer uses rendezvous hashing over xxh3 for server selection.
// Only the keys of a removed server move when the list changes.
// For a single server, it returns that server directly.
// Returns ErrNoServers if no servers are available.
func DefaultSelectServer(key string, servers []string) (string, error) {
	switch len(servers) {
	case 0:
		return "", ErrNoServers
	case 1:
		return servers[0], nil
	}
	return rendezvous.New(servers, xxh3.HashString).Lookup(key), nil
}

// JumpSelectServer uses Jump Hash over xxh3 for server selection.
// It is faster than rendezvous hashing but only suits lists that grow or
// shrink at the end: removing a server in the middle moves most keys.
func JumpSelectServer(key string, servers []string) (string, error) {
	if len(servers) == 0 {
		return "", ErrNoServers
	}
	return servers[internal.JumpHash(xxh3.HashString(key), len(servers))], nil
}
