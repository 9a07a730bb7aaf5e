package pubsub

import (
	"sync"

	"github.com/fakedis/fakedis/datastruct/dict"
	"github.com/fakedis/fakedis/datastruct/lock"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/wildcard"
)

// Hub stores all subscribe relations of a server
type Hub struct {
	// channel -> *subscribers
	subs *dict.ConcurrentDict
	// lock channel
	subsLocker *lock.Locks

	patternMu sync.RWMutex
	// pattern -> *patternSubscribers
	patterns map[string]*patternSubscribers
}

// subscribers keeps connections in subscription order
type subscribers struct {
	conns []redis.Connection
}

func (s *subscribers) add(c redis.Connection) bool {
	for _, conn := range s.conns {
		if conn.ID() == c.ID() {
			return false
		}
	}
	s.conns = append(s.conns, c)
	return true
}

func (s *subscribers) remove(c redis.Connection) bool {
	for i, conn := range s.conns {
		if conn.ID() == c.ID() {
			s.conns = append(s.conns[:i], s.conns[i+1:]...)
			return true
		}
	}
	return false
}

func (s *subscribers) snapshot() []redis.Connection {
	return append([]redis.Connection(nil), s.conns...)
}

type patternSubscribers struct {
	matcher *wildcard.Pattern
	subscribers
}

// MakeHub creates an empty Hub
func MakeHub() *Hub {
	return &Hub{
		subs:       dict.MakeConcurrent(16),
		subsLocker: lock.Make(16),
		patterns:   make(map[string]*patternSubscribers),
	}
}
