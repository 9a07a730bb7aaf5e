package database

import (
	"container/list"
	"context"
	"time"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

type waiterState int

const (
	stateWaiting waiterState = iota
	stateSatisfied
	stateTimedOut
	stateCancelled
)

// serveFunc tries to satisfy a waiter using the value at key.
// It returns nil when the key cannot serve the waiter yet. Changed keys are recorded with DB.markModified.
type serveFunc func(db *DB, key string) redis.Reply

// waiter is a blocked command
type waiter struct {
	conn    redis.Connection
	db      *DB
	keys    []string
	serve   serveFunc
	timeout time.Duration
	// timeoutReply is returned when the timeout elapses
	timeoutReply redis.Reply
	result       chan redis.Reply
	state        waiterState
	// elements in the per key queues, used to deregister
	elements map[string]*list.Element
}

type readyKey struct {
	db  *DB
	key string
}

type queueKey struct {
	db  int
	key string
}

// coordinator keeps blocked commands in per key FIFO queues, it is guarded by the server lock
type coordinator struct {
	queues  map[queueKey]*list.List
	waiters map[*waiter]struct{}
	ready   []readyKey
	serving bool
	// ready keys are only collected while a transaction or script runs
	deferred int
}

func makeCoordinator() *coordinator {
	return &coordinator{
		queues:  make(map[queueKey]*list.List),
		waiters: make(map[*waiter]struct{}),
	}
}

// serveOrBlock tries keys in order and replies at once when one of them can serve the command,
// otherwise the command blocks. Nested commands reply timeoutReply instead of blocking.
func (ec *execContext) serveOrBlock(keys []string, timeout time.Duration, timeoutReply redis.Reply, serve serveFunc) redis.Reply {
	db := ec.db()
	for _, key := range keys {
		if reply := serve(db, key); reply != nil {
			return reply
		}
	}
	if ec.nested {
		return timeoutReply
	}
	ec.block(keys, timeout, timeoutReply, serve)
	return nil
}

// block registers a waiter for the current command, the caller waits on it once the server lock is released.
// timeout 0 means waiting forever.
func (ec *execContext) block(keys []string, timeout time.Duration, timeoutReply redis.Reply, serve serveFunc) {
	w := &waiter{
		conn:         ec.conn,
		db:           ec.db(),
		keys:         keys,
		serve:        serve,
		timeout:      timeout,
		timeoutReply: timeoutReply,
		result:       make(chan redis.Reply, 1),
		elements:     make(map[string]*list.Element, len(keys)),
	}
	b := ec.server.blocking
	for _, key := range keys {
		if _, dup := w.elements[key]; dup {
			continue
		}
		qk := queueKey{db: w.db.index, key: key}
		queue := b.queues[qk]
		if queue == nil {
			queue = list.New()
			b.queues[qk] = queue
		}
		w.elements[key] = queue.PushBack(w)
	}
	b.waiters[w] = struct{}{}
	ec.pending = w
	ec.server.metrics.BlockedDelta(1)
}

// unregister removes w from every queue, invoker should hold the server lock
func (server *Server) unregister(w *waiter) {
	b := server.blocking
	if _, ok := b.waiters[w]; !ok {
		return
	}
	delete(b.waiters, w)
	for key, elem := range w.elements {
		qk := queueKey{db: w.db.index, key: key}
		queue := b.queues[qk]
		if queue == nil {
			continue
		}
		queue.Remove(elem)
		if queue.Len() == 0 {
			delete(b.queues, qk)
		}
	}
	server.metrics.BlockedDelta(-1)
}

// signalReady serves the earliest waiters of keys, invoker should hold the server lock.
// Serving a waiter may modify other keys which are served in turn.
func (server *Server) signalReady(db *DB, keys ...string) {
	b := server.blocking
	if len(b.waiters) == 0 {
		b.ready = nil
		return
	}
	for _, key := range keys {
		b.ready = append(b.ready, readyKey{db: db, key: key})
	}
	server.serveReady()
}

// holdReady postpones serving blocked clients until the matching releaseReady,
// so they never observe the middle of a transaction or script
func (server *Server) holdReady() {
	server.blocking.deferred++
}

// releaseReady serves the keys collected since the outermost holdReady
func (server *Server) releaseReady() {
	b := server.blocking
	b.deferred--
	if b.deferred > 0 {
		return
	}
	if len(b.waiters) == 0 {
		b.ready = nil
		return
	}
	server.serveReady()
}

func (server *Server) serveReady() {
	b := server.blocking
	if b.serving || b.deferred > 0 {
		return
	}
	b.serving = true
	defer func() {
		b.serving = false
	}()
	for len(b.ready) > 0 {
		rk := b.ready[0]
		b.ready = b.ready[1:]
		queue := b.queues[queueKey{db: rk.db.index, key: rk.key}]
		for queue != nil && queue.Len() > 0 {
			w := queue.Front().Value.(*waiter)
			reply := w.serve(rk.db, rk.key)
			modified := rk.db.takeModified()
			if reply == nil || protocol.IsErrorReply(reply) {
				// the key holds nothing usable, the waiter stays blocked
				break
			}
			server.unregister(w)
			w.state = stateSatisfied
			w.result <- reply
			rk.db.addVersion(modified...)
			for _, key := range modified {
				if key != rk.key {
					b.ready = append(b.ready, readyKey{db: rk.db, key: key})
				}
			}
			// queue may be dropped by unregister
			queue = b.queues[queueKey{db: rk.db.index, key: rk.key}]
		}
	}
}

// cancelWaiters wakes matched waiters with reply, invoker should hold the server lock
func (server *Server) cancelWaiters(match func(w *waiter) bool, reply redis.Reply) {
	for w := range server.blocking.waiters {
		if !match(w) {
			continue
		}
		server.unregister(w)
		w.state = stateCancelled
		w.result <- reply
	}
}

// await suspends the caller until w is served, timed out or cancelled
func (server *Server) await(ctx context.Context, w *waiter) redis.Reply {
	var timeout <-chan time.Time
	if w.timeout > 0 {
		timer := time.NewTimer(w.timeout)
		defer timer.Stop()
		timeout = timer.C
	}
	var reply redis.Reply
	var state waiterState
	select {
	case reply = <-w.result:
		return reply
	case <-timeout:
		state, reply = stateTimedOut, w.timeoutReply
	case <-ctx.Done():
		state, reply = stateCancelled, protocol.MakeErrReply("ERR "+ctx.Err().Error())
	case <-w.conn.Done():
		state, reply = stateCancelled, protocol.MakeConnectionErrReply()
	}

	// check-lock-check, the waiter may be served while acquiring the lock
	server.mu.Lock()
	defer server.mu.Unlock()
	if w.state != stateWaiting {
		return <-w.result
	}
	server.unregister(w)
	w.state = state
	return reply
}
