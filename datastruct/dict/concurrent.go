package dict

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
)

// ConcurrentDict is a map sharded by key hash, each shard has its own lock.
// It backs the channel table of pub/sub, which is read by PUBLISH without the server lock
type ConcurrentDict struct {
	table []*shard
	count atomic.Int32
}

type shard struct {
	mu sync.RWMutex
	m  map[string]interface{}
}

// MakeConcurrent creates ConcurrentDict, shardCount is rounded up to a power of 2 and at least 16
func MakeConcurrent(shardCount int) *ConcurrentDict {
	size := 16
	for size < shardCount {
		size <<= 1
	}
	table := make([]*shard, size)
	for i := range table {
		table[i] = &shard{m: make(map[string]interface{})}
	}
	return &ConcurrentDict{table: table}
}

func (dict *ConcurrentDict) shardOf(key string) *shard {
	return dict.table[xxhash.Sum64String(key)&uint64(len(dict.table)-1)]
}

// Get returns the binding value and whether the key is exist
func (dict *ConcurrentDict) Get(key string) (val interface{}, exists bool) {
	s := dict.shardOf(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, exists = s.m[key]
	return
}

// Len returns the number of keys
func (dict *ConcurrentDict) Len() int {
	return int(dict.count.Load())
}

// Put binds key to val, returns 1 if the key is new
func (dict *ConcurrentDict) Put(key string, val interface{}) (result int) {
	s := dict.shardOf(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[key]; !ok {
		dict.count.Add(1)
		result = 1
	}
	s.m[key] = val
	return
}

// Remove deletes key, returns 1 and the removed value if the key existed
func (dict *ConcurrentDict) Remove(key string) (val interface{}, result int) {
	s := dict.shardOf(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	val, ok := s.m[key]
	if !ok {
		return nil, 0
	}
	delete(s.m, key)
	dict.count.Add(-1)
	return val, 1
}

// Keys returns a sorted snapshot of the keys
func (dict *ConcurrentDict) Keys() []string {
	keys := make([]string, 0, dict.Len())
	for _, s := range dict.table {
		s.mu.RLock()
		for key := range s.m {
			keys = append(keys, key)
		}
		s.mu.RUnlock()
	}
	sort.Strings(keys)
	return keys
}
