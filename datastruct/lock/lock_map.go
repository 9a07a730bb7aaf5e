package lock

import (
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Locks provides rw locks for keys. Keys are hashed onto a fixed table of mutexes so the number of
// locks does not grow with the number of keys.
// Locking several keys always acquires slots in ascending order to avoid deadlock.
type Locks struct {
	table []*sync.RWMutex
}

// Make creates a lock table, tableSize is rounded up to a power of 2
func Make(tableSize int) *Locks {
	size := 1
	for size < tableSize {
		size <<= 1
	}
	table := make([]*sync.RWMutex, size)
	for i := 0; i < size; i++ {
		table[i] = &sync.RWMutex{}
	}
	return &Locks{
		table: table,
	}
}

func (locks *Locks) spread(key string) uint32 {
	return uint32(xxhash.Sum64String(key) & uint64(len(locks.table)-1))
}

// Lock obtains exclusive lock for writing
func (locks *Locks) Lock(key string) {
	locks.table[locks.spread(key)].Lock()
}

// RLock obtains shared lock for reading
func (locks *Locks) RLock(key string) {
	locks.table[locks.spread(key)].RLock()
}

// UnLock release exclusive lock
func (locks *Locks) UnLock(key string) {
	locks.table[locks.spread(key)].Unlock()
}

// RUnLock release shared lock
func (locks *Locks) RUnLock(key string) {
	locks.table[locks.spread(key)].RUnlock()
}

func (locks *Locks) toLockIndices(keys []string, reverse bool) []uint32 {
	indexMap := make(map[uint32]struct{})
	for _, key := range keys {
		indexMap[locks.spread(key)] = struct{}{}
	}
	indices := make([]uint32, 0, len(indexMap))
	for index := range indexMap {
		indices = append(indices, index)
	}
	sort.Slice(indices, func(i, j int) bool {
		if !reverse {
			return indices[i] < indices[j]
		}
		return indices[i] > indices[j]
	})
	return indices
}

// Locks obtains multiple exclusive locks for writing
func (locks *Locks) Locks(keys ...string) {
	for _, index := range locks.toLockIndices(keys, false) {
		locks.table[index].Lock()
	}
}

// RLocks obtains multiple shared locks for reading
func (locks *Locks) RLocks(keys ...string) {
	for _, index := range locks.toLockIndices(keys, false) {
		locks.table[index].RLock()
	}
}

// UnLocks releases multiple exclusive locks
func (locks *Locks) UnLocks(keys ...string) {
	for _, index := range locks.toLockIndices(keys, true) {
		locks.table[index].Unlock()
	}
}

// RUnLocks releases multiple shared locks
func (locks *Locks) RUnLocks(keys ...string) {
	for _, index := range locks.toLockIndices(keys, true) {
		locks.table[index].RUnlock()
	}
}
