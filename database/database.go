package database

import (
	"time"

	"github.com/fakedis/fakedis/datastruct/dict"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
)

// DB stores data of one logical database. It is not safe for concurrent use,
// every access happens while the owning Server is locked.
type DB struct {
	index int
	// key -> *DataEntity
	data *dict.SimpleDict
	// key -> expireTime (time.Time)
	ttlMap *dict.SimpleDict
	// key -> version(uint64), survives deletion of the key so watchers notice re-creation
	versionMap *dict.SimpleDict
	// keys changed by the running command, published once it returns
	modified []string
}

// ExecFunc is interface for command executor
// args don't include cmd line
type ExecFunc func(db *DB, args [][]byte) redis.Reply

// PreFunc analyses command line when queued command to `multi`
// returns related write keys and read keys
type PreFunc func(args [][]byte) ([]string, []string)

// CmdLine is alias for [][]byte, represents a command line
type CmdLine = [][]byte

func makeDB(index int) *DB {
	return &DB{
		index:      index,
		data:       dict.MakeSimple(),
		ttlMap:     dict.MakeSimple(),
		versionMap: dict.MakeSimple(),
	}
}

/* ---- Data Access ----- */

// GetEntity returns DataEntity bind to given key, expired keys are removed on access
func (db *DB) GetEntity(key string) (*database.DataEntity, bool) {
	raw, ok := db.data.Get(key)
	if !ok {
		return nil, false
	}
	if db.expireIfNeeded(key) {
		return nil, false
	}
	entity, _ := raw.(*database.DataEntity)
	return entity, true
}

// PutEntity a DataEntity into DB
func (db *DB) PutEntity(key string, entity *database.DataEntity) int {
	db.markModified(key)
	return db.data.Put(key, entity)
}

// PutIfAbsent insert an DataEntity only if the key not exists
func (db *DB) PutIfAbsent(key string, entity *database.DataEntity) int {
	if _, exists := db.GetEntity(key); exists {
		return 0
	}
	db.markModified(key)
	return db.data.Put(key, entity)
}

// Exists reports whether key holds a live value
func (db *DB) Exists(key string) bool {
	_, ok := db.GetEntity(key)
	return ok
}

// Remove the given key from db
func (db *DB) Remove(key string) bool {
	_, deleted := db.data.Remove(key)
	db.ttlMap.Remove(key)
	if deleted > 0 {
		db.markModified(key)
	}
	return deleted > 0
}

// Removes the given keys from db
func (db *DB) Removes(keys ...string) (deleted int) {
	for _, key := range keys {
		if !db.Exists(key) {
			continue
		}
		if db.Remove(key) {
			deleted++
		}
	}
	return deleted
}

// Flush clean database, every existing key counts as modified
func (db *DB) Flush() {
	db.data.ForEach(func(key string, _ interface{}) bool {
		db.markModified(key)
		return true
	})
	db.data.Clear()
	db.ttlMap.Clear()
}

// Len returns the number of live keys
func (db *DB) Len() int {
	db.expireAll()
	return db.data.Len()
}

// Keys returns all live keys
func (db *DB) Keys() []string {
	db.expireAll()
	return db.data.Keys()
}

// RandomKey returns a live key, or false when the db is empty
func (db *DB) RandomKey() (string, bool) {
	db.expireAll()
	keys := db.data.RandomKeys(1)
	if len(keys) == 0 {
		return "", false
	}
	return keys[0], true
}

/* ---- TTL Functions ---- */

// Expire sets ttl of key
func (db *DB) Expire(key string, expireTime time.Time) {
	db.markModified(key)
	db.ttlMap.Put(key, expireTime)
}

// Persist cancel ttl of key, returns whether a ttl was removed
func (db *DB) Persist(key string) bool {
	_, removed := db.ttlMap.Remove(key)
	if removed > 0 {
		db.markModified(key)
	}
	return removed > 0
}

// ExpireTime returns the deadline of key, ok is false for persistent or absent keys
func (db *DB) ExpireTime(key string) (time.Time, bool) {
	raw, ok := db.ttlMap.Get(key)
	if !ok {
		return time.Time{}, false
	}
	return raw.(time.Time), true
}

// expireIfNeeded removes key when its deadline passed, expired keys get a new version at once
func (db *DB) expireIfNeeded(key string) bool {
	expireTime, ok := db.ExpireTime(key)
	if !ok || time.Now().Before(expireTime) {
		return false
	}
	db.data.Remove(key)
	db.ttlMap.Remove(key)
	db.addVersion(key)
	return true
}

func (db *DB) expireAll() {
	for _, key := range db.ttlMap.Keys() {
		db.expireIfNeeded(key)
	}
}

/* --- add version --- */

// markModified records keys whose value or ttl the running command changed
func (db *DB) markModified(keys ...string) {
	db.modified = append(db.modified, keys...)
}

// takeModified returns and forgets the keys recorded by markModified
func (db *DB) takeModified() []string {
	keys := db.modified
	db.modified = nil
	return keys
}

func (db *DB) addVersion(keys ...string) {
	for _, key := range keys {
		versionCode := db.GetVersion(key)
		db.versionMap.Put(key, versionCode+1)
	}
}

// GetVersion returns version code for given key
func (db *DB) GetVersion(key string) uint64 {
	db.expireIfNeeded(key)
	raw, ok := db.versionMap.Get(key)
	if !ok {
		return 0
	}
	return raw.(uint64)
}

// ForEach traverses all the live keys in the database
func (db *DB) ForEach(cb func(key string, data *database.DataEntity, expiration *time.Time) bool) {
	db.expireAll()
	db.data.ForEach(func(key string, raw interface{}) bool {
		entity, _ := raw.(*database.DataEntity)
		var expiration *time.Time
		if expireTime, ok := db.ExpireTime(key); ok {
			expiration = &expireTime
		}
		return cb(key, entity, expiration)
	})
}
