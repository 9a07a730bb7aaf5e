package database

import (
	"context"
	"time"

	"github.com/fakedis/fakedis/interface/redis"
)

// CmdLine is alias for [][]byte, represents a command line
type CmdLine = [][]byte

// DataType tags the value stored in a DataEntity
type DataType int

const (
	// TypeNone marks an absent key
	TypeNone DataType = iota
	TypeString
	TypeList
	TypeSet
	TypeZSet
	TypeHash
	TypeStream
)

var typeNames = [...]string{
	TypeNone:   "none",
	TypeString: "string",
	TypeList:   "list",
	TypeSet:    "set",
	TypeZSet:   "zset",
	TypeHash:   "hash",
	TypeStream: "stream",
}

// String returns the name reported by the TYPE command
func (t DataType) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "none"
	}
	return typeNames[t]
}

// DataEntity stores data bound to a key, Data holds the concrete structure selected by Type
type DataEntity struct {
	Type DataType
	Data interface{}
}

// DB is the interface for redis style storage engine
type DB interface {
	Exec(client redis.Connection, cmdLine [][]byte) redis.Reply
	ExecContext(ctx context.Context, client redis.Connection, cmdLine [][]byte) redis.Reply
	AfterClientClose(c redis.Connection)
	Close()
}

// DBEngine is the embedding storage engine exposing more methods for scripts and tooling
type DBEngine interface {
	DB
	ExecWithLock(conn redis.Connection, cmdLine [][]byte) redis.Reply
	ForEach(dbIndex int, cb func(key string, data *DataEntity, expiration *time.Time) bool)
	GetDBSize(dbIndex int) (int, int)
	GetEntity(dbIndex int, key string) (*DataEntity, bool)
	GetExpiration(dbIndex int, key string) *time.Time
}
