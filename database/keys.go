package database

import (
	"strconv"
	"strings"
	"time"

	"github.com/fakedis/fakedis/datastruct/dict"
	"github.com/fakedis/fakedis/datastruct/list"
	"github.com/fakedis/fakedis/datastruct/set"
	"github.com/fakedis/fakedis/datastruct/sortedset"
	"github.com/fakedis/fakedis/datastruct/stream"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/lib/wildcard"
	"github.com/fakedis/fakedis/redis/protocol"
)

// execDel removes a key from db
func execDel(db *DB, args [][]byte) redis.Reply {
	keys := make([]string, len(args))
	for i, v := range args {
		keys[i] = string(v)
	}
	deleted := db.Removes(keys...)
	return protocol.MakeIntReply(int64(deleted))
}

// execExists checks if given key is existed in db
func execExists(db *DB, args [][]byte) redis.Reply {
	result := int64(0)
	for _, arg := range args {
		if db.Exists(string(arg)) {
			result++
		}
	}
	return protocol.MakeIntReply(result)
}

// execFlushDB removes all data in current db
func execFlushDB(db *DB, args [][]byte) redis.Reply {
	if len(args) > 0 {
		mode := strings.ToUpper(string(args[0]))
		if len(args) > 1 || (mode != "ASYNC" && mode != "SYNC") {
			return errSyntax
		}
	}
	db.Flush()
	return protocol.MakeOkReply()
}

// execType returns the type of entity, including: string, list, hash, set, zset and stream
func execType(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	entity, exists := db.GetEntity(key)
	if !exists {
		return protocol.MakeStatusReply(database.TypeNone.String())
	}
	return protocol.MakeStatusReply(entity.Type.String())
}

func execDBSize(db *DB, args [][]byte) redis.Reply {
	return protocol.MakeIntReply(int64(db.Len()))
}

func execRandomKey(db *DB, args [][]byte) redis.Reply {
	key, ok := db.RandomKey()
	if !ok {
		return protocol.MakeNullBulkReply()
	}
	return protocol.MakeBulkReply([]byte(key))
}

// execRename a key, the ttl follows the value
func execRename(db *DB, args [][]byte) redis.Reply {
	src := string(args[0])
	dest := string(args[1])

	entity, ok := db.GetEntity(src)
	if !ok {
		return errNoSuchKey
	}
	if src == dest {
		return protocol.MakeOkReply()
	}
	expireTime, hasTTL := db.ExpireTime(src)
	db.Remove(src)
	db.Remove(dest)
	db.PutEntity(dest, entity)
	if hasTTL {
		db.Expire(dest, expireTime)
	}
	return protocol.MakeOkReply()
}

// execRenameNx a key, only if the new key does not exist
func execRenameNx(db *DB, args [][]byte) redis.Reply {
	src := string(args[0])
	dest := string(args[1])

	if !db.Exists(src) {
		return errNoSuchKey
	}
	if db.Exists(dest) {
		return protocol.MakeIntReply(0)
	}
	execRename(db, args)
	return protocol.MakeIntReply(1)
}

// expire applies a new deadline according to NX|XX|GT|LT, deadlines in the past delete the key
func expire(db *DB, key string, expireTime time.Time, options [][]byte) redis.Reply {
	var nx, xx, gt, lt bool
	for _, opt := range options {
		switch strings.ToUpper(string(opt)) {
		case "NX":
			nx = true
		case "XX":
			xx = true
		case "GT":
			gt = true
		case "LT":
			lt = true
		default:
			return protocol.MakeErrReply("ERR Unsupported option " + string(opt))
		}
	}
	if nx && (xx || gt || lt) {
		return protocol.MakeErrReply("ERR NX and XX, GT or LT options at the same time are not compatible")
	}
	if gt && lt {
		return protocol.MakeErrReply("ERR GT and LT options at the same time are not compatible")
	}
	if !db.Exists(key) {
		return protocol.MakeIntReply(0)
	}
	current, hasTTL := db.ExpireTime(key)
	switch {
	case nx && hasTTL, xx && !hasTTL:
		return protocol.MakeIntReply(0)
	case gt && (!hasTTL || !expireTime.After(current)):
		// a persistent key counts as an infinite ttl
		return protocol.MakeIntReply(0)
	case lt && hasTTL && !expireTime.Before(current):
		return protocol.MakeIntReply(0)
	}
	if !expireTime.After(time.Now()) {
		db.Remove(key)
		return protocol.MakeIntReply(1)
	}
	db.Expire(key, expireTime)
	return protocol.MakeIntReply(1)
}

func execExpire(db *DB, args [][]byte) redis.Reply {
	ttl, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	return expire(db, string(args[0]), time.Now().Add(time.Duration(ttl)*time.Second), args[2:])
}

func execPExpire(db *DB, args [][]byte) redis.Reply {
	ttl, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	return expire(db, string(args[0]), time.Now().Add(time.Duration(ttl)*time.Millisecond), args[2:])
}

func execExpireAt(db *DB, args [][]byte) redis.Reply {
	raw, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	return expire(db, string(args[0]), time.Unix(raw, 0), args[2:])
}

func execPExpireAt(db *DB, args [][]byte) redis.Reply {
	raw, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	return expire(db, string(args[0]), time.UnixMilli(raw), args[2:])
}

// ttlOf returns -2 for absent keys, -1 for persistent keys, or the remaining time in unit
func ttlOf(db *DB, key string, unit time.Duration) int64 {
	if !db.Exists(key) {
		return -2
	}
	expireTime, ok := db.ExpireTime(key)
	if !ok {
		return -1
	}
	ttl := time.Until(expireTime)
	// round like redis does
	return int64((ttl + unit/2) / unit)
}

func execTTL(db *DB, args [][]byte) redis.Reply {
	return protocol.MakeIntReply(ttlOf(db, string(args[0]), time.Second))
}

func execPTTL(db *DB, args [][]byte) redis.Reply {
	return protocol.MakeIntReply(ttlOf(db, string(args[0]), time.Millisecond))
}

func expireTimeOf(db *DB, key string) (time.Time, int64) {
	if !db.Exists(key) {
		return time.Time{}, -2
	}
	expireTime, ok := db.ExpireTime(key)
	if !ok {
		return time.Time{}, -1
	}
	return expireTime, 0
}

// execExpireTime returns the absolute Unix expiration timestamp in seconds
func execExpireTime(db *DB, args [][]byte) redis.Reply {
	expireTime, code := expireTimeOf(db, string(args[0]))
	if code < 0 {
		return protocol.MakeIntReply(code)
	}
	return protocol.MakeIntReply(expireTime.Unix())
}

func execPExpireTime(db *DB, args [][]byte) redis.Reply {
	expireTime, code := expireTimeOf(db, string(args[0]))
	if code < 0 {
		return protocol.MakeIntReply(code)
	}
	return protocol.MakeIntReply(expireTime.UnixMilli())
}

// execPersist removes expiration from a key
func execPersist(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	if !db.Exists(key) {
		return protocol.MakeIntReply(0)
	}
	if !db.Persist(key) {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(1)
}

// execKeys returns all keys matching the given pattern
func execKeys(db *DB, args [][]byte) redis.Reply {
	pattern := wildcard.CompilePattern(string(args[0]))
	result := make([][]byte, 0)
	for _, key := range db.Keys() {
		if pattern.IsMatch(key) {
			result = append(result, []byte(key))
		}
	}
	return protocol.MakeMultiBulkReply(result)
}

func execScan(db *DB, args [][]byte) redis.Reply {
	scan, errReply := parseScanArgs(args, true)
	if errReply != nil {
		return errReply
	}
	db.expireAll()
	keys, next := db.data.DictScan(scan.cursor, scan.count, scan.pattern)
	result := make([][]byte, 0, len(keys))
	for _, key := range keys {
		if scan.typ != "" {
			entity, ok := db.GetEntity(key)
			if !ok || entity.Type.String() != scan.typ {
				continue
			}
		}
		result = append(result, []byte(key))
	}
	return scanReply(next, result)
}

func execTouch(db *DB, args [][]byte) redis.Reply {
	return execExists(db, args)
}

// copyEntity returns a deep copy, so the copy evolves independently
func copyEntity(entity *database.DataEntity) *database.DataEntity {
	var data interface{}
	switch entity.Type {
	case database.TypeString:
		data = utils.CopyBytes(entity.Data.([]byte))
	case database.TypeList:
		src := entity.Data.(list.List)
		dest := list.NewQuickList()
		src.ForEach(func(i int, v []byte) bool {
			dest.Add(utils.CopyBytes(v))
			return true
		})
		data = dest
	case database.TypeSet:
		data = entity.Data.(*set.Set).ShallowCopy()
	case database.TypeZSet:
		src := entity.Data.(*sortedset.SortedSet)
		dest := sortedset.Make()
		for _, element := range src.RangeByScore(sortedset.NegativeInfBorder, sortedset.PositiveInfBorder, 0, -1, false) {
			dest.Add(element.Member, element.Score)
		}
		data = dest
	case database.TypeHash:
		src := entity.Data.(*dict.SimpleDict)
		dest := dict.MakeSimple()
		src.ForEach(func(field string, val interface{}) bool {
			dest.Put(field, utils.CopyBytes(val.([]byte)))
			return true
		})
		data = dest
	case database.TypeStream:
		src := entity.Data.(*stream.Stream)
		dest := stream.Make()
		src.ForEach(func(e *stream.Entry) bool {
			_ = dest.Add(e.ID, e.Fields)
			return true
		})
		dest.SetLastID(src.LastID())
		data = dest
	}
	return &database.DataEntity{Type: entity.Type, Data: data}
}

// execCopy copies source to destination, optionally into another db
func execCopy(ec *execContext, args [][]byte) redis.Reply {
	srcDB := ec.db()
	destDB := srcDB
	replace := false
	for i := 2; i < len(args); i++ {
		arg := strings.ToUpper(string(args[i]))
		switch {
		case arg == "DB" && i+1 < len(args):
			dbIndex, err := strconv.Atoi(string(args[i+1]))
			if err != nil {
				return errNotInteger
			}
			db, errReply := ec.server.selectDB(dbIndex)
			if errReply != nil {
				return errReply
			}
			destDB = db
			i++
		case arg == "REPLACE":
			replace = true
		default:
			return errSyntax
		}
	}
	src, dest := string(args[0]), string(args[1])
	if src == dest && srcDB == destDB {
		return protocol.MakeErrReply("ERR source and destination objects are the same")
	}
	entity, ok := srcDB.GetEntity(src)
	if !ok {
		return protocol.MakeIntReply(0)
	}
	if destDB.Exists(dest) {
		if !replace {
			return protocol.MakeIntReply(0)
		}
		destDB.Remove(dest)
	}
	destDB.PutEntity(dest, copyEntity(entity))
	if expireTime, ok := srcDB.ExpireTime(src); ok {
		destDB.Expire(dest, expireTime)
	}
	return protocol.MakeIntReply(1)
}

// execMove moves a key into another db, fails if the key exists there
func execMove(ec *execContext, args [][]byte) redis.Reply {
	key := string(args[0])
	dbIndex, err := strconv.Atoi(string(args[1]))
	if err != nil {
		return errNotInteger
	}
	destDB, errReply := ec.server.selectDB(dbIndex)
	if errReply != nil {
		return errReply
	}
	srcDB := ec.db()
	if srcDB == destDB {
		return protocol.MakeErrReply("ERR source and destination objects are the same")
	}
	entity, ok := srcDB.GetEntity(key)
	if !ok || destDB.Exists(key) {
		return protocol.MakeIntReply(0)
	}
	expireTime, hasTTL := srcDB.ExpireTime(key)
	srcDB.Remove(key)
	destDB.PutEntity(key, entity)
	if hasTTL {
		destDB.Expire(key, expireTime)
	}
	return protocol.MakeIntReply(1)
}

// execSwapDB exchanges the content of two databases, watchers of both become dirty
func execSwapDB(ec *execContext, args [][]byte) redis.Reply {
	index1, err1 := strconv.Atoi(string(args[0]))
	index2, err2 := strconv.Atoi(string(args[1]))
	if err1 != nil || err2 != nil {
		return protocol.MakeErrReply("ERR invalid first DB index")
	}
	db1, errReply := ec.server.selectDB(index1)
	if errReply != nil {
		return errReply
	}
	db2, errReply := ec.server.selectDB(index2)
	if errReply != nil {
		return errReply
	}
	if db1 == db2 {
		return protocol.MakeOkReply()
	}
	keys1, keys2 := db1.Keys(), db2.Keys()
	db1.data, db2.data = db2.data, db1.data
	db1.ttlMap, db2.ttlMap = db2.ttlMap, db1.ttlMap
	for _, db := range []*DB{db1, db2} {
		db.markModified(keys1...)
		db.markModified(keys2...)
	}
	return protocol.MakeOkReply()
}

func execFlushAll(ec *execContext, args [][]byte) redis.Reply {
	if len(args) > 0 {
		mode := strings.ToUpper(string(args[0]))
		if len(args) > 1 || (mode != "ASYNC" && mode != "SYNC") {
			return errSyntax
		}
	}
	for _, db := range ec.server.dbSet {
		db.Flush()
	}
	return protocol.MakeOkReply()
}

func prepareRename(args [][]byte) ([]string, []string) {
	src := string(args[0])
	dest := string(args[1])
	return []string{src, dest}, nil
}

func init() {
	registerCommand("Del", execDel, writeAllKeys, -2, flagWrite).
		attachCommandExtra([]string{Write}, 1, -1, 1)
	registerCommand("Unlink", execDel, writeAllKeys, -2, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, -1, 1)
	registerCommand("Exists", execExists, readAllKeys, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, -1, 1)
	registerCommand("Touch", execTouch, readAllKeys, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, -1, 1)
	registerCommand("Type", execType, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("Keys", execKeys, noPrepare, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 0, 0, 0)
	registerCommand("Scan", execScan, noPrepare, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 0, 0, 0)
	registerCommand("RandomKey", execRandomKey, noPrepare, 1, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 0, 0, 0)
	registerCommand("DBSize", execDBSize, noPrepare, 1, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 0, 0, 0)
	registerCommand("Rename", execRename, prepareRename, 3, flagWrite).
		attachCommandExtra([]string{Write}, 1, 2, 1)
	registerCommand("RenameNx", execRenameNx, prepareRename, 3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 2, 1)
	registerCommand("Expire", execExpire, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("PExpire", execPExpire, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("ExpireAt", execExpireAt, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("PExpireAt", execPExpireAt, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("TTL", execTTL, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random, Fast}, 1, 1, 1)
	registerCommand("PTTL", execPTTL, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random, Fast}, 1, 1, 1)
	registerCommand("ExpireTime", execExpireTime, readFirstKey, 2, flagReadOnly).
		since(7, 0, 0).attachCommandExtra([]string{Readonly, Random, Fast}, 1, 1, 1)
	registerCommand("PExpireTime", execPExpireTime, readFirstKey, 2, flagReadOnly).
		since(7, 0, 0).attachCommandExtra([]string{Readonly, Random, Fast}, 1, 1, 1)
	registerCommand("Persist", execPersist, writeFirstKey, 2, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("FlushDB", execFlushDB, noPrepare, -1, flagWrite).
		attachCommandExtra([]string{Write}, 0, 0, 0)
	registerSysCommand("Copy", execCopy, readFirstKey, -3, flagWrite).
		since(6, 2, 0).attachCommandExtra([]string{Write}, 1, 2, 1)
	registerSysCommand("Move", execMove, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerSysCommand("SwapDB", execSwapDB, noPrepare, 3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 0, 0, 0)
	registerSysCommand("FlushAll", execFlushAll, noPrepare, -1, flagWrite).
		attachCommandExtra([]string{Write}, 0, 0, 0)
}
