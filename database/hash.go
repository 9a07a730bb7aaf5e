package database

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	Dict "github.com/fakedis/fakedis/datastruct/dict"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func (db *DB) getAsDict(key string) (*Dict.SimpleDict, protocol.ErrorReply) {
	entity, exists := db.GetEntity(key)
	if !exists {
		return nil, nil
	}
	if entity.Type != database.TypeHash {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return entity.Data.(*Dict.SimpleDict), nil
}

func (db *DB) getOrInitDict(key string) (dict *Dict.SimpleDict, inited bool, errReply protocol.ErrorReply) {
	dict, errReply = db.getAsDict(key)
	if errReply != nil {
		return nil, false, errReply
	}
	inited = false
	if dict == nil {
		dict = Dict.MakeSimple()
		db.PutEntity(key, &database.DataEntity{
			Type: database.TypeHash,
			Data: dict,
		})
		inited = true
	}
	return dict, inited, nil
}

func getField(dict *Dict.SimpleDict, field string) ([]byte, bool) {
	raw, ok := dict.Get(field)
	if !ok {
		return nil, false
	}
	return raw.([]byte), true
}

// execHSet sets fields in hash table: HSET key field value [field value ...]
func execHSet(db *DB, args [][]byte) redis.Reply {
	if len(args)%2 != 1 {
		return protocol.MakeArgNumErrReply("hset")
	}
	key := string(args[0])
	dict, _, errReply := db.getOrInitDict(key)
	if errReply != nil {
		return errReply
	}
	added := 0
	for i := 1; i < len(args); i += 2 {
		added += dict.Put(string(args[i]), args[i+1])
	}
	db.markModified(key)
	return protocol.MakeIntReply(int64(added))
}

// execHSetNX sets field in hash table only if field not exists
func execHSetNX(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	field := string(args[1])
	value := args[2]

	dict, _, errReply := db.getOrInitDict(key)
	if errReply != nil {
		return errReply
	}
	result := dict.PutIfAbsent(field, value)
	if result > 0 {
		db.markModified(key)
	}
	return protocol.MakeIntReply(int64(result))
}

// execHMSet sets multi fields in hash table
func execHMSet(db *DB, args [][]byte) redis.Reply {
	if len(args)%2 != 1 {
		return protocol.MakeArgNumErrReply("hmset")
	}
	key := string(args[0])
	dict, _, errReply := db.getOrInitDict(key)
	if errReply != nil {
		return errReply
	}
	for i := 1; i < len(args); i += 2 {
		dict.Put(string(args[i]), args[i+1])
	}
	db.markModified(key)
	return &protocol.OkReply{}
}

// execHGet gets field value of hash table
func execHGet(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	field := string(args[1])

	dict, errReply := db.getAsDict(key)
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		return &protocol.NullBulkReply{}
	}
	value, exists := getField(dict, field)
	if !exists {
		return &protocol.NullBulkReply{}
	}
	return protocol.MakeBulkReply(value)
}

// execHMGet gets multi fields in hash table
func execHMGet(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	fields := args[1:]

	dict, errReply := db.getAsDict(key)
	if errReply != nil {
		return errReply
	}
	result := make([][]byte, len(fields))
	if dict == nil {
		return protocol.MakeMultiBulkReply(result)
	}
	for i, field := range fields {
		value, ok := getField(dict, string(field))
		if ok {
			result[i] = value
		}
	}
	return protocol.MakeMultiBulkReply(result)
}

// execHExists checks if a hash field exists
func execHExists(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	field := string(args[1])

	dict, errReply := db.getAsDict(key)
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		return protocol.MakeIntReply(0)
	}
	if _, exists := dict.Get(field); exists {
		return protocol.MakeIntReply(1)
	}
	return protocol.MakeIntReply(0)
}

// execHDel deletes a hash field
func execHDel(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	dict, errReply := db.getAsDict(key)
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		return protocol.MakeIntReply(0)
	}

	deleted := 0
	for _, field := range args[1:] {
		_, result := dict.Remove(string(field))
		deleted += result
	}
	if deleted > 0 {
		db.markModified(key)
	}
	if dict.Len() == 0 {
		db.Remove(key)
	}
	return protocol.MakeIntReply(int64(deleted))
}

// execHLen gets number of fields in hash table
func execHLen(db *DB, args [][]byte) redis.Reply {
	dict, errReply := db.getAsDict(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(int64(dict.Len()))
}

// execHStrlen returns the length of a field value
func execHStrlen(db *DB, args [][]byte) redis.Reply {
	dict, errReply := db.getAsDict(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		return protocol.MakeIntReply(0)
	}
	value, ok := getField(dict, string(args[1]))
	if !ok {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(int64(len(value)))
}

// hashPairs lists fields of dict with or without their values
func hashPairs(dict *Dict.SimpleDict, fields, values bool) [][]byte {
	result := make([][]byte, 0, dict.Len()*2)
	dict.ForEach(func(field string, val interface{}) bool {
		if fields {
			result = append(result, []byte(field))
		}
		if values {
			result = append(result, val.([]byte))
		}
		return true
	})
	return result
}

func listHash(db *DB, key string, fields, values bool) redis.Reply {
	dict, errReply := db.getAsDict(key)
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		return &protocol.EmptyMultiBulkReply{}
	}
	return protocol.MakeMultiBulkReply(hashPairs(dict, fields, values))
}

// execHKeys gets all field names in hash table
func execHKeys(db *DB, args [][]byte) redis.Reply {
	return listHash(db, string(args[0]), true, false)
}

// execHVals gets all field value in hash table
func execHVals(db *DB, args [][]byte) redis.Reply {
	return listHash(db, string(args[0]), false, true)
}

// execHGetAll gets all key-value entries in hash table
func execHGetAll(db *DB, args [][]byte) redis.Reply {
	return listHash(db, string(args[0]), true, true)
}

// execHIncrBy increments the integer value of a hash field by the given number
func execHIncrBy(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	field := string(args[1])
	delta, errReply := parseInt(args[2])
	if errReply != nil {
		return errReply
	}

	dict, _, err := db.getOrInitDict(key)
	if err != nil {
		return err
	}

	current := int64(0)
	if value, exists := getField(dict, field); exists {
		v, parseErr := strconv.ParseInt(string(value), 10, 64)
		if parseErr != nil {
			return protocol.MakeErrReply("ERR hash value is not an integer")
		}
		current = v
	}
	if (delta > 0 && current > math.MaxInt64-delta) || (delta < 0 && current < math.MinInt64-delta) {
		return protocol.MakeErrReply("ERR increment or decrement would overflow")
	}
	result := current + delta
	dict.Put(field, []byte(strconv.FormatInt(result, 10)))
	db.markModified(key)
	return protocol.MakeIntReply(result)
}

// execHIncrByFloat increments the float value of a hash field by the given number
func execHIncrByFloat(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	field := string(args[1])
	delta, err := decimal.NewFromString(string(args[2]))
	if err != nil {
		return errNotFloat
	}

	dict, _, errReply := db.getOrInitDict(key)
	if errReply != nil {
		return errReply
	}

	current := decimal.Zero
	if value, exists := getField(dict, field); exists {
		current, err = decimal.NewFromString(string(value))
		if err != nil {
			return protocol.MakeErrReply("ERR hash value is not a float")
		}
	}
	result := []byte(current.Add(delta).String())
	dict.Put(field, result)
	db.markModified(key)
	return protocol.MakeBulkReply(result)
}

// execHRandField returns random fields: HRANDFIELD key [count [WITHVALUES]]
func execHRandField(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	count, withCount, withValues := int64(1), false, false
	if len(args) >= 2 {
		var errReply *protocol.StandardErrReply
		count, errReply = parseInt(args[1])
		if errReply != nil {
			return errReply
		}
		withCount = true
	}
	if len(args) == 3 {
		if !strings.EqualFold(string(args[2]), "WITHVALUES") {
			return &protocol.SyntaxErrReply{}
		}
		withValues = true
	} else if len(args) > 3 {
		return &protocol.SyntaxErrReply{}
	}

	dict, errReply := db.getAsDict(key)
	if errReply != nil {
		return errReply
	}
	if dict == nil {
		if withCount {
			return &protocol.EmptyMultiBulkReply{}
		}
		return &protocol.NullBulkReply{}
	}
	if !withCount {
		return protocol.MakeBulkReply([]byte(dict.RandomKeys(1)[0]))
	}
	var fields []string
	if count >= 0 {
		fields = dict.RandomDistinctKeys(int(count))
	} else {
		fields = dict.RandomKeys(int(-count))
	}
	result := make([][]byte, 0, len(fields)*2)
	for _, field := range fields {
		result = append(result, []byte(field))
		if withValues {
			value, _ := getField(dict, field)
			result = append(result, value)
		}
	}
	return protocol.MakeMultiBulkReply(result)
}

// execHScan iterates fields of a hash: HSCAN key cursor [MATCH pattern] [COUNT count]
func execHScan(db *DB, args [][]byte) redis.Reply {
	opts, errReply := parseScanArgs(args[1:], false)
	if errReply != nil {
		return errReply
	}
	dict, err := db.getAsDict(string(args[0]))
	if err != nil {
		return err
	}
	if dict == nil {
		return scanReply(0, [][]byte{})
	}
	fields, next := dict.DictScan(opts.cursor, opts.count, opts.pattern)
	result := make([][]byte, 0, len(fields)*2)
	for _, field := range fields {
		value, _ := getField(dict, field)
		result = append(result, []byte(field), value)
	}
	return scanReply(next, result)
}

func init() {
	registerCommand("HSet", execHSet, writeFirstKey, -4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("HSetNX", execHSetNX, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("HMSet", execHMSet, writeFirstKey, -4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("HGet", execHGet, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("HMGet", execHMGet, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("HExists", execHExists, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("HDel", execHDel, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("HLen", execHLen, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("HStrlen", execHStrlen, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("HKeys", execHKeys, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 1, 1, 1)
	registerCommand("HVals", execHVals, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 1, 1, 1)
	registerCommand("HGetAll", execHGetAll, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)
	registerCommand("HIncrBy", execHIncrBy, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("HIncrByFloat", execHIncrByFloat, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("HRandField", execHRandField, readFirstKey, -2, flagReadOnly).
		since(6, 2, 0).attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)
	registerCommand("HScan", execHScan, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)
}
