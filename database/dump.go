package database

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/hdt3213/rdb/encoder"
	"github.com/hdt3213/rdb/model"
	rdb "github.com/hdt3213/rdb/parser"

	Dict "github.com/fakedis/fakedis/datastruct/dict"
	List "github.com/fakedis/fakedis/datastruct/list"
	"github.com/fakedis/fakedis/datastruct/set"
	SortedSet "github.com/fakedis/fakedis/datastruct/sortedset"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

// payloadKey names the only object inside a dump payload, RESTORE ignores it
const payloadKey = "_"

var errBadPayload = protocol.MakeErrReply("ERR DUMP payload version or checksum are wrong")

// encodeEntity serializes one value as a rdb stream holding a single object
func encodeEntity(entity *database.DataEntity) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := encoder.NewEncoder(buf).EnableCompress()
	if err := enc.WriteHeader(); err != nil {
		return nil, err
	}
	if err := enc.WriteDBHeader(0, 1, 0); err != nil {
		return nil, err
	}
	var err error
	switch entity.Type {
	case database.TypeString:
		err = enc.WriteStringObject(payloadKey, entity.Data.([]byte))
	case database.TypeList:
		vals := entity.Data.(List.List).Range(0, entity.Data.(List.List).Len())
		err = enc.WriteListObject(payloadKey, vals)
	case database.TypeSet:
		members := entity.Data.(*set.Set).ToSlice()
		vals := make([][]byte, len(members))
		for i, m := range members {
			vals[i] = []byte(m)
		}
		err = enc.WriteSetObject(payloadKey, vals)
	case database.TypeHash:
		hash := make(map[string][]byte)
		entity.Data.(*Dict.SimpleDict).ForEach(func(field string, val interface{}) bool {
			hash[field] = val.([]byte)
			return true
		})
		err = enc.WriteHashMapObject(payloadKey, hash)
	case database.TypeZSet:
		zset := entity.Data.(*SortedSet.SortedSet)
		entries := make([]*model.ZSetEntry, 0, zset.Len())
		zset.ForEachByRank(0, zset.Len(), false, func(element *SortedSet.Element) bool {
			entries = append(entries, &model.ZSetEntry{
				Member: element.Member,
				Score:  element.Score,
			})
			return true
		})
		err = enc.WriteZSetObject(payloadKey, entries)
	default:
		return nil, errUnsupportedDump
	}
	if err != nil {
		return nil, err
	}
	if err := enc.WriteEnd(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var errUnsupportedDump = protocol.MakeErrReply("ERR DUMP is not supported for stream keys")

// decodeEntity rebuilds the value carried by a payload produced by encodeEntity
func decodeEntity(payload []byte) (*database.DataEntity, bool) {
	var entity *database.DataEntity
	dec := rdb.NewDecoder(bytes.NewReader(payload))
	err := dec.Parse(func(o rdb.RedisObject) bool {
		switch o.GetType() {
		case rdb.StringType:
			str := o.(*rdb.StringObject)
			entity = &database.DataEntity{Type: database.TypeString, Data: str.Value}
		case rdb.ListType:
			listObj := o.(*rdb.ListObject)
			entity = &database.DataEntity{Type: database.TypeList, Data: List.Make(listObj.Values...)}
		case rdb.HashType:
			hashObj := o.(*rdb.HashObject)
			hash := Dict.MakeSimple()
			for field, val := range hashObj.Hash {
				hash.Put(field, val)
			}
			entity = &database.DataEntity{Type: database.TypeHash, Data: hash}
		case rdb.SetType:
			setObj := o.(*rdb.SetObject)
			members := set.Make()
			for _, m := range setObj.Members {
				members.Add(string(m))
			}
			entity = &database.DataEntity{Type: database.TypeSet, Data: members}
		case rdb.ZSetType:
			zsetObj := o.(*rdb.ZSetObject)
			zset := SortedSet.Make()
			for _, e := range zsetObj.Entries {
				zset.Add(e.Member, e.Score)
			}
			entity = &database.DataEntity{Type: database.TypeZSet, Data: zset}
		}
		return false
	})
	if err != nil || entity == nil {
		return nil, false
	}
	return entity, true
}

// execDump serializes the value stored at key: DUMP key
func execDump(db *DB, args [][]byte) redis.Reply {
	entity, ok := db.GetEntity(string(args[0]))
	if !ok {
		return protocol.MakeNullBulkReply()
	}
	payload, err := encodeEntity(entity)
	if err == errUnsupportedDump {
		return errUnsupportedDump
	}
	if err != nil {
		return protocol.MakeErrReply("ERR " + err.Error())
	}
	return protocol.MakeBulkReply(payload)
}

// execRestore creates a key from a DUMP payload: RESTORE key ttl payload [REPLACE] [ABSTTL] [IDLETIME s] [FREQ f]
func execRestore(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	ttl, err := strconv.ParseInt(string(args[1]), 10, 64)
	if err != nil {
		return errNotInteger
	}
	if ttl < 0 {
		return protocol.MakeErrReply("ERR Invalid TTL value, must be >= 0")
	}
	replace := false
	absTTL := false
	for i := 3; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "REPLACE":
			replace = true
		case "ABSTTL":
			absTTL = true
		case "IDLETIME", "FREQ":
			if i+1 >= len(args) {
				return errSyntax
			}
			if _, err := strconv.ParseInt(string(args[i+1]), 10, 64); err != nil {
				return errNotInteger
			}
			i++
		default:
			return errSyntax
		}
	}
	if _, exists := db.GetEntity(key); exists && !replace {
		return protocol.MakeErrReply("BUSYKEY Target key name already exists.")
	}
	entity, ok := decodeEntity(args[2])
	if !ok {
		return errBadPayload
	}
	var expireAt time.Time
	if ttl > 0 {
		if absTTL {
			expireAt = time.UnixMilli(ttl)
		} else {
			expireAt = time.Now().Add(time.Duration(ttl) * time.Millisecond)
		}
		if !expireAt.After(time.Now()) {
			// already expired, only the old value goes away
			db.Remove(key)
			return protocol.MakeOkReply()
		}
	}
	db.PutEntity(key, entity)
	if ttl > 0 {
		db.Expire(key, expireAt)
	} else {
		db.Persist(key)
	}
	return protocol.MakeOkReply()
}

func init() {
	registerCommand("Dump", execDump, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)
	registerCommand("Restore", execRestore, writeFirstKey, -4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
}
