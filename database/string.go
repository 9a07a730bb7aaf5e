package database

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakedis/fakedis/datastruct/bitmap"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

// maxStringSize is the largest string value accepted, 512MB
const maxStringSize = 512 * 1024 * 1024

func (db *DB) getAsString(key string) ([]byte, protocol.ErrorReply) {
	entity, ok := db.GetEntity(key)
	if !ok {
		return nil, nil
	}
	if entity.Type != database.TypeString {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return entity.Data.([]byte), nil
}

func (db *DB) putString(key string, val []byte) {
	if val == nil {
		val = []byte{}
	}
	db.PutEntity(key, &database.DataEntity{
		Type: database.TypeString,
		Data: val,
	})
}

// execGet returns string value bound to the given key
func execGet(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	if bytes == nil {
		return &protocol.NullBulkReply{}
	}
	return protocol.MakeBulkReply(bytes)
}

const (
	upsertPolicy = iota // default
	insertPolicy        // set nx
	updatePolicy        // set xx
)

// expireOption is the parsed EX|PX|EXAT|PXAT|KEEPTTL|PERSIST option of SET and GETEX
type expireOption struct {
	given    bool
	at       time.Time
	keepTTL  bool
	persist  bool
	optCount int
}

// parseExpireOption consumes an expire option at args[i], it returns how many arguments were used
func parseExpireOption(args [][]byte, i int, cmdName string, opt *expireOption) (int, protocol.ErrorReply) {
	arg := strings.ToUpper(string(args[i]))
	switch arg {
	case "KEEPTTL":
		opt.keepTTL = true
		opt.optCount++
		return 1, nil
	case "PERSIST":
		opt.persist = true
		opt.optCount++
		return 1, nil
	case "EX", "PX", "EXAT", "PXAT":
	default:
		return 0, nil
	}
	if i+1 >= len(args) {
		return 0, &protocol.SyntaxErrReply{}
	}
	raw, err := strconv.ParseInt(string(args[i+1]), 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	if raw <= 0 {
		return 0, protocol.MakeErrReply("ERR invalid expire time in '" + cmdName + "' command")
	}
	switch arg {
	case "EX":
		opt.at = time.Now().Add(time.Duration(raw) * time.Second)
	case "PX":
		opt.at = time.Now().Add(time.Duration(raw) * time.Millisecond)
	case "EXAT":
		opt.at = time.Unix(raw, 0)
	case "PXAT":
		opt.at = time.UnixMilli(raw)
	}
	opt.given = true
	opt.optCount++
	return 2, nil
}

// execSet sets string value and time to live to the given key
func execSet(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	value := args[1]
	policy := upsertPolicy
	returnOld := false
	opt := &expireOption{}

	// parse options
	for i := 2; i < len(args); {
		arg := strings.ToUpper(string(args[i]))
		switch arg {
		case "NX":
			if policy == updatePolicy {
				return &protocol.SyntaxErrReply{}
			}
			policy = insertPolicy
			i++
		case "XX":
			if policy == insertPolicy {
				return &protocol.SyntaxErrReply{}
			}
			policy = updatePolicy
			i++
		case "GET":
			returnOld = true
			i++
		default:
			if arg == "PERSIST" {
				return &protocol.SyntaxErrReply{}
			}
			n, errReply := parseExpireOption(args, i, "set", opt)
			if errReply != nil {
				return errReply
			}
			if n == 0 || opt.optCount > 1 {
				return &protocol.SyntaxErrReply{}
			}
			i += n
		}
	}

	var old []byte
	if returnOld {
		var errReply protocol.ErrorReply
		old, errReply = db.getAsString(key)
		if errReply != nil {
			return errReply
		}
	}
	exists := db.Exists(key)
	if (policy == insertPolicy && exists) || (policy == updatePolicy && !exists) {
		if returnOld && old != nil {
			return protocol.MakeBulkReply(old)
		}
		return &protocol.NullBulkReply{}
	}

	expireTime, hadTTL := db.ExpireTime(key)
	db.putString(key, value)
	switch {
	case opt.given:
		db.Expire(key, opt.at)
	case opt.keepTTL && hadTTL:
		db.Expire(key, expireTime)
	default:
		db.Persist(key)
	}
	if returnOld {
		if old == nil {
			return &protocol.NullBulkReply{}
		}
		return protocol.MakeBulkReply(old)
	}
	return &protocol.OkReply{}
}

// execSetNX sets string if not exists
func execSetNX(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	if db.Exists(key) {
		return protocol.MakeIntReply(0)
	}
	db.putString(key, args[1])
	return protocol.MakeIntReply(1)
}

func setWithTTL(db *DB, args [][]byte, unit time.Duration, cmdName string) redis.Reply {
	key := string(args[0])
	raw, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	if raw <= 0 {
		return protocol.MakeErrReply("ERR invalid expire time in '" + cmdName + "' command")
	}
	db.putString(key, args[2])
	db.Expire(key, time.Now().Add(time.Duration(raw)*unit))
	return &protocol.OkReply{}
}

// execSetEX sets string and its ttl in seconds
func execSetEX(db *DB, args [][]byte) redis.Reply {
	return setWithTTL(db, args, time.Second, "setex")
}

// execPSetEX set a key's time to live in milliseconds
func execPSetEX(db *DB, args [][]byte) redis.Reply {
	return setWithTTL(db, args, time.Millisecond, "psetex")
}

func prepareMSet(args [][]byte) ([]string, []string) {
	return writeEvenKeys(args)
}

// execMSet sets multi key-value in database
func execMSet(db *DB, args [][]byte) redis.Reply {
	if len(args)%2 != 0 {
		return protocol.MakeArgNumErrReply("mset")
	}
	for i := 0; i < len(args); i += 2 {
		key := string(args[i])
		db.putString(key, args[i+1])
		db.Persist(key)
	}
	return &protocol.OkReply{}
}

// execMGet get multi key-value from database
func execMGet(db *DB, args [][]byte) redis.Reply {
	result := make([][]byte, len(args))
	for i, arg := range args {
		bytes, err := db.getAsString(string(arg))
		if err != nil {
			// keys holding other types are reported as nil
			continue
		}
		result[i] = bytes
	}
	return protocol.MakeMultiBulkReply(result)
}

// execMSetNX sets multi key-value in database, only if none of the given keys exist
func execMSetNX(db *DB, args [][]byte) redis.Reply {
	if len(args)%2 != 0 {
		return protocol.MakeArgNumErrReply("msetnx")
	}
	for i := 0; i < len(args); i += 2 {
		if db.Exists(string(args[i])) {
			return protocol.MakeIntReply(0)
		}
	}
	for i := 0; i < len(args); i += 2 {
		db.putString(string(args[i]), args[i+1])
	}
	return protocol.MakeIntReply(1)
}

// execGetSet sets value of a string-type key and returns its old value
func execGetSet(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	old, err := db.getAsString(key)
	if err != nil {
		return err
	}
	db.putString(key, args[1])
	db.Persist(key)
	if old == nil {
		return &protocol.NullBulkReply{}
	}
	return protocol.MakeBulkReply(old)
}

// execGetDel Get the value of key and delete the key.
func execGetDel(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	old, err := db.getAsString(key)
	if err != nil {
		return err
	}
	if old == nil {
		return &protocol.NullBulkReply{}
	}
	db.Remove(key)
	return protocol.MakeBulkReply(old)
}

// execGetEX Get the value of key and optionally set its expiration
func execGetEX(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	opt := &expireOption{}
	for i := 1; i < len(args); {
		if strings.EqualFold(string(args[i]), "KEEPTTL") {
			return &protocol.SyntaxErrReply{}
		}
		n, errReply := parseExpireOption(args, i, "getex", opt)
		if errReply != nil {
			return errReply
		}
		if n == 0 || opt.optCount > 1 {
			return &protocol.SyntaxErrReply{}
		}
		i += n
	}
	if bytes == nil {
		return &protocol.NullBulkReply{}
	}
	if opt.given {
		if !opt.at.After(time.Now()) {
			db.Remove(key)
		} else {
			db.Expire(key, opt.at)
		}
	} else if opt.persist {
		db.Persist(key)
	}
	return protocol.MakeBulkReply(bytes)
}

func incrBy(db *DB, key string, delta int64) redis.Reply {
	bytes, errReply := db.getAsString(key)
	if errReply != nil {
		return errReply
	}
	var val int64
	if bytes != nil {
		var err error
		val, err = strconv.ParseInt(string(bytes), 10, 64)
		if err != nil {
			return errNotInteger
		}
	}
	if (delta > 0 && val > math.MaxInt64-delta) || (delta < 0 && val < math.MinInt64-delta) {
		return protocol.MakeErrReply("ERR increment or decrement would overflow")
	}
	val += delta
	// the ttl is kept
	db.putString(key, []byte(strconv.FormatInt(val, 10)))
	return protocol.MakeIntReply(val)
}

// execIncr increments the integer value of a key by one
func execIncr(db *DB, args [][]byte) redis.Reply {
	return incrBy(db, string(args[0]), 1)
}

// execIncrBy increments the integer value of a key by given value
func execIncrBy(db *DB, args [][]byte) redis.Reply {
	delta, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	return incrBy(db, string(args[0]), delta)
}

// execDecr decrements the integer value of a key by one
func execDecr(db *DB, args [][]byte) redis.Reply {
	return incrBy(db, string(args[0]), -1)
}

// execDecrBy decrements the integer value of a key by onedecrement
func execDecrBy(db *DB, args [][]byte) redis.Reply {
	delta, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	if delta == math.MinInt64 {
		return protocol.MakeErrReply("ERR decrement would overflow")
	}
	return incrBy(db, string(args[0]), -delta)
}

// execIncrByFloat increments the float value of a key by given value
func execIncrByFloat(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	delta, err := decimal.NewFromString(string(args[1]))
	if err != nil {
		return errNotFloat
	}
	bytes, errReply := db.getAsString(key)
	if errReply != nil {
		return errReply
	}
	val := decimal.Zero
	if bytes != nil {
		val, err = decimal.NewFromString(string(bytes))
		if err != nil {
			return errNotFloat
		}
	}
	result := val.Add(delta)
	if f, _ := result.Float64(); math.IsInf(f, 0) || math.IsNaN(f) {
		return protocol.MakeErrReply("ERR increment would produce NaN or Infinity")
	}
	resultBytes := []byte(result.String())
	db.putString(key, resultBytes)
	return protocol.MakeBulkReply(resultBytes)
}

// execAppend sets string value to the given key
func execAppend(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	joined := make([]byte, 0, len(bytes)+len(args[1]))
	joined = append(joined, bytes...)
	joined = append(joined, args[1]...)
	db.putString(key, joined)
	return protocol.MakeIntReply(int64(len(joined)))
}

// execStrLen returns len of string value bound to the given key
func execStrLen(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	return protocol.MakeIntReply(int64(len(bytes)))
}

// execGetRange returns a substring of the string stored at a key, start and end are inclusive
func execGetRange(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	startIdx, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	endIdx, errReply := parseInt(args[2])
	if errReply != nil {
		return errReply
	}
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	if bytes == nil {
		return protocol.MakeBulkReply([]byte{})
	}
	from, to, ok := normalizeRange(startIdx, endIdx, int64(len(bytes)))
	if !ok {
		return protocol.MakeBulkReply([]byte{})
	}
	return protocol.MakeBulkReply(bytes[from:to])
}

// execSetRange overwrites part of the string, padding with zero bytes
func execSetRange(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	offset, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	if offset < 0 {
		return protocol.MakeErrReply("ERR offset is out of range")
	}
	value := args[2]
	if offset+int64(len(value)) > maxStringSize {
		return protocol.MakeErrReply("ERR string exceeds maximum allowed size (proto-max-bulk-len)")
	}
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	if len(value) == 0 {
		return protocol.MakeIntReply(int64(len(bytes)))
	}
	size := int64(len(bytes))
	if end := offset + int64(len(value)); end > size {
		size = end
	}
	buf := make([]byte, size)
	copy(buf, bytes)
	copy(buf[offset:], value)
	db.putString(key, buf)
	return protocol.MakeIntReply(size)
}

func parseBitOffset(arg []byte) (int64, protocol.ErrorReply) {
	offset, err := strconv.ParseInt(string(arg), 10, 64)
	if err != nil || offset < 0 || offset >= maxStringSize*8 {
		return 0, protocol.MakeErrReply("ERR bit offset is not an integer or out of range")
	}
	return offset, nil
}

// execSetBit sets or clears the bit at offset and returns the previous bit
func execSetBit(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	offset, errReply := parseBitOffset(args[1])
	if errReply != nil {
		return errReply
	}
	var val byte
	switch string(args[2]) {
	case "1":
		val = 1
	case "0":
		val = 0
	default:
		return protocol.MakeErrReply("ERR bit is not an integer or out of range")
	}
	bytes, errReply := db.getAsString(key)
	if errReply != nil {
		return errReply
	}
	bm := bitmap.FromBytes(append([]byte(nil), bytes...))
	old := bm.SetBit(offset, val)
	db.putString(key, bm.ToBytes())
	return protocol.MakeIntReply(int64(old))
}

func execGetBit(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	offset, errReply := parseBitOffset(args[1])
	if errReply != nil {
		return errReply
	}
	bytes, errReply := db.getAsString(key)
	if errReply != nil {
		return errReply
	}
	return protocol.MakeIntReply(int64(bitmap.FromBytes(bytes).GetBit(offset)))
}

// execBitCount counts set bits, the range is in bytes unless BIT is given
func execBitCount(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	bm := bitmap.FromBytes(bytes)
	if len(args) == 1 {
		return protocol.MakeIntReply(bm.CountBytes(0, -1))
	}
	if len(args) != 3 && len(args) != 4 {
		return &protocol.SyntaxErrReply{}
	}
	start, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	end, errReply := parseInt(args[2])
	if errReply != nil {
		return errReply
	}
	if len(args) == 4 {
		switch strings.ToUpper(string(args[3])) {
		case "BIT":
			return protocol.MakeIntReply(bm.CountBits(start, end))
		case "BYTE":
		default:
			return &protocol.SyntaxErrReply{}
		}
	}
	return protocol.MakeIntReply(bm.CountBytes(start, end))
}

// execBitPos finds the first bit set or clear, the range is in bytes
func execBitPos(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	var bit byte
	switch string(args[1]) {
	case "1":
		bit = 1
	case "0":
		bit = 0
	default:
		return protocol.MakeErrReply("ERR The bit argument must be 1 or 0.")
	}
	if len(args) > 5 {
		return &protocol.SyntaxErrReply{}
	}
	start, end := int64(0), int64(-1)
	endGiven := false
	var errReply *protocol.StandardErrReply
	if len(args) >= 3 {
		if start, errReply = parseInt(args[2]); errReply != nil {
			return errReply
		}
	}
	if len(args) >= 4 {
		if end, errReply = parseInt(args[3]); errReply != nil {
			return errReply
		}
		endGiven = true
	}
	if len(args) == 5 && !strings.EqualFold(string(args[4]), "BYTE") {
		return &protocol.SyntaxErrReply{}
	}
	bytes, err := db.getAsString(key)
	if err != nil {
		return err
	}
	if bytes == nil {
		if bit == 1 {
			return protocol.MakeIntReply(-1)
		}
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(bitmap.FromBytes(bytes).BitPos(bit, start, end, endGiven))
}

func init() {
	registerCommand("Set", execSet, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("SetNx", execSetNX, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("SetEX", execSetEX, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("PSetEX", execPSetEX, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("MSet", execMSet, prepareMSet, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, -1, 2)
	registerCommand("MSetNx", execMSetNX, prepareMSet, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, -1, 2)
	registerCommand("MGet", execMGet, readAllKeys, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, -1, 1)
	registerCommand("Get", execGet, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("GetEX", execGetEX, writeFirstKey, -2, flagWrite).
		since(6, 2, 0).attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("GetSet", execGetSet, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("GetDel", execGetDel, writeFirstKey, 2, flagWrite).
		since(6, 2, 0).attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("Incr", execIncr, writeFirstKey, 2, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("IncrBy", execIncrBy, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("IncrByFloat", execIncrByFloat, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("Decr", execDecr, writeFirstKey, 2, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("DecrBy", execDecrBy, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("Append", execAppend, writeFirstKey, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("StrLen", execStrLen, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("GetRange", execGetRange, readFirstKey, 4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("SubStr", execGetRange, readFirstKey, 4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("SetRange", execSetRange, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("SetBit", execSetBit, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("GetBit", execGetBit, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("BitCount", execBitCount, readFirstKey, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("BitPos", execBitPos, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
}
