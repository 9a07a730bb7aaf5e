package database

import (
	"strconv"
	"testing"
	"time"

	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/redis/protocol/asserts"
)

func TestSet(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	value := utils.RandString(10)

	// normal set
	result := testServer.Exec(conn, utils.ToCmdLine("SET", key, value))
	asserts.AssertStatusReply(t, result, "OK")
	result = testServer.Exec(conn, utils.ToCmdLine("GET", key))
	asserts.AssertBulkReply(t, result, value)

	// set nx
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "NX"))
	asserts.AssertNullBulk(t, result)
	testServer.Exec(conn, utils.ToCmdLine("DEL", key))
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "NX"))
	asserts.AssertStatusReply(t, result, "OK")

	// set xx
	other := utils.RandString(10)
	result = testServer.Exec(conn, utils.ToCmdLine("SET", other, value, "XX"))
	asserts.AssertNullBulk(t, result)
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value+"1", "XX"))
	asserts.AssertStatusReply(t, result, "OK")

	// set get
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "GET"))
	asserts.AssertBulkReply(t, result, value+"1")

	// set ex
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "EX", "1000"))
	asserts.AssertStatusReply(t, result, "OK")
	result = testServer.Exec(conn, utils.ToCmdLine("TTL", key))
	asserts.AssertIntReplyGreaterThan(t, result, 990)

	// keepttl
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "KEEPTTL"))
	asserts.AssertStatusReply(t, result, "OK")
	result = testServer.Exec(conn, utils.ToCmdLine("TTL", key))
	asserts.AssertIntReplyGreaterThan(t, result, 990)
	// plain set clears the ttl
	testServer.Exec(conn, utils.ToCmdLine("SET", key, value))
	result = testServer.Exec(conn, utils.ToCmdLine("TTL", key))
	asserts.AssertIntReply(t, result, -1)

	// illegal options
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "NX", "XX"))
	asserts.AssertErrReply(t, result, "ERR syntax error")
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "EX", "10", "PX", "100"))
	asserts.AssertErrReply(t, result, "ERR syntax error")
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "EX", "0"))
	asserts.AssertErrReply(t, result, "ERR invalid expire time in 'set' command")
	result = testServer.Exec(conn, utils.ToCmdLine("SET", key, value, "EX", "abc"))
	asserts.AssertErrReply(t, result, "ERR value is not an integer or out of range")
}

func TestSetNXAndSetEX(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("setnx", key, "a"))
	asserts.AssertIntReply(t, result, 1)
	result = testServer.Exec(conn, utils.ToCmdLine("setnx", key, "b"))
	asserts.AssertIntReply(t, result, 0)

	result = testServer.Exec(conn, utils.ToCmdLine("setex", key, "1000", "c"))
	asserts.AssertStatusReply(t, result, "OK")
	result = testServer.Exec(conn, utils.ToCmdLine("ttl", key))
	asserts.AssertIntReplyGreaterThan(t, result, 990)

	result = testServer.Exec(conn, utils.ToCmdLine("psetex", key, "1000000", "d"))
	asserts.AssertStatusReply(t, result, "OK")
	result = testServer.Exec(conn, utils.ToCmdLine("pttl", key))
	asserts.AssertIntReplyGreaterThan(t, result, 990000)
	result = testServer.Exec(conn, utils.ToCmdLine("get", key))
	asserts.AssertBulkReply(t, result, "d")

	result = testServer.Exec(conn, utils.ToCmdLine("setex", key, "-1", "c"))
	asserts.AssertErrReply(t, result, "ERR invalid expire time in 'setex' command")
}

func TestMSet(t *testing.T) {
	conn := makeTestConn()
	size := 10
	keys := make([]string, size)
	values := make([]string, size)
	var args []string
	for i := 0; i < size; i++ {
		keys[i] = utils.RandString(10)
		values[i] = utils.RandString(10)
		args = append(args, keys[i], values[i])
	}
	result := testServer.Exec(conn, utils.ToCmdLine2("mset", args...))
	asserts.AssertStatusReply(t, result, "OK")
	result = testServer.Exec(conn, utils.ToCmdLine2("mget", keys...))
	asserts.AssertMultiBulkReply(t, result, values)

	// non-string keys and absent keys are nil
	testServer.Exec(conn, utils.ToCmdLine("rpush", "list", "v"))
	result = testServer.Exec(conn, utils.ToCmdLine("mget", keys[0], "list", "absent"))
	asserts.AssertMultiBulkReply(t, result, []string{values[0], "", ""})

	result = testServer.Exec(conn, utils.ToCmdLine("mset", "a"))
	asserts.AssertErrReply(t, result, "ERR wrong number of arguments for 'mset' command")
}

func TestMSetNX(t *testing.T) {
	conn := makeTestConn()
	key1 := utils.RandString(10)
	key2 := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("msetnx", key1, "a", key2, "b"))
	asserts.AssertIntReply(t, result, 1)
	result = testServer.Exec(conn, utils.ToCmdLine("msetnx", key1, "c", utils.RandString(10), "d"))
	asserts.AssertIntReply(t, result, 0)
	result = testServer.Exec(conn, utils.ToCmdLine("get", key1))
	asserts.AssertBulkReply(t, result, "a")
}

func TestGetSetAndGetDel(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("getset", key, "a"))
	asserts.AssertNullBulk(t, result)
	result = testServer.Exec(conn, utils.ToCmdLine("getset", key, "b"))
	asserts.AssertBulkReply(t, result, "a")
	result = testServer.Exec(conn, utils.ToCmdLine("getdel", key))
	asserts.AssertBulkReply(t, result, "b")
	result = testServer.Exec(conn, utils.ToCmdLine("exists", key))
	asserts.AssertIntReply(t, result, 0)
	result = testServer.Exec(conn, utils.ToCmdLine("getdel", key))
	asserts.AssertNullBulk(t, result)
}

func TestGetEX(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("set", key, "v"))
	result := testServer.Exec(conn, utils.ToCmdLine("getex", key, "ex", "1000"))
	asserts.AssertBulkReply(t, result, "v")
	result = testServer.Exec(conn, utils.ToCmdLine("ttl", key))
	asserts.AssertIntReplyGreaterThan(t, result, 990)
	result = testServer.Exec(conn, utils.ToCmdLine("getex", key, "persist"))
	asserts.AssertBulkReply(t, result, "v")
	result = testServer.Exec(conn, utils.ToCmdLine("ttl", key))
	asserts.AssertIntReply(t, result, -1)
	result = testServer.Exec(conn, utils.ToCmdLine("getex", key, "keepttl"))
	asserts.AssertErrReply(t, result, "ERR syntax error")
	result = testServer.Exec(conn, utils.ToCmdLine("getex", utils.RandString(10)))
	asserts.AssertNullBulk(t, result)
}

func TestIncr(t *testing.T) {
	conn := makeTestConn()
	size := 10
	key := utils.RandString(10)
	for i := 0; i < size; i++ {
		result := testServer.Exec(conn, utils.ToCmdLine("incr", key))
		asserts.AssertIntReply(t, result, i+1)
	}
	for i := 0; i < size; i++ {
		result := testServer.Exec(conn, utils.ToCmdLine("incrby", key, "-1"))
		asserts.AssertIntReply(t, result, size-i-1)
	}
	result := testServer.Exec(conn, utils.ToCmdLine("decr", key))
	asserts.AssertIntReply(t, result, -1)
	result = testServer.Exec(conn, utils.ToCmdLine("decrby", key, "9"))
	asserts.AssertIntReply(t, result, -10)

	testServer.Exec(conn, utils.ToCmdLine("set", key, "abc"))
	result = testServer.Exec(conn, utils.ToCmdLine("incr", key))
	asserts.AssertErrReply(t, result, "ERR value is not an integer or out of range")
	asserts.AssertErrKind(t, result, protocol.OutOfRange)

	testServer.Exec(conn, utils.ToCmdLine("set", key, "9223372036854775807"))
	result = testServer.Exec(conn, utils.ToCmdLine("incr", key))
	asserts.AssertErrReply(t, result, "ERR increment or decrement would overflow")
}

func TestIncrByFloat(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("incrbyfloat", key, "10.5"))
	asserts.AssertBulkReply(t, result, "10.5")
	result = testServer.Exec(conn, utils.ToCmdLine("incrbyfloat", key, "0.1"))
	asserts.AssertBulkReply(t, result, "10.6")
	result = testServer.Exec(conn, utils.ToCmdLine("incrbyfloat", key, "-5"))
	asserts.AssertBulkReply(t, result, "5.6")
	result = testServer.Exec(conn, utils.ToCmdLine("get", key))
	asserts.AssertBulkReply(t, result, "5.6")
	result = testServer.Exec(conn, utils.ToCmdLine("incrbyfloat", key, "abc"))
	asserts.AssertErrReply(t, result, "ERR value is not a valid float")
}

func TestAppendAndStrLen(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("append", key, "Hello"))
	asserts.AssertIntReply(t, result, 5)
	result = testServer.Exec(conn, utils.ToCmdLine("append", key, " World"))
	asserts.AssertIntReply(t, result, 11)
	result = testServer.Exec(conn, utils.ToCmdLine("get", key))
	asserts.AssertBulkReply(t, result, "Hello World")
	result = testServer.Exec(conn, utils.ToCmdLine("strlen", key))
	asserts.AssertIntReply(t, result, 11)
	result = testServer.Exec(conn, utils.ToCmdLine("strlen", utils.RandString(10)))
	asserts.AssertIntReply(t, result, 0)
}

func TestGetRangeAndSetRange(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("set", key, "This is a string"))
	result := testServer.Exec(conn, utils.ToCmdLine("getrange", key, "0", "3"))
	asserts.AssertBulkReply(t, result, "This")
	result = testServer.Exec(conn, utils.ToCmdLine("getrange", key, "-3", "-1"))
	asserts.AssertBulkReply(t, result, "ing")
	result = testServer.Exec(conn, utils.ToCmdLine("getrange", key, "10", "100"))
	asserts.AssertBulkReply(t, result, "string")
	result = testServer.Exec(conn, utils.ToCmdLine("substr", key, "0", "-1"))
	asserts.AssertBulkReply(t, result, "This is a string")

	testServer.Exec(conn, utils.ToCmdLine("set", key, "Hello World"))
	result = testServer.Exec(conn, utils.ToCmdLine("setrange", key, "6", "Redis"))
	asserts.AssertIntReply(t, result, 11)
	result = testServer.Exec(conn, utils.ToCmdLine("get", key))
	asserts.AssertBulkReply(t, result, "Hello Redis")

	// pads with zero bytes
	key2 := utils.RandString(10)
	result = testServer.Exec(conn, utils.ToCmdLine("setrange", key2, "3", "ab"))
	asserts.AssertIntReply(t, result, 5)
	result = testServer.Exec(conn, utils.ToCmdLine("get", key2))
	asserts.AssertBulkReply(t, result, "\x00\x00\x00ab")
	result = testServer.Exec(conn, utils.ToCmdLine("setrange", key2, "-1", "ab"))
	asserts.AssertErrReply(t, result, "ERR offset is out of range")
}

func TestWrongType(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("rpush", key, "a"))
	cases := [][]string{
		{"get", key},
		{"incr", key},
		{"append", key, "x"},
		{"hset", key, "f", "v"},
		{"sadd", key, "m"},
		{"zadd", key, "1", "m"},
		{"xadd", key, "*", "f", "v"},
	}
	for _, c := range cases {
		result := testServer.Exec(conn, utils.ToCmdLine(c...))
		asserts.AssertErrReply(t, result, "WRONGTYPE Operation against a key holding the wrong kind of value")
		asserts.AssertErrKind(t, result, protocol.WrongType)
	}
	// the failed commands left the list untouched
	result := testServer.Exec(conn, utils.ToCmdLine("lrange", key, "0", "-1"))
	asserts.AssertMultiBulkReply(t, result, []string{"a"})
}

func TestBits(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	for i := 0; i < 32; i += 3 {
		result := testServer.Exec(conn, utils.ToCmdLine("setbit", key, strconv.Itoa(i), "1"))
		asserts.AssertIntReply(t, result, 0)
	}
	result := testServer.Exec(conn, utils.ToCmdLine("getbit", key, "3"))
	asserts.AssertIntReply(t, result, 1)
	result = testServer.Exec(conn, utils.ToCmdLine("getbit", key, "4"))
	asserts.AssertIntReply(t, result, 0)
	result = testServer.Exec(conn, utils.ToCmdLine("bitcount", key))
	asserts.AssertIntReply(t, result, 11)
	result = testServer.Exec(conn, utils.ToCmdLine("setbit", key, "1", "2"))
	asserts.AssertErrReply(t, result, "ERR bit is not an integer or out of range")
}

func TestExpiredStringIsAbsent(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("set", key, "v", "px", "10"))
	time.Sleep(30 * time.Millisecond)
	result := testServer.Exec(conn, utils.ToCmdLine("setnx", key, "w"))
	asserts.AssertIntReply(t, result, 1)
}
