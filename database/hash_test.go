package database

import (
	"sort"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/redis/protocol/asserts"
)

func TestHSet(t *testing.T) {
	conn := makeTestConn()
	size := 100

	// test hset
	key := utils.RandString(10)
	values := make(map[string][]byte, size)
	for i := 0; i < size; i++ {
		value := utils.RandString(10)
		field := strconv.Itoa(i)
		values[field] = []byte(value)
		result := testServer.Exec(conn, utils.ToCmdLine("hset", key, field, value))
		asserts.AssertIntReply(t, result, 1)
	}

	// test hget, hexists and hstrlen
	for field, v := range values {
		actual := testServer.Exec(conn, utils.ToCmdLine("hget", key, field))
		asserts.AssertBulkReply(t, actual, string(v))
		actual = testServer.Exec(conn, utils.ToCmdLine("hexists", key, field))
		asserts.AssertIntReply(t, actual, 1)
		actual = testServer.Exec(conn, utils.ToCmdLine("hstrlen", key, field))
		asserts.AssertIntReply(t, actual, len(v))
	}

	// test hlen
	actual := testServer.Exec(conn, utils.ToCmdLine("hlen", key))
	asserts.AssertIntReply(t, actual, len(values))

	// overwrite returns 0
	actual = testServer.Exec(conn, utils.ToCmdLine("hset", key, "0", "x", "new", "y"))
	asserts.AssertIntReply(t, actual, 1)
	actual = testServer.Exec(conn, utils.ToCmdLine("hset", key, "0"))
	asserts.AssertErrReply(t, actual, "ERR wrong number of arguments for 'hset' command")
}

func TestHDel(t *testing.T) {
	conn := makeTestConn()
	size := 100

	// set values
	key := utils.RandString(10)
	fields := make([]string, size)
	for i := 0; i < size; i++ {
		value := utils.RandString(10)
		field := strconv.Itoa(i)
		fields[i] = field
		testServer.Exec(conn, utils.ToCmdLine("hset", key, field, value))
	}

	// test HDel
	args := []string{key}
	args = append(args, fields...)
	actual := testServer.Exec(conn, utils.ToCmdLine2("hdel", args...))
	asserts.AssertIntReply(t, actual, len(fields))

	actual = testServer.Exec(conn, utils.ToCmdLine("hlen", key))
	asserts.AssertIntReply(t, actual, 0)
	// the empty hash is removed
	actual = testServer.Exec(conn, utils.ToCmdLine("exists", key))
	asserts.AssertIntReply(t, actual, 0)
}

func TestHMSet(t *testing.T) {
	conn := makeTestConn()
	size := 20

	// test hmset
	key := utils.RandString(10)
	fields := make([]string, size)
	values := make([]string, size)
	setArgs := []string{key}
	for i := 0; i < size; i++ {
		fields[i] = utils.RandString(10)
		values[i] = utils.RandString(10)
		setArgs = append(setArgs, fields[i], values[i])
	}
	result := testServer.Exec(conn, utils.ToCmdLine2("hmset", setArgs...))
	asserts.AssertStatusReply(t, result, "OK")

	// test HMGet
	getArgs := []string{key}
	getArgs = append(getArgs, fields...)
	actual := testServer.Exec(conn, utils.ToCmdLine2("hmget", getArgs...))
	asserts.AssertMultiBulkReply(t, actual, values)

	actual = testServer.Exec(conn, utils.ToCmdLine("hmget", key, fields[0], "absent"))
	asserts.AssertMultiBulkReply(t, actual, []string{values[0], ""})
}

func TestHGetAll(t *testing.T) {
	conn := makeTestConn()
	size := 20
	key := utils.RandString(10)
	fields := make([]string, size)
	valueSet := make(map[string]bool, size)
	for i := 0; i < size; i++ {
		fields[i] = utils.RandString(10)
		value := utils.RandString(10)
		valueSet[value] = true
		testServer.Exec(conn, utils.ToCmdLine("hset", key, fields[i], value))
	}

	// test HGetAll
	result := testServer.Exec(conn, utils.ToCmdLine("hgetall", key))
	multiBulk, ok := result.(*protocol.MultiBulkReply)
	if !ok {
		t.Fatalf("expected MultiBulkReply, actually %s", string(result.ToBytes()))
	}
	if 2*len(fields) != len(multiBulk.Args) {
		t.Fatalf("expected %d items , actually %d ", 2*len(fields), len(multiBulk.Args))
	}
	for i := range multiBulk.Args {
		if i%2 == 1 && !valueSet[string(multiBulk.Args[i])] {
			t.Errorf("unexpected value %s", multiBulk.Args[i])
		}
	}

	// test HKeys
	result = testServer.Exec(conn, utils.ToCmdLine("hkeys", key))
	multiBulk, _ = result.(*protocol.MultiBulkReply)
	actualFields := make([]string, len(multiBulk.Args))
	for i, v := range multiBulk.Args {
		actualFields[i] = string(v)
	}
	sort.Strings(actualFields)
	expectedFields := append([]string(nil), fields...)
	sort.Strings(expectedFields)
	assert.Equal(t, expectedFields, actualFields)

	// test HVals
	result = testServer.Exec(conn, utils.ToCmdLine("hvals", key))
	asserts.AssertMultiBulkReplySize(t, result, size)

	result = testServer.Exec(conn, utils.ToCmdLine("hgetall", utils.RandString(10)))
	asserts.AssertMultiBulkReplySize(t, result, 0)
}

func TestHIncrBy(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("hincrby", key, "a", "1"))
	asserts.AssertIntReply(t, result, 1)
	result = testServer.Exec(conn, utils.ToCmdLine("hincrby", key, "a", "-11"))
	asserts.AssertIntReply(t, result, -10)

	result = testServer.Exec(conn, utils.ToCmdLine("hincrbyfloat", key, "b", "1.2"))
	asserts.AssertBulkReply(t, result, "1.2")
	result = testServer.Exec(conn, utils.ToCmdLine("hincrbyfloat", key, "b", "1.2"))
	asserts.AssertBulkReply(t, result, "2.4")

	testServer.Exec(conn, utils.ToCmdLine("hset", key, "c", "abc"))
	result = testServer.Exec(conn, utils.ToCmdLine("hincrby", key, "c", "1"))
	asserts.AssertErrReply(t, result, "ERR hash value is not an integer")
	result = testServer.Exec(conn, utils.ToCmdLine("hincrbyfloat", key, "c", "1"))
	asserts.AssertErrReply(t, result, "ERR hash value is not a float")
	result = testServer.Exec(conn, utils.ToCmdLine("hincrby", key, "a", "x"))
	asserts.AssertErrReply(t, result, "ERR value is not an integer or out of range")
}

func TestHSetNX(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	field := utils.RandString(10)
	value := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("hsetnx", key, field, value))
	asserts.AssertIntReply(t, result, 1)
	value2 := utils.RandString(10)
	result = testServer.Exec(conn, utils.ToCmdLine("hsetnx", key, field, value2))
	asserts.AssertIntReply(t, result, 0)
	result = testServer.Exec(conn, utils.ToCmdLine("hget", key, field))
	asserts.AssertBulkReply(t, result, value)
}

func TestHRandField(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	for i := 0; i < 5; i++ {
		testServer.Exec(conn, utils.ToCmdLine("hset", key, "f"+strconv.Itoa(i), "v"+strconv.Itoa(i)))
	}
	result := testServer.Exec(conn, utils.ToCmdLine("hrandfield", key))
	bulk, ok := result.(*protocol.BulkReply)
	if assert.True(t, ok) {
		assert.Equal(t, byte('f'), bulk.Arg[0])
	}
	result = testServer.Exec(conn, utils.ToCmdLine("hrandfield", key, "10"))
	asserts.AssertMultiBulkReplySize(t, result, 5)
	result = testServer.Exec(conn, utils.ToCmdLine("hrandfield", key, "-10"))
	asserts.AssertMultiBulkReplySize(t, result, 10)
	result = testServer.Exec(conn, utils.ToCmdLine("hrandfield", key, "3", "withvalues"))
	asserts.AssertMultiBulkReplySize(t, result, 6)
	pairs := result.(*protocol.MultiBulkReply).Args
	for i := 0; i < len(pairs); i += 2 {
		assert.Equal(t, "v"+string(pairs[i][1:]), string(pairs[i+1]))
	}

	result = testServer.Exec(conn, utils.ToCmdLine("hrandfield", utils.RandString(10)))
	asserts.AssertNullBulk(t, result)
}

func TestHScan(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	for i := 0; i < 3; i++ {
		testServer.Exec(conn, utils.ToCmdLine("hset", key, "a"+strconv.Itoa(i), "v"))
		testServer.Exec(conn, utils.ToCmdLine("hset", key, "b"+strconv.Itoa(i), "v"))
	}
	result := testServer.Exec(conn, utils.ToCmdLine("hscan", key, "0", "match", "a*", "count", "100"))
	raw, ok := result.(*protocol.MultiRawReply)
	if !ok {
		t.Fatalf("illegal hscan reply %s", result.ToBytes())
	}
	asserts.AssertBulkReply(t, raw.Replies[0], "0")
	asserts.AssertMultiBulkReply(t, raw.Replies[1], []string{"a0", "v", "a1", "v", "a2", "v"})
}
