package database

import (
	"strconv"
	"testing"
	"time"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/connection"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/redis/protocol/asserts"
)

func TestZAdd(t *testing.T) {
	conn := makeTestConn()
	size := 100

	// add new members
	key := utils.RandString(10)
	members := make([]string, size)
	scores := make([]float64, size)
	setArgs := []string{key}
	for i := 0; i < size; i++ {
		members[i] = utils.RandString(10)
		scores[i] = float64(i)
		setArgs = append(setArgs, strconv.FormatFloat(scores[i], 'f', -1, 64), members[i])
	}
	result := testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))
	asserts.AssertIntReply(t, result, size)

	// test zscore and zrank
	for i, member := range members {
		result = testServer.Exec(conn, utils.ToCmdLine("ZScore", key, member))
		score := strconv.FormatFloat(scores[i], 'f', -1, 64)
		asserts.AssertBulkReply(t, result, score)

		result = testServer.Exec(conn, utils.ToCmdLine("ZRank", key, member))
		asserts.AssertIntReply(t, result, i)

		result = testServer.Exec(conn, utils.ToCmdLine("ZRevRank", key, member))
		asserts.AssertIntReply(t, result, size-i-1)
	}

	// test zcard
	result = testServer.Exec(conn, utils.ToCmdLine("zcard", key))
	asserts.AssertIntReply(t, result, size)

	// update members
	setArgs = []string{key}
	for i := 0; i < size; i++ {
		scores[i] = float64(i) + 100
		setArgs = append(setArgs, strconv.FormatFloat(scores[i], 'f', -1, 64), members[i])
	}
	result = testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))
	asserts.AssertIntReply(t, result, 0)
	for i, member := range members {
		result = testServer.Exec(conn, utils.ToCmdLine("ZScore", key, member))
		score := strconv.FormatFloat(scores[i], 'f', -1, 64)
		asserts.AssertBulkReply(t, result, score)
	}

	result = testServer.Exec(conn, utils.ToCmdLine("ZScore", key, "absent"))
	asserts.AssertNullBulk(t, result)
	result = testServer.Exec(conn, utils.ToCmdLine("ZRank", key, "absent"))
	asserts.AssertNullBulk(t, result)
}

func TestZAddOptions(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("zadd", key, "1", "a", "2", "b"))

	result := testServer.Exec(conn, utils.ToCmdLine("zadd", key, "nx", "5", "a", "3", "c"))
	asserts.AssertIntReply(t, result, 1)
	asserts.AssertBulkReply(t, testServer.Exec(conn, utils.ToCmdLine("zscore", key, "a")), "1")

	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "xx", "ch", "5", "a", "4", "d"))
	asserts.AssertIntReply(t, result, 1)
	asserts.AssertNullBulk(t, testServer.Exec(conn, utils.ToCmdLine("zscore", key, "d")))

	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "gt", "ch", "1", "a", "10", "b"))
	asserts.AssertIntReply(t, result, 1)
	asserts.AssertBulkReply(t, testServer.Exec(conn, utils.ToCmdLine("zscore", key, "a")), "5")

	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "lt", "ch", "1", "a", "20", "b"))
	asserts.AssertIntReply(t, result, 1)
	asserts.AssertBulkReply(t, testServer.Exec(conn, utils.ToCmdLine("zscore", key, "b")), "10")

	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "incr", "2.5", "a"))
	asserts.AssertBulkReply(t, result, "3.5")
	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "nx", "incr", "1", "a"))
	asserts.AssertNullBulk(t, result)

	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "nx", "xx", "1", "a"))
	asserts.AssertErrReply(t, result, "ERR XX and NX options at the same time are not compatible")
	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "gt", "lt", "1", "a"))
	asserts.AssertErrReply(t, result, "ERR GT, LT, and/or NX options at the same time are not compatible")
	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "incr", "1", "a", "2", "b"))
	asserts.AssertErrReply(t, result, "ERR INCR option supports a single increment-element pair")
	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "abc", "a"))
	asserts.AssertErrReply(t, result, "ERR value is not a valid float")
	result = testServer.Exec(conn, utils.ToCmdLine("zadd", key, "1", "a", "2"))
	asserts.AssertErrKind(t, result, protocol.SyntaxError)

	// xx on a missing key creates nothing
	missing := utils.RandString(10)
	result = testServer.Exec(conn, utils.ToCmdLine("zadd", missing, "xx", "1", "a"))
	asserts.AssertIntReply(t, result, 0)
	asserts.AssertIntReply(t, testServer.Exec(conn, utils.ToCmdLine("exists", missing)), 0)
}

func TestZIncrBy(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	result := testServer.Exec(conn, utils.ToCmdLine("zincrby", key, "1.5", "a"))
	asserts.AssertBulkReply(t, result, "1.5")
	result = testServer.Exec(conn, utils.ToCmdLine("zincrby", key, "1.5", "a"))
	asserts.AssertBulkReply(t, result, "3")
	result = testServer.Exec(conn, utils.ToCmdLine("zincrby", key, "inf", "b"))
	asserts.AssertBulkReply(t, result, "inf")
	result = testServer.Exec(conn, utils.ToCmdLine("zincrby", key, "-inf", "b"))
	asserts.AssertErrReply(t, result, "ERR resulting score is not a number (NaN)")
}

func TestZRange(t *testing.T) {
	// prepare
	conn := makeTestConn()
	size := 100
	key := utils.RandString(10)
	members := make([]string, size)
	scores := make([]int, size)
	setArgs := []string{key}
	for i := 0; i < size; i++ {
		members[i] = strconv.Itoa(i)
		scores[i] = i
		setArgs = append(setArgs, strconv.Itoa(scores[i]), members[i])
	}
	testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))
	reverseMembers := make([]string, size)
	for i, v := range members {
		reverseMembers[size-i-1] = v
	}

	start := "0"
	end := "9"
	result := testServer.Exec(conn, utils.ToCmdLine("ZRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, members[0:10])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, start, end, "WITHSCORES"))
	asserts.AssertMultiBulkReplySize(t, result, 20)
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, reverseMembers[0:10])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, start, end, "REV"))
	asserts.AssertMultiBulkReply(t, result, reverseMembers[0:10])

	start = "0"
	end = "200"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, members)
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, reverseMembers)

	start = "-10"
	end = "-1"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, members[90:])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, reverseMembers[90:])

	start = "50"
	end = "-200"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, start, end))
	asserts.AssertMultiBulkReply(t, result, []string{})

	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, "0", "9", "LIMIT", "0", "1"))
	asserts.AssertErrReply(t, result, "ERR syntax error, LIMIT is only supported in combination with either BYSCORE or BYLEX")
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, "0", "9", "BYLEX"))
	asserts.AssertErrKind(t, result, protocol.SyntaxError)
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", utils.RandString(10), "0", "9"))
	asserts.AssertMultiBulkReplySize(t, result, 0)
}

func TestZRangeWithScores(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("zadd", key, "2.5", "b", "1", "a", "-inf", "z"))
	result := testServer.Exec(conn, utils.ToCmdLine("zrange", key, "0", "-1", "withscores"))
	asserts.AssertMultiBulkReply(t, result, []string{"z", "-inf", "a", "1", "b", "2.5"})
	result = testServer.Exec(conn, utils.ToCmdLine("zmscore", key, "b", "absent"))
	asserts.AssertMultiBulkReply(t, result, []string{"2.5", ""})
}

func TestZRangeByScore(t *testing.T) {
	// prepare
	conn := makeTestConn()
	size := 100
	key := utils.RandString(10)
	members := make([]string, size)
	scores := make([]int, size)
	setArgs := []string{key}
	for i := 0; i < size; i++ {
		members[i] = strconv.FormatInt(int64(i), 10)
		scores[i] = i
		setArgs = append(setArgs, strconv.FormatInt(int64(scores[i]), 10), members[i])
	}
	result := testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))
	asserts.AssertIntReply(t, result, size)

	min := "20"
	max := "30"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, min, max))
	asserts.AssertMultiBulkReply(t, result, members[20:31])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, min, max, "BYSCORE"))
	asserts.AssertMultiBulkReply(t, result, members[20:31])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, min, max, "WithScores"))
	asserts.AssertMultiBulkReplySize(t, result, 22)
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRangeByScore", key, max, min))
	asserts.AssertMultiBulkReply(t, result, reverse(members[20:31]))
	result = testServer.Exec(conn, utils.ToCmdLine("ZRange", key, max, min, "BYSCORE", "REV"))
	asserts.AssertMultiBulkReply(t, result, reverse(members[20:31]))

	min = "-10"
	max = "10"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, min, max))
	asserts.AssertMultiBulkReply(t, result, members[0:11])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRangeByScore", key, max, min))
	asserts.AssertMultiBulkReply(t, result, reverse(members[0:11]))

	min = "90"
	max = "110"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, min, max))
	asserts.AssertMultiBulkReply(t, result, members[90:])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRangeByScore", key, max, min))
	asserts.AssertMultiBulkReply(t, result, reverse(members[90:]))

	min = "(20"
	max = "(30"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, min, max))
	asserts.AssertMultiBulkReply(t, result, members[21:30])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRangeByScore", key, max, min))
	asserts.AssertMultiBulkReply(t, result, reverse(members[21:30]))

	min = "20"
	max = "40"
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, min, max, "LIMIT", "5", "5"))
	asserts.AssertMultiBulkReply(t, result, members[25:30])
	result = testServer.Exec(conn, utils.ToCmdLine("ZRevRangeByScore", key, max, min, "LIMIT", "5", "5"))
	asserts.AssertMultiBulkReply(t, result, reverse(members[31:36]))

	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, "abc", max))
	asserts.AssertErrReply(t, result, "ERR min or max is not a float")
	result = testServer.Exec(conn, utils.ToCmdLine("ZRangeByScore", key, "-inf", "+inf"))
	asserts.AssertMultiBulkReplySize(t, result, size)
}

func reverse(src []string) []string {
	result := make([]string, len(src))
	for i, v := range src {
		result[len(src)-i-1] = v
	}
	return result
}

func TestZCount(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	for i := 0; i < 10; i++ {
		testServer.Exec(conn, utils.ToCmdLine("zadd", key, strconv.Itoa(i), strconv.Itoa(i)))
	}
	result := testServer.Exec(conn, utils.ToCmdLine("zcount", key, "2", "5"))
	asserts.AssertIntReply(t, result, 4)
	result = testServer.Exec(conn, utils.ToCmdLine("zcount", key, "(2", "(5"))
	asserts.AssertIntReply(t, result, 2)
	result = testServer.Exec(conn, utils.ToCmdLine("zcount", key, "-inf", "+inf"))
	asserts.AssertIntReply(t, result, 10)
	result = testServer.Exec(conn, utils.ToCmdLine("zcount", utils.RandString(10), "-inf", "+inf"))
	asserts.AssertIntReply(t, result, 0)
}

func TestZRem(t *testing.T) {
	conn := makeTestConn()
	size := 100
	key := utils.RandString(10)
	members := make([]string, size)
	scores := make([]int, size)
	setArgs := []string{key}
	for i := 0; i < size; i++ {
		members[i] = strconv.FormatInt(int64(i), 10)
		scores[i] = i
		setArgs = append(setArgs, strconv.FormatInt(int64(scores[i]), 10), members[i])
	}
	testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))

	args := []string{key}
	args = append(args, members[0:10]...)
	result := testServer.Exec(conn, utils.ToCmdLine2("zrem", args...))
	asserts.AssertIntReply(t, result, 10)
	result = testServer.Exec(conn, utils.ToCmdLine("zcard", key))
	asserts.AssertIntReply(t, result, size-10)

	// test ZRemRangeByRank
	testServer.Exec(conn, utils.ToCmdLine("FlushAll"))
	size = 100
	key = utils.RandString(10)
	members = make([]string, size)
	scores = make([]int, size)
	setArgs = []string{key}
	for i := 0; i < size; i++ {
		members[i] = strconv.FormatInt(int64(i), 10)
		scores[i] = i
		setArgs = append(setArgs, strconv.FormatInt(int64(scores[i]), 10), members[i])
	}
	testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))

	result = testServer.Exec(conn, utils.ToCmdLine("ZRemRangeByRank", key, "0", "9"))
	asserts.AssertIntReply(t, result, 10)
	result = testServer.Exec(conn, utils.ToCmdLine("zcard", key))
	asserts.AssertIntReply(t, result, size-10)

	// test ZRemRangeByScore
	testServer.Exec(conn, utils.ToCmdLine("FlushAll"))
	key = utils.RandString(10)
	setArgs = []string{key}
	for i := 0; i < size; i++ {
		setArgs = append(setArgs, strconv.FormatInt(int64(scores[i]), 10), members[i])
	}
	testServer.Exec(conn, utils.ToCmdLine2("zadd", setArgs...))

	result = testServer.Exec(conn, utils.ToCmdLine("ZRemRangeByScore", key, "0", "9"))
	asserts.AssertIntReply(t, result, 10)
	result = testServer.Exec(conn, utils.ToCmdLine("zcard", key))
	asserts.AssertIntReply(t, result, size-10)

	// removing the last members deletes the key
	result = testServer.Exec(conn, utils.ToCmdLine("ZRemRangeByRank", key, "0", "-1"))
	asserts.AssertIntReply(t, result, size-10)
	result = testServer.Exec(conn, utils.ToCmdLine("exists", key))
	asserts.AssertIntReply(t, result, 0)
}

func TestZPop(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("zadd", key, "1", "a", "2", "b", "3", "c", "4", "d"))

	result := testServer.Exec(conn, utils.ToCmdLine("zpopmin", key))
	asserts.AssertMultiBulkReply(t, result, []string{"a", "1"})
	result = testServer.Exec(conn, utils.ToCmdLine("zpopmax", key, "2"))
	asserts.AssertMultiBulkReply(t, result, []string{"d", "4", "c", "3"})
	result = testServer.Exec(conn, utils.ToCmdLine("zpopmin", key, "10"))
	asserts.AssertMultiBulkReply(t, result, []string{"b", "2"})
	result = testServer.Exec(conn, utils.ToCmdLine("exists", key))
	asserts.AssertIntReply(t, result, 0)

	result = testServer.Exec(conn, utils.ToCmdLine("zpopmin", key))
	asserts.AssertMultiBulkReplySize(t, result, 0)
	result = testServer.Exec(conn, utils.ToCmdLine("zpopmin", key, "-1"))
	asserts.AssertErrReply(t, result, "ERR value is out of range, must be positive")
}

func TestBZPop(t *testing.T) {
	conn := makeTestConn()
	key1 := utils.RandString(10)
	key2 := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("zadd", key2, "1", "a", "2", "b"))

	// served immediately from the first non-empty key
	result := testServer.Exec(conn, utils.ToCmdLine("bzpopmin", key1, key2, "0"))
	asserts.AssertMultiBulkReply(t, result, []string{key2, "a", "1"})
	result = testServer.Exec(conn, utils.ToCmdLine("bzpopmax", key1, key2, "0"))
	asserts.AssertMultiBulkReply(t, result, []string{key2, "b", "2"})

	result = testServer.Exec(conn, utils.ToCmdLine("bzpopmin", key1, "0.05"))
	asserts.AssertNullMultiBulk(t, result)

	done := make(chan redis.Reply, 1)
	go func() {
		done <- testServer.Exec(connection.NewFakeConn(), utils.ToCmdLine("bzpopmax", key1, key2, "0"))
	}()
	waitBlocked(t, testServer, 1)
	testServer.Exec(conn, utils.ToCmdLine("zadd", key1, "5", "x", "7", "y"))
	select {
	case reply := <-done:
		asserts.AssertMultiBulkReply(t, reply, []string{key1, "y", "7"})
	case <-time.After(time.Second):
		t.Fatal("bzpopmax is not served")
	}
	result = testServer.Exec(conn, utils.ToCmdLine("zcard", key1))
	asserts.AssertIntReply(t, result, 1)
}

func TestZScan(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("zadd", key, "1.5", "a", "2", "b", "3", "c"))
	result := testServer.Exec(conn, utils.ToCmdLine("zscan", key, "0", "match", "[ab]"))
	raw, ok := result.(*protocol.MultiRawReply)
	if !ok {
		t.Fatalf("illegal zscan reply %s", result.ToBytes())
	}
	asserts.AssertBulkReply(t, raw.Replies[0], "0")
	asserts.AssertMultiBulkReply(t, raw.Replies[1], []string{"a", "1.5", "b", "2"})
}

func TestZSetWrongType(t *testing.T) {
	conn := makeTestConn()
	key := utils.RandString(10)
	testServer.Exec(conn, utils.ToCmdLine("set", key, "v"))
	for _, cmdLine := range [][]string{
		{"zadd", key, "1", "a"},
		{"zscore", key, "a"},
		{"zrange", key, "0", "-1"},
		{"zpopmin", key},
		{"bzpopmin", key, "0"},
	} {
		result := testServer.Exec(conn, utils.ToCmdLine(cmdLine...))
		asserts.AssertErrKind(t, result, protocol.WrongType)
	}
}
