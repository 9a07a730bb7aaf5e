package database

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/connection"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/redis/protocol/asserts"
)

func TestPing(t *testing.T) {
	c := makeTestConn()
	actual := testServer.Exec(c, utils.ToCmdLine("ping"))
	asserts.AssertStatusReply(t, actual, "PONG")
	val := utils.RandString(5)
	actual = testServer.Exec(c, utils.ToCmdLine("ping", val))
	asserts.AssertBulkReply(t, actual, val)
	actual = testServer.Exec(c, utils.ToCmdLine("ping", val, val))
	asserts.AssertErrReply(t, actual, "ERR wrong number of arguments for 'ping' command")
}

func TestAuth(t *testing.T) {
	passwd := utils.RandString(10)
	server := NewServer(WithRequirePass(passwd))
	c := connection.NewFakeConn()
	ret := server.Exec(c, utils.ToCmdLine("AUTH"))
	asserts.AssertErrReply(t, ret, "ERR wrong number of arguments for 'auth' command")
	ret = server.Exec(c, utils.ToCmdLine("GET", "A"))
	asserts.AssertErrReply(t, ret, "NOAUTH Authentication required.")
	ret = server.Exec(c, utils.ToCmdLine("AUTH", passwd+"wrong"))
	asserts.AssertErrReply(t, ret, "WRONGPASS invalid username-password pair or user is disabled.")
	ret = server.Exec(c, utils.ToCmdLine("AUTH", "alice", passwd))
	asserts.AssertErrReply(t, ret, "WRONGPASS invalid username-password pair or user is disabled.")
	ret = server.Exec(c, utils.ToCmdLine("AUTH", "default", passwd))
	asserts.AssertStatusReply(t, ret, "OK")
	ret = server.Exec(c, utils.ToCmdLine("GET", "A"))
	asserts.AssertNullBulk(t, ret)

	// without requirepass any password is accepted
	other := connection.NewFakeConn()
	ret = testServer.Exec(other, utils.ToCmdLine("AUTH", "whatever"))
	asserts.AssertStatusReply(t, ret, "OK")
}

func TestHello(t *testing.T) {
	c := makeTestConn()
	ret := testServer.Exec(c, utils.ToCmdLine("hello", "2"))
	raw, ok := ret.(*protocol.MultiRawReply)
	if !ok {
		t.Fatalf("expected multi raw reply, actually %s", ret.ToBytes())
	}
	assert.Len(t, raw.Replies, 14)
	asserts.AssertBulkReply(t, raw.Replies[0], "server")
	asserts.AssertBulkReply(t, raw.Replies[1], "redis")
	asserts.AssertBulkReply(t, raw.Replies[3], "7.0.0")
	asserts.AssertIntReply(t, raw.Replies[5], 2)
	asserts.AssertIntReply(t, raw.Replies[7], int(c.ID()))

	ret = testServer.Exec(c, utils.ToCmdLine("hello", "3"))
	asserts.AssertErrReply(t, ret, "NOPROTO sorry, this protocol version is not supported.")
	ret = testServer.Exec(c, utils.ToCmdLine("hello", "two"))
	asserts.AssertErrReply(t, ret, "ERR Protocol version is not an integer or out of range")
	ret = testServer.Exec(c, utils.ToCmdLine("hello", "2", "setname", "worker-1"))
	asserts.AssertNotError(t, ret)
	asserts.AssertBulkReply(t, testServer.Exec(c, utils.ToCmdLine("client", "getname")), "worker-1")
	ret = testServer.Exec(c, utils.ToCmdLine("hello", "2", "setname"))
	asserts.AssertErrKind(t, ret, protocol.SyntaxError)
	ret = testServer.Exec(c, utils.ToCmdLine("hello", "2", "foo"))
	asserts.AssertErrKind(t, ret, protocol.SyntaxError)
}

func TestHelloAuth(t *testing.T) {
	server := NewServer(WithRequirePass("pw"))
	c := connection.NewFakeConn()
	ret := server.Exec(c, utils.ToCmdLine("hello", "2"))
	asserts.AssertErrKind(t, ret, protocol.Other)
	assert.True(t, strings.HasPrefix(string(ret.ToBytes()), "-NOAUTH HELLO must be called"))
	ret = server.Exec(c, utils.ToCmdLine("hello", "2", "auth", "default", "bad"))
	asserts.AssertErrReply(t, ret, "WRONGPASS invalid username-password pair or user is disabled.")
	ret = server.Exec(c, utils.ToCmdLine("hello", "2", "auth", "default", "pw", "setname", "me"))
	asserts.AssertNotError(t, ret)
	assert.True(t, c.IsAuthenticated())
	assert.Equal(t, "me", c.GetName())
	asserts.AssertStatusReply(t, server.Exec(c, utils.ToCmdLine("set", "a", "1")), "OK")
}

func TestClient(t *testing.T) {
	c := makeTestConn()
	asserts.AssertNullBulk(t, testServer.Exec(c, utils.ToCmdLine("client", "getname")))
	ret := testServer.Exec(c, utils.ToCmdLine("client", "setname", "cache"))
	asserts.AssertStatusReply(t, ret, "OK")
	asserts.AssertBulkReply(t, testServer.Exec(c, utils.ToCmdLine("client", "getname")), "cache")
	ret = testServer.Exec(c, utils.ToCmdLine("client", "setname", "a b"))
	asserts.AssertErrReply(t, ret, "ERR Client names cannot contain spaces, newlines or special characters.")
	ret = testServer.Exec(c, utils.ToCmdLine("client", "setname"))
	asserts.AssertErrReply(t, ret, "ERR wrong number of arguments for 'client|setname' command")

	asserts.AssertIntReply(t, testServer.Exec(c, utils.ToCmdLine("client", "id")), int(c.ID()))

	ret = testServer.Exec(c, utils.ToCmdLine("client", "setinfo", "lib-name", "go-redis"))
	asserts.AssertStatusReply(t, ret, "OK")
	ret = testServer.Exec(c, utils.ToCmdLine("client", "setinfo", "lib-color", "red"))
	asserts.AssertErrReply(t, ret, "ERR Unrecognized option 'lib-color'")

	ret = testServer.Exec(c, utils.ToCmdLine("client", "info"))
	bulk, ok := ret.(*protocol.BulkReply)
	if !ok {
		t.Fatalf("expected bulk reply, actually %s", ret.ToBytes())
	}
	assert.Contains(t, string(bulk.Arg), "id="+strconv.FormatInt(c.ID(), 10)+" ")
	assert.Contains(t, string(bulk.Arg), "name=cache")

	ret = testServer.Exec(c, utils.ToCmdLine("client", "list"))
	bulk, ok = ret.(*protocol.BulkReply)
	if !ok {
		t.Fatalf("expected bulk reply, actually %s", ret.ToBytes())
	}
	assert.Contains(t, string(bulk.Arg), "name=cache")

	ret = testServer.Exec(c, utils.ToCmdLine("client", "kill"))
	asserts.AssertErrReply(t, ret, "ERR unknown subcommand 'kill'. Try CLIENT HELP.")
}

func TestSelect(t *testing.T) {
	c := makeTestConn()
	testServer.Exec(c, utils.ToCmdLine("set", "a", "0"))
	ret := testServer.Exec(c, utils.ToCmdLine("select", "1"))
	asserts.AssertStatusReply(t, ret, "OK")
	assert.Equal(t, 1, c.GetDBIndex())
	asserts.AssertNullBulk(t, testServer.Exec(c, utils.ToCmdLine("get", "a")))

	ret = testServer.Exec(c, utils.ToCmdLine("select", "16"))
	asserts.AssertErrReply(t, ret, "ERR DB index is out of range")
	ret = testServer.Exec(c, utils.ToCmdLine("select", "-1"))
	asserts.AssertErrReply(t, ret, "ERR DB index is out of range")
	ret = testServer.Exec(c, utils.ToCmdLine("select", "x"))
	asserts.AssertErrKind(t, ret, protocol.OutOfRange)
	assert.Equal(t, 1, c.GetDBIndex())
}

func TestEchoTime(t *testing.T) {
	c := makeTestConn()
	asserts.AssertBulkReply(t, testServer.Exec(c, utils.ToCmdLine("echo", "hi")), "hi")

	ret := testServer.Exec(c, utils.ToCmdLine("time"))
	mb, ok := ret.(*protocol.MultiBulkReply)
	if !ok || len(mb.Args) != 2 {
		t.Fatalf("expected two element reply, actually %s", ret.ToBytes())
	}
	sec, err := strconv.ParseInt(string(mb.Args[0]), 10, 64)
	assert.NoError(t, err)
	assert.InDelta(t, time.Now().Unix(), sec, 2)
	usec, err := strconv.ParseInt(string(mb.Args[1]), 10, 64)
	assert.NoError(t, err)
	assert.Less(t, usec, int64(1000000))
}

func TestInfo(t *testing.T) {
	c := makeTestConn()
	testServer.Exec(c, utils.ToCmdLine("set", "a", "1"))
	testServer.Exec(c, utils.ToCmdLine("set", "b", "1", "ex", "100"))

	info := func(args ...string) string {
		ret := testServer.Exec(c, utils.ToCmdLine(append([]string{"info"}, args...)...))
		bulk, ok := ret.(*protocol.BulkReply)
		if !ok {
			t.Fatalf("expected bulk reply, actually %s", ret.ToBytes())
		}
		return string(bulk.Arg)
	}
	all := info()
	assert.Contains(t, all, "# Server")
	assert.Contains(t, all, "redis_version:7.0.0")
	assert.Contains(t, all, "# Clients")
	assert.Contains(t, all, "blocked_clients:0")
	assert.Contains(t, all, "db0:keys=2,expires=1,avg_ttl=0")

	server := info("server")
	assert.Contains(t, server, "# Server")
	assert.NotContains(t, server, "# Keyspace")
	keyspace := info("KEYSPACE")
	assert.True(t, strings.HasPrefix(keyspace, "# Keyspace"))
	assert.NotContains(t, keyspace, "# Clients")
	assert.Contains(t, info("everything"), "# Keyspace")
}

func TestQuitReset(t *testing.T) {
	server := NewServer(WithRequirePass("pw"))
	c := connection.NewFakeConn()
	asserts.AssertStatusReply(t, server.Exec(c, utils.ToCmdLine("quit")), "OK")

	server.Exec(c, utils.ToCmdLine("auth", "pw"))
	server.Exec(c, utils.ToCmdLine("select", "3"))
	server.Exec(c, utils.ToCmdLine("client", "setname", "x"))
	server.Exec(c, utils.ToCmdLine("subscribe", "ch"))
	c.DrainMessages()
	ret := server.Exec(c, utils.ToCmdLine("reset"))
	asserts.AssertStatusReply(t, ret, "RESET")
	assert.Equal(t, 0, c.SubsCount())
	assert.Equal(t, 0, c.GetDBIndex())
	assert.Equal(t, "", c.GetName())
	assert.False(t, c.IsAuthenticated())
	asserts.AssertErrReply(t, server.Exec(c, utils.ToCmdLine("get", "a")), "NOAUTH Authentication required.")
}

func TestResetTransaction(t *testing.T) {
	c := makeTestConn()
	testServer.Exec(c, utils.ToCmdLine("watch", "a"))
	testServer.Exec(c, utils.ToCmdLine("multi"))
	testServer.Exec(c, utils.ToCmdLine("set", "a", "1"))
	// reset is never queued
	ret := testServer.Exec(c, utils.ToCmdLine("reset"))
	asserts.AssertStatusReply(t, ret, "RESET")
	assert.False(t, c.InMultiState())
	assert.Empty(t, c.GetWatching())
	assert.Empty(t, c.GetQueuedCmdLine())
	asserts.AssertNullBulk(t, testServer.Exec(c, utils.ToCmdLine("get", "a")))
}
