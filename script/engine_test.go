package script

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/redis/protocol/asserts"
)

// mapCaller serves GET, SET and INCR from a map
type mapCaller struct {
	data  map[string]string
	calls [][]string
}

func (c *mapCaller) CallFromScript(cmdLine [][]byte) redis.Reply {
	args := make([]string, len(cmdLine))
	for i, b := range cmdLine {
		args[i] = string(b)
	}
	c.calls = append(c.calls, args)
	switch strings.ToLower(args[0]) {
	case "get":
		v, ok := c.data[args[1]]
		if !ok {
			return protocol.MakeNullBulkReply()
		}
		return protocol.MakeBulkReply([]byte(v))
	case "set":
		c.data[args[1]] = args[2]
		return protocol.MakeOkReply()
	case "mget":
		result := make([][]byte, len(args)-1)
		for i, k := range args[1:] {
			if v, ok := c.data[k]; ok {
				result[i] = []byte(v)
			}
		}
		return protocol.MakeMultiBulkReply(result)
	case "incr":
		return protocol.MakeErrReply("ERR value is not an integer or out of range")
	}
	return protocol.MakeErrReply("ERR unknown command '" + args[0] + "'")
}

func run(e *Engine, c *mapCaller, body string, keys []string, args []string) redis.Reply {
	toBytes := func(ss []string) [][]byte {
		result := make([][]byte, len(ss))
		for i, s := range ss {
			result[i] = []byte(s)
		}
		return result
	}
	return e.Run(context.Background(), c, SHA1Hex(body), body, toBytes(keys), toBytes(args))
}

func TestRun(t *testing.T) {
	e := NewEngine(7)
	c := &mapCaller{data: map[string]string{"a": "1"}}

	asserts.AssertBulkReply(t, run(e, c, "return 'hello'", nil, nil), "hello")
	asserts.AssertIntReply(t, run(e, c, "return 42.7", nil, nil), 42)
	asserts.AssertBulkReply(t, run(e, c, "return KEYS[1] .. ':' .. ARGV[1]", []string{"user"}, []string{"123"}), "user:123")
	asserts.AssertIntReply(t, run(e, c, "return true", nil, nil), 1)
	asserts.AssertNullBulk(t, run(e, c, "return false", nil, nil))
	asserts.AssertNullBulk(t, run(e, c, "return nil", nil, nil))
	asserts.AssertStatusReply(t, run(e, c, "return redis.status_reply('FINE')", nil, nil), "FINE")
	asserts.AssertErrReply(t, run(e, c, "return redis.error_reply('MY err')", nil, nil), "MY err")
	asserts.AssertMultiBulkReply(t, run(e, c, "return {1, 'x', 3}", nil, nil), []string{"1", "x", "3"})
	asserts.AssertBulkReply(t, run(e, c, "return redis.sha1hex('')", nil, nil), "da39a3ee5e6b4b0d3255bfef95601890afd80709")
}

func TestRedisCall(t *testing.T) {
	e := NewEngine(7)
	c := &mapCaller{data: map[string]string{"a": "1"}}

	asserts.AssertBulkReply(t, run(e, c, "return redis.call('GET', KEYS[1])", []string{"a"}, nil), "1")
	asserts.AssertStatusReply(t, run(e, c, "return redis.call('SET', KEYS[1], 5)", []string{"b"}, nil), "OK")
	assert.Equal(t, "5", c.data["b"])
	asserts.AssertIntReply(t, run(e, c, "if redis.call('GET', 'nope') == false then return 1 end return 0", nil, nil), 1)
	asserts.AssertMultiBulkReply(t, run(e, c, "return redis.call('MGET', 'a', 'nope', 'b')", nil, nil), []string{"1", "", "5"})

	reply := run(e, c, "return redis.pcall('INCR', 'a')", nil, nil)
	asserts.AssertErrReply(t, reply, "ERR value is not an integer or out of range")

	reply = run(e, c, "return redis.call('INCR', 'a')", nil, nil)
	asserts.AssertErrKind(t, reply, protocol.ScriptError)
	assert.True(t, strings.HasPrefix(reply.(protocol.ErrorReply).Error(), "ERR value is not an integer or out of range script:"))

	asserts.AssertErrKind(t, run(e, c, "error('boom')", nil, nil), protocol.ScriptError)
	asserts.AssertErrKind(t, run(e, c, "return redis.call()", nil, nil), protocol.ScriptError)
}

func TestLegacyErrors(t *testing.T) {
	e := NewEngine(6)
	c := &mapCaller{data: map[string]string{}}
	reply := run(e, c, "return redis.call('INCR', 'a')", nil, nil)
	errReply, ok := reply.(protocol.ErrorReply)
	if assert.True(t, ok) {
		assert.True(t, strings.HasPrefix(errReply.Error(), "ERR Error running script"))
	}
}

func TestCompileError(t *testing.T) {
	e := NewEngine(7)
	reply := run(e, &mapCaller{}, "return (", nil, nil)
	assert.True(t, protocol.IsErrorReply(reply))
}

func TestScriptCache(t *testing.T) {
	e := NewEngine(7)
	sha := e.Load("return 1")
	assert.Equal(t, SHA1Hex("return 1"), sha)
	body, ok := e.Get(strings.ToUpper(sha))
	assert.True(t, ok)
	assert.Equal(t, "return 1", body)
	assert.Equal(t, []bool{true, false}, e.Exists(sha, "ffff"))
	e.Flush()
	assert.Equal(t, []bool{false}, e.Exists(sha))
}
