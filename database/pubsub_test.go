package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/connection"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/redis/protocol/asserts"
)

func drain(c *connection.Connection) []string {
	var result []string
	for _, msg := range c.DrainMessages() {
		result = append(result, msg.(*protocol.MessageReply).String())
	}
	return result
}

func TestPublishSubscribe(t *testing.T) {
	server := NewServer()
	subscriber := connection.NewFakeConn()
	publisher := connection.NewFakeConn()
	channel := utils.RandString(10)

	result := server.Exec(subscriber, utils.ToCmdLine("subscribe", channel, "other"))
	_, ok := result.(*protocol.NoReply)
	assert.True(t, ok)
	assert.Equal(t, []string{"subscribe " + channel + " 1", "subscribe other 2"}, drain(subscriber))

	result = server.Exec(publisher, utils.ToCmdLine("publish", channel, "hello"))
	asserts.AssertIntReply(t, result, 1)
	assert.Equal(t, []string{"message " + channel + " hello"}, drain(subscriber))

	result = server.Exec(publisher, utils.ToCmdLine("pubsub", "numsub", channel, "nobody"))
	asserts.AssertMultiBulkReply(t, result, []string{channel, "1", "nobody", "0"})
	result = server.Exec(publisher, utils.ToCmdLine("pubsub", "channels", "oth*"))
	asserts.AssertMultiBulkReply(t, result, []string{"other"})

	server.Exec(subscriber, utils.ToCmdLine("unsubscribe", channel))
	assert.Equal(t, []string{"unsubscribe " + channel + " 1"}, drain(subscriber))
	result = server.Exec(publisher, utils.ToCmdLine("publish", channel, "hello"))
	asserts.AssertIntReply(t, result, 0)

	server.Exec(subscriber, utils.ToCmdLine("unsubscribe"))
	assert.Equal(t, []string{"unsubscribe other 0"}, drain(subscriber))
	server.Exec(subscriber, utils.ToCmdLine("unsubscribe"))
	assert.Equal(t, []string{"unsubscribe  0"}, drain(subscriber))
}

func TestPatternSubscribe(t *testing.T) {
	server := NewServer()
	subscriber := connection.NewFakeConn()
	publisher := connection.NewFakeConn()

	server.Exec(subscriber, utils.ToCmdLine("psubscribe", "news.*"))
	server.Exec(subscriber, utils.ToCmdLine("subscribe", "news.tech"))
	assert.Equal(t, []string{"psubscribe news.* 1", "subscribe news.tech 2"}, drain(subscriber))

	// delivered once per matching subscription
	result := server.Exec(publisher, utils.ToCmdLine("publish", "news.tech", "go"))
	asserts.AssertIntReply(t, result, 2)
	assert.Equal(t, []string{"message news.tech go", "pmessage news.* news.tech go"}, drain(subscriber))
	result = server.Exec(publisher, utils.ToCmdLine("pubsub", "numpat"))
	asserts.AssertIntReply(t, result, 1)

	server.Exec(subscriber, utils.ToCmdLine("punsubscribe"))
	assert.Equal(t, []string{"punsubscribe news.* 1"}, drain(subscriber))
	result = server.Exec(publisher, utils.ToCmdLine("publish", "news.sport", "x"))
	asserts.AssertIntReply(t, result, 0)
}

func TestSubscribedContext(t *testing.T) {
	server := NewServer()
	subscriber := connection.NewFakeConn()
	server.Exec(subscriber, utils.ToCmdLine("subscribe", "ch"))
	drain(subscriber)

	result := server.Exec(subscriber, utils.ToCmdLine("get", "a"))
	asserts.AssertErrReply(t, result, "ERR Can't execute 'get': only (P|S)SUBSCRIBE / (P|S)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context")

	result = server.Exec(subscriber, utils.ToCmdLine("ping"))
	asserts.AssertMultiBulkReply(t, result, []string{"pong", ""})
	result = server.Exec(subscriber, utils.ToCmdLine("ping", "hi"))
	asserts.AssertMultiBulkReply(t, result, []string{"pong", "hi"})

	// RESP3 clients may run any command while subscribed
	subscriber.SetProtocol(3)
	result = server.Exec(subscriber, utils.ToCmdLine("get", "a"))
	asserts.AssertNullBulk(t, result)
	subscriber.SetProtocol(2)

	server.Exec(subscriber, utils.ToCmdLine("unsubscribe"))
	result = server.Exec(subscriber, utils.ToCmdLine("ping"))
	asserts.AssertStatusReply(t, result, "PONG")
}

func TestUnsubscribeOnClose(t *testing.T) {
	server := NewServer()
	subscriber := connection.NewFakeConn()
	publisher := connection.NewFakeConn()
	server.AddClient(subscriber)
	server.Exec(subscriber, utils.ToCmdLine("subscribe", "ch"))
	server.Exec(subscriber, utils.ToCmdLine("psubscribe", "c*"))
	server.AfterClientClose(subscriber)
	result := server.Exec(publisher, utils.ToCmdLine("publish", "ch", "x"))
	asserts.AssertIntReply(t, result, 0)
}
