package connection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func TestMailbox(t *testing.T) {
	c := NewFakeConn()
	assert.Nil(t, c.PopMessage())
	c.Push(protocol.MakeAckReply(protocol.KindSubscribe, "ch", 1))
	c.Push(&protocol.MessageReply{Kind: protocol.KindMessage, Channel: "ch", Data: []byte("hi")})
	select {
	case <-c.Notify():
	default:
		t.Error("expect notification")
	}
	assert.Equal(t, 2, c.MailboxSize())
	_ = c.Close()
	assert.True(t, c.IsClosed())
	msgs := c.DrainMessages()
	assert.Len(t, msgs, 2, "closing keeps delivered messages")
	assert.Equal(t, "message ch hi", msgs[1].(*protocol.MessageReply).String())
}

func TestSubscriptions(t *testing.T) {
	c := NewFakeConn()
	c.Subscribe("b")
	c.Subscribe("a")
	c.PSubscribe("n*")
	assert.Equal(t, 3, c.SubsCount())
	assert.Equal(t, []string{"a", "b"}, c.GetChannels())
	c.UnSubscribe("a")
	c.PUnSubscribe("n*")
	assert.Equal(t, []string{"b"}, c.GetChannels())
	assert.Empty(t, c.GetPatterns())
	assert.NotEqual(t, c.ID(), NewFakeConn().ID())
}

func TestMultiState(t *testing.T) {
	c := NewFakeConn()
	c.SetMultiState(true)
	c.EnqueueCmd([][]byte{[]byte("SET"), []byte("a"), []byte("1")})
	c.AddTxError(protocol.MakeSyntaxErrReply())
	c.GetWatching()[redis.WatchKey{DB: 0, Key: "a"}] = 1
	assert.Len(t, c.GetQueuedCmdLine(), 1)
	c.SetMultiState(false)
	assert.Empty(t, c.GetQueuedCmdLine())
	assert.Empty(t, c.GetTxErrors())
	assert.Empty(t, c.GetWatching())
}
