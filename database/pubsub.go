package database

import (
	"strings"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/pubsub"
	"github.com/fakedis/fakedis/redis/protocol"
)

// unsubscribeQuietly drops every subscription of c without acknowledgements
func unsubscribeQuietly(server *Server, c redis.Connection) {
	pubsub.UnsubscribeAll(server.hub, c)
}

func execSubscribe(ec *execContext, args [][]byte) redis.Reply {
	return pubsub.Subscribe(ec.server.hub, ec.conn, args)
}

func execUnSubscribe(ec *execContext, args [][]byte) redis.Reply {
	return pubsub.UnSubscribe(ec.server.hub, ec.conn, args)
}

func execPSubscribe(ec *execContext, args [][]byte) redis.Reply {
	return pubsub.PSubscribe(ec.server.hub, ec.conn, args)
}

func execPUnSubscribe(ec *execContext, args [][]byte) redis.Reply {
	return pubsub.PUnSubscribe(ec.server.hub, ec.conn, args)
}

// execPublish delivers a message and returns the number of receivers
func execPublish(ec *execContext, args [][]byte) redis.Reply {
	n := pubsub.Publish(ec.server.hub, string(args[0]), args[1])
	ec.server.metrics.Delivered(n)
	return protocol.MakeIntReply(int64(n))
}

// execPubSub introspects the broker: PUBSUB CHANNELS [pattern] | NUMSUB [channel ...] | NUMPAT
func execPubSub(ec *execContext, args [][]byte) redis.Reply {
	hub := ec.server.hub
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "CHANNELS":
		if len(args) > 2 {
			return protocol.MakeArgNumErrReply("pubsub|channels")
		}
		pattern := ""
		if len(args) == 2 {
			pattern = string(args[1])
		}
		return protocol.MakeMultiBulkReply(toBulks(pubsub.Channels(hub, pattern)))
	case "NUMSUB":
		replies := make([]redis.Reply, 0, 2*(len(args)-1))
		for _, channel := range args[1:] {
			n := pubsub.NumSub(hub, string(channel))
			replies = append(replies, protocol.MakeBulkReply(channel), protocol.MakeIntReply(int64(n)))
		}
		return protocol.MakeMultiRawReply(replies)
	case "NUMPAT":
		if len(args) != 1 {
			return protocol.MakeArgNumErrReply("pubsub|numpat")
		}
		return protocol.MakeIntReply(int64(pubsub.NumPat(hub)))
	}
	return protocol.MakeErrReply("ERR unknown subcommand '" + string(args[0]) + "'. Try PUBSUB HELP.")
}

func init() {
	registerSysCommand("Subscribe", execSubscribe, noPrepare, -2, flagReadOnly|flagPubSub|flagNoScript).
		attachCommandExtra([]string{Pubsub, Noscript, Loading, Stale}, 0, 0, 0)
	registerSysCommand("Unsubscribe", execUnSubscribe, noPrepare, -1, flagReadOnly|flagPubSub|flagNoScript).
		attachCommandExtra([]string{Pubsub, Noscript, Loading, Stale}, 0, 0, 0)
	registerSysCommand("PSubscribe", execPSubscribe, noPrepare, -2, flagReadOnly|flagPubSub|flagNoScript).
		attachCommandExtra([]string{Pubsub, Noscript, Loading, Stale}, 0, 0, 0)
	registerSysCommand("PUnsubscribe", execPUnSubscribe, noPrepare, -1, flagReadOnly|flagPubSub|flagNoScript).
		attachCommandExtra([]string{Pubsub, Noscript, Loading, Stale}, 0, 0, 0)
	registerSysCommand("Publish", execPublish, noPrepare, 3, flagReadOnly).
		attachCommandExtra([]string{Pubsub, Loading, Stale, Fast}, 0, 0, 0)
	registerSysCommand("PubSub", execPubSub, noPrepare, -2, flagReadOnly).
		attachCommandExtra([]string{Pubsub, Random, Loading, Stale}, 0, 0, 0)
}
