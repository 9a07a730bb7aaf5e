package protocol

import (
	"strconv"

	"github.com/fakedis/fakedis/interface/redis"
)

// kinds of pub/sub mailbox entries
const (
	KindSubscribe    = "subscribe"
	KindUnsubscribe  = "unsubscribe"
	KindPSubscribe   = "psubscribe"
	KindPUnsubscribe = "punsubscribe"
	KindMessage      = "message"
	KindPMessage     = "pmessage"
	KindPong         = "pong"
)

// MessageReply is an entry of a connection mailbox: a subscription ack or a delivered message
type MessageReply struct {
	Kind string
	// Pattern is set for pmessage, psubscribe and punsubscribe
	Pattern string
	Channel string
	Data    []byte
	// Count is the number of subscriptions left, set for acks
	Count int
}

// MakeAckReply creates a subscription acknowledgement
func MakeAckReply(kind string, name string, count int) *MessageReply {
	msg := &MessageReply{
		Kind:  kind,
		Count: count,
	}
	if kind == KindPSubscribe || kind == KindPUnsubscribe {
		msg.Pattern = name
	} else {
		msg.Channel = name
	}
	return msg
}

// IsAck returns true for subscribe/unsubscribe acknowledgements
func (r *MessageReply) IsAck() bool {
	switch r.Kind {
	case KindSubscribe, KindUnsubscribe, KindPSubscribe, KindPUnsubscribe:
		return true
	}
	return false
}

func (r *MessageReply) name() string {
	if r.Kind == KindPSubscribe || r.Kind == KindPUnsubscribe {
		return r.Pattern
	}
	return r.Channel
}

func (r *MessageReply) toReply() redis.Reply {
	switch r.Kind {
	case KindMessage:
		return MakeMultiBulkReply([][]byte{[]byte(KindMessage), []byte(r.Channel), r.Data})
	case KindPMessage:
		return MakeMultiBulkReply([][]byte{[]byte(KindPMessage), []byte(r.Pattern), []byte(r.Channel), r.Data})
	case KindPong:
		return MakeMultiBulkReply([][]byte{[]byte(KindPong), r.Data})
	}
	var name redis.Reply = MakeBulkReply([]byte(r.name()))
	if r.name() == "" {
		name = MakeNullBulkReply()
	}
	return MakeMultiRawReply([]redis.Reply{
		MakeBulkReply([]byte(r.Kind)),
		name,
		MakeIntReply(int64(r.Count)),
	})
}

// ToBytes marshal redis.Reply
func (r *MessageReply) ToBytes() []byte {
	return r.toReply().ToBytes()
}

// String is mostly used by tests and logs
func (r *MessageReply) String() string {
	switch r.Kind {
	case KindMessage:
		return r.Kind + " " + r.Channel + " " + string(r.Data)
	case KindPMessage:
		return r.Kind + " " + r.Pattern + " " + r.Channel + " " + string(r.Data)
	}
	return r.Kind + " " + r.name() + " " + strconv.Itoa(r.Count)
}
