package pubsub

import (
	"sort"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/wildcard"
	"github.com/fakedis/fakedis/redis/protocol"
)

func toStrings(args [][]byte) []string {
	result := make([]string, len(args))
	for i, b := range args {
		result[i] = string(b)
	}
	return result
}

// subscribe0 requires the invoker to lock channel, returns whether the relation is new
func subscribe0(hub *Hub, channel string, client redis.Connection) bool {
	client.Subscribe(channel)
	raw, ok := hub.subs.Get(channel)
	var subs *subscribers
	if ok {
		subs = raw.(*subscribers)
	} else {
		subs = &subscribers{}
		hub.subs.Put(channel, subs)
	}
	return subs.add(client)
}

// unsubscribe0 requires the invoker to lock channel, returns whether the relation existed
func unsubscribe0(hub *Hub, channel string, client redis.Connection) bool {
	client.UnSubscribe(channel)
	raw, ok := hub.subs.Get(channel)
	if !ok {
		return false
	}
	subs := raw.(*subscribers)
	removed := subs.remove(client)
	if len(subs.conns) == 0 {
		hub.subs.Remove(channel)
	}
	return removed
}

// Subscribe puts the connection into subscribers of the channels, an acknowledgement per channel goes to
// the connection mailbox
func Subscribe(hub *Hub, c redis.Connection, args [][]byte) redis.Reply {
	channels := toStrings(args)
	hub.subsLocker.Locks(channels...)
	defer hub.subsLocker.UnLocks(channels...)
	for _, channel := range channels {
		subscribe0(hub, channel, c)
		c.Push(protocol.MakeAckReply(protocol.KindSubscribe, channel, c.SubsCount()))
	}
	return &protocol.NoReply{}
}

// UnSubscribe removes the connection from subscribers of the channels, all subscribed channels if args is empty
func UnSubscribe(hub *Hub, c redis.Connection, args [][]byte) redis.Reply {
	var channels []string
	if len(args) > 0 {
		channels = toStrings(args)
	} else {
		channels = c.GetChannels()
	}
	if len(channels) == 0 {
		c.Push(protocol.MakeAckReply(protocol.KindUnsubscribe, "", c.SubsCount()))
		return &protocol.NoReply{}
	}
	hub.subsLocker.Locks(channels...)
	defer hub.subsLocker.UnLocks(channels...)
	for _, channel := range channels {
		unsubscribe0(hub, channel, c)
		c.Push(protocol.MakeAckReply(protocol.KindUnsubscribe, channel, c.SubsCount()))
	}
	return &protocol.NoReply{}
}

// PSubscribe puts the connection into subscribers of the patterns
func PSubscribe(hub *Hub, c redis.Connection, args [][]byte) redis.Reply {
	hub.patternMu.Lock()
	defer hub.patternMu.Unlock()
	for _, pattern := range toStrings(args) {
		c.PSubscribe(pattern)
		subs, ok := hub.patterns[pattern]
		if !ok {
			subs = &patternSubscribers{matcher: wildcard.CompilePattern(pattern)}
			hub.patterns[pattern] = subs
		}
		subs.add(c)
		c.Push(protocol.MakeAckReply(protocol.KindPSubscribe, pattern, c.SubsCount()))
	}
	return &protocol.NoReply{}
}

func punsubscribe0(hub *Hub, pattern string, c redis.Connection) {
	c.PUnSubscribe(pattern)
	subs, ok := hub.patterns[pattern]
	if !ok {
		return
	}
	subs.remove(c)
	if len(subs.conns) == 0 {
		delete(hub.patterns, pattern)
	}
}

// PUnSubscribe removes the connection from subscribers of the patterns, all subscribed patterns if args is empty
func PUnSubscribe(hub *Hub, c redis.Connection, args [][]byte) redis.Reply {
	var patterns []string
	if len(args) > 0 {
		patterns = toStrings(args)
	} else {
		patterns = c.GetPatterns()
	}
	if len(patterns) == 0 {
		c.Push(protocol.MakeAckReply(protocol.KindPUnsubscribe, "", c.SubsCount()))
		return &protocol.NoReply{}
	}
	hub.patternMu.Lock()
	defer hub.patternMu.Unlock()
	for _, pattern := range patterns {
		punsubscribe0(hub, pattern, c)
		c.Push(protocol.MakeAckReply(protocol.KindPUnsubscribe, pattern, c.SubsCount()))
	}
	return &protocol.NoReply{}
}

// UnsubscribeAll removes every subscription of a closing connection without acknowledgements
func UnsubscribeAll(hub *Hub, c redis.Connection) {
	channels := c.GetChannels()
	hub.subsLocker.Locks(channels...)
	for _, channel := range channels {
		unsubscribe0(hub, channel, c)
	}
	hub.subsLocker.UnLocks(channels...)

	hub.patternMu.Lock()
	for _, pattern := range c.GetPatterns() {
		punsubscribe0(hub, pattern, c)
	}
	hub.patternMu.Unlock()
}

// Publish sends message to subscribers of the channel and of every matching pattern.
// Receivers are the subscribers at the moment of publishing, it returns the number of receivers
func Publish(hub *Hub, channel string, message []byte) int {
	hub.subsLocker.Lock(channel)
	var exact []redis.Connection
	if raw, ok := hub.subs.Get(channel); ok {
		exact = raw.(*subscribers).snapshot()
	}
	hub.subsLocker.UnLock(channel)

	type patternTarget struct {
		pattern string
		conns   []redis.Connection
	}
	var targets []patternTarget
	hub.patternMu.RLock()
	for pattern, subs := range hub.patterns {
		if subs.matcher.IsMatch(channel) {
			targets = append(targets, patternTarget{pattern: pattern, conns: subs.snapshot()})
		}
	}
	hub.patternMu.RUnlock()
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].pattern < targets[j].pattern
	})

	count := 0
	for _, c := range exact {
		c.Push(&protocol.MessageReply{Kind: protocol.KindMessage, Channel: channel, Data: message})
		count++
	}
	for _, target := range targets {
		for _, c := range target.conns {
			c.Push(&protocol.MessageReply{
				Kind:    protocol.KindPMessage,
				Pattern: target.pattern,
				Channel: channel,
				Data:    message,
			})
			count++
		}
	}
	return count
}

// Channels lists channels having at least one subscriber, filtered by pattern if not empty
func Channels(hub *Hub, pattern string) []string {
	var matcher *wildcard.Pattern
	if pattern != "" {
		matcher = wildcard.CompilePattern(pattern)
	}
	result := make([]string, 0)
	for _, channel := range hub.subs.Keys() {
		if matcher == nil || matcher.IsMatch(channel) {
			result = append(result, channel)
		}
	}
	sort.Strings(result)
	return result
}

// NumSub returns the number of subscribers of the channel, pattern subscribers excluded
func NumSub(hub *Hub, channel string) int {
	hub.subsLocker.RLock(channel)
	defer hub.subsLocker.RUnLock(channel)
	raw, ok := hub.subs.Get(channel)
	if !ok {
		return 0
	}
	return len(raw.(*subscribers).conns)
}

// NumPat returns the number of unique patterns subscribed by any connection
func NumPat(hub *Hub) int {
	hub.patternMu.RLock()
	defer hub.patternMu.RUnlock()
	return len(hub.patterns)
}
