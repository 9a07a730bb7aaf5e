package client

import (
	"context"
	"time"

	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/connection"
	"github.com/fakedis/fakedis/redis/protocol"
)

// PubSub owns a dedicated connection in subscribed state
type PubSub struct {
	client *Client
	conn   *connection.Connection
}

func (c *Client) newPubSub() (*PubSub, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	return &PubSub{client: c, conn: conn}, nil
}

// Subscribe creates a PubSub subscribed to channels, acknowledgements are read with GetMessage
func (c *Client) Subscribe(ctx context.Context, channels ...string) (*PubSub, error) {
	ps, err := c.newPubSub()
	if err != nil {
		return nil, err
	}
	if len(channels) > 0 {
		if err := ps.Subscribe(ctx, channels...); err != nil {
			ps.Close()
			return nil, err
		}
	}
	return ps, nil
}

// PSubscribe creates a PubSub subscribed to patterns
func (c *Client) PSubscribe(ctx context.Context, patterns ...string) (*PubSub, error) {
	ps, err := c.newPubSub()
	if err != nil {
		return nil, err
	}
	if len(patterns) > 0 {
		if err := ps.PSubscribe(ctx, patterns...); err != nil {
			ps.Close()
			return nil, err
		}
	}
	return ps, nil
}

func (ps *PubSub) do(ctx context.Context, args ...interface{}) error {
	if ps.conn.IsClosed() {
		return ErrConnectionUnavailable
	}
	reply := ps.client.server.ExecContext(ctx, ps.conn, utils.ToArgs(args...))
	return replyErr(reply)
}

// Subscribe adds channels
func (ps *PubSub) Subscribe(ctx context.Context, channels ...string) error {
	return ps.do(ctx, withName("subscribe", channels)...)
}

// PSubscribe adds patterns
func (ps *PubSub) PSubscribe(ctx context.Context, patterns ...string) error {
	return ps.do(ctx, withName("psubscribe", patterns)...)
}

// Unsubscribe removes channels, all of them if none is given
func (ps *PubSub) Unsubscribe(ctx context.Context, channels ...string) error {
	return ps.do(ctx, withName("unsubscribe", channels)...)
}

// PUnsubscribe removes patterns, all of them if none is given
func (ps *PubSub) PUnsubscribe(ctx context.Context, patterns ...string) error {
	return ps.do(ctx, withName("punsubscribe", patterns)...)
}

// Ping checks the subscribed connection is alive
func (ps *PubSub) Ping(ctx context.Context, message ...string) error {
	return ps.do(ctx, withName("ping", message)...)
}

func (ps *PubSub) next(ignoreSubscribeMessages bool) *protocol.MessageReply {
	for {
		reply := ps.conn.PopMessage()
		if reply == nil {
			return nil
		}
		msg, ok := reply.(*protocol.MessageReply)
		if !ok {
			continue
		}
		if ignoreSubscribeMessages && msg.IsAck() {
			continue
		}
		return msg
	}
}

// GetMessage returns the next message, waiting up to timeout. A zero timeout polls without waiting.
// It returns nil when nothing arrives in time, or when the connection is closed and the messages
// delivered before are consumed
func (ps *PubSub) GetMessage(ctx context.Context, timeout time.Duration, ignoreSubscribeMessages bool) (*protocol.MessageReply, error) {
	if msg := ps.next(ignoreSubscribeMessages); msg != nil {
		return msg, nil
	}
	if timeout <= 0 || ps.conn.IsClosed() {
		return nil, nil
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	for {
		select {
		case <-ps.conn.Notify():
			if msg := ps.next(ignoreSubscribeMessages); msg != nil {
				return msg, nil
			}
		case <-timer.C:
			return ps.next(ignoreSubscribeMessages), nil
		case <-ps.conn.Done():
			return ps.next(ignoreSubscribeMessages), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// Channels returns the subscribed channels
func (ps *PubSub) Channels() []string {
	return ps.conn.GetChannels()
}

// Patterns returns the subscribed patterns
func (ps *PubSub) Patterns() []string {
	return ps.conn.GetPatterns()
}

// Disconnect drops the connection, subscriptions are removed from the server while
// messages delivered before stay readable
func (ps *PubSub) Disconnect() {
	ps.client.release(ps.conn)
}

// Close unsubscribes everything and drops the connection
func (ps *PubSub) Close() {
	ps.Disconnect()
}
