package client

import (
	"context"
	"fmt"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func withName(name string, items []string) []interface{} {
	args := make([]interface{}, 0, len(items)+1)
	args = append(args, name)
	for _, item := range items {
		args = append(args, item)
	}
	return args
}

// Watch marks keys for the next transaction
func (c *Client) Watch(ctx context.Context, keys ...string) error {
	_, err := c.Do(ctx, withName("watch", keys)...)
	return err
}

// Unwatch forgets every watched key
func (c *Client) Unwatch(ctx context.Context) error {
	_, err := c.Do(ctx, "unwatch")
	return err
}

// Multi opens a transaction, following commands answer QUEUED until Exec or Discard
func (c *Client) Multi(ctx context.Context) error {
	_, err := c.Do(ctx, "multi")
	return err
}

// Discard drops the queued commands
func (c *Client) Discard(ctx context.Context) error {
	_, err := c.Do(ctx, "discard")
	return err
}

// Exec runs the queued commands and returns one reply per command, errors included.
// It returns ErrWatchAborted when a watched key was modified
func (c *Client) Exec(ctx context.Context) ([]redis.Reply, error) {
	reply, err := c.Do(ctx, "exec")
	if err != nil {
		return nil, err
	}
	switch r := reply.(type) {
	case *protocol.NullMultiBulkReply:
		return nil, ErrWatchAborted
	case *protocol.MultiRawReply:
		return r.Replies, nil
	case *protocol.EmptyMultiBulkReply:
		return []redis.Reply{}, nil
	}
	return nil, fmt.Errorf("unexpected exec reply %q", reply.ToBytes())
}

// TxPipelined runs fn between MULTI and EXEC with keys watched, fn queues commands with Do
func (c *Client) TxPipelined(ctx context.Context, fn func(c *Client) error, keys ...string) ([]redis.Reply, error) {
	if len(keys) > 0 {
		if err := c.Watch(ctx, keys...); err != nil {
			return nil, err
		}
	}
	if err := c.Multi(ctx); err != nil {
		return nil, err
	}
	if err := fn(c); err != nil {
		_ = c.Discard(ctx)
		return nil, err
	}
	return c.Exec(ctx)
}
