package connection

import "github.com/fakedis/fakedis/interface/redis"

// NewFakeConn creates an in-process connection for tests
func NewFakeConn() *Connection {
	return NewConn("")
}

// DrainMessages pops every message in the mailbox
func (c *Connection) DrainMessages() []redis.Reply {
	var result []redis.Reply
	for {
		msg := c.PopMessage()
		if msg == nil {
			return result
		}
		result = append(result, msg)
	}
}
