package connection

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/fakedis/fakedis/interface/redis"
)

var idGenerator atomic.Int64

// Connection holds the server-side state of a client: the in-process handle and every network client
// each own one
type Connection struct {
	id   int64
	name string
	// addr is empty for in-process connections
	addr string

	// lock for the mailbox and subscriptions, which are touched by publishers of other connections
	mu sync.Mutex

	subs  map[string]struct{}
	psubs map[string]struct{}

	mailbox []redis.Reply
	notify  chan struct{}

	// password may be changed by CONFIG command during runtime, so store the password
	password      string
	username      string
	authenticated bool

	// queued commands for `multi`
	multiState bool
	queue      [][][]byte
	txErrors   []error
	watching   map[redis.WatchKey]uint64

	// selected db
	selectedDB int
	protocol   int

	closeOnce sync.Once
	done      chan struct{}
	closed    atomic.Bool
}

// NewConn creates Connection instance, addr is the remote address of network clients
func NewConn(addr string) *Connection {
	return &Connection{
		id:       idGenerator.Add(1),
		addr:     addr,
		notify:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		protocol: 2,
	}
}

// ID returns the unique id of connection
func (c *Connection) ID() int64 {
	return c.id
}

// RemoteAddr returns the remote network address, empty for in-process connections
func (c *Connection) RemoteAddr() string {
	return c.addr
}

// GetName returns the name set by CLIENT SETNAME
func (c *Connection) GetName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.name
}

// SetName sets connection name
func (c *Connection) SetName(name string) {
	c.mu.Lock()
	c.name = name
	c.mu.Unlock()
}

// Close marks the connection as closed, blocked commands of it give up.
// Messages already in the mailbox stay readable
func (c *Connection) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		close(c.done)
	})
	return nil
}

// Done is closed once the connection is closed
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// IsClosed returns true after Close
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Subscribe add current connection into subscribers of the given channel
func (c *Connection) Subscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subs == nil {
		c.subs = make(map[string]struct{})
	}
	c.subs[channel] = struct{}{}
}

// UnSubscribe removes current connection into subscribers of the given channel
func (c *Connection) UnSubscribe(channel string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subs, channel)
}

// PSubscribe records a subscribed pattern
func (c *Connection) PSubscribe(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.psubs == nil {
		c.psubs = make(map[string]struct{})
	}
	c.psubs[pattern] = struct{}{}
}

// PUnSubscribe removes a subscribed pattern
func (c *Connection) PUnSubscribe(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.psubs, pattern)
}

// SubsCount returns the number of subscribing channels and patterns
func (c *Connection) SubsCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs) + len(c.psubs)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// GetChannels returns all subscribing channels
func (c *Connection) GetChannels() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.subs)
}

// GetPatterns returns all subscribing patterns
func (c *Connection) GetPatterns() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.psubs)
}

// Push appends msg to the mailbox and wakes up the reader
func (c *Connection) Push(msg redis.Reply) {
	c.mu.Lock()
	c.mailbox = append(c.mailbox, msg)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// PopMessage removes and returns the oldest message of mailbox, nil if the mailbox is empty
func (c *Connection) PopMessage() redis.Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.mailbox) == 0 {
		return nil
	}
	msg := c.mailbox[0]
	c.mailbox[0] = nil
	c.mailbox = c.mailbox[1:]
	return msg
}

// MailboxSize returns the number of unread messages
func (c *Connection) MailboxSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mailbox)
}

// TakeMessagesAfter removes and returns the messages behind the first n of mailbox
func (c *Connection) TakeMessagesAfter(n int) []redis.Reply {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n < 0 || n >= len(c.mailbox) {
		return nil
	}
	taken := make([]redis.Reply, len(c.mailbox)-n)
	copy(taken, c.mailbox[n:])
	clear(c.mailbox[n:])
	c.mailbox = c.mailbox[:n]
	return taken
}

// Notify receives a signal after messages were pushed
func (c *Connection) Notify() <-chan struct{} {
	return c.notify
}

// SetPassword stores password for authentication
func (c *Connection) SetPassword(password string) {
	c.password = password
}

// GetPassword get password for authentication
func (c *Connection) GetPassword() string {
	return c.password
}

// SetUsername stores username for authentication
func (c *Connection) SetUsername(username string) {
	c.username = username
}

// GetUsername returns the authenticated user, empty means default
func (c *Connection) GetUsername() string {
	return c.username
}

// IsAuthenticated tells whether AUTH succeeded
func (c *Connection) IsAuthenticated() bool {
	return c.authenticated
}

// SetAuthenticated sets the authenticated flag
func (c *Connection) SetAuthenticated(v bool) {
	c.authenticated = v
}

// InMultiState tells is connection in an uncommitted transaction
func (c *Connection) InMultiState() bool {
	return c.multiState
}

// SetMultiState sets transaction flag
func (c *Connection) SetMultiState(state bool) {
	if !state { // reset data when cancel multi
		c.watching = nil
		c.queue = nil
		c.txErrors = nil
	}
	c.multiState = state
}

// GetQueuedCmdLine returns queued commands of current transaction
func (c *Connection) GetQueuedCmdLine() [][][]byte {
	return c.queue
}

// EnqueueCmd  enqueues command of current transaction
func (c *Connection) EnqueueCmd(cmdLine [][]byte) {
	c.queue = append(c.queue, cmdLine)
}

// AddTxError stores syntax error within transaction
func (c *Connection) AddTxError(err error) {
	c.txErrors = append(c.txErrors, err)
}

// GetTxErrors returns syntax error within transaction
func (c *Connection) GetTxErrors() []error {
	return c.txErrors
}

// GetWatching returns watching keys and their version code when started watching
func (c *Connection) GetWatching() map[redis.WatchKey]uint64 {
	if c.watching == nil {
		c.watching = make(map[redis.WatchKey]uint64)
	}
	return c.watching
}

// ClearWatching forgets all watched keys
func (c *Connection) ClearWatching() {
	c.watching = nil
}

// GetDBIndex returns selected db
func (c *Connection) GetDBIndex() int {
	return c.selectedDB
}

// SelectDB selects a database
func (c *Connection) SelectDB(dbNum int) {
	c.selectedDB = dbNum
}

// GetProtocol returns the protocol version negotiated by HELLO
func (c *Connection) GetProtocol() int {
	return c.protocol
}

// SetProtocol sets the protocol version
func (c *Connection) SetProtocol(v int) {
	c.protocol = v
}
