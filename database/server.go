package database

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fakedis/fakedis/config"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/logger"
	"github.com/fakedis/fakedis/lib/metrics"
	"github.com/fakedis/fakedis/pubsub"
	"github.com/fakedis/fakedis/redis/protocol"
	"github.com/fakedis/fakedis/script"
)

// DefaultVersion is the server version emulated unless WithVersion is given
var DefaultVersion = [3]int{7, 0, 0}

// Server is a complete emulated redis server: databases, pub/sub, blocking commands and scripts.
// One mutex guards the keyspace, the blocking coordinator and transactions, so every
// command and every EXEC batch is atomic.
type Server struct {
	mu    sync.Mutex
	dbSet []*DB

	hub      *pubsub.Hub
	scripts  *script.Engine
	blocking *coordinator
	metrics  *metrics.Metrics

	version     [3]int
	requirePass string
	connected   atomic.Bool
	startedAt   time.Time

	// clients tracks attached connections for CLIENT LIST and INFO
	clientsMu sync.Mutex
	clients   map[int64]redis.Connection
}

var _ database.DBEngine = (*Server)(nil)

type serverOptions struct {
	databases   int
	version     [3]int
	requirePass string
	connected   bool
	metrics     *metrics.Metrics
}

// Option configures a Server
type Option func(opts *serverOptions)

// WithVersion sets the emulated server version, commands introduced later are unknown
func WithVersion(major, minor, patch int) Option {
	return func(opts *serverOptions) {
		opts.version = [3]int{major, minor, patch}
	}
}

// WithDatabases sets the number of logical databases
func WithDatabases(n int) Option {
	return func(opts *serverOptions) {
		if n > 0 {
			opts.databases = n
		}
	}
}

// WithRequirePass makes the server reject commands until AUTH succeeds
func WithRequirePass(password string) Option {
	return func(opts *serverOptions) {
		opts.requirePass = password
	}
}

// WithConnected sets the initial liveness of the server
func WithConnected(connected bool) Option {
	return func(opts *serverOptions) {
		opts.connected = connected
	}
}

// WithMetrics records command statistics into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(opts *serverOptions) {
		opts.metrics = m
	}
}

// WithProperties applies a parsed config file
func WithProperties(p *config.ServerProperties) Option {
	return func(opts *serverOptions) {
		if p == nil {
			return
		}
		if p.Databases > 0 {
			opts.databases = p.Databases
		}
		opts.requirePass = p.RequirePass
		if p.Version != "" {
			if v, err := config.ParseVersion(p.Version); err == nil {
				opts.version = v
			} else {
				logger.Warnf("ignore version %q: %v", p.Version, err)
			}
		}
	}
}

// NewServer creates an isolated server
func NewServer(opts ...Option) *Server {
	options := &serverOptions{
		databases: 16,
		version:   DefaultVersion,
		connected: true,
	}
	for _, opt := range opts {
		opt(options)
	}
	server := &Server{
		hub:         pubsub.MakeHub(),
		scripts:     script.NewEngine(options.version[0]),
		blocking:    makeCoordinator(),
		metrics:     options.metrics,
		version:     options.version,
		requirePass: options.requirePass,
		startedAt:   time.Now(),
		clients:     make(map[int64]redis.Connection),
	}
	server.connected.Store(options.connected)
	server.dbSet = make([]*DB, options.databases)
	for i := range server.dbSet {
		server.dbSet[i] = makeDB(i)
	}
	logger.Debugf("server created: version %s, %d databases", server.versionString(), len(server.dbSet))
	return server
}

// Version returns the emulated server version
func (server *Server) Version() [3]int {
	return server.version
}

func (server *Server) versionString() string {
	return fmt.Sprintf("%d.%d.%d", server.version[0], server.version[1], server.version[2])
}

// Metrics returns the collectors given by WithMetrics, may be nil
func (server *Server) Metrics() *metrics.Metrics {
	return server.metrics
}

// SetConnected toggles the emulated reachability of the server.
// While disconnected every command fails and blocked commands are cancelled.
func (server *Server) SetConnected(connected bool) {
	if server.connected.Swap(connected) == connected {
		return
	}
	logger.Infof("server connected: %v", connected)
	if !connected {
		server.mu.Lock()
		server.cancelWaiters(func(w *waiter) bool { return true }, protocol.MakeConnectionErrReply())
		server.mu.Unlock()
	}
}

// IsConnected reports the emulated reachability
func (server *Server) IsConnected() bool {
	return server.connected.Load()
}

// execContext carries what a command may need beyond its database
type execContext struct {
	ctx    context.Context
	server *Server
	conn   redis.Connection
	// nested is set for commands replayed by EXEC or called by scripts, they never block
	nested bool
	// pending is a waiter registered by a blocking command, the caller waits on it after unlocking
	pending *waiter
}

func (ec *execContext) db() *DB {
	return ec.server.dbSet[ec.conn.GetDBIndex()]
}

// Exec executes command from client
func (server *Server) Exec(c redis.Connection, cmdLine [][]byte) redis.Reply {
	return server.ExecContext(context.Background(), c, cmdLine)
}

// ExecContext executes command from client, blocking commands give up when ctx is done
func (server *Server) ExecContext(ctx context.Context, c redis.Connection, cmdLine [][]byte) (result redis.Reply) {
	if len(cmdLine) == 0 {
		return protocol.MakeErrReply("ERR empty command")
	}
	if !server.connected.Load() {
		return protocol.MakeConnectionErrReply()
	}
	start := time.Now()
	cmdName := strings.ToLower(string(cmdLine[0]))
	defer func() {
		if _, known := cmdTable[cmdName]; !known {
			cmdName = "unknown"
		}
		server.metrics.ObserveCommand(cmdName, time.Since(start), protocol.IsErrorReply(result))
	}()

	ec := &execContext{ctx: ctx, server: server, conn: c}
	result = server.execLocked(ec, cmdLine)
	if ec.pending != nil {
		result = server.await(ctx, ec.pending)
	}
	return result
}

func (server *Server) execLocked(ec *execContext, cmdLine [][]byte) (result redis.Reply) {
	server.mu.Lock()
	defer server.mu.Unlock()
	defer func() {
		if err := recover(); err != nil {
			logger.Warn(fmt.Sprintf("error occurs: %v\n%s", err, string(debug.Stack())))
			ec.pending = nil
			result = &protocol.UnknownErrReply{}
		}
	}()
	return server.dispatch(ec, cmdLine)
}

// ExecWithLock executes a command while the caller already holds the server lock
func (server *Server) ExecWithLock(c redis.Connection, cmdLine [][]byte) redis.Reply {
	ec := &execContext{ctx: context.Background(), server: server, conn: c, nested: true}
	cmdName := strings.ToLower(string(cmdLine[0]))
	cmd, ok := cmdTable[cmdName]
	if !ok || versionLess(server.version, cmd.minVersion) {
		return protocol.MakeUnknownCommandErrReply(cmdName, cmdLine[1:])
	}
	if !validateArity(cmd.arity, cmdLine) {
		return protocol.MakeArgNumErrReply(cmdName)
	}
	return server.execCommand(ec, cmd, cmdLine)
}

// dispatch resolves, validates and runs one command line, queuing it when a transaction is open
func (server *Server) dispatch(ec *execContext, cmdLine [][]byte) redis.Reply {
	c := ec.conn
	cmdName := strings.ToLower(string(cmdLine[0]))
	cmd, ok := cmdTable[cmdName]
	if !ok || versionLess(server.version, cmd.minVersion) {
		errReply := protocol.MakeUnknownCommandErrReply(cmdName, cmdLine[1:])
		if c.InMultiState() {
			c.AddTxError(errReply)
		}
		return errReply
	}
	if !validateArity(cmd.arity, cmdLine) {
		errReply := protocol.MakeArgNumErrReply(cmdName)
		if c.InMultiState() {
			c.AddTxError(errReply)
		}
		return errReply
	}
	if !server.isAuthenticated(c) && !cmd.is(flagNoAuth) {
		return protocol.MakeErrReply("NOAUTH Authentication required.")
	}
	if c.SubsCount() > 0 && c.GetProtocol() < 3 && !cmd.is(flagPubSub) {
		return protocol.MakeErrReply("ERR Can't execute '" + cmdName +
			"': only (P|S)SUBSCRIBE / (P|S)UNSUBSCRIBE / PING / QUIT / RESET are allowed in this context")
	}
	if c.InMultiState() && !cmd.is(flagNoMulti) {
		c.EnqueueCmd(cmdLine)
		return protocol.MakeQueuedReply()
	}
	return server.execCommand(ec, cmd, cmdLine)
}

// execCommand runs a validated command and publishes its writes
func (server *Server) execCommand(ec *execContext, cmd *command, cmdLine [][]byte) redis.Reply {
	var result redis.Reply
	if cmd.sysExecutor != nil {
		result = cmd.sysExecutor(ec, cmdLine[1:])
	} else {
		result = cmd.executor(ec.db(), cmdLine[1:])
	}
	server.publishModified()
	if ec.pending != nil {
		// blocked, the reply comes from the coordinator
		return nil
	}
	return result
}

// publishModified touches every key the last command actually changed
func (server *Server) publishModified() {
	for _, db := range server.dbSet {
		if keys := db.takeModified(); len(keys) > 0 {
			server.touch(db, keys...)
		}
	}
}

// touch marks keys as modified: watchers get dirty and blocked clients waiting on them are served
func (server *Server) touch(db *DB, keys ...string) {
	db.addVersion(keys...)
	server.signalReady(db, keys...)
}

// HoldsConnState reports whether c has an open transaction, watched keys or subscriptions
func (server *Server) HoldsConnState(c redis.Connection) bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	return c.InMultiState() || len(c.GetWatching()) > 0 || c.SubsCount() > 0
}

// AddClient registers a connection for CLIENT LIST and INFO
func (server *Server) AddClient(c redis.Connection) {
	server.clientsMu.Lock()
	server.clients[c.ID()] = c
	server.clientsMu.Unlock()
	server.metrics.ConnectedDelta(1)
}

func (server *Server) listClients() []redis.Connection {
	server.clientsMu.Lock()
	defer server.clientsMu.Unlock()
	result := make([]redis.Connection, 0, len(server.clients))
	for _, c := range server.clients {
		result = append(result, c)
	}
	return result
}

// AfterClientClose does some clean after client close connection
func (server *Server) AfterClientClose(c redis.Connection) {
	pubsub.UnsubscribeAll(server.hub, c)
	server.mu.Lock()
	server.cancelWaiters(func(w *waiter) bool { return w.conn == c }, protocol.MakeConnectionErrReply())
	server.mu.Unlock()
	server.clientsMu.Lock()
	_, ok := server.clients[c.ID()]
	delete(server.clients, c.ID())
	server.clientsMu.Unlock()
	if ok {
		server.metrics.ConnectedDelta(-1)
	}
	logger.Debugf("connection %d closed", c.ID())
}

// Close cancels every blocked command
func (server *Server) Close() {
	server.mu.Lock()
	server.cancelWaiters(func(w *waiter) bool { return true }, protocol.MakeConnectionErrReply())
	server.mu.Unlock()
}

func (server *Server) selectDB(dbIndex int) (*DB, *protocol.StandardErrReply) {
	if dbIndex >= len(server.dbSet) || dbIndex < 0 {
		return nil, protocol.MakeErrReply("ERR DB index is out of range")
	}
	return server.dbSet[dbIndex], nil
}

// GetDBSize returns keys count and ttl key count
func (server *Server) GetDBSize(dbIndex int) (int, int) {
	server.mu.Lock()
	defer server.mu.Unlock()
	db, errReply := server.selectDB(dbIndex)
	if errReply != nil {
		return 0, 0
	}
	return db.Len(), db.ttlMap.Len()
}

// ForEach traverses all the keys in the given database
func (server *Server) ForEach(dbIndex int, cb func(key string, data *database.DataEntity, expiration *time.Time) bool) {
	server.mu.Lock()
	defer server.mu.Unlock()
	db, errReply := server.selectDB(dbIndex)
	if errReply != nil {
		return
	}
	db.ForEach(cb)
}

// GetEntity returns the value bound to key in the given database
func (server *Server) GetEntity(dbIndex int, key string) (*database.DataEntity, bool) {
	server.mu.Lock()
	defer server.mu.Unlock()
	db, errReply := server.selectDB(dbIndex)
	if errReply != nil {
		return nil, false
	}
	return db.GetEntity(key)
}

// GetExpiration returns the deadline of key, nil if the key is persistent
func (server *Server) GetExpiration(dbIndex int, key string) *time.Time {
	server.mu.Lock()
	defer server.mu.Unlock()
	db, errReply := server.selectDB(dbIndex)
	if errReply != nil {
		return nil
	}
	expireTime, ok := db.ExpireTime(key)
	if !ok {
		return nil
	}
	return &expireTime
}
