package redis

// WatchKey identifies a watched key, keys are watched per database
type WatchKey struct {
	DB  int
	Key string
}

// Connection represents a client bound to a server, it is either an in-process handle or a network client
type Connection interface {
	// ID is unique among all connections of a process
	ID() int64
	GetName() string
	SetName(string)

	// used for `Auth` and `Hello`
	SetPassword(string)
	GetPassword() string
	SetUsername(string)
	GetUsername() string
	IsAuthenticated() bool
	SetAuthenticated(bool)

	// client should keep its subscribing channels and patterns
	Subscribe(channel string)
	UnSubscribe(channel string)
	PSubscribe(pattern string)
	PUnSubscribe(pattern string)
	// SubsCount returns the number of channels and patterns
	SubsCount() int
	GetChannels() []string
	GetPatterns() []string
	// Push appends an out-of-band message (pub/sub delivery) to the client mailbox
	Push(msg Reply)
	// MailboxSize returns the number of unread messages
	MailboxSize() int
	// TakeMessagesAfter removes and returns the messages behind the first n
	TakeMessagesAfter(n int) []Reply

	// used for `Multi` command
	InMultiState() bool
	SetMultiState(bool)
	GetQueuedCmdLine() [][][]byte
	EnqueueCmd([][]byte)
	AddTxError(err error)
	GetTxErrors() []error
	GetWatching() map[WatchKey]uint64
	ClearWatching()

	// used for multi database
	GetDBIndex() int
	SelectDB(int)

	// protocol version negotiated by HELLO
	GetProtocol() int
	SetProtocol(int)

	// Done is closed once the connection is closed, blocked commands give up on it
	Done() <-chan struct{}
	IsClosed() bool
}
