package database

import (
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/protocol"
)

func init() {
	registerSysCommand("Multi", execStartMulti, nil, 1, flagNoMulti|flagNoScript)
	registerSysCommand("Exec", execMulti, nil, 1, flagNoMulti|flagNoScript)
	registerSysCommand("Discard", execDiscard, nil, 1, flagNoMulti|flagNoScript)
	registerSysCommand("Watch", execWatch, nil, -2, flagNoMulti|flagNoScript|flagReadOnly)
	registerSysCommand("Unwatch", execUnwatch, nil, 1, flagNoMulti|flagNoScript|flagReadOnly)
}

// execWatch set watching keys
func execWatch(ec *execContext, args [][]byte) redis.Reply {
	conn := ec.conn
	if conn.InMultiState() {
		return protocol.MakeErrReply("ERR WATCH inside MULTI is not allowed")
	}
	db := ec.db()
	watching := conn.GetWatching()
	for _, bkey := range args {
		key := string(bkey)
		watching[redis.WatchKey{DB: db.index, Key: key}] = db.GetVersion(key)
	}
	return protocol.MakeOkReply()
}

func execUnwatch(ec *execContext, args [][]byte) redis.Reply {
	ec.conn.ClearWatching()
	return protocol.MakeOkReply()
}

// invoker should hold the server lock
func (server *Server) isWatchingChanged(watching map[redis.WatchKey]uint64) bool {
	for wk, ver := range watching {
		db, errReply := server.selectDB(wk.DB)
		if errReply != nil {
			continue
		}
		if db.GetVersion(wk.Key) != ver {
			return true
		}
	}
	return false
}

// execStartMulti starts multi-command-transaction
func execStartMulti(ec *execContext, args [][]byte) redis.Reply {
	if ec.conn.InMultiState() {
		return protocol.MakeErrReply("ERR MULTI calls can not be nested")
	}
	ec.conn.SetMultiState(true)
	return protocol.MakeOkReply()
}

// execMulti replays queued commands atomically, the transaction state is cleared in every case
func execMulti(ec *execContext, args [][]byte) redis.Reply {
	conn := ec.conn
	if !conn.InMultiState() {
		return protocol.MakeErrReply("ERR EXEC without MULTI")
	}
	txErrors := conn.GetTxErrors()
	cmdLines := conn.GetQueuedCmdLine()
	watching := make(map[redis.WatchKey]uint64, len(conn.GetWatching()))
	for k, v := range conn.GetWatching() {
		watching[k] = v
	}
	conn.SetMultiState(false)

	if len(txErrors) > 0 {
		return protocol.MakeErrReply("EXECABORT Transaction discarded because of previous errors.")
	}
	if ec.server.isWatchingChanged(watching) {
		return protocol.MakeNullMultiBulkReply()
	}
	return ec.server.execQueued(ec, cmdLines)
}

// execQueued executes commands one after another, failed commands don't roll back the others.
// Blocked clients are served after the last command.
func (server *Server) execQueued(ec *execContext, cmdLines []CmdLine) redis.Reply {
	server.holdReady()
	defer server.releaseReady()
	nested := &execContext{ctx: ec.ctx, server: server, conn: ec.conn, nested: true}
	results := make([]redis.Reply, 0, len(cmdLines))
	for _, cmdLine := range cmdLines {
		cmd := cmdTable[utils.ToLowerName(cmdLine)]
		unread := ec.conn.MailboxSize()
		result := server.execCommand(nested, cmd, cmdLine)
		if _, ok := result.(*protocol.NoReply); ok {
			// subscribe style commands answer through the mailbox
			result = acksReply(ec.conn.TakeMessagesAfter(unread))
		}
		results = append(results, result)
	}
	return protocol.MakeMultiRawReply(results)
}

func acksReply(acks []redis.Reply) redis.Reply {
	if len(acks) == 1 {
		return acks[0]
	}
	return protocol.MakeMultiRawReply(acks)
}

// execDiscard drops MULTI pending commands
func execDiscard(ec *execContext, args [][]byte) redis.Reply {
	if !ec.conn.InMultiState() {
		return protocol.MakeErrReply("ERR DISCARD without MULTI")
	}
	ec.conn.SetMultiState(false)
	return protocol.MakeOkReply()
}
