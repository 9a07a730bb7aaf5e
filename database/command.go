package database

import (
	"sort"
	"strings"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

// signs reported by COMMAND INFO
const (
	Write         = "write"
	Readonly      = "readonly"
	Denyoom       = "denyoom"
	Admin         = "admin"
	Pubsub        = "pubsub"
	Noscript      = "noscript"
	Random        = "random"
	SortForScript = "sortforscript"
	Loading       = "loading"
	Stale         = "stale"
	SkipMonitor   = "skip_monitor"
	Asking        = "asking"
	Fast          = "fast"
	Movablekeys   = "movablekeys"
)

// availableCommands lists commands provided by the emulated version, sorted by name
func (server *Server) availableCommands() []*command {
	result := make([]*command, 0, len(cmdTable))
	for _, cmd := range cmdTable {
		if versionLess(server.version, cmd.minVersion) {
			continue
		}
		result = append(result, cmd)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].name < result[j].name
	})
	return result
}

func (server *Server) lookupCommand(name string) (*command, bool) {
	cmd, ok := cmdTable[strings.ToLower(name)]
	if !ok || versionLess(server.version, cmd.minVersion) {
		return nil, false
	}
	return cmd, true
}

func (cmd *command) toReply() redis.Reply {
	extra := cmd.extra
	if extra == nil {
		extra = &commandExtra{}
	}
	signs := make([]redis.Reply, len(extra.signs))
	for i, v := range extra.signs {
		signs[i] = protocol.MakeStatusReply(v)
	}
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeBulkReply([]byte(cmd.name)),
		protocol.MakeIntReply(int64(cmd.arity)),
		protocol.MakeMultiRawReply(signs),
		protocol.MakeIntReply(int64(extra.firstKey)),
		protocol.MakeIntReply(int64(extra.lastKey)),
		protocol.MakeIntReply(int64(extra.keyStep)),
	})
}

// execCommandCmd implements COMMAND [COUNT|INFO|DOCS|LIST|GETKEYS]
func execCommandCmd(ec *execContext, args [][]byte) redis.Reply {
	server := ec.server
	if len(args) == 0 {
		cmds := server.availableCommands()
		replies := make([]redis.Reply, len(cmds))
		for i, cmd := range cmds {
			replies[i] = cmd.toReply()
		}
		return protocol.MakeMultiRawReply(replies)
	}
	subCommand := strings.ToLower(string(args[0]))
	switch subCommand {
	case "count":
		return protocol.MakeIntReply(int64(len(server.availableCommands())))
	case "list":
		cmds := server.availableCommands()
		names := make([][]byte, len(cmds))
		for i, cmd := range cmds {
			names[i] = []byte(cmd.name)
		}
		return protocol.MakeMultiBulkReply(names)
	case "info":
		replies := make([]redis.Reply, len(args)-1)
		for i, v := range args[1:] {
			if cmd, ok := server.lookupCommand(string(v)); ok {
				replies[i] = cmd.toReply()
			} else {
				replies[i] = protocol.MakeNullBulkReply()
			}
		}
		return protocol.MakeMultiRawReply(replies)
	case "docs":
		// no documentation is bundled, known commands get an empty doc map
		replies := make([]redis.Reply, 0)
		for _, v := range args[1:] {
			if cmd, ok := server.lookupCommand(string(v)); ok {
				replies = append(replies, protocol.MakeBulkReply([]byte(cmd.name)), &protocol.EmptyMultiBulkReply{})
			}
		}
		return protocol.MakeMultiRawReply(replies)
	case "getkeys":
		if len(args) < 2 {
			return protocol.MakeErrReply("ERR wrong number of arguments for 'command|getkeys' command")
		}
		return server.getKeys(args[1:])
	}
	return protocol.MakeErrReply("ERR unknown subcommand '" + subCommand + "'. Try COMMAND HELP.")
}

func (server *Server) getKeys(cmdLine [][]byte) redis.Reply {
	cmd, ok := server.lookupCommand(string(cmdLine[0]))
	if !ok {
		return protocol.MakeErrReply("ERR Invalid command specified")
	}
	if !validateArity(cmd.arity, cmdLine) {
		return protocol.MakeErrReply("ERR Invalid number of arguments specified for command")
	}
	if cmd.prepare == nil {
		return protocol.MakeErrReply("ERR The command has no key arguments")
	}
	writeKeys, readKeys := cmd.prepare(cmdLine[1:])
	keys := append(writeKeys, readKeys...)
	if len(keys) == 0 {
		return protocol.MakeErrReply("ERR The command has no key arguments")
	}
	return protocol.MakeMultiBulkReply(toBulks(keys))
}

func init() {
	registerSysCommand("Command", execCommandCmd, nil, -1, flagReadOnly).
		attachCommandExtra([]string{Random, Loading, Stale}, 0, 0, 0)
}
