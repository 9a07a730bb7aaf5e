package database

import (
	"strings"

	"github.com/fakedis/fakedis/interface/redis"
)

var cmdTable = make(map[string]*command)

// SysExecFunc executes commands which need the connection or the whole server rather than a single db
type SysExecFunc func(ec *execContext, args [][]byte) redis.Reply

type command struct {
	name     string
	executor ExecFunc
	// sysExecutor is set instead of executor for connection and server level commands
	sysExecutor SysExecFunc
	// prepare returns related keys command
	prepare PreFunc
	// arity means allowed number of cmdArgs, arity < 0 means len(args) >= -arity.
	// for example: the arity of `get` is 2, `mget` is -2
	arity int
	flags int
	// minVersion is the first server version providing the command
	minVersion [3]int
	extra      *commandExtra
}

type commandExtra struct {
	signs    []string
	firstKey int
	lastKey  int
	keyStep  int
}

const flagWrite = 0

const (
	flagReadOnly = 1 << iota
	// flagBlocking commands may suspend the caller until a key becomes ready
	flagBlocking
	// flagPubSub commands are allowed while the connection is subscribed
	flagPubSub
	// flagNoScript commands cannot be called by redis.call
	flagNoScript
	// flagNoMulti commands run immediately even if a transaction is open
	flagNoMulti
	flagAdmin
	// flagNoAuth commands are allowed before authentication
	flagNoAuth
)

// registerCommand registers a normal command, which only read or modify a limited number of keys
func registerCommand(name string, executor ExecFunc, prepare PreFunc, arity int, flags int) *command {
	name = strings.ToLower(name)
	cmd := &command{
		name:     name,
		executor: executor,
		prepare:  prepare,
		arity:    arity,
		flags:    flags,
	}
	cmdTable[name] = cmd
	return cmd
}

// registerSysCommand registers a command executed against the server, such as publish, select or blpop
func registerSysCommand(name string, executor SysExecFunc, prepare PreFunc, arity int, flags int) *command {
	name = strings.ToLower(name)
	cmd := &command{
		name:        name,
		sysExecutor: executor,
		prepare:     prepare,
		arity:       arity,
		flags:       flags,
	}
	cmdTable[name] = cmd
	return cmd
}

// since marks the server version introducing the command
func (cmd *command) since(major, minor, patch int) *command {
	cmd.minVersion = [3]int{major, minor, patch}
	return cmd
}

func (cmd *command) attachCommandExtra(signs []string, firstKey int, lastKey int, keyStep int) *command {
	cmd.extra = &commandExtra{
		signs:    signs,
		firstKey: firstKey,
		lastKey:  lastKey,
		keyStep:  keyStep,
	}
	return cmd
}

func (cmd *command) is(flag int) bool {
	return cmd.flags&flag > 0
}

func validateArity(arity int, cmdArgs [][]byte) bool {
	argNum := len(cmdArgs)
	if arity >= 0 {
		return argNum == arity
	}
	return argNum >= -arity
}

func versionLess(a, b [3]int) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
