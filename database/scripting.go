package database

import (
	"strconv"
	"strings"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/protocol"
)

// scriptCaller runs redis.call from a script, the server lock is held by EVAL
type scriptCaller struct {
	ec *execContext
}

// CallFromScript executes one command line issued by a script
func (caller *scriptCaller) CallFromScript(cmdLine [][]byte) redis.Reply {
	server := caller.ec.server
	cmd, ok := server.lookupCommand(utils.ToLowerName(cmdLine))
	if !ok {
		return protocol.MakeErrReply("ERR Unknown Redis command called from script")
	}
	if !validateArity(cmd.arity, cmdLine) {
		return protocol.MakeErrReply("ERR Wrong number of args calling Redis command from script")
	}
	if cmd.is(flagNoScript) {
		return protocol.MakeErrReply("ERR This Redis command is not allowed from script")
	}
	ec := &execContext{
		ctx:    caller.ec.ctx,
		server: server,
		conn:   caller.ec.conn,
		nested: true,
	}
	return server.execCommand(ec, cmd, cmdLine)
}

// splitScriptArgs splits numkeys key [key ...] arg [arg ...]
func splitScriptArgs(args [][]byte) (keys [][]byte, argv [][]byte, errReply redis.Reply) {
	numKeys, err := strconv.Atoi(string(args[0]))
	if err != nil {
		return nil, nil, errNotInteger
	}
	if numKeys < 0 {
		return nil, nil, protocol.MakeErrReply("ERR Number of keys can't be negative")
	}
	if numKeys > len(args)-1 {
		return nil, nil, protocol.MakeErrReply("ERR Number of keys can't be greater than number of args")
	}
	return args[1 : numKeys+1], args[numKeys+1:], nil
}

func (ec *execContext) runScript(sha, body string, args [][]byte) redis.Reply {
	keys, argv, errReply := splitScriptArgs(args)
	if errReply != nil {
		return errReply
	}
	ec.server.holdReady()
	defer ec.server.releaseReady()
	return ec.server.scripts.Run(ec.ctx, &scriptCaller{ec: ec}, sha, body, keys, argv)
}

// execEval runs a script and caches it: EVAL script numkeys [key ...] [arg ...]
func execEval(ec *execContext, args [][]byte) redis.Reply {
	body := string(args[0])
	sha := ec.server.scripts.Load(body)
	return ec.runScript(sha, body, args[1:])
}

// execEvalSha runs a cached script: EVALSHA sha1 numkeys [key ...] [arg ...]
func execEvalSha(ec *execContext, args [][]byte) redis.Reply {
	sha := strings.ToLower(string(args[0]))
	body, ok := ec.server.scripts.Get(sha)
	if !ok {
		return protocol.MakeErrReply("NOSCRIPT No matching script. Please use EVAL.")
	}
	return ec.runScript(sha, body, args[1:])
}

// execScript implements SCRIPT LOAD|EXISTS|FLUSH
func execScript(ec *execContext, args [][]byte) redis.Reply {
	scripts := ec.server.scripts
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "LOAD":
		if len(args) != 2 {
			return protocol.MakeArgNumErrReply("script|load")
		}
		return protocol.MakeBulkReply([]byte(scripts.Load(string(args[1]))))
	case "EXISTS":
		if len(args) < 2 {
			return protocol.MakeArgNumErrReply("script|exists")
		}
		shas := make([]string, len(args)-1)
		for i, arg := range args[1:] {
			shas[i] = strings.ToLower(string(arg))
		}
		exists := scripts.Exists(shas...)
		replies := make([]redis.Reply, len(exists))
		for i, ok := range exists {
			if ok {
				replies[i] = protocol.MakeIntReply(1)
			} else {
				replies[i] = protocol.MakeIntReply(0)
			}
		}
		return protocol.MakeMultiRawReply(replies)
	case "FLUSH":
		if len(args) > 2 {
			return &protocol.SyntaxErrReply{}
		}
		if len(args) == 2 {
			mode := strings.ToUpper(string(args[1]))
			if mode != "ASYNC" && mode != "SYNC" {
				return protocol.MakeErrReply("ERR SCRIPT FLUSH only support SYNC|ASYNC option")
			}
		}
		scripts.Flush()
		return &protocol.OkReply{}
	}
	return protocol.MakeErrReply("ERR unknown subcommand '" + string(args[0]) + "'. Try SCRIPT HELP.")
}

// prepareEval returns the keys of EVAL style commands: script numkeys key [key ...] arg [arg ...]
func prepareEval(args [][]byte) ([]string, []string) {
	keys, _, errReply := splitScriptArgs(args[1:])
	if errReply != nil {
		return nil, nil
	}
	_, read := readAllKeys(keys)
	return nil, read
}

func init() {
	registerSysCommand("Eval", execEval, prepareEval, -3, flagWrite|flagNoScript).
		attachCommandExtra([]string{Noscript, Movablekeys}, 0, 0, 0)
	registerSysCommand("EvalSha", execEvalSha, prepareEval, -3, flagWrite|flagNoScript).
		attachCommandExtra([]string{Noscript, Movablekeys}, 0, 0, 0)
	registerSysCommand("Script", execScript, noPrepare, -2, flagReadOnly|flagNoScript).
		attachCommandExtra([]string{Noscript}, 0, 0, 0)
}
