package script

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	lua "github.com/yuin/gopher-lua"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/logger"
	"github.com/fakedis/fakedis/redis/protocol"
)

// Caller executes commands issued by redis.call
type Caller interface {
	CallFromScript(cmdLine [][]byte) redis.Reply
}

// Engine caches scripts by sha1 and runs them
type Engine struct {
	mu      sync.RWMutex
	scripts map[string]string
	// legacyErrors formats errors the way servers before 7.0 do
	legacyErrors bool
}

// NewEngine creates an Engine, errors are formatted according to the emulated major version
func NewEngine(majorVersion int) *Engine {
	return &Engine{
		scripts:      make(map[string]string),
		legacyErrors: majorVersion < 7,
	}
}

// SHA1Hex returns the lowercase hex sha1 of body
func SHA1Hex(body string) string {
	sum := sha1.Sum([]byte(body))
	return hex.EncodeToString(sum[:])
}

// Load caches a script and returns its sha1
func (e *Engine) Load(body string) string {
	sha := SHA1Hex(body)
	e.mu.Lock()
	if _, ok := e.scripts[sha]; !ok {
		logger.Debugf("script loaded: %s", sha)
	}
	e.scripts[sha] = body
	e.mu.Unlock()
	return sha
}

// Get returns a cached script, sha is case-insensitive
func (e *Engine) Get(sha string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	body, ok := e.scripts[strings.ToLower(sha)]
	return body, ok
}

// Exists reports for each sha whether it is cached
func (e *Engine) Exists(shas ...string) []bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	result := make([]bool, len(shas))
	for i, sha := range shas {
		_, result[i] = e.scripts[strings.ToLower(sha)]
	}
	return result
}

// Flush removes all cached scripts
func (e *Engine) Flush() {
	e.mu.Lock()
	e.scripts = make(map[string]string)
	e.mu.Unlock()
}

// scriptError is raised inside lua by redis.call and redis.error_reply
type scriptError struct {
	msg string
}

func (e *Engine) newState(ctx context.Context) (*lua.LState, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, pair := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(pair.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.name)); err != nil {
			L.Close()
			return nil, err
		}
	}
	if ctx != nil {
		L.SetContext(ctx)
	}
	return L, nil
}

// Run executes body with KEYS and ARGV bound, sha names the script in error messages
func (e *Engine) Run(ctx context.Context, caller Caller, sha string, body string, keys [][]byte, args [][]byte) redis.Reply {
	L, err := e.newState(ctx)
	if err != nil {
		return e.errorReply(sha, err.Error())
	}
	defer L.Close()

	L.SetGlobal("KEYS", toLuaArray(L, keys))
	L.SetGlobal("ARGV", toLuaArray(L, args))
	L.SetGlobal("redis", e.redisModule(L, caller))

	fn, err := L.LoadString(body)
	if err != nil {
		return protocol.MakeErrReply("ERR Error compiling script (new function): " + err.Error())
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		var apiErr *lua.ApiError
		if errors.As(err, &apiErr) {
			if tbl, ok := apiErr.Object.(*lua.LTable); ok {
				if msg, ok := tbl.RawGetString("err").(lua.LString); ok {
					return e.errorReply(sha, string(msg))
				}
			}
			return e.errorReply(sha, "ERR user_script:1: "+apiErr.Object.String())
		}
		return e.errorReply(sha, err.Error())
	}
	ret := L.Get(-1)
	L.Pop(1)
	return fromLua(ret)
}

func (e *Engine) errorReply(sha string, msg string) redis.Reply {
	if e.legacyErrors {
		msg = strings.TrimPrefix(msg, "ERR ")
		return protocol.MakeErrReply(fmt.Sprintf("ERR Error running script (call to f_%s): @user_script:1: %s", sha, msg))
	}
	if !hasErrorCode(msg) {
		msg = "ERR " + msg
	}
	return protocol.MakeErrReply(fmt.Sprintf("%s script: %s, on @user_script:1.", msg, sha))
}

// hasErrorCode reports whether msg starts with an uppercase code such as ERR or WRONGTYPE
func hasErrorCode(msg string) bool {
	code, _, found := strings.Cut(msg, " ")
	if !found || code == "" {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (e *Engine) redisModule(L *lua.LState, caller Caller) *lua.LTable {
	mod := L.NewTable()
	L.SetFuncs(mod, map[string]lua.LGFunction{
		"call": func(L *lua.LState) int {
			reply := call(L, caller)
			if errReply, ok := reply.(protocol.ErrorReply); ok {
				L.Error(errorTable(L, errReply.Error()), 1)
				return 0
			}
			L.Push(toLua(L, reply))
			return 1
		},
		"pcall": func(L *lua.LState) int {
			L.Push(toLua(L, call(L, caller)))
			return 1
		},
		"error_reply": func(L *lua.LState) int {
			L.Push(errorTable(L, L.CheckString(1)))
			return 1
		},
		"status_reply": func(L *lua.LState) int {
			tbl := L.NewTable()
			tbl.RawSetString("ok", lua.LString(L.CheckString(1)))
			L.Push(tbl)
			return 1
		},
		"sha1hex": func(L *lua.LState) int {
			L.Push(lua.LString(SHA1Hex(L.CheckString(1))))
			return 1
		},
		"log": func(L *lua.LState) int {
			logger.Debugf("script log: %s", L.ToString(2))
			return 0
		},
	})
	for name, level := range map[string]int{
		"LOG_DEBUG":   0,
		"LOG_VERBOSE": 1,
		"LOG_NOTICE":  2,
		"LOG_WARNING": 3,
	} {
		mod.RawSetString(name, lua.LNumber(level))
	}
	return mod
}

func errorTable(L *lua.LState, msg string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("err", lua.LString(msg))
	return tbl
}

func call(L *lua.LState, caller Caller) redis.Reply {
	argc := L.GetTop()
	if argc == 0 {
		return protocol.MakeErrReply("ERR Please specify at least one argument for this redis lib call")
	}
	cmdLine := make([][]byte, argc)
	for i := 1; i <= argc; i++ {
		switch v := L.Get(i).(type) {
		case lua.LString:
			cmdLine[i-1] = []byte(string(v))
		case lua.LNumber:
			cmdLine[i-1] = []byte(v.String())
		default:
			return protocol.MakeErrReply("ERR Lua redis lib command arguments must be strings or integers")
		}
	}
	return caller.CallFromScript(cmdLine)
}
