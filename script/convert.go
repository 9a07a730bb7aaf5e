package script

import (
	"math"

	lua "github.com/yuin/gopher-lua"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func toLuaArray(L *lua.LState, items [][]byte) *lua.LTable {
	tbl := L.NewTable()
	for i, item := range items {
		tbl.RawSetInt(i+1, lua.LString(item))
	}
	return tbl
}

// toLua converts a command reply into the lua value seen by the script
func toLua(L *lua.LState, reply redis.Reply) lua.LValue {
	switch r := reply.(type) {
	case *protocol.IntReply:
		return lua.LNumber(r.Code)
	case *protocol.BulkReply:
		if r.Arg == nil {
			return lua.LFalse
		}
		return lua.LString(r.Arg)
	case *protocol.NullBulkReply, *protocol.NullMultiBulkReply:
		return lua.LFalse
	case *protocol.EmptyMultiBulkReply:
		return L.NewTable()
	case *protocol.MultiBulkReply:
		tbl := L.NewTable()
		for i, arg := range r.Args {
			if arg == nil {
				tbl.RawSetInt(i+1, lua.LFalse)
			} else {
				tbl.RawSetInt(i+1, lua.LString(arg))
			}
		}
		return tbl
	case *protocol.MultiRawReply:
		tbl := L.NewTable()
		for i, sub := range r.Replies {
			tbl.RawSetInt(i+1, toLua(L, sub))
		}
		return tbl
	case *protocol.StatusReply:
		return statusTable(L, r.Status)
	case *protocol.OkReply:
		return statusTable(L, "OK")
	case *protocol.PongReply:
		return statusTable(L, "PONG")
	case protocol.ErrorReply:
		return errorTable(L, r.Error())
	}
	return lua.LFalse
}

func statusTable(L *lua.LState, status string) *lua.LTable {
	tbl := L.NewTable()
	tbl.RawSetString("ok", lua.LString(status))
	return tbl
}

// fromLua converts the value returned by a script into a reply
func fromLua(v lua.LValue) redis.Reply {
	switch lv := v.(type) {
	case lua.LNumber:
		f := float64(lv)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return protocol.MakeIntReply(0)
		}
		return protocol.MakeIntReply(int64(f))
	case lua.LString:
		return protocol.MakeBulkReply([]byte(string(lv)))
	case lua.LBool:
		if bool(lv) {
			return protocol.MakeIntReply(1)
		}
		return protocol.MakeNullBulkReply()
	case *lua.LTable:
		if msg, ok := lv.RawGetString("err").(lua.LString); ok {
			return protocol.MakeErrReply(string(msg))
		}
		if status, ok := lv.RawGetString("ok").(lua.LString); ok {
			return protocol.MakeStatusReply(string(status))
		}
		replies := make([]redis.Reply, 0)
		for i := 1; ; i++ {
			item := lv.RawGetInt(i)
			if item == lua.LNil {
				break
			}
			replies = append(replies, fromLua(item))
		}
		return protocol.MakeMultiRawReply(replies)
	}
	return protocol.MakeNullBulkReply()
}
