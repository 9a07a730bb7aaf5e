package asserts

import (
	"fmt"
	"runtime"
	"testing"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/protocol"
)

// AssertIntReply checks if the given redis.Reply is the expected integer
func AssertIntReply(t *testing.T, actual redis.Reply, expected int) {
	intResult, ok := actual.(*protocol.IntReply)
	if !ok {
		t.Errorf("expected int protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if intResult.Code != int64(expected) {
		t.Errorf("expected %d, actually %d, %s", expected, intResult.Code, printStack())
	}
}

// AssertIntReplyGreaterThan checks if the given redis.Reply is an integer not less than expected
func AssertIntReplyGreaterThan(t *testing.T, actual redis.Reply, expected int) {
	intResult, ok := actual.(*protocol.IntReply)
	if !ok {
		t.Errorf("expected int protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if intResult.Code < int64(expected) {
		t.Errorf("expected %d, actually %d, %s", expected, intResult.Code, printStack())
	}
}

// AssertBulkReply checks if the given redis.Reply is the expected string
func AssertBulkReply(t *testing.T, actual redis.Reply, expected string) {
	bulkReply, ok := actual.(*protocol.BulkReply)
	if !ok || bulkReply.Arg == nil {
		t.Errorf("expected bulk protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if !utils.BytesEquals(bulkReply.Arg, []byte(expected)) {
		t.Errorf("expected %s, actually %s, %s", expected, actual.ToBytes(), printStack())
	}
}

// AssertStatusReply checks if the given redis.Reply is the expected status
func AssertStatusReply(t *testing.T, actual redis.Reply, expected string) {
	statusReply, ok := actual.(*protocol.StatusReply)
	if !ok {
		// may be a protocol.OkReply e.g.
		expectBytes := protocol.MakeStatusReply(expected).ToBytes()
		if utils.BytesEquals(actual.ToBytes(), expectBytes) {
			return
		}
		t.Errorf("expected status protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if statusReply.Status != expected {
		t.Errorf("expected %s, actually %s, %s", expected, actual.ToBytes(), printStack())
	}
}

// AssertErrReply checks if the given redis.Reply is the expected error
func AssertErrReply(t *testing.T, actual redis.Reply, expected string) {
	errReply, ok := actual.(protocol.ErrorReply)
	if !ok {
		expectBytes := protocol.MakeErrReply(expected).ToBytes()
		if utils.BytesEquals(actual.ToBytes(), expectBytes) {
			return
		}
		t.Errorf("expected err protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if errReply.Error() != expected {
		t.Errorf("expected %s, actually %s, %s", expected, actual.ToBytes(), printStack())
	}
}

// AssertErrKind checks if the given redis.Reply is an error of the expected kind
func AssertErrKind(t *testing.T, actual redis.Reply, expected protocol.ErrorKind) {
	errReply, ok := actual.(protocol.ErrorReply)
	if !ok {
		t.Errorf("expected err protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if kind := protocol.KindOf(errReply); kind != expected {
		t.Errorf("expected %s, actually %s (%s), %s", expected, kind, errReply.Error(), printStack())
	}
}

// AssertNotError checks if the given redis.Reply is not error protocol
func AssertNotError(t *testing.T, result redis.Reply) {
	if result == nil {
		t.Errorf("result is nil %s", printStack())
		return
	}
	if protocol.IsErrorReply(result) {
		t.Errorf("result is err protocol %s, %s", result.ToBytes(), printStack())
	}
}

// AssertNullBulk checks if the given redis.Reply is protocol.NullBulkReply
func AssertNullBulk(t *testing.T, result redis.Reply) {
	if result == nil {
		t.Errorf("result is nil %s", printStack())
		return
	}
	expect := protocol.MakeNullBulkReply().ToBytes()
	if !utils.BytesEquals(expect, result.ToBytes()) {
		t.Errorf("result is not null-bulk-protocol: %s, %s", result.ToBytes(), printStack())
	}
}

// AssertNullMultiBulk checks if the given redis.Reply is the null array
func AssertNullMultiBulk(t *testing.T, result redis.Reply) {
	if result == nil {
		t.Errorf("result is nil %s", printStack())
		return
	}
	expect := protocol.MakeNullMultiBulkReply().ToBytes()
	if !utils.BytesEquals(expect, result.ToBytes()) {
		t.Errorf("result is not null-multi-bulk-protocol: %s, %s", result.ToBytes(), printStack())
	}
}

func flatten(actual redis.Reply) ([][]byte, bool) {
	switch r := actual.(type) {
	case *protocol.MultiBulkReply:
		return r.Args, true
	case *protocol.EmptyMultiBulkReply:
		return nil, true
	case *protocol.MultiRawReply:
		args := make([][]byte, 0, len(r.Replies))
		for _, sub := range r.Replies {
			switch s := sub.(type) {
			case *protocol.BulkReply:
				args = append(args, s.Arg)
			case *protocol.NullBulkReply:
				args = append(args, nil)
			case *protocol.IntReply:
				args = append(args, []byte(fmt.Sprint(s.Code)))
			default:
				return nil, false
			}
		}
		return args, true
	}
	return nil, false
}

// AssertMultiBulkReply checks if the given redis.Reply has the expected content
func AssertMultiBulkReply(t *testing.T, actual redis.Reply, expected []string) {
	args, ok := flatten(actual)
	if !ok {
		t.Errorf("expected multi bulk protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if len(args) != len(expected) {
		t.Errorf("expected %d elements, actually %d, %s",
			len(expected), len(args), printStack())
		return
	}
	for i, v := range args {
		str := string(v)
		if str != expected[i] {
			t.Errorf("expected %s, actually %s, %s", expected[i], actual.ToBytes(), printStack())
		}
	}
}

// AssertMultiBulkReplySize check if redis.Reply has expected length
func AssertMultiBulkReplySize(t *testing.T, actual redis.Reply, expected int) {
	if raw, ok := actual.(*protocol.MultiRawReply); ok {
		if len(raw.Replies) != expected {
			t.Errorf("expected %d elements, actually %d, %s", expected, len(raw.Replies), printStack())
		}
		return
	}
	args, ok := flatten(actual)
	if !ok {
		t.Errorf("expected multi bulk protocol, actually %s, %s", actual.ToBytes(), printStack())
		return
	}
	if len(args) != expected {
		t.Errorf("expected %d elements, actually %d, %s", expected, len(args), printStack())
		return
	}
}

func printStack() string {
	_, file, no, ok := runtime.Caller(2)
	if ok {
		return fmt.Sprintf("at %s:%d", file, no)
	}
	return ""
}
