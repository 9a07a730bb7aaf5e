package protocol

import (
	"errors"
	"strings"
)

// UnknownErrReply represents UnknownErr
type UnknownErrReply struct{}

var unknownErrBytes = []byte("-ERR unknown\r\n")

// ToBytes marshals redis.Reply
func (r *UnknownErrReply) ToBytes() []byte {
	return unknownErrBytes
}

func (r *UnknownErrReply) Error() string {
	return "ERR unknown"
}

// ArgNumErrReply represents wrong number of arguments for command
type ArgNumErrReply struct {
	Cmd string
}

// ToBytes marshals redis.Reply
func (r *ArgNumErrReply) ToBytes() []byte {
	return []byte("-" + r.Error() + CRLF)
}

func (r *ArgNumErrReply) Error() string {
	return "ERR wrong number of arguments for '" + r.Cmd + "' command"
}

// MakeArgNumErrReply represents wrong number of arguments for command
func MakeArgNumErrReply(cmd string) *ArgNumErrReply {
	return &ArgNumErrReply{
		Cmd: cmd,
	}
}

// SyntaxErrReply represents meeting unexpected arguments
type SyntaxErrReply struct{}

var syntaxErrBytes = []byte("-ERR syntax error\r\n")
var theSyntaxErrReply = &SyntaxErrReply{}

// MakeSyntaxErrReply creates syntax error
func MakeSyntaxErrReply() *SyntaxErrReply {
	return theSyntaxErrReply
}

// ToBytes marshals redis.Reply
func (r *SyntaxErrReply) ToBytes() []byte {
	return syntaxErrBytes
}

func (r *SyntaxErrReply) Error() string {
	return "ERR syntax error"
}

// WrongTypeErrReply represents operation against a key holding the wrong kind of value
type WrongTypeErrReply struct{}

var wrongTypeErrBytes = []byte("-WRONGTYPE Operation against a key holding the wrong kind of value\r\n")

// ToBytes marshals redis.Reply
func (r *WrongTypeErrReply) ToBytes() []byte {
	return wrongTypeErrBytes
}

func (r *WrongTypeErrReply) Error() string {
	return "WRONGTYPE Operation against a key holding the wrong kind of value"
}

var theWrongTypeErrReply = &WrongTypeErrReply{}

// MakeWrongTypeErrReply returns the WRONGTYPE error
func MakeWrongTypeErrReply() *WrongTypeErrReply {
	return theWrongTypeErrReply
}

// ProtocolErrReply represents meeting unexpected byte during parse requests
type ProtocolErrReply struct {
	Msg string
}

// ToBytes marshals redis.Reply
func (r *ProtocolErrReply) ToBytes() []byte {
	return []byte("-" + r.Error() + CRLF)
}

func (r *ProtocolErrReply) Error() string {
	return "ERR Protocol error: '" + r.Msg + "'"
}

// MakeUnknownCommandErrReply formats the reply for a command missing in the command table
func MakeUnknownCommandErrReply(name string, args [][]byte) *StandardErrReply {
	var sb strings.Builder
	sb.WriteString("ERR unknown command '")
	sb.WriteString(name)
	sb.WriteString("', with args beginning with: ")
	for _, arg := range args {
		sb.WriteString("'")
		sb.Write(arg)
		sb.WriteString("' ")
	}
	return MakeErrReply(sb.String())
}

var (
	// ErrConnectionUnavailable is returned while the server emulates a broken connection
	ErrConnectionUnavailable = errors.New("fakedis is emulating a connection error")
	// ErrWatchAborted is returned when EXEC was aborted because a watched key changed
	ErrWatchAborted = errors.New("watched variable changed")
)

// ConnectionErrReply is answered by a server that is not connected
type ConnectionErrReply struct{}

var theConnectionErrReply = &ConnectionErrReply{}

// MakeConnectionErrReply returns the reply of a disconnected server
func MakeConnectionErrReply() *ConnectionErrReply {
	return theConnectionErrReply
}

// ToBytes marshals redis.Reply
func (r *ConnectionErrReply) ToBytes() []byte {
	return []byte("-ERR " + ErrConnectionUnavailable.Error() + CRLF)
}

func (r *ConnectionErrReply) Error() string {
	return ErrConnectionUnavailable.Error()
}

// Unwrap makes errors.Is(reply, ErrConnectionUnavailable) hold
func (r *ConnectionErrReply) Unwrap() error {
	return ErrConnectionUnavailable
}

// ErrorKind classifies errors returned by the engine
type ErrorKind int

const (
	// KindNone means err is nil
	KindNone ErrorKind = iota
	ConnectionUnavailable
	WrongType
	SyntaxError
	OutOfRange
	WatchAborted
	NoSuchScript
	ScriptError
	UnknownCommand
	Other
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case ConnectionUnavailable:
		return "connection unavailable"
	case WrongType:
		return "wrong type"
	case SyntaxError:
		return "syntax error"
	case OutOfRange:
		return "out of range"
	case WatchAborted:
		return "watch aborted"
	case NoSuchScript:
		return "no such script"
	case ScriptError:
		return "script error"
	case UnknownCommand:
		return "unknown command"
	}
	return "other"
}

var outOfRangeMarks = []string{
	"out of range",
	"not an integer",
	"not a valid float",
	"is not a float",
	"would overflow",
	"would produce NaN or Infinity",
	"timeout is negative",
	"timeout is not",
	"must be positive",
	"Invalid stream ID",
	"smaller than the target stream top item",
	"must be greater than 0-0",
}

// KindOf classifies err, it understands sentinels and error replies
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrConnectionUnavailable) {
		return ConnectionUnavailable
	}
	if errors.Is(err, ErrWatchAborted) {
		return WatchAborted
	}
	var errReply ErrorReply
	if !errors.As(err, &errReply) {
		return Other
	}
	switch errReply.(type) {
	case *WrongTypeErrReply:
		return WrongType
	case *SyntaxErrReply:
		return SyntaxError
	}
	return classify(errReply.Error())
}

func classify(msg string) ErrorKind {
	switch {
	case strings.HasPrefix(msg, "WRONGTYPE"):
		return WrongType
	case strings.HasPrefix(msg, "NOSCRIPT"):
		return NoSuchScript
	case strings.HasPrefix(msg, "ERR syntax error"):
		return SyntaxError
	case strings.HasPrefix(msg, "ERR unknown command"), strings.HasPrefix(msg, "ERR unknown subcommand"):
		return UnknownCommand
	case strings.HasPrefix(msg, "ERR Error running script"), strings.HasPrefix(msg, "ERR Error compiling script"),
		strings.Contains(msg, "script:"):
		return ScriptError
	}
	for _, mark := range outOfRangeMarks {
		if strings.Contains(msg, mark) {
			return OutOfRange
		}
	}
	return Other
}
