package database

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

var (
	errNotInteger = protocol.MakeErrReply("ERR value is not an integer or out of range")
	errNotFloat   = protocol.MakeErrReply("ERR value is not a valid float")
	errOutOfRange = protocol.MakeErrReply("ERR index out of range")
	errNoSuchKey  = protocol.MakeErrReply("ERR no such key")
	errSyntax     = protocol.MakeErrReply("ERR syntax error")
)

func parseInt(arg []byte) (int64, *protocol.StandardErrReply) {
	v, err := strconv.ParseInt(string(arg), 10, 64)
	if err != nil {
		return 0, errNotInteger
	}
	return v, nil
}

// parsePositiveCount parses the optional count of pop commands
func parsePositiveCount(arg []byte) (int, *protocol.StandardErrReply) {
	v, err := strconv.ParseInt(string(arg), 10, 64)
	if err != nil || v < 0 {
		return 0, protocol.MakeErrReply("ERR value is out of range, must be positive")
	}
	return int(v), nil
}

func parseFloat(arg []byte) (float64, *protocol.StandardErrReply) {
	v, err := strconv.ParseFloat(string(arg), 64)
	if err != nil || math.IsNaN(v) {
		return 0, errNotFloat
	}
	return v, nil
}

// formatFloat renders a float the way redis replies INCRBYFLOAT and scores
func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	if math.IsInf(v, -1) {
		return "-inf"
	}
	return decimal.NewFromFloat(v).String()
}

// parseTimeout parses timeout of blocking commands given in seconds, 0 means no timeout
func parseTimeout(arg []byte) (time.Duration, *protocol.StandardErrReply) {
	v, err := strconv.ParseFloat(string(arg), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, protocol.MakeErrReply("ERR timeout is not a float or out of range")
	}
	if v < 0 {
		return 0, protocol.MakeErrReply("ERR timeout is negative")
	}
	if v*float64(time.Second) >= math.MaxInt64 {
		return 0, protocol.MakeErrReply("ERR timeout is out of range")
	}
	return time.Duration(v * float64(time.Second)), nil
}

// normalizeRange converts redis style inclusive indexes to a half-open range within [0, size)
func normalizeRange(start, stop int64, size int64) (int64, int64, bool) {
	if start < 0 {
		start += size
		if start < 0 {
			start = 0
		}
	}
	if stop < 0 {
		stop += size
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return start, stop + 1, true
}

func toBulks(vals []string) [][]byte {
	result := make([][]byte, len(vals))
	for i, v := range vals {
		result[i] = []byte(v)
	}
	return result
}

// scanReply is the [cursor, [elements]] reply of SCAN family commands
func scanReply(cursor int, elements [][]byte) *protocol.MultiRawReply {
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeBulkReply([]byte(strconv.Itoa(cursor))),
		protocol.MakeMultiBulkReply(elements),
	})
}

// scanArgs holds the options of SCAN family commands
type scanArgs struct {
	cursor  int
	pattern string
	count   int
	typ     string
}

func parseScanArgs(args [][]byte, allowType bool) (*scanArgs, *protocol.StandardErrReply) {
	cursor, err := strconv.Atoi(string(args[0]))
	if err != nil || cursor < 0 {
		return nil, protocol.MakeErrReply("ERR invalid cursor")
	}
	result := &scanArgs{cursor: cursor, pattern: "*", count: 10}
	for i := 1; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return nil, errSyntax
		}
		switch strings.ToUpper(string(args[i])) {
		case "MATCH":
			result.pattern = string(args[i+1])
		case "COUNT":
			count, err := strconv.Atoi(string(args[i+1]))
			if err != nil {
				return nil, errNotInteger
			}
			if count < 1 {
				return nil, errSyntax
			}
			result.count = count
		case "TYPE":
			if !allowType {
				return nil, errSyntax
			}
			result.typ = strings.ToLower(string(args[i+1]))
		default:
			return nil, errSyntax
		}
	}
	return result, nil
}
