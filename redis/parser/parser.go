package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"strconv"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/logger"
	"github.com/fakedis/fakedis/redis/protocol"
)

// ErrProtocol is wrapped by errors about malformed input, the stream is still readable after them
var ErrProtocol = errors.New("Protocol error")

const maxBulkLen = 512 * 1024 * 1024

// Payload stores redis.Reply or error
type Payload struct {
	Data redis.Reply
	Err  error
}

// ParseStream reads data from io.Reader and send payloads through channel.
// The channel is closed after the first io error, which is sent as the last payload
func ParseStream(reader io.Reader) <-chan *Payload {
	ch := make(chan *Payload)
	go parse0(reader, ch)
	return ch
}

// ParseBytes reads data from []byte and return all replies
func ParseBytes(data []byte) ([]redis.Reply, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	var results []redis.Reply
	for {
		reply, err := readReply(reader)
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return nil, err
		}
		if reply != nil {
			results = append(results, reply)
		}
	}
}

// ParseOne reads data from []byte and return the first payload
func ParseOne(data []byte) (redis.Reply, error) {
	reader := bufio.NewReader(bytes.NewReader(data))
	for {
		reply, err := readReply(reader)
		if err != nil {
			if err == io.EOF {
				return nil, errors.New("no protocol")
			}
			return nil, err
		}
		if reply != nil {
			return reply, nil
		}
	}
}

func parse0(rawReader io.Reader, ch chan<- *Payload) {
	defer close(ch)
	defer func() {
		if err := recover(); err != nil {
			logger.Error(err, string(debug.Stack()))
		}
	}()
	reader := bufio.NewReader(rawReader)
	for {
		reply, err := readReply(reader)
		if err != nil {
			ch <- &Payload{Err: err}
			if errors.Is(err, ErrProtocol) {
				continue
			}
			return
		}
		if reply == nil {
			continue
		}
		ch <- &Payload{Data: reply}
	}
}

// readReply reads one value. Lines without a type prefix are inline commands, empty lines give nil
func readReply(reader *bufio.Reader) (redis.Reply, error) {
	line, err := reader.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) > 0 {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	line = bytes.TrimSuffix(bytes.TrimSuffix(line, []byte{'\n'}), []byte{'\r'})
	if len(line) == 0 {
		return nil, nil
	}
	switch line[0] {
	case '+':
		return protocol.MakeStatusReply(string(line[1:])), nil
	case '-':
		return protocol.MakeErrReply(string(line[1:])), nil
	case ':':
		value, err := strconv.ParseInt(string(line[1:]), 10, 64)
		if err != nil {
			return nil, protocolError("illegal number " + string(line[1:]))
		}
		return protocol.MakeIntReply(value), nil
	case '$':
		return readBulkString(line, reader)
	case '*':
		return readArray(line, reader)
	}
	return protocol.MakeMultiBulkReply(bytes.Fields(line)), nil
}

func readBulkString(header []byte, reader *bufio.Reader) (redis.Reply, error) {
	strLen, err := strconv.ParseInt(string(header[1:]), 10, 64)
	if err != nil || strLen < -1 || strLen > maxBulkLen {
		return nil, protocolError("invalid bulk length")
	} else if strLen == -1 {
		return protocol.MakeNullBulkReply(), nil
	}
	body := make([]byte, strLen+2)
	if _, err = io.ReadFull(reader, body); err != nil {
		return nil, err
	}
	if body[strLen] != '\r' || body[strLen+1] != '\n' {
		return nil, protocolError("bulk string is not terminated by CRLF")
	}
	return protocol.MakeBulkReply(body[:strLen]), nil
}

// readArray returns a MultiBulkReply when every element is a bulk string, a MultiRawReply otherwise
func readArray(header []byte, reader *bufio.Reader) (redis.Reply, error) {
	nStrs, err := strconv.ParseInt(string(header[1:]), 10, 64)
	if err != nil || nStrs < -1 || nStrs > 1024*1024 {
		return nil, protocolError("invalid multibulk length")
	} else if nStrs == -1 {
		return protocol.MakeNullMultiBulkReply(), nil
	} else if nStrs == 0 {
		return protocol.MakeEmptyMultiBulkReply(), nil
	}
	replies := make([]redis.Reply, 0, nStrs)
	flat := true
	for int64(len(replies)) < nStrs {
		reply, err := readReply(reader)
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if reply == nil {
			continue
		}
		switch reply.(type) {
		case *protocol.BulkReply, *protocol.NullBulkReply:
		default:
			flat = false
		}
		replies = append(replies, reply)
	}
	if !flat {
		return protocol.MakeMultiRawReply(replies), nil
	}
	args := make([][]byte, len(replies))
	for i, reply := range replies {
		if bulk, ok := reply.(*protocol.BulkReply); ok {
			args[i] = bulk.Arg
		}
	}
	return protocol.MakeMultiBulkReply(args), nil
}

func protocolError(msg string) error {
	return fmt.Errorf("%w: %s", ErrProtocol, msg)
}
