package server

import (
	"bytes"
	"io"
	"sync"

	"github.com/panjf2000/gnet/v2"

	"github.com/fakedis/fakedis/redis/connection"
)

// session joins a gnet connection to the client state of the engine.
// The event loop feeds inbound bytes, a worker goroutine reads them through the parser
type session struct {
	gconn gnet.Conn
	conn  *connection.Connection

	mu      sync.Mutex
	cond    *sync.Cond
	inbound bytes.Buffer
	eof     bool
	// quitting drops the commands pipelined after QUIT or a protocol error
	quitting bool
}

func newSession(gconn gnet.Conn) *session {
	addr := ""
	if gconn.RemoteAddr() != nil {
		addr = gconn.RemoteAddr().String()
	}
	s := &session{
		gconn: gconn,
		conn:  connection.NewConn(addr),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Read blocks until data arrives, it returns io.EOF once the connection is gone and the buffer drained
func (s *session) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.inbound.Len() == 0 && !s.eof {
		s.cond.Wait()
	}
	if s.inbound.Len() == 0 {
		return 0, io.EOF
	}
	return s.inbound.Read(p)
}

func (s *session) feed(data []byte) {
	s.mu.Lock()
	s.inbound.Write(data)
	s.mu.Unlock()
	s.cond.Signal()
}

func (s *session) shutdown() {
	s.mu.Lock()
	s.eof = true
	s.mu.Unlock()
	s.cond.Broadcast()
}

func (s *session) write(data []byte) {
	if len(data) == 0 {
		return
	}
	_ = s.gconn.AsyncWrite(data, nil)
}

// flush writes the pub/sub messages waiting in the mailbox
func (s *session) flush() {
	var buf bytes.Buffer
	for {
		msg := s.conn.PopMessage()
		if msg == nil {
			break
		}
		buf.Write(msg.ToBytes())
	}
	s.write(buf.Bytes())
}
