// Package server exposes a database.Server over TCP with the redis protocol
package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/gnet/v2"
	"golang.org/x/sync/errgroup"

	"github.com/fakedis/fakedis/config"
	"github.com/fakedis/fakedis/database"
	"github.com/fakedis/fakedis/lib/logger"
	"github.com/fakedis/fakedis/redis/parser"
	"github.com/fakedis/fakedis/redis/protocol"
)

var (
	maxClientsErrBytes  = []byte("-ERR max number of clients reached\r\n")
	multiBulkErrReply   = protocol.MakeErrReply("ERR Protocol error: expected multibulk command")
	errAlreadyListening = errors.New("server is already listening")
)

// Server implements gnet.EventHandler, every connection gets a worker goroutine so blocking
// commands do not stall the event loop
type Server struct {
	gnet.BuiltinEventEngine

	db    *database.Server
	props *config.ServerProperties

	mu      sync.Mutex
	eng     gnet.Engine
	booted  chan struct{}
	ctx     context.Context
	running bool

	sessions sync.Map // *session -> struct{}
	count    atomic.Int32
	workers  sync.WaitGroup
}

// New creates a server of db, nil props falls back to config.Properties
func New(db *database.Server, props *config.ServerProperties) *Server {
	if props == nil {
		props = config.Properties
	}
	return &Server{
		db:     db,
		props:  props,
		booted: make(chan struct{}),
		ctx:    context.Background(),
	}
}

// Addr returns the listen address
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.props.Bind, s.props.Port)
}

// Booted is closed once the server accepts connections
func (s *Server) Booted() <-chan struct{} {
	return s.booted
}

// ListenAndServe serves until ctx is cancelled or the engine fails
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errAlreadyListening
	}
	s.running = true
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	s.ctx = ctx
	g.Go(func() error {
		err := gnet.Run(s, "tcp://"+s.Addr(),
			gnet.WithMulticore(s.props.Multicore),
			gnet.WithTCPKeepAlive(5*time.Minute),
		)
		if err != nil {
			return fmt.Errorf("listen %s: %w", s.Addr(), err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		select {
		case <-s.booted:
		default:
			return nil
		}
		s.mu.Lock()
		eng := s.eng
		s.mu.Unlock()
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := eng.Stop(stopCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			logger.Warnf("stop engine: %v", err)
		}
		return nil
	})
	err := g.Wait()
	s.workers.Wait()
	return err
}

// OnBoot implements gnet.EventHandler
func (s *Server) OnBoot(eng gnet.Engine) gnet.Action {
	s.mu.Lock()
	s.eng = eng
	s.mu.Unlock()
	close(s.booted)
	if s.ctx.Err() != nil {
		return gnet.Shutdown
	}
	logger.Infof("fakedis is listening at %s", s.Addr())
	return gnet.None
}

// OnShutdown implements gnet.EventHandler
func (s *Server) OnShutdown(eng gnet.Engine) {
	s.sessions.Range(func(key, value any) bool {
		key.(*session).shutdown()
		return true
	})
	s.db.Close()
	logger.Info("fakedis is shutting down")
}

// OnOpen implements gnet.EventHandler
func (s *Server) OnOpen(c gnet.Conn) ([]byte, gnet.Action) {
	if s.props.MaxClients > 0 && int(s.count.Load()) >= s.props.MaxClients {
		return maxClientsErrBytes, gnet.Close
	}
	s.count.Add(1)
	sess := newSession(c)
	c.SetContext(sess)
	s.sessions.Store(sess, struct{}{})
	s.db.AddClient(sess.conn)
	s.workers.Add(1)
	go s.serve(sess)
	logger.Debugf("accept connection %d from %s", sess.conn.ID(), sess.conn.RemoteAddr())
	return nil, gnet.None
}

// OnClose implements gnet.EventHandler
func (s *Server) OnClose(c gnet.Conn, err error) gnet.Action {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.None
	}
	if err != nil {
		logger.Infof("connection %d closed with error: %v", sess.conn.ID(), err)
	}
	s.count.Add(-1)
	s.sessions.Delete(sess)
	sess.shutdown()
	_ = sess.conn.Close()
	s.db.AfterClientClose(sess.conn)
	return gnet.None
}

// OnTraffic implements gnet.EventHandler
func (s *Server) OnTraffic(c gnet.Conn) gnet.Action {
	sess, ok := c.Context().(*session)
	if !ok {
		return gnet.Close
	}
	data, err := c.Next(-1)
	if err != nil {
		logger.Warnf("read connection %d: %v", sess.conn.ID(), err)
		return gnet.Close
	}
	// data is only valid during the callback, feed copies it
	sess.feed(data)
	return gnet.None
}

// serve runs the commands of one connection until the parser stream ends
func (s *Server) serve(sess *session) {
	defer s.workers.Done()
	payloads := parser.ParseStream(sess)
	for {
		select {
		case payload, ok := <-payloads:
			if !ok {
				return
			}
			s.handle(sess, payload)
		case <-sess.conn.Notify():
			sess.flush()
		}
	}
}

func (s *Server) handle(sess *session, payload *parser.Payload) {
	if sess.quitting {
		return
	}
	if payload.Err != nil {
		if errors.Is(payload.Err, parser.ErrProtocol) {
			sess.write(protocol.MakeErrReply("ERR " + payload.Err.Error()).ToBytes())
			s.closeSession(sess)
		}
		return
	}
	cmd, ok := payload.Data.(*protocol.MultiBulkReply)
	if !ok {
		sess.write(multiBulkErrReply.ToBytes())
		return
	}
	if len(cmd.Args) == 0 {
		return
	}
	reply := s.db.ExecContext(s.ctx, sess.conn, cmd.Args)
	if _, noReply := reply.(*protocol.NoReply); !noReply {
		sess.write(reply.ToBytes())
	}
	sess.flush()
	if strings.EqualFold(string(cmd.Args[0]), "quit") {
		s.closeSession(sess)
	}
}

func (s *Server) closeSession(sess *session) {
	sess.quitting = true
	// queued behind the pending writes
	_ = sess.gconn.Close()
}
