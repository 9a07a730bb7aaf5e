package database

import (
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/lib/utils"
	"github.com/fakedis/fakedis/redis/connection"
)

var testServer = NewServer()

// makeTestConn attaches a fresh connection to testServer and flushes every db
func makeTestConn() *connection.Connection {
	conn := connection.NewFakeConn()
	testServer.AddClient(conn)
	testServer.Exec(conn, utils.ToCmdLine("FLUSHALL"))
	return conn
}

func execOn(server *Server, conn redis.Connection, args ...string) redis.Reply {
	return server.Exec(conn, utils.ToCmdLine(args...))
}
