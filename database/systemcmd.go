package database

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func (server *Server) isAuthenticated(c redis.Connection) bool {
	if server.requirePass == "" {
		return true
	}
	return c.IsAuthenticated()
}

// execPing answers PONG, or [pong, message] while the connection is subscribed
func execPing(ec *execContext, args [][]byte) redis.Reply {
	if len(args) > 1 {
		return protocol.MakeArgNumErrReply("ping")
	}
	if ec.conn.SubsCount() > 0 && ec.conn.GetProtocol() < 3 {
		msg := []byte{}
		if len(args) == 1 {
			msg = args[0]
		}
		return protocol.MakeMultiBulkReply([][]byte{[]byte("pong"), msg})
	}
	if len(args) == 1 {
		return protocol.MakeBulkReply(args[0])
	}
	return &protocol.PongReply{}
}

// authenticate checks credentials against the required password, user must be empty or "default"
func (server *Server) authenticate(c redis.Connection, user, password string) redis.Reply {
	if server.requirePass != "" && ((user != "" && user != "default") || password != server.requirePass) {
		return protocol.MakeErrReply("WRONGPASS invalid username-password pair or user is disabled.")
	}
	c.SetUsername(user)
	c.SetPassword(password)
	c.SetAuthenticated(true)
	return nil
}

// execAuth validates credentials: AUTH [username] password
func execAuth(ec *execContext, args [][]byte) redis.Reply {
	if len(args) > 2 {
		return &protocol.SyntaxErrReply{}
	}
	user, password := "", string(args[0])
	if len(args) == 2 {
		user, password = string(args[0]), string(args[1])
	}
	if errReply := ec.server.authenticate(ec.conn, user, password); errReply != nil {
		return errReply
	}
	return &protocol.OkReply{}
}

// execHello negotiates the protocol: HELLO [protover [AUTH username password] [SETNAME clientname]]
func execHello(ec *execContext, args [][]byte) redis.Reply {
	server, c := ec.server, ec.conn
	if len(args) > 0 {
		protover, err := strconv.Atoi(string(args[0]))
		if err != nil {
			return protocol.MakeErrReply("ERR Protocol version is not an integer or out of range")
		}
		if protover != 2 {
			return protocol.MakeErrReply("NOPROTO sorry, this protocol version is not supported.")
		}
	}
	authed := false
	name, setName := "", false
	for i := 1; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "AUTH":
			if i+2 >= len(args) {
				return &protocol.SyntaxErrReply{}
			}
			if errReply := server.authenticate(c, string(args[i+1]), string(args[i+2])); errReply != nil {
				return errReply
			}
			authed = true
			i += 2
		case "SETNAME":
			if i+1 >= len(args) {
				return &protocol.SyntaxErrReply{}
			}
			name, setName = string(args[i+1]), true
			i++
		default:
			return &protocol.SyntaxErrReply{}
		}
	}
	if !authed && !server.isAuthenticated(c) {
		return protocol.MakeErrReply("NOAUTH HELLO must be called with the client already authenticated, " +
			"otherwise the HELLO <proto> AUTH <user> <pass> option can be used to authenticate the client and " +
			"select the RESP protocol version at the same time")
	}
	if setName {
		if errReply := validateClientName(name); errReply != nil {
			return errReply
		}
		c.SetName(name)
	}
	c.SetProtocol(2)
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeBulkReply([]byte("server")),
		protocol.MakeBulkReply([]byte("redis")),
		protocol.MakeBulkReply([]byte("version")),
		protocol.MakeBulkReply([]byte(server.versionString())),
		protocol.MakeBulkReply([]byte("proto")),
		protocol.MakeIntReply(2),
		protocol.MakeBulkReply([]byte("id")),
		protocol.MakeIntReply(c.ID()),
		protocol.MakeBulkReply([]byte("mode")),
		protocol.MakeBulkReply([]byte("standalone")),
		protocol.MakeBulkReply([]byte("role")),
		protocol.MakeBulkReply([]byte("master")),
		protocol.MakeBulkReply([]byte("modules")),
		&protocol.EmptyMultiBulkReply{},
	})
}

func validateClientName(name string) redis.Reply {
	for _, r := range name {
		if r < '!' || r > '~' {
			return protocol.MakeErrReply("ERR Client names cannot contain spaces, newlines or special characters.")
		}
	}
	return nil
}

type remoteAddr interface {
	RemoteAddr() string
}

func clientInfo(c redis.Connection) string {
	addr := ""
	if ra, ok := c.(remoteAddr); ok {
		addr = ra.RemoteAddr()
	}
	multi := -1
	if c.InMultiState() {
		multi = len(c.GetQueuedCmdLine())
	}
	return fmt.Sprintf("id=%d addr=%s name=%s db=%d sub=%d psub=%d multi=%d resp=%d",
		c.ID(), addr, c.GetName(), c.GetDBIndex(), len(c.GetChannels()), len(c.GetPatterns()), multi, c.GetProtocol())
}

// execClient implements CLIENT SETNAME|GETNAME|ID|SETINFO|INFO|LIST
func execClient(ec *execContext, args [][]byte) redis.Reply {
	c := ec.conn
	sub := strings.ToUpper(string(args[0]))
	switch sub {
	case "SETNAME":
		if len(args) != 2 {
			return protocol.MakeArgNumErrReply("client|setname")
		}
		name := string(args[1])
		if errReply := validateClientName(name); errReply != nil {
			return errReply
		}
		c.SetName(name)
		return &protocol.OkReply{}
	case "GETNAME":
		if c.GetName() == "" {
			return &protocol.NullBulkReply{}
		}
		return protocol.MakeBulkReply([]byte(c.GetName()))
	case "ID":
		return protocol.MakeIntReply(c.ID())
	case "SETINFO":
		if len(args) != 3 {
			return protocol.MakeArgNumErrReply("client|setinfo")
		}
		attr := strings.ToUpper(string(args[1]))
		if attr != "LIB-NAME" && attr != "LIB-VER" {
			return protocol.MakeErrReply("ERR Unrecognized option '" + string(args[1]) + "'")
		}
		return &protocol.OkReply{}
	case "INFO":
		return protocol.MakeBulkReply([]byte(clientInfo(c) + "\n"))
	case "LIST":
		var sb strings.Builder
		for _, client := range ec.server.listClients() {
			sb.WriteString(clientInfo(client))
			sb.WriteString("\n")
		}
		return protocol.MakeBulkReply([]byte(sb.String()))
	}
	return protocol.MakeErrReply("ERR unknown subcommand '" + string(args[0]) + "'. Try CLIENT HELP.")
}

// execSelect changes the database of the connection
func execSelect(ec *execContext, args [][]byte) redis.Reply {
	dbIndex, err := strconv.Atoi(string(args[0]))
	if err != nil {
		return errNotInteger
	}
	if _, errReply := ec.server.selectDB(dbIndex); errReply != nil {
		return errReply
	}
	ec.conn.SelectDB(dbIndex)
	return &protocol.OkReply{}
}

func execEcho(ec *execContext, args [][]byte) redis.Reply {
	return protocol.MakeBulkReply(args[0])
}

// execTime returns [unix seconds, microseconds]
func execTime(ec *execContext, args [][]byte) redis.Reply {
	now := time.Now()
	return protocol.MakeMultiBulkReply([][]byte{
		[]byte(strconv.FormatInt(now.Unix(), 10)),
		[]byte(strconv.Itoa(now.Nanosecond() / 1000)),
	})
}

func (server *Server) infoServer() string {
	uptime := time.Since(server.startedAt)
	return "# Server\r\n" +
		"redis_version:" + server.versionString() + "\r\n" +
		"redis_mode:standalone\r\n" +
		"os:" + runtime.GOOS + "\r\n" +
		"arch_bits:" + strconv.Itoa(strconv.IntSize) + "\r\n" +
		"process_id:" + strconv.Itoa(os.Getpid()) + "\r\n" +
		"uptime_in_seconds:" + strconv.FormatInt(int64(uptime.Seconds()), 10) + "\r\n" +
		"uptime_in_days:" + strconv.FormatInt(int64(uptime.Hours()/24), 10) + "\r\n"
}

func (server *Server) infoClients() string {
	return "# Clients\r\n" +
		"connected_clients:" + strconv.Itoa(len(server.listClients())) + "\r\n" +
		"blocked_clients:" + strconv.Itoa(len(server.blocking.waiters)) + "\r\n"
}

func (server *Server) infoKeyspace() string {
	var sb strings.Builder
	sb.WriteString("# Keyspace\r\n")
	for _, db := range server.dbSet {
		keys := db.Len()
		if keys == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("db%d:keys=%d,expires=%d,avg_ttl=0\r\n", db.index, keys, db.ttlMap.Len()))
	}
	return sb.String()
}

// execInfo renders server information: INFO [section ...]
func execInfo(ec *execContext, args [][]byte) redis.Reply {
	server := ec.server
	sections := map[string]func() string{
		"server":   server.infoServer,
		"clients":  server.infoClients,
		"keyspace": server.infoKeyspace,
	}
	order := []string{"server", "clients", "keyspace"}
	wanted := make(map[string]bool)
	for _, arg := range args {
		name := strings.ToLower(string(arg))
		if name == "all" || name == "default" || name == "everything" {
			wanted = nil
			break
		}
		wanted[name] = true
	}
	parts := make([]string, 0, len(order))
	for _, name := range order {
		if len(args) == 0 || wanted == nil || wanted[name] {
			parts = append(parts, sections[name]())
		}
	}
	return protocol.MakeBulkReply([]byte(strings.Join(parts, "\r\n")))
}

// execQuit replies OK, the transport closes the connection afterwards
func execQuit(ec *execContext, args [][]byte) redis.Reply {
	return &protocol.OkReply{}
}

// execReset restores the default connection state
func execReset(ec *execContext, args [][]byte) redis.Reply {
	c := ec.conn
	c.SetMultiState(false)
	c.ClearWatching()
	if c.SubsCount() > 0 {
		unsubscribeQuietly(ec.server, c)
	}
	c.SelectDB(0)
	c.SetName("")
	c.SetProtocol(2)
	if ec.server.requirePass != "" {
		c.SetAuthenticated(false)
	}
	return protocol.MakeStatusReply("RESET")
}

func init() {
	registerSysCommand("Ping", execPing, noPrepare, -1, flagReadOnly|flagPubSub).
		attachCommandExtra([]string{Fast, Stale}, 0, 0, 0)
	registerSysCommand("Auth", execAuth, noPrepare, -2, flagReadOnly|flagNoAuth|flagNoScript|flagPubSub).
		attachCommandExtra([]string{Noscript, Loading, Stale, SkipMonitor, Fast}, 0, 0, 0)
	registerSysCommand("Hello", execHello, noPrepare, -1, flagReadOnly|flagNoAuth|flagNoScript|flagPubSub).
		attachCommandExtra([]string{Noscript, Loading, Stale, SkipMonitor, Fast}, 0, 0, 0)
	registerSysCommand("Client", execClient, noPrepare, -2, flagReadOnly|flagNoScript|flagPubSub).
		attachCommandExtra([]string{Admin, Noscript, Loading, Stale}, 0, 0, 0)
	registerSysCommand("Select", execSelect, noPrepare, 2, flagReadOnly).
		attachCommandExtra([]string{Loading, Fast}, 0, 0, 0)
	registerSysCommand("Echo", execEcho, noPrepare, 2, flagReadOnly).
		attachCommandExtra([]string{Fast}, 0, 0, 0)
	registerSysCommand("Time", execTime, noPrepare, 1, flagReadOnly).
		attachCommandExtra([]string{Random, Loading, Stale, Fast}, 0, 0, 0)
	registerSysCommand("Info", execInfo, noPrepare, -1, flagReadOnly).
		attachCommandExtra([]string{Random, Loading, Stale}, 0, 0, 0)
	registerSysCommand("Quit", execQuit, noPrepare, -1, flagReadOnly|flagNoAuth|flagNoMulti|flagPubSub|flagNoScript).
		attachCommandExtra([]string{Noscript, Loading, Stale, Fast}, 0, 0, 0)
	registerSysCommand("Reset", execReset, noPrepare, 1, flagReadOnly|flagNoAuth|flagNoMulti|flagPubSub|flagNoScript).
		attachCommandExtra([]string{Noscript, Loading, Stale, Fast}, 0, 0, 0)
}
