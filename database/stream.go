package database

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fakedis/fakedis/datastruct/stream"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

var errInvalidStreamID = protocol.MakeErrReply(stream.ErrInvalidID.Error())

func (db *DB) getAsStream(key string) (*stream.Stream, protocol.ErrorReply) {
	entity, exists := db.GetEntity(key)
	if !exists {
		return nil, nil
	}
	if entity.Type != database.TypeStream {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return entity.Data.(*stream.Stream), nil
}

func (db *DB) getOrInitStream(key string) (*stream.Stream, protocol.ErrorReply) {
	s, errReply := db.getAsStream(key)
	if errReply != nil {
		return nil, errReply
	}
	if s == nil {
		s = stream.Make()
		db.PutEntity(key, &database.DataEntity{
			Type: database.TypeStream,
			Data: s,
		})
	}
	return s, nil
}

func entryReply(e *stream.Entry) redis.Reply {
	var fields redis.Reply
	if e.Fields == nil {
		fields = protocol.MakeNullMultiBulkReply()
	} else {
		fields = protocol.MakeMultiBulkReply(e.Fields)
	}
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeBulkReply([]byte(e.ID.String())),
		fields,
	})
}

func entriesReply(entries []*stream.Entry) redis.Reply {
	replies := make([]redis.Reply, len(entries))
	for i, e := range entries {
		replies[i] = entryReply(e)
	}
	return protocol.MakeMultiRawReply(replies)
}

// streamReply renders one stream of XREAD family replies: [key, [entries]]
func streamReply(key string, entries []*stream.Entry) redis.Reply {
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeBulkReply([]byte(key)),
		entriesReply(entries),
	})
}

// parseRangeID parses an XRANGE border, a leading '(' makes it exclusive
func parseRangeID(arg string, isStart bool) (stream.ID, bool, redis.Reply) {
	exclusive := strings.HasPrefix(arg, "(")
	if exclusive {
		arg = arg[1:]
	}
	defaultSeq := uint64(0)
	if !isStart {
		defaultSeq = math.MaxUint64
	}
	id, err := stream.ParseID(arg, defaultSeq)
	if err != nil {
		return stream.ID{}, false, errInvalidStreamID
	}
	if !exclusive {
		return id, true, nil
	}
	var ok bool
	if isStart {
		id, ok = id.Next()
	} else {
		id, ok = id.Prev()
	}
	return id, ok, nil
}

// trimOptions is the MAXLEN|MINID [=|~] threshold [LIMIT count] clause of XADD and XTRIM
type trimOptions struct {
	strategy string
	maxLen   int
	minID    stream.ID
}

// parseTrim parses a trim clause starting at args[i], it returns the index after the clause
func parseTrim(args [][]byte, i int) (*trimOptions, int, redis.Reply) {
	opts := &trimOptions{strategy: strings.ToUpper(string(args[i]))}
	i++
	approx := false
	if i < len(args) {
		switch string(args[i]) {
		case "~":
			approx = true
			i++
		case "=":
			i++
		}
	}
	if i >= len(args) {
		return nil, 0, &protocol.SyntaxErrReply{}
	}
	threshold := string(args[i])
	i++
	if opts.strategy == "MAXLEN" {
		n, err := strconv.Atoi(threshold)
		if err != nil {
			return nil, 0, errNotInteger
		}
		if n < 0 {
			return nil, 0, protocol.MakeErrReply("ERR The MAXLEN argument must be >= 0.")
		}
		opts.maxLen = n
	} else {
		id, err := stream.ParseID(threshold, 0)
		if err != nil {
			return nil, 0, errInvalidStreamID
		}
		opts.minID = id
	}
	if i+1 < len(args) && strings.EqualFold(string(args[i]), "LIMIT") {
		if !approx {
			return nil, 0, protocol.MakeErrReply("ERR syntax error, LIMIT cannot be used without the special ~ option")
		}
		if _, err := strconv.Atoi(string(args[i+1])); err != nil {
			return nil, 0, errNotInteger
		}
		i += 2
	}
	return opts, i, nil
}

func (opts *trimOptions) apply(s *stream.Stream) int {
	if opts.strategy == "MAXLEN" {
		return s.TrimMaxLen(opts.maxLen)
	}
	return s.TrimMinID(opts.minID)
}

// execXAdd appends an entry: XADD key [NOMKSTREAM] [MAXLEN|MINID [=|~] threshold [LIMIT count]] *|id field value [field value ...]
func execXAdd(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	noMkStream := false
	var trim *trimOptions
	i := 1
	for i < len(args) {
		opt := strings.ToUpper(string(args[i]))
		if opt == "NOMKSTREAM" {
			noMkStream = true
			i++
			continue
		}
		if opt == "MAXLEN" || opt == "MINID" {
			var errReply redis.Reply
			trim, i, errReply = parseTrim(args, i)
			if errReply != nil {
				return errReply
			}
			continue
		}
		break
	}
	if i >= len(args) {
		return &protocol.SyntaxErrReply{}
	}
	idArg := string(args[i])
	fields := args[i+1:]
	if len(fields) == 0 || len(fields)%2 != 0 {
		return protocol.MakeArgNumErrReply("xadd")
	}

	s, errReply := db.getAsStream(key)
	if errReply != nil {
		return errReply
	}
	if s == nil {
		if noMkStream {
			return &protocol.NullBulkReply{}
		}
		s = stream.Make()
	}

	var id stream.ID
	var err error
	switch {
	case idArg == "*":
		id, err = s.NextID(0, true)
	case strings.HasSuffix(idArg, "-*"):
		ms, parseErr := strconv.ParseUint(strings.TrimSuffix(idArg, "-*"), 10, 64)
		if parseErr != nil {
			return errInvalidStreamID
		}
		id, err = s.NextID(ms, false)
	default:
		id, err = stream.ParseID(idArg, 0)
		if err != nil || idArg == "-" || idArg == "+" {
			return errInvalidStreamID
		}
	}
	if err == nil {
		fieldsCopy := make([][]byte, len(fields))
		copy(fieldsCopy, fields)
		err = s.Add(id, fieldsCopy)
	}
	if err != nil {
		return protocol.MakeErrReply(err.Error())
	}
	if _, exists := db.GetEntity(key); !exists {
		db.PutEntity(key, &database.DataEntity{
			Type: database.TypeStream,
			Data: s,
		})
	}
	if trim != nil {
		trim.apply(s)
	}
	db.markModified(key)
	return protocol.MakeBulkReply([]byte(id.String()))
}

// execXLen returns the number of entries of a stream
func execXLen(db *DB, args [][]byte) redis.Reply {
	s, errReply := db.getAsStream(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if s == nil {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(int64(s.Len()))
}

func xrange(db *DB, args [][]byte, rev bool) redis.Reply {
	key := string(args[0])
	startArg, endArg := string(args[1]), string(args[2])
	if rev {
		startArg, endArg = endArg, startArg
	}
	count := 0
	if len(args) == 5 && strings.EqualFold(string(args[3]), "COUNT") {
		n, errReply := parseInt(args[4])
		if errReply != nil {
			return errReply
		}
		if n <= 0 {
			return &protocol.EmptyMultiBulkReply{}
		}
		count = int(n)
	} else if len(args) != 3 {
		return &protocol.SyntaxErrReply{}
	}
	start, ok1, errReply := parseRangeID(startArg, true)
	if errReply != nil {
		return errReply
	}
	end, ok2, errReply := parseRangeID(endArg, false)
	if errReply != nil {
		return errReply
	}
	s, err := db.getAsStream(key)
	if err != nil {
		return err
	}
	if s == nil || !ok1 || !ok2 {
		return &protocol.EmptyMultiBulkReply{}
	}
	return entriesReply(s.Range(start, end, count, rev))
}

// execXRange returns entries within [start, end]: XRANGE key start end [COUNT count]
func execXRange(db *DB, args [][]byte) redis.Reply {
	return xrange(db, args, false)
}

// execXRevRange is XRANGE in reverse order: XREVRANGE key end start [COUNT count]
func execXRevRange(db *DB, args [][]byte) redis.Reply {
	return xrange(db, args, true)
}

func parseIDs(args [][]byte) ([]stream.ID, redis.Reply) {
	ids := make([]stream.ID, len(args))
	for i, arg := range args {
		id, err := stream.ParseID(string(arg), 0)
		if err != nil {
			return nil, errInvalidStreamID
		}
		ids[i] = id
	}
	return ids, nil
}

// execXDel removes entries by id, ids are not renumbered
func execXDel(db *DB, args [][]byte) redis.Reply {
	ids, errReply := parseIDs(args[1:])
	if errReply != nil {
		return errReply
	}
	key := string(args[0])
	s, err := db.getAsStream(key)
	if err != nil {
		return err
	}
	if s == nil {
		return protocol.MakeIntReply(0)
	}
	deleted := s.Delete(ids...)
	if deleted > 0 {
		db.markModified(key)
	}
	return protocol.MakeIntReply(int64(deleted))
}

// execXTrim evicts entries: XTRIM key MAXLEN|MINID [=|~] threshold [LIMIT count]
func execXTrim(db *DB, args [][]byte) redis.Reply {
	strategy := strings.ToUpper(string(args[1]))
	if strategy != "MAXLEN" && strategy != "MINID" {
		return &protocol.SyntaxErrReply{}
	}
	trim, next, errReply := parseTrim(args, 1)
	if errReply != nil {
		return errReply
	}
	if next != len(args) {
		return &protocol.SyntaxErrReply{}
	}
	key := string(args[0])
	s, err := db.getAsStream(key)
	if err != nil {
		return err
	}
	if s == nil {
		return protocol.MakeIntReply(0)
	}
	evicted := trim.apply(s)
	if evicted > 0 {
		db.markModified(key)
	}
	return protocol.MakeIntReply(int64(evicted))
}

// readArgs holds the options shared by XREAD and XREADGROUP
type readArgs struct {
	count   int
	block   bool
	timeout time.Duration
	noAck   bool
	keys    []string
	ids     []string
}

// parseReadArgs parses [COUNT count] [BLOCK ms] [NOACK] STREAMS key [key ...] id [id ...]
func parseReadArgs(cmd string, args [][]byte, allowNoAck bool) (*readArgs, redis.Reply) {
	opts := &readArgs{}
	i := 0
	for ; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "COUNT":
			if i+1 >= len(args) {
				return nil, &protocol.SyntaxErrReply{}
			}
			n, errReply := parseInt(args[i+1])
			if errReply != nil {
				return nil, errReply
			}
			if n > 0 {
				opts.count = int(n)
			}
			i++
		case "BLOCK":
			if i+1 >= len(args) {
				return nil, &protocol.SyntaxErrReply{}
			}
			ms, err := strconv.ParseInt(string(args[i+1]), 10, 64)
			if err != nil {
				return nil, protocol.MakeErrReply("ERR timeout is not an integer or out of range")
			}
			if ms < 0 {
				return nil, protocol.MakeErrReply("ERR timeout is negative")
			}
			opts.block = true
			opts.timeout = time.Duration(ms) * time.Millisecond
			i++
		case "NOACK":
			if !allowNoAck {
				return nil, &protocol.SyntaxErrReply{}
			}
			opts.noAck = true
		case "STREAMS":
			rest := args[i+1:]
			if len(rest) == 0 || len(rest)%2 != 0 {
				return nil, protocol.MakeErrReply("ERR Unbalanced '" + cmd + "' list of streams: for each stream key an ID or '$' must be specified.")
			}
			half := len(rest) / 2
			for j := 0; j < half; j++ {
				opts.keys = append(opts.keys, string(rest[j]))
				opts.ids = append(opts.ids, string(rest[half+j]))
			}
			return opts, nil
		default:
			return nil, &protocol.SyntaxErrReply{}
		}
	}
	return nil, &protocol.SyntaxErrReply{}
}

// execXRead reads entries after the given ids from one or more streams, it blocks with BLOCK
func execXRead(ec *execContext, args [][]byte) redis.Reply {
	opts, errReply := parseReadArgs("xread", args, false)
	if errReply != nil {
		return errReply
	}
	db := ec.db()
	// resolve ids first, "$" means entries added after this call
	after := make(map[string]stream.ID, len(opts.keys))
	for i, key := range opts.keys {
		s, err := db.getAsStream(key)
		if err != nil {
			return err
		}
		if opts.ids[i] == "$" {
			if s != nil {
				after[key] = s.LastID()
			} else {
				after[key] = stream.MinID
			}
			continue
		}
		id, parseErr := stream.ParseID(opts.ids[i], 0)
		if parseErr != nil {
			return errInvalidStreamID
		}
		after[key] = id
	}

	read := func(db *DB, key string) []*stream.Entry {
		s, _ := db.getAsStream(key)
		if s == nil {
			return nil
		}
		return s.After(after[key], opts.count)
	}
	replies := make([]redis.Reply, 0)
	for _, key := range opts.keys {
		if entries := read(db, key); len(entries) > 0 {
			replies = append(replies, streamReply(key, entries))
		}
	}
	if len(replies) > 0 {
		return protocol.MakeMultiRawReply(replies)
	}
	if !opts.block {
		return protocol.MakeNullMultiBulkReply()
	}
	serve := func(db *DB, key string) redis.Reply {
		entries := read(db, key)
		if len(entries) == 0 {
			return nil
		}
		return protocol.MakeMultiRawReply([]redis.Reply{streamReply(key, entries)})
	}
	return ec.serveOrBlock(opts.keys, opts.timeout, protocol.MakeNullMultiBulkReply(), serve)
}

func noGroupReply(key, group string) redis.Reply {
	return protocol.MakeErrReply(fmt.Sprintf("NOGROUP No such key '%s' or consumer group '%s' in XREADGROUP with GROUP option", key, group))
}

// execXReadGroup reads entries as a consumer of a group:
// XREADGROUP GROUP group consumer [COUNT count] [BLOCK ms] [NOACK] STREAMS key [key ...] id [id ...]
func execXReadGroup(ec *execContext, args [][]byte) redis.Reply {
	if !strings.EqualFold(string(args[0]), "GROUP") {
		return &protocol.SyntaxErrReply{}
	}
	groupName, consumer := string(args[1]), string(args[2])
	opts, errReply := parseReadArgs("xreadgroup", args[3:], true)
	if errReply != nil {
		return errReply
	}
	db := ec.db()
	onlyNew := true
	for i, key := range opts.keys {
		s, err := db.getAsStream(key)
		if err != nil {
			return err
		}
		if s == nil {
			return noGroupReply(key, groupName)
		}
		if _, ok := s.Group(groupName); !ok {
			return noGroupReply(key, groupName)
		}
		if opts.ids[i] != ">" {
			onlyNew = false
			if _, parseErr := stream.ParseID(opts.ids[i], 0); parseErr != nil {
				return errInvalidStreamID
			}
		}
	}

	idOf := make(map[string]string, len(opts.keys))
	for i, key := range opts.keys {
		idOf[key] = opts.ids[i]
	}
	// read returns nil when the stream or group disappeared
	read := func(db *DB, key string) []*stream.Entry {
		s, _ := db.getAsStream(key)
		if s == nil {
			return nil
		}
		group, ok := s.Group(groupName)
		if !ok {
			return nil
		}
		if idOf[key] == ">" {
			return group.ReadNew(s, consumer, opts.count, opts.noAck)
		}
		after, _ := stream.ParseID(idOf[key], 0)
		return group.ReadPending(s, consumer, after, opts.count)
	}

	replies := make([]redis.Reply, 0, len(opts.keys))
	served := false
	for _, key := range opts.keys {
		entries := read(db, key)
		if len(entries) > 0 {
			served = true
			db.markModified(key)
		}
		if idOf[key] != ">" || len(entries) > 0 {
			replies = append(replies, streamReply(key, entries))
		}
	}
	if served || !onlyNew || !opts.block {
		if !served && onlyNew {
			return protocol.MakeNullMultiBulkReply()
		}
		return protocol.MakeMultiRawReply(replies)
	}
	serve := func(db *DB, key string) redis.Reply {
		entries := read(db, key)
		if len(entries) == 0 {
			return nil
		}
		db.markModified(key)
		return protocol.MakeMultiRawReply([]redis.Reply{streamReply(key, entries)})
	}
	return ec.serveOrBlock(opts.keys, opts.timeout, protocol.MakeNullMultiBulkReply(), serve)
}

func (db *DB) getGroup(key, groupName string) (*stream.Stream, *stream.Group, redis.Reply) {
	s, errReply := db.getAsStream(key)
	if errReply != nil {
		return nil, nil, errReply
	}
	if s == nil {
		return nil, nil, protocol.MakeErrReply(fmt.Sprintf("NOGROUP No such key '%s' or consumer group '%s'", key, groupName))
	}
	group, ok := s.Group(groupName)
	if !ok {
		return nil, nil, protocol.MakeErrReply(fmt.Sprintf("NOGROUP No such consumer group '%s' for key name '%s'", groupName, key))
	}
	return s, group, nil
}

// parseGroupID parses the start id of a group, "$" means the last id of the stream
func parseGroupID(s *stream.Stream, arg string) (stream.ID, redis.Reply) {
	if arg == "$" {
		return s.LastID(), nil
	}
	id, err := stream.ParseID(arg, 0)
	if err != nil {
		return stream.ID{}, errInvalidStreamID
	}
	return id, nil
}

// execXGroup manages consumer groups: XGROUP CREATE|DESTROY|SETID|CREATECONSUMER|DELCONSUMER ...
func execXGroup(db *DB, args [][]byte) redis.Reply {
	sub := strings.ToUpper(string(args[0]))
	if len(args) < 3 {
		return protocol.MakeErrReply("ERR unknown subcommand or wrong number of arguments for '" + sub + "'. Try XGROUP HELP.")
	}
	key, groupName := string(args[1]), string(args[2])
	switch sub {
	case "CREATE":
		if len(args) < 4 {
			return protocol.MakeArgNumErrReply("xgroup|create")
		}
		mkStream := false
		for _, opt := range args[4:] {
			if strings.EqualFold(string(opt), "MKSTREAM") {
				mkStream = true
			}
		}
		s, errReply := db.getAsStream(key)
		if errReply != nil {
			return errReply
		}
		if s == nil {
			if !mkStream {
				return protocol.MakeErrReply("ERR The XGROUP subcommand requires the key to exist. Note that for CREATE you may want to use the MKSTREAM option to create an empty stream automatically.")
			}
			s, _ = db.getOrInitStream(key)
		}
		id, err := parseGroupID(s, string(args[3]))
		if err != nil {
			return err
		}
		if createErr := s.CreateGroup(groupName, id); createErr != nil {
			return protocol.MakeErrReply(createErr.Error())
		}
		db.markModified(key)
		return &protocol.OkReply{}
	case "DESTROY":
		s, errReply := db.getAsStream(key)
		if errReply != nil {
			return errReply
		}
		if s == nil {
			return protocol.MakeErrReply("ERR The XGROUP subcommand requires the key to exist. Note that for CREATE you may want to use the MKSTREAM option to create an empty stream automatically.")
		}
		if s.DestroyGroup(groupName) {
			db.markModified(key)
			return protocol.MakeIntReply(1)
		}
		return protocol.MakeIntReply(0)
	case "SETID":
		if len(args) < 4 {
			return protocol.MakeArgNumErrReply("xgroup|setid")
		}
		s, group, errReply := db.getGroup(key, groupName)
		if errReply != nil {
			return errReply
		}
		id, err := parseGroupID(s, string(args[3]))
		if err != nil {
			return err
		}
		group.LastDelivered = id
		db.markModified(key)
		return &protocol.OkReply{}
	case "CREATECONSUMER", "DELCONSUMER":
		if len(args) != 4 {
			return protocol.MakeArgNumErrReply("xgroup|" + strings.ToLower(sub))
		}
		_, group, errReply := db.getGroup(key, groupName)
		if errReply != nil {
			return errReply
		}
		db.markModified(key)
		if sub == "DELCONSUMER" {
			return protocol.MakeIntReply(int64(group.DeleteConsumer(string(args[3]))))
		}
		if group.CreateConsumer(string(args[3])) {
			return protocol.MakeIntReply(1)
		}
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeErrReply("ERR unknown subcommand '" + sub + "'. Try XGROUP HELP.")
}

// execXAck acknowledges pending entries: XACK key group id [id ...]
func execXAck(db *DB, args [][]byte) redis.Reply {
	ids, errReply := parseIDs(args[2:])
	if errReply != nil {
		return errReply
	}
	s, err := db.getAsStream(string(args[0]))
	if err != nil {
		return err
	}
	if s == nil {
		return protocol.MakeIntReply(0)
	}
	group, ok := s.Group(string(args[1]))
	if !ok {
		return protocol.MakeIntReply(0)
	}
	acked := group.Ack(ids...)
	if acked > 0 {
		db.markModified(string(args[0]))
	}
	return protocol.MakeIntReply(int64(acked))
}

// execXPending inspects pending entries: XPENDING key group [[IDLE min-idle] start end count [consumer]]
func execXPending(db *DB, args [][]byte) redis.Reply {
	key, groupName := string(args[0]), string(args[1])
	_, group, errReply := db.getGroup(key, groupName)
	if errReply != nil {
		return errReply
	}
	if len(args) == 2 {
		return pendingSummary(group)
	}

	rest := args[2:]
	var minIdle time.Duration
	if strings.EqualFold(string(rest[0]), "IDLE") {
		if len(rest) < 2 {
			return &protocol.SyntaxErrReply{}
		}
		ms, err := parseInt(rest[1])
		if err != nil {
			return err
		}
		minIdle = time.Duration(ms) * time.Millisecond
		rest = rest[2:]
	}
	if len(rest) != 3 && len(rest) != 4 {
		return &protocol.SyntaxErrReply{}
	}
	start, ok1, err := parseRangeID(string(rest[0]), true)
	if err != nil {
		return err
	}
	end, ok2, err := parseRangeID(string(rest[1]), false)
	if err != nil {
		return err
	}
	count, parseErr := parseInt(rest[2])
	if parseErr != nil {
		return parseErr
	}
	consumer := ""
	if len(rest) == 4 {
		consumer = string(rest[3])
	}
	if !ok1 || !ok2 || count <= 0 {
		return &protocol.EmptyMultiBulkReply{}
	}
	now := time.Now()
	pending := group.Pending(start, end, int(count), consumer, minIdle)
	replies := make([]redis.Reply, len(pending))
	for i, p := range pending {
		replies[i] = protocol.MakeMultiRawReply([]redis.Reply{
			protocol.MakeBulkReply([]byte(p.ID.String())),
			protocol.MakeBulkReply([]byte(p.Consumer)),
			protocol.MakeIntReply(now.Sub(p.DeliveredAt).Milliseconds()),
			protocol.MakeIntReply(p.DeliveryCount),
		})
	}
	return protocol.MakeMultiRawReply(replies)
}

// pendingSummary is the reply of XPENDING without range: [count, min id, max id, [[consumer, count] ...]]
func pendingSummary(group *stream.Group) redis.Reply {
	pending := group.Pending(stream.MinID, stream.MaxID, 0, "", 0)
	if len(pending) == 0 {
		return protocol.MakeMultiRawReply([]redis.Reply{
			protocol.MakeIntReply(0),
			&protocol.NullBulkReply{},
			&protocol.NullBulkReply{},
			protocol.MakeNullMultiBulkReply(),
		})
	}
	byConsumer := group.PendingByConsumer()
	consumers := make([]redis.Reply, 0, len(byConsumer))
	for _, c := range group.Consumers() {
		n, ok := byConsumer[c.Name]
		if !ok {
			continue
		}
		consumers = append(consumers, protocol.MakeMultiBulkReply([][]byte{
			[]byte(c.Name),
			[]byte(strconv.Itoa(n)),
		}))
	}
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeIntReply(int64(len(pending))),
		protocol.MakeBulkReply([]byte(pending[0].ID.String())),
		protocol.MakeBulkReply([]byte(pending[len(pending)-1].ID.String())),
		protocol.MakeMultiRawReply(consumers),
	})
}

// prepareXRead returns the stream keys following STREAMS
func prepareXRead(args [][]byte) ([]string, []string) {
	for i, arg := range args {
		if !strings.EqualFold(string(arg), "STREAMS") {
			continue
		}
		rest := args[i+1:]
		return readAllKeys(rest[:len(rest)/2])
	}
	return nil, nil
}

func init() {
	registerCommand("XAdd", execXAdd, writeFirstKey, -5, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Random, Fast}, 1, 1, 1)
	registerCommand("XLen", execXLen, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("XRange", execXRange, readFirstKey, -4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("XRevRange", execXRevRange, readFirstKey, -4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("XDel", execXDel, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("XTrim", execXTrim, writeFirstKey, -4, flagWrite).
		attachCommandExtra([]string{Write, Random}, 1, 1, 1)
	registerCommand("XGroup", execXGroup, writeSecondKey, -2, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 2, 2, 1)
	registerCommand("XAck", execXAck, writeFirstKey, -4, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("XPending", execXPending, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)

	registerSysCommand("XRead", execXRead, prepareXRead, -4, flagReadOnly|flagBlocking).
		attachCommandExtra([]string{Readonly, Movablekeys}, 0, 0, 0)
	registerSysCommand("XReadGroup", execXReadGroup, prepareXRead, -7, flagWrite|flagBlocking).
		attachCommandExtra([]string{Write, Movablekeys}, 0, 0, 0)
}
