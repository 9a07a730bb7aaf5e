package database

import (
	"strconv"
	"strings"

	List "github.com/fakedis/fakedis/datastruct/list"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func (db *DB) getAsList(key string) (List.List, protocol.ErrorReply) {
	entity, ok := db.GetEntity(key)
	if !ok {
		return nil, nil
	}
	if entity.Type != database.TypeList {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return entity.Data.(List.List), nil
}

func (db *DB) getOrInitList(key string) (list List.List, isNew bool, errReply protocol.ErrorReply) {
	list, errReply = db.getAsList(key)
	if errReply != nil {
		return nil, false, errReply
	}
	isNew = false
	if list == nil {
		list = List.NewQuickList()
		db.PutEntity(key, &database.DataEntity{
			Type: database.TypeList,
			Data: list,
		})
		isNew = true
	}
	return list, isNew, nil
}

// removeIfEmpty deletes a list whose last element is gone
func (db *DB) removeListIfEmpty(key string, list List.List) {
	if list.Len() == 0 {
		db.Remove(key)
	}
}

// execLIndex gets element of list at given list
func execLIndex(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	index64, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	list, err := db.getAsList(key)
	if err != nil {
		return err
	}
	if list == nil {
		return &protocol.NullBulkReply{}
	}

	size := int64(list.Len()) // assert: size > 0
	if index64 < -1*size {
		return &protocol.NullBulkReply{}
	} else if index64 < 0 {
		index64 = size + index64
	} else if index64 >= size {
		return &protocol.NullBulkReply{}
	}
	return protocol.MakeBulkReply(list.Get(int(index64)))
}

// execLLen gets length of list
func execLLen(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	list, errReply := db.getAsList(key)
	if errReply != nil {
		return errReply
	}
	if list == nil {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(int64(list.Len()))
}

// popList removes at most count elements from one end of list
func popList(list List.List, count int, left bool) [][]byte {
	result := make([][]byte, 0, count)
	for i := 0; i < count && list.Len() > 0; i++ {
		if left {
			result = append(result, list.RemoveFirst())
		} else {
			result = append(result, list.RemoveLast())
		}
	}
	return result
}

func pop(db *DB, args [][]byte, left bool) redis.Reply {
	key := string(args[0])
	count, withCount := 1, false
	if len(args) == 2 {
		var errReply *protocol.StandardErrReply
		count, errReply = parsePositiveCount(args[1])
		if errReply != nil {
			return errReply
		}
		withCount = true
	} else if len(args) > 2 {
		return &protocol.SyntaxErrReply{}
	}

	list, errReply := db.getAsList(key)
	if errReply != nil {
		return errReply
	}
	if list == nil {
		if withCount {
			return protocol.MakeNullMultiBulkReply()
		}
		return &protocol.NullBulkReply{}
	}
	vals := popList(list, count, left)
	db.markModified(key)
	db.removeListIfEmpty(key, list)
	if withCount {
		return protocol.MakeMultiBulkReply(vals)
	}
	return protocol.MakeBulkReply(vals[0])
}

// execLPop removes the first element of list, and return it
func execLPop(db *DB, args [][]byte) redis.Reply {
	return pop(db, args, true)
}

// execRPop removes last element of list then return it
func execRPop(db *DB, args [][]byte) redis.Reply {
	return pop(db, args, false)
}

func push(db *DB, args [][]byte, left bool, onlyExisting bool) redis.Reply {
	key := string(args[0])
	values := args[1:]

	var list List.List
	var errReply protocol.ErrorReply
	if onlyExisting {
		list, errReply = db.getAsList(key)
		if errReply != nil {
			return errReply
		}
		if list == nil {
			return protocol.MakeIntReply(0)
		}
	} else {
		list, _, errReply = db.getOrInitList(key)
		if errReply != nil {
			return errReply
		}
	}
	for _, value := range values {
		if left {
			list.PushFront(value)
		} else {
			list.Add(value)
		}
	}
	db.markModified(key)
	return protocol.MakeIntReply(int64(list.Len()))
}

// execLPush inserts element at head of list
func execLPush(db *DB, args [][]byte) redis.Reply {
	return push(db, args, true, false)
}

// execLPushX inserts element at head of list, only if list exists
func execLPushX(db *DB, args [][]byte) redis.Reply {
	return push(db, args, true, true)
}

// execRPush inserts element at last of list
func execRPush(db *DB, args [][]byte) redis.Reply {
	return push(db, args, false, false)
}

// execRPushX inserts element at last of list only if list exists
func execRPushX(db *DB, args [][]byte) redis.Reply {
	return push(db, args, false, true)
}

// execLRange gets elements of list in given range
func execLRange(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	start, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	stop, errReply := parseInt(args[2])
	if errReply != nil {
		return errReply
	}
	list, err := db.getAsList(key)
	if err != nil {
		return err
	}
	if list == nil {
		return &protocol.EmptyMultiBulkReply{}
	}
	from, to, ok := normalizeRange(start, stop, int64(list.Len()))
	if !ok {
		return &protocol.EmptyMultiBulkReply{}
	}
	return protocol.MakeMultiBulkReply(list.Range(int(from), int(to)))
}

// execLRem removes element of list at specified index
func execLRem(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	count, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	list, err := db.getAsList(key)
	if err != nil {
		return err
	}
	if list == nil {
		return protocol.MakeIntReply(0)
	}
	removed := list.RemoveByVal(args[2], int(count))
	if removed > 0 {
		db.markModified(key)
	}
	db.removeListIfEmpty(key, list)
	return protocol.MakeIntReply(int64(removed))
}

// execLSet puts element at specified index of list
func execLSet(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	index, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	list, err := db.getAsList(key)
	if err != nil {
		return err
	}
	if list == nil {
		return errNoSuchKey
	}
	size := int64(list.Len())
	if index < 0 {
		index += size
	}
	if index < 0 || index >= size {
		return errOutOfRange
	}
	list.Set(int(index), args[2])
	db.markModified(key)
	return &protocol.OkReply{}
}

// execLTrim keeps elements within [start, stop] only
func execLTrim(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	start, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	stop, errReply := parseInt(args[2])
	if errReply != nil {
		return errReply
	}
	list, err := db.getAsList(key)
	if err != nil {
		return err
	}
	if list == nil {
		return &protocol.OkReply{}
	}
	from, to, ok := normalizeRange(start, stop, int64(list.Len()))
	if !ok {
		db.Remove(key)
		return &protocol.OkReply{}
	}
	if from > 0 || to < int64(list.Len()) {
		list.Trim(int(from), int(to))
		db.markModified(key)
	}
	db.removeListIfEmpty(key, list)
	return &protocol.OkReply{}
}

// execLInsert inserts element before or after pivot
func execLInsert(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	var before bool
	switch strings.ToUpper(string(args[1])) {
	case "BEFORE":
		before = true
	case "AFTER":
		before = false
	default:
		return &protocol.SyntaxErrReply{}
	}
	list, errReply := db.getAsList(key)
	if errReply != nil {
		return errReply
	}
	if list == nil {
		return protocol.MakeIntReply(0)
	}
	pivot := -1
	list.ForEach(func(i int, v []byte) bool {
		if string(v) == string(args[2]) {
			pivot = i
			return false
		}
		return true
	})
	if pivot < 0 {
		return protocol.MakeIntReply(-1)
	}
	if !before {
		pivot++
	}
	if pivot == list.Len() {
		list.Add(args[3])
	} else {
		list.Insert(pivot, args[3])
	}
	db.markModified(key)
	return protocol.MakeIntReply(int64(list.Len()))
}

// execLPos returns indexes of matching elements: LPOS key element [RANK rank] [COUNT num] [MAXLEN len]
func execLPos(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	element := string(args[1])
	rank, count, maxLen := int64(1), int64(-1), int64(0)
	for i := 2; i < len(args); i += 2 {
		if i+1 >= len(args) {
			return &protocol.SyntaxErrReply{}
		}
		v, errReply := parseInt(args[i+1])
		if errReply != nil {
			return errReply
		}
		switch strings.ToUpper(string(args[i])) {
		case "RANK":
			if v == 0 {
				return protocol.MakeErrReply("ERR RANK can't be zero: use 1 to start from the first match, 2 from the second ... or use negative to start from the end of the list")
			}
			rank = v
		case "COUNT":
			if v < 0 {
				return protocol.MakeErrReply("ERR COUNT can't be negative")
			}
			count = v
		case "MAXLEN":
			if v < 0 {
				return protocol.MakeErrReply("ERR MAXLEN can't be negative")
			}
			maxLen = v
		default:
			return &protocol.SyntaxErrReply{}
		}
	}
	list, errReply := db.getAsList(key)
	if errReply != nil {
		return errReply
	}
	matches := make([]int64, 0)
	if list != nil {
		vals := list.Range(0, list.Len())
		size := int64(len(vals))
		skip := rank - 1
		if rank < 0 {
			skip = -rank - 1
		}
		limit := count
		if count == 0 {
			limit = size
		} else if count < 0 {
			limit = 1
		}
		for step := int64(0); step < size && int64(len(matches)) < limit; step++ {
			if maxLen > 0 && step >= maxLen {
				break
			}
			idx := step
			if rank < 0 {
				idx = size - 1 - step
			}
			if string(vals[idx]) != element {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			matches = append(matches, idx)
		}
	}
	if count < 0 {
		if len(matches) == 0 {
			return &protocol.NullBulkReply{}
		}
		return protocol.MakeIntReply(matches[0])
	}
	replies := make([]redis.Reply, len(matches))
	for i, idx := range matches {
		replies[i] = protocol.MakeIntReply(idx)
	}
	return protocol.MakeMultiRawReply(replies)
}

func parseDirection(arg []byte) (left bool, ok bool) {
	switch strings.ToUpper(string(arg)) {
	case "LEFT":
		return true, true
	case "RIGHT":
		return false, true
	}
	return false, false
}

// moveElement pops from src and pushes to dest, the destination type is checked before popping
func moveElement(db *DB, src, dest string, fromLeft, toLeft bool) redis.Reply {
	srcList, errReply := db.getAsList(src)
	if errReply != nil {
		return errReply
	}
	if srcList == nil {
		return nil
	}
	if _, errReply := db.getAsList(dest); errReply != nil {
		return errReply
	}
	var val []byte
	if fromLeft {
		val = srcList.RemoveFirst()
	} else {
		val = srcList.RemoveLast()
	}
	db.removeListIfEmpty(src, srcList)
	destList, _, _ := db.getOrInitList(dest)
	if toLeft {
		destList.PushFront(val)
	} else {
		destList.Add(val)
	}
	db.markModified(src, dest)
	return protocol.MakeBulkReply(val)
}

func moveReply(reply redis.Reply) redis.Reply {
	if reply == nil {
		return &protocol.NullBulkReply{}
	}
	return reply
}

// execRPopLPush pops last element of list-A then insert it to the head of list-B
func execRPopLPush(db *DB, args [][]byte) redis.Reply {
	return moveReply(moveElement(db, string(args[0]), string(args[1]), false, true))
}

// execLMove atomically moves an element between lists: LMOVE source destination LEFT|RIGHT LEFT|RIGHT
func execLMove(db *DB, args [][]byte) redis.Reply {
	fromLeft, ok1 := parseDirection(args[2])
	toLeft, ok2 := parseDirection(args[3])
	if !ok1 || !ok2 {
		return &protocol.SyntaxErrReply{}
	}
	return moveReply(moveElement(db, string(args[0]), string(args[1]), fromLeft, toLeft))
}

// mpopArgs is the parsed tail of LMPOP/BLMPOP: numkeys key [key ...] LEFT|RIGHT [COUNT count]
type mpopArgs struct {
	keys  []string
	left  bool
	count int
}

func parseMPopArgs(args [][]byte) (*mpopArgs, redis.Reply) {
	numKeys, err := strconv.Atoi(string(args[0]))
	if err != nil || numKeys <= 0 {
		return nil, protocol.MakeErrReply("ERR numkeys should be greater than 0")
	}
	if len(args) < numKeys+2 {
		return nil, &protocol.SyntaxErrReply{}
	}
	result := &mpopArgs{count: 1}
	for _, arg := range args[1 : numKeys+1] {
		result.keys = append(result.keys, string(arg))
	}
	left, ok := parseDirection(args[numKeys+1])
	if !ok {
		return nil, &protocol.SyntaxErrReply{}
	}
	result.left = left
	rest := args[numKeys+2:]
	if len(rest) == 2 && strings.EqualFold(string(rest[0]), "COUNT") {
		count, err := strconv.Atoi(string(rest[1]))
		if err != nil || count <= 0 {
			return nil, protocol.MakeErrReply("ERR count should be greater than 0")
		}
		result.count = count
	} else if len(rest) != 0 {
		return nil, &protocol.SyntaxErrReply{}
	}
	return result, nil
}

func (opts *mpopArgs) serve(db *DB, key string) redis.Reply {
	list, errReply := db.getAsList(key)
	if errReply != nil {
		return errReply
	}
	if list == nil {
		return nil
	}
	vals := popList(list, opts.count, opts.left)
	db.markModified(key)
	db.removeListIfEmpty(key, list)
	return protocol.MakeMultiRawReply([]redis.Reply{
		protocol.MakeBulkReply([]byte(key)),
		protocol.MakeMultiBulkReply(vals),
	})
}

// execLMPop pops elements from the first non-empty list
func execLMPop(db *DB, args [][]byte) redis.Reply {
	opts, errReply := parseMPopArgs(args)
	if errReply != nil {
		return errReply
	}
	for _, key := range opts.keys {
		if reply := opts.serve(db, key); reply != nil {
			return reply
		}
	}
	return protocol.MakeNullMultiBulkReply()
}

// popServe serves BLPOP and BRPOP, the reply is [key, element]
func popServe(left bool) serveFunc {
	return func(db *DB, key string) redis.Reply {
		list, errReply := db.getAsList(key)
		if errReply != nil {
			return errReply
		}
		if list == nil {
			return nil
		}
		vals := popList(list, 1, left)
		db.markModified(key)
		db.removeListIfEmpty(key, list)
		return protocol.MakeMultiBulkReply([][]byte{[]byte(key), vals[0]})
	}
}

func blockingPop(ec *execContext, args [][]byte, left bool) redis.Reply {
	timeout, errReply := parseTimeout(args[len(args)-1])
	if errReply != nil {
		return errReply
	}
	keys := make([]string, len(args)-1)
	for i, arg := range args[:len(args)-1] {
		keys[i] = string(arg)
	}
	return ec.serveOrBlock(keys, timeout, protocol.MakeNullMultiBulkReply(), popServe(left))
}

// execBLPop removes and returns the first element of the first non-empty list, blocks if all are empty
func execBLPop(ec *execContext, args [][]byte) redis.Reply {
	return blockingPop(ec, args, true)
}

func execBRPop(ec *execContext, args [][]byte) redis.Reply {
	return blockingPop(ec, args, false)
}

func blockingMove(ec *execContext, src, dest string, fromLeft, toLeft bool, timeoutArg []byte) redis.Reply {
	timeout, errReply := parseTimeout(timeoutArg)
	if errReply != nil {
		return errReply
	}
	serve := func(db *DB, key string) redis.Reply {
		return moveElement(db, src, dest, fromLeft, toLeft)
	}
	return ec.serveOrBlock([]string{src}, timeout, &protocol.NullBulkReply{}, serve)
}

// execBRPopLPush is the blocking variant of RPOPLPUSH
func execBRPopLPush(ec *execContext, args [][]byte) redis.Reply {
	return blockingMove(ec, string(args[0]), string(args[1]), false, true, args[2])
}

// execBLMove is the blocking variant of LMOVE
func execBLMove(ec *execContext, args [][]byte) redis.Reply {
	fromLeft, ok1 := parseDirection(args[2])
	toLeft, ok2 := parseDirection(args[3])
	if !ok1 || !ok2 {
		return &protocol.SyntaxErrReply{}
	}
	return blockingMove(ec, string(args[0]), string(args[1]), fromLeft, toLeft, args[4])
}

// execBLMPop is the blocking variant of LMPOP: BLMPOP timeout numkeys key [key ...] LEFT|RIGHT [COUNT count]
func execBLMPop(ec *execContext, args [][]byte) redis.Reply {
	timeout, errReply := parseTimeout(args[0])
	if errReply != nil {
		return errReply
	}
	opts, parseErr := parseMPopArgs(args[1:])
	if parseErr != nil {
		return parseErr
	}
	return ec.serveOrBlock(opts.keys, timeout, protocol.MakeNullMultiBulkReply(), opts.serve)
}

func prepareLMPop(args [][]byte) ([]string, []string) {
	return writeNumKeys(args)
}

func prepareBlockingMove(args [][]byte) ([]string, []string) {
	return nil, []string{string(args[0]), string(args[1])}
}

func init() {
	registerCommand("LPush", execLPush, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("LPushX", execLPushX, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("RPush", execRPush, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("RPushX", execRPushX, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("LPop", execLPop, writeFirstKey, -2, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("RPop", execRPop, writeFirstKey, -2, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("RPopLPush", execRPopLPush, writeFirstTwoKeys, 3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 2, 1)
	registerCommand("LMove", execLMove, writeFirstTwoKeys, 5, flagWrite).
		since(6, 2, 0).attachCommandExtra([]string{Write, Denyoom}, 1, 2, 1)
	registerCommand("LMPop", execLMPop, prepareLMPop, -4, flagWrite).
		since(7, 0, 0).attachCommandExtra([]string{Write, Movablekeys}, 0, 0, 0)
	registerCommand("LRem", execLRem, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write}, 1, 1, 1)
	registerCommand("LLen", execLLen, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("LIndex", execLIndex, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("LSet", execLSet, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("LRange", execLRange, readFirstKey, 4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("LTrim", execLTrim, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write}, 1, 1, 1)
	registerCommand("LInsert", execLInsert, writeFirstKey, 5, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, 1, 1)
	registerCommand("LPos", execLPos, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)

	registerSysCommand("BLPop", execBLPop, readKeysButLast, -3, flagWrite|flagBlocking).
		attachCommandExtra([]string{Write, Noscript}, 1, -2, 1)
	registerSysCommand("BRPop", execBRPop, readKeysButLast, -3, flagWrite|flagBlocking).
		attachCommandExtra([]string{Write, Noscript}, 1, -2, 1)
	registerSysCommand("BRPopLPush", execBRPopLPush, prepareBlockingMove, 4, flagWrite|flagBlocking).
		attachCommandExtra([]string{Write, Denyoom, Noscript}, 1, 2, 1)
	registerSysCommand("BLMove", execBLMove, prepareBlockingMove, 6, flagWrite|flagBlocking).
		since(6, 2, 0).attachCommandExtra([]string{Write, Denyoom, Noscript}, 1, 2, 1)
	registerSysCommand("BLMPop", execBLMPop, readNumKeysAfterTimeout, -5, flagWrite|flagBlocking).
		since(7, 0, 0).attachCommandExtra([]string{Write, Movablekeys}, 0, 0, 0)
}
