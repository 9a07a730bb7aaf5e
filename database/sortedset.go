package database

import (
	"math"
	"strings"

	SortedSet "github.com/fakedis/fakedis/datastruct/sortedset"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func (db *DB) getAsSortedSet(key string) (*SortedSet.SortedSet, protocol.ErrorReply) {
	entity, exists := db.GetEntity(key)
	if !exists {
		return nil, nil
	}
	if entity.Type != database.TypeZSet {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return entity.Data.(*SortedSet.SortedSet), nil
}

func (db *DB) getOrInitSortedSet(key string) (sortedSet *SortedSet.SortedSet, inited bool, errReply protocol.ErrorReply) {
	sortedSet, errReply = db.getAsSortedSet(key)
	if errReply != nil {
		return nil, false, errReply
	}
	inited = false
	if sortedSet == nil {
		sortedSet = SortedSet.Make()
		db.PutEntity(key, &database.DataEntity{
			Type: database.TypeZSet,
			Data: sortedSet,
		})
		inited = true
	}
	return sortedSet, inited, nil
}

func (db *DB) removeSortedSetIfEmpty(key string, sortedSet *SortedSet.SortedSet) {
	if sortedSet.Len() == 0 {
		db.Remove(key)
	}
}

func scoreReply(score float64) *protocol.BulkReply {
	return protocol.MakeBulkReply([]byte(formatFloat(score)))
}

func elementsReply(elements []*SortedSet.Element, withScores bool) redis.Reply {
	size := len(elements)
	if withScores {
		size *= 2
	}
	result := make([][]byte, 0, size)
	for _, elem := range elements {
		result = append(result, []byte(elem.Member))
		if withScores {
			result = append(result, []byte(formatFloat(elem.Score)))
		}
	}
	return protocol.MakeMultiBulkReply(result)
}

type zaddOptions struct {
	nx, xx, gt, lt, ch, incr bool
}

// execZAdd adds members: ZADD key [NX|XX] [GT|LT] [CH] [INCR] score member [score member ...]
func execZAdd(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	opts := zaddOptions{}
	i := 1
loop:
	for ; i < len(args); i++ {
		switch strings.ToUpper(string(args[i])) {
		case "NX":
			opts.nx = true
		case "XX":
			opts.xx = true
		case "GT":
			opts.gt = true
		case "LT":
			opts.lt = true
		case "CH":
			opts.ch = true
		case "INCR":
			opts.incr = true
		default:
			break loop
		}
	}
	pairs := args[i:]
	if len(pairs) == 0 || len(pairs)%2 != 0 {
		return &protocol.SyntaxErrReply{}
	}
	if opts.nx && opts.xx {
		return protocol.MakeErrReply("ERR XX and NX options at the same time are not compatible")
	}
	if (opts.gt && opts.lt) || (opts.nx && (opts.gt || opts.lt)) {
		return protocol.MakeErrReply("ERR GT, LT, and/or NX options at the same time are not compatible")
	}
	if opts.incr && len(pairs) != 2 {
		return protocol.MakeErrReply("ERR INCR option supports a single increment-element pair")
	}
	elements := make([]*SortedSet.Element, len(pairs)/2)
	for j := 0; j < len(pairs); j += 2 {
		score, errReply := parseFloat(pairs[j])
		if errReply != nil {
			return errReply
		}
		elements[j/2] = &SortedSet.Element{
			Member: string(pairs[j+1]),
			Score:  score,
		}
	}

	sortedSet, errReply := db.getAsSortedSet(key)
	if errReply != nil {
		return errReply
	}
	if sortedSet == nil {
		if opts.xx {
			if opts.incr {
				return &protocol.NullBulkReply{}
			}
			return protocol.MakeIntReply(0)
		}
		sortedSet, _, _ = db.getOrInitSortedSet(key)
	}

	added, changed := 0, 0
	var incrResult redis.Reply = &protocol.NullBulkReply{}
	for _, e := range elements {
		current, exists := sortedSet.Get(e.Member)
		if (opts.nx && exists) || (opts.xx && !exists) {
			continue
		}
		score := e.Score
		if opts.incr && exists {
			score += current.Score
			if math.IsNaN(score) {
				db.removeSortedSetIfEmpty(key, sortedSet)
				return protocol.MakeErrReply("ERR resulting score is not a number (NaN)")
			}
		}
		if exists && ((opts.gt && score <= current.Score) || (opts.lt && score >= current.Score)) {
			continue
		}
		if !exists {
			added++
		} else if current.Score != score {
			changed++
		}
		sortedSet.Add(e.Member, score)
		incrResult = scoreReply(score)
	}
	if added+changed > 0 {
		db.markModified(key)
	}
	db.removeSortedSetIfEmpty(key, sortedSet)
	if opts.incr {
		return incrResult
	}
	if opts.ch {
		return protocol.MakeIntReply(int64(added + changed))
	}
	return protocol.MakeIntReply(int64(added))
}

// execZIncrBy increments the score of member
func execZIncrBy(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	delta, errReply := parseFloat(args[1])
	if errReply != nil {
		return errReply
	}
	member := string(args[2])

	sortedSet, _, err := db.getOrInitSortedSet(key)
	if err != nil {
		return err
	}
	score := delta
	if element, exists := sortedSet.Get(member); exists {
		score += element.Score
	}
	if math.IsNaN(score) {
		db.removeSortedSetIfEmpty(key, sortedSet)
		return protocol.MakeErrReply("ERR resulting score is not a number (NaN)")
	}
	sortedSet.Add(member, score)
	db.markModified(key)
	return scoreReply(score)
}

// execZScore gets score of a member in sortedset
func execZScore(db *DB, args [][]byte) redis.Reply {
	sortedSet, errReply := db.getAsSortedSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if sortedSet == nil {
		return &protocol.NullBulkReply{}
	}
	element, exists := sortedSet.Get(string(args[1]))
	if !exists {
		return &protocol.NullBulkReply{}
	}
	return scoreReply(element.Score)
}

// execZMScore gets scores of members, missing members are nil
func execZMScore(db *DB, args [][]byte) redis.Reply {
	sortedSet, errReply := db.getAsSortedSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	result := make([][]byte, len(args)-1)
	if sortedSet == nil {
		return protocol.MakeMultiBulkReply(result)
	}
	for i, member := range args[1:] {
		if element, exists := sortedSet.Get(string(member)); exists {
			result[i] = []byte(formatFloat(element.Score))
		}
	}
	return protocol.MakeMultiBulkReply(result)
}

func execZCard(db *DB, args [][]byte) redis.Reply {
	sortedSet, errReply := db.getAsSortedSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if sortedSet == nil {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(sortedSet.Len())
}

func parseBorders(minArg, maxArg []byte) (*SortedSet.ScoreBorder, *SortedSet.ScoreBorder, redis.Reply) {
	min, err := SortedSet.ParseScoreBorder(string(minArg))
	if err != nil {
		return nil, nil, protocol.MakeErrReply(err.Error())
	}
	max, err := SortedSet.ParseScoreBorder(string(maxArg))
	if err != nil {
		return nil, nil, protocol.MakeErrReply(err.Error())
	}
	return min, max, nil
}

// execZCount gets number of members which score within given range
func execZCount(db *DB, args [][]byte) redis.Reply {
	min, max, errReply := parseBorders(args[1], args[2])
	if errReply != nil {
		return errReply
	}
	sortedSet, err := db.getAsSortedSet(string(args[0]))
	if err != nil {
		return err
	}
	if sortedSet == nil {
		return protocol.MakeIntReply(0)
	}
	return protocol.MakeIntReply(sortedSet.Count(min, max))
}

func rank(db *DB, args [][]byte, desc bool) redis.Reply {
	sortedSet, errReply := db.getAsSortedSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if sortedSet == nil {
		return &protocol.NullBulkReply{}
	}
	r := sortedSet.GetRank(string(args[1]), desc)
	if r < 0 {
		return &protocol.NullBulkReply{}
	}
	return protocol.MakeIntReply(r)
}

// execZRank gets index of a member in sortedset, ascending order, start from 0
func execZRank(db *DB, args [][]byte) redis.Reply {
	return rank(db, args, false)
}

// execZRevRank gets index of a member in sortedset, descending order, start from 0
func execZRevRank(db *DB, args [][]byte) redis.Reply {
	return rank(db, args, true)
}

// rangeSpec is a parsed range request shared by the ZRANGE family
type rangeSpec struct {
	byScore    bool
	rev        bool
	withScores bool
	hasLimit   bool
	offset     int64
	count      int64
}

func rangeElements(sortedSet *SortedSet.SortedSet, startArg, stopArg []byte, spec *rangeSpec) ([]*SortedSet.Element, redis.Reply) {
	if spec.byScore {
		minArg, maxArg := startArg, stopArg
		if spec.rev {
			minArg, maxArg = stopArg, startArg
		}
		min, max, errReply := parseBorders(minArg, maxArg)
		if errReply != nil {
			return nil, errReply
		}
		if sortedSet == nil {
			return nil, nil
		}
		limit := int64(-1)
		if spec.hasLimit {
			limit = spec.count
		}
		return sortedSet.RangeByScore(min, max, spec.offset, limit, spec.rev), nil
	}
	start, errReply := parseInt(startArg)
	if errReply != nil {
		return nil, errReply
	}
	stop, errReply := parseInt(stopArg)
	if errReply != nil {
		return nil, errReply
	}
	if sortedSet == nil {
		return nil, nil
	}
	from, to, ok := normalizeRange(start, stop, sortedSet.Len())
	if !ok {
		return nil, nil
	}
	return sortedSet.RangeByRank(from, to, spec.rev), nil
}

func zrange(db *DB, key string, startArg, stopArg []byte, spec *rangeSpec) redis.Reply {
	sortedSet, errReply := db.getAsSortedSet(key)
	if errReply != nil {
		return errReply
	}
	elements, errResult := rangeElements(sortedSet, startArg, stopArg, spec)
	if errResult != nil {
		return errResult
	}
	if len(elements) == 0 {
		return &protocol.EmptyMultiBulkReply{}
	}
	return elementsReply(elements, spec.withScores)
}

// parseRangeOptions parses trailing options, allowed lists the accepted option names
func parseRangeOptions(args [][]byte, spec *rangeSpec, allowed ...string) redis.Reply {
	for i := 0; i < len(args); i++ {
		opt := strings.ToUpper(string(args[i]))
		permitted := false
		for _, a := range allowed {
			if a == opt {
				permitted = true
				break
			}
		}
		if !permitted {
			return &protocol.SyntaxErrReply{}
		}
		switch opt {
		case "WITHSCORES":
			spec.withScores = true
		case "BYSCORE":
			spec.byScore = true
		case "REV":
			spec.rev = true
		case "LIMIT":
			if i+2 >= len(args) {
				return &protocol.SyntaxErrReply{}
			}
			offset, errReply := parseInt(args[i+1])
			if errReply != nil {
				return errReply
			}
			count, errReply := parseInt(args[i+2])
			if errReply != nil {
				return errReply
			}
			spec.hasLimit, spec.offset, spec.count = true, offset, count
			i += 2
		}
	}
	return nil
}

// execZRange gets members in range: ZRANGE key start stop [BYSCORE] [REV] [LIMIT offset count] [WITHSCORES]
func execZRange(db *DB, args [][]byte) redis.Reply {
	spec := &rangeSpec{}
	if errReply := parseRangeOptions(args[3:], spec, "WITHSCORES", "BYSCORE", "REV", "LIMIT"); errReply != nil {
		return errReply
	}
	if spec.hasLimit && !spec.byScore {
		return protocol.MakeErrReply("ERR syntax error, LIMIT is only supported in combination with either BYSCORE or BYLEX")
	}
	return zrange(db, string(args[0]), args[1], args[2], spec)
}

// execZRevRange gets members in range, sort by score in descending order
func execZRevRange(db *DB, args [][]byte) redis.Reply {
	spec := &rangeSpec{rev: true}
	if errReply := parseRangeOptions(args[3:], spec, "WITHSCORES"); errReply != nil {
		return errReply
	}
	return zrange(db, string(args[0]), args[1], args[2], spec)
}

// execZRangeByScore gets members which score within given range, in ascending order
func execZRangeByScore(db *DB, args [][]byte) redis.Reply {
	spec := &rangeSpec{byScore: true}
	if errReply := parseRangeOptions(args[3:], spec, "WITHSCORES", "LIMIT"); errReply != nil {
		return errReply
	}
	return zrange(db, string(args[0]), args[1], args[2], spec)
}

// execZRevRangeByScore gets members which score within given range, in descending order
func execZRevRangeByScore(db *DB, args [][]byte) redis.Reply {
	spec := &rangeSpec{byScore: true, rev: true}
	if errReply := parseRangeOptions(args[3:], spec, "WITHSCORES", "LIMIT"); errReply != nil {
		return errReply
	}
	return zrange(db, string(args[0]), args[1], args[2], spec)
}

// execZRem removes given members
func execZRem(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	sortedSet, errReply := db.getAsSortedSet(key)
	if errReply != nil {
		return errReply
	}
	if sortedSet == nil {
		return protocol.MakeIntReply(0)
	}
	var deleted int64 = 0
	for _, field := range args[1:] {
		if sortedSet.Remove(string(field)) {
			deleted++
		}
	}
	if deleted > 0 {
		db.markModified(key)
	}
	db.removeSortedSetIfEmpty(key, sortedSet)
	return protocol.MakeIntReply(deleted)
}

// execZRemRangeByScore removes members which score within given range
func execZRemRangeByScore(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	min, max, errReply := parseBorders(args[1], args[2])
	if errReply != nil {
		return errReply
	}
	sortedSet, err := db.getAsSortedSet(key)
	if err != nil {
		return err
	}
	if sortedSet == nil {
		return protocol.MakeIntReply(0)
	}
	removed := sortedSet.RemoveByScore(min, max)
	if removed > 0 {
		db.markModified(key)
	}
	db.removeSortedSetIfEmpty(key, sortedSet)
	return protocol.MakeIntReply(removed)
}

// execZRemRangeByRank removes members within given indexes
func execZRemRangeByRank(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	start, errReply := parseInt(args[1])
	if errReply != nil {
		return errReply
	}
	stop, errReply := parseInt(args[2])
	if errReply != nil {
		return errReply
	}
	sortedSet, err := db.getAsSortedSet(key)
	if err != nil {
		return err
	}
	if sortedSet == nil {
		return protocol.MakeIntReply(0)
	}
	from, to, ok := normalizeRange(start, stop, sortedSet.Len())
	if !ok {
		return protocol.MakeIntReply(0)
	}
	removed := sortedSet.RemoveByRank(from, to)
	if removed > 0 {
		db.markModified(key)
	}
	db.removeSortedSetIfEmpty(key, sortedSet)
	return protocol.MakeIntReply(removed)
}

func popElements(sortedSet *SortedSet.SortedSet, count int, max bool) []*SortedSet.Element {
	if max {
		return sortedSet.PopMax(count)
	}
	return sortedSet.PopMin(count)
}

func zpop(db *DB, args [][]byte, max bool) redis.Reply {
	key := string(args[0])
	count := 1
	if len(args) == 2 {
		var errReply *protocol.StandardErrReply
		count, errReply = parsePositiveCount(args[1])
		if errReply != nil {
			return errReply
		}
	} else if len(args) > 2 {
		return &protocol.SyntaxErrReply{}
	}
	sortedSet, errReply := db.getAsSortedSet(key)
	if errReply != nil {
		return errReply
	}
	if sortedSet == nil {
		return &protocol.EmptyMultiBulkReply{}
	}
	removed := popElements(sortedSet, count, max)
	db.markModified(key)
	db.removeSortedSetIfEmpty(key, sortedSet)
	return elementsReply(removed, true)
}

// execZPopMin removes and returns members with the lowest scores
func execZPopMin(db *DB, args [][]byte) redis.Reply {
	return zpop(db, args, false)
}

// execZPopMax removes and returns members with the highest scores
func execZPopMax(db *DB, args [][]byte) redis.Reply {
	return zpop(db, args, true)
}

func blockingZPop(ec *execContext, args [][]byte, max bool) redis.Reply {
	timeout, errReply := parseTimeout(args[len(args)-1])
	if errReply != nil {
		return errReply
	}
	keys := make([]string, len(args)-1)
	for i, arg := range args[:len(args)-1] {
		keys[i] = string(arg)
	}
	serve := func(db *DB, key string) redis.Reply {
		sortedSet, errReply := db.getAsSortedSet(key)
		if errReply != nil {
			return errReply
		}
		if sortedSet == nil {
			return nil
		}
		elem := popElements(sortedSet, 1, max)[0]
		db.markModified(key)
		db.removeSortedSetIfEmpty(key, sortedSet)
		return protocol.MakeMultiBulkReply([][]byte{
			[]byte(key),
			[]byte(elem.Member),
			[]byte(formatFloat(elem.Score)),
		})
	}
	return ec.serveOrBlock(keys, timeout, protocol.MakeNullMultiBulkReply(), serve)
}

// execBZPopMin is the blocking variant of ZPOPMIN, replies [key, member, score]
func execBZPopMin(ec *execContext, args [][]byte) redis.Reply {
	return blockingZPop(ec, args, false)
}

func execBZPopMax(ec *execContext, args [][]byte) redis.Reply {
	return blockingZPop(ec, args, true)
}

// execZScan iterates members and scores: ZSCAN key cursor [MATCH pattern] [COUNT count]
func execZScan(db *DB, args [][]byte) redis.Reply {
	opts, errReply := parseScanArgs(args[1:], false)
	if errReply != nil {
		return errReply
	}
	sortedSet, err := db.getAsSortedSet(string(args[0]))
	if err != nil {
		return err
	}
	if sortedSet == nil {
		return scanReply(0, [][]byte{})
	}
	elements, next := sortedSet.Scan(opts.cursor, opts.count, opts.pattern)
	result := make([][]byte, 0, len(elements)*2)
	for _, elem := range elements {
		result = append(result, []byte(elem.Member), []byte(formatFloat(elem.Score)))
	}
	return scanReply(next, result)
}

func init() {
	registerCommand("ZAdd", execZAdd, writeFirstKey, -4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("ZIncrBy", execZIncrBy, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("ZScore", execZScore, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("ZMScore", execZMScore, readFirstKey, -3, flagReadOnly).
		since(6, 2, 0).attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("ZCard", execZCard, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("ZCount", execZCount, readFirstKey, 4, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("ZRank", execZRank, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("ZRevRank", execZRevRank, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("ZRange", execZRange, readFirstKey, -4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("ZRevRange", execZRevRange, readFirstKey, -4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("ZRangeByScore", execZRangeByScore, readFirstKey, -4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("ZRevRangeByScore", execZRevRangeByScore, readFirstKey, -4, flagReadOnly).
		attachCommandExtra([]string{Readonly}, 1, 1, 1)
	registerCommand("ZRem", execZRem, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("ZRemRangeByScore", execZRemRangeByScore, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write}, 1, 1, 1)
	registerCommand("ZRemRangeByRank", execZRemRangeByRank, writeFirstKey, 4, flagWrite).
		attachCommandExtra([]string{Write}, 1, 1, 1)
	registerCommand("ZPopMin", execZPopMin, writeFirstKey, -2, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("ZPopMax", execZPopMax, writeFirstKey, -2, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("ZScan", execZScan, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)

	registerSysCommand("BZPopMin", execBZPopMin, readKeysButLast, -3, flagWrite|flagBlocking).
		attachCommandExtra([]string{Write, Noscript, Fast}, 1, -2, 1)
	registerSysCommand("BZPopMax", execBZPopMax, readKeysButLast, -3, flagWrite|flagBlocking).
		attachCommandExtra([]string{Write, Noscript, Fast}, 1, -2, 1)
}
