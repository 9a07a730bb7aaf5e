package database

import (
	"strconv"
	"strings"

	HashSet "github.com/fakedis/fakedis/datastruct/set"
	"github.com/fakedis/fakedis/interface/database"
	"github.com/fakedis/fakedis/interface/redis"
	"github.com/fakedis/fakedis/redis/protocol"
)

func (db *DB) getAsSet(key string) (*HashSet.Set, protocol.ErrorReply) {
	entity, exists := db.GetEntity(key)
	if !exists {
		return nil, nil
	}
	if entity.Type != database.TypeSet {
		return nil, &protocol.WrongTypeErrReply{}
	}
	return entity.Data.(*HashSet.Set), nil
}

func (db *DB) getOrInitSet(key string) (set *HashSet.Set, inited bool, errReply protocol.ErrorReply) {
	set, errReply = db.getAsSet(key)
	if errReply != nil {
		return nil, false, errReply
	}
	inited = false
	if set == nil {
		set = HashSet.Make()
		db.PutEntity(key, &database.DataEntity{
			Type: database.TypeSet,
			Data: set,
		})
		inited = true
	}
	return set, inited, nil
}

// getSets loads sets of keys, a missing key is loaded as nil
func (db *DB) getSets(keys [][]byte) ([]*HashSet.Set, protocol.ErrorReply) {
	sets := make([]*HashSet.Set, len(keys))
	for i, key := range keys {
		set, errReply := db.getAsSet(string(key))
		if errReply != nil {
			return nil, errReply
		}
		sets[i] = set
	}
	return sets, nil
}

func setMembersReply(set *HashSet.Set) redis.Reply {
	if set == nil || set.Len() == 0 {
		return &protocol.EmptyMultiBulkReply{}
	}
	return protocol.MakeMultiBulkReply(toBulks(set.ToSlice()))
}

// execSAdd adds members into set
func execSAdd(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	members := args[1:]

	set, _, errReply := db.getOrInitSet(key)
	if errReply != nil {
		return errReply
	}
	counter := 0
	for _, member := range members {
		counter += set.Add(string(member))
	}
	if counter > 0 {
		db.markModified(key)
	}
	return protocol.MakeIntReply(int64(counter))
}

// execSIsMember checks if the given value is member of set
func execSIsMember(db *DB, args [][]byte) redis.Reply {
	set, errReply := db.getAsSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if set.Has(string(args[1])) {
		return protocol.MakeIntReply(1)
	}
	return protocol.MakeIntReply(0)
}

// execSMIsMember checks members in one call
func execSMIsMember(db *DB, args [][]byte) redis.Reply {
	set, errReply := db.getAsSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	replies := make([]redis.Reply, 0, len(args)-1)
	for _, member := range args[1:] {
		if set.Has(string(member)) {
			replies = append(replies, protocol.MakeIntReply(1))
		} else {
			replies = append(replies, protocol.MakeIntReply(0))
		}
	}
	return protocol.MakeMultiRawReply(replies)
}

// execSRem removes a member from set
func execSRem(db *DB, args [][]byte) redis.Reply {
	key := string(args[0])
	set, errReply := db.getAsSet(key)
	if errReply != nil {
		return errReply
	}
	if set == nil {
		return protocol.MakeIntReply(0)
	}
	counter := 0
	for _, member := range args[1:] {
		counter += set.Remove(string(member))
	}
	if counter > 0 {
		db.markModified(key)
	}
	if set.Len() == 0 {
		db.Remove(key)
	}
	return protocol.MakeIntReply(int64(counter))
}

// execSPop removes random members from set: SPOP key [count]
func execSPop(db *DB, args [][]byte) redis.Reply {
	if len(args) > 2 {
		return &protocol.SyntaxErrReply{}
	}
	key := string(args[0])
	count, withCount := 1, false
	if len(args) == 2 {
		var errReply *protocol.StandardErrReply
		count, errReply = parsePositiveCount(args[1])
		if errReply != nil {
			return errReply
		}
		withCount = true
	}

	set, errReply := db.getAsSet(key)
	if errReply != nil {
		return errReply
	}
	if set == nil {
		if withCount {
			return &protocol.EmptyMultiBulkReply{}
		}
		return &protocol.NullBulkReply{}
	}
	members := set.RandomDistinctMembers(count)
	for _, member := range members {
		set.Remove(member)
	}
	db.markModified(key)
	if set.Len() == 0 {
		db.Remove(key)
	}
	if !withCount {
		return protocol.MakeBulkReply([]byte(members[0]))
	}
	return protocol.MakeMultiBulkReply(toBulks(members))
}

// execSCard gets the number of members in a set
func execSCard(db *DB, args [][]byte) redis.Reply {
	set, errReply := db.getAsSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	return protocol.MakeIntReply(int64(set.Len()))
}

// execSMembers gets all members in a set
func execSMembers(db *DB, args [][]byte) redis.Reply {
	set, errReply := db.getAsSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	return setMembersReply(set)
}

// execSRandMember gets random members from set: SRANDMEMBER key [count]
func execSRandMember(db *DB, args [][]byte) redis.Reply {
	if len(args) > 2 {
		return &protocol.SyntaxErrReply{}
	}
	set, errReply := db.getAsSet(string(args[0]))
	if errReply != nil {
		return errReply
	}
	if len(args) == 1 {
		if set == nil {
			return &protocol.NullBulkReply{}
		}
		return protocol.MakeBulkReply([]byte(set.RandomMembers(1)[0]))
	}
	count, err := parseInt(args[1])
	if err != nil {
		return err
	}
	if set == nil || count == 0 {
		return &protocol.EmptyMultiBulkReply{}
	}
	var members []string
	if count > 0 {
		members = set.RandomDistinctMembers(int(count))
	} else {
		members = set.RandomMembers(int(-count))
	}
	return protocol.MakeMultiBulkReply(toBulks(members))
}

// execSMove moves a member from one set to another
func execSMove(db *DB, args [][]byte) redis.Reply {
	src := string(args[0])
	dest := string(args[1])
	member := string(args[2])

	srcSet, errReply := db.getAsSet(src)
	if errReply != nil {
		return errReply
	}
	if _, errReply = db.getAsSet(dest); errReply != nil {
		return errReply
	}
	if !srcSet.Has(member) {
		return protocol.MakeIntReply(0)
	}
	if src == dest {
		return protocol.MakeIntReply(1)
	}
	srcSet.Remove(member)
	if srcSet.Len() == 0 {
		db.Remove(src)
	}
	destSet, _, _ := db.getOrInitSet(dest)
	destSet.Add(member)
	db.markModified(src, dest)
	return protocol.MakeIntReply(1)
}

// calculateSets applies op to the sets at keys
func calculateSets(db *DB, keys [][]byte, op func(sets ...*HashSet.Set) *HashSet.Set) (*HashSet.Set, protocol.ErrorReply) {
	sets, errReply := db.getSets(keys)
	if errReply != nil {
		return nil, errReply
	}
	return op(sets...), nil
}

func setCalculate(op func(sets ...*HashSet.Set) *HashSet.Set) ExecFunc {
	return func(db *DB, args [][]byte) redis.Reply {
		result, errReply := calculateSets(db, args, op)
		if errReply != nil {
			return errReply
		}
		return setMembersReply(result)
	}
}

// setCalculateStore stores the result into the first key, an empty result removes it
func setCalculateStore(op func(sets ...*HashSet.Set) *HashSet.Set) ExecFunc {
	return func(db *DB, args [][]byte) redis.Reply {
		dest := string(args[0])
		result, errReply := calculateSets(db, args[1:], op)
		if errReply != nil {
			return errReply
		}
		if result.Len() == 0 {
			db.Remove(dest)
			return protocol.MakeIntReply(0)
		}
		db.Persist(dest)
		db.PutEntity(dest, &database.DataEntity{
			Type: database.TypeSet,
			Data: result,
		})
		return protocol.MakeIntReply(int64(result.Len()))
	}
}

// execSInterCard returns the size of the intersection: SINTERCARD numkeys key [key ...] [LIMIT limit]
func execSInterCard(db *DB, args [][]byte) redis.Reply {
	numKeys, err := strconv.Atoi(string(args[0]))
	if err != nil || numKeys <= 0 {
		return protocol.MakeErrReply("ERR numkeys should be greater than 0")
	}
	if len(args) < numKeys+1 {
		return protocol.MakeErrReply("ERR Number of keys can't be greater than number of args")
	}
	limit := 0
	rest := args[numKeys+1:]
	if len(rest) == 2 && strings.EqualFold(string(rest[0]), "LIMIT") {
		limit, err = strconv.Atoi(string(rest[1]))
		if err != nil || limit < 0 {
			return protocol.MakeErrReply("ERR LIMIT can't be negative")
		}
	} else if len(rest) != 0 {
		return &protocol.SyntaxErrReply{}
	}
	result, errReply := calculateSets(db, args[1:numKeys+1], HashSet.Intersect)
	if errReply != nil {
		return errReply
	}
	card := result.Len()
	if limit > 0 && card > limit {
		card = limit
	}
	return protocol.MakeIntReply(int64(card))
}

// execSScan iterates members of a set: SSCAN key cursor [MATCH pattern] [COUNT count]
func execSScan(db *DB, args [][]byte) redis.Reply {
	opts, errReply := parseScanArgs(args[1:], false)
	if errReply != nil {
		return errReply
	}
	set, err := db.getAsSet(string(args[0]))
	if err != nil {
		return err
	}
	if set == nil {
		return scanReply(0, [][]byte{})
	}
	members, next := set.Scan(opts.cursor, opts.count, opts.pattern)
	return scanReply(next, toBulks(members))
}

func init() {
	registerCommand("SAdd", execSAdd, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom, Fast}, 1, 1, 1)
	registerCommand("SIsMember", execSIsMember, readFirstKey, 3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("SMIsMember", execSMIsMember, readFirstKey, -3, flagReadOnly).
		since(6, 2, 0).attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("SRem", execSRem, writeFirstKey, -3, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 1, 1)
	registerCommand("SPop", execSPop, writeFirstKey, -2, flagWrite).
		attachCommandExtra([]string{Write, Random, Fast}, 1, 1, 1)
	registerCommand("SCard", execSCard, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Fast}, 1, 1, 1)
	registerCommand("SMembers", execSMembers, readFirstKey, 2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 1, 1, 1)
	registerCommand("SRandMember", execSRandMember, readFirstKey, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)
	registerCommand("SMove", execSMove, writeFirstTwoKeys, 4, flagWrite).
		attachCommandExtra([]string{Write, Fast}, 1, 2, 1)
	registerCommand("SInter", setCalculate(HashSet.Intersect), readAllKeys, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 1, -1, 1)
	registerCommand("SInterStore", setCalculateStore(HashSet.Intersect), prepareSetCalculateStore, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, -1, 1)
	registerCommand("SInterCard", execSInterCard, readNumKeys, -3, flagReadOnly).
		since(7, 0, 0).attachCommandExtra([]string{Readonly, Movablekeys}, 0, 0, 0)
	registerCommand("SUnion", setCalculate(HashSet.Union), readAllKeys, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 1, -1, 1)
	registerCommand("SUnionStore", setCalculateStore(HashSet.Union), prepareSetCalculateStore, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, -1, 1)
	registerCommand("SDiff", setCalculate(HashSet.Diff), readAllKeys, -2, flagReadOnly).
		attachCommandExtra([]string{Readonly, SortForScript}, 1, -1, 1)
	registerCommand("SDiffStore", setCalculateStore(HashSet.Diff), prepareSetCalculateStore, -3, flagWrite).
		attachCommandExtra([]string{Write, Denyoom}, 1, -1, 1)
	registerCommand("SScan", execSScan, readFirstKey, -3, flagReadOnly).
		attachCommandExtra([]string{Readonly, Random}, 1, 1, 1)
}
