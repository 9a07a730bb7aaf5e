package sortedset

import (
	"strconv"

	"github.com/fakedis/fakedis/lib/wildcard"
)

// SortedSet is a set which keys sorted by bound score, members of equal score are sorted lexicographically
type SortedSet struct {
	dict     map[string]*Element
	skiplist *skiplist
}

// Make makes a new SortedSet
func Make() *SortedSet {
	return &SortedSet{
		dict:     make(map[string]*Element),
		skiplist: makeSkiplist(),
	}
}

// Add puts member into set,  and returns whether has inserted new node
func (sortedSet *SortedSet) Add(member string, score float64) bool {
	element, ok := sortedSet.dict[member]
	sortedSet.dict[member] = &Element{
		Member: member,
		Score:  score,
	}
	if ok {
		if score != element.Score {
			sortedSet.skiplist.remove(member, element.Score)
			sortedSet.skiplist.insert(member, score)
		}
		return false
	}
	sortedSet.skiplist.insert(member, score)
	return true
}

// Len returns number of members in set
func (sortedSet *SortedSet) Len() int64 {
	return int64(len(sortedSet.dict))
}

// Get returns the given member
func (sortedSet *SortedSet) Get(member string) (element *Element, ok bool) {
	element, ok = sortedSet.dict[member]
	return element, ok
}

// Remove removes the given member from set
func (sortedSet *SortedSet) Remove(member string) bool {
	v, ok := sortedSet.dict[member]
	if ok {
		sortedSet.skiplist.remove(member, v.Score)
		delete(sortedSet.dict, member)
		return true
	}
	return false
}

// GetRank returns the rank of the given member, rank starts from 0, returns -1 if member not found
func (sortedSet *SortedSet) GetRank(member string, desc bool) (rank int64) {
	element, ok := sortedSet.dict[member]
	if !ok {
		return -1
	}
	r := sortedSet.skiplist.getRank(member, element.Score)
	if desc {
		return sortedSet.skiplist.length - r
	}
	return r - 1
}

// ForEachByRank visits each member which rank within [start, stop), rank starts from 0
func (sortedSet *SortedSet) ForEachByRank(start int64, stop int64, desc bool, consumer func(element *Element) bool) {
	size := sortedSet.Len()
	if start < 0 || start >= size {
		panic("illegal start " + strconv.FormatInt(start, 10))
	}
	if stop < start || stop > size {
		panic("illegal end " + strconv.FormatInt(stop, 10))
	}

	var n *node
	if desc {
		n = sortedSet.skiplist.tail
		if start > 0 {
			n = sortedSet.skiplist.getByRank(size - start)
		}
	} else {
		n = sortedSet.skiplist.header.level[0].forward
		if start > 0 {
			n = sortedSet.skiplist.getByRank(start + 1)
		}
	}

	for i := start; i < stop && n != nil; i++ {
		if !consumer(&n.Element) {
			break
		}
		if desc {
			n = n.backward
		} else {
			n = n.level[0].forward
		}
	}
}

// RangeByRank returns members which rank within [start, stop), rank starts from 0
func (sortedSet *SortedSet) RangeByRank(start int64, stop int64, desc bool) []*Element {
	slice := make([]*Element, 0, stop-start)
	sortedSet.ForEachByRank(start, stop, desc, func(element *Element) bool {
		slice = append(slice, element)
		return true
	})
	return slice
}

// Count returns the number of  members which score within the given border
func (sortedSet *SortedSet) Count(min *ScoreBorder, max *ScoreBorder) int64 {
	var i int64
	sortedSet.ForEachByScore(min, max, 0, -1, false, func(element *Element) bool {
		i++
		return true
	})
	return i
}

// ForEachByScore visits members which score within the given border
// param limit: <0 means no limit
func (sortedSet *SortedSet) ForEachByScore(min *ScoreBorder, max *ScoreBorder, offset int64, limit int64, desc bool, consumer func(element *Element) bool) {
	var n *node
	if desc {
		n = sortedSet.skiplist.getLastInScoreRange(min, max)
	} else {
		n = sortedSet.skiplist.getFirstInScoreRange(min, max)
	}
	step := func() {
		if desc {
			n = n.backward
		} else {
			n = n.level[0].forward
		}
	}
	for n != nil && offset > 0 {
		step()
		offset--
	}
	for i := int64(0); (limit < 0 || i < limit) && n != nil; i++ {
		if !Contains(min, max, n.Score) {
			break
		}
		if !consumer(&n.Element) {
			break
		}
		step()
	}
}

// RangeByScore returns members which score within the given border
// param limit: <0 means no limit
func (sortedSet *SortedSet) RangeByScore(min *ScoreBorder, max *ScoreBorder, offset int64, limit int64, desc bool) []*Element {
	slice := make([]*Element, 0)
	if limit == 0 || offset < 0 {
		return slice
	}
	sortedSet.ForEachByScore(min, max, offset, limit, desc, func(element *Element) bool {
		slice = append(slice, element)
		return true
	})
	return slice
}

// RemoveByScore removes members which score within the given border
func (sortedSet *SortedSet) RemoveByScore(min *ScoreBorder, max *ScoreBorder) int64 {
	removed := sortedSet.skiplist.removeRangeByScore(min, max)
	for _, element := range removed {
		delete(sortedSet.dict, element.Member)
	}
	return int64(len(removed))
}

// RemoveByRank removes member ranking within [start, stop)
// sort by ascending order and rank starts from 0
func (sortedSet *SortedSet) RemoveByRank(start int64, stop int64) int64 {
	removed := sortedSet.skiplist.removeRangeByRank(start+1, stop+1)
	for _, element := range removed {
		delete(sortedSet.dict, element.Member)
	}
	return int64(len(removed))
}

// PopMin removes and returns at most count members with the lowest scores
func (sortedSet *SortedSet) PopMin(count int) []*Element {
	if int64(count) > sortedSet.Len() {
		count = int(sortedSet.Len())
	}
	removed := sortedSet.skiplist.removeRangeByRank(1, int64(count)+1)
	for _, element := range removed {
		delete(sortedSet.dict, element.Member)
	}
	return removed
}

// PopMax removes and returns at most count members with the highest scores, highest first
func (sortedSet *SortedSet) PopMax(count int) []*Element {
	size := sortedSet.Len()
	if int64(count) > size {
		count = int(size)
	}
	removed := sortedSet.skiplist.removeRangeByRank(size-int64(count)+1, size+1)
	for i, j := 0, len(removed)-1; i < j; i, j = i+1, j-1 {
		removed[i], removed[j] = removed[j], removed[i]
	}
	for _, element := range removed {
		delete(sortedSet.dict, element.Member)
	}
	return removed
}

// Scan iterates members in rank order, cursor is the rank of the next member to visit.
// It returns matched elements and the next cursor, 0 means the iteration is complete
func (sortedSet *SortedSet) Scan(cursor int, count int, pattern string) ([]*Element, int) {
	size := int(sortedSet.Len())
	if count <= 0 {
		count = 10
	}
	result := make([]*Element, 0)
	if cursor >= size {
		return result, 0
	}
	matchAll := pattern == "" || pattern == "*"
	var matcher *wildcard.Pattern
	if !matchAll {
		matcher = wildcard.CompilePattern(pattern)
	}
	stop := cursor + count
	if stop > size {
		stop = size
	}
	sortedSet.ForEachByRank(int64(cursor), int64(stop), false, func(element *Element) bool {
		if matchAll || matcher.IsMatch(element.Member) {
			result = append(result, element)
		}
		return true
	})
	if stop >= size {
		stop = 0
	}
	return result, stop
}
