package sortedset

import "math/rand"

const (
	maxLevel = 16
)

// Element is a key-score pair
type Element struct {
	Member string
	Score  float64
}

// Level aspect of a node
type Level struct {
	forward *node // forward node has greater score
	span    int64
}

type node struct {
	Element
	backward *node
	level    []*Level // level[0] is base level
}

type skiplist struct {
	header *node
	tail   *node
	length int64
	level  int16
}

func makeNode(level int16, score float64, member string) *node {
	n := &node{
		Element: Element{
			Score:  score,
			Member: member,
		},
		level: make([]*Level, level),
	}
	for i := range n.level {
		n.level[i] = new(Level)
	}
	return n
}

func makeSkiplist() *skiplist {
	return &skiplist{
		level:  1,
		header: makeNode(maxLevel, 0, ""),
	}
}

func randomLevel() int16 {
	level := int16(1)
	for level < maxLevel && rand.Int31n(4) == 0 {
		level++
	}
	return level
}

// before reports whether n sorts before (score, member)
func (n *node) before(score float64, member string) bool {
	return n.Score < score || (n.Score == score && n.Member < member)
}

// findUpdates returns, for each level, the last node sorting before (score, member) and the rank crossed to reach it
func (skiplist *skiplist) findUpdates(score float64, member string) ([]*node, []int64) {
	update := make([]*node, maxLevel)
	rank := make([]int64, maxLevel)
	x := skiplist.header
	for i := skiplist.level - 1; i >= 0; i-- {
		if i < skiplist.level-1 {
			rank[i] = rank[i+1]
		}
		for x.level[i].forward != nil && x.level[i].forward.before(score, member) {
			rank[i] += x.level[i].span
			x = x.level[i].forward
		}
		update[i] = x
	}
	return update, rank
}

func (skiplist *skiplist) insert(member string, score float64) *node {
	update, rank := skiplist.findUpdates(score, member)

	level := randomLevel()
	if level > skiplist.level {
		for i := skiplist.level; i < level; i++ {
			rank[i] = 0
			update[i] = skiplist.header
			update[i].level[i].span = skiplist.length
		}
		skiplist.level = level
	}

	n := makeNode(level, score, member)
	for i := int16(0); i < level; i++ {
		n.level[i].forward = update[i].level[i].forward
		update[i].level[i].forward = n
		n.level[i].span = update[i].level[i].span - (rank[0] - rank[i])
		update[i].level[i].span = (rank[0] - rank[i]) + 1
	}
	for i := level; i < skiplist.level; i++ {
		update[i].level[i].span++
	}

	if update[0] != skiplist.header {
		n.backward = update[0]
	}
	if n.level[0].forward != nil {
		n.level[0].forward.backward = n
	} else {
		skiplist.tail = n
	}
	skiplist.length++
	return n
}

// removeNode unlinks n, update holds the predecessors of n on each level
func (skiplist *skiplist) removeNode(n *node, update []*node) {
	for i := int16(0); i < skiplist.level; i++ {
		if update[i].level[i].forward == n {
			update[i].level[i].span += n.level[i].span - 1
			update[i].level[i].forward = n.level[i].forward
		} else {
			update[i].level[i].span--
		}
	}
	if n.level[0].forward != nil {
		n.level[0].forward.backward = n.backward
	} else {
		skiplist.tail = n.backward
	}
	for skiplist.level > 1 && skiplist.header.level[skiplist.level-1].forward == nil {
		skiplist.level--
	}
	skiplist.length--
}

// remove returns whether the node has been found and removed
func (skiplist *skiplist) remove(member string, score float64) bool {
	update, _ := skiplist.findUpdates(score, member)
	n := update[0].level[0].forward
	if n != nil && score == n.Score && n.Member == member {
		skiplist.removeNode(n, update)
		return true
	}
	return false
}

// getRank returns 1 based rank, 0 means member not found
func (skiplist *skiplist) getRank(member string, score float64) int64 {
	var rank int64
	x := skiplist.header
	for i := skiplist.level - 1; i >= 0; i-- {
		for x.level[i].forward != nil &&
			(x.level[i].forward.before(score, member) ||
				(x.level[i].forward.Score == score && x.level[i].forward.Member == member)) {
			rank += x.level[i].span
			x = x.level[i].forward
		}
		if x != skiplist.header && x.Member == member {
			return rank
		}
	}
	return 0
}

// getByRank uses 1-based rank
func (skiplist *skiplist) getByRank(rank int64) *node {
	var i int64
	n := skiplist.header
	for level := skiplist.level - 1; level >= 0; level-- {
		for n.level[level].forward != nil && (i+n.level[level].span) <= rank {
			i += n.level[level].span
			n = n.level[level].forward
		}
		if i == rank && n != skiplist.header {
			return n
		}
	}
	return nil
}

func (skiplist *skiplist) hasInRange(min *ScoreBorder, max *ScoreBorder) bool {
	if min.Value > max.Value || (min.Value == max.Value && (min.Exclude || max.Exclude)) {
		return false
	}
	n := skiplist.tail
	if n == nil || !min.less(n.Score) {
		return false
	}
	n = skiplist.header.level[0].forward
	if n == nil || !max.greater(n.Score) {
		return false
	}
	return true
}

func (skiplist *skiplist) getFirstInScoreRange(min *ScoreBorder, max *ScoreBorder) *node {
	if !skiplist.hasInRange(min, max) {
		return nil
	}
	n := skiplist.header
	for level := skiplist.level - 1; level >= 0; level-- {
		for n.level[level].forward != nil && !min.less(n.level[level].forward.Score) {
			n = n.level[level].forward
		}
	}
	// inner range, so the next node cannot be nil
	n = n.level[0].forward
	if !max.greater(n.Score) {
		return nil
	}
	return n
}

func (skiplist *skiplist) getLastInScoreRange(min *ScoreBorder, max *ScoreBorder) *node {
	if !skiplist.hasInRange(min, max) {
		return nil
	}
	n := skiplist.header
	for level := skiplist.level - 1; level >= 0; level-- {
		for n.level[level].forward != nil && max.greater(n.level[level].forward.Score) {
			n = n.level[level].forward
		}
	}
	if !min.less(n.Score) {
		return nil
	}
	return n
}

// removeRangeByScore returns removed elements
func (skiplist *skiplist) removeRangeByScore(min *ScoreBorder, max *ScoreBorder) (removed []*Element) {
	update := make([]*node, maxLevel)
	n := skiplist.header
	for i := skiplist.level - 1; i >= 0; i-- {
		for n.level[i].forward != nil && !min.less(n.level[i].forward.Score) {
			n = n.level[i].forward
		}
		update[i] = n
	}
	n = n.level[0].forward
	for n != nil && max.greater(n.Score) {
		next := n.level[0].forward
		removedElement := n.Element
		removed = append(removed, &removedElement)
		skiplist.removeNode(n, update)
		n = next
	}
	return removed
}

// removeRangeByRank uses 1-based rank, including start, exclude stop
func (skiplist *skiplist) removeRangeByRank(start int64, stop int64) (removed []*Element) {
	var i int64
	update := make([]*node, maxLevel)
	n := skiplist.header
	for level := skiplist.level - 1; level >= 0; level-- {
		for n.level[level].forward != nil && (i+n.level[level].span) < start {
			i += n.level[level].span
			n = n.level[level].forward
		}
		update[level] = n
	}
	i++
	n = n.level[0].forward
	for n != nil && i < stop {
		next := n.level[0].forward
		removedElement := n.Element
		removed = append(removed, &removedElement)
		skiplist.removeNode(n, update)
		n = next
		i++
	}
	return removed
}
