package sortedset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(elements []*Element) []string {
	result := make([]string, len(elements))
	for i, e := range elements {
		result[i] = e.Member
	}
	return result
}

func TestSortedSet_PopMin(t *testing.T) {
	set := Make()
	set.Add("s1", 1)
	set.Add("s2", 2)
	set.Add("s3", 3)
	set.Add("s4", 4)

	assert.Equal(t, []string{"s1", "s2"}, members(set.PopMin(2)))
	assert.Equal(t, []string{"s4", "s3"}, members(set.PopMax(5)))
	assert.Equal(t, int64(0), set.Len())
}

func TestSortedSet_Rank(t *testing.T) {
	set := Make()
	set.Add("b", 1)
	set.Add("a", 1)
	set.Add("c", 0)
	assert.Equal(t, []string{"c", "a", "b"}, members(set.RangeByRank(0, 3, false)))
	assert.Equal(t, []string{"b", "a"}, members(set.RangeByRank(0, 2, true)))
	assert.Equal(t, int64(1), set.GetRank("a", false))
	assert.Equal(t, int64(0), set.GetRank("b", true))
	assert.Equal(t, int64(-1), set.GetRank("x", false))

	set.Add("c", 5)
	assert.Equal(t, int64(2), set.GetRank("c", false))
	assert.False(t, set.Add("c", 5))
	assert.Equal(t, int64(2), set.RemoveByRank(0, 2))
	assert.Equal(t, []string{"c"}, members(set.RangeByRank(0, 1, false)))
}

func TestSortedSet_RangeByScore(t *testing.T) {
	set := Make()
	for i, m := range []string{"a", "b", "c", "d", "e"} {
		set.Add(m, float64(i))
	}
	min, err := ParseScoreBorder("(1")
	require.NoError(t, err)
	max, err := ParseScoreBorder("+inf")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "d", "e"}, members(set.RangeByScore(min, max, 0, -1, false)))
	assert.Equal(t, []string{"d"}, members(set.RangeByScore(min, max, 1, 1, true)))
	assert.Equal(t, int64(3), set.Count(min, max))

	_, err = ParseScoreBorder("abc")
	assert.ErrorIs(t, err, ErrInvalidBorder)

	max, _ = ParseScoreBorder("3")
	assert.Equal(t, int64(2), set.RemoveByScore(min, max))
	assert.Equal(t, []string{"a", "b", "e"}, members(set.RangeByRank(0, set.Len(), false)))
}

func TestSortedSet_Scan(t *testing.T) {
	set := Make()
	for i, m := range []string{"a1", "a2", "b1", "b2"} {
		set.Add(m, float64(i))
	}
	elements, cursor := set.Scan(0, 3, "a*")
	assert.Equal(t, []string{"a1", "a2"}, members(elements))
	assert.Equal(t, 3, cursor)
	elements, cursor = set.Scan(cursor, 3, "*")
	assert.Equal(t, []string{"b2"}, members(elements))
	assert.Equal(t, 0, cursor)
}
