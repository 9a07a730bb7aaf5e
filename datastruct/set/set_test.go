package set

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSet(t *testing.T) {
	size := 10
	set := Make()
	for i := 0; i < size; i++ {
		set.Add(strconv.Itoa(i))
	}
	for i := 0; i < size; i++ {
		ok := set.Has(strconv.Itoa(i))
		if !ok {
			t.Error("expected true actual false, key: " + strconv.Itoa(i))
		}
	}
	for i := 0; i < size; i++ {
		ok := set.Remove(strconv.Itoa(i))
		if ok != 1 {
			t.Error("expected true actual false, key: " + strconv.Itoa(i))
		}
	}
	for i := 0; i < size; i++ {
		ok := set.Has(strconv.Itoa(i))
		if ok {
			t.Error("expected false actual true, key: " + strconv.Itoa(i))
		}
	}
}

func TestSetOperations(t *testing.T) {
	a := Make("a", "b", "c", "d")
	b := Make("c", "d", "e")
	c := Make("d", "f")
	assert.Equal(t, []string{"d"}, Intersect(a, b, c).ToSortedSlice())
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f"}, Union(a, b, c).ToSortedSlice())
	assert.Equal(t, []string{"a", "b"}, Diff(a, b, c).ToSortedSlice())
	assert.Equal(t, 0, Intersect(a, nil).Len())
	assert.Equal(t, 4, a.Len(), "operations must not mutate inputs")
}

func TestSetScan(t *testing.T) {
	s := Make("a1", "a2", "b1")
	members, cursor := s.Scan(0, 10, "a*")
	assert.Equal(t, []string{"a1", "a2"}, members)
	assert.Equal(t, 0, cursor)
	assert.Len(t, s.RandomDistinctMembers(5), 3)
	assert.Len(t, s.RandomMembers(5), 5)
}
