package set

import (
	"math/rand/v2"
	"sort"

	"github.com/fakedis/fakedis/lib/wildcard"
)

// Set is a set of strings. A nil *Set behaves as an empty set for read operations
type Set struct {
	m map[string]struct{}
}

// Make creates a new set
func Make(members ...string) *Set {
	set := &Set{m: make(map[string]struct{}, len(members))}
	for _, member := range members {
		set.m[member] = struct{}{}
	}
	return set
}

// Add adds member into set, returns 1 if member is new
func (set *Set) Add(val string) int {
	if _, ok := set.m[val]; ok {
		return 0
	}
	set.m[val] = struct{}{}
	return 1
}

// Remove removes member from set, returns 1 if it existed
func (set *Set) Remove(val string) int {
	if _, ok := set.m[val]; !ok {
		return 0
	}
	delete(set.m, val)
	return 1
}

// Has returns true if the val exists in the set
func (set *Set) Has(val string) bool {
	if set == nil {
		return false
	}
	_, ok := set.m[val]
	return ok
}

// Len returns number of members in the set
func (set *Set) Len() int {
	if set == nil {
		return 0
	}
	return len(set.m)
}

// ToSlice returns members in no particular order
func (set *Set) ToSlice() []string {
	if set == nil {
		return nil
	}
	slice := make([]string, 0, len(set.m))
	for member := range set.m {
		slice = append(slice, member)
	}
	return slice
}

// ToSortedSlice returns members in lexicographical order
func (set *Set) ToSortedSlice() []string {
	slice := set.ToSlice()
	sort.Strings(slice)
	return slice
}

// ForEach visits each member until consumer returns false
func (set *Set) ForEach(consumer func(member string) bool) {
	if set == nil {
		return
	}
	for member := range set.m {
		if !consumer(member) {
			return
		}
	}
}

// ShallowCopy copies all members to another set
func (set *Set) ShallowCopy() *Set {
	result := &Set{m: make(map[string]struct{}, set.Len())}
	set.ForEach(func(member string) bool {
		result.m[member] = struct{}{}
		return true
	})
	return result
}

// Intersect returns members present in every set, a nil set is treated as empty
func Intersect(sets ...*Set) *Set {
	result := Make()
	if len(sets) == 0 {
		return result
	}
	smallest := sets[0]
	for _, s := range sets[1:] {
		if s.Len() < smallest.Len() {
			smallest = s
		}
	}
	smallest.ForEach(func(member string) bool {
		for _, s := range sets {
			if !s.Has(member) {
				return true
			}
		}
		result.m[member] = struct{}{}
		return true
	})
	return result
}

// Union returns members present in any set
func Union(sets ...*Set) *Set {
	result := Make()
	for _, s := range sets {
		s.ForEach(func(member string) bool {
			result.m[member] = struct{}{}
			return true
		})
	}
	return result
}

// Diff subtracts the rest sets from the first one
func Diff(sets ...*Set) *Set {
	if len(sets) == 0 {
		return Make()
	}
	result := sets[0].ShallowCopy()
	for _, s := range sets[1:] {
		if result.Len() == 0 {
			break
		}
		s.ForEach(func(member string) bool {
			delete(result.m, member)
			return true
		})
	}
	return result
}

// RandomMembers returns limit members picked independently, duplicates are possible
func (set *Set) RandomMembers(limit int) []string {
	members := set.ToSlice()
	if len(members) == 0 {
		return nil
	}
	result := make([]string, limit)
	for i := range result {
		result[i] = members[rand.IntN(len(members))]
	}
	return result
}

// RandomDistinctMembers returns at most limit distinct members
func (set *Set) RandomDistinctMembers(limit int) []string {
	members := set.ToSlice()
	rand.Shuffle(len(members), func(i, j int) {
		members[i], members[j] = members[j], members[i]
	})
	if limit < len(members) {
		members = members[:limit]
	}
	return members
}

// Scan visits members in lexicographical order, cursor is the offset of the next member.
// It returns the matched members and the next cursor, 0 when the iteration is complete
func (set *Set) Scan(cursor int, count int, pattern string) ([]string, int) {
	members := set.ToSortedSlice()
	if count <= 0 {
		count = 10
	}
	var matcher *wildcard.Pattern
	if pattern != "" && pattern != "*" {
		matcher = wildcard.CompilePattern(pattern)
	}
	result := make([]string, 0, count)
	i := cursor
	for ; i < len(members) && i < cursor+count; i++ {
		if matcher == nil || matcher.IsMatch(members[i]) {
			result = append(result, members[i])
		}
	}
	if i >= len(members) {
		i = 0
	}
	return result, i
}
