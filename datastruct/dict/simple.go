package dict

import (
	"math/rand"
	"sort"

	"github.com/fakedis/fakedis/lib/wildcard"
)

// SimpleDict wraps a map, it is not thread safe
type SimpleDict struct {
	m map[string]interface{}
}

// MakeSimple makes a new map
func MakeSimple() *SimpleDict {
	return &SimpleDict{
		m: make(map[string]interface{}),
	}
}

// Get returns the binding value and whether the key is exist
func (dict *SimpleDict) Get(key string) (val interface{}, exists bool) {
	val, ok := dict.m[key]
	return val, ok
}

// Len returns the number of dict
func (dict *SimpleDict) Len() int {
	return len(dict.m)
}

// Put puts key value into dict and returns the number of new inserted key-value
func (dict *SimpleDict) Put(key string, val interface{}) (result int) {
	_, existed := dict.m[key]
	dict.m[key] = val
	if existed {
		return 0
	}
	return 1
}

// PutIfAbsent puts value if the key is not exists and returns the number of updated key-value
func (dict *SimpleDict) PutIfAbsent(key string, val interface{}) (result int) {
	_, existed := dict.m[key]
	if existed {
		return 0
	}
	dict.m[key] = val
	return 1
}

// PutIfExists puts value if the key is exist and returns the number of inserted key-value
func (dict *SimpleDict) PutIfExists(key string, val interface{}) (result int) {
	_, existed := dict.m[key]
	if existed {
		dict.m[key] = val
		return 1
	}
	return 0
}

// Remove removes the key and return the deleted value and the number of deleted key-value
func (dict *SimpleDict) Remove(key string) (val interface{}, result int) {
	val, existed := dict.m[key]
	delete(dict.m, key)
	if existed {
		return val, 1
	}
	return nil, 0
}

// Keys returns all keys in dict
func (dict *SimpleDict) Keys() []string {
	result := make([]string, len(dict.m))
	i := 0
	for k := range dict.m {
		result[i] = k
		i++
	}
	return result
}

// ForEach traversal the dict
func (dict *SimpleDict) ForEach(consumer Consumer) {
	for k, v := range dict.m {
		if !consumer(k, v) {
			break
		}
	}
}

// RandomKeys randomly returns keys of the given number, may contain duplicated key
func (dict *SimpleDict) RandomKeys(limit int) []string {
	if len(dict.m) == 0 {
		return nil
	}
	keys := dict.Keys()
	result := make([]string, limit)
	for i := 0; i < limit; i++ {
		result[i] = keys[rand.Intn(len(keys))]
	}
	return result
}

// RandomDistinctKeys randomly returns keys of the given number, won't contain duplicated key
func (dict *SimpleDict) RandomDistinctKeys(limit int) []string {
	keys := dict.Keys()
	rand.Shuffle(len(keys), func(i, j int) {
		keys[i], keys[j] = keys[j], keys[i]
	})
	if limit < len(keys) {
		keys = keys[:limit]
	}
	return keys
}

// Clear removes all keys in dict
func (dict *SimpleDict) Clear() {
	*dict = *MakeSimple()
}

// DictScan iterates keys in lexicographical order, cursor is the offset of the next key to visit.
// It returns matched keys and the next cursor, 0 means the iteration is complete
func (dict *SimpleDict) DictScan(cursor int, count int, pattern string) ([]string, int) {
	keys := dict.Keys()
	sort.Strings(keys)
	if count <= 0 {
		count = 10
	}
	matchAll := pattern == "" || pattern == "*"
	var matcher *wildcard.Pattern
	if !matchAll {
		matcher = wildcard.CompilePattern(pattern)
	}
	result := make([]string, 0, count)
	i := cursor
	for ; i < len(keys) && i < cursor+count; i++ {
		if matchAll || matcher.IsMatch(keys[i]) {
			result = append(result, keys[i])
		}
	}
	if i >= len(keys) {
		i = 0
	}
	return result, i
}
