package dict

import (
	"sort"
	"testing"

	"github.com/fakedis/fakedis/lib/utils"
)

func TestSimpleDict_Keys(t *testing.T) {
	d := MakeSimple()
	size := 10
	var expectKeys []string
	for i := 0; i < size; i++ {
		str := utils.RandString(5) + string(rune('a'+i))
		d.Put(str, str)
		expectKeys = append(expectKeys, str)
	}
	sort.Strings(expectKeys)
	keys := d.Keys()
	if len(keys) != size {
		t.Errorf("expect %d keys, actual: %d", size, len(d.Keys()))
	}
	sort.Strings(keys)
	for i, k := range keys {
		if k != expectKeys[i] {
			t.Errorf("expect %s actual %s", expectKeys[i], k)
		}
	}
}

func TestSimpleDict_PutIfExists(t *testing.T) {
	d := MakeSimple()
	key := utils.RandString(5)
	val := key + "1"
	ret := d.PutIfExists(key, val)
	if ret != 0 {
		t.Error("expect 0")
		return
	}
	d.Put(key, val)
	val = key + "2"
	ret = d.PutIfExists(key, val)
	if ret != 1 {
		t.Error("expect 1")
		return
	}
	if v, _ := d.Get(key); v != val {
		t.Error("wrong value")
		return
	}
	removed, n := d.Remove(key)
	if n != 1 || removed != val {
		t.Errorf("expect removed %s, actual %v", val, removed)
	}
}

func TestSimpleDict_Scan(t *testing.T) {
	d := MakeSimple()
	for _, k := range []string{"a1", "a2", "a3", "b1", "b2"} {
		d.Put(k, k)
	}
	keys, next := d.DictScan(0, 3, "*")
	if len(keys) != 3 || next != 3 {
		t.Errorf("expect 3 keys and cursor 3, actual %v %d", keys, next)
		return
	}
	keys, next = d.DictScan(next, 3, "*")
	if len(keys) != 2 || next != 0 {
		t.Errorf("expect 2 keys and cursor 0, actual %v %d", keys, next)
		return
	}
	keys, next = d.DictScan(0, 100, "a*")
	if len(keys) != 3 || next != 0 {
		t.Errorf("expect 3 keys, actual %v", keys)
	}
}

func TestSimpleDict_Random(t *testing.T) {
	d := MakeSimple()
	if len(d.RandomKeys(3)) != 0 {
		t.Error("expect no keys from empty dict")
	}
	d.Put("a", 1)
	d.Put("b", 2)
	if len(d.RandomKeys(5)) != 5 {
		t.Error("expect 5 keys")
	}
	if len(d.RandomDistinctKeys(5)) != 2 {
		t.Error("expect 2 distinct keys")
	}
}
