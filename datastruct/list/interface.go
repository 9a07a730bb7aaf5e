package list

// Consumer traverses list.
// It receives index and value as params, returns true to continue traversal, while returns false to break
type Consumer func(i int, v []byte) bool

// List is the value of a list key, elements are binary safe strings
type List interface {
	Add(val []byte)
	PushFront(val []byte)
	Get(index int) (val []byte)
	Set(index int, val []byte)
	Insert(index int, val []byte)
	Remove(index int) (val []byte)
	RemoveFirst() (val []byte)
	RemoveLast() (val []byte)
	RemoveByVal(val []byte, count int) int
	Trim(start int, stop int)
	Len() int
	ForEach(consumer Consumer)
	Range(start int, stop int) [][]byte
}
