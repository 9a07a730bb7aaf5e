package list

import (
	"bytes"
	"container/list"
)

// pageSize must be even
const pageSize = 1024

// QuickList is a linked list of pages (which type is [][]byte)
// QuickList has better performance than LinkedList of Add, Range and memory usage
type QuickList struct {
	data *list.List
	size int
}

// iterator of QuickList, move between [-1, ql.Len()]
type iterator struct {
	node   *list.Element
	offset int
	ql     *QuickList
}

// NewQuickList creates an empty QuickList
func NewQuickList() *QuickList {
	return &QuickList{
		data: list.New(),
	}
}

// Make creates a QuickList holding the given values
func Make(vals ...[]byte) *QuickList {
	ql := NewQuickList()
	for _, v := range vals {
		ql.Add(v)
	}
	return ql
}

// Add adds value to the tail
func (ql *QuickList) Add(val []byte) {
	ql.size++
	if ql.data.Len() > 0 {
		backNode := ql.data.Back()
		backPage := backNode.Value.([][]byte)
		if len(backPage) < cap(backPage) {
			backNode.Value = append(backPage, val)
			return
		}
	}
	page := make([][]byte, 0, pageSize)
	ql.data.PushBack(append(page, val))
}

// PushFront adds value to the head
func (ql *QuickList) PushFront(val []byte) {
	if ql.size == 0 {
		ql.Add(val)
		return
	}
	frontNode := ql.data.Front()
	frontPage := frontNode.Value.([][]byte)
	ql.size++
	if len(frontPage) < pageSize {
		frontPage = append(frontPage, nil)
		copy(frontPage[1:], frontPage)
		frontPage[0] = val
		frontNode.Value = frontPage
		return
	}
	page := make([][]byte, 0, pageSize)
	ql.data.PushFront(append(page, val))
}

// find returns page and in-page-offset of given index
func (ql *QuickList) find(index int) *iterator {
	if index < 0 || index >= ql.size {
		panic("index out of bound")
	}
	var n *list.Element
	var page [][]byte
	var pageBeg int
	if index < ql.size/2 {
		n = ql.data.Front()
		pageBeg = 0
		for {
			page = n.Value.([][]byte)
			if pageBeg+len(page) > index {
				break
			}
			pageBeg += len(page)
			n = n.Next()
		}
	} else {
		n = ql.data.Back()
		pageBeg = ql.size
		for {
			page = n.Value.([][]byte)
			pageBeg -= len(page)
			if pageBeg <= index {
				break
			}
			n = n.Prev()
		}
	}
	return &iterator{
		node:   n,
		offset: index - pageBeg,
		ql:     ql,
	}
}

func (iter *iterator) get() []byte {
	return iter.page()[iter.offset]
}

func (iter *iterator) page() [][]byte {
	return iter.node.Value.([][]byte)
}

// next returns whether iter is in bound
func (iter *iterator) next() bool {
	page := iter.page()
	if iter.offset < len(page)-1 {
		iter.offset++
		return true
	}
	if iter.node == iter.ql.data.Back() {
		iter.offset = len(page)
		return false
	}
	iter.offset = 0
	iter.node = iter.node.Next()
	return true
}

func (iter *iterator) remove() []byte {
	page := iter.page()
	val := page[iter.offset]
	page = append(page[:iter.offset], page[iter.offset+1:]...)
	if len(page) > 0 {
		iter.node.Value = page
		if iter.offset == len(page) && iter.node != iter.ql.data.Back() {
			iter.node = iter.node.Next()
			iter.offset = 0
		}
	} else {
		next := iter.node.Next()
		iter.ql.data.Remove(iter.node)
		iter.node = next
		iter.offset = 0
	}
	iter.ql.size--
	return val
}

// Get returns value at the given index
func (ql *QuickList) Get(index int) []byte {
	return ql.find(index).get()
}

// Set updates value at the given index, the index should between [0, list.size)
func (ql *QuickList) Set(index int, val []byte) {
	iter := ql.find(index)
	iter.page()[iter.offset] = val
}

// Insert inserts value before the element at index, index equals to Len means appending
func (ql *QuickList) Insert(index int, val []byte) {
	if index == ql.size {
		ql.Add(val)
		return
	}
	iter := ql.find(index)
	page := iter.page()
	if len(page) < pageSize {
		page = append(page[:iter.offset+1], page[iter.offset:]...)
		page[iter.offset] = val
		iter.node.Value = page
		ql.size++
		return
	}
	// split a full page into two half pages
	var nextPage [][]byte
	nextPage = append(nextPage, page[pageSize/2:]...)
	page = page[:pageSize/2]
	if iter.offset < len(page) {
		page = append(page[:iter.offset+1], page[iter.offset:]...)
		page[iter.offset] = val
	} else {
		i := iter.offset - pageSize/2
		nextPage = append(nextPage[:i+1], nextPage[i:]...)
		nextPage[i] = val
	}
	iter.node.Value = page
	ql.data.InsertAfter(nextPage, iter.node)
	ql.size++
}

// Remove removes value at the given index
func (ql *QuickList) Remove(index int) []byte {
	return ql.find(index).remove()
}

// RemoveFirst removes the first element and returns its value, returns nil if list is empty
func (ql *QuickList) RemoveFirst() []byte {
	if ql.size == 0 {
		return nil
	}
	return ql.Remove(0)
}

// RemoveLast removes the last element and returns its value, returns nil if list is empty
func (ql *QuickList) RemoveLast() []byte {
	if ql.size == 0 {
		return nil
	}
	ql.size--
	lastNode := ql.data.Back()
	lastPage := lastNode.Value.([][]byte)
	val := lastPage[len(lastPage)-1]
	if len(lastPage) == 1 {
		ql.data.Remove(lastNode)
		return val
	}
	lastNode.Value = lastPage[:len(lastPage)-1]
	return val
}

// Len returns the number of elements in list
func (ql *QuickList) Len() int {
	return ql.size
}

// ForEach visits each element in the list
// if the consumer returns false, the loop will be break
func (ql *QuickList) ForEach(consumer Consumer) {
	if ql.size == 0 {
		return
	}
	iter := ql.find(0)
	i := 0
	for {
		if !consumer(i, iter.get()) {
			break
		}
		i++
		if !iter.next() {
			break
		}
	}
}

// Range returns elements which index within [start, stop)
func (ql *QuickList) Range(start int, stop int) [][]byte {
	if start < 0 || start >= ql.size {
		panic("`start` out of range")
	}
	if stop < start || stop > ql.size {
		panic("`stop` out of range")
	}
	slice := make([][]byte, 0, stop-start)
	iter := ql.find(start)
	for i := start; i < stop; i++ {
		slice = append(slice, iter.get())
		iter.next()
	}
	return slice
}

func (ql *QuickList) rebuild(vals [][]byte) {
	ql.data.Init()
	ql.size = 0
	for _, v := range vals {
		ql.Add(v)
	}
}

// RemoveByVal removes elements equal to val.
// count > 0 removes at most count elements from head to tail, count < 0 from tail to head, 0 removes all
func (ql *QuickList) RemoveByVal(val []byte, count int) int {
	if ql.size == 0 {
		return 0
	}
	vals := ql.Range(0, ql.size)
	drop := make([]bool, len(vals))
	removed := 0
	limit := count
	if limit < 0 {
		limit = -limit
	}
	if count >= 0 {
		for i := 0; i < len(vals) && (limit == 0 || removed < limit); i++ {
			if bytes.Equal(vals[i], val) {
				drop[i] = true
				removed++
			}
		}
	} else {
		for i := len(vals) - 1; i >= 0 && removed < limit; i-- {
			if bytes.Equal(vals[i], val) {
				drop[i] = true
				removed++
			}
		}
	}
	if removed == 0 {
		return 0
	}
	kept := vals[:0:0]
	for i, v := range vals {
		if !drop[i] {
			kept = append(kept, v)
		}
	}
	ql.rebuild(kept)
	return removed
}

// Trim keeps elements within [start, stop)
func (ql *QuickList) Trim(start int, stop int) {
	if start >= stop || start >= ql.size {
		ql.rebuild(nil)
		return
	}
	if start == 0 && stop >= ql.size {
		return
	}
	if stop > ql.size {
		stop = ql.size
	}
	ql.rebuild(ql.Range(start, stop))
}
