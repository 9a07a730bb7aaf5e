package stream

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrIDTooSmall is returned when an explicit id is not greater than the last id
	ErrIDTooSmall = errors.New("ERR The ID specified in XADD is equal or smaller than the target stream top item")
	// ErrIDZero is returned when adding 0-0
	ErrIDZero = errors.New("ERR The ID specified in XADD must be greater than 0-0")
)

// Entry is an element of a stream, Fields holds field value pairs in insertion order
type Entry struct {
	ID     ID
	Fields [][]byte
}

// Stream is an append-only log of entries ordered by id
type Stream struct {
	entries      []*Entry
	lastID       ID
	entriesAdded uint64
	groups       map[string]*Group
}

// Make creates an empty stream
func Make() *Stream {
	return &Stream{
		groups: make(map[string]*Group),
	}
}

// Len returns the number of entries
func (s *Stream) Len() int {
	return len(s.entries)
}

// LastID returns the last generated id, deleting entries does not change it
func (s *Stream) LastID() ID {
	return s.lastID
}

// EntriesAdded returns the number of entries ever added
func (s *Stream) EntriesAdded() uint64 {
	return s.entriesAdded
}

// First returns the first entry, nil if the stream is empty
func (s *Stream) First() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[0]
}

// Last returns the last entry, nil if the stream is empty
func (s *Stream) Last() *Entry {
	if len(s.entries) == 0 {
		return nil
	}
	return s.entries[len(s.entries)-1]
}

// SetLastID overrides the last generated id, used by XSETID style operations and restores
func (s *Stream) SetLastID(id ID) {
	s.lastID = id
}

// NextID generates an id for "*" (auto is true) or "<ms>-*" (auto is false, ms given)
func (s *Stream) NextID(ms uint64, autoMs bool) (ID, error) {
	if autoMs {
		now := uint64(time.Now().UnixMilli())
		if now > s.lastID.Ms {
			return ID{Ms: now}, nil
		}
		next, ok := s.lastID.Next()
		if !ok {
			return ID{}, ErrIDTooSmall
		}
		return next, nil
	}
	switch {
	case ms > s.lastID.Ms:
		return ID{Ms: ms}, nil
	case ms == s.lastID.Ms:
		next, ok := s.lastID.Next()
		if !ok || next.Ms != ms {
			return ID{}, ErrIDTooSmall
		}
		return next, nil
	}
	return ID{}, ErrIDTooSmall
}

// Add appends an entry with an explicit id which must be greater than the last id
func (s *Stream) Add(id ID, fields [][]byte) error {
	if id.IsZero() {
		return ErrIDZero
	}
	if !s.lastID.Less(id) {
		return ErrIDTooSmall
	}
	s.entries = append(s.entries, &Entry{ID: id, Fields: fields})
	s.lastID = id
	s.entriesAdded++
	return nil
}

// search returns index of the first entry whose id >= id
func (s *Stream) search(id ID) int {
	return sort.Search(len(s.entries), func(i int) bool {
		return !s.entries[i].ID.Less(id)
	})
}

// Get returns the entry with the given id
func (s *Stream) Get(id ID) *Entry {
	i := s.search(id)
	if i < len(s.entries) && s.entries[i].ID == id {
		return s.entries[i]
	}
	return nil
}

// Range returns entries with start <= id <= end, at most count entries if count > 0.
// If rev is true entries are returned from end to start
func (s *Stream) Range(start, end ID, count int, rev bool) []*Entry {
	result := make([]*Entry, 0)
	if end.Less(start) {
		return result
	}
	lo := s.search(start)
	hi := s.search(end)
	if hi < len(s.entries) && s.entries[hi].ID == end {
		hi++
	}
	if rev {
		for i := hi - 1; i >= lo && (count <= 0 || len(result) < count); i-- {
			result = append(result, s.entries[i])
		}
		return result
	}
	for i := lo; i < hi && (count <= 0 || len(result) < count); i++ {
		result = append(result, s.entries[i])
	}
	return result
}

// After returns entries whose id is strictly greater than id
func (s *Stream) After(id ID, count int) []*Entry {
	next, ok := id.Next()
	if !ok {
		return make([]*Entry, 0)
	}
	return s.Range(next, MaxID, count, false)
}

// Delete removes entries by id and returns the number of removed entries
func (s *Stream) Delete(ids ...ID) int {
	removed := 0
	for _, id := range ids {
		i := s.search(id)
		if i < len(s.entries) && s.entries[i].ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			removed++
		}
	}
	return removed
}

// TrimMaxLen evicts the oldest entries until at most maxLen entries remain
func (s *Stream) TrimMaxLen(maxLen int) int {
	if maxLen < 0 || len(s.entries) <= maxLen {
		return 0
	}
	n := len(s.entries) - maxLen
	s.entries = append(s.entries[:0:0], s.entries[n:]...)
	return n
}

// TrimMinID evicts entries whose id is less than minID
func (s *Stream) TrimMinID(minID ID) int {
	n := s.search(minID)
	if n == 0 {
		return 0
	}
	s.entries = append(s.entries[:0:0], s.entries[n:]...)
	return n
}

// ForEach visits entries in id order
func (s *Stream) ForEach(consumer func(entry *Entry) bool) {
	for _, e := range s.entries {
		if !consumer(e) {
			return
		}
	}
}
