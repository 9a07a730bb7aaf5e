package stream

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrBusyGroup is returned when creating a group that already exists
	ErrBusyGroup = errors.New("BUSYGROUP Consumer Group name already exists")
	// ErrNoGroup is returned when the group does not exist
	ErrNoGroup = errors.New("NOGROUP no such consumer group")
)

// PendingEntry is an entry delivered to a consumer but not acknowledged yet
type PendingEntry struct {
	ID            ID
	Consumer      string
	DeliveredAt   time.Time
	DeliveryCount int64
}

// Consumer is a member of a group
type Consumer struct {
	Name   string
	SeenAt time.Time
}

// Group is a consumer group of a stream
type Group struct {
	Name          string
	LastDelivered ID
	EntriesRead   int64
	consumers     map[string]*Consumer
	// pending is ordered by id
	pending []*PendingEntry
}

// CreateGroup creates a consumer group starting after lastDelivered
func (s *Stream) CreateGroup(name string, lastDelivered ID) error {
	if _, ok := s.groups[name]; ok {
		return ErrBusyGroup
	}
	s.groups[name] = &Group{
		Name:          name,
		LastDelivered: lastDelivered,
		consumers:     make(map[string]*Consumer),
	}
	return nil
}

// DestroyGroup removes a group, returns false if it does not exist
func (s *Stream) DestroyGroup(name string) bool {
	if _, ok := s.groups[name]; !ok {
		return false
	}
	delete(s.groups, name)
	return true
}

// Group returns the group with the given name
func (s *Stream) Group(name string) (*Group, bool) {
	g, ok := s.groups[name]
	return g, ok
}

// Groups returns all groups sorted by name
func (s *Stream) Groups() []*Group {
	groups := make([]*Group, 0, len(s.groups))
	for _, g := range s.groups {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Name < groups[j].Name
	})
	return groups
}

// CreateConsumer adds a consumer, returns false if it exists
func (g *Group) CreateConsumer(name string) bool {
	if _, ok := g.consumers[name]; ok {
		return false
	}
	g.consumers[name] = &Consumer{Name: name, SeenAt: time.Now()}
	return true
}

// DeleteConsumer removes a consumer and its pending entries, returns the number of pending entries it had
func (g *Group) DeleteConsumer(name string) int {
	if _, ok := g.consumers[name]; !ok {
		return 0
	}
	delete(g.consumers, name)
	kept := g.pending[:0]
	removed := 0
	for _, p := range g.pending {
		if p.Consumer == name {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	g.pending = kept
	return removed
}

// Consumers returns consumers sorted by name
func (g *Group) Consumers() []*Consumer {
	result := make([]*Consumer, 0, len(g.consumers))
	for _, c := range g.consumers {
		result = append(result, c)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

func (g *Group) searchPending(id ID) int {
	return sort.Search(len(g.pending), func(i int) bool {
		return !g.pending[i].ID.Less(id)
	})
}

func (g *Group) touch(consumer string, now time.Time) {
	c, ok := g.consumers[consumer]
	if !ok {
		c = &Consumer{Name: consumer}
		g.consumers[consumer] = c
	}
	c.SeenAt = now
}

// ReadNew delivers entries never delivered to the group (the ">" id), they are added to the pending list
// unless noAck is set
func (g *Group) ReadNew(s *Stream, consumer string, count int, noAck bool) []*Entry {
	now := time.Now()
	g.touch(consumer, now)
	entries := s.After(g.LastDelivered, count)
	for _, e := range entries {
		g.LastDelivered = e.ID
		g.EntriesRead++
		if noAck {
			continue
		}
		i := g.searchPending(e.ID)
		p := &PendingEntry{ID: e.ID, Consumer: consumer, DeliveredAt: now, DeliveryCount: 1}
		if i < len(g.pending) && g.pending[i].ID == e.ID {
			g.pending[i] = p
			continue
		}
		g.pending = append(g.pending, nil)
		copy(g.pending[i+1:], g.pending[i:])
		g.pending[i] = p
	}
	return entries
}

// ReadPending returns the history of the consumer: pending entries with id greater than after.
// Entries deleted from the stream are returned with nil Fields
func (g *Group) ReadPending(s *Stream, consumer string, after ID, count int) []*Entry {
	now := time.Now()
	g.touch(consumer, now)
	result := make([]*Entry, 0)
	for _, p := range g.pending {
		if count > 0 && len(result) >= count {
			break
		}
		if p.Consumer != consumer || !after.Less(p.ID) {
			continue
		}
		p.DeliveredAt = now
		p.DeliveryCount++
		if e := s.Get(p.ID); e != nil {
			result = append(result, e)
		} else {
			result = append(result, &Entry{ID: p.ID})
		}
	}
	return result
}

// Ack removes ids from the pending list and returns the number of acknowledged entries
func (g *Group) Ack(ids ...ID) int {
	acked := 0
	for _, id := range ids {
		i := g.searchPending(id)
		if i < len(g.pending) && g.pending[i].ID == id {
			g.pending = append(g.pending[:i], g.pending[i+1:]...)
			acked++
		}
	}
	return acked
}

// Pending returns pending entries within [start, end], filtered by consumer if not empty and by idle time
func (g *Group) Pending(start, end ID, count int, consumer string, minIdle time.Duration) []*PendingEntry {
	now := time.Now()
	result := make([]*PendingEntry, 0)
	for _, p := range g.pending[g.searchPending(start):] {
		if end.Less(p.ID) || (count > 0 && len(result) >= count) {
			break
		}
		if consumer != "" && p.Consumer != consumer {
			continue
		}
		if minIdle > 0 && now.Sub(p.DeliveredAt) < minIdle {
			continue
		}
		result = append(result, p)
	}
	return result
}

// PendingCount returns the size of the pending list
func (g *Group) PendingCount() int {
	return len(g.pending)
}

// PendingByConsumer counts pending entries per consumer
func (g *Group) PendingByConsumer() map[string]int {
	result := make(map[string]int)
	for _, p := range g.pending {
		result[p.Consumer]++
	}
	return result
}
