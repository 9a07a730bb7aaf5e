package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(kv ...string) [][]byte {
	result := make([][]byte, len(kv))
	for i, s := range kv {
		result[i] = []byte(s)
	}
	return result
}

func ids(entries []*Entry) []string {
	result := make([]string, len(entries))
	for i, e := range entries {
		result[i] = e.ID.String()
	}
	return result
}

func TestParseID(t *testing.T) {
	id, err := ParseID("12-3", 0)
	require.NoError(t, err)
	assert.Equal(t, ID{Ms: 12, Seq: 3}, id)
	id, err = ParseID("12", 7)
	require.NoError(t, err)
	assert.Equal(t, ID{Ms: 12, Seq: 7}, id)
	id, _ = ParseID("+", 0)
	assert.Equal(t, MaxID, id)
	_, err = ParseID("x-1", 0)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = ParseID("1-", 0)
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestStream_AddAndRange(t *testing.T) {
	s := Make()
	assert.ErrorIs(t, s.Add(ID{}, fields("a", "1")), ErrIDZero)
	require.NoError(t, s.Add(ID{Ms: 1}, fields("a", "1")))
	require.NoError(t, s.Add(ID{Ms: 1, Seq: 1}, fields("a", "2")))
	require.NoError(t, s.Add(ID{Ms: 5}, fields("a", "3")))
	assert.ErrorIs(t, s.Add(ID{Ms: 5}, fields("a", "4")), ErrIDTooSmall)

	assert.Equal(t, []string{"1-0", "1-1", "5-0"}, ids(s.Range(MinID, MaxID, 0, false)))
	assert.Equal(t, []string{"5-0", "1-1"}, ids(s.Range(MinID, MaxID, 2, true)))
	assert.Equal(t, []string{"1-1"}, ids(s.Range(ID{Ms: 1, Seq: 1}, ID{Ms: 4}, 0, false)))
	assert.Equal(t, []string{"5-0"}, ids(s.After(ID{Ms: 1, Seq: 1}, 0)))

	next, err := s.NextID(5, false)
	require.NoError(t, err)
	assert.Equal(t, ID{Ms: 5, Seq: 1}, next)
	_, err = s.NextID(4, false)
	assert.ErrorIs(t, err, ErrIDTooSmall)
	auto, err := s.NextID(0, true)
	require.NoError(t, err)
	assert.True(t, s.LastID().Less(auto))

	assert.Equal(t, 1, s.Delete(ID{Ms: 1, Seq: 1}, ID{Ms: 9}))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, ID{Ms: 5}, s.LastID(), "deleting does not change the last id")
}

func TestStream_Trim(t *testing.T) {
	s := Make()
	for i := uint64(1); i <= 10; i++ {
		require.NoError(t, s.Add(ID{Ms: i}, fields("f", "v")))
	}
	assert.Equal(t, 3, s.TrimMaxLen(7))
	assert.Equal(t, "4-0", s.First().ID.String())
	assert.Equal(t, 2, s.TrimMinID(ID{Ms: 6}))
	assert.Equal(t, 5, s.Len())
	assert.Equal(t, 0, s.TrimMaxLen(10))
}

func TestStream_Groups(t *testing.T) {
	s := Make()
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, s.Add(ID{Ms: i}, fields("f", "v")))
	}
	require.NoError(t, s.CreateGroup("g", MinID))
	assert.ErrorIs(t, s.CreateGroup("g", MinID), ErrBusyGroup)
	g, ok := s.Group("g")
	require.True(t, ok)

	assert.Equal(t, []string{"1-0", "2-0"}, ids(g.ReadNew(s, "alice", 2, false)))
	assert.Equal(t, []string{"3-0"}, ids(g.ReadNew(s, "bob", 0, false)))
	assert.Empty(t, g.ReadNew(s, "bob", 0, false))
	assert.Equal(t, 3, g.PendingCount())
	assert.Equal(t, map[string]int{"alice": 2, "bob": 1}, g.PendingByConsumer())

	history := g.ReadPending(s, "alice", MinID, 0)
	assert.Equal(t, []string{"1-0", "2-0"}, ids(history))
	assert.Equal(t, int64(2), g.Pending(MinID, MaxID, 0, "alice", 0)[0].DeliveryCount)

	assert.Equal(t, 1, g.Ack(ID{Ms: 1}, ID{Ms: 9}))
	assert.Len(t, g.Pending(MinID, MaxID, 0, "", 0), 2)
	assert.Len(t, g.Pending(MinID, MaxID, 0, "", time.Hour), 0)
	assert.Equal(t, 1, g.DeleteConsumer("bob"))
	assert.Len(t, g.Consumers(), 1)
	assert.True(t, s.DestroyGroup("g"))
	assert.False(t, s.DestroyGroup("g"))
}
