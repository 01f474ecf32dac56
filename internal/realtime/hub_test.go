package realtime

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(c *Client) []domain.Event {
	var events []domain.Event
	for {
		select {
		case e := <-c.Events:
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestHub_BroadcastExcludesAndScopes(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()

	a := NewClient(sessionID, uuid.New(), "alice")
	b := NewClient(sessionID, uuid.New(), "bob")
	outsider := NewClient(uuid.New(), uuid.New(), "carol")
	hub.JoinRoom(a)
	hub.JoinRoom(b)
	hub.JoinRoom(outsider)

	require.NoError(t, hub.Broadcast(sessionID, domain.NewTypingEvent(a.UserID, "alice", "start"), a.ID))

	assert.Empty(t, drain(a))
	assert.Len(t, drain(b), 1)
	assert.Empty(t, drain(outsider))
}

func TestHub_SameOrderForEverySubscriber(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()

	clients := []*Client{
		NewClient(sessionID, uuid.New(), "a"),
		NewClient(sessionID, uuid.New(), "b"),
		NewClient(sessionID, uuid.New(), "c"),
	}
	for _, c := range clients {
		hub.JoinRoom(c)
	}

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = hub.Broadcast(sessionID, domain.NewReactionEvent(int64(i*100+j), "+1", uuid.Nil, ""))
			}
		}(i)
	}
	wg.Wait()

	order := func(c *Client) []int64 {
		var ids []int64
		for _, e := range drain(c) {
			ids = append(ids, e.(*domain.ReactionEvent).MessageID)
		}
		return ids
	}

	first := order(clients[0])
	require.Len(t, first, 40)
	assert.Equal(t, first, order(clients[1]))
	assert.Equal(t, first, order(clients[2]))
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()
	slow := NewClient(sessionID, uuid.New(), "slow")
	hub.JoinRoom(slow)

	for i := 0; i < clientBufferSize; i++ {
		require.NoError(t, hub.Broadcast(sessionID, domain.NewPongEvent(slow.ConnectedAt)))
	}

	err := hub.Broadcast(sessionID, domain.NewPongEvent(slow.ConnectedAt))
	assert.ErrorIs(t, err, ErrBroadcastFailed)
	assert.Len(t, drain(slow), clientBufferSize)
}

func TestHub_LeaveRoomReportsOtherTabs(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()
	userID := uuid.New()

	tab1 := NewClient(sessionID, userID, "alice")
	tab2 := NewClient(sessionID, userID, "alice")
	hub.JoinRoom(tab1)
	hub.JoinRoom(tab2)

	assert.True(t, hub.LeaveRoom(tab1))
	assert.False(t, hub.LeaveRoom(tab2))
	assert.Zero(t, hub.RoomSize(sessionID))
}

func TestHub_Disconnect(t *testing.T) {
	hub := NewHub(nil)
	sessionID := uuid.New()
	userID := uuid.New()

	c := NewClient(sessionID, userID, "alice")
	other := NewClient(sessionID, uuid.New(), "bob")
	hub.JoinRoom(c)
	hub.JoinRoom(other)

	hub.Disconnect(sessionID, userID)

	select {
	case <-c.Done():
	default:
		t.Fatal("client was not closed")
	}
	assert.False(t, hub.HasUser(sessionID, userID))
	assert.True(t, hub.HasUser(sessionID, other.UserID))
	assert.False(t, c.Enqueue(domain.NewPongEvent(c.ConnectedAt)))
}

func TestHub_SendToUser(t *testing.T) {
	hub := NewHub(nil)
	userID := uuid.New()
	c := NewClient(uuid.Nil, userID, "alice")
	hub.JoinUser(c)

	require.NoError(t, hub.SendToUser(userID, domain.NewUnreadCountEvent(3)))
	require.NoError(t, hub.SendToUser(uuid.New(), domain.NewUnreadCountEvent(1)))

	events := drain(c)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventUnreadCount, events[0].EventType())

	hub.LeaveUser(c)
	require.NoError(t, hub.SendToUser(userID, domain.NewUnreadCountEvent(0)))
	assert.Empty(t, drain(c))
}
