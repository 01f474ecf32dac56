package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

const clientBufferSize = 64

// Client is one socket. Events is drained by a single writer goroutine owned
// by the transport; Done is closed when the hub drops the client.
type Client struct {
	ID          string
	SessionID   uuid.UUID
	UserID      uuid.UUID
	Username    string
	ConnectedAt time.Time
	Events      chan domain.Event

	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(sessionID, userID uuid.UUID, username string) *Client {
	return &Client{
		ID:          uuid.NewString(),
		SessionID:   sessionID,
		UserID:      userID,
		Username:    username,
		ConnectedAt: time.Now().UTC(),
		Events:      make(chan domain.Event, clientBufferSize),
		done:        make(chan struct{}),
	}
}

// Enqueue never blocks; it reports false when the event was dropped.
func (c *Client) Enqueue(event domain.Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.Events <- event:
		return true
	default:
		return false
	}
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
