package realtime

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/immxrtalbeast/debatehall/internal/domain"
)

var ErrBroadcastFailed = errors.New("broadcast failed")

type room struct {
	mu      sync.Mutex
	clients map[string]*Client
}

// Hub fans events out to session rooms and personal user rooms. Each room has
// its own lock held while enqueuing, so all subscribers observe one order.
type Hub struct {
	log   *slog.Logger
	mu    sync.RWMutex
	rooms map[uuid.UUID]*room
	users map[uuid.UUID]*room
}

func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		log:   log,
		rooms: make(map[uuid.UUID]*room),
		users: make(map[uuid.UUID]*room),
	}
}

func (h *Hub) JoinRoom(client *Client) {
	h.join(h.rooms, client.SessionID, client)
}

// LeaveRoom removes the client and reports whether the same user still holds
// another connection to the session.
func (h *Hub) LeaveRoom(client *Client) bool {
	h.leave(h.rooms, client.SessionID, client)
	return h.HasUser(client.SessionID, client.UserID)
}

func (h *Hub) JoinUser(client *Client) {
	h.join(h.users, client.UserID, client)
}

func (h *Hub) LeaveUser(client *Client) {
	h.leave(h.users, client.UserID, client)
}

func (h *Hub) HasUser(sessionID, userID uuid.UUID) bool {
	r := h.get(h.rooms, sessionID)
	if r == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.clients {
		if c.UserID == userID {
			return true
		}
	}
	return false
}

// Broadcast enqueues event for every client in the session room except the
// excluded client ids. Slow clients lose the event.
func (h *Hub) Broadcast(sessionID uuid.UUID, event domain.Event, exclude ...string) error {
	return h.publish(h.rooms, sessionID, event, exclude)
}

// SendToUser delivers to every notification socket of the user.
func (h *Hub) SendToUser(userID uuid.UUID, event domain.Event) error {
	return h.publish(h.users, userID, event, nil)
}

// Disconnect closes every connection of the user in the session room.
func (h *Hub) Disconnect(sessionID, userID uuid.UUID) {
	r := h.get(h.rooms, sessionID)
	if r == nil {
		return
	}

	r.mu.Lock()
	removed := make([]*Client, 0)
	for id, c := range r.clients {
		if c.UserID == userID {
			delete(r.clients, id)
			removed = append(removed, c)
		}
	}
	r.mu.Unlock()

	for _, c := range removed {
		c.Close()
	}
}

func (h *Hub) RoomSize(sessionID uuid.UUID) int {
	r := h.get(h.rooms, sessionID)
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

func (h *Hub) publish(rooms map[uuid.UUID]*room, key uuid.UUID, event domain.Event, exclude []string) error {
	if event == nil {
		return fmt.Errorf("%w: nil event", ErrBroadcastFailed)
	}

	r := h.get(rooms, key)
	if r == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, c := range r.clients {
		if isExcluded(id, exclude) {
			continue
		}
		if !c.Enqueue(event) {
			dropped++
			h.log.Debug("dropping event",
				slog.String("client_id", id),
				slog.String("type", event.EventType()),
			)
		}
	}

	if dropped > 0 {
		return fmt.Errorf("%w: %s dropped for %d client(s)", ErrBroadcastFailed, event.EventType(), dropped)
	}
	return nil
}

func (h *Hub) join(rooms map[uuid.UUID]*room, key uuid.UUID, client *Client) {
	h.mu.Lock()
	r, ok := rooms[key]
	if !ok {
		r = &room{clients: make(map[string]*Client)}
		rooms[key] = r
	}
	r.mu.Lock()
	r.clients[client.ID] = client
	r.mu.Unlock()
	h.mu.Unlock()
}

func (h *Hub) leave(rooms map[uuid.UUID]*room, key uuid.UUID, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := rooms[key]
	if !ok {
		return
	}

	r.mu.Lock()
	delete(r.clients, client.ID)
	empty := len(r.clients) == 0
	r.mu.Unlock()

	if empty {
		delete(rooms, key)
	}
}

func (h *Hub) get(rooms map[uuid.UUID]*room, key uuid.UUID) *room {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return rooms[key]
}

func isExcluded(id string, exclude []string) bool {
	for _, e := range exclude {
		if e == id {
			return true
		}
	}
	return false
}
