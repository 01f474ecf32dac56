package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memorySession struct {
	entries   map[uuid.UUID]PresenceEntry
	expiresAt time.Time
}

// MemoryPresenceCache mirrors RedisPresenceCache for a single process.
type MemoryPresenceCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	sessions map[uuid.UUID]*memorySession
}

func NewMemoryPresenceCache(ttl time.Duration) *MemoryPresenceCache {
	return &MemoryPresenceCache{
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[uuid.UUID]*memorySession),
	}
}

func (c *MemoryPresenceCache) Add(ctx context.Context, sessionID uuid.UUID, entry PresenceEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(sessionID)
	s.entries[entry.UserID] = entry
	s.expiresAt = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryPresenceCache) Remove(ctx context.Context, sessionID, userID uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(sessionID)
	delete(s.entries, userID)
	s.expiresAt = c.now().Add(c.ttl)
	return nil
}

func (c *MemoryPresenceCache) List(ctx context.Context, sessionID uuid.UUID) ([]PresenceEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s := c.session(sessionID)
	entries := make([]PresenceEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sortEntries(entries)
	return entries, nil
}

// session must be called with mu held. Expired sessions are reset lazily.
func (c *MemoryPresenceCache) session(id uuid.UUID) *memorySession {
	s, ok := c.sessions[id]
	if !ok || (!s.expiresAt.IsZero() && !c.now().Before(s.expiresAt)) {
		s = &memorySession{entries: make(map[uuid.UUID]PresenceEntry)}
		c.sessions[id] = s
	}
	return s
}

func sortEntries(entries []PresenceEntry) {
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].JoinedAt.Equal(entries[j].JoinedAt) {
			return entries[i].Username < entries[j].Username
		}
		return entries[i].JoinedAt.Before(entries[j].JoinedAt)
	})
}
