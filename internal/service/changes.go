package service

import (
	"sync"
	"time"

	"go-fund-admin/internal/authz"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
)

type ChangeType string

const (
	ChangeRoleCreated       ChangeType = "role_created"
	ChangeRoleUpdated       ChangeType = "role_updated"
	ChangeRoleDeleted       ChangeType = "role_deleted"
	ChangePermissionCreated ChangeType = "permission_created"
	ChangePermissionUpdated ChangeType = "permission_updated"
	ChangePermissionDeleted ChangeType = "permission_deleted"
	ChangeRoleAssigned      ChangeType = "role_assigned"
	ChangeRoleRevoked       ChangeType = "role_revoked"
	ChangePermissionGranted ChangeType = "permission_granted"
	ChangePermissionRevoked ChangeType = "permission_revoked"
)

// ChangeEvent describes one committed change of the authorization model.
type ChangeEvent struct {
	Type         ChangeType `json:"type"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	RoleID       *uuid.UUID `json:"role_id,omitempty"`
	PermissionID *uuid.UUID `json:"permission_id,omitempty"`
	At           time.Time  `json:"at"`
}

// ChangeNotifier receives change events after commit. Notify must not block.
type ChangeNotifier interface {
	Notify(event ChangeEvent)
}

// AccessCache keeps recent access snapshots keyed by user id.
// A nil *AccessCache is valid and caches nothing.
type AccessCache struct {
	entries *lru.Cache[uuid.UUID, authz.Snapshot]

	mu sync.Mutex
	// generation changes on every purge so a load racing a write is not stored
	generation uint64
}

// NewAccessCache returns nil when size is not positive.
func NewAccessCache(size int) (*AccessCache, error) {
	if size <= 0 {
		return nil, nil
	}
	entries, err := lru.New[uuid.UUID, authz.Snapshot](size)
	if err != nil {
		return nil, err
	}
	return &AccessCache{entries: entries}, nil
}

func (c *AccessCache) Get(userID uuid.UUID) (authz.Snapshot, bool) {
	if c == nil {
		return authz.Snapshot{}, false
	}
	return c.entries.Get(userID)
}

// Generation returns a token to pass to Add after loading a snapshot.
func (c *AccessCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// Add stores snap unless the cache was purged since generation was read.
func (c *AccessCache) Add(userID uuid.UUID, snap authz.Snapshot, generation uint64) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation == generation {
		c.entries.Add(userID, snap)
	}
}

func (c *AccessCache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.entries.Purge()
}

func (c *AccessCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}

// Publisher invalidates the access cache and forwards change events.
// A nil *Publisher does nothing.
type Publisher struct {
	cache    *AccessCache
	notifier ChangeNotifier
}

func NewPublisher(cache *AccessCache, notifier ChangeNotifier) *Publisher {
	return &Publisher{cache: cache, notifier: notifier}
}

func (p *Publisher) Cache() *AccessCache {
	if p == nil {
		return nil
	}
	return p.cache
}

func (p *Publisher) publish(event ChangeEvent) {
	if p == nil {
		return
	}
	p.cache.Purge()
	if p.notifier != nil {
		if event.At.IsZero() {
			event.At = time.Now()
		}
		p.notifier.Notify(event)
	}
}

func idRef(id uuid.UUID) *uuid.UUID {
	return &id
}
