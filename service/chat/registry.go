package chat

import (
	"sync"
)

// Registry maps a user id to its single active connection handle. A new
// connection for an already registered user replaces the old mapping
// (last-writer-wins); the caller decides what to do with the returned
// previous handle, normally force-closing it.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Client
}

func NewRegistry() *Registry {
	return &Registry{byUser: make(map[string]*Client)}
}

// Register installs the handle for userID and returns the handle it
// replaced, if any.
func (r *Registry) Register(userID string, c *Client) (prev *Client) {
	if userID == "" || c == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev = r.byUser[userID]
	if prev == c {
		prev = nil
	}
	r.byUser[userID] = c
	return prev
}

// Unregister removes the mapping, but only while it still points at c: a
// replaced handle racing its own disconnect must not evict its replacement.
// Idempotent; passing a nil client removes unconditionally.
func (r *Registry) Unregister(userID string, c *Client) bool {
	if userID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.byUser[userID]
	if !ok {
		return false
	}
	if c != nil && cur != c {
		return false
	}
	delete(r.byUser, userID)
	return true
}

// Get returns the live handle for one user.
func (r *Registry) Get(userID string) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	if !ok || c.State() != StateActive {
		return nil, false
	}
	return c, true
}

// Resolve returns the subset of userIDs with a live active handle, each
// handle at most once even if an id repeats in the input.
func (r *Registry) Resolve(userIDs []string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if c, ok := r.byUser[id]; ok && c.State() == StateActive {
			out = append(out, c)
		}
	}
	return out
}

// Len reports the number of registered users.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}
