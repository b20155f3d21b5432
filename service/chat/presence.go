package chat

import (
	"sync"
)

// Presence tracks which users are currently viewing each conversation.
// Membership is a set; the insertion order is kept only for display.
// One mutex serializes every mutation so concurrent join/leave from
// different connections cannot desynchronize the sets.
type Presence struct {
	mu     sync.Mutex
	order  map[string][]string            // conversation -> user ids, join order
	index  map[string]map[string]struct{} // conversation -> set of user ids
	byUser map[string]map[string]struct{} // user -> conversations marked online
}

func NewPresence() *Presence {
	return &Presence{
		order:  make(map[string][]string),
		index:  make(map[string]map[string]struct{}),
		byUser: make(map[string]map[string]struct{}),
	}
}

// MarkOnline adds userID to the conversation's online set. Idempotent:
// marking twice changes nothing. Reports whether the set changed.
func (p *Presence) MarkOnline(conversationID, userID string) bool {
	if conversationID == "" || userID == "" {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	set := p.index[conversationID]
	if set == nil {
		set = make(map[string]struct{})
		p.index[conversationID] = set
	}
	if _, ok := set[userID]; ok {
		return false
	}
	set[userID] = struct{}{}
	p.order[conversationID] = append(p.order[conversationID], userID)

	convs := p.byUser[userID]
	if convs == nil {
		convs = make(map[string]struct{})
		p.byUser[userID] = convs
	}
	convs[conversationID] = struct{}{}
	return true
}

// MarkOffline removes userID from the conversation's online set; no-op when
// the user was never marked online there.
func (p *Presence) MarkOffline(conversationID, userID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.removeLocked(conversationID, userID)
}

// Snapshot returns the online users of a conversation in join order.
func (p *Presence) Snapshot(conversationID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	src := p.order[conversationID]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// DropUser removes the user from every conversation, returning the
// conversations that actually changed. Called on disconnect.
func (p *Presence) DropUser(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var affected []string
	for conversationID := range p.byUser[userID] {
		if p.removeLocked(conversationID, userID) {
			affected = append(affected, conversationID)
		}
	}
	return affected
}

func (p *Presence) removeLocked(conversationID, userID string) bool {
	set := p.index[conversationID]
	if set == nil {
		return false
	}
	if _, ok := set[userID]; !ok {
		return false
	}
	delete(set, userID)
	if len(set) == 0 {
		delete(p.index, conversationID)
	}

	src := p.order[conversationID]
	for i, id := range src {
		if id == userID {
			p.order[conversationID] = append(src[:i], src[i+1:]...)
			break
		}
	}
	if len(p.order[conversationID]) == 0 {
		delete(p.order, conversationID)
	}

	if convs := p.byUser[userID]; convs != nil {
		delete(convs, conversationID)
		if len(convs) == 0 {
			delete(p.byUser, userID)
		}
	}
	return true
}
