package service

import "sync"

// Presence maps a user id to their currently-live connection. At most one
// connection per user: a new registration evicts the previous one, so the most
// recent connection owns delivery.
type Presence struct {
	mu    sync.RWMutex
	conns map[string]*Client
}

func NewPresence() *Presence {
	return &Presence{conns: make(map[string]*Client)}
}

// Register upserts the mapping for client.UserID. Idempotent; no error
// conditions.
func (p *Presence) Register(client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[client.UserID] = client
}

// Lookup returns the live connection for userID. An absent entry means the
// user is offline, which is an expected outcome, not an error.
func (p *Presence) Lookup(userID string) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.conns[userID]
	return c, ok
}

// Remove drops the entry for client's user only if that user is still mapped
// to this exact connection. A disconnect arriving after a newer registration
// for the same user must not evict the newer entry.
func (p *Presence) Remove(client *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if current, ok := p.conns[client.UserID]; ok && current == client {
		delete(p.conns, client.UserID)
	}
}

func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.conns)
}
