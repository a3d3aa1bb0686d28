package core

import (
	"slices"
	"sync"
)

// PresenceSink mirrors presence transitions outside the process.
// Implementations must not block.
type PresenceSink interface {
	Online(userID int64)
	Offline(userID int64)
}

// Presence tracks live connections per identity and fans events out to them.
// All transitions and their broadcasts happen under one lock, so observers
// see online/offline for an identity in the order they occurred.
type Presence struct {
	mu    sync.Mutex
	conns map[int64]map[*Client]struct{}
	sink  PresenceSink
}

// NewPresence creates a tracker. sink may be nil.
func NewPresence(sink PresenceSink) *Presence {
	return &Presence{
		conns: make(map[int64]map[*Client]struct{}),
		sink:  sink,
	}
}

// Attach adds c as a live connection of userID. greet, when non-nil, runs
// before any status broadcast with the online ids (userID included), so c
// observes every later transition after its snapshot.
// Returns true when userID went from offline to online.
func (p *Presence) Attach(c *Client, userID int64, greet func(online []int64)) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		set = make(map[*Client]struct{})
		p.conns[userID] = set
	}
	_, already := set[c]
	set[c] = struct{}{}
	first := !ok

	if greet != nil {
		greet(p.onlineLocked())
	}
	if already || !first {
		return false
	}

	p.broadcastLocked(&Event{Kind: EventStatus, UserID: userID, Status: StatusOnline}, nil)
	if p.sink != nil {
		p.sink.Online(userID)
	}
	return true
}

// Detach removes c from userID. Returns true when it was the last connection.
func (p *Presence) Detach(c *Client, userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	set, ok := p.conns[userID]
	if !ok {
		return false
	}
	if _, member := set[c]; !member {
		return false
	}
	delete(set, c)
	if len(set) > 0 {
		return false
	}
	delete(p.conns, userID)

	p.broadcastLocked(&Event{Kind: EventStatus, UserID: userID, Status: StatusOffline}, nil)
	if p.sink != nil {
		p.sink.Offline(userID)
	}
	return true
}

// IsOnline reports whether userID has at least one live connection.
func (p *Presence) IsOnline(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID]) > 0
}

// Count returns the number of live connections of userID.
func (p *Presence) Count(userID int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.conns[userID])
}

// Online returns the ids of online identities in ascending order.
func (p *Presence) Online() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.onlineLocked()
}

func (p *Presence) onlineLocked() []int64 {
	ids := make([]int64, 0, len(p.conns))
	for id := range p.conns {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// SendTo delivers ev to every live connection of the given identities, once each.
// Returns how many connections accepted the event.
func (p *Presence) SendTo(ev *Event, userIDs ...int64) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	delivered := 0
	seen := make(map[int64]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		for c := range p.conns[id] {
			if c.send(ev) {
				delivered++
			}
		}
	}
	return delivered
}

// Broadcast delivers ev to every authenticated connection except the given one.
func (p *Presence) Broadcast(ev *Event, except *Client) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.broadcastLocked(ev, except)
}

func (p *Presence) broadcastLocked(ev *Event, except *Client) int {
	delivered := 0
	for _, set := range p.conns {
		for c := range set {
			if c == except {
				continue
			}
			if c.send(ev) {
				delivered++
			}
		}
	}
	return delivered
}
