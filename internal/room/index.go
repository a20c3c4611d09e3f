package room

import (
	"errors"
	"sync"

	"github.com/agromesh/realtime-gateway/internal/topic"
)

// ErrTooManySubscriptions is returned when a session hits its
// subscription cap.
var ErrTooManySubscriptions = errors.New("subscription cap reached")

// SubscribeResult reports the outcome of an idempotent subscribe.
type SubscribeResult int

const (
	Added SubscribeResult = iota
	AlreadySubscribed
)

// Index is the room index. All methods are safe for concurrent use; a
// single mutex guards both directions so they can never be observed out
// of sync.
type Index struct {
	mu sync.RWMutex

	// literal topic -> session ids
	literals map[string]map[string]struct{}
	// wildcard pattern -> session ids
	wildcards map[string]map[string]struct{}
	// session id -> subscriptions (literal and wildcard)
	sessions map[string]map[string]struct{}

	maxPerSession int
}

// NewIndex creates an Index enforcing the given per-session subscription
// cap.
func NewIndex(maxPerSession int) *Index {
	return &Index{
		literals:      make(map[string]map[string]struct{}),
		wildcards:     make(map[string]map[string]struct{}),
		sessions:      make(map[string]map[string]struct{}),
		maxPerSession: maxPerSession,
	}
}

// Subscribe adds a session to a topic's room. Idempotent: re-subscribing
// reports AlreadySubscribed and changes nothing.
func (i *Index) Subscribe(sessionID, t string) (SubscribeResult, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	subs := i.sessions[sessionID]
	if _, ok := subs[t]; ok {
		return AlreadySubscribed, nil
	}
	if len(subs) >= i.maxPerSession {
		return 0, ErrTooManySubscriptions
	}

	if subs == nil {
		subs = make(map[string]struct{})
		i.sessions[sessionID] = subs
	}
	subs[t] = struct{}{}

	bucket := i.bucketFor(t)
	members := bucket[t]
	if members == nil {
		members = make(map[string]struct{})
		bucket[t] = members
	}
	members[sessionID] = struct{}{}

	return Added, nil
}

// Unsubscribe removes a session from a topic's room, evicting the row if
// it becomes empty. Idempotent; reports whether anything was removed.
func (i *Index) Unsubscribe(sessionID, t string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.unsubscribeLocked(sessionID, t)
}

func (i *Index) unsubscribeLocked(sessionID, t string) bool {
	subs := i.sessions[sessionID]
	if _, ok := subs[t]; !ok {
		return false
	}

	delete(subs, t)
	if len(subs) == 0 {
		delete(i.sessions, sessionID)
	}

	bucket := i.bucketFor(t)
	if members, ok := bucket[t]; ok {
		delete(members, sessionID)
		if len(members) == 0 {
			delete(bucket, t)
		}
	}

	return true
}

// SubscriberIDsFor resolves every session whose subscription set matches
// the literal event topic, de-duplicated: a session holding both a
// matching wildcard and the literal appears once.
func (i *Index) SubscriberIDsFor(eventTopic string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	seen := make(map[string]struct{})
	for id := range i.literals[eventTopic] {
		seen[id] = struct{}{}
	}
	for pattern, members := range i.wildcards {
		if !topic.Match(pattern, eventTopic) {
			continue
		}
		for id := range members {
			seen[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids
}

// TopicsOf lists a session's subscriptions.
func (i *Index) TopicsOf(sessionID string) []string {
	i.mu.RLock()
	defer i.mu.RUnlock()

	subs := i.sessions[sessionID]
	out := make([]string, 0, len(subs))
	for t := range subs {
		out = append(out, t)
	}
	return out
}

// Has reports whether a session is subscribed to the exact topic or
// pattern.
func (i *Index) Has(sessionID, t string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, ok := i.sessions[sessionID][t]
	return ok
}

// CoveredBy reports whether the session holds any subscription matching
// the literal topic (exactly or through a wildcard). Used for broadcast
// membership checks.
func (i *Index) CoveredBy(sessionID, eventTopic string) bool {
	i.mu.RLock()
	defer i.mu.RUnlock()

	for sub := range i.sessions[sessionID] {
		if sub == eventTopic || topic.Match(sub, eventTopic) {
			return true
		}
	}
	return false
}

// RemoveSession drops every index entry for a session and returns the
// count removed.
func (i *Index) RemoveSession(sessionID string) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	subs := i.sessions[sessionID]
	removed := 0
	for t := range subs {
		bucket := i.bucketFor(t)
		if members, ok := bucket[t]; ok {
			delete(members, sessionID)
			if len(members) == 0 {
				delete(bucket, t)
			}
		}
		removed++
	}
	delete(i.sessions, sessionID)
	return removed
}

// RoomCounts snapshots every room and its subscriber count.
func (i *Index) RoomCounts() map[string]int {
	i.mu.RLock()
	defer i.mu.RUnlock()

	out := make(map[string]int, len(i.literals)+len(i.wildcards))
	for t, members := range i.literals {
		out[t] = len(members)
	}
	for t, members := range i.wildcards {
		out[t] = len(members)
	}
	return out
}

func (i *Index) bucketFor(t string) map[string]map[string]struct{} {
	if topic.IsWildcard(t) {
		return i.wildcards
	}
	return i.literals
}
