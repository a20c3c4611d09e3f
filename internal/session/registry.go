package session

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/agromesh/realtime-gateway/internal/room"
	"github.com/agromesh/realtime-gateway/internal/topic"
)

// ErrTenantFull is returned when a tenant is at its session cap. The
// caller surfaces it as a TenantCapacity close, never a silent drop.
var ErrTenantFull = errors.New("tenant session capacity reached")

type userKey struct {
	tenant  string
	subject string
}

// Registry holds all live sessions.
type Registry struct {
	index  *room.Index
	logger *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	byTenant map[string]map[string]*Session
	byUser   map[userKey]map[string]*Session

	maxPerTenant int
}

// Stats is a point-in-time snapshot for the admin surface.
type Stats struct {
	TotalSessions     int            `json:"total_connections"`
	SessionsPerTenant map[string]int `json:"connections_per_tenant"`
	Rooms             map[string]int `json:"rooms"`
	RoomTypes         map[string]int `json:"rooms_per_type"`
}

// NewRegistry creates a Registry backed by the given room index.
func NewRegistry(index *room.Index, maxPerTenant int, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		index:        index,
		logger:       logger,
		sessions:     make(map[string]*Session),
		byTenant:     make(map[string]map[string]*Session),
		byUser:       make(map[userKey]map[string]*Session),
		maxPerTenant: maxPerTenant,
	}
}

// Register installs an authenticated session, enforcing the per-tenant
// cap, and auto-subscribes its tenant and user rooms.
func (r *Registry) Register(s *Session) error {
	tenant := s.Identity.Tenant

	r.mu.Lock()
	if len(r.byTenant[tenant]) >= r.maxPerTenant {
		r.mu.Unlock()
		return ErrTenantFull
	}

	r.sessions[s.ID] = s
	if r.byTenant[tenant] == nil {
		r.byTenant[tenant] = make(map[string]*Session)
	}
	r.byTenant[tenant][s.ID] = s

	key := userKey{tenant: tenant, subject: s.Identity.Subject}
	if r.byUser[key] == nil {
		r.byUser[key] = make(map[string]*Session)
	}
	r.byUser[key][s.ID] = s
	r.mu.Unlock()

	// Auto-subscriptions. The index is empty for a fresh session so the
	// cap cannot trip here.
	r.index.Subscribe(s.ID, topic.TenantTopic(tenant))
	r.index.Subscribe(s.ID, topic.UserTopic(s.Identity.Subject))

	r.logger.Debug("session registered",
		"session_id", s.ID,
		"tenant", tenant,
		"subject", s.Identity.Subject,
	)
	return nil
}

// Deregister removes a session from every index. Safe to call for an
// unknown or already-deregistered id.
func (r *Registry) Deregister(sessionID string) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	if ok {
		delete(r.sessions, sessionID)

		tenant := s.Identity.Tenant
		if m := r.byTenant[tenant]; m != nil {
			delete(m, sessionID)
			if len(m) == 0 {
				delete(r.byTenant, tenant)
			}
		}
		key := userKey{tenant: tenant, subject: s.Identity.Subject}
		if m := r.byUser[key]; m != nil {
			delete(m, sessionID)
			if len(m) == 0 {
				delete(r.byUser, key)
			}
		}
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	removed := r.index.RemoveSession(sessionID)
	r.logger.Debug("session deregistered",
		"session_id", sessionID,
		"rooms_removed", removed,
	)
}

// Lookup finds a session by id.
func (r *Registry) Lookup(sessionID string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// ByTenant lists a tenant's sessions.
func (r *Registry) ByTenant(tenant string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.byTenant[tenant]))
	for _, s := range r.byTenant[tenant] {
		out = append(out, s)
	}
	return out
}

// ByUser lists the sessions of one user within a tenant.
func (r *Registry) ByUser(tenant, subject string) []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key := userKey{tenant: tenant, subject: subject}
	out := make([]*Session, 0, len(r.byUser[key]))
	for _, s := range r.byUser[key] {
		out = append(out, s)
	}
	return out
}

// All snapshots every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// TenantCount returns the live session count for one tenant.
func (r *Registry) TenantCount(tenant string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byTenant[tenant])
}

// Stats snapshots registry and room state.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	perTenant := make(map[string]int, len(r.byTenant))
	for tenant, m := range r.byTenant {
		perTenant[tenant] = len(m)
	}
	total := len(r.sessions)
	r.mu.RUnlock()

	rooms := r.index.RoomCounts()
	roomTypes := make(map[string]int)
	for t := range rooms {
		roomTypes[topic.Namespace(t)]++
	}

	return Stats{
		TotalSessions:     total,
		SessionsPerTenant: perTenant,
		Rooms:             rooms,
		RoomTypes:         roomTypes,
	}
}
