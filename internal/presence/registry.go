package presence

import (
	"hash/fnv"
	"sync"

	"github.com/huddle-chat/huddle/internal/metrics"
)

// Conn is a live, authenticated connection able to receive events.
// Sends are best-effort and must not block the caller.
type Conn interface {
	Send(event string, payload interface{})
}

// Registry tracks which users currently hold live connections. Presence is
// process-local and volatile; it is rebuilt as clients reconnect after a
// restart. Injected as a capability so a distributed implementation can be
// swapped in without touching the router or dispatcher.
type Registry interface {
	Register(userID string, conn Conn)
	Unregister(userID string, conn Conn)
	ActiveConnections(userID string) []Conn
	IsOnline(userID string) bool
	OnlineUsers() []string
}

const shardCount = 32

type shard struct {
	mu    sync.RWMutex
	users map[string]map[Conn]struct{}
}

// ShardedRegistry is the in-process Registry. Sharding keeps unrelated
// users' connect/disconnect churn off a single lock.
type ShardedRegistry struct {
	shards [shardCount]*shard
}

func NewShardedRegistry() *ShardedRegistry {
	r := &ShardedRegistry{}
	for i := range r.shards {
		r.shards[i] = &shard{users: make(map[string]map[Conn]struct{})}
	}
	return r
}

func (r *ShardedRegistry) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return r.shards[h.Sum32()%shardCount]
}

// Register adds a connection for a user. Multiple connections per user are
// expected (multi-device).
func (r *ShardedRegistry) Register(userID string, conn Conn) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.users[userID]
	if !ok {
		conns = make(map[Conn]struct{})
		s.users[userID] = conns
	}
	if _, dup := conns[conn]; !dup {
		conns[conn] = struct{}{}
		metrics.ConnectionsActive.Inc()
	}
}

// Unregister removes a connection; the user entry disappears with its last
// connection.
func (r *ShardedRegistry) Unregister(userID string, conn Conn) {
	s := r.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	conns, ok := s.users[userID]
	if !ok {
		return
	}
	if _, present := conns[conn]; !present {
		return
	}
	delete(conns, conn)
	metrics.ConnectionsActive.Dec()
	if len(conns) == 0 {
		delete(s.users, userID)
	}
}

// ActiveConnections returns a snapshot of the user's live connections.
func (r *ShardedRegistry) ActiveConnections(userID string) []Conn {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	conns := s.users[userID]
	if len(conns) == 0 {
		return nil
	}
	out := make([]Conn, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

// IsOnline reports whether the user has at least one live connection.
func (r *ShardedRegistry) IsOnline(userID string) bool {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}

// OnlineUsers returns the IDs of all currently connected users.
func (r *ShardedRegistry) OnlineUsers() []string {
	var out []string
	for _, s := range r.shards {
		s.mu.RLock()
		for userID := range s.users {
			out = append(out, userID)
		}
		s.mu.RUnlock()
	}
	return out
}
