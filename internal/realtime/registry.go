package realtime

import (
	"log/slog"
	"sync"
)

// Conn is one live real-time client. Send must not block: transports queue
// outbound frames and report an error when the connection is gone or its
// queue is full.
type Conn interface {
	ID() string
	Send(event string, payload any) error
}

// Registry tracks which connections belong to which broadcast groups and
// fans events out to them. It is an owned, lifecycle-scoped instance
// injected where needed, created at process start and torn down on
// shutdown.
type Registry struct {
	mu      sync.RWMutex
	groups  map[Group]map[string]Conn
	members map[string]map[Group]struct{}
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		groups:  make(map[Group]map[string]Conn),
		members: make(map[string]map[Group]struct{}),
	}
}

// Subscribe registers conn under group. A connection may hold membership in
// any number of groups simultaneously.
func (r *Registry) Subscribe(conn Conn, group Group) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.groups[group] == nil {
		r.groups[group] = make(map[string]Conn)
	}
	r.groups[group][conn.ID()] = conn

	if r.members[conn.ID()] == nil {
		r.members[conn.ID()] = make(map[Group]struct{})
	}
	r.members[conn.ID()][group] = struct{}{}
}

// Unsubscribe removes conn from every group it was part of. Safe to call
// multiple times.
func (r *Registry) Unsubscribe(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for group := range r.members[conn.ID()] {
		delete(r.groups[group], conn.ID())
		if len(r.groups[group]) == 0 {
			delete(r.groups, group)
		}
	}
	delete(r.members, conn.ID())
}

// Broadcast delivers the event to every connection currently in the group
// and returns the number of successful deliveries. Delivery is
// fire-and-forget: a connection whose Send fails is skipped and logged, it
// catches up on its next reconnect and fresh fetch. Broadcasting to an
// empty group is a no-op.
func (r *Registry) Broadcast(group Group, eventName string, payload any) int {
	r.mu.RLock()
	conns := make([]Conn, 0, len(r.groups[group]))
	for _, c := range r.groups[group] {
		conns = append(conns, c)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, c := range conns {
		if err := c.Send(eventName, payload); err != nil {
			slog.Warn("Skipping unreachable subscriber", "conn_id", c.ID(), "group", string(group), "event", eventName, "error", err)

			continue
		}
		delivered++
	}

	return delivered
}

// Close drops all group memberships. Called on shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.groups = make(map[Group]map[string]Conn)
	r.members = make(map[string]map[Group]struct{})
}
