package notify

import (
	"sort"
	"sync"
)

// GroupTracker maps groups to the connections subscribed to them. Registry
// is the in-process implementation; a shared-cache backed tracker can stand
// in when several instances serve the same calendars.
type GroupTracker interface {
	Add(group, connID string)
	Remove(group, connID string)
	// IsAlone reports whether group has exactly one subscriber.
	IsAlone(group string) bool
	GroupsFor(connID string) []string
	Members(group string) []string
}

// Registry is a concurrency-safe in-memory GroupTracker. Empty groups are
// dropped so the maps only hold live subscriptions.
type Registry struct {
	mu     sync.RWMutex
	groups map[string]map[string]struct{}
	conns  map[string]map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		groups: make(map[string]map[string]struct{}),
		conns:  make(map[string]map[string]struct{}),
	}
}

func (r *Registry) Add(group, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.groups[group]
	if !ok {
		members = make(map[string]struct{})
		r.groups[group] = members
	}
	members[connID] = struct{}{}

	joined, ok := r.conns[connID]
	if !ok {
		joined = make(map[string]struct{})
		r.conns[connID] = joined
	}
	joined[group] = struct{}{}
}

func (r *Registry) Remove(group, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if members, ok := r.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(r.groups, group)
		}
	}
	if joined, ok := r.conns[connID]; ok {
		delete(joined, group)
		if len(joined) == 0 {
			delete(r.conns, connID)
		}
	}
}

func (r *Registry) IsAlone(group string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.groups[group]) == 1
}

func (r *Registry) GroupsFor(connID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.conns[connID])
}

func (r *Registry) Members(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.groups[group])
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
