package kb

import (
	"sync"

	"github.com/signalsfoundry/uav-deconfliction/model"
)

// EventType indicates what kind of change happened in the registry.
type EventType int

const (
	EventMissionRegistered EventType = iota
	EventMissionRemoved
	EventRegistryCleared
)

func (e EventType) String() string {
	switch e {
	case EventMissionRegistered:
		return "registered"
	case EventMissionRemoved:
		return "removed"
	case EventRegistryCleared:
		return "cleared"
	default:
		return "unknown"
	}
}

// Event is emitted to subscribers after the registry changes. Mission is
// nil for EventRegistryCleared. Count is the registry size right after the
// change; concurrent writers may deliver events out of order, so it is not
// necessarily the current size.
type Event struct {
	Type    EventType
	DroneID string
	Mission *model.Mission
	Count   int
}

// MissionRegistry is an in-memory, thread-safe mapping from drone id to
// mission. Iteration follows registration order; re-registering an id
// replaces the mission but keeps its original position.
type MissionRegistry struct {
	mu sync.RWMutex

	missions map[string]*model.Mission
	order    []string

	subs      []subscriber
	nextSubID int
}

type subscriber struct {
	id int
	fn func(Event)
}

// NewMissionRegistry constructs an empty registry.
func NewMissionRegistry() *MissionRegistry {
	return &MissionRegistry{
		missions: make(map[string]*model.Mission),
	}
}

// Register inserts m, replacing any mission already registered under the
// same drone id. A nil mission is ignored.
func (r *MissionRegistry) Register(m *model.Mission) {
	if m == nil {
		return
	}
	r.mu.Lock()
	id := m.DroneID()
	if _, exists := r.missions[id]; !exists {
		r.order = append(r.order, id)
	}
	r.missions[id] = m
	ev := Event{Type: EventMissionRegistered, DroneID: id, Mission: m, Count: len(r.missions)}
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, ev)
}

// Remove deletes the mission registered under id. It reports whether a
// mission was present.
func (r *MissionRegistry) Remove(id string) bool {
	r.mu.Lock()
	m, ok := r.missions[id]
	if !ok {
		r.mu.Unlock()
		return false
	}
	delete(r.missions, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	ev := Event{Type: EventMissionRemoved, DroneID: id, Mission: m, Count: len(r.missions)}
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, ev)
	return true
}

// Clear empties the registry.
func (r *MissionRegistry) Clear() {
	r.mu.Lock()
	r.missions = make(map[string]*model.Mission)
	r.order = nil
	subs := r.subscribersLocked()
	r.mu.Unlock()

	notify(subs, Event{Type: EventRegistryCleared})
}

// Get returns the mission registered under id.
func (r *MissionRegistry) Get(id string) (*model.Mission, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.missions[id]
	return m, ok
}

// List returns a snapshot of all missions in registration order.
func (r *MissionRegistry) List() []*model.Mission {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*model.Mission, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, r.missions[id])
	}
	return res
}

// IDs returns the registered drone ids in registration order.
func (r *MissionRegistry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Len returns the number of registered missions.
func (r *MissionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.missions)
}

// Subscribe registers a callback for registry events. It returns an
// unsubscribe function; calling it more than once is a no-op.
func (r *MissionRegistry) Subscribe(fn func(Event)) (unsubscribe func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := r.nextSubID
	r.nextSubID++
	r.subs = append(r.subs, subscriber{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, s := range r.subs {
				if s.id == id {
					r.subs = append(r.subs[:i], r.subs[i+1:]...)
					return
				}
			}
		})
	}
}

func (r *MissionRegistry) subscribersLocked() []func(Event) {
	out := make([]func(Event), len(r.subs))
	for i, s := range r.subs {
		out[i] = s.fn
	}
	return out
}

// Notify subscribers outside the lock to avoid deadlocks.
func notify(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
