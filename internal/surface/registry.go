package surface

import "sync"

type subscription struct {
	ev        EventType
	layer     string
	once      bool
	handler   Handler
	cancelled bool
}

// Registry keeps event subscriptions for a surface implementation and
// delivers events to them. Handlers are invoked without the lock held, so
// they may subscribe or cancel from inside a handler. A subscription
// cancelled during a dispatch does not fire later in that dispatch.
type Registry struct {
	mu   sync.Mutex
	subs []*subscription
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// On subscribes h to ev, optionally scoped to one layer.
func (r *Registry) On(ev EventType, layerID string, h Handler) func() {
	return r.add(&subscription{ev: ev, layer: layerID, handler: h})
}

// Once subscribes h to the next map-wide ev.
func (r *Registry) Once(ev EventType, h Handler) func() {
	return r.add(&subscription{ev: ev, once: true, handler: h})
}

func (r *Registry) add(s *subscription) func() {
	r.mu.Lock()
	r.subs = append(r.subs, s)
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { r.remove(s) })
	}
}

func (r *Registry) remove(s *subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(s)
}

func (r *Registry) removeLocked(s *subscription) {
	s.cancelled = true
	for i, cur := range r.subs {
		if cur == s {
			r.subs = append(r.subs[:i], r.subs[i+1:]...)
			return
		}
	}
}

// Dispatch delivers e to every matching subscription in subscription order.
// Map-wide subscriptions always match; layer subscriptions match when e hit
// their layer.
func (r *Registry) Dispatch(e Event) {
	r.mu.Lock()
	matched := make([]*subscription, 0, len(r.subs))
	for _, s := range r.subs {
		if s.ev != e.Type {
			continue
		}
		if s.layer != "" && s.layer != e.Layer {
			continue
		}
		matched = append(matched, s)
	}
	r.mu.Unlock()

	for _, s := range matched {
		r.mu.Lock()
		if s.cancelled {
			r.mu.Unlock()
			continue
		}
		if s.once {
			r.removeLocked(s)
		}
		h := s.handler
		r.mu.Unlock()

		h(e)
	}
}

// Count returns the number of live subscriptions for ev and layerID.
func (r *Registry) Count(ev EventType, layerID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.subs {
		if s.ev == ev && s.layer == layerID {
			n++
		}
	}
	return n
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.subs)
}

// Reset drops every subscription.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.subs {
		s.cancelled = true
	}
	r.subs = nil
}
