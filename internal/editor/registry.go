package editor

import (
	"fmt"
	"log/slog"
	"sync"
)

// EventType is a surface lifecycle transition.
type EventType int

// Lifecycle events.
const (
	EventMounted EventType = iota + 1
	EventUnmounted
)

func (t EventType) String() string {
	switch t {
	case EventMounted:
		return "mounted"
	case EventUnmounted:
		return "unmounted"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers after the registry has changed.
type Event struct {
	Type   EventType
	Handle Handle
}

// Registry holds the surfaces hosts have published. Surfaces are registered
// explicitly; nothing is discovered by inspecting arbitrary values.
type Registry struct {
	logger *slog.Logger

	mu        sync.Mutex
	surfaces  []Handle // mount order
	listeners map[int]func(Event)
	nextID    int
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		logger:    logger,
		listeners: make(map[int]func(Event)),
	}
}

// Mount publishes surface under id after checking its capabilities.
func (r *Registry) Mount(id string, surface any) (Handle, error) {
	h, ok := classify(id, surface)
	if !ok {
		return Handle{}, fmt.Errorf("editor: mounting %q: %w", id, ErrUnsupportedSurface)
	}

	r.mu.Lock()
	for _, existing := range r.surfaces {
		if existing.ID == id {
			r.mu.Unlock()
			return Handle{}, fmt.Errorf("editor: mounting %q: %w", id, ErrDuplicateID)
		}
	}

	r.surfaces = append(r.surfaces, h)
	listeners := r.snapshotListeners()
	r.mu.Unlock()

	r.logger.Debug("editor: surface mounted", slog.String("id", id), slog.String("kind", h.Kind.String()))
	notify(listeners, Event{Type: EventMounted, Handle: h})

	return h, nil
}

// Unmount removes the surface with id. Reports whether it was mounted.
func (r *Registry) Unmount(id string) bool {
	r.mu.Lock()

	var (
		removed Handle
		found   bool
	)

	for i, h := range r.surfaces {
		if h.ID == id {
			removed, found = h, true
			r.surfaces = append(r.surfaces[:i], r.surfaces[i+1:]...)

			break
		}
	}

	listeners := r.snapshotListeners()
	r.mu.Unlock()

	if !found {
		return false
	}

	r.logger.Debug("editor: surface unmounted", slog.String("id", id), slog.String("kind", removed.Kind.String()))
	notify(listeners, Event{Type: EventUnmounted, Handle: removed})

	return true
}

// Detect returns the surface to insert into: the most recently mounted
// plain-text surface, else the most recently mounted structured one.
func (r *Registry) Detect() (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range []Kind{KindPlainText, KindStructured} {
		for i := len(r.surfaces) - 1; i >= 0; i-- {
			if r.surfaces[i].Kind == kind {
				return r.surfaces[i], true
			}
		}
	}

	return Handle{}, false
}

// Handles returns the mounted surfaces in mount order.
func (r *Registry) Handles() []Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Handle, len(r.surfaces))
	copy(out, r.surfaces)

	return out
}

// Subscribe registers fn for lifecycle events. fn runs on the goroutine that
// changed the registry, outside the registry lock. The returned func
// removes the subscription.
func (r *Registry) Subscribe(fn func(Event)) (cancel func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.listeners[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.listeners, id)
		r.mu.Unlock()
	}
}

func (r *Registry) snapshotListeners() []func(Event) {
	out := make([]func(Event), 0, len(r.listeners))
	for _, fn := range r.listeners {
		out = append(out, fn)
	}

	return out
}

func notify(listeners []func(Event), ev Event) {
	for _, fn := range listeners {
		fn(ev)
	}
}
