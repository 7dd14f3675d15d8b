// Package events provides a small process-wide signal bus used to cancel
// running work and to invalidate cached results.
package events

import "sync"

// EventType identifies different application events.
type EventType int

const (
	// EventLoadImage is raised when a new image is loaded
	EventLoadImage EventType = iota
	// EventCalculateRequest is raised when a recompute is requested
	EventCalculateRequest
	// EventApplyCrop is raised when a crop is applied to the image
	EventApplyCrop
	// EventModelVersionChanged is raised when another denoising model is selected
	EventModelVersionChanged
	// EventCancelProcessing asks running work to stop at the next checkpoint
	EventCancelProcessing
)

var eventNames = map[EventType]string{
	EventLoadImage:           "LoadImage",
	EventCalculateRequest:    "CalculateRequest",
	EventApplyCrop:           "ApplyCrop",
	EventModelVersionChanged: "ModelVersionChanged",
	EventCancelProcessing:    "CancelProcessing",
}

// String implements fmt.Stringer
func (e EventType) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return "Unknown"
}

// EventListener is called when an event occurs.
type EventListener func(data interface{})

type registration struct {
	id       uint64
	listener EventListener
}

// Bus dispatches events to registered listeners. It is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[EventType][]registration
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{listeners: make(map[EventType][]registration)}
}

// On registers an event listener for the specified event type. The returned
// function removes the listener; calling it more than once has no effect.
func (b *Bus) On(event EventType, listener EventListener) (remove func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.listeners[event] = append(b.listeners[event], registration{id: id, listener: listener})

	var once sync.Once
	return func() {
		once.Do(func() { b.off(event, id) })
	}
}

func (b *Bus) off(event EventType, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	regs := b.listeners[event]
	for k, r := range regs {
		if r.id == id {
			b.listeners[event] = append(regs[:k:k], regs[k+1:]...)
			return
		}
	}
}

// Emit notifies all listeners registered for the event. Listeners run on the
// caller's goroutine, outside the bus lock.
func (b *Bus) Emit(event EventType, data interface{}) {
	b.mu.RLock()
	regs := make([]registration, len(b.listeners[event]))
	copy(regs, b.listeners[event])
	b.mu.RUnlock()

	for _, r := range regs {
		r.listener(data)
	}
}

// ListenerCount returns the number of listeners registered for the event
func (b *Bus) ListenerCount(event EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners[event])
}
