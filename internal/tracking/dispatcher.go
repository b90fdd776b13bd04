package tracking

import (
	"sync"

	"github.com/jengzang/travel-journal-go/internal/logging"
	"github.com/jengzang/travel-journal-go/internal/models"
)

// Listener receives each accepted position exactly once
type Listener interface {
	OnMovement(pos models.Position)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(pos models.Position)

// OnMovement calls fn(pos)
func (fn ListenerFunc) OnMovement(pos models.Position) { fn(pos) }

// Dispatcher fans accepted positions out to listeners. A panicking listener
// is logged and does not stop the others.
type Dispatcher struct {
	mu        sync.RWMutex
	nextID    int
	listeners map[int]Listener
	order     []int
}

// NewDispatcher creates an empty dispatcher
func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: make(map[int]Listener)}
}

// Subscribe registers l and returns a function that removes it
func (d *Dispatcher) Subscribe(l Listener) (unsubscribe func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.listeners[id] = l
	d.order = append(d.order, id)

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if _, ok := d.listeners[id]; !ok {
			return
		}
		delete(d.listeners, id)
		for i, v := range d.order {
			if v == id {
				d.order = append(d.order[:i], d.order[i+1:]...)
				break
			}
		}
	}
}

// Len returns the number of registered listeners
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners)
}

// Publish delivers pos to every listener in subscription order
func (d *Dispatcher) Publish(pos models.Position) {
	d.mu.RLock()
	listeners := make([]Listener, 0, len(d.order))
	for _, id := range d.order {
		listeners = append(listeners, d.listeners[id])
	}
	d.mu.RUnlock()

	for _, l := range listeners {
		deliver(l, pos)
	}
}

func deliver(l Listener, pos models.Position) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error().Interface("panic", r).Msg("movement listener panicked")
		}
	}()
	l.OnMovement(pos)
}
