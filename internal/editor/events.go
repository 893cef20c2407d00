package editor

import "sync"

type EventType string

const (
	// EventLargeScene fires when the vertex count crosses the large-scene
	// threshold and performance mode is switched on. Data is the vertex count.
	EventLargeScene EventType = "largeScene"
	// EventSceneImported fires after a scene document replaced the store contents.
	EventSceneImported EventType = "sceneImported"
	// EventHistoryRestored fires after undo or redo. Data is the new history index.
	EventHistoryRestored EventType = "historyRestored"
)

type Event struct {
	Type EventType
	Data any
}

type Listener interface {
	OnEvent(event Event)
}

// ListenerFunc adapts a plain function to a Listener.
type ListenerFunc func(Event)

func (f ListenerFunc) OnEvent(e Event) { f(e) }

// Dispatcher fans events out to subscribers.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]Listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		listeners: make(map[EventType][]Listener),
	}
}

func (d *Dispatcher) Subscribe(eventType EventType, listener Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], listener)
}

// Dispatch delivers the event synchronously to every subscriber of its type.
func (d *Dispatcher) Dispatch(event Event) {
	d.mu.RLock()
	listeners := append([]Listener(nil), d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, l := range listeners {
		l.OnEvent(event)
	}
}
