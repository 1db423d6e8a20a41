package game

import "sync"

// eventBufferSize is the number of queued events a single subscriber may
// fall behind by before events for it start being dropped. A dropped event
// only matters for a socket that is itself wedged, since reconnection
// replays the session's last known status from scratch (see session.go).
const eventBufferSize = 256

// EventKind identifies how a broadcast Event should be routed to
// subscribers.
type EventKind int

const (
	// EventSendTo delivers Msg only to the subscriber with SocketID.
	EventSendTo EventKind = iota
	// EventBroadcast delivers Msg to every subscriber.
	EventBroadcast
	// EventBroadcastExcept delivers Msg to every subscriber except Exclude.
	EventBroadcastExcept
	// EventKickSocket delivers Msg to SocketID and tells its connection
	// handler to close the socket afterward.
	EventKickSocket
)

// Event is a single message a session wants delivered to one or more of its
// connected sockets.
type Event struct {
	Kind     EventKind
	SocketID string
	Exclude  string
	Msg      interface{}
}

// Broadcaster is quizrush's stand-in for a broadcast channel: each
// subscriber gets its own bounded channel, and a slow or stuck subscriber
// has events dropped for it rather than blocking publishers or other
// subscribers.
type Broadcaster struct {
	mu          sync.Mutex
	nextSubID   int64
	subscribers map[int64]subscriber
}

type subscriber struct {
	socketID string
	ch       chan Event
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subscribers: make(map[int64]subscriber)}
}

// Subscribe registers socketID to receive events addressed to it or to
// everyone. The returned unsubscribe function must be called when the
// connection handler is done with this session (on disconnect, or when it
// moves on to a different session).
func (b *Broadcaster) Subscribe(socketID string) (<-chan Event, func()) {
	b.mu.Lock()
	id := b.nextSubID
	b.nextSubID++
	ch := make(chan Event, eventBufferSize)
	b.subscribers[id] = subscriber{socketID: socketID, ch: ch}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}
	return ch, unsubscribe
}

// Publish routes ev to every subscriber for which it is addressed, per
// ev.Kind. Delivery never blocks: a subscriber whose channel is full has
// this event dropped for it.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	subs := make([]subscriber, 0, len(b.subscribers))
	for _, sub := range b.subscribers {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		if !addressedTo(ev, sub.socketID) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
		}
	}
}

func addressedTo(ev Event, socketID string) bool {
	switch ev.Kind {
	case EventSendTo, EventKickSocket:
		return ev.SocketID == socketID
	case EventBroadcast:
		return true
	case EventBroadcastExcept:
		return ev.Exclude != socketID
	default:
		return false
	}
}
