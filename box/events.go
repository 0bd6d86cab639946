package box

// EventType identifies a block lifecycle transition.
type EventType uint8

const (
	EventCreated   EventType = iota // block constructed, refs == 1
	EventCloned                     // refs incremented
	EventDestroyed                  // a handle destroyed, block still live
	EventReleased                   // last handle destroyed, storage freed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventCloned:
		return "cloned"
	case EventDestroyed:
		return "destroyed"
	case EventReleased:
		return "released"
	default:
		return "unknown"
	}
}

// Event represents a block lifecycle event.
type Event struct {
	Block uint64
	Refs  int32
	Size  uint32
	Type  EventType
}

// Observer receives notifications about block lifecycle events.
type Observer interface {
	OnBoxEvent(Event)
}
