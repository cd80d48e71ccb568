package curator

import "time"

// Event types pushed to EventSink
const (
	EventDraftCreated     = "draft_created"
	EventDraftPublished   = "draft_published"
	EventDraftRejected    = "draft_rejected"
	EventInstanceResolved = "instance_resolved"
	EventConfigUpdated    = "config_updated"
)

// Event is one engine notification for live admin clients
type Event struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
}

// EventSink receives engine events. Broadcast must not block.
type EventSink interface {
	Broadcast(Event)
}

func (e *Engine) emit(eventType string, data interface{}) {
	if e.events == nil {
		return
	}
	e.events.Broadcast(Event{Type: eventType, Data: data, Timestamp: e.now().UTC()})
}
