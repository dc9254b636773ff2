package httpapi

import (
	"sync"

	"github.com/google/uuid"
)

// Event is one presentation update pushed to websocket subscribers.
type Event struct {
	Type       string   `json:"type"` // "status" or "transcript"
	Status     string   `json:"status,omitempty"`
	Transcript []string `json:"transcript,omitempty"`
}

// EventHub implements call.Sink. It retains the latest status text and
// transcript for status reads and late subscribers, and fans events out to
// websocket clients. Slow subscribers drop events rather than block the
// controller.
type EventHub struct {
	mu         sync.Mutex
	status     string
	transcript []string
	subs       map[string]chan Event
}

func NewEventHub() *EventHub {
	return &EventHub{
		status: "idle",
		subs:   make(map[string]chan Event),
	}
}

func (h *EventHub) StatusChanged(status string) {
	h.mu.Lock()
	h.status = status
	h.broadcastLocked(Event{Type: "status", Status: status})
	h.mu.Unlock()
}

func (h *EventHub) TranscriptUpdated(lines []string) {
	copied := make([]string, len(lines))
	copy(copied, lines)

	h.mu.Lock()
	h.transcript = copied
	h.broadcastLocked(Event{Type: "transcript", Transcript: copied})
	h.mu.Unlock()
}

// Snapshot returns the latest status text and transcript.
func (h *EventHub) Snapshot() (string, []string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	lines := make([]string, len(h.transcript))
	copy(lines, h.transcript)
	return h.status, lines
}

// Subscribe registers a new listener and returns its id, its channel, and
// catch-up events reflecting the current state.
func (h *EventHub) Subscribe() (string, <-chan Event, []Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	id := uuid.NewString()
	ch := make(chan Event, 64)
	h.subs[id] = ch

	catchup := []Event{{Type: "status", Status: h.status}}
	if len(h.transcript) > 0 {
		lines := make([]string, len(h.transcript))
		copy(lines, h.transcript)
		catchup = append(catchup, Event{Type: "transcript", Transcript: lines})
	}
	return id, ch, catchup
}

func (h *EventHub) Unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if ch, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(ch)
	}
}

func (h *EventHub) broadcastLocked(evt Event) {
	for _, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// Keep websocket writes single-threaded; drop if the queue is full.
		}
	}
}
