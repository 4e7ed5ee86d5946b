package session

import (
	"sync"
	"time"

	"medfast/pkg"
)

// Event types published on the notifier as a case moves through review.
const (
	EventCaseSubmitted = "CASE_SUBMITTED"
	EventCaseApproved  = "CASE_APPROVED"
	EventCaseRejected  = "CASE_REJECTED"
)

// Event describes a case status change for the doctor dashboard stream.
type Event struct {
	Type      string         `json:"type"`
	SessionID string         `json:"session_id"`
	CaseID    string         `json:"case_id"`
	Status    pkg.CaseStatus `json:"status"`
	At        time.Time      `json:"at"`
}

// Notifier fans case events out to dashboard subscribers. It is the
// in-process equivalent of a NOTIFY channel: fire and forget, no history,
// slow subscribers miss events rather than blocking publishers.
type Notifier struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
}

// NewNotifier constructs an empty Notifier.
func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[chan Event]struct{})}
}

// Subscribe registers a listener and returns its event channel plus a cancel
// function that must be called when the listener goes away.
func (n *Notifier) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	n.mu.Lock()
	n.subs[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subs[ch]; ok {
			delete(n.subs, ch)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers the event to every subscriber with room in its buffer.
func (n *Notifier) Publish(ev Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
