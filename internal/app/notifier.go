package app

import (
	"sync"
	"time"
)

// ChangeKind names what caused a change notification.
type ChangeKind string

const (
	ChangeSubmission ChangeKind = "submission"
	ChangeSettings   ChangeKind = "settings"
	ChangeScores     ChangeKind = "scores"
	ChangeProblems   ChangeKind = "problems"
	ChangeUsers      ChangeKind = "users"
)

// Change tells subscribers that shared contest state moved and views should be recomputed.
type Change struct {
	Kind ChangeKind `json:"kind"`
	At   time.Time  `json:"at"`
}

// notifier fans changes out to subscribers in this process.
type notifier struct {
	mu          sync.Mutex
	subscribers map[chan Change]struct{}
}

func newNotifier() *notifier {
	return &notifier{subscribers: make(map[chan Change]struct{})}
}

func (n *notifier) subscribe() (<-chan Change, func()) {
	ch := make(chan Change, 8)

	n.mu.Lock()
	n.subscribers[ch] = struct{}{}
	n.mu.Unlock()

	cancel := func() {
		n.mu.Lock()
		if _, ok := n.subscribers[ch]; ok {
			delete(n.subscribers, ch)
			close(ch)
		}
		n.mu.Unlock()
	}
	return ch, cancel
}

func (n *notifier) publish(change Change) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for ch := range n.subscribers {
		select {
		case ch <- change:
		default:
			// Slow subscriber: drop the oldest event so publish never blocks.
			select {
			case <-ch:
			default:
			}
			ch <- change
		}
	}
}
