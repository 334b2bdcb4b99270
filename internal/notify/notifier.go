// Package notify implements the cart change broadcast. A pulse carries no
// payload and makes no ordering promise relative to the re-fetch it triggers;
// it only tells subscribers that the authoritative cart may have changed and
// should be pulled again.
package notify

import "sync"

// Notifier fans a "something changed" signal out to subscribers. Each
// subscriber channel is buffered with capacity one; pulses delivered while a
// signal is already pending coalesce instead of blocking the publisher.
type Notifier struct {
	mu    sync.Mutex
	next  int
	chans map[int]chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{chans: make(map[int]chan struct{})}
}

// Subscribe registers a new listener. The returned cancel func must be
// called when the listener goes away; after cancel the channel is closed.
func (n *Notifier) Subscribe() (<-chan struct{}, func()) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := n.next
	n.next++
	ch := make(chan struct{}, 1)
	n.chans[id] = ch

	cancel := func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		if c, ok := n.chans[id]; ok {
			delete(n.chans, id)
			close(c)
		}
	}
	return ch, cancel
}

// Pulse signals every subscriber without blocking. A subscriber that has not
// drained its previous signal sees the pulses merged into one.
func (n *Notifier) Pulse() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, ch := range n.chans {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
