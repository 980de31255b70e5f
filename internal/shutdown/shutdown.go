// Package shutdown provides the one-shot stop notification handed from the
// service manager's callback context to the process supervisor.
//
// A channel has exactly two ends: a [Sender] held by whoever observes the stop
// request and a [Receiver] polled by the supervisor loop. Only the first send
// is ever delivered.
package shutdown

import "sync/atomic"

// ///////////////////////////////////////////////
// Channel
// ///////////////////////////////////////////////

// channel is the state shared by both ends.
type channel struct {
	// ch has capacity 1 and receives at most one value.
	ch chan struct{}
	// sent flips on the first [Sender.Send].
	sent atomic.Bool
}

// New returns the two ends of a fresh shutdown channel.
func New() (Sender, Receiver) {
	c := &channel{ch: make(chan struct{}, 1)}
	return Sender{c: c}, Receiver{c: c}
}

// ///////////////////////////////////////////////
// Sender
// ///////////////////////////////////////////////

// Sender is the producing end. It is safe to copy and to use from any
// goroutine.
type Sender struct {
	c *channel
}

// Send delivers the stop notification. It never blocks. The first call
// returns true; every later call is ignored and returns false.
func (s Sender) Send() bool {
	if !s.c.sent.CompareAndSwap(false, true) {
		return false
	}
	s.c.ch <- struct{}{}
	return true
}

// ///////////////////////////////////////////////
// Receiver
// ///////////////////////////////////////////////

// Receiver is the consuming end.
type Receiver struct {
	c *channel
}

// TryReceive reports whether the stop notification is present, consuming it.
// It never blocks and returns true at most once per channel.
func (r Receiver) TryReceive() bool {
	select {
	case <-r.c.ch:
		return true
	default:
		return false
	}
}
