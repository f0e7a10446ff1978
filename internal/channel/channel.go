// Package channel provides generic channel interfaces for decoupled
// communication between the feed watcher, the driver and the monitor.
package channel

import "context"

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(ctx context.Context, v T) error
	TrySend(v T) bool
}

// Channel combines read and write access.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}

// Chan is a Channel backed by a Go channel of fixed capacity.
type Chan[T any] struct {
	ch chan T
}

// NewChan creates a channel with the given buffer size. Zero is unbuffered.
func NewChan[T any](size int) *Chan[T] {
	if size < 0 {
		size = 0
	}
	return &Chan[T]{ch: make(chan T, size)}
}

// Send blocks until v is accepted or ctx is done.
func (c *Chan[T]) Send(ctx context.Context, v T) error {
	select {
	case c.ch <- v:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend delivers v only if a receiver or buffer slot is ready.
func (c *Chan[T]) TrySend(v T) bool {
	select {
	case c.ch <- v:
		return true
	default:
		return false
	}
}

// Receive returns the receive-only channel
func (c *Chan[T]) Receive() <-chan T {
	return c.ch
}

// Len returns the number of items currently in the buffer
func (c *Chan[T]) Len() int {
	return len(c.ch)
}

// Close closes the channel
func (c *Chan[T]) Close() {
	close(c.ch)
}
