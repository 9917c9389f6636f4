package channel

// Buffered queues up to Cap frames for a browser that is momentarily
// slower than the session producing them.
type Buffered[T any] struct {
	ch chan T
}

// NewBuffered creates a queue holding at most size frames.
func NewBuffered[T any](size int) *Buffered[T] {
	return &Buffered[T]{ch: make(chan T, size)}
}

// Send queues v, blocking while the queue is full.
func (b *Buffered[T]) Send(v T) {
	b.ch <- v
}

// TrySend queues v unless the queue is full. A false result means the
// browser has stopped draining and the connection should be dropped.
func (b *Buffered[T]) TrySend(v T) bool {
	select {
	case b.ch <- v:
		return true
	default:
		return false
	}
}

// Receive is ranged over by the write loop.
func (b *Buffered[T]) Receive() <-chan T {
	return b.ch
}

// Len returns the number of frames waiting to be written.
func (b *Buffered[T]) Len() int {
	return len(b.ch)
}

// Cap returns the queue capacity.
func (b *Buffered[T]) Cap() int {
	return cap(b.ch)
}

// Close ends the write loop once queued frames are drained.
func (b *Buffered[T]) Close() {
	close(b.ch)
}
