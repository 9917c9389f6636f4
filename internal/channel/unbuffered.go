package channel

// Unbuffered hands every frame directly to the write loop. Debug builds use
// it so a stalled writer blocks the session at once.
type Unbuffered[T any] struct {
	ch chan T
}

// NewUnbuffered creates a direct handoff queue.
func NewUnbuffered[T any]() *Unbuffered[T] {
	return &Unbuffered[T]{ch: make(chan T)}
}

// Send blocks until the write loop takes v.
func (u *Unbuffered[T]) Send(v T) {
	u.ch <- v
}

// TrySend blocks like Send. Debug builds use it to make every outbound
// message a synchronous handoff.
func (u *Unbuffered[T]) TrySend(v T) bool {
	u.ch <- v
	return true
}

// Receive is ranged over by the write loop.
func (u *Unbuffered[T]) Receive() <-chan T {
	return u.ch
}

// Len is always 0; nothing waits in a direct handoff.
func (u *Unbuffered[T]) Len() int {
	return 0
}

// Close ends the write loop.
func (u *Unbuffered[T]) Close() {
	close(u.ch)
}
