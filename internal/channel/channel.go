// Package channel provides the outbound queue between a session and its
// browser connection. The session's read goroutine is the only sender; the
// connection's write loop is the only receiver and drains frames onto the
// socket.
package channel

// DefaultSize is the buffer New uses when asked for a non-positive size.
const DefaultSize = 64

// Receiver provides read access to a channel.
type Receiver[T any] interface {
	Receive() <-chan T
	Len() int
}

// Sender provides write access to a channel.
type Sender[T any] interface {
	Send(T)
	// TrySend reports false instead of blocking when the value cannot be
	// handed over.
	TrySend(T) bool
}

// Channel combines read and write access. Close must only be called by the
// sending side once it has stopped sending.
type Channel[T any] interface {
	Receiver[T]
	Sender[T]
	Close()
}
