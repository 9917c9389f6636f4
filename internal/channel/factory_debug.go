//go:build debug

package channel

// New creates the outbound queue of one connection. Debug builds hand every
// value straight to the writer and ignore size, so a stalled writer shows up
// at the first send.
func New[T any](size int) Channel[T] {
	return NewUnbuffered[T]()
}
