//go:build !debug

package channel

// New creates the outbound queue of one connection. Release builds buffer
// up to size values; a non-positive size selects DefaultSize.
func New[T any](size int) Channel[T] {
	if size < 1 {
		size = DefaultSize
	}
	return NewBuffered[T](size)
}
