package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/OCAP2/mapdraw/internal/channel"
	"github.com/OCAP2/mapdraw/pkg/streaming"
	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	defaultSendBuffer = 256
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
	defaultReadLimit  = 64 * 1024
)

// ErrSendBufferFull is returned when the browser does not drain messages
// fast enough. The connection is closed when it happens.
var ErrSendBufferFull = errors.New("send buffer full")

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("connection closed")

// ConnOptions tunes a Conn. Zero values select defaults.
type ConnOptions struct {
	SendBuffer int
	WriteWait  time.Duration
	PongWait   time.Duration
	ReadLimit  int64
	Logger     zerolog.Logger
}

// Conn is a server side browser connection with a single write goroutine.
// Send must only be called from the goroutine that runs ReadLoop, or before
// ReadLoop starts.
type Conn struct {
	mu     sync.Mutex
	conn   *ws.Conn
	out    channel.Channel[[]byte]
	done   chan struct{} // closed on shutdown
	closed bool

	writeWait time.Duration
	pongWait  time.Duration
	readLimit int64

	logger zerolog.Logger
}

// NewConn wraps an upgraded connection and starts its write loop.
func NewConn(conn *ws.Conn, opts ConnOptions) *Conn {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaultWriteWait
	}
	if opts.PongWait <= 0 {
		opts.PongWait = defaultPongWait
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = defaultReadLimit
	}
	c := &Conn{
		conn:      conn,
		out:       channel.New[[]byte](opts.SendBuffer),
		done:      make(chan struct{}),
		writeWait: opts.WriteWait,
		pongWait:  opts.PongWait,
		readLimit: opts.ReadLimit,
		logger:    opts.Logger,
	}
	go c.writeLoop()
	return c
}

// Send queues env for the browser. It never blocks; a full buffer closes
// the connection.
func (c *Conn) Send(env streaming.Envelope) error {
	if c.isClosed() {
		return ErrClosed
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", env.Type, err)
	}
	if !c.out.TrySend(data) {
		c.logger.Warn().Str("type", env.Type).Msg("WebSocket send buffer full, closing")
		_ = c.Close()
		return ErrSendBufferFull
	}
	return nil
}

// writeLoop drains the outbound channel and writes messages to the socket.
// It also keeps the connection alive with pings.
func (c *Conn) writeLoop() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case data, ok := <-c.out.Receive():
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket SetWriteDeadline error")
				_ = c.Close()
				return
			}
			if err := c.conn.WriteMessage(ws.TextMessage, data); err != nil {
				c.logger.Warn().Err(err).Msg("WebSocket write error")
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(ws.PingMessage, nil, time.Now().Add(c.writeWait)); err != nil {
				c.logger.Debug().Err(err).Msg("WebSocket ping failed")
				_ = c.Close()
				return
			}
		}
	}
}

// ReadLoop reads envelopes and hands them to handle until the connection
// fails or is closed. Malformed frames are logged and skipped. It returns the
// error that ended the loop; a normal close returns nil.
func (c *Conn) ReadLoop(handle func(streaming.Envelope)) error {
	defer c.out.Close()

	c.conn.SetReadLimit(c.readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			byUs := c.closedByUs()
			_ = c.Close()
			if byUs || ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", err)
		}

		var env streaming.Envelope
		if err := json.Unmarshal(message, &env); err != nil {
			c.logger.Debug().Err(err).Str("raw", string(message)).Msg("Malformed message received")
			continue
		}
		handle(env)
	}
}

func (c *Conn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Conn) closedByUs() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// Close sends a close frame and shuts the connection down. It is safe to
// call from any goroutine, more than once.
func (c *Conn) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	_ = c.conn.WriteControl(
		ws.CloseMessage,
		ws.FormatCloseMessage(ws.CloseNormalClosure, ""),
		time.Now().Add(c.writeWait),
	)
	return c.conn.Close()
}
