package gateway

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// CloseAbnormal is reported when a socket ends without a close frame.
const CloseAbnormal = websocket.CloseAbnormalClosure

// Socket is one duplex, message-framed text connection.
type Socket interface {
	// Read blocks until the next frame arrives or the socket ends.
	Read() ([]byte, error)

	// Send writes one text frame.
	Send(data []byte) error

	// Close sends a close frame with the given code and releases the socket.
	Close(code int, reason string) error
}

// Dialer opens gateway sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

// CloseCode extracts the close code from a socket read error.
func CloseCode(err error) int {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CloseAbnormal
}

// wsDialer dials gorilla WebSocket connections.
type wsDialer struct {
	dialer       websocket.Dialer
	writeTimeout time.Duration
}

// NewDialer returns a Dialer backed by gorilla/websocket.
func NewDialer(handshakeTimeout, writeTimeout time.Duration) Dialer {
	return &wsDialer{
		dialer: websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		writeTimeout: writeTimeout,
	}
}

func (d *wsDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &wsSocket{conn: conn, writeTimeout: d.writeTimeout}, nil
}

// wsSocket adapts *websocket.Conn to Socket.
type wsSocket struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	// Write serialization
	writeMu sync.Mutex

	closeOnce sync.Once
	closeErr  error
}

func (s *wsSocket) Read() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	return data, err
}

func (s *wsSocket) Send(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSocket) Close(code int, reason string) error {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(code, reason),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		s.closeErr = s.conn.Close()
	})
	return s.closeErr
}
