// Package transport provides the TLS websocket client used to talk to the
// interactive service.
package transport

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/streamspace-dev/interactive-go/internal/errs"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512 KB

	// Handshake timeout for the initial dial
	handshakeTimeout = 10 * time.Second
)

// Handlers receive socket events. Callbacks run on the socket's internal
// goroutines; receivers must marshal back onto their own tick.
type Handlers struct {
	OnOpen    func()
	OnMessage func(text string)
	OnError   func(msg string)
	OnClose   func(code int, reason string)
}

// Socket is a text-frame websocket client. Open dials asynchronously and
// reports the outcome through the handlers.
type Socket interface {
	Open(url string, headers http.Header) error
	Send(text string) error
	Close() error
}

// WebSocket is the gorilla/websocket-backed Socket implementation.
//
// Writes funnel through a single writer goroutine (writeChan) so pings and
// frames never interleave on the wire.
type WebSocket struct {
	handlers Handlers
	log      zerolog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	writeChan chan []byte
	stopChan  chan struct{}
	opening   bool
	open      bool
	closing   bool
}

// NewWebSocket creates a websocket client that reports through handlers.
func NewWebSocket(handlers Handlers, log zerolog.Logger) *WebSocket {
	return &WebSocket{handlers: handlers, log: log}
}

// Open dials the service. It returns immediately; the dial runs on a
// background goroutine and fires OnOpen or OnError.
func (s *WebSocket) Open(url string, headers http.Header) error {
	s.mu.Lock()
	if s.open || s.opening {
		s.mu.Unlock()
		return errs.ErrAlreadyOpen
	}
	s.opening = true
	s.closing = false
	s.mu.Unlock()

	go s.dial(url, headers)
	return nil
}

func (s *WebSocket) dial(url string, headers http.Header) {
	dialer := websocket.Dialer{
		HandshakeTimeout: handshakeTimeout,
	}

	s.log.Debug().Str("url", url).Msg("Dialing websocket")
	conn, resp, err := dialer.Dial(url, headers)
	if err != nil {
		s.mu.Lock()
		s.opening = false
		s.mu.Unlock()

		msg := "websocket dial failed: " + err.Error()
		if resp != nil {
			s.log.Warn().Int("status", resp.StatusCode).Err(err).Msg("Websocket dial rejected")
		} else {
			s.log.Warn().Err(err).Msg("Websocket dial failed")
		}
		if s.handlers.OnError != nil {
			s.handlers.OnError(msg)
		}
		return
	}

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	s.mu.Lock()
	s.conn = conn
	s.writeChan = make(chan []byte, 256)
	s.stopChan = make(chan struct{})
	s.opening = false
	s.open = true
	writeChan, stopChan := s.writeChan, s.stopChan
	s.mu.Unlock()

	go s.writePump(conn, writeChan, stopChan)
	go s.readPump(conn)

	s.log.Info().Msg("Websocket connected")
	if s.handlers.OnOpen != nil {
		s.handlers.OnOpen()
	}
}

// Send queues a text frame for transmission.
func (s *WebSocket) Send(text string) error {
	s.mu.Lock()
	open, writeChan := s.open, s.writeChan
	s.mu.Unlock()

	if !open {
		return errs.ErrSocketNotOpen
	}

	select {
	case writeChan <- []byte(text):
		return nil
	case <-time.After(writeWait):
		return errors.New("timeout queueing websocket write")
	}
}

// Close shuts the socket down. Local closes do not fire OnClose.
func (s *WebSocket) Close() error {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	conn, stopChan := s.conn, s.stopChan
	s.open = false
	s.conn = nil
	s.mu.Unlock()

	close(stopChan)

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "client closing"))
	return conn.Close()
}

// writePump is the single writer goroutine for the connection.
func (s *WebSocket) writePump(conn *websocket.Conn, writeChan chan []byte, stopChan chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message := <-writeChan:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.log.Warn().Err(err).Msg("Websocket write error")
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.log.Debug().Err(err).Msg("Websocket ping error")
			}

		case <-stopChan:
			return
		}
	}
}

// readPump reads frames until the connection drops. Binary frames are
// discarded; close codes are surfaced verbatim.
func (s *WebSocket) readPump(conn *websocket.Conn) {
	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			s.handleReadError(err)
			return
		}

		if messageType != websocket.TextMessage {
			s.log.Debug().Int("messageType", messageType).Msg("Discarding non-text frame")
			continue
		}

		if s.handlers.OnMessage != nil {
			s.handlers.OnMessage(string(data))
		}
	}
}

func (s *WebSocket) handleReadError(err error) {
	s.mu.Lock()
	closing := s.closing
	wasOpen := s.open
	if s.open {
		s.open = false
		close(s.stopChan)
		s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()

	if closing || !wasOpen {
		// Local close already in progress; nothing to report.
		return
	}

	code := websocket.CloseAbnormalClosure
	reason := err.Error()
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		code = closeErr.Code
		reason = closeErr.Text
	}

	s.log.Warn().Int("code", code).Str("reason", reason).Msg("Websocket closed")
	if s.handlers.OnClose != nil {
		s.handlers.OnClose(code, reason)
	}
}
