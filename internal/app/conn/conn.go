/*
Package conn owns the websocket link to the realtime collaborator.

It manages the connection lifecycle: dialing, the read and write pumps with
ping/pong liveness, and automatic reconnection with exponential backoff. Decoded
frames and status transitions are delivered on channels; the package never
interprets frame semantics beyond decoding.
*/
package conn

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"forumchat/internal/app/wire"
	"forumchat/internal/pkg/errs"
	"forumchat/internal/pkg/logx"
)

const (
	// Time allowed to write a message to the collaborator.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the collaborator.
	pongWait = 60 * time.Second

	// Send pings to the collaborator with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size in bytes.
	maxMessageSize = 8192

	// Buffered capacity of the outbound and inbound channels.
	channelBuffer = 64
)

// Status is the externally visible connection state.
type Status int

const (
	// StatusDisconnected means no link exists and none is being attempted.
	StatusDisconnected Status = iota

	// StatusConnecting means a dial or a scheduled reconnect is in flight.
	StatusConnecting

	// StatusConnected means the link is up and frames flow.
	StatusConnected

	// StatusError means the open handshake failed. For retry purposes it is
	// treated identically to an abnormal close.
	StatusError
)

// String implements fmt.Stringer for log and UI output.
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Options carries the dial target and the reconnection policy.
type Options struct {
	// WSURL is the websocket endpoint, e.g. ws://host:port/ws.
	WSURL string

	// ReconnectBase is the first retry delay. Each subsequent retry doubles it.
	ReconnectBase time.Duration

	// ReconnectMax caps the retry delay.
	ReconnectMax time.Duration

	// ReconnectMaxAttempts bounds consecutive failed attempts before giving up.
	ReconnectMaxAttempts int
}

// Manager maintains one websocket link and its reconnection state machine.
// All inbound frames are decoded and delivered on Frames; every status
// transition is delivered on StatusChanges.
type Manager struct {
	opts   Options
	dialer *websocket.Dialer

	mu     sync.Mutex
	conn   *websocket.Conn
	status Status

	// userID of the current Connect call; retries reuse it.
	userID int

	// nickname announced in the join frame after each successful dial.
	nickname string

	// attempts counts consecutive failed dials since the last success.
	attempts int

	// delay is the next retry delay.
	delay time.Duration

	// manual is set by Disconnect so a read-pump exit does not trigger a retry.
	manual bool

	// retryTimer is the pending reconnect, if any.
	retryTimer *time.Timer

	// generation invalidates pumps and retries from a superseded link.
	generation int

	outbound chan []byte
	frames   chan wire.Frame
	statuses chan Status

	logger zerolog.Logger
}

// NewManager constructs a Manager with the given policy. The manager starts
// disconnected; call Connect to bring the link up.
func NewManager(opts Options) *Manager {
	return &Manager{
		opts:     opts,
		dialer:   &websocket.Dialer{HandshakeTimeout: writeWait},
		status:   StatusDisconnected,
		delay:    opts.ReconnectBase,
		outbound: make(chan []byte, channelBuffer),
		frames:   make(chan wire.Frame, channelBuffer),
		statuses: make(chan Status, channelBuffer),
		logger:   logx.Logger().With().Str("component", "ConnectionManager").Logger(),
	}
}

// Frames returns the channel of decoded inbound frames.
func (m *Manager) Frames() <-chan wire.Frame {
	return m.frames
}

// StatusChanges returns the channel of status transitions.
func (m *Manager) StatusChanges() <-chan Status {
	return m.statuses
}

// Status returns the current connection status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Connect brings the link up for the given identity. A Connect while already
// connecting or connected is a no-op. Connect resets the backoff state, so an
// explicit call after exhaustion starts a fresh cycle.
func (m *Manager) Connect(userID int, nickname string) {
	m.mu.Lock()
	if m.status == StatusConnecting || m.status == StatusConnected {
		m.mu.Unlock()
		m.logger.Debug().Str("status", m.status.String()).Msg("Connect ignored; link already active")
		return
	}

	m.userID = userID
	m.nickname = nickname
	m.manual = false
	m.attempts = 0
	m.delay = m.opts.ReconnectBase
	// Invalidate any scheduled retry; this call owns the next dial.
	m.generation++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	m.setStatusLocked(StatusConnecting)
	gen := m.generation
	m.mu.Unlock()

	go m.dial(gen)
}

// Disconnect tears the link down deliberately: it announces departure, closes
// with a normal status code, and cancels any pending retry.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	m.manual = true
	m.generation++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	conn := m.conn
	m.conn = nil
	if m.status != StatusDisconnected {
		m.setStatusLocked(StatusDisconnected)
	}
	m.mu.Unlock()

	if conn == nil {
		return
	}

	if payload, err := wire.EncodeLeave(); err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			m.logger.Debug().Err(err).Msg("Failed to announce departure")
		}
	}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	m.logger.Info().Msg("Disconnected")
}

// Send enqueues an encoded frame for delivery. While the link is down the frame
// is dropped with a warning; realtime frames are hints, durability lives with
// the persistence collaborator.
func (m *Manager) Send(payload []byte) *errs.CustomError {
	m.mu.Lock()
	connected := m.status == StatusConnected
	m.mu.Unlock()

	if !connected {
		m.logger.Warn().Msg("Dropping outbound frame; link is down")
		return errs.NewError(errs.ErrNotConnected)
	}

	select {
	case m.outbound <- payload:
		return nil
	default:
		m.logger.Warn().Msg("Outbound channel full; dropping frame")
		return errs.NewError(errs.ErrNotConnected)
	}
}

// dial performs one connection attempt for the given generation.
func (m *Manager) dial(gen int) {
	target := fmt.Sprintf("%s?user_id=%d", m.opts.WSURL, m.userID)
	conn, _, err := m.dialer.Dial(target, nil)

	m.mu.Lock()
	if gen != m.generation || m.manual {
		m.mu.Unlock()
		if conn != nil {
			conn.Close()
		}
		return
	}

	if err != nil {
		m.logger.Warn().Err(err).Int("attempt", m.attempts+1).Msg("Dial failed")
		m.setStatusLocked(StatusError)
		m.scheduleRetryLocked()
		m.mu.Unlock()
		return
	}

	m.conn = conn
	m.attempts = 0
	m.delay = m.opts.ReconnectBase
	m.setStatusLocked(StatusConnected)
	m.mu.Unlock()

	m.logger.Info().Int("user_id", m.userID).Msg("Connected")

	// Announce presence before anything else flows on the link.
	if payload, jerr := wire.EncodeJoin(m.nickname); jerr == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if werr := conn.WriteMessage(websocket.TextMessage, payload); werr != nil {
			m.logger.Warn().Err(werr).Msg("Failed to announce arrival")
		}
	}

	go m.readPump(conn, gen)
	go m.writePump(conn, gen)
}

// readPump reads frames until the link fails, then hands control to the
// reconnect machinery. One readPump runs per link.
func (m *Manager) readPump(conn *websocket.Conn, gen int) {
	defer m.linkLost(conn, gen)

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		m.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				m.logger.Warn().Err(err).Msg("Link closed unexpectedly")
			}
			return
		}

		frame, derr := wire.Decode(payload)
		if derr != nil {
			m.logger.Warn().Err(derr).Msg("Discarding malformed frame")
			continue
		}
		m.frames <- *frame
	}
}

// writePump drains the outbound channel and keeps the link alive with pings.
// One writePump runs per link; it exits when its generation is superseded.
func (m *Manager) writePump(conn *websocket.Conn, gen int) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case payload := <-m.outbound:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				m.logger.Warn().Err(err).Msg("Write failed")
				return
			}
		case <-ticker.C:
			if m.superseded(gen) {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (m *Manager) superseded(gen int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen != m.generation
}

// linkLost handles an abnormal link teardown: it closes the socket and, unless
// the loss was deliberate, schedules a reconnect.
func (m *Manager) linkLost(conn *websocket.Conn, gen int) {
	conn.Close()

	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation || m.manual {
		return
	}
	m.generation++
	m.conn = nil
	m.setStatusLocked(StatusDisconnected)
	m.scheduleRetryLocked()
}

// scheduleRetryLocked arms the next reconnect attempt, doubling the delay up to
// the cap. Past the attempt ceiling the manager stays disconnected until the
// next explicit Connect. Caller holds m.mu.
func (m *Manager) scheduleRetryLocked() {
	m.attempts++
	if m.attempts > m.opts.ReconnectMaxAttempts {
		m.logger.Error().Int("attempts", m.attempts-1).Msg("Reconnect attempts exhausted")
		m.setStatusLocked(StatusDisconnected)
		return
	}

	delay := m.delay
	m.delay *= 2
	if m.delay > m.opts.ReconnectMax {
		m.delay = m.opts.ReconnectMax
	}

	gen := m.generation
	m.logger.Info().Dur("delay", delay).Int("attempt", m.attempts).Msg("Reconnecting")
	m.retryTimer = time.AfterFunc(delay, func() {
		m.mu.Lock()
		if gen != m.generation || m.manual {
			m.mu.Unlock()
			return
		}
		m.setStatusLocked(StatusConnecting)
		m.mu.Unlock()
		m.dial(gen)
	})
}

// setStatusLocked records and publishes a status transition. Caller holds m.mu.
func (m *Manager) setStatusLocked(status Status) {
	if m.status == status {
		return
	}
	m.status = status
	select {
	case m.statuses <- status:
	default:
		m.logger.Debug().Str("status", status.String()).Msg("Status channel full; transition dropped")
	}
}
