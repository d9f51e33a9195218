package pushchannel

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"traffic-observer/src/interfaces"
	"traffic-observer/src/logger"
	"traffic-observer/src/models"
	"traffic-observer/src/registry"

	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Channel owns the single duplex connection to the backend's realtime
// endpoint. Inbound frames are decoded into {type, data} envelopes and handed
// to the registry synchronously, in arrival order. Unexpected closures trigger
// a bounded linear-backoff reconnect; an explicit Disconnect never does.
// -----------------------------------------------------------------------------

// Conn is the subset of the websocket connection the channel uses.
// Narrowed to an interface so tests can substitute a fake transport.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a connection to the given URL.
type Dialer func(url string) (Conn, error)

// -----------------------------------------------------------------------------

func gorillaDialer(url string) (Conn, error) {
	c, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// -----------------------------------------------------------------------------

type Channel struct {
	Config   *models.MConfig
	Logger   *logger.Logger
	Registry *registry.Registry

	// Reconnect policy, derived from config. Exposed so tests can shorten.
	BaseDelay   time.Duration
	MaxAttempts int

	dial Dialer

	mu        sync.Mutex
	state     interfaces.ChannelState
	conn      Conn
	attempts  int
	token     string
	reconnect *time.Timer
}

// -----------------------------------------------------------------------------

func NewChannel(cfg *models.MConfig, log *logger.Logger, reg *registry.Registry) *Channel {
	return NewChannelWithDialer(cfg, log, reg, gorillaDialer)
}

// -----------------------------------------------------------------------------

// NewChannelWithDialer builds a channel with a custom transport dialer.
func NewChannelWithDialer(cfg *models.MConfig, log *logger.Logger, reg *registry.Registry, dial Dialer) *Channel {
	return &Channel{
		Config:      cfg,
		Logger:      log,
		Registry:    reg,
		BaseDelay:   time.Duration(cfg.Push.BaseDelaySeconds) * time.Second,
		MaxAttempts: cfg.Push.MaxReconnectAttempts,
		dial:        dial,
		state:       interfaces.ChannelDisconnected,
	}
}

// -----------------------------------------------------------------------------

// Connect opens the channel with the session token. Calling it while already
// Connecting or Open is a no-op. A successful connect resets the reconnect
// attempt counter to zero.
func (c *Channel) Connect(sessionToken string) error {
	c.mu.Lock()
	if c.state == interfaces.ChannelConnecting || c.state == interfaces.ChannelOpen {
		c.mu.Unlock()
		return nil
	}
	c.state = interfaces.ChannelConnecting
	c.token = sessionToken
	c.mu.Unlock()

	url := fmt.Sprintf("%s?token=%s", c.Config.Backend.WsURL, sessionToken)
	conn, err := c.dial(url)

	c.mu.Lock()
	defer c.mu.Unlock()

	// Disconnect raced the dial: drop the connection and stay Closed.
	if c.state == interfaces.ChannelClosed {
		if conn != nil {
			conn.Close()
		}
		return nil
	}

	if err != nil {
		c.Logger.Warning("Dial failed: %v", err)
		c.state = interfaces.ChannelDisconnected
		c.scheduleReconnectLocked()
		return err
	}

	c.conn = conn
	c.state = interfaces.ChannelOpen
	c.attempts = 0
	c.Logger.Info("Push channel connected")

	go c.readLoop(conn)
	return nil
}

// -----------------------------------------------------------------------------

// Disconnect closes the channel deterministically and cancels any pending
// reconnect timer. The channel will not reconnect until Connect is called.
func (c *Channel) Disconnect() {
	c.mu.Lock()
	c.state = interfaces.ChannelClosed
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	c.Logger.Info("Push channel closed")
}

// -----------------------------------------------------------------------------

func (c *Channel) State() interfaces.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// -----------------------------------------------------------------------------

// Attempts returns the current reconnect attempt counter.
func (c *Channel) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// -----------------------------------------------------------------------------

// ReconnectDelay returns the backoff delay used before the given attempt.
// Linear in the attempt number: baseDelay * attempt.
func (c *Channel) ReconnectDelay(attempt int) time.Duration {
	return c.BaseDelay * time.Duration(attempt)
}

// -----------------------------------------------------------------------------

// readLoop drains the connection until it errors, then decides whether the
// closure was explicit (Closed) or unexpected (schedule a reconnect).
func (c *Channel) readLoop(conn Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			break
		}
		c.handleFrame(message)
	}
	conn.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == interfaces.ChannelClosed {
		return
	}

	c.Logger.Warning("Push channel lost; scheduling reconnect")
	c.state = interfaces.ChannelDisconnected
	c.conn = nil
	c.scheduleReconnectLocked()
}

// -----------------------------------------------------------------------------

// handleFrame decodes one inbound frame. Malformed envelopes are logged and
// dropped; they never take down the channel or other subscribers.
func (c *Channel) handleFrame(message []byte) {
	var env models.MEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		c.Logger.Warning("Dropping malformed frame: %v", err)
		return
	}
	if env.Type == "" {
		c.Logger.Warning("Dropping frame with empty type")
		return
	}
	c.Registry.Dispatch(env.Type, env.Data)
}

// -----------------------------------------------------------------------------

// scheduleReconnectLocked arms the reconnect timer. Caller holds c.mu.
// Exceeding MaxAttempts leaves the channel Closed; only an explicit Connect
// (e.g. the next authenticated page load) resumes it.
func (c *Channel) scheduleReconnectLocked() {
	c.attempts++
	if c.attempts > c.MaxAttempts {
		c.Logger.Error("Reconnect attempts exhausted (%d); channel closed", c.MaxAttempts)
		c.state = interfaces.ChannelClosed
		return
	}

	delay := c.ReconnectDelay(c.attempts)
	token := c.token
	c.Logger.Info("Reconnect attempt %d/%d in %v", c.attempts, c.MaxAttempts, delay)
	c.reconnect = time.AfterFunc(delay, func() {
		c.Connect(token)
	})
}
