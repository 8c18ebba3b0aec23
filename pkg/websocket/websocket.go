package websocketPkg

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

var ErrNotConnected = errors.New("not connected to inference service")

// IWebsocket exchanges one binary frame for one reply over a long-lived
// connection to a remote inference service.
type IWebsocket interface {
	Exchange(ctx context.Context, frame []byte) ([]byte, error)
	IsConnected() bool
	Reconnect() error
	Close()
}

type Option func(*webSocketClient)

func WithTimeouts(read, write time.Duration) Option {
	return func(c *webSocketClient) {
		c.readTimeout = read
		c.writeTimeout = write
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(c *webSocketClient) {
		c.pingInterval = d
	}
}

type webSocketClient struct {
	log  *logrus.Logger
	url  string
	conn *websocket.Conn

	// mu guards conn; exchangeMu keeps one request in flight at a time.
	mu         sync.Mutex
	exchangeMu sync.Mutex

	pingInterval time.Duration
	readTimeout  time.Duration
	writeTimeout time.Duration
}

func NewAIWebSocketClient(log *logrus.Logger, url string, opts ...Option) IWebsocket {
	client := &webSocketClient{
		log:          log,
		url:          url,
		pingInterval: 30 * time.Second,
		readTimeout:  10 * time.Second,
		writeTimeout: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(client)
	}

	go client.connectInBackground()

	return client
}

func (c *webSocketClient) connectInBackground() {
	if err := c.connect(false); err != nil {
		c.log.WithFields(logrus.Fields{
			"url":   c.url,
			"error": err.Error(),
		}).Warn("initial connection to inference service failed, will retry on demand")
		return
	}

	c.log.WithField("url", c.url).Info("connected to inference service")
}

func (c *webSocketClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn != nil
}

func (c *webSocketClient) Reconnect() error {
	return c.connect(true)
}

// connect dials the service. Without force an existing connection is kept.
func (c *webSocketClient) connect(force bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		if !force {
			return nil
		}
		c.conn.Close()
		c.conn = nil
	}

	if c.url == "" {
		return fmt.Errorf("inference service URL not configured")
	}

	c.log.WithField("url", c.url).Debug("connecting to inference service")

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", c.url, err)
	}

	conn.SetPingHandler(func(appData string) error {
		err := conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("error sending pong")
		}
		return nil
	})

	c.conn = conn

	go c.keepAlive(conn)

	return nil
}

func (c *webSocketClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *webSocketClient) keepAlive(conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		if c.conn != conn {
			c.mu.Unlock()
			return
		}

		err := conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(c.writeTimeout))
		if err != nil {
			c.log.WithField("error", err.Error()).Warn("ping failed, marking inference connection as dead")
			c.conn = nil
			conn.Close()
			c.mu.Unlock()
			return
		}

		c.mu.Unlock()
	}
}

func (c *webSocketClient) getConnection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, ErrNotConnected
	}

	return c.conn, nil
}

// drop forgets conn if it is still the current connection.
func (c *webSocketClient) drop(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == conn {
		c.conn = nil
	}
	conn.Close()
}

func (c *webSocketClient) Exchange(ctx context.Context, frame []byte) ([]byte, error) {
	c.exchangeMu.Lock()
	defer c.exchangeMu.Unlock()

	conn, err := c.getConnection()
	if err != nil {
		if err := c.connect(false); err != nil {
			return nil, fmt.Errorf("cannot connect to inference service: %w", err)
		}
		if conn, err = c.getConnection(); err != nil {
			return nil, err
		}
	}

	writeDeadline := time.Now().Add(c.writeTimeout)
	readDeadline := time.Now().Add(c.readTimeout)
	if dl, ok := ctx.Deadline(); ok {
		if dl.Before(writeDeadline) {
			writeDeadline = dl
		}
		if dl.Before(readDeadline) {
			readDeadline = dl
		}
	}

	c.mu.Lock()
	conn.SetWriteDeadline(writeDeadline)
	err = conn.WriteMessage(websocket.BinaryMessage, frame)
	c.mu.Unlock()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error sending frame: %w", err)
	}

	c.log.WithField("size", len(frame)).Debug("frame sent to inference service")

	conn.SetReadDeadline(readDeadline)
	_, message, err := conn.ReadMessage()
	if err != nil {
		c.drop(conn)
		return nil, fmt.Errorf("error reading reply: %w", err)
	}
	conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	conn.SetWriteDeadline(time.Time{})
	c.mu.Unlock()

	return message, nil
}
