package ws

import (
	"fmt"
	"net/http"
	"time"

	"github.com/coregx/parcelhub"
)

const (
	defaultSendBuffer = 256
	defaultReadLimit  = 64 * 1024
	defaultWriteWait  = 10 * time.Second
	defaultPongWait   = 60 * time.Second
)

type config struct {
	logger      parcelhub.Logger
	sendBuffer  int
	readLimit   int64
	writeWait   time.Duration
	pongWait    time.Duration
	pingPeriod  time.Duration
	checkOrigin func(r *http.Request) bool
}

func defaultConfig() config {
	return config{
		logger:     &parcelhub.NoopLogger{},
		sendBuffer: defaultSendBuffer,
		readLimit:  defaultReadLimit,
		writeWait:  defaultWriteWait,
		pongWait:   defaultPongWait,
		pingPeriod: defaultPongWait * 9 / 10,
	}
}

// Option configures a Server.
type Option func(*config) error

// WithLogger sets the logger.
func WithLogger(logger parcelhub.Logger) Option {
	return func(c *config) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		return nil
	}
}

// WithSendBuffer sets how many outbound frames a connection may queue
// before Send reports a full queue. Default: 256.
func WithSendBuffer(n int) Option {
	return func(c *config) error {
		if n < 1 {
			return fmt.Errorf("send buffer must be at least 1, got %d", n)
		}
		c.sendBuffer = n
		return nil
	}
}

// WithReadLimit caps the size of a client frame in bytes. Default: 64 KiB.
func WithReadLimit(n int64) Option {
	return func(c *config) error {
		if n < 1 {
			return fmt.Errorf("read limit must be positive, got %d", n)
		}
		c.readLimit = n
		return nil
	}
}

// WithKeepAlive sets how long the server waits for a pong.
// Pings are sent at nine tenths of that interval. Default: 60s.
func WithKeepAlive(pongWait time.Duration) Option {
	return func(c *config) error {
		if pongWait <= 0 {
			return fmt.Errorf("keep-alive must be positive, got %v", pongWait)
		}
		c.pongWait = pongWait
		c.pingPeriod = pongWait * 9 / 10
		return nil
	}
}

// WithWriteWait sets the deadline for a single frame write. Default: 10s.
func WithWriteWait(d time.Duration) Option {
	return func(c *config) error {
		if d <= 0 {
			return fmt.Errorf("write wait must be positive, got %v", d)
		}
		c.writeWait = d
		return nil
	}
}

// WithCheckOrigin sets the origin policy of the upgrader.
// Without it, gorilla's same-origin check applies.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *config) error {
		c.checkOrigin = fn
		return nil
	}
}
