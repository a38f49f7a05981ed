package httpclient

import (
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bimakw/wallet-watcher/internal/config"
)

// ErrSessionClosed is returned by Acquire after Close
var ErrSessionClosed = errors.New("http session closed")

// Session owns the process-wide pooled HTTP client used for all outbound
// calls. Callers Acquire it for the duration of a request and release it on
// every exit path; Close waits for outstanding users before dropping idle
// connections.
type Session struct {
	client    *http.Client
	transport *http.Transport

	mu     sync.Mutex
	closed bool
	active sync.WaitGroup
}

// NewSession creates a session with a connection pool sized by cfg
func NewSession(cfg config.HTTPConfig) *Session {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: cfg.Timeout,
		ForceAttemptHTTP2:   true,
	}

	return &Session{
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		transport: transport,
	}
}

// HTTPClient returns the shared client for libraries that need one at
// construction time
func (s *Session) HTTPClient() *http.Client {
	return s.client
}

// Acquire marks the session in use. The returned release func must be called
// exactly once.
func (s *Session) Acquire() (*http.Client, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, func() {}, ErrSessionClosed
	}

	s.active.Add(1)
	var once sync.Once
	return s.client, func() { once.Do(s.active.Done) }, nil
}

// Close rejects new acquisitions, waits for active ones, then closes idle
// connections. Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.active.Wait()
	s.transport.CloseIdleConnections()
}
