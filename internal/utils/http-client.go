package utils

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"syscall"
	"time"
)

// HTTPClientConfig bounds each phase of a request separately. There is no
// whole-request deadline: a throttled body may legitimately take hours.
type HTTPClientConfig struct {
	ConnectTimeout  time.Duration // dial, TLS handshake and response headers
	ReadIdleTimeout time.Duration // a single body read stalling this long fails the fetch
	KATimeout       time.Duration
	ProxyURL        string
	ProxyUsername   string
	ProxyPassword   string
	UserAgent       string
	Headers         map[string]string
	HighThreadMode  bool // advanced socket options for high concurrency
}

const (
	DefaultConnectTimeout  = 30 * time.Second
	DefaultReadIdleTimeout = 60 * time.Second
	DefaultKATimeout       = 90 * time.Second
)

func (c HTTPClientConfig) withDefaults() HTTPClientConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.ReadIdleTimeout <= 0 {
		c.ReadIdleTimeout = DefaultReadIdleTimeout
	}
	if c.KATimeout <= 0 {
		c.KATimeout = DefaultKATimeout
	}
	return c
}

// HTTPClient sends every range request with the tool's identity headers.
type HTTPClient struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
}

func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	cfg = cfg.withDefaults()
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	if cfg.HighThreadMode {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				setSocketOptions(fd)
			})
		}
	}
	idle := cfg.ReadIdleTimeout
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return &idleTimeoutConn{Conn: conn, idle: idle}, nil
		},
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ConnectTimeout,
		IdleConnTimeout:       cfg.KATimeout,
		MaxIdleConnsPerHost:   100,
		DisableCompression:    true,
		Proxy:                 proxyFunc(cfg),
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = ToolUserAgent
	}
	return &HTTPClient{
		client:    &http.Client{Transport: transport},
		userAgent: userAgent,
		headers:   cfg.Headers,
	}
}

// proxyFunc returns nil (direct) when no usable proxy is configured.
func proxyFunc(cfg HTTPClientConfig) func(*http.Request) (*url.URL, error) {
	if cfg.ProxyURL == "" {
		return nil
	}
	proxyURL, err := url.Parse(cfg.ProxyURL)
	if err != nil {
		return nil
	}
	switch {
	case cfg.ProxyUsername != "" && cfg.ProxyPassword != "":
		proxyURL.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
	case cfg.ProxyUsername != "":
		proxyURL.User = url.User(cfg.ProxyUsername)
	}
	return http.ProxyURL(proxyURL)
}

func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	return c.client.Do(req)
}

// idleTimeoutConn arms a read deadline only for the duration of each Read,
// so time a caller spends waiting for rate budget between reads is free.
type idleTimeoutConn struct {
	net.Conn
	idle time.Duration
}

func (c *idleTimeoutConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(c.idle)); err != nil {
		return 0, err
	}
	return c.Conn.Read(p)
}
