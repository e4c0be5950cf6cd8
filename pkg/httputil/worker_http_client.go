// Package httputil provides HTTP client utilities for the mailbox backends.
package httputil

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// =============================================================================
// HTTP Client Configuration
// =============================================================================

// ClientConfig holds HTTP client configuration.
type ClientConfig struct {
	// Connection settings
	MaxIdleConns        int           // 최대 유휴 연결 수
	MaxIdleConnsPerHost int           // 호스트당 최대 유휴 연결
	MaxConnsPerHost     int           // 호스트당 최대 연결
	IdleConnTimeout     time.Duration // 유휴 연결 타임아웃

	// Timeout settings
	DialTimeout         time.Duration // 연결 타임아웃
	TLSHandshakeTimeout time.Duration // TLS 핸드셰이크 타임아웃
	ResponseTimeout     time.Duration // 응답 타임아웃

	// Keep-alive settings
	DisableKeepAlives bool
	KeepAliveInterval time.Duration

	// TLS
	InsecureSkipVerify bool // verify_ssl: false
}

// DefaultClientConfig returns default configuration.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		MaxConnsPerHost:     100,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ResponseTimeout:     30 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// ExchangeClientConfig returns configuration for on-premises EWS servers.
// NTLM authenticates the connection, so keep-alives stay on and HTTP/2 off.
func ExchangeClientConfig(verifySSL bool) *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.MaxIdleConns = 20
	cfg.MaxIdleConnsPerHost = 10
	cfg.MaxConnsPerHost = 20
	cfg.ResponseTimeout = 60 * time.Second // FindItem on large calendars
	cfg.InsecureSkipVerify = !verifySSL
	return cfg
}

// GraphClientConfig returns configuration for Microsoft Graph API.
// Graph has stricter rate limits, so we use fewer connections.
func GraphClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.MaxIdleConns = 50
	cfg.MaxConnsPerHost = 50
	cfg.ResponseTimeout = 45 * time.Second
	return cfg
}

// NewTransport creates a pooled transport from cfg.
func NewTransport(cfg *ClientConfig) *http.Transport {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}

	dialer := &net.Dialer{
		Timeout:   cfg.DialTimeout,
		KeepAlive: cfg.KeepAliveInterval,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
	}
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // user opted out with verify_ssl
	}
	return transport
}

// NewClient creates an HTTP client over rt, or over a new transport from cfg
// when rt is nil.
func NewClient(cfg *ClientConfig, rt http.RoundTripper) *http.Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	if rt == nil {
		rt = NewTransport(cfg)
	}
	return &http.Client{
		Transport: rt,
		Timeout:   cfg.ResponseTimeout,
	}
}

// DoWithContext executes HTTP request with context.
func DoWithContext(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req.WithContext(ctx))
}
