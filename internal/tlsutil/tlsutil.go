package tlsutil

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"
)

// aeadSuites TLS 1.2 下允许的密码套件；TLS 1.3 的套件由标准库固定
var aeadSuites = []uint16{
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305,
	tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305,
}

// DefaultTLSConfig 返回加固后的 TLS 配置
func DefaultTLSConfig() *tls.Config {
	suites := make([]uint16, len(aeadSuites))
	copy(suites, aeadSuites)
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: suites,
	}
}

// TransportOption 调整 SecureTransport 的连接参数
type TransportOption func(*http.Transport)

// WithMaxIdleConnsPerHost 单主机最大空闲连接，检索类后端通常只有一个主机
func WithMaxIdleConnsPerHost(n int) TransportOption {
	return func(t *http.Transport) {
		if n > 0 {
			t.MaxIdleConnsPerHost = n
		}
	}
}

// WithDialTimeout 建连超时
func WithDialTimeout(d time.Duration) TransportOption {
	return func(t *http.Transport) {
		t.DialContext = (&net.Dialer{Timeout: d, KeepAlive: 30 * time.Second}).DialContext
	}
}

// SecureTransport 返回带 TLS 加固的 http.Transport
func SecureTransport(opts ...TransportOption) *http.Transport {
	t := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: DefaultTLSConfig(),
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// SecureHTTPClient 返回带 TLS 加固的 http.Client，timeout 为整次请求超时
func SecureHTTPClient(timeout time.Duration, opts ...TransportOption) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: SecureTransport(opts...),
	}
}
