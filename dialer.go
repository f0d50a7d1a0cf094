package httpclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"
)

// RawDialer dials a plain TCP connection, optionally given a
// pre-resolved address.
type RawDialer func(ctx context.Context, hostAddr, host string, port int) (Connection, error)

// TLSDialer dials a TLS connection directly.
type TLSDialer func(ctx context.Context, hostAddr, host string, port int) (Connection, error)

// DefaultRawDialer dials with net.Dialer, honoring ctx's deadline.
func DefaultRawDialer(timeout time.Duration) RawDialer {
	return func(ctx context.Context, hostAddr, host string, port int) (Connection, error) {
		d := &net.Dialer{Timeout: timeout}
		addr := hostAddr
		if addr == "" {
			addr = net.JoinHostPort(host, fmt.Sprintf("%d", port))
		}
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return newConnection(c), nil
	}
}

// DefaultTLSDialer dials with net.Dialer then upgrades with tls.Conn,
// setting SNI/ALPN the way a direct HTTPS connection needs.
func DefaultTLSDialer(timeout time.Duration, base *tls.Config) TLSDialer {
	return func(ctx context.Context, hostAddr, host string, port int) (Connection, error) {
		d := &net.Dialer{Timeout: timeout}
		addr := hostAddr
		if addr == "" {
			addr = net.JoinHostPort(host, fmt.Sprintf("%d", port))
		}
		c, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		cfg := cloneOrNewTLSConfig(base, host)
		return upgradeToTLS(ctx, c, cfg)
	}
}

func cloneOrNewTLSConfig(base *tls.Config, sni string) *tls.Config {
	var cfg *tls.Config
	if base != nil {
		cfg = base.Clone()
	} else {
		cfg = &tls.Config{}
	}
	if cfg.ServerName == "" {
		cfg.ServerName = sni
	}
	if len(cfg.NextProtos) == 0 {
		cfg.NextProtos = []string{"http/1.1"}
	}
	return cfg
}
