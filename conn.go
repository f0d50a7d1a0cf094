package httpclient

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net"
	"runtime"
	"sync"
	"time"
)

// Connection is the uniform byte-stream abstraction every other
// component (line reader, body writer, body reader, pool) is built
// on: read, pushback, write, and idempotent close. Read returns an
// empty slice with a nil error on EOF; it never concatenates more
// than one underlying transport read into a single call.
type Connection interface {
	Read() ([]byte, error)
	Unread(p []byte)
	Write(p []byte) error
	Close() error

	// SetDeadline forwards to the underlying net.Conn for the
	// duration of a single phase (dial, header read, ...). A zero
	// time.Time clears the deadline.
	SetDeadline(t time.Time) error

	// Raw exposes the underlying net.Conn for TLS upgrade (the
	// CONNECT tunnel case) and tests. Callers must not Read/Write it
	// directly once a Connection wraps it.
	Raw() net.Conn
}

// netConnection is the concrete Connection over a net.Conn (plain TCP
// or TLS). The pushback buffer lives here, not in the transport.
type netConnection struct {
	mu     sync.Mutex
	c      net.Conn
	pushed [][]byte // LIFO: last Unread is the next Read
	closed bool

	readBuf []byte
}

func newConnection(c net.Conn) *netConnection {
	nc := &netConnection{c: c, readBuf: make([]byte, 32*1024)}
	// A finalizer stands in for a weak self-reference: if every
	// strong handle to this Connection is dropped without an
	// explicit Close, the socket is still reclaimed deterministically
	// when the runtime collects nc.
	runtime.SetFinalizer(nc, (*netConnection).finalize)
	return nc
}

func (c *netConnection) finalize() {
	_ = c.Close()
}

func (c *netConnection) Read() ([]byte, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	if n := len(c.pushed); n > 0 {
		b := c.pushed[n-1]
		c.pushed = c.pushed[:n-1]
		c.mu.Unlock()
		return b, nil
	}
	conn := c.c
	buf := c.readBuf
	c.mu.Unlock()

	n, err := conn.Read(buf)
	if n > 0 {
		out := make([]byte, n)
		copy(out, buf[:n])
		if err != nil && isEOF(err) {
			return out, nil
		}
		return out, err
	}
	if isEOF(err) {
		return nil, nil
	}
	return nil, err
}

func (c *netConnection) Unread(p []byte) {
	if len(p) == 0 {
		return
	}
	cp := make([]byte, len(p))
	copy(cp, p)
	c.mu.Lock()
	if !c.closed {
		c.pushed = append(c.pushed, cp)
	}
	c.mu.Unlock()
}

func (c *netConnection) Write(p []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	conn := c.c
	c.mu.Unlock()
	_, err := conn.Write(p)
	return err
}

func (c *netConnection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.c
	c.pushed = nil
	c.mu.Unlock()
	runtime.SetFinalizer(c, nil)
	return conn.Close()
}

func (c *netConnection) SetDeadline(t time.Time) error {
	c.mu.Lock()
	closed := c.closed
	conn := c.c
	c.mu.Unlock()
	if closed {
		return ErrConnectionClosed
	}
	return conn.SetDeadline(t)
}

func (c *netConnection) Raw() net.Conn { return c.c }

func isEOF(err error) bool {
	return err != nil && (err == io.EOF || errors.Is(err, io.EOF))
}

// upgradeToTLS wraps an established Connection's raw net.Conn with
// TLS and returns a fresh Connection. Used after a successful CONNECT
// tunnel handshake. Any buffered pushback on the pre-TLS connection
// must be empty (the CONNECT response is fully consumed before this
// is called).
func upgradeToTLS(ctx context.Context, raw net.Conn, cfg *tls.Config) (Connection, error) {
	tlsConn := tls.Client(raw, cfg)
	if dl, ok := ctx.Deadline(); ok {
		_ = tlsConn.SetDeadline(dl)
	}
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	_ = tlsConn.SetDeadline(time.Time{})
	return newConnection(tlsConn), nil
}
