package httpclient

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// startRawServer accepts exactly one connection and hands the raw
// net.Conn to handle, standing up a real listener instead of mocking
// the transport.
func startRawServer(t *testing.T, handle func(net.Conn)) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		handle(c)
	}()
	return ln.Addr().String(), func() { _ = ln.Close() }
}

func hostPortOf(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	var port int
	for _, c := range portStr {
		port = port*10 + int(c-'0')
	}
	return host, port
}

func TestManagerPerform_ChunkedGet(t *testing.T) {
	addr, stop := startRawServer(t, func(c net.Conn) {
		defer c.Close()
		br := bufio.NewReader(c)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nTransfer-Encoding: chunked\r\n\r\n5\r\nhello\r\n0\r\n\r\n"))
	})
	defer stop()

	host, port := hostPortOf(t, addr)
	mgr := NewManager(DefaultManagerSettings(), nil, nil)
	defer mgr.Close()

	req := NewRequest("GET", host, port, "/")
	resp, err := mgr.Perform(context.Background(), req)
	require.NoError(t, err)
	defer resp.Close()

	require.Equal(t, 200, resp.StatusCode)
	body, err := ReadAllBody(resp.Body)
	require.NoError(t, err)
	require.Equal(t, "hello", string(body))
}

func TestManagerPerform_ContentLengthTruncated(t *testing.T) {
	addr, stop := startRawServer(t, func(c net.Conn) {
		defer c.Close()
		br := bufio.NewReader(c)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 10\r\n\r\nhi"))
	})
	defer stop()

	host, port := hostPortOf(t, addr)
	mgr := NewManager(DefaultManagerSettings(), nil, nil)
	defer mgr.Close()

	req := NewRequest("GET", host, port, "/")
	resp, err := mgr.Perform(context.Background(), req)
	require.NoError(t, err)
	defer resp.Close()

	_, err = ReadAllBody(resp.Body)
	var kind *ResponseBodyTooShortKind
	require.ErrorAs(t, err, &kind)
}

func TestManagerPerform_PoolReuse(t *testing.T) {
	addr, stop := startRawServer(t, func(c net.Conn) {
		// Deliberately does not close c: a healthy keep-alive server
		// leaves the connection open for reuse.
		br := bufio.NewReader(c)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nContent-Length: 2\r\n\r\nok"))
	})
	defer stop()

	host, port := hostPortOf(t, addr)
	mgr := NewManager(DefaultManagerSettings(), nil, nil)
	defer mgr.Close()

	req := NewRequest("GET", host, port, "/")
	resp, err := mgr.Perform(context.Background(), req)
	require.NoError(t, err)
	_, _ = ReadAllBody(resp.Body)
	require.NoError(t, resp.Close())

	require.Equal(t, 1, mgr.Pool.Stats().IdleConnectionCount)
}

func TestManagerPerform_OverlongHeader(t *testing.T) {
	addr, stop := startRawServer(t, func(c net.Conn) {
		defer c.Close()
		br := bufio.NewReader(c)
		for {
			line, err := br.ReadString('\n')
			if err != nil || line == "\r\n" {
				break
			}
		}
		huge := make([]byte, maxHeaderLineBytes+100)
		for i := range huge {
			huge[i] = 'a'
		}
		_, _ = c.Write([]byte("HTTP/1.1 200 OK\r\nX-Big: "))
		_, _ = c.Write(huge)
		_, _ = c.Write([]byte("\r\n\r\n"))
	})
	defer stop()

	host, port := hostPortOf(t, addr)
	mgr := NewManager(DefaultManagerSettings(), nil, nil)
	defer mgr.Close()

	req := NewRequest("GET", host, port, "/")
	_, err := mgr.Perform(context.Background(), req)
	var kind *OverlongHeadersKind
	require.ErrorAs(t, err, &kind)
}

func TestManagerPerform_ConnectionTimeout(t *testing.T) {
	// A host/port nothing listens on should fail to dial within the
	// short timeout instead of hanging the test suite.
	settings := DefaultManagerSettings()
	settings.ConnectionTimeout = 200 * time.Millisecond
	mgr := NewManager(settings, nil, nil)
	defer mgr.Close()

	req := NewRequest("GET", "203.0.113.1", 81, "/")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := mgr.Perform(ctx, req)
	require.Error(t, err)
}
