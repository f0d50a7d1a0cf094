package httpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadStatusLine(t *testing.T) {
	conn := newBufConnection([]byte("HTTP/1.1 404 Not Found\r\n"))
	sl, err := readStatusLine(conn)
	require.NoError(t, err)
	require.Equal(t, 404, sl.StatusCode)
	require.Equal(t, "Not Found", sl.Reason)
	require.Equal(t, "HTTP/1.1", sl.Proto)
}

func TestReadStatusLineInvalid(t *testing.T) {
	conn := newBufConnection([]byte("garbage\r\n"))
	_, err := readStatusLine(conn)
	var kind *InvalidStatusLineKind
	require.ErrorAs(t, err, &kind)
}

func TestReadStatusLineNoDataReceived(t *testing.T) {
	conn := newBufConnection()
	_, err := readStatusLine(conn)
	var kind *NoResponseDataReceivedKind
	require.ErrorAs(t, err, &kind)
}

func TestReadHeadersIncompleteOnEOF(t *testing.T) {
	conn := newBufConnection([]byte("Content-Type: text/plain\r\n"))
	_, err := readHeaders(conn)
	var kind *IncompleteHeadersKind
	require.ErrorAs(t, err, &kind)
}

func TestReadHeaders(t *testing.T) {
	conn := newBufConnection([]byte("Content-Type: text/plain\r\nX-Foo: a\r\nX-Foo: b\r\n\r\n"))
	h, err := readHeaders(conn)
	require.NoError(t, err)
	require.Equal(t, "text/plain", h.Get("Content-Type"))
	require.Equal(t, []string{"a", "b"}, h.Values("X-Foo"))
}

func TestReadHeadersInvalid(t *testing.T) {
	conn := newBufConnection([]byte("not-a-header-line\r\n\r\n"))
	_, err := readHeaders(conn)
	var kind *InvalidHeaderKind
	require.ErrorAs(t, err, &kind)
}
