package httpclient

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnectionPushback(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := newConnection(client)
	defer conn.Close()

	go func() {
		_, _ = server.Write([]byte("hello"))
	}()

	chunk, err := conn.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), chunk)

	conn.Unread([]byte("world"))
	conn.Unread([]byte("!"))

	// LIFO: last Unread is the next Read.
	next, err := conn.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("!"), next)

	next, err = conn.Read()
	require.NoError(t, err)
	require.Equal(t, []byte("world"), next)
}

func TestConnectionCloseIdempotent(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	conn := newConnection(client)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	_, err := conn.Read()
	require.ErrorIs(t, err, ErrConnectionClosed)

	err = conn.Write([]byte("x"))
	require.ErrorIs(t, err, ErrConnectionClosed)
}

func TestConnectionEOFIsNilError(t *testing.T) {
	server, client := net.Pipe()
	conn := newConnection(client)
	defer conn.Close()

	server.Close()

	chunk, err := conn.Read()
	require.NoError(t, err)
	require.Empty(t, chunk)
}
