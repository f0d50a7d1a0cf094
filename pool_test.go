package httpclient

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id     int
	closed bool
}

func newFakeConnection(id int) *fakeConn { return &fakeConn{id: id} }

func (c *fakeConn) Read() ([]byte, error)     { return nil, nil }
func (c *fakeConn) Unread([]byte)             {}
func (c *fakeConn) Write([]byte) error        { return nil }
func (c *fakeConn) Close() error              { c.closed = true; return nil }
func (c *fakeConn) SetDeadline(time.Time) error { return nil }
func (c *fakeConn) Raw() net.Conn             { return nil }

func TestPoolCheckoutDialsWhenEmpty(t *testing.T) {
	p := NewPool(10, 10, 0)
	defer p.Close()

	key := ConnKey{Kind: ConnKindRaw, Host: "a", Port: 80}
	dialed := false
	conn, reused, _, err := p.Checkout(context.Background(), key, func(ctx context.Context) (Connection, error) {
		dialed = true
		return newFakeConnection(1), nil
	})
	require.NoError(t, err)
	require.True(t, dialed)
	require.False(t, reused)
	require.NotNil(t, conn)
}

func TestPoolReturnThenCheckoutReusesLIFO(t *testing.T) {
	p := NewPool(10, 10, 0)
	defer p.Close()

	key := ConnKey{Kind: ConnKindRaw, Host: "a", Port: 80}
	c1 := newFakeConnection(1)
	c2 := newFakeConnection(2)
	p.Return(key, c1)
	p.Return(key, c2)

	conn, reused, _, err := p.Checkout(context.Background(), key, failDial(t))
	require.NoError(t, err)
	require.True(t, reused)
	require.Same(t, c2, conn)

	conn, reused, _, err = p.Checkout(context.Background(), key, failDial(t))
	require.NoError(t, err)
	require.True(t, reused)
	require.Same(t, c1, conn)
}

func TestPoolPerKeyCapEvictsOldest(t *testing.T) {
	p := NewPool(0, 2, 0)
	defer p.Close()

	key := ConnKey{Kind: ConnKindRaw, Host: "a", Port: 80}
	c1, c2, c3 := newFakeConnection(1), newFakeConnection(2), newFakeConnection(3)
	p.Return(key, c1)
	p.Return(key, c2)
	p.Return(key, c3)

	require.True(t, c1.closed)
	require.Equal(t, 2, p.Stats().IdleConnectionCount)
}

func TestPoolGlobalCapEvictsAcrossKeys(t *testing.T) {
	p := NewPool(1, 10, 0)
	defer p.Close()

	k1 := ConnKey{Kind: ConnKindRaw, Host: "a", Port: 80}
	k2 := ConnKey{Kind: ConnKindRaw, Host: "b", Port: 80}
	c1 := newFakeConnection(1)
	c2 := newFakeConnection(2)
	p.Return(k1, c1)
	p.Return(k2, c2)

	require.True(t, c1.closed)
	require.Equal(t, 1, p.Stats().IdleConnectionCount)
}

func TestPoolCloseDrainsAndRejects(t *testing.T) {
	p := NewPool(10, 10, 0)
	key := ConnKey{Kind: ConnKindRaw, Host: "a", Port: 80}
	c1 := newFakeConnection(1)
	p.Return(key, c1)

	require.NoError(t, p.Close())
	require.True(t, c1.closed)

	_, _, _, err := p.Checkout(context.Background(), key, failDial(t))
	require.Error(t, err)
}

func failDial(t *testing.T) func(context.Context) (Connection, error) {
	return func(context.Context) (Connection, error) {
		t.Fatal("dial should not be called when an idle connection is available")
		return nil, nil
	}
}
