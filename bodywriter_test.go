package httpclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteRequestBodyBytes(t *testing.T) {
	conn := newBufConnection()
	require.NoError(t, writeRequestBody(conn, BytesBody([]byte("hello"))))
	require.Equal(t, [][]byte{[]byte("hello")}, conn.writes)
}

func TestWriteRequestBodyChunked(t *testing.T) {
	conn := newBufConnection()
	body := ChunkedStreamBody{Popper: BytesPopperFactory([]byte("abc"))}
	require.NoError(t, writeRequestBody(conn, body))
	require.Equal(t, []byte("3\r\nabc\r\n"), conn.writes[0])
	require.Equal(t, []byte("0\r\n\r\n"), conn.writes[1])
}

func TestWriteRequestBodyStreamSizeMismatch(t *testing.T) {
	conn := newBufConnection()
	body := StreamBody{Length: 10, Popper: BytesPopperFactory([]byte("short"))}
	err := writeRequestBody(conn, body)
	var kind *WrongRequestBodyStreamSizeKind
	require.ErrorAs(t, err, &kind)
	require.Equal(t, int64(10), kind.Expected)
	require.Equal(t, int64(5), kind.Actual)
}

func TestConcatBodyBuffersBuffered(t *testing.T) {
	combined, err := ConcatBody(BytesBody([]byte("foo")), BytesBody([]byte("bar")))
	require.NoError(t, err)
	bb, ok := combined.(BuilderBody)
	require.True(t, ok)
	require.Equal(t, "foobar", string(bb.Build()))
}

func TestConcatBodyDeferredRejected(t *testing.T) {
	deferred := DeferredBody(func(ctx context.Context) (RequestBody, error) { return BytesBody(nil), nil })
	_, err := ConcatBody(deferred, BytesBody([]byte("x")))
	require.ErrorIs(t, err, ErrDeferredBodyNotComposable)

	_, err = ConcatBody(BytesBody([]byte("x")), deferred)
	require.ErrorIs(t, err, ErrDeferredBodyNotComposable)
}
