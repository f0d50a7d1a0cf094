package httpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBodyReaderContentLength(t *testing.T) {
	conn := newBufConnection([]byte("hello"))
	h := NewHeader()
	h.Set("Content-Length", "5")
	br, drained := newBodyReader(conn, h, NewRequest("GET", "x", 80, "/"))

	got, err := ReadAllBody(br)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
	require.True(t, drained())
}

func TestBodyReaderContentLengthTruncated(t *testing.T) {
	conn := newBufConnection([]byte("hi"))
	h := NewHeader()
	h.Set("Content-Length", "5")
	br, drained := newBodyReader(conn, h, NewRequest("GET", "x", 80, "/"))

	_, err := ReadAllBody(br)
	var kind *ResponseBodyTooShortKind
	require.ErrorAs(t, err, &kind)
	require.False(t, drained())
}

func TestBodyReaderChunked(t *testing.T) {
	conn := newBufConnection([]byte("5\r\nhello\r\n0\r\n\r\n"))
	h := NewHeader()
	h.Set("Transfer-Encoding", "chunked")
	br, drained := newBodyReader(conn, h, NewRequest("GET", "x", 80, "/"))

	got, err := ReadAllBody(br)
	require.NoError(t, err)
	require.Equal(t, "hello", string(got))
	require.True(t, drained())
}

func TestBodyReaderChunkedInvalidHeader(t *testing.T) {
	conn := newBufConnection([]byte("zzz\r\nhello\r\n"))
	h := NewHeader()
	h.Set("Transfer-Encoding", "chunked")
	br, _ := newBodyReader(conn, h, NewRequest("GET", "x", 80, "/"))

	_, err := ReadAllBody(br)
	var kind *InvalidChunkHeadersKind
	require.ErrorAs(t, err, &kind)
}

func TestBodyReaderEOFDelimited(t *testing.T) {
	conn := newBufConnection([]byte("first"), []byte("second"))
	h := NewHeader()
	br, drained := newBodyReader(conn, h, NewRequest("GET", "x", 80, "/"))

	got, err := ReadAllBody(br)
	require.NoError(t, err)
	require.Equal(t, "firstsecond", string(got))
	require.True(t, drained())
}
