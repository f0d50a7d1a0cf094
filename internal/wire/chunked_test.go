package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeChunk(t *testing.T) {
	require.Equal(t, []byte("5\r\nhello\r\n"), EncodeChunk([]byte("hello")))
	require.Nil(t, EncodeChunk(nil))
}

func TestParseChunkHeader(t *testing.T) {
	n, err := ParseChunkHeader("1a")
	require.NoError(t, err)
	require.Equal(t, int64(26), n)

	n, err = ParseChunkHeader("1a;foo=bar")
	require.NoError(t, err)
	require.Equal(t, int64(26), n)

	_, err = ParseChunkHeader("")
	require.ErrorIs(t, err, ErrInvalidChunkHeader)

	_, err = ParseChunkHeader("xyz")
	require.ErrorIs(t, err, ErrInvalidChunkHeader)
}
