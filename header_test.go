package httpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderCanonicalization(t *testing.T) {
	h := NewHeader()
	h.Add("x-foo", "a")
	h.Add("X-Foo", "b")
	require.Equal(t, "a", h.Get("X-FOO"))
	require.Equal(t, []string{"a", "b"}, h.Values("x-foo"))

	h.Set("content-type", "text/plain")
	require.Equal(t, "text/plain", h.Get("Content-Type"))

	h.Del("x-foo")
	require.Empty(t, h.Get("X-Foo"))
}

func TestValidateForWireRejectsCRLFInjection(t *testing.T) {
	h := NewHeader()
	h.Set("X-Evil", "value\r\nInjected: yes")
	err := validateForWire(h)
	var kind *InvalidRequestHeaderKind
	require.ErrorAs(t, err, &kind)
}

func TestValidateForWireAcceptsOrdinaryHeaders(t *testing.T) {
	h := NewHeader()
	h.Set("Accept", "application/json")
	require.NoError(t, validateForWire(h))
}
