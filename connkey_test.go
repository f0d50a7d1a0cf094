package httpclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnKeyEqualityAndMapUse(t *testing.T) {
	a := ConnKey{Kind: ConnKindSecure, Host: "example.com", Port: 443}
	b := ConnKey{Kind: ConnKindSecure, Host: "example.com", Port: 443}
	c := ConnKey{Kind: ConnKindSecure, Host: "example.org", Port: 443}

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)

	m := map[ConnKey]int{a: 1}
	m[b]++
	require.Equal(t, 2, m[a])
	require.Equal(t, 0, m[c])
}

func TestRequestConnKeyForDirectSecure(t *testing.T) {
	req := NewRequest("GET", "example.com", 443, "/")
	req.Secure = true
	key := req.connKeyFor(nil)
	require.Equal(t, ConnKindSecure, key.Kind)
	require.Equal(t, "example.com", key.Host)
}

func TestRequestConnKeyForProxiedSecure(t *testing.T) {
	req := NewRequest("GET", "example.com", 443, "/")
	req.Secure = true
	proxy := &ProxyConfig{Host: "proxy.local", Port: 3128}
	key := req.connKeyFor(proxy)
	require.Equal(t, ConnKindProxy, key.Kind)
	require.Equal(t, "proxy.local", key.ProxyHost)
	require.Equal(t, "example.com", key.Host)
}

func TestRequestConnKeyForProxiedPlainHTTPSharesProxyConnection(t *testing.T) {
	reqA := NewRequest("GET", "a.example.com", 80, "/")
	reqB := NewRequest("GET", "b.example.com", 80, "/")
	proxy := &ProxyConfig{Host: "proxy.local", Port: 3128}

	require.Equal(t, reqA.connKeyFor(proxy), reqB.connKeyFor(proxy))
}
