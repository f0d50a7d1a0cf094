package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCookieJarMergeDedupesByNewest(t *testing.T) {
	now := time.Now()
	older := Cookie{Name: "sid", Domain: "example.com", Path: "/", Value: "old", CreationTime: now.Add(-time.Hour)}
	newer := Cookie{Name: "sid", Domain: "example.com", Path: "/", Value: "new", CreationTime: now}

	a := NewCookieJar([]Cookie{older})
	b := NewCookieJar([]Cookie{newer})

	merged := a.Merge(b)
	cookies := merged.Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "new", cookies[0].Value)
}

func TestCookieJarMergeKeepsDistinctCookies(t *testing.T) {
	a := NewCookieJar([]Cookie{{Name: "a", Domain: "x.com", Path: "/"}})
	b := NewCookieJar([]Cookie{{Name: "b", Domain: "x.com", Path: "/"}})
	merged := a.Merge(b)
	require.Len(t, merged.Cookies(), 2)
}

func TestCookieEquivIgnoresDomainCase(t *testing.T) {
	a := Cookie{Name: "n", Domain: "Example.COM", Path: "/p"}
	b := Cookie{Name: "n", Domain: "example.com", Path: "/p", Value: "different"}
	require.True(t, a.Equiv(b))
	require.False(t, a.Equal(b))
}

func TestCookieJarEquiv(t *testing.T) {
	now := time.Now()
	a := NewCookieJar([]Cookie{
		{Name: "a", Domain: "x.com", Path: "/p1", CreationTime: now},
		{Name: "b", Domain: "x.com", Path: "/p2", CreationTime: now},
	})
	b := NewCookieJar([]Cookie{
		{Name: "b", Domain: "x.com", Path: "/p2", CreationTime: now, Value: "whatever"},
		{Name: "a", Domain: "x.com", Path: "/p1", CreationTime: now, Value: "other"},
	})
	require.True(t, a.Equiv(b))
	require.False(t, a.Equal(b))
}
