package httpclient

import (
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Cookie is a single cookie record per RFC 6265 §5.3. The
// request-emission and response-absorption algorithms that decide
// which cookies apply to which request live outside this package;
// this is a data model only.
type Cookie struct {
	Name   string
	Value  string
	Expiry time.Time

	Domain string
	Path   string

	CreationTime time.Time
	LastAccess   time.Time

	Persistent bool
	HostOnly   bool
	SecureOnly bool
	HTTPOnly   bool
}

// equivKey is the (name, case-folded domain, path) identity used by
// Equiv and by jar merge deduplication.
type equivKey struct {
	name, domain, path string
}

func (c Cookie) key() equivKey {
	return equivKey{name: c.Name, domain: strings.ToLower(c.Domain), path: c.Path}
}

// Equal is field-by-field bit equality.
func (c Cookie) Equal(o Cookie) bool {
	return c.Name == o.Name && c.Value == o.Value && c.Expiry.Equal(o.Expiry) &&
		c.Domain == o.Domain && c.Path == o.Path &&
		c.CreationTime.Equal(o.CreationTime) && c.LastAccess.Equal(o.LastAccess) &&
		c.Persistent == o.Persistent && c.HostOnly == o.HostOnly &&
		c.SecureOnly == o.SecureOnly && c.HTTPOnly == o.HTTPOnly
}

// Equiv is the "identity" used when merging jars: equal
// (name, case-folded domain, path).
func (c Cookie) Equiv(o Cookie) bool { return c.key() == o.key() }

// CookieJar is an unordered collection of cookies.
type CookieJar struct {
	cookies []Cookie
}

// NewCookieJar constructs a jar from a list of cookies.
func NewCookieJar(cookies []Cookie) *CookieJar {
	cp := make([]Cookie, len(cookies))
	copy(cp, cookies)
	return &CookieJar{cookies: cp}
}

// Cookies returns the jar's current contents. The slice is a copy;
// mutating it does not affect the jar.
func (j *CookieJar) Cookies() []Cookie {
	if j == nil {
		return nil
	}
	cp := make([]Cookie, len(j.cookies))
	copy(cp, j.cookies)
	return cp
}

// Merge concatenates both jars, sorts by creation time (newest
// first), then deduplicates by Equiv keeping the first (newest)
// occurrence, using github.com/samber/lo's UniqBy for the dedupe step.
func (j *CookieJar) Merge(other *CookieJar) *CookieJar {
	var all []Cookie
	if j != nil {
		all = append(all, j.cookies...)
	}
	if other != nil {
		all = append(all, other.cookies...)
	}
	sort.SliceStable(all, func(i, k int) bool {
		return all[i].CreationTime.After(all[k].CreationTime)
	})
	deduped := lo.UniqBy(all, func(c Cookie) equivKey { return c.key() })
	return &CookieJar{cookies: deduped}
}

// Equal reports bit-equal lists (order-sensitive).
func (j *CookieJar) Equal(other *CookieJar) bool {
	a, b := j.Cookies(), other.Cookies()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Equiv reports set-equality under the Equiv relation, after sorting
// both sides into canonical (path-length descending, creation-time
// descending) order, with ties broken by the (name, case-folded
// domain, path) identity.
func (j *CookieJar) Equiv(other *CookieJar) bool {
	a, b := canonicalOrder(j.Cookies()), canonicalOrder(other.Cookies())
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equiv(b[i]) {
			return false
		}
	}
	return true
}

func canonicalOrder(cookies []Cookie) []Cookie {
	out := append([]Cookie(nil), cookies...)
	sort.SliceStable(out, func(i, k int) bool {
		if len(out[i].Path) != len(out[k].Path) {
			return len(out[i].Path) > len(out[k].Path)
		}
		if !out[i].CreationTime.Equal(out[k].CreationTime) {
			return out[i].CreationTime.After(out[k].CreationTime)
		}
		ki, kk := out[i].key(), out[k].key()
		if ki.name != kk.name {
			return ki.name < kk.name
		}
		if ki.domain != kk.domain {
			return ki.domain < kk.domain
		}
		return ki.path < kk.path
	})
	return out
}

// filterActive drops persistent cookies whose Expiry is not after now;
// non-persistent cookies and cookies with a zero Expiry are always
// kept.
func filterActive(cookies []Cookie, now time.Time) []Cookie {
	return lo.Filter(cookies, func(c Cookie, _ int) bool {
		return !c.Persistent || c.Expiry.IsZero() || c.Expiry.After(now)
	})
}
