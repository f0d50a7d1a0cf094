package httpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ProxySecureMode names how an HTTPS request reaches an HTTP proxy:
// tunnelled via CONNECT (the default, and the only way to preserve
// end-to-end TLS) or sent directly to the proxy as if it understood
// HTTPS itself. Manager.Perform tunnels every proxied HTTPS request
// with CONNECT whichever value is set; ProxySecureDirect does not
// change how the request is sent.
type ProxySecureMode int

const (
	ProxySecureWithConnect ProxySecureMode = iota
	ProxySecureDirect
)

// ProxyConfig names an HTTP proxy to tunnel or relay through.
type ProxyConfig struct {
	Host string
	Port int
	// Auth, if non-empty, is sent verbatim as the Proxy-Authorization
	// header value (already "Basic ..." or similar).
	Auth string
}

// Request is an immutable record. Callers build one with NewRequest
// and treat every field as write-once; Manager.Perform never mutates
// the Request it was given (ModifyRequest operates on an internal
// copy).
type Request struct {
	Method      string
	Secure      bool
	Host        string
	Port        int
	Path        string
	QueryString string

	Header      Header
	Body        RequestBody

	Proxy *ProxyConfig

	// HostAddr, if set, is a pre-resolved IP:port to dial instead of
	// resolving Host via DNS (still sent as Host/SNI).
	HostAddr string

	// RawBody disables transparent response decompression for this
	// request; the caller receives exactly the bytes on the wire.
	RawBody bool

	// Decompress decides, per response Content-Type, whether a
	// supported Content-Encoding should be transparently inflated.
	// A nil Decompress accepts every mime type.
	Decompress func(contentType string) bool

	RedirectCount int

	// CheckResponse is invoked once headers are available, before the
	// body reader is handed back; returning an error fails Perform.
	CheckResponse func(*Response) error

	ResponseTimeout time.Duration

	CookieJar *CookieJar

	RequestVersion string // "HTTP/1.1" by default

	OnRequestBodyException func(error) bool

	// Manager, if set, overrides the Manager a helper function would
	// otherwise default to.
	Manager *Manager

	ShouldStripHeaderOnRedirect func(headerName string) bool

	ProxySecureMode ProxySecureMode

	Trace *RequestTrace

	ctx context.Context
}

// NewRequest builds a Request with sensible defaults filled in
// (RequestVersion "HTTP/1.1", an empty RequestTrace whose nil hooks
// Manager.Perform replaces with no-ops, and a nil Decompress, which
// accepts every mime type).
func NewRequest(method, host string, port int, path string) *Request {
	r := &Request{
		Method:         method,
		Host:           host,
		Port:           port,
		Path:           path,
		Header:         NewHeader(),
		RequestVersion: "HTTP/1.1",
		Trace:          &RequestTrace{},
	}
	return r
}

func (r *Request) Context() context.Context {
	if r == nil || r.ctx == nil {
		return context.Background()
	}
	return r.ctx
}

// WithContext returns a shallow copy of r with its context replaced,
// matching the net/http convention for immutable-request plumbing.
func WithContext(r *Request, ctx context.Context) *Request {
	if r == nil {
		return nil
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}

func (r *Request) hostPort() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (r *Request) decompressAllowed(contentType string) bool {
	if r.RawBody {
		return false
	}
	if r.Decompress == nil {
		return true
	}
	return r.Decompress(contentType)
}

// requestLineTarget renders "path?query" (or "path" if QueryString is
// empty), the target written on the wire request-line for direct
// (non-proxy) requests.
func (r *Request) requestLineTarget() string {
	path := r.Path
	if path == "" {
		path = "/"
	}
	if r.QueryString == "" {
		return path
	}
	return path + "?" + r.QueryString
}

// absoluteTarget renders "scheme://host[:port]path?query", used as
// the request-line target when relaying plain HTTP through a proxy.
func (r *Request) absoluteTarget() string {
	scheme := "http"
	if r.Secure {
		scheme = "https"
	}
	host := r.Host
	if !isDefaultPort(r.Secure, r.Port) {
		host = host + ":" + strconv.Itoa(r.Port)
	}
	return scheme + "://" + host + r.requestLineTarget()
}

func isDefaultPort(secure bool, port int) bool {
	if secure {
		return port == 443
	}
	return port == 80
}

// snapshotForResponse returns a shallow copy of r with Body replaced
// by an empty body, so a Response never retains a live reference into
// an already-drained request body.
func (r *Request) snapshotForResponse() *Request {
	cp := *r
	cp.Body = BytesBody(nil)
	return &cp
}

// connKeyFor computes the pool key this request resolves to once any
// proxy has been applied (a nil proxy means direct).
func (r *Request) connKeyFor(proxy *ProxyConfig) ConnKey {
	switch {
	case proxy == nil:
		if r.Secure {
			return ConnKey{Kind: ConnKindSecure, HostAddr: r.HostAddr, Host: r.Host, Port: r.Port}
		}
		return ConnKey{Kind: ConnKindRaw, HostAddr: r.HostAddr, Host: r.Host, Port: r.Port}
	case r.Secure:
		return ConnKey{
			Kind: ConnKindProxy,
			Host: r.Host, Port: r.Port,
			ProxyHost: proxy.Host, ProxyPort: proxy.Port, ProxyAuth: proxy.Auth,
		}
	default:
		// Plain HTTP via an HTTP proxy reuses one connection to the
		// proxy across every ultimate target: the key is Raw applied
		// to the proxy's own host/port, not the target's.
		return ConnKey{Kind: ConnKindRaw, Host: proxy.Host, Port: proxy.Port}
	}
}

func looksLikeControlChar(s string) bool {
	return strings.ContainsAny(s, "\r\n")
}
