package httpclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/iand675/http-client/internal/obs"
)

// Manager is the single entry point for performing requests: one
// Pool, one set of dialers, and the ManagerSettings governing
// timeouts, caps, and the request/response modifier hooks.
type Manager struct {
	Settings  ManagerSettings
	Pool      *Pool
	RawDialer RawDialer
	TLSDialer TLSDialer

	// dialSem bounds concurrent in-flight dials across the whole
	// Manager (SPEC_FULL.md SUPPLEMENT), wiring
	// golang.org/x/sync/semaphore the way josephcopenhaver's
	// round-robin transport and cloudwego/hertz's client bound dial
	// fan-out.
	dialSem *semaphore.Weighted
}

// NewManager constructs a Manager with its own Pool, sized from
// settings, and the given dialers. A nil TLSDialer falls back to
// DefaultTLSDialer with no base *tls.Config.
func NewManager(settings ManagerSettings, rawDialer RawDialer, tlsDialer TLSDialer) *Manager {
	if rawDialer == nil {
		rawDialer = DefaultRawDialer(settings.ConnectionTimeout)
	}
	if tlsDialer == nil {
		tlsDialer = DefaultTLSDialer(settings.ConnectionTimeout, nil)
	}
	pool := NewPool(settings.IdleConnectionCount, settings.ManagerConnCount, settings.IdleConnectionTimeout)
	pool.Logger = settings.Logger
	pool.Meter = settings.Meter

	var sem *semaphore.Weighted
	if settings.MaxConcurrentDials > 0 {
		sem = semaphore.NewWeighted(settings.MaxConcurrentDials)
	}

	return &Manager{
		Settings:  settings,
		Pool:      pool,
		RawDialer: rawDialer,
		TLSDialer: tlsDialer,
		dialSem:   sem,
	}
}

func (m *Manager) Close() error { return m.Pool.Close() }

func (m *Manager) logf(level obs.Level, format string, args ...interface{}) {
	if m.Settings.Logger != nil {
		m.Settings.Logger.Logf(level, format, args...)
	}
}

// Perform runs the full send/receive pipeline: apply ModifyRequest,
// resolve the proxy, check out or dial a connection, round-trip the
// request, and retry once on a fresh connection if the failure
// happened on a reused one.
func (m *Manager) Perform(ctx context.Context, req *Request) (*Response, error) {
	if req.Manager != nil && req.Manager != m {
		return req.Manager.Perform(ctx, req)
	}
	if m.Settings.ModifyRequest != nil {
		cp := *req
		cp.Header = req.Header.Clone()
		req = m.Settings.ModifyRequest(&cp)
	}
	trace := compileTrace(req.Trace)

	proxy, err := m.resolveProxy(req)
	if err != nil {
		return nil, err
	}

	key := req.connKeyFor(proxy)
	trace.GetConnection(key.String())

	resp, retryable, err := m.attempt(ctx, req, proxy, key, trace, false)
	if err != nil && retryable {
		m.logf(obs.Warn, "httpclient: retrying %s %s after %v on a fresh connection", req.Method, req.Host, err)
		resp, _, err = m.attempt(ctx, req, proxy, key, trace, true)
	}
	return resp, err
}

func (m *Manager) resolveProxy(req *Request) (*ProxyConfig, error) {
	if req.Proxy != nil {
		return req.Proxy, nil
	}
	var hook func(*Request) (*ProxyConfig, error)
	if req.Secure {
		hook = m.Settings.ProxySecure
	} else {
		hook = m.Settings.ProxyInsecure
	}
	if hook != nil {
		return hook(req)
	}
	return proxyFromEnvironment(req)
}

// attempt runs one full checkout/send/receive cycle; with fresh set it
// dials a new connection instead of checking an idle one out of the
// pool. The bool return tells Perform whether the failure happened on
// a reused connection and RetryableException considers it safe to
// retry on a fresh one.
func (m *Manager) attempt(ctx context.Context, req *Request, proxy *ProxyConfig, key ConnKey, trace *RequestTrace, fresh bool) (*Response, bool, error) {
	dialTimeout := m.Settings.ConnectionTimeout

	dialNew := func(dctx context.Context) (Connection, error) {
		dctx, cancel := context.WithTimeout(dctx, dialTimeout)
		defer cancel()
		c, err := m.dial(dctx, req, proxy, key, trace)
		if err != nil {
			return nil, wrapRequest(req, &ConnectionFailureKind{Inner: err})
		}
		return c, nil
	}
	var (
		conn    Connection
		reused  bool
		idleFor time.Duration
		err     error
	)
	if fresh {
		conn, err = dialNew(ctx)
	} else {
		conn, reused, idleFor, err = m.Pool.Checkout(ctx, key, dialNew)
	}
	if err != nil {
		return nil, false, err
	}
	trace.GotConnection(reused, idleFor)

	resp, err := m.roundTrip(ctx, req, conn, proxy, key, trace)
	if err != nil {
		m.Pool.Discard(conn)
		retryable := reused && m.isRetryable(err)
		return nil, retryable, err
	}
	return resp, false, nil
}

func (m *Manager) isRetryable(err error) bool {
	if m.Settings.RetryableException != nil {
		return m.Settings.RetryableException(err)
	}
	return retryableByDefault(err)
}

// retryableByDefault treats "the peer had already closed this kept
// alive connection" as the only built-in retryable condition, since
// that's a race inherent to pooling rather than a request-specific
// failure.
func retryableByDefault(err error) bool {
	var he *HTTPException
	if e, ok := err.(*HTTPException); ok {
		he = e
	} else {
		return false
	}
	switch he.Kind.(type) {
	case *NoResponseDataReceivedKind, *connectionClosedKind:
		return true
	}
	return false
}

// dial bounds itself with m.dialSem (when configured) and dispatches
// on key.Kind: a direct raw/TLS dial, or a proxy dial followed by a
// CONNECT tunnel and TLS upgrade for ConnKindProxy+Secure.
func (m *Manager) dial(ctx context.Context, req *Request, proxy *ProxyConfig, key ConnKey, trace *RequestTrace) (Connection, error) {
	if m.dialSem != nil {
		if err := m.dialSem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		defer m.dialSem.Release(1)
	}

	trace.ConnectStart("tcp", key.String())
	conn, err := m.dialKey(ctx, req, proxy, key, trace)
	trace.ConnectDone("tcp", key.String(), err)
	return conn, err
}

func (m *Manager) dialKey(ctx context.Context, req *Request, proxy *ProxyConfig, key ConnKey, trace *RequestTrace) (Connection, error) {
	switch key.Kind {
	case ConnKindSecure:
		trace.TLSHandshakeStart()
		c, err := m.TLSDialer(ctx, req.HostAddr, req.Host, req.Port)
		trace.TLSHandshakeDone(err)
		return c, err

	case ConnKindRaw:
		// Either a direct plain-HTTP request, or a plain-HTTP request
		// relayed through an HTTP proxy (connKeyFor already rewrote
		// Host/Port to the proxy's in that case).
		return m.RawDialer(ctx, key.HostAddr, key.Host, key.Port)

	case ConnKindProxy:
		raw, err := m.RawDialer(ctx, "", key.ProxyHost, key.ProxyPort)
		if err != nil {
			return nil, err
		}
		if err := connectTunnel(ctx, raw, req, key); err != nil {
			_ = raw.Close()
			return nil, err
		}
		trace.TLSHandshakeStart()
		cfg := cloneOrNewTLSConfig(nil, req.Host)
		upgraded, err := upgradeToTLS(ctx, raw.Raw(), cfg)
		trace.TLSHandshakeDone(err)
		return upgraded, err

	default:
		return nil, fmt.Errorf("httpclient: unknown ConnKey kind %v", key.Kind)
	}
}

// connectTunnel issues CONNECT host:port to an already-dialed proxy
// connection and consumes the proxy's response. A non-2xx status is
// ProxyConnectException; any 2xx is treated as tunnel-established
// regardless of reason phrase, matching ordinary HTTP CONNECT proxies.
func connectTunnel(ctx context.Context, conn Connection, req *Request, key ConnKey) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	defer conn.SetDeadline(time.Time{})

	target := fmt.Sprintf("%s:%d", req.Host, req.Port)
	var b strings.Builder
	b.WriteString("CONNECT ")
	b.WriteString(target)
	b.WriteString(" HTTP/1.1\r\nHost: ")
	b.WriteString(target)
	b.WriteString("\r\n")
	if key.ProxyAuth != "" {
		b.WriteString("Proxy-Authorization: ")
		b.WriteString(key.ProxyAuth)
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	if err := conn.Write([]byte(b.String())); err != nil {
		return wrapRequest(req, &ConnectionFailureKind{Inner: err})
	}

	status, err := readStatusLine(conn)
	if err != nil {
		return wrapRequest(req, err.(ErrorKind))
	}
	hdr, err := readHeaders(conn)
	if err != nil {
		return wrapRequest(req, err.(ErrorKind))
	}
	_ = hdr
	if status.StatusCode < 200 || status.StatusCode >= 300 {
		return wrapRequest(req, &ProxyConnectExceptionKind{Host: key.ProxyHost, Port: key.ProxyPort, Status: status.StatusCode})
	}
	return nil
}

// roundTrip validates and writes the request, then reads the response
// head and constructs a BodyReader, over an already-checked-out conn.
func (m *Manager) roundTrip(ctx context.Context, req *Request, conn Connection, proxy *ProxyConfig, key ConnKey, trace *RequestTrace) (*Response, error) {
	responseTimeout := req.ResponseTimeout
	if responseTimeout == 0 {
		responseTimeout = m.Settings.DefaultResponseTimeout
	}
	if responseTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(responseTimeout))
		defer conn.SetDeadline(time.Time{})
	}

	if err := validateForWire(req.Header); err != nil {
		return nil, wrapRequest(req, err.(ErrorKind))
	}

	body, err := ResolveBody(ctx, req.Body)
	if err != nil {
		return nil, err
	}

	viaPlainProxy := proxy != nil && !req.Secure
	if err := writeRequestLine(conn, req, viaPlainProxy); err != nil {
		return nil, wrapRequest(req, &ConnectionFailureKind{Inner: err})
	}

	if strings.EqualFold(req.Header.Get("Expect"), "100-continue") {
		trace.Wait100Continue()
	}
	if err := writeHeaders(conn, req, proxy, body, trace); err != nil {
		return nil, wrapRequest(req, &ConnectionFailureKind{Inner: err})
	}

	werr := writeRequestBody(conn, body)
	werr = guardBodyException(req.OnRequestBodyException, werr)
	trace.WroteRequest(werr)
	if werr != nil {
		return nil, wrapRequest(req, &ConnectionFailureKind{Inner: werr})
	}

	status, header, err := readResponseHead(conn, trace)
	if err != nil {
		if he, ok := err.(*HTTPException); ok {
			return nil, he
		}
		return nil, wrapRequest(req, err.(ErrorKind))
	}

	bodyReader, drained := newBodyReader(conn, header, req)
	snapshot := req.snapshotForResponse()

	resp := &Response{
		Status:     status.String(),
		StatusCode: status.StatusCode,
		Reason:     status.Reason,
		Proto:      status.Proto,
		Header:     header,
		Body:       bodyReader,
		CookieJar:  req.CookieJar,
		Request:    snapshot,
	}

	keepAlive := !connectionCloseRequested(header) && status.Proto != "HTTP/1.0"
	resp.close = &responseCloser{
		drained: drained,
		release: func(bodyDrained bool) {
			if keepAlive && bodyDrained {
				trace.PutIdleConnection(key.String())
				m.Pool.Return(key, conn)
			} else {
				m.Pool.Discard(conn)
			}
		},
	}

	if m.Settings.ModifyResponse != nil {
		resp = m.Settings.ModifyResponse(resp)
	}
	if req.CheckResponse != nil {
		if err := req.CheckResponse(resp); err != nil {
			_ = resp.Close()
			if _, ok := err.(*HTTPException); ok {
				return nil, err
			}
			return nil, wrapRequest(req, &StatusCodeExceptionKind{Response: resp})
		}
	}
	return resp, nil
}

func connectionCloseRequested(h Header) bool {
	for _, v := range h.Values("Connection") {
		if strings.EqualFold(strings.TrimSpace(v), "close") {
			return true
		}
	}
	return false
}

// writeRequestLine renders the request-line: an absolute-form target
// when relaying plain HTTP through a proxy, origin-form otherwise
// (direct, or already inside a CONNECT tunnel).
func writeRequestLine(conn Connection, req *Request, viaPlainProxy bool) error {
	target := req.requestLineTarget()
	if viaPlainProxy {
		target = req.absoluteTarget()
	}
	version := req.RequestVersion
	if version == "" {
		version = "HTTP/1.1"
	}
	line := fmt.Sprintf("%s %s %s\r\n", req.Method, target, version)
	return conn.Write([]byte(line))
}

const acceptEncodingHeader = "Accept-Encoding"

// writeHeaders writes the Host header (synthesized from host:port only
// when the caller didn't supply one), every user header (validated
// already, plus a default Accept-Encoding: gzip unless the caller
// supplied their own value or explicitly suppressed it with ""), the
// framing header(s) for body, and Proxy-Authorization when relaying
// plain HTTP through a proxy.
func writeHeaders(conn Connection, req *Request, proxy *ProxyConfig, body RequestBody, trace *RequestTrace) error {
	var b strings.Builder
	writeField := func(name, value string) {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(value)
		b.WriteString("\r\n")
		trace.WroteHeaderField(name)
	}

	if req.Header.Get("Host") == "" {
		host := req.Host
		if !isDefaultPort(req.Secure, req.Port) {
			host = host + ":" + strconv.Itoa(req.Port)
		}
		writeField("Host", host)
	}

	acceptEncoding, suppressed := acceptEncodingOverride(req.Header)
	if acceptEncoding == "" && !suppressed {
		writeField(acceptEncodingHeader, "gzip")
	}

	for name, values := range req.Header {
		if name == acceptEncodingHeader && suppressed {
			continue
		}
		for _, v := range values {
			writeField(name, v)
		}
	}

	framingFor(body).writeHeader(writeField)

	if proxy != nil && !req.Secure && proxy.Auth != "" {
		writeField("Proxy-Authorization", proxy.Auth)
	}

	b.WriteString("\r\n")
	trace.WroteHeaders()
	return conn.Write([]byte(b.String()))
}

// acceptEncodingOverride reports the caller's explicit Accept-Encoding
// value, if any, and whether that value ("") means "send no
// Accept-Encoding header at all" rather than "send this value
// verbatim". The zero value (value == "", suppressed == false) means
// the caller never set the header, so the default gzip offer applies.
func acceptEncodingOverride(h Header) (value string, suppressed bool) {
	vv, ok := h[acceptEncodingHeader]
	if !ok {
		return "", false
	}
	if len(vv) == 1 && vv[0] == "" {
		return "", true
	}
	return vv[0], false
}

// readResponseHead reads the status line and header block, looping
// over any 1xx informational responses first and firing
// Got1xxResponse/Got100Continue for each, and returns the final
// non-1xx status + headers.
func readResponseHead(conn Connection, trace *RequestTrace) (StatusLine, Header, error) {
	firstByte := true
	for {
		status, err := readStatusLine(conn)
		if err != nil {
			return StatusLine{}, nil, err
		}
		header, err := readHeaders(conn)
		if err != nil {
			return StatusLine{}, nil, err
		}
		if firstByte {
			trace.GotFirstResponseByte()
			firstByte = false
		}
		if status.StatusCode < 100 || status.StatusCode >= 200 {
			return status, header, nil
		}
		if status.StatusCode == 100 {
			trace.Got100Continue()
		}
		if err := trace.Got1xxResponse(status.StatusCode, header); err != nil {
			return StatusLine{}, nil, &InternalExceptionKind{Inner: err}
		}
	}
}
