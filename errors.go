package httpclient

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ErrConnectionClosed is returned by Read, Write and SetDeadline on a
// Connection after Close has already succeeded. Unread has no error
// result: on a closed Connection it discards its argument.
var ErrConnectionClosed = errors.New("httpclient: connection closed")

// ErrDeferredBodyNotComposable is returned when ConcatBody is handed a
// DeferredBody: composing a deferred body is a programmer error,
// surfaced as a plain error value rather than a panic.
var ErrDeferredBodyNotComposable = errors.New("httpclient: deferred request bodies cannot be composed")

// ErrorKind is the payload carried by an HTTPException. Each taxonomy
// entry below implements it as a distinguishable type, so callers can
// switch on kind via errors.As.
type ErrorKind interface {
	error
	httpErrorKind()
}

// HTTPException is "HttpExceptionRequest(request, kind)": a rich
// failure associated with the in-flight request.
type HTTPException struct {
	Request *Request
	Kind    ErrorKind
}

func (e *HTTPException) Error() string {
	if e.Request == nil {
		return fmt.Sprintf("httpclient: %s", e.Kind)
	}
	return fmt.Sprintf("httpclient: request to %s: %s", e.Request.hostPort(), e.Kind)
}

func (e *HTTPException) Unwrap() error { return e.Kind }

func wrapRequest(r *Request, kind ErrorKind) error {
	return &HTTPException{Request: r, Kind: kind}
}

// InvalidURLException is raised without a request context, before a
// Request could even be constructed.
type InvalidURLException struct {
	URL    string
	Reason string
}

func (e *InvalidURLException) Error() string {
	return fmt.Sprintf("httpclient: invalid URL %q: %s", e.URL, e.Reason)
}

func kindErrString(name, detail string) string {
	if detail == "" {
		return name
	}
	return fmt.Sprintf("%s: %s", name, detail)
}

// --- taxonomy entries ---

type StatusCodeExceptionKind struct {
	Response   *Response
	BodyPrefix []byte
}

func (k *StatusCodeExceptionKind) httpErrorKind() {}
func (k *StatusCodeExceptionKind) Error() string {
	status := ""
	if k.Response != nil {
		status = k.Response.Status
	}
	return kindErrString("StatusCodeException", status)
}

type TooManyRedirectsKind struct{ Responses []*Response }

func (k *TooManyRedirectsKind) httpErrorKind() {}
func (k *TooManyRedirectsKind) Error() string {
	return kindErrString("TooManyRedirects", fmt.Sprintf("%d hops", len(k.Responses)))
}

type OverlongHeadersKind struct{}

func (k *OverlongHeadersKind) httpErrorKind() {}
func (k *OverlongHeadersKind) Error() string  { return "OverlongHeaders" }

type ResponseTimeoutKind struct{}

func (k *ResponseTimeoutKind) httpErrorKind() {}
func (k *ResponseTimeoutKind) Error() string  { return "ResponseTimeout" }

type ConnectionTimeoutKind struct{}

func (k *ConnectionTimeoutKind) httpErrorKind() {}
func (k *ConnectionTimeoutKind) Error() string  { return "ConnectionTimeout" }

type ConnectionFailureKind struct{ Inner error }

func (k *ConnectionFailureKind) httpErrorKind() {}
func (k *ConnectionFailureKind) Error() string  { return kindErrString("ConnectionFailure", k.Inner.Error()) }
func (k *ConnectionFailureKind) Unwrap() error  { return k.Inner }

type InvalidStatusLineKind struct{ Raw string }

func (k *InvalidStatusLineKind) httpErrorKind() {}
func (k *InvalidStatusLineKind) Error() string  { return kindErrString("InvalidStatusLine", k.Raw) }

type InvalidHeaderKind struct{ Raw string }

func (k *InvalidHeaderKind) httpErrorKind() {}
func (k *InvalidHeaderKind) Error() string  { return kindErrString("InvalidHeader", k.Raw) }

type InvalidRequestHeaderKind struct{ Raw string }

func (k *InvalidRequestHeaderKind) httpErrorKind() {}
func (k *InvalidRequestHeaderKind) Error() string {
	return kindErrString("InvalidRequestHeader", k.Raw)
}

type InternalExceptionKind struct{ Inner error }

func (k *InternalExceptionKind) httpErrorKind() {}
func (k *InternalExceptionKind) Error() string  { return kindErrString("InternalException", k.Inner.Error()) }
func (k *InternalExceptionKind) Unwrap() error  { return k.Inner }

type ProxyConnectExceptionKind struct {
	Host   string
	Port   int
	Status int
}

func (k *ProxyConnectExceptionKind) httpErrorKind() {}
func (k *ProxyConnectExceptionKind) Error() string {
	return kindErrString("ProxyConnectException", fmt.Sprintf("%s:%d -> %d", k.Host, k.Port, k.Status))
}

// NoResponseDataReceivedKind signals the socket closed before any
// byte arrived. This may mean the peer silently closed a kept-alive
// idle connection; the Manager treats this as retryable when the
// connection was reused (see retryableByDefault).
type NoResponseDataReceivedKind struct{}

func (k *NoResponseDataReceivedKind) httpErrorKind() {}
func (k *NoResponseDataReceivedKind) Error() string  { return "NoResponseDataReceived" }

type TLSNotSupportedKind struct{}

func (k *TLSNotSupportedKind) httpErrorKind() {}
func (k *TLSNotSupportedKind) Error() string  { return "TlsNotSupported" }

type WrongRequestBodyStreamSizeKind struct{ Expected, Actual int64 }

func (k *WrongRequestBodyStreamSizeKind) httpErrorKind() {}
func (k *WrongRequestBodyStreamSizeKind) Error() string {
	return kindErrString("WrongRequestBodyStreamSize", fmt.Sprintf("expected %d, got %d", k.Expected, k.Actual))
}

type ResponseBodyTooShortKind struct{ Expected, Actual int64 }

func (k *ResponseBodyTooShortKind) httpErrorKind() {}
func (k *ResponseBodyTooShortKind) Error() string {
	return kindErrString("ResponseBodyTooShort", fmt.Sprintf("expected %d, got %d", k.Expected, k.Actual))
}

type InvalidChunkHeadersKind struct{}

func (k *InvalidChunkHeadersKind) httpErrorKind() {}
func (k *InvalidChunkHeadersKind) Error() string  { return "InvalidChunkHeaders" }

type IncompleteHeadersKind struct{}

func (k *IncompleteHeadersKind) httpErrorKind() {}
func (k *IncompleteHeadersKind) Error() string  { return "IncompleteHeaders" }

type InvalidDestinationHostKind struct{ Host string }

func (k *InvalidDestinationHostKind) httpErrorKind() {}
func (k *InvalidDestinationHostKind) Error() string {
	return kindErrString("InvalidDestinationHost", k.Host)
}

type HTTPZlibExceptionKind struct{ Inner error }

func (k *HTTPZlibExceptionKind) httpErrorKind() {}
func (k *HTTPZlibExceptionKind) Error() string  { return kindErrString("HttpZlibException", k.Inner.Error()) }
func (k *HTTPZlibExceptionKind) Unwrap() error  { return k.Inner }

type InvalidProxyEnvironmentVariableKind struct{ Name, Value string }

func (k *InvalidProxyEnvironmentVariableKind) httpErrorKind() {}
func (k *InvalidProxyEnvironmentVariableKind) Error() string {
	return kindErrString("InvalidProxyEnvironmentVariable", fmt.Sprintf("%s=%q", k.Name, k.Value))
}

type InvalidProxySettingsKind struct{ Text string }

func (k *InvalidProxySettingsKind) httpErrorKind() {}
func (k *InvalidProxySettingsKind) Error() string {
	return kindErrString("InvalidProxySettings", k.Text)
}

// connectionClosedKind lets a bare ErrConnectionClosed participate in
// the HTTPException taxonomy when it surfaces mid-request.
type connectionClosedKind struct{}

func (k *connectionClosedKind) httpErrorKind() {}
func (k *connectionClosedKind) Error() string  { return "ConnectionClosed" }
