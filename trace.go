package httpclient

import "time"

// RequestTrace is a fixed-shape observer over one request's phases.
// Each field is a function pointer with a package-level no-op
// default; compileTrace fills in every nil field when Manager.Perform
// starts a request, so call sites along the hot bytes path never need
// a nil check or dynamic dispatch.
type RequestTrace struct {
	GetConnection       func(key string)
	GotConnection       func(reused bool, idleDuration time.Duration)
	PutIdleConnection   func(key string)
	GotFirstResponseByte func()
	Got100Continue      func()
	// Got1xxResponse may return an error to voluntarily abort the
	// request, which then fails with an InternalException. The other
	// callbacks have no error result, and a panic raised by any
	// callback is not recovered.
	Got1xxResponse func(code int, header Header) error
	DNSStart       func(host string)
	DNSDone        func(err error)
	ConnectStart   func(network, addr string)
	ConnectDone    func(network, addr string, err error)
	TLSHandshakeStart func()
	TLSHandshakeDone  func(err error)
	WroteHeaderField  func(key string)
	WroteHeaders      func()
	Wait100Continue   func()
	WroteRequest      func(err error)
}

func noopGetConnection(string)                           {}
func noopGotConnection(bool, time.Duration)               {}
func noopPutIdleConnection(string)                        {}
func noopGotFirstResponseByte()                           {}
func noopGot100Continue()                                 {}
func noopGot1xxResponse(int, Header) error                { return nil }
func noopDNSStart(string)                                 {}
func noopDNSDone(error)                                   {}
func noopConnectStart(string, string)                     {}
func noopConnectDone(string, string, error)               {}
func noopTLSHandshakeStart()                              {}
func noopTLSHandshakeDone(error)                           {}
func noopWroteHeaderField(string)                          {}
func noopWroteHeaders()                                   {}
func noopWait100Continue()                                {}
func noopWroteRequest(error)                               {}

// compileTrace returns a RequestTrace with every nil callback field
// replaced by a shared package-level no-op, so Manager.Perform can
// invoke every hook unconditionally.
func compileTrace(t *RequestTrace) *RequestTrace {
	out := RequestTrace{}
	if t != nil {
		out = *t
	}
	if out.GetConnection == nil {
		out.GetConnection = noopGetConnection
	}
	if out.GotConnection == nil {
		out.GotConnection = noopGotConnection
	}
	if out.PutIdleConnection == nil {
		out.PutIdleConnection = noopPutIdleConnection
	}
	if out.GotFirstResponseByte == nil {
		out.GotFirstResponseByte = noopGotFirstResponseByte
	}
	if out.Got100Continue == nil {
		out.Got100Continue = noopGot100Continue
	}
	if out.Got1xxResponse == nil {
		out.Got1xxResponse = noopGot1xxResponse
	}
	if out.DNSStart == nil {
		out.DNSStart = noopDNSStart
	}
	if out.DNSDone == nil {
		out.DNSDone = noopDNSDone
	}
	if out.ConnectStart == nil {
		out.ConnectStart = noopConnectStart
	}
	if out.ConnectDone == nil {
		out.ConnectDone = noopConnectDone
	}
	if out.TLSHandshakeStart == nil {
		out.TLSHandshakeStart = noopTLSHandshakeStart
	}
	if out.TLSHandshakeDone == nil {
		out.TLSHandshakeDone = noopTLSHandshakeDone
	}
	if out.WroteHeaderField == nil {
		out.WroteHeaderField = noopWroteHeaderField
	}
	if out.WroteHeaders == nil {
		out.WroteHeaders = noopWroteHeaders
	}
	if out.Wait100Continue == nil {
		out.Wait100Continue = noopWait100Continue
	}
	if out.WroteRequest == nil {
		out.WroteRequest = noopWroteRequest
	}
	return &out
}

// safeCall runs f and recovers any panic it raises. No RequestTrace
// call site goes through it.
func safeCall(f func()) {
	defer func() { _ = recover() }()
	f()
}
