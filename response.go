package httpclient

import "fmt"

// StatusLine is the parsed first line of an HTTP/1.x response.
type StatusLine struct {
	Proto      string
	StatusCode int
	Reason     string
}

func (s StatusLine) String() string { return fmt.Sprintf("%s %d %s", s.Proto, s.StatusCode, s.Reason) }

// Response is the record every caller of Manager.Perform receives. Body
// is concrete (BodyReader) rather than a generic Response[B]: a
// generic type alias needs a newer language version than this module
// targets, and every caller wants a BodyReader anyway — see
// DESIGN.md.
type Response struct {
	Status     string // "HTTP/1.1 200 OK"
	StatusCode int
	Reason     string
	Proto      string
	Header     Header

	// Body yields successive decoded chunks; empty chunk is EOF.
	Body BodyReader

	// CookieJar is a snapshot of the jar as of response receipt,
	// present only when the originating Request carried one.
	CookieJar *CookieJar

	// Request is a snapshot of the originating request with Body
	// replaced by an empty body.
	Request *Request

	close *responseCloser
}

// Close is idempotent, and the sole bridge from in-use back to idle.
// Closing before the body is fully drained discards the connection;
// draining fully and then closing (or letting Body reach EOF and then
// closing) returns the connection to the pool when the server allowed
// keep-alive.
func (r *Response) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close.Close()
}

// responseCloser implements the idempotent ResponseClose handle. It
// owns the checked-out connection and the framing BodyReader's
// underlying resources.
type responseCloser struct {
	release func(keepAlive bool)
	drained func() bool
	closeFn func() error
	done    bool
}

func (c *responseCloser) Close() error {
	if c == nil || c.done {
		return nil
	}
	c.done = true
	keepAlive := c.drained != nil && c.drained()
	var err error
	if c.closeFn != nil {
		err = c.closeFn()
	}
	if c.release != nil {
		c.release(keepAlive)
	}
	return err
}
