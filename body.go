package httpclient

import (
	"context"
	"io"
)

// Popper pulls the next request-body chunk; an empty chunk (nil err)
// is EOF. A popper MUST tolerate being invoked multiple times — a
// request using it may be retried or redirected.
type Popper func() ([]byte, error)

// NeedsPopper is the consumer side of the scoped-acquisition pattern:
// given a Popper, it drains it and returns any error encountered.
type NeedsPopper func(Popper) error

// PopperFactory is "GivesPopper": it acquires whatever resource backs
// the body (an open file, a goroutine, a buffer cursor), invokes
// need with a Popper, and guarantees the resource is released on
// every exit path — normal return, error return, or panic — before
// PopperFactory itself returns. It MUST be safely callable more than
// once.
type PopperFactory func(need NeedsPopper) error

// RequestBody is a closed tagged union of the ways a request body can
// be supplied. The unexported marker method closes the set to the
// cases below.
type RequestBody interface {
	requestBody()
}

// BytesBody is a fully buffered body of known length.
type BytesBody []byte

func (BytesBody) requestBody() {}

// BuilderBody is a lazily-materialized byte builder of known length,
// an optimization over BytesBody for bodies assembled by
// concatenation: the concatenated bytes aren't built until Build is
// actually called.
type BuilderBody struct {
	Length int64
	Build  func() []byte
}

func (BuilderBody) requestBody() {}

// StreamBody is a fixed-length body produced incrementally. The
// popper's total output MUST equal Length exactly, or sending raises
// WrongRequestBodyStreamSize.
type StreamBody struct {
	Length int64
	Popper PopperFactory
}

func (StreamBody) requestBody() {}

// ChunkedStreamBody is an unknown-length body sent with
// Transfer-Encoding: chunked.
type ChunkedStreamBody struct {
	Popper PopperFactory
}

func (ChunkedStreamBody) requestBody() {}

// DeferredBody is an effectful producer of one of the other variants,
// resolved once at send time.
type DeferredBody func(ctx context.Context) (RequestBody, error)

func (DeferredBody) requestBody() {}

// BodyLength reports the declared length of a body, or -1 when it is
// unknown ahead of time (ChunkedStreamBody, or a Deferred body before
// resolution).
func BodyLength(b RequestBody) int64 {
	switch v := b.(type) {
	case BytesBody:
		return int64(len(v))
	case BuilderBody:
		return v.Length
	case StreamBody:
		return v.Length
	case ChunkedStreamBody:
		return -1
	case DeferredBody:
		return -1
	default:
		return -1
	}
}

// BytesPopperFactory adapts a plain byte slice to a PopperFactory: a
// single non-empty chunk, then EOF, repeatable on every call.
func BytesPopperFactory(data []byte) PopperFactory {
	return func(need NeedsPopper) error {
		sent := false
		return need(func() ([]byte, error) {
			if sent || len(data) == 0 {
				return nil, nil
			}
			sent = true
			return data, nil
		})
	}
}

// ReaderPopperFactory adapts an io.Reader opened fresh on every
// invocation (so retries/redirects re-read from the start) into a
// PopperFactory that pops fixed-size chunks and closes the reader on
// every exit path, including a panic unwinding through need.
func ReaderPopperFactory(open func() (io.ReadCloser, error), chunkSize int) PopperFactory {
	if chunkSize <= 0 {
		chunkSize = 32 * 1024
	}
	return func(need NeedsPopper) error {
		rc, err := open()
		if err != nil {
			return err
		}
		defer rc.Close()
		buf := make([]byte, chunkSize)
		return need(func() ([]byte, error) {
			n, err := rc.Read(buf)
			if n == 0 {
				if err != nil && err != io.EOF {
					return nil, err
				}
				return nil, nil
			}
			out := make([]byte, n)
			copy(out, buf[:n])
			if err != nil && err != io.EOF {
				return out, err
			}
			return out, nil
		})
	}
}

// ConcatBody joins two bodies into one, preferring to stay buffered
// when both sides are. Deferred bodies cannot participate: attempting
// to concatenate one returns ErrDeferredBodyNotComposable rather than
// panicking.
func ConcatBody(a, b RequestBody) (RequestBody, error) {
	if _, ok := a.(DeferredBody); ok {
		return nil, ErrDeferredBodyNotComposable
	}
	if _, ok := b.(DeferredBody); ok {
		return nil, ErrDeferredBodyNotComposable
	}
	if isEmptyBody(a) {
		return b, nil
	}
	if isEmptyBody(b) {
		return a, nil
	}

	switch a.(type) {
	case BytesBody, BuilderBody:
		switch b.(type) {
		case BytesBody, BuilderBody:
			return BuilderBody{Length: BodyLength(a) + BodyLength(b), Build: func() []byte {
				aBuf, _ := bufferedBytes(a)
				bBuf, _ := bufferedBytes(b)
				return append(append([]byte(nil), aBuf...), bBuf...)
			}}, nil
		}
	}

	aLen, bLen := BodyLength(a), BodyLength(b)
	if aLen < 0 || bLen < 0 {
		return ChunkedStreamBody{Popper: concatPopperFactory(a, b)}, nil
	}
	return StreamBody{Length: aLen + bLen, Popper: concatPopperFactory(a, b)}, nil
}

func isEmptyBody(b RequestBody) bool {
	switch v := b.(type) {
	case BytesBody:
		return len(v) == 0
	case BuilderBody:
		return v.Length == 0
	default:
		return false
	}
}

func bufferedBytes(b RequestBody) ([]byte, bool) {
	switch v := b.(type) {
	case BytesBody:
		return v, true
	case BuilderBody:
		return v.Build(), true
	default:
		return nil, false
	}
}

// asStreamFactory turns any non-Deferred body into a PopperFactory,
// buffering BytesBody/BuilderBody as a one-shot stream so it can
// combine uniformly with a genuinely streamed body.
func asStreamFactory(b RequestBody) PopperFactory {
	switch v := b.(type) {
	case BytesBody:
		return BytesPopperFactory(v)
	case BuilderBody:
		return BytesPopperFactory(v.Build())
	case StreamBody:
		return v.Popper
	case ChunkedStreamBody:
		return v.Popper
	default:
		return BytesPopperFactory(nil)
	}
}

// concatPopperFactory drains a's popper to EOF, then b's, inside one
// scoped acquisition covering both.
func concatPopperFactory(a, b RequestBody) PopperFactory {
	fa, fb := asStreamFactory(a), asStreamFactory(b)
	return func(need NeedsPopper) error {
		return fa(func(popA Popper) error {
			return fb(func(popB Popper) error {
				firstDone := false
				return need(func() ([]byte, error) {
					if !firstDone {
						chunk, err := popA()
						if err != nil {
							return nil, err
						}
						if len(chunk) > 0 {
							return chunk, nil
						}
						firstDone = true
					}
					return popB()
				})
			})
		})
	}
}

// ResolveBody resolves a Deferred body (once) down to a concrete,
// non-Deferred RequestBody.
func ResolveBody(ctx context.Context, b RequestBody) (RequestBody, error) {
	for {
		d, ok := b.(DeferredBody)
		if !ok {
			return b, nil
		}
		resolved, err := d(ctx)
		if err != nil {
			return nil, err
		}
		b = resolved
	}
}
