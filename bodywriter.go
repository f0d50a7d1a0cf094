package httpclient

import (
	"strconv"

	"github.com/iand675/http-client/internal/wire"
)

// bodyFraming describes the Content-Length/Transfer-Encoding header a
// body variant implies, computed before any bytes are written so the
// header block and the body agree.
type bodyFraming struct {
	contentLength int64 // -1 when chunked
	chunked       bool
}

func framingFor(b RequestBody) bodyFraming {
	switch v := b.(type) {
	case BytesBody:
		return bodyFraming{contentLength: int64(len(v))}
	case BuilderBody:
		return bodyFraming{contentLength: v.Length}
	case StreamBody:
		return bodyFraming{contentLength: v.Length}
	case ChunkedStreamBody:
		return bodyFraming{contentLength: -1, chunked: true}
	default:
		return bodyFraming{contentLength: 0}
	}
}

func (f bodyFraming) writeHeader(w func(name, value string)) {
	if f.chunked {
		w("Transfer-Encoding", "chunked")
		return
	}
	w("Content-Length", strconv.FormatInt(f.contentLength, 10))
}

// writeRequestBody sends b on conn: Bytes/Builder/Stream each write
// exactly their declared Content-Length; ChunkedStream frames every
// popper output and terminates with the zero chunk. b must already be
// resolved (DeferredBody handled by the caller via ResolveBody).
func writeRequestBody(conn Connection, b RequestBody) error {
	switch v := b.(type) {
	case BytesBody:
		if len(v) == 0 {
			return nil
		}
		return conn.Write(v)
	case BuilderBody:
		data := v.Build()
		if len(data) == 0 {
			return nil
		}
		return conn.Write(data)
	case StreamBody:
		return writeStreamBody(conn, v)
	case ChunkedStreamBody:
		return writeChunkedBody(conn, v)
	default:
		return nil
	}
}

func writeStreamBody(conn Connection, b StreamBody) error {
	var written int64
	var writeErr error
	err := b.Popper(func(pop Popper) error {
		for {
			chunk, err := pop()
			if err != nil {
				return err
			}
			if len(chunk) == 0 {
				break
			}
			written += int64(len(chunk))
			if writeErr == nil {
				writeErr = conn.Write(chunk)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	if written != b.Length {
		return &WrongRequestBodyStreamSizeKind{Expected: b.Length, Actual: written}
	}
	return nil
}

func writeChunkedBody(conn Connection, b ChunkedStreamBody) error {
	var writeErr error
	err := b.Popper(func(pop Popper) error {
		for {
			chunk, err := pop()
			if err != nil {
				return err
			}
			if len(chunk) == 0 {
				break
			}
			if writeErr == nil {
				writeErr = conn.Write(wire.EncodeChunk(chunk))
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if writeErr != nil {
		return writeErr
	}
	return conn.Write(wire.EndChunk)
}

// guardBodyException applies the caller-supplied
// onRequestBodyException policy: transport-like failures while
// streaming a body may be silently swallowed (the server may already
// have sent a full response before closing), while every other error
// propagates. The default policy (nil handler) never swallows.
func guardBodyException(onErr func(error) bool, err error) error {
	if err == nil {
		return nil
	}
	if onErr != nil && onErr(err) {
		return nil
	}
	return err
}
