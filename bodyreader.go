package httpclient

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"io"
	"strconv"
	"strings"

	"github.com/iand675/http-client/internal/wire"
)

// BodyReader is a pull-based response body: each call yields the next
// decoded chunk; an empty chunk is the sole EOF signal, and calls
// after EOF keep returning empty. It never blocks a caller beyond one
// network read.
type BodyReader func() ([]byte, error)

const bodyReadChunkSize = 32 * 1024

// framingReader is satisfied by each of the three framing strategies
// (Content-Length, chunked, EOF-delimited). drained reports whether
// every byte the strategy expects has been consumed, which is what
// decides connection reuse on Close.
type framingReader interface {
	read() ([]byte, error)
	drained() bool
}

// newBodyReader builds the C4 pipeline: framing stage, then an
// optional decompression stage, exposed as a single BodyReader. It
// also returns a drained() func for the ResponseClose handle to
// decide connection reuse.
func newBodyReader(conn Connection, header Header, req *Request) (BodyReader, func() bool) {
	fr := newFramingReader(conn, header)

	contentEncoding := strings.ToLower(strings.TrimSpace(header.Get("Content-Encoding")))
	contentType := header.Get("Content-Type")
	if contentEncoding != "" && req.decompressAllowed(contentType) {
		switch contentEncoding {
		case "gzip":
			return decompressGzip(fr), fr.drained
		case "deflate":
			return decompressDeflate(fr), fr.drained
		}
	}

	return func() ([]byte, error) { return fr.read() }, fr.drained
}

func newFramingReader(conn Connection, header Header) framingReader {
	if hasChunkedEncoding(header) {
		return &chunkedFramingReader{conn: conn}
	}
	if v := header.Get("Content-Length"); v != "" {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil || n < 0 {
			n = 0
		}
		return &contentLengthFramingReader{conn: conn, remaining: n, total: n}
	}
	return &eofFramingReader{conn: conn}
}

func hasChunkedEncoding(h Header) bool {
	for _, v := range h.Values("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(v), "chunked") {
			return true
		}
	}
	return false
}

// --- Content-Length framing ---

type contentLengthFramingReader struct {
	conn      Connection
	remaining int64
	total     int64
	eof       bool
}

func (r *contentLengthFramingReader) read() ([]byte, error) {
	if r.remaining <= 0 {
		r.eof = true
		return nil, nil
	}
	chunk, err := r.conn.Read()
	if err != nil {
		return nil, err
	}
	if len(chunk) == 0 {
		return nil, &ResponseBodyTooShortKind{Expected: r.total, Actual: r.total - r.remaining}
	}
	if int64(len(chunk)) > r.remaining {
		extra := chunk[r.remaining:]
		chunk = chunk[:r.remaining]
		r.conn.Unread(extra)
	}
	r.remaining -= int64(len(chunk))
	return chunk, nil
}

func (r *contentLengthFramingReader) drained() bool { return r.remaining <= 0 }

// --- chunked framing ---

type chunkedFramingReader struct {
	conn     Connection
	remain   int64
	finished bool
}

func (r *chunkedFramingReader) drained() bool { return r.finished }

func (r *chunkedFramingReader) read() ([]byte, error) {
	if r.finished {
		return nil, nil
	}
	if r.remain <= 0 {
		line, err := readLine(r.conn, maxHeaderLineBytes)
		if err == errLineEOF {
			return nil, &IncompleteHeadersKind{}
		}
		if err != nil {
			return nil, err
		}
		n, perr := wire.ParseChunkHeader(line)
		if perr != nil {
			return nil, &InvalidChunkHeadersKind{}
		}
		if n == 0 {
			if err := dropTillBlankLine(r.conn); err != nil {
				return nil, err
			}
			r.finished = true
			return nil, nil
		}
		r.remain = n
	}
	chunk, err := r.conn.Read()
	if err != nil {
		return nil, err
	}
	if len(chunk) == 0 {
		return nil, &InvalidChunkHeadersKind{}
	}
	if int64(len(chunk)) > r.remain {
		extra := chunk[r.remain:]
		chunk = chunk[:r.remain]
		r.conn.Unread(extra)
	}
	r.remain -= int64(len(chunk))
	if r.remain == 0 {
		if err := consumeCRLF(r.conn); err != nil {
			return nil, err
		}
	}
	return chunk, nil
}

func consumeCRLF(conn Connection) error {
	b, err := readExactly(conn, 2)
	if err != nil {
		return err
	}
	if b[0] != '\r' || b[1] != '\n' {
		return &InvalidChunkHeadersKind{}
	}
	return nil
}

func readExactly(conn Connection, n int) ([]byte, error) {
	out := make([]byte, 0, n)
	for len(out) < n {
		chunk, err := conn.Read()
		if err != nil {
			return nil, err
		}
		if len(chunk) == 0 {
			return nil, ErrConnectionClosed
		}
		need := n - len(out)
		if len(chunk) > need {
			conn.Unread(chunk[need:])
			chunk = chunk[:need]
		}
		out = append(out, chunk...)
	}
	return out, nil
}

// --- EOF-delimited (close-terminated) framing ---

type eofFramingReader struct {
	conn Connection
	eof  bool
}

func (r *eofFramingReader) read() ([]byte, error) {
	if r.eof {
		return nil, nil
	}
	chunk, err := r.conn.Read()
	if err != nil {
		return nil, err
	}
	if len(chunk) == 0 {
		r.eof = true
	}
	return chunk, nil
}

func (r *eofFramingReader) drained() bool { return r.eof }

// --- decompression stage ---

// framingReaderAsIOReader adapts a framingReader to io.Reader so the
// standard library's gzip/flate decoders can sit on top of it; chunks
// are buffered internally since BodyReader yields whole network reads
// but io.Reader contracts allow partial reads.
type framingReaderAsIOReader struct {
	fr  framingReader
	buf []byte
}

func (a *framingReaderAsIOReader) Read(p []byte) (int, error) {
	for len(a.buf) == 0 {
		chunk, err := a.fr.read()
		if err != nil {
			return 0, err
		}
		if len(chunk) == 0 {
			return 0, io.EOF
		}
		a.buf = chunk
	}
	n := copy(p, a.buf)
	a.buf = a.buf[n:]
	return n, nil
}

func decompressGzip(fr framingReader) BodyReader {
	src := &framingReaderAsIOReader{fr: fr}
	var zr *gzip.Reader
	buf := make([]byte, bodyReadChunkSize)
	return func() ([]byte, error) {
		if zr == nil {
			var err error
			zr, err = gzip.NewReader(src)
			if err != nil {
				return nil, &HTTPZlibExceptionKind{Inner: err}
			}
		}
		n, err := zr.Read(buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, buf[:n])
			if err != nil && err != io.EOF {
				return out, &HTTPZlibExceptionKind{Inner: err}
			}
			return out, nil
		}
		if err == io.EOF || err == nil {
			return nil, nil
		}
		return nil, &HTTPZlibExceptionKind{Inner: err}
	}
}

func decompressDeflate(fr framingReader) BodyReader {
	src := &framingReaderAsIOReader{fr: fr}
	zr := flate.NewReader(src)
	buf := make([]byte, bodyReadChunkSize)
	return func() ([]byte, error) {
		n, err := zr.Read(buf)
		if n > 0 {
			out := make([]byte, n)
			copy(out, buf[:n])
			if err != nil && err != io.EOF {
				return out, &HTTPZlibExceptionKind{Inner: err}
			}
			return out, nil
		}
		if err == io.EOF || err == nil {
			return nil, nil
		}
		return nil, &HTTPZlibExceptionKind{Inner: err}
	}
}

// ReadAllBody drains a BodyReader to a single byte slice; convenient
// for tests and small responses.
func ReadAllBody(b BodyReader) ([]byte, error) {
	var buf bytes.Buffer
	for {
		chunk, err := b()
		if err != nil {
			return buf.Bytes(), err
		}
		if len(chunk) == 0 {
			return buf.Bytes(), nil
		}
		buf.Write(chunk)
	}
}
