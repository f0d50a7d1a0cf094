package httpclient

import "errors"

// maxHeaderLineBytes bounds a single status/header/chunk-header line
// before LF.
const maxHeaderLineBytes = 4096

// errLineEOF is returned by readLine when the connection EOF'd before
// a single byte of the line was read. Callers that care about "the
// peer hadn't sent anything at all yet" (readStatusLine, on the first
// line of a response) translate it into NoResponseDataReceivedKind;
// callers reading further into an already-started message
// (readHeaders) translate it into IncompleteHeadersKind like any other
// mid-line EOF.
var errLineEOF = errors.New("httpclient: connection EOF before any bytes of a line")

// readLine reads bytes from conn until the first LF, strips a single
// trailing CR if present, and pushes back anything read past the LF.
// It is the C2 component: used for the status line, each header line,
// and chunk-size lines.
func readLine(conn Connection, limit int) (string, error) {
	var buf []byte
	for {
		chunk, err := conn.Read()
		if len(chunk) == 0 {
			if err != nil {
				return "", err
			}
			// empty chunk, nil error: the transport EOF'd before LF.
			if len(buf) == 0 {
				return "", errLineEOF
			}
			return "", &IncompleteHeadersKind{}
		}
		if idx := indexByte(chunk, '\n'); idx >= 0 {
			buf = append(buf, chunk[:idx]...)
			if idx+1 < len(chunk) {
				conn.Unread(chunk[idx+1:])
			}
			if limit > 0 && len(buf) > limit {
				return "", &OverlongHeadersKind{}
			}
			if n := len(buf); n > 0 && buf[n-1] == '\r' {
				buf = buf[:n-1]
			}
			return string(buf), nil
		}
		buf = append(buf, chunk...)
		if limit > 0 && len(buf) > limit {
			return "", &OverlongHeadersKind{}
		}
		if err != nil {
			return "", err
		}
	}
}

// dropTillBlankLine repeatedly reads lines until an empty line is
// seen, used to discard informational response "bodies" (there are
// none, only headers) and to skip the CONNECT response's header
// block.
func dropTillBlankLine(conn Connection) error {
	for {
		line, err := readLine(conn, maxHeaderLineBytes)
		if err == errLineEOF {
			return &IncompleteHeadersKind{}
		}
		if err != nil {
			return err
		}
		if line == "" {
			return nil
		}
	}
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
