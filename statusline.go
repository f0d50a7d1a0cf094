package httpclient

import (
	"strconv"
	"strings"
)

// readStatusLine parses "HTTP/1.1 200 OK" into its parts, failing
// with InvalidStatusLine on any malformed line.
func readStatusLine(conn Connection) (StatusLine, error) {
	line, err := readLine(conn, maxHeaderLineBytes)
	if err == errLineEOF {
		return StatusLine{}, &NoResponseDataReceivedKind{}
	}
	if err != nil {
		return StatusLine{}, err
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "HTTP/1.") {
		return StatusLine{}, &InvalidStatusLineKind{Raw: line}
	}
	code, err := strconv.Atoi(parts[1])
	if err != nil {
		return StatusLine{}, &InvalidStatusLineKind{Raw: line}
	}
	reason := ""
	if len(parts) == 3 {
		reason = parts[2]
	}
	return StatusLine{Proto: parts[0], StatusCode: code, Reason: reason}, nil
}

// readHeaders reads header lines until a blank line, failing with
// InvalidHeader on a line with no ':' separator.
func readHeaders(conn Connection) (Header, error) {
	h := NewHeader()
	for {
		line, err := readLine(conn, maxHeaderLineBytes)
		if err == errLineEOF {
			return nil, &IncompleteHeadersKind{}
		}
		if err != nil {
			return nil, err
		}
		if line == "" {
			return h, nil
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return nil, &InvalidHeaderKind{Raw: line}
		}
		name := strings.TrimSpace(line[:i])
		value := strings.TrimSpace(line[i+1:])
		h.Add(name, value)
	}
}
