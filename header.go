package httpclient

import (
	"net/textproto"

	"golang.org/x/net/http/httpguts"
)

// Header is a multimap of request/response header fields with
// case-insensitive names and duplicates allowed. Canonicalization
// follows net/textproto, the same rule net/http itself uses.
type Header map[string][]string

func NewHeader() Header { return make(Header) }

func (h Header) Get(key string) string {
	if h == nil {
		return ""
	}
	if vv, ok := h[textproto.CanonicalMIMEHeaderKey(key)]; ok && len(vv) > 0 {
		return vv[0]
	}
	return ""
}

func (h Header) Values(key string) []string {
	if h == nil {
		return nil
	}
	return h[textproto.CanonicalMIMEHeaderKey(key)]
}

func (h Header) Set(key, value string) {
	if h == nil {
		return
	}
	h[textproto.CanonicalMIMEHeaderKey(key)] = []string{value}
}

func (h Header) Add(key, value string) {
	if h == nil {
		return
	}
	k := textproto.CanonicalMIMEHeaderKey(key)
	h[k] = append(h[k], value)
}

func (h Header) Del(key string) {
	if h == nil {
		return
	}
	delete(h, textproto.CanonicalMIMEHeaderKey(key))
}

func (h Header) Clone() Header {
	if h == nil {
		return nil
	}
	out := make(Header, len(h))
	for k, vv := range h {
		cp := make([]string, len(vv))
		copy(cp, vv)
		out[k] = cp
	}
	return out
}

// validateForWire rejects any header line whose value (or name) would
// let a caller smuggle extra header/request lines through an embedded
// CR or LF, using golang.org/x/net/http/httpguts, the same validator
// net/http uses internally.
func validateForWire(h Header) error {
	for k, vv := range h {
		if !httpguts.ValidHeaderFieldName(k) {
			return &InvalidRequestHeaderKind{Raw: k}
		}
		for _, v := range vv {
			if !httpguts.ValidHeaderFieldValue(v) {
				return &InvalidRequestHeaderKind{Raw: k + ": " + v}
			}
		}
	}
	return nil
}
