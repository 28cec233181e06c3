package router

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/phonekey/internal/pkg/goerror"
)

const maxBodyBytes = 1 << 20

// Request wraps http.Request with helpers for inbound handlers.
type Request struct {
	*http.Request
}

// GetParam reads a path parameter stored by httprouter.
func (r *Request) GetParam(key string) string {
	return httprouter.ParamsFromContext(r.Context()).ByName(key)
}

// GetRawQuery returns the first value of key with percent escapes decoded
// but a literal "+" kept as is, so "+49..." and "%2B49..." read the same.
// A malformed escape reads as empty.
func (r *Request) GetRawQuery(key string) string {
	for pair := range strings.SplitSeq(r.URL.RawQuery, "&") {
		name, value, _ := strings.Cut(pair, "=")
		if name != key {
			continue
		}
		decoded, err := url.PathUnescape(value)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(decoded)
	}
	return ""
}

// DecodeBody decodes exactly one JSON object into dst. Unknown fields, an
// empty body and trailing data are rejected as invalid format.
func (r *Request) DecodeBody(dst any) error {
	if r == nil || r.Body == nil {
		return goerror.NewInvalidFormat()
	}

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return goerror.NewInvalidFormat()
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return goerror.NewInvalidFormat()
	}

	return nil
}
