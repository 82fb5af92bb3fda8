package oauth2

import (
	"net/http"
	"net/url"
)

// Request is the inbound request value object consumed by the protocol
// core. It wraps an *http.Request and reads only what the core needs: the
// method, named parameters, raw headers and HTTP Basic credentials. An
// optional payload replaces the body parameters, which supports non-HTTP
// invocation such as proxied token requests.
type Request struct {
	raw     *http.Request
	payload url.Values
}

// NewRequest wraps an inbound HTTP request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// WithPayload returns a copy of the request whose body parameters are
// replaced by the given values. Query string parameters remain readable.
func (r *Request) WithPayload(payload url.Values) *Request {
	return &Request{raw: r.raw, payload: payload}
}

// Method returns the HTTP method of the underlying request.
func (r *Request) Method() string {
	return r.raw.Method
}

// Param returns the named parameter. The injected payload takes precedence
// over the POST body, which takes precedence over the query string. Returns
// the empty string when the parameter is absent.
func (r *Request) Param(name string) string {
	if r.payload != nil {
		if v := r.payload.Get(name); v != "" {
			return v
		}
	} else if v := r.raw.PostFormValue(name); v != "" {
		return v
	}
	return r.raw.URL.Query().Get(name)
}

// Header returns the first value of the named header.
func (r *Request) Header(name string) string {
	return r.raw.Header.Get(name)
}

// BasicAuth returns the client credentials from an Authorization header
// using the Basic scheme, if present.
func (r *Request) BasicAuth() (id, secret string, ok bool) {
	return r.raw.BasicAuth()
}
