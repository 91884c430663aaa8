package bserve

import "maps"

// Request is the read-only view of an inbound request that handlers receive. It is built once per connection.
type Request struct {
	method string
	path   string
	params Params
}

// NewRequest builds a request. The params are copied so later changes by the caller are not observed.
func NewRequest(method, path string, params Params) *Request {
	cp := maps.Clone(params)
	if cp == nil {
		cp = Params{}
	}

	return &Request{method: method, path: path, params: cp}
}

// Method returns the request method, e.g. "GET".
func (r *Request) Method() string { return r.method }

// Path returns the request path with the query string stripped.
func (r *Request) Path() string { return r.path }

// Param returns the value for key and whether it was sent.
func (r *Request) Param(key string) (string, bool) {
	v, ok := r.params[key]
	return v, ok
}

// Get returns the value for key or the empty string.
func (r *Request) Get(key string) string { return r.params[key] }

// Len returns the number of parameters.
func (r *Request) Len() int { return len(r.params) }

// Params returns a copy of all parameters.
func (r *Request) Params() Params { return maps.Clone(r.params) }
