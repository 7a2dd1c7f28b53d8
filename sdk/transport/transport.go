// Package transport moves raw oBIX documents over HTTP.
package transport

import (
	"context"
	"errors"
	"net/url"
)

// Response is the outcome of one HTTP exchange.
type Response struct {
	StatusCode int
	Reason     string
	Body       []byte
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r != nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Transport performs the three verbs the oBIX HTTP binding uses.
type Transport interface {
	Get(ctx context.Context, u *url.URL) (*Response, error)
	Put(ctx context.Context, u *url.URL, body []byte) (*Response, error)
	Post(ctx context.Context, u *url.URL, body []byte) (*Response, error)
}

// BodyError reports a failure while reading a response body after the
// exchange itself succeeded.
type BodyError struct {
	Err error
}

func (e *BodyError) Error() string { return "read response body: " + e.Err.Error() }

func (e *BodyError) Unwrap() error { return e.Err }

// IsBodyError reports whether err happened while reading a response body.
func IsBodyError(err error) bool {
	var be *BodyError
	return errors.As(err, &be)
}
