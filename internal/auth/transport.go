package auth

import (
	"context"
	"net/http"
)

// TokenSource supplies access tokens.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Transport attaches a bearer token to every request.
type Transport struct {
	Source TokenSource
	Base   http.RoundTripper
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(src TokenSource, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{Source: src, Base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token(req.Context())
	if err != nil {
		if req.Body != nil {
			req.Body.Close()
		}
		return nil, err
	}
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+token)
	return t.Base.RoundTrip(r)
}
