package client

import (
	"context"
	"net/http"

	"github.com/localizekit/authgate/jwt"
)

// Session is the explicit session context for request-building code: one
// store, the transport that reads it and a client that uses the transport.
type Session struct {
	store     TokenStore
	transport *Transport
	client    *http.Client
}

func NewSession(opts Options) (*Session, error) {
	t, err := NewTransport(opts)
	if err != nil {
		return nil, err
	}
	return &Session{store: opts.Store, transport: t, client: &http.Client{Transport: t}}, nil
}

func (s *Session) Client() *http.Client  { return s.client }
func (s *Session) Transport() *Transport { return s.transport }
func (s *Session) Store() TokenStore     { return s.store }

// SignIn stores a pair obtained from login or registration.
func (s *Session) SignIn(ctx context.Context, pair jwt.TokenPair) error {
	return s.store.Set(ctx, pair)
}

func (s *Session) SignOut(ctx context.Context) error {
	return s.store.Clear(ctx)
}

// SignedIn reports whether a refresh token is stored.
func (s *Session) SignedIn(ctx context.Context) bool {
	pair, err := s.store.Get(ctx)
	return err == nil && pair.RefreshToken != ""
}
